package hyphen

import (
	"sync"

	"go.uber.org/zap"
)

// Cache shares loaded hyphenators across chapters rendered in parallel.
type Cache struct {
	dir string
	log *zap.Logger

	mu     sync.Mutex
	loaded map[string]*Hyphenator
}

// NewCache returns a cache reading dictionaries from dir.
func NewCache(dir string, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		dir:    dir,
		log:    log.Named("hyphen"),
		loaded: make(map[string]*Hyphenator),
	}
}

// For returns the hyphenator for a language such as "en_us". Unknown or
// unparsable languages yield nil, which disables hyphenation.
func (c *Cache) For(lang string) *Hyphenator {
	if c == nil {
		return nil
	}
	tag, err := ParseLanguage(lang)
	if err != nil {
		c.log.Warn("Unknown chapter language, hyphenation disabled", zap.String("language", lang), zap.Error(err))
		return nil
	}
	key := tag.String()

	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.loaded[key]; ok {
		return h
	}
	h := New(c.dir, tag, c.log)
	c.loaded[key] = h
	return h
}
