// Package state keeps program wide state shared by commands.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wilkie/gutenberg/internal/config"
	"github.com/wilkie/gutenberg/internal/hyphen"
)

type envKey struct{}

// LocalEnv keeps everything the program needs in a single place.
type LocalEnv struct {
	Cfg         *config.Config
	Log         *zap.Logger
	Hyphenators *hyphen.Cache

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{
		Log:   zap.NewNop(),
		start: time.Now(),
	})
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// Prepare loads configuration from path and sets up logging and the
// hyphenation dictionaries it names.
func (e *LocalEnv) Prepare(path string, debug bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if debug {
		cfg.Logging.ConsoleLogger.Level = "debug"
	}
	log, err := cfg.Logging.Prepare()
	if err != nil {
		return err
	}
	e.Cfg = cfg
	e.Log = log
	e.Hyphenators = hyphen.NewCache(cfg.Build.HyphenationDir, log)
	return nil
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
