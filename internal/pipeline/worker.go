package pipeline

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wilkie/gutenberg/internal/book"
	"github.com/wilkie/gutenberg/internal/chapter"
	"github.com/wilkie/gutenberg/internal/config"
)

// Worker builds one book at a time.
type Worker struct {
	cfg         config.BuildConfig
	hyphenators chapter.Hyphenators
	stats       *RenderStats
	log         *zap.Logger
}

func NewWorker(cfg config.BuildConfig, hyphenators chapter.Hyphenators, stats *RenderStats, log *zap.Logger) *Worker {
	return &Worker{
		cfg:         cfg,
		hyphenators: hyphenators,
		stats:       stats,
		log:         log,
	}
}

// Process builds the book uploaded for job and stores the resulting document.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With(zap.String("job_id", job.ID))
	start := time.Now()

	b, err := book.LoadWithStyle(job.Dir(), w.cfg.DefaultStyle)
	if err != nil {
		log.Error("Unable to load book", zap.Error(err))
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "loading")
		return
	}
	job.SetTitle(b.Title)
	job.SetTotalChapters(len(b.Chapters))
	if len(b.Chapters) == 0 {
		log.Warn("Book has no chapters")
		job.AddError("no chapters found")
		job.SetStatus(StatusFailed, "loading")
		return
	}

	builder := book.NewBuilder(book.Options{
		StylesDir:    w.cfg.StylesDir,
		Hyphenators:  w.hyphenators,
		Workers:      w.cfg.Workers,
		PageCapacity: w.cfg.PageCapacity,
		PDFFallback:  w.cfg.PDFFallbackPdftotext,
		Logger:       log,
		OnStage: func(s book.Stage) {
			job.SetStatus(JobStatus(s), string(s))
		},
		OnChapter: func(e book.ChapterEvent) {
			if e.Err != nil {
				return
			}
			job.IncrChaptersRendered()
			w.stats.Record(e.Elapsed)
		},
	})

	res, err := builder.Build(ctx, b)
	if err != nil {
		for _, e := range multierr.Errors(err) {
			job.AddError(e.Error())
		}
		job.SetStatus(StatusFailed, job.Snapshot().Phase)
		log.Error("Build failed", zap.Error(err))
		return
	}

	job.SetResult(res.HTML, len(res.Pages))
	job.SetStatus(StatusCompleted, "done")
	log.Info("Job completed",
		zap.String("title", b.Title),
		zap.Int("pages", len(res.Pages)),
		zap.Duration("elapsed", time.Since(start)))
}
