// Package pipeline queues book builds and runs them on a fixed pool of
// workers, keeping job state in memory until it expires.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wilkie/gutenberg/internal/chapter"
	"github.com/wilkie/gutenberg/internal/config"
)

const cleanupInterval = 5 * time.Minute

// Orchestrator manages the build queue.
type Orchestrator struct {
	jobs        *JobStore
	queue       chan *Job
	stats       *RenderStats
	hyphenators chapter.Hyphenators
	log         *zap.Logger
	cfg         config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to run it.
func NewOrchestrator(cfg config.Config, hyphenators chapter.Hyphenators, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		jobs:        NewJobStore(cfg.Server.JobTTL),
		queue:       make(chan *Job, cfg.Server.QueueSize),
		stats:       NewRenderStats(cfg.Server.JobTTL),
		hyphenators: hyphenators,
		log:         log.Named("pipeline"),
		cfg:         cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.Server.Workers {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.cfg.Build, o.hyphenators, o.stats, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
	o.log.Info("Pipeline started", zap.Int("workers", o.cfg.Server.Workers), zap.Int("queue_size", o.cfg.Server.QueueSize))
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		o.log.Debug("Job queued", zap.String("job_id", job.ID))
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.Server.QueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// Completed returns a finished job for the same upload, if one is still held.
func (o *Orchestrator) Completed(hash string) *Job {
	return o.jobs.Completed(hash)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns the chapter render latency tracker.
func (o *Orchestrator) Stats() *RenderStats {
	return o.stats
}
