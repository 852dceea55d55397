package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"recipe-service/domain"
	"recipe-service/internal/utils/logger"
	"recipe-service/internal/utils/metrics"
	"recipe-service/internal/utils/queue"
)

const dequeueErrorBackoff = time.Second

type (
	WorkerOptions struct {
		Concurrency    int
		MaxAttempts    int
		JobTimeout     time.Duration
		DequeueTimeout time.Duration
	}

	// MediaWorker consumes media jobs from the queue and feeds them to a Processor.
	MediaWorker struct {
		queue     queue.JobQueue
		processor Processor
		log       *logger.Logger
		opts      WorkerOptions
	}
)

func NewMediaWorker(q queue.JobQueue, processor Processor, log *logger.Logger, opts WorkerOptions) *MediaWorker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 5
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 60 * time.Second
	}
	if opts.DequeueTimeout <= 0 {
		opts.DequeueTimeout = 5 * time.Second
	}
	return &MediaWorker{
		queue:     q,
		processor: processor,
		log:       log.With("service", "MediaWorker"),
		opts:      opts,
	}
}

// Run blocks until ctx is cancelled. Jobs left in flight by a previous
// process are returned to the queue first, so only one worker process may
// consume a given queue.
func (w *MediaWorker) Run(ctx context.Context) error {
	recovered, err := w.queue.RecoverInFlight(ctx)
	if err != nil {
		return err
	}
	if recovered > 0 {
		w.log.Warn("requeued in-flight media jobs", "count", recovered)
	}

	w.log.Info("media worker started", "concurrency", w.opts.Concurrency)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.opts.Concurrency; i++ {
		consumer := i
		g.Go(func() error {
			w.consume(gctx, consumer)
			return nil
		})
	}
	err = g.Wait()
	w.log.Info("media worker stopped")
	return err
}

func (w *MediaWorker) consume(ctx context.Context, consumer int) {
	log := w.log.With("consumer", consumer)
	for ctx.Err() == nil {
		env, err := w.queue.Dequeue(ctx, w.opts.DequeueTimeout)
		if errors.Is(err, queue.ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("dequeue failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(dequeueErrorBackoff):
			}
			continue
		}
		w.handle(ctx, env)
	}
}

func (w *MediaWorker) handle(ctx context.Context, env *queue.Envelope) {
	start := time.Now()
	log := w.log.With("jobId", env.ID, "attempt", env.Attempt+1)

	var job domain.MediaJob
	var err error
	if uerr := json.Unmarshal(env.Payload, &job); uerr != nil {
		err = fmt.Errorf("%w: %v", domain.ErrInvalidJob, uerr)
	} else {
		jobCtx, cancel := context.WithTimeout(logger.ContextWithCorrelationID(ctx, job.CorrelationID), w.opts.JobTimeout)
		_, err = w.processor.Process(jobCtx, job)
		cancel()
		log = log.Ctx(jobCtx).With("recipeId", job.RecipeID)
	}

	// Queue bookkeeping must survive a shutdown that cancelled the job.
	qctx := context.WithoutCancel(ctx)
	switch {
	case err == nil:
		if aerr := w.queue.Ack(qctx, env); aerr != nil {
			log.Error("ack failed", "error", aerr)
		}
		metrics.RecordMediaJob(metrics.OutcomeSuccess, time.Since(start))
	case isPermanent(err) || env.Attempt+1 >= w.opts.MaxAttempts:
		log.Error("media job dead-lettered", "error", err)
		if derr := w.queue.DeadLetter(qctx, env, err); derr != nil {
			log.Error("dead-letter failed", "error", derr)
		}
		metrics.RecordMediaJob(metrics.OutcomeDeadLetter, time.Since(start))
	default:
		log.Warn("media job failed; retrying", "error", err)
		if rerr := w.queue.Retry(qctx, env, err); rerr != nil {
			log.Error("retry failed", "error", rerr)
		}
		metrics.RecordMediaJob(metrics.OutcomeRetry, time.Since(start))
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidJob) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, ErrUnsupportedImage)
}
