package application

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/totegamma/passport-scorer/internal/infra/queue"
)

// TaskSource yields queued tasks; nil with no error means the wait timed out.
type TaskSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Task, error)
}

type Handler func(ctx context.Context, communityID uint, address string)

// Worker drains a task source with a fixed number of goroutines.
type Worker struct {
	source      TaskSource
	handlers    map[string]Handler
	concurrency int
	popTimeout  time.Duration
	logger      *slog.Logger
}

func NewWorker(
	source TaskSource,
	handlers map[string]func(ctx context.Context, communityID uint, address string),
	concurrency int,
	popTimeout time.Duration,
	logger *slog.Logger,
) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if popTimeout <= 0 {
		popTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	hs := make(map[string]Handler, len(handlers))
	for name, h := range handlers {
		hs[name] = h
	}
	return &Worker{
		source:      source,
		handlers:    hs,
		concurrency: concurrency,
		popTimeout:  popTimeout,
		logger:      logger.With("component", "worker"),
	}
}

// Run blocks until ctx is cancelled. Source errors are logged and retried.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "worker started", "concurrency", w.concurrency)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		id := i
		g.Go(func() error {
			return w.consume(ctx, id)
		})
	}

	err := g.Wait()
	w.logger.Info("worker stopped")
	return err
}

func (w *Worker) consume(ctx context.Context, id int) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		task, err := w.source.Dequeue(ctx, w.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.ErrorContext(ctx, "failed to dequeue task", "consumer", id, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if task == nil {
			continue
		}

		w.Dispatch(ctx, *task)
	}
}

// Dispatch runs the handler registered for the task name.
func (w *Worker) Dispatch(ctx context.Context, task queue.Task) {
	handler, ok := w.handlers[task.Name]
	if !ok {
		w.logger.WarnContext(ctx, "dropping task with unknown name", "task_id", task.ID, "name", task.Name)
		return
	}

	start := time.Now()
	handler(ctx, task.CommunityID, task.Address)
	w.logger.DebugContext(ctx, "task done",
		"task_id", task.ID,
		"name", task.Name,
		"address", task.Address,
		"elapsed", time.Since(start),
	)
}
