package review

import (
	"context"
	"log/slog"
	"sync"

	"github.com/joescharf/revu/internal/models"
)

// Engine runs review pipelines on a bounded pool of workers. Webhook
// handlers submit events without blocking on pipeline completion; tests and
// shutdown paths use Wait for an observable completion signal.
type Engine struct {
	pipeline *Pipeline
	logger   *slog.Logger

	jobs    chan *models.WebhookEvent
	workers sync.WaitGroup
	pending sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewEngine creates an engine with the given queue depth. Workers start
// when Start is called.
func NewEngine(p *Pipeline, queueSize int) *Engine {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Engine{
		pipeline: p,
		logger:   p.logger,
		jobs:     make(chan *models.WebhookEvent, queueSize),
	}
}

// Start launches the worker goroutines. Workers exit when ctx is cancelled
// or Stop closes the queue.
func (e *Engine) Start(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		e.workers.Add(1)
		go e.work(ctx)
	}
}

func (e *Engine) work(ctx context.Context) {
	defer e.workers.Done()
	for {
		select {
		case <-ctx.Done():
			e.drain()
			return
		case event, ok := <-e.jobs:
			if !ok {
				return
			}
			if err := e.pipeline.Run(ctx, event); err != nil {
				e.logger.Error("review run failed",
					"repo", event.RepoFullName,
					"pr", event.PullRequestNumber,
					"error", err)
			}
			e.pending.Done()
		}
	}
}

// drain discards queued events without running them, releasing their
// pending counts so Wait does not block on work that will never execute.
func (e *Engine) drain() {
	for {
		select {
		case _, ok := <-e.jobs:
			if !ok {
				return
			}
			e.pending.Done()
		default:
			return
		}
	}
}

// Submit enqueues an event for asynchronous processing. It never blocks;
// it returns false when the queue is full or the engine is stopped.
func (e *Engine) Submit(event *models.WebhookEvent) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}

	e.pending.Add(1)
	select {
	case e.jobs <- event:
		return true
	default:
		e.pending.Done()
		return false
	}
}

// Wait blocks until every submitted event has been processed.
func (e *Engine) Wait() {
	e.pending.Wait()
}

// Stop drains the queue and waits for workers to exit. Submissions after
// Stop return false.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.jobs)
	e.mu.Unlock()

	e.workers.Wait()
}
