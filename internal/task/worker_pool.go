package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// WorkerPool runs a fixed number of goroutines that drain a TaskQueueReader.
// Each task receives the pool's context, which Stop cancels.
type WorkerPool struct {
	queue   TaskQueueReader
	workers int
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onError func(task Task, err error)
}

type WorkerPoolConfig struct {
	// WorkerCount values below one are treated as one.
	WorkerCount int
}

func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{WorkerCount: 2}
}

func NewWorkerPool(queue TaskQueueReader, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	workers := config.WorkerCount
	if workers < 1 {
		logger.Warn("worker count out of range, using 1", "worker_count", config.WorkerCount)
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		queue:   queue,
		workers: workers,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetErrorHandler registers a callback for failed tasks. Call before Start.
func (p *WorkerPool) SetErrorHandler(handler func(task Task, err error)) {
	p.onError = handler
}

func (p *WorkerPool) Start() {
	p.logger.Debug("worker pool starting", "workers", p.workers)
	p.wg.Add(p.workers)
	for id := range p.workers {
		go p.run(id)
	}
}

// Stop cancels running tasks and blocks until every worker has returned.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Debug("worker pool stopped")
}

func (p *WorkerPool) run(id int) {
	defer p.wg.Done()
	tasks := p.queue.Tasks()
	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			p.execute(id, t)
		}
	}
}

func (p *WorkerPool) execute(workerID int, t Task) {
	log := p.logger.With("task_id", t.ID(), "task_type", t.Type(), "worker_id", workerID)

	err := p.safeExecute(t)
	if err == nil {
		log.Debug("task done")
		return
	}
	log.Error("task failed", "error", err)
	if p.onError != nil {
		p.onError(t, err)
	}
}

// safeExecute turns a panicking task into an error so one bad tick cannot
// take a worker down.
func (p *WorkerPool) safeExecute(t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t.Execute(p.ctx)
}
