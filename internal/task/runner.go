package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrRunnerStarted is returned by Start on a runner that is already running.
var ErrRunnerStarted = errors.New("timer runner already started")

// TimerEngine is the part of the trigger engine the runner drives.
type TimerEngine interface {
	TimerTicker
	ActiveUsers() []string
}

// TimerRunnerConfig holds configuration for the timer runner
type TimerRunnerConfig struct {
	// TickInterval is how often active sessions are swept
	TickInterval time.Duration

	// WorkerCount determines how many timers are ticked concurrently
	WorkerCount int

	// QueueSize bounds the number of pending ticks
	QueueSize int
}

// DefaultTimerRunnerConfig returns a TimerRunnerConfig with reasonable defaults
func DefaultTimerRunnerConfig() TimerRunnerConfig {
	return TimerRunnerConfig{
		TickInterval: 30 * time.Second,
		WorkerCount:  2,
		QueueSize:    100,
	}
}

// TimerRunner periodically ticks the timer of every active session. A user
// has at most one tick queued or running at a time.
type TimerRunner struct {
	engine TimerEngine
	config TimerRunnerConfig
	logger *slog.Logger

	queue *TaskQueue
	pool  *WorkerPool

	mu       sync.Mutex
	inFlight map[string]struct{}
	started  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTimerRunner creates a new TimerRunner
func NewTimerRunner(engine TimerEngine, config TimerRunnerConfig, logger *slog.Logger) *TimerRunner {
	if engine == nil {
		panic("engine cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	defaults := DefaultTimerRunnerConfig()
	if config.TickInterval <= 0 {
		config.TickInterval = defaults.TickInterval
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}

	logger = logger.With(slog.String("component", "timer_runner"))
	queue := NewTaskQueue(config.QueueSize, logger)
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger)
	ctx, cancel := context.WithCancel(context.Background())

	return &TimerRunner{
		engine:   engine,
		config:   config,
		logger:   logger,
		queue:    queue,
		pool:     pool,
		inFlight: make(map[string]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetErrorHandler sets a handler for failed ticks. It must be called before Start.
func (r *TimerRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.pool.SetErrorHandler(handler)
}

// Start launches the workers and the sweep loop
func (r *TimerRunner) Start() error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrRunnerStarted
	}
	r.started = true
	r.mu.Unlock()

	r.pool.Start()

	r.wg.Add(1)
	go r.loop()

	r.logger.Info("timer runner started",
		"tick_interval", r.config.TickInterval,
		"worker_count", r.config.WorkerCount)
	return nil
}

// Stop halts the sweep loop, closes the queue and waits for the workers.
func (r *TimerRunner) Stop() {
	r.cancel()
	r.wg.Wait()
	r.queue.Close()
	r.pool.Stop()
	r.logger.Info("timer runner stopped")
}

func (r *TimerRunner) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep queues a timer tick for every active user that has none pending and
// returns how many were queued. A full queue skips the rest until the next
// sweep.
func (r *TimerRunner) Sweep() int {
	users := r.engine.ActiveUsers()
	queued := 0

	for _, userID := range users {
		if !r.claim(userID) {
			continue
		}

		task := NewTimerTask(r.engine, userID, r.logger, r.release)
		if err := r.queue.Enqueue(task); err != nil {
			r.release(userID)
			if errors.Is(err, ErrQueueFull) {
				r.logger.Warn("timer queue full, deferring remaining users",
					"active_users", len(users),
					"queued", queued)
			} else {
				r.logger.Debug("timer sweep stopped", "error", err)
			}
			return queued
		}
		queued++
	}

	if queued > 0 {
		r.logger.Debug("timer sweep queued ticks", "queued", queued, "active_users", len(users))
	}
	return queued
}

func (r *TimerRunner) claim(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.inFlight[userID]; busy {
		return false
	}
	r.inFlight[userID] = struct{}{}
	return true
}

func (r *TimerRunner) release(userID string) {
	r.mu.Lock()
	delete(r.inFlight, userID)
	r.mu.Unlock()
}
