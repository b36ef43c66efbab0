package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/service/trigger"
	"github.com/phrazzld/scry-cue/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine records ticks per user and returns a canned result or error.
type fakeEngine struct {
	mu     sync.Mutex
	users  []string
	ticks  map[string]int
	result trigger.Result
	errs   map[string]error
	block  chan struct{}
}

func newFakeEngine(users ...string) *fakeEngine {
	return &fakeEngine{
		users: users,
		ticks: make(map[string]int),
		errs:  make(map[string]error),
	}
}

func (f *fakeEngine) ActiveUsers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.users...)
}

func (f *fakeEngine) Tick(ctx context.Context, userID string) (trigger.Result, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return trigger.Result{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks[userID]++
	return f.result, f.errs[userID]
}

func (f *fakeEngine) tickCount(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticks[userID]
}

func (r *TimerRunner) inFlightCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inFlight)
}

func TestTimerRunner_SweepQueuesOncePerUser(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine("alex", "sam")
	runner := NewTimerRunner(engine, TimerRunnerConfig{TickInterval: time.Hour, WorkerCount: 2}, setupTestLogger())

	assert.Equal(t, 2, runner.Sweep())
	assert.Equal(t, 0, runner.Sweep(), "users with a pending tick are skipped")

	require.NoError(t, runner.Start())
	defer runner.Stop()

	assert.Eventually(t, func() bool {
		return engine.tickCount("alex") == 1 && engine.tickCount("sam") == 1 && runner.inFlightCount() == 0
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 2, runner.Sweep())
	assert.Eventually(t, func() bool {
		return engine.tickCount("alex") == 2 && engine.tickCount("sam") == 2
	}, time.Second, 5*time.Millisecond)
}

func TestTimerRunner_FullQueueDefersRemainingUsers(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine("a", "b", "c")
	runner := NewTimerRunner(engine, TimerRunnerConfig{TickInterval: time.Hour, QueueSize: 1}, setupTestLogger())

	assert.Equal(t, 1, runner.Sweep())
	assert.Equal(t, 1, runner.inFlightCount())
}

func TestTimerRunner_TicksOnInterval(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine("alex")
	runner := NewTimerRunner(engine, TimerRunnerConfig{TickInterval: 10 * time.Millisecond, WorkerCount: 1}, setupTestLogger())

	require.NoError(t, runner.Start())
	defer runner.Stop()

	assert.Eventually(t, func() bool { return engine.tickCount("alex") >= 2 },
		2*time.Second, 5*time.Millisecond)
}

func TestTimerRunner_StartTwice(t *testing.T) {
	t.Parallel()

	runner := NewTimerRunner(newFakeEngine(), DefaultTimerRunnerConfig(), setupTestLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	assert.ErrorIs(t, runner.Start(), ErrRunnerStarted)
}

func TestTimerRunner_ErrorHandler(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine("good", "bad")
	engine.errs["bad"] = domain.ErrEmptyUserID
	runner := NewTimerRunner(engine, TimerRunnerConfig{TickInterval: time.Hour, WorkerCount: 1}, setupTestLogger())

	var (
		mu     sync.Mutex
		failed []Task
		errs   []error
	)
	runner.SetErrorHandler(func(task Task, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, task)
		errs = append(errs, err)
	})

	require.NoError(t, runner.Start())
	defer runner.Stop()
	runner.Sweep()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(failed) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, TaskTypeTimerTick, failed[0].Type())
	timerTask, ok := failed[0].(*TimerTask)
	require.True(t, ok)
	assert.Equal(t, "bad", timerTask.UserID())
	assert.ErrorIs(t, errs[0], domain.ErrEmptyUserID)
}

func TestTimerRunner_StopInterruptsBlockedTick(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine("alex")
	engine.block = make(chan struct{})
	runner := NewTimerRunner(engine, TimerRunnerConfig{TickInterval: time.Hour, WorkerCount: 1}, setupTestLogger())

	require.NoError(t, runner.Start())
	runner.Sweep()

	stopped := make(chan struct{})
	go func() {
		runner.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestTimerTask_LogsFiredPrompt(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	engine.result = trigger.Result{
		Fired: true,
		Kind:  trigger.KindTimer,
		Card:  &domain.Card{ID: "ores/diamond", Front: "Diamond depth?", Back: "Y -59"},
	}
	log, handler := testutils.NewTestLogger()

	var done string
	task := NewTimerTask(engine, "alex", log, func(userID string) { done = userID })
	require.NoError(t, task.Execute(context.Background()))

	assert.Equal(t, "alex", done)
	entries := handler.EntriesAtLevel(slog.LevelInfo)
	require.Len(t, entries, 1)
	assert.Equal(t, "timer prompt fired", entries[0].Message())
	assert.Equal(t, "ores/diamond", entries[0]["card_id"])
	assert.Equal(t, "alex", entries[0]["user_id"])
}

func TestTimerTask_WrapsTickError(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	engine.errs["alex"] = errors.New("store unavailable")

	released := false
	task := NewTimerTask(engine, "alex", setupTestLogger(), func(string) { released = true })
	err := task.Execute(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick timer for user alex")
	assert.True(t, released, "done runs on failure too")
}
