package srs

import (
	"testing"
	"time"

	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLadder_Climb(t *testing.T) {
	t.Parallel()

	ladder, err := NewLadder()
	require.NoError(t, err)
	assert.Equal(t, 9, ladder.MaxLevel())

	state := domain.NewReviewState("card", testNow)
	wantMinutes := []int{20, 1440, 4320, 10080, 20160, 43200, 86400, 172800, 345600, 345600, 345600}

	for i, minutes := range wantMinutes {
		next, err := ladder.Apply(&state, domain.OutcomeRemembered, testNow)
		require.NoError(t, err)

		assert.Equal(t, testNow.Add(time.Duration(minutes)*time.Minute), next.NextDueAt, "step %d", i)
		assert.Equal(t, testNow, next.LastReviewedAt)
		assert.LessOrEqual(t, ladder.CurrentLevel(next), ladder.MaxLevel())
		assert.GreaterOrEqual(t, next.IntervalDays, 1)
		assert.Equal(t, state.EaseFactor, next.EaseFactor)
		state = *next
	}

	assert.Equal(t, 9, ladder.CurrentLevel(&state))
	assert.Equal(t, 240, state.IntervalDays)
}

func TestLadder_ForgotResets(t *testing.T) {
	t.Parallel()

	ladder, err := NewLadder()
	require.NoError(t, err)

	state := domain.NewReviewState("card", testNow)
	state.Repetitions = 6

	next, err := ladder.Apply(&state, domain.OutcomeForgot, testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, next.Repetitions)
	assert.Equal(t, 1, next.IntervalDays)
	assert.Equal(t, testNow.Add(10*time.Minute), next.NextDueAt)
	assert.Equal(t, 6, state.Repetitions)
}

func TestLadder_CurrentLevelClamps(t *testing.T) {
	t.Parallel()

	ladder, err := NewLadder()
	require.NoError(t, err)

	state := domain.NewReviewState("card", testNow)
	state.Repetitions = 42
	assert.Equal(t, 9, ladder.CurrentLevel(&state))
	assert.Equal(t, 345600*time.Minute, ladder.Rung(42))
	assert.Equal(t, 10*time.Minute, ladder.Rung(-1))
}

func TestLadder_RejectsAdaptiveOutcomes(t *testing.T) {
	t.Parallel()

	ladder, err := NewLadder()
	require.NoError(t, err)
	state := domain.NewReviewState("card", testNow)

	_, err = ladder.Apply(&state, domain.OutcomeGood, testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)
}

func TestNewLadder_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewLadder(time.Hour, time.Minute)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = NewLadder(0)
	assert.ErrorIs(t, err, ErrInvalidParams)

	custom, err := NewLadder(time.Minute, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, custom.MaxLevel())
}
