package progress

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/platform/filestore"
	"github.com/phrazzld/scry-cue/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressSurvivesRestartOnFilestore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	log, _ := testutils.NewTestLogger()

	open := func() *Store {
		backend, err := filestore.New(dir, log)
		require.NoError(t, err)
		s, err := New(backend, log, WithClock(func() time.Time { return start }))
		require.NoError(t, err)
		return s
	}

	reviewed := domain.ReviewState{
		CardID:         "capitals/peru",
		IntervalDays:   6,
		EaseFactor:     2.36,
		Repetitions:    2,
		LastReviewedAt: start,
		NextDueAt:      start.AddDate(0, 0, 6),
	}

	first := open()
	require.NoError(t, first.Update(ctx, "alex", reviewed))
	fresh, err := first.GetOrCreate(ctx, "alex", "capitals/chile")
	require.NoError(t, err)
	require.NoError(t, first.Update(ctx, "blair", reviewed))
	first.Reset(ctx, "blair", reviewed.CardID)

	second := open()
	got, ok := second.Get(ctx, "alex", reviewed.CardID)
	require.True(t, ok)
	assert.Equal(t, reviewed, got)

	got, ok = second.Get(ctx, "alex", "capitals/chile")
	require.True(t, ok)
	assert.Equal(t, fresh, got)

	_, ok = second.Get(ctx, "blair", reviewed.CardID)
	assert.False(t, ok, "reset is persisted too")
}
