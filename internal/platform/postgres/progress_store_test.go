package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/platform/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to the database named by SCRY_TEST_DATABASE_URL and
// skips the test when it is not set.
func openTestStore(t *testing.T) *postgres.PostgresProgressStore {
	t.Helper()

	url := os.Getenv("SCRY_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SCRY_TEST_DATABASE_URL not set, skipping PostgreSQL integration test")
	}

	s, err := postgres.Open(context.Background(), url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresProgressStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	userID := "player-" + uuid.NewString()

	now := time.Now().UTC().Truncate(time.Microsecond)
	reviewed := domain.ReviewState{
		CardID:         "capital-fr",
		IntervalDays:   6,
		EaseFactor:     2.5,
		Repetitions:    2,
		LastReviewedAt: now,
		NextDueAt:      now.AddDate(0, 0, 6),
	}
	states := map[string]domain.ReviewState{
		"capital-fr": reviewed,
		"capital-de": domain.NewReviewState("capital-de", now),
	}

	require.NoError(t, s.SaveProgress(ctx, userID, states))
	t.Cleanup(func() { _ = s.SaveProgress(context.Background(), userID, nil) })

	loaded, err := s.LoadProgress(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, states, loaded)

	delete(states, "capital-de")
	require.NoError(t, s.SaveProgress(ctx, userID, states))

	loaded, err = s.LoadProgress(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestOpen_RequiresURL(t *testing.T) {
	t.Parallel()
	_, err := postgres.Open(context.Background(), "", nil)
	assert.Error(t, err)
}
