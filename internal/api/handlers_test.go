package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/scry-cue/internal/api/shared"
	"github.com/phrazzld/scry-cue/internal/catalog"
	"github.com/phrazzld/scry-cue/internal/domain/srs"
	"github.com/phrazzld/scry-cue/internal/events"
	"github.com/phrazzld/scry-cue/internal/progress"
	"github.com/phrazzld/scry-cue/internal/service/card_review"
	"github.com/phrazzld/scry-cue/internal/service/trigger"
	"github.com/phrazzld/scry-cue/internal/store"
	"github.com/phrazzld/scry-cue/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUser       = "steve"
	testUserHeader = "X-Test-User"
)

func testDecks() fstest.MapFS {
	return fstest.MapFS{
		"ores.json": {Data: []byte(`{
			"id": "ores",
			"name": "Ores",
			"category_id": "geology",
			"cards": [
				{"id": "diamond", "front": "Lowest Y for diamonds?", "back": "-59"},
				{"id": "ancient_debris", "front": "Where is ancient debris?", "back": "The Nether"}
			]}`)},
		"mobs.json": {Data: []byte(`{
			"id": "mobs",
			"name": "Mobs",
			"enabled": false,
			"cards": [{"id": "creeper", "front": "What do creepers fear?", "back": "Cats"}]}`)},
		"categories.json": {Data: []byte(`[{"id": "geology", "name": "Geology"}]`)},
	}
}

type apiFixture struct {
	router   http.Handler
	clock    *testutils.Clock
	catalog  *catalog.Catalog
	progress *progress.Store
	engine   *trigger.Engine
	inbox    *events.Inbox
}

// withTestUser stands in for the auth middleware.
func withTestUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if userID := r.Header.Get(testUserHeader); userID != "" {
			ctx = shared.WithUserID(ctx, userID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newAPIFixture(t *testing.T, userDeckDir string) *apiFixture {
	t.Helper()

	log, _ := testutils.NewTestLogger()
	clock := testutils.NewClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	cat := catalog.New(testDecks(), userDeckDir, log)
	require.NoError(t, cat.Load(context.Background()))

	ps, err := progress.New(store.NewMemoryProgressStore(), log, progress.WithClock(clock.Now))
	require.NoError(t, err)

	alg, err := srs.New(srs.AlgorithmAdaptive, nil)
	require.NoError(t, err)
	reviews := card_review.NewCardReviewService(cat, ps, alg, log, card_review.WithClock(clock.Now))

	inbox := events.NewInbox(0, log)
	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(inbox)

	engine, err := trigger.New(trigger.DefaultConfig(), reviews, ps, log,
		trigger.WithClock(clock.Now), trigger.WithEmitter(emitter))
	require.NoError(t, err)

	reviewHandler := NewReviewHandler(reviews, ps, ReviewLimits{MaxDue: 100, MaxNew: 10}, log)
	triggerHandler := NewTriggerHandler(engine, inbox, ps, log)
	deckHandler := NewDeckHandler(cat, log)

	r := chi.NewRouter()
	r.Use(withTestUser)
	r.Route("/api", func(r chi.Router) {
		r.Post("/events", triggerHandler.RecordEvent)
		r.Post("/session", triggerHandler.StartSession)
		r.Delete("/session", triggerHandler.EndSession)
		r.Get("/reviews/next", reviewHandler.Next)
		r.Get("/reviews/pending", triggerHandler.Pending)
		r.Get("/reviews/due", reviewHandler.Due)
		r.Get("/reviews/new", reviewHandler.New)
		r.Post("/cards/{id}/answer", reviewHandler.SubmitAnswer)
		r.Get("/cards/{id}/preview", reviewHandler.PreviewAnswer)
		r.Delete("/progress/{id}", reviewHandler.ResetCard)
		r.Get("/stats", reviewHandler.Stats)
		r.Get("/decks", deckHandler.ListDecks)
		r.Get("/decks/{id}", deckHandler.GetDeck)
		r.Put("/decks/{id}/enabled", deckHandler.SetDeckEnabled)
		r.Delete("/decks/{id}", deckHandler.DeleteDeck)
		r.Post("/decks/{id}/restore", deckHandler.RestoreDeck)
		r.Get("/categories", deckHandler.ListCategories)
	})

	return &apiFixture{
		router:   r,
		clock:    clock,
		catalog:  cat,
		progress: ps,
		engine:   engine,
		inbox:    inbox,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(testUserHeader, testUser)

	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[shared.ErrorResponse](t, rr).Error
}

func TestReviewFlow(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, t.TempDir())

	rr := f.do(t, http.MethodGet, "/api/reviews/next", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	next := decode[ReviewCardResponse](t, rr)
	assert.Equal(t, "diamond", next.Card.ID)
	assert.Equal(t, "-59", next.Card.Back)
	assert.Nil(t, next.State, "a card never seen has no stored state")

	rr = f.do(t, http.MethodPost, "/api/cards/diamond/answer", AnswerRequest{Outcome: "Good"})
	require.Equal(t, http.StatusOK, rr.Code)
	answer := decode[AnswerResponse](t, rr)
	assert.Equal(t, 0, answer.Previous.Repetitions)
	assert.Equal(t, 1, answer.State.Repetitions)
	assert.True(t, answer.State.NextDueAt.After(f.clock.Now()))
	require.NotNil(t, answer.State.LastReviewedAt)

	rr = f.do(t, http.MethodGet, "/api/reviews/next", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ancient_debris", decode[ReviewCardResponse](t, rr).Card.ID)

	rr = f.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode[StatsResponse](t, rr)
	assert.Equal(t, card_review.Stats{Total: 2, Due: 0, New: 1, ReviewedNotDue: 1}, stats.Schedule)
	assert.Equal(t, 1, stats.Progress.Total)
	assert.Len(t, stats.Outcomes, 4)

	f.clock.Advance(48 * time.Hour)
	rr = f.do(t, http.MethodGet, "/api/reviews/due", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	due := decode[CardListResponse](t, rr)
	require.Equal(t, 1, due.Count)
	assert.Equal(t, "diamond", due.Cards[0].ID)

	rr = f.do(t, http.MethodGet, "/api/reviews/next", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	next = decode[ReviewCardResponse](t, rr)
	assert.Equal(t, "diamond", next.Card.ID, "due cards come before new ones")
	require.NotNil(t, next.State)
	assert.Equal(t, 1, next.State.Repetitions)
}

func TestSubmitAnswerErrors(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, t.TempDir())

	tests := []struct {
		name           string
		path           string
		body           any
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "unknown outcome",
			path:           "/api/cards/diamond/answer",
			body:           AnswerRequest{Outcome: "perfect"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid answer",
		},
		{
			name:           "missing outcome",
			path:           "/api/cards/diamond/answer",
			body:           map[string]string{},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid Outcome: required field",
		},
		{
			name:           "empty body",
			path:           "/api/cards/diamond/answer",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Request body is required",
		},
		{
			name:           "malformed body",
			path:           "/api/cards/diamond/answer",
			body:           `{"outcome":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown card",
			path:           "/api/cards/obsidian/answer",
			body:           AnswerRequest{Outcome: "good"},
			expectedStatus: http.StatusNotFound,
			expectedError:  "Card not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorMessage(t, rr))
			}
		})
	}

	_, ok := f.progress.Get(context.Background(), testUser, "diamond")
	assert.False(t, ok, "rejected answers store nothing")
}

func TestListingLimits(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, t.TempDir())

	rr := f.do(t, http.MethodGet, "/api/reviews/new?limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[CardListResponse](t, rr).Count)

	rr = f.do(t, http.MethodGet, "/api/reviews/new", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, decode[CardListResponse](t, rr).Count)

	rr = f.do(t, http.MethodGet, "/api/reviews/due", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	due := decode[CardListResponse](t, rr)
	assert.Equal(t, 0, due.Count)
	assert.NotNil(t, due.Cards)

	for _, bad := range []string{"-1", "ten"} {
		rr = f.do(t, http.MethodGet, "/api/reviews/new?limit="+bad, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, bad)
	}
}

func TestPreviewAndReset(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, t.TempDir())

	rr := f.do(t, http.MethodGet, "/api/cards/diamond/preview", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	preview := decode[PreviewResponse](t, rr)
	assert.Equal(t, "diamond", preview.CardID)
	require.Len(t, preview.Options, 4)
	for _, opt := range preview.Options {
		assert.NotEmpty(t, opt.Label)
		assert.Positive(t, opt.IntervalSeconds)
	}

	rr = f.do(t, http.MethodPost, "/api/cards/diamond/answer", AnswerRequest{Outcome: "easy"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, http.MethodDelete, "/api/progress/diamond", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	_, ok := f.progress.Get(context.Background(), testUser, "diamond")
	assert.False(t, ok)

	rr = f.do(t, http.MethodGet, "/api/cards/obsidian/preview", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRecordEvent(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, t.TempDir())

	rr := f.do(t, http.MethodPost, "/api/events", EventRequest{Kind: "death"})
	require.Equal(t, http.StatusOK, rr.Code)
	first := decode[TriggerResponse](t, rr)
	assert.False(t, first.Fired)
	assert.Equal(t, string(trigger.ReasonThresholdNotReached), first.Reason)
	assert.Equal(t, 1, first.Count)
	assert.Equal(t, 2, first.Threshold)

	rr = f.do(t, http.MethodPost, "/api/events", EventRequest{Kind: "DEATH"})
	require.Equal(t, http.StatusOK, rr.Code)
	second := decode[TriggerResponse](t, rr)
	require.True(t, second.Fired)
	assert.Equal(t, "death", second.Kind)
	require.NotNil(t, second.Card)
	assert.Equal(t, "diamond", second.Card.ID)
	require.NotNil(t, second.State)

	rr = f.do(t, http.MethodPost, "/api/events", EventRequest{Kind: "achievement"})
	require.Equal(t, http.StatusOK, rr.Code)
	blocked := decode[TriggerResponse](t, rr)
	assert.Equal(t, string(trigger.ReasonCooldown), blocked.Reason)
	assert.InDelta(t, 10, blocked.RetryAfterSeconds, 0.001)

	rr = f.do(t, http.MethodPost, "/api/events", EventRequest{Kind: "block_break", Subject: "minecraft:stone"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, string(trigger.ReasonDisabled), decode[TriggerResponse](t, rr).Reason)

	rr = f.do(t, http.MethodPost, "/api/events", EventRequest{Kind: "timer"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Timer events cannot be reported", errorMessage(t, rr))

	rr = f.do(t, http.MethodPost, "/api/events", EventRequest{Kind: "jump"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Unknown event kind", errorMessage(t, rr))

	rr = f.do(t, http.MethodPost, "/api/events", map[string]string{"subject": "stone"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSessionAndPending(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, t.TempDir())

	rr := f.do(t, http.MethodGet, "/api/reviews/pending", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/session", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, SessionResponse{UserID: testUser, Active: true}, decode[SessionResponse](t, rr))
	assert.Equal(t, []string{testUser}, f.engine.ActiveUsers())

	f.clock.Advance(15 * time.Minute)
	res, err := f.engine.Tick(context.Background(), testUser)
	require.NoError(t, err)
	require.True(t, res.Fired)

	rr = f.do(t, http.MethodGet, "/api/reviews/pending", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	pending := decode[PendingResponse](t, rr)
	assert.Equal(t, events.TypeReviewTriggered, pending.Type)
	assert.True(t, pending.Decision.Fired)
	assert.Equal(t, "timer", pending.Decision.Kind)
	require.NotNil(t, pending.Decision.Card)
	assert.Equal(t, "diamond", pending.Decision.Card.ID)

	rr = f.do(t, http.MethodGet, "/api/reviews/pending", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	f.clock.Advance(15 * time.Minute)
	_, err = f.engine.Tick(context.Background(), testUser)
	require.NoError(t, err)
	require.Equal(t, 1, f.inbox.Len(testUser))

	rr = f.do(t, http.MethodDelete, "/api/session", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[SessionResponse](t, rr).Active)
	assert.Empty(t, f.engine.ActiveUsers())
	assert.Zero(t, f.inbox.Len(testUser))
}

func TestDeckManagement(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, t.TempDir())

	rr := f.do(t, http.MethodGet, "/api/decks", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[DeckListResponse](t, rr)
	require.Len(t, list.Decks, 2)

	rr = f.do(t, http.MethodGet, "/api/decks/ores", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"ancient_debris"`)

	rr = f.do(t, http.MethodPut, "/api/decks/ores/enabled", map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, rr.Code)
	summary := decode[catalog.DeckSummary](t, rr)
	assert.False(t, summary.Enabled)
	assert.Equal(t, 2, summary.CardCount)

	rr = f.do(t, http.MethodGet, "/api/reviews/next", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code, "no enabled deck leaves nothing to review")

	rr = f.do(t, http.MethodPut, "/api/decks/mobs/enabled", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(t, http.MethodGet, "/api/reviews/next", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "creeper", decode[ReviewCardResponse](t, rr).Card.ID)

	rr = f.do(t, http.MethodPut, "/api/decks/mobs/enabled", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodDelete, "/api/decks/mobs", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = f.do(t, http.MethodGet, "/api/decks", nil)
	list = decode[DeckListResponse](t, rr)
	assert.Len(t, list.Decks, 1)
	assert.Equal(t, []string{"mobs"}, list.Deleted)

	rr = f.do(t, http.MethodPost, "/api/decks/mobs/restore", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = f.do(t, http.MethodPost, "/api/decks/mobs/restore", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, http.MethodDelete, "/api/decks/nether", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Deck not found", errorMessage(t, rr))

	rr = f.do(t, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	cats := decode[CategoryListResponse](t, rr)
	require.Len(t, cats.Categories, 1)
	assert.Equal(t, "geology", cats.Categories[0].ID)
}

func TestReadOnlyCatalog(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, "")

	rr := f.do(t, http.MethodPut, "/api/decks/ores/enabled", map[string]bool{"enabled": false})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "Deck catalog is read-only", errorMessage(t, rr))

	rr = f.do(t, http.MethodDelete, "/api/decks/ores", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRequiresUser(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, t.TempDir())

	for _, path := range []string{"/api/reviews/next", "/api/stats", "/api/reviews/pending"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestNewHandlersPanicOnMissingDependencies(t *testing.T) {
	t.Parallel()
	log, _ := testutils.NewTestLogger()

	assert.Panics(t, func() { NewReviewHandler(nil, nil, ReviewLimits{}, log) })
	assert.Panics(t, func() { NewTriggerHandler(nil, nil, nil, log) })
	assert.Panics(t, func() { NewDeckHandler(nil, log) })
}
