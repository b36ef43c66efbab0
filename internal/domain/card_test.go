package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCard(t *testing.T) {
	t.Parallel()

	card, err := NewCard(" capital-fr ", "Capital of France?", "Paris", "geo")
	require.NoError(t, err)
	assert.Equal(t, "capital-fr", card.ID)
	assert.Equal(t, []string{"geo"}, card.Tags)
	assert.False(t, card.CreatedAt.IsZero())

	_, err = NewCard("", "front", "back")
	assert.ErrorIs(t, err, ErrEmptyCardID)

	_, err = NewCard("id", "front", "  ")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestDeck_AddCard(t *testing.T) {
	t.Parallel()

	deck, err := NewDeck("spanish", "Spanish basics")
	require.NoError(t, err)
	assert.True(t, deck.Enabled)

	require.NoError(t, deck.AddCard(Card{ID: "hola", Front: "hola", Back: "hello"}))
	require.NoError(t, deck.AddCard(Card{ID: "adios", Front: "adiós", Back: "goodbye"}))

	err = deck.AddCard(Card{ID: "hola", Front: "hola", Back: "hi"})
	assert.ErrorIs(t, err, ErrDuplicateCardID)
	assert.Len(t, deck.Cards, 2)
	assert.True(t, deck.HasCard("adios"))
	assert.False(t, deck.HasCard("gracias"))
}

func TestDeck_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		deck    Deck
		wantErr error
	}{
		{
			name:    "missing id",
			deck:    Deck{Name: "x"},
			wantErr: ErrInvalidDeck,
		},
		{
			name:    "missing name",
			deck:    Deck{ID: "x"},
			wantErr: ErrInvalidDeck,
		},
		{
			name: "duplicate cards",
			deck: Deck{ID: "x", Name: "x", Cards: []Card{
				{ID: "a", Front: "1", Back: "2"},
				{ID: "a", Front: "3", Back: "4"},
			}},
			wantErr: ErrDuplicateCardID,
		},
		{
			name:    "invalid card",
			deck:    Deck{ID: "x", Name: "x", Cards: []Card{{ID: "a"}}},
			wantErr: ErrEmptyContent,
		},
		{
			name: "valid",
			deck: Deck{ID: "x", Name: "x", Cards: []Card{{ID: "a", Front: "1", Back: "2"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.deck.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
		})
	}
}

func TestDeck_Clone(t *testing.T) {
	t.Parallel()

	deck := &Deck{ID: "d", Name: "d", Cards: []Card{{ID: "a", Front: "1", Back: "2", Tags: []string{"t"}}}}
	clone := deck.Clone()
	clone.Cards[0].Tags[0] = "changed"
	clone.Cards = append(clone.Cards, Card{ID: "b"})

	assert.Equal(t, "t", deck.Cards[0].Tags[0])
	assert.Len(t, deck.Cards, 1)
}

func TestCategory_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, (&Category{ID: "lang", Name: "Languages"}).Validate())
	assert.ErrorIs(t, (&Category{Name: "x"}).Validate(), ErrInvalidCategory)
	assert.ErrorIs(t, (&Category{ID: "x"}).Validate(), ErrInvalidCategory)
	assert.ErrorIs(t, (&Category{ID: "x", Name: "x", ParentID: "x"}).Validate(), ErrInvalidCategory)
	assert.True(t, (&Category{ID: "x", Name: "x"}).IsRoot())
}

func TestReviewState(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	state := NewReviewState("card-1", now)

	assert.Equal(t, InitialIntervalDays, state.IntervalDays)
	assert.Equal(t, InitialEaseFactor, state.EaseFactor)
	assert.True(t, state.IsNew())
	assert.True(t, state.IsDue(now))
	assert.False(t, state.IsDue(now.Add(-time.Second)))
	require.NoError(t, state.Validate())

	reviewed := state
	reviewed.LastReviewedAt = now
	assert.False(t, reviewed.IsNew())

	tests := []struct {
		name   string
		mutate func(s *ReviewState)
	}{
		{"empty card id", func(s *ReviewState) { s.CardID = "" }},
		{"zero interval", func(s *ReviewState) { s.IntervalDays = 0 }},
		{"low ease", func(s *ReviewState) { s.EaseFactor = 1.2 }},
		{"negative reps", func(s *ReviewState) { s.Repetitions = -1 }},
	}
	for _, tt := range tests {
		s := state
		tt.mutate(&s)
		assert.ErrorIs(t, s.Validate(), ErrInvalidReviewState, tt.name)
	}
}

func TestParseOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Outcome
		quality int
	}{
		{"again", OutcomeAgain, 0},
		{"Hard", OutcomeHard, 1},
		{" GOOD ", OutcomeGood, 2},
		{"easy", OutcomeEasy, 3},
		{"forgot", OutcomeForgot, 0},
		{"remembered", OutcomeRemembered, 2},
	}
	for _, tt := range tests {
		got, err := ParseOutcome(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.quality, got.Quality())
	}

	_, err := ParseOutcome("maybe")
	assert.ErrorIs(t, err, ErrInvalidOutcome)
	assert.Equal(t, -1, Outcome("maybe").Quality())
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := NewValidationError("limit", "must be a non-negative integer", ErrValidation)
	assert.EqualError(t, err, "limit must be a non-negative integer")
	assert.ErrorIs(t, err, ErrValidation)
}
