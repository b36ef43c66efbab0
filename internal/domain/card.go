package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Card-specific validation errors
var (
	// ErrEmptyCardID is returned when a card ID is empty.
	ErrEmptyCardID = errors.New("card ID cannot be empty")

	// ErrDuplicateCardID is returned when a deck already holds a card with the same ID.
	ErrDuplicateCardID = errors.New("duplicate card ID in deck")

	// ErrInvalidDeck is returned when a deck fails validation.
	ErrInvalidDeck = errors.New("invalid deck")
)

// Card is a single flashcard. Cards are identified by a string ID that is
// unique within its deck and stable across catalog reloads, so progress
// keyed by card ID survives deck edits.
type Card struct {
	ID        string    `json:"id"`
	Front     string    `json:"front"`
	Back      string    `json:"back"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// NewCard creates a new Card and validates it.
func NewCard(id, front, back string, tags ...string) (*Card, error) {
	card := &Card{
		ID:        strings.TrimSpace(id),
		Front:     front,
		Back:      back,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
func (c *Card) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyCardID
	}

	if strings.TrimSpace(c.Front) == "" || strings.TrimSpace(c.Back) == "" {
		return fmt.Errorf("card %q: %w", c.ID, ErrEmptyContent)
	}

	return nil
}

// Deck is an ordered, named collection of cards. The order of Cards is the
// catalog order used when choosing which new card to introduce next.
type Deck struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CategoryID  string `json:"category_id,omitempty"`
	Enabled     bool   `json:"enabled"`
	Cards       []Card `json:"cards"`

	// BuiltIn is set by the catalog for decks that ship with the application.
	BuiltIn bool `json:"-"`
}

// NewDeck creates an empty, enabled deck.
func NewDeck(id, name string) (*Deck, error) {
	deck := &Deck{
		ID:      strings.TrimSpace(id),
		Name:    name,
		Enabled: true,
		Cards:   []Card{},
	}

	if err := deck.Validate(); err != nil {
		return nil, err
	}

	return deck, nil
}

// AddCard appends a card to the deck, rejecting invalid cards and cards
// whose ID is already present.
func (d *Deck) AddCard(card Card) error {
	if err := card.Validate(); err != nil {
		return err
	}

	if d.HasCard(card.ID) {
		return fmt.Errorf("deck %q, card %q: %w", d.ID, card.ID, ErrDuplicateCardID)
	}

	d.Cards = append(d.Cards, card)
	return nil
}

// HasCard reports whether the deck contains a card with the given ID.
func (d *Deck) HasCard(cardID string) bool {
	for i := range d.Cards {
		if d.Cards[i].ID == cardID {
			return true
		}
	}
	return false
}

// Validate checks the deck and every card it holds.
func (d *Deck) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: deck ID cannot be empty", ErrInvalidDeck)
	}

	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: deck %q has no name", ErrInvalidDeck, d.ID)
	}

	seen := make(map[string]struct{}, len(d.Cards))
	for i := range d.Cards {
		if err := d.Cards[i].Validate(); err != nil {
			return fmt.Errorf("deck %q: %w", d.ID, err)
		}
		if _, ok := seen[d.Cards[i].ID]; ok {
			return fmt.Errorf("deck %q, card %q: %w", d.ID, d.Cards[i].ID, ErrDuplicateCardID)
		}
		seen[d.Cards[i].ID] = struct{}{}
	}

	return nil
}

// Clone returns a deep copy of the deck.
func (d *Deck) Clone() *Deck {
	out := *d
	out.Cards = make([]Card, len(d.Cards))
	for i, c := range d.Cards {
		out.Cards[i] = c
		if c.Tags != nil {
			out.Cards[i].Tags = append([]string(nil), c.Tags...)
		}
	}
	return &out
}
