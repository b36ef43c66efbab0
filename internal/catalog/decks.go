package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/phrazzld/scry-cue/internal/domain"
)

// DeckSummary describes a deck without its cards.
type DeckSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CategoryID  string `json:"category_id,omitempty"`
	Enabled     bool   `json:"enabled"`
	BuiltIn     bool   `json:"built_in"`
	CardCount   int    `json:"card_count"`
}

func summarize(deck *domain.Deck) DeckSummary {
	return DeckSummary{
		ID:          deck.ID,
		Name:        deck.Name,
		Description: deck.Description,
		CategoryID:  deck.CategoryID,
		Enabled:     deck.Enabled,
		BuiltIn:     deck.BuiltIn,
		CardCount:   len(deck.Cards),
	}
}

// Decks lists every deck in catalog order.
func (c *Catalog) Decks(ctx context.Context) []DeckSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]DeckSummary, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, summarize(c.decks[id]))
	}
	return out
}

// Deck returns a copy of the deck with the given ID.
func (c *Catalog) Deck(ctx context.Context, id string) (*domain.Deck, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	deck, ok := c.decks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeckNotFound, id)
	}
	return deck.Clone(), nil
}

// DecksInCategory lists the decks filed directly under categoryID.
func (c *Catalog) DecksInCategory(ctx context.Context, categoryID string) []DeckSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []DeckSummary
	for _, id := range c.order {
		if deck := c.decks[id]; deck.CategoryID == categoryID {
			out = append(out, summarize(deck))
		}
	}
	return out
}

// SaveDeck creates or replaces a user deck. A deck with the ID of a built-in
// deck overrides it.
func (c *Catalog) SaveDeck(ctx context.Context, deck *domain.Deck) error {
	if c.userDir == "" {
		return ErrReadOnly
	}
	if deck == nil {
		return fmt.Errorf("%w: deck is nil", domain.ErrInvalidDeck)
	}
	if err := deck.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if deck.CategoryID != "" {
		if _, ok := c.categories[deck.CategoryID]; !ok {
			return fmt.Errorf("%w: %s", ErrCategoryNotFound, deck.CategoryID)
		}
	}

	saved := deck.Clone()
	_, saved.BuiltIn = c.builtinIDs[saved.ID]
	if err := c.writeDeck(saved); err != nil {
		return err
	}
	c.putDeck(saved)

	c.logger.InfoContext(ctx, "deck saved",
		slog.String("deck_id", saved.ID),
		slog.Int("cards", len(saved.Cards)))
	return nil
}

// SetDeckEnabled toggles whether a deck's cards are scheduled. Toggling a
// built-in deck stores a user copy carrying the flag.
func (c *Catalog) SetDeckEnabled(ctx context.Context, id string, enabled bool) error {
	if c.userDir == "" {
		return ErrReadOnly
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	deck, ok := c.decks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeckNotFound, id)
	}
	if deck.Enabled == enabled {
		return nil
	}

	updated := deck.Clone()
	updated.Enabled = enabled
	if err := c.writeDeck(updated); err != nil {
		return err
	}
	c.putDeck(updated)

	c.logger.InfoContext(ctx, "deck toggled",
		slog.String("deck_id", id),
		slog.Bool("enabled", enabled))
	return nil
}

// DeleteDeck removes a deck. Built-in decks are tombstoned so they stay
// deleted across reloads; any user override file is removed too.
func (c *Catalog) DeleteDeck(ctx context.Context, id string) error {
	if c.userDir == "" {
		return ErrReadOnly
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.decks[id]; !ok {
		return fmt.Errorf("%w: %s", ErrDeckNotFound, id)
	}

	if _, builtin := c.builtinIDs[id]; builtin {
		tomb := c.tombstones.withDeck(id)
		if err := writeJSON(filepath.Join(c.userDir, tombstonesFile), tomb); err != nil {
			return fmt.Errorf("write tombstones: %w", err)
		}
		c.tombstones = tomb
	}

	if err := removeIfExists(c.deckPath(id)); err != nil {
		return fmt.Errorf("remove deck file: %w", err)
	}

	delete(c.decks, id)
	c.order = remove(c.order, id)

	c.logger.InfoContext(ctx, "deck deleted", slog.String("deck_id", id))
	return nil
}

// RestoreDeck brings back a deleted built-in deck.
func (c *Catalog) RestoreDeck(ctx context.Context, id string) error {
	if c.userDir == "" {
		return ErrReadOnly
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.tombstones.hasDeck(id) {
		return fmt.Errorf("%w: no deleted built-in deck %s", ErrDeckNotFound, id)
	}

	var restored *domain.Deck
	if c.builtin != nil {
		decks, _ := c.loadBuiltin(newTombstones())
		for _, deck := range decks {
			if deck.ID == id {
				restored = deck
				break
			}
		}
	}
	if restored == nil {
		return fmt.Errorf("%w: built-in deck %s no longer ships", ErrDeckNotFound, id)
	}

	tomb := c.tombstones.withoutDeck(id)
	if err := writeJSON(filepath.Join(c.userDir, tombstonesFile), tomb); err != nil {
		return fmt.Errorf("write tombstones: %w", err)
	}
	c.tombstones = tomb
	c.builtinIDs[id] = struct{}{}
	c.putDeck(restored)

	c.logger.InfoContext(ctx, "deck restored", slog.String("deck_id", id))
	return nil
}

// DeletedDecks lists the tombstoned built-in deck IDs.
func (c *Catalog) DeletedDecks(ctx context.Context) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string{}, c.tombstones.Decks...)
}

func (c *Catalog) deckPath(id string) string {
	return filepath.Join(c.userDir, decksDir, url.PathEscape(id)+deckFileSuffix)
}

func (c *Catalog) writeDeck(deck *domain.Deck) error {
	data, err := encodeDeck(deck)
	if err != nil {
		return fmt.Errorf("encode deck: %w", err)
	}
	if err := writeFileAtomic(c.deckPath(deck.ID), data); err != nil {
		return fmt.Errorf("write deck %s: %w", deck.ID, err)
	}
	return nil
}

// putDeck must be called with c.mu held.
func (c *Catalog) putDeck(deck *domain.Deck) {
	if _, exists := c.decks[deck.ID]; !exists {
		c.order = append(c.order, deck.ID)
	}
	c.decks[deck.ID] = deck
}
