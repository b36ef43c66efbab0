// Package catalog owns the decks and categories cards are drawn from.
//
// Built-in decks ship embedded in the binary. User decks live as JSON files
// in a directory and override built-ins with the same ID. Deleting a
// built-in records a tombstone so it stays deleted across restarts.
package catalog

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/store"
)

//go:embed builtin/*.json
var builtinFS embed.FS

// BuiltinFS returns the decks and categories that ship with the application.
func BuiltinFS() fs.FS {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		// The embed pattern guarantees the directory exists.
		panic(err)
	}
	return sub
}

// Catalog errors
var (
	ErrDeckNotFound     = fmt.Errorf("%w: deck", store.ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("%w: category", store.ErrNotFound)
	ErrCategoryCycle    = errors.New("category parent would create a cycle")
	ErrCategoryInUse    = errors.New("category still has subcategories or decks")
	ErrReadOnly         = errors.New("catalog has no user directory and is read-only")
)

const (
	decksDir        = "decks"
	categoriesFile  = "categories.json"
	tombstonesFile  = "tombstones.json"
	deckFileSuffix  = ".json"
	builtinCategory = "categories.json"
)

// Catalog is safe for concurrent use. Reads take a shared lock; edits
// write their file before updating memory.
type Catalog struct {
	builtin fs.FS
	userDir string
	logger  *slog.Logger

	mu         sync.RWMutex
	decks      map[string]*domain.Deck
	order      []string
	builtinIDs map[string]struct{}
	categories map[string]domain.Category
	builtinCat map[string]struct{}
	tombstones tombstones
}

// New creates a catalog. builtin may be nil for no built-in decks; an empty
// userDir makes the catalog read-only. Call Load before use.
func New(builtin fs.FS, userDir string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		builtin:    builtin,
		userDir:    userDir,
		logger:     logger.With(slog.String("component", "catalog")),
		decks:      make(map[string]*domain.Deck),
		builtinIDs: make(map[string]struct{}),
		categories: make(map[string]domain.Category),
		builtinCat: make(map[string]struct{}),
		tombstones: newTombstones(),
	}
}

// Load (re)reads every source. Individual unreadable deck files are logged
// and skipped; a missing user directory is not an error.
func (c *Catalog) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tomb := newTombstones()
	if c.userDir != "" {
		if err := readJSON(filepath.Join(c.userDir, tombstonesFile), &tomb); err != nil {
			return fmt.Errorf("read tombstones: %w", err)
		}
		tomb.normalize()
	}

	decks := make(map[string]*domain.Deck)
	var order []string
	builtinIDs := make(map[string]struct{})
	categories := make(map[string]domain.Category)
	builtinCat := make(map[string]struct{})

	add := func(deck *domain.Deck) {
		if _, exists := decks[deck.ID]; !exists {
			order = append(order, deck.ID)
		}
		decks[deck.ID] = deck
	}

	if c.builtin != nil {
		builtins, cats := c.loadBuiltin(tomb)
		for _, deck := range builtins {
			builtinIDs[deck.ID] = struct{}{}
			add(deck)
		}
		for _, cat := range cats {
			builtinCat[cat.ID] = struct{}{}
			categories[cat.ID] = cat
		}
	}

	if c.userDir != "" {
		userDecks, err := c.loadUserDecks()
		if err != nil {
			return err
		}
		for _, deck := range userDecks {
			_, deck.BuiltIn = builtinIDs[deck.ID]
			add(deck)
		}

		var userCats []domain.Category
		if err := readJSON(filepath.Join(c.userDir, categoriesFile), &userCats); err != nil {
			return fmt.Errorf("read categories: %w", err)
		}
		for _, cat := range userCats {
			if err := cat.Validate(); err != nil {
				c.logger.Warn("skipping invalid category", slog.String("error", err.Error()))
				continue
			}
			categories[cat.ID] = cat
		}
	}
	c.dropUnrooted(categories)

	c.mu.Lock()
	c.decks = decks
	c.order = order
	c.builtinIDs = builtinIDs
	c.categories = categories
	c.builtinCat = builtinCat
	c.tombstones = tomb
	c.mu.Unlock()

	c.logger.Info("catalog loaded",
		slog.Int("decks", len(decks)),
		slog.Int("categories", len(categories)),
		slog.Int("tombstones", len(tomb.Decks)+len(tomb.Categories)))
	return nil
}

func (c *Catalog) loadBuiltin(tomb tombstones) ([]*domain.Deck, []domain.Category) {
	var decks []*domain.Deck
	var cats []domain.Category

	entries, err := fs.ReadDir(c.builtin, ".")
	if err != nil {
		c.logger.Error("failed to list built-in decks", slog.String("error", err.Error()))
		return nil, nil
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != deckFileSuffix {
			continue
		}

		data, err := fs.ReadFile(c.builtin, name)
		if err != nil {
			c.logger.Error("failed to read built-in file", slog.String("file", name), slog.String("error", err.Error()))
			continue
		}

		if name == builtinCategory {
			parsed, err := parseCategories(data)
			if err != nil {
				c.logger.Error("failed to parse built-in categories", slog.String("error", err.Error()))
				continue
			}
			for _, cat := range parsed {
				if !tomb.hasCategory(cat.ID) {
					cats = append(cats, cat)
				}
			}
			continue
		}

		deck, err := parseDeck(data, name)
		if err != nil {
			c.logger.Error("failed to parse built-in deck", slog.String("file", name), slog.String("error", err.Error()))
			continue
		}
		if tomb.hasDeck(deck.ID) {
			c.logger.Debug("skipping deleted built-in deck", slog.String("deck_id", deck.ID))
			continue
		}
		deck.BuiltIn = true
		decks = append(decks, deck)
	}

	return decks, cats
}

func (c *Catalog) loadUserDecks() ([]*domain.Deck, error) {
	dir := filepath.Join(c.userDir, decksDir)
	paths, err := filepath.Glob(filepath.Join(dir, "*"+deckFileSuffix))
	if err != nil {
		return nil, fmt.Errorf("list user decks: %w", err)
	}

	decks := make([]*domain.Deck, 0, len(paths))
	for _, path := range paths {
		var deck *domain.Deck
		data, err := readFile(path)
		if err == nil {
			deck, err = parseDeck(data, filepath.Base(path))
		}
		if err != nil {
			c.logger.Error("failed to load user deck",
				slog.String("file", path),
				slog.String("error", err.Error()))
			continue
		}
		decks = append(decks, deck)
	}
	return decks, nil
}

// EnabledCards returns the cards of every enabled deck in catalog order. A
// card ID that appears in several decks is returned once, from the first.
func (c *Catalog) EnabledCards(ctx context.Context) []domain.Card {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{})
	var cards []domain.Card
	for _, id := range c.order {
		deck := c.decks[id]
		if !deck.Enabled {
			continue
		}
		for _, card := range deck.Cards {
			if _, dup := seen[card.ID]; dup {
				continue
			}
			seen[card.ID] = struct{}{}
			cards = append(cards, card)
		}
	}
	return cards
}

// Card finds a card by ID in any deck, enabled decks first.
func (c *Catalog) Card(ctx context.Context, cardID string) (domain.Card, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var fallback *domain.Card
	for _, id := range c.order {
		deck := c.decks[id]
		for i := range deck.Cards {
			if deck.Cards[i].ID != cardID {
				continue
			}
			if deck.Enabled {
				return deck.Cards[i], true
			}
			if fallback == nil {
				fallback = &deck.Cards[i]
			}
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return domain.Card{}, false
}
