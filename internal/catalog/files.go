package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/platform/filestore"
)

// deckFile is the on-disk shape of a deck. Enabled is a pointer so that an
// omitted field means enabled.
type deckFile struct {
	ID          string        `json:"id,omitempty"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	CategoryID  string        `json:"category_id,omitempty"`
	Enabled     *bool         `json:"enabled,omitempty"`
	Cards       []domain.Card `json:"cards"`
}

// parseDeck decodes and validates a deck. The ID defaults to the file name
// without its extension.
func parseDeck(data []byte, fileName string) (*domain.Deck, error) {
	var f deckFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDeck, err)
	}

	id := strings.TrimSpace(f.ID)
	if id == "" {
		id = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}

	deck := &domain.Deck{
		ID:          id,
		Name:        f.Name,
		Description: f.Description,
		CategoryID:  f.CategoryID,
		Enabled:     f.Enabled == nil || *f.Enabled,
		Cards:       f.Cards,
	}
	if deck.Cards == nil {
		deck.Cards = []domain.Card{}
	}
	if err := deck.Validate(); err != nil {
		return nil, err
	}
	return deck, nil
}

func encodeDeck(deck *domain.Deck) ([]byte, error) {
	enabled := deck.Enabled
	f := deckFile{
		ID:          deck.ID,
		Name:        deck.Name,
		Description: deck.Description,
		CategoryID:  deck.CategoryID,
		Enabled:     &enabled,
		Cards:       deck.Cards,
	}
	return json.MarshalIndent(f, "", "  ")
}

func parseCategories(data []byte) ([]domain.Category, error) {
	var cats []domain.Category
	if err := json.Unmarshal(data, &cats); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCategory, err)
	}
	for i := range cats {
		if err := cats[i].Validate(); err != nil {
			return nil, err
		}
	}
	return cats, nil
}

// tombstones records deleted built-in entries.
type tombstones struct {
	Decks      []string `json:"decks"`
	Categories []string `json:"categories"`
}

func newTombstones() tombstones {
	return tombstones{Decks: []string{}, Categories: []string{}}
}

func (t *tombstones) normalize() {
	t.Decks = uniqueSorted(t.Decks)
	t.Categories = uniqueSorted(t.Categories)
}

func (t tombstones) hasDeck(id string) bool     { return contains(t.Decks, id) }
func (t tombstones) hasCategory(id string) bool { return contains(t.Categories, id) }

func (t tombstones) withDeck(id string) tombstones {
	out := tombstones{Decks: append(append([]string{}, t.Decks...), id), Categories: t.Categories}
	out.normalize()
	return out
}

func (t tombstones) withoutDeck(id string) tombstones {
	return tombstones{Decks: remove(t.Decks, id), Categories: t.Categories}
}

func (t tombstones) withCategory(id string) tombstones {
	out := tombstones{Decks: t.Decks, Categories: append(append([]string{}, t.Categories...), id)}
	out.normalize()
	return out
}

func uniqueSorted(ids []string) []string {
	set := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := set[id]; ok || id == "" {
			continue
		}
		set[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// readJSON decodes path into v. A missing file leaves v untouched.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	return filestore.WriteFileAtomic(path, data, 0o644)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
