package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/phrazzld/scry-cue/internal/domain"
)

// Categories lists every category ordered by ID.
func (c *Catalog) Categories(ctx context.Context) []domain.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedCategories(func(domain.Category) bool { return true })
}

// Category returns the category with the given ID.
func (c *Catalog) Category(ctx context.Context, id string) (domain.Category, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cat, ok := c.categories[id]
	if !ok {
		return domain.Category{}, fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
	}
	return cat, nil
}

// Children lists the direct subcategories of parentID. An empty parentID
// lists the roots.
func (c *Catalog) Children(ctx context.Context, parentID string) []domain.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedCategories(func(cat domain.Category) bool { return cat.ParentID == parentID })
}

// Path returns the chain of categories from the root down to id.
func (c *Catalog) Path(ctx context.Context, id string) ([]domain.Category, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var path []domain.Category
	seen := make(map[string]struct{})
	for cur := id; cur != ""; {
		cat, ok := c.categories[cur]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, cur)
		}
		if _, loop := seen[cur]; loop {
			return nil, fmt.Errorf("%w: at %s", ErrCategoryCycle, cur)
		}
		seen[cur] = struct{}{}
		path = append(path, cat)
		cur = cat.ParentID
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// SaveCategory creates or replaces a category. The parent must exist and
// must not be the category itself or one of its descendants.
func (c *Catalog) SaveCategory(ctx context.Context, cat domain.Category) error {
	if c.userDir == "" {
		return ErrReadOnly
	}
	if err := cat.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cat.ParentID != "" {
		if _, ok := c.categories[cat.ParentID]; !ok {
			return fmt.Errorf("%w: parent %s", ErrCategoryNotFound, cat.ParentID)
		}
	}

	next := make(map[string]domain.Category, len(c.categories)+1)
	for id, existing := range c.categories {
		next[id] = existing
	}
	next[cat.ID] = cat
	if !reachesRoot(next, cat.ID) {
		return fmt.Errorf("%w: %s under %s", ErrCategoryCycle, cat.ID, cat.ParentID)
	}

	if err := c.writeCategories(next); err != nil {
		return err
	}
	c.categories = next

	c.logger.InfoContext(ctx, "category saved",
		slog.String("category_id", cat.ID),
		slog.String("parent_id", cat.ParentID))
	return nil
}

// DeleteCategory removes a category that has no subcategories and no decks.
func (c *Catalog) DeleteCategory(ctx context.Context, id string) error {
	if c.userDir == "" {
		return ErrReadOnly
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.categories[id]; !ok {
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
	}
	for _, cat := range c.categories {
		if cat.ParentID == id {
			return fmt.Errorf("%w: %s has subcategory %s", ErrCategoryInUse, id, cat.ID)
		}
	}
	for _, deckID := range c.order {
		if c.decks[deckID].CategoryID == id {
			return fmt.Errorf("%w: %s holds deck %s", ErrCategoryInUse, id, deckID)
		}
	}

	next := make(map[string]domain.Category, len(c.categories))
	for catID, cat := range c.categories {
		if catID != id {
			next[catID] = cat
		}
	}

	if err := c.writeCategories(next); err != nil {
		return err
	}
	if _, builtin := c.builtinCat[id]; builtin {
		tomb := c.tombstones.withCategory(id)
		if err := writeJSON(filepath.Join(c.userDir, tombstonesFile), tomb); err != nil {
			err = fmt.Errorf("write tombstones: %w", err)
			if rbErr := c.writeCategories(c.categories); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("restore categories: %w", rbErr))
			}
			return err
		}
		c.tombstones = tomb
	}
	c.categories = next

	c.logger.InfoContext(ctx, "category deleted", slog.String("category_id", id))
	return nil
}

// writeCategories persists the user-owned part of the table: every category
// that is not an unchanged built-in.
func (c *Catalog) writeCategories(all map[string]domain.Category) error {
	builtin := make(map[string]domain.Category)
	if c.builtin != nil {
		_, cats := c.loadBuiltin(newTombstones())
		for _, cat := range cats {
			builtin[cat.ID] = cat
		}
	}

	user := make([]domain.Category, 0, len(all))
	for id, cat := range all {
		if orig, ok := builtin[id]; ok && orig == cat {
			continue
		}
		user = append(user, cat)
	}
	sort.Slice(user, func(i, j int) bool { return user[i].ID < user[j].ID })

	if err := writeJSON(filepath.Join(c.userDir, categoriesFile), user); err != nil {
		return fmt.Errorf("write categories: %w", err)
	}
	return nil
}

func (c *Catalog) sortedCategories(keep func(domain.Category) bool) []domain.Category {
	out := make([]domain.Category, 0, len(c.categories))
	for _, cat := range c.categories {
		if keep(cat) {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// reachesRoot reports whether the parent chain starting at id ends at a root
// without revisiting a category or naming a missing one.
func reachesRoot(all map[string]domain.Category, id string) bool {
	seen := make(map[string]struct{})
	for cur := id; cur != ""; {
		if _, loop := seen[cur]; loop {
			return false
		}
		seen[cur] = struct{}{}
		cat, ok := all[cur]
		if !ok {
			return false
		}
		cur = cat.ParentID
	}
	return true
}

// dropUnrooted removes categories whose parent chain loops or dangles, so
// every remaining category sits under a root.
func (c *Catalog) dropUnrooted(all map[string]domain.Category) {
	var broken []string
	for id := range all {
		if !reachesRoot(all, id) {
			broken = append(broken, id)
		}
	}
	sort.Strings(broken)
	for _, id := range broken {
		c.logger.Warn("skipping category with broken parent chain",
			slog.String("category_id", id),
			slog.String("parent_id", all[id].ParentID))
		delete(all, id)
	}
}
