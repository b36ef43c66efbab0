package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCategory is returned when a category fails validation.
var ErrInvalidCategory = errors.New("invalid category")

// Category groups decks. Categories form a tree through ParentID; an empty
// ParentID marks a root category.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == ""
}

// Validate checks the category's own fields. Parent existence and cycles are
// the catalog's concern since they depend on the rest of the table.
func (c *Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: category ID cannot be empty", ErrInvalidCategory)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: category %q has no name", ErrInvalidCategory, c.ID)
	}
	if c.ParentID == c.ID {
		return fmt.Errorf("%w: category %q cannot be its own parent", ErrInvalidCategory, c.ID)
	}
	return nil
}
