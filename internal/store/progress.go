package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/phrazzld/scry-cue/internal/domain"
)

// ProgressStore defines the interface for review progress persistence.
// Version: 1.0
type ProgressStore interface {
	// LoadProgress returns every review state stored for the user, keyed by
	// card ID. A user with no stored progress yields an empty map and no error.
	LoadProgress(ctx context.Context, userID string) (map[string]domain.ReviewState, error)

	// SaveProgress replaces the user's stored progress with states.
	// Implementations must make the replacement atomic: a reader never sees
	// a mix of the old and new snapshot.
	SaveProgress(ctx context.Context, userID string, states map[string]domain.ReviewState) error
}

// SnapshotVersion is the current version of the encoded snapshot document.
const SnapshotVersion = 1

type snapshotDocument struct {
	Version int                  `json:"version"`
	UserID  string               `json:"user_id"`
	States  []domain.ReviewState `json:"states"`
}

// EncodeSnapshot renders a user's progress as a JSON document. States are
// ordered by card ID so identical progress always encodes identically.
func EncodeSnapshot(userID string, states map[string]domain.ReviewState) ([]byte, error) {
	doc := snapshotDocument{
		Version: SnapshotVersion,
		UserID:  userID,
		States:  SortedStates(states),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a document written by EncodeSnapshot.
func DecodeSnapshot(data []byte) (map[string]domain.ReviewState, error) {
	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if doc.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, doc.Version)
	}

	states := make(map[string]domain.ReviewState, len(doc.States))
	for _, s := range doc.States {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
		}
		states[s.CardID] = s
	}
	return states, nil
}

// SortedStates returns the states ordered by card ID.
func SortedStates(states map[string]domain.ReviewState) []domain.ReviewState {
	out := make([]domain.ReviewState, 0, len(states))
	for _, s := range states {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CardID < out[j].CardID })
	return out
}

// CloneStates returns a shallow copy of a state map. ReviewState holds no
// references, so the copy shares nothing with the original.
func CloneStates(states map[string]domain.ReviewState) map[string]domain.ReviewState {
	out := make(map[string]domain.ReviewState, len(states))
	for k, v := range states {
		out[k] = v
	}
	return out
}

// MemoryProgressStore keeps snapshots in process memory. It backs the
// "memory" storage backend and is handy in tests.
type MemoryProgressStore struct {
	mu    sync.RWMutex
	users map[string]map[string]domain.ReviewState
}

// NewMemoryProgressStore creates an empty in-memory store.
func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{users: make(map[string]map[string]domain.ReviewState)}
}

// LoadProgress implements ProgressStore.
func (m *MemoryProgressStore) LoadProgress(ctx context.Context, userID string) (map[string]domain.ReviewState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return CloneStates(m.users[userID]), nil
}

// SaveProgress implements ProgressStore.
func (m *MemoryProgressStore) SaveProgress(ctx context.Context, userID string, states map[string]domain.ReviewState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = CloneStates(states)
	return nil
}

// ensure MemoryProgressStore implements ProgressStore
var _ ProgressStore = (*MemoryProgressStore)(nil)
