// Package saved tracks which listings the signed-in user has bookmarked.
package saved

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Source is the bookmark port; *api.Client satisfies it.
type Source interface {
	Save(ctx context.Context, listingID string) error
	Unsave(ctx context.Context, listingID string) error
	SavedIDs(ctx context.Context) ([]string, error)
}

// Set flips membership optimistically. A failed request rolls the flip back;
// every toggle is followed by a reconcile against the server's list.
type Set struct {
	source Source
	logger *slog.Logger

	mu  sync.Mutex
	ids map[string]struct{}
}

func NewSet(source Source, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	return &Set{source: source, logger: logger, ids: map[string]struct{}{}}
}

func (s *Set) Has(listingID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[listingID]
	return ok
}

// IDs returns the held membership sorted for stable output.
func (s *Set) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Toggle flips listingID and returns the membership that stands afterwards.
func (s *Set) Toggle(ctx context.Context, listingID string) (bool, error) {
	s.mu.Lock()
	_, was := s.ids[listingID]
	s.setLocked(listingID, !was)
	s.mu.Unlock()

	var err error
	if was {
		err = s.source.Unsave(ctx, listingID)
	} else {
		err = s.source.Save(ctx, listingID)
	}
	if err != nil {
		s.mu.Lock()
		s.setLocked(listingID, was)
		s.mu.Unlock()
		s.logger.Warn("saved toggle failed, rolled back", "listing_id", listingID, "error", err)
	}
	if rerr := s.Reconcile(ctx); rerr != nil {
		s.logger.Debug("saved reconcile failed", "error", rerr)
	}
	return s.Has(listingID), err
}

// Reconcile replaces local membership with the server's. On failure the local
// state stands.
func (s *Set) Reconcile(ctx context.Context) error {
	ids, err := s.source.SavedIDs(ctx)
	if err != nil {
		return err
	}
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}
	s.mu.Lock()
	s.ids = next
	s.mu.Unlock()
	return nil
}

// Reset empties the set, e.g. on logout.
func (s *Set) Reset() {
	s.mu.Lock()
	s.ids = map[string]struct{}{}
	s.mu.Unlock()
}

func (s *Set) setLocked(id string, on bool) {
	if on {
		s.ids[id] = struct{}{}
		return
	}
	delete(s.ids, id)
}
