package saved

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
)

var errOffline = errors.New("offline")

type fakeSource struct {
	mu      sync.Mutex
	server  map[string]bool
	offline bool
}

func (f *fakeSource) Save(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return errOffline
	}
	f.server[id] = true
	return nil
}

func (f *fakeSource) Unsave(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return errOffline
	}
	delete(f.server, id)
	return nil
}

func (f *fakeSource) SavedIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, errOffline
	}
	var ids []string
	for id := range f.server {
		ids = append(ids, id)
	}
	return ids, nil
}

func newSet(src *fakeSource) *Set {
	return NewSet(src, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestToggleSavesAndUnsaves(t *testing.T) {
	src := &fakeSource{server: map[string]bool{}}
	s := newSet(src)
	ctx := context.Background()

	on, err := s.Toggle(ctx, "l1")
	if err != nil || !on || !src.server["l1"] {
		t.Fatalf("save: on=%v err=%v server=%v", on, err, src.server)
	}
	on, err = s.Toggle(ctx, "l1")
	if err != nil || on || src.server["l1"] {
		t.Fatalf("unsave: on=%v err=%v server=%v", on, err, src.server)
	}
}

func TestOfflineToggleRollsBack(t *testing.T) {
	src := &fakeSource{server: map[string]bool{}, offline: true}
	s := newSet(src)

	on, err := s.Toggle(context.Background(), "l1")
	if !errors.Is(err, errOffline) {
		t.Fatalf("expected offline error, got %v", err)
	}
	if on || s.Has("l1") {
		t.Fatalf("failed save must be rolled back")
	}
}

func TestReconcileAdoptsServerState(t *testing.T) {
	src := &fakeSource{server: map[string]bool{"a": true, "b": true}}
	s := newSet(src)
	if _, err := s.Toggle(context.Background(), "c"); err != nil {
		t.Fatal(err)
	}
	got := s.IDs()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("expected server membership, got %v", got)
	}

	s.Reset()
	if len(s.IDs()) != 0 {
		t.Fatalf("reset left ids behind")
	}
}
