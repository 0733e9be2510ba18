package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tumbi/internal/client/api"
	"tumbi/internal/client/session"
	"tumbi/internal/client/view"
)

const listingUUID = "2f1c7e4a-5b7d-4c1e-9a44-0f6b1d2c3e4f"

type fakeServer struct {
	mu           sync.Mutex
	token        string
	listingCalls atomic.Int32
	messageCalls atomic.Int32
}

func (f *fakeServer) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return r.Header.Get("X-Auth-Token") == f.token && f.token != ""
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	deny := func(w http.ResponseWriter) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token is not valid"})
	}
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.AuthResult{Token: "tok", User: api.User{ID: "u1", Name: "Amina"}})
	})
	mux.HandleFunc("GET /listings", func(w http.ResponseWriter, r *http.Request) {
		f.listingCalls.Add(1)
		writeJSON(w, http.StatusOK, []api.Listing{{ID: listingUUID, Slug: "cement-bags"}})
	})
	mux.HandleFunc("GET /listings/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != listingUUID {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "listing not found"})
			return
		}
		writeJSON(w, http.StatusOK, api.Listing{ID: listingUUID, Slug: "cement-bags"})
	})
	mux.HandleFunc("GET /listings/slug/{slug}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("slug") != "cement-bags" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "listing not found"})
			return
		}
		writeJSON(w, http.StatusOK, api.Listing{ID: listingUUID, Slug: "cement-bags"})
	})
	mux.HandleFunc("POST /listings", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			deny(w)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": listingUUID, "slug": "cement-bags"})
	})
	mux.HandleFunc("GET /saved/ids", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			deny(w)
			return
		}
		writeJSON(w, http.StatusOK, []string{})
	})
	mux.HandleFunc("POST /conversations", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			deny(w)
			return
		}
		writeJSON(w, http.StatusOK, api.Conversation{ID: "c1", ListingID: listingUUID})
	})
	mux.HandleFunc("GET /conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		f.messageCalls.Add(1)
		writeJSON(w, http.StatusOK, []api.Message{})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusTeapot)
	})
	return mux
}

func newController(t *testing.T) (*Controller, *fakeServer) {
	t.Helper()
	fake := &fakeServer{token: "tok"}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	sess, err := session.Load(filepath.Join(t.TempDir(), "session.toml"))
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(sess, api.New(srv.URL, sess), logger)
	c.PollInterval = 5 * time.Millisecond
	t.Cleanup(c.Close)
	return c, fake
}

func TestLoginStoresSessionAndLogoutClears(t *testing.T) {
	c, _ := newController(t)
	ctx := context.Background()
	user, err := c.Login(ctx, "amina@example.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != "u1" || c.Session.Token() != "tok" {
		t.Fatalf("session not stored: %+v %q", user, c.Session.Token())
	}
	if err := c.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if c.Session.SignedIn() || c.Router.Current().Name != view.Home {
		t.Fatalf("logout must clear the session and route home")
	}
}

func TestProtectedScreenRoutesToLogin(t *testing.T) {
	c, _ := newController(t)
	err := c.Navigate(context.Background(), view.State{Name: view.Saved})
	if err != ErrLoginRequired {
		t.Fatalf("expected ErrLoginRequired, got %v", err)
	}
	if c.Router.Current().Name != view.Login {
		t.Fatalf("expected login screen, got %s", c.Router.Current())
	}
}

func TestCreateListingRefreshesFeed(t *testing.T) {
	c, fake := newController(t)
	ctx := context.Background()
	if _, err := c.Login(ctx, "amina@example.com", "secret"); err != nil {
		t.Fatal(err)
	}
	before := fake.listingCalls.Load()
	id, err := c.CreateListing(ctx, api.ListingInput{Title: "Cement", Price: 10, ImageURLs: []string{"x"}})
	if err != nil || id != listingUUID {
		t.Fatalf("create: %q %v", id, err)
	}
	if fake.listingCalls.Load() != before+1 {
		t.Fatalf("expected a feed refresh after create")
	}
	if got := len(c.Feed.Snapshot().Items); got != 1 {
		t.Fatalf("expected refreshed feed, got %d items", got)
	}
}

func TestRejectedTokenSignsOut(t *testing.T) {
	c, fake := newController(t)
	ctx := context.Background()
	if _, err := c.Login(ctx, "amina@example.com", "secret"); err != nil {
		t.Fatal(err)
	}
	fake.mu.Lock()
	fake.token = "rotated"
	fake.mu.Unlock()

	if _, err := c.CreateListing(ctx, api.ListingInput{Title: "Cement"}); err == nil {
		t.Fatalf("expected unauthorized")
	}
	if c.Session.SignedIn() {
		t.Fatalf("session must be cleared on 401")
	}
	if c.Router.Current().Name != view.Login {
		t.Fatalf("expected login screen, got %s", c.Router.Current())
	}
}

func TestConversationMountsAndUnmountsPoller(t *testing.T) {
	c, fake := newController(t)
	ctx := context.Background()
	if _, err := c.Login(ctx, "amina@example.com", "secret"); err != nil {
		t.Fatal(err)
	}
	if err := c.Navigate(ctx, view.State{Name: view.Details, ListingID: listingUUID}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.OpenConversation(ctx, listingUUID); err != nil {
		t.Fatalf("open conversation: %v", err)
	}
	if c.ActivePoller() == nil {
		t.Fatalf("expected a mounted poller")
	}
	deadline := time.Now().Add(2 * time.Second)
	for fake.messageCalls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("poller never fetched")
		}
		time.Sleep(time.Millisecond)
	}

	if got := c.Back(); got.Name != view.Messages {
		t.Fatalf("expected messages, got %s", got)
	}
	if c.ActivePoller() != nil {
		t.Fatalf("leaving the conversation must unmount the poller")
	}
	after := fake.messageCalls.Load()
	time.Sleep(30 * time.Millisecond)
	if fake.messageCalls.Load() != after {
		t.Fatalf("poll fired after unmount")
	}
}

func TestDeepLinks(t *testing.T) {
	c, _ := newController(t)
	ctx := context.Background()

	listing, ok := c.OpenDeepLink(ctx, listingUUID)
	if !ok || listing.ID != listingUUID || c.Router.Current().Name != view.Details {
		t.Fatalf("open by id failed: %+v %v %s", listing, ok, c.Router.Current())
	}
	listing, ok = c.OpenDeepLink(ctx, "https://tumbi.example/listing/cement-bags")
	if !ok || listing.ID != listingUUID {
		t.Fatalf("open by slug failed: %+v %v", listing, ok)
	}
	if _, ok := c.OpenDeepLink(ctx, "no-such-slug"); ok {
		t.Fatalf("unknown slug should not open")
	}
	if got := c.Router.Current(); got.Name != view.Home {
		t.Fatalf("failed deep link must land home, got %s", got)
	}
}
