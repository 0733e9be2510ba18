// Package app is the client state controller shared by the CLI.
package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tumbi/internal/client/api"
	"tumbi/internal/client/chat"
	"tumbi/internal/client/feed"
	"tumbi/internal/client/saved"
	"tumbi/internal/client/session"
	"tumbi/internal/client/view"
)

var ErrLoginRequired = errors.New("app: sign in required")

// Controller owns the client's state. At most one conversation poller runs,
// and only while the router is on the Conversation screen.
type Controller struct {
	Session *session.Session
	API     *api.Client
	Feed    *feed.Pager
	Saved   *saved.Set
	Router  *view.Router

	PollInterval time.Duration
	// OnTranscript receives every transcript the active poller fetches.
	OnTranscript func(conversationID string, msgs []api.Message)

	logger *slog.Logger

	mu     sync.Mutex
	poller *chat.Poller
	// pollCtx outlives individual calls; Close cancels it.
	pollCtx    context.Context
	cancelPoll context.CancelFunc
}

func New(sess *session.Session, client *api.Client, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	pollCtx, cancel := context.WithCancel(context.Background())
	return &Controller{
		Session:      sess,
		API:          client,
		Feed:         feed.NewPager(client, logger),
		Saved:        saved.NewSet(client, logger),
		Router:       view.NewRouter(),
		PollInterval: chat.DefaultInterval,
		logger:       logger,
		pollCtx:      pollCtx,
		cancelPoll:   cancel,
	}
}

// Close stops any running poller.
func (c *Controller) Close() {
	c.unmountPoller()
	c.cancelPoll()
}

func (c *Controller) Login(ctx context.Context, identifier, password string) (api.User, error) {
	res, err := c.API.Login(ctx, identifier, password)
	if err != nil {
		return api.User{}, err
	}
	if err := c.Session.Set(res.Token, res.User.ID, res.User.Name); err != nil {
		return api.User{}, err
	}
	if err := c.Saved.Reconcile(ctx); err != nil {
		c.logger.Debug("saved reconcile after login failed", "error", err)
	}
	c.Router.Reset(view.State{Name: view.Home})
	return res.User, nil
}

func (c *Controller) Logout() error {
	c.unmountPoller()
	c.Saved.Reset()
	c.Router.Reset(view.State{Name: view.Home})
	return c.Session.Clear()
}

func needsAuth(n view.Name) bool {
	switch n {
	case view.Sell, view.Edit, view.Saved, view.Messages, view.Conversation, view.Profile:
		return true
	}
	return false
}

// Navigate moves the router and mounts or unmounts the poller to match.
func (c *Controller) Navigate(ctx context.Context, next view.State) error {
	if needsAuth(next.Name) && !c.Session.SignedIn() {
		c.Router.Reset(view.State{Name: view.Login})
		return ErrLoginRequired
	}
	if err := c.Router.Go(next); err != nil {
		return err
	}
	c.syncPoller()
	return nil
}

func (c *Controller) Back() view.State {
	s := c.Router.Back()
	c.syncPoller()
	return s
}

func (c *Controller) syncPoller() {
	current := c.Router.Current()
	c.mu.Lock()
	active := c.poller
	c.mu.Unlock()
	if active != nil && (current.Name != view.Conversation || active.ConversationID != current.ConversationID) {
		c.unmountPoller()
		active = nil
	}
	if current.Name == view.Conversation && active == nil {
		c.mountPoller(current.ConversationID)
	}
}

func (c *Controller) mountPoller(conversationID string) {
	p := chat.NewPoller(c.API, conversationID, c.logger)
	p.Interval = c.PollInterval
	if c.OnTranscript != nil {
		notify := c.OnTranscript
		p.OnUpdate = func(msgs []api.Message) { notify(conversationID, msgs) }
	}
	c.mu.Lock()
	c.poller = p
	c.mu.Unlock()
	p.Mount(c.pollCtx)
}

func (c *Controller) unmountPoller() {
	c.mu.Lock()
	p := c.poller
	c.poller = nil
	c.mu.Unlock()
	if p != nil {
		p.Unmount()
	}
}

// ActivePoller is the mounted conversation poller, or nil.
func (c *Controller) ActivePoller() *chat.Poller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poller
}

func (c *Controller) CreateListing(ctx context.Context, in api.ListingInput) (string, error) {
	created, err := c.API.CreateListing(api.WithIdempotencyKey(ctx, uuid.NewString()), in)
	if err != nil {
		return "", c.checkAuth(err)
	}
	c.refreshFeed(ctx)
	return created.ID, nil
}

func (c *Controller) UpdateListing(ctx context.Context, id string, in api.ListingInput) (api.Listing, error) {
	listing, err := c.API.UpdateListing(ctx, id, in)
	if err != nil {
		return api.Listing{}, c.checkAuth(err)
	}
	c.refreshFeed(ctx)
	return listing, nil
}

func (c *Controller) DeleteListing(ctx context.Context, id string) error {
	if err := c.API.DeleteListing(ctx, id); err != nil {
		return c.checkAuth(err)
	}
	c.refreshFeed(ctx)
	return nil
}

func (c *Controller) refreshFeed(ctx context.Context) {
	if err := c.Feed.Refresh(ctx); err != nil {
		c.logger.Debug("feed refresh after mutation failed", "error", err)
	}
}

func (c *Controller) ToggleSaved(ctx context.Context, listingID string) (bool, error) {
	if !c.Session.SignedIn() {
		c.Router.Reset(view.State{Name: view.Login})
		return false, ErrLoginRequired
	}
	on, err := c.Saved.Toggle(ctx, listingID)
	return on, c.checkAuth(err)
}

// OpenConversation gets or creates the thread for listingID and shows it.
func (c *Controller) OpenConversation(ctx context.Context, listingID string) (api.Conversation, error) {
	if !c.Session.SignedIn() {
		c.Router.Reset(view.State{Name: view.Login})
		return api.Conversation{}, ErrLoginRequired
	}
	conv, err := c.API.StartConversation(ctx, listingID)
	if err != nil {
		return api.Conversation{}, c.checkAuth(err)
	}
	target := view.State{Name: view.Conversation, ConversationID: conv.ID}
	if err := c.Router.Go(target); err != nil {
		c.Router.Reset(target)
	}
	c.syncPoller()
	return conv, nil
}

func (c *Controller) SendMessage(ctx context.Context, text string) error {
	p := c.ActivePoller()
	if p == nil {
		return errors.New("app: no conversation open")
	}
	return c.checkAuth(p.Send(api.WithIdempotencyKey(ctx, uuid.NewString()), text))
}

// OpenDeepLink shows the listing named by ref, a listing ID or a slug. Any
// failure lands on Home.
func (c *Controller) OpenDeepLink(ctx context.Context, ref string) (api.Listing, bool) {
	ref = strings.Trim(strings.TrimSpace(ref), "/")
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		ref = ref[i+1:]
	}
	listing, err := c.resolve(ctx, ref)
	if err != nil {
		c.logger.Warn("deep link could not be opened", "ref", ref, "error", err)
		c.unmountPoller()
		c.Router.Reset(view.State{Name: view.Home})
		return api.Listing{}, false
	}
	c.unmountPoller()
	c.Router.Reset(view.State{Name: view.Details, ListingID: listing.ID})
	return listing, true
}

func (c *Controller) resolve(ctx context.Context, ref string) (api.Listing, error) {
	if ref == "" {
		return api.Listing{}, api.ErrNotFound
	}
	if _, err := uuid.Parse(ref); err == nil {
		return c.API.GetListing(ctx, ref)
	}
	bySlug, err := c.API.ListingBySlug(ctx, ref)
	if err != nil {
		return api.Listing{}, err
	}
	return c.API.GetListing(ctx, bySlug.ID)
}

// checkAuth drops the session when the server no longer accepts the token.
func (c *Controller) checkAuth(err error) error {
	if err == nil || !errors.Is(err, api.ErrUnauthorized) {
		return err
	}
	c.logger.Info("session rejected by server, signing out")
	c.unmountPoller()
	c.Saved.Reset()
	if cerr := c.Session.Clear(); cerr != nil {
		c.logger.Warn("clear session failed", "error", cerr)
	}
	c.Router.Reset(view.State{Name: view.Login})
	return err
}
