// Package chat keeps one conversation transcript fresh by polling.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"tumbi/internal/client/api"
)

const DefaultInterval = 3 * time.Second

var ErrEmptyMessage = errors.New("chat: message is empty")

// Source is the transcript port; *api.Client satisfies it.
type Source interface {
	Messages(ctx context.Context, conversationID string) ([]api.Message, error)
	SendMessage(ctx context.Context, conversationID, content string) (api.Message, error)
}

// Poller polls a single conversation while mounted.
type Poller struct {
	ConversationID string
	Interval       time.Duration
	// OnUpdate receives each freshly fetched transcript. Calls never overlap
	// and arrive in fetch order; it must not call Refresh or Send.
	OnUpdate func([]api.Message)

	source Source
	logger *slog.Logger

	// fetchMu serializes fetch, store and OnUpdate so an older response can
	// never replace a newer one.
	fetchMu sync.Mutex

	mu         sync.Mutex
	transcript []api.Message
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewPoller(source Source, conversationID string, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		ConversationID: conversationID,
		Interval:       DefaultInterval,
		source:         source,
		logger:         logger,
	}
}

// Mount fetches once and starts the polling loop. Mounting twice is a no-op.
func (p *Poller) Mount(ctx context.Context) {
	p.mu.Lock()
	if p.done != nil {
		p.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go p.loop(loopCtx, done)
}

// Unmount stops polling and returns once the loop has exited.
func (p *Poller) Unmount() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	p.poll(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
		p.logger.Debug("conversation poll failed", "conversation_id", p.ConversationID, "error", err)
	}
}

// Refresh fetches the transcript and replaces the held copy. A failed fetch
// leaves the held transcript as it was.
func (p *Poller) Refresh(ctx context.Context) error {
	p.fetchMu.Lock()
	defer p.fetchMu.Unlock()

	msgs, err := p.source.Messages(ctx, p.ConversationID)
	if err != nil {
		return err
	}
	msgs = normalize(msgs)
	p.mu.Lock()
	p.transcript = msgs
	onUpdate := p.OnUpdate
	p.mu.Unlock()
	if onUpdate != nil {
		onUpdate(append([]api.Message(nil), msgs...))
	}
	return nil
}

// Send posts text then re-fetches; the message shows up once the server echoes it.
// Only a rejected post is an error: once the server holds the message a failed
// re-fetch is left to the next tick, so callers never resend it.
func (p *Poller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if _, err := p.source.SendMessage(ctx, p.ConversationID, text); err != nil {
		return err
	}
	if err := p.Refresh(ctx); err != nil {
		p.logger.Debug("refresh after send failed", "conversation_id", p.ConversationID, "error", err)
	}
	return nil
}

func (p *Poller) Transcript() []api.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]api.Message(nil), p.transcript...)
}

// normalize orders by (CreatedAt, ID) and drops repeated IDs.
func normalize(msgs []api.Message) []api.Message {
	out := make([]api.Message, 0, len(msgs))
	seen := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
