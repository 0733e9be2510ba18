package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"tumbi/internal/domain/listings"
	"tumbi/internal/domain/shared/events"
	"tumbi/internal/domain/user"
)

var (
	ErrIDRequired       = errors.New("chat: id is required")
	ErrListingRequired  = errors.New("chat: listing is required")
	ErrSelfConversation = errors.New("chat: buyer and seller must differ")
	ErrNotParticipant   = errors.New("chat: user is not a participant")
	ErrEmptyMessage     = errors.New("chat: message content is required")
	ErrMessageTooLong   = errors.New("chat: message content is too long")
	ErrNotFound         = errors.New("chat: conversation not found")
)

// MaxMessageLength bounds message content in runes.
const MaxMessageLength = 4000

type ConversationID string
type MessageID string

// Conversation is a thread between the buyer and the seller of one listing.
// (ListingID, BuyerID) is unique.
type Conversation struct {
	ID            ConversationID
	ListingID     listings.ListingID
	BuyerID       user.ID
	SellerID      user.ID
	CreatedAt     time.Time
	LastMessageAt time.Time
}

type Message struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       user.ID
	ReceiverID     user.ID
	Content        string
	CreatedAt      time.Time
}

// Summary is a conversation with its newest message, used for inbox listings.
type Summary struct {
	Conversation
	ListingTitle string
	ListingImage string
	LastMessage  *Message
}

type Repository interface {
	// GetOrCreate returns the existing thread for (listing, buyer) or stores conv.
	GetOrCreate(ctx context.Context, conv *Conversation) (*Conversation, error)
	ByID(ctx context.Context, id ConversationID) (*Conversation, error)
	// ListForUser returns threads where the user participates, most recent activity first.
	ListForUser(ctx context.Context, userID user.ID) ([]Summary, error)
	// Messages returns the transcript ordered by (CreatedAt, ID) ascending.
	Messages(ctx context.Context, id ConversationID) ([]Message, error)
	AppendMessage(ctx context.Context, msg *Message) error
}

type StartParams struct {
	ID        ConversationID
	ListingID listings.ListingID
	BuyerID   user.ID
	SellerID  user.ID
	Now       time.Time
}

func NewConversation(params StartParams) (*Conversation, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.ListingID)) == "" {
		return nil, ErrListingRequired
	}
	if params.BuyerID == "" || params.SellerID == "" || params.BuyerID == params.SellerID {
		return nil, ErrSelfConversation
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Conversation{
		ID:            params.ID,
		ListingID:     params.ListingID,
		BuyerID:       params.BuyerID,
		SellerID:      params.SellerID,
		CreatedAt:     now,
		LastMessageAt: now,
	}, nil
}

func (c *Conversation) IsParticipant(id user.ID) bool {
	return id != "" && (id == c.BuyerID || id == c.SellerID)
}

// Counterpart returns the other participant.
func (c *Conversation) Counterpart(id user.ID) user.ID {
	if id == c.BuyerID {
		return c.SellerID
	}
	return c.BuyerID
}

// Compose builds a message from sender to the other participant and records a
// MessageSentEvent on rec.
func (c *Conversation) Compose(id MessageID, sender user.ID, content string, now time.Time, rec *events.Recorder) (*Message, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, ErrIDRequired
	}
	if !c.IsParticipant(sender) {
		return nil, ErrNotParticipant
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	msg := &Message{
		ID:             id,
		ConversationID: c.ID,
		SenderID:       sender,
		ReceiverID:     c.Counterpart(sender),
		Content:        content,
		CreatedAt:      now,
	}
	c.LastMessageAt = now
	if rec != nil {
		rec.Record(MessageSentEvent{
			MessageID:      msg.ID,
			ConversationID: c.ID,
			ListingID:      c.ListingID,
			SenderID:       msg.SenderID,
			ReceiverID:     msg.ReceiverID,
			At:             now,
		})
	}
	return msg, nil
}

// SortTranscript orders messages by (CreatedAt, ID) ascending and drops repeated IDs.
func SortTranscript(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	seen := make(map[MessageID]struct{}, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.ID]; ok {
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

type MessageSentEvent struct {
	MessageID      MessageID          `json:"message_id"`
	ConversationID ConversationID     `json:"conversation_id"`
	ListingID      listings.ListingID `json:"listing_id"`
	SenderID       user.ID            `json:"sender_id"`
	ReceiverID     user.ID            `json:"receiver_id"`
	At             time.Time          `json:"at"`
}

func (e MessageSentEvent) EventName() string     { return "chat.message_sent" }
func (e MessageSentEvent) AggregateID() string   { return string(e.ConversationID) }
func (e MessageSentEvent) OccurredAt() time.Time { return e.At }
