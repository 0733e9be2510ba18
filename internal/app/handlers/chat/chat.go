package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tumbi/internal/app/commands"
	"tumbi/internal/app/dto"
	"tumbi/internal/app/outbox"
	"tumbi/internal/app/queries"
	"tumbi/internal/app/uow"
	domainchat "tumbi/internal/domain/chat"
	domainlistings "tumbi/internal/domain/listings"
	"tumbi/internal/domain/shared/events"
	domainuser "tumbi/internal/domain/user"
)

const (
	startConversationKey = "chat.conversations.start"
	listConversationsKey = "chat.conversations.list"
	messagesKey          = "chat.messages.list"
	sendMessageKey       = "chat.messages.send"
)

// StartConversationCommand opens (or reopens) the buyer's thread about a listing.
type StartConversationCommand struct {
	BuyerID   string
	ListingID string
}

func (c StartConversationCommand) Key() string     { return startConversationKey }
func (c StartConversationCommand) ActorID() string { return c.BuyerID }

func (c StartConversationCommand) Validate() error {
	if strings.TrimSpace(c.ListingID) == "" {
		return domainchat.ErrListingRequired
	}
	return nil
}

type StartConversationHandler struct {
	Logger *slog.Logger
	Now    func() time.Time
}

func (h *StartConversationHandler) Handle(ctx context.Context, cmd StartConversationCommand) (dto.Conversation, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.Conversation{}, uow.ErrUnitOfWorkMissing
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(strings.TrimSpace(cmd.ListingID)))
	if err != nil {
		return dto.Conversation{}, err
	}
	conv, err := domainchat.NewConversation(domainchat.StartParams{
		ID:        domainchat.ConversationID(uuid.NewString()),
		ListingID: listing.ID,
		BuyerID:   domainuser.ID(cmd.BuyerID),
		SellerID:  domainuser.ID(listing.Seller),
		Now:       clock(h.Now),
	})
	if err != nil {
		return dto.Conversation{}, err
	}
	stored, err := unit.Chat().GetOrCreate(ctx, conv)
	if err != nil {
		return dto.Conversation{}, err
	}
	if h.Logger != nil && stored.ID == conv.ID {
		h.Logger.Info("conversation started", "conversation_id", stored.ID, "listing_id", listing.ID, "buyer_id", cmd.BuyerID)
	}
	out := dto.MapConversation(stored)
	out.ListingTitle = listing.Title
	if len(listing.ImageURLs) > 0 {
		out.ListingImage = listing.ImageURLs[0]
	}
	return out, nil
}

type ListConversationsQuery struct {
	UserID string
}

func (q ListConversationsQuery) Key() string     { return listConversationsKey }
func (q ListConversationsQuery) ActorID() string { return q.UserID }

type ListConversationsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListConversationsHandler) Handle(ctx context.Context, q ListConversationsQuery) ([]dto.Conversation, error) {
	unit, ctx, release, err := uow.ReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer release()
	items, err := unit.Chat().ListForUser(ctx, domainuser.ID(q.UserID))
	if err != nil {
		return nil, err
	}
	return dto.MapSummaries(items), nil
}

// MessagesQuery returns the full transcript to a participant.
type MessagesQuery struct {
	UserID         string
	ConversationID string
}

func (q MessagesQuery) Key() string     { return messagesKey }
func (q MessagesQuery) ActorID() string { return q.UserID }

type MessagesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *MessagesHandler) Handle(ctx context.Context, q MessagesQuery) ([]dto.Message, error) {
	unit, ctx, release, err := uow.ReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer release()
	conv, err := unit.Chat().ByID(ctx, domainchat.ConversationID(q.ConversationID))
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(domainuser.ID(q.UserID)) {
		return nil, domainchat.ErrNotParticipant
	}
	msgs, err := unit.Chat().Messages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	return dto.MapMessages(domainchat.SortTranscript(msgs)), nil
}

type SendMessageCommand struct {
	SenderID       string
	ConversationID string
	Content        string
	RequestKey     string
}

func (c SendMessageCommand) Key() string            { return sendMessageKey }
func (c SendMessageCommand) ActorID() string        { return c.SenderID }
func (c SendMessageCommand) IdempotencyKey() string { return c.RequestKey }
func (c SendMessageCommand) ResultPrototype() any   { return &dto.Message{} }

func (c SendMessageCommand) Validate() error {
	if strings.TrimSpace(c.ConversationID) == "" {
		return domainchat.ErrNotFound
	}
	if strings.TrimSpace(c.Content) == "" {
		return domainchat.ErrEmptyMessage
	}
	return nil
}

type SendMessageHandler struct {
	Logger  *slog.Logger
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

func (h *SendMessageHandler) Handle(ctx context.Context, cmd SendMessageCommand) (dto.Message, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.Message{}, uow.ErrUnitOfWorkMissing
	}
	conv, err := unit.Chat().ByID(ctx, domainchat.ConversationID(cmd.ConversationID))
	if err != nil {
		return dto.Message{}, err
	}
	var rec events.Recorder
	msg, err := conv.Compose(domainchat.MessageID(uuid.NewString()), domainuser.ID(cmd.SenderID), cmd.Content, clock(h.Now), &rec)
	if err != nil {
		return dto.Message{}, err
	}
	if err := unit.Chat().AppendMessage(ctx, msg); err != nil {
		return dto.Message{}, err
	}
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), h.Encoder, rec.PullEvents()); err != nil {
		return dto.Message{}, err
	}
	if h.Logger != nil {
		h.Logger.Debug("message sent", "conversation_id", conv.ID, "message_id", msg.ID, "sender_id", msg.SenderID)
	}
	return dto.MapMessage(*msg), nil
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now()
}

var (
	_ commands.Handler[StartConversationCommand, dto.Conversation] = (*StartConversationHandler)(nil)
	_ queries.Handler[ListConversationsQuery, []dto.Conversation]  = (*ListConversationsHandler)(nil)
	_ queries.Handler[MessagesQuery, []dto.Message]                = (*MessagesHandler)(nil)
	_ commands.Handler[SendMessageCommand, dto.Message]            = (*SendMessageHandler)(nil)
)
