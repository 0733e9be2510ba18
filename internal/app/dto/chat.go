package dto

import (
	"time"

	domainchat "tumbi/internal/domain/chat"
)

// Conversation describes a thread with its newest message for inbox views.
type Conversation struct {
	ID            string    `json:"id"`
	ListingID     string    `json:"listingId"`
	ListingTitle  string    `json:"listingTitle,omitempty"`
	ListingImage  string    `json:"listingImage,omitempty"`
	BuyerID       string    `json:"buyerId"`
	SellerID      string    `json:"sellerId"`
	CreatedAt     time.Time `json:"createdAt"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	LastMessage   *Message  `json:"lastMessage,omitempty"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

func MapConversation(c *domainchat.Conversation) Conversation {
	if c == nil {
		return Conversation{}
	}
	return Conversation{
		ID:            string(c.ID),
		ListingID:     string(c.ListingID),
		BuyerID:       string(c.BuyerID),
		SellerID:      string(c.SellerID),
		CreatedAt:     c.CreatedAt,
		LastMessageAt: c.LastMessageAt,
	}
}

func MapSummaries(items []domainchat.Summary) []Conversation {
	out := make([]Conversation, 0, len(items))
	for i := range items {
		conv := MapConversation(&items[i].Conversation)
		conv.ListingTitle = items[i].ListingTitle
		conv.ListingImage = items[i].ListingImage
		if items[i].LastMessage != nil {
			msg := MapMessage(*items[i].LastMessage)
			conv.LastMessage = &msg
		}
		out = append(out, conv)
	}
	return out
}

func MapMessage(m domainchat.Message) Message {
	return Message{
		ID:             string(m.ID),
		ConversationID: string(m.ConversationID),
		SenderID:       string(m.SenderID),
		ReceiverID:     string(m.ReceiverID),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

func MapMessages(items []domainchat.Message) []Message {
	out := make([]Message, 0, len(items))
	for _, m := range items {
		out = append(out, MapMessage(m))
	}
	return out
}
