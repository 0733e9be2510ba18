package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	domainchat "tumbi/internal/domain/chat"
	domainlistings "tumbi/internal/domain/listings"
	domainuser "tumbi/internal/domain/user"
)

const conversationColumns = `id, listing_id, buyer_id, seller_id, created_at, last_message_at`

type conversationRow struct {
	ID            string    `db:"id"`
	ListingID     string    `db:"listing_id"`
	BuyerID       string    `db:"buyer_id"`
	SellerID      string    `db:"seller_id"`
	CreatedAt     time.Time `db:"created_at"`
	LastMessageAt time.Time `db:"last_message_at"`
}

func (r conversationRow) toDomain() *domainchat.Conversation {
	return &domainchat.Conversation{
		ID:            domainchat.ConversationID(r.ID),
		ListingID:     domainlistings.ListingID(r.ListingID),
		BuyerID:       domainuser.ID(r.BuyerID),
		SellerID:      domainuser.ID(r.SellerID),
		CreatedAt:     r.CreatedAt,
		LastMessageAt: r.LastMessageAt,
	}
}

type messageRow struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       string    `db:"sender_id"`
	ReceiverID     string    `db:"receiver_id"`
	Content        string    `db:"content"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r messageRow) toDomain() domainchat.Message {
	return domainchat.Message{
		ID:             domainchat.MessageID(r.ID),
		ConversationID: domainchat.ConversationID(r.ConversationID),
		SenderID:       domainuser.ID(r.SenderID),
		ReceiverID:     domainuser.ID(r.ReceiverID),
		Content:        r.Content,
		CreatedAt:      r.CreatedAt,
	}
}

type summaryRow struct {
	conversationRow
	ListingTitle  string         `db:"listing_title"`
	ListingImage  string         `db:"listing_image"`
	MsgID         sql.NullString `db:"msg_id"`
	MsgSenderID   sql.NullString `db:"msg_sender_id"`
	MsgReceiverID sql.NullString `db:"msg_receiver_id"`
	MsgContent    sql.NullString `db:"msg_content"`
	MsgCreatedAt  sql.NullTime   `db:"msg_created_at"`
}

type ChatRepository struct {
	db sqlx.ExtContext
}

func NewChatRepository(db sqlx.ExtContext) *ChatRepository {
	return &ChatRepository{db: db}
}

// GetOrCreate relies on the (listing_id, buyer_id) unique index: a concurrent
// insert for the same pair is skipped and the winner's row is returned.
func (r *ChatRepository) GetOrCreate(ctx context.Context, conv *domainchat.Conversation) (*domainchat.Conversation, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (listing_id, buyer_id) DO NOTHING`,
		string(conv.ID), string(conv.ListingID), string(conv.BuyerID), string(conv.SellerID), conv.CreatedAt, conv.LastMessageAt)
	if err != nil {
		return nil, translate(err, domainlistings.ErrNotFound)
	}
	var row conversationRow
	err = sqlx.GetContext(ctx, r.db, &row, `SELECT `+conversationColumns+` FROM conversations WHERE listing_id = $1 AND buyer_id = $2`,
		string(conv.ListingID), string(conv.BuyerID))
	if err != nil {
		return nil, translate(err, domainchat.ErrNotFound)
	}
	return row.toDomain(), nil
}

func (r *ChatRepository) ByID(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	var row conversationRow
	err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, string(id))
	if err != nil {
		return nil, translate(err, domainchat.ErrNotFound)
	}
	return row.toDomain(), nil
}

func (r *ChatRepository) ListForUser(ctx context.Context, userID domainuser.ID) ([]domainchat.Summary, error) {
	var rows []summaryRow
	err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT c.id, c.listing_id, c.buyer_id, c.seller_id, c.created_at, c.last_message_at,
			l.title AS listing_title, COALESCE(l.image_urls[1], '') AS listing_image,
			m.id AS msg_id, m.sender_id AS msg_sender_id, m.receiver_id AS msg_receiver_id,
			m.content AS msg_content, m.created_at AS msg_created_at
		FROM conversations c
		JOIN listings l ON l.id = c.listing_id
		LEFT JOIN LATERAL (
			SELECT id, sender_id, receiver_id, content, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) m ON TRUE
		WHERE c.buyer_id = $1 OR c.seller_id = $1
		ORDER BY c.last_message_at DESC, c.id ASC`, string(userID))
	if err != nil {
		if errors.Is(translate(err, errInvalidID), errInvalidID) {
			return []domainchat.Summary{}, nil
		}
		return nil, fmt.Errorf("postgres: list conversations: %w", err)
	}
	out := make([]domainchat.Summary, 0, len(rows))
	for _, row := range rows {
		summary := domainchat.Summary{
			Conversation: *row.conversationRow.toDomain(),
			ListingTitle: row.ListingTitle,
			ListingImage: row.ListingImage,
		}
		if row.MsgID.Valid {
			summary.LastMessage = &domainchat.Message{
				ID:             domainchat.MessageID(row.MsgID.String),
				ConversationID: summary.ID,
				SenderID:       domainuser.ID(row.MsgSenderID.String),
				ReceiverID:     domainuser.ID(row.MsgReceiverID.String),
				Content:        row.MsgContent.String,
				CreatedAt:      row.MsgCreatedAt.Time,
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

func (r *ChatRepository) Messages(ctx context.Context, id domainchat.ConversationID) ([]domainchat.Message, error) {
	var rows []messageRow
	err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT id, conversation_id, sender_id, receiver_id, content, created_at
		FROM messages WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC`, string(id))
	if err != nil {
		return nil, translate(err, domainchat.ErrNotFound)
	}
	out := make([]domainchat.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *ChatRepository) AppendMessage(ctx context.Context, msg *domainchat.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, receiver_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(msg.ID), string(msg.ConversationID), string(msg.SenderID), string(msg.ReceiverID), msg.Content, msg.CreatedAt)
	if err != nil {
		return translate(err, domainchat.ErrNotFound)
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE conversations SET last_message_at = GREATEST(last_message_at, $2) WHERE id = $1`,
		string(msg.ConversationID), msg.CreatedAt)
	return translate(err, domainchat.ErrNotFound)
}

var _ domainchat.Repository = (*ChatRepository)(nil)
