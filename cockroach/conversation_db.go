package cockroach

import (
	"context"
	"fmt"
	"time"

	"github.com/batimarket/batimarket/errs"
	"github.com/batimarket/batimarket/id"
	"github.com/batimarket/batimarket/types"
	"github.com/jackc/pgx/v5"
	"github.com/nicolasparada/go-db"
)

const conversationColumns = `
	conversations.id,
	conversations.participant_a_id,
	conversations.participant_a_kind,
	conversations.participant_b_id,
	conversations.participant_b_kind,
	conversations.last_message_id,
	conversations.last_activity_at,
	conversations.blocked,
	conversations.blocked_by,
	conversations.created_at,
	conversations.updated_at
`

// unreadCountColumn counts the messages userID has not read yet.
// Own and soft-deleted messages never count.
const unreadCountColumn = `
	(
		SELECT count(*) FROM messages
		WHERE messages.conversation_id = conversations.id
			AND messages.sender_id != @user_id
			AND NOT messages.is_deleted
			AND NOT EXISTS (
				SELECT 1 FROM message_reads
				WHERE message_reads.message_id = messages.id
					AND message_reads.reader_id = @user_id
			)
	) AS unread_count
`

type conversationRow struct {
	ID               string                `db:"id"`
	ParticipantAID   string                `db:"participant_a_id"`
	ParticipantAKind types.ParticipantKind `db:"participant_a_kind"`
	ParticipantBID   string                `db:"participant_b_id"`
	ParticipantBKind types.ParticipantKind `db:"participant_b_kind"`
	LastMessageID    *string               `db:"last_message_id"`
	LastActivityAt   time.Time             `db:"last_activity_at"`
	Blocked          bool                  `db:"blocked"`
	BlockedBy        *string               `db:"blocked_by"`
	CreatedAt        time.Time             `db:"created_at"`
	UpdatedAt        time.Time             `db:"updated_at"`
	UnreadCount      int64                 `db:"unread_count"`
}

func (r conversationRow) conversation() types.Conversation {
	return types.Conversation{
		ID: r.ID,
		Participants: [2]types.Participant{
			{ID: r.ParticipantAID, Kind: r.ParticipantAKind},
			{ID: r.ParticipantBID, Kind: r.ParticipantBKind},
		},
		LastMessageID:  r.LastMessageID,
		LastActivityAt: r.LastActivityAt,
		Blocked:        r.Blocked,
		BlockedBy:      r.BlockedBy,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		UnreadCount:    r.UnreadCount,
	}
}

func collectConversations(rows pgx.Rows) ([]types.Conversation, error) {
	list, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[conversationRow])
	if err != nil {
		return nil, err
	}

	out := make([]types.Conversation, len(list))
	for i, r := range list {
		out[i] = r.conversation()
	}
	return out, nil
}

func collectConversation(rows pgx.Rows) (types.Conversation, error) {
	r, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[conversationRow])
	if err != nil {
		return types.Conversation{}, err
	}
	return r.conversation(), nil
}

// ConversationFromParticipants looks up the conversation between a and b
// regardless of their order.
func (c *Cockroach) ConversationFromParticipants(ctx context.Context, a, b types.Participant) (types.Conversation, error) {
	var out types.Conversation

	pair := types.CanonicalPair(a, b)

	q := `SELECT ` + conversationColumns + `
		FROM conversations
		WHERE participant_a_id = @participant_a_id
			AND participant_b_id = @participant_b_id
	`

	rows, err := c.db.Query(ctx, q, pgx.StrictNamedArgs{
		"participant_a_id": pair[0].ID,
		"participant_b_id": pair[1].ID,
	})
	if err != nil {
		return out, fmt.Errorf("sql select conversation from participants: %w", err)
	}

	out, err = collectConversation(rows)
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("conversation not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect conversation from participants: %w", err)
	}

	return out, nil
}

// CreateConversation inserts the conversation between both participants
// or returns the existing one.
// Concurrent creators of the same pair converge on a single row.
func (c *Cockroach) CreateConversation(ctx context.Context, in types.CreateConversation) (types.Conversation, error) {
	var out types.Conversation

	pair := types.CanonicalPair(in.Participants[0], in.Participants[1])
	if pair[0].ID == pair[1].ID {
		return out, errs.NewInvalidArgumentError("Participants", "cannot start a conversation with yourself")
	}

	const q = `
		INSERT INTO conversations (
			id,
			participant_a_id,
			participant_a_kind,
			participant_b_id,
			participant_b_kind
		)
		VALUES (
			@conversation_id,
			@participant_a_id,
			@participant_a_kind,
			@participant_b_id,
			@participant_b_kind
		)
		ON CONFLICT (participant_a_id, participant_b_id) DO NOTHING
	`

	_, err := c.db.Exec(ctx, q, pgx.StrictNamedArgs{
		"conversation_id":    id.Generate(),
		"participant_a_id":   pair[0].ID,
		"participant_a_kind": pair[0].Kind,
		"participant_b_id":   pair[1].ID,
		"participant_b_kind": pair[1].Kind,
	})
	if err != nil {
		return out, fmt.Errorf("sql insert conversation: %w", err)
	}

	return c.ConversationFromParticipants(ctx, pair[0], pair[1])
}

func (c *Cockroach) Conversation(ctx context.Context, conversationID string) (types.Conversation, error) {
	var out types.Conversation

	q := `SELECT ` + conversationColumns + `
		FROM conversations
		WHERE id = @conversation_id
	`

	rows, err := c.db.Query(ctx, q, pgx.StrictNamedArgs{
		"conversation_id": conversationID,
	})
	if err != nil {
		return out, fmt.Errorf("sql select conversation: %w", err)
	}

	out, err = collectConversation(rows)
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("conversation not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect conversation: %w", err)
	}

	return out, nil
}

// UnreadCount of the conversation as seen by userID.
func (c *Cockroach) UnreadCount(ctx context.Context, conversationID, userID string) (int64, error) {
	q := `SELECT ` + unreadCountColumn + `
		FROM conversations
		WHERE id = @conversation_id
	`

	var count int64
	err := c.db.QueryRow(ctx, q, pgx.StrictNamedArgs{
		"conversation_id": conversationID,
		"user_id":         userID,
	}).Scan(&count)
	if db.IsNotFoundError(err) {
		return 0, errs.NewNotFoundError("conversation not found")
	}

	if err != nil {
		return 0, fmt.Errorf("sql select conversation unread count: %w", err)
	}

	return count, nil
}

// TouchConversation points the conversation to its latest message.
// The last activity never moves backwards, so an older message touching
// late is ignored.
func (c *Cockroach) TouchConversation(ctx context.Context, in types.TouchConversation) error {
	const q = `
		UPDATE conversations
		SET last_message_id = @message_id,
			last_activity_at = @at,
			updated_at = now()
		WHERE id = @conversation_id
			AND last_activity_at <= @at
	`

	_, err := c.db.Exec(ctx, q, pgx.StrictNamedArgs{
		"conversation_id": in.ConversationID,
		"message_id":      in.MessageID,
		"at":              in.At,
	})
	if err != nil {
		return fmt.Errorf("sql update conversation last activity: %w", err)
	}

	return nil
}

// SetConversationBlocked records who blocked the conversation.
// blocked_by is cleared on unblock.
func (c *Cockroach) SetConversationBlocked(ctx context.Context, conversationID, byUserID string, blocked bool) (types.Conversation, error) {
	var out types.Conversation

	q := `
		UPDATE conversations
		SET blocked = @blocked,
			blocked_by = CASE WHEN @blocked THEN @blocked_by ELSE NULL END,
			updated_at = now()
		WHERE id = @conversation_id
		RETURNING ` + conversationColumns

	rows, err := c.db.Query(ctx, q, pgx.StrictNamedArgs{
		"conversation_id": conversationID,
		"blocked":         blocked,
		"blocked_by":      byUserID,
	})
	if err != nil {
		return out, fmt.Errorf("sql update conversation blocked: %w", err)
	}

	out, err = collectConversation(rows)
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("conversation not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect blocked conversation: %w", err)
	}

	return out, nil
}

// Conversations of userID that are not blocked, most recent activity first.
func (c *Cockroach) Conversations(ctx context.Context, userID string) ([]types.Conversation, error) {
	q := `SELECT ` + conversationColumns + `, ` + unreadCountColumn + `
		FROM conversations
		WHERE (participant_a_id = @user_id OR participant_b_id = @user_id)
			AND NOT blocked
		ORDER BY last_activity_at DESC, id DESC
	`

	rows, err := c.db.Query(ctx, q, pgx.StrictNamedArgs{
		"user_id": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("sql select conversations: %w", err)
	}

	out, err := collectConversations(rows)
	if err != nil {
		return nil, fmt.Errorf("sql collect conversations: %w", err)
	}

	return out, nil
}

// SearchConversations of userID whose other participant name contains
// query, case insensitive.
func (c *Cockroach) SearchConversations(ctx context.Context, userID, query string) ([]types.Conversation, error) {
	q := `SELECT ` + conversationColumns + `, ` + unreadCountColumn + `
		FROM conversations
		LEFT JOIN suppliers ON suppliers.id = CASE
			WHEN conversations.participant_a_id = @user_id THEN conversations.participant_b_id
			ELSE conversations.participant_a_id
		END
		LEFT JOIN clients ON clients.id = CASE
			WHEN conversations.participant_a_id = @user_id THEN conversations.participant_b_id
			ELSE conversations.participant_a_id
		END
		WHERE (conversations.participant_a_id = @user_id OR conversations.participant_b_id = @user_id)
			AND COALESCE(suppliers.company_name, clients.full_name, '') ILIKE @pattern
		ORDER BY conversations.last_activity_at DESC, conversations.id DESC
	`

	rows, err := c.db.Query(ctx, q, pgx.StrictNamedArgs{
		"user_id": userID,
		"pattern": containsPattern(query),
	})
	if err != nil {
		return nil, fmt.Errorf("sql search conversations: %w", err)
	}

	out, err := collectConversations(rows)
	if err != nil {
		return nil, fmt.Errorf("sql collect searched conversations: %w", err)
	}

	return out, nil
}
