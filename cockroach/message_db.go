package cockroach

import (
	"context"
	"fmt"
	"slices"

	"github.com/batimarket/batimarket/errs"
	"github.com/batimarket/batimarket/id"
	"github.com/batimarket/batimarket/types"
	"github.com/jackc/pgx/v5"
	"github.com/nicolasparada/go-db"
)

const messageColumns = `
	messages.id,
	messages.conversation_id,
	messages.sender_id,
	messages.sender_kind,
	messages.kind,
	messages.content,
	messages.attachments,
	messages.product,
	messages.reply_to_id,
	messages.is_edited,
	messages.edited_at,
	messages.is_deleted,
	messages.deleted_at,
	messages.created_at,
	messages.updated_at,
	COALESCE((
		SELECT json_agg(json_build_object(
			'readerID', message_reads.reader_id,
			'readAt', message_reads.read_at
		) ORDER BY message_reads.read_at, message_reads.reader_id)
		FROM message_reads
		WHERE message_reads.message_id = messages.id
	), '[]'::JSON) AS read_by,
	COALESCE((
		SELECT json_agg(json_build_object(
			'reactorID', message_reactions.reactor_id,
			'emoji', message_reactions.emoji
		) ORDER BY message_reactions.created_at, message_reactions.reactor_id)
		FROM message_reactions
		WHERE message_reactions.message_id = messages.id
	), '[]'::JSON) AS reactions
`

// CreateMessage checks, in the same transaction as the insert, that the
// conversation exists, that the sender belongs to it, that it is not
// blocked and that the replied message lives in the same conversation.
func (c *Cockroach) CreateMessage(ctx context.Context, in types.CreateMessage) (types.Message, error) {
	var out types.Message
	err := c.db.RunTx(ctx, func(ctx context.Context) error {
		conversation, err := c.Conversation(ctx, in.ConversationID)
		if err != nil {
			return err
		}

		if !conversation.HasParticipant(in.Sender.ID) {
			return errs.NewPermissionDeniedError("not a participant of the conversation")
		}

		if conversation.Blocked {
			return errs.NewPermissionDeniedError("conversation is blocked")
		}

		if in.ReplyToID != nil {
			ok, err := c.messageInConversation(ctx, *in.ReplyToID, in.ConversationID)
			if err != nil {
				return err
			}

			if !ok {
				return errs.NewInvalidArgumentError("ReplyToID", "replied message not found in this conversation")
			}
		}

		created, err := c.createMessage(ctx, in)
		if err != nil {
			return err
		}

		out, err = c.Message(ctx, created.ID)
		return err
	})
	return out, err
}

func (c *Cockroach) createMessage(ctx context.Context, in types.CreateMessage) (types.Created, error) {
	var out types.Created

	const q = `
		INSERT INTO messages (
			id,
			conversation_id,
			sender_id,
			sender_kind,
			kind,
			content,
			attachments,
			product,
			reply_to_id
		)
		VALUES (
			@message_id,
			@conversation_id,
			@sender_id,
			@sender_kind,
			@kind,
			@content,
			@attachments,
			@product,
			@reply_to_id
		)
		RETURNING id, created_at
	`

	attachments := in.Attachments
	if attachments == nil {
		attachments = []types.Attachment{}
	}

	rows, err := c.db.Query(ctx, q, pgx.StrictNamedArgs{
		"message_id":      id.Generate(),
		"conversation_id": in.ConversationID,
		"sender_id":       in.Sender.ID,
		"sender_kind":     in.Sender.Kind,
		"kind":            in.Kind,
		"content":         in.Content,
		"attachments":     attachments,
		"product":         in.Product,
		"reply_to_id":     in.ReplyToID,
	})
	if err != nil {
		return out, fmt.Errorf("sql insert message: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Created])
	if err != nil {
		return out, fmt.Errorf("sql collect inserted message: %w", err)
	}

	return out, nil
}

func (c *Cockroach) messageInConversation(ctx context.Context, messageID, conversationID string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM messages
			WHERE id = @message_id AND conversation_id = @conversation_id
		)
	`

	var exists bool
	err := c.db.QueryRow(ctx, q, pgx.StrictNamedArgs{
		"message_id":      messageID,
		"conversation_id": conversationID,
	}).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sql check message in conversation: %w", err)
	}

	return exists, nil
}

// Message by id, soft-deleted included.
func (c *Cockroach) Message(ctx context.Context, messageID string) (types.Message, error) {
	var out types.Message

	q := `SELECT ` + messageColumns + `
		FROM messages
		WHERE messages.id = @message_id
	`

	rows, err := c.db.Query(ctx, q, pgx.StrictNamedArgs{
		"message_id": messageID,
	})
	if err != nil {
		return out, fmt.Errorf("sql select message: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Message])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("message not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect message: %w", err)
	}

	return out, nil
}

// Messages returns one page of non-deleted messages.
// Pages are counted from the newest message but each page is returned in
// chronological order.
func (c *Cockroach) Messages(ctx context.Context, in types.ListMessages) ([]types.Message, error) {
	q := `SELECT ` + messageColumns + `
		FROM messages
		WHERE messages.conversation_id = @conversation_id
			AND NOT messages.is_deleted
		ORDER BY messages.created_at DESC, messages.id DESC
		LIMIT @limit OFFSET @offset
	`

	rows, err := c.db.Query(ctx, q, pgx.StrictNamedArgs{
		"conversation_id": in.ConversationID,
		"limit":           in.PageSize,
		"offset":          in.Offset(),
	})
	if err != nil {
		return nil, fmt.Errorf("sql select messages: %w", err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.Message])
	if err != nil {
		return nil, fmt.Errorf("sql collect messages: %w", err)
	}

	slices.Reverse(out)

	return out, nil
}

// LastMessage of the conversation that is still visible.
func (c *Cockroach) LastMessage(ctx context.Context, conversationID string) (types.Message, error) {
	var out types.Message

	q := `SELECT ` + messageColumns + `
		FROM messages
		WHERE messages.conversation_id = @conversation_id
			AND NOT messages.is_deleted
		ORDER BY messages.created_at DESC, messages.id DESC
		LIMIT 1
	`

	rows, err := c.db.Query(ctx, q, pgx.StrictNamedArgs{
		"conversation_id": conversationID,
	})
	if err != nil {
		return out, fmt.Errorf("sql select last message: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Message])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("message not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect last message: %w", err)
	}

	return out, nil
}

// MarkConversationRead adds a read entry for readerID to every visible
// message of the other participant that lacks one.
// It returns how many entries were added, so calling it twice yields 0.
func (c *Cockroach) MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	const q = `
		INSERT INTO message_reads (message_id, reader_id, read_at)
		SELECT messages.id, @reader_id, now()
		FROM messages
		WHERE messages.conversation_id = @conversation_id
			AND messages.sender_id != @reader_id
			AND NOT messages.is_deleted
		ON CONFLICT (message_id, reader_id) DO NOTHING
	`

	tag, err := c.db.Exec(ctx, q, pgx.StrictNamedArgs{
		"conversation_id": conversationID,
		"reader_id":       readerID,
	})
	if err != nil {
		return 0, fmt.Errorf("sql insert message reads: %w", err)
	}

	return tag.RowsAffected(), nil
}

// EditMessage replaces the content of a message owned by senderID.
func (c *Cockroach) EditMessage(ctx context.Context, messageID, senderID, content string) (types.Message, error) {
	var out types.Message
	err := c.db.RunTx(ctx, func(ctx context.Context) error {
		msg, err := c.Message(ctx, messageID)
		if err != nil {
			return err
		}

		if msg.IsDeleted {
			return errs.NewNotFoundError("message not found")
		}

		if msg.SenderID != senderID {
			return errs.NewPermissionDeniedError("only the sender can edit a message")
		}

		const q = `
			UPDATE messages
			SET content = @content,
				is_edited = true,
				edited_at = now(),
				updated_at = now()
			WHERE id = @message_id
				AND sender_id = @sender_id
				AND NOT is_deleted
		`

		_, err = c.db.Exec(ctx, q, pgx.StrictNamedArgs{
			"message_id": messageID,
			"sender_id":  senderID,
			"content":    content,
		})
		if err != nil {
			return fmt.Errorf("sql update message content: %w", err)
		}

		out, err = c.Message(ctx, messageID)
		return err
	})
	return out, err
}

// DeleteMessage soft deletes a message owned by senderID.
// The returned flag is false when the message was already deleted.
func (c *Cockroach) DeleteMessage(ctx context.Context, messageID, senderID string) (types.Message, bool, error) {
	var (
		out     types.Message
		deleted bool
	)
	err := c.db.RunTx(ctx, func(ctx context.Context) error {
		msg, err := c.Message(ctx, messageID)
		if err != nil {
			return err
		}

		if msg.SenderID != senderID {
			return errs.NewPermissionDeniedError("only the sender can delete a message")
		}

		if msg.IsDeleted {
			out = msg
			return nil
		}

		const q = `
			UPDATE messages
			SET is_deleted = true,
				deleted_at = now(),
				updated_at = now()
			WHERE id = @message_id
				AND sender_id = @sender_id
				AND NOT is_deleted
		`

		_, err = c.db.Exec(ctx, q, pgx.StrictNamedArgs{
			"message_id": messageID,
			"sender_id":  senderID,
		})
		if err != nil {
			return fmt.Errorf("sql soft delete message: %w", err)
		}

		out, err = c.Message(ctx, messageID)
		if err != nil {
			return err
		}

		deleted = true
		return nil
	})
	return out, deleted, err
}

// ReactToMessage sets the single reaction of reactorID on a message.
// A later reaction replaces the previous one.
func (c *Cockroach) ReactToMessage(ctx context.Context, messageID, reactorID, emoji string) (types.Message, error) {
	var out types.Message
	err := c.db.RunTx(ctx, func(ctx context.Context) error {
		msg, err := c.Message(ctx, messageID)
		if err != nil {
			return err
		}

		if msg.IsDeleted {
			return errs.NewNotFoundError("message not found")
		}

		const q = `
			INSERT INTO message_reactions (message_id, reactor_id, emoji)
			VALUES (@message_id, @reactor_id, @emoji)
			ON CONFLICT (message_id, reactor_id) DO UPDATE
			SET emoji = excluded.emoji,
				updated_at = now()
		`

		_, err = c.db.Exec(ctx, q, pgx.StrictNamedArgs{
			"message_id": messageID,
			"reactor_id": reactorID,
			"emoji":      emoji,
		})
		if err != nil {
			return fmt.Errorf("sql upsert message reaction: %w", err)
		}

		out, err = c.Message(ctx, messageID)
		return err
	})
	return out, err
}
