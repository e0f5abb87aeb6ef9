package cockroach

import (
	"context"
	"fmt"

	"github.com/batimarket/batimarket/errs"
	"github.com/batimarket/batimarket/id"
	"github.com/batimarket/batimarket/types"
	"github.com/jackc/pgx/v5"
	"github.com/nicolasparada/go-db"
)

const notificationColumns = `
	notifications.id,
	notifications.user_id,
	notifications.kind,
	notifications.message,
	notifications.title,
	notifications.link,
	notifications.priority,
	notifications.read_at,
	notifications.created_at
`

func (c *Cockroach) CreateNotification(ctx context.Context, in types.CreateNotification) (types.Notification, error) {
	var out types.Notification

	q := `
		INSERT INTO notifications (id, user_id, kind, message, title, link, priority)
		VALUES (@notification_id, @user_id, @kind, @message, @title, @link, @priority)
		RETURNING ` + notificationColumns

	rows, err := c.db.Query(ctx, q, pgx.StrictNamedArgs{
		"notification_id": id.Generate(),
		"user_id":         in.UserID,
		"kind":            in.Kind,
		"message":         in.Message,
		"title":           in.Title,
		"link":            in.Link,
		"priority":        in.Priority,
	})
	if err != nil {
		return out, fmt.Errorf("sql insert notification: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Notification])
	if err != nil {
		return out, fmt.Errorf("sql collect inserted notification: %w", err)
	}

	return out, nil
}

func (c *Cockroach) Notifications(ctx context.Context, in types.ListNotifications) (types.Page[types.Notification], error) {
	var out types.Page[types.Notification]

	page, err := newKeysetPage(in.PageArgs)
	if err != nil {
		return out, err
	}

	args := pgx.StrictNamedArgs{
		"user_id": in.LoggedInUserID(),
	}
	filters := []string{"notifications.user_id = @user_id"}
	if in.UnreadOnly {
		filters = append(filters, "notifications.read_at IS NULL")
	}

	q := `SELECT ` + notificationColumns + ` FROM notifications` + page.clauses(filters, "notifications", args)

	rows, err := c.db.Query(ctx, q, args)
	if err != nil {
		return out, fmt.Errorf("sql select notifications: %w", err)
	}

	out.Items, err = pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.Notification])
	if err != nil {
		return out, fmt.Errorf("sql collect notifications: %w", err)
	}

	err = fillPage(&out, page, func(n types.Notification) keysetCursor {
		return keysetCursor{ID: n.ID, CreatedAt: n.CreatedAt}
	})
	if err != nil {
		return out, err
	}

	return out, nil
}

func (c *Cockroach) UnreadNotificationsCount(ctx context.Context, userID string) (int64, error) {
	const q = `
		SELECT count(*) FROM notifications
		WHERE user_id = @user_id AND read_at IS NULL
	`

	var count int64
	err := c.db.QueryRow(ctx, q, pgx.StrictNamedArgs{
		"user_id": userID,
	}).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sql count unread notifications: %w", err)
	}

	return count, nil
}

// ReadNotification marks one of the caller notifications as read.
// Reading it again keeps the first read time.
func (c *Cockroach) ReadNotification(ctx context.Context, in types.ReadNotification) (types.Notification, error) {
	var out types.Notification

	q := `
		UPDATE notifications
		SET read_at = COALESCE(read_at, now())
		WHERE id = @notification_id AND user_id = @user_id
		RETURNING ` + notificationColumns

	rows, err := c.db.Query(ctx, q, pgx.StrictNamedArgs{
		"notification_id": in.NotificationID,
		"user_id":         in.LoggedInUserID(),
	})
	if err != nil {
		return out, fmt.Errorf("sql update notification read_at: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Notification])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("notification not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect read notification: %w", err)
	}

	return out, nil
}

func (c *Cockroach) ReadAllNotifications(ctx context.Context, userID string) (int64, error) {
	const q = `
		UPDATE notifications
		SET read_at = now()
		WHERE user_id = @user_id AND read_at IS NULL
	`

	tag, err := c.db.Exec(ctx, q, pgx.StrictNamedArgs{
		"user_id": userID,
	})
	if err != nil {
		return 0, fmt.Errorf("sql update all notifications read_at: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (c *Cockroach) DeleteNotification(ctx context.Context, in types.DeleteNotification) error {
	const q = `
		DELETE FROM notifications
		WHERE id = @notification_id AND user_id = @user_id
	`

	tag, err := c.db.Exec(ctx, q, pgx.StrictNamedArgs{
		"notification_id": in.NotificationID,
		"user_id":         in.LoggedInUserID(),
	})
	if err != nil {
		return fmt.Errorf("sql delete notification: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return errs.NewNotFoundError("notification not found")
	}

	return nil
}
