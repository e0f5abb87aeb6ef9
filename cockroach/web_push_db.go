package cockroach

import (
	"context"
	"fmt"

	"github.com/batimarket/batimarket/id"
	"github.com/batimarket/batimarket/types"
	"github.com/jackc/pgx/v5"
)

// UpsertWebPushSubscription stores the subscription of userID.
// An endpoint re-registered by another user moves to that user.
func (c *Cockroach) UpsertWebPushSubscription(ctx context.Context, in types.SubscribeWebPush) error {
	const q = `
		INSERT INTO web_push_subscriptions (id, user_id, endpoint, auth_key, p256dh_key)
		VALUES (@subscription_id, @user_id, @endpoint, @auth_key, @p256dh_key)
		ON CONFLICT (endpoint) DO UPDATE
		SET user_id = excluded.user_id,
			auth_key = excluded.auth_key,
			p256dh_key = excluded.p256dh_key
	`

	_, err := c.db.Exec(ctx, q, pgx.StrictNamedArgs{
		"subscription_id": id.Generate(),
		"user_id":         in.LoggedInUserID(),
		"endpoint":        in.Endpoint,
		"auth_key":        in.Keys.Auth,
		"p256dh_key":      in.Keys.P256dh,
	})
	if err != nil {
		return fmt.Errorf("sql upsert web push subscription: %w", err)
	}

	return nil
}

func (c *Cockroach) WebPushSubscriptions(ctx context.Context, userID string) ([]types.WebPushSubscription, error) {
	const q = `
		SELECT id, user_id, endpoint, auth_key, p256dh_key, created_at
		FROM web_push_subscriptions
		WHERE user_id = @user_id
		ORDER BY created_at DESC
	`

	rows, err := c.db.Query(ctx, q, pgx.StrictNamedArgs{
		"user_id": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("sql select web push subscriptions: %w", err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.WebPushSubscription])
	if err != nil {
		return nil, fmt.Errorf("sql collect web push subscriptions: %w", err)
	}

	return out, nil
}

// DeleteWebPushSubscription removes the endpoint of userID.
// An empty userID removes the endpoint whoever owns it, which is what
// the push sender does once the endpoint is gone.
func (c *Cockroach) DeleteWebPushSubscription(ctx context.Context, userID, endpoint string) error {
	q := `DELETE FROM web_push_subscriptions WHERE endpoint = @endpoint`
	args := pgx.StrictNamedArgs{
		"endpoint": endpoint,
	}
	if userID != "" {
		q += ` AND user_id = @user_id`
		args["user_id"] = userID
	}

	_, err := c.db.Exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("sql delete web push subscription: %w", err)
	}

	return nil
}
