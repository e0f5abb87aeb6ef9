package service

import (
	"context"
	"fmt"

	"github.com/batimarket/batimarket/types"
)

// Notify persists a notification for in.UserID, publishes it to their
// sockets and pushes it in the background to their registered browsers.
// Only persistence failures are returned.
func (svc *Service) Notify(ctx context.Context, in types.CreateNotification) (types.Notification, error) {
	var out types.Notification

	if err := in.Validate(); err != nil {
		return out, err
	}

	out, err := svc.Store.CreateNotification(ctx, in)
	if err != nil {
		return out, err
	}

	svc.publish(ctx, out.UserID, types.EventNotification, out)

	if svc.Pusher != nil {
		n := out
		svc.background(func(ctx context.Context) error {
			if err := svc.Pusher.Push(ctx, n); err != nil {
				svc.Metrics.PushFailures.Inc()
				return fmt.Errorf("web push notification %s: %w", n.ID, err)
			}
			return nil
		})
	}

	return out, nil
}

// notifyQuietly is used by the message flows, which never fail because
// of a notification.
func (svc *Service) notifyQuietly(ctx context.Context, in types.CreateNotification) {
	if _, err := svc.Notify(ctx, in); err != nil {
		svc.Metrics.NotificationFailures.Inc()
		svc.Logger.Error("notify", "user_id", in.UserID, "kind", in.Kind, "error", err)
	}
}

func (svc *Service) Notifications(ctx context.Context, in types.ListNotifications) (types.Page[types.Notification], error) {
	var out types.Page[types.Notification]

	me, err := caller(ctx)
	if err != nil {
		return out, err
	}

	if err := in.Validate(); err != nil {
		return out, err
	}

	in.SetLoggedInUserID(me.ID)

	out, err = svc.Store.Notifications(ctx, in)
	if err != nil {
		return out, err
	}

	if out.Items == nil {
		out.Items = []types.Notification{}
	}

	return out, nil
}

func (svc *Service) UnreadNotificationsCount(ctx context.Context) (types.Count, error) {
	var out types.Count

	me, err := caller(ctx)
	if err != nil {
		return out, err
	}

	out.Count, err = svc.Store.UnreadNotificationsCount(ctx, me.ID)
	return out, err
}

func (svc *Service) ReadNotification(ctx context.Context, in types.ReadNotification) (types.Notification, error) {
	var out types.Notification

	me, err := caller(ctx)
	if err != nil {
		return out, err
	}

	if err := in.Validate(); err != nil {
		return out, err
	}

	in.SetLoggedInUserID(me.ID)

	return svc.Store.ReadNotification(ctx, in)
}

func (svc *Service) ReadAllNotifications(ctx context.Context) (types.Count, error) {
	var out types.Count

	me, err := caller(ctx)
	if err != nil {
		return out, err
	}

	out.Count, err = svc.Store.ReadAllNotifications(ctx, me.ID)
	return out, err
}

func (svc *Service) DeleteNotification(ctx context.Context, in types.DeleteNotification) error {
	me, err := caller(ctx)
	if err != nil {
		return err
	}

	if err := in.Validate(); err != nil {
		return err
	}

	in.SetLoggedInUserID(me.ID)

	return svc.Store.DeleteNotification(ctx, in)
}

func (svc *Service) SubscribeWebPush(ctx context.Context, in types.SubscribeWebPush) error {
	me, err := caller(ctx)
	if err != nil {
		return err
	}

	if err := in.Validate(); err != nil {
		return err
	}

	in.SetLoggedInUserID(me.ID)

	return svc.Store.UpsertWebPushSubscription(ctx, in)
}

func (svc *Service) UnsubscribeWebPush(ctx context.Context, in types.UnsubscribeWebPush) error {
	me, err := caller(ctx)
	if err != nil {
		return err
	}

	if err := in.Validate(); err != nil {
		return err
	}

	return svc.Store.DeleteWebPushSubscription(ctx, me.ID, in.Endpoint)
}
