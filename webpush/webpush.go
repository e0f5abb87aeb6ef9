// Package webpush delivers notifications to the browsers of offline users.
package webpush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/batimarket/batimarket/types"
)

const ttl = 60 * 60 * 24

type Store interface {
	WebPushSubscriptions(ctx context.Context, userID string) ([]types.WebPushSubscription, error)
	DeleteWebPushSubscription(ctx context.Context, userID, endpoint string) error
}

type Config struct {
	Store           Store
	Logger          *slog.Logger
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subscriber is a mailto: or https: contact sent to push services.
	Subscriber string
	HTTPClient webpush.HTTPClient
}

type Sender struct {
	store   Store
	logger  *slog.Logger
	options webpush.Options
}

func New(cfg Config) *Sender {
	return &Sender{
		store:  cfg.Store,
		logger: cfg.Logger,
		options: webpush.Options{
			Subscriber:      cfg.Subscriber,
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			TTL:             ttl,
			HTTPClient:      cfg.HTTPClient,
		},
	}
}

// Enabled reports whether VAPID keys were configured.
func (s *Sender) Enabled() bool {
	return s.options.VAPIDPublicKey != "" && s.options.VAPIDPrivateKey != ""
}

type payload struct {
	ID       string                     `json:"id"`
	Kind     types.NotificationKind     `json:"kind"`
	Title    *string                    `json:"title,omitempty"`
	Body     string                     `json:"body"`
	Link     *string                    `json:"link,omitempty"`
	Priority types.NotificationPriority `json:"priority"`
}

// Push sends n to every subscription of its user.
// Subscriptions the push service reports as gone are removed.
func (s *Sender) Push(ctx context.Context, n types.Notification) error {
	if !s.Enabled() {
		return nil
	}

	subs, err := s.store.WebPushSubscriptions(ctx, n.UserID)
	if err != nil {
		return err
	}

	if len(subs) == 0 {
		return nil
	}

	b, err := json.Marshal(payload{
		ID:       n.ID,
		Kind:     n.Kind,
		Title:    n.Title,
		Body:     n.Message,
		Link:     n.Link,
		Priority: n.Priority,
	})
	if err != nil {
		return fmt.Errorf("json marshal web push payload: %w", err)
	}

	opts := s.options
	opts.Urgency = urgency(n.Priority)

	var errList []error
	for _, sub := range subs {
		if err := s.send(ctx, b, sub, &opts); err != nil {
			errList = append(errList, err)
		}
	}

	return errors.Join(errList...)
}

func (s *Sender) send(ctx context.Context, b []byte, sub types.WebPushSubscription, opts *webpush.Options) error {
	resp, err := webpush.SendNotificationWithContext(ctx, b, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.AuthKey,
			P256dh: sub.P256dhKey,
		},
	}, opts)
	if err != nil {
		return fmt.Errorf("send web push notification: %w", err)
	}

	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		s.logger.Info("removing expired web push subscription", "user_id", sub.UserID, "status", resp.StatusCode)
		return s.store.DeleteWebPushSubscription(ctx, "", sub.Endpoint)
	case resp.StatusCode >= 400:
		return fmt.Errorf("web push service responded with status %d", resp.StatusCode)
	}

	return nil
}

func urgency(p types.NotificationPriority) webpush.Urgency {
	switch p {
	case types.NotificationPriorityHigh:
		return webpush.UrgencyHigh
	case types.NotificationPriorityLow:
		return webpush.UrgencyLow
	}
	return webpush.UrgencyNormal
}
