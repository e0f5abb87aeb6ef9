package pubsub

import (
	"context"
	"errors"
	"fmt"

	"github.com/batimarket/batimarket/errs"
	"github.com/nats-io/nats.go"
)

// NATS fans out through a NATS server so that every instance
// subscribed to a topic receives what any instance publishes.
type NATS struct {
	Conn *nats.Conn
}

// DialNATS connects to url and retries reconnects forever.
func DialNATS(url, name string) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &NATS{Conn: conn}, nil
}

func (n *NATS) Pub(ctx context.Context, topic string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := n.Conn.Publish(topic, data); err != nil {
		return errs.NewUnavailableError("publish to broker", err)
	}

	return nil
}

func (n *NATS) Sub(topic string, cb func([]byte)) (func() error, error) {
	sub, err := n.Conn.Subscribe(topic, func(msg *nats.Msg) {
		cb(msg.Data)
	})
	if err != nil {
		return nil, errs.NewUnavailableError("subscribe to broker", err)
	}

	return func() error {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) && !errors.Is(err, nats.ErrBadSubscription) {
			return fmt.Errorf("nats unsubscribe %s: %w", topic, err)
		}
		return nil
	}, nil
}

// Close drains pending messages and closes the connection.
func (n *NATS) Close() error {
	if err := n.Conn.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}
