// Package pubsub moves opaque payloads between processes by topic.
//
// Delivery is best effort: a payload published while nobody is
// subscribed to its topic is lost, and nothing is retried.
package pubsub

import "context"

type PubSub interface {
	Pub(ctx context.Context, topic string, data []byte) error
	// Sub registers cb for topic until the returned unsub is called.
	// cb must not block.
	Sub(topic string, cb func(data []byte)) (unsub func() error, err error)
}
