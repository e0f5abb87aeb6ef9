// Package realtime delivers events to the sockets of connected users.
//
// Every user has a room holding all their local sockets. A room exists
// only while it has at least one socket, and owns the broker subscription
// to the user topic, so an event published from any instance reaches
// every socket of the user on every instance.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/batimarket/batimarket/errs"
	"github.com/batimarket/batimarket/pubsub"
	"github.com/batimarket/batimarket/types"
	"github.com/vmihailenco/msgpack/v5"
)

// Conn is a single socket as seen by the gateway.
type Conn interface {
	ID() string
	// Send must not block. It reports false when data was dropped.
	Send(data []byte) bool
}

type Gateway struct {
	pubsub  pubsub.PubSub
	logger  *slog.Logger
	metrics *Metrics

	mu    sync.RWMutex
	rooms map[string]*room
	// userIDs by conn id.
	memberships map[string]map[string]struct{}
}

type room struct {
	conns map[string]Conn
	unsub func() error
}

func New(ps pubsub.PubSub, logger *slog.Logger, metrics *Metrics) *Gateway {
	return &Gateway{
		pubsub:      ps,
		logger:      logger,
		metrics:     metrics,
		rooms:       map[string]*room{},
		memberships: map[string]map[string]struct{}{},
	}
}

func topic(userID string) string {
	return "batimarket.user." + userID
}

// Subscribe adds conn to the room of userID.
// Subscribing the same conn twice is a no-op.
func (g *Gateway) Subscribe(conn Conn, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[userID]
	if !ok {
		unsub, err := g.pubsub.Sub(topic(userID), func(data []byte) {
			g.deliver(userID, data)
		})
		if err != nil {
			return fmt.Errorf("subscribe to user topic: %w", err)
		}

		r = &room{conns: map[string]Conn{}, unsub: unsub}
		g.rooms[userID] = r
	}

	if _, ok := r.conns[conn.ID()]; ok {
		return nil
	}

	r.conns[conn.ID()] = conn

	m, ok := g.memberships[conn.ID()]
	if !ok {
		m = map[string]struct{}{}
		g.memberships[conn.ID()] = m
		g.metrics.Connections.Inc()
	}
	m[userID] = struct{}{}

	return nil
}

// Disconnect removes conn from every room it joined.
// Rooms left empty release their broker subscription.
func (g *Gateway) Disconnect(conn Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.memberships[conn.ID()]
	if !ok {
		return
	}

	delete(g.memberships, conn.ID())
	g.metrics.Connections.Dec()

	for userID := range m {
		r, ok := g.rooms[userID]
		if !ok {
			continue
		}

		delete(r.conns, conn.ID())
		if len(r.conns) != 0 {
			continue
		}

		delete(g.rooms, userID)
		if err := r.unsub(); err != nil {
			g.logger.Error("release user topic", "user_id", userID, "error", err)
		}
	}
}

// Publish sends ev to every socket of userID across instances.
// Nobody listening is not an error.
func (g *Gateway) Publish(ctx context.Context, userID string, ev types.Event) error {
	b, err := msgpack.Marshal(ev)
	if err != nil {
		return fmt.Errorf("msgpack marshal event: %w", err)
	}

	if err := g.pubsub.Pub(ctx, topic(userID), b); err != nil {
		if errs.KindOf(err) != "" {
			return err
		}
		return errs.NewUnavailableError("publish event", err)
	}

	g.metrics.Published.WithLabelValues(ev.Name.String()).Inc()

	return nil
}

func (g *Gateway) deliver(userID string, data []byte) {
	var ev types.Event
	if err := msgpack.Unmarshal(data, &ev); err != nil {
		g.logger.Error("decode broker event", "user_id", userID, "error", err)
		return
	}

	frame, err := json.Marshal(ev)
	if err != nil {
		g.logger.Error("encode socket frame", "user_id", userID, "event", ev.Name, "error", err)
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.rooms[userID]
	if !ok {
		return
	}

	for _, conn := range r.conns {
		if conn.Send(frame) {
			g.metrics.Delivered.Inc()
			continue
		}

		g.metrics.Dropped.Inc()
		g.logger.Warn("socket buffer full, event dropped", "user_id", userID, "conn_id", conn.ID(), "event", ev.Name)
	}
}

// Online reports whether userID has a socket on this instance.
func (g *Gateway) Online(userID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.rooms[userID]
	return ok
}
