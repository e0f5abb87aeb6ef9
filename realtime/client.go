package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4 << 10
	sendBufferSize = 64
)

// InboundEvent is what a client writes on its socket.
type InboundEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Inbound handles the events a client writes on its socket.
// Returned errors are reported back to that socket only.
type Inbound func(ctx context.Context, ev InboundEvent) error

// Client is a websocket connection of a single user.
type Client struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

func NewClient(ws *websocket.Conn) (*Client, error) {
	connID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate connection id: %w", err)
	}

	return &Client{
		id:   connID,
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}, nil
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// abort stops both pumps. Closing the socket unblocks a pending read.
func (c *Client) abort() {
	c.close()
	c.ws.Close()
}

// Serve subscribes the socket to userID and pumps it until the peer goes
// away or ctx is done. The socket is closed on return.
func (g *Gateway) Serve(ctx context.Context, ws *websocket.Conn, userID string, inbound Inbound) error {
	c, err := NewClient(ws)
	if err != nil {
		ws.Close()
		return err
	}

	if err := g.Subscribe(c, userID); err != nil {
		ws.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Go(func() {
		c.writePump(ctx)
	})

	err = c.readPump(ctx, inbound)
	canceled := ctx.Err() != nil

	g.Disconnect(c)
	c.close()
	cancel()
	wg.Wait()
	ws.Close()

	if canceled || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return nil
	}

	return err
}

func (c *Client) readPump(ctx context.Context, inbound Inbound) error {
	c.ws.SetReadLimit(maxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return err
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, r, err := c.ws.NextReader()
		if err != nil {
			return err
		}

		b, err := io.ReadAll(r)
		if err != nil {
			return err
		}

		// Undecodable frames leave the socket open.
		var ev InboundEvent
		if err := json.Unmarshal(b, &ev); err != nil {
			c.reportError(fmt.Errorf("malformed event: %w", err))
			continue
		}

		if inbound == nil {
			continue
		}

		if err := inbound(ctx, ev); err != nil {
			c.reportError(err)
		}
	}
}

func (c *Client) reportError(err error) {
	b, mErr := json.Marshal(map[string]any{
		"event": "error",
		"data":  map[string]string{"error": err.Error()},
	})
	if mErr != nil {
		return
	}
	c.Send(b)
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			c.abort()
			return
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.abort()
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.abort()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.abort()
				return
			}
		}
	}
}
