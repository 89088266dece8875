package varclient

import (
	"context"
	"fmt"
	"net/url"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"

	"github.com/variantdl/variantdl/common"
	"github.com/variantdl/variantdl/pkg/variantlib"
)

// EventHandler receives one progress event per push notification.
type EventHandler func(variantlib.Event)

// Subscribe opens a websocket subscription for the client's progress
// events and blocks until ctx is canceled or the connection drops.
func (c *Client) Subscribe(ctx context.Context, clientID string, onEvent EventHandler) error {
	if clientID == "" {
		return variantlib.ErrInvalidRequest
	}
	u := url.URL{
		Scheme:   "ws",
		Host:     c.host,
		Path:     "/ws",
		RawQuery: url.Values{"client_id": {clientID}}.Encode(),
	}
	conn, _, err := cws.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := &wsChannel{conn: conn, ctx: ctx, done: make(chan struct{})}
	cli := jrpc2.NewClient(ch, &jrpc2.ClientOptions{
		OnNotify: func(req *jrpc2.Request) {
			if req.Method() != common.NotifyProgress {
				return
			}
			var ev variantlib.Event
			if err := req.UnmarshalParams(&ev); err != nil {
				return
			}
			onEvent(ev)
		},
	})
	defer cli.Close()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch.done:
		return nil
	}
}

// wsChannel adapts a coder/websocket.Conn to the jrpc2 Channel
// interface. done is closed when the read side fails, which is how a
// dropped connection surfaces to Subscribe.
type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context
	done chan struct{}
}

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		select {
		case <-c.done:
		default:
			close(c.done)
		}
	}
	return data, err
}

func (c *wsChannel) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}
