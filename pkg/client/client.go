// Package client connects to a session table over its WebSocket channel,
// mirrors the broadcast state locally, and encodes the table commands. One
// Client is one seat at the table.
package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/mesahub/mesa-backend/pkg/types"
)

// DefaultHealthDebounce is how long the editor waits after the last health
// edit before committing the delta.
const DefaultHealthDebounce = 750 * time.Millisecond

// conn is the transport the read loop and encoder run on. The websocket
// dialer produces the real one; tests inject their own.
type conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	return data, err
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "")
}

// Client mirrors one user's view of the session table.
type Client struct {
	// HealthDebounce can be shortened before dialing; the tests do.
	HealthDebounce time.Duration

	log    *zap.Logger
	state  *State
	editor *Editor

	mu        sync.Mutex
	conn      conn
	connected bool
	cancel    context.CancelFunc
}

// New builds a disconnected client. A nil logger is replaced with a no-op one.
func New(log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		HealthDebounce: DefaultHealthDebounce,
		log:            log,
		state:          newState(),
	}
	c.editor = newEditor(c)
	return c
}

// State exposes the local mirror of the broadcast slices.
func (c *Client) State() *State { return c.state }

// Editor exposes the optimistic working copy of the character sheet.
func (c *Client) Editor() *Editor { return c.editor }

// Dial opens the channel for userID against a server base URL such as
// http://localhost:8080. A client holds at most one connection: dialing
// while connected closes the old connection first.
func (c *Client) Dial(ctx context.Context, baseURL, userID string) error {
	ws, _, err := websocket.Dial(ctx, baseURL+"/ws/"+userID, nil)
	if err != nil {
		return err
	}
	c.start(&wsConn{c: ws})
	return nil
}

// start wires a transport in and launches the read loop.
func (c *Client) start(cn conn) {
	c.mu.Lock()
	if c.conn != nil {
		c.cancel()
		_ = c.conn.Close()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.conn = cn
	c.connected = true
	c.cancel = cancel
	c.mu.Unlock()

	go c.readLoop(ctx, cn)
}

// Connected reports whether the channel is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears the connection down. The mirrored state stays readable.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.cancel()
	err := c.conn.Close()
	c.conn = nil
	c.connected = false
	return err
}

// readLoop decodes envelopes until the transport fails. There is no
// reconnect; a dead conn leaves the client disconnected until the caller
// dials again.
func (c *Client) readLoop(ctx context.Context, cn conn) {
	for {
		data, err := cn.Read(ctx)
		if err != nil {
			c.mu.Lock()
			if c.conn == cn {
				c.connected = false
			}
			c.mu.Unlock()
			return
		}
		c.dispatch(data)
	}
}

// dispatch routes one envelope into the state store. Malformed payloads are
// logged and dropped; the stream keeps going.
func (c *Client) dispatch(data []byte) {
	var env types.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.log.Warn("bad envelope", zap.Error(err))
		return
	}

	switch env.Type {
	case types.SliceUsers:
		var users []types.User
		if err := json.Unmarshal(env.Data, &users); err != nil {
			c.log.Warn("bad users payload", zap.Error(err))
			return
		}
		c.state.setUsers(users)
	case types.SliceMessages:
		var msgs []types.ChatMessage
		if err := json.Unmarshal(env.Data, &msgs); err != nil {
			c.log.Warn("bad messages payload", zap.Error(err))
			return
		}
		c.state.setMessages(msgs)
	case types.SliceCharacter:
		var ch types.Character
		if err := json.Unmarshal(env.Data, &ch); err != nil {
			c.log.Warn("bad character payload", zap.Error(err))
			return
		}
		c.state.setCharacter(ch)
		c.editor.reset(ch)
	case types.SliceSharedItems:
		var items []types.Item
		if err := json.Unmarshal(env.Data, &items); err != nil {
			c.log.Warn("bad shared items payload", zap.Error(err))
			return
		}
		c.state.setSharedItems(items)
	case types.SliceSharedAbilities:
		var abilities []types.Ability
		if err := json.Unmarshal(env.Data, &abilities); err != nil {
			c.log.Warn("bad shared abilities payload", zap.Error(err))
			return
		}
		c.state.setSharedAbilities(abilities)
	case types.SliceNPCs:
		var npcs []types.NPC
		if err := json.Unmarshal(env.Data, &npcs); err != nil {
			c.log.Warn("bad npcs payload", zap.Error(err))
			return
		}
		c.state.setNPCs(npcs)
	default:
		c.log.Debug("unknown envelope type", zap.String("type", env.Type))
	}
}

// send encodes one command onto the channel. While disconnected it is a
// silent no-op; optimistic local edits already happened and the canonical
// state arrives on the next successful connection anyway.
func (c *Client) send(msg types.ClientMessage) {
	c.mu.Lock()
	cn, ok := c.conn, c.connected
	c.mu.Unlock()
	if !ok || cn == nil {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("encode command", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	if err := cn.Write(context.Background(), data); err != nil {
		c.log.Warn("write command", zap.String("type", msg.Type), zap.Error(err))
	}
}
