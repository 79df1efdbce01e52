// Package ws maintains the realtime channel to the chat server: one logical
// connection per signed-in user, reconnected with backoff for as long as the
// user stays signed in, emitting typed events to a Handler and exposing
// fire-and-forget outbound actions.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"chat-client/models"
)

const (
	writeWait  = 30 * time.Second
	pongWait   = 300 * time.Second
	pingPeriod = 240 * time.Second
	readLimit  = 1 << 20
)

type Config struct {
	// URL is the websocket endpoint, e.g. ws://host/ws.
	URL string
	// Token authenticates the connection; it carries the user identity.
	Token string
	// Handler receives decoded server events.
	Handler Handler
	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration
	// ReconnectMin/ReconnectMax bound the exponential backoff between
	// reconnection attempts. Retries are unbounded in count.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	// TypingInterval is the minimum spacing between typing pings.
	TypingInterval time.Duration
	// OnConnect fires after each successful (re)connection, once room
	// subscriptions have been replayed. Optional.
	OnConnect func()
}

func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("ws: endpoint URL is required")
	}
	if c.Token == "" {
		return errors.New("ws: auth token is required")
	}
	if c.Handler == nil {
		return errors.New("ws: event handler is required")
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.ReconnectMin <= 0 {
		c.ReconnectMin = time.Second
	}
	if c.ReconnectMax < c.ReconnectMin {
		c.ReconnectMax = 30 * time.Second
	}
	if c.TypingInterval <= 0 {
		c.TypingInterval = 2 * time.Second
	}
	return nil
}

type Client struct {
	cfg    Config
	typing *rate.Limiter

	out   chan envelope
	nudge chan struct{}
	done  chan struct{}
	once  sync.Once

	connected atomic.Bool

	mu     sync.Mutex
	joined map[int64]struct{}
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:    cfg,
		typing: rate.NewLimiter(rate.Every(cfg.TypingInterval), 1),
		out:    make(chan envelope, 64),
		nudge:  make(chan struct{}, 1),
		done:   make(chan struct{}),
		joined: make(map[int64]struct{}),
	}, nil
}

// Run dials and serves the connection until Close or context cancellation.
// Dial failures and dropped connections are retried forever with capped
// exponential backoff; Nudge short-circuits the wait.
func (c *Client) Run(ctx context.Context) {
	backoff := c.cfg.ReconnectMin
	for {
		if c.closed(ctx) {
			return
		}

		conn, err := c.dial(ctx)
		if err != nil {
			log.Printf("ws: dial %s failed: %v (retrying in %v)", c.cfg.URL, err, backoff)
			select {
			case <-time.After(backoff):
				// only a timed-out wait inflates the backoff; a nudged
				// retry keeps the next automatic delay where it was
				backoff = min(backoff*2, c.cfg.ReconnectMax)
			case <-c.nudge:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
			continue
		}

		backoff = c.cfg.ReconnectMin
		c.connected.Store(true)
		c.rejoin()
		if c.cfg.OnConnect != nil {
			c.cfg.OnConnect()
		}
		c.serve(ctx, conn)
		c.connected.Store(false)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", c.cfg.Token)
	u.RawQuery = q.Encode()
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	return conn, err
}

// serve runs the write pump and read loop for one connection and returns
// when either side fails or the client shuts down.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	connDone := make(chan struct{})
	var closeConn sync.Once
	shutdown := func() {
		closeConn.Do(func() {
			close(connDone)
			conn.Close()
		})
	}
	defer shutdown()

	go func() {
		defer shutdown()
		c.writePump(conn, connDone)
	}()
	go func() {
		select {
		case <-ctx.Done():
		case <-c.done:
		case <-connDone:
		}
		shutdown()
	}()

	c.readPump(conn)
}

func (c *Client) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !c.closed(context.Background()) {
				log.Printf("ws: read error: %v", err)
			}
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) writePump(conn *websocket.Conn, connDone <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case env := <-c.out:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				log.Printf("ws: write error: %v", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("ws: ping error: %v", err)
				return
			}
		case <-connDone:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) dispatch(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("ws: bad frame: %v", err)
		return
	}

	switch env.Type {
	case EvMessageNew, EvMessageUpdate, EvMessageDelete:
		var msg models.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil || msg.ID == 0 {
			log.Printf("ws: dropping malformed %s payload", env.Type)
			return
		}
		c.cfg.Handler.HandleMessage(msg)
	case EvConversationNew:
		var conv models.Conversation
		if err := json.Unmarshal(env.Data, &conv); err != nil || conv.ID == 0 {
			log.Printf("ws: dropping malformed %s payload", env.Type)
			return
		}
		c.cfg.Handler.HandleConversation(conv)
	case EvUserOnline, EvUserOffline:
		var p presencePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		c.cfg.Handler.HandlePresence(p.UserID, env.Type == EvUserOnline)
	case EvUserTyping:
		var p typingEventPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		c.cfg.Handler.HandleTyping(p.ConversationID, p.UserID)
	}
}

// Join subscribes to a conversation's event room. Subscriptions made while
// disconnected are sent on connect, and all of them are replayed after a
// reconnect.
func (c *Client) Join(conversationID int64) {
	c.mu.Lock()
	c.joined[conversationID] = struct{}{}
	c.mu.Unlock()
	if c.connected.Load() {
		c.enqueue(actJoin, joinPayload{ConversationID: conversationID})
	}
}

// Send queues a new message. Fire-and-forget: delivery is confirmed only by
// the message:new event coming back from the server.
func (c *Client) Send(conversationID int64, content string, replyToID *int64) {
	c.enqueue(actSend, sendPayload{
		ConversationID: conversationID,
		Content:        content,
		ReplyToID:      replyToID,
	})
}

// Typing sends a typing ping, throttled so keystroke-driven callers cannot
// flood the channel.
func (c *Client) Typing(conversationID int64) {
	if !c.typing.Allow() {
		return
	}
	c.enqueue(actTyping, typingPayload{ConversationID: conversationID})
}

// Nudge asks for an immediate reconnection attempt instead of waiting out
// the backoff timer, for callers that detect connectivity returning.
func (c *Client) Nudge() {
	select {
	case c.nudge <- struct{}{}:
	default:
	}
}

// Connected reports whether the channel is currently established.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Close tears the connection down and stops all reconnection attempts. Safe
// to call more than once.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Client) enqueue(typ string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	select {
	case c.out <- envelope{Type: typ, Data: data}:
	default:
		log.Printf("ws: outbound queue full, dropping %s", typ)
	}
}

// rejoin replays room subscriptions after a reconnect, in a stable order.
func (c *Client) rejoin() {
	c.mu.Lock()
	ids := make([]int64, 0, len(c.joined))
	for id := range c.joined {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		c.enqueue(actJoin, joinPayload{ConversationID: id})
	}
}

func (c *Client) closed(ctx context.Context) bool {
	select {
	case <-c.done:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
