package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"chatroom-service/internal/chat"
	"chatroom-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

const errTextRateLimited = "Rate limit exceeded"

// Settings are the per-connection socket limits.
type Settings struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	SendBuffer     int

	// EventsPerSecond <= 0 disables inbound throttling.
	EventsPerSecond float64
	EventBurst      int
}

func DefaultSettings() Settings {
	return Settings{
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		PingPeriod:      54 * time.Second,
		MaxMessageSize:  4096,
		SendBuffer:      256,
		EventsPerSecond: 10,
		EventBurst:      20,
	}
}

// Client is one WebSocket peer. It implements chat.Connection.
type Client struct {
	id       string
	conn     *websocket.Conn
	send     chan []byte
	limiter  *rate.Limiter
	settings Settings
	log      *logger.Logger

	done      chan struct{}
	closeOnce sync.Once
	// closeCode and closeText are set once, before done is closed.
	closeCode int
	closeText string
}

func newClient(settings Settings, log *logger.Logger) *Client {
	c := &Client{
		id:       uuid.New().String(),
		send:     make(chan []byte, settings.SendBuffer),
		settings: settings,
		done:     make(chan struct{}),
	}
	if settings.EventsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(settings.EventsPerSecond), settings.EventBurst)
	}
	c.log = log.With("connectionID", c.id)
	return c
}

func (c *Client) ID() string {
	return c.id
}

// Send queues ev for the write pump. A full queue closes the client so one
// slow reader cannot hold up a broadcast.
func (c *Client) Send(ev chat.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		c.log.Warn("send buffer full, closing connection", "event", ev.Name)
		c.Close()
		return ErrSendBufferFull
	}
}

// Close stops the write pump, which closes the socket and ends the read pump.
func (c *Client) Close() {
	c.closeWith(websocket.CloseNormalClosure, "")
}

// closeWith is Close with the status the peer sees in the close frame. Only
// the first call's status is used.
func (c *Client) closeWith(code int, text string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeText = text
		close(c.done)
	})
}

func (c *Client) allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}

// readPump runs until the socket fails, then reports the disconnect once.
func (c *Client) readPump(ctx context.Context, hub Coordinator) {
	defer func() {
		hub.Disconnect(c.id)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.settings.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.settings.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.settings.PongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read error", "error", err)
			} else {
				c.log.Debug("websocket closed", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if !c.allow() {
			hub.SendError(c.id, errTextRateLimited)
			continue
		}
		hub.HandleFrame(ctx, c.id, data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.settings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.settings.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("websocket write failed", "error", err)
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.settings.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(c.closeCode, c.closeText),
				time.Now().Add(c.settings.WriteWait))
			return
		}
	}
}
