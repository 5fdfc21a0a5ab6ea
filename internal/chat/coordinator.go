package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"chatroom-service/internal/models"
	"chatroom-service/internal/repository"
	"chatroom-service/pkg/logger"
)

var (
	ErrAuthentication  = errors.New("authentication failed")
	ErrProfileNotFound = errors.New("user profile not found")
)

const DefaultRecentLimit = 50

// Connection is the coordinator's view of one client socket.
type Connection interface {
	ID() string
	// Send enqueues ev without blocking. An error means the connection is
	// being closed and will disconnect on its own.
	Send(ev Event) error
	Close()
}

type TokenVerifier interface {
	Verify(token string) (uint, error)
}

type UserDirectory interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

type MessageStore interface {
	Create(ctx context.Context, authorID uint, content string) (*models.Message, error)
	FindRecent(ctx context.Context, limit int) ([]models.Message, error)
}

// PresenceMirror publishes online state outside the process.
type PresenceMirror interface {
	SetUserOnline(ctx context.Context, userID uint) error
	SetUserOffline(ctx context.Context, userID uint) error
}

// MessagePolicy decides which message bodies are accepted.
type MessagePolicy struct {
	AllowEmpty bool
	MaxLength  int // in characters, 0 means unlimited
}

func (p MessagePolicy) check(content string) string {
	if !p.AllowEmpty && content == "" {
		return "Message cannot be empty"
	}
	if p.MaxLength > 0 && utf8.RuneCountInString(content) > p.MaxLength {
		return fmt.Sprintf("Message exceeds %d characters", p.MaxLength)
	}
	return ""
}

type Options struct {
	RecentLimit int
	Policy      MessagePolicy
	Presence    PresenceMirror // optional
	Logger      *logger.Logger
}

// Coordinator owns the chat room: who is connected, and who receives what.
type Coordinator struct {
	tokens   TokenVerifier
	users    UserDirectory
	messages MessageStore
	presence PresenceMirror

	recentLimit int
	policy      MessagePolicy
	log         *logger.Logger

	registry *Registry

	presenceQueue chan uint
	stopPresence  chan struct{}
	presenceDone  chan struct{}
	closeOnce     sync.Once
}

// presenceQueueSize bounds pending mirror updates. Updates past it are dropped
// with a warning; the next change for the same user corrects the mirror.
const presenceQueueSize = 1024

func NewCoordinator(tokens TokenVerifier, users UserDirectory, messages MessageStore, opts Options) *Coordinator {
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	c := &Coordinator{
		tokens:       tokens,
		users:        users,
		messages:     messages,
		presence:     opts.Presence,
		recentLimit:  opts.RecentLimit,
		policy:       opts.Policy,
		log:          opts.Logger,
		registry:     NewRegistry(),
		stopPresence: make(chan struct{}),
		presenceDone: make(chan struct{}),
	}
	if c.presence != nil {
		c.presenceQueue = make(chan uint, presenceQueueSize)
		go c.runPresence()
	} else {
		close(c.presenceDone)
	}
	return c
}

// Identity is an authenticated user that has not been admitted yet.
type Identity struct {
	UserID   uint
	Username string
	Color    string
}

// Authenticate resolves credential to a user profile. It touches no shared
// state, so a transport can refuse the handshake before upgrading.
func (c *Coordinator) Authenticate(ctx context.Context, credential string) (Identity, error) {
	userID, err := c.tokens.Verify(credential)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	profile, err := c.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Identity{}, fmt.Errorf("%w: user %d", ErrProfileNotFound, userID)
		}
		return Identity{}, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return Identity{UserID: profile.ID, Username: profile.Username, Color: profile.Color}, nil
}

// Admit registers conn for an authenticated identity, sends it the backlog and
// announces it to everyone. On error nothing has changed.
func (c *Coordinator) Admit(ctx context.Context, conn Connection, id Identity) error {
	user := ConnectedUser{
		ConnectionID: conn.ID(),
		UserID:       id.UserID,
		Username:     id.Username,
		Color:        id.Color,
	}

	gate := newGatedConn(conn)
	snap, err := c.registry.Insert(user, gate)
	if err != nil {
		return err
	}

	// The announcement reaches the new client through its gate, after the backlog.
	c.broadcast(snap.Connections, Event{
		Name: EventUserConnected,
		Data: PresenceChange{User: user.View(), ConnectedUsers: snap.Views()},
	})

	backlog, err := c.messages.FindRecent(ctx, c.recentLimit)
	if err != nil {
		c.log.Error("failed to load backlog", "connectionID", user.ConnectionID, "error", err)
		gate.release(errorEvent(errTextFetchFailed), nil)
	} else {
		views := chronological(backlog)
		gate.release(Event{Name: EventRecentMessages, Data: views}, views)
	}

	c.log.Info("user connected",
		"connectionID", user.ConnectionID,
		"userID", user.UserID,
		"username", user.Username,
		"connections", len(snap.Users),
	)
	c.queuePresence(user.UserID)
	return nil
}

// Connect authenticates credential and admits conn. On error nothing has
// changed and the caller must close conn.
func (c *Coordinator) Connect(ctx context.Context, conn Connection, credential string) error {
	id, err := c.Authenticate(ctx, credential)
	if err != nil {
		return err
	}
	return c.Admit(ctx, conn, id)
}

// Disconnect removes connectionID. Calling it again, or for an unknown id,
// does nothing.
func (c *Coordinator) Disconnect(connectionID string) {
	removed, snap, ok := c.registry.Remove(connectionID)
	if !ok {
		return
	}
	c.broadcast(snap.Connections, Event{
		Name: EventUserDisconnected,
		Data: PresenceChange{User: removed.View(), ConnectedUsers: snap.Views()},
	})

	c.log.Info("user disconnected",
		"connectionID", connectionID,
		"userID", removed.UserID,
		"connections", len(snap.Users),
	)
	c.queuePresence(removed.UserID)
}

// HandleSendMessage persists content and fans it out. No coordinator lock is
// held while the store runs; a sender's messages stay ordered because each
// connection handles its frames one at a time.
func (c *Coordinator) HandleSendMessage(ctx context.Context, connectionID, content string) {
	user, conn, ok := c.registry.Lookup(connectionID)
	if !ok {
		c.log.Debug("dropping message from unregistered connection", "connectionID", connectionID)
		return
	}

	if reason := c.policy.check(content); reason != "" {
		c.sendTo(conn, errorEvent(reason))
		return
	}

	msg, err := c.messages.Create(ctx, user.UserID, content)
	if err != nil {
		c.log.Error("failed to persist message", "connectionID", connectionID, "userID", user.UserID, "error", err)
		c.sendTo(conn, errorEvent(errTextSendFailed))
		return
	}

	view := NewMessageView(msg, user.View())
	c.broadcast(c.registry.Snapshot().Connections, Event{Name: EventNewMessage, Data: view})
}

func (c *Coordinator) HandleGetRecentMessages(ctx context.Context, connectionID string) {
	_, conn, ok := c.registry.Lookup(connectionID)
	if !ok {
		c.log.Debug("dropping request from unregistered connection", "connectionID", connectionID)
		return
	}

	msgs, err := c.messages.FindRecent(ctx, c.recentLimit)
	if err != nil {
		c.log.Error("failed to fetch recent messages", "connectionID", connectionID, "error", err)
		c.sendTo(conn, errorEvent(errTextFetchFailed))
		return
	}
	c.sendTo(conn, Event{Name: EventRecentMessages, Data: chronological(msgs)})
}

func (c *Coordinator) HandleGetConnectedUsers(connectionID string) {
	_, conn, ok := c.registry.Lookup(connectionID)
	if !ok {
		c.log.Debug("dropping request from unregistered connection", "connectionID", connectionID)
		return
	}
	c.sendTo(conn, Event{Name: EventConnectedUsers, Data: c.registry.Snapshot().Views()})
}

// SendError delivers a messageError to a single registered connection.
func (c *Coordinator) SendError(connectionID, text string) {
	if _, conn, ok := c.registry.Lookup(connectionID); ok {
		c.sendTo(conn, errorEvent(text))
	}
}

// ConnectedUsers returns the current presence list in connection order.
func (c *Coordinator) ConnectedUsers() []UserView {
	return c.registry.Snapshot().Views()
}

func (c *Coordinator) ConnectionCount() int {
	return c.registry.Len()
}

// Shutdown closes every registered connection. Entries leave the registry as
// each transport reports its disconnect.
func (c *Coordinator) Shutdown() {
	snap := c.registry.Snapshot()
	for _, conn := range snap.Connections {
		conn.Close()
	}
	c.log.Info("closed all connections", "count", len(snap.Connections))
}

// WaitForDrain blocks until the registry is empty or ctx is done.
func (c *Coordinator) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for c.registry.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close stops the presence worker after it has flushed what is queued.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() { close(c.stopPresence) })
	<-c.presenceDone
}

func (c *Coordinator) broadcast(conns []Connection, ev Event) {
	for _, conn := range conns {
		c.sendTo(conn, ev)
	}
}

func (c *Coordinator) sendTo(conn Connection, ev Event) {
	if err := conn.Send(ev); err != nil {
		c.log.Debug("send failed", "connectionID", conn.ID(), "event", ev.Name, "error", err)
	}
}

func (c *Coordinator) queuePresence(userID uint) {
	if c.presence == nil {
		return
	}
	select {
	case c.presenceQueue <- userID:
	default:
		c.log.Warn("presence queue full, dropping update", "userID", userID)
	}
}

// runPresence applies mirror updates one at a time, off the connect and
// disconnect paths. Each update re-reads the registry, so the mirror converges
// on the last state even when updates for a user race.
func (c *Coordinator) runPresence() {
	defer close(c.presenceDone)
	for {
		select {
		case userID := <-c.presenceQueue:
			c.syncPresence(userID)
		case <-c.stopPresence:
			for {
				select {
				case userID := <-c.presenceQueue:
					c.syncPresence(userID)
				default:
					return
				}
			}
		}
	}
}

func (c *Coordinator) syncPresence(userID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var err error
	if c.registry.Snapshot().ConnectionsOf(userID) > 0 {
		err = c.presence.SetUserOnline(ctx, userID)
	} else {
		err = c.presence.SetUserOffline(ctx, userID)
	}
	if err != nil {
		c.log.Warn("presence mirror update failed", "userID", userID, "error", err)
	}
}
