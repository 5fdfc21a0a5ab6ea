package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"chatroom-service/internal/models"
	"chatroom-service/internal/repository"
)

// MockConn records every event it is sent.
type MockConn struct {
	id string

	mu     sync.Mutex
	events []Event
	closed bool
}

func NewMockConn(id string) *MockConn {
	return &MockConn{id: id}
}

func (m *MockConn) ID() string { return m.id }

func (m *MockConn) Send(ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("connection closed")
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *MockConn) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *MockConn) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Named returns the events called name, in arrival order.
func (m *MockConn) Named(name string) []Event {
	var out []Event
	for _, ev := range m.Events() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (m *MockConn) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// fakeTokens maps token strings to user ids.
type fakeTokens map[string]uint

func (f fakeTokens) Verify(token string) (uint, error) {
	id, ok := f[token]
	if !ok {
		return 0, errors.New("token is expired")
	}
	return id, nil
}

type fakeUsers map[uint]*models.User

func (f fakeUsers) FindByID(_ context.Context, id uint) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

type fakeMessages struct {
	mu        sync.Mutex
	users     fakeUsers
	rows      []models.Message
	nextID    uint
	clock     time.Time
	createErr error
	recentErr error
}

func newFakeMessages(users fakeUsers) *fakeMessages {
	return &fakeMessages{users: users, nextID: 1, clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeMessages) Create(_ context.Context, authorID uint, content string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.clock = f.clock.Add(time.Second)
	msg := models.Message{ID: f.nextID, UserID: authorID, Content: content, CreatedAt: f.clock}
	if u, ok := f.users[authorID]; ok {
		msg.User = *u
	}
	f.nextID++
	f.rows = append(f.rows, msg)
	return &msg, nil
}

func (f *fakeMessages) FindRecent(_ context.Context, limit int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	var out []models.Message
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.rows[i])
	}
	return out, nil
}

func (f *fakeMessages) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeMessages) seed(authorID uint, n int) {
	for i := 0; i < n; i++ {
		_, _ = f.Create(context.Background(), authorID, fmt.Sprintf("seed %d", i))
	}
}

type presenceCall struct {
	userID uint
	online bool
}

type fakePresence struct {
	mu    sync.Mutex
	calls []presenceCall
	err   error
	// block, when set, holds every call until it is closed.
	block chan struct{}
}

func (f *fakePresence) SetUserOnline(_ context.Context, userID uint) error {
	return f.record(userID, true)
}

func (f *fakePresence) SetUserOffline(_ context.Context, userID uint) error {
	return f.record(userID, false)
}

func (f *fakePresence) record(userID uint, online bool) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, presenceCall{userID: userID, online: online})
	return f.err
}

func (f *fakePresence) Calls() []presenceCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]presenceCall, len(f.calls))
	copy(out, f.calls)
	return out
}

type fixture struct {
	coord    *Coordinator
	tokens   fakeTokens
	users    fakeUsers
	messages *fakeMessages
	presence *fakePresence
}

func newFixture() *fixture {
	return newFixtureWith(Options{Policy: MessagePolicy{AllowEmpty: true}})
}

// stallingStore parks Create or FindRecent calls until release is closed.
// entered receives once per parked call.
type stallingStore struct {
	*fakeMessages
	stallCreate atomic.Bool
	stallRecent atomic.Bool
	entered     chan struct{}
	release     chan struct{}
}

func newStallingStore(inner *fakeMessages) *stallingStore {
	return &stallingStore{
		fakeMessages: inner,
		entered:      make(chan struct{}, 16),
		release:      make(chan struct{}),
	}
}

func (s *stallingStore) Create(ctx context.Context, authorID uint, content string) (*models.Message, error) {
	if s.stallCreate.Load() {
		s.entered <- struct{}{}
		<-s.release
	}
	return s.fakeMessages.Create(ctx, authorID, content)
}

func (s *stallingStore) FindRecent(ctx context.Context, limit int) ([]models.Message, error) {
	if s.stallRecent.Load() {
		s.entered <- struct{}{}
		<-s.release
	}
	return s.fakeMessages.FindRecent(ctx, limit)
}

func newFixtureWith(opts Options) *fixture {
	return newFixtureWrapping(opts, nil)
}

// newFixtureWrapping lets a test put its own store in front of the fake one.
func newFixtureWrapping(opts Options, wrap func(*fakeMessages) MessageStore) *fixture {
	users := fakeUsers{
		1: {ID: 1, Username: "alice", Color: "#FF0000"},
		2: {ID: 2, Username: "bob", Color: "#00FF00"},
		3: {ID: 3, Username: "carol", Color: "#0000FF"},
	}
	tokens := fakeTokens{"tok-alice": 1, "tok-bob": 2, "tok-carol": 3, "tok-ghost": 99}
	messages := newFakeMessages(users)
	presence := &fakePresence{}
	if opts.Presence == nil {
		opts.Presence = presence
	}
	var store MessageStore = messages
	if wrap != nil {
		store = wrap(messages)
	}
	return &fixture{
		coord:    NewCoordinator(tokens, users, store, opts),
		tokens:   tokens,
		users:    users,
		messages: messages,
		presence: presence,
	}
}
