package chat

import (
	"errors"
	"sort"
	"sync"
)

var ErrAlreadyConnected = errors.New("connection already registered")

// ConnectedUser is one live, authenticated connection.
type ConnectedUser struct {
	ConnectionID string
	UserID       uint
	Username     string
	Color        string
}

func (u ConnectedUser) View() UserView {
	return UserView{ID: u.UserID, Username: u.Username, Color: u.Color}
}

type entry struct {
	user ConnectedUser
	conn Connection
	seq  uint64
}

// Snapshot is a consistent copy of the registry in connection order.
type Snapshot struct {
	Users       []ConnectedUser
	Connections []Connection
}

func (s Snapshot) Views() []UserView {
	views := make([]UserView, len(s.Users))
	for i, u := range s.Users {
		views[i] = u.View()
	}
	return views
}

// ConnectionsOf counts the live connections held by userID.
func (s Snapshot) ConnectionsOf(userID uint) int {
	n := 0
	for _, u := range s.Users {
		if u.UserID == userID {
			n++
		}
	}
	return n
}

// Registry maps connection ids to connected users. Mutations return the
// post-mutation snapshot taken inside the same critical section.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	nextSeq uint64
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

func (r *Registry) Insert(user ConnectedUser, conn Connection) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[user.ConnectionID]; exists {
		return Snapshot{}, ErrAlreadyConnected
	}
	r.nextSeq++
	r.entries[user.ConnectionID] = &entry{user: user, conn: conn, seq: r.nextSeq}
	return r.snapshotLocked(), nil
}

// Remove deletes connectionID. ok is false when it was not registered.
func (r *Registry) Remove(connectionID string) (removed ConnectedUser, snap Snapshot, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[connectionID]
	if !exists {
		return ConnectedUser{}, Snapshot{}, false
	}
	delete(r.entries, connectionID)
	return e.user, r.snapshotLocked(), true
}

func (r *Registry) Lookup(connectionID string) (ConnectedUser, Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[connectionID]
	if !ok {
		return ConnectedUser{}, nil, false
	}
	return e.user, e.conn, true
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) snapshotLocked() Snapshot {
	ordered := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })

	snap := Snapshot{
		Users:       make([]ConnectedUser, len(ordered)),
		Connections: make([]Connection, len(ordered)),
	}
	for i, e := range ordered {
		snap.Users[i] = e.user
		snap.Connections[i] = e.conn
	}
	return snap
}
