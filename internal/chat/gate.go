package chat

import (
	"errors"
	"sync"
)

var errBacklogPending = errors.New("too many events queued behind backlog")

// maxHeldEvents bounds what a connection may accumulate while its backlog is
// being fetched. Past that the connection is closed.
const maxHeldEvents = 256

// gatedConn holds fan-out for a newly admitted connection until its backlog
// has been sent, so the client never sees a newMessage before recentMessages.
type gatedConn struct {
	Connection

	mu   sync.Mutex
	open bool
	held []Event
	// seen holds the message ids that went out in the backlog. A newMessage
	// for one of them is a duplicate and is dropped.
	seen map[uint]struct{}
}

func newGatedConn(conn Connection) *gatedConn {
	return &gatedConn{Connection: conn}
}

func (g *gatedConn) Send(ev Event) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.open {
		if len(g.held) >= maxHeldEvents {
			g.Connection.Close()
			return errBacklogPending
		}
		g.held = append(g.held, ev)
		return nil
	}
	if g.duplicate(ev) {
		return nil
	}
	return g.Connection.Send(ev)
}

// release sends first and then everything held back, and opens the gate.
// Errors from the underlying connection are ignored here: a connection that
// fails to send is already closing and disconnects through its own path.
func (g *gatedConn) release(first Event, backlog []MessageView) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(backlog) > 0 {
		g.seen = make(map[uint]struct{}, len(backlog))
		for _, m := range backlog {
			g.seen[m.ID] = struct{}{}
		}
	}

	_ = g.Connection.Send(first)
	for _, ev := range g.held {
		if g.duplicate(ev) {
			continue
		}
		_ = g.Connection.Send(ev)
	}
	g.held = nil
	g.open = true
}

func (g *gatedConn) duplicate(ev Event) bool {
	if ev.Name != EventNewMessage || g.seen == nil {
		return false
	}
	view, ok := ev.Data.(MessageView)
	if !ok {
		return false
	}
	_, dup := g.seen[view.ID]
	return dup
}
