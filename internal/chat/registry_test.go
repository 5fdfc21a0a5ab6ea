package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connected(id string, userID uint) ConnectedUser {
	return ConnectedUser{ConnectionID: id, UserID: userID, Username: fmt.Sprintf("user%d", userID)}
}

func TestRegistryInsertReturnsPostInsertSnapshot(t *testing.T) {
	r := NewRegistry()

	snap, err := r.Insert(connected("c1", 1), NewMockConn("c1"))
	require.NoError(t, err)
	assert.Len(t, snap.Users, 1)

	snap, err = r.Insert(connected("c2", 2), NewMockConn("c2"))
	require.NoError(t, err)
	require.Len(t, snap.Users, 2)
	assert.Equal(t, "c1", snap.Users[0].ConnectionID)
	assert.Equal(t, "c2", snap.Users[1].ConnectionID)
	assert.Equal(t, "c2", snap.Connections[1].ID())
}

func TestRegistryRejectsDuplicateConnectionID(t *testing.T) {
	r := NewRegistry()
	_, err := r.Insert(connected("c1", 1), NewMockConn("c1"))
	require.NoError(t, err)

	_, err = r.Insert(connected("c1", 2), NewMockConn("c1"))
	assert.ErrorIs(t, err, ErrAlreadyConnected)
	assert.Equal(t, 1, r.Len())

	u, _, ok := r.Lookup("c1")
	require.True(t, ok)
	assert.Equal(t, uint(1), u.UserID)
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Insert(connected("c1", 1), NewMockConn("c1"))
	_, _ = r.Insert(connected("c2", 2), NewMockConn("c2"))

	removed, snap, ok := r.Remove("c1")
	require.True(t, ok)
	assert.Equal(t, "c1", removed.ConnectionID)
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "c2", snap.Users[0].ConnectionID)

	_, _, ok = r.Remove("c1")
	assert.False(t, ok)
	_, _, ok = r.Remove("never")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryKeepsOneEntryPerConnection(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Insert(connected("a", 1), NewMockConn("a"))
	snap, _ := r.Insert(connected("b", 1), NewMockConn("b"))

	assert.Len(t, snap.Views(), 2)
	assert.Equal(t, 2, snap.ConnectionsOf(1))
	assert.Equal(t, 0, snap.ConnectionsOf(2))
}

func TestRegistrySizeUnderConcurrentChurn(t *testing.T) {
	r := NewRegistry()
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			_, err := r.Insert(connected(id, uint(i)), NewMockConn(id))
			assert.NoError(t, err)
			if i%2 == 0 {
				r.Remove(id)
				r.Remove(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n/2, r.Len())
	assert.Len(t, r.Snapshot().Users, n/2)
}
