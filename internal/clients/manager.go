// Package clients implements the connection table described in §3/§6: a
// registry of live connections keyed by transport-assigned client id,
// de-registered when the underlying transport closes.
package clients

import (
	"sort"
	"sync"
	"time"

	"github.com/ericlarwa/gridline/internal/auth"
	"github.com/ericlarwa/gridline/internal/wire"
)

// Info is the directory-entry view of a connection, returned by GetClient(s).
type Info struct {
	ClientID      uint32
	Transport     string
	RemoteAddress string
	UserID        uint32
	HasUser       bool
	ConnectedAt   uint64
}

// Manager owns the (transport, remote address) -> client id table.
type Manager struct {
	mu      sync.RWMutex
	clients map[uint32]*entry
}

type entry struct {
	info    Info
	session *auth.Context
}

func NewManager() *Manager {
	return &Manager{clients: make(map[uint32]*entry)}
}

// Register adds a new connection and returns its session context.
func (m *Manager) Register(transport, remoteAddress string, authDisabled bool) *auth.Context {
	clientID := auth.NewClientID()
	session := auth.NewContext(clientID, authDisabled)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[clientID] = &entry{
		info: Info{
			ClientID: clientID, Transport: transport, RemoteAddress: remoteAddress,
			ConnectedAt: uint64(time.Now().UnixMicro()),
		},
		session: session,
	}
	return session
}

// Deregister removes a connection, called when its transport closes.
func (m *Manager) Deregister(clientID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, clientID)
}

// NoteLogin updates the directory entry to reflect a successful login.
func (m *Manager) NoteLogin(clientID, userID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.clients[clientID]; ok {
		e.info.UserID = userID
		e.info.HasUser = true
	}
}

// Get returns the directory entry for a connected client.
func (m *Manager) Get(clientID uint32) (Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.clients[clientID]
	if !ok {
		return Info{}, wire.New(wire.KindInvalidCommand, "clients: client %d not connected", clientID)
	}
	return e.info, nil
}

// List returns every connected client sorted by id.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uint32, 0, len(m.clients))
	for id := range m.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Info, len(ids))
	for i, id := range ids {
		out[i] = m.clients[id].info
	}
	return out
}

// Count returns the number of live connections, used by GetStats.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}
