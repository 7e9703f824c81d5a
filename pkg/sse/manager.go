package sse

import (
	"io"
	"sync"

	"github.com/gin-gonic/gin"
)

// Event is a single server-sent event addressed to one account
type Event struct {
	Name string
	Data interface{}
}

type client struct {
	accountID string
	send      chan Event
}

// Manager fans events out to connected SSE clients per account
type Manager struct {
	mu         sync.RWMutex
	clients    map[string]map[*client]struct{}
	register   chan *client
	unregister chan *client
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Run processes client registration. Call in a goroutine.
func (m *Manager) Run() {
	for {
		select {
		case c := <-m.register:
			m.mu.Lock()
			if m.clients[c.accountID] == nil {
				m.clients[c.accountID] = make(map[*client]struct{})
			}
			m.clients[c.accountID][c] = struct{}{}
			m.mu.Unlock()
		case c := <-m.unregister:
			m.mu.Lock()
			if set, ok := m.clients[c.accountID]; ok {
				if _, ok := set[c]; ok {
					delete(set, c)
					close(c.send)
					if len(set) == 0 {
						delete(m.clients, c.accountID)
					}
				}
			}
			m.mu.Unlock()
		}
	}
}

// SendToUser delivers an event to every connection the account has open.
// Slow clients are skipped rather than blocking the caller.
func (m *Manager) SendToUser(accountID, event string, data interface{}) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for c := range m.clients[accountID] {
		select {
		case c.send <- Event{Name: event, Data: data}:
		default:
		}
	}
}

// ServeHTTP streams events for one account over an open gin connection
func (m *Manager) ServeHTTP(c *gin.Context, accountID string) {
	cl := &client{
		accountID: accountID,
		send:      make(chan Event, 16),
	}
	m.register <- cl
	defer func() { m.unregister <- cl }()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-cl.send:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
