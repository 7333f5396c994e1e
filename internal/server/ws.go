package server

import (
	"net/http"
	"sync"

	"voicewell/internal/metrics"
	"voicewell/internal/model"
	"voicewell/internal/storage"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Feed pushes newly assembled prediction results to connected dashboard
// clients over websocket. Slow or broken clients are dropped, never waited
// on; the feed is best-effort and carries no delivery guarantee.
type Feed struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	closed   bool
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics
}

func NewFeed(m *metrics.Metrics) *Feed {
	return &Feed{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		metrics: m,
	}
}

// Handle upgrades an authenticated request and keeps the connection
// registered until the client goes away.
func (f *Feed) Handle(w http.ResponseWriter, r *http.Request, _ storage.Session) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.Close()
		return
	}
	f.clients[conn] = struct{}{}
	f.metrics.FeedClients.Set(float64(len(f.clients)))
	f.mu.Unlock()

	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("feed client connected")

	// Drain the connection; clients only listen, so the first read error
	// means the peer is gone.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				f.remove(conn)
				return
			}
		}
	}()
}

// Broadcast sends a result to every connected client.
func (f *Feed) Broadcast(result model.PredictionResult) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for conn := range f.clients {
		if err := conn.WriteJSON(result); err != nil {
			conn.Close()
			delete(f.clients, conn)
		}
	}
	f.metrics.FeedClients.Set(float64(len(f.clients)))
}

// Close disconnects all clients and rejects further registrations.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	for conn := range f.clients {
		conn.Close()
		delete(f.clients, conn)
	}
	f.metrics.FeedClients.Set(0)
}

func (f *Feed) remove(conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.clients[conn]; ok {
		conn.Close()
		delete(f.clients, conn)
		f.metrics.FeedClients.Set(float64(len(f.clients)))
	}
}
