package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Authentication is by access token, not cookies
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub keeps the open change-feed sockets of every connected user
type Hub struct {
	clients      map[string]map[*Client]struct{}
	mu           sync.RWMutex
	pingInterval time.Duration
	metrics      *metrics.Metrics
	log          *zap.Logger
	done         chan struct{}
	closeOnce    sync.Once
}

// NewHub creates an empty hub
func NewHub(pingInterval time.Duration, m *metrics.Metrics, log *zap.Logger) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		clients:      make(map[string]map[*Client]struct{}),
		pingInterval: pingInterval,
		metrics:      m,
		log:          log,
		done:         make(chan struct{}),
	}
}

// Serve upgrades the request and attaches the socket to userID until either side closes it
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		hub:    h,
	}
	h.register(client)

	go client.WritePump()
	go client.ReadPump()
	return nil
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	h.log.Debug("realtime client connected", zap.String("user_id", c.UserID), zap.String("client_id", c.ID))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.UserID]
	if ok {
		if _, present := set[c]; present {
			delete(set, c)
			close(c.Send)
			h.metrics.ConnectionClosed()
		}
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()
}

// Connections returns how many sockets userID currently holds
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// DisconnectUser closes every socket held by userID and returns how many were closed
func (h *Hub) DisconnectUser(userID string) int {
	h.mu.Lock()
	set := h.clients[userID]
	delete(h.clients, userID)
	for c := range set {
		close(c.Send)
		h.metrics.ConnectionClosed()
	}
	h.mu.Unlock()

	if len(set) > 0 {
		h.log.Info("realtime sockets closed", zap.String("user_id", userID), zap.Int("count", len(set)))
	}
	return len(set)
}

// Deliver writes the change to every socket of its audience, without the audience itself.
// A disconnect event closes the audience's sockets instead.
func (h *Hub) Deliver(change *domain.Change) {
	if change.Type == domain.ChangeDisconnect {
		for _, userID := range change.UserIDs {
			h.DisconnectUser(userID)
		}
		return
	}

	public := *change
	public.UserIDs = nil
	data, err := json.Marshal(&public)
	if err != nil {
		h.log.Error("failed to encode change", zap.Error(err))
		return
	}

	var slow []*Client
	h.mu.RLock()
	seen := make(map[string]struct{}, len(change.UserIDs))
	for _, userID := range change.UserIDs {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		for client := range h.clients[userID] {
			select {
			case client.Send <- data:
			default:
				slow = append(slow, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow realtime client", zap.String("user_id", c.UserID))
		h.unregister(c)
	}
}

// Close disconnects every socket
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, set := range h.clients {
		for c := range set {
			close(c.Send)
			h.metrics.ConnectionClosed()
		}
		delete(h.clients, userID)
	}
}
