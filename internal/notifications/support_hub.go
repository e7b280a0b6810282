package notifications

import (
	"context"
	"fmt"
	"log"
	"sync"

	"ufit/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// SupportHub manages websocket connections for support chat sessions.
// Unlike Hub (which is user-centric), SupportHub is session-centric: a
// client only receives events for sessions it has joined.
type SupportHub struct {
	mu sync.RWMutex

	// sessionID -> set of watching userIDs
	sessions map[uint]map[uint]struct{}

	// userID -> set of sessionIDs the user is watching
	userSessions map[uint]map[uint]struct{}

	// userID -> set of active Clients
	userConns map[uint]map[*Client]struct{}
}

// NewSupportHub creates a new SupportHub instance.
func NewSupportHub() *SupportHub {
	return &SupportHub{
		sessions:     make(map[uint]map[uint]struct{}),
		userSessions: make(map[uint]map[uint]struct{}),
		userConns:    make(map[uint]map[*Client]struct{}),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *SupportHub) Name() string { return "support hub" }

// Register registers a user's websocket connection. Returns the Client or an
// error if the per-user limit is exceeded.
func (h *SupportHub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.userConns[userID] == nil {
		h.userConns[userID] = make(map[*Client]struct{})
	}
	if len(h.userConns[userID]) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, fmt.Errorf("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	h.userConns[userID][client] = struct{}{}
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	observability.WebSocketEventsTotal.WithLabelValues("support_connect").Inc()

	return client, nil
}

// UnregisterClient removes a connection and, when it was the user's last one,
// clears the user's session subscriptions.
func (h *SupportHub) UnregisterClient(client *Client) {
	h.mu.Lock()

	clients, ok := h.userConns[client.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[client]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, client)

	if len(clients) > 0 {
		h.mu.Unlock()
		observability.WebSocketConnectionsTotal.Dec()
		return
	}
	delete(h.userConns, client.UserID)

	// Last connection gone: drop all session subscriptions for this user.
	if sessionIDs, ok := h.userSessions[client.UserID]; ok {
		for sessionID := range sessionIDs {
			if watchers, ok := h.sessions[sessionID]; ok {
				delete(watchers, client.UserID)
				if len(watchers) == 0 {
					delete(h.sessions, sessionID)
				}
			}
		}
		delete(h.userSessions, client.UserID)
	}
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Dec()
	observability.WebSocketEventsTotal.WithLabelValues("support_disconnect").Inc()
}

// JoinSession subscribes a connected user to a session's events.
func (h *SupportHub) JoinSession(userID, sessionID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.userConns[userID]; !ok {
		log.Printf("SupportHub: user %d not connected, cannot join session %d", userID, sessionID)
		return
	}

	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[uint]struct{})
	}
	h.sessions[sessionID][userID] = struct{}{}

	if h.userSessions[userID] == nil {
		h.userSessions[userID] = make(map[uint]struct{})
	}
	h.userSessions[userID][sessionID] = struct{}{}
}

// LeaveSession unsubscribes a user from a session's events.
func (h *SupportHub) LeaveSession(userID, sessionID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if watchers, ok := h.sessions[sessionID]; ok {
		delete(watchers, userID)
		if len(watchers) == 0 {
			delete(h.sessions, sessionID)
		}
	}
	if sessionIDs, ok := h.userSessions[userID]; ok {
		delete(sessionIDs, sessionID)
	}
}

// IsWatching reports whether a user is subscribed to a session.
func (h *SupportHub) IsWatching(userID, sessionID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sessionIDs, ok := h.userSessions[userID]
	if !ok {
		return false
	}
	_, watching := sessionIDs[sessionID]
	return watching
}

// BroadcastToSession sends a payload to every client watching a session.
func (h *SupportHub) BroadcastToSession(sessionID uint, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	watchers, ok := h.sessions[sessionID]
	if !ok {
		return
	}

	for userID := range watchers {
		if clients, ok := h.userConns[userID]; ok {
			for client := range clients {
				client.TrySend(payload)
			}
		}
	}
}

// StartWiring subscribes this hub to Redis support session channels and
// forwards event payloads to watching clients.
func (h *SupportHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartSupportSubscriber(ctx, func(channel, payload string) {
		var sessionID uint
		if _, err := fmt.Sscanf(channel, "support:session:%d", &sessionID); err != nil {
			log.Printf("SupportHub: invalid channel format: %s", channel)
			return
		}
		h.BroadcastToSession(sessionID, []byte(payload))
	})
}

// Shutdown gracefully closes all websocket connections
func (h *SupportHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.userConns {
		for client := range clients {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				log.Printf("failed to write close message for user %d: %v", userID, err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("failed to close websocket for user %d: %v", userID, err)
			}
		}
	}

	h.sessions = make(map[uint]map[uint]struct{})
	h.userSessions = make(map[uint]map[uint]struct{})
	h.userConns = make(map[uint]map[*Client]struct{})

	return nil
}
