package stream

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client is one persistent connection's subscription handle. A connection is
// unbound until its first successful session command.
type Client struct {
	SessionID     string
	ParticipantID string
	Send          chan []byte
}

// Hub holds the per-session subscriber sets used for fan-out. Deliveries to
// slow peers are dropped rather than blocking the rest of the session. Every
// broadcast is additionally mirrored to redis for external consumers; the
// process never subscribes back to its own mirror.
type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

func NewHub(redisClient *redis.Client) *Hub {
	return &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}
}

func NewClient() *Client {
	return &Client{Send: make(chan []byte, 64)}
}

// Bind subscribes a connection to a session under a participant identity.
// Rebinding moves the subscription.
func (h *Hub) Bind(client *Client, sessionID, participantID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(client)
	client.SessionID = sessionID
	client.ParticipantID = participantID
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = map[*Client]struct{}{}
	}
	h.clients[sessionID][client] = struct{}{}
}

// Unbind drops the subscription but keeps the connection usable for a later
// join.
func (h *Hub) Unbind(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
	client.SessionID = ""
	client.ParticipantID = ""
}

// Close drops the subscription and closes the send channel. Called once, on
// disconnect.
func (h *Hub) Close(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
	close(client.Send)
}

func (h *Hub) removeLocked(client *Client) {
	if client.SessionID == "" {
		return
	}
	if sessionClients, ok := h.clients[client.SessionID]; ok {
		delete(sessionClients, client)
		if len(sessionClients) == 0 {
			delete(h.clients, client.SessionID)
		}
	}
}

// Broadcast delivers payload to every connection subscribed to the session.
func (h *Hub) Broadcast(sessionID string, payload []byte) {
	h.fanOut(sessionID, "", payload)
	h.mirror(sessionID, payload)
}

// BroadcastExcept delivers payload to every subscribed connection except the
// ones bound to exceptParticipantID.
func (h *Hub) BroadcastExcept(sessionID, exceptParticipantID string, payload []byte) {
	h.fanOut(sessionID, exceptParticipantID, payload)
	h.mirror(sessionID, payload)
}

// SendTo delivers payload only to connections bound to the given participant.
func (h *Hub) SendTo(sessionID, participantID string, payload []byte) {
	h.mu.RLock()
	clients := h.clients[sessionID]
	for client := range clients {
		if client.ParticipantID != participantID {
			continue
		}
		select {
		case client.Send <- payload:
		default:
		}
	}
	h.mu.RUnlock()

	h.mirror(sessionID, payload)
}

func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) fanOut(sessionID, exceptParticipantID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[sessionID] {
		if exceptParticipantID != "" && client.ParticipantID == exceptParticipantID {
			continue
		}
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) mirror(sessionID string, payload []byte) {
	if h.redis == nil {
		return
	}
	err := h.redis.Publish(context.Background(), redisChannel(sessionID), payload).Err()
	if err != nil {
		log.Printf("redis publish error: %v", err)
	}
}

func redisChannel(sessionID string) string {
	return "live:" + sessionID + ":events"
}
