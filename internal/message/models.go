package message

import "time"

const (
	TypeDirect    = "direct"
	TypeBroadcast = "broadcast"
)

type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id,omitempty"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}
