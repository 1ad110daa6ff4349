package message

import (
	"context"

	"github.com/petrepopescu21/ridemapper/internal/db"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// Append stores a relayed message for history. Delivery never depends on it.
func (s *Service) Append(ctx context.Context, m Message) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO messages (id, session_id, from_id, to_id, content, type, timestamp)
		VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7)
	`, m.ID, m.SessionID, m.FromID, m.ToID, m.Content, m.Type, m.Timestamp)
	return err
}

func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, from_id, COALESCE(to_id,''), content, type, timestamp
		FROM messages WHERE session_id=$1
		ORDER BY timestamp DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.FromID, &m.ToID, &m.Content, &m.Type, &m.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}
