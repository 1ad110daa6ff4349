package message

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
)

func TestAppend(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs("msg-1", "session-1", "manager-1", "", "Turn left ahead", TypeBroadcast, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService(mock)
	err = svc.Append(context.Background(), Message{
		ID:        "msg-1",
		SessionID: "session-1",
		FromID:    "manager-1",
		Content:   "Turn left ahead",
		Type:      TypeBroadcast,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppendError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO messages`).
		WillReturnError(errMsg)

	svc := NewService(mock)
	if err := svc.Append(context.Background(), Message{ID: "msg-1"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestHistory(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, session_id, from_id`).
		WithArgs("session-1", 2).
		WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "from_id", "to_id", "content", "type", "timestamp"}).
			AddRow("msg-2", "session-1", "manager-1", "", "Regroup at the top", TypeBroadcast, time.Now()).
			AddRow("msg-1", "session-1", "rider-1", "manager-1", "Flat tire", TypeDirect, time.Now()))

	svc := NewService(mock)
	messages, err := svc.History(context.Background(), "session-1", 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected two messages, got %d", len(messages))
	}
	if messages[1].ToID != "manager-1" || messages[1].Type != TypeDirect {
		t.Fatalf("unexpected direct message %+v", messages[1])
	}
}

func TestHistoryDefaultLimit(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, session_id, from_id`).
		WithArgs("session-1", 100).
		WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "from_id", "to_id", "content", "type", "timestamp"}))

	svc := NewService(mock)
	if _, err := svc.History(context.Background(), "session-1", 0); err != nil {
		t.Fatalf("history: %v", err)
	}
}

func TestHistoryQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, session_id, from_id`).
		WillReturnError(errMsg)

	svc := NewService(mock)
	if _, err := svc.History(context.Background(), "session-1", 10); err == nil {
		t.Fatalf("expected error")
	}
}

var errMsg = errors.New("message error")
