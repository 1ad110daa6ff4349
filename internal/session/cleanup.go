package session

import (
	"context"
	"log"
	"time"
)

// Sweep ends every session that is inactive or older than the retention
// window and re-syncs the gateway's session metadata. It is a safety net for
// sessions leaked by ungraceful shutdowns; genuinely long rides inside the
// window are left alone.
func (s *Service) Sweep(ctx context.Context, retention time.Duration) int {
	cutoff := time.Now().Add(-retention)
	swept := 0
	for _, sess := range s.store.All() {
		if !sess.IsActive || sess.CreatedAt.Before(cutoff) {
			if s.End(ctx, sess.ID) {
				swept++
			}
		}
	}

	if swept > 0 {
		log.Printf("cleanup swept %d session(s)", swept)
	}
	s.resyncMetadata(ctx, retention)
	return swept
}

// StartJanitor runs Sweep on the given interval until ctx is cancelled.
func (s *Service) StartJanitor(ctx context.Context, interval, retention time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx, retention)
			}
		}
	}()
}

// resyncMetadata closes out gateway rows for sessions the store no longer
// holds, e.g. after a restart lost the in-memory registry.
func (s *Service) resyncMetadata(ctx context.Context, retention time.Duration) {
	if s.db == nil {
		return
	}
	_, err := s.db.Exec(ctx, `
		UPDATE sessions SET is_active=false, ends_at=now(), updated_at=now()
		WHERE is_active=true AND created_at < $1
	`, time.Now().Add(-retention))
	if err != nil {
		log.Printf("session metadata resync failed: %v", err)
	}
}
