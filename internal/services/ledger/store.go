package ledger

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"transaction-reconciliation-backend/internal/audit"
	"transaction-reconciliation-backend/internal/models"
	"transaction-reconciliation-backend/internal/repository"
)

// Store owns the system-of-record snapshot. Readers capture the current
// snapshot slice at run start; ReplaceAll installs a new one with a single
// pointer swap, so a concurrent matching run sees either the fully-old or the
// fully-new ledger, never a half-replaced one. The snapshot slice itself is
// never mutated after install.
type Store struct {
	repo *repository.SystemRecordRepository
	sink audit.Sink
	snap atomic.Pointer[[]models.SystemRecord]
}

func NewStore(repo *repository.SystemRecordRepository, sink audit.Sink) *Store {
	s := &Store{repo: repo, sink: sink}
	empty := []models.SystemRecord{}
	s.snap.Store(&empty)
	return s
}

// Load reads the persisted ledger into the snapshot. Called once at startup.
func (s *Store) Load() error {
	records, err := s.repo.GetAll()
	if err != nil {
		return err
	}
	s.snap.Store(&records)
	logrus.WithField("records", len(records)).Info("system-of-record snapshot loaded")
	return nil
}

// Snapshot returns the current point-in-time ledger view. The returned slice
// must be treated as read-only.
func (s *Store) Snapshot() []models.SystemRecord {
	return *s.snap.Load()
}

// ReplaceAll persists the new ledger in one transaction, swaps the in-memory
// snapshot, and emits a system-update audit event. The previous ledger is
// fully discarded, not merged.
func (s *Store) ReplaceAll(ctx context.Context, records []models.SystemRecord, actor string) (int, error) {
	if err := s.repo.ReplaceAll(records); err != nil {
		return 0, err
	}
	s.snap.Store(&records)

	ev := audit.Event{
		Entity:    "SystemRecord",
		Actor:     actor,
		Action:    "System Data Update",
		Details:   fmt.Sprintf("Replaced system records. Imported %d entries.", len(records)),
		Timestamp: time.Now(),
	}
	if err := s.sink.Record(ctx, ev); err != nil {
		logrus.WithError(err).Warn("failed to record system update audit event")
	}

	logrus.WithField("records", len(records)).Info("system-of-record replaced")
	return len(records), nil
}
