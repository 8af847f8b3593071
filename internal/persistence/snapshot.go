package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"DutchAuction/internal/ledger"
	"DutchAuction/internal/observability"
)

// SnapshotStore persists point-in-time ledger state so restarts resume from
// the last snapshot instead of an empty ledger.
type SnapshotStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

func NewSnapshotStore(db *sql.DB, metrics *observability.Metrics) *SnapshotStore {
	return &SnapshotStore{db: db, metrics: metrics}
}

// Save writes a captured snapshot at the sequence it was captured with.
// Callers obtain the pair from Processor.SnapshotState so state and label
// always agree.
func (s *SnapshotStore) Save(ctx context.Context, snap *ledger.Snapshot, sequence int64) error {
	start := time.Now()

	state, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO auction_ledger.snapshots (sequence, state)
		VALUES ($1, $2)
		ON CONFLICT (sequence) DO NOTHING`,
		sequence, state,
	)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if s.metrics != nil {
		s.metrics.SnapshotTaken.Inc()
		s.metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
		s.metrics.SnapshotLastSeq.Set(float64(sequence))
	}
	return nil
}

// LoadLatest restores the most recent snapshot into rt and returns its
// sequence. Returns (0, nil) when no snapshot exists yet.
func (s *SnapshotStore) LoadLatest(ctx context.Context, rt *ledger.Runtime) (int64, error) {
	var sequence int64
	var state []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT sequence, state FROM auction_ledger.snapshots
		ORDER BY sequence DESC LIMIT 1`,
	).Scan(&sequence, &state)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}

	var snap ledger.Snapshot
	if err := json.Unmarshal(state, &snap); err != nil {
		return 0, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	rt.Restore(&snap)
	return sequence, nil
}

// Prune deletes snapshots older than the newest keep entries.
func (s *SnapshotStore) Prune(ctx context.Context, keep int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM auction_ledger.snapshots
		WHERE sequence NOT IN (
			SELECT sequence FROM auction_ledger.snapshots
			ORDER BY sequence DESC LIMIT $1
		)`, keep)
	return err
}
