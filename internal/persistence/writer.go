package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"DutchAuction/internal/core"
)

// ReceiptWriter writes applied-transaction receipts to Postgres with
// multi-row INSERT. Writes are idempotent on sequence, so a replayed batch
// after a crash lands cleanly.
type ReceiptWriter struct {
	db *sql.DB
}

func NewReceiptWriter(db *sql.DB) *ReceiptWriter {
	return &ReceiptWriter{db: db}
}

const receiptColumns = 14

// WriteBatch inserts a batch of receipts in one statement.
func (w *ReceiptWriter) WriteBatch(ctx context.Context, receipts []*core.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}

	query := `INSERT INTO auction_ledger.receipts
		(sequence, tx_id, kind, auction, ts, units_moved, native_moved, price,
		 authority, unit, time_start, time_step, price_start, price_step)
		VALUES `

	values := make([]string, 0, len(receipts))
	args := make([]interface{}, 0, len(receipts)*receiptColumns)
	for i, r := range receipts {
		base := i * receiptColumns
		placeholders := make([]string, receiptColumns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		values = append(values, "("+strings.Join(placeholders, ", ")+")")
		args = append(args,
			r.Sequence, r.TxID, r.KindName, r.Auction.String(), r.Timestamp,
			int64(r.UnitsMoved), int64(r.NativeMoved), int64(r.Price),
			r.Authority.String(), r.Unit.String(), r.TimeStart, r.TimeStep,
			int64(r.PriceStart), int64(r.PriceStep),
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence) DO NOTHING"

	_, err := w.db.ExecContext(ctx, query, args...)
	return err
}

// LastSequence returns the highest sequence in the receipt log, zero when
// the log is empty. Startup compares it against the restored snapshot so a
// receipt log ahead of the snapshot is detected instead of silently
// colliding with reassigned sequence numbers.
func (w *ReceiptWriter) LastSequence(ctx context.Context) (int64, error) {
	var seq int64
	err := w.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM auction_ledger.receipts`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("read last receipt sequence: %w", err)
	}
	return seq, nil
}
