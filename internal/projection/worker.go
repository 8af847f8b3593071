// Package projection maintains the read-optimized auctions summary table.
// The projection channel is non-blocking with drop: a lagging projection is
// rebuilt from the receipt log, never allowed to stall the processor.
package projection

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"DutchAuction/internal/core"
	"DutchAuction/internal/instruction"
	"DutchAuction/internal/observability"
)

// Worker applies receipts to the auctions summary table.
type Worker struct {
	db        *sql.DB
	inputChan <-chan *core.Receipt
	log       zerolog.Logger
}

func NewWorker(db *sql.DB, inputChan <-chan *core.Receipt) *Worker {
	return &Worker{
		db:        db,
		inputChan: inputChan,
		log:       observability.NewLogger("projection"),
	}
}

// Run drains the receipt channel until it closes or the context ends.
// Update failures are logged and skipped; receipts are idempotent on
// last_sequence so a rebuild recovers any gap.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rcpt, ok := <-w.inputChan:
			if !ok {
				return nil
			}
			if err := w.apply(ctx, rcpt); err != nil {
				w.log.Warn().Int64("sequence", rcpt.Sequence).Err(err).
					Msg("projection update failed")
			}
		}
	}
}

func (w *Worker) apply(ctx context.Context, rcpt *core.Receipt) error {
	switch rcpt.Kind {
	case instruction.KindInitialize:
		return w.applyInitialize(ctx, rcpt)
	case instruction.KindBid:
		return w.applyBid(ctx, rcpt)
	case instruction.KindWithdrawFunds:
		return w.applyWithdrawFunds(ctx, rcpt)
	case instruction.KindWithdrawGoods:
		return w.applyWithdrawGoods(ctx, rcpt)
	}
	return nil
}

func (w *Worker) applyInitialize(ctx context.Context, rcpt *core.Receipt) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO auction_ledger.auctions
			(auction, authority, unit, time_start, time_step, price_start,
			 price_step, units_remaining, native_proceeds, last_sequence, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10)
		ON CONFLICT (auction) DO NOTHING`,
		rcpt.Auction.String(), rcpt.Authority.String(), rcpt.Unit.String(),
		rcpt.TimeStart, rcpt.TimeStep, int64(rcpt.PriceStart), int64(rcpt.PriceStep),
		int64(rcpt.UnitsMoved), rcpt.Sequence, time.Unix(rcpt.Timestamp, 0).UTC(),
	)
	return err
}

func (w *Worker) applyBid(ctx context.Context, rcpt *core.Receipt) error {
	_, err := w.db.ExecContext(ctx, `
		UPDATE auction_ledger.auctions
		SET units_remaining = units_remaining - $2,
		    native_proceeds = native_proceeds + $3,
		    last_sequence   = $4,
		    updated_at      = $5
		WHERE auction = $1 AND last_sequence < $4`,
		rcpt.Auction.String(), int64(rcpt.UnitsMoved), int64(rcpt.NativeMoved),
		rcpt.Sequence, time.Unix(rcpt.Timestamp, 0).UTC(),
	)
	return err
}

func (w *Worker) applyWithdrawFunds(ctx context.Context, rcpt *core.Receipt) error {
	_, err := w.db.ExecContext(ctx, `
		UPDATE auction_ledger.auctions
		SET native_proceeds = 0,
		    funds_withdrawn = TRUE,
		    last_sequence   = $2,
		    updated_at      = $3
		WHERE auction = $1 AND last_sequence < $2`,
		rcpt.Auction.String(), rcpt.Sequence, time.Unix(rcpt.Timestamp, 0).UTC(),
	)
	return err
}

func (w *Worker) applyWithdrawGoods(ctx context.Context, rcpt *core.Receipt) error {
	_, err := w.db.ExecContext(ctx, `
		UPDATE auction_ledger.auctions
		SET units_remaining = 0,
		    goods_withdrawn = TRUE,
		    last_sequence   = $2,
		    updated_at      = $3
		WHERE auction = $1 AND last_sequence < $2`,
		rcpt.Auction.String(), rcpt.Sequence, time.Unix(rcpt.Timestamp, 0).UTC(),
	)
	return err
}
