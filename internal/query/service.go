// Package query provides read-only access to the projection and receipt
// tables. Responses carry the projection's last applied sequence so callers
// can reason about freshness.
package query

import (
	"context"
	"database/sql"
	"fmt"

	"DutchAuction/internal/ledger"
)

// AuctionSummary is the projected state of one auction.
type AuctionSummary struct {
	Auction        ledger.Address `json:"auction"`
	Authority      ledger.Address `json:"authority"`
	Unit           ledger.Address `json:"unit"`
	TimeStart      int64          `json:"time_start"`
	TimeStep       int64          `json:"time_step"`
	PriceStart     uint64         `json:"price_start"`
	PriceStep      uint64         `json:"price_step"`
	UnitsRemaining uint64         `json:"units_remaining"`
	NativeProceeds uint64         `json:"native_proceeds"`
	FundsWithdrawn bool           `json:"funds_withdrawn"`
	GoodsWithdrawn bool           `json:"goods_withdrawn"`
	AsOfSequence   int64          `json:"as_of_sequence"`
}

// ReceiptEntry is one applied transaction from the receipt log.
type ReceiptEntry struct {
	Sequence    int64  `json:"sequence"`
	TxID        string `json:"tx_id"`
	Kind        string `json:"kind"`
	Timestamp   int64  `json:"timestamp"`
	UnitsMoved  uint64 `json:"units_moved"`
	NativeMoved uint64 `json:"native_moved"`
	Price       uint64 `json:"price"`
}

// ErrNotFound reports a missing auction.
var ErrNotFound = sql.ErrNoRows

// Service serves read queries from Postgres.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// GetAuction returns the projected summary of one auction.
func (s *Service) GetAuction(ctx context.Context, auction ledger.Address) (*AuctionSummary, error) {
	var (
		sum                               AuctionSummary
		auctionHex, authorityHex, unitHex string
		priceStart, priceStep             int64
		unitsRemaining, nativeProceeds    int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT auction, authority, unit, time_start, time_step, price_start,
		       price_step, units_remaining, native_proceeds, funds_withdrawn,
		       goods_withdrawn, last_sequence
		FROM auction_ledger.auctions
		WHERE auction = $1`,
		auction.String(),
	).Scan(
		&auctionHex, &authorityHex, &unitHex, &sum.TimeStart, &sum.TimeStep,
		&priceStart, &priceStep, &unitsRemaining, &nativeProceeds,
		&sum.FundsWithdrawn, &sum.GoodsWithdrawn, &sum.AsOfSequence,
	)
	if err != nil {
		return nil, err
	}

	if sum.Auction, err = ledger.ParseAddress(auctionHex); err != nil {
		return nil, fmt.Errorf("parse auction address: %w", err)
	}
	if sum.Authority, err = ledger.ParseAddress(authorityHex); err != nil {
		return nil, fmt.Errorf("parse authority address: %w", err)
	}
	if sum.Unit, err = ledger.ParseAddress(unitHex); err != nil {
		return nil, fmt.Errorf("parse unit address: %w", err)
	}
	sum.PriceStart = uint64(priceStart)
	sum.PriceStep = uint64(priceStep)
	sum.UnitsRemaining = uint64(unitsRemaining)
	sum.NativeProceeds = uint64(nativeProceeds)
	return &sum, nil
}

// ListReceipts returns the most recent receipts for an auction, newest
// first.
func (s *Service) ListReceipts(ctx context.Context, auction ledger.Address, limit int) ([]ReceiptEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, tx_id, kind, ts, units_moved, native_moved, price
		FROM auction_ledger.receipts
		WHERE auction = $1
		ORDER BY sequence DESC
		LIMIT $2`,
		auction.String(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReceiptEntry
	for rows.Next() {
		var e ReceiptEntry
		var units, native, price int64
		if err := rows.Scan(&e.Sequence, &e.TxID, &e.Kind, &e.Timestamp,
			&units, &native, &price); err != nil {
			return nil, err
		}
		e.UnitsMoved = uint64(units)
		e.NativeMoved = uint64(native)
		e.Price = uint64(price)
		out = append(out, e)
	}
	return out, rows.Err()
}
