package core

import (
	"github.com/google/uuid"

	"DutchAuction/internal/instruction"
	"DutchAuction/internal/ledger"
)

// Receipt is the applied-transaction record the processor emits for every
// committed instruction. It feeds the persistence log, the auctions
// projection, and the outbound receipt stream.
type Receipt struct {
	Sequence  int64            `json:"sequence"`
	TxID      string           `json:"tx_id"`
	LedgerTxn uuid.UUID        `json:"ledger_txn"`
	Kind      instruction.Kind `json:"-"`
	KindName  string           `json:"kind"`
	Auction   ledger.Address   `json:"auction"`
	Timestamp int64            `json:"timestamp"`

	// Movement caused by the instruction. UnitsMoved is units into the
	// vault on Initialize, units sold on Bid, units returned on
	// WithdrawGoods. NativeMoved is proceeds paid in on Bid and proceeds
	// paid out on WithdrawFunds.
	UnitsMoved  uint64 `json:"units_moved"`
	NativeMoved uint64 `json:"native_moved"`

	// Price is the per-unit clearing price; set only on Bid.
	Price uint64 `json:"price,omitempty"`

	// Schedule parameters; set only on Initialize.
	Authority  ledger.Address `json:"authority"`
	Unit       ledger.Address `json:"unit"`
	TimeStart  int64          `json:"time_start,omitempty"`
	TimeStep   int64          `json:"time_step,omitempty"`
	PriceStart uint64         `json:"price_start,omitempty"`
	PriceStep  uint64         `json:"price_step,omitempty"`
}
