// Package core hosts the single-threaded transition processor: it decodes
// submitted transactions, runs the four auction transitions against the
// ledger, and emits receipts for every committed instruction.
package core

import (
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"DutchAuction/internal/auction"
	"DutchAuction/internal/instruction"
	"DutchAuction/internal/ledger"
	"DutchAuction/internal/observability"
	"DutchAuction/internal/pricing"
	"DutchAuction/internal/vault"
)

// Processor applies auction transactions one at a time. Each instruction
// runs inside a ledger transaction and commits only if every validation and
// transfer succeeds; a failed instruction leaves no trace.
type Processor struct {
	program ledger.Address
	runtime *ledger.Runtime
	clock   ledger.Clock
	dedup   *txDedup

	// mu serializes Process against SnapshotState so a snapshot's state
	// and sequence label always describe the same point in time.
	mu sync.Mutex

	// sequence is written only by Process but read by metrics consumers,
	// hence atomic.
	sequence atomic.Int64

	log     zerolog.Logger
	metrics *observability.Metrics

	// persistChan blocks: the receipt log must not lose receipts.
	// projectionChan drops on full: projections are rebuildable.
	persistChan    chan<- *Receipt
	projectionChan chan<- *Receipt
}

// DefaultDedupCapacity bounds the in-memory duplicate-transaction window.
const DefaultDedupCapacity = 1_000_000

type ProcessorConfig struct {
	Program        ledger.Address
	Runtime        *ledger.Runtime
	Clock          ledger.Clock
	StartSequence  int64
	DedupCapacity  int
	Metrics        *observability.Metrics
	PersistChan    chan<- *Receipt
	ProjectionChan chan<- *Receipt
}

func NewProcessor(cfg ProcessorConfig) *Processor {
	capacity := cfg.DedupCapacity
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	clock := cfg.Clock
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	p := &Processor{
		program:        cfg.Program,
		runtime:        cfg.Runtime,
		clock:          clock,
		dedup:          newTxDedup(capacity),
		log:            observability.NewLogger("processor"),
		metrics:        cfg.Metrics,
		persistChan:    cfg.PersistChan,
		projectionChan: cfg.ProjectionChan,
	}
	p.sequence.Store(cfg.StartSequence)
	return p
}

// Sequence returns the sequence number of the last applied transaction.
func (p *Processor) Sequence() int64 {
	return p.sequence.Load()
}

// SnapshotState captures committed ledger state together with the sequence
// of the last applied transaction. The pair is taken between transactions,
// so the snapshot never contains effects beyond its sequence label.
func (p *Processor) SnapshotState() (*ledger.Snapshot, int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runtime.Snapshot(), p.sequence.Load()
}

// Process applies one submitted transaction. A nil receipt with a nil error
// means the transaction was a duplicate and was skipped. A non-nil error
// means the transaction was rejected; committed state is untouched.
func (p *Processor) Process(tx *instruction.Transaction) (*Receipt, error) {
	start := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dedup.Contains(tx.TxID) {
		if p.metrics != nil {
			p.metrics.DedupDuplicates.Inc()
		}
		p.log.Debug().Str("tx_id", tx.TxID).Msg("duplicate transaction skipped")
		return nil, nil
	}

	cmd, err := instruction.Decode(tx.Data)
	if err != nil {
		p.reject(tx, "Unknown", err)
		return nil, err
	}
	kind := cmd.Kind()

	signers := make([]ledger.Address, 0, len(tx.Accounts))
	for _, meta := range tx.Accounts {
		if meta.Signer {
			signers = append(signers, meta.Address)
		}
	}

	now := p.clock.Now()
	txn := p.runtime.Begin(signers)

	receipt := &Receipt{
		TxID:      tx.TxID,
		LedgerTxn: txn.ID(),
		Kind:      kind,
		KindName:  kind.String(),
		Timestamp: now,
	}

	switch c := cmd.(type) {
	case instruction.Initialize:
		err = p.initialize(txn, tx, c, now, receipt)
	case instruction.Bid:
		err = p.bid(txn, tx, c, now, receipt)
	case instruction.WithdrawFunds:
		err = p.withdrawFunds(txn, tx, now, receipt)
	case instruction.WithdrawGoods:
		err = p.withdrawGoods(txn, tx, now, receipt)
	}
	if err != nil {
		p.reject(tx, kind.String(), err)
		return nil, err
	}

	txn.Commit()
	receipt.Sequence = p.sequence.Add(1)

	evictionsBefore := p.dedup.Evictions()
	p.dedup.Add(tx.TxID)
	if p.metrics != nil {
		p.metrics.DedupEvictions.Add(float64(p.dedup.Evictions() - evictionsBefore))
	}

	if p.metrics != nil {
		p.metrics.TxApplied.WithLabelValues(kind.String()).Inc()
		p.metrics.TxDuration.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
		p.metrics.Sequence.Set(float64(receipt.Sequence))
		if kind == instruction.KindBid {
			p.metrics.BidClearingPrice.Observe(float64(receipt.Price))
			p.metrics.UnitsSold.Add(float64(receipt.UnitsMoved))
			p.metrics.NativeCollected.Add(float64(receipt.NativeMoved))
		}
	}

	p.log.Info().
		Int64("sequence", receipt.Sequence).
		Str("tx_id", tx.TxID).
		Str("ledger_txn", receipt.LedgerTxn.String()).
		Str("kind", kind.String()).
		Str("auction", receipt.Auction.String()).
		Uint64("units", receipt.UnitsMoved).
		Uint64("native", receipt.NativeMoved).
		Msg("transaction applied")

	if p.persistChan != nil {
		p.persistChan <- receipt
	}
	if p.projectionChan != nil {
		select {
		case p.projectionChan <- receipt:
		default:
			if p.metrics != nil {
				p.metrics.ProjectionDrops.Inc()
			}
		}
	}
	return receipt, nil
}

func (p *Processor) reject(tx *instruction.Transaction, kind string, err error) {
	reason := "ledger"
	if code, ok := auction.CodeOf(err); ok {
		reason = code.String()
	}
	if p.metrics != nil {
		p.metrics.TxRejected.WithLabelValues(kind, reason).Inc()
	}
	p.log.Warn().Str("tx_id", tx.TxID).Str("kind", kind).Str("reason", reason).
		Err(err).Msg("transaction rejected")
}

// initialize creates the auction: validates the schedule and the derived
// vault addresses, creates the vault accounts, escrows the goods, and
// writes the record. The auction account itself must already exist, zeroed,
// at the record size, owned by the program.
func (p *Processor) initialize(txn *ledger.Txn, tx *instruction.Transaction, cmd instruction.Initialize, now int64, receipt *Receipt) error {
	if len(tx.Accounts) != instruction.InitAccountCount {
		return fmt.Errorf("initialize carries %d accounts, want %d", len(tx.Accounts), instruction.InitAccountCount)
	}
	auctionAddr := tx.Accounts[instruction.InitAuctionIdx].Address
	authority := tx.Accounts[instruction.InitAuthorityIdx]
	funder := tx.Accounts[instruction.InitFunderIdx]
	unit := tx.Accounts[instruction.InitUnitIdx].Address
	srcHolding := tx.Accounts[instruction.InitSourceHoldingIdx].Address
	vaultHolding := tx.Accounts[instruction.InitVaultHoldingIdx].Address
	vaultAuth := tx.Accounts[instruction.InitVaultAuthIdx].Address
	srcOwner := tx.Accounts[instruction.InitSourceOwnerIdx]

	// Schedule validation runs before any account is touched.
	if cmd.TimeStart < now || cmd.TimeStep <= 0 {
		return auction.ErrInvalidInitializationTime
	}
	if err := vault.ValidateAuthority(p.program, auctionAddr, vaultAuth); err != nil {
		return err
	}
	if err := vault.ValidateHolding(vaultAuth, unit, vaultHolding); err != nil {
		return err
	}
	if !funder.Signer {
		return fmt.Errorf("funder %s: %w", funder.Address, ledger.ErrMissingSignature)
	}
	if !srcOwner.Signer {
		return fmt.Errorf("source owner %s: %w", srcOwner.Address, ledger.ErrMissingSignature)
	}

	data, err := txn.Data(auctionAddr)
	if err != nil {
		return err
	}
	rec, err := auction.UnpackRecordUnchecked(data)
	if err != nil {
		return err
	}
	if rec.Initialized {
		return auction.ErrAlreadyInUse
	}

	if err := txn.CreateAccount(funder.Address, vaultAuth, 0, p.program); err != nil {
		return err
	}
	if err := txn.CreateHolding(funder.Address, vaultHolding, vaultAuth, unit); err != nil {
		return err
	}
	decimals, err := txn.UnitDecimals(unit)
	if err != nil {
		return err
	}
	if err := txn.TransferUnits(srcHolding, vaultHolding, unit, cmd.TokenAmount, decimals); err != nil {
		return err
	}

	rec = &auction.Record{
		Initialized: true,
		Authority:   authority.Address,
		Unit:        unit,
		TimeStart:   cmd.TimeStart,
		TimeStep:    cmd.TimeStep,
		PriceStart:  cmd.PriceStart,
		PriceStep:   cmd.PriceStep,
	}
	if err := txn.SetData(auctionAddr, rec.Pack()); err != nil {
		return err
	}

	receipt.Auction = auctionAddr
	receipt.UnitsMoved = cmd.TokenAmount
	receipt.Authority = rec.Authority
	receipt.Unit = rec.Unit
	receipt.TimeStart = rec.TimeStart
	receipt.TimeStep = rec.TimeStep
	receipt.PriceStart = rec.PriceStart
	receipt.PriceStep = rec.PriceStep
	return nil
}

// bid buys up to cmd.TokenAmount units at the current price. A bid larger
// than the vault's remaining balance fills to what is available.
func (p *Processor) bid(txn *ledger.Txn, tx *instruction.Transaction, cmd instruction.Bid, now int64, receipt *Receipt) error {
	if len(tx.Accounts) != instruction.BidAccountCount {
		return fmt.Errorf("bid carries %d accounts, want %d", len(tx.Accounts), instruction.BidAccountCount)
	}
	auctionAddr := tx.Accounts[instruction.BidAuctionIdx].Address
	bidder := tx.Accounts[instruction.BidBidderIdx]
	unit := tx.Accounts[instruction.BidUnitIdx].Address
	vaultHolding := tx.Accounts[instruction.BidVaultHoldingIdx].Address
	vaultAuth := tx.Accounts[instruction.BidVaultAuthIdx].Address
	bidderHolding := tx.Accounts[instruction.BidBidderHoldingIdx].Address
	receipt.Auction = auctionAddr

	rec, err := p.readRecord(txn, auctionAddr)
	if err != nil {
		return err
	}
	if err := vault.ValidateAuthority(p.program, auctionAddr, vaultAuth); err != nil {
		return err
	}
	if unit != rec.Unit {
		return auction.ErrInvalidVaultAddress
	}
	if err := vault.ValidateHolding(vaultAuth, rec.Unit, vaultHolding); err != nil {
		return err
	}
	if !bidder.Signer {
		return fmt.Errorf("bidder %s: %w", bidder.Address, ledger.ErrMissingSignature)
	}

	state := pricing.CurrentPrice(rec, now)
	switch state.Status {
	case pricing.StatusNotStarted:
		return auction.ErrNotStarted
	case pricing.StatusFinished:
		return auction.ErrFinished
	}

	available, err := txn.HoldingBalance(vaultHolding)
	if err != nil {
		return err
	}
	if available == 0 {
		return auction.ErrEverythingSoldOut
	}
	amount := cmd.TokenAmount
	if amount > available {
		amount = available
	}

	hi, cost := bits.Mul64(state.Price, amount)
	if hi != 0 {
		return fmt.Errorf("bid cost overflows: price %d, amount %d", state.Price, amount)
	}
	if err := txn.TransferNative(bidder.Address, vaultAuth, cost); err != nil {
		return err
	}
	decimals, err := txn.UnitDecimals(rec.Unit)
	if err != nil {
		return err
	}
	txn.AuthorizeDerived(vaultAuth)
	if err := txn.TransferUnits(vaultHolding, bidderHolding, rec.Unit, amount, decimals); err != nil {
		return err
	}

	receipt.UnitsMoved = amount
	receipt.NativeMoved = cost
	receipt.Price = state.Price
	return nil
}

// withdrawFunds drains the vault authority's entire native balance to the
// destination. Only the auction authority, signed, after the auction
// finished.
func (p *Processor) withdrawFunds(txn *ledger.Txn, tx *instruction.Transaction, now int64, receipt *Receipt) error {
	if len(tx.Accounts) != instruction.WFAccountCount {
		return fmt.Errorf("withdraw funds carries %d accounts, want %d", len(tx.Accounts), instruction.WFAccountCount)
	}
	auctionAddr := tx.Accounts[instruction.WFAuctionIdx].Address
	authority := tx.Accounts[instruction.WFAuthorityIdx]
	vaultAuth := tx.Accounts[instruction.WFVaultAuthIdx].Address
	destination := tx.Accounts[instruction.WFDestinationIdx].Address
	receipt.Auction = auctionAddr

	rec, err := p.readRecord(txn, auctionAddr)
	if err != nil {
		return err
	}
	if err := vault.ValidateAuthority(p.program, auctionAddr, vaultAuth); err != nil {
		return err
	}
	if err := vault.ValidateOwner(rec.Authority, authority.Address, authority.Signer); err != nil {
		return err
	}
	if pricing.CurrentPrice(rec, now).Status != pricing.StatusFinished {
		return auction.ErrNotFinished
	}

	proceeds := txn.Balance(vaultAuth)
	txn.AuthorizeDerived(vaultAuth)
	if err := txn.TransferNative(vaultAuth, destination, proceeds); err != nil {
		return err
	}

	receipt.NativeMoved = proceeds
	return nil
}

// withdrawGoods returns the vault's entire remaining units to the
// destination holding. Same gating as withdrawFunds.
func (p *Processor) withdrawGoods(txn *ledger.Txn, tx *instruction.Transaction, now int64, receipt *Receipt) error {
	if len(tx.Accounts) != instruction.WGAccountCount {
		return fmt.Errorf("withdraw goods carries %d accounts, want %d", len(tx.Accounts), instruction.WGAccountCount)
	}
	auctionAddr := tx.Accounts[instruction.WGAuctionIdx].Address
	authority := tx.Accounts[instruction.WGAuthorityIdx]
	unit := tx.Accounts[instruction.WGUnitIdx].Address
	vaultHolding := tx.Accounts[instruction.WGVaultHoldingIdx].Address
	vaultAuth := tx.Accounts[instruction.WGVaultAuthIdx].Address
	destHolding := tx.Accounts[instruction.WGDestHoldingIdx].Address
	receipt.Auction = auctionAddr

	rec, err := p.readRecord(txn, auctionAddr)
	if err != nil {
		return err
	}
	if err := vault.ValidateAuthority(p.program, auctionAddr, vaultAuth); err != nil {
		return err
	}
	if unit != rec.Unit {
		return auction.ErrInvalidVaultAddress
	}
	if err := vault.ValidateHolding(vaultAuth, rec.Unit, vaultHolding); err != nil {
		return err
	}
	if err := vault.ValidateOwner(rec.Authority, authority.Address, authority.Signer); err != nil {
		return err
	}
	if pricing.CurrentPrice(rec, now).Status != pricing.StatusFinished {
		return auction.ErrNotFinished
	}

	remaining, err := txn.HoldingBalance(vaultHolding)
	if err != nil {
		return err
	}
	decimals, err := txn.UnitDecimals(rec.Unit)
	if err != nil {
		return err
	}
	txn.AuthorizeDerived(vaultAuth)
	if err := txn.TransferUnits(vaultHolding, destHolding, rec.Unit, remaining, decimals); err != nil {
		return err
	}

	receipt.UnitsMoved = remaining
	return nil
}

func (p *Processor) readRecord(txn *ledger.Txn, auctionAddr ledger.Address) (*auction.Record, error) {
	data, err := txn.Data(auctionAddr)
	if err != nil {
		return nil, err
	}
	return auction.UnpackRecord(data)
}
