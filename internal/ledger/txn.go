package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrMissingSignature is the fatal ledger-level authorization failure. It is
// deliberately not part of the auction error enum: a transaction that claims
// an identity without its signature is malformed at the ledger boundary, not
// a domain outcome.
var ErrMissingSignature = errors.New("missing required signature")

// Serialized size of a holding account record, used for its minimum balance.
const holdingAccountSize = 72

// Txn is a single-instruction view of the ledger. All reads and writes go
// through a copy-on-write overlay; nothing is observable in committed state
// until Commit. Dropping a Txn without committing aborts it with no trace.
//
// A Txn also carries the instruction's authorization context: the set of
// transaction signers, plus any derived addresses the program has asserted
// signing capability for. Derived capability is scoped to this Txn only.
type Txn struct {
	rt *Runtime
	id uuid.UUID

	accounts map[Address]*Account
	holdings map[Address]*Holding

	signers map[Address]bool
	derived map[Address]bool

	committed bool
}

// Begin opens a transaction with the given verified signer set. The runtime
// expects one open Txn at a time; the processor is single-threaded.
func (r *Runtime) Begin(signers []Address) *Txn {
	s := make(map[Address]bool, len(signers))
	for _, addr := range signers {
		s[addr] = true
	}
	return &Txn{
		rt:       r,
		id:       uuid.New(),
		accounts: make(map[Address]*Account),
		holdings: make(map[Address]*Holding),
		signers:  s,
		derived:  make(map[Address]bool),
	}
}

// ID is the transaction's runtime-assigned identifier.
func (t *Txn) ID() uuid.UUID {
	return t.id
}

// IsSigner reports whether addr signed the transaction.
func (t *Txn) IsSigner(addr Address) bool {
	return t.signers[addr]
}

// AuthorizeDerived grants addr signing capability for the remainder of this
// transaction. The caller asserts the address is derivable from its own
// identity; the vault validators are responsible for proving that before
// any transfer uses the capability.
func (t *Txn) AuthorizeDerived(addr Address) {
	t.derived[addr] = true
}

func (t *Txn) canSign(addr Address) bool {
	return t.signers[addr] || t.derived[addr]
}

// account returns the overlay copy of addr, faulting it in from committed
// state on first touch. Returns nil if the account does not exist anywhere.
func (t *Txn) account(addr Address) *Account {
	if acc, ok := t.accounts[addr]; ok {
		return acc
	}
	t.rt.mu.RLock()
	committed, ok := t.rt.accounts[addr]
	t.rt.mu.RUnlock()
	if !ok {
		return nil
	}
	cp := &Account{Native: committed.Native, Owner: committed.Owner}
	if committed.Data != nil {
		cp.Data = make([]byte, len(committed.Data))
		copy(cp.Data, committed.Data)
	}
	t.accounts[addr] = cp
	return cp
}

func (t *Txn) holding(addr Address) *Holding {
	if h, ok := t.holdings[addr]; ok {
		return h
	}
	t.rt.mu.RLock()
	committed, ok := t.rt.holdings[addr]
	t.rt.mu.RUnlock()
	if !ok {
		return nil
	}
	cp := *committed
	t.holdings[addr] = &cp
	return &cp
}

// Data returns the data bytes of addr within this transaction's view.
func (t *Txn) Data(addr Address) ([]byte, error) {
	acc := t.account(addr)
	if acc == nil {
		return nil, fmt.Errorf("unknown account %s", addr)
	}
	return acc.Data, nil
}

// SetData replaces the data bytes of addr. The new data must not change
// length; ledger accounts are fixed-size once allocated.
func (t *Txn) SetData(addr Address, data []byte) error {
	acc := t.account(addr)
	if acc == nil {
		return fmt.Errorf("unknown account %s", addr)
	}
	if len(data) != len(acc.Data) {
		return fmt.Errorf("account %s holds %d data bytes, cannot write %d", addr, len(acc.Data), len(data))
	}
	acc.Data = data
	return nil
}

// Balance returns the native balance of addr within this view.
func (t *Txn) Balance(addr Address) uint64 {
	if acc := t.account(addr); acc != nil {
		return acc.Native
	}
	return 0
}

// TransferNative moves native currency from one account to another. The
// source must have signed the transaction or hold derived capability.
// Transferring to an address with no account implicitly creates one.
func (t *Txn) TransferNative(from, to Address, amount uint64) error {
	if !t.canSign(from) {
		return fmt.Errorf("native transfer from %s: %w", from, ErrMissingSignature)
	}
	src := t.account(from)
	if src == nil {
		return fmt.Errorf("unknown account %s", from)
	}
	if src.Native < amount {
		return fmt.Errorf("account %s holds %d, cannot transfer %d", from, src.Native, amount)
	}
	dst := t.account(to)
	if dst == nil {
		dst = &Account{}
		t.accounts[to] = dst
	}
	src.Native -= amount
	dst.Native += amount
	return nil
}

// CreateAccount allocates a new account at addr with dataLen zeroed data
// bytes owned by owner, moving the minimum balance from funder.
func (t *Txn) CreateAccount(funder, addr Address, dataLen int, owner Address) error {
	if t.account(addr) != nil {
		return fmt.Errorf("account %s already exists", addr)
	}
	if err := t.TransferNative(funder, addr, t.rt.MinBalance(dataLen)); err != nil {
		return fmt.Errorf("fund new account: %w", err)
	}
	acc := t.accounts[addr]
	acc.Data = make([]byte, dataLen)
	acc.Owner = owner
	return nil
}

// CreateHolding allocates a holding account for (owner, unit) at addr,
// charging funder the minimum balance for the holding record.
func (t *Txn) CreateHolding(funder, addr, owner, unit Address) error {
	t.rt.mu.RLock()
	_, unitKnown := t.rt.units[unit]
	t.rt.mu.RUnlock()
	if !unitKnown {
		return fmt.Errorf("unknown unit %s", unit)
	}
	if t.holding(addr) != nil {
		return fmt.Errorf("holding account %s already exists", addr)
	}
	if err := t.TransferNative(funder, addr, t.rt.MinBalance(holdingAccountSize)); err != nil {
		return fmt.Errorf("fund holding account: %w", err)
	}
	t.holdings[addr] = &Holding{Unit: unit, Owner: owner}
	return nil
}

// HoldingBalance returns the unit balance of a holding account in this view.
func (t *Txn) HoldingBalance(addr Address) (uint64, error) {
	h := t.holding(addr)
	if h == nil {
		return 0, fmt.Errorf("unknown holding account %s", addr)
	}
	return h.Amount, nil
}

// TransferUnits moves fungible units between two holding accounts of the
// same unit. decimals must match the unit's registered precision (the
// checked-transfer contract) and the source owner must have signed or hold
// derived capability.
func (t *Txn) TransferUnits(from, to, unit Address, amount uint64, decimals uint8) error {
	t.rt.mu.RLock()
	u, ok := t.rt.units[unit]
	t.rt.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown unit %s", unit)
	}
	if u.Decimals != decimals {
		return fmt.Errorf("unit %s has %d decimals, transfer asserted %d", unit, u.Decimals, decimals)
	}

	src := t.holding(from)
	if src == nil {
		return fmt.Errorf("unknown holding account %s", from)
	}
	dst := t.holding(to)
	if dst == nil {
		return fmt.Errorf("unknown holding account %s", to)
	}
	if src.Unit != unit || dst.Unit != unit {
		return fmt.Errorf("holding accounts do not match unit %s", unit)
	}
	if !t.canSign(src.Owner) {
		return fmt.Errorf("unit transfer from %s: %w", from, ErrMissingSignature)
	}
	if src.Amount < amount {
		return fmt.Errorf("holding %s has %d units, cannot transfer %d", from, src.Amount, amount)
	}
	src.Amount -= amount
	dst.Amount += amount
	return nil
}

// UnitDecimals reads the decimal precision of a unit.
func (t *Txn) UnitDecimals(unit Address) (uint8, error) {
	return t.rt.UnitDecimals(unit)
}

// Commit applies the overlay to committed state. All writes land as one
// unit; once Commit returns, the instruction's effects are visible and
// final. Commit on an already-committed Txn panics; that is a programming
// error, not a runtime condition.
func (t *Txn) Commit() {
	if t.committed {
		panic("ledger: double commit")
	}
	t.committed = true

	t.rt.mu.Lock()
	defer t.rt.mu.Unlock()
	for addr, acc := range t.accounts {
		t.rt.accounts[addr] = acc
	}
	for addr, h := range t.holdings {
		t.rt.holdings[addr] = h
	}
}
