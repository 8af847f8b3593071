package ledger

import (
	"fmt"
	"sync"
)

// Account is a ledger account: a native-currency balance plus opaque data
// bytes owned by a program.
type Account struct {
	Native uint64
	Data   []byte
	Owner  Address // program that may write Data
}

// Unit is the metadata record of a fungible unit (its mint).
type Unit struct {
	Decimals uint8
	Supply   uint64
}

// Holding is an account holding an amount of one fungible unit on behalf
// of an owner identity.
type Holding struct {
	Unit   Address
	Owner  Address
	Amount uint64
}

// Runtime is an in-process ledger: the account store, the fungible-unit
// registry, and the transfer primitives the auction engine runs against.
//
// Mutation happens only through a Txn obtained from Begin. The runtime
// expects a single writer (the transition processor is single-threaded);
// the mutex protects committed state against concurrent readers such as
// the query path and the snapshotter.
type Runtime struct {
	mu       sync.RWMutex
	accounts map[Address]*Account
	units    map[Address]*Unit
	holdings map[Address]*Holding

	baseMinBalance uint64
	perByteBalance uint64
}

// Minimum-balance schedule for account creation. Flat base plus a per-byte
// charge on stored data, in the smallest native denomination.
const (
	defaultBaseMinBalance    = 890_880
	defaultPerByteMinBalance = 6_960
)

func NewRuntime() *Runtime {
	return &Runtime{
		accounts:       make(map[Address]*Account),
		units:          make(map[Address]*Unit),
		holdings:       make(map[Address]*Holding),
		baseMinBalance: defaultBaseMinBalance,
		perByteBalance: defaultPerByteMinBalance,
	}
}

// MinBalance returns the minimum native balance an account storing dataLen
// bytes must be created with.
func (r *Runtime) MinBalance(dataLen int) uint64 {
	return r.baseMinBalance + r.perByteBalance*uint64(dataLen)
}

// CreateFundedAccount installs an account with a native balance. Genesis
// and test setup; committed state is written directly.
func (r *Runtime) CreateFundedAccount(addr Address, native uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[addr] = &Account{Native: native}
}

// CreateDataAccount installs an account with preallocated zeroed data bytes
// owned by the given program, funded at the minimum balance.
func (r *Runtime) CreateDataAccount(addr Address, dataLen int, owner Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[addr] = &Account{
		Native: r.MinBalance(dataLen),
		Data:   make([]byte, dataLen),
		Owner:  owner,
	}
}

// CreateUnit registers a fungible unit with the given decimal precision.
func (r *Runtime) CreateUnit(unit Address, decimals uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units[unit] = &Unit{Decimals: decimals}
}

// CreateHoldingAccount installs a holding account for (owner, unit) at the
// given address. Genesis and test setup.
func (r *Runtime) CreateHoldingAccount(addr, owner, unit Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.units[unit]; !ok {
		return fmt.Errorf("unknown unit %s", unit)
	}
	if _, ok := r.holdings[addr]; ok {
		return fmt.Errorf("holding account %s already exists", addr)
	}
	r.holdings[addr] = &Holding{Unit: unit, Owner: owner}
	return nil
}

// MintUnits credits freshly minted units to a holding account.
func (r *Runtime) MintUnits(addr Address, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.holdings[addr]
	if !ok {
		return fmt.Errorf("unknown holding account %s", addr)
	}
	u := r.units[h.Unit]
	h.Amount += amount
	u.Supply += amount
	return nil
}

// Balance returns the committed native balance of addr (zero if absent).
func (r *Runtime) Balance(addr Address) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if acc, ok := r.accounts[addr]; ok {
		return acc.Native
	}
	return 0
}

// HoldingBalance returns the committed unit balance of a holding account.
func (r *Runtime) HoldingBalance(addr Address) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.holdings[addr]
	if !ok {
		return 0, fmt.Errorf("unknown holding account %s", addr)
	}
	return h.Amount, nil
}

// AccountData returns a copy of the committed data bytes of addr.
func (r *Runtime) AccountData(addr Address) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("unknown account %s", addr)
	}
	out := make([]byte, len(acc.Data))
	copy(out, acc.Data)
	return out, nil
}

// UnitDecimals returns the decimal precision of a registered unit.
func (r *Runtime) UnitDecimals(unit Address) (uint8, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[unit]
	if !ok {
		return 0, fmt.Errorf("unknown unit %s", unit)
	}
	return u.Decimals, nil
}
