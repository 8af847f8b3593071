package ledger

// Snapshot is a point-in-time copy of committed ledger state, suitable for
// JSON serialization. Addresses marshal as hex via Address.MarshalText.
type Snapshot struct {
	Accounts map[Address]AccountSnapshot `json:"accounts"`
	Units    map[Address]UnitSnapshot    `json:"units"`
	Holdings map[Address]HoldingSnapshot `json:"holdings"`
}

type AccountSnapshot struct {
	Native uint64  `json:"native"`
	Data   []byte  `json:"data,omitempty"`
	Owner  Address `json:"owner"`
}

type UnitSnapshot struct {
	Decimals uint8  `json:"decimals"`
	Supply   uint64 `json:"supply"`
}

type HoldingSnapshot struct {
	Unit   Address `json:"unit"`
	Owner  Address `json:"owner"`
	Amount uint64  `json:"amount"`
}

// Snapshot deep-copies committed state. Safe to call while the processor is
// between transactions; the read lock keeps it consistent.
func (r *Runtime) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := &Snapshot{
		Accounts: make(map[Address]AccountSnapshot, len(r.accounts)),
		Units:    make(map[Address]UnitSnapshot, len(r.units)),
		Holdings: make(map[Address]HoldingSnapshot, len(r.holdings)),
	}
	for addr, acc := range r.accounts {
		snap := AccountSnapshot{Native: acc.Native, Owner: acc.Owner}
		if acc.Data != nil {
			snap.Data = make([]byte, len(acc.Data))
			copy(snap.Data, acc.Data)
		}
		s.Accounts[addr] = snap
	}
	for addr, u := range r.units {
		s.Units[addr] = UnitSnapshot{Decimals: u.Decimals, Supply: u.Supply}
	}
	for addr, h := range r.holdings {
		s.Holdings[addr] = HoldingSnapshot{Unit: h.Unit, Owner: h.Owner, Amount: h.Amount}
	}
	return s
}

// Restore replaces committed state with the snapshot's contents. Call only
// before the processor starts.
func (r *Runtime) Restore(s *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts = make(map[Address]*Account, len(s.Accounts))
	r.units = make(map[Address]*Unit, len(s.Units))
	r.holdings = make(map[Address]*Holding, len(s.Holdings))

	for addr, snap := range s.Accounts {
		acc := &Account{Native: snap.Native, Owner: snap.Owner}
		if snap.Data != nil {
			acc.Data = make([]byte, len(snap.Data))
			copy(acc.Data, snap.Data)
		}
		r.accounts[addr] = acc
	}
	for addr, snap := range s.Units {
		r.units[addr] = &Unit{Decimals: snap.Decimals, Supply: snap.Supply}
	}
	for addr, snap := range s.Holdings {
		r.holdings[addr] = &Holding{Unit: snap.Unit, Owner: snap.Owner, Amount: snap.Amount}
	}
}
