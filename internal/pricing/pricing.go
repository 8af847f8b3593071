// Package pricing computes the current per-unit price of a descending-price
// auction. It is the single source of truth for the lifecycle gates: every
// caller that needs to know whether an auction has started, is selling, or
// is finished asks this package.
package pricing

import (
	"math/bits"

	"DutchAuction/internal/auction"
)

// Status is the lifecycle phase a price computation lands in.
type Status int

const (
	StatusNotStarted Status = iota
	StatusActive
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "NotStarted"
	case StatusActive:
		return "Active"
	case StatusFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// State is the result of a price computation. Price is meaningful only when
// Status is StatusActive.
type State struct {
	Status Status
	Price  uint64
}

// CurrentPrice evaluates the auction's price schedule at time now.
//
// The price decays by PriceStep once per elapsed TimeStep window:
//
//	price = PriceStart - PriceStep * floor((now - TimeStart) / TimeStep)
//
// Before TimeStart the auction has not started. The moment the subtraction
// would reach exactly zero or wrap below it, the auction is finished and
// stays finished forever; an active auction's price is always positive.
func CurrentPrice(rec *auction.Record, now int64) State {
	if now < rec.TimeStart {
		return State{Status: StatusNotStarted}
	}
	// TimeStart <= now and TimeStep > 0 is a record invariant, so the
	// division is a plain non-negative floor.
	steps := uint64((now - rec.TimeStart) / rec.TimeStep)

	hi, decay := bits.Mul64(rec.PriceStep, steps)
	if hi != 0 || decay >= rec.PriceStart {
		return State{Status: StatusFinished}
	}
	return State{Status: StatusActive, Price: rec.PriceStart - decay}
}
