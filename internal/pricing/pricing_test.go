package pricing_test

import (
	"math"
	"testing"

	"DutchAuction/internal/auction"
	"DutchAuction/internal/pricing"
)

const (
	start      = int64(1_700_000_000)
	step       = int64(60)
	priceStart = uint64(10_000_000_000)
	priceStep  = uint64(1_000_000_000)
)

func rec() *auction.Record {
	return &auction.Record{
		Initialized: true,
		TimeStart:   start,
		TimeStep:    step,
		PriceStart:  priceStart,
		PriceStep:   priceStep,
	}
}

func TestCurrentPrice_NotStartedBeforeTimeStart(t *testing.T) {
	got := pricing.CurrentPrice(rec(), start-1)
	if got.Status != pricing.StatusNotStarted {
		t.Errorf("status = %v, want NotStarted", got.Status)
	}
}

func TestCurrentPrice_StartPriceThroughFirstWindow(t *testing.T) {
	for _, now := range []int64{start, start + 1, start + step - 1} {
		got := pricing.CurrentPrice(rec(), now)
		if got.Status != pricing.StatusActive || got.Price != priceStart {
			t.Errorf("at %d: got %+v, want Active %d", now, got, priceStart)
		}
	}
}

func TestCurrentPrice_StepSchedule(t *testing.T) {
	// price_start 10e9, price_step 1e9, time_step 60s: the price drops by
	// 1e9 at each window boundary and the auction finishes when it would
	// reach zero, at the start of the tenth window.
	cases := []struct {
		elapsed int64
		want    pricing.State
	}{
		{0, pricing.State{Status: pricing.StatusActive, Price: 10_000_000_000}},
		{59, pricing.State{Status: pricing.StatusActive, Price: 10_000_000_000}},
		{60, pricing.State{Status: pricing.StatusActive, Price: 9_000_000_000}},
		{119, pricing.State{Status: pricing.StatusActive, Price: 9_000_000_000}},
		{120, pricing.State{Status: pricing.StatusActive, Price: 8_000_000_000}},
		{540, pricing.State{Status: pricing.StatusActive, Price: 1_000_000_000}},
		{599, pricing.State{Status: pricing.StatusActive, Price: 1_000_000_000}},
		{600, pricing.State{Status: pricing.StatusFinished}},
		{6000, pricing.State{Status: pricing.StatusFinished}},
	}
	for _, tc := range cases {
		got := pricing.CurrentPrice(rec(), start+tc.elapsed)
		if got != tc.want {
			t.Errorf("elapsed %ds: got %+v, want %+v", tc.elapsed, got, tc.want)
		}
	}
}

func TestCurrentPrice_MonotoneNonIncreasing(t *testing.T) {
	prev := uint64(math.MaxUint64)
	for now := start; now < start+700; now++ {
		got := pricing.CurrentPrice(rec(), now)
		if got.Status == pricing.StatusFinished {
			return // finished is terminal; schedule exhausted
		}
		if got.Price > prev {
			t.Fatalf("price rose at %d: %d -> %d", now, prev, got.Price)
		}
		prev = got.Price
	}
	t.Fatal("schedule never finished")
}

func TestCurrentPrice_UnderflowIsFinished(t *testing.T) {
	// A decay larger than the start price must finish, not wrap.
	r := rec()
	r.PriceStart = 5
	r.PriceStep = 3
	got := pricing.CurrentPrice(r, start+2*step) // decay = 6 > 5
	if got.Status != pricing.StatusFinished {
		t.Errorf("got %+v, want Finished", got)
	}
}

func TestCurrentPrice_ExactZeroIsFinished(t *testing.T) {
	r := rec()
	r.PriceStart = 6
	r.PriceStep = 3
	got := pricing.CurrentPrice(r, start+2*step) // decay = 6 == price_start
	if got.Status != pricing.StatusFinished {
		t.Errorf("got %+v, want Finished", got)
	}
}

func TestCurrentPrice_ZeroStepNeverDecays(t *testing.T) {
	r := rec()
	r.PriceStep = 0
	got := pricing.CurrentPrice(r, start+1_000_000*step)
	if got.Status != pricing.StatusActive || got.Price != r.PriceStart {
		t.Errorf("got %+v, want Active %d", got, r.PriceStart)
	}
}

func TestCurrentPrice_DecayProductOverflowIsFinished(t *testing.T) {
	// price_step * steps overflows uint64; the auction must read as
	// finished rather than wrapping to a small decay.
	r := rec()
	r.PriceStep = math.MaxUint64 / 2
	got := pricing.CurrentPrice(r, start+3*step)
	if got.Status != pricing.StatusFinished {
		t.Errorf("got %+v, want Finished", got)
	}
}
