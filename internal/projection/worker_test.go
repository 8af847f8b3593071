package projection_test

import (
	"context"
	"testing"

	"DutchAuction/internal/core"
	"DutchAuction/internal/instruction"
	"DutchAuction/internal/persistence"
	"DutchAuction/internal/projection"
	"DutchAuction/internal/query"
	"DutchAuction/internal/testutil"
)

// Drives the projection worker through a full auction lifecycle and reads
// the result back through the query service.
func TestWorker_Integration(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := persistence.NewMigrator(db, "../../migrations").Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	auctionAddr := testutil.Addr(2)
	receipts := []*core.Receipt{
		{
			Sequence: 1, TxID: "tx-init", Kind: instruction.KindInitialize,
			KindName: "Initialize", Auction: auctionAddr,
			Authority: testutil.Addr(4), Unit: testutil.Addr(3),
			UnitsMoved: 100, Timestamp: 1_700_000_000,
			TimeStart: 1_700_000_060, TimeStep: 60,
			PriceStart: 10_000_000_000, PriceStep: 1_000_000_000,
		},
		{
			Sequence: 2, TxID: "tx-bid", Kind: instruction.KindBid,
			KindName: "Bid", Auction: auctionAddr,
			UnitsMoved: 1, NativeMoved: 10_000_000_000,
			Price: 10_000_000_000, Timestamp: 1_700_000_060,
		},
		// Stale replay of the same bid must not double-apply.
		{
			Sequence: 2, TxID: "tx-bid", Kind: instruction.KindBid,
			KindName: "Bid", Auction: auctionAddr,
			UnitsMoved: 1, NativeMoved: 10_000_000_000,
			Price: 10_000_000_000, Timestamp: 1_700_000_060,
		},
		{
			Sequence: 3, TxID: "tx-wf", Kind: instruction.KindWithdrawFunds,
			KindName: "WithdrawFunds", Auction: auctionAddr,
			NativeMoved: 10_000_000_000, Timestamp: 1_700_000_700,
		},
	}

	ch := make(chan *core.Receipt, len(receipts))
	for _, rcpt := range receipts {
		ch <- rcpt
	}
	close(ch)

	worker := projection.NewWorker(db, ch)
	if err := worker.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	svc := query.NewService(db)
	sum, err := svc.GetAuction(ctx, auctionAddr)
	if err != nil {
		t.Fatalf("GetAuction: %v", err)
	}
	if sum.Auction != auctionAddr {
		t.Errorf("auction = %s, want %s", sum.Auction, auctionAddr)
	}
	if sum.UnitsRemaining != 99 {
		t.Errorf("units_remaining = %d, want 99", sum.UnitsRemaining)
	}
	if sum.NativeProceeds != 0 {
		t.Errorf("native_proceeds = %d, want 0 after withdrawal", sum.NativeProceeds)
	}
	if !sum.FundsWithdrawn {
		t.Error("funds_withdrawn = false, want true")
	}
	if sum.GoodsWithdrawn {
		t.Error("goods_withdrawn = true, want false")
	}
	if sum.AsOfSequence != 3 {
		t.Errorf("as_of_sequence = %d, want 3", sum.AsOfSequence)
	}

	if _, err := svc.GetAuction(ctx, testutil.Addr(99)); err != query.ErrNotFound {
		t.Errorf("GetAuction(unknown) error = %v, want ErrNotFound", err)
	}
}
