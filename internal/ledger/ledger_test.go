package ledger_test

import (
	"errors"
	"testing"

	"DutchAuction/internal/ledger"
)

func addr(b byte) ledger.Address {
	var a ledger.Address
	a[0] = b
	return a
}

// ============================================================================
// Test: Address
// ============================================================================

func TestAddress_HexRoundTrip(t *testing.T) {
	a := addr(0xAB)
	parsed, err := ledger.ParseAddress(a.String())
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if parsed != a {
		t.Errorf("got %s, want %s", parsed, a)
	}
}

func TestAddress_ParseRejectsBadInput(t *testing.T) {
	if _, err := ledger.ParseAddress("abcd"); err == nil {
		t.Error("short hex should not parse")
	}
	if _, err := ledger.ParseAddress("zz"); err == nil {
		t.Error("non-hex should not parse")
	}
}

func TestAddress_IsZero(t *testing.T) {
	if !ledger.ZeroAddress.IsZero() {
		t.Error("ZeroAddress.IsZero() = false")
	}
	if addr(1).IsZero() {
		t.Error("non-zero address reported zero")
	}
}

// ============================================================================
// Test: ManualClock
// ============================================================================

func TestManualClock(t *testing.T) {
	c := ledger.NewManualClock(1000)
	if got := c.Now(); got != 1000 {
		t.Errorf("Now() = %d, want 1000", got)
	}
	if got := c.Advance(60); got != 1060 {
		t.Errorf("Advance(60) = %d, want 1060", got)
	}
	c.Set(500)
	if got := c.Now(); got != 500 {
		t.Errorf("Now() after Set = %d, want 500", got)
	}
}

// ============================================================================
// Test: Txn overlay
// ============================================================================

func TestTxn_CommitAppliesTransfer(t *testing.T) {
	rt := ledger.NewRuntime()
	alice, bob := addr(1), addr(2)
	rt.CreateFundedAccount(alice, 1_000_000)

	txn := rt.Begin([]ledger.Address{alice})
	if err := txn.TransferNative(alice, bob, 400_000); err != nil {
		t.Fatalf("TransferNative: %v", err)
	}
	txn.Commit()

	if got := rt.Balance(alice); got != 600_000 {
		t.Errorf("alice balance = %d, want 600000", got)
	}
	if got := rt.Balance(bob); got != 400_000 {
		t.Errorf("bob balance = %d, want 400000", got)
	}
}

func TestTxn_AbortLeavesNoTrace(t *testing.T) {
	rt := ledger.NewRuntime()
	alice, bob := addr(1), addr(2)
	rt.CreateFundedAccount(alice, 1_000_000)

	txn := rt.Begin([]ledger.Address{alice})
	if err := txn.TransferNative(alice, bob, 400_000); err != nil {
		t.Fatalf("TransferNative: %v", err)
	}
	// Drop the txn without committing.

	if got := rt.Balance(alice); got != 1_000_000 {
		t.Errorf("alice balance = %d, want 1000000", got)
	}
	if got := rt.Balance(bob); got != 0 {
		t.Errorf("bob balance = %d, want 0", got)
	}
}

func TestTxn_TransferRequiresSigner(t *testing.T) {
	rt := ledger.NewRuntime()
	alice, bob := addr(1), addr(2)
	rt.CreateFundedAccount(alice, 1_000_000)

	txn := rt.Begin(nil)
	err := txn.TransferNative(alice, bob, 1)
	if !errors.Is(err, ledger.ErrMissingSignature) {
		t.Errorf("got %v, want ErrMissingSignature", err)
	}
}

func TestTxn_TransferRejectsOverdraw(t *testing.T) {
	rt := ledger.NewRuntime()
	alice, bob := addr(1), addr(2)
	rt.CreateFundedAccount(alice, 100)

	txn := rt.Begin([]ledger.Address{alice})
	if err := txn.TransferNative(alice, bob, 101); err == nil {
		t.Error("overdraw should fail")
	}
}

func TestTxn_DerivedCapabilityScopedToTxn(t *testing.T) {
	rt := ledger.NewRuntime()
	vault, dest := addr(7), addr(8)
	rt.CreateFundedAccount(vault, 500)

	txn := rt.Begin(nil)
	txn.AuthorizeDerived(vault)
	if err := txn.TransferNative(vault, dest, 200); err != nil {
		t.Fatalf("transfer under derived capability: %v", err)
	}
	txn.Commit()

	// A fresh txn does not inherit the capability.
	txn2 := rt.Begin(nil)
	err := txn2.TransferNative(vault, dest, 1)
	if !errors.Is(err, ledger.ErrMissingSignature) {
		t.Errorf("got %v, want ErrMissingSignature", err)
	}
}

func TestTxn_CreateAccountChargesMinBalance(t *testing.T) {
	rt := ledger.NewRuntime()
	funder, program, fresh := addr(1), addr(9), addr(3)
	rt.CreateFundedAccount(funder, 10_000_000)

	txn := rt.Begin([]ledger.Address{funder})
	if err := txn.CreateAccount(funder, fresh, 97, program); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	txn.Commit()

	want := rt.MinBalance(97)
	if got := rt.Balance(fresh); got != want {
		t.Errorf("fresh account balance = %d, want %d", got, want)
	}
	data, err := rt.AccountData(fresh)
	if err != nil {
		t.Fatalf("AccountData: %v", err)
	}
	if len(data) != 97 {
		t.Errorf("data length = %d, want 97", len(data))
	}
}

func TestTxn_CreateAccountRejectsExisting(t *testing.T) {
	rt := ledger.NewRuntime()
	funder, program := addr(1), addr(9)
	rt.CreateFundedAccount(funder, 10_000_000)

	txn := rt.Begin([]ledger.Address{funder})
	if err := txn.CreateAccount(funder, funder, 0, program); err == nil {
		t.Error("creating over an existing account should fail")
	}
}

func TestTxn_SetDataFixedSize(t *testing.T) {
	rt := ledger.NewRuntime()
	program, acct := addr(9), addr(3)
	rt.CreateDataAccount(acct, 4, program)

	txn := rt.Begin(nil)
	if err := txn.SetData(acct, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if err := txn.SetData(acct, []byte{1, 2}); err == nil {
		t.Error("resizing account data should fail")
	}
	txn.Commit()

	data, _ := rt.AccountData(acct)
	if data[0] != 1 || data[3] != 4 {
		t.Errorf("committed data = %v", data)
	}
}

// ============================================================================
// Test: fungible units
// ============================================================================

func TestTxn_CheckedUnitTransfer(t *testing.T) {
	rt := ledger.NewRuntime()
	unit, alice, bob := addr(10), addr(1), addr(2)
	aliceHold, bobHold := addr(11), addr(12)

	rt.CreateUnit(unit, 6)
	if err := rt.CreateHoldingAccount(aliceHold, alice, unit); err != nil {
		t.Fatal(err)
	}
	if err := rt.CreateHoldingAccount(bobHold, bob, unit); err != nil {
		t.Fatal(err)
	}
	if err := rt.MintUnits(aliceHold, 1000); err != nil {
		t.Fatal(err)
	}

	txn := rt.Begin([]ledger.Address{alice})
	if err := txn.TransferUnits(aliceHold, bobHold, unit, 300, 6); err != nil {
		t.Fatalf("TransferUnits: %v", err)
	}
	txn.Commit()

	if got, _ := rt.HoldingBalance(aliceHold); got != 700 {
		t.Errorf("alice holding = %d, want 700", got)
	}
	if got, _ := rt.HoldingBalance(bobHold); got != 300 {
		t.Errorf("bob holding = %d, want 300", got)
	}
}

func TestTxn_UnitTransferRejectsWrongDecimals(t *testing.T) {
	rt := ledger.NewRuntime()
	unit, alice, bob := addr(10), addr(1), addr(2)
	aliceHold, bobHold := addr(11), addr(12)

	rt.CreateUnit(unit, 6)
	rt.CreateHoldingAccount(aliceHold, alice, unit)
	rt.CreateHoldingAccount(bobHold, bob, unit)
	rt.MintUnits(aliceHold, 1000)

	txn := rt.Begin([]ledger.Address{alice})
	if err := txn.TransferUnits(aliceHold, bobHold, unit, 1, 9); err == nil {
		t.Error("decimals mismatch should fail")
	}
}

func TestTxn_UnitTransferRequiresOwnerSignature(t *testing.T) {
	rt := ledger.NewRuntime()
	unit, alice, bob := addr(10), addr(1), addr(2)
	aliceHold, bobHold := addr(11), addr(12)

	rt.CreateUnit(unit, 6)
	rt.CreateHoldingAccount(aliceHold, alice, unit)
	rt.CreateHoldingAccount(bobHold, bob, unit)
	rt.MintUnits(aliceHold, 1000)

	txn := rt.Begin([]ledger.Address{bob})
	err := txn.TransferUnits(aliceHold, bobHold, unit, 1, 6)
	if !errors.Is(err, ledger.ErrMissingSignature) {
		t.Errorf("got %v, want ErrMissingSignature", err)
	}
}

func TestTxn_CreateHolding(t *testing.T) {
	rt := ledger.NewRuntime()
	unit, funder, owner, at := addr(10), addr(1), addr(2), addr(13)

	rt.CreateUnit(unit, 0)
	rt.CreateFundedAccount(funder, 100_000_000)

	txn := rt.Begin([]ledger.Address{funder})
	if err := txn.CreateHolding(funder, at, owner, unit); err != nil {
		t.Fatalf("CreateHolding: %v", err)
	}
	txn.Commit()

	if got, err := rt.HoldingBalance(at); err != nil || got != 0 {
		t.Errorf("new holding balance = %d, %v", got, err)
	}
}

// ============================================================================
// Test: snapshot
// ============================================================================

func TestRuntime_SnapshotRestore(t *testing.T) {
	rt := ledger.NewRuntime()
	unit, alice := addr(10), addr(1)
	aliceHold, dataAcct, program := addr(11), addr(12), addr(9)

	rt.CreateUnit(unit, 6)
	rt.CreateFundedAccount(alice, 777)
	rt.CreateDataAccount(dataAcct, 3, program)
	rt.CreateHoldingAccount(aliceHold, alice, unit)
	rt.MintUnits(aliceHold, 42)

	snap := rt.Snapshot()

	restored := ledger.NewRuntime()
	restored.Restore(snap)

	if got := restored.Balance(alice); got != 777 {
		t.Errorf("alice balance = %d, want 777", got)
	}
	if got, _ := restored.HoldingBalance(aliceHold); got != 42 {
		t.Errorf("alice holding = %d, want 42", got)
	}
	if got, _ := restored.UnitDecimals(unit); got != 6 {
		t.Errorf("unit decimals = %d, want 6", got)
	}
	data, err := restored.AccountData(dataAcct)
	if err != nil || len(data) != 3 {
		t.Errorf("data account = %v, %v", data, err)
	}

	// The snapshot is a copy: mutating the source must not leak into it.
	rt.MintUnits(aliceHold, 1)
	if got := snap.Holdings[aliceHold].Amount; got != 42 {
		t.Errorf("snapshot mutated: holding = %d", got)
	}
}
