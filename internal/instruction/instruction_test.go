package instruction_test

import (
	"bytes"
	"errors"
	"testing"

	"DutchAuction/internal/auction"
	"DutchAuction/internal/instruction"
	"DutchAuction/internal/ledger"
	"DutchAuction/internal/vault"
)

func addr(b byte) ledger.Address {
	var a ledger.Address
	a[0] = b
	return a
}

func TestEncodeDecode_Initialize(t *testing.T) {
	want := instruction.Initialize{
		TokenAmount: 100,
		TimeStart:   1_700_000_000,
		TimeStep:    60,
		PriceStart:  10_000_000_000,
		PriceStep:   1_000_000_000,
	}
	data := instruction.Encode(want)
	if len(data) != 41 {
		t.Errorf("encoded length = %d, want 41", len(data))
	}
	if data[0] != 0 {
		t.Errorf("tag = %d, want 0", data[0])
	}
	got, err := instruction.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestEncodeDecode_Bid(t *testing.T) {
	want := instruction.Bid{TokenAmount: 42}
	data := instruction.Encode(want)
	if len(data) != 9 || data[0] != 1 {
		t.Errorf("encoding = % x", data)
	}
	got, err := instruction.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestEncodeDecode_Withdrawals(t *testing.T) {
	if !bytes.Equal(instruction.Encode(instruction.WithdrawFunds{}), []byte{2}) {
		t.Error("WithdrawFunds must encode as the single byte 2")
	}
	if !bytes.Equal(instruction.Encode(instruction.WithdrawGoods{}), []byte{3}) {
		t.Error("WithdrawGoods must encode as the single byte 3")
	}
	for tag, want := range map[byte]instruction.Kind{
		2: instruction.KindWithdrawFunds,
		3: instruction.KindWithdrawGoods,
	} {
		got, err := instruction.Decode([]byte{tag})
		if err != nil {
			t.Fatalf("Decode(%d): %v", tag, err)
		}
		if got.Kind() != want {
			t.Errorf("Decode(%d).Kind() = %v, want %v", tag, got.Kind(), want)
		}
	}
}

func TestDecode_Strict(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unknown tag", []byte{4}},
		{"high tag", []byte{255, 0, 0}},
		{"initialize short", make([]byte, 40)},
		{"initialize long", make([]byte, 42)},
		{"bid short", []byte{1, 0, 0, 0}},
		{"bid trailing", append([]byte{1}, make([]byte, 9)...)},
		{"withdraw funds trailing", []byte{2, 0}},
		{"withdraw goods trailing", []byte{3, 0}},
	}
	for _, tc := range cases {
		if _, err := instruction.Decode(tc.data); !errors.Is(err, auction.ErrInvalidInstruction) {
			t.Errorf("%s: got %v, want ErrInvalidInstruction", tc.name, err)
		}
	}
}

func TestDecode_LittleEndianFields(t *testing.T) {
	data := make([]byte, 9)
	data[0] = 1
	data[1] = 0x01
	data[2] = 0x02
	got, err := instruction.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.(instruction.Bid).TokenAmount != 0x0201 {
		t.Errorf("TokenAmount = %#x, want 0x0201", got.(instruction.Bid).TokenAmount)
	}
}

func TestNewBid_DerivesVaultAccounts(t *testing.T) {
	program, auc, bidder, unit, bidderHold := addr(1), addr(2), addr(3), addr(4), addr(5)
	tx := instruction.NewBid("tx-1", program, auc, bidder, unit, bidderHold, instruction.Bid{TokenAmount: 7})

	if len(tx.Accounts) != instruction.BidAccountCount {
		t.Fatalf("account count = %d, want %d", len(tx.Accounts), instruction.BidAccountCount)
	}
	wantAuth := vault.DeriveAuthority(program, auc)
	if tx.Accounts[instruction.BidVaultAuthIdx].Address != wantAuth {
		t.Error("vault authority not derived from auction address")
	}
	if tx.Accounts[instruction.BidVaultHoldingIdx].Address != vault.AssociatedHolding(wantAuth, unit) {
		t.Error("vault holding not the associated holding of the authority")
	}
	if !tx.Accounts[instruction.BidBidderIdx].Signer {
		t.Error("bidder must be marked signer")
	}
	cmd, err := instruction.Decode(tx.Data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cmd != (instruction.Bid{TokenAmount: 7}) {
		t.Errorf("decoded %+v", cmd)
	}
}

func TestNewInitialize_AccountOrder(t *testing.T) {
	program, auc := addr(1), addr(2)
	authority, funder, unit := addr(3), addr(4), addr(5)
	srcHold, srcOwner := addr(6), addr(7)

	tx := instruction.NewInitialize("tx-2", program, auc, authority, funder, unit, srcHold, srcOwner,
		instruction.Initialize{TokenAmount: 10, TimeStart: 100, TimeStep: 1, PriceStart: 5, PriceStep: 1})

	if len(tx.Accounts) != instruction.InitAccountCount {
		t.Fatalf("account count = %d, want %d", len(tx.Accounts), instruction.InitAccountCount)
	}
	if tx.Accounts[instruction.InitAuctionIdx].Address != auc {
		t.Error("auction account misplaced")
	}
	if tx.Accounts[instruction.InitAuthorityIdx].Address != authority {
		t.Error("authority account misplaced")
	}
	if !tx.Accounts[instruction.InitFunderIdx].Signer || !tx.Accounts[instruction.InitSourceOwnerIdx].Signer {
		t.Error("funder and source owner must be signers")
	}
}

func TestNewWithdrawals_AccountOrder(t *testing.T) {
	program, auc, authority, unit := addr(1), addr(2), addr(3), addr(4)
	dest, destHold := addr(5), addr(6)

	wf := instruction.NewWithdrawFunds("tx-3", program, auc, authority, dest)
	if len(wf.Accounts) != instruction.WFAccountCount {
		t.Fatalf("WithdrawFunds account count = %d", len(wf.Accounts))
	}
	if !wf.Accounts[instruction.WFAuthorityIdx].Signer {
		t.Error("withdraw authority must be a signer")
	}
	if wf.Accounts[instruction.WFDestinationIdx].Address != dest {
		t.Error("destination misplaced")
	}

	wg := instruction.NewWithdrawGoods("tx-4", program, auc, authority, unit, destHold)
	if len(wg.Accounts) != instruction.WGAccountCount {
		t.Fatalf("WithdrawGoods account count = %d", len(wg.Accounts))
	}
	wantAuth := vault.DeriveAuthority(program, auc)
	if wg.Accounts[instruction.WGVaultHoldingIdx].Address != vault.AssociatedHolding(wantAuth, unit) {
		t.Error("vault holding not derived")
	}
}
