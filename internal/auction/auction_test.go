package auction_test

import (
	"errors"
	"testing"

	"DutchAuction/internal/auction"
	"DutchAuction/internal/ledger"
)

func addr(b byte) ledger.Address {
	var a ledger.Address
	a[0] = b
	return a
}

func sampleRecord() *auction.Record {
	return &auction.Record{
		Initialized: true,
		Authority:   addr(1),
		Unit:        addr(2),
		TimeStart:   1_700_000_000,
		TimeStep:    60,
		PriceStart:  10_000_000_000,
		PriceStep:   1_000_000_000,
	}
}

func TestRecord_PackLength(t *testing.T) {
	if got := len(sampleRecord().Pack()); got != auction.RecordLen {
		t.Errorf("packed length = %d, want %d", got, auction.RecordLen)
	}
}

func TestRecord_PackUnpackRoundTrip(t *testing.T) {
	want := sampleRecord()
	got, err := auction.UnpackRecord(want.Pack())
	if err != nil {
		t.Fatalf("UnpackRecord: %v", err)
	}
	if *got != *want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestRecord_PackLayout(t *testing.T) {
	buf := sampleRecord().Pack()
	if buf[0] != 1 {
		t.Errorf("initialized byte = %d, want 1", buf[0])
	}
	if buf[1] != 1 || buf[33] != 2 {
		t.Errorf("authority/unit bytes misplaced: %d %d", buf[1], buf[33])
	}
	// time_start = 1_700_000_000 = 0x6553F100, little-endian at offset 65.
	if buf[65] != 0x00 || buf[66] != 0xF1 || buf[67] != 0x53 || buf[68] != 0x65 {
		t.Errorf("time_start bytes = % x", buf[65:73])
	}
}

func TestUnpackRecord_RejectsUninitialized(t *testing.T) {
	rec := sampleRecord()
	rec.Initialized = false
	_, err := auction.UnpackRecord(rec.Pack())
	if !errors.Is(err, auction.ErrUninitializedRecord) {
		t.Errorf("got %v, want ErrUninitializedRecord", err)
	}

	// The unchecked variant must still read it.
	got, err := auction.UnpackRecordUnchecked(rec.Pack())
	if err != nil {
		t.Fatalf("UnpackRecordUnchecked: %v", err)
	}
	if got.Initialized {
		t.Error("unchecked unpack reported initialized")
	}
}

func TestUnpackRecord_RejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, 96, 98} {
		if _, err := auction.UnpackRecord(make([]byte, n)); !errors.Is(err, auction.ErrInvalidRecordData) {
			t.Errorf("length %d: got %v, want ErrInvalidRecordData", n, err)
		}
	}
}

func TestUnpackRecord_RejectsBadInitializedByte(t *testing.T) {
	buf := sampleRecord().Pack()
	buf[0] = 2
	if _, err := auction.UnpackRecord(buf); !errors.Is(err, auction.ErrInvalidRecordData) {
		t.Errorf("got %v, want ErrInvalidRecordData", err)
	}
}

func TestCodeOf(t *testing.T) {
	code, ok := auction.CodeOf(auction.ErrEverythingSoldOut)
	if !ok || code != auction.CodeEverythingSoldOut {
		t.Errorf("CodeOf(ErrEverythingSoldOut) = %v, %v", code, ok)
	}
	if _, ok := auction.CodeOf(errors.New("plain")); ok {
		t.Error("plain error should carry no code")
	}
	if _, ok := auction.CodeOf(nil); ok {
		t.Error("nil should carry no code")
	}
}

func TestCode_StableValues(t *testing.T) {
	// The numeric codes are an external contract.
	cases := []struct {
		code auction.Code
		want uint32
		name string
	}{
		{auction.CodeAlreadyInUse, 0, "AlreadyInUse"},
		{auction.CodeInvalidInstruction, 1, "InvalidInstruction"},
		{auction.CodeInvalidInitializationTime, 2, "InvalidInitializationTime"},
		{auction.CodeInvalidVaultOwner, 3, "InvalidVaultOwner"},
		{auction.CodeInvalidVaultAddress, 4, "InvalidVaultAddress"},
		{auction.CodeNotStarted, 5, "NotStarted"},
		{auction.CodeFinished, 6, "Finished"},
		{auction.CodeEverythingSoldOut, 7, "EverythingSoldOut"},
		{auction.CodeOwnerMismatch, 8, "OwnerMismatch"},
		{auction.CodeNotFinished, 9, "NotFinished"},
	}
	for _, tc := range cases {
		if uint32(tc.code) != tc.want {
			t.Errorf("%s = %d, want %d", tc.name, tc.code, tc.want)
		}
		if tc.code.String() != tc.name {
			t.Errorf("String() = %q, want %q", tc.code.String(), tc.name)
		}
	}
}
