// Package auction defines the on-ledger auction record and the domain error
// surface shared by the pricing engine and the transition processor.
package auction

import (
	"encoding/binary"
	"fmt"

	"DutchAuction/internal/ledger"
)

// RecordLen is the exact serialized size of an auction record. The auction
// account is allocated at this size and never resized.
const RecordLen = 97

// Record is the persistent state of one auction. All fields except
// Initialized are written exactly once, by Initialize, and are immutable
// afterwards.
type Record struct {
	Initialized bool
	Authority   ledger.Address // seller; sole recipient of withdrawals
	Unit        ledger.Address // fungible unit being sold
	TimeStart   int64          // unix seconds; first price window opens here
	TimeStep    int64          // seconds per price window, > 0
	PriceStart  uint64         // price per unit in the first window
	PriceStep   uint64         // price decrement per elapsed window
}

// Pack serializes the record into its fixed 97-byte layout:
//
//	offset  0  initialized  u8 (0 or 1)
//	offset  1  authority    32 bytes
//	offset 33  unit         32 bytes
//	offset 65  time_start   i64 LE
//	offset 73  time_step    i64 LE
//	offset 81  price_start  u64 LE
//	offset 89  price_step   u64 LE
func (r *Record) Pack() []byte {
	buf := make([]byte, RecordLen)
	if r.Initialized {
		buf[0] = 1
	}
	copy(buf[1:33], r.Authority[:])
	copy(buf[33:65], r.Unit[:])
	binary.LittleEndian.PutUint64(buf[65:73], uint64(r.TimeStart))
	binary.LittleEndian.PutUint64(buf[73:81], uint64(r.TimeStep))
	binary.LittleEndian.PutUint64(buf[81:89], r.PriceStart)
	binary.LittleEndian.PutUint64(buf[89:97], r.PriceStep)
	return buf
}

// UnpackRecord deserializes an initialized auction record. It refuses
// uninitialized records with ErrUninitializedRecord; every read path except
// Initialize itself goes through this gate.
func UnpackRecord(data []byte) (*Record, error) {
	r, err := UnpackRecordUnchecked(data)
	if err != nil {
		return nil, err
	}
	if !r.Initialized {
		return nil, ErrUninitializedRecord
	}
	return r, nil
}

// UnpackRecordUnchecked deserializes a record without the initialization
// gate. Initialize uses it to inspect the flag of a fresh account.
func UnpackRecordUnchecked(data []byte) (*Record, error) {
	if len(data) != RecordLen {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidRecordData, len(data), RecordLen)
	}
	var r Record
	switch data[0] {
	case 0:
		r.Initialized = false
	case 1:
		r.Initialized = true
	default:
		return nil, fmt.Errorf("%w: initialized byte %d", ErrInvalidRecordData, data[0])
	}
	copy(r.Authority[:], data[1:33])
	copy(r.Unit[:], data[33:65])
	r.TimeStart = int64(binary.LittleEndian.Uint64(data[65:73]))
	r.TimeStep = int64(binary.LittleEndian.Uint64(data[73:81]))
	r.PriceStart = binary.LittleEndian.Uint64(data[81:89])
	r.PriceStep = binary.LittleEndian.Uint64(data[89:97])
	return &r, nil
}
