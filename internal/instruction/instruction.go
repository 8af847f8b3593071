// Package instruction defines the wire format of auction commands and the
// client-side builders that assemble submittable transactions.
package instruction

import (
	"encoding/binary"

	"DutchAuction/internal/auction"
)

// Kind tags a command on the wire. Tag values are the external contract.
type Kind uint8

const (
	KindInitialize Kind = iota
	KindBid
	KindWithdrawFunds
	KindWithdrawGoods
)

func (k Kind) String() string {
	switch k {
	case KindInitialize:
		return "Initialize"
	case KindBid:
		return "Bid"
	case KindWithdrawFunds:
		return "WithdrawFunds"
	case KindWithdrawGoods:
		return "WithdrawGoods"
	default:
		return "Unknown"
	}
}

// Command is one decoded auction instruction. The set is closed: exactly
// the four command types below implement it.
type Command interface {
	Kind() Kind
}

// Initialize creates an auction: moves TokenAmount units into the vault and
// writes the price schedule into the auction record.
type Initialize struct {
	TokenAmount uint64
	TimeStart   int64
	TimeStep    int64
	PriceStart  uint64
	PriceStep   uint64
}

// Bid buys up to TokenAmount units at the current price, capped to what the
// vault still holds.
type Bid struct {
	TokenAmount uint64
}

// WithdrawFunds sends the vault's entire native proceeds to the authority.
// Valid only once the auction is finished.
type WithdrawFunds struct{}

// WithdrawGoods returns the vault's entire remaining units to the
// authority. Valid only once the auction is finished.
type WithdrawGoods struct{}

func (Initialize) Kind() Kind    { return KindInitialize }
func (Bid) Kind() Kind           { return KindBid }
func (WithdrawFunds) Kind() Kind { return KindWithdrawFunds }
func (WithdrawGoods) Kind() Kind { return KindWithdrawGoods }

// Serialized payload sizes, excluding the tag byte.
const (
	initializePayloadLen = 40
	bidPayloadLen        = 8
)

// Encode serializes cmd as tag byte plus little-endian fixed-width fields.
func Encode(cmd Command) []byte {
	switch c := cmd.(type) {
	case Initialize:
		buf := make([]byte, 1+initializePayloadLen)
		buf[0] = byte(KindInitialize)
		binary.LittleEndian.PutUint64(buf[1:9], c.TokenAmount)
		binary.LittleEndian.PutUint64(buf[9:17], uint64(c.TimeStart))
		binary.LittleEndian.PutUint64(buf[17:25], uint64(c.TimeStep))
		binary.LittleEndian.PutUint64(buf[25:33], c.PriceStart)
		binary.LittleEndian.PutUint64(buf[33:41], c.PriceStep)
		return buf
	case Bid:
		buf := make([]byte, 1+bidPayloadLen)
		buf[0] = byte(KindBid)
		binary.LittleEndian.PutUint64(buf[1:9], c.TokenAmount)
		return buf
	case WithdrawFunds:
		return []byte{byte(KindWithdrawFunds)}
	case WithdrawGoods:
		return []byte{byte(KindWithdrawGoods)}
	default:
		panic("instruction: unknown command type")
	}
}

// Decode parses instruction bytes strictly: unknown tag, short payload, and
// trailing bytes all reject with InvalidInstruction. Nothing is mutated on
// a decode failure.
func Decode(data []byte) (Command, error) {
	if len(data) == 0 {
		return nil, auction.ErrInvalidInstruction
	}
	payload := data[1:]
	switch Kind(data[0]) {
	case KindInitialize:
		if len(payload) != initializePayloadLen {
			return nil, auction.ErrInvalidInstruction
		}
		return Initialize{
			TokenAmount: binary.LittleEndian.Uint64(payload[0:8]),
			TimeStart:   int64(binary.LittleEndian.Uint64(payload[8:16])),
			TimeStep:    int64(binary.LittleEndian.Uint64(payload[16:24])),
			PriceStart:  binary.LittleEndian.Uint64(payload[24:32]),
			PriceStep:   binary.LittleEndian.Uint64(payload[32:40]),
		}, nil
	case KindBid:
		if len(payload) != bidPayloadLen {
			return nil, auction.ErrInvalidInstruction
		}
		return Bid{TokenAmount: binary.LittleEndian.Uint64(payload)}, nil
	case KindWithdrawFunds:
		if len(payload) != 0 {
			return nil, auction.ErrInvalidInstruction
		}
		return WithdrawFunds{}, nil
	case KindWithdrawGoods:
		if len(payload) != 0 {
			return nil, auction.ErrInvalidInstruction
		}
		return WithdrawGoods{}, nil
	default:
		return nil, auction.ErrInvalidInstruction
	}
}
