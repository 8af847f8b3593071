package ledger

import (
	"encoding/hex"
	"fmt"
)

// AddressLen is the byte length of every ledger address and identity.
const AddressLen = 32

// Address identifies an account on the ledger. Derived addresses (vault
// authorities, holding accounts) use the same type; whether a private key
// exists for an address is not observable from the address itself.
type Address [AddressLen]byte

// ZeroAddress is the all-zero address, used as the "unset" sentinel.
var ZeroAddress Address

// AddressFromBytes copies b into an Address. b must be exactly AddressLen bytes.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLen {
		return a, fmt.Errorf("address must be %d bytes, got %d", AddressLen, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// ParseAddress decodes a hex-encoded address string.
func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("parse address: %w", err)
	}
	return AddressFromBytes(b)
}

// MustParseAddress is ParseAddress that panics on error. For tests and
// static configuration only.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

// MarshalText encodes the address as lowercase hex. Together with
// UnmarshalText it makes addresses JSON-friendly in envelopes and receipts.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}
