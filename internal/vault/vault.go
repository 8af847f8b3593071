// Package vault derives and validates the keyless accounts an auction's
// escrow lives in. The vault authority is derived from the auction address
// under the program identity, so no private key exists for it; the program
// grants itself signing capability for the authority per instruction.
package vault

import (
	"crypto/sha256"

	"DutchAuction/internal/auction"
	"DutchAuction/internal/ledger"
)

// Domain-separation prefixes for the two derivations. Changing either
// changes every vault address in existence.
const (
	authoritySeed = "auction-vault-authority"
	holdingSeed   = "auction-vault-holding"
)

// DeriveAuthority returns the vault authority for an auction: the keyless
// address that owns the auction's escrow under the given program.
func DeriveAuthority(program, auctionAddr ledger.Address) ledger.Address {
	h := sha256.New()
	h.Write([]byte(authoritySeed))
	h.Write(program[:])
	h.Write(auctionAddr[:])
	var out ledger.Address
	h.Sum(out[:0])
	return out
}

// AssociatedHolding returns the canonical holding-account address for
// (owner, unit). The vault's unit escrow is the associated holding of the
// vault authority.
func AssociatedHolding(owner, unit ledger.Address) ledger.Address {
	h := sha256.New()
	h.Write([]byte(holdingSeed))
	h.Write(owner[:])
	h.Write(unit[:])
	var out ledger.Address
	h.Sum(out[:0])
	return out
}

// ValidateAuthority checks that provided is the vault authority derived
// from the auction address. Runs before any mutation on every instruction
// that touches the vault.
func ValidateAuthority(program, auctionAddr, provided ledger.Address) error {
	if DeriveAuthority(program, auctionAddr) != provided {
		return auction.ErrInvalidVaultOwner
	}
	return nil
}

// ValidateHolding checks that provided is the associated holding account of
// (vault authority, unit).
func ValidateHolding(authority, unit, provided ledger.Address) error {
	if AssociatedHolding(authority, unit) != provided {
		return auction.ErrInvalidVaultAddress
	}
	return nil
}

// ValidateOwner checks that provided is the expected identity and that it
// signed the transaction. Identity mismatch is the domain rejection
// OwnerMismatch; a matching identity without a signature is the fatal
// ledger-level failure.
func ValidateOwner(expected, provided ledger.Address, signed bool) error {
	if expected != provided {
		return auction.ErrOwnerMismatch
	}
	if !signed {
		return ledger.ErrMissingSignature
	}
	return nil
}
