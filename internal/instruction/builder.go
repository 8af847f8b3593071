package instruction

import (
	"DutchAuction/internal/ledger"
	"DutchAuction/internal/vault"
)

// AccountMeta names one account a transaction touches, with the access the
// transaction claims over it. Signer flags arrive pre-verified; the ledger
// boundary is responsible for signature checking.
type AccountMeta struct {
	Address  ledger.Address
	Signer   bool
	Writable bool
}

// Transaction is a submittable instruction: the program to run, the
// accounts in the command's canonical positional order, and the encoded
// instruction bytes.
type Transaction struct {
	TxID     string
	Program  ledger.Address
	Accounts []AccountMeta
	Data     []byte
}

// Canonical account positions per command. The processor reads accounts by
// these indices; builders and processor must stay in lockstep.
const (
	// Initialize
	InitAuctionIdx       = 0 // auction record account (writable)
	InitAuthorityIdx     = 1 // recorded as the auction authority
	InitFunderIdx        = 2 // pays account creation (writable, signer)
	InitUnitIdx          = 3 // unit being sold
	InitSourceHoldingIdx = 4 // seller holding debited (writable)
	InitVaultHoldingIdx  = 5 // vault unit escrow, created (writable)
	InitVaultAuthIdx     = 6 // vault authority, created (writable)
	InitSourceOwnerIdx   = 7 // owner of the source holding (writable, signer)
	InitAccountCount     = 8

	// Bid
	BidAuctionIdx       = 0
	BidBidderIdx        = 1 // pays native (writable, signer)
	BidUnitIdx          = 2
	BidVaultHoldingIdx  = 3 // escrow debited (writable)
	BidVaultAuthIdx     = 4 // receives native proceeds (writable)
	BidBidderHoldingIdx = 5 // receives units (writable)
	BidAccountCount     = 6

	// WithdrawFunds
	WFAuctionIdx      = 0
	WFAuthorityIdx    = 1 // must match record authority (signer)
	WFVaultAuthIdx    = 2 // drained (writable)
	WFDestinationIdx  = 3 // receives native proceeds (writable)
	WFAccountCount    = 4

	// WithdrawGoods
	WGAuctionIdx      = 0
	WGAuthorityIdx    = 1 // must match record authority (signer)
	WGUnitIdx         = 2
	WGVaultHoldingIdx = 3 // drained (writable)
	WGVaultAuthIdx    = 4
	WGDestHoldingIdx  = 5 // receives remaining units (writable)
	WGAccountCount    = 6
)

// NewInitialize assembles an Initialize transaction. The vault authority
// and vault holding addresses are derived, never chosen by the caller.
func NewInitialize(txID string, program, auctionAddr, authority, funder, unit, sourceHolding, sourceOwner ledger.Address, cmd Initialize) Transaction {
	vaultAuth := vault.DeriveAuthority(program, auctionAddr)
	return Transaction{
		TxID:    txID,
		Program: program,
		Accounts: []AccountMeta{
			{Address: auctionAddr, Writable: true},
			{Address: authority},
			{Address: funder, Signer: true, Writable: true},
			{Address: unit},
			{Address: sourceHolding, Writable: true},
			{Address: vault.AssociatedHolding(vaultAuth, unit), Writable: true},
			{Address: vaultAuth, Writable: true},
			{Address: sourceOwner, Signer: true, Writable: true},
		},
		Data: Encode(cmd),
	}
}

// NewBid assembles a Bid transaction for bidder, paying from its native
// account into the auction's vault.
func NewBid(txID string, program, auctionAddr, bidder, unit, bidderHolding ledger.Address, cmd Bid) Transaction {
	vaultAuth := vault.DeriveAuthority(program, auctionAddr)
	return Transaction{
		TxID:    txID,
		Program: program,
		Accounts: []AccountMeta{
			{Address: auctionAddr},
			{Address: bidder, Signer: true, Writable: true},
			{Address: unit},
			{Address: vault.AssociatedHolding(vaultAuth, unit), Writable: true},
			{Address: vaultAuth, Writable: true},
			{Address: bidderHolding, Writable: true},
		},
		Data: Encode(cmd),
	}
}

// NewWithdrawFunds assembles a WithdrawFunds transaction draining the vault
// authority's native balance to destination.
func NewWithdrawFunds(txID string, program, auctionAddr, authority, destination ledger.Address) Transaction {
	return Transaction{
		TxID:    txID,
		Program: program,
		Accounts: []AccountMeta{
			{Address: auctionAddr},
			{Address: authority, Signer: true},
			{Address: vault.DeriveAuthority(program, auctionAddr), Writable: true},
			{Address: destination, Writable: true},
		},
		Data: Encode(WithdrawFunds{}),
	}
}

// NewWithdrawGoods assembles a WithdrawGoods transaction draining the vault
// holding into destHolding.
func NewWithdrawGoods(txID string, program, auctionAddr, authority, unit, destHolding ledger.Address) Transaction {
	vaultAuth := vault.DeriveAuthority(program, auctionAddr)
	return Transaction{
		TxID:    txID,
		Program: program,
		Accounts: []AccountMeta{
			{Address: auctionAddr},
			{Address: authority, Signer: true},
			{Address: unit},
			{Address: vault.AssociatedHolding(vaultAuth, unit), Writable: true},
			{Address: vaultAuth},
			{Address: destHolding, Writable: true},
		},
		Data: Encode(WithdrawGoods{}),
	}
}
