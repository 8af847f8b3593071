package auction

import "errors"

// Code is the stable numeric identity of an auction error. Codes are part
// of the external contract (they surface in receipts and client errors) and
// must never be renumbered.
type Code uint32

const (
	CodeAlreadyInUse Code = iota
	CodeInvalidInstruction
	CodeInvalidInitializationTime
	CodeInvalidVaultOwner
	CodeInvalidVaultAddress
	CodeNotStarted
	CodeFinished
	CodeEverythingSoldOut
	CodeOwnerMismatch
	CodeNotFinished
)

func (c Code) String() string {
	switch c {
	case CodeAlreadyInUse:
		return "AlreadyInUse"
	case CodeInvalidInstruction:
		return "InvalidInstruction"
	case CodeInvalidInitializationTime:
		return "InvalidInitializationTime"
	case CodeInvalidVaultOwner:
		return "InvalidVaultOwner"
	case CodeInvalidVaultAddress:
		return "InvalidVaultAddress"
	case CodeNotStarted:
		return "NotStarted"
	case CodeFinished:
		return "Finished"
	case CodeEverythingSoldOut:
		return "EverythingSoldOut"
	case CodeOwnerMismatch:
		return "OwnerMismatch"
	case CodeNotFinished:
		return "NotFinished"
	default:
		return "Unknown"
	}
}

// Error is a domain rejection: the instruction was understood, validated
// against current state, and refused. Domain rejections abort the
// instruction with no state change but are otherwise ordinary outcomes.
type Error struct {
	code Code
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Code() Code { return e.code }

// Sentinel instances for every domain rejection. Handlers return these
// directly; callers match with errors.Is.
var (
	ErrAlreadyInUse              = &Error{CodeAlreadyInUse, "auction account already in use"}
	ErrInvalidInstruction        = &Error{CodeInvalidInstruction, "invalid instruction"}
	ErrInvalidInitializationTime = &Error{CodeInvalidInitializationTime, "invalid auction initialization time"}
	ErrInvalidVaultOwner         = &Error{CodeInvalidVaultOwner, "invalid vault authority"}
	ErrInvalidVaultAddress       = &Error{CodeInvalidVaultAddress, "invalid vault account address"}
	ErrNotStarted                = &Error{CodeNotStarted, "auction has not started yet"}
	ErrFinished                  = &Error{CodeFinished, "auction is finished"}
	ErrEverythingSoldOut         = &Error{CodeEverythingSoldOut, "everything is sold out"}
	ErrOwnerMismatch             = &Error{CodeOwnerMismatch, "owner mismatch"}
	ErrNotFinished               = &Error{CodeNotFinished, "auction is not finished yet"}
)

// CodeOf extracts the domain code from err. The second return is false when
// err is not a domain rejection (nil, ledger failure, decode bug).
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.code, true
	}
	return 0, false
}

// Record-layer errors. These indicate corrupt or absent state rather than a
// domain rejection and never map to a stable code.
var (
	ErrInvalidRecordData   = errors.New("auction record data is malformed")
	ErrUninitializedRecord = errors.New("auction record is not initialized")
)
