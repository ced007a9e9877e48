package ledger

import (
	"errors"
)

// Failure classification for mint attempts. The orchestrator decides
// retry behaviour from these:
//   - ErrUserRejected: the operator declined the transaction in their
//     wallet. Terminal for this attempt, no retry implied.
//   - ErrDuplicateWatchID: the contract already holds this watch id.
//     Requires a fresh id and a restart of the whole saga.
//   - ErrInsufficientComponents / ErrEmptyMetadata: contract-enforced
//     invariants that client-side gating should have prevented.
//     Defensive, fatal.
//   - anything else (gas, dropped transaction, transport) is retryable
//     from the commit phase without redoing earlier phases.
var (
	ErrUserRejected           = errors.New("transaction rejected by operator")
	ErrDuplicateWatchID       = errors.New("watch id already minted")
	ErrInsufficientComponents = errors.New("fewer components than contract minimum")
	ErrEmptyMetadata          = errors.New("empty metadata URI")
	ErrTokenNotFound          = errors.New("token id not found")
	ErrUnavailable            = errors.New("no ledger access available")
)

// Bridge error codes on the wire.
const (
	codeUserRejected           = "USER_REJECTED"
	codeDuplicateWatchID       = "DUPLICATE_WATCH_ID"
	codeInsufficientComponents = "INSUFFICIENT_COMPONENTS"
	codeEmptyMetadata          = "EMPTY_METADATA"
)

// classify maps a bridge error code to a typed error; unknown codes
// stay generic and therefore retryable.
func classify(code, message string) error {
	switch code {
	case codeUserRejected:
		return ErrUserRejected
	case codeDuplicateWatchID:
		return ErrDuplicateWatchID
	case codeInsufficientComponents:
		return ErrInsufficientComponents
	case codeEmptyMetadata:
		return ErrEmptyMetadata
	default:
		return errors.New("transaction failed: " + message)
	}
}

// Fatal reports whether a mint error must abort the saga run rather
// than be retried from the commit phase.
func Fatal(err error) bool {
	return errors.Is(err, ErrUserRejected) ||
		errors.Is(err, ErrDuplicateWatchID) ||
		errors.Is(err, ErrInsufficientComponents) ||
		errors.Is(err, ErrEmptyMetadata) ||
		errors.Is(err, ErrUnavailable)
}
