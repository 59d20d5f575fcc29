package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by transfer, approval and mint paths. They map
// onto the ICRC-7 / ICRC-37 error variants at the RPC boundary.
var (
	ErrNonExistingTokenID   = errors.New("non existing token id")
	ErrInvalidRecipient     = errors.New("invalid recipient")
	ErrInvalidSpender       = errors.New("invalid spender")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrTooOld               = errors.New("transaction too old")
	ErrSupplyCapReached     = errors.New("supply cap reached")
	ErrApprovalDoesNotExist = errors.New("approval does not exist")
	ErrNotReady             = errors.New("ledger is not ready")
)

// CreatedInFutureError rejects a transaction whose created_at_time is
// ahead of the ledger clock beyond the permitted drift. LedgerTime is the
// latest acceptable creation time in seconds.
type CreatedInFutureError struct {
	LedgerTime uint64
}

func (e *CreatedInFutureError) Error() string {
	return fmt.Sprintf("created in future, ledger time %d", e.LedgerTime)
}

// DuplicateError rejects a transaction already recorded in the log.
// DuplicateOf is the index of the earlier block.
type DuplicateError struct {
	DuplicateOf uint64
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate of block %d", e.DuplicateOf)
}

// GenericError carries a free-form rejection with an error code.
type GenericError struct {
	Code    uint64
	Message string
}

func (e *GenericError) Error() string {
	return fmt.Sprintf("error %d: %s", e.Code, e.Message)
}

// GenericBatchError aborts the remainder of a batch, typically when the
// block log itself cannot be appended to.
type GenericBatchError struct {
	Code    uint64
	Message string
}

func (e *GenericBatchError) Error() string {
	return fmt.Sprintf("batch error %d: %s", e.Code, e.Message)
}

func genericErrorf(format string, args ...any) *GenericError {
	return &GenericError{Code: 0, Message: fmt.Sprintf(format, args...)}
}
