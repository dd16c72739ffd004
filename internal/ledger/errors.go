package ledger

import "errors"

var (
	ErrLedger   = errors.New("ledger operation failed")
	ErrNotFound = errors.New("build not found")
)
