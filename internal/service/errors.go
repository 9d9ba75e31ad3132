package service

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyPaid       = errors.New("job already paid")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrForbidden         = errors.New("operation not allowed for profile type")
	ErrNoPendingWork     = errors.New("no pending jobs to fund")
	ErrDepositTooLarge   = errors.New("deposit exceeds allowed cap")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnavailable       = errors.New("store temporarily unavailable")
)
