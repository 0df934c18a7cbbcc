package domain

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrDispatchFailure        = errors.New("dispatch failure")
	ErrInvalidSignature       = errors.New("invalid signature")
	ErrMalformedPayload       = errors.New("malformed payload")
	ErrReconciliationConflict = errors.New("reconciliation conflict")
	ErrLimitExceeded          = errors.New("limit exceeded")
)
