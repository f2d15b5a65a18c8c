package shared

import "errors"

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrNotFound             = errors.New("not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidDecision      = errors.New("invalid reviewer decision")
	ErrCaseAlreadyResolved  = errors.New("case already resolved")
	ErrRuleStoreUnavailable = errors.New("rule store unavailable")
)
