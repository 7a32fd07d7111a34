package types

import "errors"

// Store lifecycle errors.
var (
	ErrStoreClosed = errors.New("store is closed")
	ErrAlreadyOpen = errors.New("store is already open")
	ErrNotFound    = errors.New("not found")
	ErrInvalidID   = errors.New("invalid identifier")
)

// Config validation errors.
var (
	ErrClassUnknown     = errors.New("unknown entity class")
	ErrStrategyUnknown  = errors.New("unknown backup strategy")
	ErrIntervalInvalid  = errors.New("interval must be positive")
	ErrKeepInvalid      = errors.New("keep count must be positive")
	ErrPageSizeInvalid  = errors.New("page size must be positive")
	ErrAPIURLEmpty      = errors.New("api url must not be empty")
	ErrThresholdInvalid = errors.New("thresholds must be positive and increasing")
)

// ErrLocked is returned when a second ingestion or recovery instance is
// refused by the single-instance guard.
var ErrLocked = errors.New("another instance holds the store lock")
