package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrQuotaExceeded is returned by Advance once the day's quota is used up.
	ErrQuotaExceeded = errors.New("daily review quota exceeded")

	// ErrEmptyBucket is returned by DeleteBucket when no finalized group has
	// anything queued for deletion.
	ErrEmptyBucket = errors.New("nothing queued for deletion")

	// ErrUnauthorized is returned when the deletion primitive lacks rights.
	// Deleters wrap it so errors.Is matches.
	ErrUnauthorized = errors.New("not authorized to delete assets")

	ErrUnknownAsset  = errors.New("unknown asset")
	ErrInvalidWindow = errors.New("time window must be at least one minute")
)

// ChangesFailedError reports that the deletion primitive itself failed.
type ChangesFailedError struct {
	Cause error
}

func (e *ChangesFailedError) Error() string {
	return fmt.Sprintf("delete failed: %v", e.Cause)
}

func (e *ChangesFailedError) Unwrap() error {
	return e.Cause
}
