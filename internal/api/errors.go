package api

import (
	"errors"
	"fmt"

	"audioshelf/internal/store"
)

var (
	// ErrInvalid marks a request the service refused to act on.
	ErrInvalid = errors.New("invalid request")
	// ErrNotFound marks a missing entity or lookup result.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks an operation the caller is not allowed to perform.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict marks a write that collides with existing data.
	ErrConflict = errors.New("conflict")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// fromStore maps the store sentinels onto the service ones and passes other
// errors through.
func fromStore(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		return err
	}
}
