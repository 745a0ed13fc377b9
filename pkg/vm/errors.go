package vm

import (
	"errors"
	"fmt"
)

// Kind classifies a vm error the way callers typically need to branch on:
// by what went wrong, not which internal check produced it.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindResourceExhausted
	KindFailedPrecondition
	KindNotFound
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindResourceExhausted:
		return "resource_exhausted"
	case KindFailedPrecondition:
		return "failed_precondition"
	case KindNotFound:
		return "not_found"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Sentinel errors. Wrapped errors returned by this package always chain to
// exactly one of these via %w, so callers can branch with errors.Is.
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrResourceExhausted  = errors.New("resource exhausted")
	ErrFailedPrecondition = errors.New("failed precondition")
	ErrNotFound           = errors.New("not found")
	ErrInternal           = errors.New("internal")
)

func sentinelFor(k Kind) error {
	switch k {
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindResourceExhausted:
		return ErrResourceExhausted
	case KindFailedPrecondition:
		return ErrFailedPrecondition
	case KindNotFound:
		return ErrNotFound
	case KindInternal:
		return ErrInternal
	default:
		return ErrInternal
	}
}

func newError(k Kind, format string, args ...any) error {
	return fmt.Errorf("vm: %s: %w", fmt.Sprintf(format, args...), sentinelFor(k))
}

// KindOf recovers the Kind of an error returned from this package, or
// KindUnknown if it did not originate here.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrResourceExhausted):
		return KindResourceExhausted
	case errors.Is(err, ErrFailedPrecondition):
		return KindFailedPrecondition
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInternal):
		return KindInternal
	default:
		return KindUnknown
	}
}
