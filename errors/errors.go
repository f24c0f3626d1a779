// Package errors provides categorized diagnostics for setup/transport-time
// failures — dial errors, interceptor misconfiguration, compressor
// registration conflicts — that never reach a Request's FinallyType. It is
// not a substitute for that taxonomy (see spec.md §7): the wire/dispatch/
// request packages never return one of these, only FinallyType values.
package errors

import (
	"github.com/gostdlib/base/context"
	"github.com/gostdlib/base/errors"
)

// Category represents the broad class of an error.
type Category uint32

const (
	// CatUnknown should not be used directly.
	CatUnknown Category = iota
	// CatUser represents bad caller input (a malformed command name, an
	// invalid option).
	CatUser
	// CatInternal represents a bug in this module.
	CatInternal
	// CatUnavailable represents a transport that could not be reached.
	CatUnavailable
)

func (c Category) String() string {
	switch c {
	case CatUser:
		return "User"
	case CatInternal:
		return "Internal"
	case CatUnavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}

// Type represents the specific kind of error within a Category.
type Type uint16

const (
	// TypeUnknown should not be used directly.
	TypeUnknown Type = iota
	// TypeBug marks a known-impossible code path.
	TypeBug
	// TypeParameter marks an option or argument that failed validation.
	TypeParameter
	// TypeConn marks a connection/dial failure.
	TypeConn
	// TypeTimeout marks a timeout or cancellation.
	TypeTimeout
)

func (t Type) String() string {
	switch t {
	case TypeBug:
		return "Bug"
	case TypeParameter:
		return "Parameter"
	case TypeConn:
		return "Conn"
	case TypeTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Error is this module's error type, built on gostdlib/base/errors.Error.
type Error = errors.Error

// EOption is an optional argument for E.
type EOption = errors.EOption

// WithStackTrace adds a stack trace to the error, for debugging rare
// setup-time failures.
func WithStackTrace() EOption {
	return errors.WithStackTrace()
}

// E creates a new categorized Error.
func E(ctx context.Context, c Category, t Type, msg error, options ...EOption) Error {
	opts := make([]EOption, 0, len(options)+1)
	opts = append(opts, errors.WithCallNum(2))
	opts = append(opts, options...)
	return errors.E(ctx, errors.Category(c), errors.Type(t), msg, opts...)
}
