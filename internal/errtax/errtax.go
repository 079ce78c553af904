// Package errtax defines the node's cross-surface error taxonomy: a single
// Kind enum shared by the gRPC and REST surfaces so a storage, engine, or
// pipeline error maps to a consistent status code regardless of which
// transport returned it.
package errtax

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Kind is a transport-agnostic error classification.
type Kind int

const (
	Internal Kind = iota
	AlreadyExists
	BadRequest
	NotFound
	MethodNotAllowed
	Timeout
	RateLimited
	NotSupportedYet
	Unavailable
	UnsupportedMediaType
)

func (k Kind) String() string {
	switch k {
	case AlreadyExists:
		return "already_exists"
	case BadRequest:
		return "bad_request"
	case NotFound:
		return "not_found"
	case MethodNotAllowed:
		return "method_not_allowed"
	case Timeout:
		return "timeout"
	case RateLimited:
		return "rate_limited"
	case NotSupportedYet:
		return "not_supported_yet"
	case Unavailable:
		return "unavailable"
	case UnsupportedMediaType:
		return "unsupported_media_type"
	default:
		return "internal"
	}
}

// Error pairs a Kind with the underlying cause, carried across package
// boundaries (storage, engine, pipeline, cluster) so surfaces can classify
// it without depending on any one package's concrete error type.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err under kind.
func New(kind Kind, err error) *Error { return &Error{Kind: kind, Err: err} }

// KindOf extracts the Kind from err, walking the unwrap chain; Internal
// if err does not carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// HTTPStatus maps a Kind to the REST surface's status code.
func HTTPStatus(k Kind) int {
	switch k {
	case AlreadyExists:
		return http.StatusBadRequest
	case BadRequest:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case MethodNotAllowed:
		return http.StatusMethodNotAllowed
	case Timeout:
		return http.StatusRequestTimeout
	case RateLimited:
		return http.StatusTooManyRequests
	case NotSupportedYet:
		return http.StatusNotImplemented
	case Unavailable:
		return http.StatusServiceUnavailable
	case UnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode maps a Kind to the RPC surface's status code.
func GRPCCode(k Kind) codes.Code {
	switch k {
	case AlreadyExists:
		return codes.AlreadyExists
	case BadRequest:
		return codes.InvalidArgument
	case NotFound:
		return codes.NotFound
	case MethodNotAllowed:
		return codes.InvalidArgument
	case Timeout:
		return codes.DeadlineExceeded
	case RateLimited:
		return codes.ResourceExhausted
	case NotSupportedYet:
		return codes.Unimplemented
	case Unavailable:
		return codes.Unavailable
	case UnsupportedMediaType:
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}
