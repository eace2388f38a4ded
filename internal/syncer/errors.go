package syncer

import (
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/cling/pkg/types"
)

// TransportError reports a failed exchange with the remote. The affected
// entity stays dirty and is retried on the next cycle.
type TransportError struct {
	Op     string // "push" or "pull"
	Kind   types.Kind
	ID     string
	Status int // HTTP status, 0 when no response was received

	// Retryable marks failures worth retrying (network errors, 5xx).
	Retryable bool
	// Auth marks rejected credentials (401, 403).
	Auth bool

	Err error
}

func (e *TransportError) Error() string {
	target := e.Op
	if e.Kind != "" {
		target = fmt.Sprintf("%s %s %s", e.Op, e.Kind, e.ID)
	}
	if e.Status != 0 {
		return fmt.Sprintf("sync %s: remote returned %d: %v", target, e.Status, e.Err)
	}
	return fmt.Sprintf("sync %s: %v", target, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsAuth reports whether err is a TransportError caused by rejected
// credentials.
func IsAuth(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Auth
}

// IsRetryable reports whether err is a TransportError worth retrying.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Retryable
}

// ConflictError reports a conflict that could not be decided from the
// timestamps. The local version is kept.
type ConflictError struct {
	Kind   types.Kind
	ID     string
	Local  time.Time
	Remote time.Time
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s %s: %s (local %s, remote %s)",
		e.Kind, e.ID, e.Reason, e.Local.Format(time.RFC3339Nano), e.Remote.Format(time.RFC3339Nano))
}

// wrapTransport returns err as a TransportError for op on (kind, id),
// keeping any classification already present.
func wrapTransport(op string, kind types.Kind, id string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		out := *te
		if out.Op == "" {
			out.Op = op
		}
		if out.Kind == "" {
			out.Kind, out.ID = kind, id
		}
		return &out
	}
	return &TransportError{Op: op, Kind: kind, ID: id, Err: err}
}
