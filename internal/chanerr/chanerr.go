// Package chanerr defines the error kinds shared across the channel server.
//
// Kinds follow the policy table of the channel server error-handling design:
// each sentinel groups a class of failure with a single recovery policy, so
// callers branch with errors.Is instead of matching ad-hoc string messages.
package chanerr

import "errors"

// Kind classifies an error for policy purposes (logging, disconnect, retry).
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindValidation
	KindIntegrity
	KindStorage
	KindProtocol
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindIntegrity:
		return "integrity"
	case KindStorage:
		return "storage"
	case KindProtocol:
		return "protocol"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can branch on
// policy (wire reply, log-only, repair-in-place, disconnect) without
// depending on message text.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "AccountManager.HandleLoginRequest"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// Sentinel causes used across packages, wrapped by New where a Kind applies.
var (
	ErrAccountStillLoggedIn = errors.New("account still logged in")
	ErrWrongClientVersion   = errors.New("wrong client version")
	ErrAccountNotFound      = errors.New("account not found")
	ErrLoadMiss             = errors.New("store load miss")
	ErrApplyConflict        = errors.New("store apply conflict")
	ErrUnknownSkill         = errors.New("unknown skill id")
	ErrInvalidQuestPhase    = errors.New("invalid quest phase")
)
