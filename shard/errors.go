package shard

import "errors"

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	// KindShard marks a malformed bit string.
	KindShard Kind = "Shard"
	// KindIdentifier marks a malformed or mismatched identifier.
	KindIdentifier Kind = "Identifier"
)

// Error is the package's structured error type. Payload serialization failures
// are reported as *payload.Error and pass through unchanged.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
