package payload

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
// Callers should branch on Kind/RuleID rather than matching error strings.
type Kind string

const (
	// KindSerialization marks a payload that has no canonical serialization.
	KindSerialization Kind = "Serialization"
	// KindParse marks malformed JSON input.
	KindParse Kind = "Parse"
)

// Error is the package's structured error type.
//
// RuleID names the violated rule (e.g. SHARD-SER-001). Path locates the
// offending value using $-rooted JSONPath-like notation when known.
type Error struct {
	Kind    Kind
	RuleID  string
	Path    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path != "" {
		return fmt.Sprintf("%s at %s", e.Message, e.Path)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func serializationError(ruleID, path, msg string) error {
	return &Error{Kind: KindSerialization, RuleID: ruleID, Path: path, Message: msg}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// IsSerializationError reports whether err means the payload cannot be
// canonically serialized.
func IsSerializationError(err error) bool { return IsKind(err, KindSerialization) }

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
