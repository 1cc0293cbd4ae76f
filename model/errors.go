package model

import (
	"errors"
	"fmt"

	"xdao.co/shard/payload"
	"xdao.co/shard/shard"
	"xdao.co/shard/storage"
)

type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrSerialization  ErrorCode = "SERIALIZATION"
	ErrParse          ErrorCode = "PARSE"
	ErrInvalidShard   ErrorCode = "INVALID_SHARD"
	ErrIDMismatch     ErrorCode = "ID_MISMATCH"
	ErrInvalidCID     ErrorCode = "INVALID_CID"
	ErrMissingCAS     ErrorCode = "MISSING_CAS"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrCIDMismatch    ErrorCode = "CID_MISMATCH"
	ErrInternal       ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	RuleID  string    `json:"ruleId,omitempty"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// FromError classifies err for the JSON boundary. Structured errors keep their
// RuleID.
func FromError(err error) *CodedError {
	if err == nil {
		return nil
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce
	}

	out := &CodedError{Code: ErrInternal, Message: err.Error()}
	switch {
	case payload.IsKind(err, payload.KindSerialization):
		out.Code, out.RuleID = ErrSerialization, payload.RuleID(err)
	case payload.IsKind(err, payload.KindParse):
		out.Code, out.RuleID = ErrParse, payload.RuleID(err)
	case shard.IsKind(err, shard.KindShard):
		out.Code, out.RuleID = ErrInvalidShard, shard.RuleID(err)
	case shard.IsKind(err, shard.KindIdentifier):
		out.Code, out.RuleID = ErrIDMismatch, shard.RuleID(err)
		if out.RuleID != "SHARD-ID-001" {
			out.Code = ErrInvalidRequest
		}
	case errors.Is(err, storage.ErrNotFound):
		out.Code = ErrNotFound
	case errors.Is(err, storage.ErrInvalidCID):
		out.Code = ErrInvalidCID
	case errors.Is(err, storage.ErrCIDMismatch):
		out.Code = ErrCIDMismatch
	case errors.Is(err, storage.ErrNoBackends):
		out.Code = ErrMissingCAS
	}
	return out
}
