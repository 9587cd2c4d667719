package models

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrNotFound     = status.Errorf(codes.NotFound, "not found")
	ErrUnauthorized = status.Errorf(codes.Unauthenticated, "unauthorized")
	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden   = status.Errorf(codes.PermissionDenied, "not allowed")
	ErrRateLimited = status.Errorf(codes.ResourceExhausted, "too many messages, slow down")
	ErrDuplicate   = status.Errorf(codes.AlreadyExists, "already exists")
)

func NotFound(what string) error {
	return status.Errorf(codes.NotFound, "%s not found", what)
}

func InvalidArgument(format string, args ...any) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}

func AlreadyExists(format string, args ...any) error {
	return status.Errorf(codes.AlreadyExists, format, args...)
}

// ConflictError reports that a visitor already has an active session.
type ConflictError struct {
	Message   string
	SessionID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.SessionID)
}

func (e *ConflictError) GRPCStatus() *status.Status {
	return status.New(codes.AlreadyExists, e.Message)
}

func NewActiveSessionConflict(sessionID string) *ConflictError {
	return &ConflictError{
		Message:   "Visitor already has an active session",
		SessionID: sessionID,
	}
}

// Code extracts the grpc code carried by err, codes.OK for nil and
// codes.Unknown for plain errors.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return codes.AlreadyExists
	}
	var se interface{ GRPCStatus() *status.Status }
	if errors.As(err, &se) {
		return se.GRPCStatus().Code()
	}
	return codes.Unknown
}
