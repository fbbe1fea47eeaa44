package common

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// Canonical error codes surfaced in API responses.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeLedgerPartyRequired = "LEDGER_PARTY_REQUIRED"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeTransient           = "TRANSIENT"
	CodeFatalInconsistency  = "FATAL_INCONSISTENCY"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInternal            = "INTERNAL"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// Validation wraps err as an unprocessable-payload rejection.
func Validation(message string, err error) *AppError {
	return NewAppError(CodeValidation, message, http.StatusUnprocessableEntity, err)
}

// NotFound builds the canonical missing-entity rejection.
func NotFound(message string) *AppError {
	return NewAppError(CodeNotFound, message, http.StatusNotFound, nil)
}

// Transient marks an error as retryable. Persistence timeouts and
// serialization failures surface through here so a caller never mistakes
// them for success or for a permanent rejection.
func Transient(err error) *AppError {
	return NewAppError(CodeTransient, "temporary failure, retry with the same idempotency key", http.StatusServiceUnavailable, err)
}

// FatalInconsistency flags a post-write invariant violation. The enclosing
// transaction must abort; the condition is never repaired silently.
func FatalInconsistency(message string) *AppError {
	return NewAppError(CodeFatalInconsistency, message, http.StatusInternalServerError, nil)
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// IsTransient reports whether the error is retryable: context deadlines
// against the persistence layer and Postgres serialization or deadlock
// failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code == CodeTransient {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// IsUniqueViolation reports whether err is a Postgres unique constraint hit.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
