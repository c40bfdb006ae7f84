package apperrors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
)

// Sentinel causes shared by the stores and services.
var (
	ErrDuplicateEmail = errors.New("email already exists")
	ErrNotFound       = errors.New("record not found")
	ErrNoIdentity     = errors.New("no authenticated identity")
)

// ErrorCode is a standardized error classification.
type ErrorCode struct {
	Code    string
	Status  int
	Message string // default public message
}

var (
	ValidationRejected = ErrorCode{Code: "VALIDATION_REJECTED", Status: http.StatusBadRequest, Message: "invalid input"}
	DuplicateEmail     = ErrorCode{Code: "DUPLICATE_EMAIL", Status: http.StatusBadRequest, Message: "Email already exists"}
	Unauthenticated    = ErrorCode{Code: "UNAUTHENTICATED", Status: http.StatusUnauthorized, Message: "Authentication required"}
	NotFound           = ErrorCode{Code: "NOT_FOUND", Status: http.StatusNotFound, Message: "record not found"}
	Unexpected         = ErrorCode{Code: "UNEXPECTED", Status: http.StatusBadRequest, Message: "Something went wrong"}
)

// AppError carries a classification, a public message and the internal cause.
type AppError struct {
	Code    ErrorCode
	Message string // public-facing message
	Cause   error  // internal cause (wrapped)
}

func (e AppError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e AppError) Unwrap() error { return e.Cause }

func New(code ErrorCode, msg string, cause error) error {
	if msg == "" {
		msg = code.Message
	}
	return AppError{Code: code, Message: msg, Cause: cause}
}

// Rejected builds a ValidationRejected error with the given reason.
func Rejected(reason string) error {
	return AppError{Code: ValidationRejected, Message: reason}
}

// Classify returns the AppError behind err. Sentinel causes are mapped to
// their codes; anything else becomes Unexpected.
func Classify(err error) AppError {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return AppError{Code: DuplicateEmail, Message: DuplicateEmail.Message, Cause: err}
	case errors.Is(err, ErrNoIdentity):
		return AppError{Code: Unauthenticated, Message: Unauthenticated.Message, Cause: err}
	case errors.Is(err, ErrNotFound):
		return AppError{Code: NotFound, Message: NotFound.Message, Cause: err}
	}
	return AppError{Code: Unexpected, Message: Unexpected.Message, Cause: err}
}

// Is reports whether err is classified under code.
func Is(err error, code ErrorCode) bool {
	return Classify(err).Code.Code == code.Code
}

// FromSQL maps database errors to sentinel causes.
func FromSQL(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrDuplicateEmail, pqErr.Constraint)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", ErrNotFound, pqErr.Constraint)
		case "40001": // serialization_failure
			return fmt.Errorf("concurrent update: %w", err)
		}
	}
	return err
}
