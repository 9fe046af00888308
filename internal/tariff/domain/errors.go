package domain

import (
	"fmt"
)

// DomainError is a domain-specific error with a stable code.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches two domain errors by code, so errors.Is works against the
// exported sentinels regardless of the Details attached at the call site.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// Domain error codes
const (
	ErrCodeNoApplicableRule = "NO_APPLICABLE_RULE"
	ErrCodeMissingInput     = "MISSING_REQUIRED_INPUT"
	ErrCodeMalformedWindow  = "MALFORMED_WINDOW"
	ErrCodeDuplicateWindow  = "DUPLICATE_AVAILABILITY_WINDOW"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeNotFound         = "NOT_FOUND"
)

// Sentinels for errors.Is checks.
var (
	ErrNoApplicableRule = &DomainError{Code: ErrCodeNoApplicableRule, Message: "no pricing rule applies to the given context"}
	ErrMissingInput     = &DomainError{Code: ErrCodeMissingInput, Message: "required consumption input was not supplied"}
	ErrMalformedWindow  = &DomainError{Code: ErrCodeMalformedWindow, Message: "time window is malformed"}
	ErrDuplicateWindow  = &DomainError{Code: ErrCodeDuplicateWindow, Message: "more than one availability window for the same station and day"}
	ErrNotFound         = &DomainError{Code: ErrCodeNotFound, Message: "record not found"}
)

// NewNoApplicableRuleError signals an empty candidate set for pricing.
// Treating this as a zero cost is a billing defect, so it is always an error.
func NewNoApplicableRuleError(details string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNoApplicableRule,
		Message: "no pricing rule applies to the given context",
		Details: details,
	}
}

// NewMissingInputError creates an error for a consumption input the winning
// rule's model requires but the caller did not supply.
func NewMissingInputError(input string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingInput,
		Message: "required consumption input was not supplied",
		Details: input,
	}
}

// NewMalformedWindowError creates a window construction error.
func NewMalformedWindowError(details string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMalformedWindow,
		Message: "time window is malformed",
		Details: details,
	}
}

// NewDuplicateWindowError creates a data-integrity error for duplicate
// availability windows on the same (station, day) pair.
func NewDuplicateWindowError(stationID int32, dayOfWeek int) *DomainError {
	return &DomainError{
		Code:    ErrCodeDuplicateWindow,
		Message: "more than one availability window for the same station and day",
		Details: fmt.Sprintf("station_id=%d day_of_week=%d", stationID, dayOfWeek),
	}
}

// NewInvalidInputError creates a generic validation error.
func NewInvalidInputError(message, details string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidInput,
		Message: message,
		Details: details,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id int32) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: fmt.Sprintf("ID: %d", id),
	}
}

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	_, ok := err.(*DomainError)
	return ok
}
