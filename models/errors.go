package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	// Setup errors. Fatal, never retried.
	ErrCodeBrowserLaunch  = "BROWSER_LAUNCH_FAILED"
	ErrCodeInvalidProfile = "INVALID_PROFILE"
	ErrCodeInvalidInput   = "INVALID_INPUT"

	// Run errors. Fatal for the current run.
	ErrCodePageLoadTimeout = "PAGE_LOAD_TIMEOUT"
	ErrCodeNavigation      = "NAVIGATION_FAILED"
	ErrCodePagination      = "PAGINATION_FAILED"
	ErrCodeSinkWrite       = "SINK_WRITE_FAILED"
	ErrCodeNoRecords       = "NO_RECORDS"

	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeProfileNotFound = "PROFILE_NOT_FOUND"
	ErrCodeJobNotFound     = "JOB_NOT_FOUND"
	ErrCodeJobConflict     = "JOB_CONFLICT"
	ErrCodeInternal        = "INTERNAL_ERROR"

	// LLM-related error codes. These are reported next to a run, never
	// instead of it.
	ErrCodeLLMFailure     = "LLM_FAILURE"
	ErrCodeLLMAuthFailure = "LLM_AUTH_FAILURE"
	ErrCodeLLMRateLimited = "LLM_RATE_LIMITED"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// AsScrapeError returns err as a *ScrapeError, wrapping unknown errors
// with ErrCodeInternal.
func AsScrapeError(err error) *ScrapeError {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return NewScrapeError(ErrCodeInternal, err.Error(), err)
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code string) bool {
	var se *ScrapeError
	return errors.As(err, &se) && se.Code == code
}
