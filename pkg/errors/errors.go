// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed error handling with rich context for Troupe.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies Troupe errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeMissingDeclaration indicates an agent type or operation lacks its
	// required role/task declaration.
	CodeMissingDeclaration ErrorCode = "MISSING_DECLARATION"

	// CodeFunctionNotFound indicates the backend requested a function name
	// that was never registered.
	CodeFunctionNotFound ErrorCode = "FUNCTION_NOT_FOUND"

	// CodeEmptyResponse indicates the chat backend returned no content.
	CodeEmptyResponse ErrorCode = "EMPTY_RESPONSE"

	// CodeLLMError indicates an LLM provider error.
	CodeLLMError ErrorCode = "LLM_ERROR"

	// CodeArchiveError indicates a conversation archive error.
	CodeArchiveError ErrorCode = "ARCHIVE_ERROR"
)

// TroupeError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type TroupeError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Attributes  map[string]string
	Recoverable bool
}

// Error implements the error interface.
func (e *TroupeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *TroupeError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *TroupeError) MarshalJSON() ([]byte, error) {
	type Alias TroupeError
	return json.Marshal(&struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		Err         string `json:"error,omitempty"`
		Recoverable bool   `json:"recoverable"`
		*Alias
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         fmt.Sprintf("%v", e.Err),
		Recoverable: e.Recoverable,
		Alias:       (*Alias)(e),
	})
}

// New creates a new TroupeError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *TroupeError {
	return &TroupeError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		Attributes: make(map[string]string),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *TroupeError) WithContext(key string, value interface{}) *TroupeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithAttribute adds a string attribute for OTEL traces.
// Returns the error for method chaining.
func (e *TroupeError) WithAttribute(key, value string) *TroupeError {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *TroupeError) WithRecoverable(recoverable bool) *TroupeError {
	e.Recoverable = recoverable
	return e
}

// AsTroupeError attempts to convert an error to a TroupeError.
// Returns the error as TroupeError if it is one, or wraps it otherwise.
func AsTroupeError(err error) *TroupeError {
	if err == nil {
		return nil
	}
	var te *TroupeError
	if stderrors.As(err, &te) {
		return te
	}
	return New(CodeInternal, "wrapped error", err)
}

// HasCode reports whether err is (or wraps) a TroupeError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var te *TroupeError
	if !stderrors.As(err, &te) {
		return false
	}
	return te.Code == code
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *TroupeError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}
