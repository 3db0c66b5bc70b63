package domain

import (
	"errors"
	"net/http"
)

// ProcessingError is the base error for the recognition pipeline. It carries
// the HTTP status that delivery should respond with.
type ProcessingError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *ProcessingError) Error() string {
	return e.Message
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// NewValidationError reports invalid input: bad file type, oversized upload,
// a malformed field, or an image that does not look like a KTP.
func NewValidationError(message string) *ProcessingError {
	return &ProcessingError{Message: message, StatusCode: http.StatusUnprocessableEntity}
}

// NewDocumentError reports a document that could be read but not analyzed.
func NewDocumentError(message string, err error) *ProcessingError {
	return &ProcessingError{Message: message, StatusCode: http.StatusBadRequest, Err: err}
}

// NewOCRError reports a failure inside the OCR engine.
func NewOCRError(message string, err error) *ProcessingError {
	return &ProcessingError{Message: message, StatusCode: http.StatusInternalServerError, Err: err}
}

// NewModelError reports a failure in layout analysis or field extraction.
func NewModelError(message string, err error) *ProcessingError {
	return &ProcessingError{Message: message, StatusCode: http.StatusInternalServerError, Err: err}
}

// AsProcessingError unwraps err to a *ProcessingError if there is one.
func AsProcessingError(err error) (*ProcessingError, bool) {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsValidationError reports whether err is a 422-class input error.
func IsValidationError(err error) bool {
	pe, ok := AsProcessingError(err)
	return ok && pe.StatusCode == http.StatusUnprocessableEntity
}
