// Package apierror defines the classified errors surfaced to image clients.
// A classified error carries the HTTP status it should be answered with;
// anything else is treated as an internal failure.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes produced by the request parser and the processor.
const (
	CodeInternal            = "InternalError"
	CodeMissingSignature    = "AuthorizationQueryParametersError"
	CodeSignatureMismatch   = "SignatureDoesNotMatch"
	CodeCannotDecodeRequest = "DecodeRequest::CannotDecodeRequest"
	CodeCannotAccessBucket  = "ImageBucket::CannotAccessBucket"
	CodeCannotFindImage     = "ImageEdits::CannotFindImage"
	CodeNoSuchKey           = "NoSuchKey"
	CodeCannotAccessImage   = "ImageRequest::CannotAccessImage"
	CodeUnsupportedFormat   = "ImageEdits::UnsupportedFormat"
	CodeFaceIndexOutOfRange = "SmartCrop::FaceIndexOutOfRange"
	CodeAnalysisFailed      = "SmartCrop::AnalysisFailed"
	CodeTransformFailed     = "ImageProcessing::TransformFailed"
	CodeTooLargeImage       = "TooLargeImageException"
	CodeExpiryFormat        = "ImageRequestExpiryFormat"
	CodeRequestExpired      = "ImageRequestExpired"
	internalErrorMessage    = "Internal error. Please contact the system administrator."
)

// Error is a classified failure. Its JSON form is what clients receive as
// the response body.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// New creates a classified error.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(status int, code, format string, args ...interface{}) *Error {
	return New(status, code, fmt.Sprintf(format, args...))
}

// As returns the classified error in err's chain, if any. Errors without a
// positive status are not considered classified.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr == nil || apiErr.Status <= 0 {
		return nil, false
	}
	return apiErr, true
}

// StatusOf returns the status carried by err, or 500 when err is not
// classified.
func StatusOf(err error) int {
	if apiErr, ok := As(err); ok {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}

// internalError mirrors Error but orders the fields the way the fixed
// internal error body is published.
type internalError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Status  int    `json:"status"`
}

var internalBody = mustMarshal(internalError{
	Message: internalErrorMessage,
	Code:    CodeInternal,
	Status:  http.StatusInternalServerError,
})

// InternalBody is the fixed body returned for unclassified failures.
func InternalBody() string {
	return internalBody
}

// Body renders a classified error as the JSON response body.
func (e *Error) Body() string {
	bs, err := json.Marshal(e)
	if err != nil {
		return internalBody
	}
	return string(bs)
}

func mustMarshal(v interface{}) string {
	bs, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(bs)
}
