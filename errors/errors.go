// Package errors provides internal-facing error types for use in certreq.
// Fatal structural problems (a malformed RDN, an unknown attribute) and soft
// data problems (an unclassifiable SAN token) are both represented here so
// callers can decide how to react based on the ErrorType.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType provides a coarse category for RequestErrors
type ErrorType int

const (
	InternalServer ErrorType = iota
	// Malformed is used for an RDN without an "=" separator.
	Malformed
	// UnknownAttribute is used for an RDN naming an attribute that is not in
	// the schema, or one that may not appear in a subject (SAN).
	UnknownAttribute
	BadSAN
	BadKey
	Config
	Signer
	BadCSR
)

func (t ErrorType) String() string {
	switch t {
	case InternalServer:
		return "internalServer"
	case Malformed:
		return "malformed"
	case UnknownAttribute:
		return "unknownAttribute"
	case BadSAN:
		return "badSAN"
	case BadKey:
		return "badKey"
	case Config:
		return "config"
	case Signer:
		return "signer"
	case BadCSR:
		return "badCSR"
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// RequestError represents internal certreq errors
type RequestError struct {
	Type      ErrorType
	Detail    string
	SubErrors []SubRequestError
}

// SubRequestError represents sub-errors specific to a single token of the
// input, e.g. one rejected SAN entry.
type SubRequestError struct {
	*RequestError
	Token string
}

func (re *RequestError) Error() string {
	return re.Detail
}

func (sre SubRequestError) Error() string {
	return fmt.Sprintf("%q: %s", sre.Token, sre.Detail)
}

// WithSubErrors returns a new RequestError instance created by adding the
// provided subErrs to the existing RequestError.
func (re *RequestError) WithSubErrors(subErrs []SubRequestError) *RequestError {
	return &RequestError{
		Type:      re.Type,
		Detail:    re.Detail,
		SubErrors: append(re.SubErrors, subErrs...),
	}
}

func newf(errType ErrorType, msg string, args ...interface{}) *RequestError {
	return &RequestError{
		Type:   errType,
		Detail: fmt.Sprintf(msg, args...),
	}
}

// Is is a convenience function for testing the internal type of a
// RequestError anywhere in err's chain.
func Is(err error, errType ErrorType) bool {
	var rErr *RequestError
	if !errors.As(err, &rErr) {
		return false
	}
	return rErr.Type == errType
}

func InternalServerError(msg string, args ...interface{}) error {
	return newf(InternalServer, msg, args...)
}

func MalformedError(msg string, args ...interface{}) error {
	return newf(Malformed, msg, args...)
}

func UnknownAttributeError(msg string, args ...interface{}) error {
	return newf(UnknownAttribute, msg, args...)
}

// BadSANError returns a *RequestError directly so that callers can attach
// per-token SubErrors.
func BadSANError(msg string, args ...interface{}) *RequestError {
	return newf(BadSAN, msg, args...)
}

func BadKeyError(msg string, args ...interface{}) error {
	return newf(BadKey, msg, args...)
}

func ConfigError(msg string, args ...interface{}) error {
	return newf(Config, msg, args...)
}

func SignerError(msg string, args ...interface{}) error {
	return newf(Signer, msg, args...)
}

func BadCSRError(msg string, args ...interface{}) error {
	return newf(BadCSR, msg, args...)
}
