package analysis

import (
	"errors"
	"fmt"
)

// Code classifies an analysis failure.
type Code string

const (
	// CodeInvalidRequest: the caller sent an empty or implausible field. The
	// model is never called.
	CodeInvalidRequest Code = "invalid_request"
	// CodeUpstreamUnavailable: transport failure, timeout or non-2xx status
	// from the provider.
	CodeUpstreamUnavailable Code = "upstream_unavailable"
	// CodeEmptyResponse: the provider answered successfully without content.
	CodeEmptyResponse Code = "empty_response"
	// CodeMalformedResponse: the content is not a JSON document of the
	// expected shape after fence stripping.
	CodeMalformedResponse Code = "malformed_response"
	// CodeConfiguration: no provider credential was configured.
	CodeConfiguration Code = "configuration"
)

// Sentinels for errors.Is. They match any *Error with the same Code.
var (
	ErrInvalidRequest      = &Error{Code: CodeInvalidRequest}
	ErrUpstreamUnavailable = &Error{Code: CodeUpstreamUnavailable}
	ErrEmptyResponse       = &Error{Code: CodeEmptyResponse}
	ErrMalformedResponse   = &Error{Code: CodeMalformedResponse}
	ErrConfiguration       = &Error{Code: CodeConfiguration}
)

// Error is the typed failure returned by Service.Analyze.
type Error struct {
	Code Code
	Kind Kind
	// Msg is short and safe to show to end users for CodeInvalidRequest.
	Msg string
	Err error
	// Raw is the model output that failed to parse. It belongs in
	// server-side logs only.
	Raw string
}

func (e *Error) Error() string {
	s := "analysis"
	if e.Kind != "" {
		s += " " + string(e.Kind)
	}
	s += ": " + string(e.Code)
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so sentinels work through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the Code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Retryable reports whether asking again with the same request may succeed.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeUpstreamUnavailable, CodeEmptyResponse, CodeMalformedResponse:
		return true
	}
	return false
}

func invalid(kind Kind, msg string, err error) *Error {
	return &Error{Code: CodeInvalidRequest, Kind: kind, Msg: msg, Err: err}
}

func malformed(kind Kind, raw string, format string, args ...any) *Error {
	return &Error{Code: CodeMalformedResponse, Kind: kind, Raw: raw, Err: fmt.Errorf(format, args...)}
}
