package ureport

import "fmt"

// TransportError means no HTTP response could be read, after the
// authentication fallback if one applied.
type TransportError struct {
	URL     string
	Message string
	Detail  string
	TLS     bool
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("failed to upload uReport to the server '%s'", e.URL)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Detail != "" && e.Detail != e.Message {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// StatusError is an HTTP status for which no body is parsed.
type StatusError struct {
	URL        string
	StatusCode int
	Cause      string
	Body       []byte
}

func (e *StatusError) Error() string {
	switch e.StatusCode {
	case 404:
		return fmt.Sprintf("the URL '%s' does not exist (got error 404 from server)", e.URL)
	case 500:
		return fmt.Sprintf("the server at '%s' encountered an internal error (got error 500)", e.URL)
	case 503:
		return fmt.Sprintf("the server at '%s' currently can't handle the request (got error 503)", e.URL)
	}
	return fmt.Sprintf("unexpected HTTP response from '%s': %d", e.URL, e.StatusCode)
}

// ProtocolError is a body that is not JSON or matches neither the error nor
// the result shape.
type ProtocolError struct {
	URL    string
	Reason string
	Body   []byte
}

func (e *ProtocolError) Error() string {
	if e.URL == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s (server '%s')", e.Reason, e.URL)
}

// InconsistencyWarning flags a reply whose shape disagrees with its status
// code. The reply is still usable.
type InconsistencyWarning struct {
	URL        string
	StatusCode int
	IsError    bool
}

func (w *InconsistencyWarning) Error() string {
	return fmt.Sprintf("type mismatch has been detected in the response from '%s' (status %d, error=%t)", w.URL, w.StatusCode, w.IsError)
}

// ServerError carries the server's own error text.
type ServerError struct {
	URL  string
	Text string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("the server at '%s' responded with an error: '%s'", e.URL, e.Text)
}

// AttachRejectedError is a result other than "true" for an attachment.
type AttachRejectedError struct {
	URL   string
	Value string
}

func (e *AttachRejectedError) Error() string {
	return fmt.Sprintf("the server at '%s' did not accept the attachment (result '%s')", e.URL, e.Value)
}
