package httpclient

import (
	"context"
)

// Request is everything one POST needs. Each attempt builds its own.
type Request struct {
	URL         string
	ContentType string
	Headers     map[string]string
	Body        []byte
	ClientCert  string
	ClientKey   string
	CACert      string
	Username    string
	Password    string
	VerifyTLS   bool
}

func (r Request) HasClientCert() bool {
	return r.ClientCert != "" && r.ClientKey != ""
}

// Result is what came back. OK is false when no HTTP response was read;
// TLSFailure marks handshake, certificate validation or client certificate
// loading problems.
type Result struct {
	OK         bool
	StatusCode int
	Body       []byte
	Error      string
	Detail     string
	TLSFailure bool
}

type Transport interface {
	Post(ctx context.Context, req Request) Result
}

type MockTransport struct {
	Responder func(req Request) Result
	Requests  []Request
}

func (m *MockTransport) Post(ctx context.Context, req Request) Result {
	m.Requests = append(m.Requests, req)
	if m.Responder == nil {
		return Result{Error: "no responder"}
	}
	return m.Responder(req)
}
