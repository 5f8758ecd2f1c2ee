package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/proxy"
)

type Options struct {
	Timeout time.Duration
	// Proxy is an http(s):// or socks5:// URL. Empty means the
	// environment's proxy settings.
	Proxy  string
	Logger *zap.Logger
}

// Client is the net/http Transport. Every Post gets a fresh connection
// that is closed after the response is read.
type Client struct {
	opts Options
}

func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{opts: opts}
}

func (c *Client) Post(ctx context.Context, req Request) Result {
	tlsConfig, err := c.tlsConfig(req)
	if err != nil {
		return Result{Error: err.Error(), TLSFailure: true}
	}
	transport, err := c.transport(tlsConfig)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer transport.CloseIdleConnections()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return Result{Error: err.Error()}
	}
	httpReq.Close = true
	httpReq.Header.Set("Content-Type", req.ContentType)
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if !req.HasClientCert() && req.Username != "" && req.Password != "" {
		httpReq.SetBasicAuth(req.Username, req.Password)
	}

	c.opts.Logger.Debug("http request",
		zap.String("url", req.URL),
		zap.Bool("client_cert", req.HasClientCert()),
		zap.Bool("verify_tls", req.VerifyTLS),
	)

	client := &http.Client{Transport: transport, Timeout: c.opts.Timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return Result{Error: err.Error(), Detail: rootCause(err), TLSFailure: IsTLSFailure(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{StatusCode: resp.StatusCode, Error: fmt.Sprintf("read response body: %v", err)}
	}
	c.opts.Logger.Debug("http response",
		zap.String("url", req.URL),
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", body),
	)
	return Result{OK: true, StatusCode: resp.StatusCode, Body: body}
}

func (c *Client) tlsConfig(req Request) (*tls.Config, error) {
	cfg := &tls.Config{InsecureSkipVerify: !req.VerifyTLS}
	if req.HasClientCert() {
		pair, err := tls.LoadX509KeyPair(req.ClientCert, req.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client certificate %s: %w", req.ClientCert, err)
		}
		cfg.Certificates = []tls.Certificate{pair}
	}
	if req.CACert != "" {
		pem, err := os.ReadFile(req.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", req.CACert)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

func (c *Client) transport(tlsConfig *tls.Config) (*http.Transport, error) {
	transport := &http.Transport{
		TLSClientConfig:   tlsConfig,
		DisableKeepAlives: true,
		Proxy:             http.ProxyFromEnvironment,
	}
	if c.opts.Proxy == "" {
		return transport, nil
	}
	proxyURL, err := url.Parse(c.opts.Proxy)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %q: %w", c.opts.Proxy, err)
	}
	switch proxyURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(proxyURL)
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(proxyURL, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("socks proxy: %w", err)
		}
		transport.Proxy = nil
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", proxyURL.Scheme)
	}
	return transport, nil
}

// IsTLSFailure reports whether err came from the TLS handshake or from
// certificate validation on either side.
func IsTLSFailure(err error) bool {
	if err == nil {
		return false
	}
	var verifyErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	var alertErr tls.AlertError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	switch {
	case errors.As(err, &verifyErr),
		errors.As(err, &recordErr),
		errors.As(err, &alertErr),
		errors.As(err, &unknownAuthority),
		errors.As(err, &hostnameErr),
		errors.As(err, &invalidErr):
		return true
	}
	// The stdlib reports some peer alerts only as text.
	msg := err.Error()
	return strings.Contains(msg, "tls: ") || strings.Contains(msg, "remote error: tls")
}

func rootCause(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
