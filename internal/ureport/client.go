package ureport

import (
	"context"
	"errors"
	"strings"

	"github.com/jaxxstorm/ureport/internal/config"
	"github.com/jaxxstorm/ureport/internal/httpclient"
	"go.uber.org/zap"
)

const (
	SubmitPath = "reports/new/"
	AttachPath = "reports/attach/"
	BTHashPath = "reports/bthash/"

	contentType = "application/json"
)

type Options struct {
	Transport httpclient.Transport
	Logger    *zap.Logger
}

// Client talks to one uReport server. It reads cfg but never changes it.
type Client struct {
	cfg       *config.ServerConfig
	transport httpclient.Transport
	logger    *zap.Logger
}

func New(cfg *config.ServerConfig, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Transport == nil {
		opts.Transport = httpclient.New(httpclient.Options{Proxy: cfg.Proxy, Logger: opts.Logger})
	}
	return &Client{cfg: cfg, transport: opts.Transport, logger: opts.Logger}
}

// Submit uploads a micro report.
func (c *Client) Submit(ctx context.Context, report []byte) (Reply, error) {
	return c.Post(ctx, report, SubmitPath)
}

// Post sends body to the server URL joined with suffix and parses the
// reply. A TLS failure while a client certificate was attached is retried
// exactly once without it.
func (c *Client) Post(ctx context.Context, body []byte, suffix string) (Reply, error) {
	if c.cfg.URL == "" {
		return Reply{}, config.Errorf("you need to specify server URL")
	}
	url := JoinURL(c.cfg.URL, suffix)

	withCert := c.cfg.HasClientAuth()
	result := c.attempt(ctx, url, body, withCert)
	if withCert && result.TLSFailure {
		c.logger.Warn("authentication failed, retrying unauthenticated",
			zap.String("url", url),
			zap.String("error", result.Error),
		)
		result = c.attempt(ctx, url, body, false)
	}
	return c.interpret(url, result)
}

// attempt builds a request from scratch. Without the client certificate it
// still carries basic auth when configured.
func (c *Client) attempt(ctx context.Context, url string, body []byte, withCert bool) httpclient.Result {
	req := httpclient.Request{
		URL:         url,
		ContentType: contentType,
		Headers: map[string]string{
			"Accept":     "application/json",
			"Connection": "close",
		},
		Body:      body,
		VerifyTLS: c.cfg.SSLVerify,
	}
	for key, value := range c.cfg.Headers {
		req.Headers[key] = value
	}
	switch {
	case withCert:
		req.ClientCert = c.cfg.ClientCert
		req.ClientKey = c.cfg.ClientKey()
		req.CACert = c.cfg.CACert
	case c.cfg.HasBasicAuth():
		req.Username = c.cfg.Username
		req.Password = c.cfg.Password()
	}
	return c.transport.Post(ctx, req)
}

func (c *Client) interpret(url string, result httpclient.Result) (Reply, error) {
	if !result.OK {
		err := &TransportError{URL: url, Message: result.Error, Detail: result.Detail, TLS: result.TLSFailure}
		c.logger.Error("upload failed", zap.Error(err))
		return Reply{}, err
	}

	code := result.StatusCode
	switch code {
	case 404:
		return Reply{}, c.statusError(url, code, "URL does not exist", result.Body)
	case 500:
		return Reply{}, c.statusError(url, code, "internal error", result.Body)
	case 503:
		return Reply{}, c.statusError(url, code, "service unavailable", result.Body)
	}
	if !Accepted(code) {
		err := c.statusError(url, code, "unexpected HTTP response", result.Body)
		c.logger.Info("unexpected response body", zap.String("url", url), zap.ByteString("body", result.Body))
		return Reply{}, err
	}

	reply, err := Parse(code, result.Body)
	if err != nil {
		var perr *ProtocolError
		if errors.As(err, &perr) {
			perr.URL = url
		}
		c.logger.Error("invalid server response", zap.Error(err))
		c.logger.Info("response body", zap.String("url", url), zap.ByteString("body", result.Body))
		return Reply{}, err
	}
	var warning *InconsistencyWarning
	if errors.As(reply.Warning, &warning) {
		warning.URL = url
		c.logger.Warn(warning.Error())
	}
	return reply, nil
}

func (c *Client) statusError(url string, code int, cause string, body []byte) error {
	err := &StatusError{URL: url, StatusCode: code, Cause: cause, Body: body}
	c.logger.Error("upload rejected", zap.Error(err), zap.Int("status", code), zap.String("cause", cause))
	return err
}

// ReportURL is where the server at base shows the report cluster for bthash.
func ReportURL(base, bthash string) string {
	return JoinURL(JoinURL(base, BTHashPath), bthash)
}

// JoinURL joins base and suffix with exactly one slash.
func JoinURL(base, suffix string) string {
	if suffix == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(suffix, "/")
}
