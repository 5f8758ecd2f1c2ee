// Package discover turns srv+https:// server URLs into concrete endpoints by
// looking up the _ureport._tcp SRV record of the named domain.
package discover

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jaxxstorm/ureport/internal/config"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

const (
	SchemePrefix = "srv+"
	Service      = "_ureport._tcp."
)

type Options struct {
	// Resolvers defaults to the nameservers of ResolvConf.
	Resolvers []string
	Timeout   time.Duration
	Retries   int
	EDNS0Size uint16
	Logger    *zap.Logger
}

type Resolver struct {
	opts Options
	udp  Transport
	tcp  Transport
}

func New(opts Options) *Resolver {
	return NewWithTransports(opts, &netTransport{network: "udp", timeout: opts.Timeout}, &netTransport{network: "tcp", timeout: opts.Timeout})
}

func NewWithTransports(opts Options, udp Transport, tcp Transport) *Resolver {
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.Retries == 0 {
		opts.Retries = 1
	}
	if opts.EDNS0Size == 0 {
		opts.EDNS0Size = 1232
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Resolver{opts: opts, udp: udp, tcp: tcp}
}

// IsDiscoveryURL reports whether raw names a domain to be resolved.
func IsDiscoveryURL(raw string) bool {
	return strings.HasPrefix(strings.ToLower(raw), SchemePrefix)
}

// Expand returns raw unchanged unless it carries the srv+ prefix, in which
// case the host is replaced by the preferred SRV target and port. Lookup
// failures are configuration errors.
func (r *Resolver) Expand(ctx context.Context, raw string) (string, error) {
	if !IsDiscoveryURL(raw) {
		return raw, nil
	}
	u, err := url.Parse(raw[len(SchemePrefix):])
	if err != nil {
		return "", config.Errorf("invalid server URL '%s': %v", raw, err)
	}
	domain := u.Hostname()
	if domain == "" {
		return "", config.Errorf("server URL '%s' names no domain", raw)
	}

	records, err := r.LookupSRV(ctx, domain)
	if err != nil {
		return "", config.Errorf("cannot discover server for '%s': %v", domain, err)
	}
	best := Pick(records)
	if best == nil {
		return "", config.Errorf("no %s%s record offers the service", Service, domain)
	}
	u.Host = net.JoinHostPort(strings.TrimSuffix(best.Target, "."), strconv.Itoa(int(best.Port)))
	expanded := u.String()
	r.opts.Logger.Info("discovered server", zap.String("domain", domain), zap.String("url", expanded))
	return expanded, nil
}

// LookupSRV asks each resolver in turn and returns the SRV answers of the
// first one that replies successfully.
func (r *Resolver) LookupSRV(ctx context.Context, domain string) ([]*dns.SRV, error) {
	resolvers := r.opts.Resolvers
	if len(resolvers) == 0 {
		loaded, err := LoadResolvers(ResolvConf)
		if err != nil {
			return nil, fmt.Errorf("load resolvers: %w", err)
		}
		resolvers = loaded
	}
	if len(resolvers) == 0 {
		return nil, errors.New("no resolvers configured")
	}

	name := Service + dns.Fqdn(domain)
	var lastErr error
	for _, resolver := range resolvers {
		server := NormalizeServer(resolver)
		ctxReq, cancel := context.WithTimeout(ctx, r.opts.Timeout)
		resp, err := r.exchange(ctxReq, server, r.buildQuery(name))
		cancel()
		if err != nil {
			r.opts.Logger.Debug("srv lookup failed", zap.String("server", server), zap.Error(err))
			lastErr = err
			continue
		}
		switch resp.Rcode {
		case dns.RcodeSuccess:
		case dns.RcodeNameError:
			return nil, fmt.Errorf("%s does not exist", name)
		default:
			lastErr = fmt.Errorf("%s answered %s", server, dns.RcodeToString[resp.Rcode])
			continue
		}
		records := []*dns.SRV{}
		for _, rr := range resp.Answer {
			if srv, ok := rr.(*dns.SRV); ok {
				records = append(records, srv)
			}
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("%s has no SRV records", name)
		}
		return records, nil
	}
	return nil, lastErr
}

func (r *Resolver) buildQuery(name string) *dns.Msg {
	msg := &dns.Msg{}
	msg.SetQuestion(name, dns.TypeSRV)
	msg.RecursionDesired = true
	msg.SetEdns0(r.opts.EDNS0Size, false)
	return msg
}

// exchange uses UDP and repeats the query over TCP when the answer was
// truncated.
func (r *Resolver) exchange(ctx context.Context, server string, msg *dns.Msg) (*dns.Msg, error) {
	resp, err := r.exchangeWithRetries(ctx, r.udp, server, msg, "udp")
	if err == nil && resp.Truncated {
		r.opts.Logger.Debug("udp truncated, retrying with tcp", zap.String("server", server))
		return r.exchangeWithRetries(ctx, r.tcp, server, msg, "tcp")
	}
	return resp, err
}

func (r *Resolver) exchangeWithRetries(ctx context.Context, transport Transport, server string, msg *dns.Msg, mode string) (*dns.Msg, error) {
	var lastErr error
	for i := 0; i < r.opts.Retries; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, _, err := transport.Exchange(ctx, server, msg.Copy())
		if err == nil && resp != nil {
			if r.opts.Logger.Core().Enabled(zap.DebugLevel) {
				r.opts.Logger.Debug("dns response",
					zap.String("transport", mode),
					zap.String("server", server),
					zap.String("message", resp.String()),
				)
			}
			return resp, nil
		}
		if err == nil {
			err = errors.New("empty dns response")
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("dns exchange failed")
	}
	return nil, lastErr
}

// Pick returns the record with the lowest priority, preferring the highest
// weight among equals. A lone "." target means the service is not offered.
func Pick(records []*dns.SRV) *dns.SRV {
	candidates := []*dns.SRV{}
	for _, rr := range records {
		if rr == nil || rr.Target == "." || rr.Target == "" {
			continue
		}
		candidates = append(candidates, rr)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].Weight > candidates[j].Weight
	})
	return candidates[0]
}
