package credential

import (
	"context"
	"fmt"
)

// Puppet uses the agent's host certificate as reported by puppet itself.
type Puppet struct {
	Run Runner
}

func (s *Puppet) Resolve(ctx context.Context) (Credentials, error) {
	cert, err := s.print(ctx, "hostcert")
	if err != nil {
		return Credentials{}, err
	}
	key, err := s.print(ctx, "hostprivkey")
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{CertPath: cert, KeyPath: key}, nil
}

func (s *Puppet) print(ctx context.Context, key string) (string, error) {
	run := s.Run
	if run == nil {
		run = ExecRunner
	}
	out, err := run(ctx, "puppet", "config", "print", key)
	path, ok := absolutePath(out)
	if err != nil || !ok {
		return "", fmt.Errorf("%w: unable to determine puppet %s path (puppet not installed?)", ErrUnavailable, key)
	}
	return path, nil
}
