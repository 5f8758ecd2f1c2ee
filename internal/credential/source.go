package credential

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
)

// ErrUnavailable means a source could not supply a certificate pair. The
// resolver degrades to no client authentication.
var ErrUnavailable = errors.New("client credentials unavailable")

// Credentials are what a Source found. CAPath and Headers may be set even
// when the certificate pair is unavailable.
type Credentials struct {
	CertPath string
	KeyPath  string
	CAPath   string
	Headers  map[string]string
}

// Source turns a provider keyword into a certificate/key pair.
type Source interface {
	Resolve(ctx context.Context) (Credentials, error)
}

// DefaultURLer is implemented by sources that imply a server URL.
type DefaultURLer interface {
	DefaultURL() string
}

// Runner runs an external program and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// absolutePath returns the first output line when it looks like an
// absolute path.
func absolutePath(out []byte) (string, bool) {
	line, _, _ := strings.Cut(string(out), "\n")
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, "/") {
		return "", false
	}
	return line, true
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
