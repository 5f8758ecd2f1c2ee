package credential

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	RHSMURL = "https://cert-api.access.redhat.com/rs/telemetry/abrt"

	rhsmCertDir      = "/etc/pki/consumer"
	rhsmCertName     = "cert.pem"
	rhsmKeyName      = "key.pem"
	authorityCertDir = "/etc/libreport"
	authorityCert    = "cert-api.access.redhat.com.pem"

	envRHSMCertDir      = "LIBREPORT_DEBUG_RHSMCON_PEM_DIR_PATH"
	envAuthorityCertDir = "LIBREPORT_DEBUG_AUTHORITY_CERT_DIR_PATH"

	rhsmConfigScript = "from rhsm.config import initConfig; print(initConfig().get('rhsm', 'consumerCertDir'))"
)

// RHSM uses the subscription manager's consumer certificate.
type RHSM struct {
	Getenv func(string) string
	Run    Runner
	Logger *zap.Logger
}

func NewRHSM(logger *zap.Logger) *RHSM {
	return &RHSM{Getenv: os.Getenv, Run: ExecRunner, Logger: logger}
}

func (s *RHSM) DefaultURL() string { return RHSMURL }

func (s *RHSM) Resolve(ctx context.Context) (Credentials, error) {
	s.defaults()
	creds := Credentials{}

	authorityDir := s.Getenv(envAuthorityCertDir)
	if authorityDir == "" {
		authorityDir = authorityCertDir
	}
	ca := filepath.Join(authorityDir, authorityCert)
	if fileExists(ca) {
		creds.CAPath = ca
		s.Logger.Debug("using validating server cert", zap.String("path", ca))
	} else {
		s.Logger.Info("certs validating the server do not exist", zap.String("path", ca))
	}

	dir := s.consumerCertDir(ctx)
	cert := filepath.Join(dir, rhsmCertName)
	key := filepath.Join(dir, rhsmKeyName)
	for _, path := range []string{cert, key} {
		if !fileExists(path) {
			return creds, fmt.Errorf("%w: RHSM consumer certificate '%s' does not exist", ErrUnavailable, path)
		}
	}
	creds.CertPath = cert
	creds.KeyPath = key
	return creds, nil
}

func (s *RHSM) consumerCertDir(ctx context.Context) string {
	if dir := s.Getenv(envRHSMCertDir); dir != "" {
		return dir
	}
	out, err := s.Run(ctx, "python3", "-c", rhsmConfigScript)
	if dir, ok := absolutePath(out); err == nil && ok {
		return dir
	}
	s.Logger.Error("failed to get 'rhsm':'consumerCertDir' from rhsm.config python module, using default",
		zap.String("default", rhsmCertDir),
		zap.Error(err),
	)
	return rhsmCertDir
}

func (s *RHSM) defaults() {
	if s.Getenv == nil {
		s.Getenv = os.Getenv
	}
	if s.Run == nil {
		s.Run = ExecRunner
	}
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
}
