package credential

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	EntitlementDir = "/etc/pki/entitlement"

	entDataBegin = "-----BEGIN ENTITLEMENT DATA-----"
	entDataEnd   = "-----END ENTITLEMENT DATA-----"
	sigDataBegin = "-----BEGIN RSA SIGNATURE-----"
	sigDataEnd   = "-----END RSA SIGNATURE-----"

	HeaderEntitlementData = "X-RH-Entitlement-Data"
	HeaderEntitlementSig  = "X-RH-Entitlement-Sig"
)

// Entitlement uses the single <id>.pem / <id>-key.pem pair from the
// entitlement directory and forwards the entitlement blobs as headers.
type Entitlement struct {
	Dir    string
	Logger *zap.Logger
}

func (s *Entitlement) Resolve(ctx context.Context) (Credentials, error) {
	dir := s.Dir
	if dir == "" {
		dir = EntitlementDir
	}
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var pems []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && filepath.Ext(entry.Name()) == ".pem" {
			pems = append(pems, strings.TrimSuffix(entry.Name(), ".pem"))
		}
	}
	if len(pems) != 2 {
		return Credentials{}, fmt.Errorf("%w: %s does not contain unique cert-key files pair", ErrUnavailable, dir)
	}

	cert, key := pems[0], pems[1]
	if len(key) < len(cert) {
		cert, key = key, cert
	}
	creds := Credentials{
		CertPath: filepath.Join(dir, cert+".pem"),
		KeyPath:  filepath.Join(dir, key+".pem"),
	}
	if key != cert+"-key" {
		return Credentials{}, fmt.Errorf("%w: key file '%s' isn't complement to cert file '%s'", ErrUnavailable, creds.KeyPath, creds.CertPath)
	}

	data, err := os.ReadFile(creds.CertPath)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	ent, entOK := between(string(data), entDataBegin, entDataEnd)
	sig, sigOK := between(string(data), sigDataBegin, sigDataEnd)
	if !entOK || !sigOK {
		logger.Info("cert file doesn't contain entitlement and RSA signature sections, not using HTTP authentication headers",
			zap.String("cert", creds.CertPath))
		return creds, nil
	}
	creds.Headers = map[string]string{
		HeaderEntitlementData: entDataBegin + strings.ReplaceAll(ent, "\n", "") + entDataEnd,
		HeaderEntitlementSig:  sigDataBegin + strings.ReplaceAll(sig, "\n", "") + sigDataEnd,
	}
	return creds, nil
}

func between(s, begin, end string) (string, bool) {
	start := strings.Index(s, begin)
	if start < 0 {
		return "", false
	}
	rest := s[start+len(begin):]
	stop := strings.Index(rest, end)
	if stop < 0 {
		return "", false
	}
	return rest[:stop], true
}
