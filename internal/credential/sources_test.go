package credential

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestRHSMFromEnvironment(t *testing.T) {
	certDir := t.TempDir()
	caDir := t.TempDir()
	writeFile(t, filepath.Join(certDir, "cert.pem"), "cert")
	writeFile(t, filepath.Join(certDir, "key.pem"), "key")
	writeFile(t, filepath.Join(caDir, "cert-api.access.redhat.com.pem"), "ca")

	env := map[string]string{
		"LIBREPORT_DEBUG_RHSMCON_PEM_DIR_PATH":    certDir,
		"LIBREPORT_DEBUG_AUTHORITY_CERT_DIR_PATH": caDir,
	}
	source := &RHSM{
		Getenv: func(key string) string { return env[key] },
		Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			t.Fatalf("runner must not be called when the env var is set")
			return nil, nil
		},
	}
	creds, err := source.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(certDir, "cert.pem"), creds.CertPath)
	assert.Equal(t, filepath.Join(certDir, "key.pem"), creds.KeyPath)
	assert.Equal(t, filepath.Join(caDir, "cert-api.access.redhat.com.pem"), creds.CAPath)
	assert.Equal(t, RHSMURL, source.DefaultURL())
}

func TestRHSMAsksSubscriptionManager(t *testing.T) {
	certDir := t.TempDir()
	writeFile(t, filepath.Join(certDir, "cert.pem"), "cert")
	writeFile(t, filepath.Join(certDir, "key.pem"), "key")

	var ran []string
	source := &RHSM{
		Getenv: func(key string) string {
			if key == "LIBREPORT_DEBUG_AUTHORITY_CERT_DIR_PATH" {
				return t.TempDir()
			}
			return ""
		},
		Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			ran = append(ran, name)
			return []byte(certDir + "\n"), nil
		},
	}
	creds, err := source.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"python3"}, ran)
	assert.Equal(t, filepath.Join(certDir, "cert.pem"), creds.CertPath)
	assert.Empty(t, creds.CAPath)
}

func TestRHSMMissingCertificateIsUnavailable(t *testing.T) {
	source := &RHSM{
		Getenv: func(key string) string { return t.TempDir() },
	}
	_, err := source.Resolve(context.Background())
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestPuppet(t *testing.T) {
	source := &Puppet{Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		require.Equal(t, "puppet", name)
		switch args[len(args)-1] {
		case "hostcert":
			return []byte("/var/lib/puppet/ssl/certs/host.pem\n"), nil
		case "hostprivkey":
			return []byte("/var/lib/puppet/ssl/private_keys/host.pem\n"), nil
		}
		return nil, errors.New("unexpected")
	}}
	creds, err := source.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/puppet/ssl/certs/host.pem", creds.CertPath)
	assert.Equal(t, "/var/lib/puppet/ssl/private_keys/host.pem", creds.KeyPath)
}

func TestPuppetNotInstalled(t *testing.T) {
	source := &Puppet{Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("bash: puppet: command not found"), errors.New("exit status 127")
	}}
	_, err := source.Resolve(context.Background())
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestEntitlementPairWithHeaders(t *testing.T) {
	dir := t.TempDir()
	cert := "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n" +
		"-----BEGIN ENTITLEMENT DATA-----\nabc\ndef\n-----END ENTITLEMENT DATA-----\n" +
		"-----BEGIN RSA SIGNATURE-----\nsig1\nsig2\n-----END RSA SIGNATURE-----\n"
	writeFile(t, filepath.Join(dir, "1234.pem"), cert)
	writeFile(t, filepath.Join(dir, "1234-key.pem"), "key")

	creds, err := (&Entitlement{Dir: dir}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1234.pem"), creds.CertPath)
	assert.Equal(t, filepath.Join(dir, "1234-key.pem"), creds.KeyPath)
	assert.Equal(t, "-----BEGIN ENTITLEMENT DATA-----abcdef-----END ENTITLEMENT DATA-----", creds.Headers[HeaderEntitlementData])
	assert.Equal(t, "-----BEGIN RSA SIGNATURE-----sig1sig2-----END RSA SIGNATURE-----", creds.Headers[HeaderEntitlementSig])
}

func TestEntitlementWithoutSectionsKeepsPair(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "77.pem"), "plain cert")
	writeFile(t, filepath.Join(dir, "77-key.pem"), "key")
	creds, err := (&Entitlement{Dir: dir}).Resolve(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, creds.CertPath)
	assert.Nil(t, creds.Headers)
}

func TestEntitlementRejectsBadLayouts(t *testing.T) {
	mismatched := t.TempDir()
	writeFile(t, filepath.Join(mismatched, "1.pem"), "c")
	writeFile(t, filepath.Join(mismatched, "2-key.pem"), "k")

	crowded := t.TempDir()
	for _, name := range []string{"1.pem", "1-key.pem", "2.pem"} {
		writeFile(t, filepath.Join(crowded, name), "x")
	}

	for _, dir := range []string{mismatched, crowded, filepath.Join(t.TempDir(), "absent")} {
		_, err := (&Entitlement{Dir: dir}).Resolve(context.Background())
		assert.True(t, errors.Is(err, ErrUnavailable), dir)
	}
}
