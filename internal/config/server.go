package config

import (
	"errors"

	"github.com/jaxxstorm/ureport/internal/secret"
)

// Preferences control how a micro report is assembled.
type Preferences struct {
	// AuthItems names problem-directory files embedded in the report's
	// "auth" object, in order.
	AuthItems []string
	// ReturnOnFailure makes report assembly failures returned errors
	// instead of fatal ones.
	ReturnOnFailure bool
}

// ServerConfig describes one uReport server endpoint. Client certificate
// auth and basic auth are mutually exclusive; setting one clears the other.
// Call Destroy when done so the secret fields are scrubbed.
type ServerConfig struct {
	URL        string
	SSLVerify  bool
	ClientCert string
	CACert     string
	Username   string
	Headers    map[string]string
	Proxy      string
	Prefs      Preferences

	clientKey *secret.Buffer
	password  *secret.Buffer
	destroyed bool
}

func NewServerConfig() *ServerConfig {
	return &ServerConfig{SSLVerify: true, Headers: map[string]string{}}
}

func (c *ServerConfig) ClientKey() string { return c.clientKey.String() }

func (c *ServerConfig) Password() string { return c.password.String() }

func (c *ServerConfig) HasClientAuth() bool {
	return c.ClientCert != "" && c.clientKey.Len() > 0
}

func (c *ServerConfig) HasBasicAuth() bool {
	return c.Username != "" && c.password.Len() > 0
}

// SetClientCert selects client certificate auth and drops any basic auth
// credentials.
func (c *ServerConfig) SetClientCert(cert, key string) error {
	if cert == "" || key == "" {
		return errors.New("client certificate and key paths must both be set")
	}
	buf, err := secret.FromString(key)
	if err != nil {
		return err
	}
	_ = c.clientKey.Close()
	c.ClientCert = cert
	c.clientKey = buf
	c.ClearBasicAuth()
	return nil
}

func (c *ServerConfig) ClearClientAuth() {
	_ = c.clientKey.Close()
	c.clientKey = nil
	c.ClientCert = ""
}

// SetBasicAuth selects username/password auth and drops client auth.
func (c *ServerConfig) SetBasicAuth(username, password string) error {
	buf, err := secret.FromString(password)
	if err != nil {
		return err
	}
	c.ClearClientAuth()
	_ = c.password.Close()
	c.Username = username
	c.password = buf
	return nil
}

func (c *ServerConfig) ClearBasicAuth() {
	_ = c.password.Close()
	c.password = nil
	c.Username = ""
}

// Destroy scrubs every credential and path. The config must not be used
// afterwards.
func (c *ServerConfig) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.ClearClientAuth()
	c.ClearBasicAuth()
	c.URL = ""
	c.CACert = ""
	c.Proxy = ""
	for k := range c.Headers {
		delete(c.Headers, k)
	}
	c.Prefs.AuthItems = nil
}

func (c *ServerConfig) Destroyed() bool { return c.destroyed }
