package credential

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaxxstorm/ureport/internal/config"
	"github.com/jaxxstorm/ureport/internal/secret"
	"go.uber.org/zap"
)

const rhtsCredentials = "rhts-credentials"

type Options struct {
	// Sources maps provider keywords (case-sensitive) to credential
	// sources. Nil means DefaultSources.
	Sources  map[string]Source
	Prompter Prompter
	// RHTSPaths are tried in order for rhts-credentials; the first
	// readable file wins.
	RHTSPaths []string
	Logger    *zap.Logger
}

// Resolver fills the authentication fields of a ServerConfig.
type Resolver struct {
	opts Options
}

func DefaultSources(logger *zap.Logger) map[string]Source {
	return map[string]Source{
		"rhsm":             NewRHSM(logger),
		"rhsm-entitlement": &Entitlement{Dir: EntitlementDir, Logger: logger},
		"puppet":           &Puppet{Run: ExecRunner},
	}
}

func DefaultRHTSPaths() []string {
	paths := []string{"/etc/libreport/plugins/rhtsupport.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "libreport", "rhtsupport.yaml"))
	}
	return paths
}

func NewResolver(opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Sources == nil {
		opts.Sources = DefaultSources(opts.Logger)
	}
	if opts.Prompter == nil {
		opts.Prompter = TerminalPrompter{}
	}
	if opts.RHTSPaths == nil {
		opts.RHTSPaths = DefaultRHTSPaths()
	}
	return &Resolver{opts: opts}
}

// Configure applies settings to cfg: URL, SSLVerify, Proxy, then HTTPAuth,
// or SSLClientAuth when HTTPAuth is absent, then the auth data items.
func (r *Resolver) Configure(ctx context.Context, cfg *config.ServerConfig, settings config.Settings) error {
	if url, ok := settings.Lookup("URL"); ok {
		cfg.URL = url
	}
	cfg.SSLVerify = settings.Bool("SSLVerify", cfg.SSLVerify)
	if proxy, ok := settings.Lookup("Proxy"); ok {
		cfg.Proxy = proxy
	}

	if httpAuth, ok := settings.Lookup("HTTPAuth"); ok {
		if err := r.LoadBasicAuth(cfg, httpAuth); err != nil {
			return err
		}
	} else if clientAuth, ok := settings.Lookup("SSLClientAuth"); ok {
		if err := r.SetClientAuth(ctx, cfg, clientAuth); err != nil {
			return err
		}
	}

	include := settings.Bool("IncludeAuthData", cfg.HasClientAuth() || cfg.HasBasicAuth())
	if include {
		items, _ := settings.Lookup("AuthDataItems")
		cfg.Prefs.AuthItems = config.ParseList(items)
		if cfg.Prefs.AuthItems == nil {
			r.opts.Logger.Warn("IncludeAuthData set to 'yes' but AuthDataItems is empty")
		}
	}
	return nil
}

// SetClientAuth selects client certificate authentication by mode: "" for
// none, a provider keyword, or "<cert>:<key>".
func (r *Resolver) SetClientAuth(ctx context.Context, cfg *config.ServerConfig, mode string) error {
	logger := r.opts.Logger

	if mode == "" {
		cfg.ClearClientAuth()
		logger.Info("not using client authentication")
		return nil
	}

	if source, ok := r.opts.Sources[mode]; ok {
		if d, ok := source.(DefaultURLer); ok && cfg.URL == "" {
			cfg.URL = d.DefaultURL()
		}
		creds, err := source.Resolve(ctx)
		if creds.CAPath != "" {
			cfg.CACert = creds.CAPath
		}
		if err != nil {
			cfg.ClearClientAuth()
			logger.Info("using the default configuration for uReports",
				zap.String("source", mode),
				zap.Error(err),
			)
			return nil
		}
		if err := cfg.SetClientCert(creds.CertPath, creds.KeyPath); err != nil {
			cfg.ClearClientAuth()
			logger.Info("using the default configuration for uReports", zap.String("source", mode), zap.Error(err))
			return nil
		}
		for key, value := range creds.Headers {
			cfg.Headers[key] = value
		}
	} else {
		cert, key, _ := strings.Cut(mode, ":")
		if cert == "" || key == "" {
			return config.Errorf("invalid client authentication specification %q", mode)
		}
		if err := cfg.SetClientCert(cert, key); err != nil {
			return config.Errorf("invalid client authentication specification %q: %v", mode, err)
		}
	}

	logger.Info("using client certificate", zap.String("cert", cfg.ClientCert))
	return nil
}

// LoadBasicAuth selects username/password authentication from pref:
// "rhts-credentials" or "<user>[:<password>]". A missing password is
// prompted for; an empty one is fatal.
func (r *Resolver) LoadBasicAuth(cfg *config.ServerConfig, pref string) error {
	var username, password string
	var hasPassword bool

	if pref == rhtsCredentials {
		settings, err := r.loadRHTS()
		if err != nil {
			return err
		}
		username, _ = settings.Lookup("Login")
		password, hasPassword = settings.Lookup("Password")
		hasPassword = hasPassword && password != ""
		if cfg.URL == "" {
			cfg.URL = RHSMURL
		}
	} else {
		username, password, hasPassword = strings.Cut(pref, ":")
	}

	if !hasPassword {
		prompt := fmt.Sprintf("Please provide uReport server password for user '%s':", username)
		answer, err := r.opts.Prompter.Password(prompt)
		if err != nil {
			return config.Errorf("cannot read uReport server password: %v", err)
		}
		if len(answer) == 0 {
			return config.Errorf("Cannot continue without uReport server password!")
		}
		password = string(answer)
		secret.Zero(answer)
	}

	if err := cfg.SetBasicAuth(username, password); err != nil {
		return config.Errorf("Cannot continue without uReport server password!")
	}
	return nil
}

func (r *Resolver) loadRHTS() (config.Settings, error) {
	for _, path := range r.opts.RHTSPaths {
		settings, err := config.LoadFile(path)
		if err == nil {
			// Credentials come from the file only.
			return settings.WithEnv(nil), nil
		}
		r.opts.Logger.Debug("rhtsupport credentials not loaded", zap.String("path", path), zap.Error(err))
	}
	return config.Settings{}, config.Errorf("could not get RHTSupport credentials")
}
