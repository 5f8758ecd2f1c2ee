package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jaxxstorm/ureport/internal/analyze"
	"github.com/jaxxstorm/ureport/internal/config"
	"github.com/jaxxstorm/ureport/internal/credential"
	"github.com/jaxxstorm/ureport/internal/discover"
	"github.com/jaxxstorm/ureport/internal/httpclient"
	"github.com/jaxxstorm/ureport/internal/model"
	"github.com/jaxxstorm/ureport/internal/output"
	"go.uber.org/zap"
)

var Version = "dev"

const (
	exitOK        = 0
	exitFailure   = 1
	exitStopEvent = 70
)

type CLI struct {
	Submit  SubmitCmd  `cmd:"" default:"1" help:"Submit the problem's micro report (default)."`
	Attach  AttachCmd  `cmd:"" help:"Attach a bug, contact email or comment to a submitted report."`
	Version VersionCmd `cmd:"version" help:"Print version."`
}

type ServerFlags struct {
	Config    string        `short:"c" type:"path" default:"/etc/libreport/plugins/ureport.yaml" help:"Configuration file."`
	URL       string        `short:"u" name:"url" help:"Server URL (srv+https://domain/path discovers it via DNS)."`
	Insecure  bool          `short:"k" help:"Allow insecure connection to the server."`
	Auth      string        `short:"t" placeholder:"SOURCE" help:"Client authentication: rhsm, rhsm-entitlement, puppet or CERT:KEY."`
	AuthItems []string      `short:"i" placeholder:"AUTH_ITEMS" help:"Problem directory files included in the 'auth' key."`
	DumpDir   string        `short:"d" type:"path" default:"." help:"Problem directory."`
	Proxy     string        `help:"Proxy URL (http, https or socks5)."`
	Timeout   time.Duration `default:"30s" help:"Time budget per HTTP request."`
	Output    string        `enum:"pretty,json" default:"pretty" help:"Output format."`
	Verbose   bool          `short:"v" help:"Enable verbose logging."`
	Debug     bool          `help:"Enable debug logging (includes raw response bodies)."`
}

type SubmitCmd struct {
	ServerFlags `embed:""`
	Report      string `type:"path" help:"Micro report file (default <dump-dir>/ureport.json)."`
}

type AttachCmd struct {
	ServerFlags `embed:""`
	BTHash      string `short:"a" name:"attach" placeholder:"BTHASH" help:"bthash of uReport to attach (conflicts with -A)."`
	BTHashRT    bool   `short:"A" name:"attach-rt" help:"Attach to a bthash from reported_to (conflicts with -a)."`
	Email       string `short:"e" placeholder:"EMAIL" help:"Contact e-mail address (conflicts with -E)."`
	EmailEnv    bool   `short:"E" name:"email-env" help:"Contact e-mail address from environment or configuration file (conflicts with -e)."`
	BugID       int    `short:"b" name:"bug-id" default:"-1" help:"Attach RHBZ bug (conflicts with -B)."`
	BugIDRT     bool   `short:"B" name:"bug-id-rt" help:"Attach last RHBZ bug from reported_to (conflicts with -b)."`
	Comment     string `short:"o" placeholder:"DESCRIPTION" help:"Attach short text (conflicts with -O)."`
	CommentFile bool   `short:"O" name:"comment-file" help:"Attach short text from comment (conflicts with -o)."`
}

type VersionCmd struct{}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("ureport"),
		kong.Description("Submit crash micro reports to a uReport server and attach follow-up data."),
	)

	if ctx.Selected() != nil && ctx.Selected().Name == "version" {
		fmt.Println(Version)
		return
	}

	if ctx.Selected() != nil && ctx.Selected().Name == "attach" {
		os.Exit(runWith(cli.Attach.ServerFlags, func(ctx context.Context, e *env) int {
			return e.attach(ctx, cli.Attach)
		}))
	}
	os.Exit(runWith(cli.Submit.ServerFlags, func(ctx context.Context, e *env) int {
		return e.submit(ctx, cli.Submit)
	}))
}

// env is everything a command needs once configuration has been resolved.
type env struct {
	flags     ServerFlags
	cfg       *config.ServerConfig
	settings  config.Settings
	transport httpclient.Transport
	logger    *zap.Logger
	stdout    io.Writer
	lookupEnv func(string) (string, bool)
}

func runWith(flags ServerFlags, run func(context.Context, *env) int) int {
	logger, err := newLogger(flags.Verbose, flags.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}

	ctx := context.Background()
	e, err := setup(ctx, flags, logger, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}
	defer e.cfg.Destroy()
	return run(ctx, e)
}

// setup loads the settings file, resolves credentials, applies command line
// overrides and expands a discovery URL. The returned env owns cfg.
func setup(ctx context.Context, flags ServerFlags, logger *zap.Logger, resolver *credential.Resolver) (*env, error) {
	settings, err := config.LoadFile(flags.Config)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		logger.Info("configuration file not found", zap.String("path", flags.Config))
	}
	if resolver == nil {
		resolver = credential.NewResolver(credential.Options{Logger: logger})
	}

	cfg := config.NewServerConfig()
	fail := func(err error) (*env, error) {
		cfg.Destroy()
		return nil, err
	}
	if err := resolver.Configure(ctx, cfg, settings); err != nil {
		return fail(err)
	}

	if flags.URL != "" {
		cfg.URL = flags.URL
	}
	if flags.Insecure {
		cfg.SSLVerify = false
	}
	if flags.Auth != "" {
		if err := resolver.SetClientAuth(ctx, cfg, flags.Auth); err != nil {
			return fail(err)
		}
	}
	if len(flags.AuthItems) > 0 {
		cfg.Prefs.AuthItems = flags.AuthItems
	}
	if flags.Proxy != "" {
		cfg.Proxy = flags.Proxy
	}

	if cfg.URL == "" {
		return fail(config.Errorf("You need to specify server URL"))
	}

	discoveryTimeout := time.Duration(0)
	if raw, ok := settings.Lookup("DiscoveryTimeout"); ok {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fail(config.Errorf("invalid DiscoveryTimeout '%s': %v", raw, err))
		}
		discoveryTimeout = parsed
	}
	cfg.URL, err = discover.New(discover.Options{Timeout: discoveryTimeout, Logger: logger}).Expand(ctx, cfg.URL)
	if err != nil {
		return fail(err)
	}

	return &env{
		flags:     flags,
		cfg:       cfg,
		settings:  settings,
		transport: httpclient.New(httpclient.Options{Timeout: flags.Timeout, Proxy: cfg.Proxy, Logger: logger}),
		logger:    logger,
		stdout:    os.Stdout,
		lookupEnv: os.LookupEnv,
	}, nil
}

func (e *env) render(outcomes []model.Outcome) error {
	var (
		rendered string
		err      error
	)
	if e.flags.Output == "json" {
		rendered, err = output.RenderJSON(outcomes)
	} else {
		rendered = output.RenderPretty(outcomes)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, rendered)
	return nil
}

// finish renders outcomes and maps the last one to an exit code.
func (e *env) finish(outcomes []model.Outcome) int {
	if err := e.render(outcomes); err != nil {
		e.logger.Error("rendering failed", zap.Error(err))
		return exitFailure
	}
	if len(outcomes) == 0 {
		return exitOK
	}
	last := outcomes[len(outcomes)-1].Diagnosis.Classification
	switch {
	case last == string(analyze.OutcomeKnown):
		return exitStopEvent
	case analyze.Succeeded(analyze.OutcomeKind(last)):
		return exitOK
	}
	return exitFailure
}

func newLogger(verbose bool, debug bool) (*zap.Logger, error) {
	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}
