// Command githubapp authenticates as a GitHub App and performs administrative
// calls with installation access tokens.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	githubapp "github.com/OpsMx/githubapp-client"
	"github.com/OpsMx/githubapp-client/internal/config"
	"github.com/OpsMx/githubapp-client/internal/logger"
	"github.com/OpsMx/githubapp-client/internal/metrics"
	"github.com/OpsMx/githubapp-client/internal/transport"
)

var version = "dev"

// app is the state shared by every subcommand, built in PersistentPreRunE.
type app struct {
	envFile     string
	outFormat   string
	metricsFile string
	overrides   config.Config
	permissions []string
	stdout      io.Writer

	cfg     *config.Config
	client  *githubapp.Client
	metrics *metrics.Metrics
	log     *zap.Logger
}

func main() {
	a := &app{}
	root := a.rootCommand()

	err := root.ExecuteContext(context.Background())

	if a.metrics != nil && a.metricsFile != "" {
		if werr := a.metrics.WriteTextfile(a.metricsFile); werr != nil {
			fmt.Fprintf(os.Stderr, "write metrics: %v\n", werr)
		}
	}
	_ = logger.Sync()

	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "githubapp",
		Short:         "Authenticate as a GitHub App and call the REST API with installation tokens",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.stdout = cmd.OutOrStdout()
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", ".env", "path to a .env file (ignored when missing)")
	flags.StringVar(&a.outFormat, "out", "text", "output format: text|json")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")
	flags.StringVar(&a.overrides.AppID, "app-id", "", "GitHub App ID (env DEMO_GITHUBAPP_APPID)")
	flags.Int64Var(&a.overrides.InstallationID, "installation-id", 0, "installation ID (env DEMO_GITHUBAPP_INSTALLATIONID)")
	flags.StringVar(&a.overrides.Org, "org", "", "organization (env DEMO_GITHUB_REPO_OWNER)")
	flags.StringVar(&a.overrides.BaseURL, "api-url", "", "GitHub REST API base URL (env GITHUB_API_URL)")
	flags.StringVar(&a.overrides.LogLevel, "log-level", "", "log level: debug|info|warn|error (env LOG_LEVEL)")

	root.AddCommand(
		a.appCommand(),
		a.installationsCommand(),
		a.tokenCommand(),
		a.createRepoCommand(),
		a.rulesetsCommand(),
		a.orgsCommand(),
		a.enterpriseCommand(),
	)
	return root
}

// setup loads configuration and builds the client. Nothing here touches the network.
func (a *app) setup() error {
	if a.outFormat != "text" && a.outFormat != "json" {
		return fmt.Errorf("config: %w", githubapp.NewClientErrorWithDetails(
			githubapp.ErrCodeConfigurationError, "invalid output format", a.outFormat))
	}

	cfg, err := config.Load(a.envFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.applyOverrides(cfg)
	a.cfg = cfg

	logger.Init(logger.Config{Env: cfg.LogEnv, Level: cfg.LogLevel, ServiceName: "githubapp", Version: version})
	a.log = logger.Named("githubapp")

	if err := cfg.Require(config.FieldAppID, config.FieldPrivateKey); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	a.metrics = metrics.New()
	httpClient := transport.NewHTTPClient(transport.Options{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		Wrap:      a.metrics.InstrumentRoundTripper,
	})

	client, err := githubapp.NewClient(cfg.ClientConfig(httpClient, a.log))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.client = client
	return nil
}

func (a *app) applyOverrides(cfg *config.Config) {
	if a.overrides.AppID != "" {
		cfg.AppID = a.overrides.AppID
	}
	if a.overrides.InstallationID > 0 {
		cfg.InstallationID = a.overrides.InstallationID
	}
	if a.overrides.Org != "" {
		cfg.Org = a.overrides.Org
	}
	if a.overrides.BaseURL != "" {
		cfg.BaseURL = a.overrides.BaseURL
	}
	if a.overrides.LogLevel != "" {
		cfg.LogLevel = a.overrides.LogLevel
	}
}
