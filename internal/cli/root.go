package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shayne-snap/traindash/internal/api"
	"github.com/shayne-snap/traindash/internal/config"
	"github.com/shayne-snap/traindash/internal/host"
	"github.com/shayne-snap/traindash/internal/tui"

	"github.com/spf13/cobra"
)

// Version is set by main from ldflags or "dev". Used for --version / -v.
var Version string

var (
	globalConfig    string
	globalServer    string
	globalLogFormat string
	globalJSON      bool
	globalVerbose   bool
	showVersion     bool
)

// Loaded by PersistentPreRunE for every subcommand.
var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:          "traindash",
	Short:        "Terminal client for the model training dashboard",
	SilenceUsage: true,
	Long:         "traindash drives the training dashboard from a terminal. It streams live training logs, downloads models from HuggingFace through the dashboard server and polls until they land, and starts training runs. TUI by default; subcommands for scripting.",
	RunE:         runDefault,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			if Version == "" {
				Version = "dev"
			}
			fmt.Println(Version)
			os.Exit(0)
		}
		c, err := config.Load(globalConfig)
		if err != nil {
			return err
		}
		if globalServer != "" {
			if err := c.SetServer(globalServer); err != nil {
				return err
			}
		}
		if globalLogFormat != "" {
			c.Logging.Format = globalLogFormat
		}
		if globalVerbose {
			c.Logging.Level = "debug"
		}
		cfg = c
		logger = newLogger(c.Logging, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalConfig, "config", "c", "", "Config file (default: user config dir/traindash/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&globalServer, "server", "s", "", "Dashboard server URL (overrides config and "+config.EnvServer+")")
	rootCmd.PersistentFlags().StringVar(&globalLogFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&globalJSON, "json", false, "Output results as JSON")
	rootCmd.PersistentFlags().BoolVar(&globalVerbose, "verbose", false, "Debug logging")
	rootCmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Print version and exit")

	rootCmd.AddCommand(logsCmd, downloadCmd, statusCmd, trainCmd, modelsCmd, systemCmd)
}

// Execute runs the root command. Returns error for exit code handling.
func Execute() error {
	return rootCmd.Execute()
}

func newClient() *api.Client {
	return api.New(cfg.Server.BaseURL, cfg.Server.RequestTimeout())
}

func runDefault(cmd *cobra.Command, args []string) error {
	tuiLogger, closeLog := newFileLogger(cfg.Logging)
	defer closeLog()
	specs, err := host.Detect()
	if err != nil {
		tuiLogger.Warn("host detection failed", "err", err)
	}
	tuiLogger.Info("starting TUI", "server", cfg.Server.BaseURL, "config", cfg.Path())
	return tui.Run(tui.Options{
		Config: cfg,
		Client: newClient(),
		Policy: policyFromConfig(cfg.Download),
		Host:   specs,
		Logger: tuiLogger,
	})
}
