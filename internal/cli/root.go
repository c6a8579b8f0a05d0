// Package cli provides the command-line interface of the trading console.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sniper/internal/config"
	"sniper/internal/engine"
	"sniper/internal/logger"
)

const Version = "0.3.0"

// App holds what every command needs once the configuration is loaded.
type App struct {
	Config *config.Config
	Log    *logger.Logger

	cfgPath  string
	dryRun   bool
	logLevel string
}

// NewRootCmd builds the command tree. Configuration is loaded before any
// subcommand runs.
func NewRootCmd() *cobra.Command {
	app := &App{}

	rootCmd := &cobra.Command{
		Use:   "sniper",
		Short: "Copy-trading order console for Bybit linear perpetuals",
		Long: `sniper places one trade intent on a master account and mirrors it to up to
ten subscriber accounts, each with its own stop loss and take-profit ladder.

When a take profit fills, the stop of that account moves up to the previous
target. Use --dry-run to trade on in-memory paper accounts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.load()
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.cfgPath, "config", "", "config file (default: configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&app.dryRun, "dry-run", false, "trade on in-memory paper accounts")
	rootCmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "override runtime.log.level")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newPlaceCmd(app))
	rootCmd.AddCommand(newCancelAllCmd(app))
	rootCmd.AddCommand(newResetTPsCmd(app))
	rootCmd.AddCommand(newCancelTPsCmd(app))
	rootCmd.AddCommand(newCloseAllCmd(app))
	rootCmd.AddCommand(newAccountsCmd(app))
	rootCmd.AddCommand(newServeCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			NewOutput(cmd).Printf("sniper v%s\n", Version)
		},
	}
}

func (a *App) load() error {
	var opts []config.Option
	if a.dryRun {
		opts = append(opts, config.WithOverride("runtime.dry_run", true))
	}
	if a.logLevel != "" {
		opts = append(opts, config.WithOverride("runtime.log.level", a.logLevel))
	}

	cfg, err := config.Load(a.cfgPath, opts...)
	if err != nil {
		return err
	}
	a.Config = cfg
	a.Log = logger.New(logger.Config{
		Level:      cfg.Runtime.Log.Level,
		Format:     cfg.Runtime.Log.Format,
		Output:     cfg.Runtime.Log.File,
		MaxSize:    cfg.Runtime.Log.MaxSize,
		MaxBackups: cfg.Runtime.Log.MaxBackups,
		MaxAge:     cfg.Runtime.Log.MaxAge,
		Compress:   cfg.Runtime.Log.Compress,
	})
	return nil
}

// withDesk builds and connects the desk, runs fn and closes every account
// afterwards. Accounts that fail to connect are logged; fn still runs.
func (a *App) withDesk(cmd *cobra.Command, fn func(ctx context.Context, desk *engine.Desk) error) error {
	if a.Config == nil {
		return fmt.Errorf("configuration not loaded")
	}
	desk, err := engine.Build(a.Config, a.Log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer func() {
		cancel()
		if err := desk.Close(); err != nil {
			a.Log.WithError(err).Warn("Accounts not closed cleanly.")
		}
	}()

	if err := desk.Start(ctx); err != nil {
		a.Log.WithError(err).Warn("Some accounts are not connected.")
	}
	a.Log.WithComponent("cli").WithField("roster", desk.Describe()).Debug("Desk ready.")

	return fn(ctx, desk)
}
