package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradeloop/broker"
	"github.com/rustyeddy/tradeloop/config"
	"github.com/rustyeddy/tradeloop/engine"
	"github.com/rustyeddy/tradeloop/journal"
	"github.com/rustyeddy/tradeloop/market"
	"github.com/rustyeddy/tradeloop/store"
	"github.com/rustyeddy/tradeloop/strategy"
	"github.com/rustyeddy/tradeloop/term"
	"github.com/rustyeddy/tradeloop/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a live trading session",
	Long: `Start the trading control loop with the terminal dashboard and,
if enabled, the web dashboard.

Without a config file the session runs in paper mode with defaults.

Examples:
  tradeloop run
  tradeloop run -f session.yaml
  tradeloop run --broker groww --mode live`,
	RunE: runRun,
}

var (
	runConfigPath string
	runBrokerKind string
	runMode       string
	runHeadless   bool
	runVerbose    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
	runCmd.Flags().StringVar(&runBrokerKind, "broker", "", "broker adapter (paper, none, groww, upstox, zerodha)")
	runCmd.Flags().StringVar(&runMode, "mode", "", "trading mode (paper or live)")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "disable the terminal dashboard")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "debug logging")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runBrokerKind != "" {
		cfg.Broker.Kind = runBrokerKind
	}
	if runMode != "" {
		cfg.Session.Mode = runMode
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := newLogger(runVerbose)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	brk, err := broker.New(cfg.Broker.Kind)
	if err != nil {
		return fmt.Errorf("broker: %w", err)
	}

	var src market.Source
	if q, ok := brk.(market.Quoter); ok {
		src = market.NewQuoterSource(q)
	} else {
		log.Info("broker has no quote feed, using simulated prices")
		src = market.NewSimSource()
	}

	strat := strategy.Get(cfg.Session.Strategy)
	if strat == nil {
		return fmt.Errorf("unknown strategy %q (have: %v)", cfg.Session.Strategy, strategy.Names())
	}
	strat.Reset()

	jrnl, err := journal.NewSQLite(cfg.Persist.JournalFile)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jrnl.Close()

	eng, err := engine.New(engine.Options{
		Config:    cfg,
		Logger:    log,
		Broker:    brk,
		Source:    src,
		Strategy:  strat,
		Journal:   jrnl,
		Snapshots: store.New(cfg.Persist.SnapshotFile),
	})
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Web.Enabled {
		srv := web.NewServer(cfg.Web.Addr, eng, log.Named("web"))
		go func() {
			if err := srv.Run(ctx, cfg.RefreshInterval()); err != nil {
				log.Error("web server stopped", zap.Error(err))
			}
		}()
	}

	if !runHeadless {
		ui := term.NewUI(eng, log.Named("term"), os.Stdin, os.Stdout, stop)
		go ui.Run(ctx, cfg.RefreshInterval())
	}

	log.Info("session starting",
		zap.String("mode", cfg.Session.Mode),
		zap.String("broker", brk.Name()),
		zap.String("strategy", strat.Name()),
		zap.Strings("watchlist", cfg.Session.Watchlist),
	)
	return eng.Run(ctx)
}

func loadConfig() (*config.Config, error) {
	if runConfigPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	// The terminal dashboard owns stdout.
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
