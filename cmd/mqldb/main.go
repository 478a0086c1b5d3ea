package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mqldb/internal/config"
	"mqldb/internal/engine"
	"mqldb/internal/logger"
	"mqldb/internal/metrics"
	"mqldb/internal/storage/memstore"
)

var (
	configPath  string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:           "mqldb",
	Short:         "In-memory MQL database console",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run statements interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, err := setup()
		if err != nil {
			return err
		}
		defer eng.Close()
		return runShell(eng, cfg.Shell.History, cmd.OutOrStdout())
	},
}

var execCmd = &cobra.Command{
	Use:   "exec FILE",
	Short: "Run the statements of a script file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := setup()
		if err != nil {
			return err
		}
		defer eng.Close()
		return eng.ExecFile(args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.AddCommand(shellCmd, execCmd)
}

// setup loads the configuration and starts an engine on a fresh
// in-memory store.
func setup() (*engine.DBEngine, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger.Init(logger.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
	})

	addr := cfg.Metrics.Addr
	if metricsAddr != "" {
		addr = metricsAddr
	}
	if addr != "" {
		serveMetrics(addr)
	}

	store := memstore.New(memstore.WithSequenceAlloc(cfg.Engine.SequenceAlloc))
	opts := []engine.Option{engine.WithStatementCache(cfg.Engine.StatementCache)}
	if cfg.Triggers.Async {
		opts = append(opts, engine.WithAsyncTriggers(cfg.Triggers.PoolSize))
	}

	eng := engine.New(store, opts...)
	if err := eng.Start(); err != nil {
		return nil, nil, fmt.Errorf("start engine: %w", err)
	}
	return eng, cfg, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}
