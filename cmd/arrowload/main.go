package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/connector/base"
	"github.com/ajitpratap0/arrowload/pkg/connector/registry"
	"github.com/ajitpratap0/arrowload/pkg/errors"
	"github.com/ajitpratap0/arrowload/pkg/logger"
	"github.com/ajitpratap0/arrowload/pkg/observability"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		var e *errors.Error
		if errors.As(err, &e) {
			fmt.Fprintf(os.Stderr, "error [%s]: %v\n", e.Type, err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "arrowload",
		Short: "Load Arrow and Parquet files into relational databases",
		Long: `arrowload reads columnar batch streams (Arrow IPC file or stream, Parquet,
Avro, optionally zstd/lz4 compressed, local or on S3/GCS) and loads them into a table
on SQLite, DuckDB, PostgreSQL, MySQL, Snowflake or BigQuery.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "Log format (json, console)")

	root.AddCommand(
		newLoadCmd(),
		newInspectCmd(),
		newListCmd(),
		newHealthCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "arrowload v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available destinations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dests := registry.ListDestinations()
			if asJSON {
				return writeJSON(cmd, dests)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available Destinations:")
			for _, d := range dests {
				fmt.Fprintf(out, "  - %-10s %v %s\n", d.Name, d.Schemes, d.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health DESTINATION",
		Short: "Open a destination and check that it answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd, map[string]string{})
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			dest, err := registry.OpenDestination(ctx, args[0], cfg)
			if err != nil {
				return err
			}
			defer dest.Close(context.WithoutCancel(ctx))

			status := base.CheckHealth(ctx, dest)
			if err := writeJSON(cmd, status); err != nil {
				return err
			}
			if status.Status != "healthy" {
				return errors.New(errors.ErrorTypeConnection, status.Error)
			}
			return nil
		},
	}
}

// loadSettings merges defaults, the --config file, ARROWLOAD_* variables and
// the flags bound in binds, then initializes logging.
func loadSettings(cmd *cobra.Command, binds map[string]string) (*config.BaseConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	v, err := config.NewViper(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "cannot read configuration")
	}

	binds["observability.log_level"] = "log-level"
	binds["observability.log_format"] = "log-format"
	if err := bindFlags(cmd, v, binds); err != nil {
		return nil, err
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}

	// stdout carries the command output
	if err := logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Encoding:    cfg.Observability.LogFormat,
		OutputPaths: []string{"stderr"},
	}); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "cannot initialize logger")
	}
	return cfg, nil
}

func bindFlags(cmd *cobra.Command, v *viper.Viper, binds map[string]string) error {
	for key, name := range binds {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "cannot bind flag").WithDetail("flag", name)
		}
	}
	return nil
}

// startTelemetry serves /metrics and installs the tracer when enabled. The
// returned function stops both.
func startTelemetry(ctx context.Context, cfg *config.BaseConfig) (func(), error) {
	log := logger.Get()
	var stops []func()

	if cfg.Observability.EnableMetrics && cfg.Observability.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{
			Addr:              cfg.Observability.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		log.Info("serving metrics", zap.String("addr", cfg.Observability.MetricsAddr))
		stops = append(stops, func() {
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		})
	}

	if cfg.Observability.EnableTracing {
		shutdown, err := observability.InitTracing(observability.DefaultTracingConfig(version))
		if err != nil {
			for _, stop := range stops {
				stop()
			}
			return nil, err
		}
		stops = append(stops, func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				log.Warn("tracer shutdown failed", zap.Error(err))
			}
		})
	}

	return func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}, nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
