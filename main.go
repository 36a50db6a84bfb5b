package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	_ "github.com/samuelfneumann/rlcode/agent/linear/discrete/qlearning"
	_ "github.com/samuelfneumann/rlcode/agent/nonlinear/discrete/vanillapg"
	"github.com/samuelfneumann/rlcode/device"
	"github.com/samuelfneumann/rlcode/experiment"
	"github.com/samuelfneumann/rlcode/policy"
)

var (
	configFile  string
	logFormat   string
	metricsAddr string
	deviceName  string
)

var rootCmd = &cobra.Command{
	Use:   "rlcode",
	Short: "Train reinforcement learning policies",
	Long: `rlcode trains reinforcement learning policies on classic control
environments.

Each training iteration collects a batch of experience and runs one
learning step of the policy on it. Configuration is read from a YAML
file and may be overridden with RLCODE_* environment variables.`,
	SilenceUsage: true,
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a policy",
	RunE:  runTrain,
}

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Print the device policies are placed on",
	RunE:  runDevice,
}

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List the available policy types",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range policy.Registered() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	trainCmd.Flags().StringVarP(&configFile, "config", "c", "",
		"Configuration file (YAML, JSON, or TOML)")
	trainCmd.Flags().StringVar(&logFormat, "log-format", "console",
		"Log format (console, json)")
	trainCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"Address to serve Prometheus metrics on, e.g. :2112")

	deviceCmd.Flags().StringVar(&deviceName, "device", device.Auto,
		"Device to select (auto, cpu, cuda:N)")

	rootCmd.AddCommand(trainCmd, deviceCmd, policiesCmd)
}

func newLogger(level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	var logger zerolog.Logger
	switch format {
	case "console":
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr,
			TimeFormat: time.RFC3339})
	case "json":
		logger = zerolog.New(os.Stderr)
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", format)
	}
	return logger.Level(lvl).With().Timestamp().Logger(), nil
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := experiment.Load(configFile)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, logFormat)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	trainer, err := experiment.New(cfg, experiment.WithLogger(logger),
		experiment.WithRegisterer(reg))
	if err != nil {
		return err
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", metricsAddr).Msg("serving metrics")
			if err := srv.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(),
				5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("metrics server shutdown failed")
			}
		}()
	}

	if err := trainer.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("shutdown signal received, training stopped")
			return nil
		}
		return err
	}
	return nil
}

func runDevice(cmd *cobra.Command, args []string) error {
	opts, err := device.FromName(deviceName)
	if err != nil {
		return err
	}

	d, err := device.Select(opts...)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), d)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
