package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/chimerakang/standup-go/audit"
	"github.com/chimerakang/standup-go/config"
	"github.com/chimerakang/standup-go/metrics"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	okFmt   = color.New(color.FgGreen).SprintFunc()
	infoFmt = color.New(color.FgYellow).SprintFunc()
	dimFmt  = color.New(color.Faint).SprintFunc()
	errFmt  = color.New(color.FgRed, color.Bold).SprintFunc()
	headFmt = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// app holds state shared by every command of one invocation.
type app struct {
	configPath  string
	logLevel    string
	noColor     bool
	auditLog    bool
	metricsFile string

	cfg      config.Config
	logger   *slog.Logger
	audit    *audit.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "standup",
		Short: "Standup report client",
		Long: `standup resolves a dashboard credential, generates a standup report for an
organization and date range, and prints it.

Settings are read from ./standup.yaml (or --config) and STANDUP_* environment
variables.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./standup.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().BoolVar(&a.auditLog, "audit", false, "write audit events as JSON lines to stderr")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")

	root.AddCommand(
		newReportCmd(a),
		newWhoamiCmd(a),
		newTokenCmd(a),
		newCacheCmd(a),
		newActivityCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.noColor {
		color.NoColor = true
	}

	level := a.logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))

	if a.auditLog {
		a.audit = audit.New(64, audit.WithWriter(cmd.ErrOrStderr()))
	}
	if a.metricsFile != "" {
		a.registry = prometheus.NewRegistry()
		a.metrics = metrics.New(a.registry)
	}
	return nil
}

func (a *app) teardown() error {
	if err := a.audit.Close(); err != nil {
		return err
	}
	if a.registry != nil {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
