package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ctwarden/ctwarden/internal/config"
	"github.com/ctwarden/ctwarden/internal/logging"
	"github.com/ctwarden/ctwarden/internal/orchestrator"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "start":
		os.Exit(runStart(os.Args[2:]))
	case "version":
		fmt.Println("ctwarden " + version)
		os.Exit(0)
	case "-h", "--help", "help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ctwarden start [--config PATH] [--log-level LEVEL]")
	fmt.Fprintln(os.Stderr, "       ctwarden version")
}

// runStart loads config, builds the orchestrator, and runs it to
// completion. Exit codes follow spec.md §6: 0 clean, 1 config error,
// 1 forced shutdown (the orchestrator itself calls os.Exit(1) on a
// second signal before this function would return), 130 interrupted
// (the OS default disposition for SIGINT delivered before the signal
// handler is installed).
func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the YAML config file (env CTWARDEN_CONFIG)")
	logLevel := fs.String("log-level", "", "override logging.level (DEBUG, INFO, WARN, ERROR)")
	_ = fs.Parse(args)

	path := config.ResolveConfigPath(*configPath)
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	// console_colors selects a human-readable text handler for local runs;
	// its absence selects structured JSON, the posture operators want once
	// logs are shipped to an aggregator.
	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       !cfg.Logging.ConsoleColors,
		StructuredFormat: "json",
	})
	logger.Info("ctwarden starting",
		"version", version,
		"certstream_url", cfg.Certstream.URL,
		"database_path", cfg.Database.Path,
		"api_enabled", cfg.API.Enabled,
		"metrics_enabled", cfg.Metrics.Enabled,
	)

	o, err := orchestrator.New(cfg, logger)
	if err != nil {
		logger.Error("orchestrator construction failed", "error", err)
		return 1
	}

	if err := o.Run(context.Background()); err != nil {
		logger.Error("ctwarden exited with error", "error", err)
		return 1
	}

	logger.Info("ctwarden stopped cleanly")
	return 0
}
