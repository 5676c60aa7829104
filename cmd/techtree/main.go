package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"SingularityDashboard/internal/scenario"
	"SingularityDashboard/internal/tui"
)

func main() {
	scenarioID := flag.String("scenario", "", "scenario id to start with (default: first in catalog)")
	scenarioDir := flag.String("scenario-dir", "", "directory of extra scenario files")
	tick := flag.Duration("tick", 0, "simulation tick interval (default 100ms)")
	logPath := flag.String("log", "", "write logs to this file instead of discarding them")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	// The alternate screen owns the terminal, so logs never go to stderr.
	var out io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Printf("Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "techtree",
	})

	validator, err := scenario.NewValidator(scenario.DefaultCacheSize)
	if err != nil {
		fmt.Printf("Error creating validator: %v\n", err)
		os.Exit(1)
	}
	catalog := scenario.NewCatalog(validator, logger)
	if err := catalog.LoadBuiltin(); err != nil {
		fmt.Printf("Error loading bundled scenarios: %v\n", err)
		os.Exit(1)
	}
	if *scenarioDir != "" {
		if _, err := catalog.LoadDir(*scenarioDir); err != nil {
			fmt.Printf("Error loading scenarios: %v\n", err)
			os.Exit(1)
		}
	}

	err = tui.Run(catalog, tui.Options{
		Scenario:     *scenarioID,
		TickInterval: *tick,
		Logger:       logger,
	})
	if err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
