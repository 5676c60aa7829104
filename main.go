package main

import (
	"flag"
	"fmt"
	"os"

	"SingularityDashboard/internal/server"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := server.StartApp(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error running server: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags builds the app config. Unset flags leave the matching override
// nil so the config file value wins.
func parseFlags(args []string) (server.AppConfig, error) {
	cfg := server.DefaultAppConfig()

	fs := flag.NewFlagSet("techtree-server", flag.ContinueOnError)
	configPath := fs.String("config", cfg.ConfigPath, "path to server YAML config (env "+server.ConfigEnvVar+")")
	addr := fs.String("addr", "", "override address to listen on (e.g., 127.0.0.1:8080)")
	tick := fs.Duration("tick", 0, "override simulation tick interval")
	push := fs.Duration("push", 0, "override state push interval")
	scenarioDir := fs.String("scenario-dir", "", "override directory of extra scenario files")
	defaultScenario := fs.String("scenario", "", "override default scenario id")
	cacheSize := fs.Int("cache-size", 0, "override validation cache size")
	logLevel := fs.String("log-level", "", "override log level (debug, info, warn, error)")
	origins := fs.String("origins", "", "override comma-separated allowed websocket origins")
	history := fs.Int("history", -1, "override rate samples sent per state push (0 sends none)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.ConfigPath = *configPath

	var overrides server.Overrides

	if *addr != "" {
		val := *addr
		overrides.Addr = &val
	}
	if *tick > 0 {
		val := *tick
		overrides.TickInterval = &val
	}
	if *push > 0 {
		val := *push
		overrides.PushInterval = &val
	}
	if *scenarioDir != "" {
		val := *scenarioDir
		overrides.ScenarioDir = &val
	}
	if *defaultScenario != "" {
		val := *defaultScenario
		overrides.DefaultScenario = &val
	}
	if *cacheSize > 0 {
		val := *cacheSize
		overrides.ValidationCacheSize = &val
	}
	if *logLevel != "" {
		val := *logLevel
		overrides.LogLevel = &val
	}
	if *origins != "" {
		overrides.AllowedOrigins = server.ParseOrigins(*origins)
	}
	if *history >= 0 {
		val := *history
		overrides.HistoryWindow = &val
	}

	cfg.Overrides = overrides
	return cfg, nil
}
