package main

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	args := os.Args[1:]

	// Handle help flag first
	if len(args) > 0 {
		switch args[0] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	cmd := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "run":
		if err := run(context.Background(), args, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	case "doctor":
		if err := runDoctor(configPath(args), os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "doctor: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("agentic %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'agentic --help' for usage information.\n", cmd)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`agentic - in-memory agent registry and task orchestrator

USAGE:
    agentic [COMMAND] [FLAGS]

COMMANDS:
    run         Seed the registry from config, apply assignments, print agents
    doctor      Run health checks on your config
    version     Print the version
    help        Show this help message

    (no command) - same as run

FLAGS:
    -h, --help         Show this help message
    --config PATH      Config file path (default: ./agentic.yaml)
    --watch            (run) Keep running and reload config on change

CONFIGURATION:
    Config file: ./agentic.yaml, or AGENTIC_CONFIG
    Environment: AGENTIC_* variables override config

EXAMPLES:
    agentic                               # Run with agentic.yaml
    agentic run --config team.yaml        # Run with a custom config
    agentic run --watch                   # Follow config changes
    agentic doctor                        # Check config health`)
}

// configPath returns the --config value from args, then AGENTIC_CONFIG,
// then ./agentic.yaml.
func configPath(args []string) string {
	for i, arg := range args {
		if (arg == "--config" || arg == "-config") && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(arg, "--config="); ok {
			return v
		}
		if v, ok := strings.CutPrefix(arg, "-config="); ok {
			return v
		}
	}
	return defaultConfigPath()
}

func defaultConfigPath() string {
	if p := os.Getenv("AGENTIC_CONFIG"); p != "" {
		return p
	}
	return "agentic.yaml"
}
