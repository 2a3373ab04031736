package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"agentic/internal/adapter/profile"
	"agentic/internal/infra/config"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

// capacityWarnRatio is the seeded share of registry capacity that triggers a warning.
const capacityWarnRatio = 0.8

// runDoctor executes all health checks and writes a report to out.
func runDoctor(cfgPath string, out io.Writer) error {
	// Some checks still run when the config fails to load.
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath)},
		{Name: "Config validation", Fn: checkConfigValid(cfgErr)},
		{Name: "Agent profiles", Fn: checkAgentProfiles},
		{Name: "Registry capacity", Fn: checkCapacityHeadroom},
		{Name: "Log output", Fn: checkLogOutput},
		{Name: "Tracing", Fn: checkTracer},
	}

	fmt.Fprintln(out, "agentic doctor")
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintln(out)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Fprintf(out, "  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(out, "      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("-", 50))
	fmt.Fprintf(out, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return color.New(color.FgGreen).Sprint("[PASS]")
	case StatusWarn:
		return color.New(color.FgYellow).Sprint("[WARN]")
	case StatusFail:
		return color.New(color.FgRed, color.Bold).Sprint("[FAIL]")
	default:
		return "[????]"
	}
}

// checkConfigFile reports whether a config file is present. A missing file
// is only a warning: defaults and AGENTIC_* variables still apply.
func checkConfigFile(cfgPath string) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config file at %s; using defaults", cfgPath),
				Fix:     "Create agentic.yaml or set AGENTIC_CONFIG",
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("found %s", cfgPath),
		}
	}
}

func checkConfigValid(cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr == nil {
			return CheckResult{Status: StatusPass, Message: "config is valid"}
		}
		var ve *config.ValidationError
		if errors.As(cfgErr, &ve) {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("%d problem(s): %s", len(ve.Errors), strings.Join(ve.Errors, "; ")),
				Fix:     "Correct the listed fields in your config",
			}
		}
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("config could not be loaded: %v", cfgErr),
			Fix:     "Check YAML syntax, includes and file permissions (0600 or 0644)",
		}
	}
}

func checkAgentProfiles(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "skipped; config not loaded"}
	}
	if len(cfg.Agents.Instances) == 0 {
		return CheckResult{Status: StatusWarn, Message: "no agents configured under agents.instances"}
	}

	validator, err := profile.NewValidator()
	if err != nil {
		return CheckResult{Status: StatusFail, Message: err.Error()}
	}

	var problems []string
	for _, inst := range cfg.Agents.Instances {
		if err := validator.Validate(profile.FromConfig(inst)); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return CheckResult{
			Status:  StatusFail,
			Message: strings.Join(problems, "; "),
			Fix:     "Identifiers need 3-50 characters, display names 3-100, descriptions at most 250",
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%d agent profile(s) valid", len(cfg.Agents.Instances)),
	}
}

func checkCapacityHeadroom(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "skipped; config not loaded"}
	}
	n, capacity := len(cfg.Agents.Instances), cfg.RegistryCapacity()
	msg := fmt.Sprintf("%d of %d slots used at startup", n, capacity)
	switch {
	case n > capacity:
		return CheckResult{Status: StatusFail, Message: msg, Fix: "Raise registry.capacity"}
	case float64(n) >= float64(capacity)*capacityWarnRatio:
		return CheckResult{Status: StatusWarn, Message: msg, Fix: "Little room left for runtime registrations"}
	default:
		return CheckResult{Status: StatusPass, Message: msg}
	}
}

func checkLogOutput(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "skipped; config not loaded"}
	}
	switch strings.ToLower(cfg.Logger.Output) {
	case "", "stdout", "stderr":
		return CheckResult{Status: StatusPass, Message: fmt.Sprintf("logging %s to %s", cfg.Logger.Level, cfg.Logger.Output)}
	}
	f, err := os.OpenFile(cfg.Logger.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot write %s: %v", cfg.Logger.Output, err),
			Fix:     "Point logger.output at a writable path",
		}
	}
	f.Close()
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("logging %s to %s", cfg.Logger.Level, cfg.Logger.Output)}
}

func checkTracer(cfg *config.Config) CheckResult {
	if cfg == nil || !cfg.Tracer.Enabled {
		return CheckResult{Status: StatusPass, Message: "disabled"}
	}
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("enabled (%s exporter)", cfg.Tracer.Exporter)}
}
