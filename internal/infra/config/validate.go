package config

import (
	"fmt"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// listing every problem found, or nil.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateEnvironment(cfg, ve)
	validateLogger(cfg, ve)
	validateRegistry(cfg, ve)
	validateTracer(cfg, ve)
	validateAgents(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

var validEnvironments = map[string]bool{
	EnvDevelopment: true,
	EnvTesting:     true,
	EnvProduction:  true,
}

func validateEnvironment(cfg *Config, ve *ValidationError) {
	if !validEnvironments[cfg.Environment] {
		ve.Add("environment %q is invalid (want: development, testing, production)", cfg.Environment)
	}
}

var validLogLevels = map[string]bool{
	"DEBUG":    true,
	"INFO":     true,
	"WARNING":  true,
	"ERROR":    true,
	"CRITICAL": true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[cfg.Logger.Level] {
		ve.Add("logger.level %q is invalid (want: DEBUG, INFO, WARNING, ERROR, CRITICAL)", cfg.Logger.Level)
	}
	if !validLogFormats[cfg.Logger.Format] {
		ve.Add("logger.format %q is invalid (want: text, json)", cfg.Logger.Format)
	}
	if cfg.Logger.Output == "" {
		ve.Add("logger.output must not be empty")
	}
}

func validateRegistry(cfg *Config, ve *ValidationError) {
	c := cfg.Registry.Capacity
	if c < MinRegistryCapacity || c > MaxRegistryCapacity {
		ve.Add("registry.capacity must be between %d and %d (got %d)", MinRegistryCapacity, MaxRegistryCapacity, c)
	}
}

var validExporters = map[string]bool{
	"noop":   true,
	"stdout": true,
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	if !validExporters[cfg.Tracer.Exporter] {
		ve.Add("tracer.exporter %q is invalid (want: noop, stdout)", cfg.Tracer.Exporter)
	}
}

func validateAgents(cfg *Config, ve *ValidationError) {
	seen := make(map[string]bool)
	for i, inst := range cfg.Agents.Instances {
		if inst.Identifier == "" {
			ve.Add("agents.instances[%d].identifier must not be empty", i)
			continue
		}
		if seen[inst.Identifier] {
			ve.Add("agents.instances[%d]: duplicate agent identifier %q", i, inst.Identifier)
		}
		seen[inst.Identifier] = true
		if inst.DisplayName == "" {
			ve.Add("agents.instances[%d] (%s): display_name must not be empty", i, inst.Identifier)
		}
	}

	if n := len(seen); n > cfg.Registry.Capacity && cfg.Registry.Capacity >= MinRegistryCapacity {
		ve.Add("agents.instances: %d agents exceed registry.capacity %d", n, cfg.Registry.Capacity)
	}

	for i, a := range cfg.Agents.Assignments {
		if a.AgentID == "" {
			ve.Add("agents.assignments[%d].agent_id must not be empty", i)
		} else if !seen[a.AgentID] {
			ve.Add("agents.assignments[%d].agent_id %q does not match any configured instance", i, a.AgentID)
		}
		if strings.TrimSpace(a.Task) == "" {
			ve.Add("agents.assignments[%d].task must not be empty", i)
		}
	}
}
