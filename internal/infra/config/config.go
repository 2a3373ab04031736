package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment names accepted in Config.Environment.
const (
	EnvDevelopment = "development"
	EnvTesting     = "testing"
	EnvProduction  = "production"
)

// Registry capacity bounds.
const (
	DefaultRegistryCapacity = 100
	MinRegistryCapacity     = 1
	MaxRegistryCapacity     = 1000
)

// Config is the top-level application configuration.
type Config struct {
	Environment string         `yaml:"environment"`
	Logger      LoggerConfig   `yaml:"logger"`
	Registry    RegistryConfig `yaml:"registry"`
	Tracer      TracerConfig   `yaml:"tracer"`
	Agents      AgentsConfig   `yaml:"agents"`
	Includes    []string       `yaml:"includes,omitempty"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // DEBUG, INFO, WARNING, ERROR, CRITICAL
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stdout, stderr or a file path
}

// RegistryConfig holds agent registry settings.
type RegistryConfig struct {
	Capacity int `yaml:"capacity"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// AgentsConfig lists agents to seed into the registry at startup and the
// tasks to hand them. Lists accumulate across included files.
type AgentsConfig struct {
	Instances   []AgentInstanceConfig `yaml:"instances,omitempty"`
	Assignments []AssignmentConfig    `yaml:"assignments,omitempty"`
}

// AgentInstanceConfig defines a single agent profile.
type AgentInstanceConfig struct {
	Identifier  string   `yaml:"identifier"`
	DisplayName string   `yaml:"display_name"`
	Skills      []string `yaml:"skills,omitempty"`
	Status      string   `yaml:"status,omitempty"`
	Description string   `yaml:"description,omitempty"`
}

// AssignmentConfig assigns a task to a configured agent at startup.
type AssignmentConfig struct {
	AgentID string `yaml:"agent_id"`
	Task    string `yaml:"task"`
}

// RegistryCapacity returns the configured registry ceiling.
func (c *Config) RegistryCapacity() int {
	return c.Registry.Capacity
}

// Defaults returns a Config with every field at its default value.
func Defaults() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Logger: LoggerConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stderr",
		},
		Registry: RegistryConfig{
			Capacity: DefaultRegistryCapacity,
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads the YAML config at path, merges includes, applies AGENTIC_*
// environment overrides and validates the result. A missing file yields the
// defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return finish(cfg)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	if err := validatePermissions(absPath); err != nil {
		return nil, err
	}

	// First pass: unmarshal to get the includes list.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Includes) > 0 {
		// Included agents come first; the main file's entries are re-added
		// by the second pass.
		cfg.Agents = AgentsConfig{}
		visited := map[string]bool{absPath: true}
		if err := processIncludes(cfg, filepath.Dir(absPath), visited, 0); err != nil {
			return nil, err
		}

		// Second pass: re-apply the main config so it takes precedence over includes.
		if err := overlay(cfg, data); err != nil {
			return nil, fmt.Errorf("parse config (second pass): %w", err)
		}
		cfg.Includes = nil
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	ApplyEnvOverrides(cfg)
	Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlay unmarshals data onto cfg. Scalars are overwritten; agent instances
// and assignments are appended to those already present.
func overlay(cfg *Config, data []byte) error {
	prev := cfg.Agents
	cfg.Agents = AgentsConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg.Agents = prev
		return err
	}
	cfg.Agents.Instances = append(prev.Instances, cfg.Agents.Instances...)
	cfg.Agents.Assignments = append(prev.Assignments, cfg.Agents.Assignments...)
	return nil
}

// ApplyEnvOverrides maps AGENTIC_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENTIC_ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("AGENTIC_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("AGENTIC_LOG_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("AGENTIC_LOG_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("AGENTIC_REGISTRY_CAPACITY"); v != "" {
		// Out-of-range values are left for Validate to report.
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Registry.Capacity = n
		}
	}
	if v := os.Getenv("AGENTIC_TRACER_ENABLED"); v != "" {
		cfg.Tracer.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("AGENTIC_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

// Normalize canonicalises case-insensitive fields: the log level becomes
// upper-case, environment and log format lower-case.
func Normalize(cfg *Config) {
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.Logger.Level = strings.ToUpper(strings.TrimSpace(cfg.Logger.Level))
	cfg.Logger.Format = strings.ToLower(strings.TrimSpace(cfg.Logger.Format))
}

// validatePermissions rejects config files writable by group or others.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable)
	if mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
