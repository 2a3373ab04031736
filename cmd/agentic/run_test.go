package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentic/internal/domain"
	"agentic/internal/infra/config"
	"agentic/internal/usecase/multiagent"
)

const teamConfig = `
environment: testing
logger:
  level: error
registry:
  capacity: 5
agents:
  instances:
    - identifier: agent-42
      display_name: Agent 42
      skills: [philosophy, Philosophy, math]
      status: BUSY
    - identifier: agent-7
      display_name: Agent Seven
  assignments:
    - agent_id: agent-42
      task: Answer life questions
`

func TestRunPrintsAgentTable(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "agentic.yaml", teamConfig)

	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", path}, &buf))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.True(t, strings.HasPrefix(lines[0], "IDENTIFIER"))
	assert.Contains(t, lines[1], "agent-42")
	assert.Contains(t, lines[1], "busy")
	assert.Contains(t, lines[1], "philosophy, math")
	assert.Contains(t, lines[1], "Answer life questions")
	assert.Contains(t, lines[2], "agent-7")
	assert.Contains(t, lines[2], "idle")
	assert.Contains(t, out, "2/5 agents, 1 active task(s)")
}

func TestRunMissingConfigUsesDefaults(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "absent.yaml")
	require.NoError(t, run(context.Background(), []string{"--config=" + path}, &buf))
	assert.Contains(t, buf.String(), "No agents registered (capacity 100)")
}

func TestRunInvalidProfile(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "agentic.yaml", `
logger:
  level: critical
agents:
  instances:
    - identifier: ab
      display_name: Too Short
`)
	err := run(context.Background(), []string{"-config", path}, &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrInvalidProfile)
}

func TestRunInvalidConfig(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "agentic.yaml", "registry:\n  capacity: 5000\n")
	err := run(context.Background(), []string{"-config", path}, &bytes.Buffer{})

	assert.ErrorIs(t, err, domain.ErrConfigLoad)
	assert.Equal(t, domain.CodeConfigLoad, domain.ErrorCodeOf(err))
	var ve *config.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestRunBadFlag(t *testing.T) {
	err := run(context.Background(), []string{"-nope"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "flags")
}

func TestSeedRespectsCapacity(t *testing.T) {
	cfg := config.Defaults()
	cfg.Agents.Instances = []config.AgentInstanceConfig{
		{Identifier: "agent-1", DisplayName: "Agent One"},
		{Identifier: "agent-2", DisplayName: "Agent Two"},
	}

	_, err := seed(context.Background(), cfg, multiagent.StaticCapacity(1), nil, nil)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Contains(t, err.Error(), "register agent-2")
}

func TestSeedUnknownAssignment(t *testing.T) {
	cfg := config.Defaults()
	cfg.Agents.Instances = []config.AgentInstanceConfig{{Identifier: "agent-1", DisplayName: "Agent One"}}
	cfg.Agents.Assignments = []config.AssignmentConfig{{AgentID: "ghost", Task: "haunt"}}

	_, err := seed(context.Background(), cfg, cfg, nil, nil)
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
}

func TestConfigPath(t *testing.T) {
	t.Setenv("AGENTIC_CONFIG", "")
	assert.Equal(t, "agentic.yaml", configPath(nil))
	assert.Equal(t, "a.yaml", configPath([]string{"--config", "a.yaml"}))
	assert.Equal(t, "b.yaml", configPath([]string{"--config=b.yaml"}))
	assert.Equal(t, "c.yaml", configPath([]string{"-config", "c.yaml"}))

	t.Setenv("AGENTIC_CONFIG", "/etc/agentic.yaml")
	assert.Equal(t, "/etc/agentic.yaml", configPath(nil))
}
