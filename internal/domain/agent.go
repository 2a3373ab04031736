package domain

import (
	"slices"
	"strings"
	"time"
)

// DefaultAgentStatus is the lifecycle label given to newly created profiles.
const DefaultAgentStatus = "idle"

// Profile field bounds.
const (
	IdentifierMinLen  = 3
	IdentifierMaxLen  = 50
	DisplayNameMinLen = 3
	DisplayNameMaxLen = 100
	DescriptionMaxLen = 250
)

// AgentProfile describes a participant tracked by the registry.
// Profiles are values: updates produce a new profile through WithStatus or
// WithSkill, and the caller stores the result.
type AgentProfile struct {
	Identifier  string   `json:"identifier"            yaml:"identifier"`
	DisplayName string   `json:"display_name"          yaml:"display_name"`
	Skills      []string `json:"skills"                yaml:"skills,omitempty"`
	Status      string   `json:"status"                yaml:"status,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// NewAgentProfile returns a profile with the default status and no skills.
// Field bounds are not checked here; see adapter/profile for validation.
func NewAgentProfile(identifier, displayName string) AgentProfile {
	return AgentProfile{
		Identifier:  identifier,
		DisplayName: displayName,
		Skills:      []string{},
		Status:      DefaultAgentStatus,
	}
}

// Normalize returns a copy with status lower-cased, defaulting to idle when empty.
func (p AgentProfile) Normalize() AgentProfile {
	out := p.Clone()
	out.Status = normalizeStatus(p.Status)
	return out
}

// WithStatus returns a copy of p carrying the lower-cased status.
func (p AgentProfile) WithStatus(status string) AgentProfile {
	out := p.Clone()
	out.Status = strings.ToLower(status)
	return out
}

// WithSkill returns a copy of p with skill appended. When p already has the
// skill under case-insensitive comparison, p is returned unchanged.
func (p AgentProfile) WithSkill(skill string) AgentProfile {
	if p.HasSkill(skill) {
		return p
	}
	out := p.Clone()
	out.Skills = append(out.Skills, skill)
	return out
}

// WithDescription returns a copy of p carrying description.
func (p AgentProfile) WithDescription(description string) AgentProfile {
	out := p.Clone()
	out.Description = description
	return out
}

// HasSkill reports whether p lists skill, ignoring case.
func (p AgentProfile) HasSkill(skill string) bool {
	return slices.ContainsFunc(p.Skills, func(s string) bool {
		return strings.EqualFold(s, skill)
	})
}

// Clone returns a deep copy of p. The skills slice is never shared.
func (p AgentProfile) Clone() AgentProfile {
	out := p
	out.Skills = slices.Clone(p.Skills)
	return out
}

func normalizeStatus(s string) string {
	if s == "" {
		return DefaultAgentStatus
	}
	return strings.ToLower(s)
}

// Assignment is the active task held by one agent.
type Assignment struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agent_id"`
	Task       string    `json:"task"`
	AssignedAt time.Time `json:"assigned_at"`
}
