// Package profile validates agent profiles against a JSON Schema and builds
// them from configuration.
package profile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"

	"agentic/internal/domain"
	"agentic/internal/infra/config"
)

const subsystem = "profile"

// Schema is the JSON Schema every registered profile must satisfy.
var Schema = fmt.Sprintf(`{
  "type": "object",
  "required": ["identifier", "display_name", "skills", "status"],
  "properties": {
    "identifier":   {"type": "string", "minLength": %d, "maxLength": %d},
    "display_name": {"type": "string", "minLength": %d, "maxLength": %d},
    "skills":       {"type": "array", "items": {"type": "string", "minLength": 1}},
    "status":       {"type": "string", "minLength": 1},
    "description":  {"type": "string", "maxLength": %d}
  }
}`,
	domain.IdentifierMinLen, domain.IdentifierMaxLen,
	domain.DisplayNameMinLen, domain.DisplayNameMaxLen,
	domain.DescriptionMaxLen,
)

// Validator checks profiles against Schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles Schema.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(Schema))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate reports whether p satisfies the profile field bounds. Failures wrap
// domain.ErrInvalidProfile.
func (v *Validator) Validate(p domain.AgentProfile) error {
	if p.Skills == nil {
		p.Skills = []string{}
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return domain.WrapOp("profile.Validate", err)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return domain.WrapOp("profile.Validate", err)
	}

	result := v.schema.Validate(data)
	if !result.IsValid() {
		return domain.NewSubSystemError(subsystem, "profile.Validate", domain.ErrInvalidProfile,
			fmt.Sprintf("agent %q: %s", p.Identifier, result.Error()))
	}
	return nil
}

// FromConfig converts a configured agent instance into a normalized profile.
// Skills are added one at a time so case-insensitive duplicates collapse.
func FromConfig(inst config.AgentInstanceConfig) domain.AgentProfile {
	p := domain.NewAgentProfile(strings.TrimSpace(inst.Identifier), strings.TrimSpace(inst.DisplayName))
	for _, s := range inst.Skills {
		if s = strings.TrimSpace(s); s != "" {
			p = p.WithSkill(s)
		}
	}
	if inst.Status != "" {
		p = p.WithStatus(inst.Status)
	}
	if inst.Description != "" {
		p = p.WithDescription(inst.Description)
	}
	return p.Normalize()
}

// Build converts and validates every configured instance, returning the first
// invalid profile's error.
func (v *Validator) Build(instances []config.AgentInstanceConfig) ([]domain.AgentProfile, error) {
	profiles := make([]domain.AgentProfile, 0, len(instances))
	for _, inst := range instances {
		p := FromConfig(inst)
		if err := v.Validate(p); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
