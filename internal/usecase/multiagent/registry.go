package multiagent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"agentic/internal/domain"
)

const subsystemRegistry = "registry"

// DefaultCapacity is used when a Registry is built without a CapacityProvider.
const DefaultCapacity = 100

// CapacityProvider supplies the registry ceiling. It is consulted on every
// Register call, so a provider backed by live configuration takes effect
// immediately.
type CapacityProvider interface {
	RegistryCapacity() int
}

// StaticCapacity is a fixed CapacityProvider.
type StaticCapacity int

// RegistryCapacity implements CapacityProvider.
func (c StaticCapacity) RegistryCapacity() int { return int(c) }

// Registry is the authoritative store of agent profiles. It enforces
// identifier uniqueness and a capacity ceiling.
type Registry struct {
	mu       sync.RWMutex
	agents   map[string]domain.AgentProfile
	capacity CapacityProvider
	bus      domain.EventBus
	logger   *slog.Logger
}

// NewRegistry creates an empty Registry. bus may be nil.
func NewRegistry(capacity CapacityProvider, bus domain.EventBus, logger *slog.Logger) *Registry {
	if capacity == nil {
		capacity = StaticCapacity(DefaultCapacity)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		agents:   make(map[string]domain.AgentProfile),
		capacity: capacity,
		bus:      bus,
		logger:   logger.With("component", subsystemRegistry),
	}
}

// Register stores profile under its identifier. Capacity is checked before
// uniqueness: a duplicate registered into a full registry reports
// ErrCapacityExceeded.
func (r *Registry) Register(profile domain.AgentProfile) error {
	limit := r.capacity.RegistryCapacity()

	r.mu.Lock()
	if len(r.agents) >= limit {
		r.mu.Unlock()
		return domain.NewSubSystemError(subsystemRegistry, "Registry.Register", domain.ErrCapacityExceeded,
			fmt.Sprintf("cannot register %q; limit is %d", profile.Identifier, limit))
	}
	if _, exists := r.agents[profile.Identifier]; exists {
		r.mu.Unlock()
		return domain.NewSubSystemError(subsystemRegistry, "Registry.Register", domain.ErrAlreadyRegistered,
			fmt.Sprintf("agent %q", profile.Identifier))
	}
	r.agents[profile.Identifier] = profile.Clone()
	r.mu.Unlock()

	r.logger.Info("agent registered", "agent_id", profile.Identifier, "name", profile.DisplayName)
	r.publish(domain.EventAgentRegistered, profile)
	return nil
}

// Get returns the stored profile for identifier, or ErrAgentNotFound.
func (r *Registry) Get(identifier string) (domain.AgentProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.agents[identifier]
	if !ok {
		return domain.AgentProfile{}, domain.NewSubSystemError(subsystemRegistry, "Registry.Get", domain.ErrAgentNotFound,
			fmt.Sprintf("agent %q does not exist in the registry", identifier))
	}
	return profile.Clone(), nil
}

// List returns a snapshot of every stored profile, sorted by identifier.
func (r *Registry) List() []domain.AgentProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profiles := make([]domain.AgentProfile, 0, len(r.agents))
	for _, p := range r.agents {
		profiles = append(profiles, p.Clone())
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Identifier < profiles[j].Identifier
	})
	return profiles
}

// UpdateStatus replaces the status of a stored profile and returns the
// updated value. The status is lower-cased.
func (r *Registry) UpdateStatus(identifier, status string) (domain.AgentProfile, error) {
	r.mu.Lock()
	current, ok := r.agents[identifier]
	if !ok {
		r.mu.Unlock()
		return domain.AgentProfile{}, domain.NewSubSystemError(subsystemRegistry, "Registry.UpdateStatus", domain.ErrAgentNotFound,
			fmt.Sprintf("agent %q does not exist in the registry", identifier))
	}
	updated := current.WithStatus(status)
	r.agents[identifier] = updated
	r.mu.Unlock()

	if current.Status != updated.Status {
		r.logger.Info("agent status changed", "agent_id", identifier, "from", current.Status, "to", updated.Status)
		r.publish(domain.EventAgentStatusChanged, updated)
	}
	return updated.Clone(), nil
}

// Deregister removes and returns the profile for identifier. The boolean is
// false when no such agent was registered; that case is not an error.
func (r *Registry) Deregister(identifier string) (domain.AgentProfile, bool) {
	r.mu.Lock()
	profile, ok := r.agents[identifier]
	if ok {
		delete(r.agents, identifier)
	}
	r.mu.Unlock()

	if !ok {
		return domain.AgentProfile{}, false
	}
	r.logger.Info("agent removed", "agent_id", identifier)
	r.publish(domain.EventAgentDeregistered, profile)
	return profile, true
}

// Len returns the number of stored profiles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Capacity returns the ceiling currently reported by the CapacityProvider.
func (r *Registry) Capacity() int {
	return r.capacity.RegistryCapacity()
}

func (r *Registry) publish(eventType domain.EventType, profile domain.AgentProfile) {
	if r.bus == nil {
		return
	}
	ev, err := domain.NewEvent(eventType, profile.Identifier, domain.AgentEventPayload{
		Identifier:  profile.Identifier,
		DisplayName: profile.DisplayName,
		Status:      profile.Status,
	})
	if err != nil {
		r.logger.Warn("registry: failed to marshal event", "event", string(eventType), "error", err)
		return
	}
	r.bus.Publish(context.Background(), ev)
}
