package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventAgentRegistered    EventType = "agent.registered"
	EventAgentDeregistered  EventType = "agent.deregistered"
	EventAgentStatusChanged EventType = "agent.status_changed"
	EventTaskAssigned       EventType = "task.assigned"
	EventTaskCompleted      EventType = "task.completed"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	AgentID   string          `json:"agent_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// AgentEventPayload is carried by agent.* events.
type AgentEventPayload struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
}

// TaskEventPayload is carried by task.* events.
type TaskEventPayload struct {
	AssignmentID string `json:"assignment_id"`
	AgentID      string `json:"agent_id"`
	Task         string `json:"task"`
	Replaced     string `json:"replaced,omitempty"` // previous task overwritten by a reassignment
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	// Publish sends an event to all matching subscribers. It must not block
	// on handler execution.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}

// NewEvent builds an event stamped with the current time, JSON-encoding payload.
func NewEvent(eventType EventType, agentID string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		AgentID:   agentID,
		Payload:   data,
	}, nil
}
