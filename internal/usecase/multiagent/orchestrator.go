package multiagent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"agentic/internal/domain"
	"agentic/internal/infra/tracer"
)

const subsystemOrchestrator = "orchestrator"

// Orchestrator tracks at most one active task per agent. It uses the
// registry only to check that an agent exists; it never creates or
// destroys the registry it is given.
type Orchestrator struct {
	registry *Registry
	bus      domain.EventBus
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	active map[string]domain.Assignment
}

// NewOrchestrator creates an Orchestrator bound to registry. bus may be nil.
func NewOrchestrator(registry *Registry, bus domain.EventBus, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		registry: registry,
		bus:      bus,
		logger:   logger.With("component", subsystemOrchestrator),
		now:      time.Now,
		active:   make(map[string]domain.Assignment),
	}
}

// AssignTask gives agentID the task described by description. An agent that
// already has a task has it replaced.
func (o *Orchestrator) AssignTask(ctx context.Context, agentID, description string) (err error) {
	ctx, span := tracer.StartSpan(ctx, "orchestrator.assign_task",
		trace.WithAttributes(tracer.StringAttr("agent.id", agentID)))
	defer func() {
		if err != nil {
			tracer.RecordError(span, err)
		} else {
			tracer.SetOK(span)
		}
		span.End()
	}()

	if strings.TrimSpace(description) == "" {
		return domain.NewSubSystemError(subsystemOrchestrator, "Orchestrator.AssignTask", domain.ErrInvalidTask,
			"task description must be a non-empty string")
	}

	profile, err := o.registry.Get(agentID)
	if err != nil {
		if errors.Is(err, domain.ErrAgentNotFound) {
			return domain.NewSubSystemError(subsystemOrchestrator, "Orchestrator.AssignTask", err,
				fmt.Sprintf("cannot assign task; agent %q is not registered", agentID))
		}
		return domain.WrapOp("Orchestrator.AssignTask", err)
	}

	now := o.now()
	assignment := domain.Assignment{
		ID:         newAssignmentID(now),
		AgentID:    agentID,
		Task:       description,
		AssignedAt: now,
	}

	o.logger.Info("assigning task",
		"task", description,
		"agent", profile.DisplayName,
		"agent_id", agentID,
		"assignment_id", assignment.ID,
	)

	o.mu.Lock()
	previous, replaced := o.active[agentID]
	o.active[agentID] = assignment
	o.mu.Unlock()

	payload := domain.TaskEventPayload{
		AssignmentID: assignment.ID,
		AgentID:      agentID,
		Task:         description,
	}
	if replaced {
		payload.Replaced = previous.Task
	}
	o.publishEvent(ctx, domain.EventTaskAssigned, agentID, payload)
	return nil
}

// CompleteTask removes and returns the active task for agentID. When the
// agent has no active task it returns ErrNoActiveTask, which also matches
// ErrInvalidTask.
func (o *Orchestrator) CompleteTask(ctx context.Context, agentID string) (task string, err error) {
	ctx, span := tracer.StartSpan(ctx, "orchestrator.complete_task",
		trace.WithAttributes(tracer.StringAttr("agent.id", agentID)))
	defer func() {
		if err != nil {
			tracer.RecordError(span, err)
		} else {
			tracer.SetOK(span)
		}
		span.End()
	}()

	o.mu.Lock()
	assignment, ok := o.active[agentID]
	if ok {
		delete(o.active, agentID)
	}
	o.mu.Unlock()

	if !ok {
		return "", domain.NewSubSystemError(subsystemOrchestrator, "Orchestrator.CompleteTask", domain.ErrNoActiveTask,
			fmt.Sprintf("agent %q does not have an active task", agentID))
	}

	o.logger.Info("task completed",
		"agent_id", agentID,
		"task", assignment.Task,
		"assignment_id", assignment.ID,
		"duration", o.now().Sub(assignment.AssignedAt),
	)
	o.publishEvent(ctx, domain.EventTaskCompleted, agentID, domain.TaskEventPayload{
		AssignmentID: assignment.ID,
		AgentID:      agentID,
		Task:         assignment.Task,
	})
	return assignment.Task, nil
}

// ActiveAssignments returns the descriptions of all active tasks, ordered by
// agent identifier.
func (o *Orchestrator) ActiveAssignments() []string {
	assignments := o.Assignments()
	tasks := make([]string, len(assignments))
	for i, a := range assignments {
		tasks[i] = a.Task
	}
	return tasks
}

// Assignments returns a snapshot of every active assignment, ordered by
// agent identifier.
func (o *Orchestrator) Assignments() []domain.Assignment {
	o.mu.RLock()
	out := make([]domain.Assignment, 0, len(o.active))
	for _, a := range o.active {
		out = append(out, a)
	}
	o.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

// ActiveTask returns the task currently assigned to agentID.
func (o *Orchestrator) ActiveTask(agentID string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	a, ok := o.active[agentID]
	return a.Task, ok
}

func (o *Orchestrator) publishEvent(ctx context.Context, eventType domain.EventType, agentID string, payload domain.TaskEventPayload) {
	if o.bus == nil {
		return
	}
	ev, err := domain.NewEvent(eventType, agentID, payload)
	if err != nil {
		o.logger.Warn("orchestrator: failed to marshal event", "event", string(eventType), "error", err)
		return
	}
	o.bus.Publish(ctx, ev)
}

func newAssignmentID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
