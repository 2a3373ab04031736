package multiagent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentic/internal/domain"
	"agentic/internal/usecase/eventbus"
)

func testLogger() *slog.Logger { return slog.Default() }

func newTestRegistry(capacity int) *Registry {
	return NewRegistry(StaticCapacity(capacity), nil, testLogger())
}

func makeProfile(id, name string) domain.AgentProfile {
	return domain.NewAgentProfile(id, name)
}

// liveCapacity lets tests change the ceiling between calls.
type liveCapacity struct{ n atomic.Int64 }

func (c *liveCapacity) RegistryCapacity() int { return int(c.n.Load()) }

func TestRegistryRegisterAndGet(t *testing.T) {
	r := newTestRegistry(10)
	p := makeProfile("agent-1", "Agent One").WithSkill("Python").WithDescription("does things")
	require.NoError(t, r.Register(p))

	got, err := r.Get("agent-1")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestRegistryDuplicate(t *testing.T) {
	r := newTestRegistry(10)
	p := makeProfile("agent-dup", "Duplicate Agent")
	require.NoError(t, r.Register(p))

	err := r.Register(p)
	if !errors.Is(err, domain.ErrAlreadyRegistered) {
		t.Errorf("expected ErrAlreadyRegistered, got %v", err)
	}
	assert.Equal(t, domain.CodeAlreadyRegistered, domain.ErrorCodeOf(err))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryCapacityCeiling(t *testing.T) {
	r := newTestRegistry(3)
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Register(makeProfile(fmt.Sprintf("agent-%d", i), "Agent")))
	}

	err := r.Register(makeProfile("agent-new", "Agent New"))
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	assert.Equal(t, 3, r.Len())
}

func TestRegistryCapacityCheckedBeforeUniqueness(t *testing.T) {
	r := newTestRegistry(1)
	p := makeProfile("agent-1", "Agent One")
	require.NoError(t, r.Register(p))

	err := r.Register(p)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.NotErrorIs(t, err, domain.ErrAlreadyRegistered)
}

func TestRegistryCapacityReadOnEveryRegister(t *testing.T) {
	capacity := &liveCapacity{}
	capacity.n.Store(1)
	r := NewRegistry(capacity, nil, testLogger())

	require.NoError(t, r.Register(makeProfile("agent-1", "Agent One")))
	assert.ErrorIs(t, r.Register(makeProfile("agent-2", "Agent Two")), domain.ErrCapacityExceeded)

	capacity.n.Store(2)
	assert.Equal(t, 2, r.Capacity())
	require.NoError(t, r.Register(makeProfile("agent-2", "Agent Two")))
}

func TestRegistryNilCapacityUsesDefault(t *testing.T) {
	r := NewRegistry(nil, nil, nil)
	assert.Equal(t, DefaultCapacity, r.Capacity())
}

func TestRegistryGetNotFound(t *testing.T) {
	r := newTestRegistry(10)
	_, err := r.Get("nonexistent")
	if !errors.Is(err, domain.ErrAgentNotFound) {
		t.Errorf("expected ErrAgentNotFound, got %v", err)
	}
	assert.Contains(t, err.Error(), `"nonexistent"`)
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := newTestRegistry(10)
	require.NoError(t, r.Register(makeProfile("agent-1", "Agent One").WithSkill("Go")))

	got, err := r.Get("agent-1")
	require.NoError(t, err)
	got.Skills[0] = "mutated"

	again, err := r.Get("agent-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, again.Skills)
}

func TestRegistryList(t *testing.T) {
	r := newTestRegistry(10)
	require.NoError(t, r.Register(makeProfile("agent-b", "B Agent")))
	require.NoError(t, r.Register(makeProfile("agent-a", "A Agent")))

	list := r.List()
	require.Len(t, list, 2)
	if list[0].Identifier != "agent-a" || list[1].Identifier != "agent-b" {
		t.Errorf("List order: [%s, %s], want [agent-a, agent-b]", list[0].Identifier, list[1].Identifier)
	}
	// Restartable: a second call yields the same snapshot.
	assert.Equal(t, list, r.List())
}

func TestRegistryUpdateStatus(t *testing.T) {
	r := newTestRegistry(10)
	require.NoError(t, r.Register(makeProfile("agent-1", "Agent One")))

	updated, err := r.UpdateStatus("agent-1", "BUSY")
	require.NoError(t, err)
	assert.Equal(t, "busy", updated.Status)

	got, err := r.Get("agent-1")
	require.NoError(t, err)
	assert.Equal(t, "busy", got.Status)

	again, err := r.UpdateStatus("agent-1", "BUSY")
	require.NoError(t, err)
	assert.Equal(t, updated, again)
}

func TestRegistryUpdateStatusNotFound(t *testing.T) {
	r := newTestRegistry(10)
	_, err := r.UpdateStatus("ghost", "busy")
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
}

func TestRegistryDeregister(t *testing.T) {
	r := newTestRegistry(10)
	require.NoError(t, r.Register(makeProfile("agent-remove", "Agent Remove")))

	removed, ok := r.Deregister("agent-remove")
	require.True(t, ok)
	assert.Equal(t, "agent-remove", removed.Identifier)

	_, err := r.Get("agent-remove")
	if !errors.Is(err, domain.ErrAgentNotFound) {
		t.Errorf("after Deregister, expected ErrAgentNotFound, got %v", err)
	}
}

func TestRegistryDeregisterUnknown(t *testing.T) {
	r := newTestRegistry(10)
	removed, ok := r.Deregister("nonexistent")
	assert.False(t, ok)
	assert.Equal(t, domain.AgentProfile{}, removed)
}

func TestRegistryDeregisterFreesCapacity(t *testing.T) {
	r := newTestRegistry(1)
	require.NoError(t, r.Register(makeProfile("agent-1", "Agent One")))
	_, ok := r.Deregister("agent-1")
	require.True(t, ok)
	require.NoError(t, r.Register(makeProfile("agent-2", "Agent Two")))
}

func TestRegistryLogsRegistration(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	r := NewRegistry(StaticCapacity(5), nil, logger)

	require.NoError(t, r.Register(makeProfile("agent-1", "Agent One")))
	out := buf.String()
	assert.Contains(t, out, "agent registered")
	assert.Contains(t, out, "agent_id=agent-1")
	assert.Contains(t, out, "component=registry")
}

func TestRegistryPublishesEvents(t *testing.T) {
	bus := eventbus.New(testLogger())
	var mu sync.Mutex
	var seen []domain.EventType
	bus.SubscribeAll(func(_ context.Context, e domain.Event) {
		mu.Lock()
		seen = append(seen, e.Type)
		mu.Unlock()
	})

	r := NewRegistry(StaticCapacity(5), bus, testLogger())
	require.NoError(t, r.Register(makeProfile("agent-1", "Agent One")))
	_, err := r.UpdateStatus("agent-1", "Working")
	require.NoError(t, err)
	_, err = r.UpdateStatus("agent-1", "working") // unchanged, no event
	require.NoError(t, err)
	r.Deregister("agent-1")
	bus.Close()

	assert.ElementsMatch(t, []domain.EventType{
		domain.EventAgentRegistered,
		domain.EventAgentStatusChanged,
		domain.EventAgentDeregistered,
	}, seen)
}

func TestRegistryConcurrent(t *testing.T) {
	r := newTestRegistry(25)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = r.Register(makeProfile(id, id))
		}(fmt.Sprintf("agent_%d", i))
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.List()
		}()
	}
	wg.Wait()

	assert.Equal(t, 25, r.Len(), "capacity must hold under concurrent registration")
}
