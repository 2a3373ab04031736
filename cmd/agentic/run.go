package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"agentic/internal/adapter/profile"
	"agentic/internal/domain"
	"agentic/internal/infra/config"
	"agentic/internal/infra/logger"
	"agentic/internal/infra/tracer"
	"agentic/internal/usecase/eventbus"
	"agentic/internal/usecase/multiagent"
)

type runOptions struct {
	configPath string
	watch      bool
}

func parseRunFlags(args []string) (runOptions, error) {
	var opts runOptions
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.configPath, "config", defaultConfigPath(), "config file path")
	fs.BoolVar(&opts.watch, "watch", false, "keep running and reload config on change")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

// system is the wired registry and orchestrator.
type system struct {
	registry     *multiagent.Registry
	orchestrator *multiagent.Orchestrator
}

func run(ctx context.Context, args []string, out io.Writer) error {
	// 1. Config
	opts, err := parseRunFlags(args)
	if err != nil {
		return fmt.Errorf("flags: %w", err)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfigLoad, err)
	}

	// 2. Logger & Tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()
	log = log.With("environment", cfg.Environment)

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer, tracer.WithEnvironment(cfg.Environment))
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	// 3. Capacity source: static config, or the live watcher.
	var capacity multiagent.CapacityProvider = cfg
	var watcher *config.Watcher
	if opts.watch {
		watcher, err = config.NewWatcher(opts.configPath, log)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrConfigLoad, err)
		}
		defer watcher.Close()
		capacity = watcher
	}

	// 4. Event bus
	bus := eventbus.New(log)
	defer bus.Close()
	bus.SubscribeAll(logEvent(log))

	// 5. Registry, orchestrator and configured agents
	sys, err := seed(ctx, cfg, capacity, bus, log)
	if err != nil {
		logger.Critical(ctx, log, "seeding failed", "error", err, "code", string(domain.ErrorCodeOf(err)))
		return err
	}
	printAgents(out, sys)

	if watcher == nil {
		return nil
	}

	watcher.OnReload(func(c *config.Config) {
		log.Info("registry capacity updated",
			"capacity", c.Registry.Capacity,
			"registered", sys.registry.Len(),
		)
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info("watching config", "path", opts.configPath)
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

// seed builds the registry and orchestrator and loads every configured agent
// and assignment into them.
func seed(ctx context.Context, cfg *config.Config, capacity multiagent.CapacityProvider, bus domain.EventBus, log *slog.Logger) (*system, error) {
	validator, err := profile.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("profile schema: %w", err)
	}
	profiles, err := validator.Build(cfg.Agents.Instances)
	if err != nil {
		return nil, fmt.Errorf("agent profiles: %w", err)
	}

	registry := multiagent.NewRegistry(capacity, bus, log)
	for _, p := range profiles {
		if err := registry.Register(p); err != nil {
			return nil, fmt.Errorf("register %s: %w", p.Identifier, err)
		}
	}

	orchestrator := multiagent.NewOrchestrator(registry, bus, log)
	for _, a := range cfg.Agents.Assignments {
		if err := orchestrator.AssignTask(ctx, a.AgentID, a.Task); err != nil {
			return nil, fmt.Errorf("assign task to %s: %w", a.AgentID, err)
		}
	}

	return &system{registry: registry, orchestrator: orchestrator}, nil
}

func printAgents(out io.Writer, sys *system) {
	agents := sys.registry.List()
	if len(agents) == 0 {
		fmt.Fprintf(out, "No agents registered (capacity %d).\n", sys.registry.Capacity())
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IDENTIFIER\tNAME\tSTATUS\tSKILLS\tACTIVE TASK")
	for _, a := range agents {
		skills := "-"
		if len(a.Skills) > 0 {
			skills = strings.Join(a.Skills, ", ")
		}
		task, ok := sys.orchestrator.ActiveTask(a.Identifier)
		if !ok {
			task = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.Identifier, a.DisplayName, a.Status, skills, task)
	}
	w.Flush()
	fmt.Fprintf(out, "\n%d/%d agents, %d active task(s)\n",
		sys.registry.Len(), sys.registry.Capacity(), len(sys.orchestrator.ActiveAssignments()))
}

func logEvent(log *slog.Logger) domain.EventHandler {
	return func(_ context.Context, e domain.Event) {
		log.Debug("event", "type", string(e.Type), "agent_id", e.AgentID)
	}
}
