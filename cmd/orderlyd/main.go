package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orderly-agent/orderly/internals/agent"
	"github.com/orderly-agent/orderly/internals/conf"
	"github.com/orderly-agent/orderly/internals/env"
	"github.com/orderly-agent/orderly/internals/inputd"
	"github.com/orderly-agent/orderly/internals/perception"
	"github.com/orderly-agent/orderly/internals/planner"
	"github.com/orderly-agent/orderly/orderlyd/core"
	"github.com/orderly-agent/orderly/orderlyd/server"
)

func main() {
	config := conf.GetConfig()
	envs := env.Get()

	logger, logCloser := core.InitLogger(config)
	defer logCloser.Close()

	store, err := core.OpenStore(config.Server.DataDir)
	if err != nil {
		logger.Error("failed to open task store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	factory, err := buildRunnerFactory(config, envs, logger)
	if err != nil {
		logger.Error("failed to build agent runner", "error", err)
		os.Exit(1)
	}

	orchestrator := core.NewOrchestrator(store, logger, factory)
	serverInstance := server.New(config, envs, logger, orchestrator)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return serverInstance.Start()
	})
	group.Go(func() error {
		<-ctx.Done()
		serverInstance.Shutdown()
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// buildRunnerFactory wires the three backend adapters once at startup.
// Each submitted task gets a fresh Loop so no planner conversation state
// leaks between tasks.
func buildRunnerFactory(config *conf.Config, envs *env.EnvStruct, logger *slog.Logger) (core.RunnerFactory, error) {
	perceptor, err := perception.New(string(config.Agent.Perception), config.Backends.PerceptionURL)
	if err != nil {
		return nil, fmt.Errorf("perception backend: %w", err)
	}

	executor := inputd.New(config.Backends.InputURL, config.Display.Width, config.Display.Height)

	plannerCfg := planner.Config{
		Endpoint:      config.Backends.PlannerEndpoint,
		Model:         config.Backends.PlannerModel,
		APIKey:        envs.PLANNER_API_KEY,
		DisplayWidth:  config.Display.Width,
		DisplayHeight: config.Display.Height,
		Logger:        logger,
	}

	loopCfg := agent.Config{
		MaxSteps:                    config.Agent.MaxSteps,
		MaxWallTime:                 time.Duration(config.Agent.MaxWallTimeSeconds) * time.Second,
		SettleDelay:                 time.Duration(config.Agent.SettleDelayMillis) * time.Millisecond,
		PerceptionAttempts:          config.Agent.PerceptionAttempts,
		Backoff:                     agent.BackoffConfig{Base: time.Duration(config.Agent.BackoffBaseMillis) * time.Millisecond, Max: time.Duration(config.Agent.BackoffMaxMillis) * time.Millisecond},
		ConsecutiveFailureThreshold: config.Agent.ConsecutiveFailureThreshold,
	}

	return func(sink agent.EventSink) core.TaskRunner {
		// Planner construction is deferred to task start so a missing
		// API key surfaces as a failed task instead of a dead daemon.
		brain, err := planner.New(string(config.Agent.Planner), plannerCfg)
		if err != nil {
			return failedRunner{err: err}
		}
		return agent.NewLoop(perceptor, brain, executor, sink, logger, loopCfg)
	}, nil
}

// failedRunner turns a planner construction error into a terminal task
// outcome.
type failedRunner struct {
	err error
}

func (r failedRunner) Run(ctx context.Context, instruction string) *agent.Outcome {
	now := time.Now().UTC()
	return &agent.Outcome{
		Status:     agent.OutcomeFailed,
		Failure:    agent.TagPlannerFail,
		Reason:     r.err.Error(),
		StartedAt:  now,
		FinishedAt: now,
	}
}
