package server

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/orderly-agent/orderly/internals/conf"
	"github.com/orderly-agent/orderly/internals/env"
	"github.com/orderly-agent/orderly/internals/logbuf"
	"github.com/orderly-agent/orderly/internals/version"
	"github.com/orderly-agent/orderly/orderlyd/core"
	"github.com/orderly-agent/orderly/sdk"
)

type Server struct {
	Config       *conf.Config
	Env          *env.EnvStruct
	Logger       *slog.Logger
	Logbuf       *logbuf.Logger
	orchestrator *core.Orchestrator
	httpServer   *http.Server
}

func New(config *conf.Config, envs *env.EnvStruct, logger *slog.Logger, orchestrator *core.Orchestrator) *Server {
	buffer := logbuf.New(
		slog.String("version", version.Version()),
		slog.Int("port", envs.PORT),
	)
	return &Server{
		Config:       config,
		Env:          envs,
		Logger:       logger,
		Logbuf:       buffer,
		orchestrator: orchestrator,
	}
}

// SafeStart starts the server unless one is already answering on the
// configured port.
func (s *Server) SafeStart() error {
	if sdk.IsRunning(s.Env.BASE_URL) {
		return nil
	}

	go func() {
		s.Logger.Info("starting server", "addr", s.Env.LISTEN_ADDR)
		if err := s.Start(); err != nil {
			log.Fatal("[Orderly] Failed to start server: " + err.Error())
		}
	}()

	if sdk.WaitForStart(s.Env.BASE_URL, s.Logger) {
		return nil
	}
	return errors.New("couldn't start server")
}

func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.Env.LISTEN_ADDR)
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler: s.Router(),
	}
	s.httpServer = server
	err = server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, cancels any running task and waits
// for in-flight handlers to drain.
func (s *Server) Shutdown() {
	s.orchestrator.Stop()
	if s.httpServer == nil {
		s.Logger.Error("shutdown failed", "error", errors.New("server not initialized"))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Logger.Error("shutdown failed", "error", err)
	}
}
