package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.MiddlewareLogger)
	r.Get("/version", s.HandlerVersion)
	r.Post("/shutdown", s.HandlerShutdown)
	r.Post("/api/task", s.HandlerSubmitTask)
	r.Get("/api/task/{id}", s.HandlerTaskStatus)
	r.Get("/api/logs", s.HandlerLogs)
	r.Get("/api/health", s.HandlerHealth)
	return r
}
