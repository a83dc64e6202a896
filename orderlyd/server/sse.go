package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/orderly-agent/orderly/internals/timeouts"
	"github.com/orderly-agent/orderly/orderlyd/core"
)

// HandlerLogs streams the log events of the running (or most recent)
// task as server-sent events. The stream always ends with a literal
// [DONE] data line; comment lines keep idle proxies from cutting the
// connection.
func (s *Server) HandlerLogs(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		RenderJSON(w, r, JsonResponseError(JsonResponseErroCodeInternal, "streaming unsupported", nil), Render.Status(http.StatusInternalServerError))
		return
	}

	events, cancel, err := s.orchestrator.Subscribe(r.URL.Query().Get("task_id"))
	if err != nil {
		if errors.Is(err, core.ErrTaskNotFound) {
			RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeNotFound, "no task to stream", nil), Render.Status(http.StatusNotFound))
			return
		}
		RenderJSON(w, r, JsonResponseError(JsonResponseErroCodeInternal, err.Error(), nil), Render.Status(http.StatusInternalServerError))
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := time.NewTicker(timeouts.StreamKeepAlive)
	defer keepalive.Stop()

	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", event.Text)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
