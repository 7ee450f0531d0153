package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/multitimer/internal/engine"
	"github.com/roach88/multitimer/internal/render"
	"github.com/roach88/multitimer/internal/timer"
)

// maxBodySize bounds request bodies.
const maxBodySize = 16 * 1024

// Server serves the HTTP API for one Engine.
type Server struct {
	eng      *engine.Engine
	hub      *Hub
	logger   *slog.Logger
	mux      *http.ServeMux
	upgrader websocket.Upgrader
}

// New creates a Server. hub must be registered with eng as its Listener and
// Notifier, and must be running.
func New(eng *engine.Engine, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		eng:    eng,
		hub:    hub,
		logger: logger,
		mux:    http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	s.mux.HandleFunc("GET /api/timers", s.handleList)
	s.mux.HandleFunc("POST /api/timers", s.handleCreate)
	s.mux.HandleFunc("DELETE /api/timers", s.handleClear)
	s.mux.HandleFunc("POST /api/timers/{id}/start", s.handleStart)
	s.mux.HandleFunc("POST /api/timers/{id}/pause", s.handlePause)
	s.mux.HandleFunc("DELETE /api/timers/{id}", s.handleDelete)
	s.mux.HandleFunc("POST /api/timers/{id}/alarms/{kind}/ack", s.handleAck)
	s.mux.HandleFunc("GET /api/ws", s.handleWebSocket)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, render.Rows(s.eng.Snapshot()))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, timer.NewValidationError("body", err.Error()))
		return
	}
	if req.DurationMinutes == nil {
		s.writeError(w, timer.NewValidationError("durationMinutes", "is required"))
		return
	}

	secs, err := timer.MinutesToSeconds(*req.DurationMinutes)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := s.eng.Create(r.Context(), req.StudentName, req.ExamName, secs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeRow(w, http.StatusCreated, id)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.ClearAll(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := timer.ID(r.PathValue("id"))
	if err := s.eng.Start(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeRow(w, http.StatusOK, id)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	id := timer.ID(r.PathValue("id"))
	if err := s.eng.Pause(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeRow(w, http.StatusOK, id)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.Delete(r.Context(), timer.ID(r.PathValue("id"))); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	id := timer.ID(r.PathValue("id"))
	kind, err := timer.ParseAlarmKind(r.PathValue("kind"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.eng.Acknowledge(r.Context(), id, kind); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeRow(w, http.StatusOK, id)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		remote: r.RemoteAddr,
	}

	hello, err := json.Marshal(Message{Type: TypeSnapshot, Payload: render.Rows(s.eng.Snapshot())})
	if err == nil {
		c.send <- hello
	}

	go c.writePump()
	go c.readPump()
	s.hub.add(c)
}

// writeRow replies with the current row of id.
func (s *Server) writeRow(w http.ResponseWriter, status int, id timer.ID) {
	for i, t := range s.eng.Snapshot() {
		if t.ID == id {
			s.writeJSON(w, status, render.NewRow(i+1, t))
			return
		}
	}
	// Deleted between the command and the read.
	s.writeError(w, timer.NewNotFoundError(id))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := timer.CodeOf(err)
	switch code {
	case timer.ErrCodeValidation:
		status = http.StatusBadRequest
	case timer.ErrCodeNotFound:
		status = http.StatusNotFound
	default:
		code = "INTERNAL"
		if errors.Is(err, engine.ErrClosed) {
			status = http.StatusServiceUnavailable
			code = "UNAVAILABLE"
		}
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, errorBody{Error: errorDetail{Code: string(code), Message: err.Error()}})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("writing response failed", "error", err)
	}
}
