package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"workq/internal/api"
	"workq/internal/config"
	"workq/internal/logging"
	"workq/internal/queue"
)

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	queueSvc *api.QueueService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Daemon.APIBind)
	if bind == "" {
		return nil, nil
	}

	mux := http.NewServeMux()
	srv := &apiServer{
		bind:     bind,
		logger:   logger,
		daemon:   d,
		queueSvc: d.service,
	}

	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("GET /api/queues", srv.handleQueues)
	mux.HandleFunc("POST /api/queues/{name}/put", srv.handlePut)
	mux.HandleFunc("POST /api/queues/{name}/claim", srv.handleClaim)
	mux.HandleFunc("POST /api/queues/{name}/ack", srv.handleAck)
	mux.HandleFunc("POST /api/queues/{name}/abandon", srv.handleAbandon)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleQueues(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queueSvc.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if stats == nil {
		stats = []api.QueueStats{}
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *apiServer) handlePut(w http.ResponseWriter, r *http.Request) {
	var req api.PutRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.queueSvc.Put(r.Context(), r.PathValue("name"), req)
	if err != nil {
		s.writeQueueError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req api.ClaimRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.queueSvc.Claim(r.Context(), r.PathValue("name"), req)
	if err != nil {
		s.writeQueueError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleAck(w http.ResponseWriter, r *http.Request) {
	var req api.AckRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.queueSvc.Acknowledge(r.Context(), r.PathValue("name"), req)
	if err != nil {
		s.writeQueueError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleAbandon(w http.ResponseWriter, r *http.Request) {
	var req api.AbandonRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.queueSvc.Abandon(r.Context(), r.PathValue("name"), req)
	if err != nil {
		s.writeQueueError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *apiServer) writeQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrBadQueueName),
		errors.Is(err, queue.ErrNoPayloads),
		errors.Is(err, queue.ErrBadLimit):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
