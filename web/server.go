// Package web serves the dashboard surface: a JSON state endpoint, a control
// endpoint feeding the shared command queue, and a websocket push channel.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradeloop/engine"
)

// Server exposes the read-only projection and the control queue over HTTP.
// It never touches live engine state.
type Server struct {
	addr string
	log  *zap.Logger
	eng  *engine.Engine
	hub  *Hub

	httpSrv *http.Server
}

func NewServer(addr string, eng *engine.Engine, log *zap.Logger) *Server {
	s := &Server{
		addr: addr,
		log:  log,
		eng:  eng,
		hub:  NewHub(log),
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/control", s.handleControl).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.hub.ServeWS)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully and
// pushes projections to websocket clients on the given interval.
func (s *Server) Run(ctx context.Context, pushInterval time.Duration) error {
	go s.pushLoop(ctx, pushInterval)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", zap.String("addr", s.addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) pushLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			proj := s.eng.Projection()
			if proj == nil || s.hub.ClientCount() == 0 {
				continue
			}
			frame, err := json.Marshal(proj)
			if err != nil {
				s.log.Error("projection marshal failed", zap.Error(err))
				continue
			}
			s.hub.Broadcast(frame)
		}
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	proj := s.eng.Projection()
	if proj == nil {
		writeError(w, http.StatusServiceUnavailable, "state not ready")
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

// handleControl accepts one command per request. The payload is the same
// Command shape the terminal parser produces, so both surfaces go through
// identical validation and the single queue.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var cmd engine.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	cmd.Source = engine.SourceWeb
	cmd.ReceivedAt = time.Now()

	if err := s.eng.Enqueue(cmd); err != nil {
		switch {
		case errors.Is(err, engine.ErrMalformedCommand):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, engine.ErrQueueFull):
			writeError(w, http.StatusTooManyRequests, "command queue full, retry shortly")
		case errors.Is(err, engine.ErrQueueClosed):
			writeError(w, http.StatusServiceUnavailable, "runtime shutting down")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.log.Info("control command accepted",
		zap.String("kind", string(cmd.Kind)),
		zap.String("symbol", cmd.Symbol))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.eng.Degraded() {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
