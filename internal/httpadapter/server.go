// Package httpadapter wires the Assigner behind a single HTTP route,
// the way the teacher's sink.go/resolved_table.go wire their own
// net/http handlers, but generalized to chi's router and a logrus
// request-logging middleware instead of stdlib's bare log.Printf.
package httpadapter

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/7krasov/process-dispatcher/internal/stopper"
	"github.com/7krasov/process-dispatcher/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Assigner is the subset of dispatch.Assigner the server depends on.
type Assigner interface {
	AssignProcess(ctx *stopper.Context, supervisorID uuid.UUID) (types.AssignedProcess, bool, error)
}

// Server is the HttpAdapter (C6): one POST route, graceful shutdown
// tied to the stopper.
type Server struct {
	httpServer *http.Server
}

type messageResponse struct {
	Message string `json:"message"`
}

// New builds a Server listening on addr (":8081"-style) and dispatches
// its one route into assigner. ctx is wired as the http.Server's
// BaseContext so every in-flight handler observes cancellation the
// same way the Scheduler and Assigner do.
func New(ctx *stopper.Context, addr string, assigner Assigner) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Post("/assign_process/{supervisor_id}", assignProcessHandler(ctx, assigner))

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: r,
			BaseContext: func(net.Listener) context.Context {
				return ctx
			},
		},
	}
}

// requestLogger logs one trace-level line per request, mirroring the
// line-oriented logging style used throughout the rest of the
// dispatcher.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Trace("httpadapter: request handled")
	})
}

func assignProcessHandler(ctx *stopper.Context, assigner Assigner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "supervisor_id")
		supervisorID, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, messageResponse{
				Message: "Invalid supervisor_id: " + err.Error(),
			})
			return
		}

		assigned, found, err := assigner.AssignProcess(ctx, supervisorID)
		if err != nil {
			log.WithError(err).WithField("supervisor_id", supervisorID).
				Warn("httpadapter: assign_process failed")
			writeJSON(w, http.StatusInternalServerError, messageResponse{
				Message: "Failed to assign process: " + err.Error(),
			})
			return
		}
		if !found {
			writeJSON(w, http.StatusNoContent, messageResponse{
				Message: "No available processes to assign",
			})
			return
		}

		writeJSON(w, http.StatusOK, assigned)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("httpadapter: failed to encode response body")
	}
}

// Run starts serving and blocks until the server is shut down, either
// by ctx's cancellation or a fatal listener error.
func (s *Server) Run(ctx *stopper.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.httpServer.Addr).Info("httpadapter: listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Stopping():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		log.WithError(err).WithField("addr", s.httpServer.Addr).
			Warn("httpadapter: failed to bind or serve")
		return err
	}
}
