// Package httpapi exposes plan generation, review, publication and
// standalone actions over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexanderramin/remediate/internal/service"
	"github.com/gorilla/mux"
)

// Request headers carrying the caller identity. Authentication happens
// upstream; the API trusts them.
const (
	HeaderTenant = "X-Tenant-ID"
	HeaderActor  = "X-Actor-ID"
)

// Pinger reports database reachability for the health check.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	plans     service.PlanService
	review    service.ReviewService
	publisher service.PublishService
	actions   service.ActionService
	db        Pinger
	logger    *slog.Logger
	version   string
	started   time.Time
}

type Services struct {
	Plans     service.PlanService
	Review    service.ReviewService
	Publisher service.PublishService
	Actions   service.ActionService
}

func NewServer(svcs Services, db Pinger, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		plans:     svcs.Plans,
		review:    svcs.Review,
		publisher: svcs.Publisher,
		actions:   svcs.Actions,
		db:        db,
		logger:    logger,
		version:   version,
		started:   time.Now(),
	}
}

// Router registers every route. Middleware order: logging wraps recovery
// so panics are logged with their 500 status.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(requireTenant)
	api.HandleFunc("/plans", s.listPlans).Methods(http.MethodGet)
	api.HandleFunc("/plans/campaign", s.generateCampaign).Methods(http.MethodPost)
	api.HandleFunc("/plans/scan", s.generateScan).Methods(http.MethodPost)
	api.HandleFunc("/plans/{id}", s.getPlan).Methods(http.MethodGet)
	api.HandleFunc("/plans/{id}/publish", s.publishPlan).Methods(http.MethodPost)
	api.HandleFunc("/items/{id}", s.getItem).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}", s.patchItem).Methods(http.MethodPatch)
	api.HandleFunc("/actions", s.listActions).Methods(http.MethodGet)
	api.HandleFunc("/actions", s.createAction).Methods(http.MethodPost)

	router.Use(loggingMiddleware(s.logger))
	router.Use(recoveryMiddleware(s.logger))
	return router
}

// ListenAndServe serves until ctx is cancelled, then shuts down within
// the grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}
