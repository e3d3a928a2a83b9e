package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/hsagiv/pizza-orders-assignment/internal/config"
	"github.com/hsagiv/pizza-orders-assignment/internal/orders"
	"github.com/hsagiv/pizza-orders-assignment/internal/server"
)

// TrackerApp is the REST surface. The tracker server (and through it the
// broadcaster) is an explicitly constructed dependency handed in at
// startup; there is no process-wide broadcaster state.
type TrackerApp struct {
	log            *log.Logger
	orders         *orders.Service
	ts             *server.TrackerServer
	creds          *server.Credentials
	mux            *http.Server
	allowedOrigins []string
}

func NewTrackerApp(mux *http.ServeMux, logger *log.Logger, ts *server.TrackerServer, svc *orders.Service, creds *server.Credentials, cfg *config.Config) *TrackerApp {
	s := &TrackerApp{
		log:            logger,
		orders:         svc,
		ts:             ts,
		creds:          creds,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("POST /api/orders", s.requireUser(s.createOrder))
	mux.HandleFunc("GET /api/orders", s.roleMiddleware(s.listOrders))
	mux.HandleFunc("GET /api/orders/{id}", s.roleMiddleware(s.getOrder))
	mux.HandleFunc("PUT /api/orders/{id}", s.requireUser(s.updateOrder))
	mux.HandleFunc("PATCH /api/orders/{id}/status", s.requireUser(s.updateOrderStatus))
	mux.HandleFunc("DELETE /api/orders/{id}", s.requireAdmin(s.deleteOrder))
	mux.HandleFunc("GET /api/statuses", s.listStatuses)
	mux.HandleFunc("GET /api/statistics", s.requireAdmin(s.statistics))
	mux.HandleFunc("POST /api/admin/message", s.requireAdmin(s.adminMessage))
	mux.HandleFunc("GET /ws", s.serveWs)
	mux.HandleFunc("GET /healthz", s.healthCheck)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *TrackerApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *TrackerApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
