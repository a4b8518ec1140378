package dondetu

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/hlog"
)

// Handler returns the HTTP API.
//
// # API Endpoints
//
// Public:
//
//	GET  /api/health                          - Service health status
//	GET  /api/places                          - List places (?category, ?featured, ?limit)
//	GET  /api/places/nearby                   - Places near a point (?lat, ?lng, ?radius in km)
//	GET  /api/places/{id}                     - Place detail with social networks and events
//	GET  /api/places/{id}/events              - Events at a place
//	GET  /api/map/markers                     - GeoJSON markers for the map
//	GET  /api/events                          - Upcoming events (?limit)
//	GET  /api/social-networks/{id}            - A social network link
//
// Dashboard (bearer token with the admin role):
//
//	GET|POST          /api/admin/places
//	PUT|DELETE        /api/admin/places/{id}
//	GET|POST          /api/admin/social-networks
//	PUT|DELETE        /api/admin/social-networks/{id}
//	POST              /api/admin/events
//	PUT|DELETE        /api/admin/events/{id}
//	GET|POST          /api/admin/read-only
func (a *App) Handler() http.Handler {
	router := mux.NewRouter()

	// API routes
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", a.handleHealth).Methods("GET")

	// Place routes; nearby must be registered before {id}
	api.HandleFunc("/places", a.handleListPlaces).Methods("GET")
	api.HandleFunc("/places/nearby", a.handleNearby).Methods("GET")
	api.HandleFunc("/places/{id}", a.handleGetPlace).Methods("GET")
	api.HandleFunc("/places/{id}/events", a.handleListPlaceEvents).Methods("GET")
	api.HandleFunc("/map/markers", a.handleMarkers).Methods("GET")
	api.HandleFunc("/events", a.handleUpcomingEvents).Methods("GET")
	api.HandleFunc("/social-networks/{id}", a.handleGetSocialNetwork).Methods("GET")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(a.requireAdmin)

	admin.HandleFunc("/places", a.handleListPlaces).Methods("GET")
	admin.HandleFunc("/places", a.handleCreatePlace).Methods("POST")
	admin.HandleFunc("/places/{id}", a.handleUpdatePlace).Methods("PUT")
	admin.HandleFunc("/places/{id}", a.handleDeletePlace).Methods("DELETE")

	admin.HandleFunc("/social-networks", a.handleListSocialNetworks).Methods("GET")
	admin.HandleFunc("/social-networks", a.handleCreateSocialNetwork).Methods("POST")
	admin.HandleFunc("/social-networks/{id}", a.handleUpdateSocialNetwork).Methods("PUT")
	admin.HandleFunc("/social-networks/{id}", a.handleDeleteSocialNetwork).Methods("DELETE")

	admin.HandleFunc("/events", a.handleCreateEvent).Methods("POST")
	admin.HandleFunc("/events/{id}", a.handleUpdateEvent).Methods("PUT")
	admin.HandleFunc("/events/{id}", a.handleDeleteEvent).Methods("DELETE")

	admin.HandleFunc("/read-only", a.handleGetReadOnly).Methods("GET")
	admin.HandleFunc("/read-only", a.handleSetReadOnly).Methods("POST")

	// Health check route (outside of /api prefix)
	router.HandleFunc("/health", a.handleHealth).Methods("GET")

	return a.withRequestLogging(router)
}

// withRequestLogging attaches a request-scoped logger and logs one line per request.
func (a *App) withRequestLogging(next http.Handler) http.Handler {
	h := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request")
	})(next)
	h = hlog.RemoteAddrHandler("ip")(h)
	h = hlog.UserAgentHandler("user_agent")(h)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	return hlog.NewHandler(a.logger)(h)
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server
// fails. On cancellation active requests get Server.ShutdownTimeout to finish.
func (a *App) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%s", a.config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info().
		Str("addr", addr).
		Str("backend", a.config.Backend).
		Bool("read_only", a.IsReadOnly()).
		Bool("admin_api", a.auth != nil).
		Msg("Starting DóndeTú server")

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info().Msg("Shutting down server")
		timeout := a.config.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}
