// Flightwatch Web Server
// Serves the REST API + WebSocket endpoints for flight phase and ETA monitoring
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/unklstewy/flightwatch/internal/auth"
	"github.com/unklstewy/flightwatch/internal/db"
	"github.com/unklstewy/flightwatch/internal/logging"
	"github.com/unklstewy/flightwatch/internal/metrics"
	"github.com/unklstewy/flightwatch/internal/monitor"
	"github.com/unklstewy/flightwatch/pkg/config"
	"github.com/unklstewy/flightwatch/pkg/eta"
	"github.com/unklstewy/flightwatch/pkg/flight"
	"github.com/unklstewy/flightwatch/pkg/route"
	"github.com/unklstewy/flightwatch/pkg/telemetry"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
	port       = flag.String("port", "", "HTTP server port (overrides config)")
)

// Server holds the HTTP server and its dependencies
type Server struct {
	router    *chi.Mux
	database  *db.DB
	authSvc   *auth.Service
	userRepo  *db.UserRepository
	poiRepo   *db.POIRepository
	eventRepo *db.FlightEventRepository
	monitor   *monitor.Monitor
	collector *metrics.Collector
	cfg       *config.Config
	log       *zap.Logger

	// phase-transition recorder state
	eventMu   sync.Mutex
	lastPhase flight.Phase
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting flightwatch web server",
		zap.String("config", *configPath),
		zap.String("port", cfg.Server.Port))

	// Connect to database
	database, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.InitSchema(ctx); err != nil {
		log.Fatal("failed to initialize schema", zap.Error(err))
	}

	// Initialize auth service
	authSvc := auth.NewService(auth.Config{
		JWTSecret:     cfg.Auth.JWTSecret,
		TokenDuration: time.Duration(cfg.Auth.TokenLifetimeMinutes) * time.Minute,
	})

	userRepo := db.NewUserRepository(database)
	poiRepo := db.NewPOIRepository(database)
	eventRepo := db.NewFlightEventRepository(database)

	if err := ensureAdminUser(ctx, userRepo, authSvc, log); err != nil {
		log.Warn("admin bootstrap failed", zap.Error(err))
	}

	// Assemble the monitoring core
	flightCfg := cfg.Flight.ToFlightConfig()
	tracker := flight.NewTracker(flightCfg, log.Named("tracker"))
	calc := eta.NewCalculator(flightCfg, log.Named("eta"))
	cache := eta.NewCache(flightCfg.CacheTTL)

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector, err = metrics.NewCollector(nil)
		if err != nil {
			log.Fatal("failed to register metrics", zap.Error(err))
		}
	}

	targets := make([]eta.Target, 0, len(cfg.Destinations))
	for _, d := range cfg.Destinations {
		targets = append(targets, eta.Target{
			ID:        d.ID,
			Latitude:  d.Latitude,
			Longitude: d.Longitude,
			Waypoint:  d.Waypoint,
		})
	}

	mon := monitor.New(tracker, calc, cache, collector, targets, log.Named("monitor"))

	srv := &Server{
		router:    chi.NewRouter(),
		database:  database,
		authSvc:   authSvc,
		userRepo:  userRepo,
		poiRepo:   poiRepo,
		eventRepo: eventRepo,
		monitor:   mon,
		collector: collector,
		cfg:       cfg,
		log:       log,
		lastPhase: flight.PhasePreDeparture,
	}

	// Install the active route, if one is configured
	profile := srv.loadActiveProfile()
	if profile != nil {
		mon.UseProfile(profile)
	}

	// Hot-reload route files on change
	if cfg.Routes.WatchEnabled {
		watcher, err := route.NewWatcher(cfg.Routes.Directory,
			func(r *route.Route) { srv.onRouteReload(r) },
			func(err error) { log.Warn("route reload failed", zap.Error(err)) },
		)
		if err != nil {
			log.Warn("route watcher unavailable", zap.Error(err))
		} else {
			defer watcher.Close()
			log.Info("watching route directory", zap.String("dir", cfg.Routes.Directory))
		}
	}

	// Drive the tick loop from the configured telemetry source
	if cfg.Telemetry.Source == "simulator" && profile != nil {
		delay := time.Duration(cfg.Telemetry.SimulatorDepartureDelaySeconds * float64(time.Second))
		sim := telemetry.NewSimulator(profile, time.Now().UTC().Add(delay))
		go func() {
			if err := mon.Run(ctx, sim, cfg.Telemetry.TickRateHz); err != nil {
				log.Error("monitor loop exited", zap.Error(err))
			}
		}()
	}

	// Record automatic phase transitions in the event log
	go srv.recordTransitions(ctx)

	// Prune old flight events daily
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := database.CleanupOldData(ctx, 30*24*time.Hour); err != nil {
					log.Warn("event log cleanup failed", zap.Error(err))
				}
			}
		}
	}()

	srv.setupRoutes()

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatal("forced shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// loadActiveProfile loads the configured route and builds its timing profile.
// Returns nil when no route is configured or loadable; the server still runs
// with direct great-circle estimates.
func (s *Server) loadActiveProfile() *route.TimingProfile {
	if s.cfg.Routes.ActiveRoute == "" {
		return nil
	}

	routes, err := route.LoadDir(s.cfg.Routes.Directory)
	if err != nil {
		s.log.Warn("failed to load route directory",
			zap.String("dir", s.cfg.Routes.Directory),
			zap.Error(err))
		return nil
	}

	for _, r := range routes {
		if r.ID != s.cfg.Routes.ActiveRoute {
			continue
		}
		profile, err := route.NewTimingProfile(r)
		if err != nil {
			s.log.Warn("invalid active route", zap.String("route", r.ID), zap.Error(err))
			return nil
		}
		s.log.Info("active route installed",
			zap.String("route", r.ID),
			zap.Int("waypoints", profile.NumWaypoints()))
		return profile
	}

	s.log.Warn("active route not found", zap.String("route", s.cfg.Routes.ActiveRoute))
	return nil
}

// onRouteReload swaps the timing profile when the active route file changes.
func (s *Server) onRouteReload(r *route.Route) {
	if r.ID != s.cfg.Routes.ActiveRoute {
		return
	}
	profile, err := route.NewTimingProfile(r)
	if err != nil {
		s.log.Warn("reloaded route is invalid", zap.String("route", r.ID), zap.Error(err))
		return
	}
	s.monitor.UseProfile(profile)
	s.log.Info("route hot-reloaded", zap.String("route", r.ID))
}

// recordTransitions watches the tracker phase and appends automatic
// transitions to the flight event log. Manual transitions are recorded by
// their handlers; this loop skips phases already recorded.
func (s *Server) recordTransitions(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status := s.monitor.Status()

		s.eventMu.Lock()
		changed := status.Phase != s.lastPhase
		if changed {
			s.lastPhase = status.Phase
		}
		s.eventMu.Unlock()

		if !changed {
			continue
		}

		occurred := time.Now().UTC()
		if status.Phase == flight.PhaseInFlight && status.ActualDepartureTime != nil {
			occurred = *status.ActualDepartureTime
		}
		if status.Phase == flight.PhasePostArrival && status.ActualArrivalTime != nil {
			occurred = *status.ActualArrivalTime
		}

		s.recordEvent(ctx, status, db.TriggerAutomatic, occurred)
	}
}

// markManualTransition records a manual transition and keeps the automatic
// recorder from double-logging it.
func (s *Server) markManualTransition(ctx context.Context, trigger string) {
	status := s.monitor.Status()

	s.eventMu.Lock()
	s.lastPhase = status.Phase
	s.eventMu.Unlock()

	s.recordEvent(ctx, status, trigger, time.Now().UTC())
}

func (s *Server) recordEvent(ctx context.Context, status flight.Status, trigger string, occurred time.Time) {
	event := &db.FlightEvent{
		RouteID:    status.ActiveRouteID,
		Phase:      status.Phase,
		Trigger:    trigger,
		OccurredAt: occurred,
	}
	if err := s.eventRepo.Record(ctx, event); err != nil {
		s.log.Warn("failed to record flight event",
			zap.String("phase", string(status.Phase)),
			zap.Error(err))
	}
}

// ensureAdminUser creates the initial admin account when the users table is
// empty of one. The password comes from FLIGHTWATCH_ADMIN_PASSWORD.
func ensureAdminUser(ctx context.Context, repo *db.UserRepository, authSvc *auth.Service, log *zap.Logger) error {
	if _, err := repo.GetByUsername(ctx, "admin"); err == nil {
		return nil
	} else if !errors.Is(err, db.ErrUserNotFound) {
		return err
	}

	password := os.Getenv("FLIGHTWATCH_ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
		log.Warn("using default admin password, set FLIGHTWATCH_ADMIN_PASSWORD")
	}

	hash, err := authSvc.HashPassword(password)
	if err != nil {
		return err
	}

	user := &db.User{
		Username:     "admin",
		Email:        "admin@flightwatch.local",
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		IsActive:     true,
	}
	if err := repo.Create(ctx, user); err != nil && !errors.Is(err, db.ErrUserExists) {
		return err
	}
	return nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))

	// CORS for development
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if s.cfg.Metrics.Enabled && s.collector != nil {
		r.Handle(s.cfg.Metrics.Path, s.collector.Handler())
	}

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/login", s.handleLogin)
		r.Get("/system/health", s.handleHealth)

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/me", s.handleGetCurrentUser)

			// Flight status endpoints
			r.Get("/flight/status", s.handleGetStatus)
			r.Get("/flight/etas", s.handleGetETAs)
			r.Get("/flight/cache", s.handleGetCacheStats)
			r.Get("/flight/events", s.handleGetEvents)

			// Manual phase control (admin only)
			r.Group(func(r chi.Router) {
				r.Use(s.requireFlightControl)
				r.Post("/flight/depart", s.handleTriggerDeparture)
				r.Post("/flight/arrive", s.handleTriggerArrival)
				r.Post("/flight/phase", s.handleTransition)
				r.Post("/flight/reset", s.handleReset)
			})

			// Destination endpoints (dispatcher or above for writes)
			r.Get("/destinations", s.handleGetDestinations)
			r.Get("/destinations/active", s.handleGetActiveDestination)
			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(auth.RoleDispatcher))
				r.Post("/destinations", s.handleCreateDestination)
				r.Put("/destinations/{id}", s.handleUpdateDestination)
				r.Delete("/destinations/{id}", s.handleDeleteDestination)
				r.Post("/destinations/{id}/activate", s.handleActivateDestination)
			})

			// Route endpoints
			r.Get("/routes", s.handleGetRoutes)

			// System endpoints
			r.Get("/system/status", s.handleGetSystemStatus)
		})

		// WebSocket endpoint (token via query parameter)
		r.Get("/ws", s.handleWebSocket)
	})
}

// Auth middleware
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing authorization header", http.StatusUnauthorized)
			return
		}

		// Extract token (format: "Bearer <token>")
		var token string
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		} else {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := s.authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "user_id", claims.UserID)
		ctx = context.WithValue(ctx, "username", claims.Username)
		ctx = context.WithValue(ctx, "role", claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole gates a route group behind the RBAC hierarchy.
func (s *Server) requireRole(required string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := r.Context().Value("role").(string)
			if !auth.HasRole(role, required) {
				http.Error(w, "Insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireFlightControl gates manual phase transitions.
func (s *Server) requireFlightControl(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value("role").(string)
		if !auth.CanControlFlight(role) {
			http.Error(w, "Insufficient permissions", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleLogin handles user login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := s.userRepo.GetByUsername(r.Context(), req.Username)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := s.authSvc.ComparePassword(user.PasswordHash, req.Password); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if !user.IsActive {
		http.Error(w, "Account is disabled", http.StatusForbidden)
		return
	}

	token, err := s.authSvc.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	_ = s.userRepo.UpdateLastLogin(r.Context(), user.ID)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}

// handleLogout handles user logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Tokens are stateless; the client discards its copy
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// handleGetCurrentUser returns the currently authenticated user
func (s *Server) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("user_id").(int)
	username := r.Context().Value("username").(string)
	role := r.Context().Value("role").(string)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":       userID,
		"username": username,
		"role":     role,
	})
}

// Flight handlers

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.monitor.Status())
}

func (s *Server) handleGetETAs(w http.ResponseWriter, r *http.Request) {
	snap := s.monitor.Snapshot()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"phase":   snap.Status.Phase,
		"mode":    snap.Status.ETAMode,
		"results": snap.Results,
		"count":   len(snap.Results),
	})
}

func (s *Server) handleGetCacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.monitor.CacheStats())
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := s.eventRepo.ListRecent(r.Context(), limit)
	if err != nil {
		s.log.Error("failed to list flight events", zap.Error(err))
		http.Error(w, "Failed to list flight events", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

func (s *Server) handleTriggerDeparture(w http.ResponseWriter, r *http.Request) {
	if err := s.monitor.Tracker().TriggerDeparture(time.Now().UTC()); err != nil {
		respondTransitionError(w, err)
		return
	}
	s.markManualTransition(r.Context(), db.TriggerManual)
	respondJSON(w, http.StatusOK, s.monitor.Status())
}

func (s *Server) handleTriggerArrival(w http.ResponseWriter, r *http.Request) {
	if err := s.monitor.Tracker().TriggerArrival(time.Now().UTC()); err != nil {
		respondTransitionError(w, err)
		return
	}
	s.markManualTransition(r.Context(), db.TriggerManual)
	respondJSON(w, http.StatusOK, s.monitor.Status())
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phase string `json:"phase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	target := flight.Phase(req.Phase)
	if !target.Valid() {
		http.Error(w, "Unknown phase", http.StatusBadRequest)
		return
	}

	if err := s.monitor.Tracker().Transition(target); err != nil {
		respondTransitionError(w, err)
		return
	}
	s.markManualTransition(r.Context(), db.TriggerManual)
	respondJSON(w, http.StatusOK, s.monitor.Status())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.monitor.Tracker().Reset()
	s.markManualTransition(r.Context(), db.TriggerReset)
	respondJSON(w, http.StatusOK, s.monitor.Status())
}

func respondTransitionError(w http.ResponseWriter, err error) {
	if errors.Is(err, flight.ErrInvalidTransition) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	http.Error(w, "Transition failed", http.StatusInternalServerError)
}

// Destination handlers

func (s *Server) handleGetDestinations(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("user_id").(int)

	points, err := s.poiRepo.ListByUser(r.Context(), userID)
	if err != nil {
		s.log.Error("failed to list destinations", zap.Error(err))
		http.Error(w, "Failed to list destinations", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"destinations": points,
		"count":        len(points),
	})
}

func (s *Server) handleGetActiveDestination(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("user_id").(int)

	point, err := s.poiRepo.GetActive(r.Context(), userID)
	if err != nil {
		s.log.Error("failed to get active destination", zap.Error(err))
		http.Error(w, "Failed to get active destination", http.StatusInternalServerError)
		return
	}

	if point == nil {
		http.Error(w, "No active destination", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, point)
}

func (s *Server) handleCreateDestination(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("user_id").(int)

	var req struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Waypoint  string  `json:"waypoint"`
		IsActive  bool    `json:"isActive"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	point := &db.PointOfInterest{
		UserID:    userID,
		Name:      req.Name,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Waypoint:  req.Waypoint,
		IsActive:  req.IsActive,
	}

	if err := s.poiRepo.Create(r.Context(), point); err != nil {
		s.log.Error("failed to create destination", zap.Error(err))
		http.Error(w, "Failed to create destination", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, point)
}

func (s *Server) handleUpdateDestination(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("user_id").(int)

	pointID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid destination ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Waypoint  string  `json:"waypoint"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	point := &db.PointOfInterest{
		ID:        pointID,
		UserID:    userID,
		Name:      req.Name,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Waypoint:  req.Waypoint,
	}

	if err := s.poiRepo.Update(r.Context(), point); err != nil {
		s.log.Error("failed to update destination", zap.Error(err))
		http.Error(w, "Failed to update destination", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, point)
}

func (s *Server) handleDeleteDestination(w http.ResponseWriter, r *http.Request) {
	pointID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid destination ID", http.StatusBadRequest)
		return
	}

	if err := s.poiRepo.Delete(r.Context(), pointID); err != nil {
		s.log.Error("failed to delete destination", zap.Error(err))
		http.Error(w, "Failed to delete destination", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

func (s *Server) handleActivateDestination(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("user_id").(int)

	pointID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid destination ID", http.StatusBadRequest)
		return
	}

	if err := s.poiRepo.SetActive(r.Context(), userID, pointID); err != nil {
		s.log.Error("failed to activate destination", zap.Error(err))
		http.Error(w, "Failed to activate destination", http.StatusInternalServerError)
		return
	}

	// Point arrival detection at the newly active destination
	if point, err := s.poiRepo.GetByID(r.Context(), pointID); err == nil {
		s.monitor.Tracker().SetDestination(point.Position())
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// Route handlers

func (s *Server) handleGetRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := route.LoadDir(s.cfg.Routes.Directory)
	if err != nil {
		s.log.Error("failed to load routes", zap.Error(err))
		http.Error(w, "Failed to load routes", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"routes": routes,
		"active": s.cfg.Routes.ActiveRoute,
		"count":  len(routes),
	})
}

// System handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.database.HealthCheck(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"healthy": false,
			"error":   err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"healthy": true,
	})
}

func (s *Server) handleGetSystemStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.monitor.Snapshot()

	dbHealthy := s.database.HealthCheck(r.Context()) == nil

	stats, err := s.database.GetStats(r.Context())
	if err != nil {
		stats = map[string]interface{}{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"database":   dbHealthy,
		"phase":      snap.Status.Phase,
		"mode":       snap.Status.ETAMode,
		"tick_count": snap.TickCount,
		"cache":      snap.Cache,
		"storage":    stats,
	})
}

// WebSocket streaming

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket streams monitor snapshots to the client at 1 Hz. The token
// is passed as a query parameter because browsers cannot set headers on
// WebSocket upgrades.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if _, err := s.authSvc.ValidateToken(token); err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Read pump: discard inbound frames, detect disconnect
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		snap := s.monitor.Snapshot()
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
