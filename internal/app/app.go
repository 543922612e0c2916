package app

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"fleetsum/internal/config"
	apierrors "fleetsum/internal/errors"
	"fleetsum/internal/infrastructure"
	customMiddleware "fleetsum/internal/middleware"
	"fleetsum/internal/services"
	handlers "fleetsum/internal/transport/http"
	ws "fleetsum/internal/websocket"
	"fleetsum/pkg/contracts"
)

const AppName = "Fleet Summary Tool"

// Application is the main application container.
type Application struct {
	Config         *config.Config
	Router         *chi.Mux
	Server         *http.Server
	Hub            *ws.Hub
	SummaryService *services.SummaryService
	Metrics        *infrastructure.Metrics
	Logger         *slog.Logger
	WebFS          fs.FS

	metricsHandler http.Handler
}

// NewApplication creates a new application instance with dependency injection.
func NewApplication(webFS fs.FS) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	metrics, metricsHandler, err := infrastructure.InitMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	app := &Application{
		Config:         cfg,
		Logger:         logger,
		Metrics:        metrics,
		WebFS:          webFS,
		metricsHandler: metricsHandler,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices wires the websocket hub and the summary service.
func (a *Application) initializeServices() {
	a.Hub = ws.NewHub(a.Logger)
	a.SummaryService = services.NewSummaryService(a.Hub, a.Metrics, a.Logger)
}

// setupRouter configures the HTTP router with all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware only; nothing here wraps the ResponseWriter,
	// which would break the WebSocket upgrade.
	r.Use(customMiddleware.RequestID)

	r.HandleFunc("/ws", a.handleWebSocket)

	// Prometheus endpoint stays outside the heavy middleware group.
	r.Handle("/metrics", a.metricsHandler)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.RequestCounter(a.Metrics))
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
		a.setupWebRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints.
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

		healthHandler := handlers.NewHealthHandler()
		r.Get("/health", healthHandler.Health)
		r.Get("/version", healthHandler.Version)

		errorHandler := apierrors.NewErrorHandler(a.Logger)
		summaryHandler := handlers.NewSummaryHandler(a.SummaryService, a.Config.Upload, a.Logger, errorHandler)
		r.Mount("/summary", summaryHandler.Routes())
	})
}

// setupWebRoutes serves the embedded upload form.
func (a *Application) setupWebRoutes(r chi.Router) {
	if a.WebFS == nil {
		return
	}
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		file, err := a.WebFS.Open("index.html")
		if err != nil {
			a.Logger.ErrorContext(req.Context(), "failed to open index.html",
				slog.String("error", err.Error()))
			http.Error(w, "Frontend not available", http.StatusServiceUnavailable)
			return
		}
		defer file.Close()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		io.Copy(w, file)
	})
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the background services and the HTTP server.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	go a.Hub.Run()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Hub.Stop()

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}

// handleWebSocket upgrades the connection and attaches a client to the hub.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}
	ctx := infrastructure.WithTraceID(r.Context(), reqID)

	a.Logger.InfoContext(ctx, "WebSocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// Uploads come from the embedded form served on the same host.
		CheckOrigin: func(r *http.Request) bool { return true },
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.ErrorContext(ctx, "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	client := ws.NewClient(a.Hub, conn, a.Logger)
	a.Hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
