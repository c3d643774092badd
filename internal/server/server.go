package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"hijack-addon/hijack/internal/notify"
	"hijack-addon/hijack/internal/permissions"
	"hijack-addon/hijack/internal/server/api"
	"hijack-addon/hijack/internal/settings"
)

// DefaultBanner is injected into HTML pages served to hijacked sessions.
const DefaultBanner = `<div id="hijacked-warning" role="alert">You are currently working on behalf of another user.</div>`

// Options configures the HTTP surface.
type Options struct {
	APIKey string
	Banner string
}

// apiKeyMiddleware checks for the X-API-Key header and validates it against the provided key.
// If key is empty, it allows all requests.
func apiKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" || r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			switch r.Header.Get("X-API-Key") {
			case "":
				http.Error(w, "API key required", http.StatusUnauthorized)
			case apiKey:
				next.ServeHTTP(w, r)
			default:
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
			}
		})
	}
}

// NewHandler builds the routed, logged handler.
func NewHandler(proxy *settings.Proxy, policies *permissions.Registry, logger zerolog.Logger, opts Options) http.Handler {
	settingsHandler := api.NewSettingsHandler(proxy, policies)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/settings/{name}", settingsHandler.GetSetting)
	mux.HandleFunc("GET /v1/permissions/{id}", settingsHandler.GetPolicy)
	mux.HandleFunc("POST /v1/permissions/check", settingsHandler.CheckPermission)
	mux.HandleFunc("GET /health", healthCheckHandler)

	banner := opts.Banner
	if banner == "" {
		banner = DefaultBanner
	}

	var h http.Handler = notify.Middleware(proxy, []byte(banner), notify.Hijacked)(mux)
	h = apiKeyMiddleware(opts.APIKey)(h)

	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("HTTP Request")
	})(h)
	h = hlog.RemoteAddrHandler("remote_addr")(h)
	h = hlog.RequestIDHandler("req_id", "Request-Id")(h)
	h = hlog.NewHandler(logger)(h)

	return h
}

// RunServer serves handler on listenAddr until ctx is cancelled, then shuts
// down gracefully.
func RunServer(ctx context.Context, handler http.Handler, listenAddr string, logger zerolog.Logger) error {
	logger = logger.With().Str("service", "hijack-settings").Logger()

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", listenAddr).Msg("API Server starting")
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
			if err := httpServer.Close(); err != nil {
				logger.Error().Err(err).Msg("HTTP server force close error")
			}
		} else {
			logger.Info().Msg("HTTP server shutdown complete.")
		}
		if err := <-serverErr; err != nil {
			logger.Error().Err(err).Msg("ListenAndServe error during shutdown")
		}
	}

	logger.Info().Msg("Server exiting.")
	return nil
}

// healthCheckHandler responds to health check requests with a simple 200 OK.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error writing health check response")
	}
}
