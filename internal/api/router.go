package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// GenerateResponsePath is the route of the response flow.
const GenerateResponsePath = "/generate-response"

type RouterDependencies struct {
	FlowHandler    http.Handler
	AllowedOrigin  string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter mounts the response flow and a health probe behind the base
// middleware stack.
func NewRouter(deps RouterDependencies) *chi.Mux {
	if deps.FlowHandler == nil {
		panic("FlowHandler dependency is nil in router setup")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 60 * time.Second
	}
	origin := deps.AllowedOrigin
	if origin == "" {
		origin = "*"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(deps.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{origin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Correlation-Id"},
		ExposedHeaders: []string{"X-Correlation-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodPost, GenerateResponsePath, deps.FlowHandler)

	return r
}

func requestLogger(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			l.Info("request served",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()),
				"duration", time.Since(start),
			)
		})
	}
}
