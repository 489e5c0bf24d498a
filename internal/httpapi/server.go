// Package httpapi exposes the dealer checks as a JSON HTTP API.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/Veraticus/dealercheck/internal/common"
	"github.com/Veraticus/dealercheck/internal/dealer"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// Server serves the dealer API.
type Server struct {
	checker  *dealer.Checker
	validate *validator.Validate
	logger   *slog.Logger
	origins  []string
}

// NewServer creates a Server. Empty origins allow any origin.
func NewServer(checker *dealer.Checker, origins []string, logger *slog.Logger) *Server {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		checker:  checker,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   common.LoggerOrDefault(logger),
		origins:  origins,
	}
}

// Routes builds the router.
func (s *Server) Routes() chi.Router {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(s.logRequests)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Route("/api/v1", func(rt chi.Router) {
		rt.Post("/validate", s.wrap(s.handleValidate))
		rt.Post("/checks/comprehensive", s.wrap(s.handleComprehensive))
		rt.Post("/checks/{check}", s.wrap(s.handleCheck))
	})

	return mux
}

// logRequests logs one line per request once the response is written.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		level := slog.LevelInfo
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start))
	})
}
