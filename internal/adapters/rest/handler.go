package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/tastemap/internal/core/services"
	"github.com/ewilliams-labs/tastemap/internal/logging"
)

// Handler manages the HTTP interface for our application.
type Handler struct {
	svc     *services.Analyzer
	router  *chi.Mux
	log     zerolog.Logger
	version string
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(svc *services.Analyzer, version string) *Handler {
	h := &Handler{
		svc:     svc,
		router:  chi.NewRouter(),
		log:     logging.Component("rest"),
		version: version,
	}

	h.middleware()
	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) middleware() {
	h.router.Use(middleware.RequestID)
	h.router.Use(middleware.RealIP)
	h.router.Use(h.requestLogger)
	h.router.Use(middleware.Recoverer)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	h.router.Get("/health", h.HealthCheck)
	h.router.Get("/favorites", h.Favorites)
	h.router.Get("/profile", h.Profile)
	h.router.Get("/recommend", h.Recommend)
	h.router.Get("/score", h.Score)
}

// requestLogger logs each request at debug level with its status and latency.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	})
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: h.version})
}
