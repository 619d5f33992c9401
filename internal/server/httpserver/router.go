package httpserver

import (
	"net/http"

	"github.com/yndnr/sessbox-go/internal/server/httpserver/handler"
	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
	"github.com/yndnr/sessbox-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Handler handler.Config

	// Metrics is served on /metrics when set.
	Metrics *metric.Registry

	// Logger for request logging.
	Logger logger.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	log = log.With("component", "http")
	if cfg.Handler.Logger == nil {
		cfg.Handler.Logger = log
	}
	h := handler.New(cfg.Handler)

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", h)
	mux.Handle("GET /readyz", h)
	mux.Handle("GET /v1/status", h)
	mux.Handle("POST /v1/sync", h)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	// Order: RequestID -> Recover -> AccessLog -> mux
	return Chain(mux, RequestID(), Recover(log), AccessLog(log))
}
