package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Shoaibzaak/visa-docverify/internal/config"
	"github.com/Shoaibzaak/visa-docverify/internal/core/ports"
	"github.com/Shoaibzaak/visa-docverify/internal/observability/logging"
	"github.com/Shoaibzaak/visa-docverify/internal/observability/metrics"
)

const serviceName = "docverify-api"

type Dependencies struct {
	Intake   ports.DocumentIntake
	Registry ports.DocumentRegistryReader
	Editor   ports.DocumentEditor
	Previews ports.PreviewReader
	Analysis ports.AnalysisCoordinator
	Notices  ports.NoticeReader

	// Optional.
	Metrics  *metrics.HTTPServerMetrics
	Breakers func() map[string]string
	Logger   *slog.Logger
}

type Router struct {
	cfg      config.Config
	intake   ports.DocumentIntake
	registry ports.DocumentRegistryReader
	editor   ports.DocumentEditor
	previews ports.PreviewReader
	analysis ports.AnalysisCoordinator
	notices  ports.NoticeReader
	metrics  *metrics.HTTPServerMetrics
	breakers func() map[string]string
	logger   *slog.Logger
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:      cfg,
		intake:   deps.Intake,
		registry: deps.Registry,
		editor:   deps.Editor,
		previews: deps.Previews,
		analysis: deps.Analysis,
		notices:  deps.Notices,
		metrics:  deps.Metrics,
		breakers: deps.Breakers,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(echoRequestIDMiddleware)
	r.Use(accessLogMiddleware(rt.logger))
	r.Use(middleware.Recoverer)
	if rt.metrics != nil {
		r.Use(func(next http.Handler) http.Handler {
			return rt.metrics.Middleware(serviceName, next)
		})
	}

	r.Get("/healthz", rt.healthz)
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	r.Group(func(api chi.Router) {
		api.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.onRateLimited)
		})
		api.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, rt.cfg.APIQueueWait)
		})

		api.Route("/v1/documents", func(docs chi.Router) {
			docs.Post("/", rt.uploadDocuments)
			docs.Get("/", rt.listDocuments)
			docs.Post("/analyze", rt.analyzeAll)
			docs.Route("/{id}", func(doc chi.Router) {
				doc.Get("/", rt.getDocument)
				doc.Patch("/", rt.updateDocument)
				doc.Delete("/", rt.removeDocument)
				doc.Post("/analyze", rt.analyzeDocument)
				doc.Get("/preview", rt.previewDocument)
			})
		})
		api.Get("/v1/notice", rt.currentNotice)
		api.Delete("/v1/notice", rt.dismissNotice)
		api.Get("/v1/report.xlsx", rt.exportReport)
	})

	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{"status": "ok"}
	if rt.breakers != nil {
		if states := rt.breakers(); len(states) > 0 {
			payload["breakers"] = states
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (rt *Router) onRateLimited() {
	if rt.metrics != nil {
		rt.metrics.RecordRateLimited(serviceName)
	}
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context(), rt.logger).Error("request_failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
