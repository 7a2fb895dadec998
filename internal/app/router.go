package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-fin/meridian-fin/internal/accounting/accounts"
	"github.com/meridian-fin/meridian-fin/internal/accounting/journals"
	"github.com/meridian-fin/meridian-fin/internal/observability"
	"github.com/meridian-fin/meridian-fin/internal/revenue/contracts"
	"github.com/meridian-fin/meridian-fin/internal/revenue/recognition"
	"github.com/meridian-fin/meridian-fin/internal/revenue/schedules"
	"github.com/meridian-fin/meridian-fin/internal/revenue/waterfall"
	"github.com/meridian-fin/meridian-fin/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AccountsHandler    *accounts.Handler
	JournalsHandler    *journals.Handler
	ContractsHandler   *contracts.Handler
	SchedulesHandler   *schedules.Handler
	RecognitionHandler *recognition.Handler
	WaterfallHandler   *waterfall.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		if params.AccountsHandler != nil {
			r.Route("/accounts", params.AccountsHandler.MountRoutes)
		}
		if params.JournalsHandler != nil {
			r.Route("/journals", params.JournalsHandler.MountRoutes)
		}
		if params.ContractsHandler != nil {
			r.Route("/contracts", params.ContractsHandler.MountRoutes)
		}
		r.Route("/revenue", func(r chi.Router) {
			if params.SchedulesHandler != nil {
				r.Route("/schedules", params.SchedulesHandler.MountRoutes)
			}
			if params.RecognitionHandler != nil {
				r.Route("/recognition", params.RecognitionHandler.MountRoutes)
			}
			if params.WaterfallHandler != nil {
				r.Route("/waterfall", params.WaterfallHandler.MountRoutes)
			}
		})
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
