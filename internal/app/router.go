package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/beacon-sis/beacon/internal/auth"
	"github.com/beacon-sis/beacon/internal/fees"
	"github.com/beacon-sis/beacon/internal/ledger"
	"github.com/beacon-sis/beacon/internal/observability"
	"github.com/beacon-sis/beacon/internal/reports"
	"github.com/beacon-sis/beacon/internal/shared"
	"github.com/beacon-sis/beacon/internal/students"
	"github.com/beacon-sis/beacon/internal/users"
	"github.com/beacon-sis/beacon/jobs"
	"github.com/beacon-sis/beacon/report"
)

// RouterParams aggregates every handler mounted on the API router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthHandler    *auth.Handler
	LedgerHandler  *ledger.Handler
	FeesHandler    *fees.Handler
	StudentHandler *students.Handler
	UserHandler    *users.Handler
	ReportsHandler *reports.Handler
	ReceiptHandler *report.Handler
	JobHandler     *jobs.Handler
}

// NewRouter assembles the HTTP surface.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         p.Logger,
		Config:         p.Config,
		SessionManager: p.SessionManager,
		CSRFManager:    p.CSRFManager,
		Metrics:        p.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	r.Route("/auth", p.AuthHandler.MountRoutes)

	r.Route("/api", func(api chi.Router) {
		p.LedgerHandler.Routes(api)
		p.FeesHandler.Routes(api)
		p.StudentHandler.Routes(api)
		p.UserHandler.Routes(api)
		p.ReportsHandler.Routes(api)
		p.ReceiptHandler.Routes(api)
	})

	if p.JobHandler != nil {
		r.Route("/jobs", p.JobHandler.MountRoutes)
	}

	return r
}
