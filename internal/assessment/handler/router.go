package handler

import (
	"net/http"

	"github.com/careflow/careflow-backend/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes returns the organization-scoped assessment routes
func (h *AssessmentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(httputil.OrganizationMiddleware)

	r.Post("/risk", h.AssessRisk)
	r.Post("/performance", h.AssessPerformance)
	r.Post("/fraud-checks", h.CheckFraud)

	r.Route("/payroll", func(r chi.Router) {
		r.Get("/", h.ListPayroll)
		r.Post("/", h.GeneratePayroll)
		r.Post("/calculate", h.CalculatePayroll)
	})

	return r
}

// Routes returns the webhook routes; they authenticate by shared secret
func (h *WebhookHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/trigger", h.Trigger)
	return r
}

// Mount registers the API, webhook and metrics routes on r
func Mount(r chi.Router, assessments *AssessmentHandler, webhooks *WebhookHandler, gatherer prometheus.Gatherer) {
	r.Mount("/api/v1/assessments", assessments.Routes())
	r.Mount("/api/v1/webhooks", webhooks.Routes())
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
