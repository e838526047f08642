package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"salary-dashboard/internal/errors"
	"salary-dashboard/internal/observability"
	"salary-dashboard/internal/services"
)

const cacheControl = "public, max-age=300"

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *APIHandlers) writeData(w http.ResponseWriter, data any) {
	errors.WriteSuccessWithHeaders(w, data, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

// view filters the current dataset by the request's selection.
func (h *APIHandlers) view(r *http.Request) (services.View, error) {
	sel, err := parseSelection(r.URL.Query(), h.analytics.DefaultSelection())
	if err != nil {
		return nil, err
	}
	return h.analytics.View(sel), nil
}

func (h *APIHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, h.analytics.Options())
}

func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query(), h.analytics.DefaultSelection())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	title := strings.TrimSpace(r.URL.Query().Get("title"))
	h.writeData(w, h.analytics.Report(sel, title))
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	view, err := h.view(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if len(view) == 0 {
		h.writeData(w, map[string]bool{"empty": true})
		return
	}
	h.writeData(w, services.SummaryMetrics(view))
}

func (h *APIHandlers) HandleTopTitles(w http.ResponseWriter, r *http.Request) {
	n, err := positiveParam(r.URL.Query(), "n", h.analytics.ReportConfig().TopTitles)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := h.view(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, services.TopTitlesBySalary(view, n))
}

func (h *APIHandlers) HandleHistogram(w http.ResponseWriter, r *http.Request) {
	bins, err := positiveParam(r.URL.Query(), "bins", h.analytics.ReportConfig().HistogramBins)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := h.view(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, services.SalaryHistogram(view, bins))
}

func (h *APIHandlers) HandleYearly(w http.ResponseWriter, r *http.Request) {
	view, err := h.view(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, services.YearlyMeanSalary(view))
}

func (h *APIHandlers) HandleExperience(w http.ResponseWriter, r *http.Request) {
	view, err := h.view(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, services.SalaryByExperience(view))
}

func (h *APIHandlers) HandleCountries(w http.ResponseWriter, r *http.Request) {
	view, err := h.view(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		title = h.analytics.ReportConfig().FocusTitle
	}
	h.writeData(w, services.CountryMeanSalaryForTitle(view, title))
}

// HandleHealth reports unhealthy until a dataset with records is installed.
func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ds := h.analytics.Dataset()
	if ds.Len() == 0 {
		h.writeError(w, r, errors.ServiceUnavailable("no salary data loaded"))
		return
	}

	healthData := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
		"records":   ds.Len(),
		"source":    ds.Source,
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}
