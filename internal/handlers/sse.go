package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"salary-dashboard/internal/errors"
	"salary-dashboard/internal/models"
	"salary-dashboard/internal/observability"
	"salary-dashboard/internal/services"
	"salary-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// reportSignals is the filter state the dashboard page sends. A nil list
// means the signal was not sent and falls back to every value.
type reportSignals struct {
	Years       []int    `json:"years"`
	Experience  []string `json:"experience"`
	Employment  []string `json:"employment"`
	CompanySize []string `json:"companySize"`
	Title       string   `json:"title"`
}

func (s reportSignals) selection(defaults services.Selection) services.Selection {
	sel := defaults
	if s.Years != nil {
		sel.Years = s.Years
	}
	if s.Experience != nil {
		sel.ExperienceLevels = s.Experience
	}
	if s.Employment != nil {
		sel.EmploymentTypes = s.Employment
	}
	if s.CompanySize != nil {
		sel.CompanySizes = s.CompanySize
	}
	return sel
}

// chartSignals carries the series the page draws. Lists are never null so
// the client can clear a chart.
type chartSignals struct {
	Empty        bool                        `json:"empty"`
	TopTitles    []models.TitleSalary        `json:"topTitles"`
	Histogram    []models.HistogramBin       `json:"histogram"`
	Yearly       []models.YearlySalary       `json:"yearly"`
	ByExperience []models.ExperienceSalaries `json:"byExperience"`
	Countries    []models.CountrySalary      `json:"countries"`
}

func newChartSignals(report services.Report) chartSignals {
	return chartSignals{
		Empty:        report.Empty,
		TopTitles:    nonNil(report.TopTitles),
		Histogram:    nonNil(report.Histogram),
		Yearly:       nonNil(report.Yearly),
		ByExperience: nonNil(report.ByExperience),
		Countries:    nonNil(report.Countries),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func render(ctx context.Context, c templ.Component) (string, error) {
	var buf strings.Builder
	err := c.Render(ctx, &buf)
	return buf.String(), err
}

// HandleReport recomputes every view for the posted filter signals and
// patches the metrics, the chart signals and the country notice.
func (h *SSEHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	var signals reportSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "invalid signals"), observability.GetRequestID(r.Context()))
		return
	}

	sel := signals.selection(h.analytics.DefaultSelection())
	report := h.analytics.Report(sel, strings.TrimSpace(signals.Title))

	sse := datastar.NewSSE(w, r)

	metrics := templates.NoData()
	if !report.Empty {
		metrics = templates.Metrics(*report.Summary)
	}
	html, err := render(r.Context(), metrics)
	if err != nil {
		h.logger.Error("render metrics", "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.Warn("patch metrics", "error", err)
		return
	}

	jsonData, err := json.Marshal(map[string]any{
		"report": newChartSignals(report),
	})
	if err != nil {
		h.logger.Error("marshal report signals", "error", err)
		return
	}
	if err := sse.PatchSignals(jsonData); err != nil {
		h.logger.Warn("patch report signals", "error", err)
		return
	}

	notice, err := render(r.Context(), templates.CountryNotice(report.FocusTitle, len(report.Countries) > 0))
	if err != nil {
		h.logger.Error("render country notice", "error", err)
		return
	}
	if err := sse.PatchElements(notice); err != nil {
		h.logger.Warn("patch country notice", "error", err)
	}
}
