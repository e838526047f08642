package templates

import (
	"strconv"

	"github.com/a-h/templ"

	"salary-dashboard/internal/services"
)

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.943 generate

const (
	MetricsID       = "metrics"
	CountryNoticeID = "country-notice"
)

const dashboardCSS = `body{display:flex;margin:0;font-family:system-ui,sans-serif}` +
	`.sidebar{width:260px;padding:1rem;background:#f4f5f7}main{flex:1;padding:1rem 2rem}` +
	`.metrics{display:flex;gap:1rem}.metric{flex:1;padding:.75rem;border:1px solid #ddd;border-radius:6px}` +
	`.metric .label{display:block;color:#666;font-size:.85rem}.metric .value{font-size:1.5rem;font-weight:600}` +
	`.row{display:flex;gap:1rem}.chart{flex:1;min-height:320px}` +
	`.warning{padding:.75rem;background:#fff4e5;border:1px solid #f0b429}` +
	`.info{padding:.75rem;background:#e8f4fd;border:1px solid #63a4e0}`

// chartScript draws the report signal patched by /sse/report.
const chartScript = `window.drawCharts = function (report) {
  if (!report || !window.Plotly) return;
  const draw = (id, data, layout) => Plotly.react(id, data, Object.assign({margin: {t: 30}}, layout));
  draw('chart-top-titles', [{type: 'bar', orientation: 'h',
    x: report.topTitles.map(t => t.mean_salary), y: report.topTitles.map(t => t.title)}], {});
  draw('chart-histogram', [{type: 'bar',
    x: report.histogram.map(b => (b.lower + b.upper) / 2), y: report.histogram.map(b => b.count)}], {bargap: 0});
  draw('chart-yearly', [{type: 'scatter', mode: 'lines+markers',
    x: report.yearly.map(y => y.year), y: report.yearly.map(y => y.mean_salary)}], {});
  draw('chart-experience', report.byExperience.map(e => ({type: 'box', name: e.experience_level, y: e.salaries})), {});
  draw('chart-countries', [{type: 'choropleth', locationmode: 'ISO-3',
    locations: report.countries.map(c => c.country), z: report.countries.map(c => c.mean_salary)}], {});
};`

type PageData struct {
	Title      string
	Subtitle   string
	Options    services.FilterOptions
	FocusTitle string
}

// filterSignals is the initial datastar signal state: every option selected.
type filterSignals struct {
	Years       []int    `json:"years"`
	Experience  []string `json:"experience"`
	Employment  []string `json:"employment"`
	CompanySize []string `json:"companySize"`
	Title       string   `json:"title"`
}

// initialSignals is the datastar signal state the page starts from: every
// option selected.
func initialSignals(page PageData) filterSignals {
	return filterSignals{
		Years:       page.Options.Years,
		Experience:  page.Options.ExperienceLevels,
		Employment:  page.Options.EmploymentTypes,
		CompanySize: page.Options.CompanySizes,
		Title:       page.FocusTitle,
	}
}

type filterGroupData struct {
	Label  string
	Signal string
	Values []string
}

func filterGroups(opts services.FilterOptions) []filterGroupData {
	years := make([]string, len(opts.Years))
	for i, y := range opts.Years {
		years[i] = strconv.Itoa(y)
	}
	return []filterGroupData{
		{"Year", "years", years},
		{"Experience level", "experience", opts.ExperienceLevels},
		{"Employment type", "employment", opts.EmploymentTypes},
		{"Company size", "company-size", opts.CompanySizes},
	}
}

// bindAttr binds a checkbox to the named signal. Signal names are fixed
// above, so the attribute name never carries user input.
func bindAttr(signal string) templ.Attributes {
	return templ.Attributes{"data-bind:" + signal: true}
}

func pageAssets() templ.Component {
	return templ.Raw("<style>" + dashboardCSS + "</style><script>" + chartScript + "</script>")
}
