package api

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/MekdelawitGebre/customer-experience-fintech/application/service"
	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
	v1 "github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/api/v1"
)

// DashboardTitle heads the page and the browser tab.
const DashboardTitle = "Fintech Market Intelligence Hub"

const (
	maxDrivers   = 15
	maxTableRows = 500
	chartWidth   = "900px"
	chartHeight  = "420px"
)

// bankPalette colours the per-bank rating series.
var bankPalette = []string{
	"#88CCEE", "#CC6677", "#DDCC77", "#117733", "#332288", "#AA4499",
	"#44AA99", "#999933", "#882255", "#661100", "#6699CC", "#888888",
}

var headerTmpl = template.Must(template.New("header").Parse(`
<div class="hub">
<h1 class="hub-title">{{.Title}}</h1>
<form class="hub-filter" method="get" action="/">
{{range .Banks}}<label><input type="checkbox" name="bank" value="{{.Name}}"{{if .Checked}} checked{{end}}> {{.Name}}</label>
{{end}}<button type="submit">Apply</button>
</form>
<div class="hub-kpis">
<div class="kpi"><p class="kpi-name">Market Volume</p><p class="kpi-value">{{.Volume}}</p></div>
<div class="kpi"><p class="kpi-name">Avg Rating</p><p class="kpi-value">{{printf "%.2f" .KPIs.AvgRating}}</p></div>
<div class="kpi" style="border-top:5px solid {{.Color}}"><p class="kpi-name" style="color:{{.Color}}">SENTIMENT STRENGTH</p><p class="kpi-value" style="color:{{.Color}}">{{printf "%.1f" .KPIs.PctPositive}}%</p></div>
<div class="kpi"><p class="kpi-name">Polarization Index</p><p class="kpi-value">{{printf "%.2f" .KPIs.Polarization}}</p></div>
</div>
</div>
`))

var tableTmpl = template.Must(template.New("table").Parse(`
<details class="hub-audit">
<summary>Audit Trail: Raw Transactional Data ({{.Shown}} of {{.Total}})</summary>
<table>
<thead><tr><th>bank</th><th>review_text</th><th>rating</th><th>sentiment_label</th><th>themes</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Bank}}</td><td>{{.Text}}</td><td>{{.Rating}}</td><td>{{.SentimentLabel}}</td><td>{{.Themes.ListLiteral}}</td></tr>
{{end}}</tbody>
</table>
</details>
`))

var unavailableTmpl = template.Must(template.New("unavailable").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body><h1>{{.Title}}</h1><p>The review data could not be loaded: {{.Err}}</p><p>Retry in a few minutes.</p></body></html>
`))

const pageStyle = `<style>
body{font-family:system-ui,sans-serif;background:#f8fafc;color:#0f172a}
.hub-title{text-align:center;color:#38bdf8}
.hub-filter{text-align:center;margin-bottom:1rem}
.hub-filter label{margin-right:.75rem}
.hub-kpis{display:flex;gap:1rem;justify-content:center;flex-wrap:wrap}
.kpi{background:#fff;border-radius:8px;padding:.75rem 1.5rem;min-width:10rem;box-shadow:0 1px 3px rgba(0,0,0,.1)}
.kpi-name{font-size:.8rem;font-weight:bold;margin:0}
.kpi-value{font-size:1.8rem;font-weight:800;margin:0}
.hub-audit{margin:2rem}
.hub-audit table{border-collapse:collapse;width:100%}
.hub-audit td,.hub-audit th{border:1px solid #e2e8f0;padding:.25rem .5rem;text-align:left}
</style>`

type bankOption struct {
	Name    string
	Checked bool
}

// DashboardPage renders the HTML dashboard.
type DashboardPage struct {
	dashboard *service.Dashboard
	logger    *slog.Logger
}

// NewDashboardPage creates a DashboardPage.
func NewDashboardPage(dashboard *service.Dashboard, logger *slog.Logger) *DashboardPage {
	return &DashboardPage{dashboard: dashboard, logger: logger}
}

// ServeHTTP handles GET /. Repeated bank parameters narrow the selection.
func (p *DashboardPage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	banks := v1.Banks(r)

	summary, err := p.dashboard.Summary(ctx, banks)
	if err != nil {
		p.logger.ErrorContext(ctx, "dashboard unavailable", slog.String("error", err.Error()))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = unavailableTmpl.Execute(w, map[string]any{"Title": DashboardTitle, "Err": err.Error()})
		return
	}
	rows, err := p.dashboard.Rows(ctx, banks)
	if err != nil {
		p.logger.ErrorContext(ctx, "dashboard rows unavailable", slog.String("error", err.Error()))
		rows = nil
	}

	page, err := RenderDashboard(summary, rows)
	if err != nil {
		p.logger.ErrorContext(ctx, "render dashboard", slog.String("error", err.Error()))
		http.Error(w, "render dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

// RenderDashboard renders the full page: the KPI header and bank filter,
// the three charts and the raw review table.
func RenderDashboard(summary service.Summary, rows []service.Row) ([]byte, error) {
	page := components.NewPage()
	page.PageTitle = DashboardTitle
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(
		SentimentChart(summary.Sentiment),
		RatingChart(summary.Ratings),
		DriversChart(summary.Drivers),
	)

	var charts bytes.Buffer
	if err := page.Render(&charts); err != nil {
		return nil, fmt.Errorf("render charts: %w", err)
	}

	var header bytes.Buffer
	header.WriteString(pageStyle)
	if err := headerTmpl.Execute(&header, headerData(summary)); err != nil {
		return nil, fmt.Errorf("render header: %w", err)
	}

	shown := rows
	if len(shown) > maxTableRows {
		shown = shown[:maxTableRows]
	}
	var table bytes.Buffer
	if err := tableTmpl.Execute(&table, map[string]any{
		"Rows":  shown,
		"Shown": len(shown),
		"Total": len(rows),
	}); err != nil {
		return nil, fmt.Errorf("render table: %w", err)
	}

	return splice(charts.String(), header.String(), table.String()), nil
}

func headerData(summary service.Summary) map[string]any {
	options := make([]bankOption, 0, len(summary.Banks))
	for _, bank := range summary.Banks {
		options = append(options, bankOption{Name: bank, Checked: slices.Contains(summary.Selected, bank)})
	}
	return map[string]any{
		"Title":  DashboardTitle,
		"Banks":  options,
		"KPIs":   summary.KPIs,
		"Volume": thousands(summary.KPIs.Volume),
		"Color":  summary.KPIColor,
	}
}

// splice places head right after the opening body tag and tail right before
// the closing one. A document without them gets head and tail around it.
func splice(doc, head, tail string) []byte {
	open := strings.Index(doc, "<body>")
	closing := strings.LastIndex(doc, "</body>")
	if open < 0 || closing < open {
		return []byte(head + doc + tail)
	}
	open += len("<body>")

	var b strings.Builder
	b.Grow(len(doc) + len(head) + len(tail))
	b.WriteString(doc[:open])
	b.WriteString(head)
	b.WriteString(doc[open:closing])
	b.WriteString(tail)
	b.WriteString(doc[closing:])
	return []byte(b.String())
}

func thousands(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + thousands(-n)
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

func baseOptions(title, subtitle string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: DashboardTitle,
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	}
}

// SentimentChart groups label counts per bank, one series per label in
// its fixed colour.
func SentimentChart(data []service.BankSentiment) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(baseOptions("Market Sentiment Distribution", "")...)
	bar.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{Name: "bank"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count"}),
	)

	banks := make([]string, len(data))
	for i, d := range data {
		banks[i] = d.Bank
	}
	bar.SetXAxis(banks)
	for _, label := range review.Labels() {
		items := make([]opts.BarData, len(data))
		for i, d := range data {
			items[i] = opts.BarData{Value: d.Counts[label]}
		}
		bar.AddSeries(label.String(), items,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: service.SentimentColors[label]}))
	}
	return bar
}

// RatingChart groups star counts, one series per bank.
func RatingChart(data []service.BankRatings) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(baseOptions("Comparative Rating Distribution", "Reviews per star rating")...)
	bar.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{Name: "rating"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count"}),
	)

	bar.SetXAxis([]string{"1", "2", "3", "4", "5"})
	for i, d := range data {
		items := make([]opts.BarData, len(d.Stars))
		for star, n := range d.Stars {
			items[star] = opts.BarData{Value: n}
		}
		bar.AddSeries(d.Bank, items,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: bankPalette[i%len(bankPalette)]}))
	}
	return bar
}

// DriversChart plots the highest-impact themes as horizontal bars, the
// strongest at the top. Bars take the KPI colour of their impact.
func DriversChart(drivers []service.ThemeDriver) *charts.Bar {
	if len(drivers) > maxDrivers {
		drivers = drivers[:maxDrivers]
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(baseOptions("Theme Drivers", "Mean sentiment score of reviews mentioning each theme")...)
	bar.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{Name: "impact"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)

	// The category axis is drawn bottom-up once reversed.
	themes := make([]string, len(drivers))
	items := make([]opts.BarData, len(drivers))
	for i, d := range drivers {
		j := len(drivers) - 1 - i
		themes[j] = d.Theme
		items[j] = opts.BarData{
			Name:      fmt.Sprintf("%s (%d reviews)", d.Theme, d.Volume),
			Value:     d.Impact,
			ItemStyle: &opts.ItemStyle{Color: service.KPIColor(d.Impact * 100)},
		}
	}
	bar.SetXAxis(themes).AddSeries("impact", items)
	bar.XYReversal()
	return bar
}
