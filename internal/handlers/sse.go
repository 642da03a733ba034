package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/starfederation/datastar-go/datastar"

	"market-dashboard/internal/market"
	"market-dashboard/internal/models"
	"market-dashboard/internal/services"
)

const maxTableRows = 25

var rankingTableTemplate = template.Must(template.New("rankingTable").Funcs(template.FuncMap{
	"tier": func(ta market.TierAssignment, district string) int { return ta.TierOf(district) },
	"inc":  func(i int) int { return i + 1 },
}).Parse(`
<div id="rankings-content">
{{if eq .Status "no_selection"}}<p class="empty">업종을 선택하세요</p>
{{else if eq .Status "no_data"}}<p class="empty">선택한 업종의 데이터가 없습니다</p>
{{else}}<table class="modern-table">
<thead><tr><th>#</th><th>District</th><th>Tier</th><th>Sales</th><th>Transactions</th><th>Stores</th><th>Per store</th></tr></thead>
<tbody>
{{range $i, $s := .Ranked}}{{if lt $i $.MaxRows}}<tr class="tier-{{tier $.TierAssignment $s.District}}">
<td>{{inc $i}}</td>
<td>{{$s.District}}</td>
<td>{{tier $.TierAssignment $s.District}}</td>
<td>{{printf "%.0f" $s.TotalSales}}</td>
<td>{{printf "%.0f" $s.TotalTransactions}}</td>
<td>{{$s.TotalStores}}</td>
<td>{{printf "%.0f" $s.AvgSalesPerStore}}</td>
</tr>{{end}}{{end}}
</tbody>
</table>{{end}}
</div>`))

var targetingTemplate = template.Must(template.New("targeting").Funcs(template.FuncMap{
	"pct": func(r float64) float64 { return r * 100 },
}).Parse(`
<div id="targeting-content">
{{if eq .Status "no_selection"}}<p class="empty">업종을 선택하세요</p>
{{else if eq .Status "no_data"}}<p class="empty">유동인구 데이터가 없습니다</p>
{{else}}<h3>{{.Result.District}} · {{.Result.Industry}}</h3>
<ol class="target-groups">
{{range .Result.TopTargetGroups}}<li>{{.AgeGroupName}} {{.Gender}} ({{printf "%.1f" (pct .Ratio)}}%)</li>
{{end}}</ol>
<ul class="recommendations">
{{range .Result.Recommendations}}<li>{{.}}</li>
{{end}}</ul>{{end}}
</div>`))

var residencyTemplate = template.Must(template.New("residency").Parse(`
<div id="flow-content">
{{if .Analysis}}<p><strong>{{.Analysis.District}}</strong> {{.Analysis.MarketType}}</p>
<p>{{.Analysis.Recommendation}}</p>
<ul class="insights">
{{range .Analysis.Insights}}<li>{{.}}</li>
{{end}}</ul>{{else}}<p class="empty">유동인구 데이터가 없습니다</p>{{end}}
</div>`))

type SSEHandlers struct {
	analytics *services.Analytics
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

// readSignals reads the dashboard state datastar sends with each request.
// Plain GET requests without signals fall back to query parameters.
func (h *SSEHandlers) readSignals(r *http.Request) (industryQuery, bool) {
	var q industryQuery
	if r.Method == http.MethodGet && !r.URL.Query().Has("datastar") {
		q = queryFrom(r.URL.Query())
	} else if err := datastar.ReadSignals(r, &q); err != nil {
		h.logger.Warn("unreadable datastar signals", "error", err)
		return industryQuery{}, false
	}

	if err := h.validate.Struct(q); err != nil {
		h.logger.Warn("invalid dashboard signals", "error", err)
		return industryQuery{}, false
	}
	return q, true
}

func render(t *template.Template, data any) (string, error) {
	var buf strings.Builder
	err := t.Execute(&buf, data)
	return buf.String(), err
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleRankings(w http.ResponseWriter, r *http.Request) {
	q, ok := h.readSignals(r)
	sse := datastar.NewSSE(w, r)
	if !ok {
		sse.PatchElements(`<div id="rankings-content"><p class="error">잘못된 요청입니다</p></div>`)
		return
	}

	result := h.analytics.Rankings(r.Context(), q.filter(), q.criterion())

	html, err := render(rankingTableTemplate, struct {
		services.RankingResult
		MaxRows int
	}{result, maxTableRows})
	if err != nil {
		h.logger.Error("render ranking table", "error", err)
		return
	}
	sse.PatchElements(html)

	jsonData, err := json.Marshal(map[string]any{
		"rankingStatus": result.Status,
		"tiers":         result.Tiers,
	})
	if err != nil {
		h.logger.Error("marshal ranking signals", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	flush(w)
}

func (h *SSEHandlers) HandleTargeting(w http.ResponseWriter, r *http.Request) {
	q, ok := h.readSignals(r)
	sse := datastar.NewSSE(w, r)
	if !ok || q.District == "" {
		sse.PatchElements(`<div id="targeting-content"><p class="empty">자치구를 선택하세요</p></div>`)
		return
	}

	result, err := h.analytics.Targeting(r.Context(), q.District, q.filter())
	if err != nil {
		h.logger.Warn("targeting failed", "district", q.District, "error", err)
		sse.PatchElements(`<div id="targeting-content"><p class="error">알 수 없는 자치구입니다</p></div>`)
		return
	}

	html, err := render(targetingTemplate, result)
	if err != nil {
		h.logger.Error("render targeting", "error", err)
		return
	}
	sse.PatchElements(html)

	jsonData, err := json.Marshal(map[string]any{
		"targeting": result,
	})
	if err != nil {
		h.logger.Error("marshal targeting signals", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	flush(w)
}

func (h *SSEHandlers) HandleFlow(w http.ResponseWriter, r *http.Request) {
	q, ok := h.readSignals(r)
	sse := datastar.NewSSE(w, r)
	if !ok || q.District == "" {
		sse.PatchElements(`<div id="flow-content"><p class="empty">자치구를 선택하세요</p></div>`)
		return
	}

	ctx := r.Context()
	hourly, err := h.analytics.HourlyFlow(ctx, q.District)
	if err != nil {
		h.logger.Warn("flow failed", "district", q.District, "error", err)
		sse.PatchElements(`<div id="flow-content"><p class="error">알 수 없는 자치구입니다</p></div>`)
		return
	}
	weekly, _ := h.analytics.WeeklyFlow(ctx, q.District)
	residency, _ := h.analytics.Residency(ctx, q.District)

	html, err := render(residencyTemplate, residency)
	if err != nil {
		h.logger.Error("render residency", "error", err)
		return
	}
	sse.PatchElements(html)

	jsonData, err := json.Marshal(map[string]any{
		"flowStatus":  statusOr(hourly.Status, weekly.Status),
		"hourlyChart": hourly.Chart,
		"weeklyChart": weekly.Chart,
	})
	if err != nil {
		h.logger.Error("marshal flow signals", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	flush(w)
}

func statusOr(a, b models.ResultStatus) models.ResultStatus {
	if a == models.StatusOK || b == models.StatusOK {
		return models.StatusOK
	}
	return a
}
