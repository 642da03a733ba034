package handlers

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"

	"market-dashboard/internal/errors"
	"market-dashboard/internal/export"
	"market-dashboard/internal/ingest"
	"market-dashboard/internal/market"
	"market-dashboard/internal/models"
	"market-dashboard/internal/observability"
	"market-dashboard/internal/services"
)

var cacheHeaders = map[string]string{
	"Cache-Control": "public, max-age=300",
}

// industryQuery is the industry selection shared by the ranking and
// targeting endpoints.
type industryQuery struct {
	Major     string `json:"major" validate:"max=64"`
	Mid       string `json:"mid" validate:"max=64"`
	Minor     string `json:"minor" validate:"max=64"`
	Criterion string `json:"criterion" validate:"omitempty,oneof=medianPerStoreSales avgSalesPerStore totalSales totalTransactions"`
	District  string `json:"district" validate:"max=32"`
}

func queryFrom(values url.Values) industryQuery {
	return industryQuery{
		Major:     values.Get("major"),
		Mid:       values.Get("mid"),
		Minor:     values.Get("minor"),
		Criterion: values.Get("criterion"),
		District:  values.Get("district"),
	}
}

func (q industryQuery) filter() market.IndustryFilter {
	return market.NewIndustryFilter(q.Major, q.Mid, q.Minor)
}

// criterion is only called after validation, so parsing cannot fail.
func (q industryQuery) criterion() market.Criterion {
	c, err := market.ParseCriterion(q.Criterion)
	if err != nil {
		return market.CriterionMedianPerStoreSales
	}
	return c
}

type APIHandlers struct {
	analytics *services.Analytics
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

func (h *APIHandlers) parseQuery(r *http.Request) (industryQuery, error) {
	q := queryFrom(r.URL.Query())
	if err := h.validate.Struct(q); err != nil {
		return q, errors.ValidationWrap(err, "invalid query parameters")
	}
	return q, nil
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if stderrors.Is(err, services.ErrUnknownDistrict) {
		err = errors.Wrap(err, errors.CodeNotFound, "district not found")
	}
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}

type midNode struct {
	Mid    string                `json:"mid"`
	Minors []models.IndustryCode `json:"minors"`
}

type majorNode struct {
	Major string    `json:"major"`
	Mids  []midNode `json:"mids"`
}

func industryTree(catalog *ingest.IndustryCatalog) []majorNode {
	majors := catalog.Majors()
	tree := make([]majorNode, 0, len(majors))
	for _, major := range majors {
		node := majorNode{Major: major}
		for _, mid := range catalog.Mids(major) {
			node.Mids = append(node.Mids, midNode{Mid: mid, Minors: catalog.Minors(major, mid)})
		}
		tree = append(tree, node)
	}
	return tree
}

func (h *APIHandlers) HandleIndustries(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"districts":  h.analytics.Districts(),
		"industries": industryTree(h.analytics.Industries()),
	}
	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandleRankings(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result := h.analytics.Rankings(r.Context(), q.filter(), q.criterion())
	errors.WriteSuccessWithHeaders(w, result, cacheHeaders)
}

func (h *APIHandlers) HandleRankingsExport(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result := h.analytics.Rankings(r.Context(), q.filter(), q.criterion())
	if result.Status == models.StatusNoSelection {
		h.fail(w, r, errors.Validation("select an industry to export"))
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="rankings-%s.xlsx"`, result.Criterion))
	if err := export.RankingWorkbook(w, result.Industry, result.TierAssignment); err != nil {
		h.logger.Error("write ranking workbook", "error", err)
	}
}

func (h *APIHandlers) HandleTargeting(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.analytics.Targeting(r.Context(), r.PathValue("district"), q.filter())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, result)
}

func (h *APIHandlers) HandleHourlyFlow(w http.ResponseWriter, r *http.Request) {
	result, err := h.analytics.HourlyFlow(r.Context(), r.PathValue("district"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, result, cacheHeaders)
}

func (h *APIHandlers) HandleWeeklyFlow(w http.ResponseWriter, r *http.Request) {
	result, err := h.analytics.WeeklyFlow(r.Context(), r.PathValue("district"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, result, cacheHeaders)
}

func (h *APIHandlers) HandleResidency(w http.ResponseWriter, r *http.Request) {
	result, err := h.analytics.Residency(r.Context(), r.PathValue("district"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, result, cacheHeaders)
}
