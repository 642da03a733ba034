package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"market-dashboard/internal/flow"
	"market-dashboard/internal/ingest"
	"market-dashboard/internal/market"
	"market-dashboard/internal/models"
	"market-dashboard/internal/observability"
	"market-dashboard/internal/refdata"
	"market-dashboard/internal/targeting"
)

// ErrUnknownDistrict is returned for districts absent from the reference
// data.
var ErrUnknownDistrict = errors.New("unknown district")

// Options tunes the service. A nil RepresentativeHour means
// targeting.DefaultHour; hour 0 must be asked for explicitly.
type Options struct {
	CoverageRatio      float64
	RepresentativeHour *int
	CatalogName        string
	Logger             *slog.Logger
}

type RankingResult struct {
	Status   models.ResultStatus `json:"status"`
	Industry string              `json:"industry"`
	market.TierAssignment
}

type TargetingResult struct {
	Status models.ResultStatus     `json:"status"`
	Result *models.TargetingResult `json:"result,omitempty"`
}

type FlowResult struct {
	Status   models.ResultStatus  `json:"status"`
	District string               `json:"district"`
	Hourly   []models.HourlyFlow  `json:"hourly,omitempty"`
	Weekly   []models.WeekdayFlow `json:"weekly,omitempty"`
	Chart    []models.ChartPoint  `json:"chart"`
}

type ResidencyResult struct {
	Status   models.ResultStatus       `json:"status"`
	Analysis *models.ResidencyAnalysis `json:"analysis,omitempty"`
}

// Analytics holds the loaded card records for every district and the
// mobile population records of the districts asked about so far. All query
// methods are safe for concurrent use.
type Analytics struct {
	mu         sync.RWMutex
	commerce   []models.CommerceRecord
	flow       map[string][]models.FlowRecord
	catalog    *ingest.IndustryCatalog
	report     ingest.LoadReport
	lastLoaded time.Time

	recordsLoaded atomic.Int64
	flowLoads     singleflight.Group

	loader      *ingest.Loader
	ref         *refdata.Reference
	coverage    float64
	hour        int
	catalogName string
	logger      *slog.Logger
}

func NewAnalytics(loader *ingest.Loader, ref *refdata.Reference, opts Options) *Analytics {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CoverageRatio <= 0 {
		opts.CoverageRatio = market.DefaultCoverageRatio
	}
	hour := targeting.DefaultHour
	if h := opts.RepresentativeHour; h != nil && *h >= 0 && *h <= 23 {
		hour = *h
	}
	return &Analytics{
		flow:        make(map[string][]models.FlowRecord),
		catalog:     ingest.NewIndustryCatalog(nil),
		loader:      loader,
		ref:         ref,
		coverage:    opts.CoverageRatio,
		hour:        hour,
		catalogName: opts.CatalogName,
		logger:      opts.Logger,
	}
}

// Load reads the industry catalog and every district's card extract.
// Districts without data are reported, not treated as failures; only a
// cancelled context fails the load.
func (a *Analytics) Load(ctx context.Context) (err error) {
	ctx, span := observability.StartSpan(ctx, "analytics.load")
	defer func() { observability.EndSpan(span, err) }()

	start := time.Now()

	catalog := ingest.NewIndustryCatalog(nil)
	if a.catalogName != "" {
		c, err := a.loader.LoadIndustryCatalog(ctx, a.catalogName)
		if err != nil {
			a.logger.Warn("industry catalog unavailable", "name", a.catalogName, "error", err)
		} else {
			catalog = c
		}
	}

	records, report := a.loader.LoadCommerce(ctx, a.ref.DistrictNames())
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("load commerce records: %w", err)
	}

	if catalog.Len() == 0 {
		catalog = catalogFromRecords(records)
	}

	a.mu.Lock()
	a.commerce = records
	a.catalog = catalog
	a.report = report
	a.lastLoaded = time.Now()
	a.mu.Unlock()
	a.recordsLoaded.Store(int64(len(records)))

	span.SetAttributes(
		attribute.Int("records", len(records)),
		attribute.Int("districts.loaded", len(report.Loaded)),
	)

	duration := time.Since(start)
	a.logger.Info("commerce records loaded",
		"records", len(records),
		"districts_loaded", len(report.Loaded),
		"districts_empty", len(report.Empty),
		"districts_missing", len(report.Missing),
		"districts_failed", len(report.Failed),
		"industries", catalog.Len(),
		"duration", duration,
	)
	if len(records) == 0 {
		a.logger.Warn("no commerce records found; rankings will report no data")
	}
	return nil
}

// catalogFromRecords derives the classification tree from the records
// themselves when no catalog file is available.
func catalogFromRecords(records []models.CommerceRecord) *ingest.IndustryCatalog {
	seen := make(map[models.IndustryCode]bool)
	var codes []models.IndustryCode
	for _, r := range records {
		c := models.IndustryCode{Major: r.IndustryMajor, Mid: r.IndustryMid, Minor: r.IndustryMinor}
		if c.Major == "" || seen[c] {
			continue
		}
		seen[c] = true
		codes = append(codes, c)
	}
	return ingest.NewIndustryCatalog(codes)
}

// SetCommerce replaces the card records, bypassing the loader.
func (a *Analytics) SetCommerce(records []models.CommerceRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.commerce = records
	a.catalog = catalogFromRecords(records)
	a.lastLoaded = time.Now()
	a.recordsLoaded.Store(int64(len(records)))
}

// SetFlow replaces the memoized population records of one district.
func (a *Analytics) SetFlow(district string, records []models.FlowRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flow[district] = records
}

func (a *Analytics) Districts() []string {
	return a.ref.DistrictNames()
}

func (a *Analytics) Industries() *ingest.IndustryCatalog {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.catalog
}

func (a *Analytics) Reference() *refdata.Reference {
	return a.ref
}

// Rankings ranks districts for the selected industry. An empty filter is
// reported as no selection rather than ranking every record.
func (a *Analytics) Rankings(ctx context.Context, filter market.IndustryFilter, criterion market.Criterion) RankingResult {
	_, span := observability.StartSpan(ctx, "analytics.rankings",
		attribute.String("industry", filter.Label()),
		attribute.String("criterion", string(criterion)),
	)
	defer span.End()

	result := RankingResult{
		Status:         models.StatusNoSelection,
		Industry:       filter.Label(),
		TierAssignment: market.TierAssignment{Criterion: criterion},
	}
	if filter.Empty() {
		return result
	}

	a.mu.RLock()
	stats := market.ComputeDistrictStatistics(a.commerce, filter, a.coverage)
	a.mu.RUnlock()

	if len(stats) == 0 {
		result.Status = models.StatusNoData
		return result
	}

	result.Status = models.StatusOK
	result.TierAssignment = market.RankAndTier(stats, criterion)
	span.SetAttributes(attribute.Int("districts", len(stats)))
	return result
}

// Targeting matches the district's population against the selected
// industry's audience.
func (a *Analytics) Targeting(ctx context.Context, district string, filter market.IndustryFilter) (res TargetingResult, err error) {
	ctx, span := observability.StartSpan(ctx, "analytics.targeting",
		attribute.String("district", district),
		attribute.String("industry", filter.Label()),
	)
	defer func() { observability.EndSpan(span, err) }()

	records, err := a.flowFor(ctx, district)
	if err != nil {
		return TargetingResult{}, err
	}
	if filter.Empty() {
		return TargetingResult{Status: models.StatusNoSelection}, nil
	}
	if len(records) == 0 {
		return TargetingResult{Status: models.StatusNoData}, nil
	}

	a.mu.RLock()
	result := targeting.MatchTargetDemographics(district, filter, a.commerce, records, a.hour, a.ref)
	a.mu.RUnlock()

	if len(result.DemographicProfile) == 0 {
		return TargetingResult{Status: models.StatusNoData}, nil
	}
	return TargetingResult{Status: models.StatusOK, Result: &result}, nil
}

func (a *Analytics) HourlyFlow(ctx context.Context, district string) (FlowResult, error) {
	records, err := a.flowFor(ctx, district)
	if err != nil {
		return FlowResult{}, err
	}

	hours := flow.AggregateByHour(records)
	res := FlowResult{
		Status:   statusOf(len(hours)),
		District: district,
		Hourly:   hours,
		Chart:    flow.HourlyChart(hours, a.ref),
	}
	return res, nil
}

func (a *Analytics) WeeklyFlow(ctx context.Context, district string) (FlowResult, error) {
	records, err := a.flowFor(ctx, district)
	if err != nil {
		return FlowResult{}, err
	}

	days := flow.AggregateByDayOfWeek(records)
	res := FlowResult{
		Status:   statusOf(len(days)),
		District: district,
		Weekly:   days,
		Chart:    flow.WeeklyChart(days, a.ref),
	}
	return res, nil
}

func (a *Analytics) Residency(ctx context.Context, district string) (ResidencyResult, error) {
	records, err := a.flowFor(ctx, district)
	if err != nil {
		return ResidencyResult{}, err
	}

	analysis, ok := flow.AnalyzeResidency(district, records, a.hour, a.ref)
	if !ok {
		return ResidencyResult{Status: models.StatusNoData}, nil
	}
	return ResidencyResult{Status: models.StatusOK, Analysis: &analysis}, nil
}

// flowFor returns the district's population records, loading them on first
// use. Concurrent first requests share one load. Empty loads are not
// memoized so a file added later is picked up.
func (a *Analytics) flowFor(ctx context.Context, district string) ([]models.FlowRecord, error) {
	if !a.ref.HasDistrict(district) {
		return nil, fmt.Errorf("%s: %w", district, ErrUnknownDistrict)
	}

	a.mu.RLock()
	records, ok := a.flow[district]
	a.mu.RUnlock()
	if ok {
		return records, nil
	}

	v, _, _ := a.flowLoads.Do(district, func() (any, error) {
		loaded := a.loader.LoadFlowDistrict(context.WithoutCancel(ctx), district)
		if len(loaded) > 0 {
			a.mu.Lock()
			a.flow[district] = loaded
			a.mu.Unlock()
		}
		return loaded, nil
	})
	return v.([]models.FlowRecord), nil
}

func statusOf(n int) models.ResultStatus {
	if n == 0 {
		return models.StatusNoData
	}
	return models.StatusOK
}

// RepresentativeHour is the hour of day profiles and residency are read at.
func (a *Analytics) RepresentativeHour() int {
	return a.hour
}

// Stats reports what is loaded, for monitoring.
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"record_count":      a.recordsLoaded.Load(),
		"last_loaded":       a.lastLoaded,
		"districts":         len(a.ref.Districts),
		"districts_loaded":  a.report.Loaded,
		"districts_empty":   a.report.Empty,
		"districts_missing": a.report.Missing,
		"districts_failed":  a.report.Failed,
		"flow_districts":    len(a.flow),
		"industries":        a.catalog.Len(),
		"coverage_ratio":    a.coverage,
		"hour":              a.hour,
	}
}
