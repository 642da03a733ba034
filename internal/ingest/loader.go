package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"market-dashboard/internal/models"
	"market-dashboard/internal/observability"
	"market-dashboard/internal/refdata"
)

type Kind string

const (
	KindCommerce Kind = "commerce"
	KindFlow     Kind = "flow"
	KindCatalog  Kind = "catalog"
)

type Outcome string

const (
	OutcomeLoaded  Outcome = "loaded"
	OutcomeEmpty   Outcome = "empty"
	OutcomeMissing Outcome = "missing"
	OutcomeFailed  Outcome = "failed"
)

const (
	defaultMaxWorkers   = 8
	defaultFetchTimeout = 10 * time.Second
)

// LoadReport lists districts by outcome, each in request order.
type LoadReport struct {
	Loaded  []string `json:"loaded"`
	Empty   []string `json:"empty"`
	Missing []string `json:"missing"`
	Failed  []string `json:"failed"`
}

func (r *LoadReport) add(district string, o Outcome) {
	switch o {
	case OutcomeLoaded:
		r.Loaded = append(r.Loaded, district)
	case OutcomeEmpty:
		r.Empty = append(r.Empty, district)
	case OutcomeMissing:
		r.Missing = append(r.Missing, district)
	default:
		r.Failed = append(r.Failed, district)
	}
}

type LoaderOptions struct {
	MaxWorkers   int
	FetchTimeout time.Duration
	Logger       *slog.Logger
	Metrics      *observability.Metrics
}

// Loader reads per-district extracts. A district whose file is unknown,
// missing or unreadable contributes zero records; it never fails the
// batch.
type Loader struct {
	source       Source
	ref          *refdata.Reference
	parser       *Parser
	logger       *slog.Logger
	metrics      *observability.Metrics
	maxWorkers   int
	fetchTimeout time.Duration
}

func NewLoader(source Source, ref *refdata.Reference, opts LoaderOptions) *Loader {
	if opts.Logger == nil {
		opts.Logger = observability.Discard()
	}
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = defaultMaxWorkers
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	return &Loader{
		source:       source,
		ref:          ref,
		parser:       NewParser(opts.Logger, opts.Metrics),
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		maxWorkers:   opts.MaxWorkers,
		fetchTimeout: opts.FetchTimeout,
	}
}

func (l *Loader) LoadCommerceDistrict(ctx context.Context, district string) []models.CommerceRecord {
	records, _ := l.commerceDistrict(ctx, district)
	return records
}

func (l *Loader) LoadFlowDistrict(ctx context.Context, district string) []models.FlowRecord {
	records, _ := l.flowDistrict(ctx, district)
	return records
}

// LoadCommerce reads every district concurrently and concatenates the
// records in district order.
func (l *Loader) LoadCommerce(ctx context.Context, districts []string) ([]models.CommerceRecord, LoadReport) {
	return loadAll(ctx, l, districts, l.commerceDistrict)
}

func (l *Loader) LoadFlow(ctx context.Context, districts []string) ([]models.FlowRecord, LoadReport) {
	return loadAll(ctx, l, districts, l.flowDistrict)
}

func loadAll[T any](ctx context.Context, l *Loader, districts []string,
	load func(context.Context, string) ([]T, Outcome)) ([]T, LoadReport) {

	results := make([][]T, len(districts))
	outcomes := make([]Outcome, len(districts))

	var g errgroup.Group
	g.SetLimit(l.maxWorkers)

	for i, district := range districts {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					l.logger.Error("district load panicked", "district", district, "panic", r)
					results[i], outcomes[i] = nil, OutcomeFailed
				}
			}()
			results[i], outcomes[i] = load(ctx, district)
			return nil
		})
	}
	_ = g.Wait()

	var report LoadReport
	total := 0
	for i, district := range districts {
		report.add(district, outcomes[i])
		total += len(results[i])
	}

	all := make([]T, 0, total)
	for _, rs := range results {
		all = append(all, rs...)
	}
	return all, report
}

func (l *Loader) commerceDistrict(ctx context.Context, district string) ([]models.CommerceRecord, Outcome) {
	name, ok := l.ref.CommerceFile(district)
	if !ok {
		return nil, l.missing(KindCommerce, district, ErrUnknownDistrict)
	}

	var records []models.CommerceRecord
	outcome := l.read(ctx, KindCommerce, district, name, func(p *Parser, r io.Reader) error {
		var err error
		records, err = p.Commerce(r)
		return err
	})
	if outcome != OutcomeLoaded {
		return nil, outcome
	}
	for i := range records {
		if records[i].District == "" {
			records[i].District = district
		}
	}
	return records, l.finish(KindCommerce, district, len(records), outcome)
}

func (l *Loader) flowDistrict(ctx context.Context, district string) ([]models.FlowRecord, Outcome) {
	name, ok := l.ref.FlowFile(district)
	if !ok {
		return nil, l.missing(KindFlow, district, ErrUnknownDistrict)
	}

	var records []models.FlowRecord
	outcome := l.read(ctx, KindFlow, district, name, func(p *Parser, r io.Reader) error {
		var err error
		records, err = p.PopulationFlow(r)
		return err
	})
	if outcome != OutcomeLoaded {
		return nil, outcome
	}
	for i := range records {
		if records[i].District == "" {
			records[i].District = district
		}
	}
	return records, l.finish(KindFlow, district, len(records), outcome)
}

// read opens name under the per-file timeout and hands it to parse. It
// returns OutcomeLoaded on success, otherwise the degraded outcome it
// already logged.
func (l *Loader) read(ctx context.Context, kind Kind, district, name string,
	parse func(*Parser, io.Reader) error) Outcome {

	fctx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
	defer cancel()

	rc, err := l.source.Open(fctx, name)
	if errors.Is(err, ErrSourceNotFound) {
		return l.missing(kind, district, err)
	}
	if err != nil {
		return l.failed(kind, district, err)
	}
	defer rc.Close()

	if err := parse(l.parser, rc); err != nil {
		return l.failed(kind, district, fmt.Errorf("parse %s: %w", name, err))
	}
	return OutcomeLoaded
}

func (l *Loader) finish(kind Kind, district string, n int, outcome Outcome) Outcome {
	if n == 0 {
		outcome = OutcomeEmpty
	}
	l.metrics.ObserveLoad(string(kind), string(outcome))
	l.logger.Info("district extract loaded", "kind", kind, "district", district, "records", n)
	return outcome
}

func (l *Loader) missing(kind Kind, district string, err error) Outcome {
	l.metrics.ObserveLoad(string(kind), string(OutcomeMissing))
	l.logger.Warn("no extract for district", "kind", kind, "district", district, "reason", err)
	return OutcomeMissing
}

func (l *Loader) failed(kind Kind, district string, err error) Outcome {
	l.metrics.ObserveLoad(string(kind), string(OutcomeFailed))
	l.logger.Warn("district extract unreadable", "kind", kind, "district", district, "error", err)
	return OutcomeFailed
}
