package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jszwec/csvutil"

	"market-dashboard/internal/models"
)

// catalogHeader names the catalog columns positionally; the header line in
// the published file is skipped.
var catalogHeader = []string{"code", "class1", "class2", "class3"}

// IndustryCatalog is the three-level card industry classification.
type IndustryCatalog struct {
	codes []models.IndustryCode
	tree  map[string]map[string][]models.IndustryCode
}

// ParseIndustryCatalog decodes the quoted code,class1,class2,class3 file.
// Rows without all four columns are skipped.
func ParseIndustryCatalog(r io.Reader) (*IndustryCatalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return NewIndustryCatalog(nil), nil
		}
		return nil, fmt.Errorf("read catalog header: %w", err)
	}

	dec, err := csvutil.NewDecoder(cr, catalogHeader...)
	if err != nil {
		return nil, fmt.Errorf("create catalog decoder: %w", err)
	}

	var codes []models.IndustryCode
	for {
		var code models.IndustryCode
		err := dec.Decode(&code)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, csvutil.ErrFieldCount) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("decode catalog row: %w", err)
		}
		code.Code = strings.TrimSpace(code.Code)
		code.Major = strings.TrimSpace(code.Major)
		code.Mid = strings.TrimSpace(code.Mid)
		code.Minor = strings.TrimSpace(code.Minor)
		if code.Major == "" {
			continue
		}
		codes = append(codes, code)
	}
	return NewIndustryCatalog(codes), nil
}

func NewIndustryCatalog(codes []models.IndustryCode) *IndustryCatalog {
	tree := make(map[string]map[string][]models.IndustryCode)
	for _, c := range codes {
		mids, ok := tree[c.Major]
		if !ok {
			mids = make(map[string][]models.IndustryCode)
			tree[c.Major] = mids
		}
		mids[c.Mid] = append(mids[c.Mid], c)
	}
	return &IndustryCatalog{codes: codes, tree: tree}
}

func (c *IndustryCatalog) Len() int {
	return len(c.codes)
}

func (c *IndustryCatalog) Codes() []models.IndustryCode {
	return slices.Clone(c.codes)
}

func (c *IndustryCatalog) Majors() []string {
	out := make([]string, 0, len(c.tree))
	for major := range c.tree {
		out = append(out, major)
	}
	slices.Sort(out)
	return out
}

func (c *IndustryCatalog) Mids(major string) []string {
	mids := c.tree[major]
	out := make([]string, 0, len(mids))
	for mid := range mids {
		out = append(out, mid)
	}
	slices.Sort(out)
	return out
}

// Minors returns the leaf codes under (major, mid) sorted by label.
func (c *IndustryCatalog) Minors(major, mid string) []models.IndustryCode {
	out := slices.Clone(c.tree[major][mid])
	slices.SortStableFunc(out, func(a, b models.IndustryCode) int {
		return strings.Compare(a.Minor, b.Minor)
	})
	return out
}

// LoadIndustryCatalog reads the catalog file through the loader's source.
// A missing catalog yields an empty catalog.
func (l *Loader) LoadIndustryCatalog(ctx context.Context, name string) (*IndustryCatalog, error) {
	fctx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
	defer cancel()

	rc, err := l.source.Open(fctx, name)
	if errors.Is(err, ErrSourceNotFound) {
		l.metrics.ObserveLoad(string(KindCatalog), string(OutcomeMissing))
		l.logger.Warn("industry catalog not found", "name", name)
		return NewIndustryCatalog(nil), nil
	}
	if err != nil {
		l.metrics.ObserveLoad(string(KindCatalog), string(OutcomeFailed))
		return nil, err
	}
	defer rc.Close()

	catalog, err := ParseIndustryCatalog(rc)
	if err != nil {
		l.metrics.ObserveLoad(string(KindCatalog), string(OutcomeFailed))
		return nil, err
	}
	l.metrics.ObserveLoad(string(KindCatalog), string(OutcomeLoaded))
	l.logger.Info("industry catalog loaded", "name", name, "codes", catalog.Len())
	return catalog, nil
}
