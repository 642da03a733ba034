package ingest

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"market-dashboard/internal/models"
	"market-dashboard/internal/observability"
)

const (
	commerceHeaderLines = 1
	commerceMinFields   = 13

	flowHeaderLines = 2
	flowMinFields   = 13

	maxLineBytes = 10 * 1024 * 1024
)

// Parser turns raw extract text into typed records. Rows that are too
// short or out of range are skipped and logged; parsing never fails on
// content, only on read errors.
type Parser struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewParser(logger *slog.Logger, metrics *observability.Metrics) *Parser {
	if logger == nil {
		logger = observability.Discard()
	}
	return &Parser{logger: logger, metrics: metrics}
}

// ParseCommerceRecords parses card transaction text with a silent parser.
func ParseCommerceRecords(text string) []models.CommerceRecord {
	records, _ := NewParser(nil, nil).Commerce(strings.NewReader(text))
	return records
}

// ParsePopulationFlowRecords parses mobile population text with a silent
// parser.
func ParsePopulationFlowRecords(text string) []models.FlowRecord {
	records, _ := NewParser(nil, nil).PopulationFlow(strings.NewReader(text))
	return records
}

func (p *Parser) Commerce(r io.Reader) ([]models.CommerceRecord, error) {
	var records []models.CommerceRecord
	err := p.scan(r, string(KindCommerce), commerceHeaderLines, commerceMinFields, func(f []string) bool {
		records = append(records, models.CommerceRecord{
			Province:        f[0],
			District:        f[1],
			Period:          f[2],
			IndustryMajor:   f[3],
			IndustryMid:     f[4],
			IndustryMinor:   f[5],
			NewMerchants:    toCount(f[6]),
			ClosedMerchants: toCount(f[7]),
			ActiveMerchants: toCount(f[8]),
			SalesAmount:     toAmount(f[9]),
			SalesCount:      toAmount(f[10]),
			SalesPerStore:   toAmount(f[11]),
			SalesPerTx:      toAmount(f[12]),
		})
		return true
	})
	return records, err
}

func (p *Parser) PopulationFlow(r io.Reader) ([]models.FlowRecord, error) {
	var records []models.FlowRecord
	err := p.scan(r, string(KindFlow), flowHeaderLines, flowMinFields, func(f []string) bool {
		hour := int(toCount(f[8]))
		age := int(toCount(f[10]))
		if hour > 23 || age > 7 {
			return false
		}
		resident := toAmount(f[11])
		nonResident := toAmount(f[12])
		records = append(records, models.FlowRecord{
			IndexKey:        f[0],
			Date:            f[1],
			Week:            int(toCount(f[2])),
			DayName:         f[3],
			ProvinceCode:    f[4],
			ProvinceName:    f[5],
			DistrictCode:    f[6],
			District:        f[7],
			Hour:            hour,
			Gender:          NormalizeGender(f[9]),
			AgeGroup:        age,
			ResidentFlow:    resident,
			NonResidentFlow: nonResident,
			TotalFlow:       resident + nonResident,
		})
		return true
	})
	return records, err
}

// scan feeds every data line with at least minFields fields to accept.
// accept reports false for rows it rejects.
func (p *Parser) scan(r io.Reader, kind string, headerLines, minFields int, accept func([]string) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo, parsed, skipped := 0, 0, 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= headerLines {
			continue
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := SplitFields(line)
		if len(fields) < minFields {
			skipped++
			p.logger.Debug("skipping short row",
				"kind", kind,
				"line", lineNo,
				"fields", len(fields),
				"want", minFields,
			)
			continue
		}
		if !accept(fields) {
			skipped++
			p.logger.Debug("skipping out-of-range row", "kind", kind, "line", lineNo)
			continue
		}
		parsed++
	}

	p.metrics.ObserveParse(kind, parsed, skipped)
	if skipped > 0 {
		p.logger.Info("rows skipped while parsing", "kind", kind, "parsed", parsed, "skipped", skipped)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan %s rows: %w", kind, err)
	}
	return nil
}

// NormalizeGender maps the spellings seen in flow extracts onto MALE and
// FEMALE. Every value that is not a male spelling counts as FEMALE, so the
// two gender buckets always cover every row.
func NormalizeGender(s string) models.Gender {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MALE", "M", "남", "남성":
		return models.GenderMale
	default:
		return models.GenderFemale
	}
}

// toAmount coerces a numeric field; anything unparsable, negative or
// non-finite becomes 0.
func toAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func toCount(s string) int64 {
	return int64(toAmount(s))
}
