// Package market turns card transaction records into per-district market
// statistics and ranks districts against each other.
package market

import (
	"math"
	"slices"

	"market-dashboard/internal/models"
)

// DefaultCoverageRatio is the share of true market volume observed by the
// card network.
const DefaultCoverageRatio = 0.175

// Extrapolate scales an observed volume up to the estimated whole market.
// A non-positive or non-finite ratio leaves the value unchanged.
func Extrapolate(observed, ratio float64) float64 {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return observed
	}
	return observed / ratio
}

// Median of values; 0 for an empty slice. values is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mid := n / 2
	if n%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// ComputeDistrictStatistics groups the records that pass filter by district.
// Sales and transaction sums are extrapolated by ratio, store counts are
// not, and the per-store and per-transaction figures are medians of the
// extrapolated record values. Districts appear in order of their first
// matching record; districts with no matching record are absent.
func ComputeDistrictStatistics(records []models.CommerceRecord, filter IndustryFilter, ratio float64) []models.DistrictIndustryStatistics {
	type group struct {
		stats    models.DistrictIndustryStatistics
		perStore []float64
		perTx    []float64
	}

	var order []string
	groups := make(map[string]*group)

	for _, r := range records {
		if !filter.Matches(r) {
			continue
		}
		g, ok := groups[r.District]
		if !ok {
			g = &group{stats: models.DistrictIndustryStatistics{District: r.District}}
			groups[r.District] = g
			order = append(order, r.District)
		}
		g.stats.TotalSales += Extrapolate(r.SalesAmount, ratio)
		g.stats.TotalTransactions += Extrapolate(r.SalesCount, ratio)
		g.stats.TotalStores += r.ActiveMerchants
		g.perStore = append(g.perStore, Extrapolate(r.SalesPerStore, ratio))
		g.perTx = append(g.perTx, Extrapolate(r.SalesPerTx, ratio))
	}

	out := make([]models.DistrictIndustryStatistics, 0, len(order))
	for _, district := range order {
		g := groups[district]
		g.stats.AvgSalesPerStore = Median(g.perStore)
		g.stats.AvgSalesPerTx = Median(g.perTx)
		out = append(out, g.stats)
	}
	return out
}
