package market

import (
	"cmp"
	"fmt"
	"slices"

	"market-dashboard/internal/models"
)

// Criterion selects the statistic districts are ranked by.
type Criterion string

const (
	CriterionMedianPerStoreSales Criterion = "medianPerStoreSales"
	CriterionTotalSales          Criterion = "totalSales"
	CriterionTotalTransactions   Criterion = "totalTransactions"
)

// ParseCriterion accepts the three criterion names; an empty string selects
// median per-store sales. avgSalesPerStore is accepted as an alias.
func ParseCriterion(s string) (Criterion, error) {
	switch s {
	case "", string(CriterionMedianPerStoreSales), "avgSalesPerStore":
		return CriterionMedianPerStoreSales, nil
	case string(CriterionTotalSales):
		return CriterionTotalSales, nil
	case string(CriterionTotalTransactions):
		return CriterionTotalTransactions, nil
	default:
		return "", fmt.Errorf("unknown ranking criterion %q", s)
	}
}

func (c Criterion) Value(s models.DistrictIndustryStatistics) float64 {
	switch c {
	case CriterionTotalSales:
		return s.TotalSales
	case CriterionTotalTransactions:
		return s.TotalTransactions
	default:
		return s.AvgSalesPerStore
	}
}

// tierBounds are the exclusive upper ranks of tiers 1, 2 and 3.
var tierBounds = [3]int{3, 6, 10}

// TierAssignment is the outcome of ranking. Ranked holds every district in
// rank order; Tiers[0..2] are tiers 1..3.
type TierAssignment struct {
	Criterion Criterion                           `json:"criterion"`
	Ranked    []models.DistrictIndustryStatistics `json:"ranked"`
	Tiers     [3][]string                         `json:"tiers"`
	Unranked  []string                            `json:"unranked"`
}

// RankAndTier sorts stats descending by criterion, keeping input order for
// ties, and cuts the result into bands of 3, 3 and 4. Ranks beyond 10 are
// unranked. Short inputs fill the bands up to their length.
func RankAndTier(stats []models.DistrictIndustryStatistics, criterion Criterion) TierAssignment {
	ranked := slices.Clone(stats)
	slices.SortStableFunc(ranked, func(a, b models.DistrictIndustryStatistics) int {
		return cmp.Compare(criterion.Value(b), criterion.Value(a))
	})

	ta := TierAssignment{Criterion: criterion, Ranked: ranked}
	start := 0
	for i, bound := range tierBounds {
		end := min(bound, len(ranked))
		for _, s := range ranked[start:end] {
			ta.Tiers[i] = append(ta.Tiers[i], s.District)
		}
		start = end
	}
	for _, s := range ranked[start:] {
		ta.Unranked = append(ta.Unranked, s.District)
	}
	return ta
}

// TierOf returns 1, 2 or 3 for a tiered district and 0 otherwise.
func (ta TierAssignment) TierOf(district string) int {
	for i, members := range ta.Tiers {
		if slices.Contains(members, district) {
			return i + 1
		}
	}
	return 0
}

// Weight maps a tier to a display weight: 3 for tier 1 down to 0 for
// unranked.
func Weight(tier int) int {
	if tier < 1 || tier > 3 {
		return 0
	}
	return 4 - tier
}
