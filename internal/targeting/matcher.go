package targeting

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"market-dashboard/internal/market"
	"market-dashboard/internal/models"
	"market-dashboard/internal/refdata"
)

const topGroupCount = 3

// DefaultIndustryName labels a result when no industry level is selected.
const DefaultIndustryName = "선택된 업종"

// SelectTargetGroups picks the three most populous profile cells the
// affinity profile allows. Without an affinity entry every cell is
// allowed. When fewer than three cells pass, the most populous remaining
// cells of the whole profile fill the gap.
func SelectTargetGroups(profile []models.DemographicCell, affinity refdata.AffinityProfile, found bool) []models.DemographicCell {
	ranked := slices.Clone(profile)
	slices.SortStableFunc(ranked, func(a, b models.DemographicCell) int {
		return cmp.Compare(b.Population, a.Population)
	})

	picked := make([]models.DemographicCell, 0, topGroupCount)
	taken := make(map[int]bool, topGroupCount)
	for i, cell := range ranked {
		if len(picked) == topGroupCount {
			break
		}
		if found && !affinity.Allows(cell.Gender, cell.AgeGroup) {
			continue
		}
		picked = append(picked, cell)
		taken[i] = true
	}

	for i, cell := range ranked {
		if len(picked) == topGroupCount {
			break
		}
		if taken[i] {
			continue
		}
		picked = append(picked, cell)
	}
	return picked
}

// IndustryPerformance sums the district's records whose label at the
// filter's most specific level contains the selected value. Sums are
// observed volumes, and the per-store figure is a plain mean. It returns
// nil when nothing matches.
func IndustryPerformance(records []models.CommerceRecord, district string, filter market.IndustryFilter) *models.IndustryPerformance {
	c, ok := filter.MostSpecific()
	if !ok {
		return nil
	}

	perf := models.IndustryPerformance{IndustryName: c.Value}
	matched := 0
	for _, r := range records {
		if r.District != district || !strings.Contains(c.Level.Field(r), c.Value) {
			continue
		}
		perf.TotalSales += r.SalesAmount
		perf.TotalTransactions += r.SalesCount
		perf.StoreCount += r.ActiveMerchants
		matched++
	}
	if matched == 0 {
		return nil
	}
	if perf.StoreCount > 0 {
		perf.AvgSalesPerStore = perf.TotalSales / float64(perf.StoreCount)
	}
	return &perf
}

// Recommendations applies the first keyword rule matching industry, when
// some profile cell satisfies its demographic requirement, followed by a
// statement naming the top target group.
func Recommendations(industry string, profile, top []models.DemographicCell, ref *refdata.Reference) []string {
	out := []string{}

	for _, rule := range ref.Recommendations {
		if !rule.MatchesIndustry(industry) {
			continue
		}
		req := rule.Requirement()
		if slices.ContainsFunc(profile, func(c models.DemographicCell) bool {
			return req.Allows(c.Gender, c.AgeGroup)
		}) {
			out = append(out, rule.Text)
		}
		break
	}

	if len(top) > 0 && ref.TargetTemplate != "" {
		g := top[0]
		out = append(out, strings.NewReplacer(
			"{age}", g.AgeGroupName,
			"{gender}", ref.GenderLabel(g.Gender),
			"{ratio}", strconv.FormatFloat(g.Ratio*100, 'f', 1, 64),
		).Replace(ref.TargetTemplate))
	}
	return out
}

// MatchTargetDemographics builds the targeting result for one district.
// commerce may hold every district's records; flow is the district's own
// population records.
func MatchTargetDemographics(district string, filter market.IndustryFilter, commerce []models.CommerceRecord, flow []models.FlowRecord, hour int, ref *refdata.Reference) models.TargetingResult {
	industry := DefaultIndustryName
	if c, ok := filter.MostSpecific(); ok {
		industry = c.Value
	}

	profile := BuildDemographicProfile(flow, hour, ref)
	affinity, found := ref.LookupAffinity(industry)
	top := SelectTargetGroups(profile, affinity, found)

	return models.TargetingResult{
		District:            district,
		Industry:            industry,
		TopTargetGroups:     top,
		Recommendations:     Recommendations(industry, profile, top, ref),
		IndustryPerformance: IndustryPerformance(commerce, district, filter),
		DemographicProfile:  profile,
	}
}
