// Package targeting matches a district's demographic profile against an
// industry's presumed audience.
package targeting

import (
	"cmp"
	"math"
	"slices"

	"market-dashboard/internal/models"
)

// DefaultHour is the representative hour of day for demographic profiles.
const DefaultHour = 14

type AgeLabeler interface {
	AgeGroupName(code int) string
}

// BuildDemographicProfile sums resident and visitor flow per (gender, age
// group) at hour and gives each cell its share of the grand total. Cells
// are ordered by population, then gender, then age group.
func BuildDemographicProfile(records []models.FlowRecord, hour int, labels AgeLabeler) []models.DemographicCell {
	type key struct {
		gender models.Gender
		age    int
	}

	sums := make(map[key]float64)
	var grand float64
	for _, r := range records {
		if r.Hour != hour {
			continue
		}
		sums[key{r.Gender, r.AgeGroup}] += r.TotalFlow
		grand += r.TotalFlow
	}

	profile := make([]models.DemographicCell, 0, len(sums))
	for k, v := range sums {
		cell := models.DemographicCell{
			Gender:       k.gender,
			AgeGroup:     k.age,
			AgeGroupName: labels.AgeGroupName(k.age),
			Population:   int64(math.Round(v)),
		}
		if grand > 0 {
			cell.Ratio = v / grand
		}
		profile = append(profile, cell)
	}

	slices.SortFunc(profile, func(a, b models.DemographicCell) int {
		return cmp.Or(
			cmp.Compare(b.Population, a.Population),
			cmp.Compare(a.Gender, b.Gender),
			cmp.Compare(a.AgeGroup, b.AgeGroup),
		)
	})
	return profile
}
