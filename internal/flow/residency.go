package flow

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"market-dashboard/internal/models"
)

const (
	residentFocusedRatio = 0.65
	visitorFocusedRatio  = 0.35

	genderGapInsight    = 0.1
	visitorShareInsight = 0.3
)

// ResidencyLabels supplies display names and market-type advice.
type ResidencyLabels interface {
	AgeLabeler
	MarketRecommendation(t models.MarketType) string
}

// ClassifyMarket maps a resident ratio onto a market type.
func ClassifyMarket(residentRatio float64) models.MarketType {
	switch {
	case residentRatio >= residentFocusedRatio:
		return models.MarketResidentFocused
	case residentRatio <= visitorFocusedRatio:
		return models.MarketVisitorFocused
	default:
		return models.MarketBalanced
	}
}

// AnalyzeResidency splits the population observed at hour into residents
// and visitors. ok is false when no population was observed at that hour.
func AnalyzeResidency(district string, records []models.FlowRecord, hour int, labels ResidencyLabels) (models.ResidencyAnalysis, bool) {
	type split struct{ resident, visitor float64 }
	type cellKey struct {
		gender models.Gender
		age    int
	}

	var overall split
	genders := map[models.Gender]*split{
		models.GenderMale:   {},
		models.GenderFemale: {},
	}
	cells := make(map[cellKey]*split)

	for _, r := range AtHour(records, hour) {
		overall.resident += r.ResidentFlow
		overall.visitor += r.NonResidentFlow

		if g, ok := genders[r.Gender]; ok {
			g.resident += r.ResidentFlow
			g.visitor += r.NonResidentFlow
		}

		k := cellKey{r.Gender, r.AgeGroup}
		c, ok := cells[k]
		if !ok {
			c = &split{}
			cells[k] = c
		}
		c.resident += r.ResidentFlow
		c.visitor += r.NonResidentFlow
	}

	total := overall.resident + overall.visitor
	if total <= 0 {
		return models.ResidencyAnalysis{District: district}, false
	}

	a := models.ResidencyAnalysis{
		District:      district,
		Resident:      round(overall.resident),
		Visitor:       round(overall.visitor),
		Total:         round(total),
		ResidentRatio: overall.resident / total,
		VisitorRatio:  overall.visitor / total,
		ByGender:      make(map[models.Gender]models.ResidencySplit, len(genders)),
	}
	a.MarketType = ClassifyMarket(a.ResidentRatio)
	a.Recommendation = labels.MarketRecommendation(a.MarketType)

	for g, s := range genders {
		a.ByGender[g] = models.ResidencySplit{
			Resident:      round(s.resident),
			Visitor:       round(s.visitor),
			ResidentRatio: ratio(s.resident, s.resident+s.visitor),
		}
	}

	for k, s := range cells {
		t := s.resident + s.visitor
		if t <= 0 {
			continue
		}
		a.ByAgeGroup = append(a.ByAgeGroup, models.ResidencyCell{
			Gender:        k.gender,
			AgeGroup:      k.age,
			AgeGroupName:  labels.AgeGroupName(k.age),
			Resident:      round(s.resident),
			Visitor:       round(s.visitor),
			Total:         round(t),
			ResidentRatio: s.resident / t,
			VisitorRatio:  s.visitor / t,
		})
	}
	slices.SortFunc(a.ByAgeGroup, func(x, y models.ResidencyCell) int {
		return cmp.Or(cmp.Compare(x.AgeGroup, y.AgeGroup), cmp.Compare(x.Gender, y.Gender))
	})

	a.Insights = residencyInsights(a)
	return a, true
}

func residencyInsights(a models.ResidencyAnalysis) []string {
	insights := []string{}

	male := a.ByGender[models.GenderMale].ResidentRatio
	female := a.ByGender[models.GenderFemale].ResidentRatio
	if gap := male - female; math.Abs(gap) > genderGapInsight {
		if gap > 0 {
			insights = append(insights, fmt.Sprintf("남성이 여성보다 거주 비율이 %.1f%%p 높음", gap*100))
		} else {
			insights = append(insights, fmt.Sprintf("여성이 남성보다 거주 비율이 %.1f%%p 높음", -gap*100))
		}
	}

	if len(a.ByAgeGroup) > 0 {
		top := slices.MaxFunc(a.ByAgeGroup, func(x, y models.ResidencyCell) int {
			return cmp.Compare(x.VisitorRatio, y.VisitorRatio)
		})
		if top.VisitorRatio > visitorShareInsight {
			insights = append(insights, fmt.Sprintf("%s에서 유동인구 비율이 가장 높음 (%.1f%%)", top.AgeGroupName, top.VisitorRatio*100))
		}
	}
	return insights
}

func ratio(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole
}
