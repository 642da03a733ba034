package flow

import (
	"math"
	"strconv"

	"market-dashboard/internal/models"
)

// AgeLabeler names an age-group code for display.
type AgeLabeler interface {
	AgeGroupName(code int) string
}

// HourlyChart converts hourly buckets into chart points labelled "14시".
func HourlyChart(hours []models.HourlyFlow, ages AgeLabeler) []models.ChartPoint {
	out := make([]models.ChartPoint, 0, len(hours))
	for _, h := range hours {
		out = append(out, chartPoint(strconv.Itoa(h.Hour)+"시", h.FlowBucket, ages))
	}
	return out
}

// WeeklyChart converts weekday buckets into chart points labelled with the
// Korean day name.
func WeeklyChart(days []models.WeekdayFlow, ages AgeLabeler) []models.ChartPoint {
	out := make([]models.ChartPoint, 0, len(days))
	for _, d := range days {
		out = append(out, chartPoint(WeekdayLabel(d.Day), d.FlowBucket, ages))
	}
	return out
}

// chartPoint scales the total to thousands with two decimals and keeps the
// rounded raw total next to it.
func chartPoint(label string, b models.FlowBucket, ages AgeLabeler) models.ChartPoint {
	p := models.ChartPoint{
		Label:    label,
		Total:    math.Round(b.Total/1000*100) / 100,
		TotalRaw: round(b.Total),
		Male:     round(b.ByGender[models.GenderMale]),
		Female:   round(b.ByGender[models.GenderFemale]),
		ByAge:    make(map[string]int64, len(b.ByAgeGroup)),
	}
	for age, v := range b.ByAgeGroup {
		p.ByAge[ages.AgeGroupName(age)] = round(v)
	}
	return p
}

func round(v float64) int64 {
	return int64(math.Round(v))
}
