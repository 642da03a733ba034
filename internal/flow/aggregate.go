// Package flow aggregates mobile population records over hours of the day
// and days of the week, and splits a district's population into residents
// and visitors.
package flow

import (
	"market-dashboard/internal/models"
)

type accumulator struct {
	total    float64
	byGender map[models.Gender]float64
	byAge    map[int]float64
	count    int
}

func (a *accumulator) add(r models.FlowRecord) {
	if a.byGender == nil {
		a.byGender = make(map[models.Gender]float64)
		a.byAge = make(map[int]float64)
	}
	a.total += r.TotalFlow
	a.byGender[r.Gender] += r.TotalFlow
	a.byAge[r.AgeGroup] += r.TotalFlow
	a.count++
}

// bucket divides every sum by the bucket's own row count, which turns
// repeated daily observations into a daily average.
func (a *accumulator) bucket() models.FlowBucket {
	b := models.FlowBucket{
		ByGender:         make(map[models.Gender]float64, len(a.byGender)),
		ByAgeGroup:       make(map[int]float64, len(a.byAge)),
		ObservationCount: a.count,
	}
	if a.count == 0 {
		return b
	}
	n := float64(a.count)
	b.Total = a.total / n
	for g, v := range a.byGender {
		b.ByGender[g] = v / n
	}
	for age, v := range a.byAge {
		b.ByAgeGroup[age] = v / n
	}
	return b
}

// AggregateByHour returns one daily-average bucket per hour that has
// records, in ascending hour order.
func AggregateByHour(records []models.FlowRecord) []models.HourlyFlow {
	var hours [24]accumulator
	for _, r := range records {
		if r.Hour < 0 || r.Hour > 23 {
			continue
		}
		hours[r.Hour].add(r)
	}

	var out []models.HourlyFlow
	for h := range hours {
		if hours[h].count == 0 {
			continue
		}
		out = append(out, models.HourlyFlow{Hour: h, FlowBucket: hours[h].bucket()})
	}
	return out
}

// AggregateByDayOfWeek returns one daily-average bucket per weekday that has
// records, Monday first. Rows with an unrecognized day name are dropped.
func AggregateByDayOfWeek(records []models.FlowRecord) []models.WeekdayFlow {
	var days [7]accumulator
	for _, r := range records {
		i, ok := WeekdayIndex(r.DayName)
		if !ok {
			continue
		}
		days[i].add(r)
	}

	var out []models.WeekdayFlow
	for i := range days {
		if days[i].count == 0 {
			continue
		}
		out = append(out, models.WeekdayFlow{Day: weekdays[i].Code, FlowBucket: days[i].bucket()})
	}
	return out
}

// AtHour keeps the records observed at hour.
func AtHour(records []models.FlowRecord, hour int) []models.FlowRecord {
	var out []models.FlowRecord
	for _, r := range records {
		if r.Hour == hour {
			out = append(out, r)
		}
	}
	return out
}
