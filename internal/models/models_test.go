package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONTagsAreCamelCase(t *testing.T) {
	types := []any{
		CommerceRecord{}, DistrictIndustryStatistics{}, IndustryCode{},
		FlowRecord{}, FlowBucket{}, HourlyFlow{}, WeekdayFlow{}, ChartPoint{},
		ResidencySplit{}, ResidencyCell{}, ResidencyAnalysis{},
		DemographicCell{}, IndustryPerformance{}, TargetingResult{},
	}

	for _, v := range types {
		typ := reflect.TypeOf(v)
		for i := range typ.NumField() {
			f := typ.Field(i)
			tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if tag == "" {
				continue
			}
			assert.NotContains(t, tag, "_", "%s.%s", typ.Name(), f.Name)
		}
	}
}

func TestChartPointJSON(t *testing.T) {
	data, err := json.Marshal(ChartPoint{Label: "14시", Total: 1.5, TotalRaw: 1500, ByAge: map[string]int64{"20대": 10}})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Contains(t, out, "totalRaw")
	assert.Contains(t, out, "byAge")
}
