package refdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-dashboard/internal/models"
)

func TestDefault(t *testing.T) {
	ref, err := Default()
	require.NoError(t, err)

	assert.Len(t, ref.Districts, 25)
	assert.Equal(t, "강남구", ref.DistrictNames()[0])

	period, ok := ref.Period("관악구")
	require.True(t, ok)
	assert.Equal(t, "202009", period)

	file, ok := ref.CommerceFile("강남구")
	require.True(t, ok)
	assert.Equal(t, "구별/신한카드_서울_강남구_202011.csv", file)

	flow, ok := ref.FlowFile("중구")
	require.True(t, ok)
	assert.Equal(t, "지리는데이타/서울시 중구 유동인구 수.CSV", flow)

	assert.Equal(t, "20-29세", ref.AgeGroupName(2))
	assert.Equal(t, "연령대 9", ref.AgeGroupName(9))
	assert.Equal(t, "여성", ref.GenderLabel(models.GenderFemale))
	assert.NotEmpty(t, ref.MarketRecommendation(models.MarketBalanced))
}

func TestUnknownDistrict(t *testing.T) {
	ref, err := Default()
	require.NoError(t, err)

	_, ok := ref.Period("해운대구")
	assert.False(t, ok)
	_, ok = ref.CommerceFile("해운대구")
	assert.False(t, ok)
	_, ok = ref.FlowFile("해운대구")
	assert.False(t, ok)
}

func TestDistrictWithoutPeriodHasFlowButNoCommerce(t *testing.T) {
	ref, err := Parse([]byte(`
commerce_file_pattern: "c_{district}_{period}.csv"
flow_file_pattern: "f_{district}.csv"
districts:
  - {name: A, period: "202001"}
  - {name: B}
`))
	require.NoError(t, err)

	_, ok := ref.CommerceFile("B")
	assert.False(t, ok)
	f, ok := ref.FlowFile("B")
	assert.True(t, ok)
	assert.Equal(t, "f_B.csv", f)
}

func TestAffinityProfile_Allows(t *testing.T) {
	p := AffinityProfile{Genders: []models.Gender{models.GenderMale}, AgeGroups: []int{2, 4}}
	assert.True(t, p.Allows(models.GenderMale, 2))
	assert.False(t, p.Allows(models.GenderFemale, 2))
	assert.False(t, p.Allows(models.GenderMale, 3))

	assert.True(t, AffinityProfile{}.Allows(models.GenderFemale, 7))

	ref, err := Default()
	require.NoError(t, err)
	coffee, ok := ref.LookupAffinity("커피전문점")
	require.True(t, ok)
	assert.Contains(t, coffee.AgeGroups, 3)
}

func TestRecommendationRule_MatchesIndustry(t *testing.T) {
	r := RecommendationRule{Keywords: []string{"커피", "카페"}}
	assert.True(t, r.MatchesIndustry("커피전문점"))
	assert.True(t, r.MatchesIndustry("키즈카페"))
	assert.False(t, r.MatchesIndustry("한식"))
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"no districts": `commerce_file_pattern: "{district}"
flow_file_pattern: "{district}"`,
		"duplicate district": `commerce_file_pattern: "{district}"
flow_file_pattern: "{district}"
districts: [{name: A, period: "1"}, {name: A, period: "2"}]`,
		"bad age code": `commerce_file_pattern: "{district}"
flow_file_pattern: "{district}"
districts: [{name: A, period: "1"}]
age_groups: {9: old}`,
		"pattern without district": `commerce_file_pattern: "x.csv"
flow_file_pattern: "{district}"
districts: [{name: A, period: "1"}]`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
commerce_file_pattern: "{district}_{period}.csv"
flow_file_pattern: "{district}.csv"
districts: [{name: X, period: "202101"}]
`), 0o644))

	ref, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, ref.DistrictNames())

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
