// Package refdata holds the static reference tables shared by the loader
// and the analytics packages: the district reporting calendar, source file
// naming, age-group labels and the industry demographic affinity table.
//
// A single *Reference is built at startup and injected everywhere it is
// needed.
package refdata

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"market-dashboard/internal/models"
)

//go:embed default.yaml
var defaultYAML []byte

type District struct {
	Name   string `yaml:"name" json:"name"`
	Period string `yaml:"period" json:"period"`
}

// AffinityProfile lists the demographic cells an industry is presumed to
// target. An empty list leaves that axis unconstrained.
type AffinityProfile struct {
	Genders   []models.Gender `yaml:"genders" json:"genders"`
	AgeGroups []int           `yaml:"age_groups" json:"ageGroups"`
}

func (p AffinityProfile) Allows(gender models.Gender, ageGroup int) bool {
	if len(p.Genders) > 0 && !slices.Contains(p.Genders, gender) {
		return false
	}
	if len(p.AgeGroups) > 0 && !slices.Contains(p.AgeGroups, ageGroup) {
		return false
	}
	return true
}

// RecommendationRule emits Text when the industry label contains one of
// Keywords and, if a demographic requirement is given, at least one
// profile cell satisfies it.
type RecommendationRule struct {
	Keywords  []string        `yaml:"keywords"`
	Text      string          `yaml:"text"`
	Genders   []models.Gender `yaml:"genders"`
	AgeGroups []int           `yaml:"age_groups"`
}

func (r RecommendationRule) MatchesIndustry(industry string) bool {
	for _, kw := range r.Keywords {
		if kw != "" && strings.Contains(industry, kw) {
			return true
		}
	}
	return false
}

func (r RecommendationRule) Requirement() AffinityProfile {
	return AffinityProfile{Genders: r.Genders, AgeGroups: r.AgeGroups}
}

type Reference struct {
	CommerceFilePattern string                       `yaml:"commerce_file_pattern"`
	FlowFilePattern     string                       `yaml:"flow_file_pattern"`
	Districts           []District                   `yaml:"districts"`
	AgeGroups           map[int]string               `yaml:"age_groups"`
	GenderLabels        map[models.Gender]string     `yaml:"gender_labels"`
	Affinity            map[string]AffinityProfile   `yaml:"affinity"`
	Recommendations     []RecommendationRule         `yaml:"recommendations"`
	TargetTemplate      string                       `yaml:"target_template"`
	MarketTypes         map[models.MarketType]string `yaml:"market_types"`

	byName map[string]int
}

// Default returns the embedded Seoul reference tables.
func Default() (*Reference, error) {
	return Parse(defaultYAML)
}

// Load reads reference tables from path, or the embedded defaults when
// path is empty.
func Load(path string) (*Reference, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Reference, error) {
	var ref Reference
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("decode reference data: %w", err)
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return &ref, nil
}

// Validate checks the tables and builds the district index.
func (r *Reference) Validate() error {
	if len(r.Districts) == 0 {
		return fmt.Errorf("reference data lists no districts")
	}
	if !strings.Contains(r.CommerceFilePattern, "{district}") {
		return fmt.Errorf("commerce file pattern must contain {district}")
	}
	if !strings.Contains(r.FlowFilePattern, "{district}") {
		return fmt.Errorf("flow file pattern must contain {district}")
	}

	r.byName = make(map[string]int, len(r.Districts))
	for i, d := range r.Districts {
		if d.Name == "" {
			return fmt.Errorf("district %d has no name", i)
		}
		if _, dup := r.byName[d.Name]; dup {
			return fmt.Errorf("district %s listed twice", d.Name)
		}
		r.byName[d.Name] = i
	}

	for code := range r.AgeGroups {
		if code < 0 || code > 7 {
			return fmt.Errorf("age group code %d outside 0-7", code)
		}
	}
	for key, p := range r.Affinity {
		for _, age := range p.AgeGroups {
			if age < 0 || age > 7 {
				return fmt.Errorf("affinity %s: age group code %d outside 0-7", key, age)
			}
		}
	}
	return nil
}

func (r *Reference) DistrictNames() []string {
	names := make([]string, len(r.Districts))
	for i, d := range r.Districts {
		names[i] = d.Name
	}
	return names
}

func (r *Reference) HasDistrict(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Period returns the single reporting period published for district.
// Districts without a period have no card extract.
func (r *Reference) Period(district string) (string, bool) {
	i, ok := r.byName[district]
	if !ok || r.Districts[i].Period == "" {
		return "", false
	}
	return r.Districts[i].Period, true
}

func (r *Reference) CommerceFile(district string) (string, bool) {
	period, ok := r.Period(district)
	if !ok {
		return "", false
	}
	return expand(r.CommerceFilePattern, district, period), true
}

func (r *Reference) FlowFile(district string) (string, bool) {
	if !r.HasDistrict(district) {
		return "", false
	}
	period, _ := r.Period(district)
	return expand(r.FlowFilePattern, district, period), true
}

func (r *Reference) LookupAffinity(industryKey string) (AffinityProfile, bool) {
	p, ok := r.Affinity[industryKey]
	return p, ok
}

func (r *Reference) AgeGroupName(code int) string {
	if name, ok := r.AgeGroups[code]; ok {
		return name
	}
	return "연령대 " + strconv.Itoa(code)
}

func (r *Reference) GenderLabel(g models.Gender) string {
	if label, ok := r.GenderLabels[g]; ok {
		return label
	}
	return string(g)
}

func (r *Reference) MarketRecommendation(t models.MarketType) string {
	return r.MarketTypes[t]
}

func expand(pattern, district, period string) string {
	return strings.NewReplacer("{district}", district, "{period}", period).Replace(pattern)
}
