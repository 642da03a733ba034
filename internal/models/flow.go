package models

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// FlowRecord is one observation of resident and non-resident population
// for a (district, date, hour, gender, age group) cell.
type FlowRecord struct {
	IndexKey        string  `json:"indexKey"`
	Date            string  `json:"date"`
	Week            int     `json:"week"`
	DayName         string  `json:"dayName"`
	ProvinceCode    string  `json:"provinceCode,omitempty"`
	ProvinceName    string  `json:"provinceName,omitempty"`
	DistrictCode    string  `json:"districtCode,omitempty"`
	District        string  `json:"district"`
	Hour            int     `json:"hour"`
	Gender          Gender  `json:"gender"`
	AgeGroup        int     `json:"ageGroup"`
	ResidentFlow    float64 `json:"residentFlow"`
	NonResidentFlow float64 `json:"nonResidentFlow"`
	TotalFlow       float64 `json:"totalFlow"`
}

// FlowBucket holds daily-average flow for one hour or weekday.
type FlowBucket struct {
	Total            float64            `json:"total"`
	ByGender         map[Gender]float64 `json:"byGender"`
	ByAgeGroup       map[int]float64    `json:"byAgeGroup"`
	ObservationCount int                `json:"observationCount"`
}

type HourlyFlow struct {
	Hour int `json:"hour"`
	FlowBucket
}

type WeekdayFlow struct {
	Day string `json:"day"`
	FlowBucket
}

// ChartPoint is a display-ready bucket. Total is scaled to thousands;
// TotalRaw keeps the unscaled rounded value.
type ChartPoint struct {
	Label    string           `json:"label"`
	Total    float64          `json:"total"`
	TotalRaw int64            `json:"totalRaw"`
	Male     int64            `json:"male"`
	Female   int64            `json:"female"`
	ByAge    map[string]int64 `json:"byAge"`
}

type MarketType string

const (
	MarketResidentFocused MarketType = "resident-focused"
	MarketVisitorFocused  MarketType = "visitor-focused"
	MarketBalanced        MarketType = "balanced"
)

type ResidencySplit struct {
	Resident      int64   `json:"residentPopulation"`
	Visitor       int64   `json:"visitorPopulation"`
	ResidentRatio float64 `json:"residentRatio"`
}

type ResidencyCell struct {
	Gender        Gender  `json:"gender"`
	AgeGroup      int     `json:"ageGroup"`
	AgeGroupName  string  `json:"ageGroupName"`
	Resident      int64   `json:"residentPopulation"`
	Visitor       int64   `json:"visitorPopulation"`
	Total         int64   `json:"totalPopulation"`
	ResidentRatio float64 `json:"residentRatio"`
	VisitorRatio  float64 `json:"visitorRatio"`
}

// ResidencyAnalysis splits representative-hour flow into residents and
// visitors.
type ResidencyAnalysis struct {
	District       string                    `json:"districtName"`
	Resident       int64                     `json:"residentPopulation"`
	Visitor        int64                     `json:"visitorPopulation"`
	Total          int64                     `json:"totalPopulation"`
	ResidentRatio  float64                   `json:"residentRatio"`
	VisitorRatio   float64                   `json:"visitorRatio"`
	MarketType     MarketType                `json:"marketType"`
	Recommendation string                    `json:"recommendation"`
	ByGender       map[Gender]ResidencySplit `json:"byGender"`
	ByAgeGroup     []ResidencyCell           `json:"byAgeGroup"`
	Insights       []string                  `json:"insights"`
}
