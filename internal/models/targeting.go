package models

// DemographicCell is the representative-hour population of one
// (gender, age group) cell.
type DemographicCell struct {
	Gender       Gender  `json:"gender"`
	AgeGroup     int     `json:"ageGroup"`
	AgeGroupName string  `json:"ageGroupName"`
	Population   int64   `json:"population"`
	Ratio        float64 `json:"ratio"`
}

// IndustryPerformance is a quick snapshot; AvgSalesPerStore is a simple
// mean, not the median used for ranking.
type IndustryPerformance struct {
	IndustryName      string  `json:"industryName"`
	TotalSales        float64 `json:"totalSales"`
	TotalTransactions float64 `json:"totalTransactions"`
	StoreCount        int64   `json:"storeCount"`
	AvgSalesPerStore  float64 `json:"avgSalesPerStore"`
}

type TargetingResult struct {
	District            string               `json:"districtName"`
	Industry            string               `json:"industry"`
	TopTargetGroups     []DemographicCell    `json:"topTargetGroups"`
	Recommendations     []string             `json:"recommendations"`
	IndustryPerformance *IndustryPerformance `json:"industryPerformance"`
	DemographicProfile  []DemographicCell    `json:"demographicProfile"`
}

// ResultStatus separates "nothing asked" from "asked, nothing found".
type ResultStatus string

const (
	StatusOK          ResultStatus = "ok"
	StatusNoSelection ResultStatus = "no_selection"
	StatusNoData      ResultStatus = "no_data"
)
