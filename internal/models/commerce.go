package models

// CommerceRecord is one (district, period, industry leaf) cell of a card
// transaction extract. Numeric fields are never negative.
type CommerceRecord struct {
	Province        string  `json:"province,omitempty"`
	District        string  `json:"district"`
	Period          string  `json:"period"`
	IndustryMajor   string  `json:"industryMajor"`
	IndustryMid     string  `json:"industryMid"`
	IndustryMinor   string  `json:"industryMinor"`
	NewMerchants    int64   `json:"newMerchants"`
	ClosedMerchants int64   `json:"closedMerchants"`
	ActiveMerchants int64   `json:"activeMerchants"`
	SalesAmount     float64 `json:"salesAmount"`
	SalesCount      float64 `json:"salesCount"`
	SalesPerStore   float64 `json:"salesPerStore"`
	SalesPerTx      float64 `json:"salesPerTransaction"`
}

// DistrictIndustryStatistics is derived per query and never stored.
type DistrictIndustryStatistics struct {
	District          string  `json:"district"`
	TotalSales        float64 `json:"totalSales"`
	TotalTransactions float64 `json:"totalTransactions"`
	TotalStores       int64   `json:"totalStores"`
	AvgSalesPerStore  float64 `json:"avgSalesPerStore"`
	AvgSalesPerTx     float64 `json:"avgSalesPerTransaction"`
}

// IndustryCode is one row of the card industry classification catalog.
type IndustryCode struct {
	Code  string `csv:"code" json:"code"`
	Major string `csv:"class1" json:"major"`
	Mid   string `csv:"class2" json:"mid"`
	Minor string `csv:"class3" json:"minor"`
}
