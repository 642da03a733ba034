package templates

// DashboardData is what the page shell needs to populate its selectors.
// Everything else is streamed in over SSE.
type DashboardData struct {
	Districts []string
	Majors    []string
	Mids      []string
	Minors    []string
}

type criterionOption struct {
	Value string
	Label string
}

// criteria lists the ranking criteria offered in the selector.
var criteria = []criterionOption{
	{"medianPerStoreSales", "점포당 매출 중앙값"},
	{"totalSales", "총 매출"},
	{"totalTransactions", "총 거래건수"},
}

const (
	industryActions = "@get('/sse/rankings'); @get('/sse/targeting')"
	districtActions = "@get('/sse/targeting'); @get('/sse/flow')"
)
