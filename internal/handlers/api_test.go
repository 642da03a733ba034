package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"market-dashboard/internal/export"
	"market-dashboard/internal/ingest"
	"market-dashboard/internal/models"
	"market-dashboard/internal/observability"
	"market-dashboard/internal/refdata"
	"market-dashboard/internal/services"
)

func createTestAnalytics(t *testing.T) *services.Analytics {
	t.Helper()
	ref, err := refdata.Default()
	require.NoError(t, err)

	loader := ingest.NewLoader(ingest.NewFSSource(fstest.MapFS{}), ref, ingest.LoaderOptions{
		Logger: observability.Discard(),
	})
	a := services.NewAnalytics(loader, ref, services.Options{Logger: observability.Discard()})

	a.SetCommerce([]models.CommerceRecord{
		{District: "강남구", IndustryMajor: "음식", IndustryMid: "커피", IndustryMinor: "커피전문점", SalesAmount: 2_000_000, SalesCount: 200, ActiveMerchants: 20, SalesPerStore: 100_000, SalesPerTx: 10_000},
		{District: "중구", IndustryMajor: "음식", IndustryMid: "커피", IndustryMinor: "커피전문점", SalesAmount: 1_000_000, SalesCount: 100, ActiveMerchants: 10, SalesPerStore: 100_000, SalesPerTx: 10_000},
	})
	a.SetFlow("강남구", []models.FlowRecord{
		{District: "강남구", DayName: "월", Hour: 14, Gender: models.GenderMale, AgeGroup: 2, ResidentFlow: 300, NonResidentFlow: 200, TotalFlow: 500},
		{District: "강남구", DayName: "화", Hour: 14, Gender: models.GenderFemale, AgeGroup: 3, ResidentFlow: 100, NonResidentFlow: 300, TotalFlow: 400},
	})
	return a
}

func newAPI(t *testing.T) *APIHandlers {
	t.Helper()
	return NewAPIHandlers(createTestAnalytics(t), observability.Discard())
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	h := newAPI(t)
	w := httptest.NewRecorder()
	h.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.True(t, decode(t, w).Success)
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	h := newAPI(t)
	w := httptest.NewRecorder()
	h.HandleStats(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

	env := decode(t, w)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.EqualValues(t, 2, stats["record_count"])
}

func TestAPIHandlers_HandleIndustries(t *testing.T) {
	h := newAPI(t)
	w := httptest.NewRecorder()
	h.HandleIndustries(w, httptest.NewRequest(http.MethodGet, "/api/industries", nil))

	assert.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))
	var data struct {
		Districts  []string    `json:"districts"`
		Industries []majorNode `json:"industries"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Len(t, data.Districts, 25)
	require.Len(t, data.Industries, 1)
	assert.Equal(t, "음식", data.Industries[0].Major)
	assert.Equal(t, "커피전문점", data.Industries[0].Mids[0].Minors[0].Minor)
}

func TestAPIHandlers_HandleRankings(t *testing.T) {
	h := newAPI(t)

	tests := []struct {
		name       string
		query      string
		wantCode   int
		wantStatus models.ResultStatus
	}{
		{"ranked", "?major=음식&criterion=totalSales", http.StatusOK, models.StatusOK},
		{"no selection", "", http.StatusOK, models.StatusNoSelection},
		{"no data", "?major=숙박", http.StatusOK, models.StatusNoData},
		{"bad criterion", "?major=음식&criterion=bogus", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.HandleRankings(w, httptest.NewRequest(http.MethodGet, "/api/rankings"+tt.query, nil))
			require.Equal(t, tt.wantCode, w.Code)

			env := decode(t, w)
			if tt.wantCode != http.StatusOK {
				require.NotNil(t, env.Error)
				assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
				return
			}
			var res services.RankingResult
			require.NoError(t, json.Unmarshal(env.Data, &res))
			assert.Equal(t, tt.wantStatus, res.Status)
		})
	}
}

func TestAPIHandlers_HandleRankings_Order(t *testing.T) {
	h := newAPI(t)
	w := httptest.NewRecorder()
	h.HandleRankings(w, httptest.NewRequest(http.MethodGet, "/api/rankings?minor=커피전문점&criterion=totalSales", nil))

	var res services.RankingResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
	assert.Equal(t, []string{"강남구", "중구"}, res.Tiers[0])
}

func TestAPIHandlers_HandleRankingsExport(t *testing.T) {
	h := newAPI(t)

	w := httptest.NewRecorder()
	h.HandleRankingsExport(w, httptest.NewRequest(http.MethodGet, "/api/rankings/export?major=음식", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "rankings-medianPerStoreSales.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Rankings")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	w = httptest.NewRecorder()
	h.HandleRankingsExport(w, httptest.NewRequest(http.MethodGet, "/api/rankings/export", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func districtRequest(path, district string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.SetPathValue("district", district)
	return r
}

func TestAPIHandlers_HandleTargeting(t *testing.T) {
	h := newAPI(t)

	w := httptest.NewRecorder()
	h.HandleTargeting(w, districtRequest("/api/districts/강남구/targeting?minor=커피전문점", "강남구"))
	require.Equal(t, http.StatusOK, w.Code)

	var res services.TargetingResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
	assert.Equal(t, models.StatusOK, res.Status)
	require.NotNil(t, res.Result)
	assert.Len(t, res.Result.TopTargetGroups, 2)

	w = httptest.NewRecorder()
	h.HandleTargeting(w, districtRequest("/api/districts/해운대구/targeting?minor=커피전문점", "해운대구"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w).Error.Code)
}

func TestAPIHandlers_HandleFlow(t *testing.T) {
	h := newAPI(t)

	w := httptest.NewRecorder()
	h.HandleHourlyFlow(w, districtRequest("/api/districts/강남구/flow/hourly", "강남구"))
	var hourly services.FlowResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &hourly))
	require.Len(t, hourly.Chart, 1)
	assert.EqualValues(t, 450, hourly.Chart[0].TotalRaw)

	w = httptest.NewRecorder()
	h.HandleWeeklyFlow(w, districtRequest("/api/districts/강남구/flow/weekly", "강남구"))
	var weekly services.FlowResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &weekly))
	require.Len(t, weekly.Chart, 2)
	assert.Equal(t, "월", weekly.Chart[0].Label)

	w = httptest.NewRecorder()
	h.HandleResidency(w, districtRequest("/api/districts/강남구/residency", "강남구"))
	var residency services.ResidencyResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &residency))
	assert.Equal(t, models.StatusOK, residency.Status)
	assert.EqualValues(t, 900, residency.Analysis.Total)

	w = httptest.NewRecorder()
	h.HandleResidency(w, districtRequest("/api/districts/nowhere/residency", "nowhere"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
