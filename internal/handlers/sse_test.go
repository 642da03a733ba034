package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-dashboard/internal/observability"
)

func newSSE(t *testing.T) *SSEHandlers {
	t.Helper()
	return NewSSEHandlers(createTestAnalytics(t), observability.Discard())
}

func sseRequest(path string, params url.Values) *http.Request {
	return httptest.NewRequest(http.MethodGet, path+"?"+params.Encode(), nil)
}

func assertSSE(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
	body := w.Body.String()
	assert.Contains(t, body, "event:")
	assert.Contains(t, body, "data:")
	return body
}

func TestSSEHandlers_HandleRankings(t *testing.T) {
	h := newSSE(t)

	w := httptest.NewRecorder()
	h.HandleRankings(w, sseRequest("/sse/rankings", url.Values{"major": {"음식"}, "criterion": {"totalSales"}}))
	body := assertSSE(t, w)
	assert.Contains(t, body, `id="rankings-content"`)
	assert.Contains(t, body, "<table")
	assert.Contains(t, body, "강남구")
	assert.Contains(t, body, "rankingStatus")

	w = httptest.NewRecorder()
	h.HandleRankings(w, sseRequest("/sse/rankings", url.Values{}))
	body = assertSSE(t, w)
	assert.Contains(t, body, "업종을 선택하세요")
	assert.NotContains(t, body, "<table")
}

func TestSSEHandlers_HandleRankings_InvalidSignals(t *testing.T) {
	h := newSSE(t)
	w := httptest.NewRecorder()
	h.HandleRankings(w, sseRequest("/sse/rankings", url.Values{"criterion": {"bogus"}}))
	assert.Contains(t, assertSSE(t, w), "잘못된 요청입니다")
}

func TestSSEHandlers_HandleRankings_DatastarSignals(t *testing.T) {
	h := newSSE(t)
	w := httptest.NewRecorder()
	h.HandleRankings(w, sseRequest("/sse/rankings", url.Values{"datastar": {`{"major":"음식"}`}}))
	assert.Contains(t, assertSSE(t, w), "<table")
}

func TestSSEHandlers_HandleTargeting(t *testing.T) {
	h := newSSE(t)

	w := httptest.NewRecorder()
	h.HandleTargeting(w, sseRequest("/sse/targeting", url.Values{"district": {"강남구"}, "minor": {"커피전문점"}}))
	body := assertSSE(t, w)
	assert.Contains(t, body, `id="targeting-content"`)
	assert.Contains(t, body, "20-29세")
	assert.Contains(t, body, "targeting")

	w = httptest.NewRecorder()
	h.HandleTargeting(w, sseRequest("/sse/targeting", url.Values{"minor": {"커피전문점"}}))
	assert.Contains(t, assertSSE(t, w), "자치구를 선택하세요")

	w = httptest.NewRecorder()
	h.HandleTargeting(w, sseRequest("/sse/targeting", url.Values{"district": {"해운대구"}, "minor": {"커피전문점"}}))
	assert.Contains(t, assertSSE(t, w), "알 수 없는 자치구입니다")
}

func TestSSEHandlers_HandleFlow(t *testing.T) {
	h := newSSE(t)

	w := httptest.NewRecorder()
	h.HandleFlow(w, sseRequest("/sse/flow", url.Values{"district": {"강남구"}}))
	body := assertSSE(t, w)
	assert.Contains(t, body, `id="flow-content"`)
	assert.Contains(t, body, "hourlyChart")
	assert.Contains(t, body, "weeklyChart")
	assert.Contains(t, body, "balanced")

	w = httptest.NewRecorder()
	h.HandleFlow(w, sseRequest("/sse/flow", url.Values{"district": {"중구"}}))
	assert.Contains(t, assertSSE(t, w), "유동인구 데이터가 없습니다")
}
