package ingest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-dashboard/internal/refdata"
)

func testReference(t *testing.T) *refdata.Reference {
	t.Helper()
	ref, err := refdata.Default()
	require.NoError(t, err)
	return ref
}

func commerceFile(t *testing.T, ref *refdata.Reference, district string) string {
	t.Helper()
	name, ok := ref.CommerceFile(district)
	require.True(t, ok)
	return name
}

func TestLoader_LoadCommerce(t *testing.T) {
	ref := testReference(t)
	fsys := fstest.MapFS{
		commerceFile(t, ref, "강남구"): {Data: []byte(commerceHeader +
			"서울,강남구,202011,음식,커피,커피전문점,1,0,10,1000,10,100,10\n" +
			"서울,,202011,음식,커피,카페,1,0,10,2000,10,200,20\n")},
		commerceFile(t, ref, "중구"): {Data: []byte(commerceHeader)},
		commerceFile(t, ref, "종로구"): {Data: []byte(commerceHeader +
			"서울,종로구,202012,음식,커피,커피전문점,1,0,5,500,5,100,100\n")},
	}

	loader := NewLoader(NewFSSource(fsys), ref, LoaderOptions{MaxWorkers: 2})
	districts := []string{"종로구", "강남구", "중구", "마포구", "해운대구"}

	records, report := loader.LoadCommerce(context.Background(), districts)
	require.Len(t, records, 3)

	assert.Equal(t, "종로구", records[0].District)
	assert.Equal(t, "강남구", records[1].District)
	assert.Equal(t, "강남구", records[2].District, "blank district is filled from the request")

	assert.Equal(t, []string{"종로구", "강남구"}, report.Loaded)
	assert.Equal(t, []string{"중구"}, report.Empty)
	assert.Equal(t, []string{"마포구", "해운대구"}, report.Missing)
	assert.Empty(t, report.Failed)
}

func TestLoader_LoadFlowDistrict(t *testing.T) {
	ref := testReference(t)
	name, ok := ref.FlowFile("강남구")
	require.True(t, ok)

	fsys := fstest.MapFS{
		name: {Data: []byte(flowHeader +
			"1,20201101,1,일,11,서울,11680,강남구,14,M,2,100,200\n")},
	}
	loader := NewLoader(NewFSSource(fsys), ref, LoaderOptions{})

	records := loader.LoadFlowDistrict(context.Background(), "강남구")
	require.Len(t, records, 1)
	assert.InDelta(t, 300, records[0].TotalFlow, 1e-9)

	assert.Empty(t, loader.LoadFlowDistrict(context.Background(), "서초구"))
}

type failingSource struct{}

func (failingSource) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("disk on fire")
}

type panickingSource struct{}

func (panickingSource) Open(context.Context, string) (io.ReadCloser, error) {
	panic("boom")
}

func TestLoader_FailuresAreIsolated(t *testing.T) {
	ref := testReference(t)

	for name, src := range map[string]Source{"error": failingSource{}, "panic": panickingSource{}} {
		t.Run(name, func(t *testing.T) {
			loader := NewLoader(src, ref, LoaderOptions{})
			records, report := loader.LoadCommerce(context.Background(), []string{"강남구", "중구"})
			assert.Empty(t, records)
			assert.Equal(t, []string{"강남구", "중구"}, report.Failed)
		})
	}
}

func TestFSSource_NotFound(t *testing.T) {
	src := NewFSSource(fstest.MapFS{})
	_, err := src.Open(context.Background(), "nope.csv")
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestFSSource_CanceledContext(t *testing.T) {
	src := NewFSSource(fstest.MapFS{"a.csv": {Data: []byte("x")}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Open(ctx, "a.csv")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPSource(t *testing.T) {
	ref := testReference(t)
	name := commerceFile(t, ref, "강남구")

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		if r.URL.Path != "/data/"+name {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, commerceHeader+
			"서울,강남구,202011,음식,커피,커피전문점,1,0,10,1000,10,100,10\n")
	}))
	defer srv.Close()

	loader := NewLoader(NewHTTPSource(srv.URL+"/data/", time.Second), ref, LoaderOptions{})

	records := loader.LoadCommerceDistrict(context.Background(), "강남구")
	require.Len(t, records, 1)
	assert.Contains(t, gotPath, "%EA%B0%95%EB%82%A8%EA%B5%AC")

	_, report := loader.LoadCommerce(context.Background(), []string{"중구"})
	assert.Equal(t, []string{"중구"}, report.Missing)
}

func TestHTTPSource_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, time.Second).Open(context.Background(), "a.csv")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSourceNotFound)
}
