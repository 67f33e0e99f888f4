package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/KaramelBytes/chartloom-cli/internal/store/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	srv := httptest.NewServer(New(s, dataset.DefaultOptions(), zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var rdr bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&rdr).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func upload(t *testing.T, srv *httptest.Server, path, filename, content string, out any) int {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	resp, err := srv.Client().Post(srv.URL+path, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

var manual = dataset.ManualEntry{
	Name:    "Sales",
	Columns: []string{"region", "units", "revenue"},
	Rows: [][]any{
		{"North", 12.0, 120.0},
		{"South", 8.0, 80.0},
		{"North", 15.0, 150.0},
		{"East", 9.0, 95.0},
	},
}

func importManual(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	var resp importResponse
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/datasets/manual", manual, &resp))
	require.Len(t, resp.Datasets, 1)
	require.Len(t, resp.Reports, 1)
	return resp.Datasets[0].ID
}

func TestAnalyzeUpload(t *testing.T) {
	srv := newTestServer(t)
	var resp struct {
		Reports []struct {
			Name    string `json:"name"`
			Rows    int    `json:"rows"`
			Columns []struct {
				Name      string `json:"name"`
				IsNumeric bool   `json:"is_numeric"`
			} `json:"columns"`
		} `json:"reports"`
	}
	csv := "region,amount\nNorth,120\nSouth,80\nWest,95\n"
	require.Equal(t, http.StatusOK, upload(t, srv, "/api/analyze", "sales.csv", csv, &resp))
	require.Len(t, resp.Reports, 1)
	assert.Equal(t, 3, resp.Reports[0].Rows)
	require.Len(t, resp.Reports[0].Columns, 2)
	assert.True(t, resp.Reports[0].Columns[1].IsNumeric)

	var list []store.DatasetSummary
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/datasets", nil, &list))
	assert.Empty(t, list, "analyze does not store")

	assert.Equal(t, http.StatusUnprocessableEntity, upload(t, srv, "/api/analyze", "notes.pdf", "x", nil))
}

func TestImportUploadStores(t *testing.T) {
	srv := newTestServer(t)
	var resp importResponse
	require.Equal(t, http.StatusCreated, upload(t, srv, "/api/datasets", "sales.csv", "region,amount\nNorth,120\n", &resp))
	require.Len(t, resp.Datasets, 1)

	var ds dataset.Dataset
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/datasets/"+resp.Datasets[0].ID, nil, &ds))
	assert.Equal(t, []string{"region", "amount"}, ds.ColumnNames())

	assert.Equal(t, http.StatusNoContent, call(t, srv, http.MethodDelete, "/api/datasets/"+ds.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, "/api/datasets/"+ds.ID, nil, nil))
}

func TestSuggestIntoDashboard(t *testing.T) {
	srv := newTestServer(t)
	dsID := importManual(t, srv)

	var plain suggestResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/suggest", suggestRequest{DatasetID: dsID}, &plain))
	require.NotEmpty(t, plain.Charts)
	assert.Equal(t, "Full Data Table", plain.Charts[len(plain.Charts)-1].Title)

	var d struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/dashboards", dashboardRequest{Name: "Sales"}, &d))

	var merged suggestResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/suggest", suggestRequest{DatasetID: dsID, DashboardID: d.ID}, &merged))
	assert.Equal(t, len(plain.Charts), merged.Added)
	require.NotNil(t, merged.Dashboard)
	for _, c := range merged.Dashboard.Charts {
		assert.False(t, chart.IsUnsaved(c.ID))
	}

	var again suggestResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/suggest", suggestRequest{DatasetID: dsID, DashboardID: d.ID}, &again))
	assert.Equal(t, 0, again.Added, "titles already present are skipped")
	assert.Len(t, again.Dashboard.Charts, len(plain.Charts))
}

func TestProcess(t *testing.T) {
	srv := newTestServer(t)
	dsID := importManual(t, srv)
	spec := chart.Spec{Type: chart.TypeBar, Title: "revenue by region", XAxis: "region", YAxis: []string{"revenue"}}
	var resp processResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/charts/process", processRequest{DatasetID: dsID, Chart: spec}, &resp))
	require.Len(t, resp.Rows, 3)
	assert.Equal(t, "North", resp.Rows[0]["region"].String())
	assert.True(t, resp.Rows[0]["revenue"].Equal(dataset.Number(270)))
	assert.Contains(t, resp.Option, "series")

	spec.Filters = []chart.Filter{{Column: "region", Operator: "like", Value: chart.Scalar(dataset.Text("N"))}}
	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodPost, "/api/charts/process", processRequest{DatasetID: dsID, Chart: spec}, nil))

	spec.Filters = nil
	spec.Type = "radar"
	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodPost, "/api/charts/process", processRequest{DatasetID: dsID, Chart: spec}, nil))
}

func TestDashboardAndChartCRUD(t *testing.T) {
	srv := newTestServer(t)
	var d struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/dashboards", dashboardRequest{Name: "Ops"}, &d))
	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodPost, "/api/dashboards", dashboardRequest{Name: "  "}, nil))

	spec := chart.Spec{Type: chart.TypeMetric, Title: "Total units", YAxis: []string{"units"}}
	var first, second store.ChartRecord
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/dashboards/"+d.ID+"/charts", chartRequest{Chart: spec}, &first))
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/dashboards/"+d.ID+"/charts", chartRequest{Chart: spec}, &second))
	assert.Equal(t, store.Position{X: 6, Y: 0, W: 6, H: 4}, second.Position, "next default cell")

	spec.Title = "Units"
	layout := chart.LayoutItem{X: 0, Y: 4, W: 12, H: 4}
	var upd store.ChartRecord
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPut, "/api/charts/"+first.ID, chartRequest{Chart: spec, Layout: &layout}, &upd))
	assert.Equal(t, "Units", upd.Title)
	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodPut, "/api/charts/"+first.ID, chartRequest{Chart: spec}, nil))

	assert.Equal(t, http.StatusNoContent, call(t, srv, http.MethodDelete, "/api/charts/"+second.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodDelete, "/api/charts/"+second.ID, nil, nil))

	var sum store.Summary
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPut, "/api/dashboards/"+d.ID, dashboardRequest{Name: "Ops 2"}, &sum))
	assert.Equal(t, "Ops 2", sum.Name)

	var list []store.Summary
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/dashboards", nil, &list))
	require.Len(t, list, 1)

	var full struct {
		Charts []chart.Spec        `json:"charts"`
		Layout []chart.LayoutItem `json:"layout"`
	}
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/dashboards/"+d.ID, nil, &full))
	require.Len(t, full.Charts, 1)
	assert.Equal(t, 12, full.Layout[0].W)

	assert.Equal(t, http.StatusNoContent, call(t, srv, http.MethodDelete, "/api/dashboards/"+d.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, "/api/dashboards/"+d.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodPost, "/api/dashboards/"+d.ID+"/charts", chartRequest{Chart: spec}, nil))
}

func TestBadJSON(t *testing.T) {
	srv := newTestServer(t)
	resp, err := srv.Client().Post(srv.URL+"/api/dashboards", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
