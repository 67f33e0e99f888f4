// Package rest stores dashboards, charts and datasets in a hosted
// PostgREST-style data API (for example Supabase). Tables mirror the SQL
// backend: dashboards, charts and datasets.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/google/uuid"
)

const defaultTimeout = 30 * time.Second

func init() {
	store.Register("rest", func(_ context.Context, cfg store.Config) (store.Store, error) {
		return New(cfg.DSN, cfg.APIKey, cfg.Timeout)
	})
}

// Store talks to <baseURL>/rest/v1/<table>. Each operation issues its
// requests once; failures come back as *APIError or a typed wrapper.
type Store struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	now        func() time.Time
}

// New returns a REST store. timeout <= 0 uses 30s.
func New(baseURL, apiKey string, timeout time.Duration) (*Store, error) {
	if baseURL == "" {
		return nil, errors.New("rest: base url not set")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("rest: parse base url: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Store{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Store) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

// do sends one request and decodes the JSON response into out when non-nil.
func (s *Store) do(ctx context.Context, method, table string, query url.Values, body any, prefer string, out any) error {
	endpoint := s.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: extractRequestID(resp)}
		_ = json.Unmarshal(b, apiErr)
		return classify(apiErr, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func eq(col, v string) url.Values {
	return url.Values{col: {"eq." + v}}
}

func ordered(q url.Values, order string) url.Values {
	if q == nil {
		q = url.Values{}
	}
	q.Set("order", order)
	return q
}

const returnRepresentation = "return=representation"

func (s *Store) ListDashboards(ctx context.Context) ([]store.Summary, error) {
	out := []store.Summary{}
	q := url.Values{"select": {"id,name,description,created_at,updated_at"}}
	if err := s.do(ctx, http.MethodGet, "dashboards", ordered(q, "updated_at.desc"), nil, "", &out); err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}
	return out, nil
}

func (s *Store) getSummary(ctx context.Context, id string) (*store.Summary, error) {
	var rows []store.Summary
	if err := s.do(ctx, http.MethodGet, "dashboards", eq("id", id), nil, "", &rows); err != nil {
		return nil, fmt.Errorf("get dashboard: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("dashboard %s: %w", id, store.ErrNotFound)
	}
	return &rows[0], nil
}

func (s *Store) GetDashboard(ctx context.Context, id string) (*store.DashboardRecord, error) {
	sum, err := s.getSummary(ctx, id)
	if err != nil {
		return nil, err
	}
	charts := []store.ChartRecord{}
	if err := s.do(ctx, http.MethodGet, "charts", ordered(eq("dashboard_id", id), "created_at.asc"), nil, "", &charts); err != nil {
		return nil, fmt.Errorf("list charts: %w", err)
	}
	return &store.DashboardRecord{Summary: *sum, Charts: charts}, nil
}

// single takes the one row a return=representation write produced.
func single[T any](rows []T, kind, id string) (*T, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return &rows[0], nil
}

func (s *Store) CreateDashboard(ctx context.Context, name, description string) (*store.Summary, error) {
	now := s.now()
	in := store.Summary{ID: uuid.NewString(), Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
	var rows []store.Summary
	if err := s.do(ctx, http.MethodPost, "dashboards", nil, in, returnRepresentation, &rows); err != nil {
		return nil, fmt.Errorf("create dashboard: %w", err)
	}
	return single(rows, "dashboard", in.ID)
}

func (s *Store) UpdateDashboard(ctx context.Context, id, name, description string) (*store.Summary, error) {
	patch := map[string]any{"name": name, "description": description, "updated_at": s.now()}
	var rows []store.Summary
	if err := s.do(ctx, http.MethodPatch, "dashboards", eq("id", id), patch, returnRepresentation, &rows); err != nil {
		return nil, fmt.Errorf("update dashboard: %w", err)
	}
	return single(rows, "dashboard", id)
}

func (s *Store) DeleteDashboard(ctx context.Context, id string) error {
	if err := s.do(ctx, http.MethodDelete, "charts", eq("dashboard_id", id), nil, "", nil); err != nil {
		return fmt.Errorf("delete charts: %w", err)
	}
	var rows []store.Summary
	if err := s.do(ctx, http.MethodDelete, "dashboards", eq("id", id), nil, returnRepresentation, &rows); err != nil {
		return fmt.Errorf("delete dashboard: %w", err)
	}
	_, err := single(rows, "dashboard", id)
	return err
}

func (s *Store) AddChart(ctx context.Context, dashboardID string, rec store.ChartRecord) (*store.ChartRecord, error) {
	if _, err := s.getSummary(ctx, dashboardID); err != nil {
		return nil, err
	}
	now := s.now()
	rec.ID = uuid.NewString()
	rec.DashboardID = dashboardID
	rec.CreatedAt, rec.UpdatedAt = now, now
	var rows []store.ChartRecord
	if err := s.do(ctx, http.MethodPost, "charts", nil, rec, returnRepresentation, &rows); err != nil {
		return nil, fmt.Errorf("add chart: %w", err)
	}
	patch := map[string]any{"updated_at": now}
	if err := s.do(ctx, http.MethodPatch, "dashboards", eq("id", dashboardID), patch, "", nil); err != nil {
		return nil, fmt.Errorf("touch dashboard: %w", err)
	}
	return single(rows, "chart", rec.ID)
}

func (s *Store) UpdateChart(ctx context.Context, id string, rec store.ChartRecord) (*store.ChartRecord, error) {
	if rec.YAxis == nil {
		rec.YAxis = []string{}
	}
	if rec.Colors == nil {
		rec.Colors = []string{}
	}
	patch := map[string]any{
		"dataset_id":  rec.DatasetID,
		"title":       rec.Title,
		"type":        rec.Type,
		"x_axis":      rec.XAxis,
		"y_axis":      rec.YAxis,
		"aggregation": rec.Aggregation,
		"colors":      rec.Colors,
		"position":    rec.Position,
		"filters":     rec.Filters,
		"updated_at":  s.now(),
	}
	if rec.Filters == nil {
		patch["filters"] = []any{}
	}
	var rows []store.ChartRecord
	if err := s.do(ctx, http.MethodPatch, "charts", eq("id", id), patch, returnRepresentation, &rows); err != nil {
		return nil, fmt.Errorf("update chart: %w", err)
	}
	return single(rows, "chart", id)
}

func (s *Store) DeleteChart(ctx context.Context, id string) error {
	var rows []store.ChartRecord
	if err := s.do(ctx, http.MethodDelete, "charts", eq("id", id), nil, returnRepresentation, &rows); err != nil {
		return fmt.Errorf("delete chart: %w", err)
	}
	_, err := single(rows, "chart", id)
	return err
}

type datasetRow struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	SheetName string        `json:"sheet_name"`
	Columns   []string      `json:"columns"`
	Data      []dataset.Row `json:"data"`
	RowCount  int           `json:"row_count"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (r datasetRow) summary() store.DatasetSummary {
	return store.DatasetSummary{
		ID: r.ID, Name: r.Name, SheetName: r.SheetName, Columns: r.Columns,
		Rows: r.RowCount, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (s *Store) SaveDataset(ctx context.Context, ds *dataset.Dataset) (*store.DatasetSummary, error) {
	if ds == nil {
		return nil, errors.New("dataset is nil")
	}
	now := s.now()
	created := now
	var prev []datasetRow
	q := eq("id", ds.ID)
	q.Set("select", "created_at")
	if err := s.do(ctx, http.MethodGet, "datasets", q, nil, "", &prev); err != nil {
		return nil, fmt.Errorf("lookup dataset: %w", err)
	}
	if len(prev) > 0 {
		created = prev[0].CreatedAt
	}
	in := datasetRow{
		ID: ds.ID, Name: ds.Name, SheetName: ds.SheetName, Columns: ds.ColumnNames(),
		Data: ds.Rows, RowCount: len(ds.Rows), CreatedAt: created, UpdatedAt: now,
	}
	if in.Data == nil {
		in.Data = []dataset.Row{}
	}
	if err := s.do(ctx, http.MethodPost, "datasets", nil, in, "resolution=merge-duplicates,return=minimal", nil); err != nil {
		return nil, fmt.Errorf("save dataset: %w", err)
	}
	sum := store.Summarize(ds, created, now)
	return &sum, nil
}

func (s *Store) GetDataset(ctx context.Context, id string) (*dataset.Dataset, error) {
	var rows []datasetRow
	if err := s.do(ctx, http.MethodGet, "datasets", eq("id", id), nil, "", &rows); err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	r, err := single(rows, "dataset", id)
	if err != nil {
		return nil, err
	}
	return dataset.FromRows(r.ID, r.Name, r.SheetName, r.Columns, r.Data, 0)
}

func (s *Store) ListDatasets(ctx context.Context) ([]store.DatasetSummary, error) {
	var rows []datasetRow
	q := url.Values{"select": {"id,name,sheet_name,columns,row_count,created_at,updated_at"}}
	if err := s.do(ctx, http.MethodGet, "datasets", ordered(q, "updated_at.desc"), nil, "", &rows); err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	out := make([]store.DatasetSummary, len(rows))
	for i, r := range rows {
		out[i] = r.summary()
	}
	return out, nil
}

func (s *Store) DeleteDataset(ctx context.Context, id string) error {
	var rows []datasetRow
	if err := s.do(ctx, http.MethodDelete, "datasets", eq("id", id), nil, returnRepresentation, &rows); err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	_, err := single(rows, "dataset", id)
	return err
}
