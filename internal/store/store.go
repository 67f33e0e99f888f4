package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

// ErrNotFound is returned when a dashboard, chart or dataset id is unknown.
var ErrNotFound = errors.New("not found")

// Summary is the list view of a dashboard.
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DashboardRecord is a dashboard with its charts in insertion order.
type DashboardRecord struct {
	Summary
	Charts []ChartRecord `json:"charts"`
}

// Position is a chart's grid cell.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// ChartRecord is the flat persisted form of a chart.
type ChartRecord struct {
	ID          string         `json:"id,omitempty"`
	DashboardID string         `json:"dashboard_id,omitempty"`
	DatasetID   string         `json:"dataset_id,omitempty"`
	Title       string         `json:"title"`
	Type        string         `json:"type"`
	XAxis       string         `json:"x_axis,omitempty"`
	YAxis       []string       `json:"y_axis"`
	Aggregation string         `json:"aggregation,omitempty"`
	Colors      []string       `json:"colors"`
	Position    Position       `json:"position"`
	Filters     []chart.Filter `json:"filters"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at,omitempty"`
}

// Record flattens a spec and its layout cell.
func Record(s chart.Spec, pos chart.LayoutItem) ChartRecord {
	return ChartRecord{
		ID:          s.ID,
		DatasetID:   s.DatasetID,
		Title:       s.Title,
		Type:        string(s.Type),
		XAxis:       s.XAxis,
		YAxis:       append([]string{}, s.YAxis...),
		Aggregation: string(s.Aggregation),
		Colors:      append([]string{}, s.Colors...),
		Position:    Position{X: pos.X, Y: pos.Y, W: pos.W, H: pos.H},
		Filters:     append([]chart.Filter{}, s.Filters...),
	}
}

// Spec rebuilds the chart specification.
func (r ChartRecord) Spec() chart.Spec {
	s := chart.Spec{
		ID:          r.ID,
		Type:        chart.Type(r.Type),
		Title:       r.Title,
		DatasetID:   r.DatasetID,
		XAxis:       r.XAxis,
		YAxis:       append([]string(nil), r.YAxis...),
		Aggregation: chart.Aggregation(r.Aggregation),
		Colors:      append([]string{}, r.Colors...),
		Filters:     append([]chart.Filter{}, r.Filters...),
	}
	if s.Aggregation == "" {
		s.Aggregation = chart.AggSum
	}
	return s
}

// Layout returns the record's grid cell.
func (r ChartRecord) Layout() chart.LayoutItem {
	return chart.LayoutItem{ChartID: r.ID, X: r.Position.X, Y: r.Position.Y, W: r.Position.W, H: r.Position.H}
}

// DatasetSummary is the list view of a stored dataset.
type DatasetSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SheetName string    `json:"sheet_name,omitempty"`
	Columns   []string  `json:"columns"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists dashboards, their charts, and datasets. Every call is a
// single request; failures are returned to the caller and never retried.
type Store interface {
	ListDashboards(ctx context.Context) ([]Summary, error)
	GetDashboard(ctx context.Context, id string) (*DashboardRecord, error)
	CreateDashboard(ctx context.Context, name, description string) (*Summary, error)
	UpdateDashboard(ctx context.Context, id, name, description string) (*Summary, error)
	DeleteDashboard(ctx context.Context, id string) error

	AddChart(ctx context.Context, dashboardID string, rec ChartRecord) (*ChartRecord, error)
	UpdateChart(ctx context.Context, id string, rec ChartRecord) (*ChartRecord, error)
	DeleteChart(ctx context.Context, id string) error

	SaveDataset(ctx context.Context, ds *dataset.Dataset) (*DatasetSummary, error)
	GetDataset(ctx context.Context, id string) (*dataset.Dataset, error)
	ListDatasets(ctx context.Context) ([]DatasetSummary, error)
	DeleteDataset(ctx context.Context, id string) error

	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// Kind is a registered backend name: file, sqlite, postgres, rest.
	Kind string
	// DSN is a directory for file, a connection string for SQL backends, or
	// the base URL for rest.
	DSN string
	// APIKey authenticates the rest backend.
	APIKey string
	// Timeout bounds each rest request; 0 means the backend default.
	Timeout time.Duration
}

// Factory opens a backend.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. Backends call it from init.
// Registering a kind twice panics.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if kind == "" {
		panic("store: Register called with empty kind")
	}
	if f == nil {
		panic("store: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("store: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Open constructs the backend registered under cfg.Kind.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, errors.New("store: missing kind")
	}
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store: unsupported kind %q (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds lists registered backend names in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Summarize builds the list view of a dataset.
func Summarize(ds *dataset.Dataset, created, updated time.Time) DatasetSummary {
	return DatasetSummary{
		ID:        ds.ID,
		Name:      ds.Name,
		SheetName: ds.SheetName,
		Columns:   ds.ColumnNames(),
		Rows:      len(ds.Rows),
		CreatedAt: created,
		UpdatedAt: updated,
	}
}
