// Package dashboard holds a dashboard's charts and grid layout and syncs them
// with a store.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/KaramelBytes/chartloom-cli/internal/suggest"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Grid geometry of the default two-column flow.
const (
	GridColumns   = 12
	DefaultWidth  = 6
	DefaultHeight = 4
)

// ErrChartNotFound is returned for a chart id the dashboard does not hold.
var ErrChartNotFound = errors.New("chart not in dashboard")

// Dashboard is an ordered set of charts and their grid positions.
type Dashboard struct {
	ID          string             `json:"id" yaml:"id"`
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Charts      []chart.Spec       `json:"charts" yaml:"charts"`
	Layout      []chart.LayoutItem `json:"layout" yaml:"layout"`
	CreatedAt   time.Time          `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" yaml:"updated_at"`

	// removed holds persisted chart ids dropped since the last Save.
	removed []string
}

// New returns an empty dashboard with a fresh id.
func New(name, description string) *Dashboard {
	now := time.Now().UTC()
	return &Dashboard{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Charts:      []chart.Spec{},
		Layout:      []chart.LayoutItem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// DefaultItem is the grid cell of the i-th chart: two charts per row.
func DefaultItem(i int, chartID string) chart.LayoutItem {
	return chart.LayoutItem{
		ChartID: chartID,
		X:       (i % 2) * DefaultWidth,
		Y:       (i / 2) * DefaultHeight,
		W:       DefaultWidth,
		H:       DefaultHeight,
	}
}

// DefaultLayout returns the default cells for n charts.
func DefaultLayout(n int) []chart.LayoutItem {
	out := make([]chart.LayoutItem, n)
	for i := range out {
		out[i] = DefaultItem(i, "")
	}
	return out
}

func (d *Dashboard) indexOf(id string) int {
	for i, c := range d.Charts {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (d *Dashboard) hasTitle(title string) bool {
	for _, c := range d.Charts {
		if c.Title == title {
			return true
		}
	}
	return false
}

func (d *Dashboard) appendChart(s chart.Spec) chart.Spec {
	s = s.Clone()
	if s.ID == "" {
		s.ID = suggest.NewID()
	}
	if s.Filters == nil {
		s.Filters = []chart.Filter{}
	}
	d.Layout = append(d.Layout, DefaultItem(len(d.Charts), s.ID))
	d.Charts = append(d.Charts, s)
	return s
}

// AddCharts merges suggestions, skipping any whose title is already on the
// dashboard (exact match). It returns the number added.
func (d *Dashboard) AddCharts(specs []chart.Spec) int {
	added := 0
	for _, s := range specs {
		if d.hasTitle(s.Title) {
			continue
		}
		d.appendChart(s)
		added++
	}
	return added
}

// AddChart appends a custom chart without title deduplication.
func (d *Dashboard) AddChart(s chart.Spec) chart.Spec {
	return d.appendChart(s)
}

// Chart returns the chart with id for in-place customization.
func (d *Dashboard) Chart(id string) (*chart.Spec, error) {
	i := d.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrChartNotFound, id)
	}
	return &d.Charts[i], nil
}

// UpdateChart replaces the chart carrying s.ID.
func (d *Dashboard) UpdateChart(s chart.Spec) error {
	i := d.indexOf(s.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrChartNotFound, s.ID)
	}
	d.Charts[i] = s.Clone()
	return nil
}

// RemoveChart drops a chart and its layout cell. Other charts keep their
// positions.
func (d *Dashboard) RemoveChart(id string) error {
	i := d.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrChartNotFound, id)
	}
	d.Charts = append(d.Charts[:i:i], d.Charts[i+1:]...)
	for j, l := range d.Layout {
		if l.ChartID == id {
			d.Layout = append(d.Layout[:j:j], d.Layout[j+1:]...)
			break
		}
	}
	if !chart.IsUnsaved(id) {
		d.removed = append(d.removed, id)
	}
	return nil
}

// LayoutFor returns the chart's grid cell, or its default cell when the
// layout has none.
func (d *Dashboard) LayoutFor(id string) chart.LayoutItem {
	for _, l := range d.Layout {
		if l.ChartID == id {
			return l
		}
	}
	i := d.indexOf(id)
	if i < 0 {
		i = len(d.Charts)
	}
	return DefaultItem(i, id)
}

// SetLayout moves or resizes a chart. Cells are clamped to the grid.
func (d *Dashboard) SetLayout(item chart.LayoutItem) error {
	if d.indexOf(item.ChartID) < 0 {
		return fmt.Errorf("%w: %s", ErrChartNotFound, item.ChartID)
	}
	if item.W <= 0 || item.W > GridColumns {
		item.W = DefaultWidth
	}
	if item.H <= 0 {
		item.H = DefaultHeight
	}
	item.X = max(0, min(item.X, GridColumns-item.W))
	item.Y = max(0, item.Y)
	for j, l := range d.Layout {
		if l.ChartID == item.ChartID {
			d.Layout[j] = item
			return nil
		}
	}
	d.Layout = append(d.Layout, item)
	return nil
}

// FromRecord builds a dashboard from its persisted form.
func FromRecord(rec *store.DashboardRecord) *Dashboard {
	d := &Dashboard{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Charts:      make([]chart.Spec, 0, len(rec.Charts)),
		Layout:      make([]chart.LayoutItem, 0, len(rec.Charts)),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	for _, c := range rec.Charts {
		d.Charts = append(d.Charts, c.Spec())
		d.Layout = append(d.Layout, c.Layout())
	}
	return d
}

// Create persists a new empty dashboard.
func Create(ctx context.Context, s store.Store, name, description string) (*Dashboard, error) {
	sum, err := s.CreateDashboard(ctx, name, description)
	if err != nil {
		return nil, fmt.Errorf("create dashboard: %w", err)
	}
	d := New(sum.Name, sum.Description)
	d.ID, d.CreatedAt, d.UpdatedAt = sum.ID, sum.CreatedAt, sum.UpdatedAt
	return d, nil
}

// Load fetches a dashboard and its charts.
func Load(ctx context.Context, s store.Store, id string) (*Dashboard, error) {
	rec, err := s.GetDashboard(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromRecord(rec), nil
}

// Save writes name and description, deletes charts removed since the last
// save, updates persisted charts and adds unsaved ones, replacing their
// local ids with the stored ids. The first failure is returned and the
// in-memory dashboard keeps whatever progress was made.
func Save(ctx context.Context, s store.Store, d *Dashboard) error {
	sum, err := s.UpdateDashboard(ctx, d.ID, d.Name, d.Description)
	if err != nil {
		return fmt.Errorf("save dashboard: %w", err)
	}
	d.UpdatedAt = sum.UpdatedAt

	for len(d.removed) > 0 {
		id := d.removed[0]
		if err := s.DeleteChart(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("delete chart %s: %w", id, err)
		}
		d.removed = d.removed[1:]
	}

	for i := range d.Charts {
		spec := d.Charts[i]
		rec := store.Record(spec, d.LayoutFor(spec.ID))
		if spec.ID != "" && !chart.IsUnsaved(spec.ID) {
			if _, err := s.UpdateChart(ctx, spec.ID, rec); err != nil {
				return fmt.Errorf("update chart %q: %w", spec.Title, err)
			}
			continue
		}
		saved, err := s.AddChart(ctx, d.ID, rec)
		if err != nil {
			return fmt.Errorf("add chart %q: %w", spec.Title, err)
		}
		d.rename(spec.ID, saved.ID)
	}
	return nil
}

func (d *Dashboard) rename(from, to string) {
	for i := range d.Charts {
		if d.Charts[i].ID == from {
			d.Charts[i].ID = to
		}
	}
	for i := range d.Layout {
		if d.Layout[i].ChartID == from {
			d.Layout[i].ChartID = to
		}
	}
}

// Export encodes the dashboard as "json" or "yaml".
func (d *Dashboard) Export(format string) ([]byte, error) {
	switch format {
	case "json", "":
		return json.MarshalIndent(d, "", "  ")
	case "yaml", "yml":
		return yaml.Marshal(d)
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}
