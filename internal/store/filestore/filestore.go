package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
	"github.com/google/uuid"
)

const (
	dashboardsDir = "dashboards"
	datasetsDir   = "datasets"
)

func init() {
	store.Register("file", func(_ context.Context, cfg store.Config) (store.Store, error) {
		return New(cfg.DSN)
	})
}

// Store keeps one JSON document per dashboard and per dataset under a root
// directory. Writes go through utils.SafeWriteFile.
type Store struct {
	root string
	mu   sync.Mutex
	now  func() time.Time
}

type storedDataset struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	SheetName string        `json:"sheet_name"`
	Columns   []string      `json:"columns"`
	Rows      []dataset.Row `json:"data"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// New opens (creating if needed) a file store rooted at dir.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("filestore: data directory not set")
	}
	for _, sub := range []string{dashboardsDir, datasetsDir} {
		if err := utils.EnsureDir(filepath.Join(dir, sub)); err != nil {
			return nil, fmt.Errorf("ensure dir: %w", err)
		}
	}
	return &Store{root: dir, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Root returns the data directory.
func (s *Store) Root() string { return s.root }

func (s *Store) Close() error { return nil }

func (s *Store) path(kind, id string) (string, error) {
	if id == "" || filepath.Base(id) != id || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", store.ErrNotFound, id)
	}
	return filepath.Join(s.root, kind, id+".json"), nil
}

func (s *Store) loadDashboard(id string) (*store.DashboardRecord, error) {
	p, err := s.path(dashboardsDir, id)
	if err != nil {
		return nil, err
	}
	var d store.DashboardRecord
	if err := utils.ReadJSON(p, &d); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("dashboard %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("read dashboard: %w", err)
	}
	return &d, nil
}

func (s *Store) saveDashboard(d *store.DashboardRecord) error {
	p, err := s.path(dashboardsDir, d.ID)
	if err != nil {
		return err
	}
	return utils.WriteJSON(p, d)
}

func (s *Store) allDashboards() ([]*store.DashboardRecord, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, dashboardsDir))
	if err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}
	var out []*store.DashboardRecord
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		d, err := s.loadDashboard(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) ListDashboards(ctx context.Context) ([]store.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.allDashboards()
	if err != nil {
		return nil, err
	}
	out := make([]store.Summary, len(all))
	for i, d := range all {
		out[i] = d.Summary
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *Store) GetDashboard(ctx context.Context, id string) (*store.DashboardRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadDashboard(id)
}

func (s *Store) CreateDashboard(ctx context.Context, name, description string) (*store.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	d := &store.DashboardRecord{
		Summary: store.Summary{ID: uuid.NewString(), Name: name, Description: description, CreatedAt: now, UpdatedAt: now},
		Charts:  []store.ChartRecord{},
	}
	if err := s.saveDashboard(d); err != nil {
		return nil, err
	}
	sum := d.Summary
	return &sum, nil
}

func (s *Store) UpdateDashboard(ctx context.Context, id, name, description string) (*store.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.loadDashboard(id)
	if err != nil {
		return nil, err
	}
	d.Name, d.Description, d.UpdatedAt = name, description, s.now()
	if err := s.saveDashboard(d); err != nil {
		return nil, err
	}
	sum := d.Summary
	return &sum, nil
}

func (s *Store) DeleteDashboard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.path(dashboardsDir, id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("dashboard %s: %w", id, store.ErrNotFound)
		}
		return fmt.Errorf("delete dashboard: %w", err)
	}
	return nil
}

func (s *Store) AddChart(ctx context.Context, dashboardID string, rec store.ChartRecord) (*store.ChartRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.loadDashboard(dashboardID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	rec.ID = uuid.NewString()
	rec.DashboardID = dashboardID
	rec.CreatedAt, rec.UpdatedAt = now, now
	d.Charts = append(d.Charts, rec)
	d.UpdatedAt = now
	if err := s.saveDashboard(d); err != nil {
		return nil, err
	}
	return &rec, nil
}

// findChart returns the dashboard holding chart id and the chart's index.
func (s *Store) findChart(id string) (*store.DashboardRecord, int, error) {
	all, err := s.allDashboards()
	if err != nil {
		return nil, 0, err
	}
	for _, d := range all {
		for i, c := range d.Charts {
			if c.ID == id {
				return d, i, nil
			}
		}
	}
	return nil, 0, fmt.Errorf("chart %s: %w", id, store.ErrNotFound)
}

func (s *Store) UpdateChart(ctx context.Context, id string, rec store.ChartRecord) (*store.ChartRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, i, err := s.findChart(id)
	if err != nil {
		return nil, err
	}
	prev := d.Charts[i]
	rec.ID, rec.DashboardID, rec.CreatedAt = prev.ID, prev.DashboardID, prev.CreatedAt
	rec.UpdatedAt = s.now()
	d.Charts[i] = rec
	d.UpdatedAt = rec.UpdatedAt
	if err := s.saveDashboard(d); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) DeleteChart(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, i, err := s.findChart(id)
	if err != nil {
		return err
	}
	d.Charts = append(d.Charts[:i], d.Charts[i+1:]...)
	d.UpdatedAt = s.now()
	return s.saveDashboard(d)
}

func (s *Store) loadDataset(id string) (*storedDataset, error) {
	p, err := s.path(datasetsDir, id)
	if err != nil {
		return nil, err
	}
	var sd storedDataset
	if err := utils.ReadJSON(p, &sd); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("dataset %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return &sd, nil
}

// SaveDataset writes ds under its id, replacing any earlier copy.
func (s *Store) SaveDataset(ctx context.Context, ds *dataset.Dataset) (*store.DatasetSummary, error) {
	if ds == nil {
		return nil, errors.New("dataset is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	created := now
	if prev, err := s.loadDataset(ds.ID); err == nil {
		created = prev.CreatedAt
	}
	sd := storedDataset{
		ID:        ds.ID,
		Name:      ds.Name,
		SheetName: ds.SheetName,
		Columns:   ds.ColumnNames(),
		Rows:      ds.Rows,
		CreatedAt: created,
		UpdatedAt: now,
	}
	p, err := s.path(datasetsDir, ds.ID)
	if err != nil {
		return nil, err
	}
	if err := utils.WriteJSON(p, sd); err != nil {
		return nil, err
	}
	sum := store.Summarize(ds, created, now)
	return &sum, nil
}

func (s *Store) GetDataset(ctx context.Context, id string) (*dataset.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sd, err := s.loadDataset(id)
	if err != nil {
		return nil, err
	}
	return dataset.FromRows(sd.ID, sd.Name, sd.SheetName, sd.Columns, sd.Rows, 0)
}

func (s *Store) ListDatasets(ctx context.Context) ([]store.DatasetSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(filepath.Join(s.root, datasetsDir))
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	out := []store.DatasetSummary{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		sd, err := s.loadDataset(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		out = append(out, store.DatasetSummary{
			ID: sd.ID, Name: sd.Name, SheetName: sd.SheetName, Columns: sd.Columns,
			Rows: len(sd.Rows), CreatedAt: sd.CreatedAt, UpdatedAt: sd.UpdatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *Store) DeleteDataset(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.path(datasetsDir, id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("dataset %s: %w", id, store.ErrNotFound)
		}
		return fmt.Errorf("delete dataset: %w", err)
	}
	return nil
}
