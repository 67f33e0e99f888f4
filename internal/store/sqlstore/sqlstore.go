package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// timestamps are stored as fixed-width UTC text so they sort and round-trip
// the same way on every driver
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS dashboards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS charts (
		id TEXT PRIMARY KEY,
		dashboard_id TEXT NOT NULL REFERENCES dashboards(id) ON DELETE CASCADE,
		ord INTEGER NOT NULL,
		dataset_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		type TEXT NOT NULL,
		x_axis TEXT NOT NULL DEFAULT '',
		y_axis TEXT NOT NULL,
		aggregation TEXT NOT NULL DEFAULT '',
		colors TEXT NOT NULL,
		position TEXT NOT NULL,
		filters TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS charts_dashboard_ord ON charts (dashboard_id, ord)`,
	`CREATE TABLE IF NOT EXISTS datasets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		sheet_name TEXT NOT NULL DEFAULT '',
		columns TEXT NOT NULL,
		data TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
}

func init() {
	store.Register("postgres", func(ctx context.Context, cfg store.Config) (store.Store, error) {
		return Open(ctx, "postgres", cfg.DSN)
	})
	store.Register("sqlite", func(ctx context.Context, cfg store.Config) (store.Store, error) {
		return Open(ctx, "sqlite", cfg.DSN)
	})
}

// Store implements store.Store on database/sql through sqlx. Queries are
// written with '?' placeholders and rebound per driver.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open connects, pings, and creates missing tables. driver is "postgres" or
// "sqlite".
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: %s dsn not set", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one connection keeps an in-memory database alive and avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) q(query string) string { return s.db.Rebind(query) }

type dashboardRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

func (r dashboardRow) summary() store.Summary {
	return store.Summary{
		ID: r.ID, Name: r.Name, Description: r.Description,
		CreatedAt: parseTime(r.CreatedAt), UpdatedAt: parseTime(r.UpdatedAt),
	}
}

type chartRow struct {
	ID          string `db:"id"`
	DashboardID string `db:"dashboard_id"`
	Ord         int    `db:"ord"`
	DatasetID   string `db:"dataset_id"`
	Title       string `db:"title"`
	Type        string `db:"type"`
	XAxis       string `db:"x_axis"`
	YAxis       string `db:"y_axis"`
	Aggregation string `db:"aggregation"`
	Colors      string `db:"colors"`
	Position    string `db:"position"`
	Filters     string `db:"filters"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

func (r chartRow) record() (store.ChartRecord, error) {
	rec := store.ChartRecord{
		ID: r.ID, DashboardID: r.DashboardID, DatasetID: r.DatasetID,
		Title: r.Title, Type: r.Type, XAxis: r.XAxis, Aggregation: r.Aggregation,
		CreatedAt: parseTime(r.CreatedAt), UpdatedAt: parseTime(r.UpdatedAt),
	}
	for _, f := range []struct {
		raw string
		dst any
	}{
		{r.YAxis, &rec.YAxis},
		{r.Colors, &rec.Colors},
		{r.Position, &rec.Position},
		{r.Filters, &rec.Filters},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return store.ChartRecord{}, fmt.Errorf("decode chart %s: %w", r.ID, err)
		}
	}
	return rec, nil
}

// encodeChart fills the JSON columns of a chart row.
func encodeChart(rec store.ChartRecord) (yAxis, colors, position, filters string, err error) {
	if rec.YAxis == nil {
		rec.YAxis = []string{}
	}
	if rec.Colors == nil {
		rec.Colors = []string{}
	}
	if rec.Filters == nil {
		rec.Filters = []chart.Filter{}
	}
	out := make([]string, 4)
	for i, v := range []any{rec.YAxis, rec.Colors, rec.Position, rec.Filters} {
		b, e := json.Marshal(v)
		if e != nil {
			return "", "", "", "", fmt.Errorf("encode chart: %w", e)
		}
		out[i] = string(b)
	}
	return out[0], out[1], out[2], out[3], nil
}

func (s *Store) ListDashboards(ctx context.Context) ([]store.Summary, error) {
	var rows []dashboardRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, name, description, created_at, updated_at FROM dashboards ORDER BY updated_at DESC`); err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}
	out := make([]store.Summary, len(rows))
	for i, r := range rows {
		out[i] = r.summary()
	}
	return out, nil
}

func (s *Store) getDashboardRow(ctx context.Context, q sqlx.QueryerContext, id string) (dashboardRow, error) {
	var row dashboardRow
	err := sqlx.GetContext(ctx, q, &row, s.q(`SELECT id, name, description, created_at, updated_at FROM dashboards WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return row, fmt.Errorf("dashboard %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return row, fmt.Errorf("get dashboard: %w", err)
	}
	return row, nil
}

func (s *Store) GetDashboard(ctx context.Context, id string) (*store.DashboardRecord, error) {
	row, err := s.getDashboardRow(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	var charts []chartRow
	if err := s.db.SelectContext(ctx, &charts, s.q(`SELECT * FROM charts WHERE dashboard_id = ? ORDER BY ord`), id); err != nil {
		return nil, fmt.Errorf("list charts: %w", err)
	}
	d := &store.DashboardRecord{Summary: row.summary(), Charts: make([]store.ChartRecord, 0, len(charts))}
	for _, c := range charts {
		rec, err := c.record()
		if err != nil {
			return nil, err
		}
		d.Charts = append(d.Charts, rec)
	}
	return d, nil
}

func (s *Store) CreateDashboard(ctx context.Context, name, description string) (*store.Summary, error) {
	now := fmtTime(s.now())
	row := dashboardRow{ID: uuid.NewString(), Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO dashboards (id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
		row.ID, row.Name, row.Description, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create dashboard: %w", err)
	}
	sum := row.summary()
	return &sum, nil
}

func (s *Store) UpdateDashboard(ctx context.Context, id, name, description string) (*store.Summary, error) {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE dashboards SET name = ?, description = ?, updated_at = ? WHERE id = ?`),
		name, description, fmtTime(s.now()), id)
	if err := affected(res, err, "dashboard", id); err != nil {
		return nil, err
	}
	row, err := s.getDashboardRow(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	sum := row.summary()
	return &sum, nil
}

func (s *Store) DeleteDashboard(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM charts WHERE dashboard_id = ?`), id); err != nil {
		return fmt.Errorf("delete charts: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM dashboards WHERE id = ?`), id)
	if err := affected(res, err, "dashboard", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) AddChart(ctx context.Context, dashboardID string, rec store.ChartRecord) (*store.ChartRecord, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	if _, err := s.getDashboardRow(ctx, tx, dashboardID); err != nil {
		return nil, err
	}
	var ord int
	if err := tx.GetContext(ctx, &ord, s.q(`SELECT COALESCE(MAX(ord), 0) + 1 FROM charts WHERE dashboard_id = ?`), dashboardID); err != nil {
		return nil, fmt.Errorf("next chart position: %w", err)
	}
	yAxis, colors, position, filters, err := encodeChart(rec)
	if err != nil {
		return nil, err
	}
	now := s.now()
	rec.ID = uuid.NewString()
	rec.DashboardID = dashboardID
	rec.CreatedAt, rec.UpdatedAt = parseTime(fmtTime(now)), parseTime(fmtTime(now))
	_, err = tx.ExecContext(ctx, s.q(`INSERT INTO charts
		(id, dashboard_id, ord, dataset_id, title, type, x_axis, y_axis, aggregation, colors, position, filters, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, dashboardID, ord, rec.DatasetID, rec.Title, rec.Type, rec.XAxis, yAxis, rec.Aggregation,
		colors, position, filters, fmtTime(now), fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("add chart: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`UPDATE dashboards SET updated_at = ? WHERE id = ?`), fmtTime(now), dashboardID); err != nil {
		return nil, fmt.Errorf("touch dashboard: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &rec, nil
}

func (s *Store) UpdateChart(ctx context.Context, id string, rec store.ChartRecord) (*store.ChartRecord, error) {
	yAxis, colors, position, filters, err := encodeChart(rec)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE charts SET dataset_id = ?, title = ?, type = ?, x_axis = ?, y_axis = ?,
		aggregation = ?, colors = ?, position = ?, filters = ?, updated_at = ? WHERE id = ?`),
		rec.DatasetID, rec.Title, rec.Type, rec.XAxis, yAxis, rec.Aggregation, colors, position, filters, fmtTime(s.now()), id)
	if err := affected(res, err, "chart", id); err != nil {
		return nil, err
	}
	var row chartRow
	if err := s.db.GetContext(ctx, &row, s.q(`SELECT * FROM charts WHERE id = ?`), id); err != nil {
		return nil, fmt.Errorf("reload chart: %w", err)
	}
	out, err := row.record()
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) DeleteChart(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM charts WHERE id = ?`), id)
	return affected(res, err, "chart", id)
}

type datasetRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	SheetName string `db:"sheet_name"`
	Columns   string `db:"columns"`
	Data      string `db:"data"`
	RowCount  int    `db:"row_count"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (s *Store) SaveDataset(ctx context.Context, ds *dataset.Dataset) (*store.DatasetSummary, error) {
	if ds == nil {
		return nil, errors.New("dataset is nil")
	}
	cols, err := json.Marshal(ds.ColumnNames())
	if err != nil {
		return nil, fmt.Errorf("encode columns: %w", err)
	}
	data, err := json.Marshal(ds.Rows)
	if err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}
	now := fmtTime(s.now())
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO datasets (id, name, sheet_name, columns, data, row_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, sheet_name = excluded.sheet_name, columns = excluded.columns,
			data = excluded.data, row_count = excluded.row_count, updated_at = excluded.updated_at`),
		ds.ID, ds.Name, ds.SheetName, string(cols), string(data), len(ds.Rows), now, now)
	if err != nil {
		return nil, fmt.Errorf("save dataset: %w", err)
	}
	var created string
	if err := s.db.GetContext(ctx, &created, s.q(`SELECT created_at FROM datasets WHERE id = ?`), ds.ID); err != nil {
		return nil, fmt.Errorf("reload dataset: %w", err)
	}
	sum := store.Summarize(ds, parseTime(created), parseTime(now))
	return &sum, nil
}

func (s *Store) GetDataset(ctx context.Context, id string) (*dataset.Dataset, error) {
	var row datasetRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT * FROM datasets WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	var cols []string
	if err := json.Unmarshal([]byte(row.Columns), &cols); err != nil {
		return nil, fmt.Errorf("decode columns: %w", err)
	}
	var rows []dataset.Row
	if err := json.Unmarshal([]byte(row.Data), &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return dataset.FromRows(row.ID, row.Name, row.SheetName, cols, rows, 0)
}

func (s *Store) ListDatasets(ctx context.Context) ([]store.DatasetSummary, error) {
	var rows []datasetRow
	err := s.db.SelectContext(ctx, &rows, `SELECT id, name, sheet_name, columns, row_count, created_at, updated_at FROM datasets ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	out := make([]store.DatasetSummary, 0, len(rows))
	for _, r := range rows {
		var cols []string
		if err := json.Unmarshal([]byte(r.Columns), &cols); err != nil {
			return nil, fmt.Errorf("decode columns of %s: %w", r.ID, err)
		}
		out = append(out, store.DatasetSummary{
			ID: r.ID, Name: r.Name, SheetName: r.SheetName, Columns: cols, Rows: r.RowCount,
			CreatedAt: parseTime(r.CreatedAt), UpdatedAt: parseTime(r.UpdatedAt),
		})
	}
	return out, nil
}

func (s *Store) DeleteDataset(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM datasets WHERE id = ?`), id)
	return affected(res, err, "dataset", id)
}

// affected maps a zero-row write to store.ErrNotFound.
func affected(res sql.Result, err error, kind, id string) error {
	if err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return nil
}

func fmtTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
