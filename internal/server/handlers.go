package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/analysis"
	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/chartdata"
	"github.com/KaramelBytes/chartloom-cli/internal/dashboard"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/render"
	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/go-chi/chi/v5"
)

var errBadRequest = errors.New("bad request")

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// loadUpload reads the multipart "file" field (and optional "sheet") into
// datasets.
func (s *Server) loadUpload(w http.ResponseWriter, r *http.Request) ([]*dataset.Dataset, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: missing file field: %v", errBadRequest, err)
	}
	defer file.Close()

	dir, err := os.MkdirTemp("", "chartloom-upload-*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)
	name := filepath.Base(hdr.Filename)
	if name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: invalid file name %q", errBadRequest, hdr.Filename)
	}
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		return nil, fmt.Errorf("copy upload: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	opts := s.opts
	if sheet := strings.TrimSpace(r.FormValue("sheet")); sheet != "" {
		opts.SheetName = sheet
	}
	return dataset.LoadFile(path, opts)
}

func reports(dss []*dataset.Dataset) ([]*analysis.Report, error) {
	out := make([]*analysis.Report, 0, len(dss))
	for _, ds := range dss {
		rep, err := analysis.AnalyzeDataset(ds)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, nil
}

// handleAnalyze previews an upload without storing it.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	dss, err := s.loadUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	reps, err := reports(dss)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reps})
}

type importResponse struct {
	Datasets []store.DatasetSummary `json:"datasets"`
	Reports  []*analysis.Report     `json:"reports"`
}

func (s *Server) saveAll(w http.ResponseWriter, r *http.Request, dss []*dataset.Dataset) {
	reps, err := reports(dss)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := importResponse{Reports: reps}
	for _, ds := range dss {
		sum, err := s.store.SaveDataset(r.Context(), ds)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		resp.Datasets = append(resp.Datasets, *sum)
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleImportDataset(w http.ResponseWriter, r *http.Request) {
	dss, err := s.loadUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.saveAll(w, r, dss)
}

func (s *Server) handleManualDataset(w http.ResponseWriter, r *http.Request) {
	var m dataset.ManualEntry
	if err := decode(r, &m); err != nil {
		s.fail(w, r, err)
		return
	}
	ds, err := m.Dataset(s.opts.SampleSize)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	s.saveAll(w, r, []*dataset.Dataset{ds})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListDatasets(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := s.store.GetDataset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteDataset(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type suggestRequest struct {
	DatasetID   string `json:"dataset_id"`
	DashboardID string `json:"dashboard_id,omitempty"`
}

type suggestResponse struct {
	Charts    []chart.Spec         `json:"charts"`
	Added     int                  `json:"added,omitempty"`
	Dashboard *dashboard.Dashboard `json:"dashboard,omitempty"`
}

// handleSuggest proposes charts for a stored dataset, merging them into a
// dashboard when one is named.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ds, err := s.store.GetDataset(r.Context(), req.DatasetID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	specs, err := s.engine.Suggest(ds)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := suggestResponse{Charts: specs}
	if req.DashboardID != "" {
		d, err := dashboard.Load(r.Context(), s.store, req.DashboardID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		resp.Added = d.AddCharts(specs)
		if err := dashboard.Save(r.Context(), s.store, d); err != nil {
			s.fail(w, r, err)
			return
		}
		resp.Dashboard = d
	}
	writeJSON(w, http.StatusOK, resp)
}

type processRequest struct {
	DatasetID string     `json:"dataset_id"`
	Chart     chart.Spec `json:"chart"`
}

type processResponse struct {
	Columns []string       `json:"columns"`
	Rows    []dataset.Row  `json:"rows"`
	Option  map[string]any `json:"option"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	spec, err := normalize(req.Chart)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ds, err := s.store.GetDataset(r.Context(), req.DatasetID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows, err := chartdata.Process(ds, spec)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cols := render.Columns(spec, ds.ColumnNames())
	opt, err := render.ECharts(spec, cols, rows)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, processResponse{Columns: cols, Rows: rows, Option: opt})
}

// normalize checks a client-supplied spec and fills the default aggregation.
func normalize(spec chart.Spec) (chart.Spec, error) {
	if err := spec.SetType(spec.Type); err != nil {
		return spec, err
	}
	if spec.Aggregation == "" {
		spec.Aggregation = chart.AggSum
	}
	if err := spec.SetAggregation(spec.Aggregation); err != nil {
		return spec, err
	}
	if err := spec.SetTitle(spec.Title); err != nil {
		return spec, err
	}
	for _, f := range spec.Filters {
		if err := f.Validate(); err != nil {
			return spec, err
		}
	}
	if spec.Filters == nil {
		spec.Filters = []chart.Filter{}
	}
	return spec, nil
}

func (s *Server) handleListDashboards(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListDashboards(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type dashboardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (req dashboardRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", errBadRequest)
	}
	return nil
}

func (s *Server) handleCreateDashboard(w http.ResponseWriter, r *http.Request) {
	var req dashboardRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := dashboard.Create(r.Context(), s.store, strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := dashboard.Load(r.Context(), s.store, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateDashboard(w http.ResponseWriter, r *http.Request) {
	var req dashboardRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		s.fail(w, r, err)
		return
	}
	sum, err := s.store.UpdateDashboard(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleDeleteDashboard(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteDashboard(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type chartRequest struct {
	Chart  chart.Spec        `json:"chart"`
	Layout *chart.LayoutItem `json:"layout,omitempty"`
}

// handleAddChart stores a chart on a dashboard. Without a layout the chart
// takes the next default grid cell.
func (s *Server) handleAddChart(w http.ResponseWriter, r *http.Request) {
	var req chartRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	spec, err := normalize(req.Chart)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	layout := req.Layout
	if layout == nil {
		rec, err := s.store.GetDashboard(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		item := dashboard.DefaultItem(len(rec.Charts), "")
		layout = &item
	}
	saved, err := s.store.AddChart(r.Context(), id, store.Record(spec, *layout))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateChart(w http.ResponseWriter, r *http.Request) {
	var req chartRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Layout == nil {
		s.fail(w, r, fmt.Errorf("%w: layout is required", errBadRequest))
		return
	}
	spec, err := normalize(req.Chart)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	saved, err := s.store.UpdateChart(r.Context(), chi.URLParam(r, "id"), store.Record(spec, *req.Layout))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteChart(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteChart(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
