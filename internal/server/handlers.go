package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"github.com/KaramelBytes/tabloom-cli/internal/logging"
	"github.com/KaramelBytes/tabloom-cli/internal/parser"
	"github.com/go-chi/chi/v5"
)

// maxParamsBytes bounds the JSON body of explore requests.
const maxParamsBytes = 1 << 20

type datasetResponse struct {
	Dataset Entry            `json:"dataset"`
	Schema  *analysis.Schema `json:"schema"`
	Params  *analysis.Params `json:"params,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"status": "ok", "datasets": len(s.store.List())})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"datasets": s.store.List()})
}

// handleUpload loads the multipart "file" field, or the synthetic sample when
// the request carries no file. Load options come from the query string.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	opt, err := s.loadOptions(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var (
		name string
		data []byte
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		maxSize := s.cfg.Server.MaxUploadBytes
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
		if err := r.ParseMultipartForm(maxSize); err != nil {
			writeError(w, r, http.StatusBadRequest, "file too large or invalid form")
			return
		}
		file, header, err := r.FormFile("file")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			writeError(w, r, http.StatusBadRequest, "invalid file field")
			return
		default:
			defer file.Close()
			data, err = io.ReadAll(file)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, "read upload: "+err.Error())
				return
			}
			name = header.Filename
		}
	}

	var t *dataset.Table
	if data == nil {
		t = dataset.Sample()
	} else {
		t, err = s.cache.Load(name, data, opt)
	}
	if err != nil {
		var le *dataset.LoadError
		if errors.As(err, &le) {
			writeError(w, r, http.StatusBadRequest, le.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	e := s.store.Add(t)
	logging.WithFields(r.Context(), "dataset_id", e.ID).Info("dataset loaded",
		"name", e.Name, "rows", e.Rows, "columns", e.Columns, "sample", data == nil)
	ok := writeJSON(w, r, http.StatusCreated, datasetResponse{
		Dataset: e,
		Schema:  analysis.DescribeSchema(t, s.cfg.Policy, s.cfg.PreviewRows),
	})
	if !ok {
		// The client never saw the ID.
		_ = s.store.Delete(e.ID)
	}
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	params := e.Params
	writeJSON(w, r, http.StatusOK, datasetResponse{
		Dataset: e,
		Schema:  analysis.DescribeSchema(e.Table, s.cfg.Policy, s.cfg.PreviewRows),
		Params:  &params,
	})
}

func (s *Server) handleExplore(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	var params analysis.Params
	r.Body = http.MaxBytesReader(w, r.Body, maxParamsBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "invalid params: "+err.Error())
		return
	}
	if err := params.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s.explore(w, r, e, params)
}

// handleReset recomputes the view from schema-derived defaults.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	s.explore(w, r, e, analysis.Params{})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(id); err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	logging.WithFields(r.Context(), "dataset_id", id).Info("dataset deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) explore(w http.ResponseWriter, r *http.Request, e Entry, params analysis.Params) {
	if params.PreviewRows <= 0 {
		params.PreviewRows = s.cfg.PreviewRows
	}
	res := analysis.Explore(e.Table, s.cfg.Policy, params)
	if err := s.store.SetParams(e.ID, params); err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	logging.WithFields(r.Context(), "dataset_id", e.ID).Debug("explored",
		"filtered_rows", res.Insights.FilteredRows, "chart", res.Chart.Mode)
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) entry(w http.ResponseWriter, r *http.Request) (Entry, bool) {
	e, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return Entry{}, false
	}
	return e, true
}

// loadOptions reads delimiter, sheet, sheet_index and max_rows from the query
// string over the configured defaults.
func (s *Server) loadOptions(r *http.Request) (dataset.Options, error) {
	opt := dataset.Options{Delimiter: s.cfg.DelimiterRune(), MaxRows: s.cfg.MaxRows}
	q := r.URL.Query()
	if d := q.Get("delimiter"); d != "" {
		delim, err := parser.ParseDelimiter(d)
		if err != nil {
			return opt, err
		}
		opt.Delimiter = delim
	}
	opt.SheetName = q.Get("sheet")
	if v := q.Get("sheet_index"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil || i < 1 {
			return opt, fmt.Errorf("invalid sheet_index: %s", v)
		}
		opt.SheetIndex = i
	}
	if v := q.Get("max_rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opt, fmt.Errorf("invalid max_rows: %s", v)
		}
		opt.MaxRows = n
	}
	return opt, nil
}
