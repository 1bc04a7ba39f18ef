package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/tabinsight/internal/ingest"
	"github.com/KaramelBytes/tabinsight/internal/profile"
	"github.com/KaramelBytes/tabinsight/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// fail maps store and ingest errors to a status. Anything unrecognized is
// logged and reported as a generic internal error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, table string, err error) {
	var se *profile.StructuralError
	switch {
	case errors.Is(err, store.ErrTableNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Table %s not found", table))
	case errors.Is(err, store.ErrTableExists):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Table %s already exists", table))
	case errors.Is(err, store.ErrInvalidIdentifier),
		errors.Is(err, store.ErrUnknownColumn),
		errors.Is(err, ingest.ErrUnsupportedFormat),
		errors.Is(err, ingest.ErrSheetNotFound),
		errors.As(err, &se):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.WithFields(logrus.Fields{
			"request_id": requestID(r.Context()),
			"table":      table,
		}).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func tableParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := strings.TrimSpace(r.URL.Query().Get("table_name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "Table name is required")
		return "", false
	}
	return name, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.tables.ListTables(r.Context())
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	if tables == nil {
		tables = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		s.metrics.RecordUpload("rejected")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d bytes", s.cfg.MaxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if hdr.Filename == "" {
		s.metrics.RecordUpload("rejected")
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	if !ingest.Supported(hdr.Filename) {
		s.metrics.RecordUpload("rejected")
		writeError(w, http.StatusBadRequest, "Only CSV and XLSX files are supported")
		return
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		s.metrics.RecordUpload("error")
		s.fail(w, r, "", fmt.Errorf("read upload: %w", err))
		return
	}
	ds, err := ingest.Read(hdr.Filename, buf.Bytes(), ingest.Options{})
	if err != nil {
		s.metrics.RecordUpload("rejected")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds = ingest.SanitizeDataset(ds)
	table := ingest.TableNameFromFile(hdr.Filename)

	if err := s.tables.CreateTable(r.Context(), table, ds); err != nil {
		if errors.Is(err, store.ErrTableExists) || errors.Is(err, store.ErrInvalidIdentifier) {
			s.metrics.RecordUpload("rejected")
		} else {
			s.metrics.RecordUpload("error")
		}
		s.fail(w, r, table, err)
		return
	}
	s.metrics.RecordUpload("ok")
	s.log.WithFields(logrus.Fields{
		"request_id": requestID(r.Context()),
		"table":      table,
		"rows":       len(ds.Rows),
	}).Info("table created")
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Table %s created and data inserted successfully!", table),
	})
}

func (s *Server) handleTableSchema(w http.ResponseWriter, r *http.Request) {
	table, ok := tableParam(w, r)
	if !ok {
		return
	}
	cols, err := s.tables.Columns(r.Context(), table)
	if err != nil {
		s.fail(w, r, table, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": cols})
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not an integer: %s", b)
	}
	*f = flexInt(n)
	return nil
}

type filterRequest struct {
	TableName string         `json:"table_name"`
	Filters   map[string]any `json:"filters"`
	Page      flexInt        `json:"page"`
	Limit     flexInt        `json:"limit"`
}

func (s *Server) handleFilterData(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	table := strings.TrimSpace(req.TableName)
	if table == "" {
		writeError(w, http.StatusBadRequest, "Table name is required")
		return
	}
	filters := make(map[string]string, len(req.Filters))
	for k, v := range req.Filters {
		switch t := v.(type) {
		case nil:
		case string:
			filters[k] = t
		default:
			filters[k] = fmt.Sprint(t)
		}
	}

	res, err := s.tables.Filter(r.Context(), table, store.FilterQuery{
		Filters: filters,
		Page:    int(req.Page),
		Limit:   int(req.Limit),
	})
	if err != nil {
		s.fail(w, r, table, err)
		return
	}
	rows := res.Rows
	if rows == nil {
		rows = []profile.Row{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rows, "total_records": res.TotalRecords})
}

func (s *Server) handleTableSummary(w http.ResponseWriter, r *http.Request) {
	table, ok := tableParam(w, r)
	if !ok {
		return
	}
	counts, err := s.tables.ValueCounts(r.Context(), table)
	if err != nil {
		s.fail(w, r, table, err)
		return
	}
	summary := make(map[string][]map[string]any, len(counts))
	for col, vcs := range counts {
		entries := make([]map[string]any, len(vcs))
		for i, vc := range vcs {
			entries[i] = map[string]any{col: vc.Value, "count": vc.Count}
		}
		summary[col] = entries
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
}

func (s *Server) handleAnalyzeTable(w http.ResponseWriter, r *http.Request) {
	table, ok := tableParam(w, r)
	if !ok {
		return
	}
	ds, err := s.tables.FetchAll(r.Context(), table)
	if err != nil {
		s.fail(w, r, table, err)
		return
	}

	start := time.Now()
	rep, err := s.profiler.Profile(table, ds)
	if err != nil {
		s.metrics.RecordProfileError()
		s.fail(w, r, table, err)
		return
	}
	elapsed := time.Since(start)
	s.metrics.RecordProfile(rep.Rows, float64(elapsed.Milliseconds()), FlaggedByReason(rep))
	s.log.WithFields(logrus.Fields{
		"request_id":  requestID(r.Context()),
		"table":       table,
		"rows":        rep.Rows,
		"anomalies":   len(rep.Anomalies),
		"duration_ms": elapsed.Milliseconds(),
	}).Info("table profiled")
	writeJSON(w, http.StatusOK, rep)
}

// FlaggedByReason counts anomalous rows per reason kind.
func FlaggedByReason(rep *profile.Report) map[string]int {
	out := map[string]int{}
	for _, a := range rep.Anomalies {
		seen := map[profile.ReasonKind]bool{}
		for _, reason := range a.Reasons {
			if !seen[reason.Kind] {
				seen[reason.Kind] = true
				out[string(reason.Kind)]++
			}
		}
	}
	return out
}
