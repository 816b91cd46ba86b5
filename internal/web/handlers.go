package web

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/06sarv/Parameter-Visualiser/internal/core"
	"github.com/06sarv/Parameter-Visualiser/internal/logging"
	"github.com/go-chi/chi/v5"
)

// handleUpload ingests a CSV file from a multipart form under the "file"
// field. On success it returns the created dataset, on validation failure
// a coded error; a failed upload leaves no trace in the store or history.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, fmt.Errorf("no file provided: %w", err))
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		s.respondError(w, r, http.StatusBadRequest, fmt.Errorf("file %q is not a CSV", header.Filename))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	ds, err := s.service.Ingest(r.Context(), data, header.Filename)
	if err != nil {
		s.respondError(w, r, statusFor(err), err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, ds)
}

// handleDataset returns the full dataset, including its ordered records.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	id, err := datasetID(r)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err)
		return
	}

	ds, err := s.service.Dataset(r.Context(), id)
	if err != nil {
		s.respondError(w, r, statusFor(err), err)
		return
	}

	writeJSONStatus(w, http.StatusOK, ds)
}

// handleHistory returns the most recent datasets, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.History(r.Context())
	if err != nil {
		s.respondError(w, r, statusFor(err), err)
		return
	}

	if entries == nil {
		entries = []core.HistoryEntry{}
	}
	writeJSONStatus(w, http.StatusOK, entries)
}

// handleReport streams the rendered text report as a download.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := datasetID(r)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err)
		return
	}

	doc, err := s.service.Report(r.Context(), id)
	if err != nil {
		s.respondError(w, r, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="equipment_report_%d.txt"`, id))
	if _, err := w.Write(doc); err != nil {
		logging.FromContext(r.Context()).Error("write report", "dataset_id", id, "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONStatus(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func datasetID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "datasetID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid dataset id %q", raw)
	}
	return id, nil
}
