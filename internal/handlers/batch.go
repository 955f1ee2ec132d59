package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"idverify/internal/extract"
	"idverify/internal/models"
	"idverify/internal/store"
)

const defaultExtractConcurrency = 3

// UploadEducationalBatch ingests several educational documents in one
// request; extraction runs concurrently up to EXTRACT_CONCURRENCY, and
// verification runs once over the full stored set. One unreadable or
// unextractable document never blocks the rest of the batch.
// POST /api/v1/workers/{workerID}/documents/educational/batch
// multipart/form-data with one or more files under field "documents"
func (h *Handler) UploadEducationalBatch(w http.ResponseWriter, r *http.Request) {
	workerID := chi.URLParam(r, "workerID")
	if _, err := h.store.GetWorker(r.Context(), workerID); err != nil {
		if errors.Is(err, store.ErrWorkerNotFound) {
			writeJSONResp(w, http.StatusNotFound, map[string]any{"status": "Not_Found", "message": "worker not found"})
			return
		}
		writeJSONResp(w, http.StatusInternalServerError, map[string]any{"status": "Server_Error", "message": "database error"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 50<<20)
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		writeJSONResp(w, http.StatusBadRequest, map[string]any{"status": "Bad_Request", "message": "failed to parse form or files too large"})
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File) == 0 {
		writeJSONResp(w, http.StatusBadRequest, map[string]any{"status": "Bad_Request", "message": "at least one file is required under field 'documents'"})
		return
	}
	headers := r.MultipartForm.File["documents"]
	if len(headers) == 0 {
		// tolerate any field naming, same as single upload
		for _, hs := range r.MultipartForm.File {
			headers = append(headers, hs...)
		}
	}

	generation, err := h.store.Generation(r.Context(), workerID)
	if err != nil {
		writeJSONResp(w, http.StatusInternalServerError, map[string]any{"status": "Server_Error", "message": "storage error"})
		return
	}

	docs := make([]extract.Document, 0, len(headers))
	for _, fh := range headers {
		doc := extract.Document{SourceID: uuid.New().String(), Role: models.RoleEducational}
		f, err := fh.Open()
		if err == nil {
			docBytes, readErr := io.ReadAll(f)
			f.Close()
			if readErr == nil {
				text, ocrErr := h.ocr.ExtractText(r.Context(), docBytes, fh.Header.Get("Content-Type"))
				if ocrErr != nil {
					h.log.Warn("batch upload: OCR failed for one document",
						zap.String("worker_id", workerID),
						zap.String("file", fh.Filename),
						zap.Error(ocrErr))
				}
				doc.RawText = text
			}
		}
		docs = append(docs, doc)
	}

	records := h.extractor.ExtractBatch(r.Context(), docs, extractConcurrency())

	stored := 0
	for _, rec := range records {
		if err := h.store.PutIdentityRecord(r.Context(), workerID, rec, generation); err != nil {
			if errors.Is(err, store.ErrStaleGeneration) {
				writeJSONResp(w, http.StatusConflict, map[string]any{
					"status":  "Discarded",
					"message": "documents were reset while this batch was being processed; please upload again",
				})
				return
			}
			writeJSONResp(w, http.StatusInternalServerError, map[string]any{"status": "Server_Error", "message": "failed to store extraction result"})
			return
		}
		stored++
	}

	result, err := h.runVerification(r, workerID)
	if err != nil {
		writeJSONResp(w, http.StatusInternalServerError, map[string]any{"status": "Server_Error", "message": "verification failed to run"})
		return
	}

	writeJSONResp(w, http.StatusOK, map[string]any{
		"documents_processed": stored,
		"status":              result.Status,
		"mismatches":          result.Mismatches,
		"message":             result.Message,
	})
}

func extractConcurrency() int {
	if v := os.Getenv("EXTRACT_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultExtractConcurrency
}
