package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"idverify/internal/models"
	"idverify/internal/store"
)

// UploadDocument ingests one scanned document for a worker: OCR, LLM
// extraction, persistence and a fresh verification run, returned in one
// response.
// POST /api/v1/workers/{workerID}/documents/{role}
// multipart/form-data with file field "document"
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	workerID := chi.URLParam(r, "workerID")
	role := models.DocumentRole(chi.URLParam(r, "role"))
	if !role.Valid() {
		writeJSONResp(w, http.StatusBadRequest, map[string]any{
			"status":  "Bad_Request",
			"message": "role must be 'personal' or 'educational'",
		})
		return
	}
	if _, err := h.store.GetWorker(r.Context(), workerID); err != nil {
		if errors.Is(err, store.ErrWorkerNotFound) {
			writeJSONResp(w, http.StatusNotFound, map[string]any{"status": "Not_Found", "message": "worker not found"})
			return
		}
		writeJSONResp(w, http.StatusInternalServerError, map[string]any{"status": "Server_Error", "message": "database error"})
		return
	}

	// Limit body to 10MB
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSONResp(w, http.StatusBadRequest, map[string]any{
			"status":  "Bad_Request",
			"message": "failed to parse form or file too large",
		})
		return
	}
	file, fileHeader, err := formFile(r, "document")
	if err != nil {
		writeJSONResp(w, http.StatusBadRequest, map[string]any{
			"status":  "Bad_Request",
			"message": "missing file field 'document' (send multipart/form-data with field name 'document')",
		})
		return
	}
	defer file.Close()

	docBytes, err := io.ReadAll(file)
	if err != nil || len(docBytes) == 0 {
		writeJSONResp(w, http.StatusBadRequest, map[string]any{"status": "Bad_Request", "message": "failed to read uploaded file"})
		return
	}

	// Stamp the generation before any slow work starts; a reset that
	// lands mid-flight makes this result stale.
	generation, err := h.store.Generation(r.Context(), workerID)
	if err != nil {
		writeJSONResp(w, http.StatusInternalServerError, map[string]any{"status": "Server_Error", "message": "storage error"})
		return
	}

	rawText, err := h.ocr.ExtractText(r.Context(), docBytes, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		// Unreadable document means no text to extract; the pipeline
		// proceeds and produces an all-absent, incomplete record.
		h.log.Warn("upload: OCR failed, proceeding with empty text",
			zap.String("worker_id", workerID), zap.Error(err))
		rawText = ""
	}

	rec := h.extractor.Extract(r.Context(), rawText, role, uuid.New().String())

	if err := h.store.PutIdentityRecord(r.Context(), workerID, rec, generation); err != nil {
		if errors.Is(err, store.ErrStaleGeneration) {
			writeJSONResp(w, http.StatusConflict, map[string]any{
				"status":  "Discarded",
				"message": "documents were reset while this upload was being processed; please upload again",
			})
			return
		}
		writeJSONResp(w, http.StatusInternalServerError, map[string]any{"status": "Server_Error", "message": "failed to store extraction result"})
		return
	}

	result, err := h.runVerification(r, workerID)
	if err != nil {
		writeJSONResp(w, http.StatusInternalServerError, map[string]any{"status": "Server_Error", "message": "verification failed to run"})
		return
	}

	writeJSONResp(w, http.StatusOK, map[string]any{
		"document": map[string]any{
			"id":                  rec.SourceDocumentID,
			"role":                rec.Role,
			"extracted_name":      rec.Name,
			"extracted_dob":       rec.DateOfBirth,
			"extraction_complete": rec.ExtractionComplete,
		},
		"status":     result.Status,
		"mismatches": result.Mismatches,
		"message":    result.Message,
	})
}

// runVerification loads everything on file for the worker, verifies,
// and persists the aggregate.
func (h *Handler) runVerification(r *http.Request, workerID string) (models.VerificationResult, error) {
	personal, err := h.store.GetIdentityRecord(r.Context(), workerID, models.RolePersonal)
	if err != nil {
		return models.VerificationResult{}, err
	}
	educational, err := h.store.ListEducationalRecords(r.Context(), workerID)
	if err != nil {
		return models.VerificationResult{}, err
	}

	result := h.orch.Verify(personal, educational)
	if err := h.store.PutVerificationResult(r.Context(), workerID, result); err != nil {
		return models.VerificationResult{}, err
	}

	h.log.Info("verification run",
		zap.String("worker_id", workerID),
		zap.String("status", string(result.Status)),
		zap.Int("educational_documents", len(educational)),
		zap.Int("mismatches", len(result.Mismatches)))
	return result, nil
}
