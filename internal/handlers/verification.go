package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"idverify/internal/models"
	"idverify/internal/store"
)

// GetVerification returns the worker's current verification state in
// the caller-facing shape: status, mismatches and a human-readable
// message. If verification has never run, the state is pending with an
// explicit reason rather than an empty body.
// GET /api/v1/workers/{workerID}/verification
func (h *Handler) GetVerification(w http.ResponseWriter, r *http.Request) {
	workerID := chi.URLParam(r, "workerID")
	if _, err := h.store.GetWorker(r.Context(), workerID); err != nil {
		if errors.Is(err, store.ErrWorkerNotFound) {
			writeJSONResp(w, http.StatusNotFound, map[string]any{"status": "Not_Found", "message": "worker not found"})
			return
		}
		writeJSONResp(w, http.StatusInternalServerError, map[string]any{"status": "Server_Error", "message": "database error"})
		return
	}

	result, err := h.store.GetVerificationResult(r.Context(), workerID)
	if err != nil {
		writeJSONResp(w, http.StatusInternalServerError, map[string]any{"status": "Server_Error", "message": "database error"})
		return
	}
	if result == nil {
		writeJSONResp(w, http.StatusOK, models.VerificationResult{
			Status:  models.StatusPending,
			Message: "waiting on document uploads; verification has not run yet",
		})
		return
	}
	writeJSONResp(w, http.StatusOK, result)
}

// ReuploadDocuments handles document re-upload after a verification
// mismatch. The user chooses which class of documents to clear:
//   - "educational_only": clear educational data, keep personal
//   - "personal_and_educational": clear everything (full reset)
//
// Either action bumps the worker's generation so in-flight extraction
// results from before the reset are discarded instead of applied.
// POST /api/v1/workers/{workerID}/document-reupload
func (h *Handler) ReuploadDocuments(w http.ResponseWriter, r *http.Request) {
	workerID := chi.URLParam(r, "workerID")
	if _, err := h.store.GetWorker(r.Context(), workerID); err != nil {
		if errors.Is(err, store.ErrWorkerNotFound) {
			writeJSONResp(w, http.StatusNotFound, map[string]any{"status": "Not_Found", "message": "worker not found"})
			return
		}
		writeJSONResp(w, http.StatusInternalServerError, map[string]any{"status": "Server_Error", "message": "database error"})
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONResp(w, http.StatusBadRequest, map[string]any{"status": "Bad_Request", "message": "invalid JSON body"})
		return
	}
	action, _ := body["action"].(string)
	action = strings.ToLower(strings.TrimSpace(action))

	switch action {
	case "educational_only":
		if err := h.store.ClearEducationalDocuments(r.Context(), workerID); err != nil {
			h.log.Error("reupload: clearing educational documents failed",
				zap.String("worker_id", workerID), zap.Error(err))
			writeJSONResp(w, http.StatusInternalServerError, map[string]any{"status": "Server_Error", "message": "failed to clear educational document data"})
			return
		}
		writeJSONResp(w, http.StatusOK, map[string]any{
			"status":    "success",
			"action":    action,
			"message":   "Educational document data cleared. Please re-upload the correct educational document.",
			"worker_id": workerID,
			"cleared_data": map[string]bool{
				"educational": true,
				"personal":    false,
			},
		})
	case "personal_and_educational":
		if err := h.store.ClearAllDocuments(r.Context(), workerID); err != nil {
			h.log.Error("reupload: clearing all documents failed",
				zap.String("worker_id", workerID), zap.Error(err))
			writeJSONResp(w, http.StatusInternalServerError, map[string]any{"status": "Server_Error", "message": "failed to clear all document data"})
			return
		}
		writeJSONResp(w, http.StatusOK, map[string]any{
			"status":    "success",
			"action":    action,
			"message":   "All document data cleared. Please start over by uploading your personal document first.",
			"worker_id": workerID,
			"cleared_data": map[string]bool{
				"educational": true,
				"personal":    true,
			},
		})
	default:
		writeJSONResp(w, http.StatusBadRequest, map[string]any{
			"status":  "Bad_Request",
			"message": "action must be 'educational_only' or 'personal_and_educational'",
			"got":     action,
		})
	}
}
