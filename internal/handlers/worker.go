package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"idverify/internal/models"
	"idverify/internal/store"
)

// CreateWorker registers an onboarding subject.
// POST /api/v1/workers
func (h *Handler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	field := func(k string) string {
		v, _ := body[k].(string)
		return strings.TrimSpace(v)
	}
	firstName := field("first_name")
	lastName := field("last_name")
	if firstName == "" || lastName == "" {
		http.Error(w, "first_name and last_name are required", http.StatusBadRequest)
		return
	}

	worker := models.Worker{
		WorkerID:  uuid.New().String(),
		FirstName: firstName,
		LastName:  lastName,
		Email:     field("email"),
	}
	if mobile := field("mobile_number"); mobile != "" {
		worker.MobileNumber = &mobile
	}
	if err := h.store.CreateWorker(r.Context(), &worker); err != nil {
		h.log.Error("create worker failed", zap.Error(err))
		http.Error(w, "failed to create worker", http.StatusInternalServerError)
		return
	}
	writeJSONResp(w, http.StatusCreated, map[string]any{"worker": worker})
}

// GetWorker returns the worker plus its current verification status.
// GET /api/v1/workers/{workerID}
func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	workerID := chi.URLParam(r, "workerID")
	worker, err := h.store.GetWorker(r.Context(), workerID)
	if errors.Is(err, store.ErrWorkerNotFound) {
		http.Error(w, "worker not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}

	result, err := h.store.GetVerificationResult(r.Context(), workerID)
	if err != nil {
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	payload := map[string]any{"worker": worker}
	if result != nil {
		payload["verification"] = result
	}
	writeJSONResp(w, http.StatusOK, payload)
}
