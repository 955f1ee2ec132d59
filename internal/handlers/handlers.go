// Package handlers is the thin HTTP layer over the extraction and
// verification pipeline.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"idverify/internal/extract"
	"idverify/internal/models"
	"idverify/internal/ocr"
	"idverify/internal/verification"
)

// Storage is the record-store collaborator consumed by the handlers.
type Storage interface {
	CreateWorker(ctx context.Context, w *models.Worker) error
	GetWorker(ctx context.Context, workerID string) (*models.Worker, error)
	Generation(ctx context.Context, workerID string) (int64, error)
	PutIdentityRecord(ctx context.Context, workerID string, rec models.IdentityRecord, generation int64) error
	GetIdentityRecord(ctx context.Context, workerID string, role models.DocumentRole) (*models.IdentityRecord, error)
	ListEducationalRecords(ctx context.Context, workerID string) ([]models.IdentityRecord, error)
	PutVerificationResult(ctx context.Context, workerID string, result models.VerificationResult) error
	GetVerificationResult(ctx context.Context, workerID string) (*models.VerificationResult, error)
	ClearEducationalDocuments(ctx context.Context, workerID string) error
	ClearAllDocuments(ctx context.Context, workerID string) error
}

// Extractor turns raw OCR text into identity records.
type Extractor interface {
	Extract(ctx context.Context, rawText string, role models.DocumentRole, sourceDocumentID string) models.IdentityRecord
	ExtractBatch(ctx context.Context, docs []extract.Document, limit int) []models.IdentityRecord
}

// Handler carries the pipeline collaborators.
type Handler struct {
	store     Storage
	ocr       ocr.Client
	extractor Extractor
	orch      *verification.Orchestrator
	log       *zap.Logger
}

// New wires a Handler.
func New(store Storage, ocrClient ocr.Client, extractor Extractor, orch *verification.Orchestrator, log *zap.Logger) *Handler {
	return &Handler{store: store, ocr: ocrClient, extractor: extractor, orch: orch, log: log}
}

func writeJSONResp(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// formFile prefers the named field but tolerates common alternatives
// and finally falls back to the first file field present; frontends
// disagree on field naming.
func formFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	file, fh, err := r.FormFile(field)
	if err == nil {
		return file, fh, nil
	}
	if r.MultipartForm == nil || r.MultipartForm.File == nil {
		return nil, nil, err
	}
	available := make([]string, 0, len(r.MultipartForm.File))
	for k := range r.MultipartForm.File {
		available = append(available, k)
	}
	alts := []string{"file", "upload", "image", "document", "scan", "certificate", "files[]"}
	for _, a := range alts {
		for _, k := range available {
			if strings.EqualFold(k, a) {
				if f2, fh2, err2 := r.FormFile(k); err2 == nil {
					return f2, fh2, nil
				}
			}
		}
	}
	if len(available) > 0 {
		if f2, fh2, err2 := r.FormFile(available[0]); err2 == nil {
			return f2, fh2, nil
		}
	}
	return nil, nil, fmt.Errorf("missing file field %q (available: %v)", field, available)
}
