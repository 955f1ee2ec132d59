package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"idverify/internal/handlers"
	"idverify/internal/middleware"
)

func RegisterRouter(h *handlers.Handler, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.LoggingMiddleware(log))

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	r.Post("/api/v1/workers", h.CreateWorker)
	r.Get("/api/v1/workers/{workerID}", h.GetWorker)
	// document upload runs the full pipeline: OCR -> extract -> verify
	r.Post("/api/v1/workers/{workerID}/documents/educational/batch", h.UploadEducationalBatch)
	r.Post("/api/v1/workers/{workerID}/documents/{role}", h.UploadDocument)
	r.Get("/api/v1/workers/{workerID}/verification", h.GetVerification)
	// re-upload after a verification mismatch
	r.Post("/api/v1/workers/{workerID}/document-reupload", h.ReuploadDocuments)
	// shareable verification report (token required via query param)
	r.Post("/api/v1/workers/{workerID}/verification/share-link", h.GenerateShareLink)
	r.Get("/api/v1/verification-report/{workerID}", h.GetVerificationReport)
	r.Get("/api/v1/verification-report/{workerID}/qrcode", h.GetReportQRCode)

	return r
}
