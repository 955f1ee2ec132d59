package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
)

// GetReportQRCode renders the shared verification-report URL as a QR
// PNG. The token must already have been minted via GenerateShareLink;
// it is passed through unchanged so the QR is only as long-lived as the
// link it encodes.
// GET /api/v1/verification-report/{workerID}/qrcode?token=...
func (h *Handler) GetReportQRCode(w http.ResponseWriter, r *http.Request) {
	workerID := chi.URLParam(r, "workerID")
	token := r.URL.Query().Get("token")
	if _, ok := h.validShareToken(token, workerID); !ok {
		http.Error(w, "This verification link is invalid or has expired.", http.StatusUnauthorized)
		return
	}

	data := trimRightSlash(baseURL()) + "/api/v1/verification-report/" + workerID + "?token=" + token

	png, err := qrcode.Encode(data, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
