package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"idverify/internal/models"
	"idverify/internal/store"
)

type shareClaims struct {
	WorkerID string `json:"worker_id"`
	jwt.RegisteredClaims
}

type generateShareLinkResp struct {
	ShareableURL string `json:"shareable_url"`
}

func getShareSecret() ([]byte, error) {
	if s := os.Getenv("SHARE_TOKEN_SECRET"); s != "" {
		return []byte(s), nil
	}
	return nil, errors.New("missing SHARE_TOKEN_SECRET")
}

// GenerateShareLink mints a short-lived signed link so a third party
// (e.g. an employer) can view the worker's verification report without
// an account.
// POST /api/v1/workers/{workerID}/verification/share-link
func (h *Handler) GenerateShareLink(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	workerID := chi.URLParam(r, "workerID")
	if _, err := h.store.GetWorker(r.Context(), workerID); err != nil {
		if errors.Is(err, store.ErrWorkerNotFound) {
			http.Error(w, "worker not found", http.StatusNotFound)
			return
		}
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}

	// Be liberal in what we accept from the frontend
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	parseHours := func(x any) (int, bool) {
		switch t := x.(type) {
		case float64:
			return int(t), true
		case json.Number:
			if i, err := strconv.Atoi(t.String()); err == nil {
				return i, true
			}
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
				return i, true
			}
		}
		return 0, false
	}
	expires := 0
	for _, key := range []string{"expires_in_hours", "expiresInHours", "duration"} {
		if v, ok := payload[key]; ok {
			if i, ok2 := parseHours(v); ok2 {
				expires = i
				break
			}
		}
	}
	// Enforce 1..168 hours to avoid immediately-expired tokens
	if expires < 1 || expires > 168 {
		http.Error(w, "expires_in_hours must be between 1 and 168", http.StatusBadRequest)
		return
	}

	secret, err := getShareSecret()
	if err != nil {
		http.Error(w, "server misconfigured", http.StatusInternalServerError)
		return
	}

	exp := time.Now().Add(time.Duration(expires) * time.Hour)
	claims := shareClaims{
		WorkerID: workerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(secret)
	if err != nil {
		http.Error(w, "failed to sign share token", http.StatusInternalServerError)
		return
	}

	url := fmt.Sprintf("%s/api/v1/verification-report/%s?token=%s", trimRightSlash(baseURL()), workerID, signed)
	_ = json.NewEncoder(w).Encode(generateShareLinkResp{ShareableURL: url})
}

// GetVerificationReport serves a shared report gated by the token.
// GET /api/v1/verification-report/{workerID}?token=...
func (h *Handler) GetVerificationReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	workerID := chi.URLParam(r, "workerID")
	if workerID == "" {
		http.Error(w, "missing worker id", http.StatusBadRequest)
		return
	}
	claims, ok := h.validShareToken(r.URL.Query().Get("token"), workerID)
	if !ok {
		http.Error(w, "This verification link is invalid or has expired.", http.StatusUnauthorized)
		return
	}

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
	if result == nil {
		result = &models.VerificationResult{
			Status:  models.StatusPending,
			Message: "waiting on document uploads; verification has not run yet",
		}
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"worker":       worker,
		"verification": result,
		"valid_until":  claims.ExpiresAt.Time,
	})
}

func (h *Handler) validShareToken(tokenStr, workerID string) (*shareClaims, bool) {
	if tokenStr == "" {
		return nil, false
	}
	secret, err := getShareSecret()
	if err != nil {
		return nil, false
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &shareClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, false
	}
	claims, ok := parsed.Claims.(*shareClaims)
	if !ok || claims.WorkerID == "" || claims.ExpiresAt == nil || time.Now().After(claims.ExpiresAt.Time) {
		return nil, false
	}
	if claims.WorkerID != workerID {
		return nil, false
	}
	return claims, true
}

func baseURL() string {
	if base := os.Getenv("PUBLIC_BASE_URL"); base != "" {
		return base
	}
	return "http://localhost:8080"
}

func trimRightSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
