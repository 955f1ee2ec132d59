package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"idverify/internal/extract"
	"idverify/internal/match"
	"idverify/internal/models"
	"idverify/internal/store"
	"idverify/internal/verification"
)

// fakeStorage keeps everything in memory and mimics the store's
// generation-stamp discard behavior.
type fakeStorage struct {
	workers    map[string]*models.Worker
	documents  map[string][]models.IdentityRecord
	results    map[string]models.VerificationResult
	generation map[string]int64
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		workers:    map[string]*models.Worker{},
		documents:  map[string][]models.IdentityRecord{},
		results:    map[string]models.VerificationResult{},
		generation: map[string]int64{},
	}
}

func (f *fakeStorage) CreateWorker(_ context.Context, w *models.Worker) error {
	f.workers[w.WorkerID] = w
	return nil
}

func (f *fakeStorage) GetWorker(_ context.Context, workerID string) (*models.Worker, error) {
	w, ok := f.workers[workerID]
	if !ok {
		return nil, store.ErrWorkerNotFound
	}
	return w, nil
}

func (f *fakeStorage) Generation(_ context.Context, workerID string) (int64, error) {
	return f.generation[workerID], nil
}

func (f *fakeStorage) PutIdentityRecord(_ context.Context, workerID string, rec models.IdentityRecord, generation int64) error {
	if generation != f.generation[workerID] {
		return store.ErrStaleGeneration
	}
	f.documents[workerID] = append(f.documents[workerID], rec)
	return nil
}

func (f *fakeStorage) GetIdentityRecord(_ context.Context, workerID string, role models.DocumentRole) (*models.IdentityRecord, error) {
	docs := f.documents[workerID]
	for i := len(docs) - 1; i >= 0; i-- {
		if docs[i].Role == role {
			rec := docs[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (f *fakeStorage) ListEducationalRecords(_ context.Context, workerID string) ([]models.IdentityRecord, error) {
	var out []models.IdentityRecord
	for _, d := range f.documents[workerID] {
		if d.Role == models.RoleEducational {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStorage) PutVerificationResult(_ context.Context, workerID string, result models.VerificationResult) error {
	f.results[workerID] = result
	return nil
}

func (f *fakeStorage) GetVerificationResult(_ context.Context, workerID string) (*models.VerificationResult, error) {
	r, ok := f.results[workerID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeStorage) ClearEducationalDocuments(_ context.Context, workerID string) error {
	var kept []models.IdentityRecord
	for _, d := range f.documents[workerID] {
		if d.Role != models.RoleEducational {
			kept = append(kept, d)
		}
	}
	f.documents[workerID] = kept
	delete(f.results, workerID)
	f.generation[workerID]++
	return nil
}

func (f *fakeStorage) ClearAllDocuments(_ context.Context, workerID string) error {
	delete(f.documents, workerID)
	delete(f.results, workerID)
	f.generation[workerID]++
	return nil
}

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) ExtractText(_ context.Context, _ []byte, _ string) (string, error) {
	return f.text, f.err
}

// fakeExtractor maps OCR text to canned records.
type fakeExtractor struct {
	byText map[string]models.IdentityRecord
}

func (f fakeExtractor) Extract(_ context.Context, rawText string, role models.DocumentRole, sourceDocumentID string) models.IdentityRecord {
	rec, ok := f.byText[rawText]
	if !ok {
		return models.IdentityRecord{SourceDocumentID: sourceDocumentID, Role: role, RawText: rawText}
	}
	rec.SourceDocumentID = sourceDocumentID
	rec.Role = role
	rec.RawText = rawText
	rec.ExtractionComplete = rec.Name != "" && rec.DateOfBirth != ""
	return rec
}

func (f fakeExtractor) ExtractBatch(ctx context.Context, docs []extract.Document, _ int) []models.IdentityRecord {
	out := make([]models.IdentityRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, f.Extract(ctx, d.RawText, d.Role, d.SourceID))
	}
	return out
}

func testRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/workers", h.CreateWorker)
	r.Get("/api/v1/workers/{workerID}", h.GetWorker)
	r.Post("/api/v1/workers/{workerID}/documents/educational/batch", h.UploadEducationalBatch)
	r.Post("/api/v1/workers/{workerID}/documents/{role}", h.UploadDocument)
	r.Get("/api/v1/workers/{workerID}/verification", h.GetVerification)
	r.Post("/api/v1/workers/{workerID}/document-reupload", h.ReuploadDocuments)
	r.Post("/api/v1/workers/{workerID}/verification/share-link", h.GenerateShareLink)
	r.Get("/api/v1/verification-report/{workerID}", h.GetVerificationReport)
	return r
}

func newTestHandler(st Storage, ocrText string, ocrErr error, records map[string]models.IdentityRecord) *Handler {
	return New(
		st,
		fakeOCR{text: ocrText, err: ocrErr},
		fakeExtractor{byText: records},
		verification.New(match.New()),
		zap.NewNop(),
	)
}

func addWorker(st *fakeStorage) string {
	w := &models.Worker{WorkerID: "w-1", FirstName: "Babu", LastName: "Khan"}
	st.workers[w.WorkerID] = w
	return w.WorkerID
}

func multipartBody(t *testing.T, field string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile(field, "scan.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func doUpload(t *testing.T, h http.Handler, workerID, role, field string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, field)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/workers/%s/documents/%s", workerID, role), body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestUploadPersonalThenEducationalVerifies(t *testing.T) {
	st := newFakeStorage()
	workerID := addWorker(st)
	h := testRouter(newTestHandler(st, "scanned text", nil, map[string]models.IdentityRecord{
		"scanned text": {Name: "BABU KHAN", DateOfBirth: "01-12-1987"},
	}))

	rr := doUpload(t, h, workerID, "personal", "document")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp["status"])
	assert.Contains(t, resp["message"], "waiting on educational document")

	rr = doUpload(t, h, workerID, "educational", "document")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "verified", resp["status"])

	stored := st.results[workerID]
	assert.Equal(t, models.StatusVerified, stored.Status)
}

func TestUploadToleratesAlternateFileFieldNames(t *testing.T) {
	st := newFakeStorage()
	workerID := addWorker(st)
	h := testRouter(newTestHandler(st, "scanned text", nil, map[string]models.IdentityRecord{
		"scanned text": {Name: "BABU KHAN", DateOfBirth: "01-12-1987"},
	}))

	rr := doUpload(t, h, workerID, "personal", "certificate")
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestUploadOCRFailureDegradesToIncompleteRecord(t *testing.T) {
	st := newFakeStorage()
	workerID := addWorker(st)
	h := testRouter(newTestHandler(st, "", errors.New("document unreadable"), nil))

	rr := doUpload(t, h, workerID, "personal", "document")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	doc := resp["document"].(map[string]any)
	assert.Equal(t, false, doc["extraction_complete"])
	assert.Equal(t, "pending", resp["status"])
}

func TestUploadInvalidRoleRejected(t *testing.T) {
	st := newFakeStorage()
	workerID := addWorker(st)
	h := testRouter(newTestHandler(st, "text", nil, nil))

	rr := doUpload(t, h, workerID, "experience", "document")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUploadUnknownWorker(t *testing.T) {
	st := newFakeStorage()
	h := testRouter(newTestHandler(st, "text", nil, nil))

	rr := doUpload(t, h, "missing", "personal", "document")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// staleStorage reports a newer generation than the one stamped on the
// request, as if the worker reset documents mid-flight.
type staleStorage struct {
	*fakeStorage
	served bool
}

func (s *staleStorage) Generation(ctx context.Context, workerID string) (int64, error) {
	if !s.served {
		s.served = true
		return 0, nil
	}
	return 1, nil
}

func (s *staleStorage) PutIdentityRecord(_ context.Context, workerID string, rec models.IdentityRecord, generation int64) error {
	if generation != 1 {
		return store.ErrStaleGeneration
	}
	return nil
}

func TestUploadStaleGenerationDiscarded(t *testing.T) {
	base := newFakeStorage()
	workerID := addWorker(base)
	st := &staleStorage{fakeStorage: base}
	h := testRouter(newTestHandler(st, "scanned text", nil, map[string]models.IdentityRecord{
		"scanned text": {Name: "BABU KHAN", DateOfBirth: "01-12-1987"},
	}))

	rr := doUpload(t, h, workerID, "personal", "document")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Empty(t, base.documents[workerID])
}

func TestUploadEducationalBatch(t *testing.T) {
	st := newFakeStorage()
	workerID := addWorker(st)
	st.documents[workerID] = []models.IdentityRecord{
		{SourceDocumentID: "p", Role: models.RolePersonal, Name: "BABU KHAN", DateOfBirth: "01-12-1987", ExtractionComplete: true},
	}
	h := testRouter(newTestHandler(st, "scanned text", nil, map[string]models.IdentityRecord{
		"scanned text": {Name: "BABU KHAN", DateOfBirth: "01-12-1987"},
	}))

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for _, name := range []string{"marksheet10.jpg", "marksheet12.jpg"} {
		fw, err := mw.CreateFormFile("documents", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workers/"+workerID+"/documents/educational/batch", buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp["documents_processed"])
	assert.Equal(t, "verified", resp["status"])
	// personal + two educational records on file
	assert.Len(t, st.documents[workerID], 3)
}

func TestGetVerificationBeforeAnyRunIsPendingWithReason(t *testing.T) {
	st := newFakeStorage()
	workerID := addWorker(st)
	h := testRouter(newTestHandler(st, "", nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workers/"+workerID+"/verification", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp models.VerificationResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusPending, resp.Status)
	assert.Contains(t, resp.Message, "has not run yet")
}

func TestReuploadEducationalOnly(t *testing.T) {
	st := newFakeStorage()
	workerID := addWorker(st)
	st.documents[workerID] = []models.IdentityRecord{
		{SourceDocumentID: "p", Role: models.RolePersonal, Name: "BABU KHAN"},
		{SourceDocumentID: "e", Role: models.RoleEducational, Name: "BABU KHAN"},
	}
	st.results[workerID] = models.VerificationResult{Status: models.StatusFailed}
	h := testRouter(newTestHandler(st, "", nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workers/"+workerID+"/document-reupload",
		strings.NewReader(`{"action": "educational_only"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	cleared := resp["cleared_data"].(map[string]any)
	assert.Equal(t, true, cleared["educational"])
	assert.Equal(t, false, cleared["personal"])

	// personal record kept, educational gone, generation bumped
	require.Len(t, st.documents[workerID], 1)
	assert.Equal(t, models.RolePersonal, st.documents[workerID][0].Role)
	assert.EqualValues(t, 1, st.generation[workerID])
	assert.NotContains(t, st.results, workerID)
}

func TestReuploadFullReset(t *testing.T) {
	st := newFakeStorage()
	workerID := addWorker(st)
	st.documents[workerID] = []models.IdentityRecord{
		{SourceDocumentID: "p", Role: models.RolePersonal},
	}
	h := testRouter(newTestHandler(st, "", nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workers/"+workerID+"/document-reupload",
		strings.NewReader(`{"action": "personal_and_educational"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, st.documents[workerID])
}

func TestReuploadInvalidAction(t *testing.T) {
	st := newFakeStorage()
	workerID := addWorker(st)
	h := testRouter(newTestHandler(st, "", nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workers/"+workerID+"/document-reupload",
		strings.NewReader(`{"action": "everything"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestShareLinkRoundTrip(t *testing.T) {
	t.Setenv("SHARE_TOKEN_SECRET", "test-secret")
	st := newFakeStorage()
	workerID := addWorker(st)
	st.results[workerID] = models.VerificationResult{Status: models.StatusVerified, Message: "identity verified"}
	h := testRouter(newTestHandler(st, "", nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workers/"+workerID+"/verification/share-link",
		strings.NewReader(`{"expires_in_hours": 24}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp generateShareLinkResp
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ShareableURL)

	// follow the minted link path+query against the test router
	idx := strings.Index(resp.ShareableURL, "/api/v1/")
	require.GreaterOrEqual(t, idx, 0)
	req = httptest.NewRequest(http.MethodGet, resp.ShareableURL[idx:], nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var report map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	verif := report["verification"].(map[string]any)
	assert.Equal(t, "verified", verif["status"])
}

func TestCreateWorkerWithoutMobileStoresNoNumber(t *testing.T) {
	st := newFakeStorage()
	h := testRouter(newTestHandler(st, "", nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workers",
		strings.NewReader(`{"first_name": "Babu", "last_name": "Khan"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Len(t, st.workers, 1)
	for _, w := range st.workers {
		// absent, not the empty string: the column is unique-indexed
		// and '' would collide across workers
		assert.Nil(t, w.MobileNumber)
	}
	assert.NotContains(t, rr.Body.String(), "mobile_number")
}

// recordingOCR captures the mime type the handler hands over.
type recordingOCR struct {
	text string
	mime string
}

func (r *recordingOCR) ExtractText(_ context.Context, _ []byte, mimeType string) (string, error) {
	r.mime = mimeType
	return r.text, nil
}

func TestUploadPassesFilePartContentTypeToOCR(t *testing.T) {
	st := newFakeStorage()
	workerID := addWorker(st)
	ocrClient := &recordingOCR{text: "scanned text"}
	h := testRouter(New(st, ocrClient, fakeExtractor{}, verification.New(match.New()), zap.NewNop()))

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="document"; filename="scan.png"`)
	hdr.Set("Content-Type", "image/png")
	fw, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workers/"+workerID+"/documents/personal", buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	// the file part's type, not the multipart envelope's
	assert.Equal(t, "image/png", ocrClient.mime)
}

func TestShareReportRejectsBadToken(t *testing.T) {
	t.Setenv("SHARE_TOKEN_SECRET", "test-secret")
	st := newFakeStorage()
	workerID := addWorker(st)
	h := testRouter(newTestHandler(st, "", nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/verification-report/"+workerID+"?token=garbage", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// outageStorage fails every worker lookup, as if the database is down.
type outageStorage struct {
	*fakeStorage
}

func (o *outageStorage) GetWorker(context.Context, string) (*models.Worker, error) {
	return nil, errors.New("connection refused")
}

func TestShareReportStorageErrorIsNotReportedAsMissingWorker(t *testing.T) {
	t.Setenv("SHARE_TOKEN_SECRET", "test-secret")
	base := newFakeStorage()
	workerID := addWorker(base)

	// mint a valid link while storage is healthy
	h := testRouter(newTestHandler(base, "", nil, nil))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workers/"+workerID+"/verification/share-link",
		strings.NewReader(`{"expires_in_hours": 1}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp generateShareLinkResp
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	idx := strings.Index(resp.ShareableURL, "/api/v1/")
	require.GreaterOrEqual(t, idx, 0)

	// replay the link against a store whose lookups fail
	h = testRouter(newTestHandler(&outageStorage{fakeStorage: base}, "", nil, nil))
	req = httptest.NewRequest(http.MethodGet, resp.ShareableURL[idx:], nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code, rr.Body.String())
}
