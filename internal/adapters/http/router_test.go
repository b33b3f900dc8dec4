package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Shoaibzaak/visa-docverify/internal/config"
	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
	"github.com/Shoaibzaak/visa-docverify/internal/core/usecase"
)

type memStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{blobs: map[string][]byte{}}
}

func (s *memStorage) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = raw
	return nil
}

func (s *memStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %s missing", key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

type busyError struct{}

func (busyError) Error() string       { return "fraud api status 500" }
func (busyError) UserMessage() string { return "server busy" }

type stubAnalyzer struct {
	risk float64
	err  error
}

func (a stubAnalyzer) Analyze(context.Context, domain.AnalysisRequest) (*domain.AnalysisEnvelope, error) {
	if a.err != nil {
		return nil, a.err
	}
	risk := a.risk
	return &domain.AnalysisEnvelope{Data: &domain.AnalysisData{
		OverallRiskScore: &risk,
		RiskLevel:        "LOW",
		DocumentType:     "passport",
		Recommendations:  []string{"Looks consistent."},
	}}, nil
}

type testStack struct {
	handler     http.Handler
	registry    *usecase.DocumentRegistry
	coordinator *usecase.AnalysisCoordinator
	storage     *memStorage
}

func newTestStack(t *testing.T, analyzer stubAnalyzer) testStack {
	t.Helper()
	storage := newMemStorage()
	registry := usecase.NewDocumentRegistry(storage)
	notices := usecase.NewNoticeBoard(time.Minute)
	intake := usecase.NewIntakeUseCase(usecase.NewFileValidator(), registry, notices, nil, nil)
	coordinator := usecase.NewAnalysisCoordinator(registry, analyzer, usecase.CoordinatorOptions{})
	t.Cleanup(func() { _ = coordinator.Shutdown(context.Background()) })

	handler := NewRouter(config.Config{MaxUploadMB: 5}, Dependencies{
		Intake:   intake,
		Registry: registry,
		Editor:   registry,
		Previews: registry,
		Analysis: coordinator,
		Notices:  notices,
	}).Handler()
	return testStack{handler: handler, registry: registry, coordinator: coordinator, storage: storage}
}

type testFile struct {
	name      string
	mediaType string
	body      string
}

func multipartUpload(t *testing.T, docType string, files ...testFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", multipart.FileContentDisposition(documentField, f.name))
		header.Set("Content-Type", f.mediaType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart() error = %v", err)
		}
		if _, err := part.Write([]byte(f.body)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if docType != "" {
		if err := writer.WriteField(documentTypeField, docType); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func uploadOne(t *testing.T, stack testStack) string {
	t.Helper()
	res := serve(stack.handler, multipartUpload(t, "", testFile{"passport.jpg", "image/jpeg", "jpeg-bytes"}))
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	items := decodeBody(t, res)["items"].([]any)
	return items[0].(map[string]any)["id"].(string)
}

func TestHealthzEndpoint(t *testing.T) {
	stack := newTestStack(t, stubAnalyzer{})
	res := serve(stack.handler, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestUploadAcceptsImagesAndReportsRejections(t *testing.T) {
	stack := newTestStack(t, stubAnalyzer{})
	req := multipartUpload(t, "visa",
		testFile{"passport.jpg", "image/jpeg", "jpeg-bytes"},
		testFile{"contract.pdf", "application/pdf", "%PDF"},
		testFile{"scan.tiff", "", "tiff-bytes"},
	)
	res := serve(stack.handler, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}

	payload := decodeBody(t, res)
	items := payload["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected two accepted items, got %d", len(items))
	}
	first := items[0].(map[string]any)
	if first["state"] != "queued" || first["document_type"] != "visa" || first["format_label"] != "JPEG" {
		t.Fatalf("unexpected item %+v", first)
	}
	notice := payload["notice"].(map[string]any)
	want := "Invalid file type. Only JPEG, PNG, WebP, TIFF are allowed. Rejected: contract.pdf"
	if notice["message"] != want {
		t.Fatalf("unexpected notice %q", notice["message"])
	}
	if len(stack.registry.List()) != 2 {
		t.Fatalf("rejected files must not become items")
	}
}

func TestUploadAllRejectedReturns422(t *testing.T) {
	stack := newTestStack(t, stubAnalyzer{})
	res := serve(stack.handler, multipartUpload(t, "", testFile{"a.gif", "image/gif", "gif"}))
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}

	res = serve(stack.handler, httptest.NewRequest(http.MethodGet, "/v1/notice", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected current notice, got %d", res.Code)
	}
	res = serve(stack.handler, httptest.NewRequest(http.MethodDelete, "/v1/notice", nil))
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on dismiss, got %d", res.Code)
	}
	res = serve(stack.handler, httptest.NewRequest(http.MethodGet, "/v1/notice", nil))
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected no notice after dismiss, got %d", res.Code)
	}
}

func TestUploadValidatesRequest(t *testing.T) {
	stack := newTestStack(t, stubAnalyzer{})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", strings.NewReader("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	if res := serve(stack.handler, req); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-multipart body, got %d", res.Code)
	}

	res := serve(stack.handler, multipartUpload(t, "driving_licence", testFile{"a.png", "image/png", "png"}))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown document type, got %d", res.Code)
	}
}

func TestAnalyzeAndWaitCompletesItem(t *testing.T) {
	stack := newTestStack(t, stubAnalyzer{risk: 8})
	id := uploadOne(t, stack)

	res := serve(stack.handler, httptest.NewRequest(http.MethodPost, "/v1/documents/"+id+"/analyze?wait=true", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	item := decodeBody(t, res)
	result := item["result"].(map[string]any)
	if item["state"] != "completed" || result["verdict"] != "GENUINE" || result["confidence"] != float64(92) {
		t.Fatalf("unexpected analyzed item %+v", item)
	}

	res = serve(stack.handler, httptest.NewRequest(http.MethodGet, "/v1/documents", nil))
	stats := decodeBody(t, res)["stats"].(map[string]any)
	if stats["analyzed"] != float64(1) || stats["genuine"] != float64(1) {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestAnalyzeFailureIsRecordedOnItem(t *testing.T) {
	stack := newTestStack(t, stubAnalyzer{err: busyError{}})
	id := uploadOne(t, stack)

	res := serve(stack.handler, httptest.NewRequest(http.MethodPost, "/v1/documents/"+id+"/analyze?wait=true", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 with failed item, got %d", res.Code)
	}
	item := decodeBody(t, res)
	if item["state"] != "failed" || item["error_message"] != "server busy" {
		t.Fatalf("unexpected failed item %+v", item)
	}
}

func TestSubmitAnalysisRunsInBackground(t *testing.T) {
	stack := newTestStack(t, stubAnalyzer{risk: 60})
	id := uploadOne(t, stack)

	res := serve(stack.handler, httptest.NewRequest(http.MethodPost, "/v1/documents/analyze", nil))
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
	if got := decodeBody(t, res)["submitted"]; got != float64(1) {
		t.Fatalf("expected one submitted item, got %v", got)
	}

	if err := stack.coordinator.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	item, err := stack.registry.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if item.State != domain.StateCompleted {
		t.Fatalf("expected completed item, got %s", item.State)
	}
}

func TestUpdateDocumentTypeOnlyWhileQueued(t *testing.T) {
	stack := newTestStack(t, stubAnalyzer{})
	id := uploadOne(t, stack)

	patch := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/v1/documents/"+id, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return serve(stack.handler, req)
	}

	res := patch(`{"documentType":"bank_statement"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if got := decodeBody(t, res)["type_label"]; got != "Bank Statement" {
		t.Fatalf("unexpected label %v", got)
	}
	if res := patch(`{}`); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing type, got %d", res.Code)
	}

	serve(stack.handler, httptest.NewRequest(http.MethodPost, "/v1/documents/"+id+"/analyze?wait=true", nil))
	if res := patch(`{"documentType":"visa"}`); res.Code != http.StatusConflict {
		t.Fatalf("expected 409 after analysis, got %d", res.Code)
	}
}

func TestRemoveDocumentReleasesPreview(t *testing.T) {
	stack := newTestStack(t, stubAnalyzer{})
	id := uploadOne(t, stack)

	res := serve(stack.handler, httptest.NewRequest(http.MethodGet, "/v1/documents/"+id+"/preview", nil))
	if res.Code != http.StatusOK || res.Body.String() != "jpeg-bytes" || res.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("unexpected preview response %d %q %q", res.Code, res.Body.String(), res.Header().Get("Content-Type"))
	}

	res = serve(stack.handler, httptest.NewRequest(http.MethodDelete, "/v1/documents/"+id, nil))
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if len(stack.storage.blobs) != 0 {
		t.Fatalf("expected preview blob released")
	}
	for _, path := range []string{"/v1/documents/" + id, "/v1/documents/" + id + "/preview"} {
		if res := serve(stack.handler, httptest.NewRequest(http.MethodGet, path, nil)); res.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d", path, res.Code)
		}
	}
}

func TestExportReportReturnsWorkbook(t *testing.T) {
	stack := newTestStack(t, stubAnalyzer{})
	uploadOne(t, stack)

	res := serve(stack.handler, httptest.NewRequest(http.MethodGet, "/v1/report.xlsx", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.HasPrefix(res.Body.String(), "PK") {
		t.Fatalf("expected zip container body")
	}
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.WrapError(domain.ErrInvalidInput, "op", errors.New("x")), http.StatusBadRequest},
		{domain.WrapError(domain.ErrDocumentNotFound, "op", errors.New("x")), http.StatusNotFound},
		{domain.WrapError(domain.ErrInvalidState, "op", errors.New("x")), http.StatusConflict},
		{domain.NewValidationNotice([]string{"a.pdf"}, time.Now(), time.Second), http.StatusUnprocessableEntity},
		{domain.WrapError(domain.ErrTemporary, "op", errors.New("x")), http.StatusServiceUnavailable},
		{&domain.MalformedResponseError{Reason: "missing data"}, http.StatusBadGateway},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
			t.Errorf("mapErrorToHTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
