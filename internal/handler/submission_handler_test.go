package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/startlinker/internal/model"
	"github.com/hitoshi/startlinker/internal/submission"
)

// --- モック定義 ---

// mockCoordinator はSubmissionCoordinatorInterfaceのモック実装。
type mockCoordinator struct {
	submitFn func(ctx context.Context, token, userID string, req *submission.Request) (*submission.Result, error)
	updateFn func(ctx context.Context, token, userID string, kind model.SubmissionKind, id int64, req *submission.Request) (*submission.Result, error)
}

func (m *mockCoordinator) Submit(ctx context.Context, token, userID string, req *submission.Request) (*submission.Result, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, token, userID, req)
	}
	return &submission.Result{Success: true, ID: 1}, nil
}

func (m *mockCoordinator) Update(ctx context.Context, token, userID string, kind model.SubmissionKind, id int64, req *submission.Request) (*submission.Result, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, token, userID, kind, id, req)
	}
	return &submission.Result{Success: true, ID: id}, nil
}

// mockURLGuard はCoverURLGuardServiceのモック実装。
type mockURLGuard struct {
	validateFn func(rawURL string) error
	probeFn    func(ctx context.Context, rawURL string) error
}

func (m *mockURLGuard) ValidateURL(rawURL string) error {
	if m.validateFn != nil {
		return m.validateFn(rawURL)
	}
	return nil
}

func (m *mockURLGuard) ProbeImageURL(ctx context.Context, rawURL string) error {
	if m.probeFn != nil {
		return m.probeFn(ctx, rawURL)
	}
	return nil
}

const testUploadMaxSize = 5 * 1024 * 1024

func newTestSubmissionHandler(coordinator *mockCoordinator, guard *mockURLGuard) *SubmissionHandler {
	h := NewSubmissionHandler(coordinator, guard, testUploadMaxSize)
	h.now = func() time.Time {
		return time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	}
	return h
}

// --- POST /api/{kind}/validate テスト ---

func TestSubmissionHandler_Validate_ReturnsFieldErrors(t *testing.T) {
	h := newTestSubmissionHandler(&mockCoordinator{}, &mockURLGuard{})

	body := `{"step": "basic_info", "form": {"name": "", "description": "short"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/startup/validate", bytes.NewBufferString(body))
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "startup")
	w := httptest.NewRecorder()

	h.Validate(w, req)

	// 検証NGでもHTTPステータスは200
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp validateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Valid {
		t.Error("expected valid = false")
	}
	if _, ok := resp.Errors["name"]; !ok {
		t.Error("expected error for name")
	}
	if _, ok := resp.Errors["description"]; !ok {
		t.Error("expected error for description")
	}
}

func TestSubmissionHandler_Validate_ProbesCoverURLOnReview(t *testing.T) {
	probed := ""
	guard := &mockURLGuard{
		probeFn: func(ctx context.Context, rawURL string) error {
			probed = rawURL
			return errors.New("not an image")
		},
	}
	h := newTestSubmissionHandler(&mockCoordinator{}, guard)

	form := model.SubmissionForm{
		Name:          "Acme Robotics",
		Description:   makeDescription(100),
		Category:      "robotics",
		Location:      "Tokyo",
		EmployeeCount: "10",
		FoundedYear:   "2020",
		CoverImageURL: "https://cdn.example.com/cover.png",
	}
	body, _ := json.Marshal(map[string]any{"step": "review", "form": form})
	req := httptest.NewRequest(http.MethodPost, "/api/startup/validate", bytes.NewBuffer(body))
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "startup")
	w := httptest.NewRecorder()

	h.Validate(w, req)

	if probed != "https://cdn.example.com/cover.png" {
		t.Errorf("probed URL = %q, want cover URL", probed)
	}

	var resp validateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Valid {
		t.Error("expected valid = false when the cover URL probe fails")
	}
	if _, ok := resp.Errors["cover_image_url"]; !ok {
		t.Errorf("errors = %v, expected cover_image_url entry", resp.Errors)
	}
}

func TestSubmissionHandler_Validate_SkipsProbeOnEarlierSteps(t *testing.T) {
	guard := &mockURLGuard{
		probeFn: func(ctx context.Context, rawURL string) error {
			t.Error("ProbeImageURL should not be called before the review step")
			return nil
		},
	}
	h := newTestSubmissionHandler(&mockCoordinator{}, guard)

	body := `{"step": "basic_info", "form": {"cover_image_url": "https://cdn.example.com/c.png"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/startup/validate", bytes.NewBufferString(body))
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "startup")
	w := httptest.NewRecorder()

	h.Validate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSubmissionHandler_Validate_UnknownStep(t *testing.T) {
	h := newTestSubmissionHandler(&mockCoordinator{}, &mockURLGuard{})

	body := `{"step": "launch", "form": {}}`
	req := httptest.NewRequest(http.MethodPost, "/api/startup/validate", bytes.NewBufferString(body))
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "startup")
	w := httptest.NewRecorder()

	h.Validate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- POST /api/{kind} テスト ---

func TestSubmissionHandler_Submit_JSONBody(t *testing.T) {
	var gotReq *submission.Request
	coordinator := &mockCoordinator{
		submitFn: func(ctx context.Context, token, userID string, req *submission.Request) (*submission.Result, error) {
			if token != "token-1" {
				t.Errorf("token = %q, want %q", token, "token-1")
			}
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			gotReq = req
			return &submission.Result{Success: true, ID: 42}, nil
		},
	}
	h := newTestSubmissionHandler(coordinator, &mockURLGuard{})

	body := `{"form": {"name": "Acme"}, "tags": ["saas", "ai"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/startup", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "startup")
	w := httptest.NewRecorder()

	h.Submit(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if gotReq == nil {
		t.Fatal("expected Submit to be called")
	}
	if gotReq.Form.Kind != model.KindStartup {
		t.Errorf("Form.Kind = %q, want %q", gotReq.Form.Kind, model.KindStartup)
	}
	if gotReq.CoverFile != nil {
		t.Error("expected no cover file for a JSON body")
	}

	var result submission.Result
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.ID != 42 {
		t.Errorf("ID = %d, want 42", result.ID)
	}
}

func TestSubmissionHandler_Submit_Multipart(t *testing.T) {
	var gotReq *submission.Request
	coordinator := &mockCoordinator{
		submitFn: func(ctx context.Context, token, userID string, req *submission.Request) (*submission.Result, error) {
			gotReq = req
			return &submission.Result{Success: true, ID: 7}, nil
		},
	}
	h := newTestSubmissionHandler(coordinator, &mockURLGuard{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("payload", `{"form": {"name": "Acme"}}`); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile("cover_image", "cover.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("png-bytes")); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/job", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "job")
	w := httptest.NewRecorder()

	h.Submit(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if gotReq == nil {
		t.Fatal("expected Submit to be called")
	}
	if gotReq.Form.Kind != model.KindJob {
		t.Errorf("Form.Kind = %q, want %q", gotReq.Form.Kind, model.KindJob)
	}
	if gotReq.CoverFilename != "cover.png" {
		t.Errorf("CoverFilename = %q, want %q", gotReq.CoverFilename, "cover.png")
	}
	if gotReq.CoverFile == nil {
		t.Fatal("expected cover file")
	}
	content, _ := io.ReadAll(gotReq.CoverFile)
	if string(content) != "png-bytes" {
		t.Errorf("cover file content = %q, want %q", content, "png-bytes")
	}
}

func TestSubmissionHandler_Submit_BlockedCoverURL(t *testing.T) {
	guard := &mockURLGuard{
		validateFn: func(rawURL string) error {
			return errors.New("blocked IP address: 169.254.169.254")
		},
	}
	coordinator := &mockCoordinator{
		submitFn: func(context.Context, string, string, *submission.Request) (*submission.Result, error) {
			t.Error("Submit should not be called when the cover URL is blocked")
			return nil, nil
		},
	}
	h := newTestSubmissionHandler(coordinator, guard)

	body := `{"form": {"name": "Acme", "cover_image_url": "http://169.254.169.254/latest"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/startup", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "startup")
	w := httptest.NewRecorder()

	h.Submit(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if resp := decodeErrorResponse(t, w); resp.Code != model.ErrCodeInvalidImageURL {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeInvalidImageURL)
	}
}

func TestSubmissionHandler_Submit_InFlightConflict(t *testing.T) {
	coordinator := &mockCoordinator{
		submitFn: func(context.Context, string, string, *submission.Request) (*submission.Result, error) {
			return nil, model.NewSubmissionInFlightError()
		},
	}
	h := newTestSubmissionHandler(coordinator, &mockURLGuard{})

	body := `{"form": {"name": "Acme"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/startup", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "startup")
	w := httptest.NewRecorder()

	h.Submit(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestSubmissionHandler_Submit_ValidationFailedStatus(t *testing.T) {
	coordinator := &mockCoordinator{
		submitFn: func(context.Context, string, string, *submission.Request) (*submission.Result, error) {
			return nil, model.NewValidationFailedError(map[string]string{"description": "短すぎます"})
		},
	}
	h := newTestSubmissionHandler(coordinator, &mockURLGuard{})

	body := `{"form": {"name": "Acme"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/startup", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "startup")
	w := httptest.NewRecorder()

	h.Submit(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	resp := decodeErrorResponse(t, w)
	if resp.Code != model.ErrCodeValidationFailed {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeValidationFailed)
	}
	if resp.Fields["description"] == "" {
		t.Error("expected field error for description in the response")
	}
}

// --- PUT /api/{kind}/{id} テスト ---

func TestSubmissionHandler_Update_Success(t *testing.T) {
	var gotID int64
	coordinator := &mockCoordinator{
		updateFn: func(ctx context.Context, token, userID string, kind model.SubmissionKind, id int64, req *submission.Request) (*submission.Result, error) {
			gotID = id
			return &submission.Result{Success: true, ID: id}, nil
		},
	}
	h := newTestSubmissionHandler(coordinator, &mockURLGuard{})

	body := `{"form": {"name": "Acme"}}`
	req := httptest.NewRequest(http.MethodPut, "/api/startup/42", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "startup")
	req = withChiURLParam(req, "id", "42")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotID != 42 {
		t.Errorf("id = %d, want 42", gotID)
	}
}

func TestSubmissionHandler_Update_InvalidID(t *testing.T) {
	h := newTestSubmissionHandler(&mockCoordinator{}, &mockURLGuard{})

	body := `{"form": {"name": "Acme"}}`
	req := httptest.NewRequest(http.MethodPut, "/api/startup/abc", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "startup")
	req = withChiURLParam(req, "id", "abc")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestSubmissionHandler_Update_DegradedSuccessWarning(t *testing.T) {
	coordinator := &mockCoordinator{
		updateFn: func(ctx context.Context, token, userID string, kind model.SubmissionKind, id int64, req *submission.Request) (*submission.Result, error) {
			return &submission.Result{Success: true, ID: id, Warning: "変更は再審査待ちとして送信されました。"}, nil
		},
	}
	h := newTestSubmissionHandler(coordinator, &mockURLGuard{})

	body := `{"form": {"name": "Acme"}}`
	req := httptest.NewRequest(http.MethodPut, "/api/startup/42", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "startup")
	req = withChiURLParam(req, "id", "42")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var result submission.Result
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Warning == "" {
		t.Error("expected warning in the response")
	}
}

// makeDescription は指定長の説明文を生成するヘルパー。
func makeDescription(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = 'a'
	}
	return string(buf)
}
