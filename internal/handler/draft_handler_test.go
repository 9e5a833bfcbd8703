package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/startlinker/internal/middleware"
	"github.com/hitoshi/startlinker/internal/model"
)

// --- モック定義 ---

// mockDraftService はDraftServiceInterfaceのモック実装。
type mockDraftService struct {
	saveFn  func(ctx context.Context, userID string, kind model.SubmissionKind, snapshot *model.DraftSnapshot) error
	loadFn  func(ctx context.Context, userID string, kind model.SubmissionKind) (*model.DraftSnapshot, error)
	clearFn func(ctx context.Context, userID string, kind model.SubmissionKind) error
}

func (m *mockDraftService) Save(ctx context.Context, userID string, kind model.SubmissionKind, snapshot *model.DraftSnapshot) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, userID, kind, snapshot)
	}
	return nil
}

func (m *mockDraftService) Load(ctx context.Context, userID string, kind model.SubmissionKind) (*model.DraftSnapshot, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx, userID, kind)
	}
	return nil, nil
}

func (m *mockDraftService) Clear(ctx context.Context, userID string, kind model.SubmissionKind) error {
	if m.clearFn != nil {
		return m.clearFn(ctx, userID, kind)
	}
	return nil
}

// --- テストヘルパー ---

// authedRequest はテスト用にリクエストコンテキストに認証情報を注入するヘルパー。
func authedRequest(r *http.Request, token, userID string) *http.Request {
	ctx := middleware.ContextWithUser(r.Context(), token, &model.User{ID: userID, Email: userID + "@example.com"})
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// decodeErrorResponse はレスポンスボディからエラーレスポンスをパースするヘルパー。
func decodeErrorResponse(t *testing.T, w *httptest.ResponseRecorder) apiErrorResponse {
	t.Helper()
	var result apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// --- POST /api/{kind}/drafts テスト ---

func TestDraftHandler_SaveDraft_Success(t *testing.T) {
	var saved *model.DraftSnapshot
	svc := &mockDraftService{
		saveFn: func(ctx context.Context, userID string, kind model.SubmissionKind, snapshot *model.DraftSnapshot) error {
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			if kind != model.KindStartup {
				t.Errorf("kind = %q, want %q", kind, model.KindStartup)
			}
			saved = snapshot
			return nil
		},
	}
	h := NewDraftHandler(svc)

	body := `{"form": {"name": "Acme"}, "founders": [{"name": "Alice"}], "tags": ["saas"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/startup/drafts", bytes.NewBufferString(body))
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "startup")
	w := httptest.NewRecorder()

	h.SaveDraft(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if saved == nil {
		t.Fatal("expected snapshot to be saved")
	}
	if saved.Form.Name != "Acme" {
		t.Errorf("Form.Name = %q, want %q", saved.Form.Name, "Acme")
	}
	// 種別はURLパラメータから設定される
	if saved.Form.Kind != model.KindStartup {
		t.Errorf("Form.Kind = %q, want %q", saved.Form.Kind, model.KindStartup)
	}
	if len(saved.Founders) != 1 || saved.Founders[0].Name != "Alice" {
		t.Errorf("Founders = %+v, want 1 founder named Alice", saved.Founders)
	}
}

func TestDraftHandler_SaveDraft_InvalidKind(t *testing.T) {
	h := NewDraftHandler(&mockDraftService{
		saveFn: func(context.Context, string, model.SubmissionKind, *model.DraftSnapshot) error {
			t.Error("Save should not be called for an invalid kind")
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/event/drafts", bytes.NewBufferString(`{"form":{}}`))
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "event")
	w := httptest.NewRecorder()

	h.SaveDraft(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if resp := decodeErrorResponse(t, w); resp.Code != model.ErrCodeInvalidKind {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeInvalidKind)
	}
}

func TestDraftHandler_SaveDraft_InvalidBody(t *testing.T) {
	h := NewDraftHandler(&mockDraftService{})

	req := httptest.NewRequest(http.MethodPost, "/api/startup/drafts", bytes.NewBufferString("not json"))
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "startup")
	w := httptest.NewRecorder()

	h.SaveDraft(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- GET /api/{kind}/drafts テスト ---

func TestDraftHandler_GetDraft_ReturnsDraftWithProgress(t *testing.T) {
	svc := &mockDraftService{
		loadFn: func(ctx context.Context, userID string, kind model.SubmissionKind) (*model.DraftSnapshot, error) {
			return &model.DraftSnapshot{
				Form: model.SubmissionForm{
					Kind: model.KindStartup,
					Name: "Acme",
				},
			}, nil
		},
	}
	h := NewDraftHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/startup/drafts", nil)
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "startup")
	w := httptest.NewRecorder()

	h.GetDraft(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp draftResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Draft == nil {
		t.Fatal("expected draft in response")
	}
	if resp.Draft.Form.Name != "Acme" {
		t.Errorf("Form.Name = %q, want %q", resp.Draft.Form.Name, "Acme")
	}
	// 名前のみ入力済みの進捗は0より大きく100未満
	if resp.Progress <= 0 || resp.Progress >= 100 {
		t.Errorf("Progress = %d, want between 1 and 99", resp.Progress)
	}
}

func TestDraftHandler_GetDraft_NoDraft(t *testing.T) {
	h := NewDraftHandler(&mockDraftService{})

	req := httptest.NewRequest(http.MethodGet, "/api/job/drafts", nil)
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "job")
	w := httptest.NewRecorder()

	h.GetDraft(w, req)

	// 下書きなしはエラーではなくdraft=nullで返す
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp draftResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Draft != nil {
		t.Errorf("Draft = %+v, want nil", resp.Draft)
	}
	if resp.Progress != 0 {
		t.Errorf("Progress = %d, want 0", resp.Progress)
	}
}

// --- DELETE /api/{kind}/drafts テスト ---

func TestDraftHandler_DeleteDraft_Success(t *testing.T) {
	cleared := false
	svc := &mockDraftService{
		clearFn: func(ctx context.Context, userID string, kind model.SubmissionKind) error {
			cleared = true
			return nil
		},
	}
	h := NewDraftHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/startup/drafts", nil)
	req = authedRequest(req, "token-1", "user-1")
	req = withChiURLParam(req, "kind", "startup")
	w := httptest.NewRecorder()

	h.DeleteDraft(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if !cleared {
		t.Error("expected Clear to be called")
	}
}

func TestDraftHandler_Unauthenticated(t *testing.T) {
	h := NewDraftHandler(&mockDraftService{})

	req := httptest.NewRequest(http.MethodGet, "/api/startup/drafts", nil)
	req = withChiURLParam(req, "kind", "startup")
	w := httptest.NewRecorder()

	h.GetDraft(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
