package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dshills/difftriage/internal/gitdiff"
	"github.com/dshills/difftriage/internal/llm"
	"github.com/dshills/difftriage/internal/service"
	"github.com/dshills/difftriage/internal/session"
	"github.com/dshills/difftriage/internal/store"
	"github.com/dshills/difftriage/internal/triage"
)

func testAPI(t *testing.T) (http.Handler, *session.Manager, *store.Store) {
	t.Helper()
	mgr := session.NewManager(session.ManagerConfig{}, zerolog.Nop())
	engine := triage.NewEngine(&llm.MockProvider{Response: validMockResponse()}, zerolog.Nop())
	reviews := store.New(filepath.Join(t.TempDir(), "reviews.json"))
	svc := service.New(mgr, engine, gitdiff.NewExecutor(""), reviews, zerolog.Nop())
	return newAPI(svc, mgr, reviews, "", zerolog.Nop()), mgr, reviews
}

func TestStartReviewRejectsBadBody(t *testing.T) {
	handler, _, _ := testAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStartReviewRequiresProjectPath(t *testing.T) {
	handler, _, _ := testAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader(`{"mode":"staged"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListReviewsEmpty(t *testing.T) {
	handler, _, _ := testAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/reviews", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out []any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("body is not a JSON array: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty list, got %d entries", len(out))
	}
}

func TestGetReviewNotFound(t *testing.T) {
	handler, _, _ := testAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/reviews/nope", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetReviewFromStore(t *testing.T) {
	handler, _, reviews := testAPI(t)
	if err := reviews.Save(store.Review{ID: "r1", ProjectPath: "/repo"}, 0); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/reviews/r1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var rev store.Review
	if err := json.Unmarshal(rec.Body.Bytes(), &rev); err != nil {
		t.Fatal(err)
	}
	if rev.ProjectPath != "/repo" {
		t.Errorf("projectPath = %q, want /repo", rev.ProjectPath)
	}
}

func TestStreamSSEUnknownSessionIsStale(t *testing.T) {
	handler, _, _ := testAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/reviews/nope/events", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "event: error") {
		t.Errorf("expected an error frame, got: %s", body)
	}
	if !strings.Contains(body, "SESSION_STALE") {
		t.Errorf("expected SESSION_STALE code, got: %s", body)
	}
}

func TestStreamSSEReplaysCompleteSession(t *testing.T) {
	handler, mgr, _ := testAPI(t)

	sess, _ := mgr.Ensure(session.Key{ProjectPath: "/repo", Mode: "full"})
	if err := sess.MarkReady(); err != nil {
		t.Fatal(err)
	}
	if err := sess.AddEvent(triage.AgentStart{Agent: "correctness"}); err != nil {
		t.Fatal(err)
	}
	if err := sess.MarkComplete(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/reviews/"+sess.ID+"/events", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "event: agent_start") {
		t.Errorf("expected replayed agent_start frame, got: %s", body)
	}
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestStreamWSRequiresReviewParam(t *testing.T) {
	handler, _, _ := testAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
