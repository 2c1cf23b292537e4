package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/greeeen013/QuizApp/internal/app"
	"github.com/greeeen013/QuizApp/internal/domain"
	"github.com/greeeen013/QuizApp/internal/infra/memory"
	"github.com/greeeen013/QuizApp/internal/store"
)

type testEnv struct {
	server  *httptest.Server
	store   *store.Store
	catalog *app.Catalog
	ledger  *app.Ledger
	streak  *app.Streak
	engine  *app.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.New(memory.NewBackend(), store.WithDebounce(time.Hour))
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	catalog := app.NewCatalog(st)
	ledger := app.NewLedger(st)
	streak := app.NewStreak(st)
	engine := app.NewEngine(st, ledger, streak)

	mux := http.NewServeMux()
	NewAPIHandler(catalog, ledger, streak, engine).Register(mux)
	mux.HandleFunc("/ws/session", NewWSHandler(engine).ServeWS)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &testEnv{server: server, store: st, catalog: catalog, ledger: ledger, streak: streak, engine: engine}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestQuizLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/quizzes", map[string]any{"title": "Capitals"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var quiz domain.Quiz
	decodeBody(t, resp, &quiz)
	if quiz.ID == "" || quiz.Title != "Capitals" {
		t.Fatalf("expected created quiz, got %+v", quiz)
	}

	resp = env.do(t, http.MethodPost, "/quizzes/"+quiz.ID+"/questions", map[string]any{
		"text": "capital of France?",
		"answers": []map[string]any{
			{"text": "Paris", "isCorrect": true},
			{"text": "Lyon"},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, http.MethodPatch, "/quizzes/"+quiz.ID, map[string]any{"description": "geography"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var updated domain.Quiz
	decodeBody(t, resp, &updated)
	if updated.Description != "geography" {
		t.Fatalf("expected merged description, got %+v", updated)
	}

	resp = env.do(t, http.MethodGet, "/quizzes", nil)
	var quizzes []domain.Quiz
	decodeBody(t, resp, &quizzes)
	if len(quizzes) != 1 || len(quizzes[0].Questions) != 1 {
		t.Fatalf("expected one quiz with one question, got %+v", quizzes)
	}

	resp = env.do(t, http.MethodDelete, "/quizzes/"+quiz.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/quizzes/"+quiz.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestValidationErrorsMapTo422(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/quizzes", map[string]any{"title": "   "})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty title, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	quiz, err := env.catalog.AddQuiz("Capitals", "", nil)
	if err != nil {
		t.Fatalf("add quiz: %v", err)
	}
	resp = env.do(t, http.MethodPost, "/quizzes/"+quiz.ID+"/questions", map[string]any{
		"text":    "lonely",
		"answers": []map[string]any{{"text": "only one", "isCorrect": true}},
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for too few answers, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/quizzes/"+quiz.ID+"/reorder", map[string]any{
		"orderedIds": []string{"ghost"},
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown reorder id, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestConflictErrorsMapTo409(t *testing.T) {
	env := newTestEnv(t)

	// Freezer purchase with an empty balance.
	resp := env.do(t, http.MethodPost, "/streak/freezers", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for empty balance, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, http.MethodDelete, "/paused-runs/ghost", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown paused run, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSettingsPatchMergesPartially(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPatch, "/settings", map[string]any{"displayName": "Ada", "manualConfirmation": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var settings domain.Settings
	decodeBody(t, resp, &settings)
	if settings.DisplayName != "Ada" || !settings.ManualConfirmation {
		t.Fatalf("expected merged settings, got %+v", settings)
	}
	if settings.AutoAdvanceDelay != 1.5 || !settings.VibrationEnabled {
		t.Fatalf("expected untouched fields to keep defaults, got %+v", settings)
	}
}

func TestStreakAndDiamondEndpoints(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.ledger.AddRun(app.RunParams{QuizID: "q", QuizTitle: "T", ScorePercentage: 100, TotalQuestions: 10, CorrectCount: 10}); err != nil {
		t.Fatalf("add run: %v", err)
	}

	resp := env.do(t, http.MethodGet, "/diamonds", nil)
	var balance diamondsResponse
	decodeBody(t, resp, &balance)
	if balance.Diamonds != 5.0 {
		t.Fatalf("expected 5.0 diamonds, got %v", balance.Diamonds)
	}

	resp = env.do(t, http.MethodGet, "/runs", nil)
	var runs []domain.QuizRun
	decodeBody(t, resp, &runs)
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %+v", runs)
	}

	resp = env.do(t, http.MethodGet, "/streak", nil)
	var streak domain.StreakData
	decodeBody(t, resp, &streak)
	if streak.CurrentStreak != 0 {
		t.Fatalf("expected zero streak, got %+v", streak)
	}
}
