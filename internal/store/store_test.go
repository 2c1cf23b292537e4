package store_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/greeeen013/QuizApp/internal/domain"
	"github.com/greeeen013/QuizApp/internal/infra/memory"
	"github.com/greeeen013/QuizApp/internal/store"
)

func TestInitMissingDataYieldsDefaults(t *testing.T) {
	backend := memory.NewBackend()
	st := store.New(backend)
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	var settings domain.Settings
	if err := st.View(func(s *domain.State) { settings = s.Settings }); err != nil {
		t.Fatalf("view: %v", err)
	}
	if settings != domain.DefaultSettings() {
		t.Fatalf("expected default settings, got %+v", settings)
	}
}

func TestInitCorruptDataYieldsDefaults(t *testing.T) {
	backend := memory.NewBackend()
	backend.Seed([]byte("{not json"))
	st := store.New(backend)
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	var quizzes int
	if err := st.View(func(s *domain.State) { quizzes = len(s.Quizzes) }); err != nil {
		t.Fatalf("view: %v", err)
	}
	if quizzes != 0 {
		t.Fatalf("expected empty catalog, got %d quizzes", quizzes)
	}
}

func TestOperationsBeforeInit(t *testing.T) {
	st := store.New(memory.NewBackend())
	if err := st.View(func(*domain.State) {}); err != domain.ErrStoreNotReady {
		t.Fatalf("expected ErrStoreNotReady from view, got %v", err)
	}
	if err := st.Update(func(*domain.State) {}); err != domain.ErrStoreNotReady {
		t.Fatalf("expected ErrStoreNotReady from update, got %v", err)
	}
}

func TestDebounceCoalescesSaves(t *testing.T) {
	backend := memory.NewBackend()
	st := store.New(backend, store.WithDebounce(30*time.Millisecond))
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	for i := 0; i < 5; i++ {
		err := st.Update(func(s *domain.State) { s.Diamonds++ })
		if err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	if got := backend.SaveCount(); got != 0 {
		t.Fatalf("expected no save before debounce elapsed, got %d", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for backend.SaveCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("debounced save never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := backend.SaveCount(); got != 1 {
		t.Fatalf("expected coalesced single save, got %d", got)
	}

	// The write must carry the state as of the last mutation.
	var saved domain.State
	if err := json.Unmarshal(backend.Data(), &saved); err != nil {
		t.Fatalf("unmarshal saved state: %v", err)
	}
	if saved.Diamonds != 5 {
		t.Fatalf("expected last-write-wins diamonds 5, got %v", saved.Diamonds)
	}
}

func TestFlushForcesPendingSave(t *testing.T) {
	backend := memory.NewBackend()
	st := store.New(backend, store.WithDebounce(time.Hour))
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := st.Update(func(s *domain.State) { s.Diamonds = 7 }); err != nil {
		t.Fatalf("update: %v", err)
	}
	st.Flush(context.Background())
	if got := backend.SaveCount(); got != 1 {
		t.Fatalf("expected one save after flush, got %d", got)
	}

	// Flushing with nothing pending writes nothing.
	st.Flush(context.Background())
	if got := backend.SaveCount(); got != 1 {
		t.Fatalf("expected no extra save, got %d", got)
	}
}

func TestStatePersistsAcrossStores(t *testing.T) {
	backend := memory.NewBackend()
	st := store.New(backend, store.WithDebounce(time.Hour))
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	created := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	err := st.Update(func(s *domain.State) {
		s.Quizzes = append(s.Quizzes, domain.Quiz{ID: "quiz-1", Title: "Capitals", CreatedAt: created, UpdatedAt: created})
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	st.Close()

	st2 := store.New(backend)
	if err := st2.Init(context.Background()); err != nil {
		t.Fatalf("reinit: %v", err)
	}
	var quiz domain.Quiz
	if err := st2.View(func(s *domain.State) { quiz = s.Quizzes[0] }); err != nil {
		t.Fatalf("view: %v", err)
	}
	if quiz.ID != "quiz-1" || quiz.Title != "Capitals" {
		t.Fatalf("expected persisted quiz, got %+v", quiz)
	}
	if !quiz.CreatedAt.Equal(created) {
		t.Fatalf("expected ISO date round-trip, got %v", quiz.CreatedAt)
	}
}
