package store_test

import (
	"context"
	"testing"

	"github.com/greeeen013/QuizApp/internal/domain"
	"github.com/greeeen013/QuizApp/internal/infra/memory"
	"github.com/greeeen013/QuizApp/internal/store"
)

func initWith(t *testing.T, payload string) *store.Store {
	t.Helper()
	backend := memory.NewBackend()
	backend.Seed([]byte(payload))
	st := store.New(backend)
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return st
}

func TestPartialSettingsMergeOntoDefaults(t *testing.T) {
	st := initWith(t, `{"settings":{"displayName":"Ada"}}`)

	var settings domain.Settings
	if err := st.View(func(s *domain.State) { settings = s.Settings }); err != nil {
		t.Fatalf("view: %v", err)
	}
	if settings.DisplayName != "Ada" {
		t.Fatalf("expected persisted displayName, got %q", settings.DisplayName)
	}
	// Absent fields keep their defaults, so a new settings field never breaks
	// an existing install.
	if !settings.VibrationEnabled || settings.AutoAdvanceDelay != 1.5 {
		t.Fatalf("expected default-filled settings, got %+v", settings)
	}
}

func TestUnknownSettingsFieldsIgnored(t *testing.T) {
	st := initWith(t, `{"settings":{"displayName":"Ada","futureFeature":true}}`)

	var settings domain.Settings
	if err := st.View(func(s *domain.State) { settings = s.Settings }); err != nil {
		t.Fatalf("view: %v", err)
	}
	if settings.DisplayName != "Ada" {
		t.Fatalf("expected displayName to survive unknown siblings, got %q", settings.DisplayName)
	}
}

func TestCorruptSettingsSectionFallsBackWholesale(t *testing.T) {
	st := initWith(t, `{"settings":"oops","streak":{"currentStreak":4,"freezers":2}}`)

	var state domain.State
	if err := st.View(func(s *domain.State) { state = *s }); err != nil {
		t.Fatalf("view: %v", err)
	}
	if state.Settings != domain.DefaultSettings() {
		t.Fatalf("expected default settings, got %+v", state.Settings)
	}
	if state.Streak.CurrentStreak != 4 || state.Streak.Freezers != 2 {
		t.Fatalf("expected streak to load independently, got %+v", state.Streak)
	}
}

func TestStreakSanitized(t *testing.T) {
	st := initWith(t, `{"streak":{"currentStreak":-3,"freezers":9}}`)

	var streak domain.StreakData
	if err := st.View(func(s *domain.State) { streak = s.Streak }); err != nil {
		t.Fatalf("view: %v", err)
	}
	if streak.CurrentStreak != 0 {
		t.Fatalf("expected negative streak clamped to 0, got %d", streak.CurrentStreak)
	}
	if streak.Freezers != domain.FreezerCap {
		t.Fatalf("expected freezers clamped to cap, got %d", streak.Freezers)
	}
	if streak.History == nil {
		t.Fatalf("expected history map initialized")
	}
}

func TestNullSectionsKeepDefaults(t *testing.T) {
	st := initWith(t, `{"quizzes":null,"runs":null,"pausedRuns":null,"diamonds":12.5}`)

	var state domain.State
	if err := st.View(func(s *domain.State) { state = *s }); err != nil {
		t.Fatalf("view: %v", err)
	}
	if state.Quizzes == nil || state.Runs == nil || state.PausedRuns == nil {
		t.Fatalf("expected empty slices over nil, got %+v", state)
	}
	if state.Diamonds != 12.5 {
		t.Fatalf("expected diamonds preserved, got %v", state.Diamonds)
	}
}
