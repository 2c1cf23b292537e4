package store

import (
	"encoding/json"
	"log"

	"github.com/greeeen013/QuizApp/internal/domain"
)

// document mirrors domain.State but keeps settings and streak raw so they can
// be overlaid field-by-field onto defaults. A persisted payload written by an
// older or newer version must never break the load.
type document struct {
	Quizzes    []domain.Quiz      `json:"quizzes"`
	Runs       []domain.QuizRun   `json:"runs"`
	PausedRuns []domain.PausedRun `json:"pausedRuns"`
	Settings   json.RawMessage    `json:"settings"`
	Streak     json.RawMessage    `json:"streak"`
	Diamonds   float64            `json:"diamonds"`
}

// decodeState turns a persisted blob into state, falling back to defaults on
// any shape it cannot trust. Dates round-trip as RFC 3339 strings via the
// time.Time JSON codec.
func decodeState(data []byte) domain.State {
	state := domain.DefaultState()

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("store: corrupt state document, using defaults: %v", err)
		return state
	}

	if doc.Quizzes != nil {
		state.Quizzes = doc.Quizzes
	}
	if doc.Runs != nil {
		state.Runs = doc.Runs
	}
	if doc.PausedRuns != nil {
		state.PausedRuns = doc.PausedRuns
	}
	state.Diamonds = doc.Diamonds

	// Unmarshal-over-defaults: absent fields keep their default, unknown
	// fields are ignored, a malformed section keeps defaults wholesale.
	if len(doc.Settings) > 0 {
		settings := domain.DefaultSettings()
		if err := json.Unmarshal(doc.Settings, &settings); err != nil {
			log.Printf("store: corrupt settings, using defaults: %v", err)
		} else {
			state.Settings = settings
		}
	}
	if len(doc.Streak) > 0 {
		streak := state.Streak
		if err := json.Unmarshal(doc.Streak, &streak); err != nil {
			log.Printf("store: corrupt streak data, using defaults: %v", err)
		} else {
			if streak.History == nil {
				streak.History = map[string]domain.DayStatus{}
			}
			if streak.CurrentStreak < 0 {
				streak.CurrentStreak = 0
			}
			if streak.Freezers < 0 {
				streak.Freezers = 0
			}
			if streak.Freezers > domain.FreezerCap {
				streak.Freezers = domain.FreezerCap
			}
			state.Streak = streak
		}
	}
	return state
}
