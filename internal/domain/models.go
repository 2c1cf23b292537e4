package domain

import (
	"strings"
	"time"
)

// Answer is one selectable option belonging to exactly one question.
type Answer struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is a multiple-choice question. Answers keep insertion order;
// OrderIndex defines the question's position within its quiz.
type Question struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	OrderIndex int      `json:"orderIndex"`
	Answers    []Answer `json:"answers"`
	Images     []string `json:"images,omitempty"`
}

// Answerable reports whether the question can appear in a live session.
// Questions without a correct answer stay in storage but are excluded from play.
func (q Question) Answerable() bool {
	for _, a := range q.Answers {
		if a.IsCorrect {
			return true
		}
	}
	return false
}

// CorrectAnswerIDs returns the set of correct answer ids.
func (q Question) CorrectAnswerIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, a := range q.Answers {
		if a.IsCorrect {
			ids[a.ID] = struct{}{}
		}
	}
	return ids
}

// Quiz is an authored test. UpdatedAt is bumped on every structural mutation.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Questions   []Question `json:"questions"`
}

// Valid reports whether the quiz has a usable title.
func (q Quiz) Valid() bool {
	return strings.TrimSpace(q.Title) != ""
}

// QuizRunAnswer records one submitted question. IsCorrect is computed at
// submission time and never recomputed, so it survives later quiz edits.
type QuizRunAnswer struct {
	QuestionID        string   `json:"questionId"`
	SelectedAnswerIDs []string `json:"selectedAnswerIds"`
	IsCorrect         bool     `json:"isCorrect"`
}

// QuizRun is one completed attempt. Runs are immutable once created and the
// ledger is append-only; QuizTitle is a snapshot that survives quiz deletion.
type QuizRun struct {
	ID              string          `json:"id"`
	QuizID          string          `json:"quizId"`
	QuizTitle       string          `json:"quizTitle"`
	Timestamp       time.Time       `json:"timestamp"`
	ScorePercentage float64         `json:"scorePercentage"`
	TotalQuestions  int             `json:"totalQuestions"`
	CorrectCount    int             `json:"correctCount"`
	WrongCount      int             `json:"wrongCount"`
	Answers         []QuizRunAnswer `json:"answers"`
	IsIncomplete    bool            `json:"isIncomplete,omitempty"`
	DiamondsEarned  float64         `json:"diamondsEarned,omitempty"`
}

// PausedRun is a suspended session, upserted by id so one logical session
// lineage never accumulates duplicate records. QuestionOrder and AnswerOrder
// persist the realized (possibly shuffled) presentation order so that resuming
// replays the identical sequence.
type PausedRun struct {
	ID                   string              `json:"id"`
	QuizID               string              `json:"quizId"`
	CurrentQuestionIndex int                 `json:"currentQuestionIndex"`
	SelectedAnswerIDs    []string            `json:"selectedAnswerIds"`
	Answers              []QuizRunAnswer     `json:"answers"`
	Timestamp            time.Time           `json:"timestamp"`
	Shuffle              bool                `json:"shuffle"`
	ShuffleAnswers       bool                `json:"shuffleAnswers"`
	QuestionIDs          []string            `json:"questionIds,omitempty"`
	QuestionOrder        []string            `json:"questionOrder,omitempty"`
	AnswerOrder          map[string][]string `json:"answerOrder,omitempty"`
}

// Settings is the single process-wide preferences record.
type Settings struct {
	DefaultShuffle        bool    `json:"defaultShuffle"`
	DefaultShuffleAnswers bool    `json:"defaultShuffleAnswers"`
	DisplayName           string  `json:"displayName"`
	AvatarPreset          string  `json:"avatarPreset"`
	ProfileImage          string  `json:"profileImage"`
	VibrationEnabled      bool    `json:"vibrationEnabled"`
	AutoAdvanceDelay      float64 `json:"autoAdvanceDelay"` // seconds
	ManualConfirmation    bool    `json:"manualConfirmation"`
}

// DayStatus marks how one calendar day counted toward the streak.
type DayStatus string

const (
	DayCompleted DayStatus = "completed"
	DayFreezed   DayStatus = "freezed"
	DayMissed    DayStatus = "missed"
)

// FreezerCap is the maximum number of freezers that can be held at once.
const FreezerCap = 3

// FreezerCost is the diamond price of one freezer.
const FreezerCost = 100

// StreakData tracks the daily-completion streak. Days are local calendar-day
// strings (YYYY-MM-DD); LastCompletedDate is empty when no quiz was ever
// completed.
type StreakData struct {
	CurrentStreak     int                  `json:"currentStreak"`
	LastCompletedDate string               `json:"lastCompletedDate"`
	Freezers          int                  `json:"freezers"`
	History           map[string]DayStatus `json:"history"`
}

// State is the whole persisted document: one JSON blob per install.
type State struct {
	Quizzes    []Quiz      `json:"quizzes"`
	Runs       []QuizRun   `json:"runs"`
	PausedRuns []PausedRun `json:"pausedRuns"`
	Settings   Settings    `json:"settings"`
	Streak     StreakData  `json:"streak"`
	Diamonds   float64     `json:"diamonds"`
}

// DefaultSettings returns the settings used on a fresh install and as the
// merge base for persisted payloads.
func DefaultSettings() Settings {
	return Settings{
		VibrationEnabled:   true,
		AutoAdvanceDelay:   1.5,
		ManualConfirmation: false,
	}
}

// DefaultState returns the state of a fresh install.
func DefaultState() State {
	return State{
		Quizzes:    []Quiz{},
		Runs:       []QuizRun{},
		PausedRuns: []PausedRun{},
		Settings:   DefaultSettings(),
		Streak:     StreakData{History: map[string]DayStatus{}},
	}
}

// QuizByID returns a pointer into the state's quiz slice, or nil.
func (s *State) QuizByID(id string) *Quiz {
	for i := range s.Quizzes {
		if s.Quizzes[i].ID == id {
			return &s.Quizzes[i]
		}
	}
	return nil
}

// PausedRunByID returns a pointer into the paused-run slice, or nil.
func (s *State) PausedRunByID(id string) *PausedRun {
	for i := range s.PausedRuns {
		if s.PausedRuns[i].ID == id {
			return &s.PausedRuns[i]
		}
	}
	return nil
}

// PausedRunForQuiz returns the paused run referencing the quiz, or nil.
func (s *State) PausedRunForQuiz(quizID string) *PausedRun {
	for i := range s.PausedRuns {
		if s.PausedRuns[i].QuizID == quizID {
			return &s.PausedRuns[i]
		}
	}
	return nil
}
