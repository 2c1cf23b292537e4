package app

import (
	"time"

	"github.com/greeeen013/QuizApp/internal/domain"
	"github.com/greeeen013/QuizApp/internal/store"
)

// Ledger is the append-only history of completed runs. Runs are never mutated
// or deleted here; only a cascading quiz deletion removes them.
type Ledger struct {
	store *store.Store
	newID IDFunc
	clock func() time.Time
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithLedgerClock injects a deterministic clock for tests.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.clock = now }
}

// WithLedgerIDs injects a deterministic identifier generator for tests.
func WithLedgerIDs(fn IDFunc) LedgerOption {
	return func(l *Ledger) { l.newID = fn }
}

func NewLedger(st *store.Store, opts ...LedgerOption) *Ledger {
	l := &Ledger{store: st, newID: NewID, clock: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RunParams is the input to AddRun. TotalQuestions counts answered questions,
// which is less than the full quiz length for an early-ended run.
type RunParams struct {
	QuizID          string
	QuizTitle       string
	ScorePercentage float64
	TotalQuestions  int
	CorrectCount    int
	WrongCount      int
	Answers         []domain.QuizRunAnswer
	IsIncomplete    bool
}

// diamondReward is proportional to both breadth and accuracy.
func diamondReward(totalQuestions int, scorePercentage float64) float64 {
	return float64(totalQuestions) * 0.5 * (scorePercentage / 100)
}

// AddRun prepends a run to the ledger (most-recent-first) and credits the
// diamond reward. Mini-runs must never reach this call; the session engine
// filters them out at the call site.
func (l *Ledger) AddRun(params RunParams) (domain.QuizRun, error) {
	run := domain.QuizRun{
		ID:              l.newID(),
		QuizID:          params.QuizID,
		QuizTitle:       params.QuizTitle,
		Timestamp:       l.clock(),
		ScorePercentage: params.ScorePercentage,
		TotalQuestions:  params.TotalQuestions,
		CorrectCount:    params.CorrectCount,
		WrongCount:      params.WrongCount,
		Answers:         params.Answers,
		IsIncomplete:    params.IsIncomplete,
		DiamondsEarned:  diamondReward(params.TotalQuestions, params.ScorePercentage),
	}
	err := l.store.Update(func(s *domain.State) {
		s.Runs = append([]domain.QuizRun{run}, s.Runs...)
		s.Diamonds += run.DiamondsEarned
	})
	if err != nil {
		return domain.QuizRun{}, err
	}
	return run, nil
}

// Runs returns the full ledger, most recent first.
func (l *Ledger) Runs() ([]domain.QuizRun, error) {
	var out []domain.QuizRun
	err := l.store.View(func(s *domain.State) {
		out = append(out, s.Runs...)
	})
	return out, err
}

// RunsForQuiz returns the ledger entries for one quiz, most recent first.
func (l *Ledger) RunsForQuiz(quizID string) ([]domain.QuizRun, error) {
	var out []domain.QuizRun
	err := l.store.View(func(s *domain.State) {
		for _, r := range s.Runs {
			if r.QuizID == quizID {
				out = append(out, r)
			}
		}
	})
	return out, err
}

// Run returns one ledger entry by id.
func (l *Ledger) Run(id string) (domain.QuizRun, error) {
	var out domain.QuizRun
	found := false
	err := l.store.View(func(s *domain.State) {
		for _, r := range s.Runs {
			if r.ID == id {
				out = r
				found = true
				return
			}
		}
	})
	if err != nil {
		return domain.QuizRun{}, err
	}
	if !found {
		return domain.QuizRun{}, domain.ErrRunNotFound
	}
	return out, nil
}

// Diamonds returns the current balance.
func (l *Ledger) Diamonds() (float64, error) {
	var out float64
	err := l.store.View(func(s *domain.State) {
		out = s.Diamonds
	})
	return out, err
}
