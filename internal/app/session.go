package app

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/greeeen013/QuizApp/internal/domain"
	"github.com/greeeen013/QuizApp/internal/store"
)

// Phase is the session state machine position.
type Phase string

const (
	// PhaseSelecting shows a question with zero or more answers toggled.
	PhaseSelecting Phase = "selecting"
	// PhaseSubmitted shows feedback; the answer is frozen.
	PhaseSubmitted Phase = "submitted"
	// PhasePaused means the session was suspended (and persisted, unless mini).
	PhasePaused Phase = "paused"
	// PhaseFinished is terminal.
	PhaseFinished Phase = "finished"
)

// Engine orchestrates quiz attempts. Only one session can be live at a time;
// a finished or paused session frees the slot.
type Engine struct {
	store  *store.Store
	ledger *Ledger
	streak *Streak
	newID  IDFunc
	clock  func() time.Time
	rnd    *rand.Rand

	mu     sync.Mutex
	active *Session
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineClock injects a deterministic clock for tests.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.clock = now }
}

// WithEngineIDs injects a deterministic identifier generator for tests.
func WithEngineIDs(fn IDFunc) EngineOption {
	return func(e *Engine) { e.newID = fn }
}

// WithEngineRand injects a seeded random source for deterministic shuffles.
func WithEngineRand(rnd *rand.Rand) EngineOption {
	return func(e *Engine) { e.rnd = rnd }
}

func NewEngine(st *store.Store, ledger *Ledger, streak *Streak, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  st,
		ledger: ledger,
		streak: streak,
		newID:  NewID,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartOptions selects the run parameters. A non-empty QuestionIDs subset
// makes the run a mini-run: practice only, no ledger, no streak, no pause
// persistence.
type StartOptions struct {
	ShuffleQuestions bool
	ShuffleAnswers   bool
	QuestionIDs      []string
}

// Start begins a fresh session for a quiz. A quiz with a persisted paused run
// must be resumed or discarded first.
func (e *Engine) Start(quizID string, opts StartOptions) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != nil {
		return nil, domain.ErrSessionActive
	}

	var quiz domain.Quiz
	var paused bool
	found := false
	var settings domain.Settings
	err := e.store.View(func(s *domain.State) {
		settings = s.Settings
		if q := s.QuizByID(quizID); q != nil {
			quiz = cloneQuiz(*q)
			found = true
		}
		paused = s.PausedRunForQuiz(quizID) != nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrQuizNotFound
	}
	mini := len(opts.QuestionIDs) > 0
	if !mini && paused {
		return nil, domain.ErrRunPaused
	}

	questions := buildQuestions(quiz, opts.QuestionIDs, opts.ShuffleQuestions, opts.ShuffleAnswers, e.rnd)
	if len(questions) == 0 {
		return nil, domain.ErrNoPlayableQuestions
	}

	session := e.newSession(quiz, questions, opts, mini, settings)
	e.active = session
	return session, nil
}

// Resume reconstructs a session from a persisted paused run. The realized
// question and answer orders stored in the record are replayed, so the resumed
// session presents the identical sequence for every shuffle-flag combination.
func (e *Engine) Resume(pausedRunID string) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != nil {
		return nil, domain.ErrSessionActive
	}

	var pr domain.PausedRun
	var quiz domain.Quiz
	var settings domain.Settings
	foundRun, foundQuiz := false, false
	err := e.store.View(func(s *domain.State) {
		settings = s.Settings
		if p := s.PausedRunByID(pausedRunID); p != nil {
			pr = *p
			foundRun = true
		}
		if foundRun {
			if q := s.QuizByID(pr.QuizID); q != nil {
				quiz = cloneQuiz(*q)
				foundQuiz = true
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if !foundRun {
		return nil, domain.ErrPausedRunNotFound
	}
	if !foundQuiz {
		return nil, domain.ErrQuizNotFound
	}

	var questions []domain.Question
	if len(pr.QuestionOrder) > 0 {
		questions = replayOrder(quiz, pr.QuestionOrder, pr.AnswerOrder)
	}
	if len(questions) == 0 {
		// Older records carry only the flags; rebuild from them.
		questions = buildQuestions(quiz, pr.QuestionIDs, pr.Shuffle, pr.ShuffleAnswers, e.rnd)
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoPlayableQuestions
	}

	opts := StartOptions{
		ShuffleQuestions: pr.Shuffle,
		ShuffleAnswers:   pr.ShuffleAnswers,
		QuestionIDs:      pr.QuestionIDs,
	}
	session := e.newSession(quiz, questions, opts, false, settings)
	session.pausedID = pr.ID

	session.current = pr.CurrentQuestionIndex
	if session.current < 0 {
		session.current = 0
	}
	if session.current >= len(questions) {
		session.current = len(questions) - 1
	}
	for _, a := range pr.Answers {
		session.answers = append(session.answers, a)
		session.answered[a.QuestionID] = struct{}{}
	}
	for _, id := range pr.SelectedAnswerIDs {
		session.selected[id] = struct{}{}
	}
	e.active = session
	return session, nil
}

// Active returns the live session, or nil.
func (e *Engine) Active() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// PausedRuns lists persisted paused runs.
func (e *Engine) PausedRuns() ([]domain.PausedRun, error) {
	var out []domain.PausedRun
	err := e.store.View(func(s *domain.State) {
		out = append(out, s.PausedRuns...)
	})
	return out, err
}

// DiscardPaused deletes a paused run without resuming it.
func (e *Engine) DiscardPaused(id string) error {
	var opErr error
	err := e.store.Update(func(s *domain.State) {
		for i := range s.PausedRuns {
			if s.PausedRuns[i].ID == id {
				s.PausedRuns = append(s.PausedRuns[:i], s.PausedRuns[i+1:]...)
				return
			}
		}
		opErr = domain.ErrPausedRunNotFound
	})
	if err != nil {
		return err
	}
	return opErr
}

func (e *Engine) newSession(quiz domain.Quiz, questions []domain.Question, opts StartOptions, mini bool, settings domain.Settings) *Session {
	return &Session{
		engine:             e,
		id:                 e.newID(),
		quizID:             quiz.ID,
		quizTitle:          quiz.Title,
		mini:               mini,
		shuffleQuestions:   opts.ShuffleQuestions,
		shuffleAnswers:     opts.ShuffleAnswers,
		subset:             opts.QuestionIDs,
		manualConfirmation: settings.ManualConfirmation,
		autoAdvanceDelay:   time.Duration(settings.AutoAdvanceDelay * float64(time.Second)),
		phase:              PhaseSelecting,
		questions:          questions,
		selected:           map[string]struct{}{},
		answered:           map[string]struct{}{},
		subscribers:        map[chan Snapshot]struct{}{},
	}
}

// clearActive frees the single-session slot if s still owns it.
func (e *Engine) clearActive(s *Session) {
	e.mu.Lock()
	if e.active == s {
		e.active = nil
	}
	e.mu.Unlock()
}

// removePausedRun deletes the record backing a consumed session, if any.
func (e *Engine) removePausedRun(id string) {
	if id == "" {
		return
	}
	_ = e.store.Update(func(s *domain.State) {
		for i := range s.PausedRuns {
			if s.PausedRuns[i].ID == id {
				s.PausedRuns = append(s.PausedRuns[:i], s.PausedRuns[i+1:]...)
				return
			}
		}
	})
}

// buildQuestions applies the setup procedure: keep answerable questions,
// restrict to the subset, sort by orderIndex as the stable base, then shuffle
// questions and each answer list independently when asked.
func buildQuestions(quiz domain.Quiz, subset []string, shuffleQuestions, shuffleAnswers bool, rnd *rand.Rand) []domain.Question {
	restrict := map[string]struct{}{}
	for _, id := range subset {
		restrict[id] = struct{}{}
	}

	questions := make([]domain.Question, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		if !q.Answerable() {
			continue
		}
		if len(restrict) > 0 {
			if _, ok := restrict[q.ID]; !ok {
				continue
			}
		}
		questions = append(questions, cloneQuestion(q))
	}

	sort.Slice(questions, func(i, j int) bool {
		return questions[i].OrderIndex < questions[j].OrderIndex
	})

	if shuffleQuestions {
		for i := len(questions) - 1; i > 0; i-- {
			j := rnd.Intn(i + 1)
			questions[i], questions[j] = questions[j], questions[i]
		}
	}
	if shuffleAnswers {
		for qi := range questions {
			answers := questions[qi].Answers
			for i := len(answers) - 1; i > 0; i-- {
				j := rnd.Intn(i + 1)
				answers[i], answers[j] = answers[j], answers[i]
			}
		}
	}
	return questions
}

// replayOrder rebuilds the question sequence a paused run actually presented.
// Questions deleted or made unanswerable since the pause are skipped; answers
// added since the pause go to the end of their question's list.
func replayOrder(quiz domain.Quiz, questionOrder []string, answerOrder map[string][]string) []domain.Question {
	byID := make(map[string]domain.Question, len(quiz.Questions))
	for _, q := range quiz.Questions {
		byID[q.ID] = q
	}
	questions := make([]domain.Question, 0, len(questionOrder))
	for _, id := range questionOrder {
		q, ok := byID[id]
		if !ok || !q.Answerable() {
			continue
		}
		q = cloneQuestion(q)
		if order, ok := answerOrder[id]; ok {
			q.Answers = reorderAnswers(q.Answers, order)
		}
		questions = append(questions, q)
	}
	return questions
}

func reorderAnswers(answers []domain.Answer, order []string) []domain.Answer {
	byID := make(map[string]domain.Answer, len(answers))
	for _, a := range answers {
		byID[a.ID] = a
	}
	out := make([]domain.Answer, 0, len(answers))
	for _, id := range order {
		if a, ok := byID[id]; ok {
			out = append(out, a)
			delete(byID, id)
		}
	}
	for _, a := range answers {
		if _, ok := byID[a.ID]; ok {
			out = append(out, a)
		}
	}
	return out
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	q.Questions = append([]domain.Question(nil), q.Questions...)
	for i := range q.Questions {
		q.Questions[i] = cloneQuestion(q.Questions[i])
	}
	return q
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Answers = append([]domain.Answer(nil), q.Answers...)
	q.Images = append([]string(nil), q.Images...)
	return q
}
