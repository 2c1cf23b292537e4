package app

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/greeeen013/QuizApp/internal/domain"
)

// Session is one quiz attempt. All transitions go through one mutation entry
// point per kind, under the session mutex; the pending auto-advance task is
// cancelled whenever the state transitions out from under it.
type Session struct {
	engine             *Engine
	id                 string
	quizID             string
	quizTitle          string
	mini               bool
	shuffleQuestions   bool
	shuffleAnswers     bool
	subset             []string
	manualConfirmation bool
	autoAdvanceDelay   time.Duration

	mu           sync.Mutex
	phase        Phase
	questions    []domain.Question
	current      int
	selected     map[string]struct{}
	answers      []domain.QuizRunAnswer
	answered     map[string]struct{}
	pausedID     string
	lastSubmit   *SubmitResult
	result       *RunResult
	advanceGen   int
	advanceTimer *time.Timer
	subscribers  map[chan Snapshot]struct{}
}

// SubmitResult is the per-question feedback returned on submission.
type SubmitResult struct {
	QuestionID       string   `json:"questionId"`
	Correct          bool     `json:"correct"`
	CorrectAnswerIDs []string `json:"correctAnswerIds"`
}

// RunResult is the session outcome. Saved is false for mini-runs and for
// sessions ended before any question was answered: those never reach the
// ledger.
type RunResult struct {
	Run   domain.QuizRun `json:"run"`
	Saved bool           `json:"saved"`
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// QuizID returns the quiz this session plays.
func (s *Session) QuizID() string { return s.quizID }

// Mini reports whether this is a practice run.
func (s *Session) Mini() bool { return s.mini }

// Phase returns the current state machine position.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Toggle flips an answer selection for the current question. Selecting an
// already-selected id deselects it.
func (s *Session) Toggle(answerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseSelecting {
		return s.phaseError()
	}
	q := s.questions[s.current]
	known := false
	for _, a := range q.Answers {
		if a.ID == answerID {
			known = true
			break
		}
	}
	if !known {
		return domain.ErrAnswerNotFound
	}
	if _, ok := s.selected[answerID]; ok {
		delete(s.selected, answerID)
	} else {
		s.selected[answerID] = struct{}{}
	}
	s.broadcastLocked()
	return nil
}

// Submit freezes the current selection and scores it by exact set equality
// against the correct-answer set. Submitting a question that was already
// answered (the engine may reprocess the same state after a timed advance)
// returns the recorded outcome without appending a duplicate.
func (s *Session) Submit() (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseSelecting {
		return SubmitResult{}, s.phaseError()
	}
	if len(s.selected) == 0 {
		return SubmitResult{}, domain.ErrNoSelection
	}

	q := s.questions[s.current]
	correctSet := q.CorrectAnswerIDs()
	result := SubmitResult{
		QuestionID:       q.ID,
		Correct:          setsEqual(s.selected, correctSet),
		CorrectAnswerIDs: sortedKeys(correctSet),
	}

	if _, done := s.answered[q.ID]; !done {
		s.answers = append(s.answers, domain.QuizRunAnswer{
			QuestionID:        q.ID,
			SelectedAnswerIDs: sortedKeys(s.selected),
			IsCorrect:         result.Correct,
		})
		s.answered[q.ID] = struct{}{}
	} else {
		for _, a := range s.answers {
			if a.QuestionID == q.ID {
				result.Correct = a.IsCorrect
				break
			}
		}
	}

	s.lastSubmit = &result
	s.phase = PhaseSubmitted

	if !s.manualConfirmation {
		s.advanceGen++
		gen := s.advanceGen
		s.advanceTimer = time.AfterFunc(s.autoAdvanceDelay, func() {
			s.autoAdvance(gen)
		})
	}
	s.broadcastLocked()
	return result, nil
}

// Next advances past a submitted question. It is the explicit confirmation
// when manual confirmation is on; with auto-advance it is a harmless no-op if
// the timer already fired.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseFinished {
		return domain.ErrSessionFinished
	}
	if s.phase != PhaseSubmitted {
		return nil
	}
	s.advanceLocked()
	return nil
}

// autoAdvance is the delayed-advance callback. A stale generation means the
// session transitioned (pause, next, early end) before the timer elapsed.
func (s *Session) autoAdvance(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.advanceGen || s.phase != PhaseSubmitted {
		return
	}
	s.advanceLocked()
}

func (s *Session) advanceLocked() {
	s.cancelAdvanceLocked()
	if s.current >= len(s.questions)-1 {
		s.finishLocked()
		return
	}
	s.current++
	s.selected = map[string]struct{}{}
	s.lastSubmit = nil
	s.phase = PhaseSelecting
	s.broadcastLocked()
}

func (s *Session) cancelAdvanceLocked() {
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
		s.advanceTimer = nil
	}
	s.advanceGen++
}

// Pause suspends the session and upserts its paused record, reusing the id of
// the record this session was resumed from so one logical lineage never
// duplicates. Pausing a mini-run simply exits without persisting anything.
// Pausing right after the final question's submission completes the session
// instead, since every question is already answered.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phase {
	case PhaseFinished:
		return domain.ErrSessionFinished
	case PhasePaused:
		return nil
	}
	s.cancelAdvanceLocked()

	if s.phase == PhaseSubmitted && s.current >= len(s.questions)-1 {
		s.finishLocked()
		return nil
	}

	if s.mini {
		s.phase = PhasePaused
		s.engine.clearActive(s)
		s.broadcastLocked()
		return nil
	}

	index := s.current
	selected := sortedKeys(s.selected)
	if s.phase == PhaseSubmitted {
		// The in-flight question is already recorded; resume lands on the next one.
		index++
		selected = nil
	}

	id := s.pausedID
	if id == "" {
		id = s.engine.newID()
	}
	record := domain.PausedRun{
		ID:                   id,
		QuizID:               s.quizID,
		CurrentQuestionIndex: index,
		SelectedAnswerIDs:    selected,
		Answers:              append([]domain.QuizRunAnswer(nil), s.answers...),
		Timestamp:            s.engine.clock(),
		Shuffle:              s.shuffleQuestions,
		ShuffleAnswers:       s.shuffleAnswers,
		QuestionIDs:          s.subset,
		QuestionOrder:        s.questionOrderLocked(),
		AnswerOrder:          s.answerOrderLocked(),
	}
	err := s.engine.store.Update(func(st *domain.State) {
		if existing := st.PausedRunByID(id); existing != nil {
			*existing = record
			return
		}
		st.PausedRuns = append(st.PausedRuns, record)
	})
	if err != nil {
		return err
	}
	s.pausedID = id
	s.phase = PhasePaused
	s.engine.clearActive(s)
	s.broadcastLocked()
	return nil
}

// Background is the lifecycle signal from the UI layer. It takes the same
// pause-capture path as an explicit pause for non-mini-runs, so a session is
// never silently lost to an app kill; a backgrounded mini-run keeps playing.
func (s *Session) Background() error {
	if s.mini {
		return nil
	}
	err := s.Pause()
	if errors.Is(err, domain.ErrSessionFinished) {
		return nil
	}
	return err
}

// EndEarly terminates the session, scoring only the already-submitted
// questions. Unanswered questions leave both the denominator and the question
// count. The persisted run is flagged incomplete; a session with no submitted
// answers is discarded without a ledger entry.
func (s *Session) EndEarly() (RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseFinished {
		return RunResult{}, domain.ErrSessionFinished
	}
	s.cancelAdvanceLocked()
	result := s.completeLocked(true)
	return result, nil
}

func (s *Session) finishLocked() {
	s.completeLocked(false)
}

// completeLocked scores the submitted answers and settles the session. The
// arithmetic is identical for natural completion and early end; they differ
// only in which question set is scored and in the incomplete flag.
func (s *Session) completeLocked(early bool) RunResult {
	correct := 0
	for _, a := range s.answers {
		if a.IsCorrect {
			correct++
		}
	}
	total := len(s.answers)
	wrong := total - correct
	score := 0.0
	if total > 0 {
		score = 100 * float64(correct) / float64(total)
	}

	answers := append([]domain.QuizRunAnswer(nil), s.answers...)
	result := RunResult{
		Run: domain.QuizRun{
			QuizID:          s.quizID,
			QuizTitle:       s.quizTitle,
			Timestamp:       s.engine.clock(),
			ScorePercentage: score,
			TotalQuestions:  total,
			CorrectCount:    correct,
			WrongCount:      wrong,
			Answers:         answers,
			IsIncomplete:    early,
		},
	}

	if !s.mini && total > 0 {
		run, err := s.engine.ledger.AddRun(RunParams{
			QuizID:          s.quizID,
			QuizTitle:       s.quizTitle,
			ScorePercentage: score,
			TotalQuestions:  total,
			CorrectCount:    correct,
			WrongCount:      wrong,
			Answers:         answers,
			IsIncomplete:    early,
		})
		if err == nil {
			result.Run = run
			result.Saved = true
		}
		if !early {
			_ = s.engine.streak.Complete()
		}
	}
	if !s.mini {
		s.engine.removePausedRun(s.pausedID)
	}

	s.result = &result
	s.phase = PhaseFinished
	s.engine.clearActive(s)
	s.broadcastLocked()
	return result
}

// Result returns the session outcome once finished.
func (s *Session) Result() (RunResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return RunResult{}, false
	}
	return *s.result, true
}

func (s *Session) phaseError() error {
	switch s.phase {
	case PhaseFinished:
		return domain.ErrSessionFinished
	case PhasePaused:
		return domain.ErrRunPaused
	default:
		return domain.ErrAlreadySubmitted
	}
}

func (s *Session) questionOrderLocked() []string {
	order := make([]string, len(s.questions))
	for i, q := range s.questions {
		order[i] = q.ID
	}
	return order
}

func (s *Session) answerOrderLocked() map[string][]string {
	order := make(map[string][]string, len(s.questions))
	for _, q := range s.questions {
		ids := make([]string, len(q.Answers))
		for i, a := range q.Answers {
			ids[i] = a.ID
		}
		order[q.ID] = ids
	}
	return order
}

func setsEqual(a map[string]struct{}, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
