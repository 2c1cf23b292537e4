package app

// AnswerView is an answer as presented to the player, without the correctness
// flag; feedback arrives through SubmitResult after submission.
type AnswerView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView is the current question in realized presentation order.
type QuestionView struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Images  []string     `json:"images,omitempty"`
	Answers []AnswerView `json:"answers"`
}

// Snapshot is the full renderable session state, pushed to subscribers after
// every transition.
type Snapshot struct {
	SessionID      string        `json:"sessionId"`
	QuizID         string        `json:"quizId"`
	QuizTitle      string        `json:"quizTitle"`
	Phase          Phase         `json:"phase"`
	Mini           bool          `json:"mini"`
	CurrentIndex   int           `json:"currentIndex"`
	TotalQuestions int           `json:"totalQuestions"`
	Question       *QuestionView `json:"question,omitempty"`
	Selected       []string      `json:"selected"`
	AnsweredCount  int           `json:"answeredCount"`
	CorrectCount   int           `json:"correctCount"`
	LastResult     *SubmitResult `json:"lastResult,omitempty"`
	Result         *RunResult    `json:"result,omitempty"`
}

// Snapshot returns the current renderable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:      s.id,
		QuizID:         s.quizID,
		QuizTitle:      s.quizTitle,
		Phase:          s.phase,
		Mini:           s.mini,
		CurrentIndex:   s.current,
		TotalQuestions: len(s.questions),
		Selected:       sortedKeys(s.selected),
		AnsweredCount:  len(s.answers),
		LastResult:     s.lastSubmit,
		Result:         s.result,
	}
	for _, a := range s.answers {
		if a.IsCorrect {
			snap.CorrectCount++
		}
	}
	if s.phase == PhaseSelecting || s.phase == PhaseSubmitted {
		q := s.questions[s.current]
		view := QuestionView{
			ID:      q.ID,
			Text:    q.Text,
			Images:  append([]string(nil), q.Images...),
			Answers: make([]AnswerView, len(q.Answers)),
		}
		for i, a := range q.Answers {
			view.Answers[i] = AnswerView{ID: a.ID, Text: a.Text}
		}
		snap.Question = &view
	}
	return snap
}

// Subscribe returns a channel receiving a snapshot after every transition,
// starting with the current one. The caller must invoke the returned cancel
// function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow reader never blocks a transition.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
