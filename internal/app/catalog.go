package app

import (
	"strings"
	"time"

	"github.com/greeeen013/QuizApp/internal/domain"
	"github.com/greeeen013/QuizApp/internal/store"
)

// Catalog owns quiz and question authoring plus the settings record.
type Catalog struct {
	store *store.Store
	newID IDFunc
	clock func() time.Time
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithCatalogClock injects a deterministic clock for tests.
func WithCatalogClock(now func() time.Time) CatalogOption {
	return func(c *Catalog) { c.clock = now }
}

// WithCatalogIDs injects a deterministic identifier generator for tests.
func WithCatalogIDs(fn IDFunc) CatalogOption {
	return func(c *Catalog) { c.newID = fn }
}

func NewCatalog(st *store.Store, opts ...CatalogOption) *Catalog {
	c := &Catalog{store: st, newID: NewID, clock: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddQuiz creates a quiz, assigning ids and timestamps. Pre-supplied questions
// and answers receive ids where missing and are reindexed by position. Deeper
// validation of supplied questions is the caller's responsibility; only the
// title is checked here.
func (c *Catalog) AddQuiz(title, description string, questions []domain.Question) (domain.Quiz, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Quiz{}, domain.ErrEmptyTitle
	}
	now := c.clock()
	quiz := domain.Quiz{
		ID:          c.newID(),
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Questions:   make([]domain.Question, 0, len(questions)),
	}
	for i, q := range questions {
		if q.ID == "" {
			q.ID = c.newID()
		}
		q.OrderIndex = i
		for j := range q.Answers {
			if q.Answers[j].ID == "" {
				q.Answers[j].ID = c.newID()
			}
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	err := c.store.Update(func(s *domain.State) {
		s.Quizzes = append(s.Quizzes, quiz)
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// ImportPayload is the shape produced by import collaborators (clipboard,
// file). Anything with a non-empty title and a question list is accepted and
// routed through the normal AddQuiz path.
type ImportPayload struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Questions   []domain.Question `json:"questions"`
}

// ImportQuiz runs an externally produced payload through AddQuiz.
func (c *Catalog) ImportQuiz(payload ImportPayload) (domain.Quiz, error) {
	return c.AddQuiz(payload.Title, payload.Description, payload.Questions)
}

// QuizUpdate carries the partial fields of an UpdateQuiz call; nil means
// "leave unchanged".
type QuizUpdate struct {
	Title       *string
	Description *string
}

// UpdateQuiz merges the partial fields and bumps UpdatedAt. A missing id is a
// reported ErrQuizNotFound, not a silent no-op.
func (c *Catalog) UpdateQuiz(id string, upd QuizUpdate) (domain.Quiz, error) {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return domain.Quiz{}, domain.ErrEmptyTitle
	}
	var out domain.Quiz
	var opErr error
	err := c.store.Update(func(s *domain.State) {
		quiz := s.QuizByID(id)
		if quiz == nil {
			opErr = domain.ErrQuizNotFound
			return
		}
		if upd.Title != nil {
			quiz.Title = strings.TrimSpace(*upd.Title)
		}
		if upd.Description != nil {
			quiz.Description = *upd.Description
		}
		quiz.UpdatedAt = c.clock()
		out = *quiz
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	if opErr != nil {
		return domain.Quiz{}, opErr
	}
	return out, nil
}

// DeleteQuiz removes the quiz and cascades to its runs and paused runs.
func (c *Catalog) DeleteQuiz(id string) error {
	var opErr error
	err := c.store.Update(func(s *domain.State) {
		idx := -1
		for i := range s.Quizzes {
			if s.Quizzes[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			opErr = domain.ErrQuizNotFound
			return
		}
		s.Quizzes = append(s.Quizzes[:idx], s.Quizzes[idx+1:]...)

		runs := s.Runs[:0]
		for _, r := range s.Runs {
			if r.QuizID != id {
				runs = append(runs, r)
			}
		}
		s.Runs = runs

		paused := s.PausedRuns[:0]
		for _, p := range s.PausedRuns {
			if p.QuizID != id {
				paused = append(paused, p)
			}
		}
		s.PausedRuns = paused
	})
	if err != nil {
		return err
	}
	return opErr
}

// validateAnswers applies the authoring rules for question answers.
func validateAnswers(answers []domain.Answer) error {
	if len(answers) < 2 {
		return domain.ErrTooFewAnswers
	}
	for _, a := range answers {
		if a.IsCorrect {
			return nil
		}
	}
	return domain.ErrNoCorrectAnswer
}

// AddQuestion appends a question with orderIndex one past the current maximum
// (zero when the quiz is empty) and bumps the parent's UpdatedAt.
func (c *Catalog) AddQuestion(quizID, text string, answers []domain.Answer, images []string) (domain.Question, error) {
	if err := validateAnswers(answers); err != nil {
		return domain.Question{}, err
	}
	question := domain.Question{
		ID:      c.newID(),
		Text:    text,
		Answers: make([]domain.Answer, len(answers)),
		Images:  images,
	}
	copy(question.Answers, answers)
	for i := range question.Answers {
		if question.Answers[i].ID == "" {
			question.Answers[i].ID = c.newID()
		}
	}

	var opErr error
	err := c.store.Update(func(s *domain.State) {
		quiz := s.QuizByID(quizID)
		if quiz == nil {
			opErr = domain.ErrQuizNotFound
			return
		}
		next := 0
		for _, q := range quiz.Questions {
			if q.OrderIndex >= next {
				next = q.OrderIndex + 1
			}
		}
		question.OrderIndex = next
		quiz.Questions = append(quiz.Questions, question)
		quiz.UpdatedAt = c.clock()
	})
	if err != nil {
		return domain.Question{}, err
	}
	if opErr != nil {
		return domain.Question{}, opErr
	}
	return question, nil
}

// QuestionUpdate carries the partial fields of an UpdateQuestion call.
type QuestionUpdate struct {
	Text    *string
	Answers *[]domain.Answer
	Images  *[]string
}

// UpdateQuestion mutates one question inside one quiz and bumps the parent's
// UpdatedAt. Missing quiz or question ids are reported, not swallowed.
func (c *Catalog) UpdateQuestion(quizID, questionID string, upd QuestionUpdate) (domain.Question, error) {
	if upd.Answers != nil {
		if err := validateAnswers(*upd.Answers); err != nil {
			return domain.Question{}, err
		}
	}
	var out domain.Question
	var opErr error
	err := c.store.Update(func(s *domain.State) {
		quiz := s.QuizByID(quizID)
		if quiz == nil {
			opErr = domain.ErrQuizNotFound
			return
		}
		for i := range quiz.Questions {
			if quiz.Questions[i].ID != questionID {
				continue
			}
			q := &quiz.Questions[i]
			if upd.Text != nil {
				q.Text = *upd.Text
			}
			if upd.Answers != nil {
				answers := make([]domain.Answer, len(*upd.Answers))
				copy(answers, *upd.Answers)
				for j := range answers {
					if answers[j].ID == "" {
						answers[j].ID = c.newID()
					}
				}
				q.Answers = answers
			}
			if upd.Images != nil {
				q.Images = *upd.Images
			}
			quiz.UpdatedAt = c.clock()
			out = *q
			return
		}
		opErr = domain.ErrQuestionNotFound
	})
	if err != nil {
		return domain.Question{}, err
	}
	if opErr != nil {
		return domain.Question{}, opErr
	}
	return out, nil
}

// DeleteQuestion removes one question and bumps the parent's UpdatedAt.
func (c *Catalog) DeleteQuestion(quizID, questionID string) error {
	var opErr error
	err := c.store.Update(func(s *domain.State) {
		quiz := s.QuizByID(quizID)
		if quiz == nil {
			opErr = domain.ErrQuizNotFound
			return
		}
		for i := range quiz.Questions {
			if quiz.Questions[i].ID == questionID {
				quiz.Questions = append(quiz.Questions[:i], quiz.Questions[i+1:]...)
				quiz.UpdatedAt = c.clock()
				return
			}
		}
		opErr = domain.ErrQuestionNotFound
	})
	if err != nil {
		return err
	}
	return opErr
}

// ReorderQuestions makes orderedIDs the authoritative sequence: each question's
// orderIndex becomes its 0-based position in it. Questions omitted from
// orderedIDs are dropped, so callers must always pass the complete current id
// set. Duplicate or unknown ids reject the whole reorder. A reorder that
// changes nothing is a true no-op and does not bump UpdatedAt.
func (c *Catalog) ReorderQuestions(quizID string, orderedIDs []string) error {
	var opErr error
	err := c.store.Update(func(s *domain.State) {
		quiz := s.QuizByID(quizID)
		if quiz == nil {
			opErr = domain.ErrQuizNotFound
			return
		}
		byID := make(map[string]domain.Question, len(quiz.Questions))
		for _, q := range quiz.Questions {
			byID[q.ID] = q
		}
		seen := make(map[string]struct{}, len(orderedIDs))
		reordered := make([]domain.Question, 0, len(orderedIDs))
		for pos, id := range orderedIDs {
			if _, dup := seen[id]; dup {
				opErr = domain.ErrInvalidReorder
				return
			}
			seen[id] = struct{}{}
			q, ok := byID[id]
			if !ok {
				opErr = domain.ErrInvalidReorder
				return
			}
			q.OrderIndex = pos
			reordered = append(reordered, q)
		}
		if sameQuestionOrder(quiz.Questions, reordered) {
			return
		}
		quiz.Questions = reordered
		quiz.UpdatedAt = c.clock()
	})
	if err != nil {
		return err
	}
	return opErr
}

func sameQuestionOrder(a, b []domain.Question) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].OrderIndex != b[i].OrderIndex {
			return false
		}
	}
	return true
}

// Quizzes returns a copy of the catalog.
func (c *Catalog) Quizzes() ([]domain.Quiz, error) {
	var out []domain.Quiz
	err := c.store.View(func(s *domain.State) {
		out = append(out, s.Quizzes...)
	})
	return out, err
}

// Quiz returns one quiz by id.
func (c *Catalog) Quiz(id string) (domain.Quiz, error) {
	var out domain.Quiz
	found := false
	err := c.store.View(func(s *domain.State) {
		if q := s.QuizByID(id); q != nil {
			out = *q
			found = true
		}
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	if !found {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return out, nil
}

// Settings returns the current settings record.
func (c *Catalog) Settings() (domain.Settings, error) {
	var out domain.Settings
	err := c.store.View(func(s *domain.State) {
		out = s.Settings
	})
	return out, err
}

// SettingsUpdate carries partial settings fields; nil means unchanged.
type SettingsUpdate struct {
	DefaultShuffle        *bool
	DefaultShuffleAnswers *bool
	DisplayName           *string
	AvatarPreset          *string
	ProfileImage          *string
	VibrationEnabled      *bool
	AutoAdvanceDelay      *float64
	ManualConfirmation    *bool
}

// UpdateSettings merges the partial fields onto the singleton record.
func (c *Catalog) UpdateSettings(upd SettingsUpdate) (domain.Settings, error) {
	var out domain.Settings
	err := c.store.Update(func(s *domain.State) {
		if upd.DefaultShuffle != nil {
			s.Settings.DefaultShuffle = *upd.DefaultShuffle
		}
		if upd.DefaultShuffleAnswers != nil {
			s.Settings.DefaultShuffleAnswers = *upd.DefaultShuffleAnswers
		}
		if upd.DisplayName != nil {
			s.Settings.DisplayName = *upd.DisplayName
		}
		if upd.AvatarPreset != nil {
			s.Settings.AvatarPreset = *upd.AvatarPreset
		}
		if upd.ProfileImage != nil {
			s.Settings.ProfileImage = *upd.ProfileImage
		}
		if upd.VibrationEnabled != nil {
			s.Settings.VibrationEnabled = *upd.VibrationEnabled
		}
		if upd.AutoAdvanceDelay != nil {
			s.Settings.AutoAdvanceDelay = *upd.AutoAdvanceDelay
		}
		if upd.ManualConfirmation != nil {
			s.Settings.ManualConfirmation = *upd.ManualConfirmation
		}
		out = s.Settings
	})
	return out, err
}
