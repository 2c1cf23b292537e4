package domain

import "errors"

var (
	// ErrStoreNotReady is returned when an operation runs before the store loaded.
	ErrStoreNotReady = errors.New("store not initialized")
	// ErrQuizNotFound indicates the quiz id does not exist (or was deleted).
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates the question id does not exist in the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrRunNotFound indicates the run id does not exist in the ledger.
	ErrRunNotFound = errors.New("run not found")
	// ErrPausedRunNotFound indicates the paused-run id does not exist.
	ErrPausedRunNotFound = errors.New("paused run not found")

	// ErrEmptyTitle rejects a quiz whose title is empty after trimming.
	ErrEmptyTitle = errors.New("quiz title must not be empty")
	// ErrTooFewAnswers rejects a question with fewer than two answers.
	ErrTooFewAnswers = errors.New("question needs at least two answers")
	// ErrNoCorrectAnswer rejects a question with no correct answer marked.
	ErrNoCorrectAnswer = errors.New("question needs at least one correct answer")
	// ErrInvalidReorder rejects a reorder containing duplicate or unknown ids.
	ErrInvalidReorder = errors.New("reorder contains duplicate or unknown question ids")

	// ErrNotEnoughDiamonds rejects a freezer purchase the balance cannot cover.
	ErrNotEnoughDiamonds = errors.New("not enough diamonds")
	// ErrFreezersFull rejects a freezer purchase at the freezer cap.
	ErrFreezersFull = errors.New("freezer limit reached")

	// ErrSessionActive is returned when a second session is started while one is running.
	ErrSessionActive = errors.New("another session is already active")
	// ErrRunPaused is returned when starting a fresh session for a quiz that has a
	// paused run; the caller must resume or discard it first.
	ErrRunPaused = errors.New("quiz has a paused run; resume or discard it first")
	// ErrAnswerNotFound indicates a toggled answer id is not on the current question.
	ErrAnswerNotFound = errors.New("answer not found")
	// ErrNoSelection blocks submission while zero answers are selected.
	ErrNoSelection = errors.New("no answers selected")
	// ErrAlreadySubmitted freezes the current answer until the session advances.
	ErrAlreadySubmitted = errors.New("question already submitted")
	// ErrSessionFinished is returned for interactions after the session finished.
	ErrSessionFinished = errors.New("session already finished")
	// ErrNoPlayableQuestions is returned when a quiz has no answerable questions.
	ErrNoPlayableQuestions = errors.New("quiz has no playable questions")
)
