package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/greeeen013/QuizApp/internal/app"
	"github.com/greeeen013/QuizApp/internal/domain"
)

// APIHandler exposes the core operations as a JSON API for the rendering
// layer. Every failure maps to "this mutation did not happen"; nothing here is
// fatal to the process.
type APIHandler struct {
	catalog *app.Catalog
	ledger  *app.Ledger
	streak  *app.Streak
	engine  *app.Engine
}

func NewAPIHandler(catalog *app.Catalog, ledger *app.Ledger, streak *app.Streak, engine *app.Engine) *APIHandler {
	return &APIHandler{catalog: catalog, ledger: ledger, streak: streak, engine: engine}
}

// Register wires the routes onto the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /quizzes", h.listQuizzes)
	mux.HandleFunc("POST /quizzes", h.addQuiz)
	mux.HandleFunc("POST /quizzes/import", h.importQuiz)
	mux.HandleFunc("GET /quizzes/{id}", h.getQuiz)
	mux.HandleFunc("PATCH /quizzes/{id}", h.updateQuiz)
	mux.HandleFunc("DELETE /quizzes/{id}", h.deleteQuiz)
	mux.HandleFunc("POST /quizzes/{id}/questions", h.addQuestion)
	mux.HandleFunc("PATCH /quizzes/{id}/questions/{qid}", h.updateQuestion)
	mux.HandleFunc("DELETE /quizzes/{id}/questions/{qid}", h.deleteQuestion)
	mux.HandleFunc("POST /quizzes/{id}/reorder", h.reorderQuestions)
	mux.HandleFunc("GET /quizzes/{id}/runs", h.quizRuns)
	mux.HandleFunc("GET /runs", h.listRuns)
	mux.HandleFunc("GET /runs/{id}", h.getRun)
	mux.HandleFunc("GET /streak", h.getStreak)
	mux.HandleFunc("POST /streak/freezers", h.purchaseFreezer)
	mux.HandleFunc("GET /diamonds", h.getDiamonds)
	mux.HandleFunc("GET /settings", h.getSettings)
	mux.HandleFunc("PATCH /settings", h.updateSettings)
	mux.HandleFunc("GET /paused-runs", h.listPausedRuns)
	mux.HandleFunc("DELETE /paused-runs/{id}", h.discardPausedRun)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto status codes: referential faults to
// 404, validation faults to 422, session conflicts to 409.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, domain.ErrPausedRunNotFound),
		errors.Is(err, domain.ErrAnswerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyTitle),
		errors.Is(err, domain.ErrTooFewAnswers),
		errors.Is(err, domain.ErrNoCorrectAnswer),
		errors.Is(err, domain.ErrInvalidReorder),
		errors.Is(err, domain.ErrNoSelection),
		errors.Is(err, domain.ErrNoPlayableQuestions):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSessionActive),
		errors.Is(err, domain.ErrRunPaused),
		errors.Is(err, domain.ErrSessionFinished),
		errors.Is(err, domain.ErrNotEnoughDiamonds),
		errors.Is(err, domain.ErrFreezersFull):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrStoreNotReady):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (h *APIHandler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.catalog.Quizzes()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

type addQuizRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Questions   []domain.Question `json:"questions"`
}

func (h *APIHandler) addQuiz(w http.ResponseWriter, r *http.Request) {
	var req addQuizRequest
	if !decode(w, r, &req) {
		return
	}
	quiz, err := h.catalog.AddQuiz(req.Title, req.Description, req.Questions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *APIHandler) importQuiz(w http.ResponseWriter, r *http.Request) {
	var payload app.ImportPayload
	if !decode(w, r, &payload) {
		return
	}
	quiz, err := h.catalog.ImportQuiz(payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *APIHandler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.catalog.Quiz(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

type updateQuizRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (h *APIHandler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	var req updateQuizRequest
	if !decode(w, r, &req) {
		return
	}
	quiz, err := h.catalog.UpdateQuiz(r.PathValue("id"), app.QuizUpdate{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *APIHandler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteQuiz(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addQuestionRequest struct {
	Text    string          `json:"text"`
	Answers []domain.Answer `json:"answers"`
	Images  []string        `json:"images"`
}

func (h *APIHandler) addQuestion(w http.ResponseWriter, r *http.Request) {
	var req addQuestionRequest
	if !decode(w, r, &req) {
		return
	}
	question, err := h.catalog.AddQuestion(r.PathValue("id"), req.Text, req.Answers, req.Images)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

type updateQuestionRequest struct {
	Text    *string          `json:"text"`
	Answers *[]domain.Answer `json:"answers"`
	Images  *[]string        `json:"images"`
}

func (h *APIHandler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var req updateQuestionRequest
	if !decode(w, r, &req) {
		return
	}
	question, err := h.catalog.UpdateQuestion(r.PathValue("id"), r.PathValue("qid"), app.QuestionUpdate{
		Text:    req.Text,
		Answers: req.Answers,
		Images:  req.Images,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *APIHandler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteQuestion(r.PathValue("id"), r.PathValue("qid")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	OrderedIDs []string `json:"orderedIds"`
}

func (h *APIHandler) reorderQuestions(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.catalog.ReorderQuestions(r.PathValue("id"), req.OrderedIDs); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) quizRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.ledger.RunsForQuiz(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *APIHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.ledger.Runs()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *APIHandler) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.ledger.Run(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *APIHandler) getStreak(w http.ResponseWriter, r *http.Request) {
	data, err := h.streak.Data()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *APIHandler) purchaseFreezer(w http.ResponseWriter, r *http.Request) {
	if err := h.streak.PurchaseFreezer(); err != nil {
		writeError(w, err)
		return
	}
	data, err := h.streak.Data()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

type diamondsResponse struct {
	Diamonds float64 `json:"diamonds"`
}

func (h *APIHandler) getDiamonds(w http.ResponseWriter, r *http.Request) {
	balance, err := h.ledger.Diamonds()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, diamondsResponse{Diamonds: balance})
}

func (h *APIHandler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.catalog.Settings()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type updateSettingsRequest struct {
	DefaultShuffle        *bool    `json:"defaultShuffle"`
	DefaultShuffleAnswers *bool    `json:"defaultShuffleAnswers"`
	DisplayName           *string  `json:"displayName"`
	AvatarPreset          *string  `json:"avatarPreset"`
	ProfileImage          *string  `json:"profileImage"`
	VibrationEnabled      *bool    `json:"vibrationEnabled"`
	AutoAdvanceDelay      *float64 `json:"autoAdvanceDelay"`
	ManualConfirmation    *bool    `json:"manualConfirmation"`
}

func (h *APIHandler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if !decode(w, r, &req) {
		return
	}
	settings, err := h.catalog.UpdateSettings(app.SettingsUpdate{
		DefaultShuffle:        req.DefaultShuffle,
		DefaultShuffleAnswers: req.DefaultShuffleAnswers,
		DisplayName:           req.DisplayName,
		AvatarPreset:          req.AvatarPreset,
		ProfileImage:          req.ProfileImage,
		VibrationEnabled:      req.VibrationEnabled,
		AutoAdvanceDelay:      req.AutoAdvanceDelay,
		ManualConfirmation:    req.ManualConfirmation,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *APIHandler) listPausedRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.engine.PausedRuns()
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []domain.PausedRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *APIHandler) discardPausedRun(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DiscardPaused(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
