package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/lingua-backend/internal/service/progress"
	"github.com/heartmarshall/lingua-backend/pkg/ctxutil"
)

// sessionStore hands out the per-user progress aggregator.
type sessionStore interface {
	Acquire(ctx context.Context) (*progress.Aggregator, error)
	SignOut(userID uuid.UUID) bool
}

// ProgressHandler serves the learner endpoints.
type ProgressHandler struct {
	sessions sessionStore
	log      *slog.Logger
}

// NewProgressHandler creates a ProgressHandler.
func NewProgressHandler(sessions sessionStore, logger *slog.Logger) *ProgressHandler {
	return &ProgressHandler{sessions: sessions, log: logger.With("handler", "progress")}
}

type addXPRequest struct {
	Amount int `json:"amount"`
}

type completeRequest struct {
	ScorePercent int `json:"score_percent"`
	Attempts     int `json:"attempts"`
}

type answerRequest struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
	IsCorrect  *bool  `json:"is_correct,omitempty"`
}

// acquire resolves the caller's aggregator and writes the error response
// when that fails.
func (h *ProgressHandler) acquire(w http.ResponseWriter, r *http.Request) (*progress.Aggregator, bool) {
	agg, err := h.sessions.Acquire(r.Context())
	if err != nil {
		handleError(w, r, h.log, err)
		return nil, false
	}
	return agg, true
}

// Get handles GET /api/progress.
func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	agg, ok := h.acquire(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toProgressResponse(agg.Snapshot()))
}

// Reload handles POST /api/progress/reload.
func (h *ProgressHandler) Reload(w http.ResponseWriter, r *http.Request) {
	agg, ok := h.acquire(w, r)
	if !ok {
		return
	}
	if err := agg.LoadUserData(r.Context()); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressResponse(agg.Snapshot()))
}

// AddXP handles POST /api/progress/xp. It is an admin correction; students
// earn XP only through answers and lesson completions.
func (h *ProgressHandler) AddXP(w http.ResponseWriter, r *http.Request) {
	var req addXPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	agg, ok := h.acquire(w, r)
	if !ok {
		return
	}
	xp, err := agg.AdjustXP(r.Context(), progress.AdjustXPInput{Amount: req.Amount})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, xpResponse{XP: xp, AwardedXP: req.Amount})
}

// UnlockedLevels handles GET /api/levels/unlocked.
func (h *ProgressHandler) UnlockedLevels(w http.ResponseWriter, r *http.Request) {
	agg, ok := h.acquire(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toLevelsResponse(agg.UnlockedLevels()))
}

// Lesson handles GET /api/lessons/{id}.
func (h *ProgressHandler) Lesson(w http.ResponseWriter, r *http.Request) {
	agg, ok := h.acquire(w, r)
	if !ok {
		return
	}
	lesson, found := agg.LessonByID(r.PathValue("id"))
	if !found {
		writeError(w, http.StatusNotFound, "lesson not found")
		return
	}
	writeJSON(w, http.StatusOK, toLessonResponse(lesson))
}

// Questions handles GET /api/lessons/{id}/questions. Expected answers are
// only shown to admins.
func (h *ProgressHandler) Questions(w http.ResponseWriter, r *http.Request) {
	agg, ok := h.acquire(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if _, found := agg.LessonByID(id); !found {
		writeError(w, http.StatusNotFound, "lesson not found")
		return
	}

	identity, _ := agg.Identity()
	withAnswer := identity.IsAdmin()

	questions := agg.QuestionsForLesson(id)
	out := make([]questionResponse, 0, len(questions))
	for _, q := range questions {
		out = append(out, toQuestionResponse(q, withAnswer))
	}
	writeJSON(w, http.StatusOK, out)
}

// CompleteLesson handles POST /api/lessons/{id}/complete.
func (h *ProgressHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	agg, ok := h.acquire(w, r)
	if !ok {
		return
	}
	res, err := agg.CompleteLesson(r.Context(), progress.CompleteLessonInput{
		LessonID:     r.PathValue("id"),
		ScorePercent: req.ScorePercent,
		Attempts:     req.Attempts,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, completeResponse{
		Passed:           res.Passed,
		AlreadyCompleted: res.AlreadyCompleted,
		AwardedXP:        res.AwardedXP,
		XP:               res.XP,
	})
}

// Answer handles POST /api/answers.
func (h *ProgressHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	agg, ok := h.acquire(w, r)
	if !ok {
		return
	}
	res, err := agg.AnswerQuestion(r.Context(), progress.AnswerInput{
		QuestionID: strings.TrimSpace(req.QuestionID),
		UserAnswer: req.Answer,
		IsCorrect:  req.IsCorrect,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Correct: res.Correct, AwardedXP: res.AwardedXP, XP: res.XP})
}

// SignOut handles POST /api/session/sign-out. It drops the server-side
// session; the access token itself stays valid until it expires.
func (h *ProgressHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.sessions.SignOut(userID)
	w.WriteHeader(http.StatusNoContent)
}
