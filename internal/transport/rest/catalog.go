package rest

import (
	"log/slog"
	"net/http"

	"github.com/heartmarshall/lingua-backend/internal/service/progress"
)

// CatalogHandler serves the admin catalog endpoints. Role checks happen in
// the aggregator so that every caller of a catalog edit is gated the same
// way.
type CatalogHandler struct {
	sessions sessionStore
	log      *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(sessions sessionStore, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{sessions: sessions, log: logger.With("handler", "catalog")}
}

type addLevelRequest struct {
	Area  string `json:"area"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type addLessonRequest struct {
	Title       string `json:"title"`
	Area        string `json:"area"`
	Level       int    `json:"level"`
	Type        string `json:"type"`
	XPReward    *int   `json:"xp_reward"`
	Order       int    `json:"order"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

type updateLessonRequest struct {
	Title       *string `json:"title"`
	Area        *string `json:"area"`
	Level       *int    `json:"level"`
	Type        *string `json:"type"`
	XPReward    *int    `json:"xp_reward"`
	Order       *int    `json:"order"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type addQuestionRequest struct {
	LessonID      string   `json:"lesson_id"`
	Type          string   `json:"type"`
	Prompt        string   `json:"prompt"`
	AudioText     string   `json:"audio_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Order         int      `json:"order"`
}

type updateQuestionRequest struct {
	Type          *string   `json:"type"`
	Prompt        *string   `json:"prompt"`
	AudioText     *string   `json:"audio_text"`
	Options       *[]string `json:"options"`
	CorrectAnswer *string   `json:"correct_answer"`
	Order         *int      `json:"order"`
}

// decodeAndAcquire decodes the body and resolves the caller's aggregator.
// It writes the error response itself and reports whether to continue.
func (h *CatalogHandler) decodeAndAcquire(w http.ResponseWriter, r *http.Request, dst any) (*progress.Aggregator, bool) {
	if dst != nil {
		if err := decodeJSON(w, r, dst); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return nil, false
		}
	}
	agg, err := h.sessions.Acquire(r.Context())
	if err != nil {
		handleError(w, r, h.log, err)
		return nil, false
	}
	return agg, true
}

// AddLevel handles POST /api/admin/levels.
func (h *CatalogHandler) AddLevel(w http.ResponseWriter, r *http.Request) {
	var req addLevelRequest
	agg, ok := h.decodeAndAcquire(w, r, &req)
	if !ok {
		return
	}
	level, err := agg.AddLevel(r.Context(), progress.AddLevelInput{
		AreaID: req.Area,
		Name:   req.Name,
		Order:  req.Order,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLevelResponse(level))
}

// AddLesson handles POST /api/admin/lessons.
func (h *CatalogHandler) AddLesson(w http.ResponseWriter, r *http.Request) {
	var req addLessonRequest
	agg, ok := h.decodeAndAcquire(w, r, &req)
	if !ok {
		return
	}
	lesson, err := agg.AddLesson(r.Context(), progress.AddLessonInput{
		Title:       req.Title,
		AreaID:      req.Area,
		Level:       req.Level,
		Type:        req.Type,
		XPReward:    req.XPReward,
		Order:       req.Order,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLessonResponse(lesson))
}

// UpdateLesson handles PATCH /api/admin/lessons/{id}.
func (h *CatalogHandler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	var req updateLessonRequest
	agg, ok := h.decodeAndAcquire(w, r, &req)
	if !ok {
		return
	}
	lesson, err := agg.UpdateLesson(r.Context(), progress.UpdateLessonInput{
		ID:          r.PathValue("id"),
		Title:       req.Title,
		AreaID:      req.Area,
		Level:       req.Level,
		Type:        req.Type,
		XPReward:    req.XPReward,
		Order:       req.Order,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toLessonResponse(lesson))
}

// DeleteLesson handles DELETE /api/admin/lessons/{id}.
func (h *CatalogHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	agg, ok := h.decodeAndAcquire(w, r, nil)
	if !ok {
		return
	}
	if err := agg.DeleteLesson(r.Context(), r.PathValue("id")); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddQuestion handles POST /api/admin/questions.
func (h *CatalogHandler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	var req addQuestionRequest
	agg, ok := h.decodeAndAcquire(w, r, &req)
	if !ok {
		return
	}
	q, err := agg.AddQuestion(r.Context(), progress.AddQuestionInput{
		LessonID:      req.LessonID,
		Type:          req.Type,
		Prompt:        req.Prompt,
		AudioText:     req.AudioText,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Order:         req.Order,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toQuestionResponse(q, true))
}

// UpdateQuestion handles PATCH /api/admin/questions/{id}.
func (h *CatalogHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var req updateQuestionRequest
	agg, ok := h.decodeAndAcquire(w, r, &req)
	if !ok {
		return
	}
	q, err := agg.UpdateQuestion(r.Context(), progress.UpdateQuestionInput{
		ID:            r.PathValue("id"),
		Type:          req.Type,
		Prompt:        req.Prompt,
		AudioText:     req.AudioText,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Order:         req.Order,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuestionResponse(q, true))
}

// DeleteQuestion handles DELETE /api/admin/questions/{id}.
func (h *CatalogHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	agg, ok := h.decodeAndAcquire(w, r, nil)
	if !ok {
		return
	}
	if err := agg.DeleteQuestion(r.Context(), r.PathValue("id")); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
