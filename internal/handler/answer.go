package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amine-dev/localq/internal/service"
)

// AnswerHandler serves the answer endpoints.
type AnswerHandler struct {
	answers *service.AnswerService
	logger  *slog.Logger
}

func NewAnswerHandler(answers *service.AnswerService, logger *slog.Logger) *AnswerHandler {
	return &AnswerHandler{answers: answers, logger: logger}
}

// HandleCreate posts an answer to an existing question.
//
// HTTP: POST /answers
// Auth: required
//
// Answering a question that does not exist is a 404, not a silent orphan.
func (h *AnswerHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req struct {
		Content    string `json:"content"`
		QuestionID string `json:"questionId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	answer, err := h.answers.Create(r.Context(), identity.UserID, req.Content, req.QuestionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, answer)
}

// HandleListByQuestion returns a question's answers, newest first.
//
// HTTP: GET /answers/question/{id}
func (h *AnswerHandler) HandleListByQuestion(w http.ResponseWriter, r *http.Request) {
	answers, err := h.answers.ListByQuestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answers)
}

// HandleDelete removes the requester's own answer.
//
// HTTP: DELETE /answers/{id}
// Auth: required
func (h *AnswerHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.answers.Delete(r.Context(), chi.URLParam(r, "id"), identity.UserID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleVote toggles the requester's upvote on an answer and returns the
// resulting upvoter set.
//
// HTTP: PATCH /answers/{id}/vote
// Auth: required
func (h *AnswerHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	upvotes, err := h.answers.ToggleVote(r.Context(), chi.URLParam(r, "id"), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"upvotes": upvotes})
}
