package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amine-dev/localq/internal/service"
)

// QuestionHandler serves the question endpoints.
type QuestionHandler struct {
	questions *service.QuestionService
	logger    *slog.Logger
}

func NewQuestionHandler(questions *service.QuestionService, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{questions: questions, logger: logger}
}

// HandleCreate posts a new question.
//
// HTTP: POST /questions
// Auth: required
//
// The author comes off the token, never the body, so a client cannot post
// on someone else's behalf.
func (h *QuestionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		City    string `json:"city"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	question, err := h.questions.Create(r.Context(), identity.UserID, req.Title, req.Content, req.City)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, question)
}

// HandleList returns questions newest first, optionally narrowed by city
// and a free-text search over title and content.
//
// HTTP: GET /questions?city=Lyon&search=mairie
func (h *QuestionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	search := r.URL.Query().Get("search")

	questions, err := h.questions.List(r.Context(), city, search)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, questions)
}

// HandleGet returns one question and counts the read.
//
// HTTP: GET /questions/{id}
//
// Every hit bumps the view counter exactly once; the increment happens in
// the database, not in Go, so concurrent reads never lose a count.
func (h *QuestionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	question, err := h.questions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, question)
}

// HandleDelete removes the requester's own question along with its answers
// and votes.
//
// HTTP: DELETE /questions/{id}
// Auth: required
func (h *QuestionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.questions.Delete(r.Context(), chi.URLParam(r, "id"), identity.UserID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleVote toggles the requester's upvote on a question and returns the
// resulting upvoter set.
//
// HTTP: PATCH /questions/{id}/vote
// Auth: required
func (h *QuestionHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	upvotes, err := h.questions.ToggleVote(r.Context(), chi.URLParam(r, "id"), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"upvotes": upvotes})
}

// HandleMine lists the requester's own questions.
//
// HTTP: GET /questions/mine
// Auth: required
func (h *QuestionHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	questions, err := h.questions.Mine(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, questions)
}

// HandleLiked lists the questions the requester currently upvotes.
//
// HTTP: GET /questions/liked
// Auth: required
func (h *QuestionHandler) HandleLiked(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	questions, err := h.questions.Liked(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, questions)
}
