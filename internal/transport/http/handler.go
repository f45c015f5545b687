// Package http exposes the quiz, attempt and result use cases over REST and a
// per-attempt websocket.
package http

import (
	"encoding/json"
	"net/http"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
)

const userHeader = "X-User-ID"

// Handler serves the REST API.
type Handler struct {
	quizzes  *app.QuizService
	attempts *app.AttemptService
	results  *app.ResultService
}

func NewHandler(quizzes *app.QuizService, attempts *app.AttemptService, results *app.ResultService) *Handler {
	return &Handler{quizzes: quizzes, attempts: attempts, results: results}
}

// Register mounts every REST route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /quizzes/generate", h.withUser(h.generateQuiz))
	mux.HandleFunc("POST /quizzes/adaptive", h.withUser(h.generateAdaptive))
	mux.HandleFunc("GET /quizzes/{slug}", h.withUser(h.getQuiz))
	mux.HandleFunc("PATCH /quizzes/{slug}/visibility", h.withUser(h.setQuizVisibility))

	mux.HandleFunc("POST /attempts/start", h.withUser(h.startAttempt))
	mux.HandleFunc("GET /attempts/{id}", h.withUser(h.getAttempt))
	mux.HandleFunc("POST /attempts/{id}/answer", h.withUser(h.submitAnswer))
	mux.HandleFunc("POST /attempts/{id}/submit", h.withUser(h.submitAttempt))
	mux.HandleFunc("DELETE /attempts/{id}", h.withUser(h.abandonAttempt))

	mux.HandleFunc("GET /results/{slug}", h.withUser(h.getResult))
	mux.HandleFunc("PATCH /results/{slug}/visibility", h.withUser(h.setResultVisibility))
}

type userHandlerFunc func(w http.ResponseWriter, r *http.Request, userID string)

// withUser rejects requests without an identity header.
func (h *Handler) withUser(next userHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userHeader)
		if userID == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{Kind: "Unauthenticated", Message: "missing " + userHeader + " header"}})
			return
		}
		next(w, r, userID)
	}
}

type visibilityRequest struct {
	IsPublic *bool `json:"isPublic"`
}

type startRequest struct {
	QuizSlug string `json:"quizSlug"`
}

type answerRequest struct {
	QuestionIndex *int  `json:"questionIndex"`
	Selected      []int `json:"selected"`
}

func (h *Handler) generateQuiz(w http.ResponseWriter, r *http.Request, userID string) {
	var req app.GenerateParams
	if !decode(w, r, &req) {
		return
	}
	quiz, err := h.quizzes.Generate(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) generateAdaptive(w http.ResponseWriter, r *http.Request, userID string) {
	var req app.AdaptiveParams
	if !decode(w, r, &req) {
		return
	}
	quiz, err := h.quizzes.GenerateAdaptive(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request, userID string) {
	quiz, err := h.quizzes.Get(r.Context(), userID, r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizViewFor(quiz, userID))
}

func (h *Handler) setQuizVisibility(w http.ResponseWriter, r *http.Request, userID string) {
	var req visibilityRequest
	if !decode(w, r, &req) {
		return
	}
	if req.IsPublic == nil {
		writeError(w, domain.Errorf(domain.KindInvalidArgument, "isPublic is required"))
		return
	}
	quiz, err := h.quizzes.SetVisibility(r.Context(), userID, r.PathValue("slug"), *req.IsPublic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) startAttempt(w http.ResponseWriter, r *http.Request, userID string) {
	var req startRequest
	if !decode(w, r, &req) {
		return
	}
	if req.QuizSlug == "" {
		writeError(w, domain.Errorf(domain.KindInvalidArgument, "quizSlug is required"))
		return
	}
	attempt, err := h.attempts.Start(r.Context(), userID, req.QuizSlug)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) getAttempt(w http.ResponseWriter, r *http.Request, userID string) {
	attempt, err := h.attempts.Get(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request, userID string) {
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	if req.QuestionIndex == nil {
		writeError(w, domain.Errorf(domain.KindInvalidArgument, "questionIndex is required"))
		return
	}
	attempt, err := h.attempts.SubmitAnswer(r.Context(), r.PathValue("id"), userID, *req.QuestionIndex, req.Selected)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) submitAttempt(w http.ResponseWriter, r *http.Request, userID string) {
	result, err := h.attempts.Submit(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) abandonAttempt(w http.ResponseWriter, r *http.Request, userID string) {
	attempt, err := h.attempts.Abandon(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) getResult(w http.ResponseWriter, r *http.Request, userID string) {
	result, err := h.results.Get(r.Context(), userID, r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) setResultVisibility(w http.ResponseWriter, r *http.Request, userID string) {
	var req visibilityRequest
	if !decode(w, r, &req) {
		return
	}
	if req.IsPublic == nil {
		writeError(w, domain.Errorf(domain.KindInvalidArgument, "isPublic is required"))
		return
	}
	result, err := h.results.SetVisibility(r.Context(), userID, r.PathValue("slug"), *req.IsPublic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// decode reads a JSON body into v, answering 400 on malformed input.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, domain.Wrap(domain.KindInvalidArgument, "invalid request body", err))
		return false
	}
	return true
}

// publicQuestion hides the answer key.
type publicQuestion struct {
	Text    string              `json:"question"`
	Type    domain.QuestionType `json:"questionType"`
	Options []string            `json:"options"`
}

type publicQuiz struct {
	domain.Quiz
	Questions []publicQuestion `json:"questions"`
}

// quizViewFor returns the full quiz to its owner and an answer-free copy to everyone else.
func quizViewFor(quiz domain.Quiz, userID string) any {
	if quiz.OwnerID == userID {
		return quiz
	}
	questions := make([]publicQuestion, len(quiz.Questions))
	for i, q := range quiz.Questions {
		questions[i] = publicQuestion{Text: q.Text, Type: q.Type, Options: q.Options}
	}
	return publicQuiz{Quiz: quiz, Questions: questions}
}
