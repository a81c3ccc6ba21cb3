package generator

import (
	"encoding/json"
	"net/http"
	"strings"

	"quizgen/internal/app/apiresp"
	"quizgen/internal/quiz"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type generateRequest struct {
	Text       string `json:"text"`
	QuizType   string `json:"quiz_type"`
	Difficulty string `json:"difficulty"`
}

type generateResponse struct {
	Questions []quiz.Question `json:"questions"`
	Source    string          `json:"source,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Generate answers with 200 even when nothing could be generated; callers
// distinguish the cases by the error field in the payload.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		apiresp.WriteOK(w, r, http.StatusOK, generateResponse{
			Questions: []quiz.Question{},
			Error:     "text cannot be empty",
		})
		return
	}

	result, err := h.svc.Generate(r.Context(), req.Text, req.QuizType, req.Difficulty)
	if err != nil {
		apiresp.WriteOK(w, r, http.StatusOK, generateResponse{
			Questions: []quiz.Question{},
			Error:     err.Error(),
		})
		return
	}

	apiresp.WriteOK(w, r, http.StatusOK, generateResponse{
		Questions: result.Questions,
		Source:    result.Source,
	})
}
