package report

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"quizgen/internal/app/apiresp"
	"quizgen/internal/auth"
	"quizgen/internal/quiz"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	t, quizID, ok := h.teacherAndQuiz(w, r)
	if !ok {
		return
	}
	items, err := h.svc.ListAttempts(r.Context(), t.ID, quizID)
	if err != nil {
		writeReportError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	t, quizID, ok := h.teacherAndQuiz(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.SummaryByQuiz(r.Context(), t.ID, quizID)
	if err != nil {
		writeReportError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, summary)
}

func (h *Handler) ExportAttempts(w http.ResponseWriter, r *http.Request) {
	t, quizID, ok := h.teacherAndQuiz(w, r)
	if !ok {
		return
	}
	data, err := h.svc.ExportAttemptsExcel(r.Context(), t.ID, quizID)
	if err != nil {
		writeReportError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "quiz_attempts_"+quizID+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) teacherAndQuiz(w http.ResponseWriter, r *http.Request) (*auth.Teacher, string, bool) {
	t, ok := auth.CurrentTeacher(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return nil, "", false
	}
	quizID := strings.TrimSpace(chi.URLParam(r, "id"))
	if quizID == "" {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid quiz id")
		return nil, "", false
	}
	return t, quizID, true
}

func writeReportError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, quiz.ErrQuizNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "quiz not found")
	case errors.Is(err, quiz.ErrForbidden):
		apiresp.WriteError(w, r, http.StatusForbidden, "forbidden")
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
