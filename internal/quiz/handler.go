package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"quizgen/internal/app/apiresp"
	"quizgen/internal/auth"
	"quizgen/internal/batch"

	"github.com/go-chi/chi/v5"
)

type quizService interface {
	CreateQuiz(ctx context.Context, in CreateQuizInput) (*Quiz, error)
	ListTeacherQuizzes(ctx context.Context, teacherID string) ([]Quiz, error)
	GetQuizForTeacher(ctx context.Context, teacherID, quizID string) (*Quiz, error)
	ListQuizzesForBatch(ctx context.Context, studentBatch string) ([]StudentQuizView, error)
	AccessByCode(ctx context.Context, studentID, studentBatch, code string) (*QuizAccess, error)
	GetQuizForStudent(ctx context.Context, studentID, studentBatch, quizID string) (*QuizAccess, error)
	Submit(ctx context.Context, in SubmitInput) (*Attempt, error)
	ListStudentAttempts(ctx context.Context, studentID string) ([]AttemptRecord, error)
}

type Handler struct {
	svc quizService
}

type createQuizRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	QuizType    string     `json:"quiz_type"`
	Batches     []string   `json:"batches"`
	Questions   []Question `json:"questions"`
}

type accessQuizRequest struct {
	AccessCode string `json:"access_code"`
}

type submitQuizRequest struct {
	QuizID  string            `json:"quiz_id"`
	Answers []SubmittedAnswer `json:"answers"`
}

func NewHandler(svc quizService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	t, ok := auth.CurrentTeacher(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	q, err := h.svc.CreateQuiz(r.Context(), CreateQuizInput{
		TeacherID:      t.ID,
		TeacherBatches: t.Batches,
		Title:          req.Title,
		Description:    req.Description,
		QuizType:       req.QuizType,
		Batches:        req.Batches,
		Questions:      req.Questions,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput), errors.Is(err, batch.ErrInvalidBatch), errors.Is(err, ErrNoTargetBatches):
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrForbidden):
			apiresp.WriteError(w, r, http.StatusForbidden, "quiz batches must be within your assigned batches")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, q)
}

func (h *Handler) ListTeacher(w http.ResponseWriter, r *http.Request) {
	t, ok := auth.CurrentTeacher(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.svc.ListTeacherQuizzes(r.Context(), t.ID)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) GetTeacherQuiz(w http.ResponseWriter, r *http.Request) {
	t, ok := auth.CurrentTeacher(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	quizID := strings.TrimSpace(chi.URLParam(r, "id"))
	if quizID == "" {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid quiz id")
		return
	}
	q, err := h.svc.GetQuizForTeacher(r.Context(), t.ID, quizID)
	if err != nil {
		switch {
		case errors.Is(err, ErrQuizNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "quiz not found")
		case errors.Is(err, ErrForbidden):
			apiresp.WriteError(w, r, http.StatusForbidden, "forbidden")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, q)
}

func (h *Handler) ListForStudent(w http.ResponseWriter, r *http.Request) {
	st, ok := auth.CurrentStudent(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.svc.ListQuizzesForBatch(r.Context(), st.Batch)
	if err != nil {
		if errors.Is(err, ErrNoBatch) {
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) Access(w http.ResponseWriter, r *http.Request) {
	st, ok := auth.CurrentStudent(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req accessQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	access, err := h.svc.AccessByCode(r.Context(), st.ID, st.Batch, req.AccessCode)
	if err != nil {
		writeStudentQuizError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, access)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	st, ok := auth.CurrentStudent(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	quizID := strings.TrimSpace(chi.URLParam(r, "id"))
	if quizID == "" {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid quiz id")
		return
	}
	access, err := h.svc.GetQuizForStudent(r.Context(), st.ID, st.Batch, quizID)
	if err != nil {
		writeStudentQuizError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, access)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	st, ok := auth.CurrentStudent(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req submitQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.QuizID) == "" {
		apiresp.WriteError(w, r, http.StatusBadRequest, "quiz_id is required")
		return
	}
	attempt, err := h.svc.Submit(r.Context(), SubmitInput{
		StudentID:    st.ID,
		StudentBatch: st.Batch,
		QuizID:       req.QuizID,
		Answers:      req.Answers,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateAttempt):
			apiresp.WriteError(w, r, http.StatusConflict, err.Error())
		default:
			writeStudentQuizError(w, r, err)
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, attempt)
}

func (h *Handler) ListStudentAttempts(w http.ResponseWriter, r *http.Request) {
	st, ok := auth.CurrentStudent(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.svc.ListStudentAttempts(r.Context(), st.ID)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func writeStudentQuizError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrQuizNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "quiz not found")
	case errors.Is(err, ErrNoBatch), errors.Is(err, ErrInvalidInput):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		apiresp.WriteError(w, r, http.StatusForbidden, "quiz is not assigned to your batch")
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
