package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"quizgen/internal/app/apiresp"
	"quizgen/internal/batch"
)

type contextKey string

const (
	teacherContextKey contextKey = "auth_teacher"
	studentContextKey contextKey = "auth_student"
)

type authService interface {
	RegisterTeacher(ctx context.Context, in RegisterTeacherInput) (*Teacher, error)
	RegisterStudent(ctx context.Context, in RegisterStudentInput) (*Student, error)
	Authenticate(ctx context.Context, email, password string) (string, string, error)
	GetTeacher(ctx context.Context, id string) (*Teacher, error)
	GetStudent(ctx context.Context, id string) (*Student, error)
	UpdateTeacherBatches(ctx context.Context, teacherID string, batches []string) (*Teacher, error)
	UpdateStudentBatch(ctx context.Context, studentID, batch string) (*Student, error)
}

type Handler struct {
	svc    authService
	tokens *TokenManager
}

type registerTeacherRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Name     string   `json:"name"`
	Batches  []string `json:"batches"`
}

type registerStudentRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Batch    string `json:"batch"`
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserType    string `json:"user_type"`
}

type updateBatchesRequest struct {
	Batches []string `json:"batches"`
}

type updateBatchRequest struct {
	Batch string `json:"batch"`
}

func NewHandler(svc authService, tokens *TokenManager) *Handler {
	return &Handler{svc: svc, tokens: tokens}
}

func (h *Handler) RegisterTeacher(w http.ResponseWriter, r *http.Request) {
	var req registerTeacherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.svc.RegisterTeacher(r.Context(), RegisterTeacherInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Batches:  req.Batches,
	})
	if err != nil {
		writeRegisterError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, t)
}

func (h *Handler) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req registerStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	st, err := h.svc.RegisterStudent(r.Context(), RegisterStudentInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Batch:    req.Batch,
	})
	if err != nil {
		writeRegisterError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, st)
}

func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	subject, role, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			apiresp.WriteError(w, r, http.StatusUnauthorized, "invalid email or password")
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	token, err := h.tokens.Issue(subject, role)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		UserType:    role,
	})
}

func (h *Handler) MeTeacher(w http.ResponseWriter, r *http.Request) {
	t, ok := CurrentTeacher(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, t)
}

func (h *Handler) MeStudent(w http.ResponseWriter, r *http.Request) {
	st, ok := CurrentStudent(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, st)
}

func (h *Handler) UpdateTeacherBatches(w http.ResponseWriter, r *http.Request) {
	t, ok := CurrentTeacher(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req updateBatchesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := h.svc.UpdateTeacherBatches(r.Context(), t.ID, req.Batches)
	if err != nil {
		switch {
		case errors.Is(err, batch.ErrInvalidBatch), errors.Is(err, ErrInvalidInput):
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrUserNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "teacher not found")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, updated)
}

func (h *Handler) UpdateStudentBatch(w http.ResponseWriter, r *http.Request) {
	st, ok := CurrentStudent(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req updateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := h.svc.UpdateStudentBatch(r.Context(), st.ID, req.Batch)
	if err != nil {
		switch {
		case errors.Is(err, batch.ErrInvalidBatch):
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrUserNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "student not found")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, updated)
}

// RequireTeacher parses the bearer token, loads the teacher record fresh,
// and injects it into the request context.
func (h *Handler) RequireTeacher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := h.bearerClaims(r)
		if !ok || claims.Role != RoleTeacher {
			apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		t, err := h.svc.GetTeacher(r.Context(), claims.Sub)
		if err != nil {
			apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithTeacher(r.Context(), t)))
	})
}

// RequireStudent is the student counterpart of RequireTeacher.
func (h *Handler) RequireStudent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := h.bearerClaims(r)
		if !ok || claims.Role != RoleStudent {
			apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		st, err := h.svc.GetStudent(r.Context(), claims.Sub)
		if err != nil {
			apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithStudent(r.Context(), st)))
	})
}

func (h *Handler) bearerClaims(r *http.Request) (*Claims, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) < 8 || !strings.EqualFold(raw[:7], "Bearer ") {
		return nil, false
	}
	claims, err := h.tokens.Parse(strings.TrimSpace(raw[7:]))
	if err != nil {
		return nil, false
	}
	return claims, true
}

func CurrentTeacher(ctx context.Context) (*Teacher, bool) {
	t, ok := ctx.Value(teacherContextKey).(*Teacher)
	if !ok || t == nil {
		return nil, false
	}
	return t, true
}

func CurrentStudent(ctx context.Context) (*Student, bool) {
	st, ok := ctx.Value(studentContextKey).(*Student)
	if !ok || st == nil {
		return nil, false
	}
	return st, true
}

// ContextWithTeacher injects an authenticated teacher into context.
// Exposed for handler tests in other packages.
func ContextWithTeacher(ctx context.Context, t *Teacher) context.Context {
	return context.WithValue(ctx, teacherContextKey, t)
}

func ContextWithStudent(ctx context.Context, st *Student) context.Context {
	return context.WithValue(ctx, studentContextKey, st)
}

func writeRegisterError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrEmailTaken):
		apiresp.WriteError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, batch.ErrInvalidBatch):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}

