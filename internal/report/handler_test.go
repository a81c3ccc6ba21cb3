package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quizgen/internal/auth"
	"quizgen/internal/quiz"

	"github.com/go-chi/chi/v5"
)

func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func asTeacher(r *http.Request, id string) *http.Request {
	return r.WithContext(auth.ContextWithTeacher(r.Context(), &auth.Teacher{
		ID: id, Email: id + "@example.com", Name: "Teacher " + id,
	}))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rr.Body.String())
	}
	return body
}

func newReportHandler(src *mockAttemptSource) *Handler {
	return NewHandler(NewService(src))
}

func TestListAttemptsHandler(t *testing.T) {
	h := newReportHandler(&mockAttemptSource{
		getQuizFn: func(ctx context.Context, teacherID, quizID string) (*quiz.Quiz, error) {
			return &quiz.Quiz{ID: quizID, TeacherID: teacherID, Title: "Geo"}, nil
		},
		listAttemptsFn: func(ctx context.Context, teacherID, quizID string) ([]quiz.AttemptRecord, error) {
			return sampleAttempts(), nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quizzes/quiz-1/attempts", nil)
	req = asTeacher(withChiParam(req, "id", "quiz-1"), "teacher-1")
	rr := httptest.NewRecorder()
	h.ListAttempts(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	items, ok := body["data"].([]interface{})
	if !ok || len(items) != 2 {
		t.Fatalf("data = %v, want 2 attempts", body["data"])
	}
}

func TestListAttemptsHandlerForbidden(t *testing.T) {
	h := newReportHandler(&mockAttemptSource{
		getQuizFn: func(ctx context.Context, teacherID, quizID string) (*quiz.Quiz, error) {
			return nil, quiz.ErrForbidden
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quizzes/quiz-1/attempts", nil)
	req = asTeacher(withChiParam(req, "id", "quiz-1"), "teacher-2")
	rr := httptest.NewRecorder()
	h.ListAttempts(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
	if body := decodeBody(t, rr); body["error"] == nil {
		t.Fatalf("expected error payload, got %v", body)
	}
}

func TestSummaryHandlerNotFound(t *testing.T) {
	h := newReportHandler(&mockAttemptSource{
		getQuizFn: func(ctx context.Context, teacherID, quizID string) (*quiz.Quiz, error) {
			return nil, quiz.ErrQuizNotFound
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quizzes/missing/attempts/summary", nil)
	req = asTeacher(withChiParam(req, "id", "missing"), "teacher-1")
	rr := httptest.NewRecorder()
	h.Summary(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestExportAttemptsHandler(t *testing.T) {
	h := newReportHandler(&mockAttemptSource{
		getQuizFn: func(ctx context.Context, teacherID, quizID string) (*quiz.Quiz, error) {
			return &quiz.Quiz{ID: quizID, TeacherID: teacherID, Title: "Geo"}, nil
		},
		listAttemptsFn: func(ctx context.Context, teacherID, quizID string) ([]quiz.AttemptRecord, error) {
			return sampleAttempts(), nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quizzes/quiz-1/attempts/export", nil)
	req = asTeacher(withChiParam(req, "id", "quiz-1"), "teacher-1")
	rr := httptest.NewRecorder()
	h.ExportAttempts(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "quiz_attempts_quiz-1.xlsx") {
		t.Fatalf("content disposition = %q", cd)
	}
	if rr.Body.Len() == 0 {
		t.Fatal("empty workbook body")
	}
}

func TestHandlerRequiresTeacher(t *testing.T) {
	h := newReportHandler(&mockAttemptSource{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quizzes/quiz-1/attempts", nil)
	req = withChiParam(req, "id", "quiz-1")
	rr := httptest.NewRecorder()
	h.ListAttempts(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}
