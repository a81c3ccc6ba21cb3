package report

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"quizgen/internal/quiz"

	"github.com/xuri/excelize/v2"
)

type mockAttemptSource struct {
	getQuizFn      func(ctx context.Context, teacherID, quizID string) (*quiz.Quiz, error)
	listAttemptsFn func(ctx context.Context, teacherID, quizID string) ([]quiz.AttemptRecord, error)
}

func (m *mockAttemptSource) GetQuizForTeacher(ctx context.Context, teacherID, quizID string) (*quiz.Quiz, error) {
	if m.getQuizFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.getQuizFn(ctx, teacherID, quizID)
}

func (m *mockAttemptSource) ListQuizAttempts(ctx context.Context, teacherID, quizID string) ([]quiz.AttemptRecord, error) {
	if m.listAttemptsFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listAttemptsFn(ctx, teacherID, quizID)
}

func sampleAttempts() []quiz.AttemptRecord {
	now := time.Now().UTC()
	return []quiz.AttemptRecord{
		{
			Attempt: quiz.Attempt{
				ID: "attempt-1", StudentID: "student-1", QuizID: "quiz-1",
				Answers:     []quiz.AnswerDetail{{QuestionID: "q1", IsCorrect: true}},
				Score:       100,
				SubmittedAt: now,
			},
			StudentName:  "Ben",
			StudentEmail: "ben@example.com",
		},
		{
			Attempt: quiz.Attempt{
				ID: "attempt-2", StudentID: "student-2", QuizID: "quiz-1",
				Answers:     []quiz.AnswerDetail{{QuestionID: "q1", IsCorrect: false}},
				Score:       0,
				SubmittedAt: now,
			},
			StudentName: "Unknown Student",
		},
	}
}

func TestSummaryByQuiz(t *testing.T) {
	svc := NewService(&mockAttemptSource{
		getQuizFn: func(ctx context.Context, teacherID, quizID string) (*quiz.Quiz, error) {
			return &quiz.Quiz{ID: quizID, TeacherID: teacherID, Title: "Geo"}, nil
		},
		listAttemptsFn: func(ctx context.Context, teacherID, quizID string) ([]quiz.AttemptRecord, error) {
			return sampleAttempts(), nil
		},
	})

	summary, err := svc.SummaryByQuiz(context.Background(), "teacher-1", "quiz-1")
	if err != nil {
		t.Fatalf("SummaryByQuiz: %v", err)
	}
	if summary.Participants != 2 {
		t.Fatalf("participants = %d, want 2", summary.Participants)
	}
	if summary.AverageScore != 50.0 {
		t.Fatalf("average = %v, want 50", summary.AverageScore)
	}
	if summary.HighestScore != 100 || summary.LowestScore != 0 {
		t.Fatalf("range = %v..%v, want 0..100", summary.LowestScore, summary.HighestScore)
	}
}

func TestSummaryByQuizNoAttempts(t *testing.T) {
	svc := NewService(&mockAttemptSource{
		getQuizFn: func(ctx context.Context, teacherID, quizID string) (*quiz.Quiz, error) {
			return &quiz.Quiz{ID: quizID, Title: "Geo"}, nil
		},
		listAttemptsFn: func(ctx context.Context, teacherID, quizID string) ([]quiz.AttemptRecord, error) {
			return []quiz.AttemptRecord{}, nil
		},
	})

	summary, err := svc.SummaryByQuiz(context.Background(), "teacher-1", "quiz-1")
	if err != nil {
		t.Fatalf("SummaryByQuiz: %v", err)
	}
	if summary.Participants != 0 || summary.AverageScore != 0 {
		t.Fatalf("empty quiz summary = %+v", summary)
	}
}

func TestSummaryPropagatesOwnership(t *testing.T) {
	svc := NewService(&mockAttemptSource{
		getQuizFn: func(ctx context.Context, teacherID, quizID string) (*quiz.Quiz, error) {
			return nil, quiz.ErrForbidden
		},
	})

	if _, err := svc.SummaryByQuiz(context.Background(), "teacher-2", "quiz-1"); !errors.Is(err, quiz.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestExportAttemptsExcel(t *testing.T) {
	svc := NewService(&mockAttemptSource{
		getQuizFn: func(ctx context.Context, teacherID, quizID string) (*quiz.Quiz, error) {
			return &quiz.Quiz{ID: quizID, TeacherID: teacherID, Title: "Geo"}, nil
		},
		listAttemptsFn: func(ctx context.Context, teacherID, quizID string) ([]quiz.AttemptRecord, error) {
			return sampleAttempts(), nil
		},
	})

	data, err := svc.ExportAttemptsExcel(context.Background(), "teacher-1", "quiz-1")
	if err != nil {
		t.Fatalf("ExportAttemptsExcel: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) < 3 {
		t.Fatalf("rows = %d, want header plus 2 attempts", len(rows))
	}
	if rows[0][0] != "student_name" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][0] != "Ben" {
		t.Fatalf("first data row = %v", rows[1])
	}
	if rows[2][0] != "Unknown Student" {
		t.Fatalf("missing student should export as Unknown Student, got %v", rows[2])
	}
}
