package report

import (
	"bytes"
	"context"
	"fmt"

	"quizgen/internal/quiz"

	"github.com/xuri/excelize/v2"
)

// attemptSource is the slice of the quiz service the reports need.
type attemptSource interface {
	GetQuizForTeacher(ctx context.Context, teacherID, quizID string) (*quiz.Quiz, error)
	ListQuizAttempts(ctx context.Context, teacherID, quizID string) ([]quiz.AttemptRecord, error)
}

type Service struct {
	quizzes attemptSource
}

// QuizSummary aggregates every attempt on one quiz.
type QuizSummary struct {
	QuizID       string  `json:"quiz_id"`
	Title        string  `json:"title"`
	Participants int     `json:"participants"`
	AverageScore float64 `json:"average_score"`
	HighestScore float64 `json:"highest_score"`
	LowestScore  float64 `json:"lowest_score"`
}

func NewService(quizzes attemptSource) *Service {
	return &Service{quizzes: quizzes}
}

// ListAttempts returns the attempts on a quiz for its owning teacher.
func (s *Service) ListAttempts(ctx context.Context, teacherID, quizID string) ([]quiz.AttemptRecord, error) {
	return s.quizzes.ListQuizAttempts(ctx, teacherID, quizID)
}

func (s *Service) SummaryByQuiz(ctx context.Context, teacherID, quizID string) (*QuizSummary, error) {
	q, err := s.quizzes.GetQuizForTeacher(ctx, teacherID, quizID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.quizzes.ListQuizAttempts(ctx, teacherID, quizID)
	if err != nil {
		return nil, err
	}

	summary := &QuizSummary{QuizID: q.ID, Title: q.Title, Participants: len(attempts)}
	if len(attempts) == 0 {
		return summary, nil
	}
	total := 0.0
	summary.HighestScore = attempts[0].Score
	summary.LowestScore = attempts[0].Score
	for _, a := range attempts {
		total += a.Score
		if a.Score > summary.HighestScore {
			summary.HighestScore = a.Score
		}
		if a.Score < summary.LowestScore {
			summary.LowestScore = a.Score
		}
	}
	summary.AverageScore = total / float64(len(attempts))
	return summary, nil
}

// ExportAttemptsExcel renders the attempt list as an xlsx workbook.
func (s *Service) ExportAttemptsExcel(ctx context.Context, teacherID, quizID string) ([]byte, error) {
	q, err := s.quizzes.GetQuizForTeacher(ctx, teacherID, quizID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.quizzes.ListQuizAttempts(ctx, teacherID, quizID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"student_name", "student_email", "score", "correct", "answered", "submitted_at"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, a := range attempts {
		row := i + 2
		correct := 0
		for _, d := range a.Answers {
			if d.IsCorrect {
				correct++
			}
		}
		values := []any{
			a.StudentName,
			a.StudentEmail,
			a.Score,
			correct,
			len(a.Answers),
			a.SubmittedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "F", 22)
	_ = f.SetCellValue(sheet, "H1", "quiz")
	_ = f.SetCellValue(sheet, "H2", q.Title)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}
