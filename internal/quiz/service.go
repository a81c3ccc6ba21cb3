package quiz

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"quizgen/internal/batch"

	"github.com/google/uuid"
)

const accessCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const accessCodeLength = 8
const accessCodeRetries = 5

type Service struct {
	store   Store
	batches *batch.Validator
	scorer  Scorer
}

func NewService(store Store, batches *batch.Validator, scorer Scorer) *Service {
	return &Service{store: store, batches: batches, scorer: scorer}
}

type CreateQuizInput struct {
	TeacherID      string
	TeacherBatches []string
	Title          string
	Description    string
	QuizType       string
	Batches        []string
	Questions      []Question
}

type SubmitInput struct {
	StudentID    string
	StudentBatch string
	QuizID       string
	Answers      []SubmittedAnswer
}

// QuizAccess is the student-facing result of opening a quiz. When the
// student already has an attempt, the quiz content is withheld and the
// recorded score is returned instead.
type QuizAccess struct {
	AlreadyAttempted bool             `json:"already_attempted"`
	Score            *float64         `json:"score,omitempty"`
	SubmittedAt      *time.Time       `json:"submitted_at,omitempty"`
	Quiz             *StudentQuizView `json:"quiz,omitempty"`
}

// CreateQuiz validates the payload, stamps question ids, assigns a fresh
// access code, and persists the quiz. Quizzes are immutable afterwards.
func (s *Service) CreateQuiz(ctx context.Context, in CreateQuizInput) (*Quiz, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(in.Questions) == 0 {
		return nil, fmt.Errorf("%w: at least one question is required", ErrInvalidInput)
	}

	target, err := s.batches.NormalizeAll(in.Batches)
	if err != nil {
		return nil, err
	}
	if err := ValidateTargetBatches(in.TeacherBatches, target); err != nil {
		return nil, err
	}

	questions := make([]Question, len(in.Questions))
	copy(questions, in.Questions)
	for i := range questions {
		if strings.TrimSpace(questions[i].Type) == "" {
			questions[i].Type = TypeMCQ
		}
		if err := validateQuestion(&questions[i], i); err != nil {
			return nil, err
		}
		if strings.TrimSpace(questions[i].ID) == "" {
			questions[i].ID = uuid.NewString()
		}
	}

	code, err := s.freshAccessCode(ctx)
	if err != nil {
		return nil, err
	}

	quizType := strings.TrimSpace(in.QuizType)
	if quizType == "" {
		quizType = TypeMCQ
	}

	q := &Quiz{
		ID:          uuid.NewString(),
		TeacherID:   in.TeacherID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		QuizType:    quizType,
		AccessCode:  code,
		Batches:     target,
		Questions:   questions,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateQuiz(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Service) ListTeacherQuizzes(ctx context.Context, teacherID string) ([]Quiz, error) {
	return s.store.ListQuizzesByTeacher(ctx, teacherID)
}

// ListQuizzesForBatch returns the student-safe views of every quiz
// assigned to the batch.
func (s *Service) ListQuizzesForBatch(ctx context.Context, studentBatch string) ([]StudentQuizView, error) {
	if studentBatch == "" {
		return nil, ErrNoBatch
	}
	quizzes, err := s.store.ListQuizzesByBatch(ctx, studentBatch)
	if err != nil {
		return nil, err
	}
	out := make([]StudentQuizView, 0, len(quizzes))
	for i := range quizzes {
		out = append(out, *quizzes[i].StudentView())
	}
	return out, nil
}

// AccessByCode opens a quiz for a student via its access code. Opening a
// quiz the student already attempted is not an error: the prior score
// comes back instead of the questions, however many times it is called.
func (s *Service) AccessByCode(ctx context.Context, studentID, studentBatch, code string) (*QuizAccess, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("%w: access code is required", ErrInvalidInput)
	}
	q, err := s.store.GetQuizByAccessCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.openQuiz(ctx, studentID, studentBatch, q)
}

// GetQuizForStudent opens a quiz by id with the same gating and
// prior-attempt behavior as AccessByCode.
func (s *Service) GetQuizForStudent(ctx context.Context, studentID, studentBatch, quizID string) (*QuizAccess, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return s.openQuiz(ctx, studentID, studentBatch, q)
}

func (s *Service) openQuiz(ctx context.Context, studentID, studentBatch string, q *Quiz) (*QuizAccess, error) {
	if err := CanAccess(studentBatch, q); err != nil {
		return nil, err
	}
	prior, err := s.store.GetAttempt(ctx, studentID, q.ID)
	if err == nil {
		return &QuizAccess{
			AlreadyAttempted: true,
			Score:            &prior.Score,
			SubmittedAt:      &prior.SubmittedAt,
		}, nil
	}
	if !errors.Is(err, ErrAttemptNotFound) {
		return nil, err
	}
	return &QuizAccess{Quiz: q.StudentView()}, nil
}

// Submit grades the answers and records the attempt. A second submit for
// the same quiz fails with ErrDuplicateAttempt; the storage constraint
// makes that hold even when two submits race.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Attempt, error) {
	q, err := s.store.GetQuiz(ctx, in.QuizID)
	if err != nil {
		return nil, err
	}
	if err := CanAccess(in.StudentBatch, q); err != nil {
		return nil, err
	}

	score, details := s.scorer.Score(q.Questions, in.Answers)
	attempt := &Attempt{
		ID:          uuid.NewString(),
		StudentID:   in.StudentID,
		QuizID:      q.ID,
		Answers:     details,
		Score:       score,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *Service) ListStudentAttempts(ctx context.Context, studentID string) ([]AttemptRecord, error) {
	return s.store.ListAttemptsByStudent(ctx, studentID)
}

// ListQuizAttempts returns every attempt on a quiz, owner only.
func (s *Service) ListQuizAttempts(ctx context.Context, teacherID, quizID string) ([]AttemptRecord, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := CanManage(teacherID, q); err != nil {
		return nil, err
	}
	return s.store.ListAttemptsByQuiz(ctx, quizID)
}

// GetQuizForTeacher returns the full quiz including answer keys, owner only.
func (s *Service) GetQuizForTeacher(ctx context.Context, teacherID, quizID string) (*Quiz, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := CanManage(teacherID, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Service) freshAccessCode(ctx context.Context) (string, error) {
	for i := 0; i < accessCodeRetries; i++ {
		code, err := generateAccessCode()
		if err != nil {
			return "", err
		}
		inUse, err := s.store.AccessCodeInUse(ctx, code)
		if err != nil {
			return "", err
		}
		if !inUse {
			return code, nil
		}
	}
	return "", fmt.Errorf("generate access code: exhausted retries")
}

func generateAccessCode() (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(accessCodeAlphabet)))
	for i := 0; i < accessCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate access code: %w", err)
		}
		sb.WriteByte(accessCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

func validateQuestion(q *Question, idx int) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: question %d has no text", ErrInvalidInput, idx)
	}
	switch q.Type {
	case TypeMCQ:
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d needs at least two options", ErrInvalidInput, idx)
		}
		if q.CorrectAnswer == "" {
			return fmt.Errorf("%w: question %d has no correct answer", ErrInvalidInput, idx)
		}
	case TypeTrueFalse:
		if q.CorrectAnswer == "" {
			return fmt.Errorf("%w: question %d has no correct answer", ErrInvalidInput, idx)
		}
	case TypeMultiAnswer:
		if len(q.CorrectAnswers) == 0 {
			return fmt.Errorf("%w: question %d has no correct answers", ErrInvalidInput, idx)
		}
	default:
		return fmt.Errorf("%w: question %d has unsupported type %q", ErrInvalidInput, idx, q.Type)
	}
	return nil
}
