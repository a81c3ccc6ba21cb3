package quiz

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrDuplicateAttempt = errors.New("quiz already attempted")
	ErrForbidden        = errors.New("forbidden")
	ErrNoBatch          = errors.New("student has no batch assigned")
	ErrNoTargetBatches  = errors.New("quiz must target at least one batch")
)

const (
	TypeMCQ         = "mcq"
	TypeTrueFalse   = "true_false"
	TypeMultiAnswer = "multi_answer"
)

// Question is embedded in a quiz. Order within the quiz is significant:
// submitted answers may reference a question by its zero-based position.
type Question struct {
	ID             string   `json:"id"`
	Text           string   `json:"question"`
	Type           string   `json:"type"`
	Difficulty     string   `json:"difficulty,omitempty"`
	Options        []string `json:"options,omitempty"`
	CorrectAnswer  string   `json:"correct_answer,omitempty"`
	CorrectAnswers []string `json:"correct_answers,omitempty"`
}

type Quiz struct {
	ID          string     `json:"id"`
	TeacherID   string     `json:"teacher_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	QuizType    string     `json:"quiz_type"`
	AccessCode  string     `json:"access_code"`
	Batches     []string   `json:"batches"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"created_at"`
}

// StudentQuestion is a question with the answer key stripped.
type StudentQuestion struct {
	ID         string   `json:"id"`
	Text       string   `json:"question"`
	Type       string   `json:"type"`
	Difficulty string   `json:"difficulty,omitempty"`
	Options    []string `json:"options,omitempty"`
}

// StudentQuizView is what a student sees before submitting.
type StudentQuizView struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	QuizType    string            `json:"quiz_type"`
	Batches     []string          `json:"batches"`
	Questions   []StudentQuestion `json:"questions"`
	CreatedAt   time.Time         `json:"created_at"`
}

// SubmittedAnswer references a question either by id or by zero-based
// position, with the student's raw answer string.
type SubmittedAnswer struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// AnswerDetail records how one resolved answer was graded.
type AnswerDetail struct {
	QuestionID     string   `json:"question_id"`
	StudentAnswer  string   `json:"student_answer"`
	CorrectAnswer  string   `json:"correct_answer,omitempty"`
	CorrectAnswers []string `json:"correct_answers,omitempty"`
	IsCorrect      bool     `json:"is_correct"`
}

type Attempt struct {
	ID          string         `json:"id"`
	StudentID   string         `json:"student_id"`
	QuizID      string         `json:"quiz_id"`
	Answers     []AnswerDetail `json:"answers"`
	Score       float64        `json:"score"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// AttemptRecord is an attempt joined with display fields for listings.
type AttemptRecord struct {
	Attempt
	QuizTitle    string `json:"quiz_title,omitempty"`
	StudentName  string `json:"student_name,omitempty"`
	StudentEmail string `json:"student_email,omitempty"`
}

func (q *Quiz) StudentView() *StudentQuizView {
	questions := make([]StudentQuestion, 0, len(q.Questions))
	for _, item := range q.Questions {
		questions = append(questions, StudentQuestion{
			ID:         item.ID,
			Text:       item.Text,
			Type:       item.Type,
			Difficulty: item.Difficulty,
			Options:    item.Options,
		})
	}
	return &StudentQuizView{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		QuizType:    q.QuizType,
		Batches:     q.Batches,
		Questions:   questions,
		CreatedAt:   q.CreatedAt,
	}
}
