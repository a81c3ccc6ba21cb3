package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Store is the persistence surface the service needs. SQLStore is the
// production implementation; tests substitute an in-memory fake.
type Store interface {
	CreateQuiz(ctx context.Context, q *Quiz) error
	GetQuiz(ctx context.Context, id string) (*Quiz, error)
	GetQuizByAccessCode(ctx context.Context, code string) (*Quiz, error)
	ListQuizzesByTeacher(ctx context.Context, teacherID string) ([]Quiz, error)
	ListQuizzesByBatch(ctx context.Context, batch string) ([]Quiz, error)
	AccessCodeInUse(ctx context.Context, code string) (bool, error)

	CreateAttempt(ctx context.Context, a *Attempt) error
	GetAttempt(ctx context.Context, studentID, quizID string) (*Attempt, error)
	ListAttemptsByStudent(ctx context.Context, studentID string) ([]AttemptRecord, error)
	ListAttemptsByQuiz(ctx context.Context, quizID string) ([]AttemptRecord, error)
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) CreateQuiz(ctx context.Context, q *Quiz) error {
	batchesJSON, err := json.Marshal(q.Batches)
	if err != nil {
		return fmt.Errorf("encode batches: %w", err)
	}
	questionsJSON, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quizzes (id, teacher_id, title, description, quiz_type, access_code, batches_json, questions_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, q.ID, q.TeacherID, q.Title, q.Description, q.QuizType, q.AccessCode, string(batchesJSON), string(questionsJSON), q.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

const quizColumns = `id, teacher_id, title, description, quiz_type, access_code, batches_json, questions_json, created_at`

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (*Quiz, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+quizColumns+` FROM quizzes WHERE id = $1
	`, id)
	return scanQuiz(row)
}

func (s *SQLStore) GetQuizByAccessCode(ctx context.Context, code string) (*Quiz, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+quizColumns+` FROM quizzes WHERE access_code = $1
	`, code)
	return scanQuiz(row)
}

func (s *SQLStore) ListQuizzesByTeacher(ctx context.Context, teacherID string) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+quizColumns+` FROM quizzes WHERE teacher_id = $1 ORDER BY created_at DESC
	`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()
	return collectQuizzes(rows)
}

// ListQuizzesByBatch filters in Go rather than in SQL: the batch list is
// a JSON column and the membership test must match the normalizer, not a
// LIKE pattern.
func (s *SQLStore) ListQuizzesByBatch(ctx context.Context, batch string) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+quizColumns+` FROM quizzes ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()

	all, err := collectQuizzes(rows)
	if err != nil {
		return nil, err
	}
	out := make([]Quiz, 0, len(all))
	for _, q := range all {
		for _, b := range q.Batches {
			if b == batch {
				out = append(out, q)
				break
			}
		}
	}
	return out, nil
}

func (s *SQLStore) AccessCodeInUse(ctx context.Context, code string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM quizzes WHERE access_code = $1`, code).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check access code: %w", err)
	}
	return true, nil
}

// CreateAttempt inserts the attempt, relying on the UNIQUE constraint on
// (student_id, quiz_id) to reject a second attempt even when two submits
// race past the application-level check.
func (s *SQLStore) CreateAttempt(ctx context.Context, a *Attempt) error {
	answersJSON, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO quiz_attempts (id, student_id, quiz_id, answers_json, score, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (student_id, quiz_id) DO NOTHING
	`, a.ID, a.StudentID, a.QuizID, string(answersJSON), a.Score, a.SubmittedAt)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	if n == 0 {
		return ErrDuplicateAttempt
	}
	return nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, studentID, quizID string) (*Attempt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, quiz_id, answers_json, score, submitted_at
		FROM quiz_attempts WHERE student_id = $1 AND quiz_id = $2
	`, studentID, quizID)

	var a Attempt
	var answersJSON string
	if err := row.Scan(&a.ID, &a.StudentID, &a.QuizID, &answersJSON, &a.Score, &a.SubmittedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("query attempt: %w", err)
	}
	if err := json.Unmarshal([]byte(answersJSON), &a.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return &a, nil
}

func (s *SQLStore) ListAttemptsByStudent(ctx context.Context, studentID string) ([]AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.student_id, a.quiz_id, a.answers_json, a.score, a.submitted_at, q.title
		FROM quiz_attempts a
		JOIN quizzes q ON q.id = a.quiz_id
		WHERE a.student_id = $1
		ORDER BY a.submitted_at DESC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	out := []AttemptRecord{}
	for rows.Next() {
		var rec AttemptRecord
		var answersJSON string
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.QuizID, &answersJSON, &rec.Score, &rec.SubmittedAt, &rec.QuizTitle); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal([]byte(answersJSON), &rec.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListAttemptsByQuiz(ctx context.Context, quizID string) ([]AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.student_id, a.quiz_id, a.answers_json, a.score, a.submitted_at, st.name, st.email
		FROM quiz_attempts a
		LEFT JOIN students st ON st.id = a.student_id
		WHERE a.quiz_id = $1
		ORDER BY a.submitted_at ASC
	`, quizID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	out := []AttemptRecord{}
	for rows.Next() {
		var rec AttemptRecord
		var answersJSON string
		var name, email sql.NullString
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.QuizID, &answersJSON, &rec.Score, &rec.SubmittedAt, &name, &email); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal([]byte(answersJSON), &rec.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		rec.StudentName = "Unknown Student"
		if name.Valid && name.String != "" {
			rec.StudentName = name.String
		}
		if email.Valid {
			rec.StudentEmail = email.String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuiz(row rowScanner) (*Quiz, error) {
	var q Quiz
	var batchesJSON, questionsJSON string
	err := row.Scan(&q.ID, &q.TeacherID, &q.Title, &q.Description, &q.QuizType, &q.AccessCode, &batchesJSON, &questionsJSON, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("scan quiz: %w", err)
	}
	if err := json.Unmarshal([]byte(batchesJSON), &q.Batches); err != nil {
		return nil, fmt.Errorf("decode batches: %w", err)
	}
	if err := json.Unmarshal([]byte(questionsJSON), &q.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return &q, nil
}

func collectQuizzes(rows *sql.Rows) ([]Quiz, error) {
	out := []Quiz{}
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}
