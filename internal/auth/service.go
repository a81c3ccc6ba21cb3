package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"quizgen/internal/batch"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidInput       = errors.New("invalid input")
)

const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

type Service struct {
	db         *sql.DB
	batches    *batch.Validator
	bcryptCost int
}

type ServiceConfig struct {
	BatchValidator *batch.Validator
	BcryptCost     int
}

type Teacher struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Batches   []string  `json:"batches"`
	CreatedAt time.Time `json:"created_at"`
}

type Student struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Batch     string    `json:"batch"`
	CreatedAt time.Time `json:"created_at"`
}

type RegisterTeacherInput struct {
	Email    string
	Password string
	Name     string
	Batches  []string
}

type RegisterStudentInput struct {
	Email    string
	Password string
	Name     string
	Batch    string
}

func NewService(db *sql.DB, cfg ServiceConfig) *Service {
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	v := cfg.BatchValidator
	if v == nil {
		v = batch.NewValidator(nil)
	}
	return &Service{db: db, batches: v, bcryptCost: cfg.BcryptCost}
}

func (s *Service) RegisterTeacher(ctx context.Context, in RegisterTeacherInput) (*Teacher, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	// Teachers may register with no batches and pick them up later.
	batches, err := s.batches.NormalizeAll(in.Batches)
	if err != nil {
		return nil, err
	}

	if err := s.checkEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	t := &Teacher{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Batches:   batches,
		CreatedAt: time.Now().UTC(),
	}
	batchesJSON, err := json.Marshal(t.Batches)
	if err != nil {
		return nil, fmt.Errorf("encode batches: %w", err)
	}

	// checkEmailFree races with concurrent registrations. The UNIQUE
	// index settles the winner; the loser surfaces as ErrEmailTaken.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO teachers (id, email, password_hash, name, batches_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO NOTHING
	`, t.ID, t.Email, string(hash), t.Name, string(batchesJSON), t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert teacher: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("insert teacher: %w", err)
	}
	if n == 0 {
		return nil, ErrEmailTaken
	}
	return t, nil
}

func (s *Service) RegisterStudent(ctx context.Context, in RegisterStudentInput) (*Student, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	b, err := s.batches.Normalize(in.Batch)
	if err != nil {
		return nil, err
	}

	if err := s.checkEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	st := &Student{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Batch:     b,
		CreatedAt: time.Now().UTC(),
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, email, password_hash, name, batch, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO NOTHING
	`, st.ID, st.Email, string(hash), st.Name, st.Batch, st.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert student: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("insert student: %w", err)
	}
	if n == 0 {
		return nil, ErrEmailTaken
	}
	return st, nil
}

// Authenticate checks the credentials against teachers first, then
// students, and returns the matching subject id and role.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", "", ErrInvalidCredentials
	}

	var id, hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM teachers WHERE email = $1
	`, email).Scan(&id, &hash)
	if err == nil {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
			return "", "", ErrInvalidCredentials
		}
		return id, RoleTeacher, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", "", fmt.Errorf("query teacher: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM students WHERE email = $1
	`, email).Scan(&id, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", fmt.Errorf("query student: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", "", ErrInvalidCredentials
	}
	return id, RoleStudent, nil
}

func (s *Service) GetTeacher(ctx context.Context, id string) (*Teacher, error) {
	var t Teacher
	var batchesJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, batches_json, created_at
		FROM teachers WHERE id = $1
	`, id).Scan(&t.ID, &t.Email, &t.Name, &batchesJSON, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query teacher: %w", err)
	}
	if err := json.Unmarshal([]byte(batchesJSON), &t.Batches); err != nil {
		return nil, fmt.Errorf("decode batches: %w", err)
	}
	if t.Batches == nil {
		t.Batches = []string{}
	}
	return &t, nil
}

func (s *Service) GetStudent(ctx context.Context, id string) (*Student, error) {
	var st Student
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, batch, created_at
		FROM students WHERE id = $1
	`, id).Scan(&st.ID, &st.Email, &st.Name, &st.Batch, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query student: %w", err)
	}
	return &st, nil
}

// UpdateTeacherBatches replaces the teacher's batch set. Unlike
// registration, an update must name at least one batch.
func (s *Service) UpdateTeacherBatches(ctx context.Context, teacherID string, raw []string) (*Teacher, error) {
	batches, err := s.batches.NormalizeAll(raw)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("%w: at least one batch is required", ErrInvalidInput)
	}

	batchesJSON, err := json.Marshal(batches)
	if err != nil {
		return nil, fmt.Errorf("encode batches: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE teachers SET batches_json = $1 WHERE id = $2
	`, string(batchesJSON), teacherID)
	if err != nil {
		return nil, fmt.Errorf("update teacher batches: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrUserNotFound
	}
	return s.GetTeacher(ctx, teacherID)
}

func (s *Service) UpdateStudentBatch(ctx context.Context, studentID, raw string) (*Student, error) {
	b, err := s.batches.Normalize(raw)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE students SET batch = $1 WHERE id = $2
	`, b, studentID)
	if err != nil {
		return nil, fmt.Errorf("update student batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrUserNotFound
	}
	return s.GetStudent(ctx, studentID)
}

func (s *Service) checkEmailFree(ctx context.Context, email string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM teachers WHERE email = $1`, email).Scan(&exists)
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check teacher email: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM students WHERE email = $1`, email).Scan(&exists)
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check student email: %w", err)
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return email, nil
}
