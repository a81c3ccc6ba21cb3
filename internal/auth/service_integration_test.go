package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"quizgen/internal/batch"
	internaldb "quizgen/internal/db"
)

func openIntegrationService(t *testing.T) *Service {
	t.Helper()
	if os.Getenv("QUIZGEN_INTEGRATION") != "1" {
		t.Skip("set QUIZGEN_INTEGRATION=1 to run integration tests")
	}

	cfg := internaldb.DefaultConfig()
	cfg.Driver = strings.TrimSpace(os.Getenv("QUIZGEN_TEST_DRIVER"))
	cfg.DSN = strings.TrimSpace(os.Getenv("QUIZGEN_TEST_DSN"))
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.DSN == "" {
		cfg.DSN = "file:quizgen_itest?mode=memory&cache=shared"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	conn, err := internaldb.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return NewService(conn, ServiceConfig{BatchValidator: batch.NewValidator(nil)})
}

func TestRegisterAndAuthenticate_DBIntegration(t *testing.T) {
	svc := openIntegrationService(t)
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	teacherEmail := fmt.Sprintf("itest-auth-teacher-%d@example.com", suffix)
	teacher, err := svc.RegisterTeacher(ctx, RegisterTeacherInput{
		Email:    teacherEmail,
		Password: "secret123",
		Name:     "ITest Teacher",
		Batches:  []string{"f1", "F2"},
	})
	if err != nil {
		t.Fatalf("RegisterTeacher: %v", err)
	}
	if len(teacher.Batches) != 2 || teacher.Batches[0] != "F1" {
		t.Fatalf("batches not normalized: %v", teacher.Batches)
	}

	id, role, err := svc.Authenticate(ctx, teacherEmail, "secret123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id != teacher.ID || role != RoleTeacher {
		t.Fatalf("auth = (%q, %q), want (%q, teacher)", id, role, teacher.ID)
	}

	if _, _, err := svc.Authenticate(ctx, teacherEmail, "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad password err = %v, want ErrInvalidCredentials", err)
	}

	// A student may not reuse the teacher's email.
	_, err = svc.RegisterStudent(ctx, RegisterStudentInput{
		Email:    teacherEmail,
		Password: "secret123",
		Name:     "ITest Student",
		Batch:    "F1",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("cross-table email err = %v, want ErrEmailTaken", err)
	}

	loaded, err := svc.GetTeacher(ctx, teacher.ID)
	if err != nil {
		t.Fatalf("GetTeacher: %v", err)
	}
	if loaded.Email != teacherEmail {
		t.Fatalf("email = %q, want %q", loaded.Email, teacherEmail)
	}
}

func TestRegisterEmailUniqueUnderConcurrency_DBIntegration(t *testing.T) {
	svc := openIntegrationService(t)
	email := fmt.Sprintf("itest-auth-race-%d@example.com", time.Now().UnixNano())

	// All workers pass the pre-check when they start together; the email
	// UNIQUE index must still let exactly one row land.
	const workers = 4
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RegisterTeacher(context.Background(), RegisterTeacherInput{
				Email:    email,
				Password: "secret123",
				Name:     "ITest Race",
				Batches:  []string{"F1"},
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, taken := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrEmailTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("succeeded = %d, want exactly 1", succeeded)
	}
	if taken != workers-1 {
		t.Fatalf("taken = %d, want %d", taken, workers-1)
	}
}
