package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	Driver          string // "postgres" or "sqlite"
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func DefaultConfig() Config {
	return Config{
		Driver:          "postgres",
		MaxOpenConns:    25,
		MaxIdleConns:    25,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Open connects to the configured database, tunes the pool, verifies the
// connection, and ensures the schema exists.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	driverName := ""
	switch cfg.Driver {
	case "postgres":
		driverName = "pgx"
	case "sqlite":
		driverName = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}

	conn, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = cfg.MaxOpenConns
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Driver == "sqlite" {
		// modernc sqlite serializes writes; a wide pool just contends.
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureSchema(ctx, conn, cfg.Driver); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

// EnsureSchema creates the tables and unique indexes if they are missing.
// The UNIQUE constraint on quiz_attempts(student_id, quiz_id) is what makes
// the one-attempt rule hold under concurrent submits.
func EnsureSchema(ctx context.Context, conn *sql.DB, driver string) error {
	schema := schemaPostgres
	if driver == "sqlite" {
		schema = schemaSQLite
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS teachers (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	name          TEXT NOT NULL,
	batches_json  TEXT NOT NULL DEFAULT '[]',
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS students (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	name          TEXT NOT NULL,
	batch         TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS quizzes (
	id             TEXT PRIMARY KEY,
	teacher_id     TEXT NOT NULL REFERENCES teachers(id),
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	quiz_type      TEXT NOT NULL DEFAULT 'mcq',
	access_code    TEXT NOT NULL UNIQUE,
	batches_json   TEXT NOT NULL,
	questions_json TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS quiz_attempts (
	id           TEXT PRIMARY KEY,
	student_id   TEXT NOT NULL REFERENCES students(id),
	quiz_id      TEXT NOT NULL REFERENCES quizzes(id),
	answers_json TEXT NOT NULL,
	score        DOUBLE PRECISION NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL,
	UNIQUE (student_id, quiz_id)
);

CREATE INDEX IF NOT EXISTS idx_quizzes_teacher ON quizzes(teacher_id);
CREATE INDEX IF NOT EXISTS idx_attempts_quiz ON quiz_attempts(quiz_id);
`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS teachers (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	name          TEXT NOT NULL,
	batches_json  TEXT NOT NULL DEFAULT '[]',
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS students (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	name          TEXT NOT NULL,
	batch         TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS quizzes (
	id             TEXT PRIMARY KEY,
	teacher_id     TEXT NOT NULL REFERENCES teachers(id),
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	quiz_type      TEXT NOT NULL DEFAULT 'mcq',
	access_code    TEXT NOT NULL UNIQUE,
	batches_json   TEXT NOT NULL,
	questions_json TEXT NOT NULL,
	created_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS quiz_attempts (
	id           TEXT PRIMARY KEY,
	student_id   TEXT NOT NULL REFERENCES students(id),
	quiz_id      TEXT NOT NULL REFERENCES quizzes(id),
	answers_json TEXT NOT NULL,
	score        REAL NOT NULL,
	submitted_at TIMESTAMP NOT NULL,
	UNIQUE (student_id, quiz_id)
);

CREATE INDEX IF NOT EXISTS idx_quizzes_teacher ON quizzes(teacher_id);
CREATE INDEX IF NOT EXISTS idx_attempts_quiz ON quiz_attempts(quiz_id);
`
