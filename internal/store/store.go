package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists homework, answers, results and audit logs in SQLite.
// A Store returned by InTx is bound to the transaction; its methods must not
// be called after the callback returns.
type Store struct {
	db *sql.DB
	q  querier
}

// New opens (and migrates) the database at dbPath. ":memory:" is accepted for tests.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	if !strings.Contains(dbPath, ":memory:") {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if strings.Contains(dbPath, ":memory:") {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, q: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InTx runs fn inside a transaction. fn receives a Store bound to it; the
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'student',
		verified_teacher INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS homeworks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		teacher_id INTEGER NOT NULL,
		video_id INTEGER UNIQUE,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		homework_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		question_type TEXT NOT NULL,
		text TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '[]',
		answer TEXT NOT NULL,
		score REAL NOT NULL DEFAULT 5,
		FOREIGN KEY (homework_id) REFERENCES homeworks(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_questions_homework ON questions(homework_id, position);

	CREATE TABLE IF NOT EXISTS student_answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id INTEGER NOT NULL,
		student_id INTEGER NOT NULL,
		answer TEXT NOT NULL,
		score REAL,
		comment TEXT NOT NULL DEFAULT '',
		graded INTEGER NOT NULL DEFAULT 0,
		submitted_at DATETIME NOT NULL,
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_answers_student_question ON student_answers(student_id, question_id);

	CREATE TABLE IF NOT EXISTS homework_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		homework_id INTEGER NOT NULL,
		student_id INTEGER NOT NULL,
		total_score REAL,
		explanations TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'graded',
		submitted_at DATETIME NOT NULL,
		UNIQUE (homework_id, student_id),
		FOREIGN KEY (homework_id) REFERENCES homeworks(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS mistake_book (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		wrong_times INTEGER NOT NULL DEFAULT 0,
		last_wrong_answer TEXT NOT NULL DEFAULT '',
		UNIQUE (student_id, question_id),
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS score_correction_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		answer_id INTEGER NOT NULL,
		teacher_id INTEGER NOT NULL,
		old_score REAL,
		new_score REAL NOT NULL,
		old_comment TEXT NOT NULL DEFAULT '',
		new_comment TEXT NOT NULL DEFAULT '',
		corrected_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS subjective_correction_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		answer_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		teacher_id INTEGER NOT NULL,
		ai_score REAL,
		teacher_score REAL NOT NULL,
		ai_comment TEXT NOT NULL DEFAULT '',
		teacher_comment TEXT NOT NULL DEFAULT '',
		corrected_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ai_help_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		times INTEGER NOT NULL DEFAULT 0,
		solved INTEGER NOT NULL DEFAULT 0,
		last_help_at DATETIME NOT NULL,
		UNIQUE (student_id, question_id),
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		sha256 TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}
