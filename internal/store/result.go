package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

const resultColumns = `id, homework_id, student_id, total_score, explanations, status, submitted_at`

// UpsertResult inserts or replaces the aggregate for (homework, student).
func (s *Store) UpsertResult(ctx context.Context, r model.StudentHomeworkResult) error {
	expl, err := encodeExplanations(r.Explanations)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx,
		`INSERT INTO homework_results (homework_id, student_id, total_score, explanations, status, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(homework_id, student_id) DO UPDATE SET
		   total_score = excluded.total_score,
		   explanations = excluded.explanations,
		   status = excluded.status,
		   submitted_at = excluded.submitted_at`,
		r.HomeworkID, r.StudentID, r.TotalScore, expl, r.Status, time.Now(),
	)
	return err
}

// GetResult returns the aggregate for (homework, student), or nil.
func (s *Store) GetResult(ctx context.Context, homeworkID, studentID int64) (*model.StudentHomeworkResult, error) {
	r, err := scanResult(s.q.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM homework_results WHERE homework_id = ? AND student_id = ?`,
		homeworkID, studentID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SetResultTotal overwrites only the total score of an existing aggregate.
// It reports whether a row was updated.
func (s *Store) SetResultTotal(ctx context.Context, homeworkID, studentID int64, total float64) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE homework_results SET total_score = ? WHERE homework_id = ? AND student_id = ?`,
		total, homeworkID, studentID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// FinishResult stores the reconciled total and explanations and marks the
// aggregate graded, keeping its submission time. It reports whether a row was updated.
func (s *Store) FinishResult(ctx context.Context, homeworkID, studentID int64, total float64, explanations []string) (bool, error) {
	expl, err := encodeExplanations(explanations)
	if err != nil {
		return false, err
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE homework_results SET total_score = ?, explanations = ?, status = ? WHERE homework_id = ? AND student_id = ?`,
		total, expl, model.ResultGraded, homeworkID, studentID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkResultPending clears the total and queues the aggregate for reconciliation.
func (s *Store) MarkResultPending(ctx context.Context, homeworkID, studentID int64) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE homework_results SET total_score = NULL, status = ? WHERE homework_id = ? AND student_id = ?`,
		model.ResultPending, homeworkID, studentID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListPendingResults returns every aggregate awaiting reconciliation, oldest first.
func (s *Store) ListPendingResults(ctx context.Context) ([]model.StudentHomeworkResult, error) {
	return s.queryResults(ctx,
		`SELECT `+resultColumns+` FROM homework_results WHERE status = ? ORDER BY id`, model.ResultPending,
	)
}

// ListResults returns every aggregate for a homework, ordered by student.
func (s *Store) ListResults(ctx context.Context, homeworkID int64) ([]model.StudentHomeworkResult, error) {
	return s.queryResults(ctx,
		`SELECT `+resultColumns+` FROM homework_results WHERE homework_id = ? ORDER BY student_id`, homeworkID,
	)
}

func (s *Store) queryResults(ctx context.Context, query string, args ...any) ([]model.StudentHomeworkResult, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.StudentHomeworkResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanResult(r rowScanner) (model.StudentHomeworkResult, error) {
	var (
		res  model.StudentHomeworkResult
		expl string
	)
	if err := r.Scan(&res.ID, &res.HomeworkID, &res.StudentID, &res.TotalScore, &expl, &res.Status, &res.SubmittedAt); err != nil {
		return res, err
	}
	if err := json.Unmarshal([]byte(expl), &res.Explanations); err != nil {
		return res, fmt.Errorf("decode explanations of result %d: %w", res.ID, err)
	}
	return res, nil
}

func encodeExplanations(expl []string) (string, error) {
	if expl == nil {
		expl = []string{}
	}
	b, err := json.Marshal(expl)
	if err != nil {
		return "", fmt.Errorf("encode explanations: %w", err)
	}
	return string(b), nil
}
