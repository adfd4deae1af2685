package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

// IncrementHelp get-or-creates the (student, question) help record, bumps its
// counter and returns the updated record.
func (s *Store) IncrementHelp(ctx context.Context, studentID, questionID int64) (*model.AIHelpRecord, error) {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO ai_help_records (student_id, question_id, times, solved, last_help_at)
		 VALUES (?, ?, 1, 0, ?)
		 ON CONFLICT(student_id, question_id) DO UPDATE SET
		   times = times + 1,
		   last_help_at = excluded.last_help_at`,
		studentID, questionID, time.Now(),
	)
	if err != nil {
		return nil, err
	}
	return s.GetHelp(ctx, studentID, questionID)
}

// GetHelp returns the (student, question) help record, or nil.
func (s *Store) GetHelp(ctx context.Context, studentID, questionID int64) (*model.AIHelpRecord, error) {
	var r model.AIHelpRecord
	err := s.q.QueryRowContext(ctx,
		`SELECT id, student_id, question_id, times, solved, last_help_at
		 FROM ai_help_records WHERE student_id = ? AND question_id = ?`, studentID, questionID,
	).Scan(&r.ID, &r.StudentID, &r.QuestionID, &r.Times, &r.Solved, &r.LastHelpAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// MarkHelpSolved flags the record as solved.
func (s *Store) MarkHelpSolved(ctx context.Context, id int64) error {
	_, err := s.q.ExecContext(ctx, `UPDATE ai_help_records SET solved = 1 WHERE id = ?`, id)
	return err
}
