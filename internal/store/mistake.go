package store

import (
	"context"
	"database/sql"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

// RecordMistake creates the (student, question) entry or bumps its counter,
// overwriting the last wrong answer.
func (s *Store) RecordMistake(ctx context.Context, studentID, questionID int64, answer string) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO mistake_book (student_id, question_id, wrong_times, last_wrong_answer)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT(student_id, question_id) DO UPDATE SET
		   wrong_times = wrong_times + 1,
		   last_wrong_answer = excluded.last_wrong_answer`,
		studentID, questionID, answer,
	)
	return err
}

// IncrementMistake bumps the counter of an existing entry. It reports whether
// the entry exists.
func (s *Store) IncrementMistake(ctx context.Context, studentID, questionID int64) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE mistake_book SET wrong_times = wrong_times + 1 WHERE student_id = ? AND question_id = ?`,
		studentID, questionID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteMistake removes the (student, question) entry. It reports whether one existed.
func (s *Store) DeleteMistake(ctx context.Context, studentID, questionID int64) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM mistake_book WHERE student_id = ? AND question_id = ?`, studentID, questionID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetMistake returns the (student, question) entry, or nil.
func (s *Store) GetMistake(ctx context.Context, studentID, questionID int64) (*model.MistakeEntry, error) {
	var m model.MistakeEntry
	err := s.q.QueryRowContext(ctx,
		`SELECT id, student_id, question_id, wrong_times, last_wrong_answer
		 FROM mistake_book WHERE student_id = ? AND question_id = ?`, studentID, questionID,
	).Scan(&m.ID, &m.StudentID, &m.QuestionID, &m.WrongTimes, &m.LastWrongAnswer)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMistakes returns all of a student's current entries.
func (s *Store) ListMistakes(ctx context.Context, studentID int64) ([]model.MistakeEntry, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, student_id, question_id, wrong_times, last_wrong_answer
		 FROM mistake_book WHERE student_id = ? ORDER BY id`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []model.MistakeEntry
	for rows.Next() {
		var m model.MistakeEntry
		if err := rows.Scan(&m.ID, &m.StudentID, &m.QuestionID, &m.WrongTimes, &m.LastWrongAnswer); err != nil {
			return nil, err
		}
		entries = append(entries, m)
	}
	return entries, rows.Err()
}
