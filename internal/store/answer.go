package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

// InsertAnswer stores a new answer attempt and returns it with ID and timestamp set.
func (s *Store) InsertAnswer(ctx context.Context, a model.StudentAnswer) (model.StudentAnswer, error) {
	a.SubmittedAt = time.Now()
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO student_answers (question_id, student_id, answer, score, comment, graded, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.QuestionID, a.StudentID, string(a.Answer.Raw()), a.Score, a.Comment, a.Graded, a.SubmittedAt,
	)
	if err != nil {
		return a, err
	}
	a.ID, err = res.LastInsertId()
	return a, err
}

// GetAnswer returns an answer by ID, or nil if it does not exist.
func (s *Store) GetAnswer(ctx context.Context, id int64) (*model.StudentAnswer, error) {
	a, err := scanAnswer(s.q.QueryRowContext(ctx,
		`SELECT id, question_id, student_id, answer, score, comment, graded, submitted_at
		 FROM student_answers WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAnswerGrade sets an answer's score and comment and marks it graded.
func (s *Store) UpdateAnswerGrade(ctx context.Context, id int64, score float64, comment string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE student_answers SET score = ?, comment = ?, graded = 1 WHERE id = ?`,
		score, comment, id,
	)
	return err
}

// ListAnswers returns every attempt a student made at a homework's questions,
// in question order and then submission order.
func (s *Store) ListAnswers(ctx context.Context, homeworkID, studentID int64) ([]model.StudentAnswer, error) {
	return s.queryAnswers(ctx,
		`SELECT a.id, a.question_id, a.student_id, a.answer, a.score, a.comment, a.graded, a.submitted_at
		 FROM student_answers a JOIN questions q ON q.id = a.question_id
		 WHERE q.homework_id = ? AND a.student_id = ?
		 ORDER BY q.position, q.id, a.id`, homeworkID, studentID,
	)
}

// CurrentAnswers returns the latest attempt per question, in question order.
func (s *Store) CurrentAnswers(ctx context.Context, homeworkID, studentID int64) ([]model.StudentAnswer, error) {
	return s.queryAnswers(ctx,
		`SELECT a.id, a.question_id, a.student_id, a.answer, a.score, a.comment, a.graded, a.submitted_at
		 FROM student_answers a JOIN questions q ON q.id = a.question_id
		 WHERE q.homework_id = ? AND a.student_id = ?
		   AND a.id = (SELECT MAX(b.id) FROM student_answers b WHERE b.question_id = a.question_id AND b.student_id = a.student_id)
		 ORDER BY q.position, q.id`, homeworkID, studentID,
	)
}

// SumCurrentScores sums the scores of the latest attempt per question.
func (s *Store) SumCurrentScores(ctx context.Context, homeworkID, studentID int64) (float64, error) {
	var total float64
	err := s.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(a.score), 0)
		 FROM student_answers a JOIN questions q ON q.id = a.question_id
		 WHERE q.homework_id = ? AND a.student_id = ?
		   AND a.id = (SELECT MAX(b.id) FROM student_answers b WHERE b.question_id = a.question_id AND b.student_id = a.student_id)`,
		homeworkID, studentID,
	).Scan(&total)
	return total, err
}

func (s *Store) queryAnswers(ctx context.Context, query string, args ...any) ([]model.StudentAnswer, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.StudentAnswer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func scanAnswer(r rowScanner) (model.StudentAnswer, error) {
	var (
		a   model.StudentAnswer
		raw string
	)
	if err := r.Scan(&a.ID, &a.QuestionID, &a.StudentID, &raw, &a.Score, &a.Comment, &a.Graded, &a.SubmittedAt); err != nil {
		return a, err
	}
	parsed, err := model.ParseAnswer([]byte(raw))
	if err != nil {
		return a, err
	}
	a.Answer = parsed
	return a, nil
}
