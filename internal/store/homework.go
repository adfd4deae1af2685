package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

const questionColumns = `id, homework_id, position, question_type, text, options, answer, score`

// CreateHomework inserts a homework and its questions. Question positions are
// assigned in slice order.
func (s *Store) CreateHomework(ctx context.Context, hw model.Homework, questions []model.Question) (int64, error) {
	var id int64
	err := s.InTx(ctx, func(tx *Store) error {
		res, err := tx.q.ExecContext(ctx,
			`INSERT INTO homeworks (title, description, teacher_id, video_id, created_at) VALUES (?, ?, ?, ?, ?)`,
			hw.Title, hw.Description, hw.TeacherID, hw.VideoID, time.Now(),
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		for _, q := range questions {
			q.HomeworkID = id
			if _, err := tx.InsertQuestion(ctx, q); err != nil {
				return err
			}
		}
		return nil
	})
	return id, err
}

// InsertQuestion appends a question to its homework.
func (s *Store) InsertQuestion(ctx context.Context, q model.Question) (int64, error) {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return 0, fmt.Errorf("encode options: %w", err)
	}
	if q.Options == nil {
		opts = []byte("[]")
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO questions (homework_id, position, question_type, text, options, answer, score)
		 VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM questions WHERE homework_id = ?), ?, ?, ?, ?, ?)`,
		q.HomeworkID, q.HomeworkID, q.Type, q.Text, string(opts), string(q.Answer.Raw()), q.Score,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetHomework returns a homework by ID, or nil if it does not exist.
func (s *Store) GetHomework(ctx context.Context, id int64) (*model.Homework, error) {
	return s.scanHomework(s.q.QueryRowContext(ctx,
		`SELECT id, title, description, teacher_id, video_id, created_at FROM homeworks WHERE id = ?`, id,
	))
}

// GetHomeworkByVideo returns the homework attached to a video, or nil.
func (s *Store) GetHomeworkByVideo(ctx context.Context, videoID int64) (*model.Homework, error) {
	return s.scanHomework(s.q.QueryRowContext(ctx,
		`SELECT id, title, description, teacher_id, video_id, created_at FROM homeworks WHERE video_id = ?`, videoID,
	))
}

func (s *Store) scanHomework(row *sql.Row) (*model.Homework, error) {
	var hw model.Homework
	err := row.Scan(&hw.ID, &hw.Title, &hw.Description, &hw.TeacherID, &hw.VideoID, &hw.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hw, nil
}

// ListHomeworks returns all homework, newest first. A non-zero teacherID
// restricts the list to that teacher's homework.
func (s *Store) ListHomeworks(ctx context.Context, teacherID int64) ([]model.Homework, error) {
	query := `SELECT id, title, description, teacher_id, video_id, created_at FROM homeworks`
	var args []any
	if teacherID != 0 {
		query += ` WHERE teacher_id = ?`
		args = append(args, teacherID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var homeworks []model.Homework
	for rows.Next() {
		var hw model.Homework
		if err := rows.Scan(&hw.ID, &hw.Title, &hw.Description, &hw.TeacherID, &hw.VideoID, &hw.CreatedAt); err != nil {
			return nil, err
		}
		homeworks = append(homeworks, hw)
	}
	return homeworks, rows.Err()
}

// DeleteHomework removes a homework; questions and everything keyed on them cascade.
func (s *Store) DeleteHomework(ctx context.Context, id int64) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM homeworks WHERE id = ?`, id)
	return err
}

// ListQuestions returns a homework's questions in declaration order.
func (s *Store) ListQuestions(ctx context.Context, homeworkID int64) ([]model.Question, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE homework_id = ? ORDER BY position, id`, homeworkID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetQuestion returns a question by ID, or nil if it does not exist.
func (s *Store) GetQuestion(ctx context.Context, id int64) (*model.Question, error) {
	q, err := scanQuestion(s.q.QueryRowContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// GetQuestions returns the questions with the given IDs keyed by ID.
func (s *Store) GetQuestions(ctx context.Context, ids []int64) (map[int64]model.Question, error) {
	out := make(map[int64]model.Question, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		q, err := s.GetQuestion(ctx, id)
		if err != nil {
			return nil, err
		}
		if q != nil {
			out[id] = *q
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(r rowScanner) (model.Question, error) {
	var (
		q            model.Question
		opts, answer string
	)
	if err := r.Scan(&q.ID, &q.HomeworkID, &q.Position, &q.Type, &q.Text, &opts, &answer, &q.Score); err != nil {
		return q, err
	}
	if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
		return q, fmt.Errorf("decode options of question %d: %w", q.ID, err)
	}
	a, err := model.ParseAnswer([]byte(answer))
	if err != nil {
		return q, fmt.Errorf("decode answer of question %d: %w", q.ID, err)
	}
	q.Answer = a
	return q, nil
}
