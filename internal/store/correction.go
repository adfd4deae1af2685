package store

import (
	"context"
	"time"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

// AppendScoreCorrection records a teacher override. Log rows are never updated.
func (s *Store) AppendScoreCorrection(ctx context.Context, l model.ScoreCorrectionLog) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO score_correction_logs (answer_id, teacher_id, old_score, new_score, old_comment, new_comment, corrected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.AnswerID, l.TeacherID, l.OldScore, l.NewScore, l.OldComment, l.NewComment, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AppendSubjectiveCorrection records a teacher override of an AI grade.
func (s *Store) AppendSubjectiveCorrection(ctx context.Context, l model.SubjectiveCorrectionLog) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO subjective_correction_logs (answer_id, question_id, teacher_id, ai_score, teacher_score, ai_comment, teacher_comment, corrected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.AnswerID, l.QuestionID, l.TeacherID, l.AIScore, l.TeacherScore, l.AIComment, l.TeacherComment, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListScoreCorrections returns an answer's override history, oldest first.
func (s *Store) ListScoreCorrections(ctx context.Context, answerID int64) ([]model.ScoreCorrectionLog, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, answer_id, teacher_id, old_score, new_score, old_comment, new_comment, corrected_at
		 FROM score_correction_logs WHERE answer_id = ? ORDER BY id`, answerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []model.ScoreCorrectionLog
	for rows.Next() {
		var l model.ScoreCorrectionLog
		if err := rows.Scan(&l.ID, &l.AnswerID, &l.TeacherID, &l.OldScore, &l.NewScore, &l.OldComment, &l.NewComment, &l.CorrectedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// ListSubjectiveCorrections returns an answer's AI-override history, oldest first.
func (s *Store) ListSubjectiveCorrections(ctx context.Context, answerID int64) ([]model.SubjectiveCorrectionLog, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, answer_id, question_id, teacher_id, ai_score, teacher_score, ai_comment, teacher_comment, corrected_at
		 FROM subjective_correction_logs WHERE answer_id = ? ORDER BY id`, answerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []model.SubjectiveCorrectionLog
	for rows.Next() {
		var l model.SubjectiveCorrectionLog
		if err := rows.Scan(&l.ID, &l.AnswerID, &l.QuestionID, &l.TeacherID, &l.AIScore, &l.TeacherScore, &l.AIComment, &l.TeacherComment, &l.CorrectedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// CorrectedAnswerIDs returns which of a student's answers to a homework carry
// at least one correction log row.
func (s *Store) CorrectedAnswerIDs(ctx context.Context, homeworkID, studentID int64) (map[int64]bool, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT a.id FROM student_answers a JOIN questions q ON q.id = a.question_id
		 WHERE q.homework_id = ? AND a.student_id = ?
		   AND (EXISTS (SELECT 1 FROM score_correction_logs l WHERE l.answer_id = a.id)
		     OR EXISTS (SELECT 1 FROM subjective_correction_logs l WHERE l.answer_id = a.id))`,
		homeworkID, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}
