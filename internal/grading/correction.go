package grading

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/Yiteng-CHEN/snaplearn/internal/metrics"
	"github.com/Yiteng-CHEN/snaplearn/internal/model"
	"github.com/Yiteng-CHEN/snaplearn/internal/store"
)

// AuditTrail lists every correction made to one answer, oldest first.
type AuditTrail struct {
	AnswerID   int64                           `json:"answer_id"`
	Score      []model.ScoreCorrectionLog      `json:"score_corrections"`
	Subjective []model.SubjectiveCorrectionLog `json:"subjective_corrections"`
}

// CorrectAnswer overrides an answer's score and comment, logs the change and
// recomputes the student's homework total.
func (s *Service) CorrectAnswer(ctx context.Context, teacher *model.User, answerID int64, newScore float64, newComment string) error {
	return s.correct(ctx, teacher, answerID, newScore, newComment, false)
}

// CorrectSubjective overrides the AI verdict on a subjective answer, logging
// the AI's score and comment next to the teacher's.
func (s *Service) CorrectSubjective(ctx context.Context, teacher *model.User, answerID int64, teacherScore float64, teacherComment string) error {
	return s.correct(ctx, teacher, answerID, teacherScore, teacherComment, true)
}

func (s *Service) correct(ctx context.Context, teacher *model.User, answerID int64, newScore float64, newComment string, subjective bool) error {
	if err := requireTeacher(teacher); err != nil {
		return err
	}
	a, err := s.store.GetAnswer(ctx, answerID)
	if err != nil {
		return fmt.Errorf("get answer: %w", err)
	}
	if a == nil {
		return fmt.Errorf("%w: answer %d", ErrNotFound, answerID)
	}
	q, err := s.store.GetQuestion(ctx, a.QuestionID)
	if err != nil {
		return fmt.Errorf("get question: %w", err)
	}
	if q == nil {
		return fmt.Errorf("%w: question %d", ErrNotFound, a.QuestionID)
	}
	if subjective && q.Type != model.QuestionSubjective {
		return fmt.Errorf("%w: answer %d is not for a subjective question", ErrValidation, answerID)
	}
	if math.IsNaN(newScore) || newScore < 0 || newScore > q.Score {
		return fmt.Errorf("%w: score %v outside [0, %v]", ErrValidation, newScore, q.Score)
	}

	unlock := s.lock(q.HomeworkID, a.StudentID)
	defer unlock()

	err = s.store.InTx(ctx, func(tx *store.Store) error {
		// Re-read under the lock so the log captures the values being replaced.
		old, err := tx.GetAnswer(ctx, answerID)
		if err != nil {
			return fmt.Errorf("get answer: %w", err)
		}
		if old == nil {
			return fmt.Errorf("%w: answer %d", ErrNotFound, answerID)
		}
		if err := tx.UpdateAnswerGrade(ctx, answerID, newScore, newComment); err != nil {
			return fmt.Errorf("update answer: %w", err)
		}
		if subjective {
			_, err = tx.AppendSubjectiveCorrection(ctx, model.SubjectiveCorrectionLog{
				AnswerID:       answerID,
				QuestionID:     q.ID,
				TeacherID:      teacher.ID,
				AIScore:        old.Score,
				TeacherScore:   newScore,
				AIComment:      old.Comment,
				TeacherComment: newComment,
			})
		} else {
			_, err = tx.AppendScoreCorrection(ctx, model.ScoreCorrectionLog{
				AnswerID:   answerID,
				TeacherID:  teacher.ID,
				OldScore:   old.Score,
				NewScore:   newScore,
				OldComment: old.Comment,
				NewComment: newComment,
			})
		}
		if err != nil {
			return fmt.Errorf("append correction log: %w", err)
		}
		return refreshTotal(ctx, tx, q.HomeworkID, a.StudentID)
	})
	if err != nil {
		return err
	}

	kind := "score"
	if subjective {
		kind = "subjective"
	}
	metrics.Corrections.WithLabelValues(kind).Inc()
	slog.Info("answer corrected",
		"kind", kind, "teacher_id", teacher.ID, "answer_id", answerID,
		"student_id", a.StudentID, "score", newScore)
	return nil
}

// refreshTotal sets a graded result's total to the sum of the current
// answers. Missing and pending results are left alone; the reconciler owns
// pending totals.
func refreshTotal(ctx context.Context, tx *store.Store, homeworkID, studentID int64) error {
	res, err := tx.GetResult(ctx, homeworkID, studentID)
	if err != nil {
		return fmt.Errorf("get result: %w", err)
	}
	if res == nil || res.Status != model.ResultGraded {
		return nil
	}
	total, err := tx.SumCurrentScores(ctx, homeworkID, studentID)
	if err != nil {
		return fmt.Errorf("sum scores: %w", err)
	}
	if _, err := tx.SetResultTotal(ctx, homeworkID, studentID, total); err != nil {
		return fmt.Errorf("update result total: %w", err)
	}
	return nil
}

// Corrections returns the audit trail of an answer.
func (s *Service) Corrections(ctx context.Context, teacher *model.User, answerID int64) (*AuditTrail, error) {
	if err := requireTeacher(teacher); err != nil {
		return nil, err
	}
	a, err := s.store.GetAnswer(ctx, answerID)
	if err != nil {
		return nil, fmt.Errorf("get answer: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: answer %d", ErrNotFound, answerID)
	}
	trail := &AuditTrail{AnswerID: answerID}
	if trail.Score, err = s.store.ListScoreCorrections(ctx, answerID); err != nil {
		return nil, fmt.Errorf("list score corrections: %w", err)
	}
	if trail.Subjective, err = s.store.ListSubjectiveCorrections(ctx, answerID); err != nil {
		return nil, fmt.Errorf("list subjective corrections: %w", err)
	}
	if trail.Score == nil {
		trail.Score = []model.ScoreCorrectionLog{}
	}
	if trail.Subjective == nil {
		trail.Subjective = []model.SubjectiveCorrectionLog{}
	}
	return trail, nil
}
