package grading

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
	"github.com/Yiteng-CHEN/snaplearn/internal/store"
)

// SubmitAnswer grades a single answer and stores it as a new attempt. Each
// call appends a row; the latest row per question is the current answer.
//
// An AI failure while grading a subjective answer returns ErrAIBackend and
// stores nothing, unless the service runs in FailLenient mode.
func (s *Service) SubmitAnswer(ctx context.Context, student *model.User, questionID int64, raw model.Answer) (*model.StudentAnswer, error) {
	if err := requireUser(student); err != nil {
		return nil, err
	}
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	if q == nil {
		return nil, fmt.Errorf("%w: question %d", ErrNotFound, questionID)
	}
	if raw.IsZero() {
		return nil, fmt.Errorf("%w: answer is required", ErrValidation)
	}
	if err := checkAnswerShape(*q, raw); err != nil {
		return nil, err
	}

	v, err := s.grade(ctx, *q, raw, pathInteractive, s.cfg.FailureMode == FailLenient)
	if err != nil {
		return nil, err
	}

	unlock := s.lock(q.HomeworkID, student.ID)
	defer unlock()

	var saved model.StudentAnswer
	err = s.store.InTx(ctx, func(tx *store.Store) error {
		saved, err = tx.InsertAnswer(ctx, model.StudentAnswer{
			QuestionID: q.ID,
			StudentID:  student.ID,
			Answer:     raw,
			Score:      scorePtr(v.score),
			Comment:    v.comment,
			Graded:     true,
		})
		if err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
		if err := recordOutcome(ctx, tx, student.ID, *q, raw, v); err != nil {
			return err
		}
		// A resubmission after the homework was aggregated moves the total.
		return refreshTotal(ctx, tx, q.HomeworkID, student.ID)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("answer graded",
		"student_id", student.ID, "question_id", q.ID, "answer_id", saved.ID,
		"score", v.score, "full", v.full)
	return &saved, nil
}
