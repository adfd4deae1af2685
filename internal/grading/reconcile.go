package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Yiteng-CHEN/snaplearn/internal/metrics"
	"github.com/Yiteng-CHEN/snaplearn/internal/model"
	"github.com/Yiteng-CHEN/snaplearn/internal/store"
)

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Processed int `json:"processed"`
	Graded    int `json:"graded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

var errNoLongerPending = errors.New("result no longer pending")

// ReconcilePending re-grades every pending result. Every attempt of the
// student is re-graded except those a teacher corrected, which keep their
// score and comment; the total and explanations come from the latest attempt
// per question. A result that fails is logged and counted without
// stopping the pass.
func (s *Service) ReconcilePending(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	pending, err := s.store.ListPendingResults(ctx)
	if err != nil {
		return report, fmt.Errorf("list pending results: %w", err)
	}
	for _, r := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Processed++
		err := s.reconcileOne(ctx, r)
		switch {
		case err == nil:
			report.Graded++
			metrics.ReconcileRuns.WithLabelValues("graded").Inc()
		case errors.Is(err, errNoLongerPending):
			report.Skipped++
			metrics.ReconcileRuns.WithLabelValues("skipped").Inc()
		default:
			report.Failed++
			metrics.ReconcileRuns.WithLabelValues("failed").Inc()
			slog.Error("reconcile result failed",
				"homework_id", r.HomeworkID, "student_id", r.StudentID, "error", err)
		}
	}
	slog.Info("reconciliation finished",
		"processed", report.Processed, "graded", report.Graded,
		"failed", report.Failed, "skipped", report.Skipped)
	return report, nil
}

func (s *Service) reconcileOne(ctx context.Context, r model.StudentHomeworkResult) error {
	questions, err := s.store.ListQuestions(ctx, r.HomeworkID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	byID := make(map[int64]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	attempts, err := s.store.ListAnswers(ctx, r.HomeworkID, r.StudentID)
	if err != nil {
		return fmt.Errorf("list answers: %w", err)
	}
	corrected, err := s.store.CorrectedAnswerIDs(ctx, r.HomeworkID, r.StudentID)
	if err != nil {
		return fmt.Errorf("list corrected answers: %w", err)
	}

	verdicts := make(map[int64]verdict, len(attempts))
	for _, a := range attempts {
		q, ok := byID[a.QuestionID]
		if !ok || corrected[a.ID] {
			continue
		}
		v, err := s.grade(ctx, q, a.Answer, pathReconcile, true)
		if err != nil {
			return err
		}
		verdicts[a.ID] = v
	}

	unlock := s.lock(r.HomeworkID, r.StudentID)
	defer unlock()

	return s.store.InTx(ctx, func(tx *store.Store) error {
		latest, err := tx.GetResult(ctx, r.HomeworkID, r.StudentID)
		if err != nil {
			return fmt.Errorf("get result: %w", err)
		}
		if latest == nil || latest.Status != model.ResultPending {
			return errNoLongerPending
		}
		// A correction may have landed while grading ran.
		corrected, err := tx.CorrectedAnswerIDs(ctx, r.HomeworkID, r.StudentID)
		if err != nil {
			return fmt.Errorf("list corrected answers: %w", err)
		}
		for id, v := range verdicts {
			if corrected[id] {
				continue
			}
			if err := tx.UpdateAnswerGrade(ctx, id, v.score, v.comment); err != nil {
				return fmt.Errorf("update answer %d: %w", id, err)
			}
		}

		// Attempts stored while grading ran keep their own scores.
		current, err := tx.CurrentAnswers(ctx, r.HomeworkID, r.StudentID)
		if err != nil {
			return fmt.Errorf("current answers: %w", err)
		}
		var total float64
		explanations := []string{}
		for _, a := range current {
			q, ok := byID[a.QuestionID]
			if !ok {
				continue
			}
			v, ok := verdicts[a.ID]
			if !ok || corrected[a.ID] {
				v = verdict{score: a.ScoreValue(), comment: a.Comment}
			}
			total += v.score
			if e, ok := explain(ctx, q, a.Answer, v); ok {
				explanations = append(explanations, e)
			}
		}
		if _, err := tx.FinishResult(ctx, r.HomeworkID, r.StudentID, total, explanations); err != nil {
			return fmt.Errorf("finish result: %w", err)
		}
		return nil
	})
}

// RunReconciler calls ReconcilePending every interval until ctx is done.
func (s *Service) RunReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("reconciler started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("reconciler stopped")
			return
		case <-ticker.C:
			if _, err := s.ReconcilePending(ctx); err != nil && ctx.Err() == nil {
				slog.Error("reconciliation pass failed", "error", err)
			}
		}
	}
}

// RequestRegrade marks a student's result pending so the next reconciliation
// pass re-grades it.
func (s *Service) RequestRegrade(ctx context.Context, teacher *model.User, homeworkID, studentID int64) error {
	if err := requireTeacher(teacher); err != nil {
		return err
	}
	unlock := s.lock(homeworkID, studentID)
	defer unlock()

	ok, err := s.store.MarkResultPending(ctx, homeworkID, studentID)
	if err != nil {
		return fmt.Errorf("mark result pending: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: no result for homework %d student %d", ErrNotFound, homeworkID, studentID)
	}
	slog.Info("regrade requested", "teacher_id", teacher.ID, "homework_id", homeworkID, "student_id", studentID)
	return nil
}
