// Package grading implements answer grading, homework aggregation,
// reconciliation, teacher corrections, the mistake book and AI hints.
package grading

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Yiteng-CHEN/snaplearn/internal/ai"
	"github.com/Yiteng-CHEN/snaplearn/internal/i18n"
	"github.com/Yiteng-CHEN/snaplearn/internal/metrics"
	"github.com/Yiteng-CHEN/snaplearn/internal/model"
	"github.com/Yiteng-CHEN/snaplearn/internal/store"
)

// FailureMode decides what an AI outage does to an interactive submission.
type FailureMode string

const (
	// FailStrict rejects the submission with ErrAIBackend and stores nothing.
	FailStrict FailureMode = "strict"
	// FailLenient stores a zero score with a localized failure comment.
	FailLenient FailureMode = "lenient"
)

// DefaultMistakeSample caps how many entries one mistake book view returns.
const DefaultMistakeSample = 10

// Grading entry points, used as metric labels.
const (
	pathInteractive = "interactive"
	pathHomework    = "homework"
	pathReconcile   = "reconcile"
)

// Config holds the grading settings.
type Config struct {
	FailureMode   FailureMode
	MistakeSample int
}

// Service grades answers and keeps aggregates, mistake books and audit logs
// consistent. All methods are safe for concurrent use.
type Service struct {
	store *store.Store
	ai    ai.Backend
	cfg   Config
	locks *keyLock
}

// New creates a grading service.
func New(st *store.Store, backend ai.Backend, cfg Config) *Service {
	if cfg.FailureMode == "" {
		cfg.FailureMode = FailStrict
	}
	if cfg.MistakeSample <= 0 {
		cfg.MistakeSample = DefaultMistakeSample
	}
	return &Service{
		store: st,
		ai:    backend,
		cfg:   cfg,
		locks: newKeyLock(),
	}
}

// ParseFailureMode validates a failure mode name.
func ParseFailureMode(s string) (FailureMode, error) {
	switch m := FailureMode(strings.ToLower(strings.TrimSpace(s))); m {
	case FailStrict, FailLenient:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown AI failure mode %q", ErrValidation, s)
}

// verdict is the outcome of grading one answer.
type verdict struct {
	score    float64
	comment  string
	full     bool
	aiFailed bool
}

// grade scores one answer. Subjective answers call the AI grader; when
// degrade is set an AI failure becomes a zero score instead of an error.
func (s *Service) grade(ctx context.Context, q model.Question, ans model.Answer, path string, degrade bool) (verdict, error) {
	var v verdict
	if q.Type.Objective() {
		score, correct := GradeObjective(q.Type, q.Answer.Text(), ans.Text(), q.Score)
		v = verdict{score: score, full: correct, comment: i18n.T(ctx, "Incorrect")}
		if correct {
			v.comment = i18n.T(ctx, "Correct")
		}
	} else {
		start := time.Now()
		res, err := s.ai.Grade(ctx, ai.GradeRequest{
			Question:        q.Text,
			Answer:          ans.Text(),
			ReferenceAnswer: q.Answer.Text(),
			MaxScore:        q.Score,
		})
		metrics.ObserveAI("grade", start)
		if err != nil {
			metrics.AIFailures.WithLabelValues(path).Inc()
			slog.Warn("AI grading failed", "question_id", q.ID, "path", path, "error", err)
			if !degrade {
				return verdict{}, fmt.Errorf("%w: grade question %d: %w", ErrAIBackend, q.ID, err)
			}
			v = verdict{comment: i18n.T(ctx, "AIGradingFailed"), aiFailed: true}
		} else {
			score := ai.Clamp(res.Score, q.Score)
			v = verdict{score: score, comment: res.Comment, full: score >= q.Score}
		}
	}
	metrics.AnswersGraded.WithLabelValues(string(q.Type), path, v.label()).Inc()
	return v, nil
}

func (v verdict) label() string {
	switch {
	case v.aiFailed:
		return "ai_failed"
	case v.full:
		return "full"
	case v.score > 0:
		return "partial"
	}
	return "zero"
}

// explain returns the student-facing explanation for an answer scoring below
// its question's point value. The subjective form never carries the reference
// answer.
func explain(ctx context.Context, q model.Question, ans model.Answer, v verdict) (string, bool) {
	if v.score >= q.Score {
		return "", false
	}
	if q.Type.Objective() {
		return i18n.Td(ctx, "ExplanationObjective", map[string]any{
			"Question": q.Text,
			"Answer":   ans.Text(),
			"Correct":  q.Answer.Text(),
		}), true
	}
	comment := v.comment
	if ref := strings.TrimSpace(q.Answer.Text()); ref != "" {
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(ref))
		comment = re.ReplaceAllLiteralString(comment, i18n.T(ctx, "Redacted"))
	}
	return i18n.Td(ctx, "ExplanationSubjective", map[string]any{
		"Question": q.Text,
		"Comment":  comment,
	}), true
}

// recordOutcome keeps the mistake book in step with a freshly graded answer.
// tx must be bound to the caller's transaction.
func recordOutcome(ctx context.Context, tx *store.Store, studentID int64, q model.Question, ans model.Answer, v verdict) error {
	if v.full {
		if _, err := tx.DeleteMistake(ctx, studentID, q.ID); err != nil {
			return fmt.Errorf("clear mistake: %w", err)
		}
		return nil
	}
	if err := tx.RecordMistake(ctx, studentID, q.ID, ans.Text()); err != nil {
		return fmt.Errorf("record mistake: %w", err)
	}
	return nil
}

func (s *Service) lock(homeworkID, studentID int64) func() {
	return s.locks.Lock(resultKey{homeworkID: homeworkID, studentID: studentID})
}

func requireUser(u *model.User) error {
	if u == nil || !u.Active {
		return fmt.Errorf("%w: unknown or inactive user", ErrPermission)
	}
	return nil
}

func requireTeacher(u *model.User) error {
	if !u.IsVerifiedTeacher() {
		return fmt.Errorf("%w: verified teacher required", ErrPermission)
	}
	return nil
}

func scorePtr(v float64) *float64 { return &v }
