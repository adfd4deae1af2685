package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Yiteng-CHEN/snaplearn/internal/i18n"
	"github.com/Yiteng-CHEN/snaplearn/internal/metrics"
	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

// Hint is the AI's guidance for a question plus how often it was requested.
type Hint struct {
	QuestionID int64  `json:"question_id"`
	Hint       string `json:"hint"`
	Times      int    `json:"times"`
}

// RequestHint asks the AI for an approach to a question. The request is
// counted even when the AI call fails.
func (s *Service) RequestHint(ctx context.Context, student *model.User, questionID int64) (*Hint, error) {
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
	rec, err := s.store.IncrementHelp(ctx, student.ID, q.ID)
	if err != nil {
		return nil, fmt.Errorf("record help request: %w", err)
	}

	prompt := i18n.Td(ctx, "HintPrompt", map[string]any{"Question": q.Text})
	start := time.Now()
	answer, err := s.ai.Ask(ctx, prompt)
	metrics.ObserveAI("ask", start)
	if err != nil {
		metrics.AIFailures.WithLabelValues("hint").Inc()
		slog.Warn("AI hint failed", "question_id", q.ID, "error", err)
		if errors.Is(err, ErrAIBackend) {
			return nil, fmt.Errorf("ask for hint: %w", err)
		}
		return nil, fmt.Errorf("%w: ask for hint: %w", ErrAIBackend, err)
	}
	return &Hint{QuestionID: q.ID, Hint: answer, Times: rec.Times}, nil
}

// ReportHintSolved marks the student's help record for a question as solved
// and returns how many hints were requested.
func (s *Service) ReportHintSolved(ctx context.Context, student *model.User, questionID int64) (int, error) {
	if err := requireUser(student); err != nil {
		return 0, err
	}
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return 0, fmt.Errorf("get question: %w", err)
	}
	if q == nil {
		return 0, fmt.Errorf("%w: question %d", ErrNotFound, questionID)
	}
	rec, err := s.store.GetHelp(ctx, student.ID, q.ID)
	if err != nil {
		return 0, fmt.Errorf("get help record: %w", err)
	}
	if rec == nil {
		return 0, fmt.Errorf("%w: no help record for question %d", ErrNotFound, questionID)
	}
	if err := s.store.MarkHelpSolved(ctx, rec.ID); err != nil {
		return 0, fmt.Errorf("mark help solved: %w", err)
	}
	return rec.Times, nil
}
