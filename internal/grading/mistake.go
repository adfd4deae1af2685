package grading

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/Yiteng-CHEN/snaplearn/internal/i18n"
	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

// MistakeView is a mistake book entry as shown to its student. It never
// carries the canonical answer.
type MistakeView struct {
	QuestionID      int64              `json:"question_id"`
	Type            model.QuestionType `json:"question_type"`
	Text            string             `json:"text"`
	Options         []model.Option     `json:"options"`
	Score           float64            `json:"score"`
	WrongTimes      int                `json:"wrong_times"`
	WrongLabel      string             `json:"wrong_label"`
	LastWrongAnswer string             `json:"last_wrong_answer"`
}

// MistakeBook returns a random sample of the student's mistake entries.
func (s *Service) MistakeBook(ctx context.Context, student *model.User) ([]MistakeView, error) {
	if err := requireUser(student); err != nil {
		return nil, err
	}
	entries, err := s.store.ListMistakes(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("list mistakes: %w", err)
	}
	rand.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})
	if len(entries) > s.cfg.MistakeSample {
		entries = entries[:s.cfg.MistakeSample]
	}

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.QuestionID
	}
	questions, err := s.store.GetQuestions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}

	views := make([]MistakeView, 0, len(entries))
	for _, e := range entries {
		q, ok := questions[e.QuestionID]
		if !ok {
			continue
		}
		views = append(views, MistakeView{
			QuestionID:      q.ID,
			Type:            q.Type,
			Text:            q.Text,
			Options:         q.Options,
			Score:           q.Score,
			WrongTimes:      e.WrongTimes,
			WrongLabel:      i18n.Tp(ctx, "MistakeCount", e.WrongTimes),
			LastWrongAnswer: e.LastWrongAnswer,
		})
	}
	return views, nil
}

// ReportMistake records a practice outcome for an existing entry: a correct
// answer removes it, a wrong one bumps its counter.
func (s *Service) ReportMistake(ctx context.Context, student *model.User, questionID int64, correct bool) error {
	if err := requireUser(student); err != nil {
		return err
	}
	var (
		found bool
		err   error
	)
	if correct {
		found, err = s.store.DeleteMistake(ctx, student.ID, questionID)
	} else {
		found, err = s.store.IncrementMistake(ctx, student.ID, questionID)
	}
	if err != nil {
		return fmt.Errorf("update mistake book: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: no mistake entry for question %d", ErrNotFound, questionID)
	}
	return nil
}
