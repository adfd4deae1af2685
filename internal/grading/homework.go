package grading

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
	"github.com/Yiteng-CHEN/snaplearn/internal/store"
)

// Submission is the outcome of grading a whole homework.
type Submission struct {
	HomeworkID   int64                 `json:"homework_id"`
	TotalScore   float64               `json:"total_score"`
	Explanations []string              `json:"explanations"`
	Answers      []model.StudentAnswer `json:"answers"`
}

// SubmitHomework grades one answer per question of the homework and stores the
// answers together with the aggregate result. answers is keyed by the
// question's zero-based position or by its ID; a question with no usable entry
// is graded as an empty answer. AI failures degrade to a zero score with a
// localized comment and never fail the submission.
func (s *Service) SubmitHomework(ctx context.Context, student *model.User, homeworkID int64, answers map[string]model.Answer) (*Submission, error) {
	if err := requireUser(student); err != nil {
		return nil, err
	}
	hw, err := s.store.GetHomework(ctx, homeworkID)
	if err != nil {
		return nil, fmt.Errorf("get homework: %w", err)
	}
	if hw == nil {
		return nil, fmt.Errorf("%w: homework %d", ErrNotFound, homeworkID)
	}
	return s.submitHomework(ctx, student, hw, answers)
}

// SubmitHomeworkByVideo is SubmitHomework for the homework attached to a video.
func (s *Service) SubmitHomeworkByVideo(ctx context.Context, student *model.User, videoID int64, answers map[string]model.Answer) (*Submission, error) {
	if err := requireUser(student); err != nil {
		return nil, err
	}
	hw, err := s.store.GetHomeworkByVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("get homework by video: %w", err)
	}
	if hw == nil {
		return nil, fmt.Errorf("%w: no homework for video %d", ErrNotFound, videoID)
	}
	return s.submitHomework(ctx, student, hw, answers)
}

type gradedAnswer struct {
	question model.Question
	answer   model.Answer
	verdict  verdict
}

func (s *Service) submitHomework(ctx context.Context, student *model.User, hw *model.Homework, answers map[string]model.Answer) (*Submission, error) {
	questions, err := s.store.ListQuestions(ctx, hw.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	resolved := make([]model.Answer, len(questions))
	for idx, q := range questions {
		resolved[idx] = resolveAnswer(answers, idx, q.ID)
		if err := checkAnswerShape(q, resolved[idx]); err != nil {
			return nil, err
		}
	}

	// Grade everything before taking the lock; AI calls may be slow.
	graded := make([]gradedAnswer, 0, len(questions))
	sub := &Submission{HomeworkID: hw.ID, Explanations: []string{}}
	for idx, q := range questions {
		ans := resolved[idx]
		v, err := s.grade(ctx, q, ans, pathHomework, true)
		if err != nil {
			return nil, err
		}
		graded = append(graded, gradedAnswer{question: q, answer: ans, verdict: v})
		sub.TotalScore += v.score
		if e, ok := explain(ctx, q, ans, v); ok {
			sub.Explanations = append(sub.Explanations, e)
		}
	}

	unlock := s.lock(hw.ID, student.ID)
	defer unlock()

	err = s.store.InTx(ctx, func(tx *store.Store) error {
		sub.Answers = make([]model.StudentAnswer, 0, len(graded))
		for _, g := range graded {
			saved, err := tx.InsertAnswer(ctx, model.StudentAnswer{
				QuestionID: g.question.ID,
				StudentID:  student.ID,
				Answer:     g.answer,
				Score:      scorePtr(g.verdict.score),
				Comment:    g.verdict.comment,
				Graded:     true,
			})
			if err != nil {
				return fmt.Errorf("insert answer for question %d: %w", g.question.ID, err)
			}
			if err := recordOutcome(ctx, tx, student.ID, g.question, g.answer, g.verdict); err != nil {
				return err
			}
			sub.Answers = append(sub.Answers, saved)
		}
		if err := tx.UpsertResult(ctx, model.StudentHomeworkResult{
			HomeworkID:   hw.ID,
			StudentID:    student.ID,
			TotalScore:   scorePtr(sub.TotalScore),
			Explanations: sub.Explanations,
			Status:       model.ResultGraded,
		}); err != nil {
			return fmt.Errorf("upsert result: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("homework graded",
		"student_id", student.ID, "homework_id", hw.ID,
		"questions", len(questions), "total", sub.TotalScore)
	return sub, nil
}

// resolveAnswer looks an answer up by positional index first, then by
// question ID. A blank entry counts as absent.
func resolveAnswer(answers map[string]model.Answer, idx int, questionID int64) model.Answer {
	for _, key := range []string{strconv.Itoa(idx), strconv.FormatInt(questionID, 10)} {
		if a, ok := answers[key]; ok && strings.TrimSpace(a.Text()) != "" {
			return a
		}
	}
	return model.TextAnswer("")
}
