package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

// ExportHomework builds export-ready results for every student who submitted
// the homework. It returns nil if the homework does not exist.
func (s *Store) ExportHomework(ctx context.Context, homeworkID int64) (*model.HomeworkExport, error) {
	hw, err := s.GetHomework(ctx, homeworkID)
	if err != nil {
		return nil, fmt.Errorf("get homework %d: %w", homeworkID, err)
	}
	if hw == nil {
		return nil, nil
	}
	questions, err := s.ListQuestions(ctx, homeworkID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	byID := make(map[int64]model.Question, len(questions))
	var maxScore float64
	for _, q := range questions {
		byID[q.ID] = q
		maxScore += q.Score
	}

	results, err := s.ListResults(ctx, homeworkID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	export := &model.HomeworkExport{
		HomeworkID:   hw.ID,
		Title:        hw.Title,
		ExportedAt:   time.Now().UTC(),
		NumQuestions: len(questions),
		MaxScore:     maxScore,
		Results:      []model.StudentResult{},
	}
	for _, r := range results {
		user, err := s.GetUserByID(ctx, r.StudentID)
		if err != nil {
			return nil, fmt.Errorf("get user %d: %w", r.StudentID, err)
		}
		answers, err := s.CurrentAnswers(ctx, homeworkID, r.StudentID)
		if err != nil {
			return nil, fmt.Errorf("current answers of student %d: %w", r.StudentID, err)
		}
		corrected, err := s.CorrectedAnswerIDs(ctx, homeworkID, r.StudentID)
		if err != nil {
			return nil, fmt.Errorf("corrections of student %d: %w", r.StudentID, err)
		}

		sr := model.StudentResult{
			StudentID:    r.StudentID,
			Status:       r.Status,
			TotalScore:   r.TotalScore,
			SubmittedAt:  r.SubmittedAt,
			Explanations: r.Explanations,
		}
		if user != nil {
			sr.Username = user.Username
			sr.DisplayName = user.DisplayName
		}
		for _, a := range answers {
			q := byID[a.QuestionID]
			sr.Questions = append(sr.Questions, model.QuestionResult{
				QuestionID: q.ID,
				Type:       q.Type,
				Text:       q.Text,
				MaxScore:   q.Score,
				Answer:     a.Answer,
				Score:      a.Score,
				Comment:    a.Comment,
				Corrected:  corrected[a.ID],
			})
		}
		export.Results = append(export.Results, sr)
	}
	return export, nil
}
