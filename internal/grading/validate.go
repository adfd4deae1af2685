package grading

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// checkAnswerShape rejects a payload that cannot answer q: a list for a
// subjective question, or more than one option for a single choice.
func checkAnswerShape(q model.Question, ans model.Answer) error {
	switch q.Type {
	case model.QuestionSubjective:
		if ans.IsList() {
			return fmt.Errorf("%w: question %d expects a text answer", ErrValidation, q.ID)
		}
	case model.QuestionSingle:
		if len(ans.Options()) > 1 {
			return fmt.Errorf("%w: question %d accepts a single option", ErrValidation, q.ID)
		}
	}
	return nil
}

// newQuestions validates and converts the questions of a homework import.
func newQuestions(in []model.QuestionImport) ([]model.Question, error) {
	out := make([]model.Question, 0, len(in))
	for i, qi := range in {
		q, err := newQuestion(qi)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		out = append(out, q)
	}
	return out, nil
}

// newQuestion validates one question import. Choice answers are stored as
// a normalized list of option IDs.
func newQuestion(qi model.QuestionImport) (model.Question, error) {
	if err := validateStruct(qi); err != nil {
		return model.Question{}, err
	}
	q := model.Question{
		Type:    qi.Type,
		Text:    strings.TrimSpace(qi.Text),
		Options: qi.Options,
		Score:   model.DefaultQuestionScore,
	}
	if qi.Score != nil {
		if !(*qi.Score > 0) {
			return model.Question{}, fmt.Errorf("%w: score must be positive", ErrValidation)
		}
		q.Score = *qi.Score
	}

	if !qi.Type.Objective() {
		if !qi.Answer.IsText() || strings.TrimSpace(qi.Answer.Text()) == "" {
			return model.Question{}, fmt.Errorf("%w: subjective answer must be non-empty text", ErrValidation)
		}
		q.Answer = model.TextAnswer(strings.TrimSpace(qi.Answer.Text()))
		return q, nil
	}

	known := make(map[string]bool, len(qi.Options))
	for _, o := range qi.Options {
		id := normalizeOption(o.ID)
		if known[id] {
			return model.Question{}, fmt.Errorf("%w: duplicate option %q", ErrValidation, o.ID)
		}
		known[id] = true
	}
	ids := qi.Answer.Options()
	if len(ids) == 0 {
		return model.Question{}, fmt.Errorf("%w: choice answer must list at least one option", ErrValidation)
	}
	if qi.Type == model.QuestionSingle && len(ids) != 1 {
		return model.Question{}, fmt.Errorf("%w: single choice answer must have exactly one option", ErrValidation)
	}
	seen := make(map[string]bool, len(ids))
	norm := make([]string, 0, len(ids))
	for _, id := range ids {
		id = normalizeOption(id)
		if id == "" || strings.Contains(id, ",") {
			return model.Question{}, fmt.Errorf("%w: invalid option id %q", ErrValidation, id)
		}
		if seen[id] {
			return model.Question{}, fmt.Errorf("%w: option %q repeated in answer", ErrValidation, id)
		}
		if len(known) > 0 && !known[id] {
			return model.Question{}, fmt.Errorf("%w: answer option %q is not among the options", ErrValidation, id)
		}
		seen[id] = true
		norm = append(norm, id)
	}
	q.Answer = model.OptionsAnswer(norm...)
	return q, nil
}

// validateStruct runs the struct tag rules and maps failures to ErrValidation.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
