package grading

import (
	"testing"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

func TestGradeObjective(t *testing.T) {
	tests := []struct {
		name      string
		qtype     model.QuestionType
		canonical string
		submitted string
		want      float64
		correct   bool
	}{
		{"single exact", model.QuestionSingle, "A", "A", 2, true},
		{"single padded lowercase", model.QuestionSingle, "A", " a ", 2, true},
		{"single wrong", model.QuestionSingle, "A", "B", 0, false},
		{"single empty", model.QuestionSingle, "A", "", 0, false},
		{"single empty canonical", model.QuestionSingle, "", "", 0, false},
		{"multiple same order", model.QuestionMultiple, "A,C", "A,C", 2, true},
		{"multiple reordered and spaced", model.QuestionMultiple, "A,C", " c , a", 2, true},
		{"multiple subset", model.QuestionMultiple, "A,C", "A", 0, false},
		{"multiple superset", model.QuestionMultiple, "A,C", "A,B,C", 0, false},
		{"multiple duplicate token", model.QuestionMultiple, "A", "A,A", 0, false},
		{"multiple duplicate inflating size", model.QuestionMultiple, "A,B", "A,A", 0, false},
		{"multiple empty tokens dropped", model.QuestionMultiple, "A,B", "A,,B,", 2, true},
		{"subjective never objective", model.QuestionSubjective, "x", "x", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, correct := GradeObjective(tt.qtype, tt.canonical, tt.submitted, 2)
			if got != tt.want || correct != tt.correct {
				t.Errorf("GradeObjective(%s, %q, %q) = (%v, %v), want (%v, %v)",
					tt.qtype, tt.canonical, tt.submitted, got, correct, tt.want, tt.correct)
			}
		})
	}
}

func TestGradeObjectiveDeterministic(t *testing.T) {
	for i := 0; i < 5; i++ {
		if got, _ := GradeObjective(model.QuestionMultiple, "B,A", "a,b", 3); got != 3 {
			t.Fatalf("run %d: got %v, want 3", i, got)
		}
	}
}
