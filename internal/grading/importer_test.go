package grading

import (
	"errors"
	"testing"
)

const seedFile = `[
  {
    "title": "Channels",
    "questions": [
      {"question_type": "single", "text": "Unbuffered send blocks?", "options": [{"id": "A", "text": "yes"}, {"id": "B", "text": "no"}], "answer": ["A"], "score": 2},
      {"question_type": "subjective", "text": "Why close a channel?", "answer": "to signal no more values"}
    ]
  },
  {"title": "Empty"}
]`

func TestImportHomeworkFile(t *testing.T) {
	f := newFixture(t, "zh", Config{})

	ids, err := f.svc.ImportHomeworkFile(f.ctx, f.teacher, "seed.json", []byte(seedFile))
	if err != nil {
		t.Fatalf("ImportHomeworkFile: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("imported %d homeworks, want 2", len(ids))
	}
	questions, err := f.st.ListQuestions(f.ctx, ids[0])
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if len(questions) != 2 || questions[0].Score != 2 || questions[1].Score != 5 {
		t.Errorf("questions = %+v", questions)
	}

	if _, err := f.svc.ImportHomeworkFile(f.ctx, f.teacher, "seed.json", []byte(seedFile)); !errors.Is(err, ErrConflict) {
		t.Errorf("same file again: got %v, want ErrConflict", err)
	}
	if _, err := f.svc.ImportHomeworkFile(f.ctx, f.teacher, "seed.json", []byte(`[]`)); !errors.Is(err, ErrConflict) {
		t.Errorf("changed file: got %v, want ErrConflict", err)
	}
	if _, err := f.svc.ImportHomeworkFile(f.ctx, f.teacher, "bad.json", []byte(`{`)); !errors.Is(err, ErrValidation) {
		t.Errorf("malformed file: got %v, want ErrValidation", err)
	}
	if _, err := f.svc.ImportHomeworkFile(f.ctx, f.student, "other.json", []byte(`[]`)); !errors.Is(err, ErrPermission) {
		t.Errorf("student import: got %v, want ErrPermission", err)
	}
}
