package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

func TestMistakeBookLifecycle(t *testing.T) {
	f := newFixture(t, "en", Config{})
	hw := f.createHomework(t, single("q1", "A", 1))
	q := hw.Questions[0]

	for _, ans := range []string{"B", "C"} {
		if _, err := f.svc.SubmitAnswer(f.ctx, f.student, q.ID, model.TextAnswer(ans)); err != nil {
			t.Fatalf("SubmitAnswer(%s): %v", ans, err)
		}
	}
	book, err := f.svc.MistakeBook(f.ctx, f.student)
	if err != nil {
		t.Fatalf("MistakeBook: %v", err)
	}
	if len(book) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(book))
	}
	e := book[0]
	if e.WrongTimes != 2 || e.LastWrongAnswer != "C" || e.WrongLabel != "wrong 2 times" {
		t.Errorf("entry = %+v", e)
	}

	// A correct answer evicts the entry.
	if _, err := f.svc.SubmitAnswer(f.ctx, f.student, q.ID, model.TextAnswer("a")); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	book, err = f.svc.MistakeBook(f.ctx, f.student)
	if err != nil {
		t.Fatalf("MistakeBook: %v", err)
	}
	if len(book) != 0 {
		t.Errorf("expected empty mistake book, got %+v", book)
	}
}

func TestMistakeBookSampleHidesAnswers(t *testing.T) {
	f := newFixture(t, "zh", Config{})
	var questions []model.QuestionImport
	for i := 0; i < 12; i++ {
		questions = append(questions, single(fmt.Sprintf("q%d", i), "D", 1))
	}
	hw := f.createHomework(t, questions...)
	for _, q := range hw.Questions {
		if _, err := f.svc.SubmitAnswer(f.ctx, f.student, q.ID, model.TextAnswer("A")); err != nil {
			t.Fatalf("SubmitAnswer: %v", err)
		}
	}

	book, err := f.svc.MistakeBook(f.ctx, f.student)
	if err != nil {
		t.Fatalf("MistakeBook: %v", err)
	}
	if len(book) != DefaultMistakeSample {
		t.Errorf("sample size = %d, want %d", len(book), DefaultMistakeSample)
	}
	seen := make(map[int64]bool)
	for _, e := range book {
		if seen[e.QuestionID] {
			t.Errorf("question %d sampled twice", e.QuestionID)
		}
		seen[e.QuestionID] = true
	}
	data, err := json.Marshal(book)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), `"answer"`) {
		t.Errorf("mistake book exposes canonical answers: %s", data)
	}

	other := f.addUser(t, "other", false)
	book, err = f.svc.MistakeBook(f.ctx, other)
	if err != nil {
		t.Fatalf("MistakeBook(other): %v", err)
	}
	if len(book) != 0 {
		t.Errorf("other student sees %d entries", len(book))
	}
}

func TestReportMistake(t *testing.T) {
	f := newFixture(t, "zh", Config{})
	hw := f.createHomework(t, single("q1", "A", 1))
	q := hw.Questions[0]

	if err := f.svc.ReportMistake(f.ctx, f.student, q.ID, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("no entry: got %v, want ErrNotFound", err)
	}
	if _, err := f.svc.SubmitAnswer(f.ctx, f.student, q.ID, model.TextAnswer("B")); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if err := f.svc.ReportMistake(f.ctx, f.student, q.ID, false); err != nil {
		t.Fatalf("ReportMistake(wrong): %v", err)
	}
	m, err := f.st.GetMistake(f.ctx, f.student.ID, q.ID)
	if err != nil {
		t.Fatalf("GetMistake: %v", err)
	}
	if m == nil || m.WrongTimes != 2 {
		t.Errorf("entry = %+v, want wrong_times 2", m)
	}
	if err := f.svc.ReportMistake(f.ctx, f.student, q.ID, true); err != nil {
		t.Fatalf("ReportMistake(correct): %v", err)
	}
	if m, _ := f.st.GetMistake(f.ctx, f.student.ID, q.ID); m != nil {
		t.Errorf("entry should be removed, got %+v", m)
	}
}
