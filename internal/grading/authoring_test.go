package grading

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

func TestCreateHomeworkValidation(t *testing.T) {
	f := newFixture(t, "zh", Config{})
	zero := 0.0

	tests := []struct {
		name string
		q    model.QuestionImport
	}{
		{"unknown type", model.QuestionImport{Type: "essay", Text: "q", Answer: model.TextAnswer("x")}},
		{"missing text", model.QuestionImport{Type: model.QuestionSubjective, Answer: model.TextAnswer("x")}},
		{"zero score", model.QuestionImport{Type: model.QuestionSubjective, Text: "q", Answer: model.TextAnswer("x"), Score: &zero}},
		{"subjective list answer", model.QuestionImport{Type: model.QuestionSubjective, Text: "q", Answer: model.OptionsAnswer("A")}},
		{"subjective empty answer", model.QuestionImport{Type: model.QuestionSubjective, Text: "q", Answer: model.TextAnswer(" ")}},
		{"single with two answers", model.QuestionImport{Type: model.QuestionSingle, Text: "q", Options: abcd(), Answer: model.OptionsAnswer("A", "B")}},
		{"choice without answer", model.QuestionImport{Type: model.QuestionMultiple, Text: "q", Options: abcd(), Answer: model.OptionsAnswer()}},
		{"answer not an option", model.QuestionImport{Type: model.QuestionSingle, Text: "q", Options: abcd(), Answer: model.OptionsAnswer("E")}},
		{"repeated answer", model.QuestionImport{Type: model.QuestionMultiple, Text: "q", Options: abcd(), Answer: model.OptionsAnswer("A", "a")}},
		{"option without id", model.QuestionImport{Type: model.QuestionSingle, Text: "q", Options: []model.Option{{Text: "x"}}, Answer: model.OptionsAnswer("A")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateHomework(f.ctx, f.teacher, model.HomeworkImport{Title: "hw", Questions: []model.QuestionImport{tt.q}})
			if !errors.Is(err, ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}

	if _, err := f.svc.CreateHomework(f.ctx, f.teacher, model.HomeworkImport{}); !errors.Is(err, ErrValidation) {
		t.Errorf("missing title: got %v, want ErrValidation", err)
	}
	if _, err := f.svc.CreateHomework(f.ctx, f.student, model.HomeworkImport{Title: "hw"}); !errors.Is(err, ErrPermission) {
		t.Errorf("student author: got %v, want ErrPermission", err)
	}
}

func TestCreateHomeworkNormalizesAnswers(t *testing.T) {
	f := newFixture(t, "zh", Config{})
	hw := f.createHomework(t,
		model.QuestionImport{Type: model.QuestionMultiple, Text: "q", Options: abcd(), Answer: model.TextAnswer(" b, a ")},
		model.QuestionImport{Type: model.QuestionSubjective, Text: "s", Answer: model.TextAnswer("ref")},
	)
	if got := hw.Questions[0].Answer.Text(); got != "B,A" {
		t.Errorf("normalized answer = %q, want 'B,A'", got)
	}
	if hw.Questions[1].Score != model.DefaultQuestionScore {
		t.Errorf("default score = %v, want %v", hw.Questions[1].Score, model.DefaultQuestionScore)
	}
	if hw.Questions[0].Position != 0 || hw.Questions[1].Position != 1 {
		t.Errorf("positions = %d, %d", hw.Questions[0].Position, hw.Questions[1].Position)
	}
}

func TestCreateHomeworkVideoUnique(t *testing.T) {
	f := newFixture(t, "zh", Config{})
	video := int64(3)
	in := model.HomeworkImport{Title: "hw", VideoID: &video, Questions: []model.QuestionImport{single("q", "A", 1)}}
	if _, err := f.svc.CreateHomework(f.ctx, f.teacher, in); err != nil {
		t.Fatalf("CreateHomework: %v", err)
	}
	if _, err := f.svc.CreateHomework(f.ctx, f.teacher, in); !errors.Is(err, ErrValidation) {
		t.Errorf("second homework for video: got %v, want ErrValidation", err)
	}
}

func TestAddAndDeleteQuestionOwnership(t *testing.T) {
	f := newFixture(t, "zh", Config{})
	hw := f.createHomework(t, single("q1", "A", 1))
	other := f.addUser(t, "other-teacher", true)

	if _, err := f.svc.AddQuestion(f.ctx, other, hw.ID, single("q2", "B", 1)); !errors.Is(err, ErrPermission) {
		t.Errorf("foreign AddQuestion: got %v, want ErrPermission", err)
	}
	q, err := f.svc.AddQuestion(f.ctx, f.teacher, hw.ID, single("q2", "B", 1))
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	if q.Position != 1 || q.HomeworkID != hw.ID {
		t.Errorf("added question = %+v", q)
	}
	if _, err := f.svc.AddQuestion(f.ctx, f.teacher, 9999, single("q", "A", 1)); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing homework: got %v, want ErrNotFound", err)
	}

	if err := f.svc.DeleteHomework(f.ctx, other, hw.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("foreign DeleteHomework: got %v, want ErrPermission", err)
	}
	if err := f.svc.DeleteHomework(f.ctx, f.teacher, hw.ID); err != nil {
		t.Fatalf("DeleteHomework: %v", err)
	}
	if got, err := f.st.GetQuestion(f.ctx, q.ID); err != nil || got != nil {
		t.Errorf("question survived homework deletion: %+v, %v", got, err)
	}
}

func TestListHomeworksHidesAnswers(t *testing.T) {
	f := newFixture(t, "zh", Config{})
	f.createHomework(t, subjective("q", "secret reference", 5), single("p", "C", 1))

	views, err := f.svc.ListHomeworks(f.ctx)
	if err != nil {
		t.Fatalf("ListHomeworks: %v", err)
	}
	if len(views) != 1 || len(views[0].Questions) != 2 {
		t.Fatalf("views = %+v", views)
	}
	data, err := json.Marshal(views)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "secret reference") || strings.Contains(string(data), `"answer"`) {
		t.Errorf("student view exposes answers: %s", data)
	}
}

func TestTeacherReadSides(t *testing.T) {
	f := newFixture(t, "zh", Config{})
	hw := f.createHomework(t, single("q1", "A", 2))
	if _, err := f.svc.SubmitHomework(f.ctx, f.student, hw.ID, map[string]model.Answer{"0": model.TextAnswer("B")}); err != nil {
		t.Fatalf("SubmitHomework: %v", err)
	}
	latest, err := f.svc.SubmitAnswer(f.ctx, f.student, hw.Questions[0].ID, model.TextAnswer("A"))
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	mine, err := f.svc.TeacherHomeworks(f.ctx, f.teacher)
	if err != nil {
		t.Fatalf("TeacherHomeworks: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != hw.ID {
		t.Errorf("TeacherHomeworks = %+v", mine)
	}

	students, err := f.svc.HomeworkStudents(f.ctx, f.teacher, hw.ID)
	if err != nil {
		t.Fatalf("HomeworkStudents: %v", err)
	}
	if len(students) != 1 || students[0].Username != "student" || *students[0].TotalScore != 2 {
		t.Errorf("HomeworkStudents = %+v", students)
	}

	d, err := f.svc.StudentDetail(f.ctx, f.teacher, hw.ID, f.student.ID)
	if err != nil {
		t.Fatalf("StudentDetail: %v", err)
	}
	if len(d.Answers) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(d.Answers))
	}
	if d.Answers[0].Current || !d.Answers[1].Current || d.Answers[1].ID != latest.ID {
		t.Errorf("current flags wrong: %+v", d.Answers)
	}

	if _, err := f.svc.StudentDetail(f.ctx, f.teacher, hw.ID, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing result: got %v, want ErrNotFound", err)
	}
	if _, err := f.svc.HomeworkStudents(f.ctx, f.student, hw.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("student caller: got %v, want ErrPermission", err)
	}
}
