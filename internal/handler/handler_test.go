package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Yiteng-CHEN/snaplearn/internal/ai"
	"github.com/Yiteng-CHEN/snaplearn/internal/grading"
	"github.com/Yiteng-CHEN/snaplearn/internal/i18n"
	"github.com/Yiteng-CHEN/snaplearn/internal/metrics"
	"github.com/Yiteng-CHEN/snaplearn/internal/model"
	"github.com/Yiteng-CHEN/snaplearn/internal/store"
)

type stubAI struct {
	result ai.GradeResult
	err    error
}

func (s *stubAI) Grade(context.Context, ai.GradeRequest) (ai.GradeResult, error) {
	return s.result, s.err
}

func (s *stubAI) Ask(context.Context, string) (string, error) {
	return "try drawing it", s.err
}

type testServer struct {
	router  http.Handler
	store   *store.Store
	ai      *stubAI
	teacher int64
	student int64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	if err := i18n.Init("zh"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ts := &testServer{store: st, ai: &stubAI{result: ai.GradeResult{Score: 3, Comment: "partial"}}}
	ts.teacher = ts.addUser(t, model.User{Username: "t", Role: model.UserRoleTeacher, VerifiedTeacher: true, Active: true})
	ts.student = ts.addUser(t, model.User{Username: "s", Role: model.UserRoleStudent, Active: true})

	h := New(grading.New(st, ts.ai, grading.Config{}), st)
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(metrics.Middleware)
	r.Use(i18n.Middleware)
	h.Routes(r)
	ts.router = r
	return ts
}

func (ts *testServer) addUser(t *testing.T, u model.User) int64 {
	t.Helper()
	id, err := ts.store.CreateUser(context.Background(), u)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return id
}

func (ts *testServer) do(t *testing.T, method, path string, user int64, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != 0 {
		req.Header.Set(UserIDHeader, strconv.FormatInt(user, 10))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (ts *testServer) createHomework(t *testing.T) grading.HomeworkDetail {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/teacher/homeworks", ts.teacher, map[string]any{
		"title": "第一课",
		"questions": []map[string]any{
			{"question_type": "single", "text": "选择B", "options": []map[string]string{{"id": "A"}, {"id": "B"}}, "answer": []string{"B"}, "score": 2},
			{"question_type": "subjective", "text": "解释一下", "answer": "参考答案", "score": 5},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create homework: status %d body %s", rec.Code, rec.Body)
	}
	return decode[grading.HomeworkDetail](t, rec)
}

func TestIdentityRequired(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not a number", "abc"},
		{"unknown user", "9999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/homeworks", nil)
			if tt.header != "" {
				req.Header.Set(UserIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			ts.router.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}

	inactive := ts.addUser(t, model.User{Username: "gone", Role: model.UserRoleStudent})
	if rec := ts.do(t, http.MethodGet, "/homeworks", inactive, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("inactive user: status = %d, want 401", rec.Code)
	}
}

func TestSubmitHomeworkEndpoint(t *testing.T) {
	ts := newTestServer(t)
	hw := ts.createHomework(t)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/homeworks/%d/submit", hw.ID), ts.student, map[string]any{
		"answers": map[string]any{"0": "B", "1": "ok"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
	sub := decode[grading.Submission](t, rec)
	if sub.TotalScore != 5 {
		t.Errorf("total = %v, want 5", sub.TotalScore)
	}
	if len(sub.Explanations) != 1 || sub.Explanations[0] != "题目：解释一下，AI评语：partial" {
		t.Errorf("explanations = %q", sub.Explanations)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected a request ID header")
	}
}

func TestStudentHomeworkListHidesAnswers(t *testing.T) {
	ts := newTestServer(t)
	ts.createHomework(t)

	rec := ts.do(t, http.MethodGet, "/homeworks", ts.student, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("参考答案")) {
		t.Errorf("student list leaks answers: %s", rec.Body)
	}
}

func TestSubmitAnswerLocalized(t *testing.T) {
	ts := newTestServer(t)
	hw := ts.createHomework(t)
	path := fmt.Sprintf("/questions/%d/answer", hw.Questions[0].ID)

	rec := ts.do(t, http.MethodPost, path, ts.student, map[string]any{"answer": " b "}, "Accept-Language", "en")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
	a := decode[model.StudentAnswer](t, rec)
	if a.ScoreValue() != 2 || a.Comment != "Correct" {
		t.Errorf("answer = %+v", a)
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	hw := ts.createHomework(t)
	subjectivePath := fmt.Sprintf("/questions/%d/answer", hw.Questions[1].ID)

	tests := []struct {
		name   string
		method string
		path   string
		user   int64
		body   any
		want   int
	}{
		{"unknown question", http.MethodPost, "/questions/9999/answer", ts.student, map[string]any{"answer": "A"}, http.StatusNotFound},
		{"bad id", http.MethodPost, "/questions/abc/answer", ts.student, map[string]any{"answer": "A"}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, subjectivePath, ts.student, `{"answer":`, http.StatusBadRequest},
		{"object answer", http.MethodPost, subjectivePath, ts.student, `{"answer":{"x":1}}`, http.StatusBadRequest},
		{"missing answers map", http.MethodPost, fmt.Sprintf("/homeworks/%d/submit", hw.ID), ts.student, map[string]any{}, http.StatusBadRequest},
		{"student on teacher route", http.MethodGet, "/teacher/homeworks", ts.student, nil, http.StatusForbidden},
		{"mistake without entry", http.MethodPost, "/mistakes", ts.student, map[string]any{"question_id": hw.Questions[0].ID, "correct": true}, http.StatusNotFound},
		{"mistake missing flag", http.MethodPost, "/mistakes", ts.student, map[string]any{"question_id": hw.Questions[0].ID}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.user, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
			if rec.Code >= 400 {
				if e := decode[errorResponse](t, rec); e.Error == "" {
					t.Error("expected an error message")
				}
			}
		})
	}

	ts.ai.err = fmt.Errorf("%w: timeout", ai.ErrBackend)
	rec := ts.do(t, http.MethodPost, subjectivePath, ts.student, map[string]any{"answer": "text"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("AI outage: status = %d, want 502", rec.Code)
	}
}

func TestCorrectionEndpoints(t *testing.T) {
	ts := newTestServer(t)
	hw := ts.createHomework(t)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/homeworks/%d/submit", hw.ID), ts.student, map[string]any{
		"answers": map[string]any{"0": "A", "1": "ok"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: status %d", rec.Code)
	}
	sub := decode[grading.Submission](t, rec)
	objective := sub.Answers[0].ID
	subjective := sub.Answers[1].ID

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/teacher/answers/%d/score", objective), ts.teacher, map[string]any{"score": 9})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("score above max: status = %d, want 400", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/teacher/answers/%d/score", objective), ts.teacher, map[string]any{"score": 2, "comment": "ok"})
	if rec.Code != http.StatusOK {
		t.Fatalf("correct score: status %d body %s", rec.Code, rec.Body)
	}
	trail := decode[grading.AuditTrail](t, rec)
	if len(trail.Score) != 1 {
		t.Errorf("trail = %+v", trail)
	}

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/teacher/answers/%d/subjective", subjective), ts.teacher, map[string]any{"score": 5, "comment": "full marks"})
	if rec.Code != http.StatusOK {
		t.Fatalf("correct subjective: status %d body %s", rec.Code, rec.Body)
	}

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/teacher/homeworks/%d/students", hw.ID), ts.teacher, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("students: status %d", rec.Code)
	}
	students := decode[[]grading.StudentSummary](t, rec)
	if len(students) != 1 || *students[0].TotalScore != 7 {
		t.Errorf("students = %+v, want one with total 7", students)
	}

	unverified := ts.addUser(t, model.User{Username: "u", Role: model.UserRoleTeacher, Active: true})
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/teacher/answers/%d/score", objective), unverified, map[string]any{"score": 1})
	if rec.Code != http.StatusForbidden {
		t.Errorf("unverified teacher: status = %d, want 403", rec.Code)
	}
}

func TestRegradeAndReconcileEndpoints(t *testing.T) {
	ts := newTestServer(t)
	hw := ts.createHomework(t)
	if rec := ts.do(t, http.MethodPost, fmt.Sprintf("/homeworks/%d/submit", hw.ID), ts.student, map[string]any{
		"answers": map[string]any{"0": "B", "1": "ok"},
	}); rec.Code != http.StatusOK {
		t.Fatalf("submit: status %d", rec.Code)
	}

	path := fmt.Sprintf("/teacher/homeworks/%d/students/%d/regrade", hw.ID, ts.student)
	if rec := ts.do(t, http.MethodPost, path, ts.teacher, nil); rec.Code != http.StatusAccepted {
		t.Fatalf("regrade: status %d body %s", rec.Code, rec.Body)
	}
	ts.ai.result = ai.GradeResult{Score: 5, Comment: "great"}
	rec := ts.do(t, http.MethodPost, "/teacher/reconcile", ts.teacher, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reconcile: status %d", rec.Code)
	}
	if report := decode[grading.ReconcileReport](t, rec); report.Graded != 1 {
		t.Errorf("report = %+v", report)
	}

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/teacher/homeworks/%d/export", hw.ID), ts.teacher, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status %d", rec.Code)
	}
	exp := decode[model.HomeworkExport](t, rec)
	if len(exp.Results) != 1 || *exp.Results[0].TotalScore != 7 {
		t.Errorf("export = %+v", exp)
	}
}

func TestHintEndpoints(t *testing.T) {
	ts := newTestServer(t)
	hw := ts.createHomework(t)
	qid := hw.Questions[1].ID

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/questions/%d/hint/solved", qid), ts.student, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("solved before hint: status = %d, want 404", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/questions/%d/hint", qid), ts.student, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("hint: status %d body %s", rec.Code, rec.Body)
	}
	if h := decode[grading.Hint](t, rec); h.Hint != "try drawing it" || h.Times != 1 {
		t.Errorf("hint = %+v", h)
	}
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/questions/%d/hint/solved", qid), ts.student, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("solved: status = %d", rec.Code)
	}
}
