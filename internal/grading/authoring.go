package grading

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

// QuestionView is a question as shown to students, without its answer.
type QuestionView struct {
	ID      int64              `json:"id"`
	Type    model.QuestionType `json:"question_type"`
	Text    string             `json:"text"`
	Options []model.Option     `json:"options"`
	Score   float64            `json:"score"`
}

// HomeworkView is a homework as shown to students.
type HomeworkView struct {
	model.Homework
	Questions []QuestionView `json:"questions"`
}

// HomeworkDetail is a homework with its full questions, for teachers.
type HomeworkDetail struct {
	model.Homework
	Questions []model.Question `json:"questions"`
}

// StudentSummary is one submitter of a homework.
type StudentSummary struct {
	StudentID   int64              `json:"student_id"`
	Username    string             `json:"username"`
	DisplayName string             `json:"display_name"`
	Status      model.ResultStatus `json:"status"`
	TotalScore  *float64           `json:"total_score"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

// AnswerDetail is one attempt in a StudentDetail.
type AnswerDetail struct {
	model.StudentAnswer
	QuestionText string             `json:"question_text"`
	QuestionType model.QuestionType `json:"question_type"`
	MaxScore     float64            `json:"max_score"`
	Current      bool               `json:"current"`
	Corrected    bool               `json:"corrected"`
}

// StudentDetail is a student's result and every attempt at a homework.
type StudentDetail struct {
	HomeworkID   int64              `json:"homework_id"`
	StudentID    int64              `json:"student_id"`
	Status       model.ResultStatus `json:"status"`
	TotalScore   *float64           `json:"total_score"`
	Explanations []string           `json:"explanations"`
	SubmittedAt  time.Time          `json:"submitted_at"`
	Answers      []AnswerDetail     `json:"answers"`
}

// CreateHomework validates and stores a homework with its questions.
func (s *Service) CreateHomework(ctx context.Context, teacher *model.User, in model.HomeworkImport) (*HomeworkDetail, error) {
	if err := requireTeacher(teacher); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	questions, err := newQuestions(in.Questions)
	if err != nil {
		return nil, err
	}
	if in.VideoID != nil {
		existing, err := s.store.GetHomeworkByVideo(ctx, *in.VideoID)
		if err != nil {
			return nil, fmt.Errorf("get homework by video: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: video %d already has homework %d", ErrValidation, *in.VideoID, existing.ID)
		}
	}

	hw := model.Homework{
		Title:       in.Title,
		Description: in.Description,
		TeacherID:   teacher.ID,
		VideoID:     in.VideoID,
	}
	id, err := s.store.CreateHomework(ctx, hw, questions)
	if err != nil {
		return nil, fmt.Errorf("create homework: %w", err)
	}
	slog.Info("homework created", "homework_id", id, "teacher_id", teacher.ID, "questions", len(questions))
	return s.homeworkDetail(ctx, id)
}

// AddQuestion appends a question to a homework owned by teacher.
func (s *Service) AddQuestion(ctx context.Context, teacher *model.User, homeworkID int64, in model.QuestionImport) (*model.Question, error) {
	hw, err := s.ownedHomework(ctx, teacher, homeworkID)
	if err != nil {
		return nil, err
	}
	q, err := newQuestion(in)
	if err != nil {
		return nil, err
	}
	q.HomeworkID = hw.ID
	id, err := s.store.InsertQuestion(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}
	saved, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return saved, nil
}

// DeleteHomework removes a homework owned by teacher along with its questions.
func (s *Service) DeleteHomework(ctx context.Context, teacher *model.User, homeworkID int64) error {
	if _, err := s.ownedHomework(ctx, teacher, homeworkID); err != nil {
		return err
	}
	if err := s.store.DeleteHomework(ctx, homeworkID); err != nil {
		return fmt.Errorf("delete homework: %w", err)
	}
	slog.Info("homework deleted", "homework_id", homeworkID, "teacher_id", teacher.ID)
	return nil
}

// ListHomeworks returns every homework with its questions, answers withheld.
func (s *Service) ListHomeworks(ctx context.Context) ([]HomeworkView, error) {
	hws, err := s.store.ListHomeworks(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list homeworks: %w", err)
	}
	views := make([]HomeworkView, 0, len(hws))
	for _, hw := range hws {
		questions, err := s.store.ListQuestions(ctx, hw.ID)
		if err != nil {
			return nil, fmt.Errorf("list questions of homework %d: %w", hw.ID, err)
		}
		v := HomeworkView{Homework: hw, Questions: make([]QuestionView, 0, len(questions))}
		for _, q := range questions {
			v.Questions = append(v.Questions, QuestionView{
				ID: q.ID, Type: q.Type, Text: q.Text, Options: q.Options, Score: q.Score,
			})
		}
		views = append(views, v)
	}
	return views, nil
}

// TeacherHomeworks returns the homework the teacher authored, newest first.
func (s *Service) TeacherHomeworks(ctx context.Context, teacher *model.User) ([]model.Homework, error) {
	if err := requireTeacher(teacher); err != nil {
		return nil, err
	}
	hws, err := s.store.ListHomeworks(ctx, teacher.ID)
	if err != nil {
		return nil, fmt.Errorf("list homeworks: %w", err)
	}
	if hws == nil {
		hws = []model.Homework{}
	}
	return hws, nil
}

// HomeworkStudents lists every student with a result for the homework.
func (s *Service) HomeworkStudents(ctx context.Context, teacher *model.User, homeworkID int64) ([]StudentSummary, error) {
	if _, err := s.teacherHomework(ctx, teacher, homeworkID); err != nil {
		return nil, err
	}
	results, err := s.store.ListResults(ctx, homeworkID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	out := make([]StudentSummary, 0, len(results))
	for _, r := range results {
		sum := StudentSummary{
			StudentID:   r.StudentID,
			Status:      r.Status,
			TotalScore:  r.TotalScore,
			SubmittedAt: r.SubmittedAt,
		}
		u, err := s.store.GetUserByID(ctx, r.StudentID)
		if err != nil {
			return nil, fmt.Errorf("get user %d: %w", r.StudentID, err)
		}
		if u != nil {
			sum.Username = u.Username
			sum.DisplayName = u.DisplayName
		}
		out = append(out, sum)
	}
	return out, nil
}

// StudentDetail returns a student's result and every attempt at the homework.
func (s *Service) StudentDetail(ctx context.Context, teacher *model.User, homeworkID, studentID int64) (*StudentDetail, error) {
	if _, err := s.teacherHomework(ctx, teacher, homeworkID); err != nil {
		return nil, err
	}
	res, err := s.store.GetResult(ctx, homeworkID, studentID)
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: no result for homework %d student %d", ErrNotFound, homeworkID, studentID)
	}
	questions, err := s.store.ListQuestions(ctx, homeworkID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	byID := make(map[int64]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	attempts, err := s.store.ListAnswers(ctx, homeworkID, studentID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	corrected, err := s.store.CorrectedAnswerIDs(ctx, homeworkID, studentID)
	if err != nil {
		return nil, fmt.Errorf("list corrected answers: %w", err)
	}

	latest := make(map[int64]int64, len(questions))
	for _, a := range attempts {
		latest[a.QuestionID] = a.ID
	}
	d := &StudentDetail{
		HomeworkID:   homeworkID,
		StudentID:    studentID,
		Status:       res.Status,
		TotalScore:   res.TotalScore,
		Explanations: res.Explanations,
		SubmittedAt:  res.SubmittedAt,
		Answers:      make([]AnswerDetail, 0, len(attempts)),
	}
	for _, a := range attempts {
		q := byID[a.QuestionID]
		d.Answers = append(d.Answers, AnswerDetail{
			StudentAnswer: a,
			QuestionText:  q.Text,
			QuestionType:  q.Type,
			MaxScore:      q.Score,
			Current:       latest[a.QuestionID] == a.ID,
			Corrected:     corrected[a.ID],
		})
	}
	return d, nil
}

// Export returns a homework with every student's current answers.
func (s *Service) Export(ctx context.Context, teacher *model.User, homeworkID int64) (*model.HomeworkExport, error) {
	if err := requireTeacher(teacher); err != nil {
		return nil, err
	}
	exp, err := s.store.ExportHomework(ctx, homeworkID)
	if err != nil {
		return nil, fmt.Errorf("export homework: %w", err)
	}
	if exp == nil {
		return nil, fmt.Errorf("%w: homework %d", ErrNotFound, homeworkID)
	}
	return exp, nil
}

func (s *Service) homeworkDetail(ctx context.Context, id int64) (*HomeworkDetail, error) {
	hw, err := s.store.GetHomework(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get homework: %w", err)
	}
	if hw == nil {
		return nil, fmt.Errorf("%w: homework %d", ErrNotFound, id)
	}
	questions, err := s.store.ListQuestions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return &HomeworkDetail{Homework: *hw, Questions: questions}, nil
}

// teacherHomework loads a homework for any verified teacher.
func (s *Service) teacherHomework(ctx context.Context, teacher *model.User, homeworkID int64) (*model.Homework, error) {
	if err := requireTeacher(teacher); err != nil {
		return nil, err
	}
	hw, err := s.store.GetHomework(ctx, homeworkID)
	if err != nil {
		return nil, fmt.Errorf("get homework: %w", err)
	}
	if hw == nil {
		return nil, fmt.Errorf("%w: homework %d", ErrNotFound, homeworkID)
	}
	return hw, nil
}

// ownedHomework loads a homework and checks teacher authored it.
func (s *Service) ownedHomework(ctx context.Context, teacher *model.User, homeworkID int64) (*model.Homework, error) {
	hw, err := s.teacherHomework(ctx, teacher, homeworkID)
	if err != nil {
		return nil, err
	}
	if hw.TeacherID != teacher.ID {
		return nil, fmt.Errorf("%w: homework %d belongs to another teacher", ErrPermission, homeworkID)
	}
	return hw, nil
}
