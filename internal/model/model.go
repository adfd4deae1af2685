package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User is the identity of a caller as known to this service.
type User struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	DisplayName     string    `json:"display_name"`
	Role            UserRole  `json:"role"`
	VerifiedTeacher bool      `json:"verified_teacher"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// IsVerifiedTeacher reports whether u may author homework and correct scores.
func (u *User) IsVerifiedTeacher() bool {
	return u != nil && u.Active && u.VerifiedTeacher
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the identified user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// QuestionType is the kind of a homework question.
type QuestionType string

const (
	QuestionSingle     QuestionType = "single"
	QuestionMultiple   QuestionType = "multiple"
	QuestionSubjective QuestionType = "subjective"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionSingle, QuestionMultiple, QuestionSubjective:
		return true
	}
	return false
}

// Objective reports whether t is graded by comparison with the answer key.
func (t QuestionType) Objective() bool {
	return t == QuestionSingle || t == QuestionMultiple
}

// ResultStatus is the state of a student's homework result.
type ResultStatus string

const (
	ResultPending ResultStatus = "pending"
	ResultGraded  ResultStatus = "graded"
)

// DefaultQuestionScore is the point value of a question created without one.
const DefaultQuestionScore = 5.0

// Homework is a set of questions authored by a teacher.
type Homework struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TeacherID   int64     `json:"teacher_id"`
	VideoID     *int64    `json:"video_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Option is one choice of an objective question.
type Option struct {
	ID   string `json:"id" validate:"required"`
	Text string `json:"text"`
}

// Question belongs to exactly one homework.
type Question struct {
	ID         int64        `json:"id"`
	HomeworkID int64        `json:"homework_id"`
	Position   int          `json:"position"`
	Type       QuestionType `json:"question_type"`
	Text       string       `json:"text"`
	Options    []Option     `json:"options"`
	Answer     Answer       `json:"answer"`
	Score      float64      `json:"score"`
}

// StudentAnswer is one graded (or pending) attempt at a question.
type StudentAnswer struct {
	ID          int64     `json:"id"`
	QuestionID  int64     `json:"question_id"`
	StudentID   int64     `json:"student_id"`
	Answer      Answer    `json:"answer"`
	Score       *float64  `json:"score"`
	Comment     string    `json:"comment"`
	Graded      bool      `json:"graded"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ScoreValue returns the answer's score, treating ungraded as zero.
func (a StudentAnswer) ScoreValue() float64 {
	if a.Score == nil {
		return 0
	}
	return *a.Score
}

// StudentHomeworkResult is the aggregate of a student's answers to a homework.
type StudentHomeworkResult struct {
	ID           int64        `json:"id"`
	HomeworkID   int64        `json:"homework_id"`
	StudentID    int64        `json:"student_id"`
	TotalScore   *float64     `json:"total_score"`
	Explanations []string     `json:"explanations"`
	Status       ResultStatus `json:"status"`
	SubmittedAt  time.Time    `json:"submitted_at"`
}

// MistakeEntry tracks a question a student currently gets wrong.
type MistakeEntry struct {
	ID              int64  `json:"id"`
	StudentID       int64  `json:"student_id"`
	QuestionID      int64  `json:"question_id"`
	WrongTimes      int    `json:"wrong_times"`
	LastWrongAnswer string `json:"last_wrong_answer"`
}

// ScoreCorrectionLog records a teacher override of an answer's score.
type ScoreCorrectionLog struct {
	ID          int64     `json:"id"`
	AnswerID    int64     `json:"answer_id"`
	TeacherID   int64     `json:"teacher_id"`
	OldScore    *float64  `json:"old_score"`
	NewScore    float64   `json:"new_score"`
	OldComment  string    `json:"old_comment"`
	NewComment  string    `json:"new_comment"`
	CorrectedAt time.Time `json:"corrected_at"`
}

// SubjectiveCorrectionLog records a teacher override of an AI-graded answer.
type SubjectiveCorrectionLog struct {
	ID             int64     `json:"id"`
	AnswerID       int64     `json:"answer_id"`
	QuestionID     int64     `json:"question_id"`
	TeacherID      int64     `json:"teacher_id"`
	AIScore        *float64  `json:"ai_score"`
	TeacherScore   float64   `json:"teacher_score"`
	AIComment      string    `json:"ai_comment"`
	TeacherComment string    `json:"teacher_comment"`
	CorrectedAt    time.Time `json:"corrected_at"`
}

// AIHelpRecord counts hint requests a student made for a question.
type AIHelpRecord struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"student_id"`
	QuestionID int64     `json:"question_id"`
	Times      int       `json:"times"`
	Solved     bool      `json:"solved"`
	LastHelpAt time.Time `json:"last_help_at"`
}
