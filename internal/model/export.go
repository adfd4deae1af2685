package model

import "time"

// HomeworkExport is the top-level JSON structure for result export.
type HomeworkExport struct {
	HomeworkID   int64           `json:"homework_id"`
	Title        string          `json:"title"`
	ExportedAt   time.Time       `json:"exported_at"`
	NumQuestions int             `json:"num_questions"`
	MaxScore     float64         `json:"max_score"`
	Results      []StudentResult `json:"results"`
}

// StudentResult holds one student's aggregate and current answers for export.
type StudentResult struct {
	StudentID    int64            `json:"student_id"`
	Username     string           `json:"username"`
	DisplayName  string           `json:"display_name"`
	Status       ResultStatus     `json:"status"`
	TotalScore   *float64         `json:"total_score"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	Explanations []string         `json:"explanations"`
	Questions    []QuestionResult `json:"questions"`
}

// QuestionResult holds the current answer to one question for export.
type QuestionResult struct {
	QuestionID int64        `json:"question_id"`
	Type       QuestionType `json:"question_type"`
	Text       string       `json:"text"`
	MaxScore   float64      `json:"max_score"`
	Answer     Answer       `json:"answer"`
	Score      *float64     `json:"score"`
	Comment    string       `json:"comment"`
	Corrected  bool         `json:"corrected"`
}

// HomeworkImport is used for loading homework from JSON seed files.
type HomeworkImport struct {
	Title       string           `json:"title" validate:"required"`
	Description string           `json:"description"`
	VideoID     *int64           `json:"video_id,omitempty"`
	Questions   []QuestionImport `json:"questions" validate:"dive"`
}

// QuestionImport is one question of a HomeworkImport.
type QuestionImport struct {
	Type    QuestionType `json:"question_type" validate:"required,oneof=single multiple subjective"`
	Text    string       `json:"text" validate:"required"`
	Options []Option     `json:"options" validate:"dive"`
	Answer  Answer       `json:"answer"`
	Score   *float64     `json:"score,omitempty" validate:"omitempty,gt=0"`
}
