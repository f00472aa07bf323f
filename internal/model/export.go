package model

import "time"

// ResultsExport is the top-level JSON structure for submission export.
type ResultsExport struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Submissions []SubmissionExport `json:"submissions"`
}

// SubmissionExport holds one submission's graded data for export.
type SubmissionExport struct {
	ID          int64          `json:"id"`
	ExamTitle   string         `json:"exam_title"`
	StudentName string         `json:"student_name"`
	MatricNo    string         `json:"matric_number"`
	Department  string         `json:"department"`
	FinalScore  *float64       `json:"final_score,omitempty"`
	TotalPoints int            `json:"total_points"`
	CreatedAt   time.Time      `json:"created_at"`
	Answers     []AnswerExport `json:"answers"`
}

// AnswerExport holds per-question graded data for export.
type AnswerExport struct {
	QuestionText  string  `json:"question_text"`
	Points        int     `json:"points"`
	ExtractedText string  `json:"extracted_text"`
	AwardedScore  float64 `json:"awarded_score"`
	Feedback      string  `json:"feedback"`
}
