package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleInstructor can author exams and review submissions.
	UserRoleInstructor UserRole = "instructor"
	// UserRoleAdmin can additionally bulk-delete data.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// Exam is a named, ordered collection of questions.
type Exam struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Question is a graded prompt belonging to one exam. CorrectAnswer is kept
// for human reference only and never influences automated scoring.
type Question struct {
	ID            int64  `json:"id"`
	ExamID        int64  `json:"exam_id"`
	Position      int    `json:"position"`
	Text          string `json:"question_text"`
	CorrectAnswer string `json:"correct_answer"`
	Points        int    `json:"points"`
}

// Submission is one student's attempt at an exam. FinalScore stays nil until
// every answer has been scored; TotalPoints is the sum of the exam's question
// points at submission time.
type Submission struct {
	ID          int64     `json:"id"`
	ExamID      int64     `json:"exam_id"`
	StudentName string    `json:"student_name"`
	MatricNo    string    `json:"matric_number"`
	Department  string    `json:"department"`
	FinalScore  *float64  `json:"final_score,omitempty"`
	TotalPoints int       `json:"total_points"`
	CreatedAt   time.Time `json:"created_at"`
}

// Answer is the graded result for one question within one submission.
type Answer struct {
	ID            int64   `json:"id"`
	SubmissionID  int64   `json:"submission_id"`
	QuestionID    int64   `json:"question_id"`
	ExtractedText string  `json:"extracted_text"`
	AwardedScore  float64 `json:"awarded_score"`
	Feedback      string  `json:"feedback"`
}

// QuestionDraft is one in-progress question entry on the authoring form.
type QuestionDraft struct {
	Text          string `validate:"required"`
	CorrectAnswer string
	Points        int `validate:"min=1"`
}

// ExamDraft is the in-progress authoring form state. It lives only for the
// duration of the authoring flow and is discarded on save or cancel.
type ExamDraft struct {
	Title     string          `validate:"required"`
	Questions []QuestionDraft `validate:"required,min=1,dive"`
}

// SubmissionRequest carries the identity fields of the intake form.
type SubmissionRequest struct {
	ExamID      int64  `validate:"required"`
	StudentName string `validate:"required"`
	MatricNo    string `validate:"required"`
	Department  string `validate:"required"`
}

// AnswerView pairs an answer with its question for display.
type AnswerView struct {
	Answer   Answer
	Question Question
}

// SubmissionView combines a submission with its exam and graded answers.
type SubmissionView struct {
	Submission Submission
	Exam       Exam
	Answers    []AnswerView
}

// AdminStats holds the counters shown on the admin page.
type AdminStats struct {
	Exams       int
	Questions   int
	Submissions int
	Answers     int
	UploadFiles int
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	Strategy      string // grading strategy: combined or twostep
	PromptVariant string // strict, standard, lenient
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
}
