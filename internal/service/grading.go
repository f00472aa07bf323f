// Package service orchestrates submission intake: validation, image storage,
// the per-question grading loop, and finalization.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/inkgrade/inkgrade/internal/ai"
	"github.com/inkgrade/inkgrade/internal/grader"
	"github.com/inkgrade/inkgrade/internal/model"
	"github.com/inkgrade/inkgrade/internal/store"
	"github.com/inkgrade/inkgrade/internal/upload"
)

// AnswerImage is one uploaded answer image, keyed to its question by the caller.
type AnswerImage struct {
	Filename string
	MIME     string
	Data     []byte
}

// GradingService runs the grading loop for a submission.
type GradingService struct {
	store    *store.Store
	strategy grader.Strategy
	uploads  *upload.Store
	validate *validator.Validate
	logger   *slog.Logger
}

// NewGradingService creates a GradingService.
func NewGradingService(s *store.Store, strategy grader.Strategy, uploads *upload.Store, logger *slog.Logger) *GradingService {
	return &GradingService{
		store:    s,
		strategy: strategy,
		uploads:  uploads,
		validate: validator.New(),
		logger:   logger,
	}
}

// GradeSubmission validates the intake, creates the submission, grades each
// question in authoring order, and finalizes the score. Unmet preconditions
// return a validation error before anything is written. A failed model call
// degrades to a zero-score answer with fixed feedback; the submission still
// completes with a final score.
func (gs *GradingService) GradeSubmission(ctx context.Context, req model.SubmissionRequest, images map[int64]AnswerImage) (*model.SubmissionView, error) {
	if err := gs.validate.Struct(req); err != nil {
		return nil, model.NewValidationError("please fill out all student information")
	}

	exam, err := gs.store.GetExam(req.ExamID)
	if err != nil {
		return nil, model.NewValidationError("selected exam does not exist")
	}
	questions, err := gs.store.GetQuestionsForExam(exam.ID)
	if err != nil {
		return nil, model.NewStoreError("load exam questions", err)
	}
	if len(questions) == 0 {
		return nil, model.NewValidationError("selected exam has no questions")
	}
	for _, q := range questions {
		img, ok := images[q.ID]
		if !ok || len(img.Data) == 0 {
			return nil, model.NewValidationError("upload an answer image for every question")
		}
	}

	totalPoints := 0
	for _, q := range questions {
		totalPoints += q.Points
	}

	subID, err := gs.store.CreateSubmission(model.Submission{
		ExamID:      exam.ID,
		StudentName: req.StudentName,
		MatricNo:    req.MatricNo,
		Department:  req.Department,
		TotalPoints: totalPoints,
	})
	if err != nil {
		return nil, model.NewStoreError("create submission", err)
	}

	var totalScore float64
	for _, q := range questions {
		img := images[q.ID]

		if _, err := gs.uploads.Save(subID, q.ID, img.Filename, img.Data); err != nil {
			// Grading works from the in-memory image; a failed write only
			// loses the archived copy.
			gs.logger.Warn("failed to store answer image",
				"submission_id", subID, "question_id", q.ID, "error", err)
		}

		result := gs.gradeOne(ctx, q, img)

		if _, err := gs.store.AddAnswer(model.Answer{
			SubmissionID:  subID,
			QuestionID:    q.ID,
			ExtractedText: result.ExtractedText,
			AwardedScore:  result.Score,
			Feedback:      result.Feedback,
		}); err != nil {
			return nil, model.NewStoreError("store answer", err)
		}
		totalScore += result.Score
	}

	if err := gs.store.FinalizeSubmission(subID, totalScore); err != nil {
		return nil, model.NewStoreError("finalize submission", err)
	}

	gs.logger.Info("graded submission",
		"submission_id", subID,
		"exam_id", exam.ID,
		"final_score", totalScore,
		"total_points", totalPoints,
	)

	view, err := gs.store.GetSubmissionView(subID)
	if err != nil {
		return nil, model.NewStoreError("load submission view", err)
	}
	return view, nil
}

// gradeOne never fails: model-call errors degrade to a zero score with the
// fixed fallback feedback so every question still yields a storable answer.
func (gs *GradingService) gradeOne(ctx context.Context, q model.Question, img AnswerImage) grader.Result {
	result, err := gs.strategy.Grade(ctx, q, ai.Image{MIME: img.MIME, Data: img.Data})
	if err != nil {
		gs.logger.Error("grading failed", "question_id", q.ID, "error", err)
		return grader.Result{
			ExtractedText: "",
			Score:         0,
			Feedback:      grader.FallbackFeedback,
		}
	}
	return result
}

// CreateExam validates an authoring draft and persists it in one transaction,
// preserving question order. Invalid drafts write nothing.
func (gs *GradingService) CreateExam(draft model.ExamDraft) (int64, error) {
	if err := gs.validate.Struct(draft); err != nil {
		return 0, model.NewValidationError("fill out the exam title and all question fields")
	}

	questions := make([]model.Question, 0, len(draft.Questions))
	for _, qd := range draft.Questions {
		questions = append(questions, model.Question{
			Text:          qd.Text,
			CorrectAnswer: qd.CorrectAnswer,
			Points:        qd.Points,
		})
	}

	examID, err := gs.store.CreateExam(draft.Title, questions)
	if err != nil {
		return 0, model.NewStoreError("create exam", err)
	}
	return examID, nil
}

// Stats gathers the admin counters.
func (gs *GradingService) Stats() (model.AdminStats, error) {
	var stats model.AdminStats
	var err error
	if stats.Exams, err = gs.store.ExamCount(); err != nil {
		return stats, fmt.Errorf("count exams: %w", err)
	}
	if stats.Questions, err = gs.store.QuestionCount(); err != nil {
		return stats, fmt.Errorf("count questions: %w", err)
	}
	if stats.Submissions, err = gs.store.SubmissionCount(); err != nil {
		return stats, fmt.Errorf("count submissions: %w", err)
	}
	if stats.Answers, err = gs.store.AnswerCount(); err != nil {
		return stats, fmt.Errorf("count answers: %w", err)
	}
	if stats.UploadFiles, err = gs.uploads.Count(); err != nil {
		return stats, fmt.Errorf("count uploads: %w", err)
	}
	return stats, nil
}
