package store

import (
	"testing"

	"github.com/inkgrade/inkgrade/internal/model"
)

func TestExportAllSubmissions(t *testing.T) {
	s := newTestStore(t)

	results, err := s.ExportAllSubmissions()
	if err != nil {
		t.Fatalf("ExportAllSubmissions: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty export, got %d", len(results))
	}

	examID := twoQuestionExam(t, s)
	questions, _ := s.GetQuestionsForExam(examID)

	subID, _ := s.CreateSubmission(model.Submission{
		ExamID: examID, StudentName: "Ada", MatricNo: "CSC/2024/001", Department: "CS", TotalPoints: 15,
	})
	s.AddAnswer(model.Answer{
		SubmissionID: subID, QuestionID: questions[0].ID,
		ExtractedText: "water crosses the membrane", AwardedScore: 8, Feedback: "good",
	})
	s.AddAnswer(model.Answer{
		SubmissionID: subID, QuestionID: questions[1].ID,
		ExtractedText: "mitochondria", AwardedScore: 5, Feedback: "correct",
	})
	if err := s.FinalizeSubmission(subID, 13); err != nil {
		t.Fatalf("FinalizeSubmission: %v", err)
	}

	results, err = s.ExportAllSubmissions()
	if err != nil {
		t.Fatalf("ExportAllSubmissions: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(results))
	}

	r := results[0]
	if r.ExamTitle != "Biology 101" {
		t.Errorf("expected exam title 'Biology 101', got %q", r.ExamTitle)
	}
	if r.FinalScore == nil || *r.FinalScore != 13 {
		t.Errorf("expected final score 13, got %v", r.FinalScore)
	}
	if len(r.Answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(r.Answers))
	}
	if r.Answers[0].QuestionText != "Define osmosis." {
		t.Errorf("unexpected question text: %q", r.Answers[0].QuestionText)
	}
	if r.Answers[1].AwardedScore != 5 {
		t.Errorf("expected score 5, got %f", r.Answers[1].AwardedScore)
	}
}
