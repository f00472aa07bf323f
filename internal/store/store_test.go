package store

import (
	"database/sql"
	"testing"

	"github.com/inkgrade/inkgrade/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestExam(t *testing.T, s *Store, title string, questions ...model.Question) int64 {
	t.Helper()
	id, err := s.CreateExam(title, questions)
	if err != nil {
		t.Fatalf("createTestExam: %v", err)
	}
	return id
}

func twoQuestionExam(t *testing.T, s *Store) int64 {
	t.Helper()
	return createTestExam(t, s, "Biology 101",
		model.Question{Text: "Define osmosis.", CorrectAnswer: "Movement of water across a membrane.", Points: 10},
		model.Question{Text: "Name the powerhouse of the cell.", CorrectAnswer: "Mitochondria.", Points: 5},
	)
}

func TestCreateExamPreservesOrder(t *testing.T) {
	s := newTestStore(t)

	// Empty DB should return zero counts and empty list.
	count, err := s.ExamCount()
	if err != nil {
		t.Fatalf("ExamCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 exams, got %d", count)
	}

	exams, err := s.ListExams()
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(exams) != 0 {
		t.Fatalf("expected empty list, got %d", len(exams))
	}

	examID := twoQuestionExam(t, s)

	exam, err := s.GetExam(examID)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if exam.Title != "Biology 101" {
		t.Errorf("expected title 'Biology 101', got %q", exam.Title)
	}

	questions, err := s.GetQuestionsForExam(examID)
	if err != nil {
		t.Fatalf("GetQuestionsForExam: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].Text != "Define osmosis." {
		t.Errorf("unexpected first question: %q", questions[0].Text)
	}
	if questions[0].Position != 1 || questions[1].Position != 2 {
		t.Errorf("expected positions 1,2, got %d,%d", questions[0].Position, questions[1].Position)
	}
	if questions[0].Points != 10 || questions[1].Points != 5 {
		t.Errorf("expected points 10,5, got %d,%d", questions[0].Points, questions[1].Points)
	}
	if questions[1].CorrectAnswer != "Mitochondria." {
		t.Errorf("unexpected correct answer: %q", questions[1].CorrectAnswer)
	}
}

func TestGetExamNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetExam(9999); err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
}

func TestSubmissionLifecycle(t *testing.T) {
	s := newTestStore(t)
	examID := twoQuestionExam(t, s)

	subID, err := s.CreateSubmission(model.Submission{
		ExamID:      examID,
		StudentName: "Ada Obi",
		MatricNo:    "CSC/2024/001",
		Department:  "Computer Science",
		TotalPoints: 15,
	})
	if err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}

	sub, err := s.GetSubmission(subID)
	if err != nil {
		t.Fatalf("GetSubmission: %v", err)
	}
	if sub.FinalScore != nil {
		t.Error("expected nil final score before finalize")
	}
	if sub.TotalPoints != 15 {
		t.Errorf("expected total points 15, got %d", sub.TotalPoints)
	}

	questions, _ := s.GetQuestionsForExam(examID)
	for i, q := range questions {
		_, err := s.AddAnswer(model.Answer{
			SubmissionID:  subID,
			QuestionID:    q.ID,
			ExtractedText: "student answer",
			AwardedScore:  float64(5 - i),
			Feedback:      "ok",
		})
		if err != nil {
			t.Fatalf("AddAnswer: %v", err)
		}
	}

	if err := s.FinalizeSubmission(subID, 9); err != nil {
		t.Fatalf("FinalizeSubmission: %v", err)
	}
	sub, err = s.GetSubmission(subID)
	if err != nil {
		t.Fatalf("GetSubmission after finalize: %v", err)
	}
	if sub.FinalScore == nil || *sub.FinalScore != 9 {
		t.Errorf("expected final score 9, got %v", sub.FinalScore)
	}

	answers, err := s.GetAnswersForSubmission(subID)
	if err != nil {
		t.Fatalf("GetAnswersForSubmission: %v", err)
	}
	if len(answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(answers))
	}
	if answers[0].AwardedScore != 5 {
		t.Errorf("expected first score 5, got %f", answers[0].AwardedScore)
	}
}

func TestListSubmissionsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	examID := twoQuestionExam(t, s)

	var last int64
	for _, name := range []string{"First", "Second", "Third"} {
		id, err := s.CreateSubmission(model.Submission{
			ExamID: examID, StudentName: name, MatricNo: "M", Department: "D", TotalPoints: 15,
		})
		if err != nil {
			t.Fatalf("CreateSubmission: %v", err)
		}
		last = id
	}

	subs, err := s.ListSubmissions()
	if err != nil {
		t.Fatalf("ListSubmissions: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(subs))
	}
	if subs[0].ID != last {
		t.Errorf("expected newest submission first, got ID %d", subs[0].ID)
	}
}

func TestGetSubmissionView(t *testing.T) {
	s := newTestStore(t)
	examID := twoQuestionExam(t, s)
	questions, _ := s.GetQuestionsForExam(examID)

	subID, _ := s.CreateSubmission(model.Submission{
		ExamID: examID, StudentName: "Ada", MatricNo: "M1", Department: "CS", TotalPoints: 15,
	})
	if _, err := s.AddAnswer(model.Answer{
		SubmissionID: subID, QuestionID: questions[0].ID,
		ExtractedText: "water moves", AwardedScore: 8, Feedback: "mostly right",
	}); err != nil {
		t.Fatalf("AddAnswer: %v", err)
	}

	view, err := s.GetSubmissionView(subID)
	if err != nil {
		t.Fatalf("GetSubmissionView: %v", err)
	}
	if view.Exam.Title != "Biology 101" {
		t.Errorf("expected exam title 'Biology 101', got %q", view.Exam.Title)
	}
	if len(view.Answers) != 1 {
		t.Fatalf("expected 1 answer view, got %d", len(view.Answers))
	}
	av := view.Answers[0]
	if av.Question.Text != "Define osmosis." {
		t.Errorf("unexpected question text: %q", av.Question.Text)
	}
	if av.Answer.AwardedScore != 8 {
		t.Errorf("expected score 8, got %f", av.Answer.AwardedScore)
	}
}

func TestDeleteExamCascades(t *testing.T) {
	s := newTestStore(t)
	examID := twoQuestionExam(t, s)

	if err := s.DeleteExam(examID); err != nil {
		t.Fatalf("DeleteExam: %v", err)
	}
	count, err := s.QuestionCount()
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if count != 0 {
		t.Errorf("expected questions to cascade, got %d", count)
	}
}

func TestDeleteSubmissionCascades(t *testing.T) {
	s := newTestStore(t)
	examID := twoQuestionExam(t, s)
	questions, _ := s.GetQuestionsForExam(examID)

	subID, _ := s.CreateSubmission(model.Submission{
		ExamID: examID, StudentName: "A", MatricNo: "M", Department: "D", TotalPoints: 15,
	})
	if _, err := s.AddAnswer(model.Answer{SubmissionID: subID, QuestionID: questions[0].ID}); err != nil {
		t.Fatalf("AddAnswer: %v", err)
	}

	if err := s.DeleteSubmission(subID); err != nil {
		t.Fatalf("DeleteSubmission: %v", err)
	}
	count, err := s.AnswerCount()
	if err != nil {
		t.Fatalf("AnswerCount: %v", err)
	}
	if count != 0 {
		t.Errorf("expected answers to cascade, got %d", count)
	}
}

func TestClearSubmissionsKeepsExams(t *testing.T) {
	s := newTestStore(t)
	examID := twoQuestionExam(t, s)
	questions, _ := s.GetQuestionsForExam(examID)

	subID, _ := s.CreateSubmission(model.Submission{
		ExamID: examID, StudentName: "A", MatricNo: "M", Department: "D", TotalPoints: 15,
	})
	s.AddAnswer(model.Answer{SubmissionID: subID, QuestionID: questions[0].ID})

	if err := s.ClearSubmissions(); err != nil {
		t.Fatalf("ClearSubmissions: %v", err)
	}

	subCount, _ := s.SubmissionCount()
	ansCount, _ := s.AnswerCount()
	examCount, _ := s.ExamCount()
	qCount, _ := s.QuestionCount()
	if subCount != 0 || ansCount != 0 {
		t.Errorf("expected 0 submissions and answers, got %d and %d", subCount, ansCount)
	}
	if examCount != 1 || qCount != 2 {
		t.Errorf("expected exams untouched, got %d exams and %d questions", examCount, qCount)
	}
}

func TestDeleteExamBlockedByLiveSubmission(t *testing.T) {
	s := newTestStore(t)
	examID := twoQuestionExam(t, s)

	if _, err := s.CreateSubmission(model.Submission{
		ExamID: examID, StudentName: "A", MatricNo: "M", Department: "D", TotalPoints: 15,
	}); err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}

	if err := s.DeleteExam(examID); err == nil {
		t.Fatal("expected foreign key error while a submission references the exam")
	}

	examCount, _ := s.ExamCount()
	qCount, _ := s.QuestionCount()
	if examCount != 1 || qCount != 2 {
		t.Errorf("expected exam untouched, got %d exams and %d questions", examCount, qCount)
	}
}

func TestClearExamsRemovesEverything(t *testing.T) {
	s := newTestStore(t)
	examID := twoQuestionExam(t, s)
	questions, _ := s.GetQuestionsForExam(examID)

	subID, _ := s.CreateSubmission(model.Submission{
		ExamID: examID, StudentName: "A", MatricNo: "M", Department: "D", TotalPoints: 15,
	})
	s.AddAnswer(model.Answer{SubmissionID: subID, QuestionID: questions[0].ID})

	if err := s.ClearExams(); err != nil {
		t.Fatalf("ClearExams: %v", err)
	}

	for name, fn := range map[string]func() (int, error){
		"exams":       s.ExamCount,
		"questions":   s.QuestionCount,
		"submissions": s.SubmissionCount,
		"answers":     s.AnswerCount,
	} {
		count, err := fn()
		if err != nil {
			t.Fatalf("count %s: %v", name, err)
		}
		if count != 0 {
			t.Errorf("expected 0 %s, got %d", name, count)
		}
	}
}

func TestClearExamsFailureRollsBack(t *testing.T) {
	s := newTestStore(t)
	examID := twoQuestionExam(t, s)
	questions, _ := s.GetQuestionsForExam(examID)

	subID, _ := s.CreateSubmission(model.Submission{
		ExamID: examID, StudentName: "A", MatricNo: "M", Department: "D", TotalPoints: 15,
	})
	if _, err := s.AddAnswer(model.Answer{SubmissionID: subID, QuestionID: questions[0].ID}); err != nil {
		t.Fatalf("AddAnswer: %v", err)
	}

	// Make the last delete in the transaction fail, after answers,
	// submissions, and questions were already deleted inside it.
	_, err := s.db.Exec(`CREATE TRIGGER block_exam_delete BEFORE DELETE ON exams
		BEGIN SELECT RAISE(ABORT, 'blocked'); END`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	if err := s.ClearExams(); err == nil {
		t.Fatal("expected ClearExams to fail")
	}

	examCount, _ := s.ExamCount()
	qCount, _ := s.QuestionCount()
	subCount, _ := s.SubmissionCount()
	ansCount, _ := s.AnswerCount()
	if examCount != 1 || qCount != 2 || subCount != 1 || ansCount != 1 {
		t.Errorf("expected counts unchanged after rollback, got %d/%d/%d/%d",
			examCount, qCount, subCount, ansCount)
	}
}

func TestClearSubmissionsFailureRollsBack(t *testing.T) {
	s := newTestStore(t)
	examID := twoQuestionExam(t, s)
	questions, _ := s.GetQuestionsForExam(examID)

	subID, _ := s.CreateSubmission(model.Submission{
		ExamID: examID, StudentName: "A", MatricNo: "M", Department: "D", TotalPoints: 15,
	})
	if _, err := s.AddAnswer(model.Answer{SubmissionID: subID, QuestionID: questions[0].ID}); err != nil {
		t.Fatalf("AddAnswer: %v", err)
	}

	_, err := s.db.Exec(`CREATE TRIGGER block_submission_delete BEFORE DELETE ON submissions
		BEGIN SELECT RAISE(ABORT, 'blocked'); END`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	if err := s.ClearSubmissions(); err == nil {
		t.Fatal("expected ClearSubmissions to fail")
	}

	subCount, _ := s.SubmissionCount()
	ansCount, _ := s.AnswerCount()
	if subCount != 1 || ansCount != 1 {
		t.Errorf("expected counts unchanged after rollback, got %d submissions and %d answers", subCount, ansCount)
	}
}
