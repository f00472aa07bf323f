package store

import (
	"fmt"

	"github.com/inkgrade/inkgrade/internal/model"
)

// ExportAllSubmissions builds export-ready records for every submission,
// newest first.
func (s *Store) ExportAllSubmissions() ([]model.SubmissionExport, error) {
	subs, err := s.ListSubmissions()
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	var results []model.SubmissionExport
	for _, sub := range subs {
		view, err := s.GetSubmissionView(sub.ID)
		if err != nil {
			return nil, fmt.Errorf("get submission %d: %w", sub.ID, err)
		}

		var answers []model.AnswerExport
		for _, av := range view.Answers {
			answers = append(answers, model.AnswerExport{
				QuestionText:  av.Question.Text,
				Points:        av.Question.Points,
				ExtractedText: av.Answer.ExtractedText,
				AwardedScore:  av.Answer.AwardedScore,
				Feedback:      av.Answer.Feedback,
			})
		}

		results = append(results, model.SubmissionExport{
			ID:          sub.ID,
			ExamTitle:   view.Exam.Title,
			StudentName: sub.StudentName,
			MatricNo:    sub.MatricNo,
			Department:  sub.Department,
			FinalScore:  sub.FinalScore,
			TotalPoints: sub.TotalPoints,
			CreatedAt:   sub.CreatedAt,
			Answers:     answers,
		})
	}
	return results, nil
}
