package grader

import (
	"context"

	"github.com/inkgrade/inkgrade/internal/ai"
	"github.com/inkgrade/inkgrade/internal/model"
)

// Analyzer is the combined transcribe-and-grade capability of the AI service.
type Analyzer interface {
	AnalyzeAnswer(ctx context.Context, questionText string, img ai.Image, maxPoints int) (*ai.Analysis, error)
}

// Combined grades with one multimodal call that transcribes the handwriting
// and scores it in the same response.
type Combined struct {
	analyzer Analyzer
}

// NewCombined creates the combined vision grading strategy.
func NewCombined(a Analyzer) *Combined {
	return &Combined{analyzer: a}
}

// Grade implements Strategy.
func (g *Combined) Grade(ctx context.Context, question model.Question, img ai.Image) (Result, error) {
	analysis, err := g.analyzer.AnalyzeAnswer(ctx, question.Text, img, question.Points)
	if err != nil {
		return Result{}, model.NewAICallError("combined grading", err)
	}

	return Result{
		ExtractedText: analysis.ExtractedText,
		Score:         Clamp(*analysis.Score, question.Points),
		Feedback:      analysis.Reasoning,
	}, nil
}
