// Package grader scores one answer image against one question. Two
// interchangeable strategies exist: a combined multimodal call that
// transcribes and grades at once, and a two-step pipeline that transcribes
// first and grades the text separately.
package grader

import (
	"context"

	"github.com/inkgrade/inkgrade/internal/ai"
	"github.com/inkgrade/inkgrade/internal/model"
)

const (
	// StrategyCombined names the single-call vision grading strategy.
	StrategyCombined = "combined"
	// StrategyTwoStep names the transcribe-then-score strategy.
	StrategyTwoStep = "twostep"

	// FallbackFeedback is stored when a model call or its response fails.
	FallbackFeedback = "Could not analyze due to an API error."
	// NotGradedFeedback is stored when transcription yields no text.
	NotGradedFeedback = "Not graded."
)

// Result is the outcome of grading one answer image.
type Result struct {
	ExtractedText string
	Score         float64
	Feedback      string
}

// Strategy grades one answer image against its question.
type Strategy interface {
	Grade(ctx context.Context, question model.Question, img ai.Image) (Result, error)
}

// IsValidStrategy checks if a strategy name is valid.
func IsValidStrategy(name string) bool {
	return name == StrategyCombined || name == StrategyTwoStep
}

// Clamp bounds a model-reported score to [0, maxPoints], protecting against
// the model ignoring the instructed range.
func Clamp(score float64, maxPoints int) float64 {
	if score < 0 {
		return 0
	}
	if max := float64(maxPoints); score > max {
		return max
	}
	return score
}
