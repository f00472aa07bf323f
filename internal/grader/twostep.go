package grader

import (
	"context"

	"github.com/inkgrade/inkgrade/internal/ai"
	"github.com/inkgrade/inkgrade/internal/model"
)

// Recognizer extracts the handwritten text from an answer image.
type Recognizer interface {
	Transcribe(ctx context.Context, img ai.Image) (string, error)
}

// Scorer grades already-transcribed answer text.
type Scorer interface {
	ScoreAnswer(ctx context.Context, questionText, answerText string, maxPoints int) (*ai.Scored, error)
}

// TwoStep grades in two independent calls: a transcription pass, then a
// text-only scoring pass. An empty transcription skips scoring entirely and
// records the answer as not graded.
type TwoStep struct {
	recognizer Recognizer
	scorer     Scorer
}

// NewTwoStep creates the transcribe-then-score strategy. The recognizer is
// constructed once at startup and reused for the process lifetime.
func NewTwoStep(r Recognizer, s Scorer) *TwoStep {
	return &TwoStep{recognizer: r, scorer: s}
}

// Grade implements Strategy.
func (g *TwoStep) Grade(ctx context.Context, question model.Question, img ai.Image) (Result, error) {
	text, err := g.recognizer.Transcribe(ctx, img)
	if err != nil {
		return Result{}, model.NewAICallError("transcribe answer", err)
	}

	if text == "" {
		return Result{
			ExtractedText: "",
			Score:         0,
			Feedback:      NotGradedFeedback,
		}, nil
	}

	scored, err := g.scorer.ScoreAnswer(ctx, question.Text, text, question.Points)
	if err != nil {
		return Result{}, model.NewAICallError("score answer", err)
	}

	return Result{
		ExtractedText: text,
		Score:         Clamp(*scored.Score, question.Points),
		Feedback:      scored.Reasoning,
	}, nil
}
