package grader

import (
	"context"
	"errors"
	"testing"

	"github.com/inkgrade/inkgrade/internal/ai"
	"github.com/inkgrade/inkgrade/internal/model"
)

func ptr(f float64) *float64 { return &f }

func testQuestion() model.Question {
	return model.Question{ID: 1, ExamID: 1, Position: 1, Text: "Define osmosis.", Points: 10}
}

func testImage() ai.Image {
	return ai.Image{MIME: "image/png", Data: []byte("fake png")}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name      string
		score     float64
		maxPoints int
		want      float64
	}{
		{"within range", 7.5, 10, 7.5},
		{"at max", 10, 10, 10},
		{"over max", 15, 10, 10},
		{"negative", -3, 10, 0},
		{"zero", 0, 10, 0},
		{"over small max", 6, 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.score, tt.maxPoints); got != tt.want {
				t.Errorf("Clamp(%v, %d) = %v, want %v", tt.score, tt.maxPoints, got, tt.want)
			}
		})
	}
}

func TestIsValidStrategy(t *testing.T) {
	for name, want := range map[string]bool{
		"combined": true,
		"twostep":  true,
		"":         false,
		"vision":   false,
	} {
		if got := IsValidStrategy(name); got != want {
			t.Errorf("IsValidStrategy(%q) = %v, want %v", name, got, want)
		}
	}
}

type fakeAnalyzer struct {
	analysis *ai.Analysis
	err      error
	calls    int
}

func (f *fakeAnalyzer) AnalyzeAnswer(_ context.Context, _ string, _ ai.Image, _ int) (*ai.Analysis, error) {
	f.calls++
	return f.analysis, f.err
}

func TestCombinedGrade(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: &ai.Analysis{
		ExtractedText: "water moves across a membrane",
		Reasoning:     "Mostly correct.",
		Score:         ptr(8),
	}}
	g := NewCombined(analyzer)

	res, err := g.Grade(context.Background(), testQuestion(), testImage())
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if res.ExtractedText != "water moves across a membrane" {
		t.Errorf("unexpected extracted text: %q", res.ExtractedText)
	}
	if res.Score != 8 {
		t.Errorf("expected score 8, got %v", res.Score)
	}
	if res.Feedback != "Mostly correct." {
		t.Errorf("unexpected feedback: %q", res.Feedback)
	}
}

func TestCombinedGradeClampsScore(t *testing.T) {
	g := NewCombined(&fakeAnalyzer{analysis: &ai.Analysis{Score: ptr(15)}})
	res, err := g.Grade(context.Background(), testQuestion(), testImage())
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if res.Score != 10 {
		t.Errorf("expected score clamped to 10, got %v", res.Score)
	}
}

func TestCombinedGradeError(t *testing.T) {
	g := NewCombined(&fakeAnalyzer{err: errors.New("model unavailable")})
	_, err := g.Grade(context.Background(), testQuestion(), testImage())
	if err == nil {
		t.Fatal("expected error")
	}
	if model.KindOf(err) != model.KindAICall {
		t.Errorf("expected AI-call error kind, got %q", model.KindOf(err))
	}
}

type fakeRecognizer struct {
	text string
	err  error
}

func (f *fakeRecognizer) Transcribe(_ context.Context, _ ai.Image) (string, error) {
	return f.text, f.err
}

type fakeScorer struct {
	scored *ai.Scored
	err    error
	calls  int
}

func (f *fakeScorer) ScoreAnswer(_ context.Context, _, _ string, _ int) (*ai.Scored, error) {
	f.calls++
	return f.scored, f.err
}

func TestTwoStepGrade(t *testing.T) {
	scorer := &fakeScorer{scored: &ai.Scored{Reasoning: "Good.", Score: ptr(9)}}
	g := NewTwoStep(&fakeRecognizer{text: "osmosis is diffusion of water"}, scorer)

	res, err := g.Grade(context.Background(), testQuestion(), testImage())
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if res.ExtractedText != "osmosis is diffusion of water" {
		t.Errorf("unexpected extracted text: %q", res.ExtractedText)
	}
	if res.Score != 9 {
		t.Errorf("expected score 9, got %v", res.Score)
	}
	if scorer.calls != 1 {
		t.Errorf("expected 1 scorer call, got %d", scorer.calls)
	}
}

func TestTwoStepEmptyTranscriptionSkipsScoring(t *testing.T) {
	scorer := &fakeScorer{scored: &ai.Scored{Score: ptr(9)}}
	g := NewTwoStep(&fakeRecognizer{text: ""}, scorer)

	res, err := g.Grade(context.Background(), testQuestion(), testImage())
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if res.Score != 0 {
		t.Errorf("expected score 0, got %v", res.Score)
	}
	if res.Feedback != NotGradedFeedback {
		t.Errorf("expected %q, got %q", NotGradedFeedback, res.Feedback)
	}
	if scorer.calls != 0 {
		t.Errorf("expected scorer to be skipped, got %d calls", scorer.calls)
	}
}

func TestTwoStepScorerError(t *testing.T) {
	g := NewTwoStep(&fakeRecognizer{text: "some answer"}, &fakeScorer{err: errors.New("bad response")})
	_, err := g.Grade(context.Background(), testQuestion(), testImage())
	if err == nil {
		t.Fatal("expected error")
	}
	if model.KindOf(err) != model.KindAICall {
		t.Errorf("expected AI-call error kind, got %q", model.KindOf(err))
	}
}

func TestTwoStepClampsScore(t *testing.T) {
	g := NewTwoStep(
		&fakeRecognizer{text: "answer"},
		&fakeScorer{scored: &ai.Scored{Score: ptr(-2)}},
	)
	res, err := g.Grade(context.Background(), testQuestion(), testImage())
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if res.Score != 0 {
		t.Errorf("expected negative score clamped to 0, got %v", res.Score)
	}
}
