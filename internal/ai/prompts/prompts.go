package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var templateFS embed.FS

var (
	answerTagRegex       = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	instructionsTagRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// Variant represents a grading prompt variant.
type Variant string

const (
	// VariantStrict is a strict grading variant for majors.
	VariantStrict Variant = "strict"
	// VariantStandard is the default grading variant.
	VariantStandard Variant = "standard"
	// VariantLenient is a lenient grading variant for electives.
	VariantLenient Variant = "lenient"
)

var validVariants = map[Variant]bool{
	VariantStrict:   true,
	VariantStandard: true,
	VariantLenient:  true,
}

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[Variant(v)]
}

var (
	loadOnce         sync.Once
	loadErr          error
	analyzeTemplates map[Variant]*template.Template
	scoreTemplates   map[Variant]*template.Template
	transcribeText   string
)

// AnalyzeData holds template data for combined vision-grading prompts.
type AnalyzeData struct {
	QuestionText string
	MaxPoints    int
}

// ScoreData holds template data for text-only scoring prompts.
type ScoreData struct {
	QuestionText string
	AnswerText   string
	MaxPoints    int
}

// Load parses the embedded prompt templates. It uses sync.Once so templates
// are loaded only once; later calls return the first error, if any.
func Load() error {
	loadOnce.Do(func() {
		analyzeTemplates = make(map[Variant]*template.Template)
		scoreTemplates = make(map[Variant]*template.Template)

		for _, v := range []Variant{VariantStrict, VariantStandard, VariantLenient} {
			analyzeFile := "templates/analyze_" + string(v) + ".txt"
			scoreFile := "templates/score_" + string(v) + ".txt"

			analyzeContent, err := templateFS.ReadFile(analyzeFile)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", analyzeFile, err)
				return
			}
			analyzeTmpl, err := template.New("analyze").Parse(string(analyzeContent))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", analyzeFile, err)
				return
			}
			analyzeTemplates[v] = analyzeTmpl

			scoreContent, err := templateFS.ReadFile(scoreFile)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", scoreFile, err)
				return
			}
			scoreTmpl, err := template.New("score").Parse(string(scoreContent))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", scoreFile, err)
				return
			}
			scoreTemplates[v] = scoreTmpl
		}

		transcribe, err := templateFS.ReadFile("templates/transcribe.txt")
		if err != nil {
			loadErr = fmt.Errorf("read prompt file templates/transcribe.txt: %w", err)
			return
		}
		transcribeText = string(transcribe)
	})
	return loadErr
}

// BuildAnalyzePrompt builds a combined transcribe-and-grade prompt.
func BuildAnalyzePrompt(variant Variant, questionText string, maxPoints int) (string, error) {
	if err := Load(); err != nil {
		return "", err
	}
	tmpl, ok := analyzeTemplates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, AnalyzeData{QuestionText: questionText, MaxPoints: maxPoints}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildScorePrompt builds a text-only scoring prompt for already-transcribed
// answer text.
func BuildScorePrompt(variant Variant, questionText, answerText string, maxPoints int) (string, error) {
	if err := Load(); err != nil {
		return "", err
	}
	tmpl, ok := scoreTemplates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	data := ScoreData{
		QuestionText: questionText,
		AnswerText:   SanitizeAnswer(answerText),
		MaxPoints:    maxPoints,
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// TranscribePrompt returns the handwriting transcription prompt.
func TranscribePrompt() (string, error) {
	if err := Load(); err != nil {
		return "", err
	}
	return transcribeText, nil
}

// SanitizeAnswer strips prompt-injection tags from transcribed answer text and
// truncates overlong answers.
func SanitizeAnswer(answer string) string {
	answer = answerTagRegex.ReplaceAllString(answer, "")
	answer = instructionsTagRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > 10000 {
		runes := []rune(answer)
		runes = runes[:10000]
		answer = string(runes) + "\n\n[Answer truncated due to length]"
	}

	return answer
}
