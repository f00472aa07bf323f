package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/inkgrade/inkgrade/internal/ai/prompts"

	openai "github.com/sashabaranov/go-openai"
)

// Image is an uploaded answer image handed to the model.
type Image struct {
	MIME string
	Data []byte
}

// DataURL encodes the image as a base64 data URL for multimodal requests.
func (img Image) DataURL() string {
	mime := img.MIME
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Analysis is the model's combined transcription and grading of one answer.
type Analysis struct {
	ExtractedText string   `json:"extracted_text"`
	Reasoning     string   `json:"reasoning"`
	Score         *float64 `json:"score"`
}

// Scored is the model's grading of already-transcribed answer text.
type Scored struct {
	Reasoning string   `json:"reasoning"`
	Score     *float64 `json:"score"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.Variant
}

// New creates a new AI client.
func New(baseURL, apiKey, modelName string, variant prompts.Variant) (*Client, error) {
	if err := prompts.Load(); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: variant,
	}, nil
}

// Ping verifies the endpoint is reachable and the credential is accepted.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("AI endpoint check: %w", err)
	}
	return nil
}

// AnalyzeAnswer sends the question and the answer image in one multimodal
// call. The model transcribes the handwriting verbatim and grades it against
// the question in the same response.
func (c *Client) AnalyzeAnswer(ctx context.Context, questionText string, img Image, maxPoints int) (*Analysis, error) {
	prompt, err := prompts.BuildAnalyzePrompt(c.variant, questionText, maxPoints)
	if err != nil {
		return nil, fmt.Errorf("build analyze prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: img.DataURL(),
						},
					},
				},
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("analyze response", "raw", raw)

	var result Analysis
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), &result); err != nil {
		return nil, fmt.Errorf("parse analyze response: %w (raw: %s)", err, raw)
	}
	if result.Score == nil {
		return nil, fmt.Errorf("analyze response missing score (raw: %s)", raw)
	}
	return &result, nil
}

// Transcribe extracts the handwritten text from an image without grading it.
func (c *Client) Transcribe(ctx context.Context, img Image) (string, error) {
	prompt, err := prompts.TranscribePrompt()
	if err != nil {
		return "", fmt.Errorf("build transcribe prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: img.DataURL(),
						},
					},
				},
			},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ScoreAnswer grades already-transcribed answer text against the question.
func (c *Client) ScoreAnswer(ctx context.Context, questionText, answerText string, maxPoints int) (*Scored, error) {
	prompt, err := prompts.BuildScorePrompt(c.variant, questionText, answerText, maxPoints)
	if err != nil {
		return nil, fmt.Errorf("build score prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("score API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("score response", "raw", raw)

	var result Scored
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), &result); err != nil {
		return nil, fmt.Errorf("parse score response: %w (raw: %s)", err, raw)
	}
	if result.Score == nil {
		return nil, fmt.Errorf("score response missing score (raw: %s)", raw)
	}
	return &result, nil
}

// StripCodeFence removes Markdown code-fence decoration some models wrap
// around JSON responses.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
