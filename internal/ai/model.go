package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when no model credentials are available
var ErrNotConfigured = errors.New("model API key not configured")

// Prompt is one request to the model. Image is optional.
type Prompt struct {
	System string
	User   string
	Image  []byte
}

// Model is the opaque vision/language model: text (and optionally an image)
// in, raw text out.
type Model interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// OpenAIConfig configures the OpenAI-compatible model
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty means the public OpenAI endpoint
	Model   string
	Timeout time.Duration
}

// OpenAIModel talks to any OpenAI-compatible chat completion endpoint
type OpenAIModel struct {
	client *openai.Client
	model  string
	log    *zap.Logger
}

// NewOpenAIModel creates the model client. It fails with ErrNotConfigured
// when no API key is set.
func NewOpenAIModel(cfg OpenAIConfig, log *zap.Logger) (*OpenAIModel, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if log == nil {
		log = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIModel{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		log:    log.Named("model"),
	}, nil
}

// Complete sends one chat completion request in JSON mode
func (m *OpenAIModel) Complete(ctx context.Context, p Prompt) (string, error) {
	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(p.Image) > 0 {
		user.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: p.User},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL(p.Image),
					Detail: openai.ImageURLDetailAuto,
				},
			},
		}
	} else {
		user.Content = p.User
	}

	messages := []openai.ChatCompletionMessage{}
	if p.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.System,
		})
	}
	messages = append(messages, user)

	m.log.Debug("making completion request",
		zap.String("model", m.model),
		zap.Bool("has_image", len(p.Image) > 0))

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    messages,
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response choices returned from model")
	}
	return resp.Choices[0].Message.Content, nil
}

// dataURL encodes an image as a data URL with a sniffed MIME type
func dataURL(image []byte) string {
	mime := http.DetectContentType(image)
	if mime == "application/octet-stream" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
}
