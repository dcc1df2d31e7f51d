package chat

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"cvdwbi/internal/platform/logx"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

//go:embed template/enhance_prompt.txt
var enhanceSystemPrompt string

// ModelEnhancer asks a chat model to rephrase the plain report.
type ModelEnhancer struct {
	model   model.BaseChatModel
	tpl     prompt.ChatTemplate
	timeout time.Duration
}

func NewModelEnhancer(m model.BaseChatModel, timeout time.Duration) *ModelEnhancer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ModelEnhancer{
		model: m,
		tpl: prompt.FromMessages(
			schema.GoTemplate,
			schema.SystemMessage(enhanceSystemPrompt),
			schema.UserMessage("{{.Query}}"),
		),
		timeout: timeout,
	}
}

func (e *ModelEnhancer) Enhance(ctx context.Context, in EnhanceInput) (string, error) {
	msgs, err := e.tpl.Format(ctx, map[string]any{
		"Query":     in.Query,
		"Category":  string(in.Category),
		"Report":    in.Report,
		"Day":       in.Day,
		"LeadCount": in.LeadCount,
	})
	if err != nil {
		return "", fmt.Errorf("enhance prompt render: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.model.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", errors.New("generate: empty response")
	}
	return strings.TrimSpace(out.Content), nil
}

type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// NewGeminiModel builds the Gemini chat model behind the enhancer.
func NewGeminiModel(ctx context.Context, cfg GeminiConfig) (*gemini.ChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini chat model: %w", err)
	}
	return cm, nil
}
