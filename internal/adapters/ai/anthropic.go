package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicQualifier asks an Anthropic messages model.
type AnthropicQualifier struct {
	client anthropic.Client
	model  string
	log    logger.Logger
}

// NewAnthropicQualifier creates a client for cfg.
func NewAnthropicQualifier(cfg Config, extra ...option.RequestOption) (*AnthropicQualifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicQualifier{
		client: anthropic.NewClient(opts...),
		model:  model,
		log:    logger.Get().Named("ai.anthropic"),
	}, nil
}

func (q *AnthropicQualifier) Qualify(ctx context.Context, req Request) (Qualification, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(q.model),
		MaxTokens:   maxAnswerTokens,
		Temperature: anthropic.Float(answerTemperature),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(UserPrompt(req))),
		},
	}

	start := time.Now()
	resp, err := q.client.Messages.New(ctx, params)
	if err != nil {
		return Qualification{}, fmt.Errorf("anthropic messages: %w", err)
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	q.log.Debug(ctx, "qualification completed",
		logger.String("lead_id", req.Lead.LeadID),
		logger.String("model", q.model),
		logger.Duration("duration", time.Since(start)),
		logger.Int("input_tokens", int(resp.Usage.InputTokens)),
		logger.Int("output_tokens", int(resp.Usage.OutputTokens)))

	return ParseQualification(text.String())
}

var _ Qualifier = (*AnthropicQualifier)(nil)
