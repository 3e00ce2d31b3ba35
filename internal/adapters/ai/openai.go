package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	maxAnswerTokens    = 400
	answerTemperature  = 0.2
)

// OpenAIQualifier asks an OpenAI chat model, using a strict JSON schema for
// the answer.
type OpenAIQualifier struct {
	client openai.Client
	model  string
	schema any
	log    logger.Logger
}

// NewOpenAIQualifier creates a client for cfg. BaseURL allows compatible gateways.
func NewOpenAIQualifier(cfg Config, extra ...option.RequestOption) (*OpenAIQualifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIQualifier{
		client: openai.NewClient(opts...),
		model:  model,
		schema: answerSchema(),
		log:    logger.Get().Named("ai.openai"),
	}, nil
}

func answerSchema() any {
	r := jsonschema.Reflector{AllowAdditionalProperties: false, DoNotReference: true}
	return r.Reflect(Qualification{})
}

func (q *OpenAIQualifier) Qualify(ctx context.Context, req Request) (Qualification, error) {
	params := openai.ChatCompletionNewParams{
		Model: q.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(UserPrompt(req)),
		},
		MaxTokens:   openai.Int(maxAnswerTokens),
		Temperature: openai.Float(answerTemperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "lead_qualification",
					Schema: q.schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	start := time.Now()
	resp, err := q.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Qualification{}, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Qualification{}, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	q.log.Debug(ctx, "qualification completed",
		logger.String("lead_id", req.Lead.LeadID),
		logger.String("model", q.model),
		logger.Duration("duration", time.Since(start)),
		logger.Int("prompt_tokens", int(resp.Usage.PromptTokens)),
		logger.Int("completion_tokens", int(resp.Usage.CompletionTokens)))

	return ParseQualification(resp.Choices[0].Message.Content)
}

var _ Qualifier = (*OpenAIQualifier)(nil)
