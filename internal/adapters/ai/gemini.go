package ai

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiQualifier asks a Gemini model through the Gemini API backend.
type GeminiQualifier struct {
	client *genai.Client
	model  string
	log    logger.Logger
}

// NewGeminiQualifier creates a client for cfg. BaseURL overrides the API host.
func NewGeminiQualifier(ctx context.Context, cfg Config) (*GeminiQualifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiQualifier{
		client: client,
		model:  model,
		log:    logger.Get().Named("ai.gemini"),
	}, nil
}

func (q *GeminiQualifier) Qualify(ctx context.Context, req Request) (Qualification, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(systemPrompt)},
		},
		Temperature:      genai.Ptr[float32](answerTemperature),
		MaxOutputTokens:  maxAnswerTokens,
		ResponseMIMEType: "application/json",
	}
	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{genai.NewPartFromText(UserPrompt(req))}},
	}

	start := time.Now()
	resp, err := q.client.Models.GenerateContent(ctx, q.model, contents, cfg)
	if err != nil {
		return Qualification{}, fmt.Errorf("gemini generate: %w", err)
	}
	q.log.Debug(ctx, "qualification completed",
		logger.String("lead_id", req.Lead.LeadID),
		logger.String("model", q.model),
		logger.Duration("duration", time.Since(start)))

	return ParseQualification(resp.Text())
}

var _ Qualifier = (*GeminiQualifier)(nil)
