package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"rentalsearch/internal/metrics"
	"rentalsearch/internal/model"
	"rentalsearch/internal/utils"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const opIntent = "intent"

const intentSystemPrompt = `You are a rental property search assistant. Extract structured search criteria from the user's query.

Respond ONLY with a JSON object using these fields (omit or set null anything not mentioned):
- bedrooms: integer
- bathrooms: integer
- priceRange: {"min": number, "max": number} monthly rent bounds
- amenities: array of amenities, using these names where possible: ` + "%s" + `
- propertyType: string such as "apartment", "house", "studio", "condo"
- petFriendly: true if the user mentions any of: ` + "%s" + `
- keywords: array of other important descriptive words
- location: string, neighbourhood or city

Rules:
- "2br", "2 bed", "two bedroom" all mean bedrooms: 2
- "under 2500" means priceRange.max 2500; "at least 1500" means priceRange.min 1500
- "1.5k" = 1500
- Do not invent criteria the user did not ask for

Example:
Query: "2 bedroom apartment with a pool under $2500, my dog comes too"
Response: {"bedrooms": 2, "priceRange": {"max": 2500}, "amenities": ["pool"], "propertyType": "apartment", "petFriendly": true, "keywords": ["apartment"]}`

// IntentExtractorConfig configures the chat model used for intent analysis.
type IntentExtractorConfig struct {
	LLM         LLMConfig
	ChatModel   string
	Temperature float64
	MaxTokens   int
}

// IntentExtractor asks a chat model for structured criteria. It never returns an error:
// every failure is logged and yields a nil intent.
type IntentExtractor struct {
	cfg        IntentExtractorConfig
	httpClient *http.Client
	prompt     string
	logger     *zap.Logger
}

// NewIntentExtractor creates an extractor
func NewIntentExtractor(cfg IntentExtractorConfig, logger *zap.Logger) *IntentExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntentExtractor{
		cfg:        cfg,
		httpClient: newHTTPClient(cfg.LLM.Timeout),
		prompt: fmt.Sprintf(intentSystemPrompt,
			strings.Join(utils.AmenityVocabulary, ", "),
			strings.Join(utils.PetWords, ", ")),
		logger: logger,
	}
}

// Analyze implements IntentAnalyzer. chatModel overrides the configured model when non-empty.
func (e *IntentExtractor) Analyze(ctx context.Context, apiKey, chatModel, text string) *model.AnalyzedIntent {
	text = strings.TrimSpace(text)
	if text == "" || apiKey == "" {
		return nil
	}
	if chatModel == "" {
		chatModel = e.cfg.ChatModel
	}

	start := time.Now()
	intent, err := e.analyze(ctx, apiKey, chatModel, text)
	metrics.LLMRequestDuration.WithLabelValues(opIntent).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(opIntent, "error").Inc()
		e.logger.Warn("intent analysis failed",
			zap.String("model", chatModel),
			zap.Error(err))
		return nil
	}
	metrics.LLMRequestsTotal.WithLabelValues(opIntent, "success").Inc()

	e.logger.Debug("intent analyzed",
		zap.String("model", chatModel),
		zap.Any("intent", intent))
	return intent
}

func (e *IntentExtractor) analyze(ctx context.Context, apiKey, chatModel, text string) (*model.AnalyzedIntent, error) {
	client := newOpenAIClient(apiKey, e.cfg.LLM, e.httpClient)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: e.prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature:    float32(e.cfg.Temperature),
		MaxTokens:      e.cfg.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, describeAPIError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in chat completion response")
	}

	content := resp.Choices[0].Message.Content
	var payload intentPayload
	if err := utils.ParseAIJSON(content, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse intent response %q: %w", truncate(content, 200), err)
	}

	intent, err := payload.toIntent()
	if err != nil {
		return nil, fmt.Errorf("intent response validation failed: %w", err)
	}
	return intent, nil
}

// intentPayload mirrors the JSON the model is asked for. Counts are decoded as floats
// because models regularly emit "2.0".
type intentPayload struct {
	Bedrooms   *float64 `json:"bedrooms"`
	Bathrooms  *float64 `json:"bathrooms"`
	PriceRange *struct {
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	} `json:"priceRange"`
	Amenities    []string `json:"amenities"`
	PropertyType *string  `json:"propertyType"`
	PetFriendly  *bool    `json:"petFriendly"`
	Keywords     []string `json:"keywords"`
	Location     *string  `json:"location"`
}

func (p *intentPayload) toIntent() (*model.AnalyzedIntent, error) {
	intent := &model.AnalyzedIntent{}

	var err error
	if intent.Bedrooms, err = wholeCount("bedrooms", p.Bedrooms); err != nil {
		return nil, err
	}
	if intent.Bathrooms, err = wholeCount("bathrooms", p.Bathrooms); err != nil {
		return nil, err
	}

	if p.PriceRange != nil && (p.PriceRange.Min != nil || p.PriceRange.Max != nil) {
		pr := &model.PriceRange{Min: p.PriceRange.Min, Max: p.PriceRange.Max}
		if pr.Min != nil && *pr.Min < 0 {
			return nil, fmt.Errorf("priceRange.min must not be negative, got %v", *pr.Min)
		}
		if pr.Max != nil && *pr.Max < 0 {
			return nil, fmt.Errorf("priceRange.max must not be negative, got %v", *pr.Max)
		}
		if pr.Min != nil && pr.Max != nil && *pr.Min > *pr.Max {
			return nil, fmt.Errorf("priceRange.min (%v) cannot be greater than priceRange.max (%v)", *pr.Min, *pr.Max)
		}
		intent.PriceRange = pr
	}

	intent.Amenities = utils.NormalizeAmenities(p.Amenities)
	intent.Keywords = cleanKeywords(p.Keywords)
	intent.PropertyType = nonEmpty(p.PropertyType)
	intent.Location = nonEmpty(p.Location)
	intent.PetFriendly = p.PetFriendly

	if intent.PetFriendly == nil && mentionsPets(intent.Keywords) {
		yes := true
		intent.PetFriendly = &yes
	}

	return intent, nil
}

func wholeCount(field string, v *float64) (*int, error) {
	if v == nil {
		return nil, nil
	}
	if *v < 0 || *v != math.Trunc(*v) {
		return nil, fmt.Errorf("%s must be a non-negative integer, got %v", field, *v)
	}
	n := int(*v)
	return &n, nil
}

func cleanKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func mentionsPets(words []string) bool {
	for _, w := range words {
		lw := strings.ToLower(w)
		for _, p := range utils.PetWords {
			if lw == p {
				return true
			}
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
