package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// LLMConfig holds the connection settings shared by the intent and embedding clients.
type LLMConfig struct {
	BaseURL string
	Timeout time.Duration
}

// newOpenAIClient builds a client for one credential. Clients are cheap; the
// underlying http.Client is shared.
func newOpenAIClient(apiKey string, cfg LLMConfig, httpClient *http.Client) *openai.Client {
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = httpClient
	return openai.NewClientWithConfig(clientCfg)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// describeAPIError extracts a readable message from go-openai errors.
func describeAPIError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s", op, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("%s API error %d: %s", op, reqErr.HTTPStatusCode, detail)
		}
		return fmt.Errorf("%s API error %d: %w", op, reqErr.HTTPStatusCode, reqErr.Err)
	}

	return fmt.Errorf("%s request failed: %w", op, err)
}

// extractDetail reads the "detail" field some OpenAI-compatible gateways use for errors.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		return parsed.Detail
	}
	return ""
}
