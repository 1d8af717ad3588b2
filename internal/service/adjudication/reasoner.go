package adjudication

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/api/idtoken"
)

// Reasoner performs one external reasoning call and returns the raw
// structured response for validation by ParseVerdict.
type Reasoner interface {
	Reason(ctx context.Context, req Request) ([]byte, error)
}

const maxResponseBytes = 1 << 20

// ServiceReasoner posts requests to a reasoning service over HTTP.
type ServiceReasoner struct {
	client  *http.Client
	baseURL string
}

// NewServiceReasoner builds a client for {baseURL}/adjudicate, using an ID
// token client when none is injected.
func NewServiceReasoner(client *http.Client, baseURL string) (*ServiceReasoner, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("reasoning service base url must not be empty")
	}
	if client == nil {
		idc, err := idtoken.NewClient(context.Background(), baseURL)
		if err != nil {
			client = &http.Client{Timeout: 30 * time.Second}
		} else {
			client = idc
		}
	}
	return &ServiceReasoner{client: client, baseURL: baseURL}, nil
}

// Reason posts the request and returns the verdict document. Responses wrapped
// in a {"data": ...} envelope are unwrapped.
func (s *ServiceReasoner) Reason(ctx context.Context, req Request) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reasoning request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/adjudicate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create reasoning request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.RequestID != "" {
		httpReq.Header.Set("X-Request-ID", req.RequestID)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("reasoning request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("could not read reasoning response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("reasoning service error: status=%d body=%s", resp.StatusCode, extractServiceError(payload))
	}

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil {
		if envelope.Error != "" {
			return nil, fmt.Errorf("reasoning service error: %s", envelope.Error)
		}
		if len(envelope.Data) > 0 && envelope.Data[0] == '{' {
			return envelope.Data, nil
		}
	}
	return payload, nil
}

func extractServiceError(payload []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(payload))
}

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-3-5-haiku-latest"

const anthropicMaxTokens = 1024

// AnthropicReasoner asks an Anthropic model for the verdict through the
// Messages API.
type AnthropicReasoner struct {
	client anthropic.Client
	model  string
}

// NewAnthropicReasoner configures the SDK client. Extra options (base URL,
// HTTP client) are passed through.
func NewAnthropicReasoner(apiKey, model string, opts ...option.RequestOption) (*AnthropicReasoner, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("anthropic api key must not be empty")
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicReasoner{client: anthropic.NewClient(opts...), model: model}, nil
}

// Reason sends the rendered prompt and returns the concatenated text blocks.
func (a *AnthropicReasoner) Reason(ctx context.Context, req Request) ([]byte, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt())),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, errors.New("anthropic returned empty content")
	}
	return []byte(text.String()), nil
}

var (
	_ Reasoner = (*ServiceReasoner)(nil)
	_ Reasoner = (*AnthropicReasoner)(nil)
)
