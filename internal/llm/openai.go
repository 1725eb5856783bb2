package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Marcelixoo/b-ro-buddy/internal/utils"
)

const openAIBaseURL = "https://api.openai.com/v1"

// openAIProvider is the primary provider: hosted chat completions.
type openAIProvider struct {
	apiKey  string
	model   string
	baseURL string
	logger  *utils.Logger
	client  *http.Client
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float32         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}

func NewOpenAIProvider(apiKey, model string, logger *utils.Logger) Provider {
	return &openAIProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: openAIBaseURL,
		logger:  logger,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (p *openAIProvider) Configured() bool {
	return p.apiKey != ""
}

func (p *openAIProvider) Complete(ctx context.Context, r Request) (string, error) {
	if !p.Configured() {
		return "", ErrNoCredentials
	}

	messages := make([]openAIMessage, 0, len(r.Messages)+1)
	if r.System != "" {
		messages = append(messages, openAIMessage{Role: RoleSystem, Content: r.System})
	}
	for _, m := range r.Messages {
		messages = append(messages, openAIMessage{Role: m.Role, Content: m.Content})
	}

	reqBody := openAIRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: r.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: "openai", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: "openai", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		p.logger.Error("OpenAI API error", "status", resp.StatusCode, "body", string(body))
		return "", &ProviderError{Provider: "openai", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Provider: "openai", Err: fmt.Errorf("malformed response: %w", err)}
	}

	if parsed.Error != nil {
		return "", &ProviderError{Provider: "openai", Err: fmt.Errorf("%s", parsed.Error.Message)}
	}

	if len(parsed.Choices) == 0 {
		return "", &ProviderError{Provider: "openai", Err: fmt.Errorf("no choices in response")}
	}

	return parsed.Choices[0].Message.Content, nil
}
