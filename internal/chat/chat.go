package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/Marcelixoo/b-ro-buddy/internal/llm"
	"github.com/Marcelixoo/b-ro-buddy/internal/models"
	"github.com/Marcelixoo/b-ro-buddy/internal/utils"
)

// DisabledMessage is returned verbatim whenever no reply can be
// produced, with or without a model call attempted.
const DisabledMessage = "Chat is disabled. Set OPENAI_API_KEY to enable document Q&A."

const (
	chatTemperature = 0.3
	chatMaxTokens   = 1024
)

// Chat answers questions about one document, grounded in its extracted
// text and latest analysis summary. It never persists anything.
type Chat struct {
	provider llm.Provider
	logger   *utils.Logger
}

func New(provider llm.Provider, logger *utils.Logger) *Chat {
	return &Chat{provider: provider, logger: logger}
}

// Reply sends the full history plus the new user message and returns the
// assistant's trimmed reply. Provider failures degrade to the disabled
// notice rather than erroring.
func (c *Chat) Reply(ctx context.Context, documentText, analysisSummary string, history []models.ChatMessage, userMessage string) (string, error) {
	if !c.provider.Configured() {
		return DisabledMessage, nil
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})

	reply, err := c.provider.Complete(ctx, llm.Request{
		System:      buildGroundingPrompt(documentText, analysisSummary),
		Messages:    messages,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		c.logger.Warn("Chat completion failed, degrading", "error", err)
		return DisabledMessage, nil
	}

	return strings.TrimSpace(reply), nil
}

func buildGroundingPrompt(documentText, analysisSummary string) string {
	return fmt.Sprintf(`You are BüroBuddy. Answer questions about this German letter based ONLY on the following.

Document (extracted text):
%s

Analysis summary:
%s

Answer in English. Be concise. If the answer is not in the document, say so.`, documentText, analysisSummary)
}
