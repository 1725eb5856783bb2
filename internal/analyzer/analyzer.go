package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Marcelixoo/b-ro-buddy/internal/llm"
	"github.com/Marcelixoo/b-ro-buddy/internal/models"
	"github.com/Marcelixoo/b-ro-buddy/internal/utils"
)

const (
	analysisTemperature = 0.2
	analysisMaxTokens   = 4096
)

// Analyzer turns extracted letter text into a structured analysis. It
// always produces a result: when the provider is unreachable or has no
// credentials it falls back to a deterministic stub instead of failing.
type Analyzer struct {
	provider llm.Provider
	logger   *utils.Logger
}

func New(provider llm.Provider, logger *utils.Logger) *Analyzer {
	return &Analyzer{provider: provider, logger: logger}
}

// Analyze runs one low-temperature completion and parses the JSON reply.
// Malformed model output fails this attempt; the caller may re-invoke.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*models.DocumentAnalysis, error) {
	raw, err := a.provider.Complete(ctx, llm.Request{
		System: analysisSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserPrompt(text)},
		},
		Temperature: analysisTemperature,
		MaxTokens:   analysisMaxTokens,
	})
	if err != nil {
		if llm.IsUnavailable(err) {
			a.logger.Info("LLM unavailable, returning stub analysis", "reason", err)
			return StubAnalysis(), nil
		}
		return nil, err
	}

	var analysis models.DocumentAnalysis
	if err := json.Unmarshal([]byte(StripFences(raw)), &analysis); err != nil {
		a.logger.Error("Failed to parse model output as JSON", "error", err)
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	return &analysis, nil
}

// StripFences removes one leading and one trailing fenced-block
// delimiter line if present. Stripping is idempotent: applying it twice
// equals applying it once.
func StripFences(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}

	lines := strings.Split(raw, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}

	return strings.Join(lines, "\n")
}

// StubAnalysis is the degraded-mode result. Structurally identical to a
// real analysis so callers cannot distinguish it by shape.
func StubAnalysis() *models.DocumentAnalysis {
	return &models.DocumentAnalysis{
		LanguageDetected: "de",
		SummaryEN:        "Sample summary (set OPENAI_API_KEY for real analysis).",
		OverallRisk:      models.RiskLow,
		Actions:          []models.Action{},
		Deadlines:        []models.Deadline{},
		Entities:         models.Entities{},
	}
}
