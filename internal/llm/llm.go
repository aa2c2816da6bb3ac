// Package llm wraps the Anthropic API for per-file code analysis: quality
// scoring, security vulnerability detection, and performance suggestions.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/revu/internal/models"
)

// QualityResult holds the quality analyzer's output for one file.
type QualityResult struct {
	Score       float64
	Suggestions []models.Finding
}

// wireFinding is the JSON shape the prompts ask the model to produce.
type wireFinding struct {
	Line     int    `json:"line"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Client wraps the Anthropic API for code analysis.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// complete sends one system+user exchange and returns the response text.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}
	return text, nil
}

// stripFence removes markdown code fencing the model sometimes adds despite
// instructions.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}

// AnalyzeQuality reviews code for quality issues and returns a 0-100 score
// plus suggestions.
func (c *Client) AnalyzeQuality(ctx context.Context, code, filePath, language string) (*QualityResult, error) {
	system, user := buildQualityPrompt(code, filePath, language)
	text, err := c.complete(ctx, system, user)
	if err != nil {
		return nil, err
	}
	return parseQualityResponse(text, filePath)
}

// DetectSecurity scans code for security vulnerabilities.
func (c *Client) DetectSecurity(ctx context.Context, code, filePath, language string) ([]models.Finding, error) {
	system, user := buildSecurityPrompt(code, filePath, language)
	text, err := c.complete(ctx, system, user)
	if err != nil {
		return nil, err
	}
	return parseFindings(text, models.FindingKindSecurity, filePath)
}

// SuggestPerformance scans code for performance problems.
func (c *Client) SuggestPerformance(ctx context.Context, code, filePath, language string) ([]models.Finding, error) {
	system, user := buildPerformancePrompt(code, filePath, language)
	text, err := c.complete(ctx, system, user)
	if err != nil {
		return nil, err
	}
	return parseFindings(text, models.FindingKindPerformance, filePath)
}

// parseQualityResponse parses the quality analyzer's JSON object response.
func parseQualityResponse(text, filePath string) (*QualityResult, error) {
	text = stripFence(text)

	var wire struct {
		QualityScore float64       `json:"quality_score"`
		Suggestions  []wireFinding `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("parse quality response as JSON: %w\nraw response: %s", err, text)
	}

	return &QualityResult{
		Score:       wire.QualityScore,
		Suggestions: toFindings(wire.Suggestions, models.FindingKindQuality, filePath),
	}, nil
}

// parseFindings parses a JSON array response into findings of one kind.
func parseFindings(text string, kind models.FindingKind, filePath string) ([]models.Finding, error) {
	text = stripFence(text)

	var wire []wireFinding
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("parse %s response as JSON: %w\nraw response: %s", kind, err, text)
	}
	return toFindings(wire, kind, filePath), nil
}

func toFindings(wire []wireFinding, kind models.FindingKind, filePath string) []models.Finding {
	findings := make([]models.Finding, 0, len(wire))
	for _, w := range wire {
		if w.Message == "" {
			continue
		}
		findings = append(findings, models.Finding{
			Kind:     kind,
			FilePath: filePath,
			Line:     w.Line,
			Message:  w.Message,
			Severity: normalizeSeverity(w.Severity),
		})
	}
	return findings
}

func normalizeSeverity(s string) models.FindingSeverity {
	switch strings.ToLower(s) {
	case "low":
		return models.FindingSeverityLow
	case "medium":
		return models.FindingSeverityMedium
	case "high":
		return models.FindingSeverityHigh
	default:
		return ""
	}
}
