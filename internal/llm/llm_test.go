package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revu/internal/models"
)

func TestBuildQualityPrompt(t *testing.T) {
	system, user := buildQualityPrompt("def f():\n    pass", "main.py", "python")

	assert.Contains(t, system, `"quality_score"`)
	assert.Contains(t, system, `"suggestions"`)
	assert.Contains(t, system, `"low"`)
	assert.Contains(t, system, `"high"`)

	assert.Contains(t, user, "main.py")
	assert.Contains(t, user, "python")
	assert.Contains(t, user, "def f():")
}

func TestBuildSecurityPrompt(t *testing.T) {
	system, user := buildSecurityPrompt("code", "app.js", "javascript")

	assert.Contains(t, system, "SQL injection")
	assert.Contains(t, system, "JSON array")
	assert.Contains(t, user, "app.js")
	assert.Contains(t, user, "```javascript")
}

func TestBuildPerformancePrompt(t *testing.T) {
	system, user := buildPerformancePrompt("code", "slow.go", "go")

	assert.Contains(t, system, "algorithms")
	assert.Contains(t, system, "JSON array")
	assert.Contains(t, user, "slow.go")
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n[1,2]\n```\n ", `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFence(tt.in))
		})
	}
}

func TestParseQualityResponse(t *testing.T) {
	text := "```json\n" + `{
		"quality_score": 85,
		"suggestions": [
			{"line": 10, "message": "Consider using type hints", "severity": "low"},
			{"line": 0, "message": "", "severity": "high"}
		]
	}` + "\n```"

	result, err := parseQualityResponse(text, "main.py")
	require.NoError(t, err)

	assert.InDelta(t, 85.0, result.Score, 0.001)
	// Empty messages are dropped
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, models.FindingKindQuality, result.Suggestions[0].Kind)
	assert.Equal(t, "main.py", result.Suggestions[0].FilePath)
	assert.Equal(t, 10, result.Suggestions[0].Line)
	assert.Equal(t, models.FindingSeverityLow, result.Suggestions[0].Severity)
}

func TestParseQualityResponse_Invalid(t *testing.T) {
	_, err := parseQualityResponse("the code looks fine to me", "main.py")
	assert.Error(t, err)
}

func TestParseFindings(t *testing.T) {
	text := `[
		{"line": 3, "message": "SQL injection via string concat", "severity": "HIGH"},
		{"message": "hardcoded credential", "severity": "bogus"}
	]`

	findings, err := parseFindings(text, models.FindingKindSecurity, "db.py")
	require.NoError(t, err)
	require.Len(t, findings, 2)

	assert.Equal(t, models.FindingKindSecurity, findings[0].Kind)
	assert.Equal(t, 3, findings[0].Line)
	assert.Equal(t, models.FindingSeverityHigh, findings[0].Severity)

	// Unknown severities normalize to unset
	assert.Equal(t, models.FindingSeverity(""), findings[1].Severity)
	assert.Equal(t, 0, findings[1].Line)
}

func TestParseFindings_Empty(t *testing.T) {
	findings, err := parseFindings("[]", models.FindingKindPerformance, "x.go")
	require.NoError(t, err)
	assert.Empty(t, findings)
}
