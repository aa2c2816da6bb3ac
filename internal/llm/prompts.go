package llm

import (
	"fmt"
	"strings"
)

const findingSchema = `Return ONLY a JSON array of objects with these fields:
- "line": integer line number the observation applies to (omit or 0 if none)
- "message": concise description of the issue and how to fix it
- "severity": one of "low", "medium", "high"

Return valid JSON only, no markdown fencing or explanation. Return [] when
there is nothing worth reporting.`

// buildQualityPrompt constructs the system and user prompts for code
// quality analysis.
func buildQualityPrompt(code, filePath, language string) (system, user string) {
	system = `You are an expert code reviewer. Return ONLY a JSON object with these fields:
- "quality_score": integer 0-100 rating overall code quality
- "suggestions": array of objects with "line" (integer), "message" (string), "severity" ("low"|"medium"|"high")

Analyze the code for:
1. Code quality and best practices
2. Potential bugs or issues
3. Code style and formatting
4. Maintainability improvements

Return valid JSON only, no markdown fencing or explanation.`
	user = codeBlock(code, filePath, language)
	return
}

// buildSecurityPrompt constructs the prompts for security analysis.
func buildSecurityPrompt(code, filePath, language string) (system, user string) {
	system = `You are a security expert analyzing code for vulnerabilities. Look for:
1. Input validation issues
2. SQL injection vulnerabilities
3. XSS vulnerabilities
4. Authentication/authorization flaws
5. Sensitive data exposure
6. Insecure dependencies
7. OWASP Top 10 vulnerabilities

` + findingSchema
	user = codeBlock(code, filePath, language)
	return
}

// buildPerformancePrompt constructs the prompts for performance analysis.
func buildPerformancePrompt(code, filePath, language string) (system, user string) {
	system = `You are a performance expert analyzing code for inefficiencies. Identify:
1. Inefficient algorithms or data structures
2. Memory leaks or excessive memory usage
3. Database query optimization opportunities
4. Caching opportunities
5. Resource cleanup issues

` + findingSchema
	user = codeBlock(code, filePath, language)
	return
}

func codeBlock(code, filePath, language string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Review the following %s code from file %s:\n\n", language, filePath)
	fmt.Fprintf(&sb, "```%s\n", language)
	sb.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n")
	return sb.String()
}
