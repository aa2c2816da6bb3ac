package review

import (
	"path/filepath"
	"strings"
)

// Language is a logical language tag derived from a file extension.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageJava       Language = "java"
	LanguageGo         Language = "go"
	LanguageCPP        Language = "c++"
	LanguageRuby       Language = "ruby"
	LanguagePHP        Language = "php"
	LanguageUnknown    Language = "unknown"
)

var extLanguages = map[string]Language{
	"py":   LanguagePython,
	"pyw":  LanguagePython,
	"js":   LanguageJavaScript,
	"jsx":  LanguageJavaScript,
	"ts":   LanguageTypeScript,
	"tsx":  LanguageTypeScript,
	"java": LanguageJava,
	"go":   LanguageGo,
	"c":    LanguageCPP,
	"h":    LanguageCPP,
	"cc":   LanguageCPP,
	"cpp":  LanguageCPP,
	"hpp":  LanguageCPP,
	"rb":   LanguageRuby,
	"php":  LanguagePHP,
}

// Classify maps a file path's extension (case-insensitive) to a language
// tag, or LanguageUnknown when the extension is unsupported.
func Classify(path string) Language {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if lang, ok := extLanguages[ext]; ok {
		return lang
	}
	return LanguageUnknown
}

// Supported reports whether a file is eligible for analysis. Files whose
// extension maps to no known language are filtered out before the
// orchestrator ever sees them.
func Supported(path string) bool {
	return Classify(path) != LanguageUnknown
}
