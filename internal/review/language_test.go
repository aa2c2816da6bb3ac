package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"main.py", LanguagePython},
		{"src/app.PY", LanguagePython},
		{"index.js", LanguageJavaScript},
		{"component.jsx", LanguageJavaScript},
		{"api.ts", LanguageTypeScript},
		{"view.tsx", LanguageTypeScript},
		{"Main.java", LanguageJava},
		{"server.go", LanguageGo},
		{"engine.cpp", LanguageCPP},
		{"engine.h", LanguageCPP},
		{"worker.rb", LanguageRuby},
		{"index.php", LanguagePHP},
		{"README.md", LanguageUnknown},
		{"script.sh", LanguageUnknown},
		{"Makefile", LanguageUnknown},
		{"noext", LanguageUnknown},
		{"", LanguageUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.path))
		})
	}
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("main.py"))
	assert.True(t, Supported("deep/nested/dir/app.ts"))
	assert.False(t, Supported("README.md"))
	assert.False(t, Supported("script.sh"))
	assert.False(t, Supported("image.png"))
}
