package vcs

import (
	"path"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/codedrift/pkg/normalize"
)

// languagesByName maps enry's language names onto the normalizer languages.
var languagesByName = map[string]normalize.Language{
	"Python":     normalize.LangPython,
	"JavaScript": normalize.LangJavaScript,
	"JSX":        normalize.LangJavaScript,
	"PHP":        normalize.LangPHP,
}

// DetectLanguage resolves the analyzable language of a file. The second
// return is false for binary, vendored, or unsupported files, which the
// walker skips entirely.
func DetectLanguage(filePath string, content []byte) (normalize.Language, bool) {
	if enry.IsVendor(filePath) || enry.IsBinary(content) {
		return "", false
	}

	lang, ok := languagesByName[enry.GetLanguage(path.Base(filePath), content)]

	return lang, ok
}
