// Package langs normalizes language identifiers reported by speech and
// language models to ISO 639-1 codes.
package langs

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// known lists the languages the transcription backends report by name.
var known = []string{
	"af", "ar", "hy", "az", "be", "bs", "bg", "ca", "zh", "hr", "cs", "da", "nl",
	"en", "et", "fi", "fr", "gl", "de", "el", "he", "hi", "hu", "is", "id", "it",
	"ja", "kn", "kk", "ko", "lv", "lt", "mk", "ms", "mr", "mi", "ne", "no", "fa",
	"pl", "pt", "ro", "ru", "sr", "sk", "sl", "es", "sw", "sv", "tl", "ta", "th",
	"tr", "uk", "ur", "vi", "cy",
}

var byName = func() map[string]string {
	names := display.English.Languages()
	out := make(map[string]string, len(known))
	for _, code := range known {
		tag := language.MustParse(code)
		out[strings.ToLower(names.Name(tag))] = code
	}
	// Whisper reports a few languages by their older names.
	out["tagalog"] = "tl"
	out["norwegian"] = "no"
	out["persian"] = "fa"
	return out
}()

// Normalize turns a code ("en", "eng", "pt-BR") or an English language name
// ("english") into a two-letter code. Unknown or "unknown" input yields "".
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "unknown" || s == "und" {
		return ""
	}
	if code, ok := byName[s]; ok {
		return code
	}
	tag, err := language.Parse(s)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	b := base.String()
	if len(b) != 2 {
		return ""
	}
	return b
}

// IsEnglish reports whether s names English.
func IsEnglish(s string) bool { return Normalize(s) == "en" }

// DisplayName returns the English name for a code, or the input when unknown.
func DisplayName(code string) string {
	n := Normalize(code)
	if n == "" {
		return code
	}
	name := display.English.Languages().Name(language.MustParse(n))
	if name == "" {
		return code
	}
	return name
}
