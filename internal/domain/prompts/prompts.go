// Package prompts holds the wording sent to language and image models.
package prompts

import (
	"fmt"
	"strings"
)

// System is the system message for scene prompt generation.
const System = "You are an expert prompt generator for AI image creation, specializing in modern flat-style illustrations. Ensure all output prompts are in English."

// SceneInstruction builds the user message asking for an English image
// prompt that illustrates text written in language.
func SceneInstruction(text, language string) string {
	if strings.EqualFold(strings.TrimSpace(language), "en") {
		return "Based on the following English text, generate a concise and visually descriptive English prompt for an AI image generator. " +
			"The prompt should be suitable for creating a modern flat-style illustration. " +
			fmt.Sprintf("Text: '%s'", text)
	}
	return fmt.Sprintf("Based on the following text (which is in %s), generate a concise and visually descriptive English prompt for an AI image generator. ", language) +
		"The prompt should be suitable for creating a modern flat-style illustration. " +
		"If the text is not in English, understand its meaning and generate an English prompt that captures the essence for the illustration. " +
		fmt.Sprintf("Text: '%s'", text)
}

const labelPrefix = "prompt:"

// Clean trims model output and drops a leading "Prompt:" label.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) >= len(labelPrefix) && strings.EqualFold(s[:len(labelPrefix)], labelPrefix) {
		s = strings.TrimSpace(s[len(labelPrefix):])
	}
	return s
}

// TranslateSystem is the system message for segment translation.
const TranslateSystem = "You are a helpful translation assistant."

// TranslateInstruction asks for a translation of text from source to target.
func TranslateInstruction(text, source, target string) string {
	if strings.TrimSpace(source) == "" {
		return fmt.Sprintf("Translate the following text to %s:\n\n%s", target, text)
	}
	return fmt.Sprintf("Translate the following %s text to %s:\n\n%s", source, target, text)
}
