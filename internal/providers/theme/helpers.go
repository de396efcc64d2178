package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// BuildPrompt renders the variation request sent to text models.
func BuildPrompt(letters []string, theme string) string {
	joined := strings.Join(letters, ", ")
	first, second := "A", "B"
	if len(letters) > 0 {
		first = letters[0]
	}
	if len(letters) > 1 {
		second = letters[1]
	}
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "For the letters %s, generate creative and specific theme variations based on the overarching theme '%s'.\n\n", joined, theme)
	sb.WriteString("CRITICAL INSTRUCTION: DO NOT make the theme start with the same letter! This is a common mistake to avoid.\n\n")
	sb.WriteString("For example, if the letter is 'H' and theme is 'Lord of the Rings':\n")
	sb.WriteString("❌ WRONG: \"Helm's Deep\" (starts with H)\n")
	sb.WriteString("❌ WRONG: \"Hobbit\" (starts with H)\n")
	sb.WriteString("✅ CORRECT: \"One Ring\" (doesn't start with H)\n")
	sb.WriteString("✅ CORRECT: \"Mount Doom\" (doesn't start with H)\n")
	sb.WriteString("✅ CORRECT: \"Elven cloak\" (doesn't start with H)\n\n")
	fmt.Fprintf(sb, "Each letter should have a unique object, concept, or element related to %s.\n", theme)
	sb.WriteString("Make them diverse, interesting, and visually distinctive.\n")
	sb.WriteString("Deliberately choose variations that DON'T start with the letter they're assigned to.\n\n")
	sb.WriteString("Return ONLY a valid JSON array:\n[\n")
	fmt.Fprintf(sb, "  {\"letter\": \"%s\", \"theme\": \"specific variation\"},\n", first)
	fmt.Fprintf(sb, "  {\"letter\": \"%s\", \"theme\": \"specific variation\"},\n", second)
	sb.WriteString("  ...\n]\n\n")
	sb.WriteString("Example for theme 'ocean' with letters A, B, C:\n[\n")
	sb.WriteString("  {\"letter\": \"A\", \"theme\": \"coral reef\"},\n")
	sb.WriteString("  {\"letter\": \"B\", \"theme\": \"treasure chest\"},\n")
	sb.WriteString("  {\"letter\": \"C\", \"theme\": \"whale tail\"}\n]\n\n")
	fmt.Fprintf(sb, "Now generate for %s with theme '%s'. Remember: themes should NOT start with their letter!", joined, theme)
	return sb.String()
}

// systemMessage primes chat models for the variation request.
const systemMessage = "You are a creative assistant that generates theme variations for decorative letters. Always respond with valid JSON only. NEVER match the theme's first letter with the letter being designed."

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

// parseVariations accepts a bare array or an object wrapping one under
// "variations", "letters", or any other key.
func parseVariations(raw string) ([]Variation, error) {
	cleaned := extractJSONFragment(raw)
	if strings.HasPrefix(cleaned, "[") {
		return parseModelPayload[[]Variation](cleaned)
	}
	obj, err := parseModelPayload[map[string]json.RawMessage](cleaned)
	if err != nil {
		return nil, err
	}
	for _, key := range []string{"variations", "letters"} {
		if rawList, ok := obj[key]; ok {
			var out []Variation
			if err := json.Unmarshal(rawList, &out); err != nil {
				return nil, err
			}
			return out, nil
		}
	}
	for _, value := range obj {
		var out []Variation
		if err := json.Unmarshal(value, &out); err == nil {
			return out, nil
		}
	}
	return nil, errors.New("no variation array in payload")
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
