package image

import (
	"fmt"
	"strings"

	"letterbanner/internal/palette"
)

// BuildLetterPrompt renders the instruction for one transparent letter
// sticker themed after theme.
func BuildLetterPrompt(letter, theme string, p palette.Palette) string {
	l := strings.ToUpper(strings.TrimSpace(letter))
	theme = strings.TrimSpace(theme)
	return fmt.Sprintf("Create ONLY the letter '%s' as a decorative design inspired by %s. "+
		"The letter should be clearly recognizable as '%s' with artistic decorations, patterns, and motifs that represent %s.%s "+
		"CRITICAL: The background must be completely transparent (alpha channel = 0). "+
		"Do not include any background colors, shapes, frames, borders, or environmental elements. "+
		"Only generate the letter itself with decorative elements integrated into the letter shape. "+
		"The letter should appear to float with no background whatsoever - suitable for cutting out and placing on any surface. "+
		"Think of it as a sticker or decal of just the letter.",
		l, theme, l, theme, palette.Guidance(p))
}

// BuildEditPrompt wraps a user's edit instruction so the result stays a
// recognisable letter on a transparent background.
func BuildEditPrompt(letter, instruction string) string {
	instruction = strings.TrimSpace(instruction)
	l := strings.ToUpper(strings.TrimSpace(letter))
	if l == "" {
		return instruction + " Keep the background completely transparent."
	}
	return fmt.Sprintf("%s Keep the letter '%s' clearly recognizable and keep the background completely transparent.", instruction, l)
}
