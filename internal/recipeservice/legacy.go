package recipeservice

import (
	"strings"

	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/scaler"
)

// DeriveLegacy renders structured ingredients as the legacy text block, one
// "<amount> <unit> <name>" line per ingredient.
func DeriveLegacy(ings []models.Ingredient) string {
	lines := make([]string, 0, len(ings))
	for _, ing := range ings {
		parts := []string{scaler.FormatPlain(ing.Amount)}
		if ing.Unit != "" {
			parts = append(parts, ing.Unit)
		}
		parts = append(parts, ing.Name)
		line := strings.Join(parts, " ")
		if ing.Optional {
			line += " (optional)"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// LegacyLines splits the legacy ingredient text into trimmed, non-empty lines.
func LegacyLines(text string) []string {
	return splitLines(text)
}

// Steps splits instructions into trimmed, non-empty steps.
func Steps(instructions string) []string {
	return splitLines(instructions)
}

func splitLines(text string) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
