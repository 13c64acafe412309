// Package scaler renders ingredient amounts for a target serving count.
//
// Scaling is a presentation transform: the stored amounts and the recipe's
// serving baseline are never modified.
package scaler

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/models"
)

// snapTolerance is the absolute distance within which a small amount is
// shown as a kitchen fraction.
const snapTolerance = 0.05

// fractions are tried in order; the first one within snapTolerance wins.
var fractions = []struct {
	value   float64
	display string
}{
	{0.125, "1/8"},
	{0.25, "1/4"},
	{0.333, "1/3"},
	{0.5, "1/2"},
	{0.667, "2/3"},
	{0.75, "3/4"},
}

// Factor returns target/original. original must be positive.
func Factor(originalServings, targetServings int) (float64, error) {
	if originalServings <= 0 {
		return 0, fmt.Errorf("%w: original servings must be positive, got %d", apperr.ErrInvalidInput, originalServings)
	}
	return float64(targetServings) / float64(originalServings), nil
}

// ComputeDisplay scales every ingredient from originalServings to
// targetServings and renders the amounts. The result preserves input order
// and is never nil.
func ComputeDisplay(ingredients []models.Ingredient, originalServings, targetServings int) ([]models.DisplayIngredient, error) {
	factor, err := Factor(originalServings, targetServings)
	if err != nil {
		return nil, err
	}
	out := make([]models.DisplayIngredient, 0, len(ingredients))
	for _, ing := range ingredients {
		out = append(out, models.DisplayIngredient{
			Amount:   FormatAmount(ing.Amount * factor),
			Unit:     ing.Unit,
			Name:     ing.Name,
			Optional: ing.Optional,
			Notes:    ing.Notes,
		})
	}
	return out, nil
}

// FormatAmount renders a scaled amount:
//   - below 1, a value near a common fraction is shown as that fraction
//   - whole values have no decimal point
//   - below 10, two decimals with trailing zeros removed
//   - otherwise exactly one decimal
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if v < 1 {
		for _, f := range fractions {
			if math.Abs(v-f.value) < snapTolerance {
				return f.display
			}
		}
	}
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if v < 10 {
		s := toFixed(v, 2)
		s = strings.TrimRight(s, "0")
		return strings.TrimSuffix(s, ".")
	}
	return toFixed(v, 1)
}

// FormatPlain renders an unscaled amount in shortest decimal form.
func FormatPlain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Label describes a scaling, e.g. "Scaled from 4 to 6 servings (1.5x)".
// It is empty when no scaling applies.
func Label(originalServings, targetServings int) string {
	if originalServings == targetServings {
		return ""
	}
	factor, err := Factor(originalServings, targetServings)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Scaled from %d to %d servings (%sx)", originalServings, targetServings, toFixed(factor, 1))
}

// toFixed formats v with the given number of decimals, rounding the exact
// binary value half away from zero. strconv rounds exact ties to even, which
// would turn 2.125 into "2.12" instead of "2.13".
func toFixed(v float64, digits int) string {
	neg := v < 0
	if neg {
		v = -v
	}
	x := new(big.Float).SetPrec(256).SetFloat64(v)
	x.Mul(x, new(big.Float).SetPrec(256).SetFloat64(math.Pow10(digits)))
	x.Add(x, big.NewFloat(0.5))
	n, _ := x.Int(nil)

	s := n.String()
	if digits > 0 {
		if len(s) <= digits {
			s = strings.Repeat("0", digits-len(s)+1) + s
		}
		s = s[:len(s)-digits] + "." + s[len(s)-digits:]
	}
	if neg && strings.Trim(s, "0.") != "" {
		s = "-" + s
	}
	return s
}
