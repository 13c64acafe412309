// Package printout renders printable recipe cards and recipe QR codes.
package printout

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/recipeservice"
)

// DefaultQRSize is the edge length in pixels of generated QR codes.
const DefaultQRSize = 256

// Card is everything printed on a recipe card.
type Card struct {
	Recipe *models.Recipe
	Scaled *recipeservice.ScaledView
	// QR is an optional PNG placed in the top right corner.
	QR []byte
}

// RecipeURL returns the public link to recipe id.
func RecipeURL(publicURL string, id int64) string {
	return fmt.Sprintf("%s/recipes/%d", strings.TrimRight(publicURL, "/"), id)
}

// QRCode encodes content as a PNG of size x size pixels.
func QRCode(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("printout: encode qr: %w", err)
	}
	return png, nil
}

// WriteCard renders c as a single A4 PDF page to w.
func WriteCard(w io.Writer, c Card) error {
	if c.Recipe == nil || c.Scaled == nil {
		return fmt.Errorf("printout: recipe and scaled view are required")
	}
	r, s := c.Recipe, c.Scaled

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetTitle(r.Title, true)
	pdf.SetAuthor(r.Author, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	textWidth := 0.0
	if len(c.QR) > 0 {
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(c.QR))
		pdf.ImageOptions("qr", 160, 15, 35, 35, false, opts, 0, "")
		textWidth = 130
	}

	pdf.SetFont("Arial", "B", 20)
	pdf.MultiCell(textWidth, 10, tr(r.Title), "", "L", false)
	pdf.SetFont("Arial", "I", 11)
	pdf.CellFormat(textWidth, 7, tr("by "+r.Author), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(textWidth, 7, tr(servingsLine(s)), "", 1, "L", false, 0, "")
	if times := timesLine(r); times != "" {
		pdf.CellFormat(textWidth, 7, tr(times), "", 1, "L", false, 0, "")
	}
	if pdf.GetY() < 55 && len(c.QR) > 0 {
		pdf.SetY(55)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 9, "Ingredients", "B", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.SetFont("Arial", "", 11)
	for _, line := range ingredientLines(s) {
		pdf.MultiCell(0, 6, tr("- "+line), "", "L", false)
	}
	pdf.Ln(4)

	steps := recipeservice.Steps(r.Instructions)
	if len(steps) > 0 {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 9, "Instructions", "B", 1, "L", false, 0, "")
		pdf.Ln(2)
		pdf.SetFont("Arial", "", 11)
		for i, step := range steps {
			pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, step)), "", "L", false)
			pdf.Ln(1)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("printout: render card: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("printout: write card: %w", err)
	}
	return nil
}

func servingsLine(s *recipeservice.ScaledView) string {
	line := fmt.Sprintf("Serves %d", s.TargetServings)
	if s.Label != "" {
		line += " (" + s.Label + ")"
	}
	return line
}

func timesLine(r *models.Recipe) string {
	var parts []string
	if r.PrepTime != nil {
		parts = append(parts, fmt.Sprintf("Prep %d min", *r.PrepTime))
	}
	if r.CookTime != nil {
		parts = append(parts, fmt.Sprintf("Cook %d min", *r.CookTime))
	}
	return strings.Join(parts, "  |  ")
}

// ingredientLines prefers the scaled structured ingredients and falls back
// to the legacy text.
func ingredientLines(s *recipeservice.ScaledView) []string {
	if len(s.Ingredients) == 0 {
		return s.LegacyLines
	}
	lines := make([]string, 0, len(s.Ingredients))
	for _, ing := range s.Ingredients {
		parts := []string{ing.Amount}
		if ing.Unit != "" {
			parts = append(parts, ing.Unit)
		}
		parts = append(parts, ing.Name)
		line := strings.Join(parts, " ")
		if ing.Optional {
			line += " (optional)"
		}
		if ing.Notes != "" {
			line += ", " + ing.Notes
		}
		lines = append(lines, line)
	}
	return lines
}
