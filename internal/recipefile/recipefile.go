// Package recipefile reads and writes recipes as Markdown files with YAML
// frontmatter. The frontmatter carries the recipe fields and the structured
// ingredient list; the Markdown body holds the instructions.
package recipefile

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/recipeservice"
)

const delim = "---"

// Document is a parsed recipe file.
type Document struct {
	Title        string
	Author       string
	Servings     int
	PrepTime     *int
	CookTime     *int
	Ingredients  []models.Ingredient
	Instructions string
}

type frontmatter struct {
	Title       string       `yaml:"title"`
	Author      string       `yaml:"author"`
	Servings    int          `yaml:"servings,omitempty"`
	PrepTime    *int         `yaml:"prep_time,omitempty"`
	CookTime    *int         `yaml:"cook_time,omitempty"`
	Ingredients []ingredient `yaml:"ingredients,omitempty"`
}

type ingredient struct {
	Amount   float64 `yaml:"amount"`
	Unit     string  `yaml:"unit,omitempty"`
	Name     string  `yaml:"name"`
	Optional bool    `yaml:"optional,omitempty"`
	Notes    string  `yaml:"notes,omitempty"`
}

// Parse decodes a recipe file. The title comes from the frontmatter or,
// failing that, from the first "# " heading of the body. Files without
// frontmatter, with invalid YAML, or without a title are rejected with
// apperr.ErrInvalidInput.
func Parse(data []byte) (*Document, error) {
	block, body, ok := splitFrontmatter(data)
	if !ok {
		return nil, fmt.Errorf("%w: recipe file has no frontmatter", apperr.ErrInvalidInput)
	}

	var fm frontmatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, fmt.Errorf("%w: frontmatter: %s", apperr.ErrInvalidInput, err.Error())
	}

	title := strings.TrimSpace(fm.Title)
	if title == "" {
		title = headingTitle(body)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: recipe file has no title", apperr.ErrInvalidInput)
	}

	doc := &Document{
		Title:        title,
		Author:       strings.TrimSpace(fm.Author),
		Servings:     fm.Servings,
		PrepTime:     fm.PrepTime,
		CookTime:     fm.CookTime,
		Ingredients:  make([]models.Ingredient, 0, len(fm.Ingredients)),
		Instructions: strings.TrimSpace(body),
	}
	for _, ing := range fm.Ingredients {
		doc.Ingredients = append(doc.Ingredients, models.Ingredient{
			Amount:   ing.Amount,
			Unit:     ing.Unit,
			Name:     ing.Name,
			Optional: ing.Optional,
			Notes:    ing.Notes,
		})
	}
	return doc, nil
}

// Input converts the document into a service create/update request. Fields
// the file leaves out stay nil so the service defaults apply.
func (d *Document) Input() recipeservice.Input {
	in := recipeservice.Input{
		Title:                 &d.Title,
		Author:                &d.Author,
		Instructions:          &d.Instructions,
		StructuredIngredients: d.Ingredients,
		PrepTime:              d.PrepTime,
		CookTime:              d.CookTime,
	}
	if d.Servings != 0 {
		in.Servings = &d.Servings
	}
	return in
}

// Render encodes r in the recipe file format.
func Render(r *models.Recipe) ([]byte, error) {
	fm := frontmatter{
		Title:    r.Title,
		Author:   r.Author,
		Servings: r.Servings,
		PrepTime: r.PrepTime,
		CookTime: r.CookTime,
	}
	for _, ing := range r.StructuredIngredients {
		fm.Ingredients = append(fm.Ingredients, ingredient{
			Amount:   ing.Amount,
			Unit:     ing.Unit,
			Name:     ing.Name,
			Optional: ing.Optional,
			Notes:    ing.Notes,
		})
	}

	block, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("recipefile: encode frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(block)
	buf.WriteString(delim + "\n")
	if body := strings.TrimSpace(r.Instructions); body != "" {
		buf.WriteString("\n" + body + "\n")
	}
	return buf.Bytes(), nil
}

// FileName returns the export name for r: "<id>-<slug>.md".
func FileName(r *models.Recipe) string {
	return fmt.Sprintf("%d-%s.md", r.ID, Slug(r.Title))
}

// Slug lowercases title and joins its letters and digits with dashes.
func Slug(title string) string {
	var b strings.Builder
	dash := false
	for _, c := range strings.ToLower(title) {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(c)
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "recipe"
	}
	return b.String()
}

// splitFrontmatter separates the YAML block between leading --- lines from
// the body. ok is false when the file does not start with a frontmatter block.
func splitFrontmatter(data []byte) (block []byte, body string, ok bool) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	trimmed := bytes.TrimLeft(data, "\n")
	if !bytes.HasPrefix(trimmed, []byte(delim+"\n")) {
		return nil, "", false
	}

	rest := trimmed[len(delim)+1:]
	var after []byte
	if bytes.HasPrefix(rest, []byte(delim)) {
		// empty frontmatter
		after = rest[len(delim):]
		rest = rest[:0]
	} else {
		idx := bytes.Index(rest, []byte("\n"+delim))
		if idx < 0 {
			return nil, "", false
		}
		after = rest[idx+1+len(delim):]
		rest = rest[:idx]
	}
	return rest, strings.TrimLeft(string(after), "\n"), true
}

func headingTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
