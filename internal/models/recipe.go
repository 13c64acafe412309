// Package models defines the domain types for recipebox.
package models

import "time"

// Ingredient is one structured ingredient row of a recipe. Amount is
// denominated against the owning recipe's Servings.
type Ingredient struct {
	ID       int64   `json:"id,omitempty"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
	Name     string  `json:"name"`
	Optional bool    `json:"optional"`
	Notes    string  `json:"notes,omitempty"`
}

// Recipe is a stored recipe record.
//
// StructuredIngredients is authoritative whenever it is non-empty.
// Ingredients is the legacy newline-separated rendering kept for older
// clients; the two may drift.
type Recipe struct {
	ID                    int64        `json:"id"`
	Title                 string       `json:"title"`
	Author                string       `json:"author"`
	Servings              int          `json:"servings"`
	Instructions          string       `json:"instructions"`
	Ingredients           string       `json:"ingredients"`
	StructuredIngredients []Ingredient `json:"structuredIngredients"`
	PrepTime              *int         `json:"prepTime"`
	CookTime              *int         `json:"cookTime"`
	CreatedAt             time.Time    `json:"createdAt"`
	UpdatedAt             time.Time    `json:"updatedAt"`
}

// DisplayIngredient is an ingredient with its amount rendered for a target
// serving count.
type DisplayIngredient struct {
	Amount   string `json:"amount"`
	Unit     string `json:"unit"`
	Name     string `json:"name"`
	Optional bool   `json:"optional"`
	Notes    string `json:"notes,omitempty"`
}

// CommonUnits are the unit suggestions offered by the ingredient editor.
// Units are not restricted to this list.
var CommonUnits = []string{
	"cups",
	"tbsp",
	"tsp",
	"oz",
	"lbs",
	"g",
	"kg",
	"ml",
	"l",
	"pieces",
	"cloves",
	"slices",
	"whole",
	"pinch",
	"dash",
	"to taste",
}

// DefaultServings is used when a new recipe does not state a serving count.
const DefaultServings = 4
