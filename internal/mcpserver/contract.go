package mcpserver

// RecipeFormatContract describes the Markdown recipe format accepted by
// create_recipe and by the library directory.
const RecipeFormatContract = `# Recipe File Format

Every recipe document MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title   # REQUIRED
author: Who wrote it          # REQUIRED
servings: 4                   # OPTIONAL - positive integer, defaults to 4
prep_time: 15                 # OPTIONAL - minutes
cook_time: 30                 # OPTIONAL - minutes
ingredients:                  # OPTIONAL - ordered list
  - amount: 2                 # REQUIRED - positive number for the servings above
    unit: cups                # OPTIONAL - free text
    name: flour               # REQUIRED
    optional: false           # OPTIONAL
    notes: sifted             # OPTIONAL
---

One instruction step per line.
` + "```" + `

## Rules

1. **YAML frontmatter is mandatory.** The ` + "`---`" + ` fences must be the first
   thing in the file.
2. **` + "`title`" + ` and ` + "`author`" + ` are required.** When ` + "`title`" + ` is missing, the first
   ` + "`# Heading`" + ` of the body is used instead.
3. **Amounts** are decimal numbers (` + "`0.5`" + `, not ` + "`1/2`" + `) for the recipe's own servings.
   Scaling to other serving counts happens at display time.
4. **Units** are free text. Common ones: cups, tbsp, tsp, oz, lbs, g, kg, ml, l, pieces,
   cloves, slices, whole, pinch, dash, to taste.
5. **Instructions** are the Markdown body, one step per line. Blank lines are ignored.
6. **Encoding** is UTF-8. Library files end with ` + "`.md`" + `.

## Example

` + "```" + `markdown
---
title: Pancakes
author: Grandma
servings: 4
ingredients:
  - amount: 1.5
    unit: cups
    name: flour
  - amount: 2
    name: eggs
  - amount: 1
    unit: pinch
    name: salt
    optional: true
---

Whisk the dry ingredients.
Beat in the eggs and milk.
Fry in a hot buttered pan.
` + "```" + `
`
