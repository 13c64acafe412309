package recipeservice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/testutil"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) PublishRecipeEvent(kind string, id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, kind)
}

func ptr[T any](v T) *T { return &v }

func validInput() Input {
	return Input{
		Title:        ptr("Pancakes"),
		Author:       ptr("Ana"),
		Servings:     ptr(4),
		Instructions: ptr("Mix.\n\n  Fry.  "),
		StructuredIngredients: []models.Ingredient{
			{Amount: 2, Unit: "cups", Name: "flour"},
			{Amount: 0.5, Unit: "tsp", Name: "salt", Optional: true},
			{Amount: 3, Name: "eggs"},
		},
	}
}

func newService(t *testing.T) (*Service, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	return NewService(testutil.TestDB(t), WithNotifier(n), WithMaxServings(50)), n
}

func TestCreate_DerivesLegacy(t *testing.T) {
	svc, n := newService(t)
	r, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := "2 cups flour\n0.5 tsp salt (optional)\n3 eggs"
	if r.Ingredients != want {
		t.Errorf("legacy = %q, want %q", r.Ingredients, want)
	}
	if len(n.events) != 1 || n.events[0] != EventCreated {
		t.Errorf("events = %v", n.events)
	}
}

func TestCreate_KeepsSuppliedLegacy(t *testing.T) {
	svc, _ := newService(t)
	in := validInput()
	in.Ingredients = ptr("flour, salt, eggs")
	r, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if r.Ingredients != "flour, salt, eggs" {
		t.Errorf("legacy = %q", r.Ingredients)
	}
}

func TestCreate_DefaultServings(t *testing.T) {
	svc, _ := newService(t)
	in := validInput()
	in.Servings = nil
	r, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if r.Servings != models.DefaultServings {
		t.Errorf("servings = %d, want %d", r.Servings, models.DefaultServings)
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Input)
	}{
		{"missing title", func(in *Input) { in.Title = nil }},
		{"blank author", func(in *Input) { in.Author = ptr("   ") }},
		{"zero servings", func(in *Input) { in.Servings = ptr(0) }},
		{"negative servings", func(in *Input) { in.Servings = ptr(-2) }},
		{"negative prep time", func(in *Input) { in.PrepTime = ptr(-1) }},
		{"zero amount", func(in *Input) { in.StructuredIngredients[0].Amount = 0 }},
		{"negative amount", func(in *Input) { in.StructuredIngredients[1].Amount = -1 }},
		{"blank ingredient name", func(in *Input) { in.StructuredIngredients[2].Name = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, n := newService(t)
			in := validInput()
			tt.modify(&in)
			_, err := svc.Create(context.Background(), in)
			if !errors.Is(err, apperr.ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
			if len(n.events) != 0 {
				t.Errorf("no event expected, got %v", n.events)
			}
		})
	}
}

func TestUpdate_PartialKeepsIngredients(t *testing.T) {
	svc, n := newService(t)
	ctx := context.Background()
	created, _ := svc.Create(ctx, validInput())

	updated, err := svc.Update(ctx, created.ID, Input{Title: ptr("Fluffy Pancakes")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Fluffy Pancakes" || updated.Author != "Ana" {
		t.Errorf("updated = %+v", updated)
	}
	if len(updated.StructuredIngredients) != 3 {
		t.Errorf("ingredients = %d, want 3", len(updated.StructuredIngredients))
	}
	if updated.Ingredients != created.Ingredients {
		t.Errorf("legacy changed: %q", updated.Ingredients)
	}
	if n.events[len(n.events)-1] != EventUpdated {
		t.Errorf("events = %v", n.events)
	}
}

func TestUpdate_ReplacesIngredientsAndLegacy(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	created, _ := svc.Create(ctx, validInput())

	updated, err := svc.Update(ctx, created.ID, Input{
		StructuredIngredients: []models.Ingredient{{ID: created.StructuredIngredients[0].ID, Amount: 1.5, Unit: "cups", Name: "milk"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.StructuredIngredients) != 1 || updated.StructuredIngredients[0].Name != "milk" {
		t.Fatalf("ingredients = %+v", updated.StructuredIngredients)
	}
	if updated.Ingredients != "1.5 cups milk" {
		t.Errorf("legacy = %q", updated.Ingredients)
	}
}

func TestUpdate_EmptyLegacyIsDerived(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	created, _ := svc.Create(ctx, validInput())

	updated, err := svc.Update(ctx, created.ID, Input{
		Ingredients:           ptr(""),
		StructuredIngredients: []models.Ingredient{{Amount: 1, Unit: "cup", Name: "milk"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Ingredients != "1 cup milk" {
		t.Errorf("legacy = %q, want derived text", updated.Ingredients)
	}

	// Without new rows the text comes from the stored set.
	updated, err = svc.Update(ctx, created.ID, Input{Ingredients: ptr("")})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Ingredients != "1 cup milk" {
		t.Errorf("legacy = %q, want derived text", updated.Ingredients)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Update(context.Background(), 404, Input{Title: ptr("x")})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	svc, n := newService(t)
	ctx := context.Background()
	created, _ := svc.Create(ctx, validInput())
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, created.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
	if n.events[len(n.events)-1] != EventDeleted {
		t.Errorf("events = %v", n.events)
	}
}

func TestView_SplitsLines(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	created, _ := svc.Create(ctx, validInput())

	v, err := svc.View(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Steps) != 2 || v.Steps[0] != "Mix." || v.Steps[1] != "Fry." {
		t.Errorf("steps = %q", v.Steps)
	}
	if len(v.LegacyLines) != 3 {
		t.Errorf("legacy lines = %q", v.LegacyLines)
	}
}

func TestScaled(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	created, _ := svc.Create(ctx, validInput())

	v, err := svc.Scaled(ctx, created.ID, 6)
	if err != nil {
		t.Fatalf("Scaled: %v", err)
	}
	if v.ScalingFactor != 1.5 {
		t.Errorf("factor = %v", v.ScalingFactor)
	}
	if v.Label != "Scaled from 4 to 6 servings (1.5x)" {
		t.Errorf("label = %q", v.Label)
	}
	want := []string{"3", "3/4", "4.5"}
	for i, w := range want {
		if v.Ingredients[i].Amount != w {
			t.Errorf("ingredient %d amount = %q, want %q", i, v.Ingredients[i].Amount, w)
		}
	}

	stored, _ := svc.Get(ctx, created.ID)
	if stored.Servings != 4 || stored.StructuredIngredients[0].Amount != 2 {
		t.Error("scaling must not mutate the stored recipe")
	}
}

func TestScaled_Range(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	created, _ := svc.Create(ctx, validInput())

	for _, target := range []int{0, -1, 51} {
		if _, err := svc.Scaled(ctx, created.ID, target); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("target %d: err = %v, want ErrInvalidInput", target, err)
		}
	}
	if _, err := svc.Scaled(ctx, created.ID, 50); err != nil {
		t.Errorf("target 50: %v", err)
	}
	if _, err := svc.Scaled(ctx, 999, 2); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing recipe: %v", err)
	}
}

func TestList(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if _, err := svc.Create(ctx, validInput()); err != nil {
			t.Fatal(err)
		}
	}
	recent, err := svc.List(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Errorf("len = %d, want 3", len(recent))
	}
}
