package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recipebox/internal/auth"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/recipeservice"
	"github.com/starford/recipebox/internal/testutil"
)

// testEnv sets up a temp SQLite DB, service, and router. An empty password
// leaves the gate unconfigured and the recipe routes open.
func testEnv(t *testing.T, password string) (*recipeservice.Service, http.Handler) {
	t.Helper()
	return testEnvWith(t, password, RouterConfig{
		RequirePassword: password != "",
		PublicURL:       "http://recipes.test",
	})
}

func testEnvWith(t *testing.T, password string, cfg RouterConfig) (*recipeservice.Service, http.Handler) {
	t.Helper()
	svc := recipeservice.NewService(testutil.TestDB(t), recipeservice.WithMaxServings(100))
	return svc, NewRouter(svc, auth.NewGate(password), cfg)
}

func do(t *testing.T, router http.Handler, method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rdr)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func pancakeBody() map[string]any {
	return map[string]any{
		"title":        "Pancakes",
		"author":       "Ana",
		"servings":     4,
		"instructions": "Mix.\nFry.",
		"structuredIngredients": []map[string]any{
			{"amount": 2, "unit": "cups", "name": "flour"},
			{"amount": 0.5, "unit": "tsp", "name": "salt", "optional": true},
		},
	}
}

func createRecipe(t *testing.T, router http.Handler, headers ...string) models.Recipe {
	t.Helper()
	w := do(t, router, http.MethodPost, "/recipes", pancakeBody(), headers...)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var r models.Recipe
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestCreateAndGetRecipe(t *testing.T) {
	_, router := testEnv(t, "")
	created := createRecipe(t, router)
	if created.ID == 0 {
		t.Fatal("missing id")
	}
	if created.Ingredients != "2 cups flour\n0.5 tsp salt (optional)" {
		t.Errorf("legacy = %q", created.Ingredients)
	}

	w := do(t, router, http.MethodGet, fmt.Sprintf("/recipes/%d", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var view RecipeView
	_ = json.Unmarshal(w.Body.Bytes(), &view)
	if view.Title != "Pancakes" {
		t.Errorf("title = %q", view.Title)
	}
	if len(view.StructuredIngredients) != 2 {
		t.Errorf("ingredients = %d, want 2", len(view.StructuredIngredients))
	}
	if len(view.Steps) != 2 || view.Steps[1] != "Fry." {
		t.Errorf("steps = %q", view.Steps)
	}
	if len(view.LegacyLines) != 2 {
		t.Errorf("legacyLines = %q", view.LegacyLines)
	}
}

func TestCreateRecipe_BadInput(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/recipes", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON = %d, want 400", w.Code)
	}

	body := pancakeBody()
	delete(body, "title")
	w = do(t, router, http.MethodPost, "/recipes", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing title = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "title") {
		t.Errorf("error body should name the field: %s", w.Body.String())
	}

	body = pancakeBody()
	body["servings"] = 0
	w = do(t, router, http.MethodPost, "/recipes", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero servings = %d, want 400", w.Code)
	}
}

func TestUpdateRecipe(t *testing.T) {
	_, router := testEnv(t, "")
	created := createRecipe(t, router)
	path := fmt.Sprintf("/recipes/%d", created.ID)

	w := do(t, router, http.MethodPut, path, map[string]any{
		"servings": 2,
		"structuredIngredients": []map[string]any{
			{"amount": 1, "unit": "cup", "name": "oats"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	var updated models.Recipe
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Servings != 2 || updated.Title != "Pancakes" {
		t.Errorf("updated = %+v", updated)
	}
	if len(updated.StructuredIngredients) != 1 || updated.StructuredIngredients[0].Name != "oats" {
		t.Errorf("ingredients = %+v", updated.StructuredIngredients)
	}
	if updated.Ingredients != "1 cup oats" {
		t.Errorf("legacy = %q", updated.Ingredients)
	}
}

func TestUpdateRecipe_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPut, "/recipes/999", map[string]any{"title": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestDeleteRecipe(t *testing.T) {
	_, router := testEnv(t, "")
	created := createRecipe(t, router)
	path := fmt.Sprintf("/recipes/%d", created.ID)

	w := do(t, router, http.MethodDelete, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	var msg MessageResponse
	_ = json.Unmarshal(w.Body.Bytes(), &msg)
	if msg.Message != "Recipe deleted successfully" {
		t.Errorf("message = %q", msg.Message)
	}

	if w := do(t, router, http.MethodGet, path, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodDelete, path, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestGetRecipe_BadID(t *testing.T) {
	_, router := testEnv(t, "")
	for _, id := range []string{"abc", "0", "-3"} {
		if w := do(t, router, http.MethodGet, "/recipes/"+id, nil); w.Code != http.StatusBadRequest {
			t.Errorf("id %q = %d, want 400", id, w.Code)
		}
	}
}

func TestListRecipes(t *testing.T) {
	_, router := testEnv(t, "")
	for i := 0; i < 4; i++ {
		createRecipe(t, router)
	}

	w := do(t, router, http.MethodGet, "/recipes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var all []models.Recipe
	_ = json.Unmarshal(w.Body.Bytes(), &all)
	if len(all) != 4 {
		t.Errorf("len = %d, want 4", len(all))
	}
	if all[0].ID < all[len(all)-1].ID {
		t.Errorf("expected newest first, got ids %d..%d", all[0].ID, all[len(all)-1].ID)
	}

	w = do(t, router, http.MethodGet, "/recipes?limit=3", nil)
	var recent []models.Recipe
	_ = json.Unmarshal(w.Body.Bytes(), &recent)
	if len(recent) != 3 {
		t.Errorf("recent len = %d, want 3", len(recent))
	}
}

func TestListRecipes_BadLimit(t *testing.T) {
	_, router := testEnv(t, "")
	createRecipe(t, router)
	for _, q := range []string{"abc", "1.5", "3x"} {
		if w := do(t, router, http.MethodGet, "/recipes?limit="+q, nil); w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want 400", q, w.Code)
		}
	}
}

func TestListRecipes_EmptyIsArray(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/recipes", nil)
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestScaledRecipe(t *testing.T) {
	_, router := testEnv(t, "")
	created := createRecipe(t, router)
	base := fmt.Sprintf("/recipes/%d/scaled", created.ID)

	w := do(t, router, http.MethodGet, base+"?servings=6", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("scaled = %d, body = %s", w.Code, w.Body.String())
	}
	var view ScaledView
	_ = json.Unmarshal(w.Body.Bytes(), &view)
	if view.ScalingFactor != 1.5 || view.Label != "Scaled from 4 to 6 servings (1.5x)" {
		t.Errorf("view = %+v", view)
	}
	if view.Ingredients[0].Amount != "3" || view.Ingredients[1].Amount != "3/4" {
		t.Errorf("amounts = %q, %q", view.Ingredients[0].Amount, view.Ingredients[1].Amount)
	}

	for _, q := range []string{"", "?servings=0", "?servings=101", "?servings=two"} {
		if w := do(t, router, http.MethodGet, base+q, nil); w.Code != http.StatusBadRequest {
			t.Errorf("query %q = %d, want 400", q, w.Code)
		}
	}
	if w := do(t, router, http.MethodGet, "/recipes/999/scaled?servings=2", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing recipe = %d, want 404", w.Code)
	}
}

func TestScaleEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/scale", map[string]any{
		"ingredients": []map[string]any{
			{"amount": 1, "unit": "cup", "name": "flour"},
			{"amount": 4, "unit": "", "name": "eggs"},
		},
		"originalServings": 2,
		"targetServings":   1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("scale = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ScaleResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.ScalingFactor != 0.5 {
		t.Errorf("factor = %v", resp.ScalingFactor)
	}
	if resp.Ingredients[0].Amount != "1/2" || resp.Ingredients[1].Amount != "2" {
		t.Errorf("amounts = %+v", resp.Ingredients)
	}

	w = do(t, router, http.MethodPost, "/scale", map[string]any{
		"ingredients":      []map[string]any{},
		"originalServings": 0,
		"targetServings":   2,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero original = %d, want 400", w.Code)
	}
}

func TestUnits(t *testing.T) {
	_, router := testEnv(t, "secret")
	w := do(t, router, http.MethodGet, "/units", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("units = %d", w.Code)
	}
	var resp UnitsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Units) != len(models.CommonUnits) || resp.Units[0] != "cups" {
		t.Errorf("units = %v", resp.Units)
	}
}

func TestVerifyPassword(t *testing.T) {
	_, router := testEnv(t, "hunter2")

	w := do(t, router, http.MethodPost, "/auth/verify", VerifyRequest{Password: "hunter2"})
	var resp VerifyResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || !resp.IsValid {
		t.Errorf("correct password = %d %+v", w.Code, resp)
	}

	w = do(t, router, http.MethodPost, "/auth/verify", VerifyRequest{Password: "nope"})
	resp = VerifyResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.IsValid {
		t.Errorf("wrong password = %d %+v", w.Code, resp)
	}
}

func TestVerifyPassword_Bcrypt(t *testing.T) {
	hash, err := auth.Hash("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	_, router := testEnv(t, hash)
	w := do(t, router, http.MethodPost, "/auth/verify", VerifyRequest{Password: "s3cret"})
	if !strings.Contains(w.Body.String(), `"isValid":true`) {
		t.Errorf("bcrypt verify body = %s", w.Body.String())
	}
}

func TestVerifyPassword_Unconfigured(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/auth/verify", VerifyRequest{Password: "x"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("unconfigured = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "server configuration error") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestVerifyPassword_RateLimited(t *testing.T) {
	_, router := testEnvWith(t, "pw", RouterConfig{RequirePassword: true, VerifyPerMinute: 2})
	for i := 0; i < 2; i++ {
		if w := do(t, router, http.MethodPost, "/auth/verify", VerifyRequest{Password: "x"}); w.Code != http.StatusOK {
			t.Fatalf("attempt %d = %d", i, w.Code)
		}
	}
	if w := do(t, router, http.MethodPost, "/auth/verify", VerifyRequest{Password: "x"}); w.Code != http.StatusTooManyRequests {
		t.Errorf("third attempt = %d, want 429", w.Code)
	}

	// Forwarding headers from an untrusted peer do not open new buckets.
	_, sub := testEnvWith(t, "pw", RouterConfig{RequirePassword: true, VerifyPerMinute: 2})
	root := chi.NewRouter()
	root.Use(RealIP(nil))
	root.Mount("/api", sub)
	var codes []int
	for i := 0; i < 10; i++ {
		w := do(t, root, http.MethodPost, "/api/auth/verify", VerifyRequest{Password: "x"},
			"X-Forwarded-For", fmt.Sprintf("1.2.3.%d", i),
			"X-Real-IP", fmt.Sprintf("5.6.7.%d", i))
		codes = append(codes, w.Code)
	}
	if codes[2] != http.StatusTooManyRequests || codes[9] != http.StatusTooManyRequests {
		t.Errorf("codes with spoofed headers = %v, want 429 from the third on", codes)
	}
}

func TestVerifyPassword_RateLimitedBehindTrustedProxy(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"192.0.2.0/24"})
	if err != nil {
		t.Fatal(err)
	}
	_, sub := testEnvWith(t, "pw", RouterConfig{RequirePassword: true, VerifyPerMinute: 2})
	root := chi.NewRouter()
	root.Use(RealIP(trusted))
	root.Mount("/api", sub)

	// httptest requests come from 192.0.2.1, so each forwarded client has its own bucket.
	for i := 0; i < 5; i++ {
		w := do(t, root, http.MethodPost, "/api/auth/verify", VerifyRequest{Password: "x"},
			"X-Forwarded-For", fmt.Sprintf("1.2.3.%d", i))
		if w.Code != http.StatusOK {
			t.Fatalf("client %d = %d, want 200", i, w.Code)
		}
	}
	for i := 0; i < 2; i++ {
		do(t, root, http.MethodPost, "/api/auth/verify", VerifyRequest{Password: "x"}, "X-Forwarded-For", "9.9.9.9")
	}
	if w := do(t, root, http.MethodPost, "/api/auth/verify", VerifyRequest{Password: "x"}, "X-Forwarded-For", "9.9.9.9"); w.Code != http.StatusTooManyRequests {
		t.Errorf("repeat client = %d, want 429", w.Code)
	}
}

func TestResolveClientIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.1"})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		remote string
		xff    string
		xrip   string
		want   string
	}{
		{"untrusted peer ignores headers", "203.0.113.7:5000", "1.1.1.1", "2.2.2.2", "203.0.113.7"},
		{"trusted peer uses forwarded", "10.1.2.3:5000", "1.1.1.1", "", "1.1.1.1"},
		{"skips trusted hops", "10.1.2.3:5000", "1.1.1.1, 8.8.8.8, 10.9.9.9", "", "8.8.8.8"},
		{"real ip fallback", "192.0.2.1:80", "", "2.2.2.2", "2.2.2.2"},
		{"garbage header", "10.1.2.3:5000", "not-an-ip", "", "10.1.2.3"},
		{"no headers", "10.1.2.3:5000", "", "", "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xrip != "" {
				req.Header.Set("X-Real-IP", tt.xrip)
			}
			if got := resolveClientIP(req, trusted); got != tt.want {
				t.Errorf("resolveClientIP = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := ParseTrustedProxies([]string{"not-a-cidr/99"}); err == nil {
		t.Error("expected error for a bad entry")
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "secret123")

	tests := []struct {
		name    string
		headers []string
		want    int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong header", []string{PasswordHeader, "wrong"}, http.StatusUnauthorized},
		{"wrong bearer", []string{"Authorization", "Bearer wrong"}, http.StatusUnauthorized},
		{"password header", []string{PasswordHeader, "secret123"}, http.StatusOK},
		{"bearer", []string{"Authorization", "Bearer secret123"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, router, http.MethodGet, "/recipes", nil, tt.headers...); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAuthMiddleware_Open(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/recipes", nil); w.Code != http.StatusOK {
		t.Errorf("open mode = %d, want 200", w.Code)
	}
}

func TestRecipeCard(t *testing.T) {
	_, router := testEnv(t, "")
	created := createRecipe(t, router)

	w := do(t, router, http.MethodGet, fmt.Sprintf("/recipes/%d/card.pdf?servings=8", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("card = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")) {
		t.Error("body is not a PDF")
	}

	if w := do(t, router, http.MethodGet, fmt.Sprintf("/recipes/%d/card.pdf", created.ID), nil); w.Code != http.StatusOK {
		t.Errorf("card without servings = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/recipes/999/card.pdf", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing card = %d, want 404", w.Code)
	}
}

func TestRecipeQR(t *testing.T) {
	_, router := testEnv(t, "")
	created := createRecipe(t, router)

	w := do(t, router, http.MethodGet, fmt.Sprintf("/recipes/%d/qr.png", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("qr = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}
	if w := do(t, router, http.MethodGet, "/recipes/999/qr.png", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing qr = %d, want 404", w.Code)
	}
}

// SSE endpoint auth tests.

// testEnvWithSSE creates a router with a stub SSE handler to test auth on /events.
func testEnvWithSSE(t *testing.T, password string) http.Handler {
	t.Helper()
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
	_, router := testEnvWith(t, password, RouterConfig{RequirePassword: password != "", Events: sseHandler})
	return router
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, "secret")
	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidPassword(t *testing.T) {
	router := testEnvWithSSE(t, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set(PasswordHeader, "tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid password = %d, want 200", w.Code)
	}
}
