// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the recipe catalog to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/recipefile"
	"github.com/starford/recipebox/internal/recipeservice"
)

// FormatURI identifies the recipe file format resource.
const FormatURI = "recipebox://recipe-format"

// Server wraps the MCP server with recipe tools.
type Server struct {
	mcp *server.MCPServer
	svc *recipeservice.Service
}

// New creates a new MCP server with all recipe tools registered.
func New(svc *recipeservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Recipebox",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_recipes",
		mcp.WithDescription("List recipes, newest first, with their structured ingredients."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of recipes (0 or omitted for all)")),
	), s.listRecipes)

	s.mcp.AddTool(mcp.NewTool("get_recipe",
		mcp.WithDescription("Get one recipe with its ingredients, legacy ingredient lines and instruction steps."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Recipe ID")),
	), s.getRecipe)

	s.mcp.AddTool(mcp.NewTool("scale_recipe",
		mcp.WithDescription("Render a recipe's ingredient amounts for a different number of servings. "+
			"Amounts below one are shown as kitchen fractions (1/2, 1/3, ...)."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Recipe ID")),
		mcp.WithNumber("servings", mcp.Required(), mcp.Description("Target number of servings")),
	), s.scaleRecipe)

	s.mcp.AddTool(mcp.NewTool("create_recipe",
		mcp.WithDescription("Create a recipe from a Markdown document. "+
			"Content MUST follow the recipe file format (YAML frontmatter with title, author, servings "+
			"and ingredients; Markdown body with one instruction step per line). Read the format first via "+
			"the get_recipe_contract tool or the "+FormatURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Recipe document following the recipe file format")),
	), s.createRecipe)

	s.mcp.AddTool(mcp.NewTool("get_recipe_contract",
		mcp.WithDescription("Returns the recipe file format. "+
			"Call this before creating recipes to ensure correct structure."),
	), s.getRecipeContract)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Recipe File Format",
			mcp.WithResourceDescription("Markdown recipe format accepted by create_recipe and the library directory."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listRecipes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recipes, err := s.svc.List(ctx, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(recipes)
}

func (s *Server) getRecipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.View(ctx, int64(id))
	if err != nil {
		return toolError(err, id), nil
	}
	return jsonResult(view)
}

func (s *Server) scaleRecipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	servings, err := req.RequireInt("servings")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.Scaled(ctx, int64(id), servings)
	if err != nil {
		return toolError(err, id), nil
	}
	return jsonResult(view)
}

func (s *Server) createRecipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := recipefile.Parse([]byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recipe, err := s.svc.Create(ctx, doc.Input())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: recipe %d (%s)", recipe.ID, recipe.Title)), nil
}

func (s *Server) getRecipeContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecipeFormatContract), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     RecipeFormatContract,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

func toolError(err error, id int) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("recipe not found: %d", id))
	}
	return mcp.NewToolResultError(err.Error())
}
