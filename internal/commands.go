package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/starford/recipebox/internal/library"
	"github.com/starford/recipebox/internal/mcpserver"
	"github.com/starford/recipebox/internal/storage"
)

// RunMCP serves the MCP tools over stdio. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	c, err := newCore(app, os.Stderr)
	if err != nil {
		return err
	}
	defer c.Close()

	c.logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(c.svc, app.version).ServeStdio()
}

// RunImport runs one library sync pass and reports the result to w.
func RunImport(ctx context.Context, w io.Writer, opts ...Option) error {
	app := newApplication(opts)
	c, err := newCore(app, os.Stderr)
	if err != nil {
		return err
	}
	defer c.Close()

	if c.lib == nil {
		return fmt.Errorf("library.path is not configured")
	}
	res, err := c.lib.Sync(ctx)
	if err != nil {
		return fmt.Errorf("library sync: %w", err)
	}
	_, err = fmt.Fprintf(w, "imported %d, updated %d, renamed %d, unchanged %d, rejected %d, forgotten %d, failed %d\n",
		res.Imported, res.Updated, res.Renamed, res.Unchanged, res.Rejected, res.Forgotten, res.Failed)
	return err
}

// RunExport writes every recipe as a recipe file into dir, creating it if
// needed.
func RunExport(ctx context.Context, dir string, w io.Writer, opts ...Option) error {
	app := newApplication(opts)
	c, err := newCore(app, os.Stderr)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	dst, err := storage.NewFS(dir)
	if err != nil {
		return err
	}
	n, err := library.Export(ctx, c.svc, dst)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	_, err = fmt.Fprintf(w, "exported %d recipes to %s\n", n, dst.Root())
	return err
}

// RunScale prints a recipe's ingredients scaled to servings as a table.
func RunScale(ctx context.Context, id int64, servings int, w io.Writer, opts ...Option) error {
	app := newApplication(opts)
	c, err := newCore(app, os.Stderr)
	if err != nil {
		return err
	}
	defer c.Close()

	view, err := c.svc.Scaled(ctx, id, servings)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s (%d servings)\n", view.Title, view.TargetServings)
	if view.Label != "" {
		fmt.Fprintln(w, view.Label)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AMOUNT\tUNIT\tINGREDIENT")
	for _, ing := range view.Ingredients {
		name := ing.Name
		if ing.Optional {
			name += " (optional)"
		}
		if ing.Notes != "" {
			name += ", " + ing.Notes
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ing.Amount, ing.Unit, name)
	}
	if len(view.Ingredients) == 0 {
		for _, line := range view.LegacyLines {
			fmt.Fprintf(tw, "\t\t%s\n", line)
		}
	}
	return tw.Flush()
}
