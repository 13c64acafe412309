package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/recipebox/internal"
	"github.com/starford/recipebox/internal/auth"
	pkgconfig "github.com/starford/recipebox/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	load := pkgconfig.LoadOptional[internal.Config]
	if cmd.IsSet("config") {
		load = pkgconfig.Load[internal.Config]
	}
	if err := load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunImport(ctx, os.Stdout, opts...)
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return fmt.Errorf("usage: export <dir>")
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunExport(ctx, dir, os.Stdout, opts...)
}

func runScale(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("usage: scale <id> <servings>")
	}
	id, err := strconv.ParseInt(cmd.Args().Get(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid recipe id %q", cmd.Args().Get(0))
	}
	servings, err := strconv.Atoi(cmd.Args().Get(1))
	if err != nil {
		return fmt.Errorf("invalid servings %q", cmd.Args().Get(1))
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunScale(ctx, id, servings, os.Stdout, opts...)
}

func hashPassword(_ context.Context, cmd *cli.Command) error {
	pw := cmd.Args().First()
	if pw == "" {
		return fmt.Errorf("usage: hash-password <password>")
	}
	hash, err := auth.Hash(pw)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "recipebox",
		Usage:   "Recipe catalog with serving-size ingredient scaling",
		Version: version,
		Action:  run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve the recipe tools over MCP stdio",
				Action: runMCP,
			},
			{
				Name:   "import",
				Usage:  "Import new and changed files from the recipe library once",
				Action: runImport,
			},
			{
				Name:      "export",
				Usage:     "Write every recipe as a Markdown file into a directory",
				ArgsUsage: "<dir>",
				Action:    runExport,
			},
			{
				Name:      "scale",
				Usage:     "Print a recipe's ingredients for a number of servings",
				ArgsUsage: "<id> <servings>",
				Action:    runScale,
			},
			{
				Name:      "hash-password",
				Usage:     "Print a bcrypt hash for auth.password",
				ArgsUsage: "<password>",
				Action:    hashPassword,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
