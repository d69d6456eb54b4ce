package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/sheaf/internal"
	"github.com/starford/sheaf/internal/mcpserver"
	pkgconfig "github.com/starford/sheaf/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// openApp wires the application for one-shot commands. Logs go to stderr so
// stdout carries only the command output.
func openApp(cmd *cli.Command) (*internal.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	return internal.Open(internal.WithConfig(cfg), internal.WithLogger(logger))
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runMCP(_ context.Context, cmd *cli.Command) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	return mcpserver.New(app.Notes).ServeStdio()
}

func runPublish(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("publish: note id is required")
	}
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	link, err := app.Notes.Share(ctx, id, cmd.String("origin"))
	if err != nil {
		return fmt.Errorf("publish %s: %w", id, err)
	}
	fmt.Fprintln(os.Stdout, link)
	return nil
}

func runResolve(ctx context.Context, cmd *cli.Command) error {
	link := cmd.Args().First()
	if link == "" {
		return fmt.Errorf("resolve: shared url is required")
	}
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	p, ok := app.Notes.Resolve(ctx, link)
	if !ok {
		return fmt.Errorf("resolve: link invalid or content not found")
	}
	return printJSON(p)
}

func runPreview(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("preview: note id is required")
	}
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.Notes.GetNote(ctx, id); err != nil {
		return fmt.Errorf("preview %s: %w", id, err)
	}
	return printJSON(app.Notes.Preview(id))
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("export: note id is required")
	}
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	page, err := app.Notes.Print(ctx, id)
	if err != nil {
		return fmt.Errorf("export %s: %w", id, err)
	}
	if out := cmd.String("out"); out != "" {
		return os.WriteFile(out, []byte(page), 0o644)
	}
	_, err = fmt.Fprint(os.Stdout, page)
	return err
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	cmd := &cli.Command{
		Name:   "sheaf",
		Usage:  "Block-document notes with previews, print export and shareable links",
		Action: run,
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
				Name:   "serve",
				Usage:  "Run the HTTP server, share store and vault watcher",
				Action: run,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdin/stdout",
				Action: runMCP,
			},
			{
				Name:      "publish",
				Usage:     "Publish a note and print its link",
				ArgsUsage: "<note-id>",
				Action:    runPublish,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "origin",
						Usage: "Override the configured link origin",
					},
				},
			},
			{
				Name:      "resolve",
				Usage:     "Resolve a shared link and print its payload",
				ArgsUsage: "<url>",
				Action:    runResolve,
			},
			{
				Name:      "preview",
				Usage:     "Print the listing preview of a note",
				ArgsUsage: "<note-id>",
				Action:    runPreview,
			},
			{
				Name:      "export",
				Usage:     "Render the print document of a note",
				ArgsUsage: "<note-id>",
				Action:    runExport,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Write the document to a file instead of stdout",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
