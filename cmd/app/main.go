package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/archiver/internal"
	"github.com/starford/archiver/internal/auth"
	"github.com/starford/archiver/internal/fingerprint"
	"github.com/starford/archiver/internal/manifest"
	pkgconfig "github.com/starford/archiver/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, string, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, configPath, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithConfigPath(path),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func printFingerprint(_ context.Context, cmd *cli.Command) error {
	fp := fingerprint.Derive([]byte(cmd.String("title")), []byte(cmd.String("author")))
	_, err := fmt.Fprintln(os.Stdout, fp)
	return err
}

func importBooks(ctx context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	file := cmd.String("file")
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	entries, err := manifest.Parse(file, data)
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := internal.NewLogger(os.Stderr, level)

	reg, st, err := internal.OpenRegistry(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	rep, err := manifest.Import(ctx, reg, auth.Identity(cmd.String("as")), entries, logger)
	for _, fp := range rep.Archived {
		fmt.Fprintf(os.Stdout, "archived  %s\n", fp)
	}
	for _, fp := range rep.Duplicates {
		fmt.Fprintf(os.Stdout, "duplicate %s\n", fp)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%d archived, %d duplicates\n", len(rep.Archived), len(rep.Duplicates))
	return nil
}

func issueToken(_ context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Auth.Mode != internal.AuthModeJWT {
		return fmt.Errorf("auth mode is %q, tokens are only used in %q mode", cfg.Auth.Mode, internal.AuthModeJWT)
	}

	tok, err := auth.NewJWT([]byte(cfg.Auth.JWTSecret)).Issue(cmd.String("subject"), cmd.Duration("ttl"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, tok)
	return err
}

func main() {
	cmd := &cli.Command{
		Name:    "archiver",
		Usage:   "Book archive registry: each title and author can be archived exactly once",
		Version: version,
		Action:  serve,
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
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the archive over MCP on stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:   "fingerprint",
				Usage:  "Print the fingerprint of a title and author",
				Action: printFingerprint,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Book title"},
					&cli.StringFlag{Name: "author", Usage: "Book author"},
				},
			},
			{
				Name:   "import",
				Usage:  "Archive every book in a YAML manifest or Markdown frontmatter file",
				Action: importBooks,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Manifest file", Required: true},
					&cli.StringFlag{Name: "as", Usage: "Submitter identity", Required: true},
				},
			},
			{
				Name:   "token",
				Usage:  "Mint a JWT for jwt auth mode",
				Action: issueToken,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Aliases: []string{"s"}, Usage: "Caller identity", Required: true},
					&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime", Value: 24 * time.Hour},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
