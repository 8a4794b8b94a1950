package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"blogforge/internal/ai"
	"blogforge/internal/analyzer"
	"blogforge/internal/config"
	"blogforge/internal/db"
	"blogforge/internal/generator"
	"blogforge/internal/scraper"
	"blogforge/internal/server"
)

func main() {
	app := &cli.App{
		Name:  "blogforge",
		Usage: "content operations service: scrape, analyze and draft blog articles",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to YAML config file",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address (overrides config)",
			},
		},
		Action: func(c *cli.Context) error {
			return run(c.String("config"), c.String("addr"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addrOverride string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addrOverride != "" {
		cfg.Addr = addrOverride
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	queries := db.NewQueries(database)

	user, err := server.EnsureTempUser(queries, cfg.GithubToken)
	if err != nil {
		return fmt.Errorf("ensuring user: %w", err)
	}

	model := ai.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIBase)
	scr := scraper.New(time.Duration(cfg.Scraper.TimeoutSec) * time.Second)
	websiteAnalyzer := analyzer.NewWebsiteAnalyzer(scr, analyzer.NewContentAnalyzer(model), cfg.Scraper.MaxPages)
	ideaGen := generator.NewIdeaGenerator(model)
	draftGen := generator.NewDraftGenerator(model)

	srv := server.New(queries, websiteAnalyzer, ideaGen, draftGen, cfg.GithubAPIURL, user.ID)

	if err := srv.Listen(cfg.Addr); err != nil {
		return err
	}

	return srv.Serve(ctx)
}
