// Command mft2es imports Windows MFT files into Elasticsearch or a SQL
// document store.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/cdtdelta/mft2es/internal/app"
	"github.com/cdtdelta/mft2es/internal/config"
	"github.com/cdtdelta/mft2es/internal/presenter"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "mft2es",
		Usage:     "Import Windows MFT records into Elasticsearch",
		UsageText: "mft2es [options] MFT_FILE_OR_DIR [MFT_FILE_OR_DIR...]",
		Version:   app.Version,
		Flags:     append(app.CommonFlags(), storeFlags()...),
		Before:    app.SetupLogger,
		Action:    importCommand,
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Store backend (elasticsearch, sqlite, postgres)",
			Value: config.BackendElasticsearch,
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "Elasticsearch host",
			Value: "localhost",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "Elasticsearch port number",
			Value: 9200,
		},
		&cli.StringFlag{
			Name:  "index",
			Usage: "Index (or collection) name",
			Value: "mft2es",
		},
		&cli.StringFlag{
			Name:  "scheme",
			Usage: "Scheme to use (http, https)",
			Value: "http",
		},
		&cli.StringFlag{
			Name:  "pipeline",
			Usage: "Ingest pipeline to use",
		},
		&cli.StringFlag{
			Name:  "login",
			Usage: "Login to use to connect to Elasticsearch",
		},
		&cli.StringFlag{
			Name:  "pwd",
			Usage: "Password associated with the login",
		},
		&cli.StringFlag{
			Name:  "dsn",
			Usage: "Database file (sqlite) or connection string (postgres)",
		},
		&cli.IntFlag{
			Name:  "bulk-size",
			Usage: "Maximum documents per bulk request",
			Value: 500,
		},
		&cli.IntFlag{
			Name:  "retry-max",
			Usage: "Retries for a failed Elasticsearch request",
			Value: 3,
		},
		&cli.StringFlag{
			Name:  "hash",
			Usage: "Document id algorithm (blake3, sha256)",
			Value: "blake3",
		},
	}
}

func importCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("at least one MFT file or directory is required", 2)
	}
	cfg, err := app.LoadConfig(c)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.ValidateStore(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := app.ConfigureLogger(c, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	idx, closer, err := app.OpenIndexer(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closer.Close()

	if cfg.Multiprocess {
		logger.Info("multiprocess enabled", "workers", config.Workers(cfg.Workers))
	}

	im, err := presenter.NewImporter(cfg, presenter.NewDecoder(cfg.Decoder), idx, logger)
	if err != nil {
		return err
	}
	sum, err := im.Run(ctx, c.Args().Slice())
	if !cfg.Quiet {
		sum.Render(c.App.Writer)
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return nil
}
