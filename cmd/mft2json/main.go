// Command mft2json converts Windows MFT files into JSON array files.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/cdtdelta/mft2es/internal/app"
	"github.com/cdtdelta/mft2es/internal/presenter"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "mft2json",
		Usage:     "Convert Windows MFT records to JSON",
		UsageText: "mft2json [options] MFT_FILE",
		Version:   app.Version,
		Flags: append(app.CommonFlags(),
			&cli.StringFlag{
				Name:    "output-file",
				Aliases: []string{"o"},
				Usage:   "JSON file path to output",
			},
		),
		Before: app.SetupLogger,
		Action: exportCommand,
	}
}

func exportCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("an MFT file is required", 2)
	}
	cfg, err := app.LoadConfig(c)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := app.ConfigureLogger(c, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ex, err := presenter.NewExporter(cfg, presenter.NewDecoder(cfg.Decoder), logger)
	if err != nil {
		return err
	}
	written, err := ex.Run(ctx, c.Args().Slice())
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if !cfg.Quiet {
		for _, path := range written {
			fmt.Fprintf(c.App.Writer, "Converted. Output: %s\n", path)
		}
	}
	return nil
}
