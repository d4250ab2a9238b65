package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/deadwood/internal/output"
	"github.com/panbanda/deadwood/internal/report"
	"github.com/panbanda/deadwood/internal/service/analysis"
)

func explainCmd() *cli.Command {
	return &cli.Command{
		Name:      "explain",
		Usage:     "Explain why a method is reachable or dead",
		ArgsUsage: "[path]",
		Description: `Shows whether a method is reachable, a shortest call path from an entry
point, its callers, its transitive callees and, for live methods, the
instructions that can never execute.

Methods are named as owner.name+descriptor:
  deadwood explain --method com.example.Main.helper()V build/units`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "method",
				Aliases:  []string{"m"},
				Usage:    "Method key to explain",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Reachability mode: union or simple",
			},
			&cli.StringSliceFlag{
				Name:    "entry",
				Aliases: []string{"e"},
				Usage:   "Entry point policy to enable (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "no-reflection",
				Usage: "Do not link reflective calls",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
		},
		Action: runExplainCmd,
	}
}

func runExplainCmd(c *cli.Context) error {
	if c.Args().Len() > 1 {
		return fmt.Errorf("explain takes a single path, got %d", c.Args().Len())
	}
	path := "."
	if c.Args().Len() == 1 {
		path = c.Args().First()
	}

	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyAnalyzeFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Output.Format == "html" {
		return fmt.Errorf("explain does not support html output")
	}
	cfg.Cache.Enabled = false

	svc, err := analysis.New(analysis.WithConfig(cfg))
	if err != nil {
		return err
	}
	ex, err := svc.Explain(context.Background(), path, c.String("method"))
	if err != nil {
		return err
	}

	var formatter *output.Formatter
	if out := c.String("output"); out != "" {
		formatter, err = output.NewFormatter(output.Format(cfg.Output.Format), out, cfg.Output.Color)
		if err != nil {
			return err
		}
	} else {
		formatter = output.NewWriterFormatter(output.Format(cfg.Output.Format), c.App.Writer, cfg.Output.Color)
	}
	defer formatter.Close()
	return formatter.Output(report.Explain(ex))
}
