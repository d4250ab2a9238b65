package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/deadwood/internal/cache"
	"github.com/panbanda/deadwood/internal/locator"
	"github.com/panbanda/deadwood/internal/output"
	"github.com/panbanda/deadwood/internal/progress"
	"github.com/panbanda/deadwood/internal/report"
	"github.com/panbanda/deadwood/internal/service/analysis"
	"github.com/panbanda/deadwood/pkg/analyzer/reflection"
	"github.com/panbanda/deadwood/pkg/config"
	"github.com/panbanda/deadwood/pkg/models"
	"github.com/panbanda/deadwood/pkg/watch"
)

// exitFindings is the exit code of --fail-on-findings when dead code is found.
const exitFindings = 2

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Find unreachable methods, unused fields and dead instructions",
		ArgsUsage: "[path]",
		Description: `Analyzes a unit file, a directory of units, or a zip/jar archive.
The path defaults to the current directory.

Examples:
  deadwood analyze build/units
  deadwood analyze app.jar --format json -o report.json
  deadwood analyze build/units --mode simple --entry main
  deadwood analyze build/units --format html -o report.html`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Reachability mode: union or simple",
			},
			&cli.StringSliceFlag{
				Name:    "entry",
				Aliases: []string{"e"},
				Usage:   "Entry point policy to enable (repeatable): main, test, static-utility, main-constructor",
			},
			&cli.BoolFlag{
				Name:  "no-reflection",
				Usage: "Do not link reflective calls to methods named by string literals",
			},
			&cli.BoolFlag{
				Name:  "no-blocks",
				Usage: "Skip unreachable instruction detection",
			},
			&cli.BoolFlag{
				Name:  "no-cycles",
				Usage: "Skip dead recursive cluster detection",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon, html",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable the decoded unit cache",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Decode workers (0 = 2x CPU count)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Include entry points, reflective calls and field statistics",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum rows per table (0 = no limit)",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Re-run the analysis when units change",
			},
			&cli.BoolFlag{
				Name:  "fail-on-findings",
				Usage: fmt.Sprintf("Exit with status %d when dead code is found", exitFindings),
			},
		},
		Action: runAnalyzeCmd,
	}
}

// applyAnalyzeFlags overrides cfg with the flags set on the command line.
func applyAnalyzeFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("mode") {
		cfg.Analysis.Mode = c.String("mode")
	}
	if c.IsSet("entry") {
		cfg.Analysis.EntryPoints = c.StringSlice("entry")
	}
	if c.Bool("no-reflection") {
		cfg.Analysis.Reflection = reflection.StrategyNone
	}
	if c.Bool("no-blocks") {
		cfg.Analysis.DeadBlocks = false
	}
	if c.Bool("no-cycles") {
		cfg.Analysis.Cycles = false
	}
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}
	if c.IsSet("workers") {
		cfg.Analysis.Workers = c.Int("workers")
	}
	if c.Bool("verbose") {
		cfg.Output.Verbose = true
	}
	if c.Bool("no-color") {
		cfg.Output.Color = false
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	if c.Args().Len() > 1 {
		return fmt.Errorf("analyze takes a single path, got %d", c.Args().Len())
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

	opts := []analysis.Option{analysis.WithConfig(cfg)}
	if cfg.Cache.Enabled {
		unitCache, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
		if err != nil {
			warn("Cache disabled: %v", err)
		} else {
			opts = append(opts, analysis.WithCache(unitCache))
		}
	}
	svc, err := analysis.New(opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	run := analyzeRun{
		svc:    svc,
		cfg:    cfg,
		path:   path,
		output: c.String("output"),
		limit:  c.Int("limit"),
	}

	if c.Bool("watch") {
		return run.watch(ctx)
	}

	rep, err := run.once(ctx)
	if err != nil || rep == nil {
		return err
	}
	if c.Bool("fail-on-findings") && rep.HasFindings() {
		return cli.Exit(fmt.Sprintf("%d dead method(s), %d dead field(s), %d dead block(s)",
			rep.Summary.DeadMethods, rep.Summary.DeadFields, rep.Summary.DeadBlocks), exitFindings)
	}
	return nil
}

// analyzeRun holds everything one analysis pass needs.
type analyzeRun struct {
	svc    *analysis.Service
	cfg    *config.Config
	path   string
	output string
	limit  int
}

// once runs a single pass and writes the report. A nil report with a nil
// error means the path holds no units.
func (r analyzeRun) once(ctx context.Context) (*models.Report, error) {
	spinner := progress.NewSpinner("Locating units...")
	loc, err := r.svc.Locate(r.path)
	if err != nil {
		var notFound *locator.NotFoundError
		if !errors.As(err, &notFound) && errors.Is(err, locator.ErrNotFound) {
			spinner.FinishSkipped("no units")
			warn("No compiled units found in %s", r.path)
			return nil, nil
		}
		spinner.FinishError(err)
		return nil, err
	}
	spinner.FinishSuccess()

	tracker := progress.NewTracker("Analyzing", len(loc.Units))
	result, err := r.svc.Analyze(ctx, loc, analysis.Options{
		OnUnit:  tracker.Tick,
		OnPhase: tracker.Phase,
	})
	if err != nil {
		tracker.FinishError(err)
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	tracker.FinishSuccess()

	if result.Failed.HasErrors() && r.cfg.Output.Verbose {
		for _, pe := range result.Failed.Errors {
			warn("Failed to decode %s: %v", pe.Path, pe.Err)
		}
	}
	if len(result.Skipped) > 0 {
		warn("Skipped %d unit(s) larger than %d bytes", len(result.Skipped), r.cfg.Input.MaxUnitSize)
	}
	rep := result.Report
	for _, w := range rep.Warnings {
		warn("Warning: %s", w.Message)
	}

	if err := writeReport(rep, r.cfg, r.output, r.path, r.limit); err != nil {
		return nil, err
	}
	if r.output != "" {
		color.Green("Report written to %s", r.output)
	}
	return rep, nil
}

// watch runs a pass, then another one after every settled batch of unit
// changes, until ctx is cancelled. A pass whose findings match the previous
// one says so.
func (r analyzeRun) watch(ctx context.Context) error {
	w, err := watch.NewWatcher(r.path, r.cfg, 0)
	if err != nil {
		return err
	}
	defer w.Stop()

	var last uint64
	if rep, err := r.once(ctx); err != nil {
		color.Red("Error: %v", err)
	} else if rep != nil {
		last = rep.Fingerprint()
	}
	w.SetCallback(func(changed []string) {
		if err := r.svc.Forget(changed); err != nil {
			warn("Cache: %v", err)
		}
		rep, err := r.once(ctx)
		if err != nil {
			color.Red("Error: %v", err)
			return
		}
		if rep == nil {
			return
		}
		if fp := rep.Fingerprint(); fp == last {
			color.Cyan("No change in findings")
		} else {
			last = fp
		}
	})
	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// writeReport renders rep in the configured format to outputPath, or stdout
// when outputPath is empty.
func writeReport(rep *models.Report, cfg *config.Config, outputPath, target string, limit int) error {
	format := output.Format(cfg.Output.Format)
	if cfg.Output.Format == "html" {
		format = output.FormatText
	}
	formatter, err := output.NewFormatter(format, outputPath, cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if cfg.Output.Format == "html" {
		renderer, err := report.NewRenderer()
		if err != nil {
			return err
		}
		return renderer.Render(formatter.Writer(), rep, report.Metadata{
			Target:      target,
			GeneratedAt: time.Now(),
			Version:     version,
		})
	}
	return formatter.Output(report.Build(rep, report.Options{
		Verbose: cfg.Output.Verbose,
		Limit:   limit,
	}))
}
