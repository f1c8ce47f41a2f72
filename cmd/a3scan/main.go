// Command a3scan is the CLI entry point (§4.N): it wires the Stage
// Handler Registry and Workflow Orchestrator together and exposes one
// subcommand per WorkflowType, plus a cache management subcommand.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/a3scan/internal/cache"
	"github.com/standardbeagle/a3scan/internal/config"
	"github.com/standardbeagle/a3scan/internal/logging"
	"github.com/standardbeagle/a3scan/internal/manifest"
	"github.com/standardbeagle/a3scan/internal/orchestrator"
	"github.com/standardbeagle/a3scan/internal/registry"
)

// toolVersion is set at build time via -ldflags; it defaults to "dev" so
// the binary still runs without a release pipeline.
var toolVersion = "dev"

func main() {
	app := &cli.App{
		Name:    "a3scan",
		Usage:   "offline static analysis for Arma 3 PBO archives",
		Version: toolVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "project root directory",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a .a3scan.kdl file (overrides the project/global lookup)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "directory the run writes its stage output into",
				Value:   "./a3scan-out",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "worker pool size (0 = auto-detect)",
			},
		},
		Commands: []*cli.Command{
			workflowCommand("extract", registry.WorkflowExtract, "extract every PBO under root into the output directory"),
			workflowCommand("process", registry.WorkflowProcess, "parse configs and scan missions already extracted under root"),
			workflowCommand("report", registry.WorkflowReport, "write the missing-class and mission-dependency reports"),
			workflowCommand("export", registry.WorkflowExport, "copy the Report stage's artifacts into their final location"),
			workflowCommand("complete", registry.WorkflowComplete, "run extract, process, report, and export in sequence"),
			{
				Name:  "cache",
				Usage: "inspect or reset the persistent extraction cache",
				Subcommands: []*cli.Command{
					{
						Name:      "purge",
						Usage:     "remove one archive's cache record (or every record, with --all)",
						ArgsUsage: "[archive-key]",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "all", Usage: "purge every cache record"},
						},
						Action: cachePurgeCommand,
					},
					{
						Name:   "inspect",
						Usage:  "print cache statistics",
						Action: cacheInspectCommand,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "a3scan: %v\n", err)
		os.Exit(1)
	}
}

// workflowCommand builds the *cli.Command for one WorkflowType: load
// config, build a Registry with every stage handler registered, and run
// the Orchestrator to completion, printing progress to stderr.
func workflowCommand(name string, wt registry.WorkflowType, usage string) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<source-dir>",
		Action: func(c *cli.Context) error {
			sourceDir := c.Args().First()
			if sourceDir == "" {
				sourceDir = c.String("root")
			}
			return runWorkflow(c, wt, name, sourceDir)
		},
	}
}

func runWorkflow(c *cli.Context, wt registry.WorkflowType, name, sourceDir string) error {
	cfg, log, err := loadRuntime(c)
	if err != nil {
		return err
	}

	store, err := cache.Open(filepath.Join(cfg.Cache.RootDir, cfg.Cache.FileName), log)
	if err != nil {
		return fmt.Errorf("opening cache store: %w", err)
	}

	reg := registry.New()
	reg.Register(registry.StageExtract, &orchestrator.ExtractHandler{Store: store})
	reg.Register(registry.StageProcess, &orchestrator.ProcessHandler{})
	reg.Register(registry.StageReport, &orchestrator.ReportHandler{})
	reg.Register(registry.StageExport, &orchestrator.ExportHandler{})

	progress := func(p orchestrator.Progress) {
		fmt.Fprintf(os.Stderr, "[%5.1f%%] %s (%s elapsed)\n", p.Percentage, p.Stage, p.Elapsed.Round(time.Second))
	}

	orch := orchestrator.New(reg, cfg, log, progress)

	wf := registry.Workflow{
		Type:        wt,
		Name:        name,
		SourceDir:   sourceDir,
		ContentType: registry.ContentGameData,
	}

	outputDir := c.String("output")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	startedAt := time.Now()
	result, runErr := orch.Execute(wf, outputDir)

	m := manifest.FromConfig(toolVersion, cfg)
	m.WorkflowType = string(wt)
	m.StartedAt = startedAt
	m.FinishedAt = startedAt.Add(result.Duration)
	m.State = string(result.State)
	m.OutputDir = outputDir
	if mErr := manifest.Write(filepath.Join(outputDir, "run.toml"), m); mErr != nil {
		fmt.Fprintf(os.Stderr, "a3scan: writing manifest: %v\n", mErr)
	}

	if runErr != nil {
		return fmt.Errorf("workflow %s failed: %w", name, runErr)
	}

	fmt.Fprintf(os.Stdout, "%s completed in %s: %d output file(s)\n", name, result.Duration.Round(time.Millisecond), len(result.OutputFiles))
	return nil
}

func loadRuntime(c *cli.Context) (*config.Config, *logging.Sink, error) {
	root := c.String("root")
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving root %q: %w", root, err)
	}

	var cfg *config.Config
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadKDL(filepath.Dir(path))
		if err != nil {
			return nil, nil, err
		}
		if cfg == nil {
			cfg = config.Default(absRoot)
		}
	} else {
		cfg, err = config.Load(absRoot)
		if err != nil {
			return nil, nil, err
		}
	}
	cfg.Project.Root = absRoot
	cfg.Cache.RootDir = absRoot

	if workers := c.Int("workers"); workers > 0 {
		cfg.Extraction.WorkerCount = workers
	}

	log := logging.NewSink(os.Stderr, logging.LevelInfo)
	return cfg, log, nil
}

func cachePurgeCommand(c *cli.Context) error {
	cfg, log, err := loadRuntime(c)
	if err != nil {
		return err
	}
	store, err := cache.Open(filepath.Join(cfg.Cache.RootDir, cfg.Cache.FileName), log)
	if err != nil {
		return err
	}

	if c.Bool("all") {
		n, purgeErr := store.PurgeAll()
		if purgeErr != nil {
			return purgeErr
		}
		fmt.Fprintf(os.Stdout, "purged %d record(s)\n", n)
		return nil
	}

	key := c.Args().First()
	if key == "" {
		return fmt.Errorf("usage: a3scan cache purge <archive-key> (or --all)")
	}
	if err := store.Purge(key); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "purged %s\n", key)
	return nil
}

func cacheInspectCommand(c *cli.Context) error {
	cfg, log, err := loadRuntime(c)
	if err != nil {
		return err
	}
	store, err := cache.Open(filepath.Join(cfg.Cache.RootDir, cfg.Cache.FileName), log)
	if err != nil {
		return err
	}

	stats := store.Stats()
	fmt.Fprintf(os.Stdout, "archives:          %d\n", stats.Entries)
	fmt.Fprintf(os.Stdout, "files:             %d\n", stats.FileCount)
	fmt.Fprintf(os.Stdout, "permanent errors:  %d\n", stats.PermanentErrors)
	fmt.Fprintf(os.Stdout, "transient errors:  %d\n", stats.TransientErrors)
	return nil
}
