package orchestrator

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/standardbeagle/a3scan/internal/cache"
	"github.com/standardbeagle/a3scan/internal/classlang"
	"github.com/standardbeagle/a3scan/internal/classstore"
	"github.com/standardbeagle/a3scan/internal/depscan"
	"github.com/standardbeagle/a3scan/internal/pbo"
	"github.com/standardbeagle/a3scan/internal/preprocess"
	"github.com/standardbeagle/a3scan/internal/registry"
	"github.com/standardbeagle/a3scan/internal/report"
	"github.com/standardbeagle/a3scan/internal/validate"
	"github.com/standardbeagle/a3scan/internal/workerpool"
)

// artifact keys shared between stages via Context.Artifacts.
const (
	artifactExtractedDirs = "extracted_dirs"
	artifactClassStore    = "classstore"
	artifactMissions      = "missions"
	artifactMissionReport = "mission_report"
)

// --- Extract -----------------------------------------------------------

// ExtractHandler is the Extract stage: find every .pbo under the
// workflow's source directory and extract it through the Cache Store
// and Extraction Engine (§4.D/§4.E), fanning out across a worker pool
// (§5).
type ExtractHandler struct {
	registry.NoopValidator
	Store        *cache.Store
	Decompressor pbo.Decompressor
}

func (h *ExtractHandler) Name() string { return "Extract" }

func (h *ExtractHandler) CanHandle(wt registry.WorkflowType) bool {
	switch wt {
	case registry.WorkflowExtract, registry.WorkflowExtractAndProcess, registry.WorkflowComplete:
		return true
	default:
		return false
	}
}

func (h *ExtractHandler) Cancel() {}

func (h *ExtractHandler) Execute(ctx *registry.Context) (registry.StageResult, error) {
	outRoot, err := HandlerOutputDir(ctx, h.Name())
	if err != nil {
		return registry.StageResult{Stage: h.Name()}, err
	}

	archives, err := findPBOs(ctx.Workflow.SourceDir)
	if err != nil {
		return registry.StageResult{Stage: h.Name()}, err
	}

	engine := cache.NewEngine(h.Store, ctx.Log, h.Decompressor)
	pattern := ctx.Config.Extraction.Patterns

	kind := cache.KindGameData
	if ctx.Workflow.ContentType == registry.ContentMission {
		kind = cache.KindMission
	}

	var (
		mu          sync.Mutex
		extractedN  int
		failedN     int
		dirs        []string
		outputFiles []string
		warnings    []string
	)

	err = workerpool.Run(context.Background(), ctx.Config.Extraction.WorkerCount, archives, func(_ context.Context, archivePath string) error {
		rel, relErr := filepath.Rel(ctx.Workflow.SourceDir, archivePath)
		if relErr != nil {
			rel = filepath.Base(archivePath)
		}
		dest := filepath.Join(outRoot, strings.TrimSuffix(rel, filepath.Ext(rel)))

		if !engine.NeedsExtraction(archivePath, pattern, dest) {
			mu.Lock()
			dirs = append(dirs, dest)
			mu.Unlock()
			return nil
		}

		result, extractErr := engine.Extract(archivePath, pattern, dest, kind)

		mu.Lock()
		defer mu.Unlock()
		if extractErr != nil {
			failedN++
			warnings = append(warnings, extractErr.Error())
			return nil // per-archive failures never abort the stage (§7)
		}
		extractedN += len(result.ExtractedFiles)
		warnings = append(warnings, result.Warnings...)
		dirs = append(dirs, dest)
		for _, f := range result.ExtractedFiles {
			outputFiles = append(outputFiles, filepath.Join(dest, filepath.FromSlash(f)))
		}
		return nil
	})
	if err != nil {
		return registry.StageResult{Stage: h.Name()}, err
	}

	if ferr := h.Store.Flush(); ferr != nil {
		ctx.Log.Warnf(h.Name(), "cache flush failed: %v", ferr)
	}

	ctx.Artifacts[artifactExtractedDirs] = dirs

	summary := &registry.ExtractionSummary{
		ArchivesScanned: len(archives),
		ArchivesFailed:  failedN,
		FilesExtracted:  extractedN,
	}

	// An aggregate failure is reported only when every archive failed and
	// at least one was attempted (§7: "aggregate extract fails only if
	// zero entries succeed").
	if len(archives) > 0 && failedN == len(archives) {
		return registry.StageResult{Stage: h.Name(), Success: false, Summary: summary, Warnings: warnings},
			fmt.Errorf("every archive under %s failed to extract", ctx.Workflow.SourceDir)
	}

	return registry.StageResult{
		Stage:       h.Name(),
		Success:     true,
		Summary:     summary,
		OutputFiles: outputFiles,
		Warnings:    warnings,
	}, nil
}

func findPBOs(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pbo") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// --- Process -------------------------------------------------------------

// ProcessHandler is the Process stage: preprocess and parse every config
// overlay into a fresh Class Store (§4.F/§4.G/§4.H), and scan every
// mission directory for referenced identifiers (§4.I). It reads from
// whatever the Extract stage produced (Context.Artifacts), or — when run
// standalone — directly from the workflow's source directory, which is
// then assumed to already be an extracted tree.
type ProcessHandler struct {
	registry.NoopValidator
}

func (h *ProcessHandler) Name() string { return "Process" }

func (h *ProcessHandler) CanHandle(wt registry.WorkflowType) bool {
	switch wt {
	case registry.WorkflowProcess, registry.WorkflowExtractAndProcess,
		registry.WorkflowProcessAndReport, registry.WorkflowComplete:
		return true
	default:
		return false
	}
}

func (h *ProcessHandler) Cancel() {}

func (h *ProcessHandler) Execute(ctx *registry.Context) (registry.StageResult, error) {
	roots, _ := ctx.Artifacts[artifactExtractedDirs].([]string)
	if len(roots) == 0 {
		roots = []string{ctx.Workflow.SourceDir}
	}

	cppFiles, missionDirs, err := collectProcessInputs(roots)
	if err != nil {
		return registry.StageResult{Stage: h.Name()}, err
	}

	store := classstore.New()
	var (
		mu          sync.Mutex
		allRecords  []classlang.Record
		warnings    int
		filesParsed int
	)

	ws := preprocess.Workspace{SearchRoots: ctx.Config.Parser.SearchRoots}
	err = workerpool.Run(context.Background(), ctx.Config.Extraction.WorkerCount, cppFiles, func(_ context.Context, path string) error {
		pre, preErr := preprocess.Preprocess(path, ws)
		if preErr != nil {
			ctx.Log.Warnf(h.Name(), "preprocessing %s: %v", path, preErr)
			return nil
		}
		res := classlang.Parse(pre.Text, pre.Origins, path)

		mu.Lock()
		allRecords = append(allRecords, res.Records...)
		warnings += len(pre.Diagnostics) + len(res.Diagnostics)
		filesParsed++
		mu.Unlock()
		return nil
	})
	if err != nil {
		return registry.StageResult{Stage: h.Name()}, err
	}

	store.BulkInsert(allRecords)

	var missions []depscan.Record
	for _, dir := range missionDirs {
		mf, collectErr := depscan.CollectMissionFiles(dir, walkFiles)
		if collectErr != nil {
			ctx.Log.Warnf(h.Name(), "collecting mission files under %s: %v", dir, collectErr)
			continue
		}
		missions = append(missions, depscan.Analyze(filepath.Base(dir), dir, mf))
	}

	ctx.Artifacts[artifactClassStore] = store
	ctx.Artifacts[artifactMissions] = missions

	summary := &registry.ProcessingSummary{
		FilesParsed:       filesParsed,
		ClassesDiscovered: store.Size(),
		ParseWarnings:     warnings,
		MissionsScanned:   len(missions),
	}

	return registry.StageResult{Stage: h.Name(), Success: true, Summary: summary}, nil
}

// collectProcessInputs walks every root collecting .cpp/.hpp overlay
// paths and every directory that contains a mission.sqm (a mission
// boundary, §3.8).
func collectProcessInputs(roots []string) (cppFiles []string, missionDirs []string, err error) {
	seen := make(map[string]bool)
	for _, root := range roots {
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, werr error) error {
			if werr != nil {
				return nil // a missing/unreadable extraction root is tolerated
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".cpp", ".hpp":
				cppFiles = append(cppFiles, path)
			case ".sqm":
				if strings.EqualFold(filepath.Base(path), "mission.sqm") {
					dir := filepath.Dir(path)
					if !seen[dir] {
						seen[dir] = true
						missionDirs = append(missionDirs, dir)
					}
				}
			}
			return nil
		})
		if walkErr != nil {
			return nil, nil, walkErr
		}
	}
	return cppFiles, missionDirs, nil
}

func walkFiles(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

// --- Report ----------------------------------------------------------

// ReportHandler is the Report stage: cross-reference every mission's
// external identifiers against the Process stage's Class Store (§4.L)
// and write the JSON/text report (§6.E).
type ReportHandler struct {
	registry.NoopValidator
}

func (h *ReportHandler) Name() string { return "Report" }

func (h *ReportHandler) CanHandle(wt registry.WorkflowType) bool {
	switch wt {
	case registry.WorkflowReport, registry.WorkflowProcessAndReport, registry.WorkflowComplete:
		return true
	default:
		return false
	}
}

func (h *ReportHandler) Cancel() {}

func (h *ReportHandler) Execute(ctx *registry.Context) (registry.StageResult, error) {
	store, _ := ctx.Artifacts[artifactClassStore].(*classstore.Store)
	if store == nil {
		store = classstore.New()
	}
	missions, _ := ctx.Artifacts[artifactMissions].([]depscan.Record)

	existence := validate.Validate(missions, store, ctx.Config.Validation)
	ctx.Artifacts[artifactMissionReport] = existence

	outDir, err := HandlerOutputDir(ctx, h.Name())
	if err != nil {
		return registry.StageResult{Stage: h.Name()}, err
	}

	jsonPath := filepath.Join(outDir, "missing_classes.json")
	textPath := filepath.Join(outDir, "missing_classes.txt")
	depsPath := filepath.Join(outDir, "mission_dependencies.json")

	if err := writeReportFile(jsonPath, func(w *os.File) error {
		return report.WriteMissingClassesJSON(w, existence)
	}); err != nil {
		return registry.StageResult{Stage: h.Name()}, err
	}
	if err := writeReportFile(textPath, func(w *os.File) error {
		return report.WriteMissingClassesText(w, existence)
	}); err != nil {
		return registry.StageResult{Stage: h.Name()}, err
	}
	if err := writeReportFile(depsPath, func(w *os.File) error {
		return report.WriteMissionDependenciesJSON(w, missions)
	}); err != nil {
		return registry.StageResult{Stage: h.Name()}, err
	}

	summary := &registry.ReportingSummary{
		MissionsValidated: len(existence.Missions),
		TotalUnique:       existence.TotalUnique,
		TotalExisting:     existence.TotalExisting,
		TotalMissing:      existence.TotalMissing,
	}

	return registry.StageResult{
		Stage:       h.Name(),
		Success:     true,
		Summary:     summary,
		OutputFiles: []string{jsonPath, textPath, depsPath},
	}, nil
}

func writeReportFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f)
}

// --- Export ------------------------------------------------------------

// ExportHandler is the Export stage: copy the regular files the Report
// stage wrote to <output_dir>/Report into <output_dir>/Export (§6.C).
// Subdirectories of Report and the run's scratch directory are not
// copied, and the originals stay in place. Export summaries are never surfaced at the
// top-level Result (§4.K) — only the file paths it produced are.
type ExportHandler struct {
	registry.NoopValidator
}

func (h *ExportHandler) Name() string { return "Export" }

func (h *ExportHandler) CanHandle(wt registry.WorkflowType) bool {
	switch wt {
	case registry.WorkflowExport, registry.WorkflowComplete:
		return true
	default:
		return false
	}
}

func (h *ExportHandler) Cancel() {}

func (h *ExportHandler) Execute(ctx *registry.Context) (registry.StageResult, error) {
	reportDir := filepath.Join(ctx.OutputDir, "Report")
	outDir, err := HandlerOutputDir(ctx, h.Name())
	if err != nil {
		return registry.StageResult{Stage: h.Name()}, err
	}

	entries, err := os.ReadDir(reportDir)
	if err != nil {
		if os.IsNotExist(err) {
			// Export running without a prior Report stage in this run has
			// nothing staged to export yet; that is not itself a failure.
			return registry.StageResult{
				Stage:   h.Name(),
				Success: true,
				Summary: &registry.ExportSummary{Format: "json"},
			}, nil
		}
		return registry.StageResult{Stage: h.Name()}, err
	}

	var written []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		src := filepath.Join(reportDir, e.Name())
		dst := filepath.Join(outDir, e.Name())
		if err := copyFile(src, dst); err != nil {
			ctx.Log.Warnf(h.Name(), "copying %s: %v", e.Name(), err)
			continue
		}
		written = append(written, dst)
	}

	return registry.StageResult{
		Stage:       h.Name(),
		Success:     true,
		Summary:     &registry.ExportSummary{FilesWritten: len(written), Format: "json"},
		OutputFiles: written,
	}, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

