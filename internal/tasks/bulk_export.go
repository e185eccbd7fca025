package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/aura/internal/formatter"
	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/shared"
	"golang.org/x/time/rate"
)

// BulkExportOpts contains configuration for bulk list exports.
type BulkExportOpts struct {
	Format     string   // Export format: json, csv, markdown, txt, yaml
	OutputDir  string   // Base output directory (default: aura_export_{epoch})
	NumWorkers int      // Concurrent workers (default: 5)
	RateLimit  float64  // Lists read per second (default: 5)
	Lists      []string // List names to export; empty exports every live list
}

// ListExportJob is one list queued for writing.
type ListExportJob struct {
	Name   string
	Export *models.ListExport
}

// ListExportResult is the outcome of exporting one list.
type ListExportResult struct {
	ListID   string   `json:"listId,omitempty"`
	ListName string   `json:"listName"`
	Success  bool     `json:"success"`
	Files    []string `json:"files,omitempty"`
	Error    error    `json:"-"`
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	TotalLists        int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []ListExportResult
}

// ExportManifest is the summary written next to the exported files.
type ExportManifest struct {
	Owner           string          `json:"owner"`
	Format          string          `json:"format"`
	ExportedAt      time.Time       `json:"exportedAt"`
	TotalLists      int             `json:"totalLists"`
	Successful      int             `json:"successful"`
	Failed          int             `json:"failed"`
	OutputDirectory string          `json:"outputDirectory"`
	Lists           []ManifestEntry `json:"lists"`
}

// ManifestEntry is one list's line in an [ExportManifest].
type ManifestEntry struct {
	ListID   string   `json:"listId,omitempty"`
	ListName string   `json:"listName"`
	Success  bool     `json:"success"`
	Files    []string `json:"files,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// ExportList returns the live list called name with its active and done children
// in creation order. A missing list returns [ErrListNotFound].
func (e *ListEngine) ExportList(ctx context.Context, owner, name string) (*models.ListExport, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}

	var export *models.ListExport
	err := e.withTx(ctx, "export list", func(s store) error {
		list, err := s.entities.FindList(ctx, owner, name)
		if isNotFound(err) {
			return fmt.Errorf("%w: %q", ErrListNotFound, name)
		}
		if err != nil {
			return err
		}

		children, err := s.entities.Children(ctx, owner, list.ID, models.StateActive, models.StateDone)
		if err != nil {
			return err
		}

		export = &models.ListExport{
			ID:        list.ID,
			Title:     list.Title,
			CreatedAt: list.CreatedAt,
			Items:     numbered(children, list.Title),
		}
		return nil
	})
	return export, err
}

// BulkExport exports the owner's lists concurrently with rate limiting and progress tracking.
//
// Lists are read one at a time under the limiter and handed to a pool of workers that write
// files. A list that cannot be read or written is recorded as a failure; the export goes on
// and ends with a manifest summarizing every list.
func (e *ListEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	owner string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}

	format, err := formatter.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	if opts.Format == "" {
		format = formatter.FormatJSON
	}
	opts.Format = format

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("aura_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	names := opts.Lists
	if len(names) == 0 {
		lists, err := e.GetAllLists(ctx, owner)
		if err != nil {
			return nil, err
		}
		for _, l := range lists {
			names = append(names, l.Title)
		}
	}
	e.sendProgress(prog, fetchListsUpdate(len(names)))

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalLists:      len(names),
		OutputDirectory: opts.OutputDir,
		Results:         make([]ListExportResult, 0, len(names)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan ListExportJob, len(names))
	results := make(chan ListExportResult, len(names))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, name := range names {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := limiter.Wait(ctx); err != nil {
				return
			}

			export, err := e.ExportList(ctx, owner, name)
			if err != nil {
				results <- ListExportResult{
					ListName: name,
					Success:  false,
					Error:    fmt.Errorf("failed to read list: %w", err),
				}
				continue
			}

			jobs <- ListExportJob{Name: name, Export: export}
			e.sendProgress(prog, fetchItemsUpdate(i+1, len(names), export))
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(names), res.ListName, len(res.Files)))
		} else {
			result.FailedExports++
			e.log(owner, "list", res.ListName).Warn("list export failed", "err", res.Error)
			e.sendProgress(prog, exportFailedUpdate(completed, len(names), res.ListName, res.Error))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(newManifest(owner, opts, result, e.clock()), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	e.sendProgress(prog, manifestUpdate(manifestPath))

	e.log(owner).Info("bulk export finished",
		"dir", opts.OutputDir, "ok", result.SuccessfulExports, "failed", result.FailedExports)
	return result, nil
}

// exportWorker is a worker goroutine that writes lists from the jobs channel.
func (e *ListEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan ListExportJob,
	results chan<- ListExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- e.exportSingleList(job, opts)
	}
}

// exportSingleList writes one list in the requested format. Files are named by list ID.
func (e *ListEngine) exportSingleList(j ListExportJob, opts BulkExportOpts) ListExportResult {
	result := ListExportResult{
		ListID:   j.Export.ID,
		ListName: j.Export.Title,
		Success:  false,
		Files:    []string{},
	}

	switch opts.Format {
	case formatter.FormatCSV:
		baseFilepath := filepath.Join(opts.OutputDir, j.Export.ID)
		csvRes, err := formatter.WriteCSVExport(j.Export, baseFilepath)
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{csvRes.ItemsFile, csvRes.MetadataFile}

	case formatter.FormatMarkdown:
		mdFile, err := formatter.WriteMarkdownExport(j.Export, filepath.Join(opts.OutputDir, j.Export.ID))
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = []string{mdFile}

	case formatter.FormatText:
		txtPath := filepath.Join(opts.OutputDir, fmt.Sprintf("%s_items.txt", j.Export.ID))
		path, err := formatter.WriteTextExport(j.Export, txtPath)
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	case formatter.FormatYAML:
		path, err := formatter.WriteYAMLExport(j.Export, filepath.Join(opts.OutputDir, j.Export.ID+".yaml"))
		if err != nil {
			result.Error = fmt.Errorf("YAML export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	default:
		jsonPath := filepath.Join(opts.OutputDir, fmt.Sprintf("%s.json", j.Export.ID))
		data, err := shared.MarshalJSON(j.Export, true)
		if err != nil {
			result.Error = fmt.Errorf("JSON marshal failed: %w", err)
			return result
		}
		if err := os.WriteFile(jsonPath, data, 0644); err != nil {
			result.Error = fmt.Errorf("JSON write failed: %w", err)
			return result
		}
		result.Files = []string{jsonPath}
	}

	result.Success = true
	return result
}

func newManifest(owner string, opts BulkExportOpts, r *BulkExportResult, at time.Time) ExportManifest {
	m := ExportManifest{
		Owner:           owner,
		Format:          opts.Format,
		ExportedAt:      at,
		TotalLists:      r.TotalLists,
		Successful:      r.SuccessfulExports,
		Failed:          r.FailedExports,
		OutputDirectory: r.OutputDirectory,
		Lists:           make([]ManifestEntry, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		entry := ManifestEntry{ListID: res.ListID, ListName: res.ListName, Success: res.Success, Files: res.Files}
		if res.Error != nil {
			entry.Error = res.Error.Error()
		}
		m.Lists = append(m.Lists, entry)
	}
	return m
}
