package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songrelay/internal/formatter"
	"github.com/desertthunder/songrelay/internal/library"
	"github.com/desertthunder/songrelay/internal/models"
	"github.com/desertthunder/songrelay/internal/shared"
	"golang.org/x/time/rate"
)

// ManifestFile is the name of the manifest written into the output directory.
const ManifestFile = "pull_manifest.json"

const (
	defaultWorkers   = 4
	maxWorkers       = 10
	defaultRateLimit = 2.0
	defaultOutputDir = "songs"
)

// PullOpts contains configuration for a bulk pull.
type PullOpts struct {
	OutputDir  string  // Destination directory (default: songs)
	NumWorkers int     // Concurrent downloads (default: 4, max: 10)
	RateLimit  float64 // Store requests per second (default: 2)
}

// Puller downloads every song in a library's folder to disk.
type Puller struct {
	lib    *library.Library
	logger *log.Logger
}

// pullJob is one entry queued for download, with the collision-free file name it was assigned.
type pullJob struct {
	index    int
	entry    models.FileEntry
	fileName string
	err      error
}

// NewPuller creates a new [Puller].
func NewPuller(lib *library.Library, logger *log.Logger) *Puller {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Puller{lib: lib, logger: logger}
}

// Pull lists the folder once and downloads every entry concurrently, pacing store requests with a rate limiter.
//
// Individual failures are recorded in the manifest rather than aborting the pull.
// The manifest is written to [ManifestFile] in the output directory even when the context is cancelled part way,
// in which case the returned error wraps the context error.
func (p *Puller) Pull(ctx context.Context, prog chan<- ProgressUpdate, opts PullOpts) (*models.PullManifest, error) {
	if p.lib == nil {
		return nil, fmt.Errorf("%w: library not initialized", shared.ErrServiceUnavailable)
	}

	opts = opts.withDefaults()
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	sendProgress(prog, listFolderUpdate(p.lib.FolderID()))
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}

	entries, err := p.lib.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: folder %s is empty", shared.ErrNoSongs, p.lib.FolderID())
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manifest := &models.PullManifest{
		FolderID:  p.lib.FolderID(),
		OutputDir: opts.OutputDir,
		StartedAt: time.Now().UTC(),
		Total:     len(entries),
		Results:   make([]models.PullResult, len(entries)),
	}

	jobs := make(chan pullJob, len(entries))
	results := make(chan pullOutcome, len(entries))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go p.pullWorker(ctx, &wg, limiter, jobs, results, opts)
	}

	for _, job := range planJobs(entries) {
		jobs <- job
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for out := range results {
		completed++
		res := out.result
		manifest.Results[out.index] = res

		if res.Success {
			manifest.Succeeded++
			manifest.TotalBytes += res.Bytes
			sendProgress(prog, pullCompletedUpdate(completed, len(entries), res.Name, res.Bytes))
		} else {
			manifest.Failed++
			p.logger.Warn("failed to pull song", "name", res.Name, "id", res.ID, "error", res.Error)
			sendProgress(prog, pullFailedUpdate(completed, len(entries), res.Name, res.Error))
		}
	}
	manifest.FinishedAt = time.Now().UTC()

	manifestPath := filepath.Join(opts.OutputDir, ManifestFile)
	if err := formatter.WritePullManifest(manifest, manifestPath); err != nil {
		return manifest, fmt.Errorf("pull completed but failed to write manifest: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return manifest, fmt.Errorf("pull interrupted: %w", err)
	}
	return manifest, nil
}

type pullOutcome struct {
	index  int
	result models.PullResult
}

// pullWorker downloads entries from the jobs channel until it is drained.
//
// Jobs left after cancellation are still reported, as failures, so the manifest accounts for every entry.
func (p *Puller) pullWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan pullJob,
	results chan<- pullOutcome,
	opts PullOpts,
) {
	defer wg.Done()

	for job := range jobs {
		results <- pullOutcome{index: job.index, result: p.pullSingle(ctx, limiter, job, opts)}
	}
}

// pullSingle downloads one entry to a temporary file and renames it into place once complete.
func (p *Puller) pullSingle(ctx context.Context, limiter *rate.Limiter, j pullJob, opts PullOpts) models.PullResult {
	result := models.PullResult{
		ID:   j.entry.ID,
		Name: j.entry.Name,
		Slug: shared.Slugify(j.entry.Name),
	}

	if j.err != nil {
		result.Error = j.err.Error()
		return result
	}

	if err := limiter.Wait(ctx); err != nil {
		result.Error = err.Error()
		return result
	}

	body, err := p.lib.Open(ctx, j.entry)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer body.Close()

	tmp, err := os.CreateTemp(opts.OutputDir, ".pull-*")
	if err != nil {
		result.Error = fmt.Sprintf("failed to create file: %v", err)
		return result
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		result.Error = fmt.Sprintf("failed to create file: %v", err)
		return result
	}

	n, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		result.Error = fmt.Sprintf("download failed after %d bytes: %v", n, err)
		return result
	}

	dest := filepath.Join(opts.OutputDir, j.fileName)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		result.Error = fmt.Sprintf("failed to save file: %v", err)
		return result
	}

	result.Path = dest
	result.Bytes = n
	result.Success = true
	return result
}

// planJobs assigns each entry a file name inside the output directory.
//
// Names that would escape the directory are rejected. Duplicate names get the entry id appended
// before the extension so a later entry never overwrites an earlier one.
func planJobs(entries []models.FileEntry) []pullJob {
	jobs := make([]pullJob, 0, len(entries))
	used := make(map[string]bool, len(entries))

	for i, entry := range entries {
		job := pullJob{index: i, entry: entry}

		if err := checkFileName(entry.Name); err != nil {
			job.err = err
			jobs = append(jobs, job)
			continue
		}

		name := entry.Name
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		for n := 1; used[strings.ToLower(name)]; n++ {
			if n == 1 {
				name = fmt.Sprintf("%s (%s)%s", base, entry.ID, ext)
			} else {
				name = fmt.Sprintf("%s (%s %d)%s", base, entry.ID, n, ext)
			}
		}
		used[strings.ToLower(name)] = true
		job.fileName = name
		jobs = append(jobs, job)
	}
	return jobs
}

var errUnsafeName = errors.New("file name would escape the output directory")

func checkFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty file name", shared.ErrInvalidInput)
	}
	if strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) || strings.HasPrefix(name, ".pull-") {
		return fmt.Errorf("%w: %s: %q", shared.ErrInvalidInput, errUnsafeName, name)
	}
	return nil
}

func (o PullOpts) withDefaults() PullOpts {
	if o.OutputDir == "" {
		o.OutputDir = defaultOutputDir
	}
	if o.NumWorkers <= 0 {
		o.NumWorkers = defaultWorkers
	}
	if o.NumWorkers > maxWorkers {
		o.NumWorkers = maxWorkers
	}
	if o.RateLimit <= 0 {
		o.RateLimit = defaultRateLimit
	}
	return o
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
