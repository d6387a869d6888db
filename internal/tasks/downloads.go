package tasks

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/thumbx/internal/formatter"
	"github.com/desertthunder/thumbx/internal/models"
	"golang.org/x/time/rate"
)

// DownloadOpts contains configuration for result downloads.
type DownloadOpts struct {
	OutputDir  string       // Base output directory (default: thumbx_results_{epoch})
	NumWorkers int          // Concurrent workers (default: 4, max 10)
	RateLimit  float64      // Requests per second (default: 5)
	Client     *http.Client // HTTP client for result URLs
}

// DownloadResult contains the manifest of a finished download.
type DownloadResult struct {
	Manifest     formatter.DownloadManifest
	ManifestPath string
}

type downloadJob struct {
	index int
	job   *models.JobRecord
}

// DownloadResults saves the result images of jobs into opts.OutputDir using a worker pool.
//
// Jobs without a result URL are skipped. Individual failures are recorded in the manifest and do not stop
// the others.
func DownloadResults(ctx context.Context, prog chan<- ProgressUpdate, jobs []*models.JobRecord, opts DownloadOpts) (*DownloadResult, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("thumbx_results_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	pending := make([]*models.JobRecord, 0, len(jobs))
	for _, job := range jobs {
		if job.ResultURL() != "" {
			pending = append(pending, job)
		}
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	queue := make(chan downloadJob, len(pending))
	results := make(chan struct {
		index int
		entry formatter.DownloadEntry
	}, len(pending))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for dj := range queue {
				if ctx.Err() != nil {
					return
				}
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				results <- struct {
					index int
					entry formatter.DownloadEntry
				}{dj.index, downloadOne(ctx, dj.job, opts)}
			}
		}()
	}

	for i, job := range pending {
		queue <- downloadJob{index: i, job: job}
	}
	close(queue)

	go func() {
		wg.Wait()
		close(results)
	}()

	entries := make([]formatter.DownloadEntry, len(pending))
	manifest := formatter.DownloadManifest{
		CreatedAt: time.Now(),
		Directory: opts.OutputDir,
		Total:     len(pending),
	}

	completed := 0
	for res := range results {
		completed++
		entries[res.index] = res.entry

		var err error
		if res.entry.Error != "" {
			manifest.Failed++
			err = fmt.Errorf("%s", res.entry.Error)
		} else {
			manifest.Successful++
		}
		sendProgress(prog, downloadUpdate(completed, len(pending), res.entry.JobID, err))
	}

	manifest.Entries = entries[:0]
	for _, e := range entries {
		if e.JobID != "" {
			manifest.Entries = append(manifest.Entries, e)
		}
	}

	result := &DownloadResult{Manifest: manifest}
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("download interrupted: %w", err)
	}

	manifestPath := filepath.Join(opts.OutputDir, "manifest.json")
	if err := formatter.WriteManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("download completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func downloadOne(ctx context.Context, job *models.JobRecord, opts DownloadOpts) formatter.DownloadEntry {
	entry := formatter.DownloadEntry{
		JobID:  job.ID(),
		Kind:   string(job.Kind()),
		Status: string(job.Status()),
	}

	data, contentType, err := formatter.DownloadImage(ctx, opts.Client, job.ResultURL())
	if err != nil {
		entry.Error = err.Error()
		return entry
	}

	path := filepath.Join(opts.OutputDir, fmt.Sprintf("%04d_%s%s", job.Sequence(), job.Kind(), formatter.ImageExtension(contentType)))
	if err := os.WriteFile(path, data, 0644); err != nil {
		entry.Error = fmt.Sprintf("write failed: %v", err)
		return entry
	}
	entry.Files = []string{path}
	return entry
}
