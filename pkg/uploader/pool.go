// Package uploader runs vector uploads in the background with a fixed-size
// worker pool, fanning each progress event out to an eventstream publisher.
//
// The pool decouples discovery of chat exports (command arguments or the
// directory watcher) from the long-running streamed uploads.
package uploader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/papercomputeco/stylectl/pkg/backend"
	"github.com/papercomputeco/stylectl/pkg/dotdir"
	"github.com/papercomputeco/stylectl/pkg/eventstream"
	"github.com/papercomputeco/stylectl/pkg/eventstream/nop"
	"github.com/papercomputeco/stylectl/pkg/logger"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 64
)

// Uploader streams one CSV into the backend. *backend.Client implements it.
type Uploader interface {
	UploadVectors(ctx context.Context, req backend.UploadRequest, onProgress func(backend.Progress)) (*backend.Progress, error)
}

// Job is one chat export to upload.
type Job struct {
	Path       string
	Collection string
	UserName   string
	Size       int

	// Transcript, when set, receives the raw progress stream.
	Transcript io.Writer
}

// Result reports the outcome of a Job.
type Result struct {
	Job      Job
	UploadID string

	// Digest is the SHA-256 of the uploaded bytes, empty if the file could
	// not be read.
	Digest string

	// Final is the last progress event received, if any.
	Final *backend.Progress
	Err   error
}

// Config is the configuration options for the upload pool.
type Config struct {
	// Client performs the uploads.
	Client Uploader

	// Publisher receives every progress event. Defaults to a no-op publisher.
	Publisher eventstream.Publisher

	// NumWorkers is the number of concurrent uploads (defaults to 2).
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 64).
	QueueSize uint

	// Results, when set, receives one Result per processed job. The caller
	// must keep draining it until Close returns.
	Results chan<- Result

	// OnProgress, when set, is called for each progress event. It may be
	// called from several workers at once.
	OnProgress func(Job, backend.Progress)

	// Context bounds every upload. Defaults to context.Background().
	Context context.Context

	Logger *slog.Logger
}

// Pool processes upload jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool validates c and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Client == nil {
		return nil, fmt.Errorf("upload client is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}

	if c.Context == nil {
		c.Context = context.Background()
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("upload queued",
			"path", job.Path,
			"collection", job.Collection,
		)
		return true
	default:
		p.logger.Error("upload not queued, queue full, job dropped",
			"path", job.Path,
			"collection", job.Collection,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight uploads to drain.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("upload worker started", "worker_id", id)

	for job := range p.queue {
		res := p.processJob(job)
		if p.config.Results != nil {
			p.config.Results <- res
		}
	}

	p.logger.Debug("upload worker stopped", "worker_id", id)
}

// processJob reads the export and streams it to the backend, publishing each
// progress event as it arrives.
func (p *Pool) processJob(job Job) Result {
	ctx := p.config.Context
	res := Result{Job: job, UploadID: uuid.NewString()}

	data, err := os.ReadFile(job.Path)
	if err != nil {
		res.Err = fmt.Errorf("reading %s: %w", job.Path, err)
		p.logger.Error("upload failed", "path", job.Path, "error", res.Err)
		return res
	}
	res.Digest = dotdir.Digest(data)

	fileName := filepath.Base(job.Path)
	req := backend.UploadRequest{
		Collection: job.Collection,
		UserName:   job.UserName,
		Size:       job.Size,
		FileName:   fileName,
		CSV:        data,
		Transcript: job.Transcript,
	}

	final, err := p.config.Client.UploadVectors(ctx, req, func(progress backend.Progress) {
		if p.config.OnProgress != nil {
			p.config.OnProgress(job, progress)
		}

		event := eventstream.NewUploadProgressEvent(res.UploadID, job.Collection, job.UserName, fileName, eventstream.ProgressMeta{
			Status:     progress.Status,
			Processed:  progress.Processed,
			Total:      progress.Total,
			Percentage: progress.Percentage,
			Error:      progress.Error,
		})
		if err := p.config.Publisher.PublishProgress(ctx, event); err != nil {
			p.logger.Warn("failed to publish upload progress",
				"upload_id", res.UploadID,
				"error", err,
			)
		}
	})
	res.Final = final
	res.Err = err

	if err != nil {
		p.logger.Error("upload failed",
			"path", job.Path,
			"collection", job.Collection,
			"upload_id", res.UploadID,
			"error", err,
		)
		return res
	}

	p.logger.Info("upload completed",
		"path", job.Path,
		"collection", job.Collection,
		"upload_id", res.UploadID,
		"processed", final.Processed,
	)
	return res
}
