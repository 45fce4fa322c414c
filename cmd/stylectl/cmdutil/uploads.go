package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/papercomputeco/stylectl/pkg/backend"
	"github.com/papercomputeco/stylectl/pkg/cliui"
	"github.com/papercomputeco/stylectl/pkg/dotdir"
	"github.com/papercomputeco/stylectl/pkg/eventstream"
	"github.com/papercomputeco/stylectl/pkg/uploader"
)

// ErrAlreadyUploaded is returned by Submit for a file whose current bytes
// were already embedded into the same collection.
var ErrAlreadyUploaded = errors.New("already uploaded")

// ErrUploadInProgress is returned by Submit for a file that is already queued
// or uploading into the same collection in this session.
var ErrUploadInProgress = fmt.Errorf("%w: upload in progress", ErrAlreadyUploaded)

// UploadSessionConfig configures an UploadSession.
type UploadSessionConfig struct {
	Client    uploader.Uploader
	Publisher eventstream.Publisher
	Workers   uint
	QueueSize uint

	// ConfigDir is the dot dir override holding the upload journal.
	ConfigDir string

	// Force uploads files the journal already records as completed.
	Force bool

	// Out receives progress output.
	Out io.Writer

	Context context.Context
	Logger  *slog.Logger
}

// UploadSummary counts the outcomes of a session.
type UploadSummary struct {
	Completed int
	Failed    int
	Skipped   int
}

// UploadSession runs uploads through a worker pool, draws one progress
// display per file and records every outcome in the upload journal.
type UploadSession struct {
	cfg         UploadSessionConfig
	pool        *uploader.Pool
	results     chan uploader.Result
	done        chan struct{}
	manager     *dotdir.Manager
	interactive bool

	mu       sync.Mutex
	journal  *dotdir.UploadJournal
	displays map[uploadKey]*cliui.Progress
	summary  UploadSummary
}

// uploadKey identifies a queued or running upload. The display map doubles as
// the in-flight set.
type uploadKey struct {
	path       string
	collection string
}

func keyOf(job uploader.Job) uploadKey {
	return uploadKey{path: job.Path, collection: job.Collection}
}

// NewUploadSession loads the journal and starts the pool.
func NewUploadSession(cfg UploadSessionConfig) (*UploadSession, error) {
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}

	manager := dotdir.NewManager()
	journal, err := manager.LoadUploads(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading upload journal: %w", err)
	}

	s := &UploadSession{
		cfg:     cfg,
		results: make(chan uploader.Result),
		done:    make(chan struct{}),
		manager: manager,
		journal: journal,

		// Concurrent bars would overwrite each other's line.
		interactive: cliui.IsTerminal(cfg.Out) && cfg.Workers == 1,
		displays:    map[uploadKey]*cliui.Progress{},
	}

	s.pool, err = uploader.NewPool(&uploader.Config{
		Client:     cfg.Client,
		Publisher:  cfg.Publisher,
		NumWorkers: cfg.Workers,
		QueueSize:  cfg.QueueSize,
		Results:    s.results,
		OnProgress: s.onProgress,
		Context:    cfg.Context,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	go s.consume()
	return s, nil
}

// Submit queues job, resolving its path to an absolute one. It returns
// ErrAlreadyUploaded when the journal shows the same bytes completed into
// the same collection, unless the session forces uploads, and
// ErrUploadInProgress when the file is already queued for that collection.
func (s *UploadSession) Submit(job uploader.Job) error {
	abs, err := filepath.Abs(job.Path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", job.Path, err)
	}
	job.Path = abs

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("reading %s: %w", abs, err)
	}

	key := keyOf(job)

	s.mu.Lock()
	if _, queued := s.displays[key]; queued {
		s.summary.Skipped++
		s.mu.Unlock()
		return ErrUploadInProgress
	}
	if !s.cfg.Force && s.journal.Uploaded(abs, job.Collection, dotdir.Digest(data)) {
		s.summary.Skipped++
		s.mu.Unlock()
		return ErrAlreadyUploaded
	}
	s.displays[key] = cliui.NewProgress(s.cfg.Out, filepath.Base(abs), s.interactive)
	s.mu.Unlock()

	if !s.pool.Enqueue(job) {
		s.mu.Lock()
		delete(s.displays, key)
		s.mu.Unlock()
		return fmt.Errorf("upload queue full, dropped %s", abs)
	}
	return nil
}

// Close waits for queued uploads and returns the summary. The error is
// non-nil when any upload failed.
func (s *UploadSession) Close() (UploadSummary, error) {
	s.pool.Close()
	close(s.results)
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary.Failed > 0 {
		return s.summary, fmt.Errorf("%d of %d uploads failed", s.summary.Failed, s.summary.Failed+s.summary.Completed)
	}
	return s.summary, nil
}

func (s *UploadSession) onProgress(job uploader.Job, progress backend.Progress) {
	s.mu.Lock()
	display := s.displays[keyOf(job)]
	s.mu.Unlock()

	if display != nil {
		display.Update(progress.Fraction(), progress.Processed, progress.Total)
	}
}

// consume is the only writer of the journal file.
func (s *UploadSession) consume() {
	defer close(s.done)

	for res := range s.results {
		s.record(res)
	}
}

func (s *UploadSession) record(res uploader.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyOf(res.Job)
	display := s.displays[key]
	delete(s.displays, key)

	if res.Err != nil {
		s.summary.Failed++
	} else {
		s.summary.Completed++
	}

	if display != nil {
		display.Done(res.Err, resultDetail(res))
	}

	if res.Digest == "" {
		return
	}

	rec := dotdir.UploadRecord{
		Path:       res.Job.Path,
		Digest:     res.Digest,
		Collection: res.Job.Collection,
		UserName:   res.Job.UserName,
		Status:     backend.StatusError,
		UploadedAt: time.Now().UTC(),
	}
	if res.Final != nil {
		rec.Processed = res.Final.Processed
		rec.Total = res.Final.Total
		if res.Err == nil {
			rec.Status = res.Final.Status
		}
	}
	s.journal.Record(rec)

	if err := s.manager.SaveUploads(s.journal, s.cfg.ConfigDir); err != nil && s.cfg.Logger != nil {
		s.cfg.Logger.Warn("failed to save upload journal", "error", err)
	}
}

func resultDetail(res uploader.Result) string {
	if res.Err != nil {
		return res.Err.Error()
	}
	if res.Final == nil {
		return ""
	}
	return fmt.Sprintf("%d/%d into %s", res.Final.Processed, res.Final.Total, res.Job.Collection)
}
