package variantlib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/afero"
)

// DefChunkSize is the default transfer chunk size in bytes.
const DefChunkSize = 256 * 1024

// ErrSourceSizeInvalid is returned when a source reports a non-positive
// total size; percent cannot be computed without one.
var ErrSourceSizeInvalid = errors.New("source reports an invalid total size")

// Source is the byte-transport delegate. The executor only needs
// open/read/close semantics and a total size for percent computation;
// the actual transport protocol lives behind this interface.
type Source interface {
	// Open prepares the source and returns the total size in bytes.
	Open(ctx context.Context) (int64, error)
	// Read fills p with the next chunk, io.Reader semantics.
	Read(p []byte) (int, error)
	// Close releases the source. Safe after a failed Open.
	Close() error
}

// SourceOpener resolves a content id to a transfer Source.
type SourceOpener func(contentID string) (Source, error)

// ContentInfo is the catalog data the executor folds into events.
type ContentInfo struct {
	Name        string
	DownloadURL string
}

// ContentInfoFunc resolves a content id to its event metadata.
type ContentInfoFunc func(contentID string) (ContentInfo, error)

// FileSource reads a variant payload from a filesystem.
type FileSource struct {
	fs   afero.Fs
	path string
	f    afero.File
	size int64
}

// NewFileSource creates a Source over the given filesystem path.
func NewFileSource(fs afero.Fs, path string) *FileSource {
	return &FileSource{fs: fs, path: path}
}

func (s *FileSource) Open(_ context.Context) (int64, error) {
	fi, err := s.fs.Stat(s.path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", s.path, err)
	}
	s.f, err = s.fs.Open(s.path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", s.path, err)
	}
	s.size = fi.Size()
	return s.size, nil
}

func (s *FileSource) Read(p []byte) (int, error) {
	return s.f.Read(p)
}

func (s *FileSource) Close() error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}

// ExecutorConfig wires an Executor's collaborators.
type ExecutorConfig struct {
	Store     *JobStore
	Ledger    Ledger
	Events    EventSink       // nil means events are dropped
	Open      SourceOpener
	Info      ContentInfoFunc // nil means events carry no catalog data
	Retry     RetryConfig
	ChunkSize int
	Handlers  *Handlers
	Log       *log.Logger
}

// Executor runs admitted download jobs: it streams the source in fixed
// chunks, keeps the job's percent current, emits progress events and
// writes the terminal outcome to the history ledger. On transient
// failure it re-enqueues the job under the retry policy.
type Executor struct {
	store     *JobStore
	ledger    Ledger
	events    EventSink
	open      SourceOpener
	info      ContentInfoFunc
	retry     RetryConfig
	chunkSize int
	handlers  Handlers
	log       *log.Logger
	infoCache *VMap[string, ContentInfo]
}

func NewExecutor(cfg ExecutorConfig) *Executor {
	e := &Executor{
		store:     cfg.Store,
		ledger:    cfg.Ledger,
		events:    cfg.Events,
		open:      cfg.Open,
		info:      cfg.Info,
		retry:     cfg.Retry,
		chunkSize: cfg.ChunkSize,
		log:       cfg.Log,
		infoCache: NewVMap[string, ContentInfo](),
	}
	if e.events == nil {
		e.events = nopSink{}
	}
	if e.chunkSize <= 0 {
		e.chunkSize = DefChunkSize
	}
	if cfg.Handlers != nil {
		e.handlers = *cfg.Handlers
	}
	e.handlers.setDefault(cfg.Log)
	return e
}

// Run executes one admitted job until a terminal state or a requeue.
// The job must already be in_progress; Run owns its lifecycle from
// there.
func (e *Executor) Run(ctx context.Context, job DownloadJob) {
	info := e.contentInfo(job.ContentID)

	err := e.transfer(ctx, job, info)
	if err == nil {
		e.store.Complete(job.ID)
		e.appendHistory(job, true)
		e.emit(job, info, StatusSuccess, 100)
		e.handlers.CompleteHandler(job.ID)
		return
	}

	attempts, ok := e.store.Fail(job.ID)
	if !ok {
		// Job vanished under us; nothing left to report on.
		return
	}
	canceled := errors.Is(err, ErrJobCanceled)
	if !canceled {
		e.appendHistory(job, false)
	}

	snap, _ := e.store.Get(job.ID)
	e.emit(job, info, StatusFailed, snap.Percent)

	if !canceled && e.retry.ShouldRetry(attempts, err) {
		if werr := e.retry.WaitForRetry(ctx, attempts); werr == nil && e.store.Requeue(job.ID) {
			e.handlers.RequeuedHandler(job.ID, attempts)
			return
		}
	}

	e.store.Release(job.ID)
	e.handlers.FailedHandler(job.ID, err)
}

// transfer streams the source in fixed-size chunks, updating percent and
// emitting a progress event after each chunk. Cancellation is checked
// between chunks so an in-flight transfer stops promptly.
func (e *Executor) transfer(ctx context.Context, job DownloadJob, info ContentInfo) error {
	src, err := e.open(job.ContentID)
	if err != nil {
		return fmt.Errorf("opening source for %s: %w", job.ContentID, err)
	}
	defer src.Close()

	total, err := src.Open(ctx)
	if err != nil {
		return err
	}
	if total <= 0 {
		return ErrSourceSizeInvalid
	}

	e.emit(job, info, StatusInProgress, 0)

	buf := make([]byte, e.chunkSize)
	var sent int64
	for {
		if e.store.IsCanceled(job.ID) {
			return ErrJobCanceled
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			sent += int64(n)
			percent := int(sent * 100 / total)
			e.store.SetProgress(job.ID, percent)
			e.handlers.ProgressHandler(job.ID, percent)
			e.emit(job, info, StatusInProgress, percent)
		}
		if rerr == io.EOF {
			if sent >= total {
				return nil
			}
			return io.ErrUnexpectedEOF
		}
		if rerr != nil {
			return rerr
		}
	}
}

func (e *Executor) emit(job DownloadJob, info ContentInfo, status JobStatus, percent int) {
	e.events.Publish(job.ClientID, Event{
		JobID:       job.ID,
		Status:      status,
		Percent:     percent,
		ContentID:   job.ContentID,
		ContentName: info.Name,
		DownloadURL: info.DownloadURL,
	})
}

func (e *Executor) appendHistory(job DownloadJob, success bool) {
	err := e.ledger.Append(HistoryRecord{
		ContentID: job.ContentID,
		ClientID:  job.ClientID,
		Success:   success,
		Timestamp: time.Now(),
	})
	if err != nil {
		vlog(e.log, "%s: ledger append: %s", job.ID, err.Error())
	}
}

func (e *Executor) contentInfo(contentID string) ContentInfo {
	if cached, ok := e.infoCache.Get(contentID); ok {
		return cached
	}
	if e.info == nil {
		return ContentInfo{}
	}
	info, err := e.info(contentID)
	if err != nil {
		vlog(e.log, "content info for %s: %s", contentID, err.Error())
		return ContentInfo{}
	}
	e.infoCache.Set(contentID, info)
	return info
}
