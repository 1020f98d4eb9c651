package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"time"

	"github.com/Jeffail/tunny"
	"github.com/dustin/go-humanize"

	"media-catalog/internal/catalog"
	"media-catalog/internal/contenthash"
	"media-catalog/internal/facedetect"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/formats"
	"media-catalog/internal/logging"
	"media-catalog/internal/media"
	"media-catalog/internal/memory"
	"media-catalog/internal/metadata"
	"media-catalog/internal/metrics"
	"media-catalog/internal/video"
	"media-catalog/internal/workers"
)

// Store is the catalog collaborator. Insert must reject a second row for the
// same content with catalog.ErrDuplicate.
type Store interface {
	FindByHash(ctx context.Context, hash contenthash.Hash) (*catalog.Entity, error)
	Insert(ctx context.Context, e catalog.NewEntity) (*catalog.Entity, error)
}

// MetadataExtractor reads capture metadata from a stored original.
type MetadataExtractor interface {
	Extract(ctx context.Context, path string, kind formats.FormatKind) (*metadata.CaptureMetadata, error)
}

// ProbeExtractor is implemented by extractors that can build video metadata
// from the ffprobe result the frame source already produced, so the file is
// only probed once.
type ProbeExtractor interface {
	ExtractProbe(path string, probe *video.ProbeResult) (*metadata.CaptureMetadata, error)
}

// RawSource develops camera raw files into pixels.
type RawSource interface {
	Develop(ctx context.Context, path string) (image.Image, error)
}

// FrameSource extracts the frame of a video used for its renditions.
type FrameSource interface {
	Snapshot(ctx context.Context, path string) (*image.RGBA, *video.ProbeResult, error)
}

// Options configures an Importer.
type Options struct {
	// DestDir receives originals, thumbnails and previews.
	DestDir string
	// Workers caps the files ImportPaths imports concurrently (0 = auto).
	Workers int
	// CPUWorkers sizes the pool that decodes and renders (0 = one per CPU).
	CPUWorkers int
	// FileTimeout bounds the copy to metadata stages of one file (0 = none).
	FileTimeout time.Duration

	Detector facedetect.Detector
	Metadata MetadataExtractor
	Frames   FrameSource
	Raw      RawSource
	Memory   *memory.Monitor

	// OnResult is called after every file, from the goroutine that imported it.
	OnResult func(Result)
}

// Importer runs the ingestion pipeline.
type Importer struct {
	store  Store
	opts   Options
	pool   *tunny.Pool
	stages []stage
}

type stage struct {
	name string
	// timed stages run under the per-file timeout
	timed bool
	run   func(ctx context.Context, j *job) error
}

type metaResult struct {
	meta *metadata.CaptureMetadata
	err  error
}

// job carries one file through the stages.
type job struct {
	path string
	// data holds uploaded content; nil for files read from path
	data []byte
	log  logging.FileLogger

	kind      formats.FormatKind
	size      int64
	hash      contenthash.Hash
	existing  *catalog.Entity
	artifacts ArtifactSet
	written   writtenFiles
	img       image.Image
	boxes     []facedetect.BoundingBox
	metaDone  <-chan metaResult
	meta      *metadata.CaptureMetadata
	entity    *catalog.Entity
}

// New creates an Importer. Close releases its worker pool.
func New(store Store, opts Options) *Importer {
	if opts.Detector == nil {
		opts.Detector = facedetect.None
	}
	if opts.Workers <= 0 {
		opts.Workers = workers.ForMixed(0, 0)
	}
	if opts.CPUWorkers <= 0 {
		opts.CPUWorkers = workers.ForCPU(0, 0)
	}

	im := &Importer{store: store, opts: opts}
	im.pool = tunny.NewFunc(opts.CPUWorkers, func(payload interface{}) interface{} {
		if err := payload.(func() error)(); err != nil {
			return err
		}
		return nil
	})
	im.stages = []stage{
		{name: StageClassify, run: im.classify},
		{name: StageHash, run: im.hashContent},
		{name: StageDedup, run: im.dedup},
		{name: StageCopy, timed: true, run: im.copyOriginal},
		{name: StageDecode, timed: true, run: im.decode},
		{name: StageDetect, timed: true, run: im.detect},
		{name: StageThumbnail, timed: true, run: im.renderThumbnail},
		{name: StagePreview, timed: true, run: im.renderPreview},
		{name: StageMetadata, timed: true, run: im.awaitMetadata},
		{name: StageEmit, run: im.emit},
	}

	logging.Debug("Importer: dest=%s workers=%d cpu=%d timeout=%v",
		opts.DestDir, opts.Workers, opts.CPUWorkers, opts.FileTimeout)
	return im
}

// Close stops the worker pool.
func (im *Importer) Close() {
	im.pool.Close()
}

// ImportFile imports the file at path.
func (im *Importer) ImportFile(ctx context.Context, path string) Result {
	return im.process(ctx, &job{path: path, log: logging.ForFile(path)})
}

// ImportBytes imports uploaded content. name supplies the format and the
// stored file name; only its base name is used.
func (im *Importer) ImportBytes(ctx context.Context, name string, data []byte) Result {
	if data == nil {
		data = []byte{}
	}
	return im.process(ctx, &job{path: name, data: data, log: logging.ForFile(name)})
}

func (im *Importer) process(ctx context.Context, j *job) Result {
	start := time.Now()
	metrics.IngestFilesInFlight.Inc()
	defer metrics.IngestFilesInFlight.Dec()

	failedStage, err := im.run(ctx, j)

	res := Result{
		Path:   j.path,
		Format: j.kind,
		Hash:   j.hash,
		Size:   j.size,
	}
	if j.kind != "" {
		res.Class = j.kind.Class()
	}

	switch {
	case err == nil:
		res.Outcome = Imported
		res.Artifacts = j.artifacts
		res.Metadata = j.meta
		res.EntityID = j.entity.ID
		metrics.IngestBytesTotal.Add(float64(j.size))
		j.log.Info("imported as entity %d (%s, %s)", j.entity.ID, j.hash.Short(), humanize.IBytes(uint64(j.size)))
	case errors.Is(err, ErrUnknownFormat):
		res.Outcome = Skipped
		res.Err = err
		j.log.Debug("skipped: %v", err)
	case errors.Is(err, ErrDuplicateContent):
		res.Outcome = AlreadyPresent
		if j.existing != nil {
			res.ExistingID = j.existing.ID
		}
		j.log.Info("already cataloged as entity %d", res.ExistingID)
	default:
		res.Outcome = Failed
		res.Stage = failedStage
		res.Err = &StageError{Stage: failedStage, Err: err}
		metrics.IngestStageFailures.WithLabelValues(failedStage).Inc()
		j.log.Warn("failed at %s: %v", failedStage, err)
	}

	if res.Outcome != Imported {
		if cerr := j.written.remove(j.log); cerr != nil {
			j.log.Error("failed to remove partial files: %v", cerr)
			if res.Err != nil {
				res.Err = errors.Join(res.Err, cerr)
			}
		}
	}

	class := string(res.Class)
	if class == "" {
		class = "unknown"
	}
	metrics.IngestFilesTotal.WithLabelValues(class, res.Outcome.String()).Inc()

	res.Duration = time.Since(start)
	if im.opts.OnResult != nil {
		im.opts.OnResult(res)
	}
	return res
}

// run executes the stages in order and stops at the first error.
func (im *Importer) run(ctx context.Context, j *job) (string, error) {
	timedCtx, cancel := ctx, context.CancelFunc(func() {})
	timerStarted := false
	defer func() { cancel() }()

	for _, s := range im.stages {
		stageCtx := ctx
		if s.timed {
			if !timerStarted && im.opts.FileTimeout > 0 {
				timedCtx, cancel = context.WithTimeout(ctx, im.opts.FileTimeout)
			}
			timerStarted = true
			stageCtx = timedCtx
		}

		if err := ctx.Err(); err != nil {
			return s.name, err
		}

		start := time.Now()
		err := s.run(stageCtx, j)
		metrics.IngestStageDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
		if err != nil {
			if errors.Is(stageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				err = fmt.Errorf("timed out after %v: %w", im.opts.FileTimeout, err)
			}
			return s.name, err
		}
		j.log.Debug("%s done in %v", s.name, time.Since(start))
	}
	return "", nil
}

// runCPU executes fn on the CPU pool.
func (im *Importer) runCPU(ctx context.Context, fn func() error) error {
	out, err := im.pool.ProcessCtx(ctx, fn)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return out.(error)
}

func (im *Importer) classify(_ context.Context, j *job) error {
	kind, ok := formats.Classify(j.path)
	if !ok {
		return ErrUnknownFormat
	}
	j.kind = kind
	return nil
}

func (im *Importer) hashContent(_ context.Context, j *job) error {
	if j.data != nil {
		j.size = int64(len(j.data))
		j.hash = contenthash.FromBytes(j.data)
		return nil
	}

	info, err := filesystem.StatWithRetry(j.path, filesystem.DefaultRetryConfig())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrIO, j.path)
	}
	j.size = info.Size()

	j.hash, err = contenthash.FromPath(j.path)
	return err
}

func (im *Importer) dedup(ctx context.Context, j *job) error {
	existing, err := im.store.FindByHash(ctx, j.hash)
	if err != nil {
		return fmt.Errorf("dedup lookup failed: %w", err)
	}
	if existing != nil {
		j.existing = existing
		return ErrDuplicateContent
	}
	return nil
}

func (im *Importer) copyOriginal(ctx context.Context, j *job) error {
	dst, set, err := reserveOriginal(im.opts.DestDir, j.path, j.hash)
	if err != nil {
		return err
	}
	j.written.add(set.OriginalPath)
	j.artifacts = set

	var src io.Reader
	if j.data != nil {
		src = bytes.NewReader(j.data)
	} else {
		f, err := filesystem.OpenWithRetry(j.path, filesystem.DefaultRetryConfig())
		if err != nil {
			_ = dst.Close()
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
		defer f.Close()
		src = f
	}

	if err := writeOriginal(dst, src); err != nil {
		return err
	}

	if !im.reusesProbe(j) {
		im.startMetadata(j, func(e MetadataExtractor, path string) (*metadata.CaptureMetadata, error) {
			return e.Extract(ctx, path, j.kind)
		})
	}
	return nil
}

// reusesProbe reports whether video metadata waits for the snapshot's probe.
func (im *Importer) reusesProbe(j *job) bool {
	if j.kind.Class() != formats.ClassVideo || im.opts.Frames == nil {
		return false
	}
	_, ok := im.opts.Metadata.(ProbeExtractor)
	return ok
}

// startMetadata extracts metadata alongside the rendering stages.
func (im *Importer) startMetadata(j *job, extract func(e MetadataExtractor, path string) (*metadata.CaptureMetadata, error)) {
	ch := make(chan metaResult, 1)
	j.metaDone = ch

	if im.opts.Metadata == nil {
		ch <- metaResult{err: fmt.Errorf("%w: no extractor configured", metadata.ErrUnavailable)}
		return
	}

	extractor, path := im.opts.Metadata, j.artifacts.OriginalPath
	go func() {
		m, err := extract(extractor, path)
		ch <- metaResult{meta: m, err: err}
	}()
}

func (im *Importer) decode(ctx context.Context, j *job) error {
	if err := im.opts.Memory.WaitIfPaused(ctx); err != nil {
		return err
	}

	path := j.artifacts.OriginalPath
	if j.kind.Class() == formats.ClassVideo {
		if im.opts.Frames == nil {
			return fmt.Errorf("%w: no video frame source configured", media.ErrDecode)
		}
		frame, probe, err := im.opts.Frames.Snapshot(ctx, path)
		if err != nil {
			return err
		}
		j.img = frame
		if im.reusesProbe(j) {
			im.startMetadata(j, func(e MetadataExtractor, path string) (*metadata.CaptureMetadata, error) {
				return e.(ProbeExtractor).ExtractProbe(path, probe)
			})
		}
		return nil
	}

	var img image.Image
	err := im.runCPU(ctx, func() error {
		var err error
		if j.kind.Class() == formats.ClassRawImage {
			img, err = im.develop(ctx, path)
		} else {
			img, err = media.Decode(path, j.kind)
		}
		return err
	})
	if err != nil {
		return err
	}
	j.img = img
	return nil
}

func (im *Importer) develop(ctx context.Context, path string) (image.Image, error) {
	if im.opts.Raw == nil {
		return nil, fmt.Errorf("%w: no raw developer configured", media.ErrDecode)
	}
	return im.opts.Raw.Develop(ctx, path)
}

func (im *Importer) detect(ctx context.Context, j *job) error {
	boxes, err := im.opts.Detector.Detect(ctx, j.img)
	if err != nil {
		return err
	}
	j.boxes = boxes
	j.log.Debug("detected %d faces", len(boxes))
	return nil
}

func (im *Importer) renderThumbnail(ctx context.Context, j *job) error {
	b := j.img.Bounds()
	plan := media.PlanCrop(b.Dx(), b.Dy(), j.boxes)
	j.log.Debug("thumbnail crop %s %+v", plan.Mode, plan.Region)

	img := j.img
	var data []byte
	err := im.runCPU(ctx, func() error {
		var err error
		data, err = media.EncodeJPEG(media.RenderThumbnail(img, plan))
		return err
	})
	if err != nil {
		return err
	}
	return im.writeDerivative(j, j.artifacts.ThumbnailPath, data)
}

func (im *Importer) renderPreview(ctx context.Context, j *job) error {
	img := j.img
	var data []byte
	err := im.runCPU(ctx, func() error {
		var err error
		data, err = media.EncodeJPEG(media.RenderPreview(img))
		return err
	})
	if err != nil {
		return err
	}
	// the decoded pixels are no longer needed
	j.img = nil
	return im.writeDerivative(j, j.artifacts.PreviewPath, data)
}

func (im *Importer) writeDerivative(j *job, path string, data []byte) error {
	j.written.add(path)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", ErrIO, path, err)
	}
	return nil
}

func (im *Importer) awaitMetadata(ctx context.Context, j *job) error {
	select {
	case r := <-j.metaDone:
		if r.err != nil {
			j.log.Debug("metadata unavailable: %v", r.err)
			return nil
		}
		j.meta = r.meta
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (im *Importer) emit(ctx context.Context, j *job) error {
	entity, err := im.store.Insert(ctx, catalog.NewEntity{
		Class:         j.kind.Class(),
		Format:        j.kind,
		OriginalPath:  j.artifacts.OriginalPath,
		ThumbnailPath: j.artifacts.ThumbnailPath,
		PreviewPath:   j.artifacts.PreviewPath,
		SizeBytes:     j.size,
		ContentHash:   j.hash,
		Metadata:      j.meta,
	})
	if errors.Is(err, catalog.ErrDuplicate) {
		// another worker stored the same content after our dedup check
		existing, ferr := im.store.FindByHash(ctx, j.hash)
		if ferr != nil {
			j.log.Warn("failed to look up existing entity: %v", ferr)
		}
		j.existing = existing
		return ErrDuplicateContent
	}
	if err != nil {
		return err
	}
	j.entity = entity
	return nil
}
