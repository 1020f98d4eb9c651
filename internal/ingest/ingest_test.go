package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"media-catalog/internal/catalog"
	"media-catalog/internal/contenthash"
	"media-catalog/internal/facedetect"
	"media-catalog/internal/formats"
	"media-catalog/internal/media"
	"media-catalog/internal/metadata"
	"media-catalog/internal/metadata/exiftest"
	"media-catalog/internal/video"
)

// memStore is an in-memory Store with the same duplicate semantics as the
// sqlite catalog.
type memStore struct {
	mu     sync.Mutex
	byHash map[contenthash.Hash]*catalog.Entity
	nextID int64
}

func newMemStore() *memStore {
	return &memStore{byHash: make(map[contenthash.Hash]*catalog.Entity)}
}

func (s *memStore) FindByHash(_ context.Context, hash contenthash.Hash) (*catalog.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byHash[hash], nil
}

func (s *memStore) Insert(_ context.Context, e catalog.NewEntity) (*catalog.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[e.ContentHash]; ok {
		return nil, catalog.ErrDuplicate
	}
	s.nextID++
	entity := &catalog.Entity{
		ID:            s.nextID,
		Class:         e.Class,
		Format:        e.Format,
		OriginalPath:  e.OriginalPath,
		ThumbnailPath: e.ThumbnailPath,
		PreviewPath:   e.PreviewPath,
		SizeBytes:     e.SizeBytes,
		ContentHash:   e.ContentHash,
		Metadata:      e.Metadata,
	}
	s.byHash[e.ContentHash] = entity
	return entity, nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash)
}

// racingStore misses the dedup lookup and then loses the insert, as if
// another worker stored the same content in between.
type racingStore struct {
	mu      sync.Mutex
	lookups int
	winner  *catalog.Entity
}

func (s *racingStore) FindByHash(context.Context, contenthash.Hash) (*catalog.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.lookups == 1 {
		return nil, nil
	}
	return s.winner, nil
}

func (s *racingStore) Insert(context.Context, catalog.NewEntity) (*catalog.Entity, error) {
	return nil, catalog.ErrDuplicate
}

type metadataFunc func(ctx context.Context, path string, kind formats.FormatKind) (*metadata.CaptureMetadata, error)

func (f metadataFunc) Extract(ctx context.Context, path string, kind formats.FormatKind) (*metadata.CaptureMetadata, error) {
	return f(ctx, path, kind)
}

type fakeFrames struct {
	frame *image.RGBA
	probe *video.ProbeResult
	calls int
}

func (f *fakeFrames) Snapshot(context.Context, string) (*image.RGBA, *video.ProbeResult, error) {
	f.calls++
	if f.probe == nil {
		return f.frame, &video.ProbeResult{}, nil
	}
	return f.frame, f.probe, nil
}

// snapshotExtractor builds video metadata only from the snapshot's ffprobe result.
type snapshotExtractor struct {
	t     *testing.T
	probe *video.ProbeResult
}

func (p *snapshotExtractor) Extract(_ context.Context, path string, _ formats.FormatKind) (*metadata.CaptureMetadata, error) {
	p.t.Errorf("Extract(%s) called, want the snapshot probe reused", path)
	return nil, metadata.ErrUnavailable
}

func (p *snapshotExtractor) ExtractProbe(path string, probe *video.ProbeResult) (*metadata.CaptureMetadata, error) {
	p.probe = probe
	return metadata.FromProbe(path, probe)
}

type fakeRaw struct {
	img   image.Image
	err   error
	paths []string
}

func (f *fakeRaw) Develop(_ context.Context, path string) (image.Image, error) {
	f.paths = append(f.paths, path)
	return f.img, f.err
}

func solidJPEG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func newImporter(t *testing.T, store Store, opts Options) *Importer {
	t.Helper()
	if opts.DestDir == "" {
		opts.DestDir = t.TempDir()
	}
	if opts.Metadata == nil {
		opts.Metadata = metadata.NewExtractor(nil, nil, nil)
	}
	im := New(store, opts)
	t.Cleanup(im.Close)
	return im
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func jpegSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return cfg.Width, cfg.Height
}

func TestImportFileRotatedPhotoWithLocation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full size photo in short mode")
	}

	data, err := exiftest.JPEG(4000, 3000,
		exiftest.Tag{IFD: exiftest.IFD0, Name: "Orientation", Value: []uint16{6}},
		exiftest.Tag{IFD: exiftest.GPS, Name: "GPSLatitudeRef", Value: "N"},
		exiftest.Tag{IFD: exiftest.GPS, Name: "GPSLatitude", Value: exiftest.DMS(59, 0, 0)},
		exiftest.Tag{IFD: exiftest.GPS, Name: "GPSLongitudeRef", Value: "E"},
		exiftest.Tag{IFD: exiftest.GPS, Name: "GPSLongitude", Value: exiftest.DMS(18, 0, 0)},
	)
	if err != nil {
		t.Fatalf("failed to build photo: %v", err)
	}
	src := writeFile(t, t.TempDir(), "IMG_0001.jpg", data)

	var detected image.Rectangle
	store := newMemStore()
	im := newImporter(t, store, Options{
		Detector: facedetect.DetectorFunc(func(_ context.Context, img image.Image) ([]facedetect.BoundingBox, error) {
			detected = img.Bounds()
			return nil, nil
		}),
	})

	res := im.ImportFile(context.Background(), src)
	if res.Outcome != Imported {
		t.Fatalf("outcome = %v (%v), want imported", res.Outcome, res.Err)
	}
	if detected.Dx() != 3000 || detected.Dy() != 4000 {
		t.Errorf("detector saw %dx%d, want 3000x4000", detected.Dx(), detected.Dy())
	}
	if w, h := jpegSize(t, res.Artifacts.ThumbnailPath); w != 300 || h != 200 {
		t.Errorf("thumbnail = %dx%d, want 300x200", w, h)
	}
	if w, h := jpegSize(t, res.Artifacts.PreviewPath); w != 1620 || h != 2160 {
		t.Errorf("preview = %dx%d, want 1620x2160", w, h)
	}
	if res.Metadata == nil || res.Metadata.Location == nil {
		t.Fatalf("expected location metadata, got %+v", res.Metadata)
	}
	if math.Abs(res.Metadata.Location.Latitude-59.0) > 1e-6 {
		t.Errorf("latitude = %v, want 59.0", res.Metadata.Location.Latitude)
	}
	if res.Class != formats.ClassImage || res.Format != formats.JPEG {
		t.Errorf("class/format = %s/%s", res.Class, res.Format)
	}
	if res.EntityID == 0 || store.len() != 1 {
		t.Errorf("entity not stored: id=%d rows=%d", res.EntityID, store.len())
	}
}

func TestImportFileArtifactNames(t *testing.T) {
	src := writeFile(t, t.TempDir(), "beach.jpg", solidJPEG(t, 60, 40, color.White))
	dest := t.TempDir()
	im := newImporter(t, newMemStore(), Options{DestDir: dest})

	res := im.ImportFile(context.Background(), src)
	if res.Outcome != Imported {
		t.Fatalf("outcome = %v (%v), want imported", res.Outcome, res.Err)
	}

	want := ArtifactSet{
		OriginalPath:  filepath.Join(dest, "beach.jpg"),
		ThumbnailPath: filepath.Join(dest, "beach_thumbnail.jpg"),
		PreviewPath:   filepath.Join(dest, "beach_preview.jpg"),
	}
	if res.Artifacts != want {
		t.Errorf("artifacts = %+v, want %+v", res.Artifacts, want)
	}

	original, err := os.ReadFile(want.OriginalPath)
	if err != nil {
		t.Fatalf("read original: %v", err)
	}
	source, _ := os.ReadFile(src)
	if !bytes.Equal(original, source) {
		t.Error("copied original differs from source")
	}
	// small photos are not resampled for the preview
	if w, h := jpegSize(t, want.PreviewPath); w != 60 || h != 40 {
		t.Errorf("preview = %dx%d, want 60x40", w, h)
	}
}

func TestImportFileIsIdempotent(t *testing.T) {
	src := writeFile(t, t.TempDir(), "a.jpg", solidJPEG(t, 30, 20, color.Black))
	dest := t.TempDir()
	store := newMemStore()
	im := newImporter(t, store, Options{DestDir: dest})

	first := im.ImportFile(context.Background(), src)
	if first.Outcome != Imported {
		t.Fatalf("first outcome = %v (%v)", first.Outcome, first.Err)
	}
	before := listDir(t, dest)

	second := im.ImportFile(context.Background(), src)
	if second.Outcome != AlreadyPresent {
		t.Fatalf("second outcome = %v (%v), want already_present", second.Outcome, second.Err)
	}
	if second.ExistingID != first.EntityID {
		t.Errorf("existing id = %d, want %d", second.ExistingID, first.EntityID)
	}
	if second.Hash != first.Hash {
		t.Error("hash changed between imports")
	}
	if after := listDir(t, dest); len(after) != len(before) {
		t.Errorf("destination changed: %v -> %v", before, after)
	}
	if store.len() != 1 {
		t.Errorf("rows = %d, want 1", store.len())
	}
}

func TestImportPathsDuplicateContentInBatch(t *testing.T) {
	src := t.TempDir()
	data := solidJPEG(t, 30, 20, color.Gray{Y: 128})
	writeFile(t, src, "one.jpg", data)
	writeFile(t, src, "nested/two.jpg", data)
	dest := t.TempDir()

	for _, workers := range []int{1, 4} {
		dir := filepath.Join(dest, fmt.Sprintf("workers-%d", workers))
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		im := newImporter(t, newMemStore(), Options{DestDir: dir, Workers: workers})

		summary, results := im.ImportPaths(context.Background(), []string{src})
		if summary.Total != 2 || summary.Imported != 1 || summary.AlreadyPresent != 1 {
			t.Fatalf("workers=%d: summary = %+v", workers, summary)
		}

		var imported, present Result
		for _, r := range results {
			switch r.Outcome {
			case Imported:
				imported = r
			case AlreadyPresent:
				present = r
			}
		}
		if present.ExistingID != imported.EntityID {
			t.Errorf("workers=%d: already present refers to %d, want %d", workers, present.ExistingID, imported.EntityID)
		}
		if files := listDir(t, dir); len(files) != 3 {
			t.Errorf("workers=%d: destination holds %v, want one entity", workers, files)
		}
		if summary.RunID == "" {
			t.Error("missing run id")
		}
	}
}

func TestImportUnknownFormatIsSkipped(t *testing.T) {
	src := writeFile(t, t.TempDir(), "notes.txt", []byte("hello"))
	dest := t.TempDir()
	im := newImporter(t, newMemStore(), Options{DestDir: dest})

	res := im.ImportFile(context.Background(), src)
	if res.Outcome != Skipped {
		t.Fatalf("outcome = %v, want skipped", res.Outcome)
	}
	if !errors.Is(res.Err, ErrUnknownFormat) {
		t.Errorf("err = %v, want ErrUnknownFormat", res.Err)
	}
	if files := listDir(t, dest); len(files) != 0 {
		t.Errorf("destination not empty: %v", files)
	}
}

func TestImportDotFileIsSkipped(t *testing.T) {
	dest := t.TempDir()
	im := newImporter(t, newMemStore(), Options{DestDir: dest})

	src := writeFile(t, t.TempDir(), ".jpg", solidJPEG(t, 30, 20, color.White))
	for _, res := range []Result{
		im.ImportFile(context.Background(), src),
		im.ImportBytes(context.Background(), ".jpg", solidJPEG(t, 30, 20, color.Black)),
	} {
		if res.Outcome != Skipped || !errors.Is(res.Err, ErrUnknownFormat) {
			t.Errorf("%s: outcome = %v (%v), want skipped as unknown format", res.Path, res.Outcome, res.Err)
		}
	}
	if files := listDir(t, dest); len(files) != 0 {
		t.Errorf("destination not empty: %v", files)
	}
}

func TestImportMissingFileFailsAtHash(t *testing.T) {
	im := newImporter(t, newMemStore(), Options{})

	res := im.ImportFile(context.Background(), filepath.Join(t.TempDir(), "gone.jpg"))
	if res.Outcome != Failed || res.Stage != StageHash {
		t.Fatalf("outcome = %v at %q, want failed at hash", res.Outcome, res.Stage)
	}
	if !errors.Is(res.Err, ErrIO) {
		t.Errorf("err = %v, want ErrIO", res.Err)
	}
	var se *StageError
	if !errors.As(res.Err, &se) || se.Stage != StageHash {
		t.Errorf("err = %v, want StageError at hash", res.Err)
	}
}

func TestImportFailureRemovesWrittenFiles(t *testing.T) {
	tests := []struct {
		name     string
		stage    string
		detector facedetect.Detector
		data     []byte
		wantErr  error
	}{
		{
			name:  "detector failure",
			stage: StageDetect,
			detector: facedetect.DetectorFunc(func(context.Context, image.Image) ([]facedetect.BoundingBox, error) {
				return nil, facedetect.ErrDetection
			}),
			wantErr: facedetect.ErrDetection,
		},
		{
			name:  "corrupt image",
			stage: StageDecode,
			data:  []byte("not really a jpeg"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data
			if data == nil {
				data = solidJPEG(t, 30, 20, color.White)
			}
			src := writeFile(t, t.TempDir(), "x.jpg", data)
			dest := t.TempDir()
			store := newMemStore()
			im := newImporter(t, store, Options{DestDir: dest, Detector: tt.detector})

			res := im.ImportFile(context.Background(), src)
			if res.Outcome != Failed || res.Stage != tt.stage {
				t.Fatalf("outcome = %v at %q (%v), want failed at %s", res.Outcome, res.Stage, res.Err, tt.stage)
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("err = %v, want %v", res.Err, tt.wantErr)
			}
			if files := listDir(t, dest); len(files) != 0 {
				t.Errorf("partial files left behind: %v", files)
			}
			if store.len() != 0 {
				t.Error("failed import reached the store")
			}
		})
	}
}

func TestImportTimeoutRemovesWrittenFiles(t *testing.T) {
	src := writeFile(t, t.TempDir(), "slow.jpg", solidJPEG(t, 30, 20, color.White))
	dest := t.TempDir()
	im := newImporter(t, newMemStore(), Options{
		DestDir:     dest,
		FileTimeout: 50 * time.Millisecond,
		Detector: facedetect.DetectorFunc(func(ctx context.Context, _ image.Image) ([]facedetect.BoundingBox, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	})

	res := im.ImportFile(context.Background(), src)
	if res.Outcome != Failed || res.Stage != StageDetect {
		t.Fatalf("outcome = %v at %q (%v), want failed at detect", res.Outcome, res.Stage, res.Err)
	}
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", res.Err)
	}
	if files := listDir(t, dest); len(files) != 0 {
		t.Errorf("partial files left behind: %v", files)
	}
}

func TestImportInsertRaceReportsAlreadyPresent(t *testing.T) {
	src := writeFile(t, t.TempDir(), "race.jpg", solidJPEG(t, 30, 20, color.White))
	dest := t.TempDir()
	store := &racingStore{winner: &catalog.Entity{ID: 42}}
	im := newImporter(t, store, Options{DestDir: dest})

	res := im.ImportFile(context.Background(), src)
	if res.Outcome != AlreadyPresent {
		t.Fatalf("outcome = %v (%v), want already_present", res.Outcome, res.Err)
	}
	if res.ExistingID != 42 {
		t.Errorf("existing id = %d, want 42", res.ExistingID)
	}
	if files := listDir(t, dest); len(files) != 0 {
		t.Errorf("derivatives of the losing insert left behind: %v", files)
	}
}

func TestImportBytesNameCollision(t *testing.T) {
	dest := t.TempDir()
	im := newImporter(t, newMemStore(), Options{DestDir: dest})

	first := im.ImportBytes(context.Background(), "upload.jpg", solidJPEG(t, 30, 20, color.White))
	if first.Outcome != Imported {
		t.Fatalf("first outcome = %v (%v)", first.Outcome, first.Err)
	}

	data := solidJPEG(t, 30, 20, color.Black)
	second := im.ImportBytes(context.Background(), "../elsewhere/upload.jpg", data)
	if second.Outcome != Imported {
		t.Fatalf("second outcome = %v (%v)", second.Outcome, second.Err)
	}

	stem := "upload-" + contenthash.FromBytes(data).Short()
	want := ArtifactSet{
		OriginalPath:  filepath.Join(dest, stem+".jpg"),
		ThumbnailPath: filepath.Join(dest, stem+"_thumbnail.jpg"),
		PreviewPath:   filepath.Join(dest, stem+"_preview.jpg"),
	}
	if second.Artifacts != want {
		t.Errorf("artifacts = %+v, want %+v", second.Artifacts, want)
	}
	if second.Size != int64(len(data)) {
		t.Errorf("size = %d, want %d", second.Size, len(data))
	}
}

func TestImportVideoUsesSnapshot(t *testing.T) {
	src := writeFile(t, t.TempDir(), "clip.mp4", []byte("fake video container"))
	frames := &fakeFrames{frame: exiftest.Marker(64, 36)}

	var seen image.Rectangle
	im := newImporter(t, newMemStore(), Options{
		Frames: frames,
		Metadata: metadataFunc(func(context.Context, string, formats.FormatKind) (*metadata.CaptureMetadata, error) {
			return &metadata.CaptureMetadata{Width: 64, Height: 36, Video: &metadata.VideoFields{}}, nil
		}),
		Detector: facedetect.DetectorFunc(func(_ context.Context, img image.Image) ([]facedetect.BoundingBox, error) {
			seen = img.Bounds()
			return nil, nil
		}),
	})

	res := im.ImportFile(context.Background(), src)
	if res.Outcome != Imported {
		t.Fatalf("outcome = %v (%v), want imported", res.Outcome, res.Err)
	}
	if frames.calls != 1 {
		t.Errorf("snapshot calls = %d, want 1", frames.calls)
	}
	if seen.Dx() != 64 || seen.Dy() != 36 {
		t.Errorf("detector saw %v, want the snapshot frame", seen)
	}
	if res.Class != formats.ClassVideo || res.Metadata == nil || res.Metadata.Video == nil {
		t.Errorf("unexpected result %+v", res)
	}
	if w, h := jpegSize(t, res.Artifacts.ThumbnailPath); w != 300 || h != 200 {
		t.Errorf("thumbnail = %dx%d, want 300x200", w, h)
	}
}

func TestImportVideoInspectedOnce(t *testing.T) {
	src := writeFile(t, t.TempDir(), "clip.mov", []byte("fake video container"))
	probe := &video.ProbeResult{
		Streams: []video.Stream{{CodecType: "video", Width: 1280, Height: 720}},
		Format:  video.Format{Duration: "4.2"},
	}
	frames := &fakeFrames{frame: exiftest.Marker(64, 36), probe: probe}
	extractor := &snapshotExtractor{t: t}

	im := newImporter(t, newMemStore(), Options{Frames: frames, Metadata: extractor})

	res := im.ImportFile(context.Background(), src)
	if res.Outcome != Imported {
		t.Fatalf("outcome = %v (%v), want imported", res.Outcome, res.Err)
	}
	if extractor.probe != probe {
		t.Error("metadata should be built from the snapshot probe result")
	}
	if res.Metadata == nil || res.Metadata.Width != 1280 || res.Metadata.Video == nil || res.Metadata.Video.Duration != 4.2 {
		t.Errorf("metadata = %+v, want 1280 wide with a 4.2s duration", res.Metadata)
	}
}

// photoExtractor offers both entry points; photos must only use Extract.
type photoExtractor struct {
	metadataFunc
	t *testing.T
}

func (p photoExtractor) ExtractProbe(path string, _ *video.ProbeResult) (*metadata.CaptureMetadata, error) {
	p.t.Errorf("ExtractProbe(%s) called for a photo", path)
	return nil, metadata.ErrUnavailable
}

func TestImportPhotoUsesExtract(t *testing.T) {
	src := writeFile(t, t.TempDir(), "p.jpg", solidJPEG(t, 30, 20, color.White))

	called := false
	frames := &fakeFrames{}
	im := newImporter(t, newMemStore(), Options{
		Frames: frames,
		Metadata: photoExtractor{t: t, metadataFunc: func(_ context.Context, _ string, kind formats.FormatKind) (*metadata.CaptureMetadata, error) {
			called = kind == formats.JPEG
			return &metadata.CaptureMetadata{Width: 30, Height: 20}, nil
		}},
	})

	res := im.ImportFile(context.Background(), src)
	if res.Outcome != Imported {
		t.Fatalf("outcome = %v (%v), want imported", res.Outcome, res.Err)
	}
	if !called {
		t.Error("photo metadata should come from Extract")
	}
	if frames.calls != 0 {
		t.Errorf("snapshot calls = %d, want 0 for a photo", frames.calls)
	}
	if res.Metadata == nil || res.Metadata.Width != 30 {
		t.Errorf("metadata = %+v, want the extracted 30x20", res.Metadata)
	}
}

func TestImportRawUsesDeveloper(t *testing.T) {
	// the preview in the container must not be what gets rendered
	src := writeFile(t, t.TempDir(), "DSC_0001.NEF", []byte("II*\x00raw sensor data"))
	raw := &fakeRaw{img: exiftest.Marker(600, 400)}

	im := newImporter(t, newMemStore(), Options{Raw: raw})

	res := im.ImportFile(context.Background(), src)
	if res.Outcome != Imported {
		t.Fatalf("outcome = %v (%v), want imported", res.Outcome, res.Err)
	}
	if len(raw.paths) != 1 || raw.paths[0] != res.Artifacts.OriginalPath {
		t.Errorf("developed %v, want the stored original %s", raw.paths, res.Artifacts.OriginalPath)
	}
	if res.Class != formats.ClassRawImage {
		t.Errorf("class = %v, want raw image", res.Class)
	}
	if w, h := jpegSize(t, res.Artifacts.PreviewPath); w != 600 || h != 400 {
		t.Errorf("preview = %dx%d, want the developed 600x400", w, h)
	}
}

func TestImportRawDecodeFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  RawSource
	}{
		{name: "no developer"},
		{name: "developer error", raw: &fakeRaw{err: fmt.Errorf("%w: raw developer error: exit status 1", media.ErrDecode)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := writeFile(t, t.TempDir(), "IMG_0001.CR2", []byte("II*\x00raw sensor data"))
			dest := t.TempDir()
			im := newImporter(t, newMemStore(), Options{DestDir: dest, Raw: tt.raw})

			res := im.ImportFile(context.Background(), src)
			if res.Outcome != Failed || res.Stage != StageDecode {
				t.Fatalf("outcome = %v at %q, want failed at decode", res.Outcome, res.Stage)
			}
			if !errors.Is(res.Err, media.ErrDecode) {
				t.Errorf("expected ErrDecode, got %v", res.Err)
			}
			if names := listDir(t, dest); len(names) != 0 {
				t.Errorf("destination should be empty, got %v", names)
			}
		})
	}
}

func TestImportMetadataFailureIsNotFatal(t *testing.T) {
	src := writeFile(t, t.TempDir(), "m.jpg", solidJPEG(t, 30, 20, color.White))
	im := newImporter(t, newMemStore(), Options{
		Metadata: metadataFunc(func(context.Context, string, formats.FormatKind) (*metadata.CaptureMetadata, error) {
			return nil, metadata.ErrUnavailable
		}),
	})

	res := im.ImportFile(context.Background(), src)
	if res.Outcome != Imported {
		t.Fatalf("outcome = %v (%v), want imported", res.Outcome, res.Err)
	}
	if res.Metadata != nil {
		t.Errorf("metadata = %+v, want nil", res.Metadata)
	}
}

func TestImportPathsWalksDirectories(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "a.jpg", solidJPEG(t, 30, 20, color.White))
	writeFile(t, src, "sub/b.png", mustPNG(t))
	writeFile(t, src, "sub/readme.md", []byte("# hi"))
	writeFile(t, src, ".hidden/c.jpg", solidJPEG(t, 30, 20, color.Black))
	single := writeFile(t, t.TempDir(), "d.jpg", solidJPEG(t, 32, 20, color.White))

	var mu sync.Mutex
	var reported []string
	im := newImporter(t, newMemStore(), Options{
		Workers: 2,
		OnResult: func(r Result) {
			mu.Lock()
			reported = append(reported, r.Path)
			mu.Unlock()
		},
	})

	summary, results := im.ImportPaths(context.Background(),
		[]string{src, single, filepath.Join(src, "missing")})

	if summary.Total != 4 || summary.Imported != 3 || summary.Skipped != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.WalkErrors != 1 {
		t.Errorf("walk errors = %d, want 1", summary.WalkErrors)
	}
	if len(results) != 4 || len(reported) != 4 {
		t.Errorf("results = %d, callbacks = %d, want 4", len(results), len(reported))
	}
	for _, r := range results {
		if filepath.Base(filepath.Dir(r.Path)) == ".hidden" {
			t.Errorf("hidden file imported: %s", r.Path)
		}
	}
}

func mustPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, exiftest.Marker(20, 20)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestImportWithCatalog(t *testing.T) {
	cat, err := catalog.New(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	defer cat.Close()

	src := writeFile(t, t.TempDir(), "c.jpg", solidJPEG(t, 30, 20, color.White))
	im := newImporter(t, cat, Options{})

	first := im.ImportFile(context.Background(), src)
	if first.Outcome != Imported {
		t.Fatalf("first outcome = %v (%v)", first.Outcome, first.Err)
	}
	second := im.ImportFile(context.Background(), src)
	if second.Outcome != AlreadyPresent || second.ExistingID != first.EntityID {
		t.Fatalf("second = %v existing %d, want already_present %d", second.Outcome, second.ExistingID, first.EntityID)
	}

	entity, err := cat.Get(context.Background(), first.EntityID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entity.ContentHash != first.Hash || entity.ThumbnailPath != first.Artifacts.ThumbnailPath {
		t.Errorf("stored entity %+v does not match result %+v", entity, first)
	}
}

func TestWatcherImportsNewFiles(t *testing.T) {
	watched := t.TempDir()
	results := make(chan Result, 4)
	im := newImporter(t, newMemStore(), Options{
		OnResult: func(r Result) { results <- r },
	})

	ctx, cancel := context.WithCancel(context.Background())
	w := im.NewWatcher(watched, 50*time.Millisecond)
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	// give the watcher time to register the tree
	time.Sleep(200 * time.Millisecond)
	writeFile(t, watched, "new.jpg", solidJPEG(t, 30, 20, color.White))

	select {
	case r := <-results:
		if r.Outcome != Imported || filepath.Base(r.Path) != "new.jpg" {
			t.Errorf("result = %v for %s (%v)", r.Outcome, r.Path, r.Err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("watcher did not import the new file")
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Run returned %v", err)
	}
}

func TestEventType(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want string
	}{
		{fsnotify.Create, "create"},
		{fsnotify.Write, "write"},
		{fsnotify.Create | fsnotify.Write, "create"},
		{fsnotify.Remove, "remove"},
		{fsnotify.Rename, "rename"},
		{fsnotify.Chmod, "chmod"},
		{0, "unknown"},
	}
	for _, tt := range tests {
		if got := eventType(tt.op); got != tt.want {
			t.Errorf("eventType(%v) = %q, want %q", tt.op, got, tt.want)
		}
	}
}
