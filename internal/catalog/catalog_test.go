package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"media-catalog/internal/contenthash"
	"media-catalog/internal/formats"
	"media-catalog/internal/metadata"
)

func setupTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return c
}

func newEntity(content string) NewEntity {
	captured := time.Date(2021, 6, 1, 12, 30, 0, 0, time.UTC)
	rot := metadata.Rotate90CW
	return NewEntity{
		Class:         formats.ClassImage,
		Format:        formats.JPEG,
		OriginalPath:  "/dest/" + content + ".jpg",
		ThumbnailPath: "/dest/" + content + "_thumbnail.jpg",
		PreviewPath:   "/dest/" + content + "_preview.jpg",
		SizeBytes:     int64(len(content)),
		ContentHash:   contenthash.FromBytes([]byte(content)),
		Metadata: &metadata.CaptureMetadata{
			Width:      4000,
			Height:     3000,
			CapturedAt: &captured,
			Rotation:   &rot,
			Location:   &metadata.Location{Latitude: 59, Longitude: 18},
			Image:      &metadata.ImageFields{},
		},
	}
}

func TestInsertAndFind(t *testing.T) {
	c := setupTestCatalog(t)
	ctx := context.Background()

	ne := newEntity("photo")
	inserted, err := c.Insert(ctx, ne)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if inserted.ID == 0 {
		t.Error("Insert() should assign an id")
	}

	found, err := c.FindByHash(ctx, ne.ContentHash)
	if err != nil {
		t.Fatalf("FindByHash() error = %v", err)
	}
	if found == nil || found.ID != inserted.ID {
		t.Fatalf("FindByHash() = %+v, want id %d", found, inserted.ID)
	}
	if found.ContentHash != ne.ContentHash || found.MimeType != "image/jpeg" {
		t.Errorf("found = %+v", found)
	}
	if found.CapturedAt == nil || !found.CapturedAt.Equal(*ne.Metadata.CapturedAt) {
		t.Errorf("captured at = %v", found.CapturedAt)
	}
	if found.Latitude == nil || *found.Latitude != 59 {
		t.Errorf("latitude = %v", found.Latitude)
	}
	if found.Metadata == nil || found.Metadata.Rotation == nil || *found.Metadata.Rotation != metadata.Rotate90CW {
		t.Errorf("metadata round trip = %+v", found.Metadata)
	}
}

func TestFindByHashMissing(t *testing.T) {
	c := setupTestCatalog(t)

	found, err := c.FindByHash(context.Background(), contenthash.FromBytes([]byte("nope")))
	if err != nil || found != nil {
		t.Errorf("FindByHash() = %v, %v; want nil, nil", found, err)
	}
}

func TestInsertDuplicate(t *testing.T) {
	c := setupTestCatalog(t)
	ctx := context.Background()

	if _, err := c.Insert(ctx, newEntity("same")); err != nil {
		t.Fatalf("first Insert() error = %v", err)
	}
	second := newEntity("same")
	second.OriginalPath = "/dest/other.jpg"
	if _, err := c.Insert(ctx, second); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second Insert() error = %v, want ErrDuplicate", err)
	}

	n, err := c.Count(ctx)
	if err != nil || n != 1 {
		t.Errorf("Count() = %d, %v; want 1", n, err)
	}
}

func TestConcurrentInsertSameContent(t *testing.T) {
	c := setupTestCatalog(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		inserted   int
		duplicates int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Insert(ctx, newEntity("race"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				inserted++
			case errors.Is(err, ErrDuplicate):
				duplicates++
			default:
				t.Errorf("Insert() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if inserted != 1 || duplicates != workers-1 {
		t.Errorf("inserted = %d, duplicates = %d; want 1 and %d", inserted, duplicates, workers-1)
	}
}

func TestGetAndDelete(t *testing.T) {
	c := setupTestCatalog(t)
	ctx := context.Background()

	e, err := c.Insert(ctx, newEntity("gone"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := c.Get(ctx, e.ID)
	if err != nil || got.OriginalPath != e.OriginalPath {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	deleted, err := c.Delete(ctx, e.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted.ThumbnailPath != e.ThumbnailPath {
		t.Errorf("Delete() returned %+v", deleted)
	}

	if _, err := c.Get(ctx, e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if _, err := c.Delete(ctx, e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestInsertWithoutMetadata(t *testing.T) {
	c := setupTestCatalog(t)
	ctx := context.Background()

	ne := newEntity("bare")
	ne.Metadata = nil
	e, err := c.Insert(ctx, ne)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	got, err := c.Get(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Metadata != nil || got.CapturedAt != nil || got.Latitude != nil {
		t.Errorf("expected no metadata, got %+v", got)
	}
}

func TestStats(t *testing.T) {
	c := setupTestCatalog(t)
	ctx := context.Background()

	for _, content := range []string{"a", "bb", "ccc"} {
		if _, err := c.Insert(ctx, newEntity(content)); err != nil {
			t.Fatal(err)
		}
	}
	video := newEntity("clip")
	video.Class, video.Format = formats.ClassVideo, formats.MP4
	if _, err := c.Insert(ctx, video); err != nil {
		t.Fatal(err)
	}

	cached := c.GetStats()
	if cached.TotalEntities != 4 || cached.ByClass["image"] != 3 || cached.ByClass["video"] != 1 {
		t.Errorf("cached stats = %+v", cached)
	}

	finished := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := c.SetLastImportRun(ctx, finished); err != nil {
		t.Fatal(err)
	}

	stats, err := c.CalculateStats(ctx)
	if err != nil {
		t.Fatalf("CalculateStats() error = %v", err)
	}
	if stats.TotalEntities != 4 || stats.TotalBytes != 1+2+3+4 {
		t.Errorf("stats = %+v", stats)
	}
	if !stats.LastImport.Equal(finished) {
		t.Errorf("last import = %v, want %v", stats.LastImport, finished)
	}
}

func TestLastImportRunNeverSet(t *testing.T) {
	c := setupTestCatalog(t)

	last, err := c.LastImportRun(context.Background())
	if err != nil || !last.IsZero() {
		t.Errorf("LastImportRun() = %v, %v; want zero time", last, err)
	}
}

func TestNewInvalidPath(t *testing.T) {
	if _, err := New(context.Background(), "/nonexistent/dir/catalog.db"); err == nil {
		t.Error("New() with missing directory should fail")
	}
}
