package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"media-catalog/internal/contenthash"
	"media-catalog/internal/logging"
)

const maxNameAttempts = 10

// artifactsFor names the files of an entity stored under stem.
func artifactsFor(destDir, stem, ext string) ArtifactSet {
	return ArtifactSet{
		OriginalPath:  filepath.Join(destDir, stem+ext),
		ThumbnailPath: filepath.Join(destDir, stem+"_thumbnail.jpg"),
		PreviewPath:   filepath.Join(destDir, stem+"_preview.jpg"),
	}
}

// reserveOriginal exclusively creates the destination of a copied original.
// When the plain name is taken the stem gets the short content hash, and a
// counter after that.
func reserveOriginal(destDir, name string, hash contenthash.Hash) (*os.File, ArtifactSet, error) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		candidate := stem
		switch {
		case attempt == 1:
			candidate = stem + "-" + hash.Short()
		case attempt > 1:
			candidate = fmt.Sprintf("%s-%s-%d", stem, hash.Short(), attempt)
		}

		set := artifactsFor(destDir, candidate, ext)
		if exists(set.ThumbnailPath) || exists(set.PreviewPath) {
			continue
		}

		f, err := os.OpenFile(set.OriginalPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, ArtifactSet{}, fmt.Errorf("%w: failed to create %s: %w", ErrIO, set.OriginalPath, err)
		}
		return f, set, nil
	}
	return nil, ArtifactSet{}, fmt.Errorf("%w: no free name for %s in %s", ErrIO, base, destDir)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// writeOriginal copies src into a reserved destination file.
func writeOriginal(dst *os.File, src io.Reader) error {
	_, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("%w: failed to copy original to %s: %w", ErrIO, dst.Name(), err)
	}
	return nil
}

// writtenFiles tracks files created for one entity so a failed import can
// remove them.
type writtenFiles struct {
	paths []string
}

func (w *writtenFiles) add(path string) {
	w.paths = append(w.paths, path)
}

func (w *writtenFiles) remove(log logging.FileLogger) error {
	var errs []error
	for i := len(w.paths) - 1; i >= 0; i-- {
		if err := os.Remove(w.paths[i]); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		log.Debug("removed %s", w.paths[i])
	}
	w.paths = nil
	return errors.Join(errs...)
}
