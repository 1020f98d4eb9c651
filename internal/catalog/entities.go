package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"media-catalog/internal/contenthash"
	"media-catalog/internal/formats"
	"media-catalog/internal/logging"
	"media-catalog/internal/metadata"
	"media-catalog/internal/metrics"
)

const entityColumns = `id, class, format, mime_type, original_path, thumbnail_path, preview_path,
	size_bytes, content_hash, captured_at, latitude, longitude, metadata, created_at`

// FindByHash returns the entity with the given content hash, or nil when the
// content has not been cataloged.
func (c *Catalog) FindByHash(ctx context.Context, hash contenthash.Hash) (entity *Entity, err error) {
	start := time.Now()
	defer func() { recordQuery("find_by_hash", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := c.db.QueryRowContext(ctx,
		"SELECT "+entityColumns+" FROM entities WHERE content_hash = ?", hash.String())
	entity, err = scanEntity(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return entity, err
}

// Insert stores a new entity. It returns ErrDuplicate when another row with
// the same content hash exists, including one inserted concurrently after the
// caller's FindByHash.
func (c *Catalog) Insert(ctx context.Context, e NewEntity) (entity *Entity, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrDuplicate) {
			recordQuery("insert", start, nil)
			return
		}
		recordQuery("insert", start, err)
	}()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var (
		capturedAt    sql.NullInt64
		lat, lon      sql.NullFloat64
		metadataJSON  sql.NullString
		capturedAtPtr *time.Time
	)
	if m := e.Metadata; m != nil {
		if m.CapturedAt != nil {
			capturedAt = sql.NullInt64{Int64: m.CapturedAt.Unix(), Valid: true}
			t := m.CapturedAt.UTC()
			capturedAtPtr = &t
		}
		if m.Location != nil {
			lat = sql.NullFloat64{Float64: m.Location.Latitude, Valid: true}
			lon = sql.NullFloat64{Float64: m.Location.Longitude, Valid: true}
		}
		data, jerr := json.Marshal(m)
		if jerr != nil {
			return nil, fmt.Errorf("failed to encode metadata: %w", jerr)
		}
		metadataJSON = sql.NullString{String: string(data), Valid: true}
	}

	now := time.Now().Unix()
	result, err := c.db.ExecContext(ctx, `
		INSERT INTO entities (class, format, mime_type, original_path, thumbnail_path, preview_path,
			size_bytes, content_hash, captured_at, latitude, longitude, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(e.Class), string(e.Format), formats.MimeType(e.Format),
		e.OriginalPath, e.ThumbnailPath, e.PreviewPath,
		e.SizeBytes, e.ContentHash.String(),
		capturedAt, lat, lon, metadataJSON, now,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to insert entity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted id: %w", err)
	}

	entity = &Entity{
		ID:            id,
		Class:         e.Class,
		Format:        e.Format,
		MimeType:      formats.MimeType(e.Format),
		OriginalPath:  e.OriginalPath,
		ThumbnailPath: e.ThumbnailPath,
		PreviewPath:   e.PreviewPath,
		SizeBytes:     e.SizeBytes,
		ContentHash:   e.ContentHash,
		CapturedAt:    capturedAtPtr,
		Metadata:      e.Metadata,
		CreatedAt:     time.Unix(now, 0),
	}
	if lat.Valid {
		entity.Latitude, entity.Longitude = &lat.Float64, &lon.Float64
	}

	c.adjustStats(string(e.Class), 1, e.SizeBytes)
	logging.Debug("Inserted entity %d (%s) for %s", id, e.ContentHash.Short(), e.OriginalPath)
	return entity, nil
}

// Get returns the entity with the given id.
func (c *Catalog) Get(ctx context.Context, id int64) (entity *Entity, err error) {
	start := time.Now()
	defer func() { recordQuery("get", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := c.db.QueryRowContext(ctx, "SELECT "+entityColumns+" FROM entities WHERE id = ?", id)
	return scanEntity(row)
}

// Delete removes the entity with the given id and returns it, so the caller
// can remove its files.
func (c *Catalog) Delete(ctx context.Context, id int64) (entity *Entity, err error) {
	start := time.Now()
	defer func() { recordQuery("delete", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
			}
		}
	}()

	entity, err = scanEntity(tx.QueryRowContext(ctx, "SELECT "+entityColumns+" FROM entities WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM entities WHERE id = ?", id); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	c.adjustStats(string(entity.Class), -1, -entity.SizeBytes)
	return entity, nil
}

// Count returns the number of cataloged entities.
func (c *Catalog) Count(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { recordQuery("count", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entities").Scan(&n)
	return n, err
}

// CalculateStats recomputes catalog statistics and caches them for GetStats.
func (c *Catalog) CalculateStats(ctx context.Context) (stats Stats, err error) {
	start := time.Now()
	defer func() { recordQuery("stats", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx,
		"SELECT class, COUNT(*), COALESCE(SUM(size_bytes), 0) FROM entities GROUP BY class")
	if err != nil {
		return stats, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close stats rows: %v", closeErr)
		}
	}()

	stats.ByClass = make(map[string]int)
	for rows.Next() {
		var (
			class string
			count int
			bytes int64
		)
		if err = rows.Scan(&class, &count, &bytes); err != nil {
			return stats, err
		}
		stats.ByClass[class] = count
		stats.TotalEntities += count
		stats.TotalBytes += bytes
	}
	if err = rows.Err(); err != nil {
		return stats, err
	}

	if last, lerr := c.LastImportRun(ctx); lerr == nil {
		stats.LastImport = last
	}

	c.statsMu.Lock()
	c.stats = stats
	c.statsMu.Unlock()
	return stats, nil
}

// GetStats returns the cached statistics in the form used by the metrics
// collector.
func (c *Catalog) GetStats() metrics.Stats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()

	byClass := make(map[string]int, len(c.stats.ByClass))
	for k, v := range c.stats.ByClass {
		byClass[k] = v
	}
	return metrics.Stats{
		TotalEntities: c.stats.TotalEntities,
		ByClass:       byClass,
		TotalBytes:    c.stats.TotalBytes,
	}
}

func (c *Catalog) adjustStats(class string, count int, bytes int64) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	if c.stats.ByClass == nil {
		c.stats.ByClass = make(map[string]int)
	}
	c.stats.ByClass[class] += count
	c.stats.TotalEntities += count
	c.stats.TotalBytes += bytes
}

func scanEntity(row *sql.Row) (*Entity, error) {
	var (
		e            Entity
		class        string
		format       string
		hash         string
		capturedAt   sql.NullInt64
		lat, lon     sql.NullFloat64
		metadataJSON sql.NullString
		createdAt    int64
	)

	err := row.Scan(&e.ID, &class, &format, &e.MimeType, &e.OriginalPath, &e.ThumbnailPath,
		&e.PreviewPath, &e.SizeBytes, &hash, &capturedAt, &lat, &lon, &metadataJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	e.Class = formats.MediaClass(class)
	e.Format = formats.FormatKind(format)
	e.CreatedAt = time.Unix(createdAt, 0)
	if e.ContentHash, err = contenthash.ParseHex(hash); err != nil {
		return nil, err
	}
	if capturedAt.Valid {
		t := time.Unix(capturedAt.Int64, 0).UTC()
		e.CapturedAt = &t
	}
	if lat.Valid && lon.Valid {
		e.Latitude, e.Longitude = &lat.Float64, &lon.Float64
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		var m metadata.CaptureMetadata
		if err := json.Unmarshal([]byte(metadataJSON.String), &m); err != nil {
			logging.Warn("entity %d has unreadable metadata: %v", e.ID, err)
		} else {
			e.Metadata = &m
		}
	}
	return &e, nil
}
