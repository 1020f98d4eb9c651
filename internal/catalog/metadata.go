package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const lastImportRunKey = "last_import_run"

// GetMetadata retrieves a metadata value by key.
// Returns sql.ErrNoRows if the key doesn't exist.
func (c *Catalog) GetMetadata(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err := c.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMetadata sets a metadata key-value pair.
func (c *Catalog) SetMetadata(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// LastImportRun returns when the last batch import finished.
// Returns zero time if never run.
func (c *Catalog) LastImportRun(ctx context.Context) (time.Time, error) {
	value, err := c.GetMetadata(ctx, lastImportRunKey)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastImportRun records when a batch import finished.
func (c *Catalog) SetLastImportRun(ctx context.Context, t time.Time) error {
	if t.IsZero() {
		return c.SetMetadata(ctx, lastImportRunKey, "")
	}
	return c.SetMetadata(ctx, lastImportRunKey, t.UTC().Format(time.RFC3339))
}
