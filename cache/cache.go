package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Cache is a flat-file JSON store holding the last-known-good record per
// kind. Records are written through after every successful refresh and
// read back when a fetch fails. Everything here is best effort, a broken
// cache must never take the service down.
type Cache struct {
	logger *slog.Logger
	dir    string
}

func New(logger *slog.Logger, dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Cache{logger: logger, dir: dir}, nil
}

func (c *Cache) path(kind string) string {
	return filepath.Join(c.dir, kind+".json")
}

// Save writes the record for kind through a temp file and rename so a
// crash mid-write never leaves a truncated snapshot behind.
func (c *Cache) Save(kind string, record any) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", kind, err)
	}

	tmp, err := os.CreateTemp(c.dir, kind+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", kind, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s record: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file for %s: %w", kind, err)
	}

	if err := os.Rename(tmp.Name(), c.path(kind)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s record: %w", kind, err)
	}

	c.logger.Debug("cached record", slog.String("kind", kind), slog.Int("bytes", len(data)))
	return nil
}

// Load reads the last cached record for kind into out.
func (c *Cache) Load(kind string, out any) error {
	data, err := os.ReadFile(c.path(kind))
	if err != nil {
		return fmt.Errorf("read cached %s record: %w", kind, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode cached %s record: %w", kind, err)
	}
	return nil
}
