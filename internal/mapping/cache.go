package mapping

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ml-archive/dandy/internal/schema"
)

// ArchiveFileName is the fixed name of the on-disk mapping archive. Deleting
// or corrupting the file is always safe: the cache degrades to cold
// recomputation on next access.
const ArchiveFileName = "EntityMapper.json"

// Cache memoizes entity mappings by entity name. It is an explicit,
// injectable instance rather than process-wide state, so tests run with
// isolated, disposable caches. It is not internally synchronized: concurrent
// first-access population for the same entity is a benign race (last writer
// wins, duplicate computation, no corruption of returned values).
type Cache struct {
	dir      string // archive directory; empty disables persistence
	log      *zap.SugaredLogger
	mappings map[string]Mapping
}

// NewCache creates a cache. If dir is non-empty, a mapping archive there is
// loaded eagerly and every rebuild rewrites it so future process launches
// skip recomputation. A nil logger falls back to a no-op logger.
func NewCache(dir string, log *zap.SugaredLogger) *Cache {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	c := &Cache{
		dir:      dir,
		log:      log,
		mappings: make(map[string]Mapping),
	}
	c.loadArchive()
	return c
}

// Mapping returns the entity mapping for e, building and memoizing it on
// first access. ok is false only when e has no resolvable name - an internal
// consistency failure, logged.
func (c *Cache) Mapping(e *schema.Entity) (Mapping, bool) {
	if e == nil || e.Name == "" {
		c.log.Errorw("entity mapping requested for unnamed schema")
		return nil, false
	}

	if m, hit := c.mappings[e.Name]; hit {
		return m, true
	}

	m := Build(e, c.log)
	c.mappings[e.Name] = m
	c.writeArchive()
	return m, true
}

// Size returns the number of cached entity mappings.
func (c *Cache) Size() int {
	return len(c.mappings)
}

// Clear drops the in-memory cache and deletes the on-disk archive.
// Idempotent; safe to call when no cache exists.
func (c *Cache) Clear() {
	c.mappings = make(map[string]Mapping)
	if c.dir == "" {
		return
	}
	if err := os.Remove(c.archivePath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.log.Warnw("failed to delete mapping archive", "path", c.archivePath(), "error", err)
	}
}

func (c *Cache) archivePath() string {
	return filepath.Join(c.dir, ArchiveFileName)
}

// loadArchive restores a previously archived cache. Any read or decode
// failure degrades to an empty cache.
func (c *Cache) loadArchive() {
	if c.dir == "" {
		return
	}
	data, err := os.ReadFile(c.archivePath())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.log.Warnw("failed to read mapping archive", "path", c.archivePath(), "error", err)
		}
		return
	}
	var archived map[string]Mapping
	if err := json.Unmarshal(data, &archived); err != nil {
		c.log.Warnw("discarding corrupt mapping archive", "path", c.archivePath(), "error", err)
		return
	}
	if archived == nil {
		return
	}
	c.mappings = archived
}

// writeArchive persists the whole cache dictionary. Failures are logged and
// otherwise ignored: the archive is an optimization, never a source of truth.
func (c *Cache) writeArchive() {
	if c.dir == "" {
		return
	}
	data, err := json.MarshalIndent(c.mappings, "", "  ")
	if err != nil {
		c.log.Warnw("failed to encode mapping archive", "error", err)
		return
	}
	if err := os.WriteFile(c.archivePath(), data, 0o644); err != nil {
		c.log.Warnw("failed to write mapping archive", "path", c.archivePath(), "error", err)
	}
}
