// Package dandy is a convenience layer over a SQLite-backed object store: it
// derives per-entity mappings between external JSON keys and schema
// properties, materializes nested JSON graphs into graphs of persistent
// records, and serializes record graphs back into JSON-compatible structures.
package dandy

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ml-archive/dandy/internal/mapping"
	"github.com/ml-archive/dandy/internal/schema"
	"github.com/ml-archive/dandy/internal/store"
	"github.com/ml-archive/dandy/internal/value"
)

// Finalizer runs after all declarative mapping for a record completes,
// receiving the original JSON. It is the hook for derived-field computation
// unreachable by mapping.
type Finalizer func(r *store.Record, json value.Object)

// Options configures a Dandy instance.
type Options struct {
	// Model is the resolved data model. When nil, ModelPath is compiled
	// instead.
	Model     *schema.Model
	ModelPath string

	// StorePath is the SQLite database location.
	StorePath string

	// CacheDir holds the entity-mapping archive. Empty disables mapping
	// persistence.
	CacheDir string

	Logger *zap.SugaredLogger
}

// Dandy owns the store, the mapping cache, and the registered finalizers.
// Instances are single-threaded by design: every operation completes or
// fails synchronously on the calling goroutine.
type Dandy struct {
	store      *store.Store
	cache      *mapping.Cache
	log        *zap.SugaredLogger
	finalizers map[string]Finalizer
}

// New builds a Dandy instance, compiling the model if needed and opening the
// object store.
func New(opts Options) (*Dandy, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	model := opts.Model
	if model == nil {
		var err error
		model, err = schema.LoadModel(opts.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
	}

	s, err := store.Open(opts.StorePath, model, log)
	if err != nil {
		return nil, err
	}

	return &Dandy{
		store:      s,
		cache:      mapping.NewCache(opts.CacheDir, log),
		log:        log,
		finalizers: make(map[string]Finalizer),
	}, nil
}

// Store exposes the underlying object store.
func (d *Dandy) Store() *store.Store {
	return d.store
}

// Save flushes pending record changes to disk.
func (d *Dandy) Save() error {
	return d.store.Save()
}

// Delete tombstones a record; the row disappears on the next Save.
func (d *Dandy) Delete(r *store.Record) {
	d.store.Delete(r)
}

// TearDown discards all live records and the mapping cache, in memory and on
// disk. Use it whenever the underlying schema may have changed.
func (d *Dandy) TearDown() {
	d.store.Reset()
	d.cache.Clear()
}

// Close releases the store's database handle.
func (d *Dandy) Close() error {
	return d.store.Close()
}

// RegisterFinalizer installs the finalize hook for an entity. One finalizer
// per entity; later registrations replace earlier ones.
func (d *Dandy) RegisterFinalizer(entityName string, f Finalizer) {
	d.finalizers[entityName] = f
}

// entityAndMapping resolves both prerequisites of every operation.
func (d *Dandy) entityAndMapping(entityName string) (*schema.Entity, mapping.Mapping, bool) {
	e := d.store.Model().Entity(entityName)
	if e == nil {
		d.log.Warnw("unknown entity", "entity", entityName)
		return nil, nil, false
	}
	m, ok := d.cache.Mapping(e)
	if !ok {
		return nil, nil, false
	}
	return e, m, true
}
