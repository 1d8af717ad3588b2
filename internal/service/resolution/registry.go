package resolution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/octobees/leads-generator/resolver/internal/entity"
)

// RegistryLoader reads the full registry extract.
type RegistryLoader interface {
	LoadRegistry(ctx context.Context) ([]entity.RegistryRecord, error)
}

type registrySnapshot struct {
	records  []entity.RegistryRecord
	loadedAt time.Time
}

// Registry holds an immutable in-memory registry snapshot that can be swapped
// atomically while resolutions are running.
type Registry struct {
	loader  RegistryLoader
	current atomic.Pointer[registrySnapshot]
}

// NewRegistry wraps a loader. Records returns nil until Reload succeeds.
func NewRegistry(loader RegistryLoader) *Registry {
	return &Registry{loader: loader}
}

// NewStaticRegistry serves a fixed set of records.
func NewStaticRegistry(records []entity.RegistryRecord) *Registry {
	r := &Registry{}
	r.current.Store(&registrySnapshot{records: records, loadedAt: time.Now().UTC()})
	return r
}

// Reload replaces the snapshot. On failure the previous snapshot stays.
func (r *Registry) Reload(ctx context.Context) (int, error) {
	if r.loader == nil {
		return 0, errors.New("registry has no loader")
	}
	records, err := r.loader.LoadRegistry(ctx)
	if err != nil {
		return 0, fmt.Errorf("load registry: %w", err)
	}
	r.current.Store(&registrySnapshot{records: records, loadedAt: time.Now().UTC()})
	log.Printf("component=registry records=%d", len(records))
	return len(records), nil
}

// Records returns the current snapshot. Callers must not modify it.
func (r *Registry) Records() []entity.RegistryRecord {
	snap := r.current.Load()
	if snap == nil {
		return nil
	}
	return snap.records
}

// LoadedAt reports when the current snapshot was taken.
func (r *Registry) LoadedAt() time.Time {
	snap := r.current.Load()
	if snap == nil {
		return time.Time{}
	}
	return snap.loadedAt
}
