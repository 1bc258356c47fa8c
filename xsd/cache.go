package xsd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of compiled schemas a SchemaCache keeps
// when no size is given.
const DefaultCacheSize = 16

// SchemaCache keeps recently compiled schemas. Concurrent requests for the
// same schema share a single compilation; failed compilations are not cached.
type SchemaCache struct {
	schemas *lru.Cache[cacheKey, *Schema]
	group   singleflight.Group
}

type cacheKey struct {
	location string
	mode     Mode
	remote   bool
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%s|%s|%t", k.location, k.mode, k.remote)
}

// NewSchemaCache creates a cache holding at most size schemas.
func NewSchemaCache(size int) (*SchemaCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	schemas, err := lru.New[cacheKey, *Schema](size)
	if err != nil {
		return nil, err
	}
	return &SchemaCache{schemas: schemas}, nil
}

// Get returns the schema at location compiled with opts, compiling it on a
// miss.
func (sc *SchemaCache) Get(location string, opts CompileOptions) (*Schema, error) {
	key, err := newCacheKey(location, opts)
	if err != nil {
		return nil, err
	}

	if schema, ok := sc.schemas.Get(key); ok {
		slog.Debug("schema cache hit", "location", key.location, "mode", key.mode)
		return schema, nil
	}

	v, err, _ := sc.group.Do(key.String(), func() (any, error) {
		if schema, ok := sc.schemas.Get(key); ok {
			return schema, nil
		}
		schema, err := Compile(key.location, opts)
		if err != nil {
			return nil, err
		}
		sc.schemas.Add(key, schema)
		return schema, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Schema), nil
}

// Len returns the number of cached schemas.
func (sc *SchemaCache) Len() int {
	return sc.schemas.Len()
}

func newCacheKey(location string, opts CompileOptions) (cacheKey, error) {
	if !isRemote(location) {
		abs, err := filepath.Abs(location)
		if err != nil {
			return cacheKey{}, fmt.Errorf("failed to resolve location %s: %w", location, err)
		}
		location = abs
	}
	return cacheKey{location: location, mode: opts.Mode, remote: opts.AllowRemote}, nil
}
