package workbook

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/pkg/constants"
	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/logging"
)

// Registry resolves template ids to Sources.
//
// XLSX templates are opened lazily from a directory as <template_id>.xlsx
// and cached with a TTL; expired workbooks are closed. Sources registered
// explicitly never expire.
type Registry struct {
	dir    string
	cache  *gocache.Cache
	logger *zerolog.Logger

	mu     sync.RWMutex
	pinned map[string]Source
	opener func(path string) (*XLSX, error)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTemplatesDir sets the directory XLSX templates are opened from.
func WithTemplatesDir(dir string) RegistryOption {
	return func(r *Registry) {
		r.dir = dir
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logging.OrNop(logger)
	}
}

// NewRegistry creates a registry whose opened workbooks expire after ttl.
func NewRegistry(ttl time.Duration, opts ...RegistryOption) *Registry {
	if ttl <= 0 {
		ttl = constants.WorkbookCacheTTL
	}
	r := &Registry{
		cache:  gocache.New(ttl, constants.CacheCleanupInterval),
		logger: logging.OrNop(nil),
		pinned: make(map[string]Source),
		opener: OpenXLSX,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cache.OnEvicted(func(id string, v any) {
		if x, ok := v.(*XLSX); ok {
			if err := x.Close(); err != nil {
				r.logger.Warn().Err(err).Str("template_id", id).Msg("Failed to close workbook")
			}
		}
	})
	return r
}

// Register pins a source under a template id.
func (r *Registry) Register(templateID string, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pinned[templateID] = src
}

// Get returns the source for a template id.
func (r *Registry) Get(templateID string) (Source, error) {
	r.mu.RLock()
	src, ok := r.pinned[templateID]
	r.mu.RUnlock()
	if ok {
		return src, nil
	}

	if v, ok := r.cache.Get(templateID); ok {
		return v.(*XLSX), nil
	}

	if r.dir == "" || templateID == "" || filepath.Base(templateID) != templateID {
		return nil, errors.NewNotFoundError("template", templateID)
	}
	path := filepath.Join(r.dir, templateID+".xlsx")
	if _, err := os.Stat(path); err != nil {
		return nil, errors.NewNotFoundError("template", templateID)
	}

	x, err := r.opener(path)
	if err != nil {
		return nil, err
	}
	// Another caller may have opened it meanwhile; keep the first.
	if err := r.cache.Add(templateID, x, gocache.DefaultExpiration); err != nil {
		if v, ok := r.cache.Get(templateID); ok {
			_ = x.Close()
			return v.(*XLSX), nil
		}
		r.cache.Set(templateID, x, gocache.DefaultExpiration)
	}
	r.logger.Debug().Str("template_id", templateID).Str("path", path).Msg("Opened workbook template")
	return x, nil
}

// Close closes every cached workbook.
func (r *Registry) Close() {
	// Flush skips the eviction callback.
	for _, item := range r.cache.Items() {
		if x, ok := item.Object.(*XLSX); ok {
			_ = x.Close()
		}
	}
	r.cache.Flush()
}

// ItemCount returns the number of opened workbooks held in the cache.
func (r *Registry) ItemCount() int {
	return r.cache.ItemCount()
}
