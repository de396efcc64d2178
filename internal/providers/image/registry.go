package image

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"letterbanner/internal/domain"
)

// Registry maps model ids to ImageModel implementations.
type Registry struct {
	mu        sync.RWMutex
	models    map[string]ImageModel
	defaultID string
}

// NewRegistry registers models; the first one becomes the default.
func NewRegistry(models ...ImageModel) *Registry {
	r := &Registry{models: map[string]ImageModel{}}
	for _, m := range models {
		r.Register(m)
	}
	return r
}

// Register adds or replaces a model under its ID.
func (r *Registry) Register(m ImageModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[m.ID()] = m
	if r.defaultID == "" {
		r.defaultID = m.ID()
	}
}

// SetDefault selects the model used when a request names none.
func (r *Registry) SetDefault(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id = strings.TrimSpace(id)
	if _, ok := r.models[id]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedModel, id)
	}
	r.defaultID = id
	return nil
}

// Get resolves id, or the default model when id is empty.
func (r *Registry) Get(id string) (ImageModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id = strings.TrimSpace(id)
	if id == "" {
		id = r.defaultID
	}
	m, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", domain.ErrUnsupportedModel, id, strings.Join(r.idsLocked(), ", "))
	}
	return m, nil
}

// Has reports whether id is registered. An empty id means the default.
func (r *Registry) Has(id string) bool {
	_, err := r.Get(id)
	return err == nil
}

// IDs returns the registered ids sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.idsLocked()
}

func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultID
}

func (r *Registry) idsLocked() []string {
	ids := make([]string, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
