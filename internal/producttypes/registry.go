package producttypes

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Source loads product types for the registry. Point lookups return nil, nil
// when the type does not exist.
type Source interface {
	LoadAll(ctx context.Context) ([]*ProductType, error)
	LoadByID(ctx context.Context, id int64) (*ProductType, error)
	LoadByHandle(ctx context.Context, handle string) (*ProductType, error)
}

// Registry memoizes product types by id and handle for the life of the
// process. It fills on the first full scan or on a point lookup miss and is
// only changed by Put, Evict and Refresh.
//
// Every Put, Evict and Refresh bumps gen. A load started under an older gen
// is returned to its caller but never cached, so a slow read cannot replace
// an entry written by a committed save.
type Registry struct {
	source Source

	mu         sync.RWMutex
	byID       map[int64]*ProductType
	byHandle   map[string]*ProductType
	fetchedAll bool
	gen        uint64

	group singleflight.Group
}

func NewRegistry(source Source) *Registry {
	return &Registry{
		source:   source,
		byID:     map[int64]*ProductType{},
		byHandle: map[string]*ProductType{},
	}
}

// ByID returns a copy of the type, or nil when it does not exist.
func (r *Registry) ByID(ctx context.Context, id int64) (*ProductType, error) {
	r.mu.RLock()
	pt, ok := r.byID[id]
	complete := r.fetchedAll
	r.mu.RUnlock()
	if ok {
		return pt.Clone(), nil
	}
	if complete {
		return nil, nil
	}

	return r.load("id:"+strconv.FormatInt(id, 10), func() (*ProductType, error) {
		return r.source.LoadByID(ctx, id)
	})
}

// ByHandle returns a copy of the type with handle, or nil.
func (r *Registry) ByHandle(ctx context.Context, handle string) (*ProductType, error) {
	r.mu.RLock()
	pt, ok := r.byHandle[handle]
	complete := r.fetchedAll
	r.mu.RUnlock()
	if ok {
		return pt.Clone(), nil
	}
	if complete {
		return nil, nil
	}

	return r.load("handle:"+handle, func() (*ProductType, error) {
		return r.source.LoadByHandle(ctx, handle)
	})
}

// load runs one point lookup per key at a time and caches the result unless
// the registry changed while the source was being read.
func (r *Registry) load(key string, fetch func() (*ProductType, error)) (*ProductType, error) {
	v, err, _ := r.group.Do(key, func() (any, error) {
		gen := r.generation()
		loaded, err := fetch()
		if err != nil || loaded == nil {
			return loaded, err
		}
		r.mu.Lock()
		if r.gen == gen {
			r.store(loaded)
		}
		r.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	loaded, _ := v.(*ProductType)
	if loaded == nil {
		return nil, nil
	}
	return loaded.Clone(), nil
}

// All returns copies of every type ordered by name, then id.
func (r *Registry) All(ctx context.Context) ([]*ProductType, error) {
	r.mu.RLock()
	complete := r.fetchedAll
	var out []*ProductType
	if complete {
		out = make([]*ProductType, 0, len(r.byID))
		for _, pt := range r.byID {
			out = append(out, pt.Clone())
		}
	}
	r.mu.RUnlock()

	if !complete {
		v, err, _ := r.group.Do("all", func() (any, error) {
			gen := r.generation()
			all, err := r.source.LoadAll(ctx)
			if err != nil {
				return nil, err
			}
			r.mu.Lock()
			if r.gen == gen {
				r.byID = make(map[int64]*ProductType, len(all))
				r.byHandle = make(map[string]*ProductType, len(all))
				for _, pt := range all {
					r.byID[pt.ID] = pt
					r.byHandle[pt.Handle] = pt
				}
				r.fetchedAll = true
			}
			r.mu.Unlock()
			return all, nil
		})
		if err != nil {
			return nil, err
		}
		all, _ := v.([]*ProductType)
		out = make([]*ProductType, 0, len(all))
		for _, pt := range all {
			out = append(out, pt.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Put stores a copy of pt, replacing any entry with the same id.
func (r *Registry) Put(pt *ProductType) {
	if pt == nil || pt.ID == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.store(pt.Clone())
}

// Evict drops the entry for id.
func (r *Registry) Evict(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	if pt, ok := r.byID[id]; ok {
		delete(r.byHandle, pt.Handle)
		delete(r.byID, id)
	}
}

// Refresh forgets everything; the next read goes back to the source.
func (r *Registry) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.byID = map[int64]*ProductType{}
	r.byHandle = map[string]*ProductType{}
	r.fetchedAll = false
}

func (r *Registry) generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gen
}

// store indexes pt. Callers hold mu.
func (r *Registry) store(pt *ProductType) {
	if prev, ok := r.byID[pt.ID]; ok && prev.Handle != pt.Handle {
		delete(r.byHandle, prev.Handle)
	}
	r.byID[pt.ID] = pt
	r.byHandle[pt.Handle] = pt
}
