package web

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"storevec/internal/liststore"
	"storevec/internal/loader"

	"github.com/google/uuid"
)

var errViewNotFound = errors.New("view not found")

// view is one page view: its own loader resource and, once that resolves,
// its own list store. The store is the only mutation authority for the rows
// the page shows.
type view struct {
	id       string
	resource *loader.Resource
	newStore func() *liststore.Store

	initOnce sync.Once
	store    *liststore.Store
	initErr  error

	mu         sync.Mutex
	subs       int
	lastActive time.Time
}

// storeOrWait returns the view's store, waiting for the initial loader when
// it has not resolved yet. The store is created and initialized exactly once,
// from the loader result.
func (v *view) storeOrWait(ctx context.Context) (*liststore.Store, error) {
	items, err := v.resource.Get(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		v.initOnce.Do(func() { v.initErr = err })
		return nil, v.initErr
	}
	v.initOnce.Do(func() {
		st := v.newStore()
		if err := st.Initialize(items); err != nil {
			v.initErr = err
			return
		}
		v.store = st
	})
	if v.initErr != nil {
		return nil, v.initErr
	}
	return v.store, nil
}

func (v *view) touch() {
	v.mu.Lock()
	v.lastActive = time.Now()
	v.mu.Unlock()
}

func (v *view) attach() {
	v.mu.Lock()
	v.subs++
	v.lastActive = time.Now()
	v.mu.Unlock()
}

func (v *view) detach() {
	v.mu.Lock()
	if v.subs > 0 {
		v.subs--
	}
	v.lastActive = time.Now()
	v.mu.Unlock()
}

func (v *view) idleSince() (time.Time, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.subs > 0 {
		return time.Time{}, false
	}
	return v.lastActive, true
}

type viewRegistry struct {
	ttl time.Duration

	mu    sync.Mutex
	views map[string]*view

	onDispose func(*view)

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newViewRegistry(ttl time.Duration, onDispose func(*view)) *viewRegistry {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &viewRegistry{
		ttl:       ttl,
		views:     map[string]*view{},
		onDispose: onDispose,
		stopCh:    make(chan struct{}),
	}
}

func (reg *viewRegistry) create(res *loader.Resource, newStore func() *liststore.Store) *view {
	v := &view{
		id:         uuid.NewString(),
		resource:   res,
		newStore:   newStore,
		lastActive: time.Now(),
	}
	reg.mu.Lock()
	reg.views[v.id] = v
	reg.mu.Unlock()
	return v
}

func (reg *viewRegistry) get(id string) (*view, error) {
	id = strings.TrimSpace(id)
	reg.mu.Lock()
	v := reg.views[id]
	reg.mu.Unlock()
	if v == nil {
		return nil, errViewNotFound
	}
	return v, nil
}

func (reg *viewRegistry) len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.views)
}

// reap disposes views nobody has been connected to for longer than the ttl.
func (reg *viewRegistry) reap(now time.Time) int {
	var dead []*view
	reg.mu.Lock()
	for id, v := range reg.views {
		since, idle := v.idleSince()
		if !idle || now.Sub(since) < reg.ttl {
			continue
		}
		delete(reg.views, id)
		dead = append(dead, v)
	}
	reg.mu.Unlock()

	if reg.onDispose != nil {
		for _, v := range dead {
			reg.onDispose(v)
		}
	}
	return len(dead)
}

func (reg *viewRegistry) reapLoop() {
	t := time.NewTicker(reg.ttl / 4)
	defer t.Stop()
	for {
		select {
		case <-reg.stopCh:
			return
		case now := <-t.C:
			reg.reap(now)
		}
	}
}

func (reg *viewRegistry) Stop() {
	reg.stopOnce.Do(func() {
		close(reg.stopCh)
	})
}
