// Package loader produces the initial list of items for a view, exactly once,
// from a pluggable data source.
package loader

import (
	"context"
	"sync"
	"time"

	"storevec/internal/model"
)

// Source is the data source collaborator. Implementations return the items in
// display order, each with a unique id.
type Source interface {
	FetchItems(ctx context.Context) ([]model.Item, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context) ([]model.Item, error)

func (f SourceFunc) FetchItems(ctx context.Context) ([]model.Item, error) { return f(ctx) }

// Resource is a one-shot asynchronous fetch. The fetch starts on the first
// Start or Get call and its result (items or error) is kept for the lifetime
// of the resource; it is never refetched.
//
// Blocking is a scheduling hint for the rendering layer: a blocking resource
// must be resolved before the first response of the dependent view is sent.
type Resource struct {
	src      Source
	blocking bool
	observe  func(time.Duration, error)

	once  sync.Once
	done  chan struct{}
	items []model.Item
	err   error
}

type ResourceOption func(*Resource)

// WithObserver is called once when the fetch completes.
func WithObserver(fn func(elapsed time.Duration, err error)) ResourceOption {
	return func(r *Resource) { r.observe = fn }
}

// NewBlocking returns a resource the view waits for before responding.
func NewBlocking(src Source, opts ...ResourceOption) *Resource {
	return newResource(src, true, opts)
}

// New returns a non-blocking resource: the view may render a shell first and
// fill in the rows when the resource resolves.
func New(src Source, opts ...ResourceOption) *Resource {
	return newResource(src, false, opts)
}

func newResource(src Source, blocking bool, opts []ResourceOption) *Resource {
	r := &Resource{src: src, blocking: blocking, done: make(chan struct{})}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Resource) Blocking() bool { return r.blocking }

// Start kicks off the fetch in the background if it has not started yet. The
// fetch is not tied to any request context: once requested it runs to
// completion for the lifetime of the view.
func (r *Resource) Start() {
	r.once.Do(func() {
		go r.run()
	})
}

func (r *Resource) run() {
	defer close(r.done)
	started := time.Now()
	items, err := r.src.FetchItems(context.Background())
	if err == nil {
		r.items = model.CloneItems(items)
	}
	r.err = err
	if r.observe != nil {
		r.observe(time.Since(started), err)
	}
}

// Ready is closed once the fetch has completed.
func (r *Resource) Ready() <-chan struct{} { return r.done }

// Get starts the fetch if needed and waits for it, or for ctx to end. Every
// call returns its own copy of the items.
func (r *Resource) Get(ctx context.Context) ([]model.Item, error) {
	r.Start()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
	}
	if r.err != nil {
		return nil, r.err
	}
	return model.CloneItems(r.items), nil
}

// Peek returns the result without waiting. ok is false while the fetch is
// still running (or has not been started).
func (r *Resource) Peek() (items []model.Item, ok bool, err error) {
	select {
	case <-r.done:
	default:
		return nil, false, nil
	}
	if r.err != nil {
		return nil, true, r.err
	}
	return model.CloneItems(r.items), true, nil
}
