// Package liststore holds the authoritative ordered list of items for one
// view and serves every mutation through a small, closed set of operations.
//
// Views never receive a write handle to a row. They read copies (Items,
// Subscribe) and report intents back as plain values, e.g. an ItemID that was
// copied out of the rendered row before DeleteByID is called.
package liststore

import (
	"fmt"
	"sync"

	"storevec/internal/keyed"
	"storevec/internal/model"
)

// Op names the mutation that produced a Change.
type Op string

const (
	OpInitialize         Op = "initialize"
	OpAdd                Op = "add"
	OpDeleteByID         Op = "delete"
	OpDeleteFirst        Op = "delete-first"
	OpMutateSecondToLast Op = "mutate"
)

// Change is published once per successful mutation. Items is the complete
// list after the mutation and Patch the keyed diff from the previous version.
type Change struct {
	Version uint64
	Op      Op
	Items   []model.Item
	Patch   keyed.Patch
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the random id source. Tests use it to get
// predictable ids.
func WithIDGenerator(gen func() model.ItemID) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithStrictDeletes makes DeleteByID panic on an unknown id instead of
// returning an error. Meant for development builds.
func WithStrictDeletes(strict bool) Option {
	return func(s *Store) { s.strict = strict }
}

// WithObserver registers a callback invoked (outside the store lock) after
// every published change.
func WithObserver(fn func(Change)) Option {
	return func(s *Store) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// Store is the ordered, id-unique list of one view. It is safe for
// concurrent use.
type Store struct {
	mu        sync.Mutex
	items     []model.Item
	version   uint64
	newID     func() model.ItemID
	strict    bool
	observers []func(Change)

	subsMu sync.Mutex
	subs   map[chan Change]struct{}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		items: []model.Item{},
		newID: model.NewItemID,
		subs:  map[chan Change]struct{}{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Initialize replaces the contents with a copy of items. It is called once,
// directly after the initial loader resolves.
func (s *Store) Initialize(items []model.Item) error {
	seen := make(map[model.ItemID]struct{}, len(items))
	for _, it := range items {
		if it.ID.IsZero() {
			return fmt.Errorf("initialize: %w", model.ErrInvalidItemID)
		}
		if _, ok := seen[it.ID]; ok {
			return &DuplicateIDError{ID: it.ID}
		}
		seen[it.ID] = struct{}{}
	}

	s.update(OpInitialize, func(cur []model.Item) ([]model.Item, bool) {
		return model.CloneItems(items), true
	})
	return nil
}

// Add appends a new item holding model.PlaceholderValue and returns a copy
// of it.
func (s *Store) Add() model.Item {
	var added model.Item
	s.update(OpAdd, func(cur []model.Item) ([]model.Item, bool) {
		id := s.newID()
		for id.IsZero() || indexOf(cur, id) >= 0 {
			id = s.newID()
		}
		added = model.Item{ID: id, Value: model.PlaceholderValue}
		return append(cur, added), true
	})
	return added
}

// DeleteByID removes the item with the given id, keeping the order of the
// rest. An unknown id means the caller read it from stale state; the list is
// left untouched and a *NotFoundError is returned (or the store panics when
// strict deletes are enabled).
func (s *Store) DeleteByID(id model.ItemID) error {
	found := false
	s.update(OpDeleteByID, func(cur []model.Item) ([]model.Item, bool) {
		idx := indexOf(cur, id)
		if idx < 0 {
			return cur, false
		}
		found = true
		return append(cur[:idx], cur[idx+1:]...), true
	})
	if found {
		return nil
	}
	err := &NotFoundError{ID: id}
	if s.strict {
		panic(err)
	}
	return err
}

// DeleteFirst removes the item at position 0. It reports whether anything
// was removed; an empty list is left as is.
func (s *Store) DeleteFirst() bool {
	return s.update(OpDeleteFirst, func(cur []model.Item) ([]model.Item, bool) {
		if len(cur) == 0 {
			return cur, false
		}
		return cur[1:], true
	})
}

// MutateSecondToLast sets the value of the item at len-2 to
// model.MutatedValue. Lists shorter than two are left as is.
func (s *Store) MutateSecondToLast() bool {
	return s.update(OpMutateSecondToLast, func(cur []model.Item) ([]model.Item, bool) {
		if len(cur) < 2 {
			return cur, false
		}
		cur[len(cur)-2].Value = model.MutatedValue
		return cur, true
	})
}

// Items returns a copy of the current list.
func (s *Store) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneItems(s.items)
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Version counts published changes; it is 0 before Initialize.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Get returns a copy of the item with the given id.
func (s *Store) Get(id model.ItemID) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.items, id); i >= 0 {
		return s.items[i], true
	}
	return model.Item{}, false
}

// Snapshot returns the items together with the version they belong to.
func (s *Store) Snapshot() (uint64, []model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version, model.CloneItems(s.items)
}

// Subscribe registers for changes. Publishing never blocks: when a slow
// subscriber's buffer is full its oldest pending change is discarded, so the
// last change received always matches the store. Every Change carries the
// full list, so a subscriber must diff against what it rendered last rather
// than replay Patch.
func (s *Store) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 16)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, ch)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

// update runs fn on a private copy of the list and, when fn reports a change,
// swaps it in and publishes exactly one Change. Nothing is observable until
// fn has returned.
func (s *Store) update(op Op, fn func(cur []model.Item) ([]model.Item, bool)) bool {
	s.mu.Lock()
	prev := s.items
	next, changed := fn(model.CloneItems(prev))
	if !changed {
		s.mu.Unlock()
		return false
	}
	s.items = next
	s.version++
	c := Change{
		Version: s.version,
		Op:      op,
		Items:   model.CloneItems(next),
		Patch:   keyed.Diff(prev, next),
	}
	// Publish under the store lock so subscribers see versions in order.
	s.publish(c)
	observers := s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn(c)
	}
	return true
}

func (s *Store) publish(c Change) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		// A full channel loses its oldest change, never the newest one.
		for sent := false; !sent; {
			select {
			case ch <- c:
				sent = true
			default:
				select {
				case <-ch:
				default:
				}
			}
		}
	}
}

func indexOf(items []model.Item, id model.ItemID) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
