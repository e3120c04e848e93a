package loader

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storevec/internal/model"
)

func TestResource_FetchesOnceUnderConcurrentGet(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	src := SourceFunc(func(ctx context.Context) ([]model.Item, error) {
		calls.Add(1)
		<-release
		return model.SampleItems(), nil
	})
	r := NewBlocking(src)

	var wg sync.WaitGroup
	results := make([][]model.Item, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items, err := r.Get(context.Background())
			if err != nil {
				t.Errorf("get: %v", err)
			}
			results[i] = items
		}(i)
	}
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly one fetch, got %d", got)
	}
	for i := 1; i < len(results); i++ {
		if results[i][0].ID != results[0][0].ID {
			t.Fatalf("expected the same result for every reader")
		}
	}
}

func TestResource_GetReturnsIndependentCopies(t *testing.T) {
	r := New(SampleSource{})
	a, err := r.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	a[0].Value = "changed"
	b, _ := r.Get(context.Background())
	if b[0].Value != "great" {
		t.Fatalf("loader output was mutated through a reader copy")
	}
}

func TestResource_FailureIsSticky(t *testing.T) {
	boom := errors.New("boom")
	var calls int
	r := NewBlocking(SourceFunc(func(ctx context.Context) ([]model.Item, error) {
		calls++
		return nil, boom
	}))
	for i := 0; i < 2; i++ {
		if _, err := r.Get(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected no retry, got %d calls", calls)
	}
	if _, ok, err := r.Peek(); !ok || !errors.Is(err, boom) {
		t.Fatalf("expected resolved failure from Peek, got ok=%v err=%v", ok, err)
	}
}

func TestResource_PeekBeforeStart(t *testing.T) {
	r := New(SampleSource{})
	if _, ok, _ := r.Peek(); ok {
		t.Fatalf("expected unresolved resource")
	}
	if r.Blocking() {
		t.Fatalf("New must be non-blocking")
	}
	if !NewBlocking(SampleSource{}).Blocking() {
		t.Fatalf("NewBlocking must be blocking")
	}
}

func TestResource_GetHonoursContextButKeepsFetching(t *testing.T) {
	release := make(chan struct{})
	r := New(SourceFunc(func(ctx context.Context) ([]model.Item, error) {
		<-release
		return model.SampleItems(), nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := r.Get(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	close(release)
	items, err := r.Get(context.Background())
	if err != nil || len(items) != 2 {
		t.Fatalf("expected fetch to complete after caller gave up, got %v %v", items, err)
	}
}

func TestResource_ObserverCalledOnce(t *testing.T) {
	var n atomic.Int32
	r := NewBlocking(SampleSource{}, WithObserver(func(time.Duration, error) { n.Add(1) }))
	_, _ = r.Get(context.Background())
	_, _ = r.Get(context.Background())
	if n.Load() != 1 {
		t.Fatalf("expected one observation, got %d", n.Load())
	}
}

func TestSQLiteSource_SeedThenFetchKeepsOrder(t *testing.T) {
	src := SQLiteSource{Path: filepath.Join(t.TempDir(), "items.sqlite")}
	ctx := context.Background()

	empty, err := src.FetchItems(ctx)
	if err != nil {
		t.Fatalf("fetch empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty list, got %v", empty)
	}

	want := []model.Item{
		{ID: model.NewItemID(), Value: "great"},
		{ID: model.NewItemID(), Value: "amasing"},
		{ID: model.NewItemID(), Value: "third"},
	}
	if err := src.Seed(ctx, want); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err := src.FetchItems(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}

	// Seeding again replaces the list.
	if err := src.Seed(ctx, want[:1]); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	got, _ = src.FetchItems(ctx)
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("expected reseeded single row, got %+v", got)
	}
}

func TestHTTPSource_DecodesItems(t *testing.T) {
	want := model.SampleItems()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/items" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	got, err := HTTPSource{BaseURL: srv.URL + "/"}.FetchItems(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestHTTPSource_NonOKIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := (HTTPSource{BaseURL: srv.URL}).FetchItems(context.Background()); err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestDelayed_WaitsBeforeFetching(t *testing.T) {
	start := time.Now()
	items, err := Delayed(SampleSource{}, 20*time.Millisecond).FetchItems(context.Background())
	if err != nil || len(items) != 2 {
		t.Fatalf("unexpected result %v %v", items, err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatalf("expected delay to be applied")
	}
}
