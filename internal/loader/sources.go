package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storevec/internal/model"
)

// SampleSource serves the fixed two item list with fresh ids on every call.
type SampleSource struct{}

func (SampleSource) FetchItems(ctx context.Context) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return model.SampleItems(), nil
}

// Delayed adds latency in front of src so blocking behavior is visible.
func Delayed(src Source, d time.Duration) Source {
	if d <= 0 {
		return src
	}
	return SourceFunc(func(ctx context.Context) ([]model.Item, error) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
		return src.FetchItems(ctx)
	})
}

// HTTPSource calls the items endpoint of a running storevec server.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func (s HTTPSource) FetchItems(ctx context.Context) ([]model.Item, error) {
	base := strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if base == "" {
		return nil, errors.New("loader: remote url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/items", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("loader: fetch items: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("loader: fetch items: unexpected status %s", resp.Status)
	}

	var items []model.Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("loader: decode items: %w", err)
	}
	return items, nil
}
