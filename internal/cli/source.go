package cli

import (
	"fmt"
	"net/http"
	"time"

	"storevec/internal/config"
	"storevec/internal/loader"
)

// buildSource turns the resolved config into the initial item source.
func buildSource(cfg config.Config) (loader.Source, error) {
	var src loader.Source
	switch cfg.Source {
	case config.SourceSample:
		src = loader.SampleSource{}
	case config.SourceSQLite:
		src = loader.SQLiteSource{Path: cfg.SQLitePath}
	case config.SourceHTTP:
		src = loader.HTTPSource{
			BaseURL: cfg.RemoteURL,
			Client:  &http.Client{Timeout: 30 * time.Second},
		}
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrSourceUnknown, cfg.Source)
	}
	return loader.Delayed(src, cfg.FetchDelay), nil
}

func newResource(cfg config.Config, opts ...loader.ResourceOption) (*loader.Resource, error) {
	src, err := buildSource(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Blocking {
		return loader.NewBlocking(src, opts...), nil
	}
	return loader.New(src, opts...), nil
}
