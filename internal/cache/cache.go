package cache

import (
	"context"
	"time"

	"github.com/johbar/pdf-info-service/internal/docinfo"
)

// Entry is the cached document info of a remote PDF along with
// the validators needed for conditional requests
type Entry struct {
	Info         *docinfo.Info `json:"info"`
	ETag         string        `json:"etag,omitempty"`
	LastModified string        `json:"lastModified,omitempty"`
	Stored       time.Time     `json:"stored"`
}

type Cache interface {
	// Get returns nil and no error if there is no entry for url
	Get(ctx context.Context, url string) (*Entry, error)
	Put(ctx context.Context, url string, entry Entry) error
}

type NopCache struct{}

func (c *NopCache) Get(ctx context.Context, url string) (*Entry, error) {
	return nil, nil
}

func (c *NopCache) Put(ctx context.Context, url string, entry Entry) error {
	return nil
}
