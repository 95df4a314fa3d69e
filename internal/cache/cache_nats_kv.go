package cache

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/johbar/pdf-info-service/internal/config"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// KVCache keeps document info in a NATS JetStream key-value bucket
type KVCache struct {
	kv  jetstream.KeyValue
	log *slog.Logger
}

// New creates or updates the bucket named in conf.
// If JetStream is not available and conf.FailWithoutJetstream is false, a NopCache is returned.
func New(conf config.PisConfig, log *slog.Logger, nc *nats.Conn) (Cache, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if nc == nil {
		return nil, errors.New("no connection to NATS")
	}
	kv, err := setupBucket(conf, nc, log)
	if err != nil {
		log.Error("Creating NATS key-value bucket failed", "err", err)
		if conf.FailWithoutJetstream {
			return nil, fmt.Errorf("initializing NATS key-value bucket: %w", err)
		}
		log.Warn("NATS key-value bucket could not be initialized and PIS_FAIL_WITHOUT_JS is false. Disabling cache.")
		return &NopCache{}, nil
	}
	log.Info("NATS key-value bucket initialized.", "bucket", conf.Bucket)
	return NewKVCache(kv, log), nil
}

// NewKVCache uses an existing bucket
func NewKVCache(kv jetstream.KeyValue, log *slog.Logger) *KVCache {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &KVCache{kv: kv, log: log}
}

func setupBucket(conf config.PisConfig, nc *nats.Conn, log *slog.Logger) (jetstream.KeyValue, error) {
	js, err := setupJetstream(conf, nc, log)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      conf.Bucket,
		Description: "Document info of remote PDFs",
		Storage:     jetstream.FileStorage,
		Compression: true,
		Replicas:    conf.Replicas,
		TTL:         conf.CacheTTL,
	})
}

func setupJetstream(conf config.PisConfig, nc *nats.Conn, log *slog.Logger) (jetstream.JetStream, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		log.Error("FATAL: Error when initializing NATS JetStream", "err", err.Error())
		return nil, err
	}

	for attempts := 0; attempts <= conf.NatsConnectRetries; attempts++ {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		_, err = js.AccountInfo(ctx)
		cancel()
		if err == nil {
			return js, nil
		}
		if errors.Is(err, jetstream.ErrJetStreamNotEnabled) || errors.Is(err, jetstream.ErrJetStreamNotEnabledForAccount) {
			return nil, err
		}
		log.Error("NATS JetStream check failed. Is JetStream enabled in external NATS server(s)?",
			"err", err,
			"count", attempts,
			"maxRetries", conf.NatsConnectRetries)
		time.Sleep(time.Second)
	}
	return nil, fmt.Errorf("retry count exceeded: %w", err)
}

// urlToKey encodes url with an alphabet valid for NATS keys
func urlToKey(url string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(url))
}

func (c *KVCache) Get(ctx context.Context, url string) (*Entry, error) {
	key := urlToKey(url)
	kve, err := c.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("retrieving cache entry for %s: %w", url, err)
	}
	var entry Entry
	if err := json.Unmarshal(kve.Value(), &entry); err != nil {
		return nil, fmt.Errorf("decoding cache entry for %s: %w", url, err)
	}
	return &entry, nil
}

func (c *KVCache) Put(ctx context.Context, url string, entry Entry) error {
	if entry.Stored.IsZero() {
		entry.Stored = time.Now()
	}
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry for %s: %w", url, err)
	}
	rev, err := c.kv.Put(ctx, urlToKey(url), value)
	if err != nil {
		return fmt.Errorf("saving cache entry for %s: %w", url, err)
	}
	c.log.Debug("Saved document info in NATS key-value bucket", "url", url, "revision", rev, "size", len(value))
	return nil
}
