package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"go-simpler.org/env"
	"golang.org/x/text/language"
)

// PisConfig represents the configuration of this service
type PisConfig struct {
	// Name of the key-value bucket in NATS to use
	// Default: PIS_DOCINFO
	Bucket string `env:"PIS_BUCKET" default:"PIS_DOCINFO"`
	// Maximum age of cached document info. 0 means forever. Default: 0
	CacheTTL time.Duration `env:"PIS_CACHE_TTL" default:"0s"`
	// Location used for PDF dates lacking an UTC offset, e.g. "UTC" or "Europe/Berlin". Default: Local
	DateLocationName string `env:"PIS_DATE_LOCATION" default:"Local"`
	DateLocation     *time.Location
	// Disable the cache entirely; NATS will not be connected unless NoHttp is set. Default: false
	DisableCache bool `env:"PIS_DISABLE_CACHE" default:"false"`
	// wether to expose embedded NATS server to other clients. Default: false
	ExposeNats bool `env:"PIS_EXPOSE_NATS" default:"false"`
	// If true the service will exit with an error if NATS or JetStream can't be connected
	FailWithoutJetstream bool `env:"PIS_FAIL_WITHOUT_JS" default:"true"`
	// Disable Accept-Encoding=gzip header in outgoing HTTP Requests
	HttpClientDisableCompression bool `env:"PIS_HTTP_CLIENT_DISABLE_COMPRESSION" default:"false"`
	// Timeout for fetching remote documents. Default: 60s
	HttpClientTimeout time.Duration `env:"PIS_HTTP_CLIENT_TIMEOUT" default:"60s"`
	// Language of the labels in text reports (BCP 47). Default: en
	LangStr string `env:"PIS_LANG" default:"en"`
	Lang    language.Tag
	// Log level (DEBUG, INFO, WARN, ERROR)
	LogLevelStr string `env:"PIS_LOG_LEVEL" default:"INFO"`
	LogLevel    slog.Level
	// Maximum size a file may have; processing is aborted if a requested file is bigger
	MaxFileSize      string `env:"PIS_MAX_FILE_SIZE" default:"300MiB"`
	MaxFileSizeBytes uint64
	// maximum size of a file to be processed solely in-memory instead of being saved to a temp file
	MaxInMemory      string `env:"PIS_MAX_IN_MEMORY" default:"2MiB"`
	MaxInMemoryBytes uint64
	// NATS max msg size (embedded server only)
	NatsMaxPayload int32 `env:"PIS_MAX_PAYLOAD" default:"8388608"`
	// embedded NATS server storage location. Default: /tmp/nats
	NatsStoreDir string `env:"PIS_NATS_STORE_DIR"`
	// embedded NATS server host/ip address, if exposed. Default: localhost
	NatsHost string `env:"PIS_NATS_HOST" default:"localhost"`
	// embedded NATS server port, if exposed. Default: 4222
	NatsPort int `env:"PIS_NATS_PORT" default:"4222"`
	// External NATS URL, e.g. nats://localhost:4222
	NatsUrl string `env:"PIS_NATS_URL"`
	// Timeout for the external NATS connection
	NatsTimeout time.Duration `env:"PIS_NATS_TIMEOUT" default:"15s"`
	// NatsConnectRetries is the number of attempts to connect to external NATS server(s)
	NatsConnectRetries int `env:"PIS_NATS_CONNECT_RETRIES" default:"10"`
	// if true, disable HTTP Server in favor of NATS Microservice interface
	NoHttp bool `env:"PIS_NO_HTTP" default:"false"`
	// How many replicas of the bucket to create. Default: 1
	Replicas int `env:"PIS_REPLICAS" default:"1"`
	// HTTP listen address and/or port. Default: ':8080'
	SrvAddr string `env:"PIS_HOST_PORT" default:":8080"`
}

// NewPisConfigFromEnv returns a service config object
// populated with defaults and values from environment vars
func NewPisConfigFromEnv() (*PisConfig, error) {
	var cfg PisConfig
	if err := env.Load(&cfg, nil); err != nil {
		return nil, err
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolve populates the fields derived from their string representation
func (cfg *PisConfig) resolve() error {
	err := cfg.LogLevel.UnmarshalText([]byte(cfg.LogLevelStr))
	if err != nil {
		return fmt.Errorf("parsing log level from env: %w", err)
	}
	maxbytes, err := humanize.ParseBytes(cfg.MaxInMemory)
	if err != nil {
		return fmt.Errorf("parsing max in memory file size from env: %w", err)
	}
	cfg.MaxInMemoryBytes = maxbytes
	maxSize, err := humanize.ParseBytes(cfg.MaxFileSize)
	if err != nil {
		return fmt.Errorf("parsing max file size from env: %w", err)
	}
	cfg.MaxFileSizeBytes = maxSize
	loc, err := time.LoadLocation(cfg.DateLocationName)
	if err != nil {
		return fmt.Errorf("loading date location from env: %w", err)
	}
	cfg.DateLocation = loc
	lang, err := language.Parse(cfg.LangStr)
	if err != nil {
		return fmt.Errorf("parsing report language from env: %w", err)
	}
	cfg.Lang = lang
	return nil
}
