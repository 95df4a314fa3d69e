package inspector

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/johbar/pdf-info-service/internal/cache"
	"github.com/johbar/pdf-info-service/internal/config"
	"github.com/johbar/pdf-info-service/internal/docinfo"
	"golang.org/x/text/language"
)

type RequestParams struct {
	Url string `form:"url" json:"url" validate:"required,http_url"`
	//Ignore cached record
	NoCache bool `form:"noCache" json:"noCache"`
}

// DateResult is the outcome of parsing a single PDF date string
type DateResult struct {
	Input string     `json:"input"`
	Text  string     `json:"text"`
	Time  *time.Time `json:"time,omitempty"`
	Valid bool       `json:"valid"`
}

type pendingEntry struct {
	url   string
	entry cache.Entry
}

type Inspector struct {
	pisCache   cache.Cache
	reader     *docinfo.Reader
	log        *slog.Logger
	httpClient *http.Client
	cacheNop   bool
	validate   *validator.Validate
	lang       language.Tag
	saveChan   chan pendingEntry
	saverDone  chan struct{}

	// guards saveChan against sends after Close
	saveMu sync.RWMutex
	closed bool
}

var (
	errUpstream = errors.New("upstream server failed")

	inspectedCount   = expvar.NewInt("pis_documents_inspected")
	cacheHitCount    = expvar.NewInt("pis_cache_hits")
	datesParsedCount = expvar.NewInt("pis_dates_parsed")
)

const saveRetries = 5

func New(conf *config.PisConfig, reader *docinfo.Reader, pisCache cache.Cache, logger *slog.Logger, httpClient *http.Client) *Inspector {
	ins := &Inspector{
		pisCache:   pisCache,
		reader:     reader,
		log:        logger,
		httpClient: httpClient,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		lang:       conf.Lang,
		saveChan:   make(chan pendingEntry, 100),
		saverDone:  make(chan struct{}),
	}
	if httpClient == nil {
		ins.httpClient = http.DefaultClient
	}
	if logger == nil {
		ins.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if pisCache == nil {
		ins.pisCache = &cache.NopCache{}
	}
	_, ins.cacheNop = ins.pisCache.(*cache.NopCache)
	go ins.saveEntries()
	return ins
}

// Close stops the background saver after all pending entries have been saved.
// Entries queued after Close are dropped.
func (ins *Inspector) Close() {
	ins.saveMu.Lock()
	if !ins.closed {
		ins.closed = true
		close(ins.saveChan)
	}
	ins.saveMu.Unlock()
	<-ins.saverDone
}

// queueSave hands p to the background saver. It reports false if the Inspector is closed.
func (ins *Inspector) queueSave(p pendingEntry) bool {
	ins.saveMu.RLock()
	defer ins.saveMu.RUnlock()
	if ins.closed {
		return false
	}
	ins.saveChan <- p
	return true
}

func (ins *Inspector) saveEntries() {
	defer close(ins.saverDone)
	for p := range ins.saveChan {
		for i := 0; i <= saveRetries; i++ {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := ins.pisCache.Put(ctx, p.url, p.entry)
			cancel()
			if err == nil {
				ins.log.Info("Saved document info in cache", "url", p.url)
				break
			}
			ins.log.Warn("Could not save document info to cache", "retries", i, "url", p.url, "err", err)
		}
	}
}

// statusFor maps errors of the docinfo reader to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, docinfo.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, docinfo.ErrNotPDF):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusUnprocessableEntity
	}
}

// InspectStream reads the document info of the PDF in r.
// A negative size means the size is unknown.
func (ins *Inspector) InspectStream(r io.Reader, size int64, origin string) (*docinfo.Info, int, error) {
	info, err := ins.reader.FromStream(r, size, origin)
	if err != nil {
		ins.log.Error("Parsing failed", "err", err, "origin", origin)
		return nil, statusFor(err), err
	}
	inspectedCount.Add(1)
	return info, http.StatusOK, nil
}

// Inspect returns the document info of a remote PDF.
// A cached record is served if the remote server reports the document as not modified.
func (ins *Inspector) Inspect(ctx context.Context, params RequestParams) (*docinfo.Info, int, error) {
	if err := ins.validate.Struct(params); err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("invalid request params: %w", err)
	}
	url := params.Url
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		ins.log.Error("Error when constructing GET request", "err", err, "url", url)
		return nil, http.StatusBadRequest, err
	}
	var cached *cache.Entry
	if !(params.NoCache || ins.cacheNop) {
		cached = ins.addCacheValidationHeaders(ctx, req, url)
	}
	ins.log.Debug("Issuing conditional GET request", "url", url, "headers", req.Header)

	response, err := ins.httpClient.Do(req)
	if err != nil {
		ins.log.Error("Error fetching", "err", err, "url", url)
		return nil, http.StatusBadGateway, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotModified && cached != nil {
		ins.log.Debug("URL has not been modified. Info will be served from cache", "url", url, "etag", cached.ETag)
		cacheHitCount.Add(1)
		return cached.Info, http.StatusOK, nil
	}
	if response.StatusCode >= 300 {
		return nil, http.StatusBadGateway, fmt.Errorf("fetching %s: %w: %s", url, errUpstream, response.Status)
	}

	info, status, err := ins.InspectStream(response.Body, response.ContentLength, url)
	if err != nil {
		return nil, status, err
	}
	if !ins.cacheNop {
		queued := ins.queueSave(pendingEntry{url: url, entry: cache.Entry{
			Info:         info,
			ETag:         response.Header.Get("Etag"),
			LastModified: response.Header.Get("Last-Modified"),
			Stored:       time.Now(),
		}})
		if !queued {
			ins.log.Warn("Inspector closed, document info not cached", "url", url)
		}
	}
	return info, http.StatusOK, nil
}

func (ins *Inspector) addCacheValidationHeaders(ctx context.Context, req *http.Request, url string) *cache.Entry {
	entry, err := ins.pisCache.Get(ctx, url)
	if err != nil {
		ins.log.Error("Could not get document info from cache", "url", url, "err", err)
		return nil
	}
	if entry == nil || entry.Info == nil {
		return nil
	}
	if entry.ETag == "" && entry.LastModified == "" {
		// nothing to validate against
		return nil
	}
	if entry.ETag != "" {
		req.Header.Add("If-None-Match", entry.ETag)
	}
	if entry.LastModified != "" {
		req.Header.Add("If-Modified-Since", entry.LastModified)
	}
	return entry
}

// ParseDate runs value through the reader's date codec
func (ins *Inspector) ParseDate(value string) DateResult {
	datesParsedCount.Add(1)
	text, t, ok := ins.reader.Codec.Parse(value)
	result := DateResult{Input: value, Text: text, Valid: ok}
	if ok {
		result.Time = &t
	}
	return result
}
