package archive

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/serveops/model-archive/pkg/archive/errdefs"
	"github.com/serveops/model-archive/pkg/archive/internal/fetch"
	"github.com/serveops/model-archive/pkg/archive/internal/store"
	"github.com/serveops/model-archive/pkg/logging"
)

// defaultMaxConcurrentDownloads is the maximum number of concurrent
// remote downloads a client will run.
const defaultMaxConcurrentDownloads = 2

// Client runs the resolve -> materialize -> load pipeline.
type Client struct {
	modelStorePath string
	log            logging.Logger
	store          *store.Store
	fetcher        *fetch.Fetcher
	// downloadTokens bounds the number of concurrent remote downloads.
	downloadTokens *semaphore.Weighted
}

type options struct {
	modelStorePath         string
	cacheRootPath          string
	transport              http.RoundTripper
	userAgent              string
	downloadTimeout        time.Duration
	maxConcurrentDownloads int64
	log                    logging.Logger
}

// Option configures a Client.
type Option func(*options)

// WithModelStorePath sets the root directory that non-URL references are
// resolved against. Without it, only remote references can be fetched.
func WithModelStorePath(path string) Option {
	return func(o *options) {
		o.modelStorePath = path
	}
}

// WithCacheRootPath sets the directory archives are extracted under. The
// default is <system tmp>/models.
func WithCacheRootPath(path string) Option {
	return func(o *options) {
		o.cacheRootPath = path
	}
}

// WithTransport sets the HTTP transport used for downloads.
func WithTransport(transport http.RoundTripper) Option {
	return func(o *options) {
		o.transport = transport
	}
}

// WithUserAgent sets the User-Agent header sent on downloads.
func WithUserAgent(userAgent string) Option {
	return func(o *options) {
		o.userAgent = userAgent
	}
}

// WithDownloadTimeout bounds a complete download, including the transfer.
// Zero means no client-side timeout.
func WithDownloadTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.downloadTimeout = timeout
	}
}

// WithMaxConcurrentDownloads bounds concurrent remote downloads.
func WithMaxConcurrentDownloads(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConcurrentDownloads = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// NewClient creates a pipeline client.
func NewClient(opts ...Option) (*Client, error) {
	o := &options{
		cacheRootPath:          filepath.Join(os.TempDir(), "models"),
		maxConcurrentDownloads: defaultMaxConcurrentDownloads,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logging.NewLogger("model-archive")
	}

	httpClient := &http.Client{
		Transport: o.transport,
		Timeout:   o.downloadTimeout,
	}

	return &Client{
		modelStorePath: o.modelStorePath,
		log:            o.log,
		store:          store.New(o.cacheRootPath, o.log),
		fetcher:        fetch.New(httpClient, o.userAgent, o.log),
		downloadTokens: semaphore.NewWeighted(o.maxConcurrentDownloads),
	}, nil
}

// Fetch resolves reference, materializes the archive into the cache and
// loads its manifest. The returned handle still needs Validate; keeping
// the phases separate lets callers observe a loadable archive whose
// manifest is incomplete.
func (c *Client) Fetch(ctx context.Context, reference string) (*ModelArchive, error) {
	if fetch.IsRemote(reference) {
		return c.fetchRemote(ctx, reference)
	}
	return c.fetchLocal(reference)
}

func (c *Client) fetchRemote(ctx context.Context, reference string) (*ModelArchive, error) {
	if err := c.downloadTokens.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.downloadTokens.Release(1)

	body, etag, err := c.fetcher.Remote(ctx, reference)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	if etag != "" {
		if dir, ok := c.store.CachedDir(etag); ok {
			c.log.Infof("model folder already exists: %s", etag)
			return load(c.log, reference, dir, true)
		}
	}

	dir, err := c.store.Materialize(body, etag)
	if err != nil {
		if fetch.IsTimeout(err) {
			return nil, &errdefs.DownloadError{URL: reference, Err: err}
		}
		return nil, err
	}
	return load(c.log, reference, dir, true)
}

func (c *Client) fetchLocal(reference string) (*ModelArchive, error) {
	stream, err := c.fetcher.Local(c.modelStorePath, reference)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	dir, err := c.store.Materialize(stream, "")
	if err != nil {
		return nil, err
	}
	return load(c.log, reference, dir, true)
}

// CacheRoot returns the directory archives are extracted under.
func (c *Client) CacheRoot() string {
	return c.store.Root()
}
