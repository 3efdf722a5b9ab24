// Package download fetches result files by download id.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gwdc/gwlab-viterbi-go/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// DefaultEndpoint is the file download endpoint; the download id is appended.
const DefaultEndpoint = "https://gwlab.org.au/job/apiv1/file/?fileId="

// DefaultConcurrency is the number of files fetched at once.
const DefaultConcurrency = 4

// ErrLengthMismatch is returned when ids and destinations are not paired.
var ErrLengthMismatch = errors.New("download ids and destinations differ in length")

// File is one downloaded file. Content is only set by GetFile.
type File struct {
	Path    string
	Content []byte
}

// Reporter receives transfer progress. Add is called from several
// goroutines at once.
type Reporter interface {
	Start(total int64)
	Add(n int64)
	Finish(err error)
}

type nopReporter struct{}

func (nopReporter) Start(int64)  {}
func (nopReporter) Add(int64)    {}
func (nopReporter) Finish(error) {}

// Client downloads files from the file endpoint.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Collector
	reporter    Reporter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithConcurrency bounds the number of parallel requests.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records per-file timings in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) Option {
	return func(c *Client) {
		if r != nil {
			c.reporter = r
		}
	}
}

// New creates a download client. If endpoint is empty, DefaultEndpoint is used.
func New(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint:    endpoint,
		httpClient:  &http.Client{Timeout: 30 * time.Minute},
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		reporter:    nopReporter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Download fetches ids[i] and hands its body to fn with dests[i]. The
// returned files are in the same order as ids. total is the expected byte
// count and only drives progress reporting. The first failure cancels the
// remaining transfers.
func (c *Client) Download(ctx context.Context, fn MapFunc, ids, dests []string, total int64) ([]File, error) {
	if len(ids) != len(dests) {
		return nil, fmt.Errorf("%w: %d ids, %d destinations", ErrLengthMismatch, len(ids), len(dests))
	}

	c.reporter.Start(total)
	c.logger.Debug("starting download", "files", len(ids), "total_bytes", total)

	files := make([]File, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := range ids {
		g.Go(func() error {
			f, err := c.fetch(gctx, fn, ids[i], dests[i])
			if err != nil {
				return fmt.Errorf("download %s: %w", dests[i], err)
			}
			files[i] = f
			return nil
		})
	}

	err := g.Wait()
	c.reporter.Finish(err)
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (c *Client) fetch(ctx context.Context, fn MapFunc, id, dest string) (File, error) {
	start := time.Now()
	body := &countingReader{reporter: c.reporter}

	f, err := func() (File, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+url.QueryEscape(id), nil)
		if err != nil {
			return File{}, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return File{}, fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return File{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		body.r = resp.Body
		return fn(ctx, body, dest)
	}()

	c.metrics.RecordTransfer(metrics.OpDownload, time.Since(start), body.n, err)
	return f, err
}

type countingReader struct {
	r        io.Reader
	n        int64
	reporter Reporter
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.n += int64(n)
		cr.reporter.Add(int64(n))
	}
	return n, err
}
