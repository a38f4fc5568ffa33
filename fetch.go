package cube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultFetchTimeout   = 20 * time.Second
	defaultMaxContentSize = 16 << 20 // 16 MB
	maxRedirects          = 5
)

// Fetcher retrieves cell content from a URL when a cell is defined as a
// remote reference rather than inline source.
//
// A Fetcher does one network call per Fetch: no caching, no retries, no
// partial content. Callers should treat Fetch as a potentially long
// synchronous operation and must not hold cache locks across it.
type Fetcher struct {
	client  *http.Client
	maxSize int64
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// FetchTimeout bounds the total time of a single fetch.
// Default: 20 seconds.
func FetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.client.Timeout = d
	}
}

// MaxContentSize caps the size of a fetched response body.
// Default: 16 MB.
func MaxContentSize(n int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxSize = n
	}
}

// HTTPClient replaces the fetcher's HTTP client. Mainly for tests that
// need to stub the transport.
func HTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = c
	}
}

// NewFetcher creates a fetcher with a bounded timeout and a capped
// redirect count.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		maxSize: defaultMaxContentSize,
		client: &http.Client{
			Timeout: defaultFetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (max %d)", maxRedirects)
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the raw content at the URL on behalf of the owning
// table. Any failure is returned as a *FetchError naming the URL and the
// owner.
func (f *Fetcher) Fetch(ctx context.Context, url string, owner Table) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, f.err(url, owner, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.err(url, owner, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, f.err(url, owner, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, f.err(url, owner, err)
	}
	if int64(len(body)) > f.maxSize {
		return nil, f.err(url, owner, fmt.Errorf("content exceeds %d bytes", f.maxSize))
	}
	return body, nil
}

func (f *Fetcher) err(url string, owner Table, err error) *FetchError {
	e := &FetchError{URL: url, Err: err}
	if owner != nil {
		e.Table = owner.Name()
		e.Version = owner.Version()
	}
	return e
}
