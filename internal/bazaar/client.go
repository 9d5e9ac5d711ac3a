package bazaar

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const userAgent = "bazaar-flipper/1.0 (github.com)"

// ErrUnavailable is returned when the API answers but reports no usable data.
var ErrUnavailable = errors.New("bazaar: data not available")

// Client is a rate-limited Hypixel SkyBlock HTTP client.
type Client struct {
	http        *http.Client
	sem         chan struct{}
	bazaarURL   string
	auctionsURL string

	snapshots *gocache.Cache
	ttl       time.Duration
	group     singleflight.Group

	mu     sync.Mutex
	lastOK time.Time
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BazaarURL   string
	AuctionsURL string
	Timeout     time.Duration
	SnapshotTTL time.Duration
	MaxConns    int
}

// NewClient creates a client with a connection semaphore and a snapshot cache.
func NewClient(opts Options) *Client {
	if opts.BazaarURL == "" {
		opts.BazaarURL = "https://api.hypixel.net/v2/skyblock/bazaar"
	}
	if opts.AuctionsURL == "" {
		opts.AuctionsURL = "https://api.hypixel.net/v2/skyblock/auctions"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = 8
	}
	return &Client{
		http:        &http.Client{Timeout: opts.Timeout},
		sem:         make(chan struct{}, opts.MaxConns),
		bazaarURL:   opts.BazaarURL,
		auctionsURL: opts.AuctionsURL,
		snapshots:   gocache.New(opts.SnapshotTTL, 5*time.Minute),
		ttl:         opts.SnapshotTTL,
	}
}

// HealthStatus reports the time of the last successful request.
func (c *Client) HealthStatus() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOK
}

func (c *Client) markOK() {
	c.mu.Lock()
	c.lastOK = time.Now()
	c.mu.Unlock()
}

// GetJSON fetches a URL and decodes JSON into dst.
func (c *Client) GetJSON(ctx context.Context, url string, dst interface{}) error {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.sem }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("hypixel %d: %s", resp.StatusCode, string(body))
	}
	body, err := decodedBody(resp)
	if err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	c.markOK()
	return nil
}

// decodedBody unwraps the response body according to its Content-Encoding.
// Setting Accept-Encoding ourselves disables the transport's own gzip handling.
// Closing the result does not close resp.Body.
func decodedBody(resp *http.Response) (io.ReadCloser, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	default:
		return io.NopCloser(resp.Body), nil
	}
}
