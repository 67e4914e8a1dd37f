package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/ngascope/ngascope/internal/config"
	"github.com/ngascope/ngascope/internal/types"
)

// maxBodySize caps how much of a forum page is read into memory.
const maxBodySize = 10 * 1024 * 1024

// Client is a cookie-carrying HTTP client for forum pages. It sends the
// browser-like header set the forum expects and transparently decompresses
// gzip, deflate, and brotli bodies.
type Client struct {
	client    *http.Client
	jar       *cookiejar.Jar
	userAgent string
	logger    *slog.Logger
}

// NewClient creates a Client from the crawl configuration.
func NewClient(cfg config.CrawlConfig, logger *slog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		// Decompression is handled here so brotli is covered too.
		DisableCompression: true,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.RequestTimeout,
		},
		jar:       jar,
		userAgent: cfg.UserAgent,
		logger:    logger.With("component", "fetcher"),
	}, nil
}

// Fetch performs a GET against rawURL with the given query parameters and
// returns the status code and decompressed body.
func (c *Client) Fetch(ctx context.Context, rawURL string, params url.Values) (int, []byte, error) {
	target := rawURL
	if len(params) > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return 0, nil, &types.FetchError{URL: rawURL, Err: err}
		}
		q := u.Query()
		for key, values := range params {
			for _, v := range values {
				q.Set(key, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, &types.FetchError{URL: target, Err: err}
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, &types.FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, nil, &types.FetchError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}

	reader, err := decompressReader(resp, io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, &types.FetchError{URL: target, Err: err}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return resp.StatusCode, nil, &types.FetchError{URL: target, Err: err}
	}
	if len(body) == 0 {
		return resp.StatusCode, nil, &types.FetchError{URL: target, Err: types.ErrEmptyResponse}
	}

	c.logger.Debug("fetch complete",
		"url", target,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", time.Since(start),
	)
	return resp.StatusCode, body, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// IsTimeout reports whether err is a network timeout or deadline expiry.
// Timeouts are recoverable at the call site, never fatal.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
