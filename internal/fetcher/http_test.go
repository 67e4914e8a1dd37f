package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/ngascope/ngascope/internal/config"
	"github.com/ngascope/ngascope/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testCrawlConfig() config.CrawlConfig {
	return config.CrawlConfig{
		RequestTimeout: 10 * time.Second,
		UserAgent:      "test-agent/1.0",
	}
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(testCrawlConfig(), testLogger)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestFetch(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		fmt.Fprintf(w, "fid=%s page=%s", r.URL.Query().Get("fid"), r.URL.Query().Get("page"))
	}))
	defer srv.Close()

	c := newTestClient(t)

	params := url.Values{}
	params.Set("fid", "-447601")
	params.Set("page", "3")

	status, body, err := c.Fetch(context.Background(), srv.URL, params)
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
	if string(body) != "fid=-447601 page=3" {
		t.Errorf("params not sent: %q", body)
	}
	if gotUA != "test-agent/1.0" {
		t.Errorf("user agent = %q", gotUA)
	}
	if gotLang == "" {
		t.Error("Accept-Language header missing")
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t)

	status, _, err := c.Fetch(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if status != http.StatusNotFound {
		t.Errorf("status = %d", status)
	}
	var ferr *types.FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if ferr.StatusCode != http.StatusNotFound {
		t.Errorf("FetchError status = %d", ferr.StatusCode)
	}
}

func TestFetchEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t)

	_, _, err := c.Fetch(context.Background(), srv.URL, nil)
	if !errors.Is(err, types.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestFetchGzip(t *testing.T) {
	const page = "<html>压缩的页面内容</html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		gz.Write([]byte(page))
		gz.Close()
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := newTestClient(t)

	_, body, err := c.Fetch(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if string(body) != page {
		t.Errorf("gzip body not decompressed: %q", body)
	}
}

func TestFetchBrotli(t *testing.T) {
	const page = "<html>brotli压缩的页面</html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		bw.Write([]byte(page))
		bw.Close()
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := newTestClient(t)

	_, body, err := c.Fetch(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if string(body) != page {
		t.Errorf("brotli body not decompressed: %q", body)
	}
}

// --- Session Tests ---

func TestCookieFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cookies.json")
	if err := os.WriteFile(path, []byte(`{"ngaPassportUid": "12345", "ngaPassportCid": "abcde"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	c := newTestClient(t)

	const base = "https://ngabbs.com"
	if err := c.LoadCookieFile(path, base); err != nil {
		t.Fatalf("load cookies: %v", err)
	}

	u, _ := url.Parse(base)
	cookies := c.jar.Cookies(u)
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies in jar, got %d", len(cookies))
	}

	out := filepath.Join(dir, "saved.json")
	if err := c.SaveCookieFile(out, base); err != nil {
		t.Fatalf("save cookies: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("ngaPassportUid")) {
		t.Errorf("saved file missing cookie: %s", data)
	}
}

func TestLoadCookieFileMissing(t *testing.T) {
	c := newTestClient(t)
	if err := c.LoadCookieFile(filepath.Join(t.TempDir(), "nope.json"), "https://ngabbs.com"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestProbeLogin(t *testing.T) {
	authed := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authed {
			fmt.Fprint(w, "<html>正常的版块列表</html>")
			return
		}
		fmt.Fprint(w, "<html>你必须登录后才能查看</html>")
	}))
	defer srv.Close()

	c := newTestClient(t)

	ok, err := c.ProbeLogin(context.Background(), srv.URL, "-447601", "你必须登录")
	if err != nil {
		t.Fatalf("probe error: %v", err)
	}
	if ok {
		t.Error("login wall page must probe as unauthenticated")
	}

	authed = true
	ok, err = c.ProbeLogin(context.Background(), srv.URL, "-447601", "你必须登录")
	if err != nil {
		t.Fatalf("probe error: %v", err)
	}
	if !ok {
		t.Error("normal listing must probe as authenticated")
	}
}
