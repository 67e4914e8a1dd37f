package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// LoadCookieFile reads a name→value cookie map from a JSON file and installs
// the cookies in the client's jar for the forum's base URL. The file format
// matches what browser devtools exports produce.
func (c *Client) LoadCookieFile(path, baseURL string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read cookie file: %w", err)
	}

	var cookies map[string]string
	if err := json.Unmarshal(data, &cookies); err != nil {
		return fmt.Errorf("decode cookie file: %w", err)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("parse base URL: %w", err)
	}

	list := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		list = append(list, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	c.jar.SetCookies(u, list)

	c.logger.Info("cookies loaded", "path", path, "count", len(list))
	return nil
}

// SaveCookieFile writes the jar's cookies for the forum's base URL back to a
// JSON file, so a refreshed session survives the process.
func (c *Client) SaveCookieFile(path, baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("parse base URL: %w", err)
	}

	cookies := make(map[string]string)
	for _, ck := range c.jar.Cookies(u) {
		cookies[ck.Name] = ck.Value
	}

	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}

	c.logger.Info("cookies saved", "path", path, "count", len(cookies))
	return nil
}

// ProbeLogin fetches the board listing once and reports whether the session
// is authenticated, by checking for the forum's login-wall marker.
func (c *Client) ProbeLogin(ctx context.Context, listingURL, forumID, authMarker string) (bool, error) {
	params := url.Values{}
	params.Set("fid", forumID)

	_, body, err := c.Fetch(ctx, listingURL, params)
	if err != nil {
		return false, err
	}
	return !strings.Contains(string(body), authMarker), nil
}
