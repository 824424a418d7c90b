package source

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/lakemirror/lakemirror/internal/version"
)

const (
	defaultTimeout = 2 * time.Minute
	retryCount     = 2
	retryWait      = 1 * time.Second
)

// Config describes a remote directory index to mirror from.
type Config struct {
	// URL of the directory index or file-index API.
	URL string

	// Contact is appended to the User-Agent so the source operator can
	// identify the caller. Some sources return 403 without it.
	Contact string
}

// Client lists and fetches files from a remote HTTP directory index.
type Client struct {
	http *req.Client
	base *url.URL
}

// UserAgent builds the identifying client marker sent on all outbound requests.
func UserAgent(contact string) string {
	ua := version.AppName + "/" + version.Version
	if contact != "" {
		ua = fmt.Sprintf("%s (%s)", ua, contact)
	}
	return ua
}

func New(cfg *Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("source: url missing")
	}

	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("source: invalid url %q: %w", cfg.URL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("source: invalid url %q: expected http(s)", cfg.URL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	client := req.C().
		SetTimeout(defaultTimeout).
		SetCommonRetryCount(retryCount).
		SetCommonRetryFixedInterval(retryWait).
		SetUserAgent(UserAgent(cfg.Contact))

	return &Client{http: client, base: base}, nil
}

// URL returns the normalized index URL the client lists from.
func (c *Client) URL() string {
	return c.base.String()
}

// List fetches the remote index and parses it into entries. The listing must
// be a well-formed HTML index page or a JSON file index; anything else fails
// with ErrSourceUnavailable. An access-denial response fails with
// ErrSourceRejected before anything is mirrored.
func (c *Client) List(ctx context.Context) ([]*RemoteEntry, error) {
	resp, err := c.http.R().SetContext(ctx).Get(c.base.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, c.base, err)
	}

	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s: %s", ErrSourceRejected, c.base, resp.Status)
	}
	if resp.IsErrorState() {
		return nil, fmt.Errorf("%w: %s: %s", ErrSourceUnavailable, c.base, resp.Status)
	}

	body := resp.String()
	ctype, _, _ := mime.ParseMediaType(resp.GetHeader("Content-Type"))

	var entries []*RemoteEntry
	if strings.Contains(ctype, "json") {
		entries, err = parseJSONIndex([]byte(body))
	} else {
		entries, err = parseHTMLIndex(strings.NewReader(body))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, c.base, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s: listing has no files", ErrSourceUnavailable, c.base)
	}

	return entries, nil
}

// Fetch streams the content of a single listed file. Failures here are
// per-file, not fatal to a run.
func (c *Client) Fetch(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	fileURL := c.base.JoinPath(name).String()

	resp, err := c.http.R().
		SetContext(ctx).
		DisableAutoReadResponse().
		Get(fileURL)
	if err != nil {
		return nil, 0, fmt.Errorf("source: fetch %q: %w", name, err)
	}

	if resp.IsErrorState() {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("source: fetch %q: %s", name, resp.Status)
	}

	return resp.Body, resp.ContentLength, nil
}
