package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/siteatlas/internal/logger"
)

// Static fetches raw HTML with Colly. It executes no scripts, so it only
// sees anchors present in the served markup and never finds interactive
// targets.
type Static struct {
	config   Config
	location string
	html     string
}

// NewStatic creates a static session. http, https and file URLs are
// supported.
func NewStatic(cfg Config) *Static {
	cfg.applyDefaults()
	return &Static{config: cfg}
}

// Navigate implements Browser.
func (s *Static) Navigate(ctx context.Context, url string) error {
	logger.Debug("static fetch starting", "url", url)

	opts := []colly.CollectorOption{
		colly.UserAgent(s.config.UserAgent),
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	}
	if s.config.MaxBodySize > 0 {
		opts = append(opts, colly.MaxBodySize(s.config.MaxBodySize))
	}
	c := colly.NewCollector(opts...)
	c.WithTransport(newTransport())
	c.SetRequestTimeout(s.config.Timeout)

	var (
		html     string
		location string
		fetchErr error
	)

	c.OnResponse(func(r *colly.Response) {
		html = string(r.Body)
		location = r.Request.URL.String()
		logger.Debug("static fetch response received",
			"url", location,
			"status", r.StatusCode,
			"content_type", r.Headers.Get("Content-Type"),
			"body_size", humanize.Bytes(uint64(len(r.Body))))
	})

	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
		logger.Debug("static fetch error", "url", url, "status", status, "error", err)
	})

	if err := c.Visit(url); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}
	if fetchErr != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, fetchErr)
	}

	s.html = html
	s.location = location
	return nil
}

// Location implements Browser.
func (s *Static) Location(context.Context) (string, error) {
	return s.location, nil
}

// HTML implements Browser.
func (s *Static) HTML(context.Context) (string, error) {
	return s.html, nil
}

// Elements implements Browser. Without a DOM there is nothing to interact
// with, so every query comes back empty.
func (s *Static) Elements(context.Context, string) ([]Element, error) {
	return []Element{}, nil
}

// Close implements Browser.
func (s *Static) Close() error {
	return nil
}

// Type implements Browser.
func (s *Static) Type() string {
	return string(ModeStatic)
}

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.RegisterProtocol("file", fileTransport{})
	return t
}

// fileTransport serves file:// URLs straight from disk. http.FileServer is
// not used because it redirects .../index.html to the directory, which would
// change the page's location.
type fileTransport struct{}

func (fileTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	path := filepath.FromSlash(req.URL.Path)
	f, err := os.Open(path)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, fs.ErrNotExist) {
			status = http.StatusNotFound
		}
		return &http.Response{
			Status:     http.StatusText(status),
			StatusCode: status,
			Proto:      "HTTP/1.0",
			ProtoMajor: 1,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader(err.Error())),
			Request:    req,
		}, nil
	}

	header := make(http.Header)
	if ctype := mime.TypeByExtension(filepath.Ext(path)); ctype != "" {
		header.Set("Content-Type", ctype)
	}
	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.0",
		ProtoMajor:    1,
		Header:        header,
		Body:          f,
		ContentLength: -1,
		Request:       req,
	}, nil
}
