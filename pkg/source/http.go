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

	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// maxBodyBytes caps a relation payload read over HTTP
const maxBodyBytes = 64 << 20

// HTTPSource fetches relations from the CMDB API. The endpoint may return
// flat relation records or configuration items with their relationsFrom
// lists, as JSON or YAML.
type HTTPSource struct {
	url    string
	client *http.Client
	header http.Header
}

// NewHTTPSource creates an HTTP source. A zero timeout leaves requests
// bounded only by the load context.
func NewHTTPSource(rawURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		url:    rawURL,
		client: &http.Client{Timeout: timeout},
		header: make(http.Header),
	}
}

// WithClient replaces the HTTP client
func (h *HTTPSource) WithClient(client *http.Client) *HTTPSource {
	h.client = client
	return h
}

// SetHeader adds a request header such as Authorization
func (h *HTTPSource) SetHeader(key, value string) {
	h.header.Set(key, value)
}

// Name returns the URL without credentials or query
func (h *HTTPSource) Name() string {
	u, err := url.Parse(h.url)
	if err != nil {
		return "http"
	}
	return u.Scheme + "://" + u.Host + u.Path
}

func (h *HTTPSource) Load(ctx context.Context) ([]visualization.RelationRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, wrap("request", h.Name(), err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9")
	for key, values := range h.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, wrap("request", h.Name(), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, wrap("request", h.Name(), ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, wrap("request", h.Name(), fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, wrap("read", h.Name(), err)
	}

	records, err := Decode(body, formatFromContentType(resp.Header.Get("Content-Type"), req.URL.Path))
	if err != nil {
		return nil, wrap("decode", h.Name(), err)
	}
	return records, nil
}

// formatFromContentType picks YAML for yaml media types or .yaml paths and
// JSON otherwise.
func formatFromContentType(contentType, path string) Format {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if strings.Contains(mediaType, "yaml") {
			return FormatYAML
		}
		if strings.Contains(mediaType, "json") {
			return FormatJSON
		}
	}
	if format, _, err := FormatFromName(path); err == nil {
		return format
	}
	return FormatJSON
}
