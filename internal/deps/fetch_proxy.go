package deps

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/mod/module"
)

// ProxyFetcher downloads module zips from a GOPROXY-protocol server.
type ProxyFetcher struct {
	base   string
	client *http.Client
}

// NewProxyFetcher returns a fetcher for baseURL. A nil client uses http.DefaultClient.
func NewProxyFetcher(baseURL string, client *http.Client) *ProxyFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &ProxyFetcher{base: strings.TrimRight(baseURL, "/"), client: client}
}

func (f *ProxyFetcher) Fetch(ctx context.Context, mod module.Version) (io.ReadCloser, error) {
	rel, err := zipPath(mod)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.base+"/"+rel, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		resp.Body.Close()
		return nil, ErrModuleNotFound(mod)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s: %s", rel, resp.Status, strings.TrimSpace(string(msg)))
	}
	return resp.Body, nil
}
