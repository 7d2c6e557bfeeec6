// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/snowball/pkg/types"
)

// DefaultTimeout is the read timeout applied when the config leaves it unset.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent identifies the engine to the graph providers.
const DefaultUserAgent = "snowball/0.1 (citation snowballing)"

// NewClient builds the HTTP client shared by all requests of one backend:
// read timeout, TLS 1.2 or newer, optional proxy and a fixed User-Agent.
func NewClient(cfg types.HTTPConfig) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy URL %q: %w", cfg.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	agent := cfg.UserAgent
	if agent == "" {
		agent = DefaultUserAgent
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{base: transport, agent: agent},
	}, nil
}

type userAgentTransport struct {
	base  http.RoundTripper
	agent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.agent)
	}
	return t.base.RoundTrip(req)
}
