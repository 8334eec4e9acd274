package httpnode

import (
	"fmt"
	"net/http"
)

// Client pairs a built *http.Client with the config it was built from, so
// callers can recover MaxResponseSize and other policy without re-parsing.
type Client struct {
	*http.Client
	config *ClientConfig
}

// Config returns the configuration this client was built from.
func (c *Client) Config() *ClientConfig {
	return c.config
}

// Build constructs a Client from cfg. When cfg follows redirects, every
// redirect hop is checked against ssrf; the URL of the initial request is
// not checked by the client.
func Build(cfg *ClientConfig, ssrf SSRFPolicy) (*Client, error) {
	cfg = cfg.Clone()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
		DisableKeepAlives:   cfg.DisableKeepAlives,
	}

	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &namedClientTransport{base: transport, config: cfg},
	}

	if !cfg.FollowRedirects {
		httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else {
		httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("too many redirects (max %d)", cfg.MaxRedirects)
			}
			if err := ssrf.ValidateURL(req.URL.String()); err != nil {
				return fmt.Errorf("redirect URL validation failed: %w", err)
			}
			return nil
		}
	}

	return &Client{Client: httpClient, config: cfg}, nil
}

// namedClientTransport applies auth and default headers/query params ahead
// of every request, including the first.
type namedClientTransport struct {
	base   http.RoundTripper
	config *ClientConfig
}

func (t *namedClientTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())

	switch t.config.AuthType {
	case AuthTypeBasic:
		cloned.SetBasicAuth(t.config.Username, t.config.Password.Value())
	case AuthTypeBearer:
		cloned.Header.Set("Authorization", "Bearer "+t.config.Token.Value())
	}

	for _, h := range t.config.DefaultHeaders {
		if cloned.Header.Get(h.Key) == "" {
			cloned.Header.Set(h.Key, h.Value)
		}
	}

	if len(t.config.DefaultQueryParams) > 0 {
		q := cloned.URL.Query()
		for _, p := range t.config.DefaultQueryParams {
			if !q.Has(p.Key) {
				q.Set(p.Key, p.Value)
			}
		}
		cloned.URL.RawQuery = q.Encode()
	}

	return t.base.RoundTrip(cloned)
}
