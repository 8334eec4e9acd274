package executor

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yesoreyeram/fluxweave/pkg/httpnode"
	"github.com/yesoreyeram/fluxweave/pkg/types"
)

// HTTPExecutor performs one outbound HTTP call per input item (or a single
// call when there are no input items), per spec.md §4.D. It shares one
// default *http.Client per executor instance for connection pooling, and
// defers to the named-client registry when a node asks for one.
type HTTPExecutor struct {
	registry *httpnode.Registry

	mu     sync.RWMutex
	client *http.Client
}

// NewHTTPExecutor creates an HTTP executor backed by registry for named
// clients. registry may be nil, in which case every request uses the
// default client.
func NewHTTPExecutor(registry *httpnode.Registry) *HTTPExecutor {
	return &HTTPExecutor{registry: registry}
}

func (e *HTTPExecutor) NodeType() string { return "http" }

func (e *HTTPExecutor) Descriptor() types.NodeTypeDescriptor {
	return types.NodeTypeDescriptor{
		Type:        "http",
		DisplayName: "HTTP Request",
		InputCount:  1,
		OutputPorts: []string{types.DefaultOutput},
	}
}

func (e *HTTPExecutor) Validate(node types.Node) error {
	url, _ := node.Parameters["url"].(string)
	if url == "" {
		return fmt.Errorf("http node %q missing url parameter", node.Name)
	}
	return nil
}

func (e *HTTPExecutor) Execute(ctx ExecutionContext, node types.Node, input types.Items) (Result, error) {
	config := ctx.Config()
	if !config.AllowHTTP {
		return nil, fmt.Errorf("HTTP requests are not allowed (AllowHTTP=false)")
	}

	items := input
	if len(items) == 0 {
		items = types.Items{types.NewItem(nil)}
	}

	out := make(types.Items, 0, len(items))
	for i, item := range items {
		params := ctx.ResolveParameters(node.Parameters, item, i)

		url, _ := params["url"].(string)
		if url == "" {
			return nil, fmt.Errorf("http node %q missing url parameter", node.Name)
		}
		method := strings.ToUpper(asString(params["method"], "GET"))
		responseType := asString(params["responseType"], "json")
		headers := parseHeaders(params["headers"])
		uid := asString(params["httpClientUID"], "")

		client, usesPolicyDefault, err := e.resolveClient(uid, config)
		if err != nil {
			return nil, err
		}

		body := requestBody(method, params["body"], item)

		req, err := http.NewRequest(method, url, body)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		for _, kv := range headers {
			req.Header.Set(kv.Key, kv.Value)
		}
		if body != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}

		if usesPolicyDefault {
			policy := ssrfPolicyFrom(config)
			if err := policy.ValidateURL(url); err != nil {
				return nil, fmt.Errorf("URL validation failed: %w", err)
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		respItem, err := decodeResponse(resp, responseType, config.MaxResponseSize)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, respItem)
	}

	return Result{types.DefaultOutput: types.ItemsValue(out)}, nil
}

func (e *HTTPExecutor) resolveClient(uid string, config ExecutorConfig) (*http.Client, bool, error) {
	if uid != "" && e.registry != nil {
		named, err := e.registry.Get(uid)
		if err == nil {
			return named.Client, false, nil
		}
	}
	return e.defaultClient(config), true, nil
}

// defaultClient returns the shared connection-pooled client, building it on
// first use. Like the teacher's getOrCreateClient, it is built once per
// executor instance — a long-lived process that flips AllowHTTP or its SSRF
// policy at runtime should construct a fresh Registry/HTTPExecutor rather
// than mutate config underneath a running one.
func (e *HTTPExecutor) defaultClient(config ExecutorConfig) *http.Client {
	e.mu.RLock()
	if e.client != nil {
		client := e.client
		e.mu.RUnlock()
		return client
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client
	}

	policy := ssrfPolicyFrom(config)
	e.client = &http.Client{
		Timeout: time.Duration(config.HTTPTimeout),
		Transport: &http.Transport{
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			MaxConnsPerHost:       100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= config.MaxHTTPRedirects {
				return fmt.Errorf("too many redirects (max %d)", config.MaxHTTPRedirects)
			}
			if err := policy.ValidateURL(req.URL.String()); err != nil {
				return fmt.Errorf("redirect URL validation failed: %w", err)
			}
			return nil
		},
	}
	return e.client
}

func ssrfPolicyFrom(config ExecutorConfig) httpnode.SSRFPolicy {
	return httpnode.SSRFPolicy{
		AllowPrivateIPs:    config.AllowPrivateIPs,
		AllowLocalhost:     config.AllowLocalhost,
		AllowLinkLocal:     config.AllowLinkLocal,
		AllowCloudMetadata: config.AllowCloudMetadata,
		AllowedDomains:     config.AllowedDomains,
	}
}

// parseHeaders accepts both wire shapes spec.md §4.D names: a list of
// {name,value} objects, or a flat map[string]string.
func parseHeaders(raw interface{}) []httpnode.KeyValue {
	switch v := raw.(type) {
	case []interface{}:
		out := make([]httpnode.KeyValue, 0, len(v))
		for _, entry := range v {
			m, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			name := asString(m["name"], "")
			value := asString(m["value"], "")
			if name != "" {
				out = append(out, httpnode.KeyValue{Key: name, Value: value})
			}
		}
		return out
	case map[string]interface{}:
		out := make([]httpnode.KeyValue, 0, len(v))
		for name, value := range v {
			out = append(out, httpnode.KeyValue{Key: name, Value: asString(value, "")})
		}
		return out
	default:
		return nil
	}
}

func requestBody(method string, param interface{}, item types.Item) io.Reader {
	if method == http.MethodGet || method == http.MethodHead || param == nil {
		return nil
	}
	switch v := param.(type) {
	case string:
		return strings.NewReader(v)
	default:
		payload, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return bytes.NewReader(payload)
	}
}

func decodeResponse(resp *http.Response, responseType string, maxResponseSize int64) (types.Item, error) {
	limited := io.LimitReader(resp.Body, maxResponseSize)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return types.Item{}, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(raw)) == maxResponseSize {
		var probe [1]byte
		if n, _ := resp.Body.Read(probe[:]); n > 0 {
			return types.Item{}, fmt.Errorf("response too large (exceeds %d bytes)", maxResponseSize)
		}
	}

	headers := map[string]interface{}{}
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	var body interface{}
	switch responseType {
	case "text":
		body = string(raw)
	case "binary-metadata":
		body = map[string]interface{}{
			"byteLength": len(raw),
			"base64":     base64.StdEncoding.EncodeToString(raw),
		}
	default: // "json"
		var parsed interface{}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			body = string(raw)
		} else {
			body = parsed
		}
	}

	return types.NewItem(map[string]interface{}{
		"statusCode": resp.StatusCode,
		"headers":    headers,
		"body":       body,
	}), nil
}

func asString(v interface{}, fallback string) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}
