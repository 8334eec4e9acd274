package httpnode

import (
	"fmt"
	"time"
)

// AuthType selects how a named client authenticates outbound requests.
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeBasic  AuthType = "basic"
	AuthTypeBearer AuthType = "bearer"
)

// KeyValue is a single header or query parameter entry, the list form the
// HTTP node's own parameters accept alongside the map form (spec.md §4.D).
type KeyValue struct {
	Key   string
	Value string
}

// ClientConfig is a named HTTP client's full configuration: auth, network
// tuning, and default headers/query params applied to every request made
// through it.
type ClientConfig struct {
	Name        string
	Description string

	AuthType AuthType
	Username string
	Password SecureString
	Token    SecureString

	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	DisableKeepAlives   bool

	MaxRedirects    int
	MaxResponseSize int64
	FollowRedirects bool

	DefaultHeaders     []KeyValue
	DefaultQueryParams []KeyValue
	BaseURL            string
}

// ApplyDefaults fills in zero-valued fields with sane production defaults.
func (c *ClientConfig) ApplyDefaults() {
	if c.AuthType == "" {
		c.AuthType = AuthTypeNone
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 100
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = 10
	}
	if c.MaxConnsPerHost == 0 {
		c.MaxConnsPerHost = 100
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
	if c.TLSHandshakeTimeout == 0 {
		c.TLSHandshakeTimeout = 10 * time.Second
	}
	if c.MaxRedirects == 0 {
		c.MaxRedirects = 10
	}
	if c.MaxResponseSize == 0 {
		c.MaxResponseSize = 10 * 1024 * 1024
	}
}

// Validate checks the configuration is internally consistent.
func (c *ClientConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("client name is required")
	}
	switch c.AuthType {
	case "", AuthTypeNone:
	case AuthTypeBasic:
		if c.Username == "" {
			return fmt.Errorf("username is required for basic auth")
		}
	case AuthTypeBearer:
		if c.Token.IsEmpty() {
			return fmt.Errorf("token is required for bearer auth")
		}
	default:
		return fmt.Errorf("invalid auth type: %s", c.AuthType)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("max_redirects cannot be negative")
	}
	if c.MaxResponseSize < 0 {
		return fmt.Errorf("max_response_size cannot be negative")
	}
	return nil
}

// Clone deep-copies the configuration.
func (c *ClientConfig) Clone() *ClientConfig {
	clone := *c
	clone.DefaultHeaders = append([]KeyValue(nil), c.DefaultHeaders...)
	clone.DefaultQueryParams = append([]KeyValue(nil), c.DefaultQueryParams...)
	return &clone
}
