package explain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/net/proxy"
)

const (
	// DefaultBaseURL points at a llama.cpp server on the local machine.
	DefaultBaseURL = "http://localhost:8080/v1"

	// DefaultModel is sent when no model name is configured. Local servers
	// usually ignore it.
	DefaultModel = openai.GPT3Dot5TurboInstruct

	// DefaultTimeout bounds one completion call.
	DefaultTimeout = 30 * time.Second
)

var (
	// ErrInvalidBaseURL is returned for base URLs that are not absolute http(s) URLs.
	ErrInvalidBaseURL = errors.New("invalid generative base URL")

	// ErrInvalidProxyAddress is returned for proxy addresses not in host:port form.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port")
)

// ClientConfig configures a CompletionClient.
type ClientConfig struct {
	// BaseURL is the API root, e.g. "http://localhost:8080/v1".
	BaseURL string

	// Model is the model name sent with every request.
	Model string

	// APIKey is sent as a bearer token. Local servers accept an empty key.
	APIKey string

	// Timeout bounds each Generate call. Zero uses DefaultTimeout.
	Timeout time.Duration

	// Proxy is an optional SOCKS5 proxy in "host:port" format.
	Proxy string

	// Headers are added to every request.
	Headers map[string]string
}

// CompletionClient is a Generator backed by an OpenAI-compatible
// /completions endpoint.
type CompletionClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewCompletionClient validates cfg and builds the HTTP client. It does not
// contact the endpoint.
func NewCompletionClient(cfg ClientConfig) (*CompletionClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	transport, err := newTransport(cfg.Proxy)
	if err != nil {
		return nil, err
	}
	var rt http.RoundTripper = transport
	if len(cfg.Headers) > 0 {
		rt = &headerInjectingTransport{base: transport, headers: cfg.Headers}
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(baseURL, "/")
	oc.HTTPClient = &http.Client{Transport: rt}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &CompletionClient{
		client:  openai.NewClientWithConfig(oc),
		model:   model,
		timeout: timeout,
	}, nil
}

// Generate sends one completion request and returns the text of every
// choice in index order.
func (c *CompletionClient) Generate(ctx context.Context, prompt string, maxTokens int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:     c.model,
		Prompt:    prompt,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}

	texts := make([]string, len(resp.Choices))
	for i, choice := range resp.Choices {
		texts[i] = choice.Text
	}
	return texts, nil
}

// newTransport returns a transport dialing directly, or through a SOCKS5
// proxy when proxyAddr is set.
func newTransport(proxyAddr string) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyAddr == "" {
		return transport, nil
	}

	if _, port, err := net.SplitHostPort(proxyAddr); err != nil || port == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, proxyAddr)
	}
	dialer, err := proxy.SOCKS5("tcp", proxyAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	transport.Proxy = nil
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return dialer.Dial(network, addr)
	}
	return transport, nil
}

// headerInjectingTransport adds fixed headers to every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

// RoundTrip implements http.RoundTripper. The request is cloned because
// RoundTrippers must not modify the caller's request.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	return t.base.RoundTrip(clone)
}
