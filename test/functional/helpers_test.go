//go:build functional

// Package functional exercises the pantry server end to end over real
// HTTP and WebSocket connections.
package functional

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/pantry-tracker/internal/auth"
	"github.com/vyrodovalexey/pantry-tracker/internal/config"
	"github.com/vyrodovalexey/pantry-tracker/internal/inventory"
	"github.com/vyrodovalexey/pantry-tracker/internal/model"
	"github.com/vyrodovalexey/pantry-tracker/internal/server"
	"github.com/vyrodovalexey/pantry-tracker/internal/store"
)

// Environment variable names for test configuration.
const (
	EnvTestServerHost   = "TEST_SERVER_HOST"
	EnvTestStoreBackend = "TEST_STORE_BACKEND"
)

// Default test configuration values.
const (
	DefaultTestHost         = "localhost"
	DefaultTestTimeout      = 30 * time.Second
	DefaultRequestTimeout   = 5 * time.Second
	DefaultWebSocketTimeout = 5 * time.Second
	DefaultShutdownTimeout  = 5 * time.Second
)

// ServerOptions tweak the server started by NewTestServer.
type ServerOptions struct {
	AuthMode       string
	BasicAuthUsers string
	APIKeys        string
}

// TestServer wraps a running pantry server.
type TestServer struct {
	Server     *server.Server
	Store      store.Store
	Controller *inventory.Controller
	Events     *inventory.Broadcaster
	BaseURL    string
	WSURL      string
	listener   net.Listener
	t          *testing.T
	mu         sync.Mutex
	started    bool
}

// NewTestServer creates a server on a free port. The store backend comes
// from TEST_STORE_BACKEND (memory or bolt).
func NewTestServer(t *testing.T, opts ServerOptions) *TestServer {
	t.Helper()

	host := DefaultTestHost
	if h := os.Getenv(EnvTestServerHost); h != "" {
		host = h
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		t.Fatalf("Failed to find available port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	cfg := &config.Config{
		ServerPort:      port,
		LogLevel:        "error",
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  true,
		AuthMode:        opts.AuthMode,
		BasicAuthUsers:  opts.BasicAuthUsers,
		APIKeys:         opts.APIKeys,
		StoreBackend:    config.StoreBackendMemory,
		StoreCollection: store.DefaultCollection,
		StoreTimeout:    DefaultRequestTimeout,
		BoltPath:        filepath.Join(t.TempDir(), "pantry.db"),
	}
	if backend := os.Getenv(EnvTestStoreBackend); backend != "" {
		cfg.StoreBackend = backend
	}

	logger := zap.NewNop()

	itemStore, err := store.Open(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	authenticator, err := auth.New(cfg.AuthMode, cfg.BasicAuthUsers, cfg.APIKeys)
	if err != nil {
		t.Fatalf("Failed to create authenticator: %v", err)
	}

	events := inventory.NewBroadcaster(inventory.DefaultSubscriberBuffer)
	controller := inventory.NewController(itemStore, events, logger)

	srv := server.New(cfg, logger, server.Components{
		Store:         itemStore,
		Controller:    controller,
		Events:        events,
		Authenticator: authenticator,
	})

	return &TestServer{
		Server:     srv,
		Store:      itemStore,
		Controller: controller,
		Events:     events,
		BaseURL:    fmt.Sprintf("http://%s:%d", host, port),
		WSURL:      fmt.Sprintf("ws://%s:%d/ws", host, port),
		listener:   listener,
		t:          t,
	}
}

// StartTestServer creates and starts a server and stops it when the test
// ends.
func StartTestServer(t *testing.T, opts ServerOptions) *TestServer {
	t.Helper()
	ts := NewTestServer(t, opts)
	ts.Start()
	t.Cleanup(ts.Stop)
	return ts
}

// Start starts the test server and waits until it answers /health.
func (ts *TestServer) Start() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		return
	}

	ts.listener.Close()

	go func() {
		if err := ts.Server.Start(); err != nil {
			ts.t.Logf("Server error: %v", err)
		}
	}()

	ts.waitForReady()
	ts.started = true
}

func (ts *TestServer) waitForReady() {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ts.t.Fatalf("Server did not become ready within timeout")
		case <-ticker.C:
			resp, err := http.Get(ts.BaseURL + "/health")
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return
				}
			}
		}
	}
}

// Stop shuts the server down in the same order as the binary does.
func (ts *TestServer) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.started {
		return
	}

	ts.Controller.Close()
	ts.Events.Close()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := ts.Server.Shutdown(ctx); err != nil {
		ts.t.Logf("Server shutdown error: %v", err)
	}
	if closer, ok := ts.Store.(io.Closer); ok {
		_ = closer.Close()
	}

	ts.started = false
}

// Seed writes documents straight into the store, bypassing the controller.
func (ts *TestServer) Seed(docs map[string]model.Document) {
	ts.t.Helper()
	for name, doc := range docs {
		if err := ts.Store.Put(context.Background(), name, doc); err != nil {
			ts.t.Fatalf("Seed(%q) error = %v", name, err)
		}
	}
}

// Stored reads one item straight from the store.
func (ts *TestServer) Stored(name string) (*model.InventoryItem, bool) {
	ts.t.Helper()
	item, err := ts.Store.Get(context.Background(), name)
	if err != nil {
		return nil, false
	}
	return item, true
}

// HTTPClient provides a configured HTTP client for tests. Redirects are
// not followed so that page actions can be asserted on.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	headers map[string]string
	t       *testing.T
}

// NewHTTPClient creates a new HTTP client for testing.
func NewHTTPClient(t *testing.T, baseURL string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: DefaultRequestTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL: baseURL,
		headers: map[string]string{},
		t:       t,
	}
}

// WithHeader returns a copy of the client that sends header on every
// request.
func (c *HTTPClient) WithHeader(key, value string) *HTTPClient {
	headers := make(map[string]string, len(c.headers)+1)
	for k, v := range c.headers {
		headers[k] = v
	}
	headers[key] = value
	return &HTTPClient{client: c.client, baseURL: c.baseURL, headers: headers, t: c.t}
}

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Do executes a request and reads the whole response.
func (c *HTTPClient) Do(method, path, contentType string, body io.Reader) *Response {
	c.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		c.t.Fatalf("failed to create request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("failed to read response body: %v", err)
	}

	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}
}

// Get performs a GET request.
func (c *HTTPClient) Get(path string) *Response {
	return c.Do(http.MethodGet, path, "", nil)
}

// PostJSON performs a POST request with a JSON body.
func (c *HTTPClient) PostJSON(path string, body any) *Response {
	return c.Do(http.MethodPost, path, "application/json", jsonBody(c.t, body))
}

// PutJSON performs a PUT request with a JSON body.
func (c *HTTPClient) PutJSON(path string, body any) *Response {
	return c.Do(http.MethodPut, path, "application/json", jsonBody(c.t, body))
}

// PostForm performs a form POST, as the page does.
func (c *HTTPClient) PostForm(path string, values url.Values) *Response {
	return c.Do(http.MethodPost, path, "application/x-www-form-urlencoded", strings.NewReader(values.Encode()))
}

// Delete performs a DELETE request.
func (c *HTTPClient) Delete(path string) *Response {
	return c.Do(http.MethodDelete, path, "", nil)
}

func jsonBody(t *testing.T, body any) io.Reader {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	return bytes.NewReader(data)
}

// ParseItems decodes a list response.
func ParseItems(t *testing.T, resp *Response) []model.InventoryItem {
	t.Helper()
	var apiResp model.APIResponse[[]model.InventoryItem]
	if err := json.Unmarshal(resp.Body, &apiResp); err != nil {
		t.Fatalf("failed to parse API response: %v; body %s", err, resp.Body)
	}
	if !apiResp.Success {
		t.Fatalf("Success = false, error = %q", apiResp.Error)
	}
	return apiResp.Data
}

// ParseItem decodes a single item response.
func ParseItem(t *testing.T, resp *Response) model.InventoryItem {
	t.Helper()
	var apiResp model.APIResponse[model.InventoryItem]
	if err := json.Unmarshal(resp.Body, &apiResp); err != nil {
		t.Fatalf("failed to parse API response: %v; body %s", err, resp.Body)
	}
	return apiResp.Data
}

// ParseError decodes an error response.
func ParseError(t *testing.T, resp *Response) model.ErrorResponse {
	t.Helper()
	var errResp model.ErrorResponse
	if err := json.Unmarshal(resp.Body, &errResp); err != nil {
		t.Fatalf("failed to parse error response: %v; body %s", err, resp.Body)
	}
	return errResp
}

// Names lists item names in order.
func Names(items []model.InventoryItem) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return names
}

// AssertStatusCode checks the response status.
func AssertStatusCode(t *testing.T, resp *Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("Status = %d, want %d; body %s", resp.StatusCode, expected, resp.Body)
	}
}

// LogTestStart logs the start of a numbered scenario.
func LogTestStart(t *testing.T, testID, testName string) {
	t.Helper()
	t.Logf("=== START %s: %s", testID, testName)
}
