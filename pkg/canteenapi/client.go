// Package canteenapi is the HTTP client for the canteen order API. Error
// envelopes are turned back into typed pkg/errors values so callers can
// branch on the same codes the server uses.
package canteenapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

const (
	errorBodyReadLimit   int64 = 4096
	idempotencyKeyHeader       = "Idempotency-Key"
)

// Client talks to one API base URL and holds the caller's bearer token.
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu    sync.RWMutex
	token string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per request timeout of the default HTTP client.
// Zero keeps the transport default of no timeout, so a slow order creation
// is never reported as a network failure after the server committed it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithToken starts the client with an existing bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// HasCredentials reports whether a bearer token is held. It does not check
// expiry; the server answers UNAUTHORIZED for stale tokens.
func (c *Client) HasCredentials() bool {
	return c.Token() != ""
}

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, req types.LoginRequest) (*types.AuthResponse, error) {
	var out types.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, req, nil, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Register creates an account and keeps the returned token.
func (c *Client) Register(ctx context.Context, req types.RegisterRequest) (*types.AuthResponse, error) {
	var out types.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", nil, req, nil, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*types.User, error) {
	var out types.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListProducts(ctx context.Context, filters types.ProductFilters) ([]types.Product, error) {
	query := url.Values{}
	if filters.AvailableOnly {
		query.Set("available_only", "true")
	}
	if filters.Category != "" {
		query.Set("category", filters.Category)
	}
	if filters.Query != "" {
		query.Set("q", filters.Query)
	}

	var out []types.Product
	if err := c.do(ctx, http.MethodGet, "/api/v1/products", query, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*types.Product, error) {
	var out types.Product
	path := "/api/v1/products/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder submits an order. An empty idempotency key sends none.
func (c *Client) CreateOrder(ctx context.Context, req types.CreateOrderRequest, idempotencyKey string) (*types.Order, error) {
	headers := http.Header{}
	if idempotencyKey != "" {
		headers.Set(idempotencyKeyHeader, idempotencyKey)
	}
	var out types.Order
	if err := c.do(ctx, http.MethodPost, "/api/v1/orders", nil, req, headers, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListMyOrders(ctx context.Context, filters types.OrderFilters) (*types.OrderList, error) {
	return c.listOrders(ctx, "/api/v1/orders/mine", filters)
}

// ListOrders lists every order. Staff only.
func (c *Client) ListOrders(ctx context.Context, filters types.OrderFilters) (*types.OrderList, error) {
	return c.listOrders(ctx, "/api/v1/orders", filters)
}

func (c *Client) GetOrder(ctx context.Context, id uuid.UUID) (*types.Order, error) {
	var out types.Order
	if err := c.do(ctx, http.MethodGet, "/api/v1/orders/"+id.String(), nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id uuid.UUID, req types.UpdateStatusRequest) (*types.Order, error) {
	var out types.Order
	path := "/api/v1/orders/" + id.String() + "/status"
	if err := c.do(ctx, http.MethodPut, path, nil, req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelOrder(ctx context.Context, id uuid.UUID, req types.CancelOrderRequest) (*types.Order, error) {
	var out types.Order
	path := "/api/v1/orders/" + id.String() + "/cancel"
	if err := c.do(ctx, http.MethodPut, path, nil, req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) listOrders(ctx context.Context, path string, filters types.OrderFilters) (*types.OrderList, error) {
	query := url.Values{}
	if filters.Status != nil {
		query.Set("status", string(*filters.Status))
	}
	if filters.Limit > 0 {
		query.Set("limit", strconv.Itoa(filters.Limit))
	}
	if filters.Offset > 0 {
		query.Set("offset", strconv.Itoa(filters.Offset))
	}

	var out types.OrderList
	if err := c.do(ctx, http.MethodGet, path, query, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, headers http.Header, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "canteen api client not configured")
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	var envelope types.RawEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response")
	}
	if !envelope.HasData() {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response data")
	}
	return nil
}

// decodeError maps a non-2xx response onto a typed error. Unknown or
// unreadable envelopes fall back to a code derived from the HTTP status.
func decodeError(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "read error response")
	}

	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		code := pkgerrors.Code(envelope.Error.Code)
		if pkgerrors.Known(code) {
			return pkgerrors.New(code, envelope.Error.Message).WithDetails(envelope.Error.Details)
		}
	}

	return pkgerrors.New(codeForStatus(resp.StatusCode),
		fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
}

func codeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	case status == http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	case status == http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case status == http.StatusBadGateway, status == http.StatusGatewayTimeout:
		return pkgerrors.CodeNetwork
	case status == http.StatusServiceUnavailable:
		return pkgerrors.CodeDependency
	default:
		return pkgerrors.CodeInternal
	}
}
