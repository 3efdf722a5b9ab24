// Package client provides the GraphQL transport for the GWLab Viterbi API.
//
// Callers work with snake_case keys. Variables are converted to camelCase
// before they are sent and response keys are converted back to snake_case.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gwdc/gwlab-viterbi-go/internal/keys"
	"github.com/gwdc/gwlab-viterbi-go/internal/metrics"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// DefaultEndpoint is the production GWLab Viterbi GraphQL endpoint.
const DefaultEndpoint = "https://gwlab.org.au/graphql"

// slowRequestThreshold is the duration above which requests are logged at WARN level.
const slowRequestThreshold = 5 * time.Second

// Client is a GraphQL client for the GWLab Viterbi service.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Collector
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records request timings in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a new GraphQL client authenticated with token.
// If endpoint is empty, DefaultEndpoint is used.
func New(token, endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint:   endpoint,
		token:      token,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the GraphQL endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// graphQLRequest is the request payload for GraphQL operations.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphQLResponse is the response payload from GraphQL operations.
type graphQLResponse struct {
	Data   map[string]any `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// GraphQLError is an error reported by the server in the response body.
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

func (e *GraphQLError) Error() string {
	return "graphql error: " + e.Message
}

// HTTPError is returned for non-200 responses.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("server error: %s - %s", e.Status, e.Body)
}

// Request sends a query or mutation and returns the response data with
// snake_case keys. Numbers are decoded as json.Number.
func (c *Client) Request(ctx context.Context, query string, variables map[string]any) (map[string]any, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	kind, name := describe(doc)

	requestID := uuid.NewString()
	start := time.Now()
	data, err := c.do(ctx, requestID, query, variables)
	duration := time.Since(start)

	op := metrics.OpQuery
	if kind == ast.Mutation {
		op = metrics.OpMutation
	}
	c.metrics.RecordTiming(op, duration, err)

	attrs := []any{
		"operation", string(kind),
		"name", name,
		"request_id", requestID,
		"duration_ms", duration.Milliseconds(),
	}
	if err != nil {
		c.logger.Debug("graphql request failed", append(attrs, "error", err)...)
		return nil, err
	}
	if duration > slowRequestThreshold {
		c.logger.Warn("slow graphql request", attrs...)
	} else {
		c.logger.Debug("graphql request completed", attrs...)
	}

	return keys.SnakeKeys(data).(map[string]any), nil
}

func (c *Client) do(ctx context.Context, requestID, query string, variables map[string]any) (map[string]any, error) {
	payload := graphQLRequest{Query: query}
	if variables != nil {
		payload.Variables = keys.CamelKeys(variables).(map[string]any)
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "JWT "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	var gqlResp graphQLResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&gqlResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		gqlErr := gqlResp.Errors[0]
		return nil, &gqlErr
	}

	if gqlResp.Data == nil {
		return map[string]any{}, nil
	}
	return gqlResp.Data, nil
}

// describe returns the type and name of the first operation in doc.
func describe(doc *ast.QueryDocument) (ast.Operation, string) {
	if len(doc.Operations) == 0 {
		return ast.Query, ""
	}
	op := doc.Operations[0]
	return op.Operation, op.Name
}
