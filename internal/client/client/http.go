package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/propscan/internal/client/models"
	"github.com/dmitrijs2005/propscan/internal/client/transport"
)

// HTTPClient implements Client over the JSON REST API.
type HTTPClient struct {
	engine *transport.Engine
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(engine *transport.Engine) *HTTPClient {
	return &HTTPClient{engine: engine}
}

func (c *HTTPClient) Close() error {
	c.engine.CloseIdleConnections()
	return nil
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type scanRequest struct {
	URL string `json:"url"`
}

type compareRequest struct {
	PropertyIDs []string `json:"property_ids"`
}

type askRequest struct {
	PropertyID string `json:"property_id"`
	Question   string `json:"question"`
}

type usageRequest struct {
	Kind   models.UsageKind `json:"kind"`
	Amount float64          `json:"amount"`
}

type historyResponse struct {
	Items []models.HistoryItem `json:"items"`
}

func (c *HTTPClient) Register(ctx context.Context, email, password, name string) (*models.AuthResult, error) {
	res, err := call[models.AuthResult](ctx, c.engine, transport.Request{
		Endpoint: "/auth/register",
		Method:   http.MethodPost,
		Body:     registerRequest{Email: strings.TrimSpace(email), Password: password, Name: strings.TrimSpace(name)},
		Timeout:  transport.TimeoutShort,
	})
	if err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, ErrMissingToken
	}
	return res, nil
}

// Login uses the default retry policy. A login whose response was lost is
// simply sent again; the backend treats it as a fresh login.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	res, err := call[models.AuthResult](ctx, c.engine, transport.Request{
		Endpoint: "/auth/login",
		Method:   http.MethodPost,
		Body:     loginRequest{Email: strings.TrimSpace(email), Password: password},
		Timeout:  transport.TimeoutShort,
	})
	if err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, ErrMissingToken
	}
	return res, nil
}

func (c *HTTPClient) Profile(ctx context.Context) (*models.User, error) {
	return call[models.User](ctx, c.engine, transport.Request{
		Endpoint: "/users/me",
		Method:   http.MethodGet,
		Timeout:  transport.TimeoutShort,
	})
}

func (c *HTTPClient) Scan(ctx context.Context, url string) (*models.ScanResult, error) {
	return call[models.ScanResult](ctx, c.engine, transport.Request{
		Endpoint: "/scans",
		Method:   http.MethodPost,
		Body:     scanRequest{URL: strings.TrimSpace(url)},
		Timeout:  transport.TimeoutShort,
	})
}

func (c *HTTPClient) History(ctx context.Context) ([]models.HistoryItem, error) {
	res, err := call[historyResponse](ctx, c.engine, transport.Request{
		Endpoint: "/scans/history",
		Method:   http.MethodGet,
		Timeout:  transport.TimeoutShort,
	})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (c *HTTPClient) Compare(ctx context.Context, propertyIDs []string) (*models.Comparison, error) {
	return call[models.Comparison](ctx, c.engine, transport.Request{
		Endpoint: "/compare",
		Method:   http.MethodPost,
		Body:     compareRequest{PropertyIDs: propertyIDs},
		Timeout:  transport.TimeoutLong,
	})
}

func (c *HTTPClient) AskQuestion(ctx context.Context, propertyID, question string) (*models.Answer, error) {
	return call[models.Answer](ctx, c.engine, transport.Request{
		Endpoint: "/ask",
		Method:   http.MethodPost,
		Body:     askRequest{PropertyID: propertyID, Question: strings.TrimSpace(question)},
		Timeout:  transport.TimeoutLong,
	})
}

// RecordUsage reports a billable action. It is retried like any other call,
// so a lost response can apply the usage twice on the backend.
func (c *HTTPClient) RecordUsage(ctx context.Context, kind models.UsageKind, amount float64) (*models.UsageReceipt, error) {
	return call[models.UsageReceipt](ctx, c.engine, transport.Request{
		Endpoint: "/users/me/usage",
		Method:   http.MethodPost,
		Body:     usageRequest{Kind: kind, Amount: amount},
		Timeout:  transport.TimeoutShort,
	})
}

// Ping is a liveness probe and is never retried.
func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.engine.Execute(ctx, transport.Request{
		Endpoint: "/health",
		Method:   http.MethodGet,
		Timeout:  transport.TimeoutShort,
		NoRetry:  true,
	})
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func call[T any](ctx context.Context, e *transport.Engine, req transport.Request) (*T, error) {
	resp, err := e.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	var out T
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
