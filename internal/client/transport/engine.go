// Package transport implements the resilient request engine every backend
// call goes through: per-attempt timeouts, error classification, bounded
// exponential retry for transport failures and 401 session invalidation.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dmitrijs2005/propscan/internal/common"
	"github.com/dmitrijs2005/propscan/internal/logging"
	"github.com/dmitrijs2005/propscan/internal/metrics"
	"github.com/google/uuid"
)

const maxResponseSize = 8 << 20

// Config holds the engine's tunables. Zero values are replaced by the
// defaults from DefaultConfig.
type Config struct {
	BaseURL      string
	AppSource    string
	ShortTimeout time.Duration
	LongTimeout  time.Duration
	MaxRetries   int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	// Jitter is the backoff randomization factor in [0,1). 0 gives exact
	// delays of BaseDelay * 2^(k-1).
	Jitter float64
}

func DefaultConfig() Config {
	return Config{
		AppSource:    "mobile",
		ShortTimeout: 30 * time.Second,
		LongTimeout:  60 * time.Second,
		MaxRetries:   3,
		BaseDelay:    time.Second,
		MaxDelay:     8 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AppSource == "" {
		c.AppSource = d.AppSource
	}
	if c.ShortTimeout <= 0 {
		c.ShortTimeout = d.ShortTimeout
	}
	if c.LongTimeout <= 0 {
		c.LongTimeout = d.LongTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.Jitter < 0 || c.Jitter >= 1 {
		c.Jitter = 0
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

// TokenSource supplies the bearer token and is told when the backend
// rejected it. session.Manager implements it.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
	Invalidate(ctx context.Context)
}

// Request describes one logical call.
type Request struct {
	Endpoint string
	Method   string
	// Body is JSON-encoded unless it is already []byte or json.RawMessage.
	Body    any
	Headers map[string]string
	Timeout TimeoutClass
	// NoRetry limits the call to a single attempt.
	NoRetry bool
}

type Option func(*Engine)

func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.http = c }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTimer replaces the timer used to wait between attempts.
func WithTimer(f func() backoff.Timer) Option {
	return func(e *Engine) { e.newTimer = f }
}

type Engine struct {
	cfg      Config
	http     *http.Client
	tokens   TokenSource
	log      logging.Logger
	metrics  *metrics.Collector
	newTimer func() backoff.Timer
}

func NewEngine(cfg Config, tokens TokenSource, log logging.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logging.Discard()
	}
	e := &Engine{
		cfg:    cfg.withDefaults(),
		http:   &http.Client{},
		tokens: tokens,
		log:    log,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Execute performs the request, retrying transport failures with exponential
// backoff. It returns either a 2xx Response or an *Error.
func (e *Engine) Execute(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	class := req.Timeout.resolve(req.Endpoint)
	timeout := e.timeoutFor(class)

	log := e.log.With("request_id", uuid.NewString(), "method", req.Method, "endpoint", req.Endpoint)
	start := time.Now()

	payload, err := encodeBody(req.Body)
	if err != nil {
		cerr := newError(OutcomeInvalidRequest, 0, MsgInvalidRequest, err)
		log.Error(ctx, "request body encoding failed", "error", err)
		e.metrics.Call(OutcomeInvalidRequest.String(), class.String(), time.Since(start))
		return nil, cerr
	}

	var (
		resp    *Response
		last    *Error
		attempt atomic.Int32
	)

	op := func() error {
		n := int(attempt.Add(1)) - 1
		if n > 0 {
			e.metrics.Retry()
		}
		r, cerr := e.attempt(ctx, req, payload, timeout, n, log)
		if cerr == nil {
			e.metrics.Attempt("ok")
			resp = r
			return nil
		}
		cerr.Attempts = n + 1
		last = cerr
		e.metrics.Attempt(cerr.Outcome.String())
		if !cerr.Retryable {
			return backoff.Permanent(cerr)
		}
		return cerr
	}

	notify := func(err error, delay time.Duration) {
		log.Warn(ctx, "request attempt failed, retrying",
			"attempt", attempt.Load(), "delay", delay, "outcome", last.Outcome.String(), "reason", last.Reason)
	}

	retries := e.cfg.MaxRetries
	if req.NoRetry {
		retries = 0
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(e.newBackOff(), uint64(retries)), ctx)

	var timer backoff.Timer
	if e.newTimer != nil {
		timer = e.newTimer()
	}

	err = backoff.RetryNotifyWithTimer(op, bo, notify, timer)
	if err == nil {
		log.Debug(ctx, "request completed", "status", resp.Status, "attempts", attempt.Load())
		e.metrics.Call("ok", class.String(), time.Since(start))
		return resp, nil
	}

	final := e.finalize(ctx, err, last, int(attempt.Load()))
	log.Error(ctx, "request failed",
		"outcome", final.Outcome.String(), "status", final.Status, "attempts", final.Attempts, "reason", final.Reason)
	e.metrics.Call(final.Outcome.String(), class.String(), time.Since(start))
	return nil, final
}

func (e *Engine) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = e.cfg.Jitter
	b.MaxInterval = e.cfg.MaxDelay
	b.MaxElapsedTime = 0
	return b
}

func (e *Engine) timeoutFor(c TimeoutClass) time.Duration {
	if c == TimeoutLong {
		return e.cfg.LongTimeout
	}
	return e.cfg.ShortTimeout
}

// finalize turns the error returned by the retry loop into the caller-facing
// *Error. A caller context that ended while waiting between attempts wins
// over the last attempt's outcome.
func (e *Engine) finalize(ctx context.Context, err error, last *Error, attempts int) *Error {
	if ctx.Err() != nil && (last == nil || last.Outcome != OutcomeHTTPStatus) {
		cerr := newError(OutcomeCanceled, 0, MsgCanceled, ctx.Err())
		cerr.Attempts = attempts
		return cerr
	}
	if last != nil {
		return last
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr
	}
	cerr = newError(OutcomeNetworkFailure, 0, MsgNetwork, err)
	cerr.Attempts = attempts
	return cerr
}

func (e *Engine) attempt(ctx context.Context, req Request, payload []byte, timeout time.Duration, n int, log logging.Logger) (*Response, *Error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	hreq, err := http.NewRequestWithContext(actx, req.Method, e.url(req.Endpoint), body)
	if err != nil {
		return nil, newError(OutcomeInvalidRequest, 0, MsgInvalidRequest, err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set(common.AppSourceHeaderName, e.cfg.AppSource)
	if e.tokens != nil {
		if token, ok := e.tokens.Token(ctx); ok {
			hreq.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
		}
	}
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}

	log.Debug(ctx, "request attempt", "attempt", n, "timeout", timeout)

	hresp, err := e.http.Do(hreq)
	if err != nil {
		return nil, transportError(ctx, actx, err)
	}
	defer hresp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(hresp.Body, maxResponseSize))
	if err != nil {
		return nil, bodyReadError(ctx, actx, hresp.StatusCode, err)
	}

	status := hresp.StatusCode
	if status == http.StatusUnauthorized {
		if e.tokens != nil {
			e.tokens.Invalidate(ctx)
		}
		return nil, newError(OutcomeHTTPStatus, status, MsgSessionExpired, fmt.Errorf("status %d", status))
	}
	if status < 200 || status > 299 {
		msg := errorMessage(data, status)
		return nil, newError(OutcomeHTTPStatus, status, msg, fmt.Errorf("status %d: %s", status, msg))
	}

	resp := &Response{
		Status: status,
		Header: hresp.Header,
		Body:   data,
		JSON:   isJSONContent(hresp.Header.Get("Content-Type")),
	}
	if resp.JSON && len(bytes.TrimSpace(data)) > 0 && !json.Valid(data) {
		return nil, newError(OutcomeParseError, status, MsgUnexpected, errors.New("invalid json body"))
	}
	return resp, nil
}

// bodyReadError classifies a failure after the status line arrived. The
// server has already handled the request, so the result is never retried.
func bodyReadError(parent, attempt context.Context, status int, err error) *Error {
	var cerr *Error
	switch classifyTransport(parent, attempt, err) {
	case OutcomeCanceled:
		cerr = newError(OutcomeCanceled, 0, MsgCanceled, err)
	case OutcomeTimeout:
		cerr = newError(OutcomeTimeout, status, MsgTimeout, err)
	default:
		cerr = newError(OutcomeParseError, status, MsgUnexpected, fmt.Errorf("read response body: %w", err))
	}
	cerr.Retryable = false
	return cerr
}

func transportError(parent, attempt context.Context, err error) *Error {
	o := classifyTransport(parent, attempt, err)
	switch o {
	case OutcomeCanceled:
		return newError(o, 0, MsgCanceled, err)
	case OutcomeTimeout:
		return newError(o, 0, MsgTimeout, err)
	default:
		return newError(o, 0, MsgNetwork, err)
	}
}

func (e *Engine) url(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return e.cfg.BaseURL + endpoint
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return data, nil
	}
}

// CloseIdleConnections releases pooled keep-alive connections.
func (e *Engine) CloseIdleConnections() {
	e.http.CloseIdleConnections()
}
