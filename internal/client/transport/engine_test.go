package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dmitrijs2005/propscan/internal/logging"
	"github.com/dmitrijs2005/propscan/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	mu          sync.Mutex
	token       string
	invalidated int
}

func (f *fakeTokens) Token(context.Context) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.token != ""
}

func (f *fakeTokens) Invalidate(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.invalidated++
}

// recordingTimer fires immediately and remembers every requested delay.
type recordingTimer struct {
	mu     sync.Mutex
	delays []time.Duration
	ch     chan time.Time
}

func (t *recordingTimer) Start(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delays = append(t.delays, d)
	t.ch = make(chan time.Time, 1)
	t.ch <- time.Now()
}

func (t *recordingTimer) Stop() {}

func (t *recordingTimer) C() <-chan time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ch
}

func (t *recordingTimer) Delays() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.delays...)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// failingTransport returns err for the first n requests, then delegates.
func failingTransport(n int32, err error, calls *atomic.Int32) http.RoundTripper {
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		c := calls.Add(1)
		if n < 0 || c <= n {
			return nil, err
		}
		return http.DefaultTransport.RoundTrip(r)
	})
}

func newTestEngine(t *testing.T, baseURL string, tokens TokenSource, opts ...Option) (*Engine, *recordingTimer) {
	t.Helper()
	timer := &recordingTimer{}
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	opts = append([]Option{WithTimer(func() backoff.Timer { return timer })}, opts...)
	return NewEngine(cfg, tokens, logging.Discard(), opts...), timer
}

func asError(t *testing.T, err error) *Error {
	t.Helper()
	var te *Error
	require.ErrorAs(t, err, &te)
	return te
}

var connRefused = &net.OpError{Op: "dial", Net: "tcp", Err: &net.OpError{Op: "connect", Err: syscall.ECONNREFUSED}}

func TestExecute_SuccessSendsHeadersAndParsesJSON(t *testing.T) {
	var got http.Header
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		assert.Equal(t, "/scans", r.URL.Path)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"id":"p1","price":1000}`))
	}))
	defer srv.Close()

	e, timer := newTestEngine(t, srv.URL+"/", &fakeTokens{token: "tok"})
	resp, err := e.Execute(context.Background(), Request{
		Endpoint: "/scans",
		Method:   http.MethodPost,
		Body:     map[string]string{"url": "https://example.com/listing"},
		Headers:  map[string]string{"X-Trace": "abc"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
	assert.Equal(t, "mobile", got.Get("X-App-Source"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "abc", got.Get("X-Trace"))
	assert.JSONEq(t, `{"url":"https://example.com/listing"}`, string(gotBody))

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.True(t, resp.JSON)
	var out struct {
		ID    string  `json:"id"`
		Price float64 `json:"price"`
	}
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, "p1", out.ID)
	assert.Equal(t, map[string]any{"id": "p1", "price": float64(1000)}, resp.Value())
	assert.Empty(t, timer.Delays())
}

func TestExecute_NoTokenNoAuthorizationHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	e, _ := newTestEngine(t, srv.URL, &fakeTokens{})
	resp, err := e.Execute(context.Background(), Request{Endpoint: "/health"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.Status)
}

func TestExecute_TextResponseIsReturnedRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("pong"))
	}))
	defer srv.Close()

	e, _ := newTestEngine(t, srv.URL, nil)
	resp, err := e.Execute(context.Background(), Request{Endpoint: "health"})
	require.NoError(t, err)
	assert.False(t, resp.JSON)
	assert.Equal(t, "pong", resp.Value())

	var v map[string]any
	err = resp.Decode(&v)
	assert.Equal(t, OutcomeParseError, asError(t, err).Outcome)
}

func TestExecute_InvalidJSONIsFatalParseError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	e, _ := newTestEngine(t, srv.URL, nil)
	_, err := e.Execute(context.Background(), Request{Endpoint: "/users/me"})
	te := asError(t, err)
	assert.Equal(t, OutcomeParseError, te.Outcome)
	assert.Equal(t, MsgUnexpected, err.Error())
	assert.False(t, te.Retryable)
	assert.EqualValues(t, 1, calls.Load())
}

func TestExecute_TruncatedBodyIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		hj, ok := w.(http.Hijacker)
		if !assert.True(t, ok) {
			return
		}
		conn, buf, err := hj.Hijack()
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: 100\r\n\r\n{\"kind\"")
		_ = buf.Flush()
	}))
	defer srv.Close()

	e, timer := newTestEngine(t, srv.URL, nil)
	_, err := e.Execute(context.Background(), Request{
		Method:   http.MethodPost,
		Endpoint: "/users/me/usage",
		Body:     map[string]string{"kind": "scan"},
	})
	te := asError(t, err)
	assert.Equal(t, OutcomeParseError, te.Outcome)
	assert.Equal(t, http.StatusOK, te.Status)
	assert.Equal(t, MsgUnexpected, err.Error())
	assert.False(t, te.Retryable)
	assert.Equal(t, 1, te.Attempts)
	assert.EqualValues(t, 1, calls.Load())
	assert.Empty(t, timer.Delays())
}

func TestExecute_TransportFailureRetriesUpToCeiling(t *testing.T) {
	var calls atomic.Int32
	hc := &http.Client{Transport: failingTransport(-1, connRefused, &calls)}

	e, timer := newTestEngine(t, "http://backend.invalid", nil, WithHTTPClient(hc))
	_, err := e.Execute(context.Background(), Request{Endpoint: "/users/me"})

	te := asError(t, err)
	assert.Equal(t, OutcomeConnectionRefused, te.Outcome)
	assert.Equal(t, 4, te.Attempts)
	assert.Equal(t, MsgNetwork, err.Error())
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.EqualValues(t, 4, calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, timer.Delays())
}

func TestExecute_DelaysAreCappedAtMaxDelay(t *testing.T) {
	var calls atomic.Int32
	hc := &http.Client{Transport: failingTransport(-1, connRefused, &calls)}

	timer := &recordingTimer{}
	cfg := DefaultConfig()
	cfg.BaseURL = "http://backend.invalid"
	cfg.MaxRetries = 5
	e := NewEngine(cfg, nil, logging.Discard(), WithHTTPClient(hc), WithTimer(func() backoff.Timer { return timer }))

	_, err := e.Execute(context.Background(), Request{Endpoint: "/users/me"})
	require.Error(t, err)
	assert.EqualValues(t, 6, calls.Load())
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 8 * time.Second,
	}, timer.Delays())
}

func TestExecute_RecoversAfterTransientFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var calls atomic.Int32
	dnsErr := &net.DNSError{Err: "no such host", Name: "backend", IsNotFound: true}
	hc := &http.Client{Transport: failingTransport(2, dnsErr, &calls)}

	m := metrics.NewCollector("ps")
	e, timer := newTestEngine(t, srv.URL, nil, WithHTTPClient(hc), WithMetrics(m))
	resp, err := e.Execute(context.Background(), Request{Endpoint: "/users/me"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, timer.Delays())

	lines, err := m.Summary()
	require.NoError(t, err)
	assert.Contains(t, lines, "ps_request_attempts_total{outcome=dns_failure} 2")
	assert.Contains(t, lines, "ps_request_attempts_total{outcome=ok} 1")
	assert.Contains(t, lines, "ps_request_retries_total 2")
	assert.Contains(t, lines, "ps_request_calls_total{result=ok} 1")
}

func TestExecute_NoRetrySingleAttempt(t *testing.T) {
	var calls atomic.Int32
	hc := &http.Client{Transport: failingTransport(-1, errors.New("connection reset by peer"), &calls)}

	e, timer := newTestEngine(t, "http://backend.invalid", nil, WithHTTPClient(hc))
	_, err := e.Execute(context.Background(), Request{Endpoint: "/health", NoRetry: true})

	te := asError(t, err)
	assert.Equal(t, OutcomeNetworkFailure, te.Outcome)
	assert.Equal(t, 1, te.Attempts)
	assert.EqualValues(t, 1, calls.Load())
	assert.Empty(t, timer.Delays())
}

func TestExecute_AttemptTimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-r.Context().Done()
	}))
	defer srv.Close()

	timer := &recordingTimer{}
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.ShortTimeout = 50 * time.Millisecond
	cfg.MaxRetries = 1
	e := NewEngine(cfg, nil, logging.Discard(), WithTimer(func() backoff.Timer { return timer }))

	_, err := e.Execute(context.Background(), Request{Endpoint: "/users/me"})
	te := asError(t, err)
	assert.Equal(t, OutcomeTimeout, te.Outcome)
	assert.Equal(t, MsgTimeout, err.Error())
	assert.Equal(t, 2, te.Attempts)
	assert.Equal(t, []time.Duration{time.Second}, timer.Delays())
}

func TestExecute_CallerCancellationIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, timer := newTestEngine(t, srv.URL, nil)
	_, err := e.Execute(ctx, Request{Endpoint: "/users/me"})

	te := asError(t, err)
	assert.Equal(t, OutcomeCanceled, te.Outcome)
	assert.True(t, errors.Is(err, ErrCanceled))
	assert.Equal(t, MsgCanceled, UserMessage(err))
	assert.Empty(t, timer.Delays())
	assert.EqualValues(t, 0, calls.Load())
}

func TestExecute_UnauthorizedInvalidatesSessionWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "stale"}
	e, timer := newTestEngine(t, srv.URL, tokens)
	_, err := e.Execute(context.Background(), Request{Endpoint: "/users/me"})

	te := asError(t, err)
	assert.Equal(t, http.StatusUnauthorized, te.Status)
	assert.Equal(t, MsgSessionExpired, err.Error())
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, 1, tokens.invalidated)
	_, ok := tokens.Token(context.Background())
	assert.False(t, ok)
	assert.EqualValues(t, 1, calls.Load())
	assert.Empty(t, timer.Delays())
}

func TestExecute_HTTPErrorsAreNeverRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"bad request detail string", 400, `{"detail":"Invalid URL"}`, "Invalid URL"},
		{"forbidden message", 403, `{"message":"Upgrade required"}`, "Upgrade required"},
		{"not found no body", 404, ``, "Not Found"},
		{"conflict error string", 409, `{"error":"Email already registered"}`, "Email already registered"},
		{"validation array", 422, `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address"}]}`, "value is not a valid email address"},
		{"server error nested", 500, `{"error":{"message":"database unavailable"}}`, "database unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			tokens := &fakeTokens{token: "tok"}
			e, timer := newTestEngine(t, srv.URL, tokens)
			_, err := e.Execute(context.Background(), Request{Endpoint: "/scans", Method: http.MethodPost})

			te := asError(t, err)
			assert.Equal(t, OutcomeHTTPStatus, te.Outcome)
			assert.Equal(t, tt.status, te.Status)
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, 1, te.Attempts)
			assert.EqualValues(t, 1, calls.Load())
			assert.Empty(t, timer.Delays())
			assert.Zero(t, tokens.invalidated)
		})
	}
}

func TestExecute_LongTimeoutForAIEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(100 * time.Millisecond):
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.ShortTimeout = 20 * time.Millisecond
	cfg.LongTimeout = 5 * time.Second
	e := NewEngine(cfg, nil, logging.Discard(), WithTimer(func() backoff.Timer { return &recordingTimer{} }))

	_, err := e.Execute(context.Background(), Request{Endpoint: "/ask", Method: http.MethodPost})
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), Request{Endpoint: "/ask", Timeout: TimeoutShort, NoRetry: true})
	assert.Equal(t, OutcomeTimeout, asError(t, err).Outcome)
}

func TestExecute_UnencodableBody(t *testing.T) {
	e, _ := newTestEngine(t, "http://backend.invalid", nil)
	_, err := e.Execute(context.Background(), Request{Endpoint: "/scans", Body: make(chan int)})
	te := asError(t, err)
	assert.Equal(t, OutcomeInvalidRequest, te.Outcome)
	assert.False(t, te.Retryable)
}
