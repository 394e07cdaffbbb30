package providers

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/i474232898/epd-weather/internal/common"
	"github.com/i474232898/epd-weather/internal/weather"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// TransportMode selects how the HTTP client talks to the API host.
type TransportMode string

const (
	ModeHTTP          TransportMode = "http"
	ModeHTTPSInsecure TransportMode = "https-insecure"
	ModeHTTPSVerify   TransportMode = "https-verify"
)

// Scheme returns the URL scheme matching the mode.
func (m TransportMode) Scheme() string {
	if m == ModeHTTP {
		return "http"
	}
	return "https"
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Mode       TransportMode
	CACertFile string
	// Timeout bounds connect and response header read of one attempt.
	Timeout time.Duration
	// RateLimit is the request budget in requests per second; zero disables it.
	RateLimit float64
	Burst     int
	// Client overrides the constructed client. Used by tests.
	Client *http.Client
}

var (
	errServerError = errors.New("server error")
	errNoCACert    = errors.New("no usable certificate in CA file")
)

// breakerThreshold is the number of consecutive failures that opens an
// endpoint's breaker. It is above weather.MaxAttempts so the breaker never
// cuts an acquisition's retry budget short.
const breakerThreshold = weather.MaxAttempts + 1

// HTTPTransport implements weather.Transport over net/http with a circuit
// breaker per endpoint and a rate limiter in front of the API host. Failures
// are reported as *weather.TransportError so the caller can map them to a
// status code.
type HTTPTransport struct {
	client  *http.Client
	limiter *rate.Limiter

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

var (
	_ weather.Transport   = (*HTTPTransport)(nil)
	_ weather.CycleScoped = (*HTTPTransport)(nil)
)

func NewHTTPTransport(cfg HTTPClientConfig) (*HTTPTransport, error) {
	client := cfg.Client
	if client == nil {
		var err error
		client, err = newHTTPClient(cfg)
		if err != nil {
			return nil, err
		}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &HTTPTransport{
		client:   client,
		limiter:  limiter,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}, nil
}

// StartCycle drops every breaker so a new wake cycle starts closed.
func (t *HTTPTransport) StartCycle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.breakers = make(map[string]*gobreaker.CircuitBreaker)
}

// breaker returns the breaker for the endpoint rawURL points at.
func (t *HTTPTransport) breaker(rawURL string) *gobreaker.CircuitBreaker {
	key := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		key = u.Host + u.Path
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if cb, ok := t.breakers[key]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        key,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("INFO: circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	t.breakers[key] = cb
	return cb
}

func newHTTPClient(cfg HTTPClientConfig) (*http.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          4,
		IdleConnTimeout:       30 * time.Second,
	}

	switch cfg.Mode {
	case ModeHTTP:
	case ModeHTTPSInsecure, "":
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	case ModeHTTPSVerify:
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.CACertFile != "" {
			pem, err := os.ReadFile(cfg.CACertFile)
			if err != nil {
				return nil, fmt.Errorf("read CA file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("%w: %s", errNoCACert, cfg.CACertFile)
			}
			tlsCfg.RootCAs = pool
		}
		transport.TLSClientConfig = tlsCfg
	default:
		return nil, fmt.Errorf("unknown transport mode %q", cfg.Mode)
	}

	return &http.Client{Transport: transport}, nil
}

// Get issues a GET request. Non-2xx responses are returned, not treated as
// errors; 5xx responses still count against the circuit breaker.
func (t *HTTPTransport) Get(ctx context.Context, rawURL string) (*weather.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &weather.TransportError{Code: weather.TransportReadTimeout, Err: fmt.Errorf("rate limit wait canceled: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &weather.TransportError{Code: weather.TransportConnectionRefused, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	var resp *http.Response
	_, err = t.breaker(rawURL).Execute(func() (interface{}, error) {
		r, execErr := t.client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		resp = r
		if r.StatusCode >= 500 {
			return nil, errServerError
		}
		return r, nil
	})

	switch {
	case err == nil, errors.Is(err, errServerError):
		return &weather.Response{StatusCode: resp.StatusCode, Body: resp.Body}, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, &weather.TransportError{Code: weather.TransportNotConnected, Err: err}
	default:
		return nil, &weather.TransportError{Code: classifyTransportError(err), Err: err}
	}
}

// classifyTransportError maps a net/http client error to an HTTP client
// transport code.
func classifyTransportError(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return weather.TransportReadTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return weather.TransportReadTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return weather.TransportConnectionRefused
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return weather.TransportConnectionRefused
	}

	msg := err.Error()
	switch {
	case common.HasAny(msg, "connection refused", "certificate", "tls:", "x509"):
		return weather.TransportConnectionRefused
	case common.HasAny(msg, "connection reset", "broken pipe", "EOF"):
		return weather.TransportConnectionLost
	case errors.Is(err, context.Canceled):
		return weather.TransportNotConnected
	default:
		return weather.TransportConnectionLost
	}
}
