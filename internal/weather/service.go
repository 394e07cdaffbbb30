package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"
)

// MaxAttempts bounds the attempts made against each endpoint per cycle.
const MaxAttempts = 3

// State is a step of the acquisition state machine.
type State int

const (
	StateIdle State = iota
	StateFetchingCurrent
	StateFetchingForecast
	StateFetchingAirQuality
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingCurrent:
		return "fetching_current"
	case StateFetchingForecast:
		return "fetching_forecast"
	case StateFetchingAirQuality:
		return "fetching_air_quality"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome summarises a cycle for the renderer.
type Outcome int

const (
	OutcomeComplete Outcome = iota
	OutcomePartial
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomePartial:
		return "partial"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RetryConfig controls the per-attempt budget and the pause between attempts.
// A zero Backoff retries immediately.
type RetryConfig struct {
	AttemptTimeout time.Duration
	Backoff        time.Duration
	MaxBackoff     time.Duration
}

// Result is everything one acquisition produced. It is never shared between
// cycles.
type Result struct {
	Model      Model      `json:"model"`
	AirQuality AirQuality `json:"airQuality"`

	CurrentStatus    Status `json:"currentStatus"`
	ForecastStatus   Status `json:"forecastStatus"`
	AirQualityStatus Status `json:"airQualityStatus"`

	Outcome Outcome      `json:"outcome"`
	State   State        `json:"state"`
	Error   *ErrorScreen `json:"error,omitempty"`
}

// Service fetches the three endpoints in order and reconciles them into one
// Model.
type Service struct {
	transport Transport
	link      Link
	endpoints Endpoints
	location  *time.Location
	retry     RetryConfig
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithLocation sets the time zone used to bucket forecast samples into days.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

// WithRetry sets the attempt timeout and backoff.
func WithRetry(cfg RetryConfig) Option {
	return func(s *Service) { s.retry = cfg }
}

// WithClock overrides the clock used for the air quality window.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service.
func NewService(transport Transport, link Link, endpoints Endpoints, opts ...Option) *Service {
	s := &Service{
		transport: transport,
		link:      link,
		endpoints: endpoints,
		location:  time.Local,
		retry:     RetryConfig{AttemptTimeout: 30 * time.Second},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire runs one acquisition: current weather, then forecast, then air
// quality. Both weather endpoints are always attempted. The returned error
// wraps ErrWeatherUnavailable or ErrAirQualityUnavailable on terminal failure;
// the Result is returned either way.
func (s *Service) Acquire(ctx context.Context) (*Result, error) {
	res := &Result{State: StateIdle}
	if cs, ok := s.transport.(CycleScoped); ok {
		cs.StartCycle()
	}

	s.transition(res, StateFetchingCurrent)
	var current Current
	res.CurrentStatus = s.fetch(ctx, EndpointCurrent, s.endpoints.CurrentURL(), func(r io.Reader) error {
		return DecodeCurrent(r, &current)
	})

	s.transition(res, StateFetchingForecast)
	res.ForecastStatus = s.fetch(ctx, EndpointForecast, s.endpoints.ForecastURL(), func(r io.Reader) error {
		return DecodeForecast(r, s.location, &res.Model)
	})

	if err := s.reconcile(res, current); err != nil {
		s.transition(res, StateFailed)
		return res, err
	}

	s.transition(res, StateFetchingAirQuality)
	end := s.now().Unix()
	start := end - (3600*AirQualityCapacity - 1)
	res.AirQualityStatus = s.fetch(ctx, EndpointAirQuality, s.endpoints.AirQualityURL(start, end), func(r io.Reader) error {
		return DecodeAirQuality(r, &res.AirQuality)
	})
	if !res.AirQualityStatus.OK() {
		res.AirQuality = AirQuality{}
		res.Outcome = OutcomeFailed
		res.Error = &ErrorScreen{
			Status: "Air Pollution API",
			Detail: res.AirQualityStatus.String(),
		}
		s.transition(res, StateFailed)
		return res, errors.Join(ErrAirQualityUnavailable,
			&FetchError{Endpoint: EndpointAirQuality, Status: res.AirQualityStatus})
	}

	s.transition(res, StateDone)
	return res, nil
}

// reconcile merges the two weather sources into res.Model.
func (s *Service) reconcile(res *Result, current Current) error {
	currentOK := res.CurrentStatus.OK()
	forecastOK := res.ForecastStatus.OK()

	switch {
	case currentOK && forecastOK:
		log.Printf("INFO: both weather APIs succeeded; using current weather endpoint for now")
		res.Model.Current = current
		res.Outcome = OutcomeComplete
	case !currentOK && forecastOK:
		log.Printf("INFO: current weather API failed (%s); using first forecast sample", res.CurrentStatus)
		res.Outcome = OutcomePartial
	case currentOK && !forecastOK:
		log.Printf("INFO: forecast API failed (%s); hourly and daily data cleared", res.ForecastStatus)
		res.Model = Model{}
		res.Model.Current = current
		res.Model.ClearForecast()
		res.Outcome = OutcomePartial
	default:
		log.Printf("ERROR: weather APIs failed: current %s, forecast %s", res.CurrentStatus, res.ForecastStatus)
		res.Model = Model{}
		res.Outcome = OutcomeFailed
		res.Error = &ErrorScreen{
			Status: "Weather APIs Failed",
			Detail: fmt.Sprintf("Current: %d, Forecast: %d", int(res.CurrentStatus), int(res.ForecastStatus)),
		}
		return errors.Join(ErrWeatherUnavailable,
			&FetchError{Endpoint: EndpointCurrent, Status: res.CurrentStatus},
			&FetchError{Endpoint: EndpointForecast, Status: res.ForecastStatus})
	}
	return nil
}

func (s *Service) transition(res *Result, next State) {
	log.Printf("DEBUG: acquisition %s -> %s", res.State, next)
	res.State = next
}

// fetch runs up to MaxAttempts attempts against one endpoint and returns the
// last status. A disconnected link ends the loop immediately.
func (s *Service) fetch(ctx context.Context, ep Endpoint, rawURL string, decode func(io.Reader) error) Status {
	log.Printf("INFO: requesting %s: %s", ep, s.endpoints.Redact(rawURL))

	var status Status
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if ls := s.link.Status(); ls != LinkConnected {
			status = ConnectivityStatus(ls)
			log.Printf("ERROR: %s: link not connected: %s", ep, status)
			return status
		}

		status = s.attempt(ctx, rawURL, decode)
		log.Printf("INFO: %s attempt %d/%d: %s", ep, attempt, MaxAttempts, status)
		if status.OK() {
			return status
		}

		if attempt < MaxAttempts {
			if err := s.pause(ctx, attempt); err != nil {
				return status
			}
		}
	}
	return status
}

func (s *Service) attempt(ctx context.Context, rawURL string, decode func(io.Reader) error) Status {
	if s.retry.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.retry.AttemptTimeout)
		defer cancel()
	}

	resp, err := s.transport.Get(ctx, rawURL)
	if err != nil {
		return transportStatus(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status(resp.StatusCode)
	}

	if err := decode(resp.Body); err != nil {
		log.Printf("ERROR: %v", err)
		var de *DecodeError
		if errors.As(err, &de) {
			return DecodeStatus(de.Code)
		}
		return DecodeStatus(DecodeInvalidInput)
	}
	return StatusOK
}

// pause waits before the next attempt with exponential backoff.
func (s *Service) pause(ctx context.Context, attempt int) error {
	if s.retry.Backoff <= 0 {
		return ctx.Err()
	}
	delay := s.retry.Backoff << (attempt - 1)
	if s.retry.MaxBackoff > 0 && delay > s.retry.MaxBackoff {
		delay = s.retry.MaxBackoff
	}

	timer := time.NewTimer(delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func transportStatus(err error) Status {
	var te *TransportError
	if errors.As(err, &te) {
		return Status(te.Code)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Status(TransportReadTimeout)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Status(TransportReadTimeout)
	}
	return Status(TransportConnectionRefused)
}
