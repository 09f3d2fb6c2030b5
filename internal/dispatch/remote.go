package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/outcome"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/propagation"
)

var errServerFailure = errors.New("remote server error")

// RemoteConfig configures the HTTP dispatcher.
type RemoteConfig struct {
	// Endpoints maps each remote kind to its base URL.
	Endpoints map[model.Kind]string
	// UserAgent identifies the calling process.
	UserAgent string
	// Timeout bounds one HTTP exchange. Zero means no timeout.
	Timeout time.Duration
	// Breaker configures the per-kind circuit breakers.
	Breaker BreakerConfig
}

// BreakerConfig holds configuration for the circuit breakers.
type BreakerConfig struct {
	// MaxRequests is the maximum number of requests allowed in the half-open state.
	MaxRequests uint32
	// Interval is the cyclic period of the closed state for clearing internal counts.
	Interval time.Duration
	// Timeout is how long a breaker stays open before moving to half-open.
	Timeout time.Duration
	// FailureRatio is the ratio of failures to total requests that trips the breaker.
	FailureRatio float64
	// MinRequests is the minimum number of requests needed before the failure ratio is evaluated.
	MinRequests uint32
}

// DefaultBreakerConfig returns the breaker settings used when none are given.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// Remote invokes kinds served by other processes over HTTP. Each kind has its
// own circuit breaker; an open breaker fails the call immediately.
type Remote struct {
	client     *resty.Client
	endpoints  map[model.Kind]string
	breakers   map[model.Kind]*gobreaker.CircuitBreaker[*resty.Response]
	propagator propagation.TextMapPropagator
}

// NewRemote creates a Remote dispatcher.
func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.Breaker == (BreakerConfig{}) {
		cfg.Breaker = DefaultBreakerConfig()
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json")

	r := &Remote{
		client:     client,
		endpoints:  make(map[model.Kind]string, len(cfg.Endpoints)),
		breakers:   make(map[model.Kind]*gobreaker.CircuitBreaker[*resty.Response], len(cfg.Endpoints)),
		propagator: propagation.TraceContext{},
	}
	for kind, base := range cfg.Endpoints {
		r.endpoints[kind] = strings.TrimRight(base, "/")
		r.breakers[kind] = newBreaker("dispatch-"+kind.String(), cfg.Breaker)
	}
	return r
}

func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker[*resty.Response] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	metrics.BreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[*resty.Response](settings)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (r *Remote) Invoke(ctx context.Context, req Request) outcome.Outcome {
	base, ok := r.endpoints[req.Kind]
	if !ok {
		slog.ErrorContext(ctx, "no endpoint configured", slog.String("kind", req.Kind.String()))
		return outcome.Internal()
	}
	target := r.url(base, req)

	call := r.client.R().SetContext(ctx)
	if len(req.Query) > 0 {
		call.SetQueryParamsFromValues(req.Query)
	}
	carrier := propagation.HeaderCarrier(http.Header{})
	r.propagator.Inject(ctx, carrier)
	for _, key := range carrier.Keys() {
		call.SetHeader(key, carrier.Get(key))
	}
	if req.Payload != nil {
		body, err := marshalPayload(req.Payload)
		if err != nil {
			slog.ErrorContext(ctx, "failed to marshal payload", slog.String("kind", req.Kind.String()), slog.Any("err", err))
			return outcome.Internal()
		}
		call.SetHeader("Content-Type", "application/json").SetBody([]byte(body))
	}

	resp, err := r.breakers[req.Kind].Execute(func() (*resty.Response, error) {
		resp, err := call.Execute(req.method(), target)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return resp, errServerFailure
		}
		return resp, nil
	})
	if err != nil && (resp == nil || !errors.Is(err, errServerFailure)) {
		slog.ErrorContext(ctx, "remote call failed",
			slog.String("kind", req.Kind.String()),
			slog.String("method", req.method()),
			slog.String("url", target),
			slog.Any("err", err),
		)
		return outcome.Internal()
	}

	body := resp.Body()
	if !json.Valid(body) {
		slog.ErrorContext(ctx, "unparsable remote response",
			slog.String("kind", req.Kind.String()),
			slog.String("url", target),
			slog.Int("status", resp.StatusCode()),
		)
		return outcome.Internal()
	}
	return outcome.New(resp.StatusCode(), json.RawMessage(body))
}

func (r *Remote) url(base string, req Request) string {
	if req.Key == 0 {
		return base
	}
	target := base + "/" + strconv.FormatInt(req.Key, 10)
	if req.Item != 0 {
		target += "/" + strconv.FormatInt(req.Item, 10)
	}
	return target
}
