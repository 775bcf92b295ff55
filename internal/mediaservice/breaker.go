package mediaservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	mediaOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "media_operations_total",
		Help: "Blob store operations by kind and outcome.",
	}, []string{"operation", "outcome"})

	mediaDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "media_operation_duration_seconds",
		Help:    "Duration of blob store operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// Guarded wraps a Store with a circuit breaker and records metrics for every
// call. When the provider keeps failing, calls fail fast with
// gobreaker.ErrOpenState until the breaker half-opens again.
type Guarded struct {
	store  Store
	cb     *gobreaker.CircuitBreaker[Asset]
	logger *slog.Logger
}

func NewGuarded(store Store, cfg BreakerConfig, logger *slog.Logger) *Guarded {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("media store breaker changed state", slog.String("name", name), slog.String("from", from.String()), slog.String("to", to.String()))
		},
	}

	return &Guarded{
		store:  store,
		cb:     gobreaker.NewCircuitBreaker[Asset](settings),
		logger: logger,
	}
}

func (g *Guarded) Upload(ctx context.Context, img Image) (Asset, error) {
	start := time.Now()
	asset, err := g.cb.Execute(func() (Asset, error) {
		return g.store.Upload(ctx, img)
	})
	observe("upload", start, err)
	return asset, err
}

func (g *Guarded) Destroy(ctx context.Context, id string) error {
	start := time.Now()
	_, err := g.cb.Execute(func() (Asset, error) {
		return Asset{ID: id}, g.store.Destroy(ctx, id)
	})
	observe("destroy", start, err)
	return err
}

// State reports the breaker state for health checks.
func (g *Guarded) State() string {
	return g.cb.State().String()
}

func observe(op string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	mediaOperations.WithLabelValues(op, outcome).Inc()
	mediaDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
