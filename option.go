package discussions

import (
	"log/slog"
	"time"

	"github.com/rbaliyan/event/v3/transport"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rbaliyan/discussions/retry"
	"github.com/rbaliyan/discussions/store"
)

// Default configuration values.
const (
	DefaultShutdownTimeout = 30 * time.Second
	MinShutdownTimeout     = 1 * time.Second

	// Compose limits
	DefaultMaxSubjectLength  = 255
	DefaultMaxBodySize       = 1 * 1024 * 1024 // 1 MB
	DefaultMaxRecipientCount = 100

	// Query limits
	DefaultMaxQueryLimit = 100
	DefaultQueryLimit    = 20

	// Concurrency limits
	DefaultMaxConcurrentComposes = 10
)

// options holds discussions service configuration.
type options struct {
	store  store.Store
	logger *slog.Logger

	// Compose limits
	maxSubjectLength  int
	maxBodySize       int
	maxRecipientCount int

	// Query limits
	maxQueryLimit     int
	defaultQueryLimit int

	// Concurrency limits
	maxConcurrentComposes int

	// Shutdown
	shutdownTimeout time.Duration

	// Behavior
	replyResetsRead bool

	// Compose retry for transient store failures
	composeRetry *retry.Config

	// OpenTelemetry
	tracingEnabled bool
	metricsEnabled bool
	serviceName    string
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	// Event handling
	eventErrorsFatal      bool
	eventTransport        transport.Transport
	redisClient           redis.UniversalClient
	onEventPublishFailure EventPublishFailureFunc
}

// EventPublishFailureFunc is called when an event fails to publish.
type EventPublishFailureFunc func(eventName string, err error)

// safeEventPublishFailure calls the event failure callback with panic
// recovery so a broken handler cannot take down the operation.
func (o *options) safeEventPublishFailure(eventName string, err error) {
	if o.onEventPublishFailure == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic in event publish failure handler",
				"event", eventName,
				"original_error", err,
				"panic", r,
			)
		}
	}()
	o.onEventPublishFailure(eventName, err)
}

// newOptions creates options with defaults and applies provided options.
func newOptions(opts ...Option) *options {
	o := &options{
		logger:                slog.Default(),
		maxSubjectLength:      DefaultMaxSubjectLength,
		maxBodySize:           DefaultMaxBodySize,
		maxRecipientCount:     DefaultMaxRecipientCount,
		maxQueryLimit:         DefaultMaxQueryLimit,
		defaultQueryLimit:     DefaultQueryLimit,
		maxConcurrentComposes: DefaultMaxConcurrentComposes,
		shutdownTimeout:       DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.defaultQueryLimit > o.maxQueryLimit {
		o.defaultQueryLimit = o.maxQueryLimit
	}

	if o.onEventPublishFailure == nil {
		o.onEventPublishFailure = func(eventName string, err error) {
			o.logger.Error("failed to publish event", "event", eventName, "error", err)
		}
	}

	return o
}

// Option configures the discussions service.
type Option func(*options)

// --- Core Options ---

// WithStore sets the storage backend (required).
func WithStore(s store.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// --- Behavior Options ---

// WithReplyResetsRead configures whether a reply flips every recipient
// except the replying user back to unread. Disabled by default: a reply
// does not change anyone's read status.
func WithReplyResetsRead(enabled bool) Option {
	return func(o *options) {
		o.replyResetsRead = enabled
	}
}

// WithComposeRetry enables retrying compose operations on transient
// store failures with the given backoff configuration. Validation
// errors and other permanent failures are never retried.
func WithComposeRetry(cfg retry.Config) Option {
	return func(o *options) {
		o.composeRetry = &cfg
	}
}

// --- OTel Options ---

// WithTracing enables or disables OpenTelemetry tracing.
// Default is disabled.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
	}
}

// WithMetrics enables or disables OpenTelemetry metrics.
// Default is disabled.
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metricsEnabled = enabled
	}
}

// WithOTel enables both OpenTelemetry tracing and metrics.
func WithOTel(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
		o.metricsEnabled = enabled
	}
}

// WithServiceName sets the service name for telemetry and event bus
// naming. Default is "discussions".
func WithServiceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.serviceName = name
		}
	}
}

// WithTracerProvider sets a custom OpenTelemetry tracer provider.
// Default uses the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithMeterProvider sets a custom OpenTelemetry meter provider.
// Default uses the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// --- Compose Limit Options ---

// WithMaxSubjectLength sets the maximum subject length in bytes.
// Default is 255.
func WithMaxSubjectLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSubjectLength = n
		}
	}
}

// WithMaxBodySize sets the maximum body size in bytes.
// Default is 1 MB.
func WithMaxBodySize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodySize = n
		}
	}
}

// WithMaxRecipients sets the maximum number of recipients per
// discussion. Default is 100.
func WithMaxRecipients(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRecipientCount = n
		}
	}
}

// --- Query Limit Options ---

// WithMaxQueryLimit sets the maximum number of entries per list query.
// Requests above the limit are capped. Default is 100.
func WithMaxQueryLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxQueryLimit = n
		}
	}
}

// WithDefaultQueryLimit sets the default number of entries per list
// query when no limit is specified. Default is 20.
func WithDefaultQueryLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.defaultQueryLimit = n
		}
	}
}

// --- Concurrency Options ---

// WithMaxConcurrentComposes sets the maximum number of concurrent
// compose operations. Default is 10.
func WithMaxConcurrentComposes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConcurrentComposes = n
		}
	}
}

// WithShutdownTimeout sets the maximum time to wait for in-flight
// operations during graceful shutdown. Default is 30 seconds.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= MinShutdownTimeout {
			o.shutdownTimeout = d
		}
	}
}

// --- Event Options ---

// WithEventErrorsFatal configures whether event publishing failures
// cause the operation to fail. By default failures are logged and the
// operation succeeds.
func WithEventErrorsFatal(fatal bool) Option {
	return func(o *options) {
		o.eventErrorsFatal = fatal
	}
}

// WithEventTransport sets the event transport for publishing and
// subscribing. If not provided, a noop transport is used.
func WithEventTransport(t transport.Transport) Option {
	return func(o *options) {
		if t != nil {
			o.eventTransport = t
		}
	}
}

// WithRedisClient sets a Redis client for the event transport.
// Compatible with *redis.Client, *redis.ClusterClient, and
// redis.UniversalClient.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) {
		if client != nil {
			o.redisClient = client
		}
	}
}

// WithEventPublishFailureHandler sets a callback for event publishing
// failures, invoked when eventErrorsFatal is false. By default failures
// are logged using the configured logger.
func WithEventPublishFailureHandler(fn EventPublishFailureFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.onEventPublishFailure = fn
		}
	}
}

// getLimits returns the configured compose limits.
func (o *options) getLimits() Limits {
	return Limits{
		MaxSubjectLength:  o.maxSubjectLength,
		MaxBodySize:       o.maxBodySize,
		MaxRecipientCount: o.maxRecipientCount,
	}
}
