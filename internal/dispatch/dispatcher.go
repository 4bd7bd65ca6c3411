package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/uipbdi/authgw/internal/observability"
)

// Token is an opaque correlation token identifying one in-flight
// authorization call. It binds a completion to the request that initiated
// the call.
type Token string

// CompletionFunc is invoked exactly once per successful dispatch with the
// correlation token, the gRPC status code of the call, and the raw reply
// bytes. On a failed call the body is nil.
type CompletionFunc func(token Token, status uint32, body []byte)

// Dispatcher issues asynchronous authorization calls.
type Dispatcher interface {
	// Dispatch sends the serialized authorization payload to the backend.
	// It returns immediately with a correlation token; the completion
	// callback is invoked later from another goroutine. A returned error
	// means the call was never issued and no completion will follow.
	Dispatch(ctx context.Context, payload []byte, complete CompletionFunc) (Token, error)

	// Close releases the dispatcher's connections.
	Close() error
}

// BreakerSettings configures the optional dispatch circuit breaker.
type BreakerSettings struct {
	// MinRequests is the minimum number of calls before the failure ratio
	// is evaluated.
	MinRequests uint32

	// FailureRatio is the failure ratio that trips the breaker.
	FailureRatio float64

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// grpcDispatcher implements Dispatcher over a pooled gRPC connection.
type grpcDispatcher struct {
	target  TargetEndpoint
	timeout time.Duration
	pool    *ConnectionPool
	breaker *gobreaker.TwoStepCircuitBreaker
	logger  observability.Logger
	metrics *Metrics
	closed  atomic.Bool
}

// DispatcherOption is a functional option for the dispatcher.
type DispatcherOption func(*grpcDispatcher)

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(logger observability.Logger) DispatcherOption {
	return func(d *grpcDispatcher) {
		d.logger = logger
	}
}

// WithDispatcherMetrics sets the metrics.
func WithDispatcherMetrics(metrics *Metrics) DispatcherOption {
	return func(d *grpcDispatcher) {
		d.metrics = metrics
	}
}

// WithDispatcherPool sets the connection pool.
func WithDispatcherPool(pool *ConnectionPool) DispatcherOption {
	return func(d *grpcDispatcher) {
		d.pool = pool
	}
}

// WithBreaker enables a circuit breaker around dispatch. While the breaker
// is open, Dispatch fails synchronously so callers fall back to their
// dispatch-error path instead of waiting out the call timeout.
func WithBreaker(settings BreakerSettings) DispatcherOption {
	return func(d *grpcDispatcher) {
		d.breaker = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
			Name:    "authz-dispatch",
			Timeout: settings.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < settings.MinRequests {
					return false
				}
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return ratio >= settings.FailureRatio
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				d.logger.Info("dispatch circuit breaker state change",
					observability.String("name", name),
					observability.String("from", from.String()),
					observability.String("to", to.String()),
				)
				d.metrics.SetBreakerState(int(to))
			},
		})
	}
}

// New creates a dispatcher for the given target with a fixed per-call
// timeout.
func New(target TargetEndpoint, timeout time.Duration, opts ...DispatcherOption) (Dispatcher, error) {
	if timeout <= 0 {
		return nil, errors.New("timeout must be positive")
	}

	d := &grpcDispatcher{
		target:  target,
		timeout: timeout,
		logger:  observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.pool == nil {
		d.pool = NewConnectionPool(WithPoolLogger(d.logger))
	}
	if d.metrics == nil {
		d.metrics = NewMetrics("authgw")
	}

	return d, nil
}

// Dispatch issues one authorization call.
func (d *grpcDispatcher) Dispatch(ctx context.Context, payload []byte, complete CompletionFunc) (Token, error) {
	if complete == nil {
		return "", errors.New("completion callback is required")
	}
	if d.closed.Load() {
		return "", ErrDispatcherClosed
	}

	var breakerDone func(bool)
	if d.breaker != nil {
		done, err := d.breaker.Allow()
		if err != nil {
			d.metrics.RecordDispatch("rejected")
			return "", &DispatchError{Target: d.target.Cluster(), Err: ErrCircuitOpen}
		}
		breakerDone = done
	}

	conn, err := d.pool.Get(d.target.Address())
	if err != nil {
		if breakerDone != nil {
			breakerDone(false)
		}
		d.metrics.RecordDispatch("failed")
		return "", &DispatchError{Target: d.target.Cluster(), Err: err}
	}

	token := Token(uuid.New().String())
	d.metrics.RecordDispatch("dispatched")
	d.metrics.IncInflight()

	go d.call(ctx, conn, token, payload, complete, breakerDone)

	return token, nil
}

// call performs the blocking RPC and delivers the single completion.
func (d *grpcDispatcher) call(
	ctx context.Context,
	conn *grpc.ClientConn,
	token Token,
	payload []byte,
	complete CompletionFunc,
	breakerDone func(bool),
) {
	defer d.metrics.DecInflight()

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	reply := &Frame{}
	err := conn.Invoke(callCtx, FullMethod, NewFrame(payload), reply)
	code := status.Code(err)
	d.metrics.RecordCall(code.String(), time.Since(start))

	if breakerDone != nil {
		breakerDone(err == nil)
	}

	if err != nil {
		d.logger.Warn("authorization call failed",
			observability.String("target", d.target.Cluster()),
			observability.String("code", code.String()),
			observability.Duration("elapsed", time.Since(start)),
			observability.Error(err),
		)
		complete(token, uint32(code), nil)
		return
	}

	complete(token, uint32(codes.OK), reply.Payload())
}

// Close closes the dispatcher. In-flight calls still deliver their
// completions, with a transport error status once the connections are gone.
func (d *grpcDispatcher) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	return d.pool.Close()
}

// Ensure grpcDispatcher implements Dispatcher.
var _ Dispatcher = (*grpcDispatcher)(nil)
