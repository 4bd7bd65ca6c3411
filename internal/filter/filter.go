package filter

import (
	"net/http"
	"strings"
	"time"

	"google.golang.org/grpc/codes"

	"github.com/uipbdi/authgw/internal/authwire"
	"github.com/uipbdi/authgw/internal/dispatch"
	"github.com/uipbdi/authgw/internal/observability"
)

// Filter is the per-request authorization state machine. One instance
// serves exactly one HTTP request and is never shared.
type Filter struct {
	host     Host
	logger   observability.Logger
	metrics  *Metrics
	observer Observer

	state          State
	pending        dispatch.Token
	message        string
	transientBytes int
	dispatchedAt   time.Time
}

// Option is a functional option for the filter.
type Option func(*Filter)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(f *Filter) {
		f.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(f *Filter) {
		f.metrics = metrics
	}
}

// WithObserver sets the memory observer.
func WithObserver(observer Observer) Option {
	return func(f *Filter) {
		f.observer = observer
	}
}

// New creates a filter instance bound to one request's host.
func New(host Host, opts ...Option) *Filter {
	f := &Filter{
		host:     host,
		logger:   observability.NopLogger(),
		observer: NopObserver(),
		state:    StateIdle,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// State returns the current lifecycle state.
func (f *Filter) State() State {
	return f.state
}

// OnRequestHeaders is invoked by the host when the request headers are
// available. It builds and dispatches the authorization request and pauses
// the request on success. Local failures fall open: the request proceeds
// unauthorized.
func (f *Filter) OnRequestHeaders() Action {
	if f.state != StateIdle {
		f.logger.Warn("request headers hook in unexpected state",
			observability.String("state", f.state.String()),
		)
		return ActionContinue
	}

	f.observer.RequestStart()

	mapping := TransformHeaders(f.host.VisitRequestHeaders)
	f.transientBytes = mappingBytes(mapping)
	f.observer.HeaderMappingBuilt(f.transientBytes)

	method, _ := f.host.RequestHeader(":method")
	path, _ := f.host.RequestHeader(":path")
	scheme, _ := f.host.RequestHeader(":scheme")

	payload, err := BuildAuthorizationPayload(method, path, scheme, mapping)
	if err != nil {
		f.logger.Error("failed to serialize authorization request, failing open",
			observability.Error(err),
		)
		f.metrics.RecordDecision(OutcomeFailOpenEncode)
		f.finish(StateResumed)
		return ActionContinue
	}
	f.transientBytes += len(payload)
	f.observer.PayloadSerialized(len(payload))

	token, err := f.host.DispatchAuthorization(payload)
	if err != nil {
		// Dispatch-layer rejections (breaker open, closed dispatcher) are
		// expected operational conditions, not gateway faults.
		log := f.logger.Error
		if dispatch.IsDispatchError(err) {
			log = f.logger.Warn
		}
		log("failed to dispatch authorization request, failing open",
			observability.Error(err),
		)
		f.metrics.RecordDecision(OutcomeFailOpenDispatch)
		f.finish(StateResumed)
		return ActionContinue
	}

	f.pending = token
	f.dispatchedAt = time.Now()
	f.state = StateAwaitingAuthorization

	f.logger.Debug("authorization dispatched, request paused",
		observability.String("token", string(token)),
		observability.String("method", method),
		observability.String("path", path),
	)

	return ActionPause
}

// OnAuthorizationReply is invoked by the host exactly once per dispatched
// call with the correlation token, the call status, and the reply body
// length. It performs the single terminal action for the request.
func (f *Filter) OnAuthorizationReply(token dispatch.Token, status uint32, bodyLen int) {
	if f.state != StateAwaitingAuthorization {
		f.logger.Warn("authorization reply in unexpected state, ignoring",
			observability.String("state", f.state.String()),
			observability.String("token", string(token)),
		)
		return
	}
	if token != f.pending {
		f.logger.Warn("authorization reply with unknown token, ignoring",
			observability.String("token", string(token)),
		)
		return
	}

	f.metrics.RecordAuthorizationDuration(time.Since(f.dispatchedAt))

	body, ok := f.host.AuthorizationReplyBody(bodyLen)
	if status != uint32(codes.OK) || !ok || len(body) == 0 {
		f.logger.Error("no authorization response",
			observability.Uint32("status", status),
			observability.Int("body_len", bodyLen),
		)
		f.reject(http.StatusInternalServerError, nil, errorBody, OutcomeError)
		return
	}

	var reply authwire.CheckReply
	if err := reply.Unmarshal(body); err != nil {
		f.logger.Error("failed to decode authorization reply",
			observability.Error(err),
			observability.ByteStr("raw", body),
		)
		f.reject(http.StatusInternalServerError, nil, errorBody, OutcomeError)
		return
	}

	if !reply.Allow {
		f.logger.Info("request denied by authorization engine",
			observability.String("message", reply.Message),
		)
		f.reject(http.StatusUnauthorized,
			map[string]string{WWWAuthenticateHeader: reply.Message},
			deniedBody, OutcomeDenied)
		return
	}

	user := reply.User
	if strings.TrimSpace(user) == "" {
		// A single space keeps the header present while distinguishing it
		// from an absent one.
		user = " "
	}
	f.host.SetRequestHeader(UserHeader, user)
	f.message = reply.Message
	f.metrics.RecordDecision(OutcomeAllowed)

	f.logger.Debug("request authorized",
		observability.String("user", reply.User),
	)

	f.finish(StateResumed)
	f.host.Resume()
}

// OnResponseHeaders is invoked by the host when the upstream response
// headers are available, after the request was resumed. It attaches the
// retained authorization message, if any.
func (f *Filter) OnResponseHeaders() Action {
	if f.state == StateResumed && f.message != "" {
		f.host.SetResponseHeader(AuthMessageHeader, f.message)
	}
	return ActionContinue
}

// OnStreamComplete is invoked by the host when the HTTP stream is torn
// down. Transient buffers still accounted at this point indicate a request
// that ended without reaching a terminal state.
func (f *Filter) OnStreamComplete() {
	f.observer.RequestEnd(f.transientBytes)
}

// reject emits the terminal HTTP response and moves to the rejected state.
func (f *Filter) reject(status int, headers map[string]string, body string, outcome string) {
	f.metrics.RecordDecision(outcome)
	f.finish(StateRejected)
	f.host.SendResponse(status, headers, []byte(body))
}

// finish transitions to a terminal state and releases the request's
// transient buffer accounting.
func (f *Filter) finish(state State) {
	f.state = state
	f.transientBytes = 0
}
