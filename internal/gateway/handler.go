package gateway

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/uipbdi/authgw/internal/dispatch"
	"github.com/uipbdi/authgw/internal/filter"
	"github.com/uipbdi/authgw/internal/observability"
)

// contextKey is the type for context keys owned by this package.
type contextKey string

// hostContextKey carries the per-request host through the reverse proxy so
// response-phase hooks can reach the filter.
const hostContextKey contextKey = "authz_host"

// Handler authorizes every inbound request before proxying it upstream.
type Handler struct {
	proxy      *httputil.ReverseProxy
	dispatcher dispatch.Dispatcher
	logger     observability.Logger
	metrics    *filter.Metrics
}

// HandlerOption is a functional option for the handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger.
func WithHandlerLogger(logger observability.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithHandlerMetrics sets the filter metrics shared by all requests.
func WithHandlerMetrics(metrics *filter.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = metrics
	}
}

// NewHandler creates a handler that forwards authorized requests to the
// upstream URL.
func NewHandler(upstream *url.URL, dispatcher dispatch.Dispatcher, opts ...HandlerOption) *Handler {
	h := &Handler{
		dispatcher: dispatcher,
		logger:     observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(h)
	}

	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ModifyResponse = func(resp *http.Response) error {
		if host, ok := resp.Request.Context().Value(hostContextKey).(*requestHost); ok {
			host.respHeader = resp.Header
			host.f.OnResponseHeaders()
			host.respHeader = nil
		}
		return nil
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		h.logger.Error("upstream request failed",
			observability.String("path", r.URL.Path),
			observability.Error(err),
		)
		w.WriteHeader(http.StatusBadGateway)
	}
	h.proxy = proxy

	return h
}

// ServeHTTP runs one request through its filter and acts on the outcome.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	host := newRequestHost(r, h.dispatcher)
	f := filter.New(host,
		filter.WithLogger(h.logger.WithContext(r.Context())),
		filter.WithMetrics(h.metrics),
		filter.WithObserver(filter.NewMemoryObserver(h.logger, h.metrics)),
	)
	host.bind(f)
	defer f.OnStreamComplete()

	if f.OnRequestHeaders() == filter.ActionPause {
		select {
		case <-host.done:
			host.deliverReply()
		case <-r.Context().Done():
			// Client gone while awaiting authorization. Nothing to write.
			return
		}
	}

	if rejection := host.rejection; rejection != nil {
		for name, value := range rejection.headers {
			w.Header().Set(name, value)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(rejection.status)
		_, _ = w.Write(rejection.body)
		return
	}

	r = r.WithContext(context.WithValue(r.Context(), hostContextKey, host))
	h.proxy.ServeHTTP(w, r)
}
