package gateway

import (
	"net/http"
	"strings"

	"github.com/uipbdi/authgw/internal/dispatch"
	"github.com/uipbdi/authgw/internal/filter"
)

// recordedResponse is a terminal response captured from the filter. It is
// written to the client by the request goroutine, never by the completion
// goroutine.
type recordedResponse struct {
	status  int
	headers map[string]string
	body    []byte
}

// requestHost adapts one net/http request to the filter's host contract.
// HTTP/2 pseudo-headers are synthesized from the request line so the filter
// sees the same surface regardless of the inbound protocol version.
//
// All filter hooks run on the request goroutine. The dispatcher's
// completion goroutine only parks the reply fields and closes done; the
// request goroutine delivers the parked reply to the filter after the
// request-headers hook has returned. The close of done publishes the
// completion-side writes, so the completion can never race the filter's
// own state transitions.
type requestHost struct {
	req        *http.Request
	dispatcher dispatch.Dispatcher
	f          *filter.Filter

	// respHeader is non-nil only while the upstream response headers are
	// being processed.
	respHeader http.Header

	// Parked completion, written by the completion goroutine before done
	// is closed and read by the request goroutine afterwards.
	replyToken  dispatch.Token
	replyStatus uint32
	replyBody   []byte

	rejection *recordedResponse
	resumed   bool

	done chan struct{}
}

// newRequestHost creates a host for one request. The filter must be bound
// before the first hook is invoked.
func newRequestHost(req *http.Request, dispatcher dispatch.Dispatcher) *requestHost {
	return &requestHost{
		req:        req,
		dispatcher: dispatcher,
		done:       make(chan struct{}),
	}
}

// bind attaches the filter instance that completions are delivered to.
func (h *requestHost) bind(f *filter.Filter) {
	h.f = f
}

// scheme derives the request scheme from the transport.
func (h *requestHost) scheme() string {
	if h.req.TLS != nil {
		return "https"
	}
	return "http"
}

// VisitRequestHeaders calls fn for the synthesized pseudo-headers, then for
// every ordinary inbound header.
func (h *requestHost) VisitRequestHeaders(fn func(name, value string)) {
	fn(":method", h.req.Method)
	fn(":scheme", h.scheme())
	fn(":authority", h.req.Host)
	fn(":path", h.req.URL.RequestURI())

	for name, values := range h.req.Header {
		fn(name, strings.Join(values, ", "))
	}
}

// RequestHeader returns a pseudo-header or ordinary header value.
func (h *requestHost) RequestHeader(name string) (string, bool) {
	switch name {
	case ":method":
		return h.req.Method, true
	case ":scheme":
		return h.scheme(), true
	case ":authority":
		return h.req.Host, true
	case ":path":
		return h.req.URL.RequestURI(), true
	}
	if values := h.req.Header.Values(name); len(values) > 0 {
		return strings.Join(values, ", "), true
	}
	return "", false
}

// SetRequestHeader sets a header on the request before it is forwarded.
func (h *requestHost) SetRequestHeader(name, value string) {
	h.req.Header.Set(name, value)
}

// SetResponseHeader sets a header on the upstream response currently being
// processed. Outside response-header processing it is a no-op.
func (h *requestHost) SetResponseHeader(name, value string) {
	if h.respHeader != nil {
		h.respHeader.Set(name, value)
	}
}

// SendResponse records the terminal response for the request goroutine to
// write once it observes completion.
func (h *requestHost) SendResponse(status int, headers map[string]string, body []byte) {
	h.rejection = &recordedResponse{
		status:  status,
		headers: headers,
		body:    body,
	}
}

// Resume marks the paused request as released for upstream forwarding.
func (h *requestHost) Resume() {
	h.resumed = true
}

// DispatchAuthorization issues the authorization call. The completion only
// parks the reply and releases the request goroutine; it must not touch the
// filter, which may still be inside its request-headers hook.
func (h *requestHost) DispatchAuthorization(payload []byte) (dispatch.Token, error) {
	return h.dispatcher.Dispatch(h.req.Context(), payload,
		func(token dispatch.Token, status uint32, body []byte) {
			h.replyToken = token
			h.replyStatus = status
			h.replyBody = body
			close(h.done)
		})
}

// deliverReply drives the filter's reply hook with the parked completion.
// Called from the request goroutine after done is closed.
func (h *requestHost) deliverReply() {
	h.f.OnAuthorizationReply(h.replyToken, h.replyStatus, len(h.replyBody))
}

// AuthorizationReplyBody returns the stored reply bytes.
func (h *requestHost) AuthorizationReplyBody(length int) ([]byte, bool) {
	if h.replyBody == nil {
		return nil, false
	}
	return h.replyBody, true
}

// Ensure requestHost implements the host contract.
var _ filter.Host = (*requestHost)(nil)
