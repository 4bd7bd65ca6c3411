package filter

import "github.com/uipbdi/authgw/internal/dispatch"

// Action is the control decision returned from request-phase hooks.
type Action int

const (
	// ActionContinue lets the host keep processing the request.
	ActionContinue Action = iota

	// ActionPause suspends the request until the filter resumes or
	// terminates it.
	ActionPause
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionPause:
		return "pause"
	default:
		return "unknown"
	}
}

// Host is the hook contract the surrounding runtime provides to each filter
// instance. Pseudo-headers are exposed with their leading colon (":method",
// ":scheme", ":authority", ":path") alongside ordinary headers.
//
// All methods are invoked from at most one goroutine at a time, and the
// host must not invoke OnAuthorizationReply before OnRequestHeaders has
// returned: a completion that arrives earlier is parked and delivered
// afterwards.
type Host interface {
	// VisitRequestHeaders calls fn once per inbound header.
	VisitRequestHeaders(fn func(name, value string))

	// RequestHeader returns the value of a request header and whether it
	// is present.
	RequestHeader(name string) (string, bool)

	// SetRequestHeader sets a request header before the request is
	// forwarded upstream.
	SetRequestHeader(name, value string)

	// SetResponseHeader sets a header on the downstream response.
	SetResponseHeader(name, value string)

	// SendResponse emits a terminal HTTP response with the given status,
	// headers, and body. The paused request is not forwarded.
	SendResponse(status int, headers map[string]string, body []byte)

	// Resume resumes a paused request so it proceeds to its upstream
	// destination.
	Resume()

	// DispatchAuthorization sends the serialized authorization payload to
	// the policy engine. The host later invokes OnAuthorizationReply with
	// the returned token. An error means no call was issued and no reply
	// will follow.
	DispatchAuthorization(payload []byte) (dispatch.Token, error)

	// AuthorizationReplyBody returns the reply bytes for the given length,
	// or false when no body is retrievable.
	AuthorizationReplyBody(length int) ([]byte, bool)
}
