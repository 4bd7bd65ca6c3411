package filter

// PseudoHeaderPrefix marks HTTP/2-style request attributes in the inbound
// header set.
const PseudoHeaderPrefix = ":"

// pseudoHeaderRenames maps known pseudo-header names (without the leading
// colon) to the keys carried in the authorization request. Pseudo-headers
// outside this table are renamed with the same prefix.
var pseudoHeaderRenames = map[string]string{
	"method":    "x-original-req-method",
	"scheme":    "x-original-req-scheme",
	"authority": "x-original-req-authority",
	"path":      "x-original-req-path",
}

// pseudoHeaderFallbackPrefix renames pseudo-headers not present in the
// static table.
const pseudoHeaderFallbackPrefix = "x-original-req-"

// allowedHeaders is the fixed allow-list of ordinary headers copied into
// the authorization request. Everything else is dropped.
var allowedHeaders = map[string]struct{}{
	"x-forwarded-client-cert":      {},
	"x-request-id":                 {},
	"x-correlation-id":             {},
	"authorization":                {},
	"x-uip-wasm-impersonated-user": {},
	"x-event-service-user":         {},
	"x-trino-user":                 {},
}

// Headers read from and written to the request and response.
const (
	// UserHeader carries the authorized user identity to the upstream.
	UserHeader = "x-uip-user"

	// AuthMessageHeader carries the policy-supplied message on the
	// downstream response.
	AuthMessageHeader = "x-uip-authz-message"

	// WWWAuthenticateHeader carries the policy-supplied message on a
	// denied response.
	WWWAuthenticateHeader = "WWW-Authenticate"
)

// Fixed response bodies. The policy-supplied message is exposed only via a
// response header, never in a body.
const (
	deniedBody = "Unauthorized"
	errorBody  = "authorization service error"
)
