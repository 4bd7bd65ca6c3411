package filter

import (
	"fmt"

	"github.com/uipbdi/authgw/internal/authwire"
)

// BuildAuthorizationPayload assembles the authorization request from the
// top-level request fields and the transformed header mapping, and
// serializes it to the wire format. Missing top-level fields are carried as
// empty strings, never omitted. Authority is not a top-level field; it
// travels only through the header mapping.
func BuildAuthorizationPayload(method, path, scheme string, headers map[string]string) ([]byte, error) {
	req := &authwire.CheckRequest{
		Method:  method,
		Path:    path,
		Scheme:  scheme,
		Headers: headers,
	}

	payload, err := req.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize authorization request: %w", err)
	}

	return payload, nil
}
