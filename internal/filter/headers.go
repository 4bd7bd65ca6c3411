package filter

import "strings"

// TransformHeaders builds the authorization header mapping from the inbound
// header set. Pseudo-headers are renamed per the static table (with the
// fallback prefix for unrecognized names); ordinary headers are matched
// case-insensitively against the allow-list and copied under their
// lowercase wire name, everything else is dropped. Absent pseudo-headers
// are omitted, never inserted empty.
//
// The function is pure: it reads the visited headers once and owns the
// returned mapping exclusively.
func TransformHeaders(visit func(fn func(name, value string))) map[string]string {
	mapping := make(map[string]string)

	visit(func(name, value string) {
		if strings.HasPrefix(name, PseudoHeaderPrefix) {
			mapping[RenamePseudoHeader(strings.TrimPrefix(name, PseudoHeaderPrefix))] = value
			return
		}
		lower := strings.ToLower(name)
		if _, ok := allowedHeaders[lower]; ok {
			mapping[lower] = value
		}
	})

	return mapping
}

// RenamePseudoHeader maps a pseudo-header name (without the leading colon)
// to its authorization request key.
func RenamePseudoHeader(name string) string {
	if renamed, ok := pseudoHeaderRenames[name]; ok {
		return renamed
	}
	return pseudoHeaderFallbackPrefix + name
}

// mappingBytes estimates the transient size of a header mapping.
func mappingBytes(mapping map[string]string) int {
	total := 0
	for k, v := range mapping {
		total += len(k) + len(v)
	}
	return total
}
