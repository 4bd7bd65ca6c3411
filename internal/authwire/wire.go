package authwire

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// CheckRequest field numbers.
const (
	checkRequestMethodField  = 1
	checkRequestPathField    = 2
	checkRequestSchemeField  = 3
	checkRequestHeadersField = 4
)

// Header map entry field numbers (protobuf map entry convention).
const (
	headerEntryKeyField   = 1
	headerEntryValueField = 2
)

// CheckReply field numbers.
const (
	checkReplyAllowField   = 1
	checkReplyUserField    = 2
	checkReplyMessageField = 3
)

// CheckRequest is the authorization request sent to the policy engine.
type CheckRequest struct {
	// Method is the original request method.
	Method string

	// Path is the original request path.
	Path string

	// Scheme is the original request scheme.
	Scheme string

	// Headers is the transformed header mapping.
	Headers map[string]string
}

// CheckReply is the authorization decision returned by the policy engine.
type CheckReply struct {
	// Allow indicates whether the request is authorized.
	Allow bool

	// User is the resolved user identity.
	User string

	// Message is the policy-supplied message.
	Message string
}

// Marshal encodes the request in the protobuf wire format.
//
// Top-level string fields are always emitted, even when empty, so the
// policy engine sees explicit empty values rather than absent fields.
// Header entries are emitted in sorted key order for deterministic output.
func (m *CheckRequest) Marshal() ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("nil check request")
	}

	var b []byte
	b = protowire.AppendTag(b, checkRequestMethodField, protowire.BytesType)
	b = protowire.AppendString(b, m.Method)
	b = protowire.AppendTag(b, checkRequestPathField, protowire.BytesType)
	b = protowire.AppendString(b, m.Path)
	b = protowire.AppendTag(b, checkRequestSchemeField, protowire.BytesType)
	b = protowire.AppendString(b, m.Scheme)

	keys := make([]string, 0, len(m.Headers))
	for k := range m.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		entry := appendHeaderEntry(nil, k, m.Headers[k])
		b = protowire.AppendTag(b, checkRequestHeadersField, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}

	return b, nil
}

// appendHeaderEntry encodes one header map entry message.
func appendHeaderEntry(b []byte, key, value string) []byte {
	b = protowire.AppendTag(b, headerEntryKeyField, protowire.BytesType)
	b = protowire.AppendString(b, key)
	b = protowire.AppendTag(b, headerEntryValueField, protowire.BytesType)
	b = protowire.AppendString(b, value)
	return b
}

// Unmarshal decodes a request from the protobuf wire format.
// Unknown fields are skipped.
func (m *CheckRequest) Unmarshal(data []byte) error {
	*m = CheckRequest{}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("malformed check request: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == checkRequestMethodField && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("malformed method field: %w", protowire.ParseError(n))
			}
			m.Method = v
			data = data[n:]
		case num == checkRequestPathField && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("malformed path field: %w", protowire.ParseError(n))
			}
			m.Path = v
			data = data[n:]
		case num == checkRequestSchemeField && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("malformed scheme field: %w", protowire.ParseError(n))
			}
			m.Scheme = v
			data = data[n:]
		case num == checkRequestHeadersField && typ == protowire.BytesType:
			entry, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("malformed headers field: %w", protowire.ParseError(n))
			}
			key, value, err := consumeHeaderEntry(entry)
			if err != nil {
				return err
			}
			if m.Headers == nil {
				m.Headers = make(map[string]string)
			}
			m.Headers[key] = value
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("malformed check request: %w", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	return nil
}

// consumeHeaderEntry decodes one header map entry message.
func consumeHeaderEntry(data []byte) (key, value string, err error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", "", fmt.Errorf("malformed header entry: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == headerEntryKeyField && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return "", "", fmt.Errorf("malformed header key: %w", protowire.ParseError(n))
			}
			key = v
			data = data[n:]
		case num == headerEntryValueField && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return "", "", fmt.Errorf("malformed header value: %w", protowire.ParseError(n))
			}
			value = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return "", "", fmt.Errorf("malformed header entry: %w", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return key, value, nil
}

// Marshal encodes the reply in the protobuf wire format.
// Zero-valued fields are omitted, matching proto3 emission rules.
func (m *CheckReply) Marshal() ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("nil check reply")
	}

	var b []byte
	if m.Allow {
		b = protowire.AppendTag(b, checkReplyAllowField, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if m.User != "" {
		b = protowire.AppendTag(b, checkReplyUserField, protowire.BytesType)
		b = protowire.AppendString(b, m.User)
	}
	if m.Message != "" {
		b = protowire.AppendTag(b, checkReplyMessageField, protowire.BytesType)
		b = protowire.AppendString(b, m.Message)
	}
	return b, nil
}

// Unmarshal decodes a reply from the protobuf wire format.
// Unknown fields are skipped.
func (m *CheckReply) Unmarshal(data []byte) error {
	*m = CheckReply{}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("malformed check reply: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == checkReplyAllowField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("malformed allow field: %w", protowire.ParseError(n))
			}
			m.Allow = v != 0
			data = data[n:]
		case num == checkReplyUserField && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("malformed user field: %w", protowire.ParseError(n))
			}
			m.User = v
			data = data[n:]
		case num == checkReplyMessageField && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("malformed message field: %w", protowire.ParseError(n))
			}
			m.Message = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("malformed check reply: %w", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	return nil
}
