package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNewTargetEndpoint tests endpoint derivation from an instance
// identifier.
func TestNewTargetEndpoint(t *testing.T) {
	t.Parallel()

	endpoint := NewTargetEndpoint("gw-east-1")

	assert.Equal(t, "outbound|50051||gw-east-1.localhost.for.grpc.call", endpoint.Cluster())
	assert.Equal(t, "gw-east-1.localhost.for.grpc.call:50051", endpoint.Address())
	assert.Equal(t, endpoint.Cluster(), endpoint.String())
}

// TestNewTargetEndpoint_EmptyInstanceID tests the localhost fallback.
func TestNewTargetEndpoint_EmptyInstanceID(t *testing.T) {
	t.Parallel()

	endpoint := NewTargetEndpoint("")

	assert.Equal(t, "outbound|50051||localhost.localhost.for.grpc.call", endpoint.Cluster())
	assert.Equal(t, "localhost.localhost.for.grpc.call:50051", endpoint.Address())
}

// TestTargetEndpoint_WithAddress tests the dial address override.
func TestTargetEndpoint_WithAddress(t *testing.T) {
	t.Parallel()

	endpoint := NewTargetEndpoint("gw-1").WithAddress("127.0.0.1:50051")

	assert.Equal(t, "127.0.0.1:50051", endpoint.Address())
	// The cluster name is unaffected by the override.
	assert.Equal(t, "outbound|50051||gw-1.localhost.for.grpc.call", endpoint.Cluster())
}

// TestFullMethod tests the gRPC full method path.
func TestFullMethod(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/authengine.UIPBDIAuthZProcessor/processReq", FullMethod)
}
