package dispatch

import "fmt"

// Authorization service identity on the wire.
const (
	// ServiceName is the fully qualified authorization service name.
	ServiceName = "authengine.UIPBDIAuthZProcessor"

	// MethodName is the authorization method name.
	MethodName = "processReq"

	// FullMethod is the gRPC full method path.
	FullMethod = "/" + ServiceName + "/" + MethodName
)

// authzPort is the port the authorization engine listens on.
const authzPort = 50051

// targetDomainSuffix is appended to the instance identifier to form the
// authorization engine host name.
const targetDomainSuffix = ".localhost.for.grpc.call"

// TargetEndpoint identifies the authorization backend. It is computed once
// from the instance identifier at process start and is immutable afterwards,
// so it is safe to share across all request instances.
type TargetEndpoint struct {
	cluster string
	address string
}

// NewTargetEndpoint derives the target endpoint from an instance
// identifier. An empty identifier falls back to "localhost".
func NewTargetEndpoint(instanceID string) TargetEndpoint {
	if instanceID == "" {
		instanceID = "localhost"
	}
	host := instanceID + targetDomainSuffix
	return TargetEndpoint{
		cluster: fmt.Sprintf("outbound|%d||%s", authzPort, host),
		address: fmt.Sprintf("%s:%d", host, authzPort),
	}
}

// WithAddress returns a copy of the endpoint with the dial address
// replaced. The cluster name is unaffected.
func (t TargetEndpoint) WithAddress(address string) TargetEndpoint {
	t.address = address
	return t
}

// Cluster returns the logical cluster name of the authorization backend.
func (t TargetEndpoint) Cluster() string {
	return t.cluster
}

// Address returns the dialable address of the authorization backend.
func (t TargetEndpoint) Address() string {
	return t.address
}

// String returns the cluster name.
func (t TargetEndpoint) String() string {
	return t.cluster
}
