package dispatch

import (
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/uipbdi/authgw/internal/observability"
)

// ConnectionPool manages gRPC client connections keyed by target address.
type ConnectionPool struct {
	conns    map[string]*grpc.ClientConn
	mu       sync.RWMutex
	dialOpts []grpc.DialOption
	logger   observability.Logger
}

// PoolOption is a functional option for configuring the connection pool.
type PoolOption func(*ConnectionPool)

// WithPoolLogger sets the logger for the connection pool.
func WithPoolLogger(logger observability.Logger) PoolOption {
	return func(p *ConnectionPool) {
		p.logger = logger
	}
}

// WithDialOptions sets the dial options for the connection pool.
func WithDialOptions(opts ...grpc.DialOption) PoolOption {
	return func(p *ConnectionPool) {
		p.dialOpts = append(p.dialOpts, opts...)
	}
}

// NewConnectionPool creates a new connection pool.
func NewConnectionPool(opts ...PoolOption) *ConnectionPool {
	p := &ConnectionPool{
		conns:  make(map[string]*grpc.ClientConn),
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if len(p.dialOpts) == 0 {
		p.dialOpts = defaultDialOptions()
	}

	return p
}

// defaultDialOptions returns default gRPC dial options.
func defaultDialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.ForceCodec(rawCodec{}),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	}
}

// Get returns a connection to the target address, creating one if necessary.
func (p *ConnectionPool) Get(target string) (*grpc.ClientConn, error) {
	p.mu.RLock()
	conn, exists := p.conns[target]
	p.mu.RUnlock()

	if exists && conn != nil && conn.GetState() != connectivity.Shutdown {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Re-check after acquiring the write lock.
	conn, exists = p.conns[target]
	if exists && conn != nil && conn.GetState() != connectivity.Shutdown {
		return conn, nil
	}

	p.logger.Debug("creating new gRPC connection",
		observability.String("target", target),
	)

	conn, err := grpc.NewClient(target, p.dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection to %s: %w", target, err)
	}

	p.conns[target] = conn
	return conn, nil
}

// Close closes all connections in the pool.
func (p *ConnectionPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for target, conn := range p.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close connection to %s: %w", target, err)
		}
		delete(p.conns, target)
	}

	return firstErr
}

// Size returns the number of pooled connections.
func (p *ConnectionPool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}
