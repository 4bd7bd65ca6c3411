package dispatch

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"

	"github.com/uipbdi/authgw/internal/authwire"
)

// completion captures one delivered completion callback.
type completion struct {
	token  Token
	status uint32
	body   []byte
}

// startAuthzServer starts a gRPC server answering processReq with the given
// reply after an optional delay, and returns its address.
func startAuthzServer(t *testing.T, reply authwire.CheckReply, delay time.Duration) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer(grpc.ForceServerCodec(rawCodec{}))
	desc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: MethodName,
				Handler: func(_ interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
					in := &Frame{}
					if err := dec(in); err != nil {
						return nil, err
					}
					if delay > 0 {
						select {
						case <-ctx.Done():
							return nil, ctx.Err()
						case <-time.After(delay):
						}
					}
					data, err := reply.Marshal()
					if err != nil {
						return nil, err
					}
					return NewFrame(data), nil
				},
			},
		},
	}
	srv.RegisterService(desc, struct{}{})

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return lis.Addr().String()
}

// TestNew_InvalidTimeout tests that a non-positive timeout is rejected.
func TestNew_InvalidTimeout(t *testing.T) {
	t.Parallel()

	d, err := New(NewTargetEndpoint("gw"), 0)

	require.Error(t, err)
	assert.Nil(t, d)
}

// TestDispatcher_Dispatch_Success tests a full dispatch/completion round
// trip against a live backend.
func TestDispatcher_Dispatch_Success(t *testing.T) {
	t.Parallel()

	// Arrange
	addr := startAuthzServer(t, authwire.CheckReply{Allow: true, User: "alice", Message: "ok"}, 0)
	target := NewTargetEndpoint("gw-test").WithAddress(addr)

	d, err := New(target, 5*time.Second)
	require.NoError(t, err)
	defer func() { _ = d.Close() }()

	payload, err := (&authwire.CheckRequest{Method: "GET", Path: "/x", Scheme: "https"}).Marshal()
	require.NoError(t, err)

	done := make(chan completion, 1)

	// Act
	token, err := d.Dispatch(context.Background(), payload, func(tok Token, st uint32, body []byte) {
		done <- completion{token: tok, status: st, body: body}
	})

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	select {
	case c := <-done:
		assert.Equal(t, token, c.token)
		assert.Equal(t, uint32(codes.OK), c.status)

		var reply authwire.CheckReply
		require.NoError(t, reply.Unmarshal(c.body))
		assert.True(t, reply.Allow)
		assert.Equal(t, "alice", reply.User)
		assert.Equal(t, "ok", reply.Message)
	case <-time.After(5 * time.Second):
		t.Fatal("completion was not delivered")
	}
}

// TestDispatcher_Dispatch_UnreachableBackend tests that an unreachable
// backend surfaces as a failure completion with a non-OK status and no body.
func TestDispatcher_Dispatch_UnreachableBackend(t *testing.T) {
	t.Parallel()

	target := NewTargetEndpoint("gw-test").WithAddress("127.0.0.1:1")

	d, err := New(target, 2*time.Second)
	require.NoError(t, err)
	defer func() { _ = d.Close() }()

	done := make(chan completion, 1)

	token, err := d.Dispatch(context.Background(), []byte{}, func(tok Token, st uint32, body []byte) {
		done <- completion{token: tok, status: st, body: body}
	})
	require.NoError(t, err)

	select {
	case c := <-done:
		assert.Equal(t, token, c.token)
		assert.NotEqual(t, uint32(codes.OK), c.status)
		assert.Nil(t, c.body)
	case <-time.After(5 * time.Second):
		t.Fatal("completion was not delivered")
	}
}

// TestDispatcher_Dispatch_Timeout tests that the call timeout surfaces as a
// DeadlineExceeded completion.
func TestDispatcher_Dispatch_Timeout(t *testing.T) {
	t.Parallel()

	addr := startAuthzServer(t, authwire.CheckReply{Allow: true}, 2*time.Second)
	target := NewTargetEndpoint("gw-test").WithAddress(addr)

	d, err := New(target, 100*time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = d.Close() }()

	done := make(chan completion, 1)

	_, err = d.Dispatch(context.Background(), []byte{}, func(tok Token, st uint32, body []byte) {
		done <- completion{token: tok, status: st, body: body}
	})
	require.NoError(t, err)

	select {
	case c := <-done:
		assert.Equal(t, uint32(codes.DeadlineExceeded), c.status)
		assert.Nil(t, c.body)
	case <-time.After(5 * time.Second):
		t.Fatal("completion was not delivered")
	}
}

// TestDispatcher_Dispatch_ExactlyOneCompletion tests that every dispatch
// delivers exactly one completion.
func TestDispatcher_Dispatch_ExactlyOneCompletion(t *testing.T) {
	t.Parallel()

	addr := startAuthzServer(t, authwire.CheckReply{Allow: true, User: "u"}, 0)
	target := NewTargetEndpoint("gw-test").WithAddress(addr)

	d, err := New(target, 5*time.Second)
	require.NoError(t, err)
	defer func() { _ = d.Close() }()

	const calls = 20
	var delivered atomic.Int64
	done := make(chan struct{}, calls)

	for i := 0; i < calls; i++ {
		_, err := d.Dispatch(context.Background(), []byte{}, func(Token, uint32, []byte) {
			delivered.Add(1)
			done <- struct{}{}
		})
		require.NoError(t, err)
	}

	for i := 0; i < calls; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("missing completion")
		}
	}
	assert.Equal(t, int64(calls), delivered.Load())
}

// TestDispatcher_Dispatch_NilCallback tests that a nil callback is rejected.
func TestDispatcher_Dispatch_NilCallback(t *testing.T) {
	t.Parallel()

	d, err := New(NewTargetEndpoint("gw"), time.Second)
	require.NoError(t, err)
	defer func() { _ = d.Close() }()

	_, err = d.Dispatch(context.Background(), []byte{}, nil)

	require.Error(t, err)
}

// TestDispatcher_Dispatch_AfterClose tests that a closed dispatcher refuses
// new calls.
func TestDispatcher_Dispatch_AfterClose(t *testing.T) {
	t.Parallel()

	d, err := New(NewTargetEndpoint("gw"), time.Second)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	_, err = d.Dispatch(context.Background(), []byte{}, func(Token, uint32, []byte) {})

	require.ErrorIs(t, err, ErrDispatcherClosed)
}

// TestDispatcher_BreakerOpensAfterFailures tests that repeated failures
// open the circuit and subsequent dispatches fail synchronously.
func TestDispatcher_BreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	target := NewTargetEndpoint("gw-test").WithAddress("127.0.0.1:1")

	d, err := New(target, 200*time.Millisecond, WithBreaker(BreakerSettings{
		MinRequests:  2,
		FailureRatio: 0.5,
		OpenTimeout:  time.Minute,
	}))
	require.NoError(t, err)
	defer func() { _ = d.Close() }()

	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		_, err := d.Dispatch(context.Background(), []byte{}, func(Token, uint32, []byte) {
			done <- struct{}{}
		})
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("completion was not delivered")
		}
	}

	// The breaker has seen two failures; the next dispatch is rejected
	// without issuing a call.
	_, err = d.Dispatch(context.Background(), []byte{}, func(Token, uint32, []byte) {
		t.Error("no completion expected for a rejected dispatch")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsDispatchError(err))

	var de *DispatchError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, target.Cluster(), de.Target)
}
