package grpccas

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/shard/cidutil"
	"xdao.co/shard/storage"
	"xdao.co/shard/storage/memory"
	"xdao.co/shard/storage/testkit"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// serve starts srv on an in-memory listener and returns a connected client.
func serve(t *testing.T, impl CASServer) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterCASServer(srv, impl)
	go func() {
		_ = srv.Serve(lis)
	}()

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.DialContext(ctx) }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	client := NewClient(cc, zaptest.NewLogger(t))
	client.Timeout = 2 * time.Second
	t.Cleanup(func() {
		_ = client.Close()
		srv.Stop()
	})
	return client
}

func TestGRPCCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return serve(t, &Server{CAS: memory.New()})
	})
}

func TestGRPCCAS_ShardRoundTrip(t *testing.T) {
	backing := memory.New()
	client := serve(t, &Server{CAS: backing, Logger: zaptest.NewLogger(t)})

	s := testkit.SampleShard(t, `{"hello":"grpccas"}`)
	id, err := client.Put([]byte(s.Bits))
	require.NoError(t, err)
	assert.True(t, client.Has(id))
	assert.True(t, backing.Has(id))

	got, err := client.Get(id)
	require.NoError(t, err)
	assert.Equal(t, s.Bits, string(got))

	sid, err := cidutil.ToIdentifier(id)
	require.NoError(t, err)
	assert.True(t, sid.Equal(s.ID))
}

// lyingServer returns bytes that do not match the requested CID.
type lyingServer struct {
	UnimplementedCASServer
}

func (lyingServer) Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return wrapperspb.Bytes([]byte("forged")), nil
}

func (lyingServer) Put(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	id, _ := cidutil.CIDv1RawCID([]byte("forged"))
	return wrapperspb.String(id.String()), nil
}

func TestGRPCCAS_ClientVerifiesReplies(t *testing.T) {
	client := serve(t, lyingServer{})
	id, err := cidutil.CIDv1RawCID([]byte("0101"))
	require.NoError(t, err)

	_, err = client.Get(id)
	assert.ErrorIs(t, err, storage.ErrCIDMismatch)
	_, err = client.Put([]byte("0101"))
	assert.ErrorIs(t, err, storage.ErrCIDMismatch)
	// Has is not implemented by lyingServer.
	assert.False(t, client.Has(id))
}

// flakyServer fails with Unavailable until fails reaches zero.
type flakyServer struct {
	Server
	fails atomic.Int32
	calls atomic.Int32
}

func (f *flakyServer) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	f.calls.Add(1)
	if f.fails.Add(-1) >= 0 {
		return nil, status.Error(codes.Unavailable, "warming up")
	}
	return f.Server.Get(ctx, in)
}

func TestGRPCCAS_RetriesUnavailable(t *testing.T) {
	backing := memory.New()
	id, err := backing.Put([]byte("0110"))
	require.NoError(t, err)

	flaky := &flakyServer{Server: Server{CAS: backing}}
	flaky.fails.Store(2)
	client := serve(t, flaky)
	client.MaxRetries = 3

	got, err := client.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "0110", string(got))
	assert.EqualValues(t, 3, flaky.calls.Load())
}

func TestGRPCCAS_NoRetryWithoutBudget(t *testing.T) {
	backing := memory.New()
	id, err := backing.Put([]byte("0110"))
	require.NoError(t, err)

	flaky := &flakyServer{Server: Server{CAS: backing}}
	flaky.fails.Store(1)
	client := serve(t, flaky)

	_, err = client.Get(id)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.EqualValues(t, 1, flaky.calls.Load())
}

func TestGRPCCAS_NotFoundIsPermanent(t *testing.T) {
	client := serve(t, &Server{CAS: memory.New()})
	client.MaxRetries = 5
	id, err := cidutil.CIDv1RawCID([]byte("absent"))
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Get(id)
	assert.True(t, storage.IsNotFound(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestMapErrRoundTrip(t *testing.T) {
	for _, sentinel := range []error{storage.ErrNotFound, storage.ErrInvalidCID, storage.ErrCIDMismatch, storage.ErrImmutable} {
		assert.ErrorIs(t, mapRPC(mapErr(sentinel)), sentinel)
	}
	assert.Nil(t, mapErr(nil))
	assert.Equal(t, codes.Internal, status.Code(mapErr(assert.AnError)))
}
