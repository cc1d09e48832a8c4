package pool

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func startTestServer(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return lis.Addr().String()
}

func TestGetCachesChannel(t *testing.T) {
	addr := startTestServer(t)
	p := New(nil)
	defer p.Close()

	c1, err := p.Get(context.Background(), addr)
	require.NoError(t, err)
	c2, err := p.Get(context.Background(), addr)
	require.NoError(t, err)
	require.Same(t, c1, c2)
}

func TestCreateClientPooledSharesConnNilCloser(t *testing.T) {
	addr := startTestServer(t)
	p := New(nil)
	defer p.Close()

	conn, closer, err := p.CreateClient(context.Background(), addr, true)
	require.NoError(t, err)
	require.Nil(t, closer)
	require.NotNil(t, conn)
}

func TestCreateClientUnpooledReturnsCloser(t *testing.T) {
	addr := startTestServer(t)
	p := New(nil)
	defer p.Close()

	conn, closer, err := p.CreateClient(context.Background(), addr, false)
	require.NoError(t, err)
	require.NotNil(t, closer)
	require.NotNil(t, conn)
	require.NoError(t, closer())
}

func TestCloseAggregatesAndClearsPool(t *testing.T) {
	addr := startTestServer(t)
	p := New(nil)

	_, err := p.Get(context.Background(), addr)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	// Pool should be empty after Close — a subsequent Get dials afresh.
	c, err := p.Get(context.Background(), addr)
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NoError(t, p.Close())
}
