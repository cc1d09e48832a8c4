package chain

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeNonceReader struct {
	n   uint64
	err error
}

func (f *fakeNonceReader) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return f.n, f.err
}

func TestNonceManagerLocalMonotonic(t *testing.T) {
	reader := &fakeNonceReader{n: 5}
	m := NewNonceManager(reader, common.HexToAddress("0x1"), nil)

	n1, err := m.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(5), n1)

	n2, err := m.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(6), n2)
}

func TestNonceManagerResetForcesResync(t *testing.T) {
	reader := &fakeNonceReader{n: 10}
	m := NewNonceManager(reader, common.HexToAddress("0x1"), nil)

	_, err := m.Next(context.Background())
	require.NoError(t, err)

	reader.n = 42
	m.Reset()

	n, err := m.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(42), n)
}

func TestNonceManagerRedisSeedsFromChainOnce(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	reader := &fakeNonceReader{n: 7}
	m := NewNonceManager(reader, common.HexToAddress("0x1"), nil).WithRedis(rdb, "test:nonce")

	n1, err := m.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(7), n1)

	n2, err := m.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(8), n2)
}
