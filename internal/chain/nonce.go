package chain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// nonceResyncInterval is the maximum age of a cached nonce before the next
// read forces a resync from the node, even if no retryable error occurred.
const nonceResyncInterval = 30 * time.Second

// NonceReader reads the chain's next usable nonce for an account — the
// same role go-ethereum's ethclient.PendingNonceAt plays.
type NonceReader interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// seedAndIncrScript atomically seeds a Redis counter from the chain's
// current nonce on first use, then increments it — the same shape as the
// billing signer's nonce script, generalized from (user,provider) keys to
// plain per-account transaction nonces.
var seedAndIncrScript = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1], 'NX')
return redis.call('INCR', KEYS[1])
`)

// NonceManager hands out monotonically-increasing transaction nonces for
// one account. It resyncs from the node when the cached value is unset or
// stale, and can be explicitly reset after a retryable submission error.
// An optional Redis backend lets multiple ChainClient processes share one
// counter; the in-memory path is used otherwise.
type NonceManager struct {
	reader  NonceReader
	account common.Address
	log     *zap.Logger

	rdb     *redis.Client
	rdbKey  string

	mu       sync.Mutex
	cached   uint64
	lastSync time.Time
	set      bool
}

// NewNonceManager builds an in-memory NonceManager.
func NewNonceManager(reader NonceReader, account common.Address, log *zap.Logger) *NonceManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &NonceManager{reader: reader, account: account, log: log}
}

// WithRedis switches the manager to a Redis-backed shared counter.
func (m *NonceManager) WithRedis(rdb *redis.Client, key string) *NonceManager {
	m.rdb = rdb
	m.rdbKey = key
	return m
}

// Next returns the next nonce to use, resyncing from the node first if the
// cache is unset or older than nonceResyncInterval.
func (m *NonceManager) Next(ctx context.Context) (uint64, error) {
	if m.rdb != nil {
		return m.nextRedis(ctx)
	}
	return m.nextLocal(ctx)
}

func (m *NonceManager) nextLocal(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.set || time.Since(m.lastSync) > nonceResyncInterval {
		n, err := m.reader.PendingNonceAt(ctx, m.account)
		if err != nil {
			return 0, fmt.Errorf("chain: resync nonce: %w", err)
		}
		m.cached = n
		m.lastSync = time.Now()
		m.set = true
	}

	nonce := m.cached
	m.cached++
	return nonce, nil
}

func (m *NonceManager) nextRedis(ctx context.Context) (uint64, error) {
	chainNonce, err := m.reader.PendingNonceAt(ctx, m.account)
	if err != nil {
		m.log.Warn("chain: cannot read chain nonce for redis seed, seeding from 0", zap.Error(err))
		chainNonce = 0
	}
	n, err := seedAndIncrScript.Run(ctx, m.rdb, []string{m.rdbKey}, chainNonce).Int64()
	if err != nil {
		return 0, fmt.Errorf("chain: seed and incr nonce: %w", err)
	}
	// The script returns the post-increment value; the nonce to use is one
	// less (first caller after a fresh seed gets chainNonce, not chainNonce+1).
	return uint64(n) - 1, nil
}

// Reset forces the next Next call to resync from the node, used after a
// classified-retryable "nonce too low" submission error.
func (m *NonceManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set = false
	if m.rdb != nil {
		// Dropping the shared counter makes the next Next reseed it from the
		// node's pending nonce.
		if err := m.rdb.Del(context.Background(), m.rdbKey).Err(); err != nil {
			m.log.Warn("chain: cannot reset redis nonce counter", zap.Error(err))
		}
	}
}
