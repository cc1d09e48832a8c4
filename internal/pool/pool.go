// Package pool maintains a shared cache of gRPC channels to storage nodes,
// so concurrent block transfers to the same node reuse one connection
// instead of dialing per call.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/akave-ai/akavesdk/internal/sdkerr"
)

// readinessTimeout is the deadline Get waits for a freshly dialed channel to
// leave TRANSIENT_FAILURE/IDLE before giving up on the probe. A timed-out
// probe is logged, not treated as an error — the channel is handed back and
// may recover before its first real call.
const readinessTimeout = 5 * time.Second

// Pool maps a node address to its shared *grpc.ClientConn.
type Pool struct {
	log *zap.Logger

	mu      sync.Mutex
	conns   map[string]*grpc.ClientConn
	dialOpt []grpc.DialOption
}

// New builds an empty pool. dialOpts are appended after the pool's default
// insecure transport credentials, so callers can add TLS or interceptors.
func New(log *zap.Logger, dialOpts ...grpc.DialOption) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		log:     log,
		conns:   make(map[string]*grpc.ClientConn),
		dialOpt: dialOpts,
	}
}

// Get returns the existing channel to addr, or dials and caches a new one.
// A new channel is probed for readiness with a bounded deadline; a probe
// timeout is logged as a warning and the channel is returned regardless.
func (p *Pool) Get(ctx context.Context, addr string) (*grpc.ClientConn, error) {
	p.mu.Lock()
	if conn, ok := p.conns[addr]; ok {
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()

	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, p.dialOpt...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, sdkerr.Wrapf(sdkerr.Transport, "pool.Get", err, "dial %s", addr)
	}
	p.probeReadiness(ctx, addr, conn)

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.conns[addr]; ok {
		_ = conn.Close()
		return existing, nil
	}
	p.conns[addr] = conn
	return conn, nil
}

func (p *Pool) probeReadiness(ctx context.Context, addr string, conn *grpc.ClientConn) {
	probeCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	conn.Connect()
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return
		}
		if !conn.WaitForStateChange(probeCtx, state) {
			p.log.Warn("connection not ready within probe deadline",
				zap.String("addr", addr), zap.Duration("timeout", readinessTimeout), zap.String("state", state.String()))
			return
		}
	}
}

// CreateClient returns a *grpc.ClientConn to addr. When pooled is true, the
// returned closer is nil — the pool owns the channel's lifetime. When
// pooled is false, the caller owns a dedicated channel and must call
// closer.
func (p *Pool) CreateClient(ctx context.Context, addr string, pooled bool) (conn *grpc.ClientConn, closer func() error, err error) {
	if pooled {
		conn, err = p.Get(ctx, addr)
		if err != nil {
			return nil, nil, err
		}
		return conn, nil, nil
	}

	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, p.dialOpt...)
	conn, err = grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, nil, sdkerr.Wrapf(sdkerr.Transport, "pool.CreateClient", err, "dial %s", addr)
	}
	p.probeReadiness(ctx, addr, conn)
	return conn, conn.Close, nil
}

// Close closes every pooled channel, aggregating any close errors into a
// single report.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for addr, conn := range p.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", addr, err))
		}
	}
	p.conns = make(map[string]*grpc.ClientConn)
	if len(errs) > 0 {
		return sdkerr.Wrap(sdkerr.Transport, "pool.Close", errors.Join(errs...))
	}
	return nil
}
