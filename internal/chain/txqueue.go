package chain

import (
	"context"

	"go.uber.org/zap"

	"github.com/akave-ai/akavesdk/internal/sdkerr"
)

// txJob is one queued on-chain write: op is run on the queue's single
// worker goroutine so writes to one account are never submitted with
// colliding nonces, and result carries back whatever op returns.
type txJob struct {
	ctx    context.Context
	op     func(ctx context.Context) (any, error)
	result chan<- txResult
}

type txResult struct {
	value any
	err   error
}

// TxQueue serializes on-chain write operations through a bounded channel,
// the same backpressure shape as the settler's BLPOP consumer loop —
// generalized here to arbitrary chain operations instead of voucher
// batches, and run in-process instead of over Redis.
type TxQueue struct {
	jobs chan txJob
	done chan struct{}
	log  *zap.Logger
}

// NewTxQueue starts a worker goroutine draining a bounded queue of
// capacity size. Call Close to stop the worker once no more jobs will be
// submitted.
func NewTxQueue(size int, log *zap.Logger) *TxQueue {
	if log == nil {
		log = zap.NewNop()
	}
	q := &TxQueue{
		jobs: make(chan txJob, size),
		done: make(chan struct{}),
		log:  log,
	}
	go q.run()
	return q
}

func (q *TxQueue) run() {
	for job := range q.jobs {
		v, err := job.op(job.ctx)
		select {
		case job.result <- txResult{value: v, err: err}:
		case <-job.ctx.Done():
			q.log.Warn("txqueue: caller gone before result delivered", zap.Error(job.ctx.Err()))
		}
	}
	close(q.done)
}

// Submit enqueues op and blocks until it has run and returned, or ctx is
// cancelled first.
func (q *TxQueue) Submit(ctx context.Context, op func(ctx context.Context) (any, error)) (any, error) {
	result := make(chan txResult, 1)
	if err := ctx.Err(); err != nil {
		return nil, sdkerr.Wrap(sdkerr.Cancelled, "chain.TxQueue.Submit", err)
	}
	select {
	case q.jobs <- txJob{ctx: ctx, op: op, result: result}:
	case <-ctx.Done():
		return nil, sdkerr.Wrap(sdkerr.Cancelled, "chain.TxQueue.Submit", ctx.Err())
	}

	select {
	case r := <-result:
		return r.value, r.err
	case <-ctx.Done():
		return nil, sdkerr.Wrap(sdkerr.Cancelled, "chain.TxQueue.Submit", ctx.Err())
	}
}

// Close stops accepting new jobs and waits for the worker to drain the
// queue and exit.
func (q *TxQueue) Close() {
	close(q.jobs)
	<-q.done
}
