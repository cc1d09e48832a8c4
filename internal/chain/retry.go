package chain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/akave-ai/akavesdk/internal/sdkerr"
)

const (
	retryBaseDelay = 100 * time.Millisecond
	maxRetries     = 5
)

// retryable reports whether err is a transient submission failure worth
// retrying with a fresh nonce and gas price: a stale nonce, a gas-price
// race against another pending tx, or a transient transport EOF.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "nonce too low"):
		return true
	case strings.Contains(msg, "replacement transaction underpriced"):
		return true
	case errors.Is(err, io.EOF), strings.Contains(msg, "eof"):
		return true
	default:
		return false
	}
}

// backoff returns the exponential-with-jitter delay for the given attempt:
// base·2^attempt + U(0,base).
func backoff(attempt int) time.Duration {
	exp := retryBaseDelay * time.Duration(1<<uint(attempt))
	jitter := time.Duration(rand.Int63n(int64(retryBaseDelay)))
	return exp + jitter
}

// withRetry runs submit up to maxRetries+1 times, resetting nonces between
// retryable failures. submit is expected to rebuild, resign, and resend the
// transaction on every call (it owns nonce/gas refresh).
func withRetry(ctx context.Context, nonces *NonceManager, submit func(ctx context.Context) (*types.Transaction, error)) (*types.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		tx, err := submit(ctx)
		if err == nil {
			return tx, nil
		}
		lastErr = err
		if !retryable(err) {
			// An error already classified (e.g. FILE_EXISTS) keeps its kind.
			if sdkerr.KindOf(err) != "" {
				return nil, err
			}
			return nil, sdkerr.Wrap(sdkerr.Chain, "chain.withRetry", err)
		}
		nonces.Reset()
		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, sdkerr.Wrap(sdkerr.Cancelled, "chain.withRetry", ctx.Err())
		case <-time.After(backoff(attempt)):
		}
	}
	return nil, sdkerr.Wrap(sdkerr.ChainRetryable, "chain.withRetry", fmt.Errorf("exhausted %d retries: %w", maxRetries, lastErr))
}

// waitReceipt polls for a transaction's receipt up to timeout. A reverted
// transaction (status==0) is TRANSACTION_FAILED; a deadline with no receipt
// is TIMEOUT.
func waitReceipt(ctx context.Context, eth *ethclient.Client, tx *types.Transaction, pollInterval, timeout time.Duration) (*types.Receipt, error) {
	deadline := time.Now().Add(timeout)
	for {
		receipt, err := eth.TransactionReceipt(ctx, tx.Hash())
		if err == nil {
			if receipt.Status == 0 {
				return nil, sdkerr.New(sdkerr.Chain, "chain.waitReceipt", "TRANSACTION_FAILED")
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, sdkerr.Wrap(sdkerr.Chain, "chain.waitReceipt", err)
		}
		if time.Now().After(deadline) {
			return nil, sdkerr.New(sdkerr.Chain, "chain.waitReceipt", "TIMEOUT")
		}
		select {
		case <-ctx.Done():
			return nil, sdkerr.Wrap(sdkerr.Cancelled, "chain.waitReceipt", ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}
