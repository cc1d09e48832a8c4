// Package erasure implements the optional Reed-Solomon erasure-coding
// layer: a chunk's data shards are expanded with parity shards so that
// losing up to m shards of k+m still reconstructs the original bytes.
package erasure

import (
	"fmt"

	"github.com/klauspost/reedsolomon"

	"github.com/akave-ai/akavesdk/internal/sdkerr"
)

// Coder encodes and decodes chunk bytes into k data shards plus m parity
// shards under GF(2^8) Reed-Solomon, one codeword per byte column.
type Coder struct {
	k, m int
	enc  reedsolomon.Encoder
}

// New builds a Coder for k data shards and m parity shards. Both must be
// positive; the SDK-level constraint m ≤ floor(maxBlocksInChunk/2) is
// enforced by the caller (config validation), not here.
func New(k, m int) (*Coder, error) {
	if k <= 0 || m <= 0 {
		return nil, sdkerr.New(sdkerr.Validation, "erasure.New", "k and m must be positive")
	}
	enc, err := reedsolomon.New(k, m)
	if err != nil {
		return nil, sdkerr.Wrap(sdkerr.Erasure, "erasure.New", err)
	}
	return &Coder{k: k, m: m, enc: enc}, nil
}

// ShardSize returns ceil(len/k), the zero-padded length each data shard is
// brought to before encoding.
func (c *Coder) ShardSize(dataLen int) int {
	return (dataLen + c.k - 1) / c.k
}

// Encode splits data across k data shards (zero-padded to an equal
// ShardSize) and computes m parity shards. The return value is the
// concatenation-ready slice of k+m equal-length shards, in order.
func (c *Coder) Encode(data []byte) ([][]byte, error) {
	shardSize := c.ShardSize(len(data))
	shards := make([][]byte, c.k+c.m)
	for i := range shards {
		shards[i] = make([]byte, shardSize)
	}
	for i := 0; i < len(data); i++ {
		shards[i/shardSize][i%shardSize] = data[i]
	}
	if err := c.enc.Encode(shards); err != nil {
		return nil, sdkerr.Wrap(sdkerr.Erasure, "erasure.Encode", err)
	}
	return shards, nil
}

// Decode reconstructs the original originalSize bytes from exactly k+m
// shard slots, where a missing shard is represented by a nil entry at its
// index in shards. If more than m shards are missing, decode fails with
// an sdkerr.Erasure-kind INSUFFICIENT_SHARDS error.
func (c *Coder) Decode(shards [][]byte, originalSize int) ([]byte, error) {
	if len(shards) != c.k+c.m {
		return nil, sdkerr.New(sdkerr.Erasure, "erasure.Decode",
			fmt.Sprintf("expected %d shards, got %d", c.k+c.m, len(shards)))
	}

	missing := 0
	for _, s := range shards {
		if s == nil {
			missing++
		}
	}
	if missing > c.m {
		return nil, sdkerr.New(sdkerr.Erasure, "erasure.Decode", "INSUFFICIENT_SHARDS")
	}

	if err := c.enc.Reconstruct(shards); err != nil {
		return nil, sdkerr.Wrap(sdkerr.Erasure, "erasure.Decode", err)
	}

	out := make([]byte, 0, originalSize)
	for i := 0; i < c.k && len(out) < originalSize; i++ {
		remaining := originalSize - len(out)
		if remaining >= len(shards[i]) {
			out = append(out, shards[i]...)
		} else {
			out = append(out, shards[i][:remaining]...)
		}
	}
	if len(out) != originalSize {
		return nil, sdkerr.New(sdkerr.Erasure, "erasure.Decode", "INSUFFICIENT_SHARDS")
	}
	return out, nil
}

// ExtractDataBlocks returns the k data shards (stripped of zero padding per
// originalSize) without attempting any reconstruction. All k data shards
// must be present; this is the fast path used when no shard was dropped in
// transit. Erasure positions are always expressed as shard indices, never
// byte offsets within a shard.
func (c *Coder) ExtractDataBlocks(shards [][]byte, originalSize int) ([]byte, error) {
	for i := 0; i < c.k; i++ {
		if shards[i] == nil {
			return nil, sdkerr.New(sdkerr.Erasure, "erasure.ExtractDataBlocks", "INSUFFICIENT_SHARDS")
		}
	}
	out := make([]byte, 0, originalSize)
	for i := 0; i < c.k && len(out) < originalSize; i++ {
		remaining := originalSize - len(out)
		if remaining >= len(shards[i]) {
			out = append(out, shards[i]...)
		} else {
			out = append(out, shards[i][:remaining]...)
		}
	}
	return out, nil
}
