// Package download implements the DownloadPipeline: chunk/block range
// resolution against a storage node, concurrent fetch-and-verify of
// blocks, erasure reconstruction, and decryption back into the original
// byte stream.
package download

import (
	"bytes"
	"context"
	"io"
	"strconv"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/akave-ai/akavesdk/internal/crypto"
	"github.com/akave-ai/akavesdk/internal/dag"
	"github.com/akave-ai/akavesdk/internal/erasure"
	"github.com/akave-ai/akavesdk/internal/nodeapi"
	"github.com/akave-ai/akavesdk/internal/sdkerr"
)

// Options configures one Download call.
type Options struct {
	// RootKey, if Decrypt is set, is the root used to re-derive the
	// per-file key the upload side sealed chunks under.
	RootKey [32]byte
	Decrypt bool

	// Erasure must mirror the (k, m) the file was uploaded with.
	Erasure bool
	DataK   int
	ParityM int

	MaxConcurrency int
}

// Pipeline drives one file's download against a single node client.
type Pipeline struct {
	node nodeapi.Client
}

// New builds a Pipeline over an already-dialed node client.
func New(node nodeapi.Client) *Pipeline {
	return &Pipeline{node: node}
}

// Download streams bucket/name's content into dst, verifying every
// block's CID, reconstructing erasure-coded chunks, and decrypting if
// Options.Decrypt is set.
func (p *Pipeline) Download(ctx context.Context, bucket, name string, dst io.Writer, opts Options) error {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}

	var coder *erasure.Coder
	if opts.Erasure {
		var err error
		coder, err = erasure.New(opts.DataK, opts.ParityM)
		if err != nil {
			return err
		}
	}

	created, err := p.node.FileDownloadCreate(ctx, &nodeapi.FileDownloadCreateRequest{Bucket: bucket, Name: name})
	if err != nil {
		return sdkerr.Wrap(sdkerr.Transport, "download.Download", err)
	}

	var fileKey [32]byte
	if opts.Decrypt {
		fileKey, err = crypto.DeriveKey(opts.RootKey, []byte(bucket+"/"+name))
		if err != nil {
			return sdkerr.Wrap(sdkerr.Crypto, "download.Download", err)
		}
	}

	for _, desc := range created.Chunks {
		if err := ctx.Err(); err != nil {
			return sdkerr.Wrap(sdkerr.Cancelled, "download.Download", err)
		}

		blocksResp, err := p.node.FileDownloadChunkCreate(ctx, &nodeapi.FileDownloadChunkCreateRequest{
			Bucket:     bucket,
			Name:       name,
			ChunkIndex: desc.Index,
		})
		if err != nil {
			return sdkerr.Wrap(sdkerr.Transport, "download.Download", err)
		}

		chunkBytes, err := p.fetchAndAssembleChunk(ctx, blocksResp.Blocks, int(desc.Size), coder, opts)
		if err != nil {
			return err
		}

		if opts.Decrypt {
			chunkBytes, err = crypto.OpenAESGCM(fileKey, chunkBytes, []byte("chunk_"+strconv.FormatUint(desc.Index, 10)))
			if err != nil {
				return sdkerr.Wrap(sdkerr.Crypto, "download.Download", err)
			}
		}

		if _, err := dst.Write(chunkBytes); err != nil {
			return sdkerr.Wrap(sdkerr.Transport, "download.Download", err)
		}
	}
	return nil
}

// fetchAndAssembleChunk fetches every block concurrently, treating a CID
// mismatch or transport failure the same as a missing shard (an erasure),
// then either reconstructs (erasure mode) or concatenates the fetched
// block payloads in order (plain mode).
func (p *Pipeline) fetchAndAssembleChunk(ctx context.Context, blocks []nodeapi.BlockDescriptor, rawSize int, coder *erasure.Coder, opts Options) ([]byte, error) {
	shards := make([][]byte, len(blocks))

	sem := semaphore.NewWeighted(int64(opts.MaxConcurrency))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range blocks {
		i, b := i, b
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			data, err := p.fetchBlock(gctx, b)
			if err != nil {
				// A single block's failure is an erasure, not a fatal
				// error — leave shards[i] nil and let the coder (or the
				// non-erasure fast path) decide whether that's fatal.
				return nil
			}
			shards[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, sdkerr.Wrap(sdkerr.Transport, "download.fetchAndAssembleChunk", err)
	}

	if coder != nil {
		return coder.Decode(shards, rawSize)
	}

	var buf bytes.Buffer
	for _, s := range shards {
		if s == nil {
			return nil, sdkerr.New(sdkerr.Transport, "download.fetchAndAssembleChunk", "missing block in non-erasure chunk")
		}
		buf.Write(s)
	}
	return buf.Bytes(), nil
}

// fetchBlock downloads one block, verifies its bytes hash to the CID the
// node advertised, and unwinds the UnixFS wrapping to raw payload bytes.
func (p *Pipeline) fetchBlock(ctx context.Context, desc nodeapi.BlockDescriptor) ([]byte, error) {
	cid, err := dag.CIDFromBytes(desc.CID)
	if err != nil {
		return nil, sdkerr.Wrap(sdkerr.Transport, "download.fetchBlock", err)
	}

	stream, err := p.node.FileDownloadBlock(ctx, &nodeapi.FileDownloadBlockRequest{
		CID:    desc.CID,
		NodeID: desc.NodeID,
		Permit: desc.Permit,
	})
	if err != nil {
		return nil, sdkerr.Wrap(sdkerr.Transport, "download.fetchBlock", err)
	}

	var buf bytes.Buffer
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, sdkerr.Wrap(sdkerr.Transport, "download.fetchBlock", err)
		}
		buf.Write(chunk.Data)
	}

	recomputed, err := dag.NewCID(cid.Codec(), buf.Bytes())
	if err != nil {
		return nil, sdkerr.Wrap(sdkerr.Transport, "download.fetchBlock", err)
	}
	if !recomputed.Equal(cid) {
		return nil, sdkerr.New(sdkerr.Transport, "download.fetchBlock", "block CID mismatch")
	}

	return dag.ExtractBlockData(cid, buf.Bytes())
}
