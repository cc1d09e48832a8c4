// Package upload implements the UploadPipeline: chunking, per-chunk DAG
// construction, optional encryption and erasure coding, concurrent signed
// block transport, and the on-chain create/commit that anchors the result.
package upload

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"io"
	"math/big"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ethereum/go-ethereum/common"

	"github.com/akave-ai/akavesdk/internal/chain"
	"github.com/akave-ai/akavesdk/internal/config"
	akcrypto "github.com/akave-ai/akavesdk/internal/crypto"
	"github.com/akave-ai/akavesdk/internal/dag"
	"github.com/akave-ai/akavesdk/internal/eip712"
	"github.com/akave-ai/akavesdk/internal/erasure"
	"github.com/akave-ai/akavesdk/internal/nodeapi"
	"github.com/akave-ai/akavesdk/internal/sdkerr"
)

// blockDeadline bounds how long a signed block authorization remains valid.
const blockDeadline = 5 * time.Minute

// Progress is reported through Options.OnProgress as the pipeline advances
// — a supplemental view the distilled upload/download operations didn't
// originally expose.
type Progress struct {
	ChunksDone, ChunksTotal int
	BytesUploaded           int64
}

// Options configures one Upload call.
type Options struct {
	// RootKey is the 32-byte root used to derive the per-file encryption
	// key when Encrypt is set; Encrypt alone decides whether chunks are
	// sealed.
	RootKey [32]byte
	Encrypt bool

	// Erasure enables Reed-Solomon coding of chunk bytes with the given
	// (k, m) shard counts.
	Erasure  bool
	DataK    int
	ParityM  int

	MaxConcurrency int
	BlockSize      int
	BlockPartSize  int
	MaxBlocksInChunk int

	OnProgress func(Progress)
}

// Result is what a successful Upload returns.
type Result struct {
	RootCID     dag.CID
	Size        uint64
	EncodedSize uint64
}

// ChainClient is the slice of *chain.Client the pipeline needs: bucket/file
// identity derivation and the on-chain reserve/commit writes. Narrowing to
// an interface lets the pipeline be tested without a live chain RPC.
type ChainClient interface {
	BucketID(name string) [32]byte
	ChainID() *big.Int
	PrivateKey() *ecdsa.PrivateKey
	StorageAddress() common.Address
	CreateFile(ctx context.Context, bucketID, fileID [32]byte, name string, size uint64) error
	CommitFile(ctx context.Context, bucketID, fileID [32]byte, size uint64, rootCID []byte) error
}

// Pipeline drives one file's upload against a ChainClient and a single
// storage node's gRPC data-plane client.
type Pipeline struct {
	chain  ChainClient
	node   nodeapi.Client
	nodeID [32]byte
}

// New builds a Pipeline over an already-dialed node client.
func New(chainClient ChainClient, node nodeapi.Client, nodeAddress string) *Pipeline {
	return &Pipeline{
		chain:  chainClient,
		node:   node,
		nodeID: akcrypto.Keccak256([]byte(nodeAddress)),
	}
}

// Upload reads all of src, builds the chunked DAG, uploads every block
// under the given options, and commits the resulting root on-chain.
func (p *Pipeline) Upload(ctx context.Context, bucketName, fileName string, src io.Reader, opts Options) (Result, error) {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = config.BlockSize
	}
	if opts.BlockPartSize <= 0 {
		opts.BlockPartSize = opts.BlockSize
	}
	if opts.MaxBlocksInChunk <= 0 {
		opts.MaxBlocksInChunk = 32
	}

	// Per-file key: each chunk is sealed whole under derive_key(fileKey,
	// "chunk_"+i) before any DAG/erasure work sees it.
	var fileKey [32]byte
	if opts.Encrypt {
		var err error
		fileKey, err = akcrypto.DeriveKey(opts.RootKey, []byte(bucketName+"/"+fileName))
		if err != nil {
			return Result{}, sdkerr.Wrap(sdkerr.Crypto, "upload.Upload", err)
		}
	}

	var coder *erasure.Coder
	if opts.Erasure {
		var err error
		coder, err = erasure.New(opts.DataK, opts.ParityM)
		if err != nil {
			return Result{}, err
		}
	}

	bucketID := p.chain.BucketID(bucketName)
	fileID := chain.FileID(bucketID, fileName)
	if err := p.chain.CreateFile(ctx, bucketID, fileID, fileName, 0); err != nil {
		return Result{}, err
	}

	chunkSize := opts.MaxBlocksInChunk * opts.BlockSize
	var (
		fileLinks  []dag.Node
		totalRaw   uint64
		chunkIndex int
	)

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, sdkerr.Wrap(sdkerr.Cancelled, "upload.Upload", err)
		}

		chunkBytes, last, err := nextChunk(src, chunkSize)
		if err != nil {
			return Result{}, err
		}
		if chunkBytes == nil {
			break
		}

		if opts.Encrypt {
			sealed, err := akcrypto.SealAESGCM(fileKey, chunkBytes, []byte("chunk_"+strconv.Itoa(chunkIndex)))
			if err != nil {
				return Result{}, sdkerr.Wrap(sdkerr.Crypto, "upload.Upload", err)
			}
			chunkBytes = sealed
		}

		chunkRoot, err := p.uploadChunk(ctx, bucketID, fileID, chunkIndex, chunkBytes, coder, opts)
		if err != nil {
			return Result{}, err
		}
		fileLinks = append(fileLinks, chunkRoot)
		totalRaw += chunkRoot.RawSize

		chunkIndex++
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{ChunksDone: chunkIndex, BytesUploaded: int64(totalRaw)})
		}

		if last {
			break
		}
	}

	if len(fileLinks) == 0 {
		// Empty file: still produce a valid (empty) leaf so rootCID is defined.
		leaf, err := dag.BuildLeaf(nil)
		if err != nil {
			return Result{}, err
		}
		fileLinks = append(fileLinks, leaf)
	}

	root, err := dag.BuildRoot(fileLinks)
	if err != nil {
		return Result{}, err
	}

	if err := p.chain.CommitFile(ctx, bucketID, fileID, root.EncodedSize, root.CID.Bytes()); err != nil {
		return Result{}, err
	}

	return Result{RootCID: root.CID, Size: root.RawSize, EncodedSize: root.EncodedSize}, nil
}

// nextChunk reads one chunk directly from src. It returns a nil chunkBytes
// once the source is exhausted, and last=true on the final non-empty chunk
// so the caller's loop can stop without a trailing empty read.
func nextChunk(src io.Reader, chunkSize int) (chunkBytes []byte, last bool, err error) {
	buf := make([]byte, chunkSize)
	n, readErr := io.ReadFull(src, buf)
	if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
		return nil, false, sdkerr.Wrap(sdkerr.Transport, "upload.Upload", readErr)
	}
	if n == 0 {
		return nil, true, nil
	}
	last = readErr == io.ErrUnexpectedEOF || readErr == io.EOF || n < len(buf)
	return buf[:n], last, nil
}

// uploadChunk optionally erasure-codes one chunk (already sealed upstream
// if Options.Encrypt was set), builds its DAG, uploads every block
// concurrently, and returns the chunk's root node (used as a link in the
// file-level DAG).
func (p *Pipeline) uploadChunk(
	ctx context.Context,
	bucketID, fileID [32]byte,
	chunkIndex int,
	payload []byte,
	coder *erasure.Coder,
	opts Options,
) (dag.Node, error) {
	var leaves []dag.Node
	var chunkRoot dag.Node
	if coder != nil {
		shards, err := coder.Encode(payload)
		if err != nil {
			return dag.Node{}, err
		}
		leaves = make([]dag.Node, len(shards))
		for i, shard := range shards {
			leaf, err := dag.BuildLeaf(shard)
			if err != nil {
				return dag.Node{}, err
			}
			leaves[i] = leaf
		}
		chunkRoot, err = dag.BuildRoot(leaves)
		if err != nil {
			return dag.Node{}, err
		}
	} else {
		root, plainLeaves, err := dag.BuildFromBytes(payload, opts.BlockSize)
		if err != nil {
			return dag.Node{}, err
		}
		leaves = plainLeaves
		chunkRoot = root
	}

	sem := semaphore.NewWeighted(int64(opts.MaxConcurrency))
	g, gctx := errgroup.WithContext(ctx)
	for blockIndex, leaf := range leaves {
		blockIndex, leaf := blockIndex, leaf
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			return p.uploadBlock(gctx, bucketID, chunkRoot.CID, leaf, chunkIndex, blockIndex, opts.BlockPartSize)
		})
	}
	if err := g.Wait(); err != nil {
		return dag.Node{}, err
	}
	return chunkRoot, nil
}

func (p *Pipeline) uploadBlock(ctx context.Context, bucketID [32]byte, chunkCID dag.CID, leaf dag.Node, chunkIndex, blockIndex, partSize int) error {
	blockCIDHash := akcrypto.Keccak256(leaf.CID.Bytes())

	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return sdkerr.Wrap(sdkerr.Crypto, "upload.uploadBlock", err)
	}

	data := eip712.StorageData{
		ChunkCID:   chunkCID.Bytes(),
		BlockCID:   blockCIDHash,
		ChunkIndex: big.NewInt(int64(chunkIndex)),
		BlockIndex: uint8(blockIndex),
		NodeID:     p.nodeID,
		Nonce:      new(big.Int).SetBytes(nonce[:]),
		Deadline:   big.NewInt(time.Now().Add(blockDeadline).Unix()),
		BucketID:   bucketID,
	}
	domain := eip712.NewStorageDomain(p.chain.ChainID(), p.chain.StorageAddress())
	sig, err := eip712.SignStorageData(p.chain.PrivateKey(), domain, data)
	if err != nil {
		return sdkerr.Wrap(sdkerr.Crypto, "upload.uploadBlock", err)
	}

	stream, err := p.node.FileUploadBlock(ctx)
	if err != nil {
		return sdkerr.Wrap(sdkerr.Transport, "upload.uploadBlock", err)
	}

	header := &nodeapi.PartHeader{
		ChunkCID:   data.ChunkCID,
		BlockCID:   data.BlockCID,
		BlockIndex: data.BlockIndex,
		ChunkIndex: uint64(chunkIndex),
		NodeID:     data.NodeID,
		Signature:  sig,
		Deadline:   uint64(data.Deadline.Int64()),
		Nonce:      nonce,
		BucketID:   data.BucketID,
	}

	if partSize <= 0 {
		partSize = len(leaf.Bytes)
	}
	if partSize <= 0 {
		partSize = 1
	}
	first := true
	for offset := 0; offset < len(leaf.Bytes) || first; {
		end := offset + partSize
		if end > len(leaf.Bytes) {
			end = len(leaf.Bytes)
		}
		part := &nodeapi.Part{Data: leaf.Bytes[offset:end]}
		if first {
			part.Header = header
			first = false
		}
		if err := stream.Send(part); err != nil {
			return sdkerr.Wrap(sdkerr.Transport, "upload.uploadBlock", err)
		}
		offset = end
		if offset >= len(leaf.Bytes) {
			break
		}
	}

	ack, err := stream.CloseAndRecv()
	if err != nil {
		return sdkerr.Wrap(sdkerr.Transport, "upload.uploadBlock", err)
	}
	if !ack.OK {
		return sdkerr.New(sdkerr.Transport, "upload.uploadBlock", ack.Error)
	}
	return nil
}

