package download

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akave-ai/akavesdk/internal/crypto"
	"github.com/akave-ai/akavesdk/internal/dag"
	"github.com/akave-ai/akavesdk/internal/erasure"
	"github.com/akave-ai/akavesdk/internal/nodeapi"
)

// fakeDownloadStream replays pre-seeded BlockChunk fragments.
type fakeDownloadStream struct {
	chunks []*nodeapi.BlockChunk
	i      int
}

func (s *fakeDownloadStream) Recv() (*nodeapi.BlockChunk, error) {
	if s.i >= len(s.chunks) {
		return nil, io.EOF
	}
	c := s.chunks[s.i]
	s.i++
	return c, nil
}

type fakeNodeClient struct {
	nodeapi.Client
	createResp *nodeapi.FileDownloadCreateResponse
	chunkResp  map[uint64]*nodeapi.FileDownloadChunkCreateResponse
	blocks     map[string][]byte // CID textual form -> block wire bytes
	missing    map[string]bool
}

func (f *fakeNodeClient) FileDownloadCreate(ctx context.Context, req *nodeapi.FileDownloadCreateRequest) (*nodeapi.FileDownloadCreateResponse, error) {
	return f.createResp, nil
}

func (f *fakeNodeClient) FileDownloadChunkCreate(ctx context.Context, req *nodeapi.FileDownloadChunkCreateRequest) (*nodeapi.FileDownloadChunkCreateResponse, error) {
	return f.chunkResp[req.ChunkIndex], nil
}

func (f *fakeNodeClient) FileDownloadBlock(ctx context.Context, req *nodeapi.FileDownloadBlockRequest) (nodeapi.DownloadBlockStream, error) {
	cid, err := dag.CIDFromBytes(req.CID)
	if err != nil {
		return nil, err
	}
	if f.missing[cid.String()] {
		return nil, io.ErrClosedPipe
	}
	data := f.blocks[cid.String()]
	return &fakeDownloadStream{chunks: []*nodeapi.BlockChunk{{Data: data}}}, nil
}

func buildFixture(t *testing.T, raw []byte, blockSize int) (*nodeapi.FileDownloadCreateResponse, map[uint64]*nodeapi.FileDownloadChunkCreateResponse, map[string][]byte) {
	root, leaves, err := dag.BuildFromBytes(raw, blockSize)
	require.NoError(t, err)

	blocks := map[string][]byte{}
	var descs []nodeapi.BlockDescriptor
	for _, leaf := range leaves {
		blocks[leaf.CID.String()] = leaf.Bytes
		descs = append(descs, nodeapi.BlockDescriptor{CID: leaf.CID.Bytes(), NodeAddress: "node-1", NodeID: "node-1"})
	}

	createResp := &nodeapi.FileDownloadCreateResponse{
		Chunks: []nodeapi.ChunkDescriptor{{
			CID:         root.CID.Bytes(),
			Index:       0,
			Size:        root.RawSize,
			EncodedSize: root.EncodedSize,
		}},
	}
	chunkResp := map[uint64]*nodeapi.FileDownloadChunkCreateResponse{
		0: {Blocks: descs},
	}
	return createResp, chunkResp, blocks
}

func TestDownloadPlainRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte("hello-world-"), 50)
	createResp, chunkResp, blocks := buildFixture(t, raw, 64)

	node := &fakeNodeClient{createResp: createResp, chunkResp: chunkResp, blocks: blocks, missing: map[string]bool{}}
	p := New(node)

	var out bytes.Buffer
	err := p.Download(context.Background(), "bucket", "file", &out, Options{MaxConcurrency: 4})
	require.NoError(t, err)
	require.Equal(t, raw, out.Bytes())
}

func TestDownloadDecryptsWhenRequested(t *testing.T) {
	var rootKey [32]byte
	copy(rootKey[:], "0123456789abcdef0123456789abcdef")

	plaintext := []byte("round trip me through AES-GCM")
	fileKey, err := crypto.DeriveKey(rootKey, []byte("bucket/file"))
	require.NoError(t, err)
	sealed, err := crypto.SealAESGCM(fileKey, plaintext, []byte("chunk_0"))
	require.NoError(t, err)

	createResp, chunkResp, blocks := buildFixture(t, sealed, 1<<20)
	node := &fakeNodeClient{createResp: createResp, chunkResp: chunkResp, blocks: blocks, missing: map[string]bool{}}
	p := New(node)

	var out bytes.Buffer
	err = p.Download(context.Background(), "bucket", "file", &out, Options{Decrypt: true, RootKey: rootKey, MaxConcurrency: 2})
	require.NoError(t, err)
	require.Equal(t, plaintext, out.Bytes())
}

func TestDownloadReconstructsWithErasureLoss(t *testing.T) {
	// Distinct bytes keep the four data shards, and so their leaf CIDs, distinct.
	raw := make([]byte, 400)
	for i := range raw {
		raw[i] = byte(i)
	}
	coder, err := erasure.New(4, 2)
	require.NoError(t, err)
	shards, err := coder.Encode(raw)
	require.NoError(t, err)

	blocks := map[string][]byte{}
	var descs []nodeapi.BlockDescriptor
	var nodes []dag.Node
	var leafCIDs []string
	for _, shard := range shards {
		leaf, err := dag.BuildLeaf(shard)
		require.NoError(t, err)
		blocks[leaf.CID.String()] = leaf.Bytes
		descs = append(descs, nodeapi.BlockDescriptor{CID: leaf.CID.Bytes(), NodeAddress: "n", NodeID: "n"})
		nodes = append(nodes, leaf)
		leafCIDs = append(leafCIDs, leaf.CID.String())
	}
	root, err := dag.BuildRoot(nodes)
	require.NoError(t, err)

	createResp := &nodeapi.FileDownloadCreateResponse{
		Chunks: []nodeapi.ChunkDescriptor{{CID: root.CID.Bytes(), Index: 0, Size: uint64(len(raw)), EncodedSize: root.EncodedSize}},
	}
	chunkResp := map[uint64]*nodeapi.FileDownloadChunkCreateResponse{0: {Blocks: descs}}

	// Drop exactly one data shard and one parity shard — within the m=2 tolerance.
	missing := map[string]bool{leafCIDs[1]: true, leafCIDs[5]: true}
	node := &fakeNodeClient{createResp: createResp, chunkResp: chunkResp, blocks: blocks, missing: missing}
	p := New(node)

	var out bytes.Buffer
	err = p.Download(context.Background(), "bucket", "file", &out, Options{Erasure: true, DataK: 4, ParityM: 2, MaxConcurrency: 4})
	require.NoError(t, err)
	require.Equal(t, raw, out.Bytes())
}

func TestDownloadFailsOnTooManyMissingBlocks(t *testing.T) {
	raw := bytes.Repeat([]byte("q"), 400)
	coder, err := erasure.New(4, 2)
	require.NoError(t, err)
	shards, err := coder.Encode(raw)
	require.NoError(t, err)

	blocks := map[string][]byte{}
	var descs []nodeapi.BlockDescriptor
	var leafCIDs []string
	for _, shard := range shards {
		leaf, err := dag.BuildLeaf(shard)
		require.NoError(t, err)
		blocks[leaf.CID.String()] = leaf.Bytes
		descs = append(descs, nodeapi.BlockDescriptor{CID: leaf.CID.Bytes(), NodeAddress: "n", NodeID: "n"})
		leafCIDs = append(leafCIDs, leaf.CID.String())
	}
	var nodes []dag.Node
	for _, shard := range shards {
		leaf, _ := dag.BuildLeaf(shard)
		nodes = append(nodes, leaf)
	}
	root, err := dag.BuildRoot(nodes)
	require.NoError(t, err)

	createResp := &nodeapi.FileDownloadCreateResponse{
		Chunks: []nodeapi.ChunkDescriptor{{CID: root.CID.Bytes(), Index: 0, Size: uint64(len(raw)), EncodedSize: root.EncodedSize}},
	}
	chunkResp := map[uint64]*nodeapi.FileDownloadChunkCreateResponse{0: {Blocks: descs}}

	missing := map[string]bool{leafCIDs[0]: true, leafCIDs[1]: true, leafCIDs[2]: true}
	node := &fakeNodeClient{createResp: createResp, chunkResp: chunkResp, blocks: blocks, missing: missing}
	p := New(node)

	var out bytes.Buffer
	err = p.Download(context.Background(), "bucket", "file", &out, Options{Erasure: true, DataK: 4, ParityM: 2, MaxConcurrency: 4})
	require.Error(t, err)
}
