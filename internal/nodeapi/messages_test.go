package nodeapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartRoundTripWithHeader(t *testing.T) {
	part := &Part{
		Header: &PartHeader{
			ChunkCID:   []byte("chunk-cid"),
			BlockCID:   [32]byte{1, 2, 3},
			BlockIndex: 5,
			ChunkIndex: 42,
			NodeID:     [32]byte{9},
			Signature:  [65]byte{27: 0x1b},
			Deadline:   1234,
			Nonce:      [32]byte{7},
			BucketID:   [32]byte{4},
		},
		Data: []byte("fragment bytes"),
	}

	encoded := part.Marshal()
	var decoded Part
	require.NoError(t, decoded.Unmarshal(encoded))

	require.NotNil(t, decoded.Header)
	require.Equal(t, part.Header.ChunkCID, decoded.Header.ChunkCID)
	require.Equal(t, part.Header.BlockCID, decoded.Header.BlockCID)
	require.Equal(t, part.Header.BlockIndex, decoded.Header.BlockIndex)
	require.Equal(t, part.Header.ChunkIndex, decoded.Header.ChunkIndex)
	require.Equal(t, part.Header.Nonce, decoded.Header.Nonce)
	require.Equal(t, part.Data, decoded.Data)
}

func TestPartRoundTripDataOnly(t *testing.T) {
	part := &Part{Data: []byte("continuation fragment")}
	var decoded Part
	require.NoError(t, decoded.Unmarshal(part.Marshal()))
	require.Nil(t, decoded.Header)
	require.Equal(t, part.Data, decoded.Data)
}

func TestFileDownloadCreateResponseRoundTrip(t *testing.T) {
	resp := &FileDownloadCreateResponse{
		Chunks: []ChunkDescriptor{
			{CID: []byte("c0"), Index: 0, Size: 100, EncodedSize: 120},
			{CID: []byte("c1"), Index: 1, Size: 200, EncodedSize: 240},
		},
	}
	var decoded FileDownloadCreateResponse
	require.NoError(t, decoded.Unmarshal(resp.Marshal()))
	require.Len(t, decoded.Chunks, 2)
	require.Equal(t, resp.Chunks, decoded.Chunks)
}

func TestFileDownloadChunkCreateResponseRoundTrip(t *testing.T) {
	resp := &FileDownloadChunkCreateResponse{
		Blocks: []BlockDescriptor{
			{CID: []byte("b0"), NodeAddress: "10.0.0.1:9000", NodeID: "node-a", Permit: []byte("permit")},
		},
	}
	var decoded FileDownloadChunkCreateResponse
	require.NoError(t, decoded.Unmarshal(resp.Marshal()))
	require.Equal(t, resp.Blocks, decoded.Blocks)
}

func TestAckRoundTrip(t *testing.T) {
	ack := &Ack{OK: false, Error: "deadline exceeded"}
	var decoded Ack
	require.NoError(t, decoded.Unmarshal(ack.Marshal()))
	require.Equal(t, ack.OK, decoded.OK)
	require.Equal(t, ack.Error, decoded.Error)
}

func TestBucketCreateResponseRoundTrip(t *testing.T) {
	resp := &BucketCreateResponse{Bucket: BucketView{ID: "b1", Name: "my-bucket", CreatedAt: 9999}}
	var decoded BucketCreateResponse
	require.NoError(t, decoded.Unmarshal(resp.Marshal()))
	require.Equal(t, resp.Bucket, decoded.Bucket)
}
