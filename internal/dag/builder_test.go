package dag

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

// TestSmallFileRoundTrip covers S2: 1024 bytes at blockSize 256 become four
// leaves under a root whose CID starts with the dag-pb v1 base32 prefix
// "bafy", and extraction returns the original bytes.
func TestSmallFileRoundTrip(t *testing.T) {
	data := randomBytes(t, 1024)

	root, leaves, err := BuildFromBytes(data, 256)
	require.NoError(t, err)
	require.Len(t, leaves, 4)
	require.True(t, strings.HasPrefix(root.CID.String(), "bafy"))
	require.Equal(t, uint64(1024), root.RawSize)
	require.GreaterOrEqual(t, root.EncodedSize, uint64(1024))

	var out []byte
	for _, leaf := range leaves {
		chunk, err := ExtractBlockData(leaf.CID, leaf.Bytes)
		require.NoError(t, err)
		out = append(out, chunk...)
	}
	require.Equal(t, data, out)
}

func TestBuildLeafFitsExactly(t *testing.T) {
	data := randomBytes(t, 256)
	root, leaves, err := BuildFromBytes(data, 256)
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	require.True(t, root.CID.Equal(leaves[0].CID))

	extracted, err := ExtractBlockData(root.CID, root.Bytes)
	require.NoError(t, err)
	require.Equal(t, data, extracted)
}

func TestCIDDeterministic(t *testing.T) {
	data := randomBytes(t, 4096)
	root1, _, err := BuildFromBytes(data, 512)
	require.NoError(t, err)
	root2, _, err := BuildFromBytes(data, 512)
	require.NoError(t, err)
	require.True(t, root1.CID.Equal(root2.CID))
	require.Equal(t, root1.Bytes, root2.Bytes)
}

func TestBuildFromBytesEmptyInput(t *testing.T) {
	root, leaves, err := BuildFromBytes(nil, 256)
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	require.Equal(t, uint64(0), root.RawSize)
}

func TestBuildFromBytesRejectsNonPositiveBlockSize(t *testing.T) {
	_, _, err := BuildFromBytes([]byte("x"), 0)
	require.Error(t, err)
}

func TestBuildRootRejectsEmptyChildren(t *testing.T) {
	_, err := BuildRoot(nil)
	require.Error(t, err)
}

// TestRootLinkOrderPreserved confirms link order matches input slice order
// (required so blockIndex stays meaningful on the wire).
func TestRootLinkOrderPreserved(t *testing.T) {
	data := randomBytes(t, 1000)
	root, leaves, err := BuildFromBytes(data, 256)
	require.NoError(t, err)

	_, links, err := unmarshalPBNode(root.Bytes)
	require.NoError(t, err)
	require.Len(t, links, len(leaves))
	for i, l := range links {
		require.Equal(t, leaves[i].CID.Bytes(), l.Hash)
		require.Equal(t, leaves[i].EncodedSize, l.Tsize)
		require.Equal(t, "", l.Name)
	}
}

// TestPaddingSafety is invariant #7: the last leaf's UnixFS filesize equals
// the unpadded remainder, independent of any caller-side block padding.
func TestPaddingSafety(t *testing.T) {
	data := randomBytes(t, 1000) // 3*256 + 232 remainder
	_, leaves, err := BuildFromBytes(data, 256)
	require.NoError(t, err)
	require.Len(t, leaves, 4)

	last := leaves[len(leaves)-1]
	require.Equal(t, uint64(232), last.RawSize)

	extracted, err := ExtractBlockData(last.CID, last.Bytes)
	require.NoError(t, err)
	require.Len(t, extracted, 232)
}

func TestExtractBlockDataRawCodecPassthrough(t *testing.T) {
	payload := []byte("raw leaf bytes")
	cid, err := NewCID(CodecRaw, payload)
	require.NoError(t, err)

	out, err := ExtractBlockData(cid, payload)
	require.NoError(t, err)
	require.True(t, bytes.Equal(payload, out))
}

func TestParseCIDRoundTrip(t *testing.T) {
	data := randomBytes(t, 10)
	leaf, err := BuildLeaf(data)
	require.NoError(t, err)

	parsed, err := ParseCID(leaf.CID.String())
	require.NoError(t, err)
	require.True(t, parsed.Equal(leaf.CID))

	fromBytes, err := CIDFromBytes(leaf.CID.Bytes())
	require.NoError(t, err)
	require.True(t, fromBytes.Equal(leaf.CID))
}
