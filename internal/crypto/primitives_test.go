package crypto

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcde"))

	plaintext := []byte("hello block data")
	ciphertext, err := SealAESGCM(key, plaintext, []byte("block_0"))
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ciphertext)

	got, err := OpenAESGCM(key, ciphertext, []byte("block_0"))
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestOpenWrongInfoFails(t *testing.T) {
	var key [32]byte
	ciphertext, err := SealAESGCM(key, []byte("data"), []byte("block_0"))
	require.NoError(t, err)

	_, err = OpenAESGCM(key, ciphertext, []byte("block_1"))
	require.Error(t, err)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	var parent [32]byte
	copy(parent[:], []byte("parentkeyparentkeyparentkeypare"))

	k1, err := DeriveKey(parent, []byte("chunk_0"))
	require.NoError(t, err)
	k2, err := DeriveKey(parent, []byte("chunk_0"))
	require.NoError(t, err)
	require.Equal(t, k1, k2)

	k3, err := DeriveKey(parent, []byte("chunk_1"))
	require.NoError(t, err)
	require.NotEqual(t, k1, k3)
}

func TestSignRecoverRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	digest := Keccak256([]byte("message"))
	sig, err := Sign(key, digest)
	require.NoError(t, err)
	require.True(t, sig[64] == 27 || sig[64] == 28)

	recovered, err := Recover(digest, sig)
	require.NoError(t, err)
	require.Equal(t, addr, recovered)
}

func TestKeccak256Concat(t *testing.T) {
	h1 := Keccak256([]byte("a"), []byte("b"))
	h2 := Keccak256([]byte("ab"))
	require.Equal(t, h1, h2)
}
