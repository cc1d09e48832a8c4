package akavefs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToConfigFallsBackIPCAddressToAddress(t *testing.T) {
	cfg := SDKConfig{Address: "node:1234", PrivateKey: "abc"}
	plain := cfg.toConfig()
	require.Equal(t, "node:1234", plain.IPCAddress)
}

func TestToConfigKeepsExplicitIPCAddress(t *testing.T) {
	cfg := SDKConfig{Address: "node:1234", IPCAddress: "chain:5678", PrivateKey: "abc"}
	plain := cfg.toConfig()
	require.Equal(t, "chain:5678", plain.IPCAddress)
}

func TestUploadOptionsForDisablesErasureWhenParityIsZero(t *testing.T) {
	cfg := SDKConfig{StreamingMaxBlocksInChunk: 32, ParityBlocksCount: 0, MaxConcurrency: 8, BlockPartSize: 1024}
	opts := uploadOptionsFor(cfg, UploadOptions{Encrypt: true})
	require.False(t, opts.Erasure)
	require.True(t, opts.Encrypt)
	require.Equal(t, 8, opts.MaxConcurrency)
}

func TestUploadOptionsForDerivesDataKFromParity(t *testing.T) {
	cfg := SDKConfig{StreamingMaxBlocksInChunk: 32, ParityBlocksCount: 6, MaxConcurrency: 4, BlockPartSize: 1024}
	opts := uploadOptionsFor(cfg, UploadOptions{})
	require.True(t, opts.Erasure)
	require.Equal(t, 26, opts.DataK)
	require.Equal(t, 6, opts.ParityM)
}

func TestDownloadOptionsForMirrorsUploadShardMath(t *testing.T) {
	cfg := SDKConfig{StreamingMaxBlocksInChunk: 10, ParityBlocksCount: 2, MaxConcurrency: 2}
	opts := downloadOptionsFor(cfg, DownloadOptions{Decrypt: true})
	require.True(t, opts.Erasure)
	require.True(t, opts.Decrypt)
	require.Equal(t, 8, opts.DataK)
	require.Equal(t, 2, opts.ParityM)
}

func TestNewBlockSplitterRequiresRootKey(t *testing.T) {
	sdk := &SDK{}
	_, err := sdk.NewBlockSplitter(strings.NewReader("x"), 64)
	require.Error(t, err)
}

func TestNewBlockSplitterSucceedsWithRootKey(t *testing.T) {
	sdk := &SDK{hasRootKey: true}
	sp, err := sdk.NewBlockSplitter(strings.NewReader("hello world"), 64)
	require.NoError(t, err)
	require.NotNil(t, sp)
}
