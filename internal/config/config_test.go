package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Address:                   "localhost:5000",
		PrivateKey:                "1111111111111111111111111111111111111111111111111111111111111111",
		MaxConcurrency:            16,
		BlockPartSize:             256 * 1024,
		StreamingMaxBlocksInChunk: 32,
		ParityBlocksCount:         4,
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsMissingAddress(t *testing.T) {
	c := validConfig()
	c.Address = ""
	require.Error(t, c.Validate())
}

func TestValidateRejectsBadEncryptionKeyLength(t *testing.T) {
	c := validConfig()
	c.EncryptionKey = "aabbcc"
	require.Error(t, c.Validate())
}

func TestValidateAcceptsEmptyEncryptionKey(t *testing.T) {
	c := validConfig()
	c.EncryptionKey = ""
	require.NoError(t, c.Validate())
}

func TestValidateRejectsOversizedBlockPartSize(t *testing.T) {
	c := validConfig()
	c.BlockPartSize = BlockSize + 1
	require.Error(t, c.Validate())
}

func TestValidateRejectsExcessiveParityBlocks(t *testing.T) {
	c := validConfig()
	c.ParityBlocksCount = 20
	c.StreamingMaxBlocksInChunk = 32
	require.Error(t, c.Validate())
}

func TestValidateBucketNameEnforcesMinLength(t *testing.T) {
	require.Error(t, ValidateBucketName("ab"))
	require.NoError(t, ValidateBucketName("abc"))
}
