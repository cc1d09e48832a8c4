// Package config loads and validates the SDK's runtime configuration:
// node/chain endpoints, key material, and the sizing knobs that govern
// chunking, concurrency, and erasure coding.
package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/akave-ai/akavesdk/internal/sdkerr"
)

// Size constants the rest of the SDK treats as fixed.
const (
	BlockSize               = 1 << 20 // 1 MiB
	MinBucketNameLength     = 3
	EncryptionOverhead      = 28
	MinFileSize             = 127
	defaultMaxConcurrency   = 16
	defaultBlockPartSize    = 256 * 1024
	defaultMaxBlocksInChunk = 32
	defaultChunkBuffer      = 4
)

// Config is every recognized option from the SDK's configuration surface.
type Config struct {
	Address       string `mapstructure:"address"`
	IPCAddress    string `mapstructure:"ipc_address"`
	PrivateKey    string `mapstructure:"private_key"`
	EncryptionKey string `mapstructure:"encryption_key"`

	MaxConcurrency            int  `mapstructure:"max_concurrency"`
	BlockPartSize             int  `mapstructure:"block_part_size"`
	UseConnectionPool         bool `mapstructure:"use_connection_pool"`
	StreamingMaxBlocksInChunk int  `mapstructure:"streaming_max_blocks_in_chunk"`
	ParityBlocksCount         int  `mapstructure:"parity_blocks_count"`
	ChunkBuffer               int  `mapstructure:"chunk_buffer"`

	ConnectionTimeoutSeconds int `mapstructure:"connection_timeout"`
}

// Load reads configuration from environment variables (and an optional
// config.yaml in the working directory or /etc/akavesdk), applies
// defaults, and validates the result.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("max_concurrency", defaultMaxConcurrency)
	v.SetDefault("block_part_size", defaultBlockPartSize)
	v.SetDefault("use_connection_pool", true)
	v.SetDefault("streaming_max_blocks_in_chunk", defaultMaxBlocksInChunk)
	v.SetDefault("parity_blocks_count", 0)
	v.SetDefault("chunk_buffer", defaultChunkBuffer)
	v.SetDefault("connection_timeout", 30)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/akavesdk")
	_ = v.ReadInConfig()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"address":                       "AKAVE_ADDRESS",
		"ipc_address":                   "AKAVE_IPC_ADDRESS",
		"private_key":                   "AKAVE_PRIVATE_KEY",
		"encryption_key":                "AKAVE_ENCRYPTION_KEY",
		"max_concurrency":               "AKAVE_MAX_CONCURRENCY",
		"block_part_size":               "AKAVE_BLOCK_PART_SIZE",
		"use_connection_pool":           "AKAVE_USE_CONNECTION_POOL",
		"streaming_max_blocks_in_chunk": "AKAVE_MAX_BLOCKS_IN_CHUNK",
		"parity_blocks_count":           "AKAVE_PARITY_BLOCKS",
		"chunk_buffer":                  "AKAVE_CHUNK_BUFFER",
		"connection_timeout":            "AKAVE_CONNECTION_TIMEOUT",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, sdkerr.Wrapf(sdkerr.Config, "config.Load", err, "bind env %s", env)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, sdkerr.Wrap(sdkerr.Config, "config.Load", err)
	}
	if cfg.IPCAddress == "" {
		cfg.IPCAddress = cfg.Address
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the SDK facade's invariants on sizing and key material.
func (c *Config) Validate() error {
	if c.Address == "" {
		return sdkerr.New(sdkerr.Config, "config.Validate", "address is required")
	}
	if c.PrivateKey == "" {
		return sdkerr.New(sdkerr.Config, "config.Validate", "private_key is required")
	}
	if _, err := hex.DecodeString(strings.TrimPrefix(c.PrivateKey, "0x")); err != nil {
		return sdkerr.Wrap(sdkerr.Config, "config.Validate", err)
	}

	if c.EncryptionKey != "" {
		keyBytes, err := hex.DecodeString(strings.TrimPrefix(c.EncryptionKey, "0x"))
		if err != nil {
			return sdkerr.Wrap(sdkerr.Config, "config.Validate", err)
		}
		if len(keyBytes) != 32 {
			return sdkerr.New(sdkerr.Config, "config.Validate",
				fmt.Sprintf("encryption_key must be 0 or 32 bytes, got %d", len(keyBytes)))
		}
	}

	if c.BlockPartSize <= 0 || c.BlockPartSize > BlockSize {
		return sdkerr.New(sdkerr.Config, "config.Validate",
			fmt.Sprintf("block_part_size must be in (0, %d], got %d", BlockSize, c.BlockPartSize))
	}
	if c.ParityBlocksCount > c.StreamingMaxBlocksInChunk/2 {
		return sdkerr.New(sdkerr.Config, "config.Validate",
			fmt.Sprintf("parity_blocks_count (%d) must be <= streaming_max_blocks_in_chunk/2 (%d)",
				c.ParityBlocksCount, c.StreamingMaxBlocksInChunk/2))
	}
	if c.MaxConcurrency <= 0 {
		return sdkerr.New(sdkerr.Config, "config.Validate", "max_concurrency must be positive")
	}
	return nil
}

// ValidateBucketName enforces the bucket-name length floor used across the
// facade's bucket CRUD operations.
func ValidateBucketName(name string) error {
	if len(name) < MinBucketNameLength {
		return sdkerr.New(sdkerr.Validation, "config.ValidateBucketName",
			fmt.Sprintf("bucket name must be at least %d characters", MinBucketNameLength))
	}
	return nil
}
