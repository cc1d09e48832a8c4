// Package akavefs is the SDK facade: bucket and file lifecycle operations
// layered over internal/chain (on-chain registry), internal/nodeapi (node
// data-plane), and the internal/upload and internal/download pipelines.
// It is the only package callers outside this module need to import.
package akavefs

import (
	"context"
	"encoding/hex"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/akave-ai/akavesdk/internal/chain"
	"github.com/akave-ai/akavesdk/internal/config"
	"github.com/akave-ai/akavesdk/internal/download"
	"github.com/akave-ai/akavesdk/internal/nodeapi"
	"github.com/akave-ai/akavesdk/internal/pool"
	"github.com/akave-ai/akavesdk/internal/sdkerr"
	"github.com/akave-ai/akavesdk/internal/splitter"
	"github.com/akave-ai/akavesdk/internal/upload"
)

// SDKConfig is the frozen configuration surface spec.md §6 names, plus the
// contract addresses and chain ID a literal construction needs to build a
// ChainClient (not part of the env/YAML-loadable table — see DESIGN.md).
type SDKConfig struct {
	Address       string
	IPCAddress    string
	PrivateKey    string
	EncryptionKey string

	MaxConcurrency            int
	BlockPartSize             int
	UseConnectionPool         bool
	StreamingMaxBlocksInChunk int
	ParityBlocksCount         int
	ChunkBuffer               int
	ConnectionTimeoutSeconds  int

	StorageContractAddress       common.Address
	AccessManagerContractAddress common.Address
	ChainID                      *big.Int
}

// toConfig adapts SDKConfig into internal/config.Config so the same
// Validate()/ValidateBucketName() rules apply whether the caller built
// SDKConfig literally or via config.Load().
func (c SDKConfig) toConfig() *config.Config {
	ipc := c.IPCAddress
	if ipc == "" {
		ipc = c.Address
	}
	return &config.Config{
		Address:                   c.Address,
		IPCAddress:                ipc,
		PrivateKey:                c.PrivateKey,
		EncryptionKey:             c.EncryptionKey,
		MaxConcurrency:            c.MaxConcurrency,
		BlockPartSize:             c.BlockPartSize,
		UseConnectionPool:         c.UseConnectionPool,
		StreamingMaxBlocksInChunk: c.StreamingMaxBlocksInChunk,
		ParityBlocksCount:         c.ParityBlocksCount,
		ChunkBuffer:               c.ChunkBuffer,
		ConnectionTimeoutSeconds:  c.ConnectionTimeoutSeconds,
	}
}

// SDK is the facade: one bucket/file client bound to one node endpoint and
// one on-chain account.
type SDK struct {
	cfg   SDKConfig
	chain *chain.Client
	node  nodeapi.Client
	pool  *pool.Pool

	rootKey    [32]byte
	hasRootKey bool

	upload   *upload.Pipeline
	download *download.Pipeline

	log *zap.Logger
}

// New validates cfg, dials the data-plane node and the chain RPC, and
// returns a ready-to-use SDK.
func New(ctx context.Context, cfg SDKConfig, log *zap.Logger) (*SDK, error) {
	if log == nil {
		log = zap.NewNop()
	}

	plain := cfg.toConfig()
	if err := plain.Validate(); err != nil {
		return nil, err
	}
	if cfg.ChainID == nil {
		return nil, sdkerr.New(sdkerr.Config, "akavefs.New", "chain id is required")
	}

	key, err := gethcrypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, sdkerr.Wrap(sdkerr.Config, "akavefs.New", err)
	}

	var rootKey [32]byte
	hasRootKey := cfg.EncryptionKey != ""
	if hasRootKey {
		keyBytes, err := hex.DecodeString(strings.TrimPrefix(cfg.EncryptionKey, "0x"))
		if err != nil {
			return nil, sdkerr.Wrap(sdkerr.Config, "akavefs.New", err)
		}
		copy(rootKey[:], keyBytes)
	}

	p := pool.New(log)
	conn, _, err := p.CreateClient(ctx, cfg.Address, cfg.UseConnectionPool)
	if err != nil {
		return nil, err
	}
	node := nodeapi.NewClient(conn)

	chainClient, err := chain.NewClient(ctx, chain.Config{
		RPCURL:                       plain.IPCAddress,
		StorageContractAddress:       cfg.StorageContractAddress,
		AccessManagerContractAddress: cfg.AccessManagerContractAddress,
		PrivateKey:                   key,
		ChainID:                      cfg.ChainID,
	}, log)
	if err != nil {
		return nil, err
	}

	return &SDK{
		cfg:        cfg,
		chain:      chainClient,
		node:       node,
		pool:       p,
		rootKey:    rootKey,
		hasRootKey: hasRootKey,
		upload:     upload.New(chainClient, node, cfg.Address),
		download:   download.New(node),
		log:        log,
	}, nil
}

// Close releases the SDK's pooled connections and stops its chain worker.
func (s *SDK) Close() error {
	s.chain.Close()
	return s.pool.Close()
}

// CreateBucket registers a new bucket owned by this SDK's account.
func (s *SDK) CreateBucket(ctx context.Context, name string) error {
	if err := config.ValidateBucketName(name); err != nil {
		return err
	}
	return s.chain.CreateBucket(ctx, name)
}

// BucketView is a bucket's metadata as the node reports it.
type BucketView = nodeapi.BucketView

// ViewBucket reads one bucket's metadata from the node.
func (s *SDK) ViewBucket(ctx context.Context, name string) (BucketView, error) {
	if err := config.ValidateBucketName(name); err != nil {
		return BucketView{}, err
	}
	resp, err := s.node.BucketView(ctx, &nodeapi.BucketViewRequest{Name: name})
	if err != nil {
		return BucketView{}, sdkerr.Wrap(sdkerr.Transport, "akavefs.ViewBucket", err)
	}
	return resp.Bucket, nil
}

// ListBuckets lists every bucket the node knows about for this account.
func (s *SDK) ListBuckets(ctx context.Context) ([]BucketView, error) {
	resp, err := s.node.BucketList(ctx, &nodeapi.BucketListRequest{})
	if err != nil {
		return nil, sdkerr.Wrap(sdkerr.Transport, "akavefs.ListBuckets", err)
	}
	return resp.Buckets, nil
}

// DeleteBucket removes a bucket; reverts on-chain if it still holds files.
func (s *SDK) DeleteBucket(ctx context.Context, name string) error {
	return s.chain.DeleteBucket(ctx, name)
}

// FileInfo is a file's metadata as the node reports it.
type FileInfo = nodeapi.FileInfo

// FileInfoOf reads one file's metadata from the node.
func (s *SDK) FileInfoOf(ctx context.Context, bucket, name string) (FileInfo, error) {
	resp, err := s.node.FileView(ctx, &nodeapi.FileViewRequest{Bucket: bucket, Name: name})
	if err != nil {
		return FileInfo{}, sdkerr.Wrap(sdkerr.Transport, "akavefs.FileInfoOf", err)
	}
	return resp.File, nil
}

// ListFiles lists every file in bucket.
func (s *SDK) ListFiles(ctx context.Context, bucket string) ([]FileInfo, error) {
	resp, err := s.node.FileList(ctx, &nodeapi.FileListRequest{Bucket: bucket})
	if err != nil {
		return nil, sdkerr.Wrap(sdkerr.Transport, "akavefs.ListFiles", err)
	}
	return resp.Files, nil
}

// DeleteFile removes a file's on-chain registry entry. The node garbage
// collects the now-unreferenced blocks independently.
func (s *SDK) DeleteFile(ctx context.Context, bucket, name string) error {
	bucketID := s.chain.BucketID(bucket)
	fileID := chain.FileID(bucketID, name)
	return s.chain.DeleteFile(ctx, bucketID, fileID)
}

// setPublicGrantee is the sentinel AccessManager grantee address that marks
// a file as publicly downloadable — see DESIGN.md's Open Question decision
// on SetPublic.
var setPublicGrantee = common.HexToAddress("0x0000000000000000000000000000000000ffff")

// SetPublic grants (or, with expiresAt in the past, effectively revokes)
// public download access to a file by permitting the sentinel grantee
// address, since the node protocol has no dedicated wire message for this
// and AccessManager.grantPermit already expresses "any holder of a valid
// permit may download."
func (s *SDK) SetPublic(ctx context.Context, bucket, name string, public bool) error {
	bucketID := s.chain.BucketID(bucket)
	fileID := chain.FileID(bucketID, name)
	var expiresAt int64 // 0 revokes: grantPermit with a past/zero expiry denies the sentinel grantee
	if public {
		expiresAt = maxPermitExpiry
	}
	return s.chain.GrantPermit(ctx, bucketID, fileID, setPublicGrantee, expiresAt)
}

// maxPermitExpiry is used as an effectively-unbounded expiry for public
// grants: 2^32-1 unix seconds, which falls in February 2106.
const maxPermitExpiry = 4294967295

// Upload reads all of src as bucket/name's content. opts.Encrypt requires
// the SDK to have been constructed with a non-empty EncryptionKey.
func (s *SDK) Upload(ctx context.Context, bucket, name string, src io.Reader, opts UploadOptions) (upload.Result, error) {
	if err := config.ValidateBucketName(bucket); err != nil {
		return upload.Result{}, err
	}
	uopts := uploadOptionsFor(s.cfg, opts)
	if opts.Encrypt {
		if !s.hasRootKey {
			return upload.Result{}, sdkerr.New(sdkerr.Config, "akavefs.Upload", "encryption requested but no encryption_key configured")
		}
		uopts.RootKey = s.rootKey
	}
	return s.upload.Upload(ctx, bucket, name, src, uopts)
}

// Download streams bucket/name's content into dst.
func (s *SDK) Download(ctx context.Context, bucket, name string, dst io.Writer, opts DownloadOptions) error {
	dopts := downloadOptionsFor(s.cfg, opts)
	if opts.Decrypt {
		if !s.hasRootKey {
			return sdkerr.New(sdkerr.Config, "akavefs.Download", "decryption requested but no encryption_key configured")
		}
		dopts.RootKey = s.rootKey
	}
	return s.download.Download(ctx, bucket, name, dst, dopts)
}

// NewBlockSplitter exposes internal/splitter directly: a stateful iterator
// that reads blockSize bytes at a time from src and yields each block
// already sealed with this SDK's root key, independent of the chunked
// Upload path. Useful for callers that want to encrypt-and-relay a stream
// without going through bucket/file upload at all.
func (s *SDK) NewBlockSplitter(src io.Reader, blockSize int) (*splitter.Splitter, error) {
	if !s.hasRootKey {
		return nil, sdkerr.New(sdkerr.Config, "akavefs.NewBlockSplitter", "no encryption_key configured")
	}
	return splitter.New(src, blockSize, s.rootKey)
}

// UploadOptions is the facade-level subset of upload.Options a caller picks
// per call; sizing/concurrency knobs come from the SDK's own configuration.
type UploadOptions struct {
	Encrypt    bool
	OnProgress func(upload.Progress)
}

// DownloadOptions is the facade-level subset of download.Options a caller
// picks per call.
type DownloadOptions struct {
	Decrypt bool
}

// uploadOptionsFor derives internal/upload.Options from the SDK's sizing
// configuration and one call's UploadOptions. A zero ParityBlocksCount
// disables erasure coding; otherwise k = streamingMaxBlocksInChunk - m.
func uploadOptionsFor(cfg SDKConfig, opts UploadOptions) upload.Options {
	return upload.Options{
		Encrypt:          opts.Encrypt,
		Erasure:          cfg.ParityBlocksCount > 0,
		DataK:            cfg.StreamingMaxBlocksInChunk - cfg.ParityBlocksCount,
		ParityM:          cfg.ParityBlocksCount,
		MaxConcurrency:   cfg.MaxConcurrency,
		BlockSize:        config.BlockSize,
		BlockPartSize:    cfg.BlockPartSize,
		MaxBlocksInChunk: cfg.StreamingMaxBlocksInChunk,
		OnProgress:       opts.OnProgress,
	}
}

// downloadOptionsFor mirrors uploadOptionsFor for the download side.
func downloadOptionsFor(cfg SDKConfig, opts DownloadOptions) download.Options {
	return download.Options{
		Decrypt:        opts.Decrypt,
		Erasure:        cfg.ParityBlocksCount > 0,
		DataK:          cfg.StreamingMaxBlocksInChunk - cfg.ParityBlocksCount,
		ParityM:        cfg.ParityBlocksCount,
		MaxConcurrency: cfg.MaxConcurrency,
	}
}
