// Package chain wraps the on-chain Storage and AccessManager contracts:
// bucket/file registry writes, nonce management, receipt waiting, and
// retry-on-transient-failure, all serialized through one TxQueue per
// account so concurrent callers never collide on nonces.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/akave-ai/akavesdk/internal/crypto"
	"github.com/akave-ai/akavesdk/internal/sdkerr"
)

const (
	defaultReceiptPollInterval = 2 * time.Second
	defaultReceiptTimeout      = 2 * time.Minute
	defaultTxQueueSize         = 64
)

// Config configures a Client.
type Config struct {
	RPCURL                       string
	StorageContractAddress       common.Address
	AccessManagerContractAddress common.Address
	PrivateKey                   *ecdsa.PrivateKey
	ChainID                      *big.Int
	ReceiptPollInterval          time.Duration
	ReceiptTimeout               time.Duration
}

// Client is the SDK's ChainClient: the sole owner of the user's private
// key and the only component that talks to the blockchain RPC.
type Client struct {
	eth     *ethclient.Client
	storage *boundContract
	access  *boundContract

	chainID *big.Int
	key     *ecdsa.PrivateKey
	address common.Address

	nonces *NonceManager
	queue  *TxQueue

	pollInterval, timeout time.Duration
	log                   *zap.Logger
}

// NewClient dials the chain RPC and binds the Storage/AccessManager
// contracts.
func NewClient(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PrivateKey == nil {
		return nil, sdkerr.New(sdkerr.Config, "chain.NewClient", "private key is required")
	}
	if cfg.ChainID == nil {
		return nil, sdkerr.New(sdkerr.Config, "chain.NewClient", "chain id is required")
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, sdkerr.Wrapf(sdkerr.Chain, "chain.NewClient", err, "dial %s", cfg.RPCURL)
	}

	storage, err := bindContract(cfg.StorageContractAddress, storageABI, eth)
	if err != nil {
		return nil, sdkerr.Wrap(sdkerr.Chain, "chain.NewClient", err)
	}
	access, err := bindContract(cfg.AccessManagerContractAddress, accessManagerABI, eth)
	if err != nil {
		return nil, sdkerr.Wrap(sdkerr.Chain, "chain.NewClient", err)
	}

	address := gethcrypto.PubkeyToAddress(cfg.PrivateKey.PublicKey)

	pollInterval := cfg.ReceiptPollInterval
	if pollInterval <= 0 {
		pollInterval = defaultReceiptPollInterval
	}
	timeout := cfg.ReceiptTimeout
	if timeout <= 0 {
		timeout = defaultReceiptTimeout
	}

	c := &Client{
		eth:          eth,
		storage:      storage,
		access:       access,
		chainID:      cfg.ChainID,
		key:          cfg.PrivateKey,
		address:      address,
		pollInterval: pollInterval,
		timeout:      timeout,
		log:          log,
	}
	c.nonces = NewNonceManager(eth, address, log)
	c.queue = NewTxQueue(defaultTxQueueSize, log)
	return c, nil
}

// Close stops the client's transaction queue.
func (c *Client) Close() { c.queue.Close() }

// Address is the account this client signs transactions with.
func (c *Client) Address() common.Address { return c.address }

// ChainID is the configured chain ID.
func (c *Client) ChainID() *big.Int { return c.chainID }

// PrivateKey returns the signing key — callers need it to produce EIP-712
// StorageData authorizations alongside chain writes.
func (c *Client) PrivateKey() *ecdsa.PrivateKey { return c.key }

// StorageAddress is the bound Storage contract's address — the
// verifyingContract of every EIP-712 StorageData domain.
func (c *Client) StorageAddress() common.Address { return c.storage.address }

// BucketID derives bucketId = keccak256(bucketName || owner) per the
// UploadPipeline reservation step.
func (c *Client) BucketID(name string) [32]byte {
	return crypto.Keccak256([]byte(name), c.address.Bytes())
}

// FileID derives fileId = keccak256(bucketId || fileName).
func FileID(bucketID [32]byte, name string) [32]byte {
	return crypto.Keccak256(bucketID[:], []byte(name))
}

func (c *Client) transactOpts(ctx context.Context, nonce uint64) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, err
	}
	auth.Context = ctx
	auth.Nonce = new(big.Int).SetUint64(nonce)
	return auth, nil
}

// submitAndWait serializes one write through the TxQueue: it builds tx
// opts with a fresh nonce, calls submit, retries on classified transient
// failures, then waits for the receipt.
func (c *Client) submitAndWait(ctx context.Context, submit func(opts *bind.TransactOpts) (*types.Transaction, error)) error {
	_, err := c.queue.Submit(ctx, func(ctx context.Context) (any, error) {
		tx, err := withRetry(ctx, c.nonces, func(ctx context.Context) (*types.Transaction, error) {
			nonce, err := c.nonces.Next(ctx)
			if err != nil {
				return nil, err
			}
			opts, err := c.transactOpts(ctx, nonce)
			if err != nil {
				return nil, err
			}
			tx, err := submit(opts)
			if err != nil {
				return nil, classifyRevert(err)
			}
			return tx, nil
		})
		if err != nil {
			return nil, err
		}
		_, err = waitReceipt(ctx, c.eth, tx, c.pollInterval, c.timeout)
		return nil, err
	})
	return err
}

// CreateBucket registers a new bucket owned by this client's account.
// Reverts as an AlreadyExists-kind error if the name is already taken.
func (c *Client) CreateBucket(ctx context.Context, name string) error {
	return c.submitAndWait(ctx, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.storage.transact(opts, "createBucket", name)
	})
}

// DeleteBucket removes a bucket; reverts if the caller is not the owner.
func (c *Client) DeleteBucket(ctx context.Context, name string) error {
	return c.submitAndWait(ctx, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.storage.transact(opts, "deleteBucket", name)
	})
}

// GetBucket reads a bucket's view record.
func (c *Client) GetBucket(ctx context.Context, bucketID [32]byte) (bucketView, error) {
	var out []any
	if err := c.storage.call(ctx, &out, "getBucket", bucketID); err != nil {
		return bucketView{}, sdkerr.Wrap(sdkerr.Chain, "chain.GetBucket", err)
	}
	return bucketView{
		Name:      out[0].(string),
		Owner:     out[1].(common.Address),
		CreatedAt: out[2].(*big.Int),
	}, nil
}

// CreateFile reserves a file entry ahead of block upload. Reverts with an
// AlreadyExists-kind error (FILE_EXISTS) if fileId is already registered.
func (c *Client) CreateFile(ctx context.Context, bucketID, fileID [32]byte, name string, size uint64) error {
	return c.submitAndWait(ctx, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.storage.transact(opts, "createFile", bucketID, fileID, name, new(big.Int).SetUint64(size))
	})
}

// DeleteFile removes a file entry.
func (c *Client) DeleteFile(ctx context.Context, bucketID, fileID [32]byte) error {
	return c.submitAndWait(ctx, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.storage.transact(opts, "deleteFile", bucketID, fileID)
	})
}

// CommitFile finalizes a file's size and DAG root after all blocks ACK.
func (c *Client) CommitFile(ctx context.Context, bucketID, fileID [32]byte, size uint64, rootCID []byte) error {
	return c.submitAndWait(ctx, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.storage.transact(opts, "commitFile", bucketID, fileID, new(big.Int).SetUint64(size), rootCID)
	})
}

// GetFile reads a file's view record.
func (c *Client) GetFile(ctx context.Context, bucketID, fileID [32]byte) (fileView, error) {
	var out []any
	if err := c.storage.call(ctx, &out, "getFile", bucketID, fileID); err != nil {
		return fileView{}, sdkerr.Wrap(sdkerr.Chain, "chain.GetFile", err)
	}
	return fileView{
		Name:        out[0].(string),
		Size:        out[1].(*big.Int),
		EncodedSize: out[2].(*big.Int),
		RootCID:     out[3].([]byte),
		Committed:   out[4].(bool),
	}, nil
}

// GrantPermit authorizes grantee to download a file through a storage node
// until expiresAt.
func (c *Client) GrantPermit(ctx context.Context, bucketID, fileID [32]byte, grantee common.Address, expiresAt int64) error {
	return c.submitAndWait(ctx, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.access.transact(opts, "grantPermit", bucketID, fileID, grantee, big.NewInt(expiresAt))
	})
}

func classifyRevert(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "filealreadyexists"):
		return sdkerr.New(sdkerr.AlreadyExists, "chain", "FILE_EXISTS")
	case strings.Contains(msg, "bucketalreadyexists"):
		return sdkerr.New(sdkerr.AlreadyExists, "chain", "BUCKET_EXISTS")
	default:
		return fmt.Errorf("chain: submit: %w", err)
	}
}
