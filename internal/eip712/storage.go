package eip712

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StorageTypeName is the EIP-712 primaryType for a block-write
// authorization.
const StorageTypeName = "StorageData"

// StorageTypes is the fixed type set used to sign and recover StorageData
// messages. Field order and names are normative — any deviation invalidates
// signatures produced by other implementations of this wire protocol.
func StorageTypes() Types {
	return Types{
		StorageTypeName: {
			{Name: "chunkCID", Type: "bytes"},
			{Name: "blockCID", Type: "bytes32"},
			{Name: "chunkIndex", Type: "uint256"},
			{Name: "blockIndex", Type: "uint8"},
			{Name: "nodeId", Type: "bytes32"},
			{Name: "nonce", Type: "uint256"},
			{Name: "deadline", Type: "uint256"},
			{Name: "bucketId", Type: "bytes32"},
		},
	}
}

// StorageData authorizes one block write to a storage node.
type StorageData struct {
	ChunkCID   []byte
	BlockCID   [32]byte
	ChunkIndex *big.Int
	BlockIndex uint8
	NodeID     [32]byte
	Nonce      *big.Int
	Deadline   *big.Int
	BucketID   [32]byte
}

func (s StorageData) message() map[string]any {
	return map[string]any{
		"chunkCID":   s.ChunkCID,
		"blockCID":   s.BlockCID,
		"chunkIndex": s.ChunkIndex,
		"blockIndex": s.BlockIndex,
		"nodeId":     s.NodeID,
		"nonce":      s.Nonce,
		"deadline":   s.Deadline,
		"bucketId":   s.BucketID,
	}
}

// NewStorageDomain builds the domain this module signs StorageData under:
// {name:"Storage", version:"1", chainId, verifyingContract}.
func NewStorageDomain(chainID *big.Int, verifyingContract common.Address) Domain {
	return Domain{
		Name:              "Storage",
		Version:           "1",
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}
}

// HashStorageData computes the EIP-712 digest for a StorageData message.
func HashStorageData(domain Domain, data StorageData) ([32]byte, error) {
	return HashTypedData(domain, StorageTypeName, data.message(), StorageTypes())
}

// SignStorageData signs a StorageData message with the caller's private
// key, returning the 65-byte r||s||v signature the node expects on the
// upload stream header.
func SignStorageData(key *ecdsa.PrivateKey, domain Domain, data StorageData) ([65]byte, error) {
	return Sign(key, domain, StorageTypeName, data.message(), StorageTypes())
}

// RecoverStorageSigner recovers the address that produced sig over data.
func RecoverStorageSigner(sig [65]byte, domain Domain, data StorageData) (common.Address, error) {
	return Recover(sig, domain, StorageTypeName, data.message(), StorageTypes())
}
