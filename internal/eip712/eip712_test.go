package eip712

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

var (
	testChainID = big.NewInt(1)
	testVerifyingContract = common.HexToAddress("0x0000000000000000000000000000000000000001")
)

func zeroVector() (Domain, StorageData) {
	domain := Domain{Name: "Storage", Version: "1", ChainID: testChainID, VerifyingContract: testVerifyingContract}
	data := StorageData{
		ChunkCID:   []byte{},
		BlockCID:   [32]byte{},
		ChunkIndex: big.NewInt(0),
		BlockIndex: 0,
		NodeID:     [32]byte{},
		Nonce:      big.NewInt(0),
		Deadline:   big.NewInt(0),
		BucketID:   [32]byte{},
	}
	return domain, data
}

// TestZeroVectorDigest pins the exact EIP-712 construction spec.md S3
// requires: keccak256(0x1901 || domainSeparator || structHash).
func TestZeroVectorDigest(t *testing.T) {
	domain, data := zeroVector()

	sep, err := DomainSeparator(domain)
	require.NoError(t, err)
	structHash, err := EncodeData(StorageTypeName, data.message(), StorageTypes())
	require.NoError(t, err)

	want := crypto.Keccak256(append(append([]byte{0x19, 0x01}, sep[:]...), structHash[:]...))

	got, err := HashStorageData(domain, data)
	require.NoError(t, err)
	require.Equal(t, want, got[:])
}

func TestSignRecoverStorageData(t *testing.T) {
	domain, data := zeroVector()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	sig, err := SignStorageData(key, domain, data)
	require.NoError(t, err)
	require.True(t, sig[64] == 27 || sig[64] == 28)

	recovered, err := RecoverStorageSigner(sig, domain, data)
	require.NoError(t, err)
	require.Equal(t, addr, recovered)
}

func TestTamperedFieldInvalidatesSignature(t *testing.T) {
	domain, data := zeroVector()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	sig, err := SignStorageData(key, domain, data)
	require.NoError(t, err)

	data.ChunkIndex = big.NewInt(1)
	recovered, err := RecoverStorageSigner(sig, domain, data)
	require.NoError(t, err)
	require.NotEqual(t, addr, recovered)
}

func TestDomainSeparatorStableAndDistinguishing(t *testing.T) {
	domain, _ := zeroVector()
	sep1, err := DomainSeparator(domain)
	require.NoError(t, err)
	sep2, err := DomainSeparator(domain)
	require.NoError(t, err)
	require.Equal(t, sep1, sep2)

	other := domain
	other.ChainID = big.NewInt(2)
	sep3, err := DomainSeparator(other)
	require.NoError(t, err)
	require.NotEqual(t, sep1, sep3)
}

func TestEncodeValueBytes32RejectsWrongLength(t *testing.T) {
	_, err := EncodeValue([]byte{1, 2, 3}, "bytes32")
	require.Error(t, err)
}

func TestEncodeValueUint8RejectsOutOfRange(t *testing.T) {
	_, err := EncodeValue(big.NewInt(256), "uint8")
	require.Error(t, err)
}

func TestEncodeValueAddressPadding(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	out, err := EncodeValue(addr, "address")
	require.NoError(t, err)
	require.Equal(t, [12]byte{}, [12]byte(out[:12]))
	require.Equal(t, addr.Bytes(), out[12:])
}

func TestEncodeTypeFieldOrderMatchesDeclaration(t *testing.T) {
	encoded, err := EncodeType(StorageTypeName, StorageTypes())
	require.NoError(t, err)
	require.Equal(t,
		"StorageData(bytes chunkCID,bytes32 blockCID,uint256 chunkIndex,uint8 blockIndex,"+
			"bytes32 nodeId,uint256 nonce,uint256 deadline,bytes32 bucketId)",
		encoded,
	)
}
