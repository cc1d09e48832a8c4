package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// storageABI is the Storage contract's interface. It is hand-authored
// rather than abigen-generated — the Solidity source and its codegen
// pipeline are external collaborators, not part of this SDK.
const storageABI = `[
  {"type":"function","name":"createBucket","inputs":[{"name":"name","type":"string"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"deleteBucket","inputs":[{"name":"name","type":"string"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"getBucket","inputs":[{"name":"bucketId","type":"bytes32"}],"outputs":[{"name":"name","type":"string"},{"name":"owner","type":"address"},{"name":"createdAt","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"createFile","inputs":[{"name":"bucketId","type":"bytes32"},{"name":"fileId","type":"bytes32"},{"name":"name","type":"string"},{"name":"size","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"deleteFile","inputs":[{"name":"bucketId","type":"bytes32"},{"name":"fileId","type":"bytes32"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"commitFile","inputs":[{"name":"bucketId","type":"bytes32"},{"name":"fileId","type":"bytes32"},{"name":"size","type":"uint256"},{"name":"rootCID","type":"bytes"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"getFile","inputs":[{"name":"bucketId","type":"bytes32"},{"name":"fileId","type":"bytes32"}],"outputs":[{"name":"name","type":"string"},{"name":"size","type":"uint256"},{"name":"encodedSize","type":"uint256"},{"name":"rootCID","type":"bytes"},{"name":"committed","type":"bool"}],"stateMutability":"view"}
]`

// accessManagerABI is the AccessManager contract's interface: permit
// issuance gating a storage node's acceptance of a download request.
const accessManagerABI = `[
  {"type":"function","name":"grantPermit","inputs":[{"name":"bucketId","type":"bytes32"},{"name":"fileId","type":"bytes32"},{"name":"grantee","type":"address"},{"name":"expiresAt","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"isAuthorized","inputs":[{"name":"bucketId","type":"bytes32"},{"name":"fileId","type":"bytes32"},{"name":"grantee","type":"address"}],"outputs":[{"name":"ok","type":"bool"}],"stateMutability":"view"}
]`

// boundContract is the minimal surface this package needs out of a
// go-ethereum bound contract: call (view) and transact (write) against a
// parsed ABI, without any abigen-generated struct wrapper.
type boundContract struct {
	address  common.Address
	contract *bind.BoundContract
	abi      abi.ABI
}

func bindContract(addr common.Address, abiJSON string, eth *ethclient.Client) (*boundContract, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, err
	}
	return &boundContract{
		address:  addr,
		contract: bind.NewBoundContract(addr, parsed, eth, eth, eth),
		abi:      parsed,
	}, nil
}

func (b *boundContract) call(ctx context.Context, out *[]any, method string, args ...any) error {
	opts := &bind.CallOpts{Context: ctx}
	return b.contract.Call(opts, out, method, args...)
}

func (b *boundContract) transact(opts *bind.TransactOpts, method string, args ...any) (*types.Transaction, error) {
	return b.contract.Transact(opts, method, args...)
}

// bucketView mirrors the Storage contract's getBucket return tuple.
type bucketView struct {
	Name      string
	Owner     common.Address
	CreatedAt *big.Int
}

// fileView mirrors the Storage contract's getFile return tuple.
type fileView struct {
	Name        string
	Size        *big.Int
	EncodedSize *big.Int
	RootCID     []byte
	Committed   bool
}
