// Package testutil provides an in-memory EVM node for exercising the
// deployer over real JSON-RPC.
package testutil

import (
	"fmt"
	"math/big"
	"net/http/httptest"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
)

// Node implements the subset of the eth namespace the deployer uses.
// Transactions are mined as soon as they are received unless Hold is set.
// Configure it before serving; fields are read under its lock afterwards.
type Node struct {
	mu       sync.Mutex
	chainID  uint64
	balance  *big.Int
	code     map[common.Address][]byte
	nonces   map[common.Address]uint64
	receipts map[common.Hash]*types.Receipt
	txs      []*types.Transaction

	// Revert marks every receipt as failed.
	Revert bool
	// RevertAt marks the receipt of the n-th transaction (1-based) as failed.
	RevertAt int
	// Hold accepts transactions without ever mining them.
	Hold bool
	// WrongHash answers eth_sendRawTransaction with a bogus hash.
	WrongHash bool
	// SendErr rejects every transaction.
	SendErr error
}

func NewNode(chainID uint64) *Node {
	return &Node{
		chainID:  chainID,
		balance:  new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18)),
		code:     make(map[common.Address][]byte),
		nonces:   make(map[common.Address]uint64),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

// Server returns an RPC server exposing the node under the eth namespace.
func (n *Node) Server() (*rpc.Server, error) {
	server := rpc.NewServer()
	if err := server.RegisterName("eth", &ethAPI{n}); err != nil {
		return nil, err
	}
	return server, nil
}

// HTTP serves the node over HTTP. The caller closes the returned server.
func (n *Node) HTTP() (*httptest.Server, error) {
	server, err := n.Server()
	if err != nil {
		return nil, err
	}
	return httptest.NewServer(server), nil
}

func (n *Node) SetChainID(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chainID = id
}

func (n *Node) SetBalance(b *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balance = b
}

func (n *Node) SetCode(addr common.Address, code []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.code[addr] = code
}

// Sent returns every transaction the node accepted, in order.
func (n *Node) Sent() []*types.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*types.Transaction(nil), n.txs...)
}

type ethAPI struct {
	n *Node
}

func (api *ethAPI) ChainId() hexutil.Uint64 {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	return hexutil.Uint64(api.n.chainID)
}

func (api *ethAPI) GetTransactionCount(addr common.Address, _ rpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	return hexutil.Uint64(api.n.nonces[addr]), nil
}

func (api *ethAPI) GetBalance(common.Address, rpc.BlockNumberOrHash) (*hexutil.Big, error) {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	return (*hexutil.Big)(new(big.Int).Set(api.n.balance)), nil
}

func (api *ethAPI) GetCode(addr common.Address, _ rpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	return api.n.code[addr], nil
}

func (api *ethAPI) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	n := api.n
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.SendErr != nil {
		return common.Hash{}, n.SendErr
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	from, err := types.Sender(types.LatestSignerForChainID(new(big.Int).SetUint64(n.chainID)), tx)
	if err != nil {
		return common.Hash{}, err
	}
	if tx.Nonce() != n.nonces[from] {
		return common.Hash{}, fmt.Errorf("nonce too low: have %d, want %d", tx.Nonce(), n.nonces[from])
	}
	n.nonces[from]++
	n.txs = append(n.txs, tx)

	if n.WrongHash {
		return common.Hash{0xba, 0xd}, nil
	}
	if n.Hold {
		return tx.Hash(), nil
	}

	receipt := &types.Receipt{
		Type:        tx.Type(),
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		GasUsed:     21_000,
		Logs:        []*types.Log{},
		BlockNumber: big.NewInt(int64(len(n.txs))),
	}
	if n.Revert || n.RevertAt == len(n.txs) {
		receipt.Status = types.ReceiptStatusFailed
	}
	if tx.To() == nil && receipt.Status == types.ReceiptStatusSuccessful {
		receipt.ContractAddress = crypto.CreateAddress(from, tx.Nonce())
		n.code[receipt.ContractAddress] = []byte{0x60}
	}
	n.receipts[tx.Hash()] = receipt
	return tx.Hash(), nil
}

func (api *ethAPI) GetTransactionReceipt(hash common.Hash) (*types.Receipt, error) {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	return api.n.receipts[hash], nil
}
