package deploy

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/lmittmann/w3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kryan19k/exchange-contracts/deploy/contracts"
	"github.com/kryan19k/exchange-contracts/deploy/testutil"
)

const testChainID = 43113

type mapSource map[string][]byte

func (m mapSource) Bytecode(name string) ([]byte, error) {
	code, ok := m[name]
	if !ok {
		return nil, errors.New("artifact not found")
	}
	return code, nil
}

var testBytecode = []byte{0x60, 0x80, 0x60, 0x40}

func newTestDeployer(t *testing.T, node *testutil.Node) *Deployer {
	t.Helper()

	server, err := node.Server()
	require.NoError(t, err)
	t.Cleanup(server.Stop)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	source := mapSource{
		contracts.Treasury.Artifact: testBytecode,
		contracts.WAVAX.Artifact:    testBytecode,
	}
	d := NewDeployerWithClient(w3.NewClient(rpc.DialInProc(server)), testChainID, key,
		big.NewInt(30e9), big.NewInt(1e9), source, log.NewLogger(log.DiscardHandler()))
	d.pollInterval = 5 * time.Millisecond
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDeployer_Deploy(t *testing.T) {
	node := testutil.NewNode(testChainID)
	d := newTestDeployer(t, node)
	ctx := context.Background()

	png := common.HexToAddress("0x60781C2586D68229fde47564546784ab3fACA982")
	addr, err := d.Deploy(ctx, contracts.Treasury, png)
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(d.Address(), 0), addr)

	addr, err = d.Deploy(ctx, contracts.WAVAX)
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(d.Address(), 1), addr)

	txs := node.Sent()
	require.Len(t, txs, 2)

	tx := txs[0]
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Nil(t, tx.To())
	assert.Equal(t, uint64(testChainID), tx.ChainId().Uint64())
	assert.Equal(t, contracts.Treasury.GasLimit, tx.Gas())
	assert.Equal(t, big.NewInt(30e9), tx.GasFeeCap())
	assert.Equal(t, big.NewInt(1e9), tx.GasTipCap())
	require.Len(t, tx.Data(), len(testBytecode)+32)
	assert.Equal(t, testBytecode, tx.Data()[:len(testBytecode)])
	assert.Equal(t, common.LeftPadBytes(png.Bytes(), 32), tx.Data()[len(testBytecode):])

	assert.Equal(t, testBytecode, txs[1].Data())
}

func TestDeployer_DeployMissingArtifact(t *testing.T) {
	node := testutil.NewNode(testChainID)
	d := newTestDeployer(t, node)

	_, err := d.Deploy(context.Background(), contracts.Factory, common.Address{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load PangolinFactory bytecode")
	assert.Empty(t, node.Sent())
}

func TestDeployer_Transact(t *testing.T) {
	node := testutil.NewNode(testChainID)
	d := newTestDeployer(t, node)

	factory := common.HexToAddress("0xefa94DE7a4656D787667C749f7E1223D71E9FD88")
	feeTo := common.HexToAddress("0x0000000000000000000000000000000000000fee")
	require.NoError(t, d.Transact(context.Background(), factory, contracts.Factory, contracts.MethodSetFeeTo, feeTo))

	txs := node.Sent()
	require.Len(t, txs, 1)
	require.NotNil(t, txs[0].To())
	assert.Equal(t, factory, *txs[0].To())
	assert.Equal(t, crypto.Keccak256([]byte("setFeeTo(address)"))[:4], txs[0].Data()[:4])
	assert.Equal(t, common.LeftPadBytes(feeTo.Bytes(), 32), txs[0].Data()[4:])
}

func TestDeployer_TransactUnknownMethod(t *testing.T) {
	node := testutil.NewNode(testChainID)
	d := newTestDeployer(t, node)

	err := d.Transact(context.Background(), common.Address{1}, contracts.Factory, "mint")
	require.Error(t, err)
	assert.Empty(t, node.Sent())
}

func TestDeployer_Reverted(t *testing.T) {
	node := testutil.NewNode(testChainID)
	node.Revert = true
	d := newTestDeployer(t, node)

	err := d.Transact(context.Background(), common.Address{1}, contracts.Factory, contracts.MethodSetFeeToSetter, common.Address{2})
	require.ErrorIs(t, err, ErrReverted)

	var callErr *ExternalCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "call", callErr.Op)
	assert.Equal(t, "PangolinFactory", callErr.Contract)
	assert.Equal(t, contracts.MethodSetFeeToSetter, callErr.Method)
	assert.Equal(t, node.Sent()[0].Hash(), callErr.TxHash)

	_, err = d.Deploy(context.Background(), contracts.WAVAX)
	require.ErrorIs(t, err, ErrReverted)
}

func TestDeployer_SendRejected(t *testing.T) {
	node := testutil.NewNode(testChainID)
	node.SendErr = errors.New("insufficient funds for gas * price + value")
	d := newTestDeployer(t, node)

	_, err := d.Deploy(context.Background(), contracts.WAVAX)

	var callErr *ExternalCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "deploy", callErr.Op)
	assert.Equal(t, common.Hash{}, callErr.TxHash)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestDeployer_HashMismatch(t *testing.T) {
	node := testutil.NewNode(testChainID)
	node.WrongHash = true
	d := newTestDeployer(t, node)

	_, err := d.Deploy(context.Background(), contracts.WAVAX)

	var callErr *ExternalCallError
	require.ErrorAs(t, err, &callErr)
	assert.Contains(t, err.Error(), "node returned hash")
	assert.Equal(t, common.Hash{}, callErr.TxHash)
}

func TestDeployer_WaitForReceiptTimeout(t *testing.T) {
	node := testutil.NewNode(testChainID)
	node.Hold = true
	d := newTestDeployer(t, node)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := d.Deploy(ctx, contracts.WAVAX)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, node.Sent(), 1)
}

func TestDeployer_VerifyChainID(t *testing.T) {
	node := testutil.NewNode(testChainID)
	d := newTestDeployer(t, node)
	require.NoError(t, d.VerifyChainID(context.Background()))

	node.SetChainID(43114)
	err := d.VerifyChainID(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configured 43113, node reports 43114")
}

func TestDeployer_Queries(t *testing.T) {
	node := testutil.NewNode(testChainID)
	node.SetBalance(big.NewInt(5e18))
	d := newTestDeployer(t, node)
	ctx := context.Background()

	balance, err := d.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5000000000000000000", balance.String())

	token := common.HexToAddress("0xd00ae08403B9bbb9124bB305C09058E32C39A48c")
	code, err := d.CodeAt(ctx, token)
	require.NoError(t, err)
	assert.Empty(t, code)

	node.SetCode(token, []byte{0x60, 0x80})
	code, err = d.CodeAt(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80}, code)
}
