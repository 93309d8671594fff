// Package deploy submits contract deployments and configuration calls to an
// EVM network and waits for each of them to be mined.
package deploy

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"

	"github.com/kryan19k/exchange-contracts/deploy/contracts"
)

const DefaultPollInterval = 2 * time.Second

// BytecodeSource provides creation code by artifact name.
type BytecodeSource interface {
	Bytecode(name string) ([]byte, error)
}

type (
	DeployResult struct {
		TxHash          common.Hash
		ContractAddress common.Address
	}

	Deployer struct {
		client       *w3.Client
		chainID      uint64
		signer       types.Signer
		key          *ecdsa.PrivateKey
		address      common.Address
		gasFeeCap    *big.Int
		gasTipCap    *big.Int
		source       BytecodeSource
		log          log.Logger
		pollInterval time.Duration
	}
)

func NewDeployer(rpcURL string, chainID uint64, privateKey *ecdsa.PrivateKey, gasFeeCap, gasTipCap *big.Int, source BytecodeSource, logger log.Logger) (*Deployer, error) {
	client, err := w3.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return NewDeployerWithClient(client, chainID, privateKey, gasFeeCap, gasTipCap, source, logger), nil
}

func NewDeployerWithClient(client *w3.Client, chainID uint64, privateKey *ecdsa.PrivateKey, gasFeeCap, gasTipCap *big.Int, source BytecodeSource, logger log.Logger) *Deployer {
	if logger == nil {
		logger = log.Root()
	}
	return &Deployer{
		client:       client,
		chainID:      chainID,
		signer:       types.NewLondonSigner(new(big.Int).SetUint64(chainID)),
		key:          privateKey,
		address:      crypto.PubkeyToAddress(privateKey.PublicKey),
		gasFeeCap:    gasFeeCap,
		gasTipCap:    gasTipCap,
		source:       source,
		log:          logger,
		pollInterval: DefaultPollInterval,
	}
}

func (d *Deployer) Address() common.Address {
	return d.address
}

func (d *Deployer) Close() error {
	return d.client.Close()
}

// VerifyChainID guards against signing for the wrong network.
func (d *Deployer) VerifyChainID(ctx context.Context) error {
	var remote uint64
	if err := d.client.CallCtx(ctx, eth.ChainID().Returns(&remote)); err != nil {
		return &ExternalCallError{Op: "query", Contract: "chain id", Err: err}
	}
	if remote != d.chainID {
		return fmt.Errorf("chain id mismatch: configured %d, node reports %d", d.chainID, remote)
	}
	return nil
}

func (d *Deployer) Balance(ctx context.Context) (*big.Int, error) {
	var balance *big.Int
	if err := d.client.CallCtx(ctx, eth.Balance(d.address, nil).Returns(&balance)); err != nil {
		return nil, &ExternalCallError{Op: "query", Contract: "balance", Err: err}
	}
	return balance, nil
}

func (d *Deployer) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	var code []byte
	if err := d.client.CallCtx(ctx, eth.Code(addr, nil).Returns(&code)); err != nil {
		return nil, &ExternalCallError{Op: "query", Contract: "code " + addr.Hex(), Err: err}
	}
	return code, nil
}

func (d *Deployer) getNonce(ctx context.Context) (uint64, error) {
	var nonce uint64
	if err := d.client.CallCtx(ctx, eth.Nonce(d.address, nil).Returns(&nonce)); err != nil {
		return 0, fmt.Errorf("get nonce: %w", err)
	}
	return nonce, nil
}

func (d *Deployer) sendTx(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	signedTx, err := types.SignTx(tx, d.signer, d.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	var hash common.Hash
	if err := d.client.CallCtx(ctx, eth.SendTx(signedTx).Returns(&hash)); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}
	if hash != signedTx.Hash() {
		return common.Hash{}, fmt.Errorf("send tx: node returned hash %s, signed %s", hash.Hex(), signedTx.Hash().Hex())
	}
	return hash, nil
}

// DeployBytecode sends a creation transaction without waiting for it.
func (d *Deployer) DeployBytecode(ctx context.Context, data []byte, gasLimit uint64) (DeployResult, error) {
	nonce, err := d.getNonce(ctx)
	if err != nil {
		return DeployResult{}, err
	}

	contractAddr := crypto.CreateAddress(d.address, nonce)

	//  EIP-1559 only
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).SetUint64(d.chainID),
		Nonce:     nonce,
		GasFeeCap: d.gasFeeCap,
		GasTipCap: d.gasTipCap,
		Gas:       gasLimit,
		Data:      data,
	})

	txHash, err := d.sendTx(ctx, tx)
	if err != nil {
		return DeployResult{}, err
	}

	return DeployResult{
		TxHash:          txHash,
		ContractAddress: contractAddr,
	}, nil
}

// SendCall sends a call transaction without waiting for it.
func (d *Deployer) SendCall(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error) {
	nonce, err := d.getNonce(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).SetUint64(d.chainID),
		Nonce:     nonce,
		To:        &to,
		GasFeeCap: d.gasFeeCap,
		GasTipCap: d.gasTipCap,
		Gas:       gasLimit,
		Data:      data,
	})

	return d.sendTx(ctx, tx)
}

// Deploy creates c with the given constructor arguments and returns its
// address once the creation is mined.
func (d *Deployer) Deploy(ctx context.Context, c contracts.Contract, args ...any) (common.Address, error) {
	bytecode, err := d.source.Bytecode(c.Artifact)
	if err != nil {
		return common.Address{}, fmt.Errorf("load %s bytecode: %w", c.Name, err)
	}
	data, err := c.EncodeDeploy(bytecode, args...)
	if err != nil {
		return common.Address{}, err
	}

	result, err := d.DeployBytecode(ctx, data, c.GasLimit)
	if err != nil {
		return common.Address{}, &ExternalCallError{Op: "deploy", Contract: c.Name, Err: err}
	}
	if err := d.confirm(ctx, "deploy", c.Name, "", result.TxHash); err != nil {
		return common.Address{}, err
	}

	d.log.Info("Deployed contract", "contract", c.Name, "address", result.ContractAddress, "tx", result.TxHash)
	return result.ContractAddress, nil
}

// Transact calls method on the contract at to and waits for it to be mined.
func (d *Deployer) Transact(ctx context.Context, to common.Address, c contracts.Contract, method string, args ...any) error {
	data, gasLimit, err := c.EncodeCall(method, args...)
	if err != nil {
		return err
	}

	txHash, err := d.SendCall(ctx, to, data, gasLimit)
	if err != nil {
		return &ExternalCallError{Op: "call", Contract: c.Name, Method: method, Err: err}
	}
	if err := d.confirm(ctx, "call", c.Name, method, txHash); err != nil {
		return err
	}

	d.log.Info("Called contract", "contract", c.Name, "method", method, "address", to, "tx", txHash)
	return nil
}

func (d *Deployer) confirm(ctx context.Context, op, contract, method string, txHash common.Hash) error {
	receipt, err := d.WaitForReceipt(ctx, txHash)
	if err != nil {
		return &ExternalCallError{Op: op, Contract: contract, Method: method, TxHash: txHash, Err: fmt.Errorf("wait for receipt: %w", err)}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return &ExternalCallError{Op: op, Contract: contract, Method: method, TxHash: txHash, Err: ErrReverted}
	}
	return nil
}

func (d *Deployer) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		var receipt *types.Receipt
		err := d.client.CallCtx(ctx, eth.TxReceipt(txHash).Returns(&receipt))
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
