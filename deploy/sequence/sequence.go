// Package sequence provisions a complete Pangolin exchange: governance,
// AMM, token distribution, fee collection and the initial farms. Every step
// depends on addresses produced by earlier steps, so the sequence is strictly
// linear and the first failure aborts it.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/kryan19k/exchange-contracts/deploy/constants"
	"github.com/kryan19k/exchange-contracts/deploy/contracts"
	"github.com/kryan19k/exchange-contracts/deploy/pair"
)

const (
	TimelockDelay = 14 * 24 * time.Hour

	JointMultisigThreshold = 2

	MultisigRevenueShare   = 8000
	FoundationRevenueShare = 2000

	// The dummy PGL token diverts a share of PNG emissions to PNG staking
	// through the fee collector.
	DummySupply         = 100
	DummyPoolWeight     = 500
	FeeCollectorChefPID = 0

	PNGPoolWeight = 3000
)

// Backend is the deployment and transaction submission service.
type Backend interface {
	Address() common.Address
	Balance(ctx context.Context) (*big.Int, error)
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)
	Deploy(ctx context.Context, c contracts.Contract, args ...any) (common.Address, error)
	Transact(ctx context.Context, to common.Address, c contracts.Contract, method string, args ...any) error
}

type Sequencer struct {
	backend  Backend
	resolver *pair.Resolver
	log      log.Logger
}

func New(backend Backend, resolver *pair.Resolver, logger log.Logger) *Sequencer {
	if resolver == nil {
		resolver = pair.NewResolver(pair.PangolinInitCodeHash)
	}
	if logger == nil {
		logger = log.Root()
	}
	return &Sequencer{
		backend:  backend,
		resolver: resolver,
		log:      logger,
	}
}

// Preflight checks the preconditions that would otherwise only surface after
// gas has been spent.
func (s *Sequencer) Preflight(ctx context.Context, consts *constants.Deployment) error {
	balance, err := s.backend.Balance(ctx)
	if err != nil {
		return err
	}
	if balance.Sign() == 0 {
		return fmt.Errorf("deployer %s has no balance", s.backend.Address().Hex())
	}

	if native, ok := consts.WrappedNative(); ok {
		if err := s.requireCode(ctx, "wrapped native token", native); err != nil {
			return err
		}
	}
	for i, f := range consts.InitialFarms {
		for _, token := range []string{f.TokenA, f.TokenB} {
			if err := s.requireCode(ctx, fmt.Sprintf("initial_farms[%d] token", i), common.HexToAddress(token)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Sequencer) requireCode(ctx context.Context, what string, addr common.Address) error {
	code, err := s.backend.CodeAt(ctx, addr)
	if err != nil {
		return err
	}
	if len(code) == 0 {
		return fmt.Errorf("%s %s has no code", what, addr.Hex())
	}
	return nil
}

// run carries the addresses accumulated by one execution of the sequence.
type run struct {
	*Sequencer
	consts *constants.Deployment
	result *Result
	lgr    log.Logger
}

// Run executes the full sequence. The returned Result is never nil: on
// failure it lists the contracts that were deployed before the failing step.
func (s *Sequencer) Run(ctx context.Context, consts *constants.Deployment) (*Result, error) {
	result := &Result{
		RunID:    uuid.NewString(),
		Deployer: s.backend.Address(),
	}
	r := &run{
		Sequencer: s,
		consts:    consts,
		result:    result,
		lgr:       s.log.New("run", result.RunID),
	}

	initial, err := s.backend.Balance(ctx)
	if err != nil {
		return result, err
	}
	result.InitialBalance = initial
	r.lgr.Info("Deploying contracts", "deployer", result.Deployer, "balance", initial)

	if err := r.execute(ctx); err != nil {
		r.lgr.Error("Deployment aborted", "deployed", len(result.Contracts), "err", err)
		return result, err
	}

	final, err := s.backend.Balance(ctx)
	if err != nil {
		return result, err
	}
	result.FinalBalance = final
	r.lgr.Info("Deployment complete", "contracts", len(result.Contracts), "cost", result.Cost())
	return result, nil
}

func (r *run) execute(ctx context.Context) error {
	c := r.consts
	deployer := r.result.Deployer

	supply, err := c.TotalSupplyWei()
	if err != nil {
		return fmt.Errorf("total supply: %w", err)
	}
	airdropAmount, err := c.AirdropAmountWei()
	if err != nil {
		return fmt.Errorf("airdrop amount: %w", err)
	}
	proposalThreshold, err := c.ProposalThresholdWei()
	if err != nil {
		return fmt.Errorf("proposal threshold: %w", err)
	}
	owners, err := c.MultisigOwnerAddresses()
	if err != nil {
		return fmt.Errorf("multisig owners: %w", err)
	}
	foundationOwners, err := c.FoundationOwnerAddresses()
	if err != nil {
		return fmt.Errorf("foundation owners: %w", err)
	}

	native, ok := c.WrappedNative()
	if !ok {
		if native, err = r.deploy(ctx, NameWAVAX, contracts.WAVAX); err != nil {
			return err
		}
	}

	// Governance
	png, err := r.deploy(ctx, NamePNG, contracts.Png, supply, deployer, c.Symbol, c.Name)
	if err != nil {
		return err
	}
	multisig, err := r.deploy(ctx, NameMultisig, contracts.Multisig,
		owners, big.NewInt(int64(len(owners))), new(big.Int))
	if err != nil {
		return err
	}
	foundation, err := r.deploy(ctx, NameFoundationMultisig, contracts.Multisig,
		foundationOwners, new(big.Int).SetUint64(c.FoundationThreshold), new(big.Int))
	if err != nil {
		return err
	}
	timelock, err := r.deploy(ctx, NameTimelock, contracts.Timelock,
		multisig, big.NewInt(int64(TimelockDelay/time.Second)))
	if err != nil {
		return err
	}
	governor, err := r.deploy(ctx, NameGovernor, contracts.Governor,
		timelock, png, multisig, proposalThreshold)
	if err != nil {
		return err
	}

	// AMM
	factory, err := r.deploy(ctx, NameFactory, contracts.Factory, deployer)
	if err != nil {
		return err
	}
	router, err := r.deploy(ctx, NameRouter, contracts.Router, factory, native)
	if err != nil {
		return err
	}

	// Token distribution
	chef, err := r.deploy(ctx, NameMiniChef, contracts.MiniChef, png, deployer)
	if err != nil {
		return err
	}
	treasury, err := r.deploy(ctx, NameTreasury, contracts.Treasury, png)
	if err != nil {
		return err
	}
	airdrop, err := r.deploy(ctx, NameAirdrop, contracts.Airdrop, airdropAmount, png, multisig, treasury)
	if err != nil {
		return err
	}

	recipients := map[string]common.Address{
		constants.RecipientMultisig:   multisig,
		constants.RecipientFoundation: foundation,
		constants.RecipientTreasury:   treasury,
		constants.RecipientChef:       chef,
		constants.RecipientAirdrop:    airdrop,
		constants.RecipientTimelock:   timelock,
		constants.RecipientGovernor:   governor,
	}
	allocations, err := vesterAllocations(c.VesterAllocations, recipients)
	if err != nil {
		return err
	}
	vester, err := r.deploy(ctx, NameVester, contracts.Vester, png, allocations)
	if err != nil {
		return err
	}

	if err := r.call(ctx, png, contracts.Png, contracts.MethodTransfer, airdrop, airdropAmount); err != nil {
		return err
	}
	if err := r.call(ctx, png, contracts.Png, contracts.MethodTransfer, vester, new(big.Int).Sub(supply, airdropAmount)); err != nil {
		return err
	}
	if err := r.call(ctx, vester, contracts.Vester, contracts.MethodStartVesting); err != nil {
		return err
	}
	if err := r.call(ctx, vester, contracts.Vester, contracts.MethodSetAdmin, timelock); err != nil {
		return err
	}

	// PNG staking and fee collector
	staking, err := r.deploy(ctx, NameStaking, contracts.Staking, png, png)
	if err != nil {
		return err
	}
	joint, err := r.deploy(ctx, NameJointMultisig, contracts.Multisig,
		[]common.Address{multisig, foundation}, big.NewInt(JointMultisigThreshold), new(big.Int))
	if err != nil {
		return err
	}
	revenue, err := r.deploy(ctx, NameRevenueDistributor, contracts.RevenueDistributor, joint, []contracts.Recipient{
		{Account: multisig, Allocation: big.NewInt(MultisigRevenueShare)},
		{Account: foundation, Allocation: big.NewInt(FoundationRevenueShare)},
	})
	if err != nil {
		return err
	}
	feeCollector, err := r.deploy(ctx, NameFeeCollector, contracts.FeeCollector,
		staking, router, chef, big.NewInt(FeeCollectorChefPID), governor, native, revenue)
	if err != nil {
		return err
	}
	if err := r.call(ctx, feeCollector, contracts.FeeCollector, contracts.MethodTransferOwnership, multisig); err != nil {
		return err
	}

	dummy, err := r.deploy(ctx, NameDummyERC20, contracts.DummyERC20,
		"Dummy ERC20", "PGL", deployer, big.NewInt(DummySupply))
	if err != nil {
		return err
	}
	if err := r.call(ctx, dummy, contracts.DummyERC20, contracts.MethodRenounceOwnership); err != nil {
		return err
	}
	if err := r.call(ctx, chef, contracts.MiniChef, contracts.MethodAddPool, big.NewInt(DummyPoolWeight), dummy, common.Address{}); err != nil {
		return err
	}
	if err := r.call(ctx, dummy, contracts.DummyERC20, contracts.MethodApprove, chef, big.NewInt(DummySupply)); err != nil {
		return err
	}
	if err := r.call(ctx, chef, contracts.MiniChef, contracts.MethodDeposit, big.NewInt(FeeCollectorChefPID), big.NewInt(DummySupply), feeCollector); err != nil {
		return err
	}

	if err := r.call(ctx, factory, contracts.Factory, contracts.MethodSetFeeTo, feeCollector); err != nil {
		return err
	}
	if err := r.call(ctx, factory, contracts.Factory, contracts.MethodSetFeeToSetter, multisig); err != nil {
		return err
	}

	// MiniChefV2 farms
	if err := r.addFarm(ctx, factory, chef, png, native, PNGPoolWeight); err != nil {
		return err
	}
	for _, f := range c.InitialFarms {
		tokenA, tokenB := common.HexToAddress(f.TokenA), common.HexToAddress(f.TokenB)
		if err := r.addFarm(ctx, factory, chef, tokenA, tokenB, f.Weight); err != nil {
			return err
		}
	}

	return r.call(ctx, chef, contracts.MiniChef, contracts.MethodTransferOwnership, multisig)
}

// addFarm creates the pair on the factory and registers its LP token with
// MiniChef. The pair address is derived locally rather than read back.
func (r *run) addFarm(ctx context.Context, factory, chef, tokenA, tokenB common.Address, weight uint64) error {
	lp, err := r.resolver.PairFor(factory, tokenA, tokenB)
	if err != nil {
		return fmt.Errorf("resolve pair %s/%s: %w", tokenA.Hex(), tokenB.Hex(), err)
	}
	if err := r.call(ctx, factory, contracts.Factory, contracts.MethodCreatePair, tokenA, tokenB); err != nil {
		return err
	}
	if err := r.call(ctx, chef, contracts.MiniChef, contracts.MethodAddPool, new(big.Int).SetUint64(weight), lp, common.Address{}); err != nil {
		return err
	}
	r.result.Farms = append(r.result.Farms, Farm{TokenA: tokenA, TokenB: tokenB, Pair: lp, Weight: weight})
	return nil
}

func (r *run) deploy(ctx context.Context, name string, c contracts.Contract, args ...any) (common.Address, error) {
	addr, err := r.backend.Deploy(ctx, c, args...)
	if err != nil {
		return common.Address{}, fmt.Errorf("deploy %s: %w", name, err)
	}
	r.result.Contracts = append(r.result.Contracts, Entry{Name: name, Address: addr})
	r.lgr.Info("Contract deployed", "name", name, "address", addr)
	return addr, nil
}

func (r *run) call(ctx context.Context, to common.Address, c contracts.Contract, method string, args ...any) error {
	if err := r.backend.Transact(ctx, to, c, method, args...); err != nil {
		return fmt.Errorf("%s.%s: %w", c.Name, method, err)
	}
	return nil
}

func vesterAllocations(allocs []constants.VesterAllocation, recipients map[string]common.Address) ([]contracts.Recipient, error) {
	if len(allocs) == 0 {
		return nil, errors.New("no vester allocations")
	}
	out := make([]contracts.Recipient, len(allocs))
	for i, a := range allocs {
		addr, ok := recipients[a.Recipient]
		if !ok {
			return nil, fmt.Errorf("vester allocation %d: unknown recipient %q", i, a.Recipient)
		}
		out[i] = contracts.Recipient{Account: addr, Allocation: new(big.Int).SetUint64(a.Allocation)}
	}
	return out, nil
}
