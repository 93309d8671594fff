package contracts

const (
	MethodTransfer          = "transfer"
	MethodApprove           = "approve"
	MethodStartVesting      = "startVesting"
	MethodSetAdmin          = "setAdmin"
	MethodTransferOwnership = "transferOwnership"
	MethodRenounceOwnership = "renounceOwnership"
	MethodAddPool           = "addPool"
	MethodDeposit           = "deposit"
	MethodSetFeeTo          = "setFeeTo"
	MethodSetFeeToSetter    = "setFeeToSetter"
	MethodCreatePair        = "createPair"
)

var (
	erc20Transfer     = method("transfer(address,uint256)", 100_000)
	erc20Approve      = method("approve(address,uint256)", 100_000)
	transferOwnership = method("transferOwnership(address)", 100_000)
	renounceOwnership = method("renounceOwnership()", 100_000)
)

// Governance.
var (
	WAVAX = newContract("WAVAX", "WAVAX", 1_500_000, "")

	Png = newContract("PNG", "Png", 3_000_000,
		"Png(uint256,address,string,string)",
		erc20Transfer,
	)

	Multisig = newContract("Multisig", "MultiSigWalletWithDailyLimit", 3_500_000,
		"MultiSigWalletWithDailyLimit(address[],uint256,uint256)",
	)

	Timelock = newContract("Timelock", "Timelock", 2_000_000,
		"Timelock(address,uint256)",
	)

	Governor = newContract("GovernorAlpha", "GovernorAlpha", 5_000_000,
		"GovernorAlpha(address,address,address,uint256)",
	)
)

// AMM.
var (
	Factory = newContract("PangolinFactory", "contracts/pangolin-core/PangolinFactory.sol:PangolinFactory", 5_000_000,
		"PangolinFactory(address)",
		method("setFeeTo(address)", 100_000),
		method("setFeeToSetter(address)", 100_000),
		method("createPair(address,address)", 4_000_000),
	)

	Router = newContract("PangolinRouter", "PangolinRouter", 5_500_000,
		"PangolinRouter(address,address)",
	)

	// Pair is never deployed directly; its creation code fixes the CREATE2
	// init-code hash used by the factory.
	Pair = newContract("PangolinPair", "contracts/pangolin-core/PangolinPair.sol:PangolinPair", 0, "")
)

// Token distribution.
var (
	MiniChef = newContract("MiniChefV2", "contracts/dex/MiniChefV2.sol:MiniChefV2", 5_000_000,
		"MiniChefV2(address,address)",
		method("addPool(uint256,address,address)", 400_000),
		method("deposit(uint256,uint256,address)", 400_000),
		transferOwnership,
	)

	Treasury = newContract("CommunityTreasury", "CommunityTreasury", 1_500_000,
		"CommunityTreasury(address)",
	)

	Airdrop = newContract("Airdrop", "Airdrop", 3_000_000,
		"Airdrop(uint96,address,address,address)",
	)

	Vester = newContract("TreasuryVester", "TreasuryVester", 3_500_000,
		"TreasuryVester(address,(address account,uint256 allocation)[])",
		method("startVesting()", 200_000),
		method("setAdmin(address)", 100_000),
	)
)

// PNG staking and fee collection.
var (
	Staking = newContract("StakingRewards", "StakingRewards", 2_500_000,
		"StakingRewards(address,address)",
	)

	RevenueDistributor = newContract("RevenueDistributor", "RevenueDistributor", 2_500_000,
		"RevenueDistributor(address,(address account,uint256 allocation)[])",
	)

	FeeCollector = newContract("PangolinFeeCollector", "PangolinFeeCollector", 4_000_000,
		"PangolinFeeCollector(address,address,address,uint256,address,address,address)",
		transferOwnership,
	)

	DummyERC20 = newContract("DummyERC20", "DummyERC20", 1_500_000,
		"DummyERC20(string,string,address,uint256)",
		erc20Approve,
		renounceOwnership,
	)
)
