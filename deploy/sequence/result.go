package sequence

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
)

const (
	NameWAVAX              = "WAVAX"
	NamePNG                = "PNG"
	NameMultisig           = "Multisig"
	NameFoundationMultisig = "Foundation Multisig"
	NameTimelock           = "Timelock"
	NameGovernor           = "GovernorAlpha"
	NameFactory            = "PangolinFactory"
	NameRouter             = "PangolinRouter"
	NameMiniChef           = "MiniChefV2"
	NameTreasury           = "CommunityTreasury"
	NameAirdrop            = "Airdrop"
	NameVester             = "TreasuryVester"
	NameStaking            = "StakingRewards"
	NameJointMultisig      = "Joint Multisig"
	NameRevenueDistributor = "RevenueDistributor"
	NameFeeCollector       = "PangolinFeeCollector"
	NameDummyERC20         = "DummyERC20"
)

// printOrder is the order addresses are reported in; anything deployed but
// not listed follows in deployment order.
var printOrder = []string{
	NamePNG,
	NameFactory,
	NameRouter,
	NameFoundationMultisig,
	NameMultisig,
	NameMiniChef,
	NameVester,
	NameTreasury,
	NameAirdrop,
	NameStaking,
	NameTimelock,
	NameGovernor,
}

type Entry struct {
	Name    string         `json:"name"`
	Address common.Address `json:"address"`
}

type Farm struct {
	TokenA common.Address `json:"tokenA"`
	TokenB common.Address `json:"tokenB"`
	Pair   common.Address `json:"pair"`
	Weight uint64         `json:"weight"`
}

type Result struct {
	RunID          string
	Deployer       common.Address
	Contracts      []Entry
	Farms          []Farm
	InitialBalance *big.Int
	FinalBalance   *big.Int
}

// Address returns the address deployed under name.
func (r *Result) Address(name string) (common.Address, bool) {
	for _, e := range r.Contracts {
		if e.Name == name {
			return e.Address, true
		}
	}
	return common.Address{}, false
}

// Cost is the balance spent by the deployer, nil until the run completes.
func (r *Result) Cost() *big.Int {
	if r.InitialBalance == nil || r.FinalBalance == nil {
		return nil
	}
	return new(big.Int).Sub(r.InitialBalance, r.FinalBalance)
}

func (r *Result) ordered() []Entry {
	out := make([]Entry, 0, len(r.Contracts))
	listed := make(map[string]bool, len(printOrder))
	for _, name := range printOrder {
		listed[name] = true
		if addr, ok := r.Address(name); ok {
			out = append(out, Entry{Name: name, Address: addr})
		}
	}
	for _, e := range r.Contracts {
		if !listed[e.Name] {
			out = append(out, e)
		}
	}
	return out
}

// Print writes the address table followed by the deploy cost.
func (r *Result) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, e := range r.ordered() {
		fmt.Fprintf(tw, "%s address:\t%s\n", e.Name, e.Address.Hex())
	}
	for _, f := range r.Farms {
		fmt.Fprintf(tw, "Farm %s/%s:\t%s (weight %d)\n", f.TokenA.Hex(), f.TokenB.Hex(), f.Pair.Hex(), f.Weight)
	}
	if cost := r.Cost(); cost != nil {
		fmt.Fprintf(tw, "Deploy cost:\t%s\n", cost)
	}
	return tw.Flush()
}

type report struct {
	RunID     string            `json:"runId"`
	Deployer  common.Address    `json:"deployer"`
	Contracts map[string]string `json:"contracts"`
	Order     []string          `json:"order"`
	Farms     []Farm            `json:"farms,omitempty"`
	Cost      string            `json:"cost,omitempty"`
}

func (r *Result) MarshalJSON() ([]byte, error) {
	out := report{
		RunID:     r.RunID,
		Deployer:  r.Deployer,
		Contracts: make(map[string]string, len(r.Contracts)),
		Farms:     r.Farms,
	}
	for _, e := range r.Contracts {
		out.Contracts[e.Name] = e.Address.Hex()
		out.Order = append(out.Order, e.Name)
	}
	if cost := r.Cost(); cost != nil {
		out.Cost = cost.String()
	}
	return json.Marshal(out)
}
