// Package constants loads the per-network business parameters of a
// deployment: token metadata, multisig membership, farms and allocations.
package constants

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const (
	TokenDecimals = 18

	DefaultFoundationThreshold = 5
)

// Symbolic names a vester allocation may point at. They are bound to
// deployed addresses by the sequence, never looked up dynamically.
const (
	RecipientMultisig   = "multisig"
	RecipientFoundation = "foundation"
	RecipientTreasury   = "treasury"
	RecipientChef       = "chef"
	RecipientAirdrop    = "airdrop"
	RecipientTimelock   = "timelock"
	RecipientGovernor   = "governor"
)

var VesterRecipients = []string{
	RecipientMultisig,
	RecipientFoundation,
	RecipientTreasury,
	RecipientChef,
	RecipientAirdrop,
	RecipientTimelock,
	RecipientGovernor,
}

type Farm struct {
	TokenA string `yaml:"token_a"`
	TokenB string `yaml:"token_b"`
	Weight uint64 `yaml:"weight"`
}

type VesterAllocation struct {
	Recipient  string `yaml:"recipient"`
	Allocation uint64 `yaml:"allocation"`
}

// Deployment is the immutable parameter set for one run.
type Deployment struct {
	Symbol                   string             `yaml:"symbol"`
	Name                     string             `yaml:"name"`
	TotalSupply              string             `yaml:"total_supply"`
	MultisigOwners           []string           `yaml:"multisig_owners"`
	FoundationMultisigOwners []string           `yaml:"foundation_multisig_owners"`
	FoundationThreshold      uint64             `yaml:"foundation_threshold"`
	ProposalThreshold        string             `yaml:"proposal_threshold"`
	WrappedNativeToken       string             `yaml:"wrapped_native_token"`
	InitialFarms             []Farm             `yaml:"initial_farms"`
	AirdropAmount            string             `yaml:"airdrop_amount"`
	VesterAllocations        []VesterAllocation `yaml:"vester_allocations"`
}

// Load reads a constants file. Shared parameters (such as the foundation
// multisig owners) may live in a sibling shared.yaml; values in the network
// file win.
func Load(path string) (*Deployment, error) {
	var d Deployment

	shared := filepath.Join(filepath.Dir(path), "shared.yaml")
	if shared != path {
		if err := readYAML(shared, &d); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if err := readYAML(path, &d); err != nil {
		return nil, err
	}
	if d.FoundationThreshold == 0 {
		d.FoundationThreshold = DefaultFoundationThreshold
	}
	return &d, nil
}

// LoadNetwork reads <dir>/<network>.yaml.
func LoadNetwork(dir, network string) (*Deployment, error) {
	if network == "" {
		return nil, errors.New("network name is required")
	}
	return Load(filepath.Join(dir, network+".yaml"))
}

func readYAML(path string, out *Deployment) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read constants: %w", err)
	}
	if err := yaml.Unmarshal(blob, out); err != nil {
		return fmt.Errorf("parse constants %s: %w", path, err)
	}
	return nil
}

// Validate checks everything that can be checked before the first
// transaction is sent.
func (d *Deployment) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(d.Symbol) == "" {
		add("symbol is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		add("name is required")
	}

	supply, err := d.TotalSupplyWei()
	if err != nil {
		add("total_supply: %w", err)
	} else if supply.Sign() == 0 {
		add("total_supply must be positive")
	}
	airdrop, err := d.AirdropAmountWei()
	if err != nil {
		add("airdrop_amount: %w", err)
	}
	if airdrop != nil && airdrop.BitLen() > 96 {
		add("airdrop_amount %s does not fit the airdrop's uint96 supply", d.AirdropAmount)
	}
	if supply != nil && airdrop != nil && airdrop.Cmp(supply) > 0 {
		add("airdrop_amount %s exceeds total_supply %s", d.AirdropAmount, d.TotalSupply)
	}
	if _, err := d.ProposalThresholdWei(); err != nil {
		add("proposal_threshold: %w", err)
	}

	if len(d.MultisigOwners) == 0 {
		add("multisig_owners is required")
	}
	if _, err := parseAddresses(d.MultisigOwners); err != nil {
		add("multisig_owners: %w", err)
	}
	if len(d.FoundationMultisigOwners) == 0 {
		add("foundation_multisig_owners is required")
	}
	if _, err := parseAddresses(d.FoundationMultisigOwners); err != nil {
		add("foundation_multisig_owners: %w", err)
	}
	if d.FoundationThreshold > uint64(len(d.FoundationMultisigOwners)) {
		add("foundation_threshold %d exceeds %d owners", d.FoundationThreshold, len(d.FoundationMultisigOwners))
	}

	if d.WrappedNativeToken != "" && !common.IsHexAddress(d.WrappedNativeToken) {
		add("wrapped_native_token: invalid address %s", d.WrappedNativeToken)
	}

	for i, f := range d.InitialFarms {
		if !common.IsHexAddress(f.TokenA) || !common.IsHexAddress(f.TokenB) {
			add("initial_farms[%d]: invalid token address", i)
			continue
		}
		if common.HexToAddress(f.TokenA) == common.HexToAddress(f.TokenB) {
			add("initial_farms[%d]: token_a and token_b are identical", i)
		}
		if f.Weight == 0 {
			add("initial_farms[%d]: weight must be positive", i)
		}
	}

	for i, v := range d.VesterAllocations {
		if !slices.Contains(VesterRecipients, v.Recipient) {
			add("vester_allocations[%d]: unknown recipient %q", i, v.Recipient)
		}
		if v.Allocation == 0 {
			add("vester_allocations[%d]: allocation must be positive", i)
		}
	}
	if len(d.VesterAllocations) == 0 {
		add("vester_allocations is required")
	}

	return errors.Join(errs...)
}

func (d *Deployment) TotalSupplyWei() (*big.Int, error) {
	return ParseUnits(d.TotalSupply, TokenDecimals)
}

func (d *Deployment) AirdropAmountWei() (*big.Int, error) {
	return ParseUnits(d.AirdropAmount, TokenDecimals)
}

// ProposalThresholdWei parses the governor's proposal threshold. Unlike the
// other amounts it is given in wei, as GovernorAlpha takes it.
func (d *Deployment) ProposalThresholdWei() (*big.Int, error) {
	return ParseUnits(d.ProposalThreshold, 0)
}

func (d *Deployment) MultisigOwnerAddresses() ([]common.Address, error) {
	return parseAddresses(d.MultisigOwners)
}

func (d *Deployment) FoundationOwnerAddresses() ([]common.Address, error) {
	return parseAddresses(d.FoundationMultisigOwners)
}

// WrappedNative returns the configured wrapped native token, if any.
func (d *Deployment) WrappedNative() (common.Address, bool) {
	if d.WrappedNativeToken == "" {
		return common.Address{}, false
	}
	return common.HexToAddress(d.WrappedNativeToken), true
}

func parseAddresses(values []string) ([]common.Address, error) {
	out := make([]common.Address, len(values))
	for i, v := range values {
		if !common.IsHexAddress(v) {
			return nil, fmt.Errorf("address[%d]: invalid address %s", i, v)
		}
		out[i] = common.HexToAddress(v)
	}
	return out, nil
}
