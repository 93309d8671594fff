package main

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kryan19k/exchange-contracts/deploy/constants"
)

const (
	keyRPCURL        = "rpc-url"
	keyChainID       = "chain-id"
	keyPrivateKey    = "private-key"
	keyPublicAddress = "public-address"
	keyGasFeeCap     = "gas-fee-cap"
	keyGasTipCap     = "gas-tip-cap"
	keyTimeout       = "timeout"
	keyArtifactsDir  = "artifacts-dir"
	keyConstantsDir  = "constants-dir"
	keyNetwork       = "network"
	keyInitCodeHash  = "init-code-hash"
	keySkipPreflight = "skip-preflight"
	keyOut           = "out"
)

type config struct {
	RPCURL        string
	ChainID       uint64
	PrivateKey    string
	PublicAddress string
	GasFeeCap     *big.Int
	GasTipCap     *big.Int
	Timeout       time.Duration
	ArtifactsDir  string
	ConstantsDir  string
	Network       string
	InitCodeHash  string
	SkipPreflight bool
	Out           string
}

func addRunFlags(fs *pflag.FlagSet) {
	fs.String(keyRPCURL, "", "JSON-RPC endpoint (or PANGOLIN_RPC_URL)")
	fs.Uint64(keyChainID, 0, "expected chain id (or PANGOLIN_CHAIN_ID)")
	fs.String(keyPrivateKey, "", "deployer private key, hex (or PANGOLIN_PRIVATE_KEY)")
	fs.String(keyPublicAddress, "", "expected deployer address, checked against the key")
	fs.String(keyGasFeeCap, "50", "max fee per gas in gwei")
	fs.String(keyGasTipCap, "2", "max priority fee per gas in gwei")
	fs.Duration(keyTimeout, 30*time.Minute, "abort the run after this long (0 disables)")
	fs.String(keyArtifactsDir, "artifacts", "compiled contract artifacts directory")
	fs.String(keyConstantsDir, "constants", "network constants directory")
	fs.String(keyNetwork, "", "network constants to load, e.g. fuji or avalanche")
	fs.String(keyInitCodeHash, "", "pair init code hash (default: derived from the PangolinPair artifact)")
	fs.Bool(keySkipPreflight, false, "skip balance and token code checks")
	fs.String(keyOut, "", "also write the JSON report to this file")
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

func loadConfig(v *viper.Viper) (config, error) {
	cfg := config{
		RPCURL:        strings.TrimSpace(v.GetString(keyRPCURL)),
		ChainID:       v.GetUint64(keyChainID),
		PrivateKey:    v.GetString(keyPrivateKey),
		PublicAddress: strings.TrimSpace(v.GetString(keyPublicAddress)),
		Timeout:       v.GetDuration(keyTimeout),
		ArtifactsDir:  v.GetString(keyArtifactsDir),
		ConstantsDir:  v.GetString(keyConstantsDir),
		Network:       strings.TrimSpace(v.GetString(keyNetwork)),
		InitCodeHash:  strings.TrimSpace(v.GetString(keyInitCodeHash)),
		SkipPreflight: v.GetBool(keySkipPreflight),
		Out:           v.GetString(keyOut),
	}

	var errs []error
	if cfg.RPCURL == "" {
		errs = append(errs, errors.New("rpc url is required (--rpc-url or PANGOLIN_RPC_URL)"))
	}
	if cfg.ChainID == 0 {
		errs = append(errs, errors.New("chain id is required (--chain-id or PANGOLIN_CHAIN_ID)"))
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		errs = append(errs, errors.New("private key is required (--private-key or PANGOLIN_PRIVATE_KEY)"))
	}
	if cfg.Network == "" {
		errs = append(errs, errors.New("network is required (--network or PANGOLIN_NETWORK)"))
	}
	if cfg.InitCodeHash != "" {
		if _, err := parseHash(cfg.InitCodeHash); err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	if cfg.GasFeeCap, err = constants.ParseUnits(v.GetString(keyGasFeeCap), 9); err != nil {
		errs = append(errs, fmt.Errorf("gas fee cap: %w", err))
	}
	if cfg.GasTipCap, err = constants.ParseUnits(v.GetString(keyGasTipCap), 9); err != nil {
		errs = append(errs, fmt.Errorf("gas tip cap: %w", err))
	}
	if cfg.GasFeeCap != nil && cfg.GasTipCap != nil && cfg.GasTipCap.Cmp(cfg.GasFeeCap) > 0 {
		errs = append(errs, errors.New("gas tip cap exceeds gas fee cap"))
	}

	return cfg, errors.Join(errs...)
}

func parsePrivateKey(v string) (*ecdsa.PrivateKey, common.Address, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "0x")
	key, err := crypto.HexToECDSA(v)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("parse private key: %w", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

func parseAddress(v string) (common.Address, error) {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "0x") || !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("invalid address: %s", v)
	}
	return common.HexToAddress(v), nil
}

func parseHash(v string) (common.Hash, error) {
	b, err := hexutil.Decode(v)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid init code hash: %s", v)
	}
	return common.BytesToHash(b), nil
}
