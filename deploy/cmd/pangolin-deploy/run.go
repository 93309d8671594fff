package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kryan19k/exchange-contracts/deploy"
	"github.com/kryan19k/exchange-contracts/deploy/artifacts"
	"github.com/kryan19k/exchange-contracts/deploy/constants"
	"github.com/kryan19k/exchange-contracts/deploy/contracts"
	"github.com/kryan19k/exchange-contracts/deploy/pair"
	"github.com/kryan19k/exchange-contracts/deploy/sequence"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Deploy every contract and register the initial farms",
	Example: `  pangolin-deploy run --network fuji --rpc-url https://api.avax-test.network/ext/bc/C/rpc --chain-id 43113
  PANGOLIN_PRIVATE_KEY=... pangolin-deploy run --network avalanche --json --out deployment.json`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(viper.GetViper(), cmd.Flags())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		return runDeploy(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

func init() {
	addRunFlags(runCmd.Flags())
}

func runDeploy(ctx context.Context, cfg config, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := log.Root().New("network", cfg.Network)

	key, deployerAddr, err := parsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return err
	}
	if cfg.PublicAddress != "" {
		pub, err := parseAddress(cfg.PublicAddress)
		if err != nil {
			return fmt.Errorf("public address: %w", err)
		}
		if pub != deployerAddr {
			return fmt.Errorf("public address mismatch: key=%s provided=%s", deployerAddr.Hex(), pub.Hex())
		}
	}

	consts, err := constants.LoadNetwork(cfg.ConstantsDir, cfg.Network)
	if err != nil {
		return err
	}
	if err := consts.Validate(); err != nil {
		return fmt.Errorf("invalid constants for %s: %w", cfg.Network, err)
	}

	store := artifacts.NewStore(cfg.ArtifactsDir)
	resolver, err := newResolver(cfg, store, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	d, err := deploy.NewDeployer(cfg.RPCURL, cfg.ChainID, key, cfg.GasFeeCap, cfg.GasTipCap, store, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.VerifyChainID(ctx); err != nil {
		return err
	}

	seq := sequence.New(d, resolver, logger)
	if !cfg.SkipPreflight {
		if err := seq.Preflight(ctx, consts); err != nil {
			return fmt.Errorf("preflight: %w", err)
		}
	}

	result, runErr := seq.Run(ctx, consts)
	if err := writeReport(stdout, cfg.Out, result); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// newResolver prefers an explicit init code hash, then the hash of the
// compiled PangolinPair, then the canonical Pangolin hash.
func newResolver(cfg config, store *artifacts.Store, logger log.Logger) (*pair.Resolver, error) {
	if cfg.InitCodeHash != "" {
		hash, err := parseHash(cfg.InitCodeHash)
		if err != nil {
			return nil, err
		}
		return pair.NewResolver(hash), nil
	}

	code, err := store.Bytecode(contracts.Pair.Artifact)
	if err != nil {
		if !errors.Is(err, artifacts.ErrNotFound) {
			return nil, fmt.Errorf("load pair bytecode: %w", err)
		}
		logger.Warn("Pair artifact not found, using canonical init code hash", "hash", pair.PangolinInitCodeHash)
		return pair.NewResolver(pair.PangolinInitCodeHash), nil
	}

	resolver := pair.ResolverFromInitCode(code)
	if resolver.InitCodeHash != pair.PangolinInitCodeHash {
		logger.Warn("Compiled pair differs from canonical Pangolin pair", "hash", resolver.InitCodeHash)
	}
	return resolver, nil
}

func writeReport(stdout io.Writer, out string, result *sequence.Result) error {
	if result == nil {
		return nil
	}
	if jsonOut {
		if err := printJSON(stdout, result); err != nil {
			return err
		}
	} else if err := result.Print(stdout); err != nil {
		return err
	}

	if out == "" {
		return nil
	}
	blob, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(out, append(blob, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
