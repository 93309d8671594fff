package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kryan19k/exchange-contracts/deploy/pair"
)

var pairFlags struct {
	factory      string
	tokenA       string
	tokenB       string
	initCodeHash string
}

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Compute a pair address without touching the network",
	Example: `  pangolin-deploy pair --factory 0xefa94DE7a4656D787667C749f7E1223D71E9FD88 \
    --token-a 0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7 --token-b 0x60781C2586D68229fde47564546784ab3fACA982`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver := pair.NewResolver(pair.PangolinInitCodeHash)
		if pairFlags.initCodeHash != "" {
			hash, err := parseHash(pairFlags.initCodeHash)
			if err != nil {
				return err
			}
			resolver = pair.NewResolver(hash)
		}

		addr, err := resolver.PairForHex(pairFlags.factory, pairFlags.tokenA, pairFlags.tokenB)
		if err != nil {
			return err
		}

		if jsonOut {
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"factory": pairFlags.factory,
				"tokenA":  pairFlags.tokenA,
				"tokenB":  pairFlags.tokenB,
				"pair":    addr.Hex(),
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), addr.Hex())
		return nil
	},
}

func init() {
	pairCmd.Flags().StringVar(&pairFlags.factory, "factory", "", "factory address")
	pairCmd.Flags().StringVar(&pairFlags.tokenA, "token-a", "", "first token address")
	pairCmd.Flags().StringVar(&pairFlags.tokenB, "token-b", "", "second token address")
	pairCmd.Flags().StringVar(&pairFlags.initCodeHash, "init-code-hash", "", "pair init code hash (default: Pangolin)")
	_ = pairCmd.MarkFlagRequired("factory")
	_ = pairCmd.MarkFlagRequired("token-a")
	_ = pairCmd.MarkFlagRequired("token-b")
}
