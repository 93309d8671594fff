package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time.
	Version = "dev"

	cfgFile  string
	jsonOut  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "pangolin-deploy",
	Short: "Deploy and wire the Pangolin exchange contracts",
	Long: `pangolin-deploy deploys the Pangolin governance, AMM, token distribution
and fee collection contracts in a single run, then registers the initial
farms.

Configuration (in order of priority):
  1. Command-line flags (--rpc-url, --chain-id, --private-key, ...)
  2. Environment variables (PANGOLIN_RPC_URL, PANGOLIN_CHAIN_ID, ...)
  3. Config file (--config, or ./pangolin-deploy.yaml)`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pangolin-deploy version %s\n", Version)
	},
}

// execute runs the root command with args and returns the process exit
// status.
func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pangolin-deploy.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pairCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	lvl, err := parseLogLevel(logLevel)
	if err != nil {
		return err
	}
	w := cmd.ErrOrStderr()
	f, ok := w.(*os.File)
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(w, lvl, ok && isTTY(f))))
	return initConfig()
}

// initConfig wires environment variables and the optional config file into
// viper. Flags bound by subcommands take precedence over both.
func initConfig() error {
	viper.SetEnvPrefix("PANGOLIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}

	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	viper.SetConfigName("pangolin-deploy")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// parseLogLevel accepts the slog level names plus geth's trace and crit.
func parseLogLevel(v string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "trace":
		return log.LevelTrace, nil
	case "crit":
		return log.LevelCrit, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", v)
	}
	return lvl, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
