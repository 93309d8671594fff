package main

import (
	"bytes"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kryan19k/exchange-contracts/deploy/artifacts"
	"github.com/kryan19k/exchange-contracts/deploy/pair"
	"github.com/kryan19k/exchange-contracts/deploy/sequence"
)

const hardhatKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func validViper() *viper.Viper {
	v := viper.New()
	v.Set(keyRPCURL, "http://127.0.0.1:9650/ext/bc/C/rpc")
	v.Set(keyChainID, 43112)
	v.Set(keyPrivateKey, hardhatKey)
	v.Set(keyGasFeeCap, "25.5")
	v.Set(keyGasTipCap, "1")
	v.Set(keyTimeout, "5m")
	v.Set(keyNetwork, "local")
	return v
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(validViper())
	require.NoError(t, err)

	assert.Equal(t, uint64(43112), cfg.ChainID)
	assert.Equal(t, "local", cfg.Network)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
	assert.Equal(t, big.NewInt(25_500_000_000).String(), cfg.GasFeeCap.String())
	assert.Equal(t, big.NewInt(1_000_000_000).String(), cfg.GasTipCap.String())
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(v *viper.Viper)
		wantErr string
	}{
		{"missing rpc", func(v *viper.Viper) { v.Set(keyRPCURL, "") }, "rpc url is required"},
		{"missing chain id", func(v *viper.Viper) { v.Set(keyChainID, 0) }, "chain id is required"},
		{"missing key", func(v *viper.Viper) { v.Set(keyPrivateKey, " ") }, "private key is required"},
		{"missing network", func(v *viper.Viper) { v.Set(keyNetwork, "") }, "network is required"},
		{"bad fee cap", func(v *viper.Viper) { v.Set(keyGasFeeCap, "abc") }, "gas fee cap"},
		{"tip above fee", func(v *viper.Viper) { v.Set(keyGasTipCap, "30") }, "gas tip cap exceeds gas fee cap"},
		{"bad init code hash", func(v *viper.Viper) { v.Set(keyInitCodeHash, "0x1234") }, "invalid init code hash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validViper()
			tt.mutate(v)
			_, err := loadConfig(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("PANGOLIN_NETWORK", "fuji")

	v := validViper()
	v.Set(keyNetwork, nil)
	v.SetEnvPrefix("PANGOLIN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "fuji", cfg.Network)
}

func TestParsePrivateKey(t *testing.T) {
	key, addr, err := parsePrivateKey(hardhatKey)
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), addr)

	_, addr2, err := parsePrivateKey(strings.TrimPrefix(hardhatKey, "0x"))
	require.NoError(t, err)
	assert.Equal(t, addr, addr2)

	_, _, err = parsePrivateKey("0xnothex")
	assert.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	addr, err := parseAddress(" 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 ")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), addr)

	for _, bad := range []string{"", "f39Fd6e51aad88F6F4ce6aB8827279cffFb92266", "0x1234"} {
		_, err := parseAddress(bad)
		assert.Error(t, err, bad)
	}
}

func TestPairCommand(t *testing.T) {
	t.Cleanup(func() { jsonOut = false })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"pair",
		"--factory", "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f",
		"--token-a", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		"--token-b", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		"--init-code-hash", "0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f",
	})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc\n", out.String())
}

func TestPairCommand_InvalidToken(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"pair",
		"--factory", "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f",
		"--token-a", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		"--token-b", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	})

	err := rootCmd.Execute()
	var pairErr *pair.InvalidPairError
	require.ErrorAs(t, err, &pairErr)
	assert.Equal(t, "identical addresses", pairErr.Reason)
}

func TestNewResolver(t *testing.T) {
	logger := log.NewLogger(log.DiscardHandler())
	store := artifacts.NewStore(t.TempDir())

	r, err := newResolver(config{}, store, logger)
	require.NoError(t, err)
	assert.Equal(t, pair.PangolinInitCodeHash, r.InitCodeHash)

	hash := "0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f"
	r, err = newResolver(config{InitCodeHash: hash}, store, logger)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(hash), r.InitCodeHash)

	dir := t.TempDir()
	artifactDir := filepath.Join(dir, "contracts", "pangolin-core", "PangolinPair.sol")
	require.NoError(t, os.MkdirAll(artifactDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(artifactDir, "PangolinPair.json"),
		[]byte(`{"contractName":"PangolinPair","bytecode":"0x6080604052"}`), 0o644))

	r, err = newResolver(config{}, artifacts.NewStore(dir), logger)
	require.NoError(t, err)
	assert.Equal(t, pair.ResolverFromInitCode([]byte{0x60, 0x80, 0x60, 0x40, 0x52}).InitCodeHash, r.InitCodeHash)
}

func TestWriteReport(t *testing.T) {
	res := &sequence.Result{
		RunID:     "run-1",
		Contracts: []sequence.Entry{{Name: sequence.NamePNG, Address: common.HexToAddress("0x60781C2586D68229fde47564546784ab3fACA982")}},
	}
	out := filepath.Join(t.TempDir(), "deployment.json")

	var stdout bytes.Buffer
	require.NoError(t, writeReport(&stdout, out, res))
	assert.Contains(t, stdout.String(), "PNG address:")

	blob, err := os.ReadFile(out)
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(blob, &report))
	assert.Equal(t, "run-1", report["runId"])
}
