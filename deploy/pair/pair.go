// Package pair computes the addresses of Pangolin liquidity pools without a
// network round trip. The derivation mirrors PangolinLibrary.pairFor: the pool
// is created by the factory with CREATE2, salted by the hash of the sorted
// token pair.
package pair

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PangolinInitCodeHash is keccak256 of the PangolinPair creation code
// referenced by PangolinLibrary.
var PangolinInitCodeHash = common.HexToHash("0x40231f6b438bce0797c9ada29b718a87ea0a5cea3fe9a771abdd76bd41a3e545")

var defaultResolver = NewResolver(PangolinInitCodeHash)

// InvalidPairError reports a token pair the factory would refuse to create.
type InvalidPairError struct {
	TokenA string
	TokenB string
	Reason string
}

func (e *InvalidPairError) Error() string {
	return fmt.Sprintf("invalid pair (%s, %s): %s", e.TokenA, e.TokenB, e.Reason)
}

// Resolver derives pair addresses for factories deployed with a given pair
// creation code.
type Resolver struct {
	InitCodeHash common.Hash
}

func NewResolver(initCodeHash common.Hash) *Resolver {
	return &Resolver{InitCodeHash: initCodeHash}
}

// ResolverFromInitCode hashes the pair creation code itself, so the resolver
// cannot drift from the bytecode the factory embeds.
func ResolverFromInitCode(creationCode []byte) *Resolver {
	return NewResolver(crypto.Keccak256Hash(creationCode))
}

// SortTokens orders a pair the way the factory does.
func SortTokens(tokenA, tokenB common.Address) (common.Address, common.Address, error) {
	if tokenA == tokenB {
		return common.Address{}, common.Address{}, &InvalidPairError{
			TokenA: tokenA.Hex(),
			TokenB: tokenB.Hex(),
			Reason: "identical addresses",
		}
	}
	token0, token1 := tokenA, tokenB
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) > 0 {
		token0, token1 = tokenB, tokenA
	}
	if token0 == (common.Address{}) {
		return common.Address{}, common.Address{}, &InvalidPairError{
			TokenA: tokenA.Hex(),
			TokenB: tokenB.Hex(),
			Reason: "zero address",
		}
	}
	return token0, token1, nil
}

// Salt is keccak256(token0 ++ token1) over the sorted pair.
func Salt(tokenA, tokenB common.Address) (common.Hash, error) {
	token0, token1, err := SortTokens(tokenA, tokenB)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(token0.Bytes(), token1.Bytes()), nil
}

// PairFor returns the address of the pool the factory creates for the pair.
func (r *Resolver) PairFor(factory, tokenA, tokenB common.Address) (common.Address, error) {
	salt, err := Salt(tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.CreateAddress2(factory, salt, r.InitCodeHash.Bytes()), nil
}

// For resolves a pair address using the canonical Pangolin pair bytecode.
func For(factory, tokenA, tokenB common.Address) (common.Address, error) {
	return defaultResolver.PairFor(factory, tokenA, tokenB)
}

// ForHex is For on hex-encoded identifiers.
func ForHex(factory, tokenA, tokenB string) (common.Address, error) {
	return defaultResolver.PairForHex(factory, tokenA, tokenB)
}

func (r *Resolver) PairForHex(factory, tokenA, tokenB string) (common.Address, error) {
	factory, tokenA, tokenB = strings.TrimSpace(factory), strings.TrimSpace(tokenA), strings.TrimSpace(tokenB)
	for _, v := range []string{factory, tokenA, tokenB} {
		if !isHexAddress(v) {
			return common.Address{}, &InvalidPairError{
				TokenA: tokenA,
				TokenB: tokenB,
				Reason: fmt.Sprintf("malformed address %q", v),
			}
		}
	}
	return r.PairFor(common.HexToAddress(factory), common.HexToAddress(tokenA), common.HexToAddress(tokenB))
}

// common.IsHexAddress accepts the bare form too; identifiers here must carry
// the 0x prefix.
func isHexAddress(v string) bool {
	return strings.HasPrefix(v, "0x") && common.IsHexAddress(v)
}
