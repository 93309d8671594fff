// Package contracts describes the Pangolin contracts the deployment sequence
// instantiates: where their creation code lives in the Hardhat build, how
// their constructors are encoded, and the post-deploy methods the sequence
// calls on them.
package contracts

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
)

type Method struct {
	Name     string
	Func     *w3.Func
	GasLimit uint64
}

type Contract struct {
	// Name is how the contract is reported.
	Name string
	// Artifact is the Hardhat artifact name, fully qualified where the
	// build holds more than one contract of that name.
	Artifact string
	GasLimit uint64

	constructor *w3.Func
	methods     map[string]Method
}

// Recipient is one entry of the (address,uint256)[] allocation lists taken by
// TreasuryVester and RevenueDistributor.
type Recipient struct {
	Account    common.Address
	Allocation *big.Int
}

func newContract(name, artifact string, gasLimit uint64, constructor string, methods ...Method) Contract {
	c := Contract{
		Name:     name,
		Artifact: artifact,
		GasLimit: gasLimit,
		methods:  make(map[string]Method, len(methods)),
	}
	if constructor != "" {
		c.constructor = w3.MustNewFunc(constructor, "")
	}
	for _, m := range methods {
		c.methods[m.Name] = m
	}
	return c
}

func method(signature string, gasLimit uint64) Method {
	return Method{
		Name:     methodName(signature),
		Func:     w3.MustNewFunc(signature, ""),
		GasLimit: gasLimit,
	}
}

func methodName(signature string) string {
	if i := strings.IndexByte(signature, '('); i >= 0 {
		return signature[:i]
	}
	return signature
}

// EncodeDeploy appends the ABI-encoded constructor arguments to the creation
// code.
func (c Contract) EncodeDeploy(bytecode []byte, args ...any) ([]byte, error) {
	if c.constructor == nil {
		if len(args) > 0 {
			return nil, fmt.Errorf("%s constructor takes no arguments, got %d", c.Name, len(args))
		}
		return bytecode, nil
	}
	encoded, err := c.constructor.EncodeArgs(args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s constructor: %w", c.Name, err)
	}
	// EncodeArgs prefixes the 4-byte selector, which constructors do not take.
	data := make([]byte, 0, len(bytecode)+len(encoded)-4)
	data = append(data, bytecode...)
	return append(data, encoded[4:]...), nil
}

// EncodeCall returns the calldata and gas limit for a post-deploy method.
func (c Contract) EncodeCall(name string, args ...any) ([]byte, uint64, error) {
	m, ok := c.methods[name]
	if !ok {
		return nil, 0, fmt.Errorf("%s has no method %q", c.Name, name)
	}
	data, err := m.Func.EncodeArgs(args...)
	if err != nil {
		return nil, 0, fmt.Errorf("encode %s.%s: %w", c.Name, name, err)
	}
	return data, m.GasLimit, nil
}

// HasMethod reports whether name is a known post-deploy method.
func (c Contract) HasMethod(name string) bool {
	_, ok := c.methods[name]
	return ok
}
