package deploy

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var ErrReverted = errors.New("transaction reverted")

// ExternalCallError is any failure of the chain or the node while deploying
// or calling a contract. It is never retried.
type ExternalCallError struct {
	Op       string
	Contract string
	Method   string
	TxHash   common.Hash
	Err      error
}

func (e *ExternalCallError) Error() string {
	target := e.Contract
	if e.Method != "" {
		target += "." + e.Method
	}
	if e.TxHash != (common.Hash{}) {
		return fmt.Sprintf("%s %s (tx %s): %v", e.Op, target, e.TxHash.Hex(), e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, target, e.Err)
}

func (e *ExternalCallError) Unwrap() error {
	return e.Err
}
