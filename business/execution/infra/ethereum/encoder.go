package ethereum

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashbot/business/execution/app"
	"github.com/fd1az/flashbot/business/execution/domain"
)

var _ app.Encoder = (*ContractEncoder)(nil)

// abiSwapStep mirrors executorABI's IExecutor.SwapStep tuple field-for-field
// so abi.Pack can encode a []domain.SwapStep without a manual tuple builder.
type abiSwapStep struct {
	Pool      common.Address
	TokenIn   common.Address
	TokenOut  common.Address
	AmountIn  *big.Int
	ExtraData []byte
}

// ContractEncoder packs calls to, and decodes reverts from, the executor
// contract described by executorABI.
type ContractEncoder struct {
	abi           abi.ABI
	errorSelector map[string]abi.Error
}

// NewContractEncoder parses executorABI once and indexes its custom errors
// by four-byte selector for DecodeRevert.
func NewContractEncoder() (*ContractEncoder, error) {
	parsed, err := parseExecutorABI()
	if err != nil {
		return nil, err
	}
	selectors := make(map[string]abi.Error, len(parsed.Errors))
	for _, e := range parsed.Errors {
		selectors[string(e.ID.Bytes()[:4])] = e
	}
	return &ContractEncoder{abi: parsed, errorSelector: selectors}, nil
}

// EncodeExecuteArbitrage packs executeArbitrage(provider, token, amount,
// steps) calldata.
func (c *ContractEncoder) EncodeExecuteArbitrage(provider, token common.Address, amount *big.Int, steps []domain.SwapStep) ([]byte, error) {
	abiSteps := make([]abiSwapStep, len(steps))
	for i, s := range steps {
		abiSteps[i] = abiSwapStep{
			Pool:      s.PoolAddress,
			TokenIn:   s.TokenIn,
			TokenOut:  s.TokenOut,
			AmountIn:  s.AmountIn,
			ExtraData: s.ExtraData,
		}
	}
	return c.abi.Pack(executeArbitrageMethodName, provider, token, amount, abiSteps)
}

// DecodeRevert turns an eth_call revert payload into a RevertReason. An
// unrecognized selector (a Panic, or a revert string from code outside the
// executor's own custom errors) still produces a usable value rather than
// an error, since a failed simulation is an expected outcome, not a defect.
func (c *ContractEncoder) DecodeRevert(data []byte) domain.RevertReason {
	if len(data) < 4 {
		return domain.RevertReason{Message: "revert: no data", RawData: data}
	}
	selector := string(data[:4])

	if selector == string(panicSelectorBytes()) {
		return domain.RevertReason{Selector: "Panic", Message: "panic (arithmetic overflow or out-of-bounds access)", RawData: data}
	}

	abiErr, ok := c.errorSelector[selector]
	if !ok {
		reason, unpackErr := abi.UnpackRevert(data)
		if unpackErr == nil {
			return domain.RevertReason{Message: reason, RawData: data}
		}
		return domain.RevertReason{Message: "unrecognized revert selector", RawData: data}
	}

	args, err := abiErr.Unpack(data)
	if err != nil {
		return domain.RevertReason{Selector: abiErr.Name, Message: fmt.Sprintf("%s (args undecodable)", abiErr.Name), RawData: data}
	}
	values, _ := args.([]any)
	return domain.RevertReason{Selector: abiErr.Name, Message: abiErr.Name, Args: values, RawData: data}
}

func panicSelectorBytes() []byte {
	b, err := hex.DecodeString(panicSelectorHex)
	if err != nil {
		panic(err)
	}
	return b
}
