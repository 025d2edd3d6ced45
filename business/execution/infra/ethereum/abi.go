// Package ethereum adapts C7/C8/C9 to a live Arbitrum node: encoding and
// decoding the executor contract's calldata, running eth_call simulations,
// broadcasting signed transactions, and tracking the wallet's nonce.
package ethereum

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// executorABI is the executor contract's interface: the entry point,
// the success event carrying ground-truth profit, and the custom revert
// errors the planner's simulation gate must be able to decode.
const executorABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "provider", "type": "address"},
			{"internalType": "address", "name": "token", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"},
			{
				"components": [
					{"internalType": "address", "name": "pool", "type": "address"},
					{"internalType": "address", "name": "tokenIn", "type": "address"},
					{"internalType": "address", "name": "tokenOut", "type": "address"},
					{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
					{"internalType": "bytes", "name": "extraData", "type": "bytes"}
				],
				"internalType": "struct IExecutor.SwapStep[]",
				"name": "steps",
				"type": "tuple[]"
			}
		],
		"name": "executeArbitrage",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "token", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "input", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "profit", "type": "uint256"}
		],
		"name": "ArbitrageExecuted",
		"type": "event"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "received", "type": "uint256"},
			{"internalType": "uint256", "name": "required", "type": "uint256"}
		],
		"name": "InsufficientProfit",
		"type": "error"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "adapter", "type": "address"}
		],
		"name": "AdapterNotApproved",
		"type": "error"
	},
	{
		"inputs": [],
		"name": "EmptySwapSteps",
		"type": "error"
	},
	{
		"inputs": [],
		"name": "NotAuthorized",
		"type": "error"
	},
	{
		"inputs": [],
		"name": "ContractPaused",
		"type": "error"
	},
	{
		"inputs": [],
		"name": "ZeroAddress",
		"type": "error"
	},
	{
		"inputs": [],
		"name": "ZeroAmount",
		"type": "error"
	}
]`

// arbitrageExecutedEventName is kept alongside the ABI constant so the
// submitter's receipt decoder and the ABI stay in lockstep.
const arbitrageExecutedEventName = "ArbitrageExecuted"

// executeArbitrageMethodName names the entry point encoded by the Encoder.
const executeArbitrageMethodName = "executeArbitrage"

// parseExecutorABI parses the inline executor ABI once at construction
// time; a parse failure here is a build-time defect, never a runtime one.
func parseExecutorABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(executorABI))
}

// panicSelector is the Solidity compiler-generated Panic(uint256) error
// selector, emitted for arithmetic overflow, out-of-bounds access, and
// similar faults that never appear as named custom errors in executorABI.
const panicSelectorHex = "4e487b71"
