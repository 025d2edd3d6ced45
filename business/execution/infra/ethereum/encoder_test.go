package ethereum

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashbot/business/execution/domain"
)

func TestContractEncoder_EncodeExecuteArbitrage_RoundTrips(t *testing.T) {
	enc, err := NewContractEncoder()
	if err != nil {
		t.Fatalf("NewContractEncoder: %v", err)
	}

	provider := common.HexToAddress("0x0000000000000000000000000000000000aaaa")
	token := common.HexToAddress("0x0000000000000000000000000000000000bbbb")
	amount := big.NewInt(1_000_000_000_000_000_000)
	steps := []domain.SwapStep{
		{
			PoolAddress: common.HexToAddress("0x0000000000000000000000000000000000cccc"),
			TokenIn:     token,
			TokenOut:    common.HexToAddress("0x0000000000000000000000000000000000dddd"),
			AmountIn:    amount,
			ExtraData:   []byte{0x00, 0x01, 0xf4}, // uint24(500) right-padded
			DexKind:     "v3",
		},
		{
			PoolAddress: common.HexToAddress("0x0000000000000000000000000000000000eeee"),
			TokenIn:     common.HexToAddress("0x0000000000000000000000000000000000dddd"),
			TokenOut:    token,
			AmountIn:    big.NewInt(0),
			ExtraData:   nil,
			DexKind:     "v2",
		},
	}

	data, err := enc.EncodeExecuteArbitrage(provider, token, amount, steps)
	if err != nil {
		t.Fatalf("EncodeExecuteArbitrage: %v", err)
	}
	if len(data) < 4 {
		t.Fatalf("encoded calldata too short: %d bytes", len(data))
	}

	method, err := enc.abi.MethodById(data[:4])
	if err != nil {
		t.Fatalf("MethodById: %v", err)
	}
	if method.Name != executeArbitrageMethodName {
		t.Fatalf("decoded method = %q, want %q", method.Name, executeArbitrageMethodName)
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if len(args) != 4 {
		t.Fatalf("got %d decoded args, want 4", len(args))
	}
	decodedProvider, ok := args[0].(common.Address)
	if !ok || decodedProvider != provider {
		t.Errorf("decoded provider = %v, want %s", args[0], provider)
	}
	decodedToken, ok := args[1].(common.Address)
	if !ok || decodedToken != token {
		t.Errorf("decoded token = %v, want %s", args[1], token)
	}
	decodedAmount, ok := args[2].(*big.Int)
	if !ok || decodedAmount.Cmp(amount) != 0 {
		t.Errorf("decoded amount = %v, want %s", args[2], amount)
	}
}

func TestContractEncoder_DecodeRevert_NamedError(t *testing.T) {
	enc, err := NewContractEncoder()
	if err != nil {
		t.Fatalf("NewContractEncoder: %v", err)
	}

	abiErr := enc.abi.Errors["InsufficientProfit"]
	packed, err := abiErr.Inputs.Pack(big.NewInt(10), big.NewInt(20))
	if err != nil {
		t.Fatalf("pack error args: %v", err)
	}
	data := append(append([]byte{}, abiErr.ID.Bytes()[:4]...), packed...)

	reason := enc.DecodeRevert(data)
	if reason.Selector != "InsufficientProfit" {
		t.Errorf("Selector = %q, want InsufficientProfit", reason.Selector)
	}
	if len(reason.Args) != 2 {
		t.Fatalf("got %d decoded args, want 2", len(reason.Args))
	}
}

func TestContractEncoder_DecodeRevert_NoArgError(t *testing.T) {
	enc, err := NewContractEncoder()
	if err != nil {
		t.Fatalf("NewContractEncoder: %v", err)
	}

	abiErr := enc.abi.Errors["EmptySwapSteps"]
	data := abiErr.ID.Bytes()[:4]

	reason := enc.DecodeRevert(data)
	if reason.Selector != "EmptySwapSteps" {
		t.Errorf("Selector = %q, want EmptySwapSteps", reason.Selector)
	}
}

func TestContractEncoder_DecodeRevert_UnrecognizedSelector(t *testing.T) {
	enc, err := NewContractEncoder()
	if err != nil {
		t.Fatalf("NewContractEncoder: %v", err)
	}

	reason := enc.DecodeRevert([]byte{0xff, 0xff, 0xff, 0xff})
	if reason.Selector != "" {
		t.Errorf("Selector = %q, want empty for an unrecognized selector", reason.Selector)
	}
}
