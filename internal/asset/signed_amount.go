package asset

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// SignedAmount is Amount's signed counterpart, used for quantities that are
// legitimately negative before any gating decision - gross and net profit
// during costing, never for reserves, fees, or anything already known to be
// non-negative (those stay Amount so the type system enforces it).
type SignedAmount struct {
	raw   *big.Int // may be negative
	asset *Asset
}

// NewSignedAmount creates a SignedAmount from a raw big.Int (may be negative).
func NewSignedAmount(a *Asset, raw *big.Int) SignedAmount {
	if a == nil {
		panic(ErrNilAsset)
	}
	if raw == nil {
		panic(ErrNilRaw)
	}
	return SignedAmount{raw: new(big.Int).Set(raw), asset: a}
}

// FromAmount lifts an unsigned Amount into a SignedAmount.
func FromAmount(a Amount) SignedAmount {
	return SignedAmount{raw: a.Raw(), asset: a.Asset()}
}

// ZeroSigned returns a zero SignedAmount for asset a.
func ZeroSigned(a *Asset) SignedAmount {
	return SignedAmount{raw: big.NewInt(0), asset: a}
}

// Raw returns a copy of the raw (possibly negative) value.
func (s SignedAmount) Raw() *big.Int {
	if s.raw == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(s.raw)
}

// Asset returns the denominating asset.
func (s SignedAmount) Asset() *Asset {
	return s.asset
}

// IsNegative reports whether the amount is strictly less than zero.
func (s SignedAmount) IsNegative() bool {
	return s.raw != nil && s.raw.Sign() < 0
}

// IsPositive reports whether the amount is strictly greater than zero.
func (s SignedAmount) IsPositive() bool {
	return s.raw != nil && s.raw.Sign() > 0
}

// Add sums two SignedAmounts of the same asset.
func (s SignedAmount) Add(o SignedAmount) (SignedAmount, error) {
	if err := s.checkSameAsset(o); err != nil {
		return SignedAmount{}, err
	}
	return NewSignedAmount(s.asset, new(big.Int).Add(s.raw, o.raw)), nil
}

// Sub subtracts o from s (same asset only), allowing a negative result.
func (s SignedAmount) Sub(o SignedAmount) (SignedAmount, error) {
	if err := s.checkSameAsset(o); err != nil {
		return SignedAmount{}, err
	}
	return NewSignedAmount(s.asset, new(big.Int).Sub(s.raw, o.raw)), nil
}

// SubAmount subtracts an unsigned Amount from s, allowing a negative result.
func (s SignedAmount) SubAmount(o Amount) (SignedAmount, error) {
	return s.Sub(FromAmount(o))
}

// Abs returns the unsigned Amount of the absolute value.
func (s SignedAmount) Abs() Amount {
	return NewAmount(s.asset, new(big.Int).Abs(s.raw))
}

// Cmp compares two SignedAmounts of the same asset.
func (s SignedAmount) Cmp(o SignedAmount) (int, error) {
	if err := s.checkSameAsset(o); err != nil {
		return 0, err
	}
	return s.raw.Cmp(o.raw), nil
}

// ToDecimal converts to decimal.Decimal for display only.
func (s SignedAmount) ToDecimal() decimal.Decimal {
	if s.raw == nil || s.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(s.raw, -int32(s.asset.Decimals()))
}

func (s SignedAmount) String() string {
	if s.asset == nil {
		return "0 ???"
	}
	return fmt.Sprintf("%s %s", s.ToDecimal().String(), s.asset.Symbol())
}

func (s SignedAmount) checkSameAsset(o SignedAmount) error {
	if s.asset == nil || o.asset == nil {
		return ErrNilAsset
	}
	if !s.asset.ID().Equals(o.asset.ID()) {
		return fmt.Errorf("%w: %s vs %s", ErrAssetMismatch, s.asset.Symbol(), o.asset.Symbol())
	}
	return nil
}
