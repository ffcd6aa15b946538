// Package fixedmath implements the Q64.64 fixed-point arithmetic the rest
// of the engine is built on: full-precision mul-div, and the add/remove
// helpers used to bump liquidity counters without silently wrapping.
package fixedmath

import (
	"errors"
	"fmt"
	"math/big"

	cosmath "cosmossdk.io/math"
	"lukechampine.com/uint128"
)

// Resolution is the number of fractional bits in a Q64.64 value.
const Resolution = 64

var (
	// ErrLiquidityOverflow is returned by AddDelta when adding a positive
	// delta would carry liquidity past the u128 ceiling.
	ErrLiquidityOverflow = errors.New("fixedmath: liquidity overflow")
	// ErrLiquidityUnderflow is returned by AddDelta when removing a
	// negative delta would drive liquidity below zero.
	ErrLiquidityUnderflow = errors.New("fixedmath: liquidity underflow")

	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	q128       = new(big.Int).Lsh(big.NewInt(1), 128)
)

// U128ToInt lifts a stored Q64.64 value into an arbitrary-precision signed
// integer so it can take part in intermediate arithmetic without overflow.
func U128ToInt(v uint128.Uint128) cosmath.Int {
	return cosmath.NewIntFromBigInt(v.Big())
}

// IntToU128 lowers an arithmetic result back into the u128 storage
// representation. The caller is responsible for the value fitting in
// [0, 2^128) -- callers that can't guarantee this should use MulDivFloor/
// MulDivCeil/AddDelta, which check range themselves.
func IntToU128(v cosmath.Int) (uint128.Uint128, error) {
	bi := v.BigInt()
	if bi.Sign() < 0 || bi.Cmp(maxUint128) > 0 {
		return uint128.Uint128{}, fmt.Errorf("fixedmath: value %s out of u128 range", bi.String())
	}
	return uint128.FromBig(bi), nil
}

// MulDivFloor computes floor(a*b/denom) with a 256-bit intermediate
// product, matching the teacher's cosmath.Int-based mulDivFloor helper.
func MulDivFloor(a, b, denom cosmath.Int) (cosmath.Int, error) {
	if denom.IsZero() {
		return cosmath.Int{}, errors.New("fixedmath: division by zero")
	}
	return a.Mul(b).Quo(denom), nil
}

// MulDivCeil computes ceil(a*b/denom).
func MulDivCeil(a, b, denom cosmath.Int) (cosmath.Int, error) {
	if denom.IsZero() {
		return cosmath.Int{}, errors.New("fixedmath: division by zero")
	}
	numerator := a.Mul(b)
	q := numerator.Quo(denom)
	if numerator.Mod(denom).IsZero() {
		return q, nil
	}
	return q.Add(cosmath.NewInt(1)), nil
}

// AddDelta applies a signed i128 delta to an unsigned liquidity counter,
// failing rather than wrapping if the result would leave the u128 range.
func AddDelta(liquidity uint128.Uint128, delta cosmath.Int) (uint128.Uint128, error) {
	result := U128ToInt(liquidity).Add(delta)
	if result.IsNegative() {
		return uint128.Uint128{}, ErrLiquidityUnderflow
	}
	if result.BigInt().Cmp(maxUint128) > 0 {
		return uint128.Uint128{}, ErrLiquidityOverflow
	}
	return IntToU128(result)
}

// WrappingSubU128 computes (a - b) modulo 2^128, the convention every
// growth-accumulator diff in the engine relies on: accumulators wrap as
// they accrue, so a snapshot difference must be taken on the same ring.
func WrappingSubU128(a, b uint128.Uint128) uint128.Uint128 {
	diff := new(big.Int).Sub(a.Big(), b.Big())
	diff.Mod(diff, q128)
	return uint128.FromBig(diff)
}

// WrappingAddU128 computes (a + b) modulo 2^128, the addition-side
// counterpart of WrappingSubU128 used wherever an accumulator is
// intentionally allowed to wrap (growth accumulators, the oracle ring's
// cumulative field).
func WrappingAddU128(a, b uint128.Uint128) uint128.Uint128 {
	sum := new(big.Int).Add(a.Big(), b.Big())
	sum.Mod(sum, q128)
	return uint128.FromBig(sum)
}

// WrappingMulU128ByUint64 computes (a * b) modulo 2^128.
func WrappingMulU128ByUint64(a uint128.Uint128, b uint64) uint128.Uint128 {
	product := new(big.Int).Mul(a.Big(), new(big.Int).SetUint64(b))
	product.Mod(product, q128)
	return uint128.FromBig(product)
}
