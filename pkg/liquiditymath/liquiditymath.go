// Package liquiditymath converts between token amounts and liquidity L,
// grounded in the teacher's getTokenAmountAFromLiquidity /
// getTokenAmountBFromLiquidity (pkg/pool/raydium/clmm_tickerarray.go) and
// the three-regime delta split used throughout
// original_source/programs/amm/src/libraries/liquidity_math.rs-equivalent
// call sites in swap.rs and increase_liquidity.rs.
package liquiditymath

import (
	"errors"
	"fmt"

	"math/big"

	cosmath "cosmossdk.io/math"
	"lukechampine.com/uint128"

	"github.com/solana-zh/clmm-core/pkg/fixedmath"
)

var q64 = cosmath.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), 64))

// ErrInvalidTickRange is returned when tickLower >= tickUpper.
var ErrInvalidTickRange = errors.New("liquiditymath: lower tick must be below upper tick")

// GetLiquidityFromAmount0 computes L from an amount of token0 held between
// two sqrt prices: L = amount0 * (sqrtA * sqrtB) / (sqrtB - sqrtA).
func GetLiquidityFromAmount0(sqrtPriceAX64, sqrtPriceBX64 uint128.Uint128, amount0 cosmath.Int) (cosmath.Int, error) {
	a, b := orderPrices(sqrtPriceAX64, sqrtPriceBX64)
	intersect := fixedmath.U128ToInt(a).Mul(fixedmath.U128ToInt(b)).Quo(q64)
	denom := fixedmath.U128ToInt(b).Sub(fixedmath.U128ToInt(a))
	if denom.IsZero() {
		return cosmath.Int{}, errors.New("liquiditymath: equal sqrt prices")
	}
	return amount0.Mul(intersect).Quo(denom), nil
}

// GetLiquidityFromAmount1 computes L from an amount of token1:
// L = amount1 / (sqrtB - sqrtA).
func GetLiquidityFromAmount1(sqrtPriceAX64, sqrtPriceBX64 uint128.Uint128, amount1 cosmath.Int) (cosmath.Int, error) {
	a, b := orderPrices(sqrtPriceAX64, sqrtPriceBX64)
	denom := fixedmath.U128ToInt(b).Sub(fixedmath.U128ToInt(a))
	if denom.IsZero() {
		return cosmath.Int{}, errors.New("liquiditymath: equal sqrt prices")
	}
	return amount1.Mul(q64).Quo(denom), nil
}

// GetLiquidityFromAmounts picks the liquidity-limiting side depending on
// where the current price sits relative to the position's range, the same
// three-way split open_position uses to size a new position from desired
// amounts of both tokens.
func GetLiquidityFromAmounts(sqrtPriceCurrentX64, sqrtPriceAX64, sqrtPriceBX64 uint128.Uint128, amount0, amount1 cosmath.Int) (cosmath.Int, error) {
	a, b := orderPrices(sqrtPriceAX64, sqrtPriceBX64)
	current := fixedmath.U128ToInt(sqrtPriceCurrentX64)
	aInt := fixedmath.U128ToInt(a)
	bInt := fixedmath.U128ToInt(b)

	switch {
	case current.LTE(aInt):
		return GetLiquidityFromAmount0(a, b, amount0)
	case current.GTE(bInt):
		return GetLiquidityFromAmount1(a, b, amount1)
	default:
		l0, err := GetLiquidityFromAmount0(sqrtPriceCurrentX64, b, amount0)
		if err != nil {
			return cosmath.Int{}, err
		}
		l1, err := GetLiquidityFromAmount1(a, sqrtPriceCurrentX64, amount1)
		if err != nil {
			return cosmath.Int{}, err
		}
		if l0.LT(l1) {
			return l0, nil
		}
		return l1, nil
	}
}

// GetAmount0Delta computes the token0 owed for a change in liquidity
// across [sqrtPriceAX64, sqrtPriceBX64]: amount0 = L*(sqrtB-sqrtA)/(sqrtA*sqrtB).
func GetAmount0Delta(sqrtPriceAX64, sqrtPriceBX64 uint128.Uint128, liquidity cosmath.Int, roundUp bool) (cosmath.Int, error) {
	a, b := orderPrices(sqrtPriceAX64, sqrtPriceBX64)
	aInt := fixedmath.U128ToInt(a)
	bInt := fixedmath.U128ToInt(b)
	numerator1 := liquidity.Mul(q64)
	numerator2 := bInt.Sub(aInt)

	if aInt.IsZero() {
		return cosmath.Int{}, errors.New("liquiditymath: zero sqrt price")
	}
	if roundUp {
		r, err := fixedmath.MulDivCeil(numerator1, numerator2, bInt)
		if err != nil {
			return cosmath.Int{}, err
		}
		return ceilDiv(r, aInt)
	}
	r, err := fixedmath.MulDivFloor(numerator1, numerator2, bInt)
	if err != nil {
		return cosmath.Int{}, err
	}
	return r.Quo(aInt), nil
}

// GetAmount1Delta computes the token1 owed for a change in liquidity
// across [sqrtPriceAX64, sqrtPriceBX64]: amount1 = L*(sqrtB-sqrtA).
func GetAmount1Delta(sqrtPriceAX64, sqrtPriceBX64 uint128.Uint128, liquidity cosmath.Int, roundUp bool) (cosmath.Int, error) {
	a, b := orderPrices(sqrtPriceAX64, sqrtPriceBX64)
	aInt := fixedmath.U128ToInt(a)
	bInt := fixedmath.U128ToInt(b)
	diff := bInt.Sub(aInt)
	if roundUp {
		return fixedmath.MulDivCeil(liquidity, diff, q64)
	}
	return fixedmath.MulDivFloor(liquidity, diff, q64)
}

// GetDeltaAmountsSigned splits a signed liquidity delta (applied at
// tickCurrent against a position's [tickLower, tickUpper) range) into the
// signed token0/token1 amounts owed to or by the position, following the
// three regimes in spec.md §4.3: current below range (token0 only),
// current within range (both tokens, using current price), current above
// range (token1 only).
func GetDeltaAmountsSigned(tickCurrent, tickLower, tickUpper int32, sqrtPriceCurrentX64, sqrtPriceLowerX64, sqrtPriceUpperX64 uint128.Uint128, liquidityDelta cosmath.Int) (amount0, amount1 cosmath.Int, err error) {
	if tickLower >= tickUpper {
		return cosmath.Int{}, cosmath.Int{}, fmt.Errorf("%w: [%d, %d)", ErrInvalidTickRange, tickLower, tickUpper)
	}

	roundUp := liquidityDelta.IsPositive()
	absDelta := liquidityDelta.Abs()

	negateIfNeeded := func(v cosmath.Int) cosmath.Int {
		if liquidityDelta.IsNegative() {
			return v.Neg()
		}
		return v
	}

	switch {
	case tickCurrent < tickLower:
		a0, e := GetAmount0Delta(sqrtPriceLowerX64, sqrtPriceUpperX64, absDelta, roundUp)
		if e != nil {
			return cosmath.Int{}, cosmath.Int{}, e
		}
		return negateIfNeeded(a0), cosmath.ZeroInt(), nil
	case tickCurrent < tickUpper:
		a0, e := GetAmount0Delta(sqrtPriceCurrentX64, sqrtPriceUpperX64, absDelta, roundUp)
		if e != nil {
			return cosmath.Int{}, cosmath.Int{}, e
		}
		a1, e := GetAmount1Delta(sqrtPriceLowerX64, sqrtPriceCurrentX64, absDelta, roundUp)
		if e != nil {
			return cosmath.Int{}, cosmath.Int{}, e
		}
		return negateIfNeeded(a0), negateIfNeeded(a1), nil
	default:
		a1, e := GetAmount1Delta(sqrtPriceLowerX64, sqrtPriceUpperX64, absDelta, roundUp)
		if e != nil {
			return cosmath.Int{}, cosmath.Int{}, e
		}
		return cosmath.ZeroInt(), negateIfNeeded(a1), nil
	}
}

func orderPrices(x, y uint128.Uint128) (lower, upper uint128.Uint128) {
	xi := fixedmath.U128ToInt(x)
	yi := fixedmath.U128ToInt(y)
	if xi.GT(yi) {
		return y, x
	}
	return x, y
}

func ceilDiv(num, denom cosmath.Int) (cosmath.Int, error) {
	if denom.IsZero() {
		return cosmath.Int{}, errors.New("liquiditymath: division by zero")
	}
	q := num.Quo(denom)
	if num.Mod(denom).IsZero() {
		return q, nil
	}
	return q.Add(cosmath.NewInt(1)), nil
}
