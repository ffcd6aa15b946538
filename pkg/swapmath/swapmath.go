// Package swapmath implements a single swap step: given a starting sqrt
// price, a price target (the next initialized tick or the overall limit),
// available liquidity and a remaining amount, it computes how far the
// price moves and how much is swapped/paid in fees. Grounded in the
// teacher's swapStepCompute and its getNextSqrtPriceX64FromInput /
// getNextSqrtPriceX64FromOutput / getNextSqrtPriceFromTokenAmountARoundingUp
// / getNextSqrtPriceFromTokenAmountBRoundingDown helpers
// (pkg/pool/raydium/clmm_tickerarray.go), rewritten to return errors
// instead of panicking per spec.md §9.
package swapmath

import (
	"errors"
	"math/big"

	cosmath "cosmossdk.io/math"
	"lukechampine.com/uint128"

	"github.com/solana-zh/clmm-core/pkg/fixedmath"
)

// FeeRateDenominator is the fixed denominator every fee rate (trade,
// protocol, fund) is expressed over, per spec.md §6.
const FeeRateDenominator = 1_000_000

var (
	// ErrZeroLiquidity is returned when a swap step is attempted with no
	// liquidity in range.
	ErrZeroLiquidity = errors.New("swapmath: zero liquidity")
	// ErrInvalidPrice is returned when a computed sqrt price is non-positive
	// or otherwise out of the representable range.
	ErrInvalidPrice = errors.New("swapmath: invalid sqrt price")

	q64 = cosmath.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), 64))
)

// StepResult carries the outcome of one swap step.
type StepResult struct {
	NextSqrtPriceX64 uint128.Uint128
	AmountIn         cosmath.Int
	AmountOut        cosmath.Int
	FeeAmount        cosmath.Int
}

// ComputeSwapStep advances the price from sqrtPriceCurrentX64 towards
// sqrtPriceTargetX64 (a tick boundary or the swap's overall limit),
// consuming at most amountRemaining (a positive exact-in budget, or a
// negative exact-out budget whose absolute value is the amount still
// owed to the trader) at feeRate out of FeeRateDenominator.
func ComputeSwapStep(sqrtPriceCurrentX64, sqrtPriceTargetX64 uint128.Uint128, liquidity cosmath.Int, amountRemaining cosmath.Int, feeRate uint32, zeroForOne bool) (StepResult, error) {
	if liquidity.IsZero() || liquidity.IsNegative() {
		return StepResult{}, ErrZeroLiquidity
	}

	current := fixedmath.U128ToInt(sqrtPriceCurrentX64)
	target := fixedmath.U128ToInt(sqrtPriceTargetX64)
	if current.IsZero() || current.IsNegative() || target.IsNegative() {
		return StepResult{}, ErrInvalidPrice
	}

	exactIn := amountRemaining.GTE(cosmath.ZeroInt())
	feeRateInt := cosmath.NewInt(int64(feeRate))
	feeDenom := cosmath.NewInt(FeeRateDenominator)

	var nextPrice cosmath.Int
	var amountIn, amountOut, feeAmount cosmath.Int

	reachesTarget := false

	if exactIn {
		amountRemainingLessFee, err := fixedmath.MulDivFloor(amountRemaining, feeDenom.Sub(feeRateInt), feeDenom)
		if err != nil {
			return StepResult{}, err
		}
		if zeroForOne {
			amountIn, err = getAmount0DeltaUnsigned(target, current, liquidity, true)
		} else {
			amountIn, err = getAmount1DeltaUnsigned(current, target, liquidity, true)
		}
		if err != nil {
			return StepResult{}, err
		}
		if amountRemainingLessFee.GTE(amountIn) {
			reachesTarget = true
			nextPrice = target
		} else {
			nextPrice, err = getNextSqrtPriceFromInput(current, liquidity, amountRemainingLessFee, zeroForOne)
			if err != nil {
				return StepResult{}, err
			}
		}
	} else {
		amountRemainingAbs := amountRemaining.Neg()
		var err error
		if zeroForOne {
			amountOut, err = getAmount1DeltaUnsigned(target, current, liquidity, false)
		} else {
			amountOut, err = getAmount0DeltaUnsigned(current, target, liquidity, false)
		}
		if err != nil {
			return StepResult{}, err
		}
		if amountRemainingAbs.GTE(amountOut) {
			reachesTarget = true
			nextPrice = target
		} else {
			nextPrice, err = getNextSqrtPriceFromOutput(current, liquidity, amountRemainingAbs, zeroForOne)
			if err != nil {
				return StepResult{}, err
			}
		}
	}

	atMax := target.Equal(nextPrice)

	var err error
	if zeroForOne {
		if !(atMax && exactIn) {
			amountIn, err = getAmount0DeltaUnsigned(nextPrice, current, liquidity, true)
		}
		if err != nil {
			return StepResult{}, err
		}
		if !(atMax && !exactIn) {
			amountOut, err = getAmount1DeltaUnsigned(nextPrice, current, liquidity, false)
		}
	} else {
		if !(atMax && exactIn) {
			amountIn, err = getAmount1DeltaUnsigned(current, nextPrice, liquidity, true)
		}
		if err != nil {
			return StepResult{}, err
		}
		if !(atMax && !exactIn) {
			amountOut, err = getAmount0DeltaUnsigned(current, nextPrice, liquidity, false)
		}
	}
	if err != nil {
		return StepResult{}, err
	}

	if !exactIn && amountOut.GT(amountRemaining.Neg()) {
		amountOut = amountRemaining.Neg()
	}

	if exactIn && !nextPrice.Equal(target) {
		feeAmount = amountRemaining.Sub(amountIn)
	} else {
		feeAmount, err = fixedmath.MulDivCeil(amountIn, feeRateInt, feeDenom.Sub(feeRateInt))
		if err != nil {
			return StepResult{}, err
		}
	}

	nextU128, err := fixedmath.IntToU128(nextPrice)
	if err != nil {
		return StepResult{}, err
	}

	if amountIn.IsNil() {
		amountIn = cosmath.ZeroInt()
	}
	if amountOut.IsNil() {
		amountOut = cosmath.ZeroInt()
	}

	return StepResult{
		NextSqrtPriceX64: nextU128,
		AmountIn:         amountIn,
		AmountOut:        amountOut,
		FeeAmount:        feeAmount,
	}, nil
}

func getAmount0DeltaUnsigned(sqrtPriceAX64, sqrtPriceBX64 cosmath.Int, liquidity cosmath.Int, roundUp bool) (cosmath.Int, error) {
	lower, upper := sqrtPriceAX64, sqrtPriceBX64
	if lower.GT(upper) {
		lower, upper = upper, lower
	}
	if lower.IsZero() {
		return cosmath.Int{}, ErrInvalidPrice
	}
	numerator1 := liquidity.Mul(q64)
	numerator2 := upper.Sub(lower)
	if roundUp {
		r, err := fixedmath.MulDivCeil(numerator1, numerator2, upper)
		if err != nil {
			return cosmath.Int{}, err
		}
		return ceilDiv(r, lower)
	}
	r, err := fixedmath.MulDivFloor(numerator1, numerator2, upper)
	if err != nil {
		return cosmath.Int{}, err
	}
	return r.Quo(lower), nil
}

func getAmount1DeltaUnsigned(sqrtPriceAX64, sqrtPriceBX64 cosmath.Int, liquidity cosmath.Int, roundUp bool) (cosmath.Int, error) {
	lower, upper := sqrtPriceAX64, sqrtPriceBX64
	if lower.GT(upper) {
		lower, upper = upper, lower
	}
	diff := upper.Sub(lower)
	if roundUp {
		return fixedmath.MulDivCeil(liquidity, diff, q64)
	}
	return fixedmath.MulDivFloor(liquidity, diff, q64)
}

// getNextSqrtPriceFromInput computes the next sqrt price after adding an
// exact-in amount, rounding in the direction that under-credits the pool
// (never overstates available liquidity), mirroring
// getNextSqrtPriceX64FromInput.
func getNextSqrtPriceFromInput(sqrtPriceX64, liquidity, amountIn cosmath.Int, zeroForOne bool) (cosmath.Int, error) {
	if sqrtPriceX64.IsZero() || liquidity.IsZero() {
		return cosmath.Int{}, ErrInvalidPrice
	}
	if zeroForOne {
		return getNextSqrtPriceFromAmount0RoundingUp(sqrtPriceX64, liquidity, amountIn, true)
	}
	return getNextSqrtPriceFromAmount1RoundingDown(sqrtPriceX64, liquidity, amountIn, true)
}

// getNextSqrtPriceFromOutput mirrors getNextSqrtPriceX64FromOutput.
func getNextSqrtPriceFromOutput(sqrtPriceX64, liquidity, amountOut cosmath.Int, zeroForOne bool) (cosmath.Int, error) {
	if sqrtPriceX64.IsZero() || liquidity.IsZero() {
		return cosmath.Int{}, ErrInvalidPrice
	}
	if zeroForOne {
		return getNextSqrtPriceFromAmount1RoundingDown(sqrtPriceX64, liquidity, amountOut, false)
	}
	return getNextSqrtPriceFromAmount0RoundingUp(sqrtPriceX64, liquidity, amountOut, false)
}

// getNextSqrtPriceFromAmount0RoundingUp mirrors
// getNextSqrtPriceFromTokenAmountARoundingUp, returning an error instead of
// panicking on a degenerate product.
func getNextSqrtPriceFromAmount0RoundingUp(sqrtPriceX64, liquidity, amount cosmath.Int, add bool) (cosmath.Int, error) {
	if amount.IsZero() {
		return sqrtPriceX64, nil
	}
	numerator1 := liquidity.Mul(q64)
	if add {
		product := amount.Mul(sqrtPriceX64)
		denominator := numerator1.Add(product)
		if denominator.GTE(numerator1) {
			return fixedmath.MulDivCeil(numerator1, sqrtPriceX64, denominator)
		}
		return ceilDiv(numerator1, numerator1.Quo(sqrtPriceX64).Add(amount))
	}
	product := amount.Mul(sqrtPriceX64)
	if numerator1.LTE(product) {
		return cosmath.Int{}, errors.New("swapmath: amount0 exceeds available liquidity")
	}
	denominator := numerator1.Sub(product)
	return fixedmath.MulDivCeil(numerator1, sqrtPriceX64, denominator)
}

// getNextSqrtPriceFromAmount1RoundingDown mirrors
// getNextSqrtPriceFromTokenAmountBRoundingDown.
func getNextSqrtPriceFromAmount1RoundingDown(sqrtPriceX64, liquidity, amount cosmath.Int, add bool) (cosmath.Int, error) {
	if add {
		quotient, err := fixedmath.MulDivFloor(amount, q64, liquidity)
		if err != nil {
			return cosmath.Int{}, err
		}
		return sqrtPriceX64.Add(quotient), nil
	}
	quotient, err := fixedmath.MulDivCeil(amount, q64, liquidity)
	if err != nil {
		return cosmath.Int{}, err
	}
	if sqrtPriceX64.LTE(quotient) {
		return cosmath.Int{}, errors.New("swapmath: amount1 exceeds current price")
	}
	return sqrtPriceX64.Sub(quotient), nil
}

func ceilDiv(num, denom cosmath.Int) (cosmath.Int, error) {
	if denom.IsZero() {
		return cosmath.Int{}, errors.New("swapmath: division by zero")
	}
	q := num.Quo(denom)
	if num.Mod(denom).IsZero() {
		return q, nil
	}
	return q.Add(cosmath.NewInt(1)), nil
}
