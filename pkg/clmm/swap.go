package clmm

import (
	"math/big"

	cosmath "cosmossdk.io/math"
	"lukechampine.com/uint128"

	"github.com/solana-zh/clmm-core/pkg/fixedmath"
	"github.com/solana-zh/clmm-core/pkg/swapmath"
	"github.com/solana-zh/clmm-core/pkg/tickarray"
	"github.com/solana-zh/clmm-core/pkg/tickmath"
)

// SwapParams are the inputs to Swap, matching the authoritative signature
// in spec.md §4.9 item 6: direction, whether AmountSpecified names the
// input or output leg, the price limit and the caller's slippage
// threshold on the other leg, plus the host-supplied block timestamp
// the swap loop needs to refresh reward growth (§4.8 step 1) and the
// oracle ring (§4.10).
type SwapParams struct {
	ZeroForOne           bool
	IsBaseInput          bool
	AmountSpecified      cosmath.Int // magnitude; must be strictly positive
	SqrtPriceLimitX64    uint128.Uint128
	OtherAmountThreshold cosmath.Int
	BlockTimestamp       uint64
}

// SwapResult is the outcome of a swap: the net amounts moved, the fee
// split, and the pool's new price/tick.
type SwapResult struct {
	AmountIn        cosmath.Int
	AmountOut       cosmath.Int
	FeeAmount       cosmath.Int
	ProtocolFee     cosmath.Int
	FundFee         cosmath.Int
	NewSqrtPriceX64 uint128.Uint128
	NewTickCurrent  int32
	TicksCrossed    int
}

// Swap executes the authoritative swap loop described in spec.md §4.8:
// refresh reward growth, repeatedly compute a swap step towards the next
// initialized tick (or the caller's price limit, whichever is closer),
// split the raw step fee into protocol/fund/LP shares, cross any tick the
// price reaches, and continue until the specified amount is exhausted or
// the price limit is hit; then append an oracle observation and enforce
// the caller's other-amount slippage threshold. Grounded directly in the
// teacher's swapCompute (pkg/pool/raydium/clmmPool.go) and
// original_source/.../instructions/swap.rs.
func (e *Engine) Swap(params SwapParams) (*SwapResult, error) {
	if !e.Pool.StatusAllows(PoolStatusSwap) {
		return nil, ErrPoolDisabled
	}
	if !params.AmountSpecified.IsPositive() {
		return nil, ErrZeroAmount
	}

	if err := e.refreshRewards(params.BlockTimestamp); err != nil {
		return nil, err
	}

	currentPriceInt := fixedmath.U128ToInt(e.Pool.SqrtPriceX64)
	limitInt := fixedmath.U128ToInt(params.SqrtPriceLimitX64)

	if params.ZeroForOne {
		if limitInt.GTE(currentPriceInt) || limitInt.LTE(fixedmath.U128ToInt(tickmath.MinSqrtPriceX64)) {
			return nil, ErrInvalidTickRange
		}
	} else {
		if limitInt.LTE(currentPriceInt) || limitInt.GTE(fixedmath.U128ToInt(tickmath.MaxSqrtPriceX64)) {
			return nil, ErrInvalidTickRange
		}
	}

	exactIn := params.IsBaseInput
	amountRemaining := params.AmountSpecified
	amountCalculated := cosmath.ZeroInt()
	feeTotal := cosmath.ZeroInt()
	protocolFeeTotal := cosmath.ZeroInt()
	fundFeeTotal := cosmath.ZeroInt()

	sqrtPriceX64 := e.Pool.SqrtPriceX64
	tickCurrent := e.Pool.TickCurrent
	liquidity := e.Pool.Liquidity
	feeGrowthGlobalX64 := e.Pool.FeeGrowthGlobal0X64
	if !params.ZeroForOne {
		feeGrowthGlobalX64 = e.Pool.FeeGrowthGlobal1X64
	}
	ticksCrossed := 0

	for {
		if amountRemaining.IsZero() {
			break
		}
		if sqrtPriceX64.Big().Cmp(params.SqrtPriceLimitX64.Big()) == 0 {
			break
		}
		if ticksCrossed >= maxSwapLoopIterations {
			return nil, ErrTooManyTickCrossings
		}

		startTick := tickCurrent
		startArrayIndex := e.arrayStart(startTick)
		arr, err := e.getArray(startArrayIndex)
		if err != nil {
			return nil, err
		}

		width := int32(tickarray.Size) * int32(e.Pool.TickSpacing)
		var nextTickState *tickarray.TickState
		var found bool
		if params.ZeroForOne {
			nextTickState, found = arr.FirstInitializedTick(startTick, e.Pool.TickSpacing, true)
		} else {
			nextTickState, found = arr.NextInitializedTick(startTick, e.Pool.TickSpacing, false)
			if !found {
				if nextArr, ok := e.Arrays[startArrayIndex+width]; ok && nextArr.Ticks[0].IsInitialized() {
					nextTickState, found = &nextArr.Ticks[0], true
				}
			}
		}
		var nextTick int32
		if !found {
			if params.ZeroForOne {
				nextTick = startArrayIndex
			} else {
				nextTick = startArrayIndex + width
			}
		} else {
			nextTick = nextTickState.Tick
		}

		if nextTick < tickmath.MinTick {
			nextTick = tickmath.MinTick
		}
		if nextTick > tickmath.MaxTick {
			nextTick = tickmath.MaxTick
		}

		sqrtPriceNextX64, err := tickmath.GetSqrtPriceAtTick(nextTick)
		if err != nil {
			return nil, err
		}

		target := sqrtPriceNextX64
		targetInt := fixedmath.U128ToInt(target)
		if params.ZeroForOne {
			if targetInt.LT(limitInt) {
				target = params.SqrtPriceLimitX64
			}
		} else {
			if targetInt.GT(limitInt) {
				target = params.SqrtPriceLimitX64
			}
		}

		signedRemaining := amountRemaining
		if !exactIn {
			signedRemaining = amountRemaining.Neg()
		}

		step, err := swapmath.ComputeSwapStep(sqrtPriceX64, target, fixedmath.U128ToInt(liquidity), signedRemaining, e.Config.TradeFeeRate, params.ZeroForOne)
		if err != nil {
			return nil, err
		}

		if exactIn {
			amountRemaining = amountRemaining.Sub(step.AmountIn).Sub(step.FeeAmount)
			amountCalculated = amountCalculated.Add(step.AmountOut)
		} else {
			amountRemaining = amountRemaining.Sub(step.AmountOut)
			amountCalculated = amountCalculated.Add(step.AmountIn).Add(step.FeeAmount)
		}
		feeTotal = feeTotal.Add(step.FeeAmount)

		protocolDelta, err := fixedmath.MulDivFloor(step.FeeAmount, cosmath.NewInt(int64(e.Config.ProtocolFeeRate)), cosmath.NewInt(FeeRateDenominator))
		if err != nil {
			return nil, err
		}
		fundDelta, err := fixedmath.MulDivFloor(step.FeeAmount, cosmath.NewInt(int64(e.Config.FundFeeRate)), cosmath.NewInt(FeeRateDenominator))
		if err != nil {
			return nil, err
		}
		protocolFeeTotal = protocolFeeTotal.Add(protocolDelta)
		fundFeeTotal = fundFeeTotal.Add(fundDelta)
		feeRemainder := step.FeeAmount.Sub(protocolDelta).Sub(fundDelta)

		if liquidity.Big().Sign() > 0 {
			feeGrowthDelta, err := fixedmath.MulDivFloor(feeRemainder, q64Int(), fixedmath.U128ToInt(liquidity))
			if err != nil {
				return nil, err
			}
			sum := fixedmath.U128ToInt(feeGrowthGlobalX64).Add(feeGrowthDelta).Mod(q128Int())
			feeGrowthGlobalX64, err = fixedmath.IntToU128(sum)
			if err != nil {
				return nil, err
			}
		}

		sqrtPriceX64 = step.NextSqrtPriceX64

		if sqrtPriceX64.Big().Cmp(sqrtPriceNextX64.Big()) == 0 {
			if found {
				var f0, f1 uint128.Uint128
				if params.ZeroForOne {
					f0, f1 = feeGrowthGlobalX64, e.Pool.FeeGrowthGlobal1X64
				} else {
					f0, f1 = e.Pool.FeeGrowthGlobal0X64, feeGrowthGlobalX64
				}
				liquidityNet := nextTickState.Cross(f0, f1, rewardGrowthsGlobal(e.Pool))
				if params.ZeroForOne {
					liquidityNet = liquidityNet.Neg()
				}
				newLiquidity, err := fixedmath.AddDelta(liquidity, liquidityNet)
				if err != nil {
					return nil, err
				}
				liquidity = newLiquidity
				ticksCrossed++
			}
			if params.ZeroForOne {
				tickCurrent = nextTick - 1
			} else {
				tickCurrent = nextTick
			}
		} else {
			newTick, err := tickmath.GetTickAtSqrtPrice(sqrtPriceX64)
			if err != nil {
				return nil, err
			}
			tickCurrent = newTick
		}
	}

	e.Pool.SqrtPriceX64 = sqrtPriceX64
	e.Pool.TickCurrent = tickCurrent
	e.Pool.Liquidity = liquidity
	if params.ZeroForOne {
		e.Pool.FeeGrowthGlobal0X64 = feeGrowthGlobalX64
	} else {
		e.Pool.FeeGrowthGlobal1X64 = feeGrowthGlobalX64
	}

	var amountIn, amountOut cosmath.Int
	if exactIn {
		amountIn = params.AmountSpecified.Sub(amountRemaining)
		amountOut = amountCalculated
	} else {
		amountIn = amountCalculated
		amountOut = params.AmountSpecified.Sub(amountRemaining)
	}

	if exactIn {
		if amountOut.LT(params.OtherAmountThreshold) {
			return nil, ErrSlippageExceeded
		}
	} else {
		if amountIn.GT(params.OtherAmountThreshold) {
			return nil, ErrSlippageExceeded
		}
	}

	if err := addPoolFeeCounters(e.Pool, params.ZeroForOne, amountIn, amountOut, feeTotal, protocolFeeTotal, fundFeeTotal); err != nil {
		return nil, err
	}

	e.Oracle.Write(uint32(params.BlockTimestamp), sqrtPriceX64)

	return &SwapResult{
		AmountIn:        amountIn,
		AmountOut:       amountOut,
		FeeAmount:       feeTotal,
		ProtocolFee:     protocolFeeTotal,
		FundFee:         fundFeeTotal,
		NewSqrtPriceX64: sqrtPriceX64,
		NewTickCurrent:  tickCurrent,
		TicksCrossed:    ticksCrossed,
	}, nil
}

// addPoolFeeCounters folds one swap's totals into the pool's cumulative
// fee/volume counters, per spec.md §4.8 step 4.
func addPoolFeeCounters(pool *PoolState, zeroForOne bool, amountIn, amountOut, feeTotal, protocolFeeTotal, fundFeeTotal cosmath.Int) error {
	protocolFeeU64, err := intToUint64(protocolFeeTotal)
	if err != nil {
		return err
	}
	fundFeeU64, err := intToUint64(fundFeeTotal)
	if err != nil {
		return err
	}
	feeU64, err := intToUint64(feeTotal)
	if err != nil {
		return err
	}

	if zeroForOne {
		pool.ProtocolFeesToken0 += protocolFeeU64
		pool.FundFeesToken0 += fundFeeU64
		pool.TotalFeesToken0 += feeU64
		in, err := addU128(pool.SwapInAmountToken0, amountIn)
		if err != nil {
			return err
		}
		out, err := addU128(pool.SwapOutAmountToken1, amountOut)
		if err != nil {
			return err
		}
		pool.SwapInAmountToken0 = in
		pool.SwapOutAmountToken1 = out
		return nil
	}

	pool.ProtocolFeesToken1 += protocolFeeU64
	pool.FundFeesToken1 += fundFeeU64
	pool.TotalFeesToken1 += feeU64
	in, err := addU128(pool.SwapInAmountToken1, amountIn)
	if err != nil {
		return err
	}
	out, err := addU128(pool.SwapOutAmountToken0, amountOut)
	if err != nil {
		return err
	}
	pool.SwapInAmountToken1 = in
	pool.SwapOutAmountToken0 = out
	return nil
}

func intToUint64(v cosmath.Int) (uint64, error) {
	if !v.BigInt().IsUint64() {
		return 0, ErrLiquidityOverflow
	}
	return v.BigInt().Uint64(), nil
}

func addU128(a uint128.Uint128, delta cosmath.Int) (uint128.Uint128, error) {
	sum := fixedmath.U128ToInt(a).Add(delta)
	return fixedmath.IntToU128(sum)
}

func q64Int() cosmath.Int {
	return cosmath.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), 64))
}

func q128Int() cosmath.Int {
	return cosmath.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128))
}
