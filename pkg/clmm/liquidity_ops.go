package clmm

import (
	cosmath "cosmossdk.io/math"
	"lukechampine.com/uint128"

	"github.com/solana-zh/clmm-core/pkg/liquiditymath"
	"github.com/solana-zh/clmm-core/pkg/position"
	"github.com/solana-zh/clmm-core/pkg/tickmath"
)

// IncreaseLiquidityParams are the inputs to IncreaseLiquidity.
type IncreaseLiquidityParams struct {
	Personal        *position.PersonalPositionState
	LiquidityDelta  cosmath.Int
	Amount0Min      cosmath.Int
	Amount1Min      cosmath.Int
}

// IncreaseLiquidityResult is the outcome of adding to an existing position.
type IncreaseLiquidityResult struct {
	Amount0 cosmath.Int
	Amount1 cosmath.Int
}

// IncreaseLiquidity adds liquidityDelta to an existing personal position,
// per spec.md §4.9 item 2: settle the position's accrued fees/rewards
// against its protocol position first, then apply the new delta.
func (e *Engine) IncreaseLiquidity(params IncreaseLiquidityParams) (*IncreaseLiquidityResult, error) {
	if !e.Pool.StatusAllows(PoolStatusIncreaseLiquidity) {
		return nil, ErrPoolDisabled
	}
	if params.LiquidityDelta.IsZero() || params.LiquidityDelta.IsNegative() {
		return nil, ErrZeroAmount
	}

	sqrtLower, err := tickmath.GetSqrtPriceAtTick(params.Personal.TickLowerIndex)
	if err != nil {
		return nil, err
	}
	sqrtUpper, err := tickmath.GetSqrtPriceAtTick(params.Personal.TickUpperIndex)
	if err != nil {
		return nil, err
	}

	amount0, amount1, err := liquiditymath.GetDeltaAmountsSigned(e.Pool.TickCurrent, params.Personal.TickLowerIndex, params.Personal.TickUpperIndex, e.Pool.SqrtPriceX64, sqrtLower, sqrtUpper, params.LiquidityDelta)
	if err != nil {
		return nil, err
	}
	amount0, amount1 = amount0.Abs(), amount1.Abs()
	if amount0.LT(params.Amount0Min) || amount1.LT(params.Amount1Min) {
		return nil, ErrSlippageExceeded
	}

	protocol, err := e.applyLiquidityDelta(params.Personal.TickLowerIndex, params.Personal.TickUpperIndex, params.LiquidityDelta)
	if err != nil {
		return nil, err
	}
	if err := params.Personal.SettlePersonal(protocol, params.LiquidityDelta); err != nil {
		return nil, err
	}

	e.Pool.Liquidity, err = maybeAddActiveLiquidity(e.Pool, params.Personal.TickLowerIndex, params.Personal.TickUpperIndex, params.LiquidityDelta)
	if err != nil {
		return nil, err
	}

	return &IncreaseLiquidityResult{Amount0: amount0, Amount1: amount1}, nil
}

// DecreaseLiquidityParams are the inputs to DecreaseLiquidity.
type DecreaseLiquidityParams struct {
	Personal        *position.PersonalPositionState
	LiquidityDelta  cosmath.Int
	Amount0Min      cosmath.Int
	Amount1Min      cosmath.Int
}

// DecreaseLiquidityResult is the outcome of removing liquidity from an
// existing position, including the fees/rewards collected alongside it.
type DecreaseLiquidityResult struct {
	Amount0       cosmath.Int
	Amount1       cosmath.Int
	FeesOwed0     cosmath.Int
	FeesOwed1     cosmath.Int
	Rewards       [RewardCount]uint128.Uint128
}

// DecreaseLiquidity removes liquidityDelta from an existing personal
// position, per spec.md §4.9 item 4: settle accrued fees/rewards first,
// then withdraw liquidity and collect the settled fees. Per
// SPEC_FULL.md's Open Question resolution, both fee-owed counters are
// zeroed after collection -- the original's double-zero of
// token_fees_owed_0 (and never zeroing token_fees_owed_1) is not
// reproduced.
func (e *Engine) DecreaseLiquidity(params DecreaseLiquidityParams) (*DecreaseLiquidityResult, error) {
	if params.LiquidityDelta.IsZero() || params.LiquidityDelta.IsNegative() {
		return nil, ErrZeroAmount
	}
	if params.LiquidityDelta.GT(cosmath.NewIntFromBigInt(params.Personal.Liquidity.Big())) {
		return nil, ErrInsufficientLiquidity
	}

	sqrtLower, err := tickmath.GetSqrtPriceAtTick(params.Personal.TickLowerIndex)
	if err != nil {
		return nil, err
	}
	sqrtUpper, err := tickmath.GetSqrtPriceAtTick(params.Personal.TickUpperIndex)
	if err != nil {
		return nil, err
	}

	negDelta := params.LiquidityDelta.Neg()
	amount0, amount1, err := liquiditymath.GetDeltaAmountsSigned(e.Pool.TickCurrent, params.Personal.TickLowerIndex, params.Personal.TickUpperIndex, e.Pool.SqrtPriceX64, sqrtLower, sqrtUpper, negDelta)
	if err != nil {
		return nil, err
	}
	amount0, amount1 = amount0.Abs(), amount1.Abs()
	if amount0.LT(params.Amount0Min) || amount1.LT(params.Amount1Min) {
		return nil, ErrSlippageExceeded
	}

	protocol, err := e.applyLiquidityDelta(params.Personal.TickLowerIndex, params.Personal.TickUpperIndex, negDelta)
	if err != nil {
		return nil, err
	}
	if err := params.Personal.SettlePersonal(protocol, negDelta); err != nil {
		return nil, err
	}

	e.Pool.Liquidity, err = maybeAddActiveLiquidity(e.Pool, params.Personal.TickLowerIndex, params.Personal.TickUpperIndex, negDelta)
	if err != nil {
		return nil, err
	}

	fees0, fees1, rewards := params.Personal.SettleDecrease()

	return &DecreaseLiquidityResult{
		Amount0:   amount0,
		Amount1:   amount1,
		FeesOwed0: cosmath.NewIntFromBigInt(fees0.Big()),
		FeesOwed1: cosmath.NewIntFromBigInt(fees1.Big()),
		Rewards:   rewards,
	}, nil
}

// ClosePosition tears down a personal position record once its liquidity
// has been fully withdrawn and all fees/rewards collected, per spec.md
// §4.9 item 5.
func (e *Engine) ClosePosition(personal *position.PersonalPositionState) error {
	if personal.Liquidity.Big().Sign() != 0 {
		return ErrInsufficientLiquidity
	}
	if personal.TokenFeesOwed0.Big().Sign() != 0 || personal.TokenFeesOwed1.Big().Sign() != 0 {
		return ErrInsufficientLiquidity
	}
	for _, owed := range personal.RewardAmountsOwed {
		if owed.Big().Sign() != 0 {
			return ErrInsufficientLiquidity
		}
	}
	*personal = position.PersonalPositionState{}
	return nil
}
