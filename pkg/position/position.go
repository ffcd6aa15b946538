// Package position implements the two-stage Protocol/Personal position
// settlement described in spec.md §4.7: a ProtocolPositionState tracks
// one [tickLower, tickUpper) range's aggregate liquidity and growth
// snapshots, and any number of PersonalPositionState records settle their
// owed fees/rewards against the protocol position's latest snapshot
// before updating their own. Grounded in
// original_source/programs/amm/src/instructions/increase_liquidity.rs and
// decrease_liquidity.rs, and, for the liquidity bookkeeping shape, the
// teacher's CLMMPool-adjacent accounting in pkg/pool/raydium/clmmPool.go.
package position

import (
	"math/big"

	cosmath "cosmossdk.io/math"
	"lukechampine.com/uint128"

	"github.com/solana-zh/clmm-core/pkg/fixedmath"
	"github.com/solana-zh/clmm-core/pkg/tickarray"
)

// ProtocolPositionState is the authoritative per-range accounting record:
// every personal position sharing [TickLowerIndex, TickUpperIndex) settles
// against this record's snapshots before its own are updated.
type ProtocolPositionState struct {
	PoolID                  [32]byte
	TickLowerIndex          int32
	TickUpperIndex          int32
	Liquidity               uint128.Uint128
	FeeGrowthInside0LastX64 uint128.Uint128
	FeeGrowthInside1LastX64 uint128.Uint128
	TokenFeesOwed0          uint128.Uint128
	TokenFeesOwed1          uint128.Uint128
	RewardGrowthsInsideX64  [tickarray.RewardCount]uint128.Uint128
}

// PersonalPositionState is one LP's claim against a ProtocolPositionState:
// its own liquidity and the growth snapshots as of its last settlement.
type PersonalPositionState struct {
	PositionID              [32]byte
	PoolID                  [32]byte
	TickLowerIndex          int32
	TickUpperIndex          int32
	Liquidity               uint128.Uint128
	FeeGrowthInside0LastX64 uint128.Uint128
	FeeGrowthInside1LastX64 uint128.Uint128
	TokenFeesOwed0          uint128.Uint128
	TokenFeesOwed1          uint128.Uint128
	RewardGrowthsInsideX64  [tickarray.RewardCount]uint128.Uint128
	RewardAmountsOwed       [tickarray.RewardCount]uint128.Uint128
}

// UpdateProtocol applies a liquidity delta and the range's latest
// growth-inside snapshot to the protocol position, accruing any newly
// earned fees/rewards for every personal position to later draw from.
// This is stage one of the two-stage settlement.
func (p *ProtocolPositionState) UpdateProtocol(liquidityDelta cosmath.Int, feeGrowthInside0X64, feeGrowthInside1X64 uint128.Uint128, rewardGrowthsInsideX64 [tickarray.RewardCount]uint128.Uint128) error {
	var liquidityNext uint128.Uint128
	var err error
	if liquidityDelta.IsZero() {
		liquidityNext = p.Liquidity
	} else {
		liquidityNext, err = fixedmath.AddDelta(p.Liquidity, liquidityDelta)
		if err != nil {
			return err
		}
	}

	if !p.Liquidity.IsZero() {
		feeDelta0, err := accruedFees(p.Liquidity, feeGrowthInside0X64, p.FeeGrowthInside0LastX64)
		if err != nil {
			return err
		}
		feeDelta1, err := accruedFees(p.Liquidity, feeGrowthInside1X64, p.FeeGrowthInside1LastX64)
		if err != nil {
			return err
		}
		p.TokenFeesOwed0, err = addU128(p.TokenFeesOwed0, feeDelta0)
		if err != nil {
			return err
		}
		p.TokenFeesOwed1, err = addU128(p.TokenFeesOwed1, feeDelta1)
		if err != nil {
			return err
		}
	}

	p.Liquidity = liquidityNext
	p.FeeGrowthInside0LastX64 = feeGrowthInside0X64
	p.FeeGrowthInside1LastX64 = feeGrowthInside1X64
	p.RewardGrowthsInsideX64 = rewardGrowthsInsideX64
	return nil
}

// SettlePersonal is stage two: it reads the protocol position's current
// snapshot (already advanced by UpdateProtocol) and computes what this
// personal position has newly earned since its own last settlement,
// mirroring calculate_latest_token_fees's wrapping-sub-then-mulDiv
// pattern from increase_liquidity.rs.
func (pp *PersonalPositionState) SettlePersonal(protocol *ProtocolPositionState, liquidityDelta cosmath.Int) error {
	feeDelta0, err := accruedFees(pp.Liquidity, protocol.FeeGrowthInside0LastX64, pp.FeeGrowthInside0LastX64)
	if err != nil {
		return err
	}
	feeDelta1, err := accruedFees(pp.Liquidity, protocol.FeeGrowthInside1LastX64, pp.FeeGrowthInside1LastX64)
	if err != nil {
		return err
	}
	pp.TokenFeesOwed0, err = addU128(pp.TokenFeesOwed0, feeDelta0)
	if err != nil {
		return err
	}
	pp.TokenFeesOwed1, err = addU128(pp.TokenFeesOwed1, feeDelta1)
	if err != nil {
		return err
	}

	for i := 0; i < tickarray.RewardCount; i++ {
		rewardDelta, err := accruedFees(pp.Liquidity, protocol.RewardGrowthsInsideX64[i], pp.RewardGrowthsInsideX64[i])
		if err != nil {
			return err
		}
		pp.RewardAmountsOwed[i], err = addU128(pp.RewardAmountsOwed[i], rewardDelta)
		if err != nil {
			return err
		}
	}

	if !liquidityDelta.IsZero() {
		next, err := fixedmath.AddDelta(pp.Liquidity, liquidityDelta)
		if err != nil {
			return err
		}
		pp.Liquidity = next
	}

	pp.FeeGrowthInside0LastX64 = protocol.FeeGrowthInside0LastX64
	pp.FeeGrowthInside1LastX64 = protocol.FeeGrowthInside1LastX64
	pp.RewardGrowthsInsideX64 = protocol.RewardGrowthsInsideX64
	return nil
}

// SettleDecrease mirrors decrease_liquidity's fee/reward capture and
// zeroing: the caller reads TokenFeesOwed0/1 and RewardAmountsOwed as the
// amounts transferred out, and this records them as collected. Per
// SPEC_FULL.md's Open Question resolution, both TokenFeesOwed0 and
// TokenFeesOwed1 are zeroed here -- the original decrease_liquidity.rs
// zeroes TokenFeesOwed0 twice and never zeroes TokenFeesOwed1, which this
// engine treats as a bug rather than a spec.
func (pp *PersonalPositionState) SettleDecrease() (fees0, fees1 uint128.Uint128, rewards [tickarray.RewardCount]uint128.Uint128) {
	fees0, fees1 = pp.TokenFeesOwed0, pp.TokenFeesOwed1
	rewards = pp.RewardAmountsOwed
	pp.TokenFeesOwed0 = uint128.Zero
	pp.TokenFeesOwed1 = uint128.Zero
	for i := range pp.RewardAmountsOwed {
		pp.RewardAmountsOwed[i] = uint128.Zero
	}
	return fees0, fees1, rewards
}

// accruedFees computes floor(liquidity * (growthCurrent - growthLast) / 2^64),
// a wrapping subtraction followed by a mulDiv, matching
// calculate_latest_token_fees.
func accruedFees(liquidity, growthCurrentX64, growthLastX64 uint128.Uint128) (uint128.Uint128, error) {
	diff := fixedmath.WrappingSubU128(growthCurrentX64, growthLastX64)
	q64 := cosmath.NewIntFromBigInt(bigOneShl64())
	result, err := fixedmath.MulDivFloor(fixedmath.U128ToInt(liquidity), fixedmath.U128ToInt(diff), q64)
	if err != nil {
		return uint128.Uint128{}, err
	}
	return fixedmath.IntToU128(result)
}

func addU128(a, b uint128.Uint128) (uint128.Uint128, error) {
	sum := fixedmath.U128ToInt(a).Add(fixedmath.U128ToInt(b))
	return fixedmath.IntToU128(sum)
}

func bigOneShl64() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), 64)
}
