// Package tickarray implements TickArrayState and TickState: the
// per-tick liquidity/fee/reward accounting and the growth-inside
// computation a swap or position operation needs when it crosses or
// reads a tick. Grounded in the teacher's TickArray/TickState
// (pkg/pool/raydium/clmm_tickerarray.go) and, for the exact update/cross/
// growth-inside semantics, original_source/programs/amm/src/states/tick_array.rs.
package tickarray

import (
	"errors"
	"fmt"

	cosmath "cosmossdk.io/math"
	"lukechampine.com/uint128"

	"github.com/solana-zh/clmm-core/pkg/fixedmath"
)

// Size is the number of tick slots in a TickArrayState, spec.md §3.
const Size = 60

// RewardCount is the number of reward accumulators tracked per tick,
// mirroring PoolState.RewardInfos.
const RewardCount = 3

var (
	// ErrTickNotFound is returned when a tick index does not align to a
	// slot within the array's [StartTickIndex, StartTickIndex+width) range.
	ErrTickNotFound = errors.New("tickarray: tick not found in array")
	// ErrTickBoundary is returned when a tick index is not a multiple of
	// the pool's tick spacing.
	ErrTickBoundary = errors.New("tickarray: tick not aligned to spacing")
)

// TickState is the per-tick accounting record: initialized liquidity,
// fee-growth-outside and reward-growth-outside snapshots taken the last
// time the tick was crossed.
type TickState struct {
	Tick                   int32
	LiquidityNet           cosmath.Int
	LiquidityGross         uint128.Uint128
	FeeGrowthOutside0X64   uint128.Uint128
	FeeGrowthOutside1X64   uint128.Uint128
	RewardGrowthsOutsideX64 [RewardCount]uint128.Uint128
}

// IsInitialized reports whether this tick slot carries any liquidity.
func (t *TickState) IsInitialized() bool {
	return !t.LiquidityGross.IsZero()
}

// Update applies a liquidity delta at this tick (as either the lower or
// upper bound of a position range) and reports whether the tick flipped
// from uninitialized to initialized or vice versa. When the tick is being
// initialized for the first time, it seeds its outside-growth snapshots
// under the convention that all growth accrued "below" the tick if the
// tick is already at or below the pool's current tick -- the same
// convention TickState::update encodes.
func (t *TickState) Update(tickCurrent int32, liquidityDelta cosmath.Int, feeGrowthGlobal0X64, feeGrowthGlobal1X64 uint128.Uint128, rewardGrowthsGlobalX64 [RewardCount]uint128.Uint128, upper bool, maxLiquidity uint128.Uint128) (flipped bool, err error) {
	liquidityGrossBefore := t.LiquidityGross
	liquidityGrossAfter, err := fixedmath.AddDelta(liquidityGrossBefore, liquidityDelta)
	if err != nil {
		return false, fmt.Errorf("tickarray: update tick %d: %w", t.Tick, err)
	}
	if fixedmath.U128ToInt(liquidityGrossAfter).GT(fixedmath.U128ToInt(maxLiquidity)) {
		return false, fmt.Errorf("tickarray: tick %d liquidity gross exceeds max", t.Tick)
	}

	flipped = liquidityGrossBefore.IsZero() != liquidityGrossAfter.IsZero()

	if liquidityGrossBefore.IsZero() {
		if t.Tick <= tickCurrent {
			t.FeeGrowthOutside0X64 = feeGrowthGlobal0X64
			t.FeeGrowthOutside1X64 = feeGrowthGlobal1X64
			t.RewardGrowthsOutsideX64 = rewardGrowthsGlobalX64
		} else {
			t.FeeGrowthOutside0X64 = uint128.Zero
			t.FeeGrowthOutside1X64 = uint128.Zero
			for i := range t.RewardGrowthsOutsideX64 {
				t.RewardGrowthsOutsideX64[i] = uint128.Zero
			}
		}
	}

	t.LiquidityGross = liquidityGrossAfter

	signedDelta := liquidityDelta
	if upper {
		signedDelta = liquidityDelta.Neg()
	}
	t.LiquidityNet = t.LiquidityNet.Add(signedDelta)

	return flipped, nil
}

// Cross flips a tick's outside-growth snapshots when the swap price moves
// through it (so that "outside" always means "on the side the price just
// left"), and returns the liquidity_net to apply to the pool's active
// liquidity. Uses wrapping subtraction throughout, matching TickState::cross.
func (t *TickState) Cross(feeGrowthGlobal0X64, feeGrowthGlobal1X64 uint128.Uint128, rewardGrowthsGlobalX64 [RewardCount]uint128.Uint128) cosmath.Int {
	t.FeeGrowthOutside0X64 = fixedmath.WrappingSubU128(feeGrowthGlobal0X64, t.FeeGrowthOutside0X64)
	t.FeeGrowthOutside1X64 = fixedmath.WrappingSubU128(feeGrowthGlobal1X64, t.FeeGrowthOutside1X64)
	for i := range t.RewardGrowthsOutsideX64 {
		t.RewardGrowthsOutsideX64[i] = fixedmath.WrappingSubU128(rewardGrowthsGlobalX64[i], t.RewardGrowthsOutsideX64[i])
	}
	return t.LiquidityNet
}

// Clear resets a tick slot once its liquidity_gross returns to zero.
func (t *TickState) Clear() {
	*t = TickState{Tick: t.Tick}
}

// GetFeeGrowthInside computes the fee growth accrued strictly inside
// [lower, upper] as of the current pool state, the fee_growth_inside_X64
// term every position settlement reads. Matches get_fee_growth_inside's
// below/above split with a final wrapping combine.
func GetFeeGrowthInside(lower, upper *TickState, tickCurrent int32, feeGrowthGlobal0X64, feeGrowthGlobal1X64 uint128.Uint128) (inside0, inside1 uint128.Uint128) {
	var feeGrowthBelow0, feeGrowthBelow1 uint128.Uint128
	if tickCurrent >= lower.Tick {
		feeGrowthBelow0, feeGrowthBelow1 = lower.FeeGrowthOutside0X64, lower.FeeGrowthOutside1X64
	} else {
		feeGrowthBelow0 = fixedmath.WrappingSubU128(feeGrowthGlobal0X64, lower.FeeGrowthOutside0X64)
		feeGrowthBelow1 = fixedmath.WrappingSubU128(feeGrowthGlobal1X64, lower.FeeGrowthOutside1X64)
	}

	var feeGrowthAbove0, feeGrowthAbove1 uint128.Uint128
	if tickCurrent < upper.Tick {
		feeGrowthAbove0, feeGrowthAbove1 = upper.FeeGrowthOutside0X64, upper.FeeGrowthOutside1X64
	} else {
		feeGrowthAbove0 = fixedmath.WrappingSubU128(feeGrowthGlobal0X64, upper.FeeGrowthOutside0X64)
		feeGrowthAbove1 = fixedmath.WrappingSubU128(feeGrowthGlobal1X64, upper.FeeGrowthOutside1X64)
	}

	inside0 = fixedmath.WrappingSubU128(fixedmath.WrappingSubU128(feeGrowthGlobal0X64, feeGrowthBelow0), feeGrowthAbove0)
	inside1 = fixedmath.WrappingSubU128(fixedmath.WrappingSubU128(feeGrowthGlobal1X64, feeGrowthBelow1), feeGrowthAbove1)
	return inside0, inside1
}

// GetRewardGrowthsInside computes the per-reward growth accrued strictly
// inside [lower, upper], skipping reward slots that are not initialized
// (per RewardInfo's state machine), with wrapping subtraction preserved at
// every level per spec.md §9's explicit Open Question resolution.
func GetRewardGrowthsInside(lower, upper *TickState, tickCurrent int32, rewardGrowthsGlobalX64 [RewardCount]uint128.Uint128, rewardInitialized [RewardCount]bool) (inside [RewardCount]uint128.Uint128) {
	for i := 0; i < RewardCount; i++ {
		if !rewardInitialized[i] {
			inside[i] = uint128.Zero
			continue
		}

		var growthBelow uint128.Uint128
		if tickCurrent >= lower.Tick {
			growthBelow = lower.RewardGrowthsOutsideX64[i]
		} else {
			growthBelow = fixedmath.WrappingSubU128(rewardGrowthsGlobalX64[i], lower.RewardGrowthsOutsideX64[i])
		}

		var growthAbove uint128.Uint128
		if tickCurrent < upper.Tick {
			growthAbove = upper.RewardGrowthsOutsideX64[i]
		} else {
			growthAbove = fixedmath.WrappingSubU128(rewardGrowthsGlobalX64[i], upper.RewardGrowthsOutsideX64[i])
		}

		inside[i] = fixedmath.WrappingSubU128(fixedmath.WrappingSubU128(rewardGrowthsGlobalX64[i], growthBelow), growthAbove)
	}
	return inside
}

// CheckTickBoundary validates that a tick index is a multiple of
// tickSpacing and within [minTick, maxTick]; callers pass
// tickmath.MinTick and tickmath.MaxTick as the bounds.
func CheckTickBoundary(tick int32, tickSpacing uint16, minTick, maxTick int32) error {
	if tick < minTick || tick > maxTick {
		return fmt.Errorf("%w: tick %d outside [%d, %d]", ErrTickBoundary, tick, minTick, maxTick)
	}
	if tick%int32(tickSpacing) != 0 {
		return fmt.Errorf("%w: tick %d not a multiple of spacing %d", ErrTickBoundary, tick, tickSpacing)
	}
	return nil
}

// State is a decoded TickArrayState: a contiguous run of Size ticks
// starting at StartTickIndex, plus a count of how many slots carry
// liquidity, matching the teacher's TickArray and spec.md §3's
// TickArrayState layout.
type State struct {
	PoolID               [32]byte
	StartTickIndex       int32
	Ticks                [Size]TickState
	InitializedTickCount uint8
}

// slotFor returns the index within Ticks for a given tick index, or
// ErrTickNotFound if it lies outside this array's range.
func (s *State) slotFor(tick int32, tickSpacing uint16) (int, error) {
	width := int32(Size) * int32(tickSpacing)
	if tick < s.StartTickIndex || tick >= s.StartTickIndex+width {
		return 0, fmt.Errorf("%w: tick %d not in [%d, %d)", ErrTickNotFound, tick, s.StartTickIndex, s.StartTickIndex+width)
	}
	offset := (tick - s.StartTickIndex) / int32(tickSpacing)
	return int(offset), nil
}

// GetTickState returns a mutable pointer to the slot for tick, allocating
// its Tick field if this is the first touch.
func (s *State) GetTickState(tick int32, tickSpacing uint16) (*TickState, error) {
	idx, err := s.slotFor(tick, tickSpacing)
	if err != nil {
		return nil, err
	}
	if s.Ticks[idx].Tick == 0 && tick != 0 {
		s.Ticks[idx].Tick = tick
	}
	return &s.Ticks[idx], nil
}

// FirstInitializedTick returns the first initialized tick at or after
// (zeroForOne=false) or at or before (zeroForOne=true) fromTick.
func (s *State) FirstInitializedTick(fromTick int32, tickSpacing uint16, zeroForOne bool) (*TickState, bool) {
	idx, err := s.slotFor(fromTick, tickSpacing)
	if err != nil {
		if zeroForOne {
			idx = Size - 1
		} else {
			idx = 0
		}
	}
	if zeroForOne {
		for i := idx; i >= 0; i-- {
			if s.Ticks[i].IsInitialized() {
				return &s.Ticks[i], true
			}
		}
	} else {
		for i := idx; i < Size; i++ {
			if s.Ticks[i].IsInitialized() {
				return &s.Ticks[i], true
			}
		}
	}
	return nil, false
}

// NextInitializedTick returns the next initialized tick strictly after
// (zeroForOne=false) or strictly before (zeroForOne=true) fromTick, within
// this array only.
func (s *State) NextInitializedTick(fromTick int32, tickSpacing uint16, zeroForOne bool) (*TickState, bool) {
	idx, err := s.slotFor(fromTick, tickSpacing)
	if err != nil {
		return nil, false
	}
	if zeroForOne {
		for i := idx - 1; i >= 0; i-- {
			if s.Ticks[i].IsInitialized() {
				return &s.Ticks[i], true
			}
		}
	} else {
		for i := idx + 1; i < Size; i++ {
			if s.Ticks[i].IsInitialized() {
				return &s.Ticks[i], true
			}
		}
	}
	return nil, false
}
