package clmm

import (
	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/solana-zh/clmm-core/pkg/fixedmath"
)

// InitializeRewardParams are the inputs to InitializeReward.
type InitializeRewardParams struct {
	Index                 int
	OpenTime              uint64
	EndTime               uint64
	EmissionsPerSecondX64 uint128.Uint128
	TokenMint             solana.PublicKey
	TokenVault            solana.PublicKey
	Authority             solana.PublicKey
}

// InitializeReward sets up a previously-unused reward slot with its
// emission schedule, per spec.md §4.9 item 7 and RewardInfo's state
// machine (spec.md §9): a slot moves Uninitialized -> Initialized here,
// and later -> Opening once OpenTime elapses.
func (e *Engine) InitializeReward(params InitializeRewardParams) error {
	if params.Index < 0 || params.Index >= RewardCount {
		return ErrInvalidRewardIndex
	}
	slot := &e.Pool.RewardInfos[params.Index]
	if slot.IsInitialized() {
		return ErrRewardAlreadyInitialized
	}
	if params.EndTime <= params.OpenTime {
		return ErrZeroAmount
	}

	slot.RewardState = RewardStateInitialized
	slot.OpenTime = params.OpenTime
	slot.EndTime = params.EndTime
	slot.LastUpdateTime = params.OpenTime
	slot.EmissionsPerSecondX64 = params.EmissionsPerSecondX64
	slot.TokenMint = params.TokenMint
	slot.TokenVault = params.TokenVault
	slot.Authority = params.Authority
	slot.RewardGrowthGlobalX64 = uint128.Zero
	return nil
}

// SetRewardParamsParams are the inputs to SetRewardParams.
type SetRewardParamsParams struct {
	Index                 int
	EmissionsPerSecondX64 uint128.Uint128
	EndTime               uint64
	CurrentTime           uint64
}

// SetRewardParams updates an already-initialized reward slot's emission
// rate and end time, first accruing growth up to CurrentTime at the old
// rate so the change never retroactively alters past accrual, per
// spec.md §4.9 item 7.
func (e *Engine) SetRewardParams(params SetRewardParamsParams) error {
	if params.Index < 0 || params.Index >= RewardCount {
		return ErrInvalidRewardIndex
	}
	slot := &e.Pool.RewardInfos[params.Index]
	if !slot.IsInitialized() {
		return ErrRewardNotInitialized
	}

	if err := e.accrueReward(params.Index, params.CurrentTime); err != nil {
		return err
	}

	slot.EmissionsPerSecondX64 = params.EmissionsPerSecondX64
	slot.EndTime = params.EndTime
	slot.RewardState = RewardStateOpening
	return nil
}

// refreshRewards is spec.md §4.8 step 1 of the swap loop: every reward
// slot still Initialized whose OpenTime has arrived transitions to
// Opening, and every Opening slot accrues growth up to blockTimestamp,
// transitioning to Ended once its EndTime has passed.
func (e *Engine) refreshRewards(blockTimestamp uint64) error {
	for i := range e.Pool.RewardInfos {
		slot := &e.Pool.RewardInfos[i]
		if slot.RewardState == RewardStateInitialized && blockTimestamp >= slot.OpenTime {
			slot.RewardState = RewardStateOpening
		}
		if slot.RewardState != RewardStateOpening {
			continue
		}
		if err := e.accrueReward(i, blockTimestamp); err != nil {
			return err
		}
		if blockTimestamp >= slot.EndTime {
			slot.RewardState = RewardStateEnded
		}
	}
	return nil
}

// accrueReward advances a reward slot's global growth accumulator for the
// time elapsed since its last update, scaled by the pool's currently
// active liquidity -- the per-block accrual step that in the original
// Raydium program happens implicitly as part of every instruction that
// touches pool state.
func (e *Engine) accrueReward(index int, currentTime uint64) error {
	slot := &e.Pool.RewardInfos[index]
	if currentTime <= slot.LastUpdateTime || e.Pool.Liquidity.Big().Sign() == 0 {
		slot.LastUpdateTime = currentTime
		return nil
	}

	endTime := currentTime
	if slot.EndTime < endTime {
		endTime = slot.EndTime
	}
	if endTime <= slot.LastUpdateTime {
		slot.LastUpdateTime = currentTime
		return nil
	}

	elapsed := cosmath.NewIntFromUint64(endTime - slot.LastUpdateTime)
	emitted := elapsed.Mul(fixedmath.U128ToInt(slot.EmissionsPerSecondX64))
	growthDelta, err := fixedmath.MulDivFloor(emitted, cosmath.NewInt(1), fixedmath.U128ToInt(e.Pool.Liquidity))
	if err != nil {
		return err
	}
	next, err := fixedmath.IntToU128(fixedmath.U128ToInt(slot.RewardGrowthGlobalX64).Add(growthDelta))
	if err != nil {
		return err
	}
	slot.RewardGrowthGlobalX64 = next

	emittedTokens := emitted.Quo(q64Int())
	if emittedTokens.BigInt().IsUint64() {
		slot.RewardTotalEmissioned += emittedTokens.BigInt().Uint64()
	}

	slot.LastUpdateTime = currentTime
	if currentTime >= slot.EndTime {
		slot.RewardState = RewardStateEnded
	}
	return nil
}
