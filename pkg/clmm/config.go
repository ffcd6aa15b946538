package clmm

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/solana-zh/clmm-core/pkg/swapmath"
)

// FeeRateDenominator is the fixed denominator every fee rate is expressed
// over, per spec.md §6.
const FeeRateDenominator = swapmath.FeeRateDenominator

// AmmConfig is a fee tier: tick spacing plus the trade/protocol/fund fee
// split applied on every swap through pools created against it. Decoded
// the same way the teacher's AmmConfig is decoded in
// pkg/protocol/raydium_clmm.go, skipping the 8-byte Anchor discriminator.
type AmmConfig struct {
	Bump            uint8
	Index           uint16
	Owner           solana.PublicKey
	ProtocolFeeRate uint32
	TradeFeeRate    uint32
	TickSpacing     uint16
	FundFeeRate     uint32
	PaddingU32      uint32
	FundOwner       solana.PublicKey
	Padding         [3]uint64
}

// Validate checks that every fee rate fits within FeeRateDenominator and
// tick spacing is positive, rejecting a malformed configuration before
// any pool is created against it. Configuration category per spec.md §7.
func (c *AmmConfig) Validate() error {
	if c.TickSpacing == 0 {
		return ErrInvalidTickSpacing
	}
	if c.TradeFeeRate > FeeRateDenominator || c.ProtocolFeeRate > FeeRateDenominator || c.FundFeeRate > FeeRateDenominator {
		return ErrInvalidFeeRate
	}
	if uint64(c.ProtocolFeeRate)+uint64(c.FundFeeRate) > FeeRateDenominator {
		return ErrInvalidFeeRate
	}
	return nil
}

// Decode parses an AmmConfig from its persisted account bytes, skipping
// the leading 8-byte discriminator the way the teacher's
// pkg/protocol/raydium_clmm.go parseAmmConfig does.
func (c *AmmConfig) Decode(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("clmm: amm config data too short: %d bytes", len(data))
	}
	decoder := bin.NewBinDecoder(data[8:])
	return decoder.Decode(c)
}

// RewardState is RewardInfo's lifecycle state machine, per spec.md §9:
// a reward slot starts Uninitialized, moves to Initialized once its
// emission parameters are set, then Opening once funding begins, and
// Ended once its time window elapses.
type RewardState uint8

const (
	RewardStateUninitialized RewardState = iota
	RewardStateInitialized
	RewardStateOpening
	RewardStateEnded
)

// RewardInfo tracks one of a pool's up to three simultaneous reward
// emission streams.
type RewardInfo struct {
	RewardState           RewardState
	OpenTime              uint64
	EndTime               uint64
	LastUpdateTime        uint64
	EmissionsPerSecondX64 uint128.Uint128
	RewardTotalEmissioned uint64
	RewardClaimed         uint64
	TokenMint             solana.PublicKey
	TokenVault            solana.PublicKey
	Authority             solana.PublicKey
	RewardGrowthGlobalX64 uint128.Uint128
}

// IsInitialized reports whether this reward slot has emission parameters
// set, gating SetRewardParams/reward accrual per spec.md §4.9.
func (r *RewardInfo) IsInitialized() bool {
	return r.RewardState != RewardStateUninitialized
}
