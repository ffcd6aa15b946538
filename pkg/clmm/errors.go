package clmm

import (
	"errors"

	"github.com/solana-zh/clmm-core/pkg/fixedmath"
)

// Error categories mirror spec.md §7's taxonomy: InputValidation errors
// reject malformed caller input before any state is touched; Accounting
// errors signal an arithmetic invariant would be violated; Gating errors
// block an operation on a precondition about pool/tick-array state;
// Configuration errors reject an AmmConfig or fee-tier value.

var (
	// ErrInvalidTickRange rejects a position whose lower tick is not
	// strictly below its upper tick, or a swap price limit on the wrong
	// side of the current price or outside the sqrt-price bounds; ticks
	// not aligned to the pool's tick spacing are reported as
	// tickarray.ErrTickBoundary instead. InputValidation.
	ErrInvalidTickRange = errors.New("clmm: invalid tick range")

	// ErrZeroAmount rejects an operation asked to move zero of every
	// token, liquidity, or reward. InputValidation.
	ErrZeroAmount = errors.New("clmm: zero amount")

	// ErrInvalidRewardIndex rejects a reward index outside [0, RewardCount).
	// InputValidation.
	ErrInvalidRewardIndex = errors.New("clmm: invalid reward index")

	// ErrSlippageExceeded is returned when a swap or liquidity operation's
	// computed result falls outside the caller's stated amount bound.
	// InputValidation.
	ErrSlippageExceeded = errors.New("clmm: slippage tolerance exceeded")

	// ErrLiquidityOverflow and ErrLiquidityUnderflow re-surface
	// fixedmath's range checks at the engine boundary. Accounting.
	ErrLiquidityOverflow  = fixedmath.ErrLiquidityOverflow
	ErrLiquidityUnderflow = fixedmath.ErrLiquidityUnderflow

	// ErrInsufficientLiquidity is returned when a decrease asks for more
	// liquidity than the position holds, or when a close finds liquidity,
	// fees or rewards still owed on the position. Accounting.
	ErrInsufficientLiquidity = errors.New("clmm: insufficient liquidity")

	// ErrInsufficientTickArrays is returned when a swap needs to cross
	// into a tick-array range the caller did not load, per spec.md §5's
	// static iteration bound. Gating.
	ErrInsufficientTickArrays = errors.New("clmm: insufficient tick arrays loaded for swap")

	// ErrTooManyTickCrossings is returned when a swap would cross more
	// than maxSwapLoopIterations initialized ticks, the safety bound
	// SPEC_FULL.md adds per spec.md §9's Open Question. Gating.
	ErrTooManyTickCrossings = errors.New("clmm: swap crossed too many ticks")

	// ErrPoolNotInitialized names the not-yet-initialized pool condition;
	// no engine operation currently returns it (disabled operations are
	// reported as ErrPoolDisabled). Gating.
	ErrPoolNotInitialized = errors.New("clmm: pool not initialized")

	// ErrPoolDisabled is returned when an operation is attempted against
	// a pool whose Status bit disables it. Gating.
	ErrPoolDisabled = errors.New("clmm: pool operation disabled by status")

	// ErrRewardNotInitialized is returned when a reward operation targets
	// an index whose RewardInfo has not completed its setup state
	// transition. Gating.
	ErrRewardNotInitialized = errors.New("clmm: reward slot not initialized")

	// ErrRewardAlreadyInitialized is returned when InitializeReward targets
	// a slot that has already left the Uninitialized state. Gating.
	ErrRewardAlreadyInitialized = errors.New("clmm: reward slot already initialized")

	// ErrInvalidFeeRate rejects an AmmConfig whose trade/protocol/fund fee
	// rate does not fit within FeeRateDenominator. Configuration.
	ErrInvalidFeeRate = errors.New("clmm: invalid fee rate")

	// ErrInvalidTickSpacing rejects a zero or negative tick spacing.
	// Configuration.
	ErrInvalidTickSpacing = errors.New("clmm: invalid tick spacing")
)
