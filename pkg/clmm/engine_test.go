package clmm

import (
	"testing"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/solana-zh/clmm-core/pkg/tickarray"
	"github.com/solana-zh/clmm-core/pkg/tickmath"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	config := &AmmConfig{
		TickSpacing:  10,
		TradeFeeRate: 3000,
	}
	initialPrice, err := tickmath.GetSqrtPriceAtTick(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	engine, err := CreatePool(CreatePoolParams{
		Config:          config,
		TokenMint0:      solana.NewWallet().PublicKey(),
		TokenMint1:      solana.NewWallet().PublicKey(),
		InitialPriceX64: initialPrice,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return engine
}

func loadArraysAround(t *testing.T, e *Engine, tick int32) {
	t.Helper()
	width := int32(tickarray.Size) * int32(e.Pool.TickSpacing)
	start := (tick / width) * width
	for _, s := range []int32{start - width, start, start + width} {
		e.LoadTickArray(&tickarray.State{StartTickIndex: s})
	}
}

func TestCreatePoolRejectsInvalidConfig(t *testing.T) {
	config := &AmmConfig{TickSpacing: 0}
	price, _ := tickmath.GetSqrtPriceAtTick(0)
	if _, err := CreatePool(CreatePoolParams{Config: config, InitialPriceX64: price}); err == nil {
		t.Fatal("expected error for zero tick spacing")
	}
}

func TestOpenPositionSizesLiquidityFromAmounts(t *testing.T) {
	e := newTestEngine(t)
	loadArraysAround(t, e, 0)

	result, err := e.OpenPosition(OpenPositionParams{
		TickLowerIndex: -1000,
		TickUpperIndex: 1000,
		Amount0Desired: cosmath.NewInt(1_000_000),
		Amount1Desired: cosmath.NewInt(1_000_000),
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Liquidity.IsPositive() {
		t.Fatalf("expected positive liquidity, got %s", result.Liquidity.String())
	}
	if e.Pool.Liquidity.Big().Sign() <= 0 {
		t.Fatal("expected pool active liquidity to increase since current tick is within range")
	}
}

func TestOpenPositionRejectsInvertedRange(t *testing.T) {
	e := newTestEngine(t)
	loadArraysAround(t, e, 0)

	_, err := e.OpenPosition(OpenPositionParams{
		TickLowerIndex: 1000,
		TickUpperIndex: -1000,
		Amount0Desired: cosmath.NewInt(1_000_000),
		Amount1Desired: cosmath.NewInt(1_000_000),
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	})
	if err == nil {
		t.Fatal("expected error for inverted tick range")
	}
}

func TestSwapMovesPriceZeroForOne(t *testing.T) {
	e := newTestEngine(t)
	loadArraysAround(t, e, 0)

	_, err := e.OpenPosition(OpenPositionParams{
		TickLowerIndex: -2000,
		TickUpperIndex: 2000,
		Amount0Desired: cosmath.NewInt(10_000_000),
		Amount1Desired: cosmath.NewInt(10_000_000),
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	})
	if err != nil {
		t.Fatalf("unexpected error opening position: %v", err)
	}

	startPrice := e.Pool.SqrtPriceX64
	limit := uint128.From64(tickmath.MinSqrtPriceX64.Big().Uint64() + 1)

	result, err := e.Swap(SwapParams{
		AmountSpecified:      cosmath.NewInt(1000),
		ZeroForOne:           true,
		IsBaseInput:          true,
		SqrtPriceLimitX64:    limit,
		OtherAmountThreshold: cosmath.ZeroInt(),
		BlockTimestamp:       1_000,
	})
	if err != nil {
		t.Fatalf("unexpected error swapping: %v", err)
	}
	if result.NewSqrtPriceX64.Big().Cmp(startPrice.Big()) >= 0 {
		t.Fatalf("expected price to drop on zero_for_one swap, before=%s after=%s", startPrice.Big().String(), result.NewSqrtPriceX64.Big().String())
	}
	if !result.AmountIn.IsPositive() {
		t.Fatalf("expected positive amount in, got %s", result.AmountIn.String())
	}
}

func TestSwapRejectsZeroAmount(t *testing.T) {
	e := newTestEngine(t)
	loadArraysAround(t, e, 0)
	limit := tickmath.MinSqrtPriceX64
	params := SwapParams{
		AmountSpecified:      cosmath.ZeroInt(),
		ZeroForOne:           true,
		IsBaseInput:          true,
		SqrtPriceLimitX64:    limit,
		OtherAmountThreshold: cosmath.ZeroInt(),
		BlockTimestamp:       1,
	}
	if _, err := e.Swap(params); err != ErrZeroAmount {
		t.Fatalf("got %v, want ErrZeroAmount", err)
	}
}

func TestSwapRejectsSlippageBeyondThreshold(t *testing.T) {
	e := newTestEngine(t)
	loadArraysAround(t, e, 0)

	if _, err := e.OpenPosition(OpenPositionParams{
		TickLowerIndex: -2000,
		TickUpperIndex: 2000,
		Amount0Desired: cosmath.NewInt(10_000_000),
		Amount1Desired: cosmath.NewInt(10_000_000),
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	}); err != nil {
		t.Fatalf("unexpected error opening position: %v", err)
	}

	limit := uint128.From64(tickmath.MinSqrtPriceX64.Big().Uint64() + 1)
	params := SwapParams{
		AmountSpecified:      cosmath.NewInt(1000),
		ZeroForOne:           true,
		IsBaseInput:          true,
		SqrtPriceLimitX64:    limit,
		OtherAmountThreshold: cosmath.NewInt(1_000_000_000),
		BlockTimestamp:       1_000,
	}
	if _, err := e.Swap(params); err != ErrSlippageExceeded {
		t.Fatalf("got %v, want ErrSlippageExceeded", err)
	}
}

func TestSwapWritesOracleObservationAndFeeCounters(t *testing.T) {
	e := newTestEngine(t)
	loadArraysAround(t, e, 0)

	if _, err := e.OpenPosition(OpenPositionParams{
		TickLowerIndex: -2000,
		TickUpperIndex: 2000,
		Amount0Desired: cosmath.NewInt(10_000_000),
		Amount1Desired: cosmath.NewInt(10_000_000),
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	}); err != nil {
		t.Fatalf("unexpected error opening position: %v", err)
	}

	limit := uint128.From64(tickmath.MinSqrtPriceX64.Big().Uint64() + 1)
	params := SwapParams{
		AmountSpecified:      cosmath.NewInt(10_000),
		ZeroForOne:           true,
		IsBaseInput:          true,
		SqrtPriceLimitX64:    limit,
		OtherAmountThreshold: cosmath.ZeroInt(),
		BlockTimestamp:       5_000,
	}
	if _, err := e.Swap(params); err != nil {
		t.Fatalf("unexpected error swapping: %v", err)
	}

	latest, err := e.Oracle.Latest()
	if err != nil {
		t.Fatalf("expected an oracle observation after swap, got error: %v", err)
	}
	if latest.BlockTimestamp != 5_000 {
		t.Errorf("got observation timestamp %d, want 5000", latest.BlockTimestamp)
	}
	if e.Pool.TotalFeesToken0 == 0 {
		t.Error("expected TotalFeesToken0 to be nonzero after a zero_for_one swap")
	}
	if e.Pool.SwapInAmountToken0.Big().Sign() == 0 {
		t.Error("expected SwapInAmountToken0 to record the swap's input")
	}
}

func TestIncreaseLiquidityAddsToExistingPosition(t *testing.T) {
	e := newTestEngine(t)
	loadArraysAround(t, e, 0)

	opened, err := e.OpenPosition(OpenPositionParams{
		TickLowerIndex: -1000,
		TickUpperIndex: 1000,
		Amount0Desired: cosmath.NewInt(1_000_000),
		Amount1Desired: cosmath.NewInt(1_000_000),
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	})
	if err != nil {
		t.Fatalf("unexpected error opening position: %v", err)
	}

	poolLiquidityBefore := e.Pool.Liquidity

	result, err := e.IncreaseLiquidity(IncreaseLiquidityParams{
		Personal:       opened.Personal,
		LiquidityDelta: opened.Liquidity,
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	})
	if err != nil {
		t.Fatalf("unexpected error increasing liquidity: %v", err)
	}
	if !result.Amount0.IsPositive() || !result.Amount1.IsPositive() {
		t.Fatalf("expected positive amounts, got %s/%s", result.Amount0.String(), result.Amount1.String())
	}

	wantLiquidity := opened.Liquidity.Add(opened.Liquidity)
	gotLiquidity := cosmath.NewIntFromBigInt(opened.Personal.Liquidity.Big())
	if !gotLiquidity.Equal(wantLiquidity) {
		t.Fatalf("got personal liquidity %s, want %s", gotLiquidity.String(), wantLiquidity.String())
	}
	if e.Pool.Liquidity.Big().Cmp(poolLiquidityBefore.Big()) <= 0 {
		t.Fatal("expected pool active liquidity to grow after increase")
	}
}

func TestDecreaseLiquidityRemovesAndCollectsFees(t *testing.T) {
	e := newTestEngine(t)
	loadArraysAround(t, e, 0)

	opened, err := e.OpenPosition(OpenPositionParams{
		TickLowerIndex: -2000,
		TickUpperIndex: 2000,
		Amount0Desired: cosmath.NewInt(10_000_000),
		Amount1Desired: cosmath.NewInt(10_000_000),
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	})
	if err != nil {
		t.Fatalf("unexpected error opening position: %v", err)
	}

	limit := uint128.From64(tickmath.MinSqrtPriceX64.Big().Uint64() + 1)
	if _, err := e.Swap(SwapParams{
		AmountSpecified:      cosmath.NewInt(10_000),
		ZeroForOne:           true,
		IsBaseInput:          true,
		SqrtPriceLimitX64:    limit,
		OtherAmountThreshold: cosmath.ZeroInt(),
		BlockTimestamp:       1_000,
	}); err != nil {
		t.Fatalf("unexpected error swapping to accrue fees: %v", err)
	}

	result, err := e.DecreaseLiquidity(DecreaseLiquidityParams{
		Personal:       opened.Personal,
		LiquidityDelta: opened.Liquidity,
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	})
	if err != nil {
		t.Fatalf("unexpected error decreasing liquidity: %v", err)
	}
	if !result.Amount0.IsPositive() && !result.Amount1.IsPositive() {
		t.Fatalf("expected at least one positive withdrawn amount, got %s/%s", result.Amount0.String(), result.Amount1.String())
	}
	if opened.Personal.Liquidity.Big().Sign() != 0 {
		t.Fatalf("expected personal position liquidity to reach zero, got %s", opened.Personal.Liquidity.Big().String())
	}
	if !result.FeesOwed0.IsPositive() {
		t.Fatalf("expected token0 fees collected from the zeroForOne swap, got %s", result.FeesOwed0.String())
	}
}

func TestDecreaseLiquidityRejectsMoreThanHeld(t *testing.T) {
	e := newTestEngine(t)
	loadArraysAround(t, e, 0)

	opened, err := e.OpenPosition(OpenPositionParams{
		TickLowerIndex: -1000,
		TickUpperIndex: 1000,
		Amount0Desired: cosmath.NewInt(1_000_000),
		Amount1Desired: cosmath.NewInt(1_000_000),
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	})
	if err != nil {
		t.Fatalf("unexpected error opening position: %v", err)
	}

	_, err = e.DecreaseLiquidity(DecreaseLiquidityParams{
		Personal:       opened.Personal,
		LiquidityDelta: opened.Liquidity.Add(cosmath.NewInt(1)),
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	})
	if err != ErrInsufficientLiquidity {
		t.Fatalf("got %v, want ErrInsufficientLiquidity", err)
	}
}

func TestClosePositionClearsAnEmptyRecord(t *testing.T) {
	e := newTestEngine(t)
	loadArraysAround(t, e, 0)

	opened, err := e.OpenPosition(OpenPositionParams{
		TickLowerIndex: -1000,
		TickUpperIndex: 1000,
		Amount0Desired: cosmath.NewInt(1_000_000),
		Amount1Desired: cosmath.NewInt(1_000_000),
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	})
	if err != nil {
		t.Fatalf("unexpected error opening position: %v", err)
	}

	if _, err := e.DecreaseLiquidity(DecreaseLiquidityParams{
		Personal:       opened.Personal,
		LiquidityDelta: opened.Liquidity,
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	}); err != nil {
		t.Fatalf("unexpected error withdrawing all liquidity: %v", err)
	}

	if err := e.ClosePosition(opened.Personal); err != nil {
		t.Fatalf("unexpected error closing position: %v", err)
	}
	if opened.Personal.TickLowerIndex != 0 || opened.Personal.TickUpperIndex != 0 {
		t.Fatal("expected ClosePosition to zero the personal position record")
	}
}

func TestClosePositionRejectsRemainingLiquidity(t *testing.T) {
	e := newTestEngine(t)
	loadArraysAround(t, e, 0)

	opened, err := e.OpenPosition(OpenPositionParams{
		TickLowerIndex: -1000,
		TickUpperIndex: 1000,
		Amount0Desired: cosmath.NewInt(1_000_000),
		Amount1Desired: cosmath.NewInt(1_000_000),
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	})
	if err != nil {
		t.Fatalf("unexpected error opening position: %v", err)
	}

	if err := e.ClosePosition(opened.Personal); err != ErrInsufficientLiquidity {
		t.Fatalf("got %v, want ErrInsufficientLiquidity", err)
	}
}

func TestInitializeRewardSetsUpSlot(t *testing.T) {
	e := newTestEngine(t)
	mint := solana.NewWallet().PublicKey()
	vault := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()

	err := e.InitializeReward(InitializeRewardParams{
		Index:                 0,
		OpenTime:              1_000,
		EndTime:               2_000,
		EmissionsPerSecondX64: uint128.From64(1 << 32),
		TokenMint:             mint,
		TokenVault:            vault,
		Authority:             authority,
	})
	if err != nil {
		t.Fatalf("unexpected error initializing reward: %v", err)
	}
	if e.Pool.RewardInfos[0].RewardState != RewardStateInitialized {
		t.Fatalf("got state %v, want RewardStateInitialized", e.Pool.RewardInfos[0].RewardState)
	}

	if err := e.InitializeReward(InitializeRewardParams{Index: 0, OpenTime: 1_000, EndTime: 2_000}); err != ErrRewardAlreadyInitialized {
		t.Fatalf("got %v, want ErrRewardAlreadyInitialized on a second call", err)
	}
}

func TestSetRewardParamsAccruesThenUpdatesRate(t *testing.T) {
	e := newTestEngine(t)
	loadArraysAround(t, e, 0)
	if _, err := e.OpenPosition(OpenPositionParams{
		TickLowerIndex: -2000,
		TickUpperIndex: 2000,
		Amount0Desired: cosmath.NewInt(10_000_000),
		Amount1Desired: cosmath.NewInt(10_000_000),
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	}); err != nil {
		t.Fatalf("unexpected error opening position: %v", err)
	}

	if err := e.InitializeReward(InitializeRewardParams{
		Index:                 0,
		OpenTime:              0,
		EndTime:               10_000,
		EmissionsPerSecondX64: uint128.From64(1 << 40),
	}); err != nil {
		t.Fatalf("unexpected error initializing reward: %v", err)
	}

	if err := e.SetRewardParams(SetRewardParamsParams{
		Index:                 0,
		EmissionsPerSecondX64: uint128.From64(1 << 41),
		EndTime:               20_000,
		CurrentTime:           5_000,
	}); err != nil {
		t.Fatalf("unexpected error setting reward params: %v", err)
	}

	slot := e.Pool.RewardInfos[0]
	if slot.RewardState != RewardStateOpening {
		t.Fatalf("got state %v, want RewardStateOpening", slot.RewardState)
	}
	if slot.RewardGrowthGlobalX64.Big().Sign() == 0 {
		t.Error("expected reward growth to have accrued before the rate changed")
	}
	if slot.EndTime != 20_000 {
		t.Errorf("got EndTime %d, want 20000", slot.EndTime)
	}
}
