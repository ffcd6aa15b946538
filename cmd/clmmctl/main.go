// Command clmmctl drives the clmm engine end to end against an
// in-memory pool: create a pool, open a position, swap against it,
// increase and decrease liquidity, and close the position once it is
// drained. It exercises the pool, position and swap operations of the
// engine API (the reward operations are not driven here) the way the teacher's main.go exercises a live swap against Raydium --
// logging each step with the standard log package, no structured fields.
package main

import (
	"context"
	"log"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"lukechampine.com/uint128"

	"github.com/solana-zh/clmm-core/pkg/clmm"
	"github.com/solana-zh/clmm-core/pkg/tickarray"
	"github.com/solana-zh/clmm-core/pkg/tickmath"
)

var (
	demoTickSpacing  uint16 = 10
	demoTradeFeeRate uint32 = 3000
	demoTickLower    int32  = -2000
	demoTickUpper    int32  = 2000
	demoOpsPerSecond        = 5.0
	demoBurst               = 2
)

func main() {
	runID := uuid.New()
	log.Printf("clmmctl: starting demo run %s", runID)

	p := newPacer(demoOpsPerSecond, demoBurst)
	ctx := context.Background()

	engine, err := setupPool()
	if err != nil {
		log.Fatalf("clmmctl: create pool failed: %v", err)
	}
	log.Printf("clmmctl: pool created at tick %d, sqrt price %s", engine.Pool.TickCurrent, engine.Pool.SqrtPriceX64.String())

	if err := p.wait(ctx); err != nil {
		log.Fatalf("clmmctl: pacer wait failed: %v", err)
	}

	openResult, err := engine.OpenPosition(clmm.OpenPositionParams{
		TickLowerIndex: demoTickLower,
		TickUpperIndex: demoTickUpper,
		Amount0Desired: cosmath.NewInt(10_000_000),
		Amount1Desired: cosmath.NewInt(10_000_000),
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	})
	if err != nil {
		log.Fatalf("clmmctl: open position failed: %v", err)
	}
	positionID := uuid.New()
	log.Printf("clmmctl: opened position %s with liquidity %s (amount0=%s amount1=%s)",
		positionID, openResult.Liquidity.String(), openResult.Amount0.String(), openResult.Amount1.String())

	if err := p.waitWithTimeout(2 * time.Second); err != nil {
		log.Fatalf("clmmctl: pacer wait failed: %v", err)
	}

	swapLimit := uint128.From64(tickmath.MinSqrtPriceX64.Big().Uint64() + 1)
	swapResult, err := engine.Swap(clmm.SwapParams{
		AmountSpecified:      cosmath.NewInt(50_000),
		ZeroForOne:           true,
		IsBaseInput:          true,
		SqrtPriceLimitX64:    swapLimit,
		OtherAmountThreshold: cosmath.ZeroInt(),
		BlockTimestamp:       uint64(time.Now().Unix()),
	})
	if err != nil {
		log.Fatalf("clmmctl: swap failed: %v", err)
	}
	log.Printf("clmmctl: swapped amountIn=%s amountOut=%s fee=%s, crossed %d ticks, new tick %d",
		swapResult.AmountIn.String(), swapResult.AmountOut.String(), swapResult.FeeAmount.String(), swapResult.TicksCrossed, swapResult.NewTickCurrent)

	if err := p.wait(ctx); err != nil {
		log.Fatalf("clmmctl: pacer wait failed: %v", err)
	}

	increaseResult, err := engine.IncreaseLiquidity(clmm.IncreaseLiquidityParams{
		Personal:       openResult.Personal,
		LiquidityDelta: openResult.Liquidity,
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	})
	if err != nil {
		log.Fatalf("clmmctl: increase liquidity failed: %v", err)
	}
	log.Printf("clmmctl: increased liquidity, amount0=%s amount1=%s", increaseResult.Amount0.String(), increaseResult.Amount1.String())

	if err := p.wait(ctx); err != nil {
		log.Fatalf("clmmctl: pacer wait failed: %v", err)
	}

	fullWithdraw := cosmath.NewIntFromBigInt(openResult.Personal.Liquidity.Big())
	decreaseResult, err := engine.DecreaseLiquidity(clmm.DecreaseLiquidityParams{
		Personal:       openResult.Personal,
		LiquidityDelta: fullWithdraw,
		Amount0Min:     cosmath.ZeroInt(),
		Amount1Min:     cosmath.ZeroInt(),
	})
	if err != nil {
		log.Fatalf("clmmctl: decrease liquidity failed: %v", err)
	}
	log.Printf("clmmctl: decreased liquidity, amount0=%s amount1=%s feesOwed0=%s feesOwed1=%s",
		decreaseResult.Amount0.String(), decreaseResult.Amount1.String(), decreaseResult.FeesOwed0.String(), decreaseResult.FeesOwed1.String())

	if err := engine.ClosePosition(openResult.Personal); err != nil {
		log.Fatalf("clmmctl: close position failed: %v", err)
	}
	log.Printf("clmmctl: closed position %s", positionID)
}

func setupPool() (*clmm.Engine, error) {
	config := &clmm.AmmConfig{
		TickSpacing:  demoTickSpacing,
		TradeFeeRate: demoTradeFeeRate,
	}
	initialPrice, err := tickmath.GetSqrtPriceAtTick(0)
	if err != nil {
		return nil, err
	}
	engine, err := clmm.CreatePool(clmm.CreatePoolParams{
		Config:          config,
		TokenMint0:      solana.NewWallet().PublicKey(),
		TokenMint1:      solana.NewWallet().PublicKey(),
		InitialPriceX64: initialPrice,
	})
	if err != nil {
		return nil, err
	}

	width := int32(tickarray.Size) * int32(demoTickSpacing)
	for _, start := range []int32{-2 * width, -width, 0, width, 2 * width} {
		engine.LoadTickArray(&tickarray.State{StartTickIndex: start})
	}
	return engine, nil
}
