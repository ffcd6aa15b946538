package liquiditymath

import (
	"testing"

	cosmath "cosmossdk.io/math"

	"github.com/solana-zh/clmm-core/pkg/tickmath"
)

func TestGetLiquidityFromAmountsPicksLimitingSide(t *testing.T) {
	lower, err := tickmath.GetSqrtPriceAtTick(-1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	upper, err := tickmath.GetSqrtPriceAtTick(1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	current, err := tickmath.GetSqrtPriceAtTick(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	liquidity, err := GetLiquidityFromAmounts(current, lower, upper, cosmath.NewInt(1_000_000), cosmath.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !liquidity.IsPositive() {
		t.Fatalf("expected positive liquidity, got %s", liquidity.String())
	}
}

func TestGetDeltaAmountsSignedRegimes(t *testing.T) {
	lowerTick, upperTick := int32(-1000), int32(1000)
	sqrtLower, _ := tickmath.GetSqrtPriceAtTick(lowerTick)
	sqrtUpper, _ := tickmath.GetSqrtPriceAtTick(upperTick)

	t.Run("current below range gives token0 only", func(t *testing.T) {
		sqrtCurrent, _ := tickmath.GetSqrtPriceAtTick(-2000)
		a0, a1, err := GetDeltaAmountsSigned(-2000, lowerTick, upperTick, sqrtCurrent, sqrtLower, sqrtUpper, cosmath.NewInt(1000))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a0.LTE(cosmath.ZeroInt()) {
			t.Errorf("expected positive amount0, got %s", a0.String())
		}
		if !a1.IsZero() {
			t.Errorf("expected zero amount1, got %s", a1.String())
		}
	})

	t.Run("current above range gives token1 only", func(t *testing.T) {
		sqrtCurrent, _ := tickmath.GetSqrtPriceAtTick(2000)
		a0, a1, err := GetDeltaAmountsSigned(2000, lowerTick, upperTick, sqrtCurrent, sqrtLower, sqrtUpper, cosmath.NewInt(1000))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !a0.IsZero() {
			t.Errorf("expected zero amount0, got %s", a0.String())
		}
		if a1.LTE(cosmath.ZeroInt()) {
			t.Errorf("expected positive amount1, got %s", a1.String())
		}
	})

	t.Run("current inside range gives both tokens", func(t *testing.T) {
		sqrtCurrent, _ := tickmath.GetSqrtPriceAtTick(0)
		a0, a1, err := GetDeltaAmountsSigned(0, lowerTick, upperTick, sqrtCurrent, sqrtLower, sqrtUpper, cosmath.NewInt(1000))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a0.LTE(cosmath.ZeroInt()) || a1.LTE(cosmath.ZeroInt()) {
			t.Errorf("expected both amounts positive, got a0=%s a1=%s", a0.String(), a1.String())
		}
	})

	t.Run("invalid range rejected", func(t *testing.T) {
		sqrtCurrent, _ := tickmath.GetSqrtPriceAtTick(0)
		if _, _, err := GetDeltaAmountsSigned(0, upperTick, lowerTick, sqrtCurrent, sqrtUpper, sqrtLower, cosmath.NewInt(1000)); err == nil {
			t.Fatal("expected error for lower >= upper")
		}
	})
}
