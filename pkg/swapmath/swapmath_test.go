package swapmath

import (
	"testing"

	cosmath "cosmossdk.io/math"

	"github.com/solana-zh/clmm-core/pkg/tickmath"
)

func TestComputeSwapStepExactInZeroForOne(t *testing.T) {
	current, err := tickmath.GetSqrtPriceAtTick(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	target, err := tickmath.GetSqrtPriceAtTick(-1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := ComputeSwapStep(current, target, cosmath.NewInt(1_000_000_000), cosmath.NewInt(1000), 3000, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.AmountIn.IsPositive() {
		t.Errorf("expected positive amount in, got %s", result.AmountIn.String())
	}
	if result.FeeAmount.IsNegative() {
		t.Errorf("fee should not be negative, got %s", result.FeeAmount.String())
	}
	if result.NextSqrtPriceX64.Big().Cmp(current.Big()) > 0 {
		t.Errorf("price should not increase on a zero-for-one swap")
	}
}

func TestComputeSwapStepRejectsZeroLiquidity(t *testing.T) {
	current, _ := tickmath.GetSqrtPriceAtTick(0)
	target, _ := tickmath.GetSqrtPriceAtTick(-1000)
	if _, err := ComputeSwapStep(current, target, cosmath.ZeroInt(), cosmath.NewInt(1000), 3000, true); err != ErrZeroLiquidity {
		t.Fatalf("got %v, want ErrZeroLiquidity", err)
	}
}

func TestComputeSwapStepOneForZero(t *testing.T) {
	current, err := tickmath.GetSqrtPriceAtTick(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	target, err := tickmath.GetSqrtPriceAtTick(1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := ComputeSwapStep(current, target, cosmath.NewInt(1_000_000_000), cosmath.NewInt(1000), 3000, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NextSqrtPriceX64.Big().Cmp(current.Big()) < 0 {
		t.Errorf("price should not decrease on a one-for-zero swap")
	}
}
