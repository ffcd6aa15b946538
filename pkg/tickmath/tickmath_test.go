package tickmath

import (
	"math/big"
	"testing"
)

func TestGetSqrtPriceAtTickBounds(t *testing.T) {
	t.Run("tick zero is Q64.64 one", func(t *testing.T) {
		got, err := GetSqrtPriceAtTick(0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := new(big.Int).Lsh(big.NewInt(1), 64)
		if got.Big().Cmp(want) != 0 {
			t.Fatalf("expected sqrt price 2^64 at tick 0, got %s", got.Big().String())
		}
	})

	t.Run("out of range tick rejected", func(t *testing.T) {
		if _, err := GetSqrtPriceAtTick(MaxTick + 1); err == nil {
			t.Fatal("expected error for tick beyond MaxTick")
		}
		if _, err := GetSqrtPriceAtTick(MinTick - 1); err == nil {
			t.Fatal("expected error for tick below MinTick")
		}
	})

	t.Run("min and max tick produce min and max sqrt price", func(t *testing.T) {
		min, err := GetSqrtPriceAtTick(MinTick)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if min.Big().Cmp(MinSqrtPriceX64.Big()) != 0 {
			t.Errorf("GetSqrtPriceAtTick(MinTick) = %s, want %s", min.Big().String(), MinSqrtPriceX64.Big().String())
		}

		max, err := GetSqrtPriceAtTick(MaxTick)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if max.Big().Cmp(MaxSqrtPriceX64.Big()) != 0 {
			t.Errorf("GetSqrtPriceAtTick(MaxTick) = %s, want %s", max.Big().String(), MaxSqrtPriceX64.Big().String())
		}
	})
}

func TestTickSqrtPriceBijectionRoundTrips(t *testing.T) {
	ticks := []int32{-443636, -200000, -1, 0, 1, 200000, 443636}
	for _, tick := range ticks {
		sqrtPrice, err := GetSqrtPriceAtTick(tick)
		if err != nil {
			t.Fatalf("GetSqrtPriceAtTick(%d): %v", tick, err)
		}
		got, err := GetTickAtSqrtPrice(sqrtPrice)
		if err != nil {
			t.Fatalf("GetTickAtSqrtPrice round trip for tick %d: %v", tick, err)
		}
		if got != tick {
			t.Errorf("round trip tick %d produced %d", tick, got)
		}
	}
}

func TestGetSqrtPriceAtTickMonotonic(t *testing.T) {
	prev, err := GetSqrtPriceAtTick(-100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	next, err := GetSqrtPriceAtTick(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prev.Big().Cmp(next.Big()) >= 0 {
		t.Fatalf("expected sqrt price to increase with tick: %s >= %s", prev.Big().String(), next.Big().String())
	}
}

func TestGetTickAtSqrtPriceRejectsOutOfRange(t *testing.T) {
	atMin := MinSqrtPriceX64
	_, err := GetTickAtSqrtPrice(atMin)
	if err != nil {
		t.Fatalf("MinSqrtPriceX64 itself should be valid: %v", err)
	}
	if _, err := GetTickAtSqrtPrice(MinSqrtPriceX64.Sub64(1)); err == nil {
		t.Fatal("expected error for sqrt price below MinSqrtPriceX64")
	}
	if _, err := GetTickAtSqrtPrice(MaxSqrtPriceX64.Add64(1)); err == nil {
		t.Fatal("expected error for sqrt price above MaxSqrtPriceX64")
	}
}
