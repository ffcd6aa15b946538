package tickarray

import (
	"testing"

	cosmath "cosmossdk.io/math"
	"lukechampine.com/uint128"
)

func maxLiquidity() uint128.Uint128 {
	return uint128.From64(1 << 62)
}

func TestTickStateUpdateFlipsOnFirstLiquidity(t *testing.T) {
	tick := &TickState{Tick: 60}
	flipped, err := tick.Update(0, cosmath.NewInt(100), uint128.From64(5), uint128.From64(7), [RewardCount]uint128.Uint128{}, false, maxLiquidity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !flipped {
		t.Fatal("expected tick to flip from uninitialized to initialized")
	}
	if !tick.IsInitialized() {
		t.Fatal("expected tick to report initialized")
	}
	if tick.LiquidityNet.Cmp(cosmath.NewInt(100)) != 0 {
		t.Errorf("lower tick liquidity_net = %s, want 100", tick.LiquidityNet.String())
	}
}

func TestTickStateUpdateUpperNegatesDelta(t *testing.T) {
	tick := &TickState{Tick: 120}
	_, err := tick.Update(0, cosmath.NewInt(100), uint128.From64(0), uint128.From64(0), [RewardCount]uint128.Uint128{}, true, maxLiquidity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tick.LiquidityNet.Cmp(cosmath.NewInt(-100)) != 0 {
		t.Errorf("upper tick liquidity_net = %s, want -100", tick.LiquidityNet.String())
	}
}

func TestTickStateSeedsOutsideGrowthBelowCurrent(t *testing.T) {
	global0, global1 := uint128.From64(50), uint128.From64(60)
	tick := &TickState{Tick: -60}
	_, err := tick.Update(0, cosmath.NewInt(10), global0, global1, [RewardCount]uint128.Uint128{}, false, maxLiquidity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tick.FeeGrowthOutside0X64.Cmp(global0) != 0 {
		t.Errorf("expected fee growth outside seeded from global when tick <= current")
	}
}

func TestGetFeeGrowthInsideConservation(t *testing.T) {
	global0, global1 := uint128.From64(1000), uint128.From64(2000)
	lower := &TickState{Tick: -60, FeeGrowthOutside0X64: uint128.From64(100), FeeGrowthOutside1X64: uint128.From64(200)}
	upper := &TickState{Tick: 60, FeeGrowthOutside0X64: uint128.From64(300), FeeGrowthOutside1X64: uint128.From64(400)}

	inside0, inside1 := GetFeeGrowthInside(lower, upper, 0, global0, global1)

	wantInside0 := uint128.From64(1000 - 100 - 300)
	wantInside1 := uint128.From64(2000 - 200 - 400)
	if inside0.Cmp(wantInside0) != 0 {
		t.Errorf("inside0 = %s, want %s", inside0.String(), wantInside0.String())
	}
	if inside1.Cmp(wantInside1) != 0 {
		t.Errorf("inside1 = %s, want %s", inside1.String(), wantInside1.String())
	}
}

func TestStateGetTickStateAndSlotBounds(t *testing.T) {
	arr := &State{StartTickIndex: 0}
	tick, err := arr.GetTickState(60, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tick.Tick != 60 {
		t.Errorf("got tick %d, want 60", tick.Tick)
	}

	if _, err := arr.GetTickState(-10, 10); err == nil {
		t.Fatal("expected error for tick outside array range")
	}
}

func TestStateFirstAndNextInitializedTick(t *testing.T) {
	arr := &State{StartTickIndex: 0}
	tick, err := arr.GetTickState(100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := tick.Update(0, cosmath.NewInt(5), uint128.Zero, uint128.Zero, [RewardCount]uint128.Uint128{}, false, maxLiquidity()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, ok := arr.FirstInitializedTick(0, 10, false)
	if !ok {
		t.Fatal("expected to find initialized tick")
	}
	if found.Tick != 100 {
		t.Errorf("got tick %d, want 100", found.Tick)
	}

	_, ok = arr.NextInitializedTick(100, 10, false)
	if ok {
		t.Fatal("expected no further initialized tick after the only one")
	}
}
