package position

import (
	"testing"

	cosmath "cosmossdk.io/math"
	"lukechampine.com/uint128"

	"github.com/solana-zh/clmm-core/pkg/tickarray"
)

func TestProtocolPositionAccruesFeesBeforeLiquidityChange(t *testing.T) {
	p := &ProtocolPositionState{Liquidity: uint128.From64(1000)}
	if err := p.UpdateProtocol(cosmath.ZeroInt(), uint128.From64(1<<60), uint128.From64(0),[tickarray.RewardCount]uint128.Uint128{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TokenFeesOwed0.Big().Sign() <= 0 {
		t.Fatalf("expected accrued fees after growth increase, got %s", p.TokenFeesOwed0.Big().String())
	}
}

func TestPersonalSettlementMatchesProtocolSnapshot(t *testing.T) {
	protocol := &ProtocolPositionState{Liquidity: uint128.From64(1000)}
	if err := protocol.UpdateProtocol(cosmath.NewInt(1000), uint128.From64(0), uint128.From64(0), [tickarray.RewardCount]uint128.Uint128{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	personal := &PersonalPositionState{}
	if err := personal.SettlePersonal(protocol, cosmath.NewInt(1000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if personal.Liquidity.Cmp(uint128.From64(1000)) != 0 {
		t.Errorf("got liquidity %s, want 1000", personal.Liquidity.String())
	}
	if personal.FeeGrowthInside0LastX64.Cmp(protocol.FeeGrowthInside0LastX64) != 0 {
		t.Errorf("personal snapshot should match protocol snapshot after settlement")
	}
}

func TestSettleDecreaseZeroesBothFeeCounters(t *testing.T) {
	personal := &PersonalPositionState{
		TokenFeesOwed0: uint128.From64(50),
		TokenFeesOwed1: uint128.From64(70),
	}
	fees0, fees1, _ := personal.SettleDecrease()
	if fees0.Cmp(uint128.From64(50)) != 0 || fees1.Cmp(uint128.From64(70)) != 0 {
		t.Fatalf("expected captured amounts 50/70, got %s/%s", fees0.String(), fees1.String())
	}
	if personal.TokenFeesOwed0.Big().Sign() != 0 || personal.TokenFeesOwed1.Big().Sign() != 0 {
		t.Fatalf("expected both fee counters zeroed, got %s/%s", personal.TokenFeesOwed0.String(), personal.TokenFeesOwed1.String())
	}
}
