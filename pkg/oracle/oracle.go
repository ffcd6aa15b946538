// Package oracle implements the fixed-capacity observation ring described
// in spec.md §4.10: a circular buffer of (blockTimestamp, sqrtPriceX64,
// cumulativeTimePriceX64) samples, appended at most once per
// ObservationUpdateDuration and overwritten in place between those
// boundaries. There is no Rust counterpart retrieved in original_source/
// for this component (Raydium's oracle lives in a separate program);
// grounded instead on the teacher's general fixed-size-array decode
// conventions in pkg/pool/raydium/clmmPool.go (RewardInfos [3]RewardInfo)
// and spec.md §4.10's own description of the ring's write/read behavior.
package oracle

import (
	"errors"

	"lukechampine.com/uint128"

	"github.com/solana-zh/clmm-core/pkg/fixedmath"
)

// Capacity is the number of observation slots in the ring, per spec.md §3.
const Capacity = 1000

// ObservationUpdateDuration is the number of seconds that must be
// exceeded since the last observation before a new slot is appended;
// writes at or within this window overwrite the current slot's cumulative in place,
// per spec.md §4.10.
const ObservationUpdateDuration = 15

// ErrEmpty is returned when an observation is requested from a ring that
// has never been written to.
var ErrEmpty = errors.New("oracle: ring has no observations")

// Observation is one sample of the pool's sqrt price over time, plus the
// running time-weighted cumulative used to derive a TWAP between any two
// samples.
type Observation struct {
	BlockTimestamp         uint32
	SqrtPriceX64           uint128.Uint128
	CumulativeTimePriceX64 uint128.Uint128
	Initialized            bool
}

// Ring is the fixed-capacity circular buffer of Observations backing one
// pool's price history.
type Ring struct {
	Observations     [Capacity]Observation
	ObservationIndex uint16
}

// Write records a new sample of sqrtPriceX64 at blockTimestamp. If more
// than ObservationUpdateDuration seconds have elapsed since the most
// recent sample, a new slot is appended (wrapping the index back to zero
// once the ring is full); otherwise the current slot's cumulative field
// is recomputed and overwritten in place. In both cases the cumulative
// advances by the prior sample's sqrt price held constant over the
// elapsed interval, wrapping modulo 2^128 along with every other growth
// accumulator in the engine.
func (r *Ring) Write(blockTimestamp uint32, sqrtPriceX64 uint128.Uint128) {
	last := r.Observations[r.ObservationIndex]
	if !last.Initialized {
		r.Observations[r.ObservationIndex] = Observation{
			BlockTimestamp: blockTimestamp,
			SqrtPriceX64:   sqrtPriceX64,
			Initialized:    true,
		}
		return
	}

	var elapsed uint64
	if blockTimestamp > last.BlockTimestamp {
		elapsed = uint64(blockTimestamp - last.BlockTimestamp)
	}
	contribution := fixedmath.WrappingMulU128ByUint64(last.SqrtPriceX64, elapsed)
	cumulative := fixedmath.WrappingAddU128(last.CumulativeTimePriceX64, contribution)

	next := Observation{
		BlockTimestamp:         blockTimestamp,
		SqrtPriceX64:           sqrtPriceX64,
		CumulativeTimePriceX64: cumulative,
		Initialized:            true,
	}

	if blockTimestamp > last.BlockTimestamp+ObservationUpdateDuration {
		nextIndex := (r.ObservationIndex + 1) % Capacity
		r.Observations[nextIndex] = next
		r.ObservationIndex = nextIndex
		return
	}
	r.Observations[r.ObservationIndex] = next
}

// Latest returns the most recently written observation.
func (r *Ring) Latest() (Observation, error) {
	obs := r.Observations[r.ObservationIndex]
	if !obs.Initialized {
		return Observation{}, ErrEmpty
	}
	return obs, nil
}

// At returns the observation stored at a given ring slot, regardless of
// whether it has been written yet.
func (r *Ring) At(slot uint16) (Observation, error) {
	if slot >= Capacity {
		return Observation{}, errors.New("oracle: slot out of range")
	}
	obs := r.Observations[slot]
	if !obs.Initialized {
		return Observation{}, ErrEmpty
	}
	return obs, nil
}
