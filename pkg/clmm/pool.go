package clmm

import (
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// PoolSpan is the byte-exact size of a persisted PoolState account, per
// spec.md §6. Matches the teacher's CLMMPool.Span().
const PoolSpan = 1544

// PoolStatus bits gate which operations a pool currently accepts.
type PoolStatus uint8

const (
	// PoolStatusSwap disables swap when set.
	PoolStatusSwap PoolStatus = 1 << iota
	// PoolStatusCreatePosition disables opening new positions when set.
	PoolStatusCreatePosition
	// PoolStatusIncreaseLiquidity disables adding to existing positions
	// when set.
	PoolStatusIncreaseLiquidity
)

// PoolState is the authoritative, persisted state of one concentrated
// liquidity pool: its fee tier reference, token identities, current price
// and tick, global fee/reward growth accumulators, and the tick-array
// bitmap recording which tick arrays are initialized. Field layout
// mirrors the teacher's CLMMPool (pkg/pool/raydium/clmmPool.go), which is
// itself a faithful port of Raydium's on-chain PoolState.
type PoolState struct {
	Bump                      [1]uint8
	AmmConfig                 solana.PublicKey
	Owner                     solana.PublicKey
	TokenMint0                solana.PublicKey
	TokenMint1                solana.PublicKey
	TokenVault0               solana.PublicKey
	TokenVault1               solana.PublicKey
	ObservationKey            solana.PublicKey
	MintDecimals0             uint8
	MintDecimals1             uint8
	TickSpacing               uint16
	Liquidity                 uint128.Uint128
	SqrtPriceX64              uint128.Uint128
	TickCurrent               int32
	Padding3                  uint16
	Padding4                  uint16
	FeeGrowthGlobal0X64       uint128.Uint128
	FeeGrowthGlobal1X64       uint128.Uint128
	ProtocolFeesToken0        uint64
	ProtocolFeesToken1        uint64
	SwapInAmountToken0        uint128.Uint128
	SwapOutAmountToken1       uint128.Uint128
	SwapInAmountToken1        uint128.Uint128
	SwapOutAmountToken0       uint128.Uint128
	Status                    uint8
	Padding                   [7]uint8
	RewardInfos               [RewardCount]RewardInfo
	TickArrayBitmap           [16]uint64
	TotalFeesToken0           uint64
	TotalFeesClaimedToken0    uint64
	TotalFeesToken1           uint64
	TotalFeesClaimedToken1    uint64
	FundFeesToken0            uint64
	FundFeesToken1            uint64
	OpenTime                  uint64
	RecentEpoch               uint64
	Padding1                  [24]uint64
	Padding2                  [32]uint64
}

// RewardCount is how many simultaneous reward streams a pool tracks.
const RewardCount = 3

// Decode parses a PoolState from its persisted account bytes, skipping
// the 8-byte Anchor discriminator, mirroring CLMMPool.Decode.
func (p *PoolState) Decode(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("clmm: pool state data too short: %d bytes", len(data))
	}
	decoder := bin.NewBinDecoder(data[8:])
	return decoder.Decode(p)
}

// Encode serializes a PoolState back to its persisted account bytes,
// writing the same 8-byte discriminator convention back in front.
func (p *PoolState) Encode(discriminator [8]byte) ([]byte, error) {
	w := &byteSliceWriter{buf: make([]byte, 0, PoolSpan)}
	if _, err := w.Write(discriminator[:]); err != nil {
		return nil, err
	}
	if err := bin.NewBorshEncoder(w).Encode(p); err != nil {
		return nil, err
	}
	return w.buf, nil
}

// byteSliceWriter adapts a growable []byte to io.Writer for bin.Encoder.
type byteSliceWriter struct {
	buf []byte
}

func (w *byteSliceWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// CurrentPrice returns the pool's current price as token1 per token0,
// derived from SqrtPriceX64 the same way the teacher's CurrentPrice does:
// (sqrtPriceX64 / 2^64)^2, adjusted for mint decimals.
func (p *PoolState) CurrentPrice() float64 {
	sqrtPriceFloat := new(big.Float).SetInt(p.SqrtPriceX64.Big())
	q64 := new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 64))
	sqrtPriceFloat.Quo(sqrtPriceFloat, q64)
	priceFloat := new(big.Float).Mul(sqrtPriceFloat, sqrtPriceFloat)
	price, _ := priceFloat.Float64()
	return price * pow10(int(p.MintDecimals0)-int(p.MintDecimals1))
}

func pow10(n int) float64 {
	result := 1.0
	if n >= 0 {
		for i := 0; i < n; i++ {
			result *= 10
		}
	} else {
		for i := 0; i < -n; i++ {
			result /= 10
		}
	}
	return result
}

// StatusAllows reports whether the pool's Status permits the given
// operation bit.
func (p *PoolState) StatusAllows(bit PoolStatus) bool {
	return p.Status&uint8(bit) == 0
}
