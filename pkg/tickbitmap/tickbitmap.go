// Package tickbitmap implements the 1024-bit tick-array bitmap (one bit
// per potential tick-array start index within +/-30720*tick_spacing of
// tick zero) plus the bitmap Extension that covers tick-array starts
// beyond that core window. Grounded in the teacher's
// pkg/pool/raydium/clmm_tickerarray.go (TickArrayBitmapExtensionType,
// SearchLowBitFromStart, SearchHighBitFromStart, GetBitmap, GetBitmapOffset,
// MostSignificantBit, LeastSignificantBit) and
// original_source/programs/amm/src/libraries/tick_array_bit_map.rs.
package tickbitmap

import (
	"errors"
	"fmt"
	"math/big"
)

const (
	// TickArraySize is the number of ticks held by one TickArrayState.
	TickArraySize = 60

	// CoreBitmapWords is the number of uint64 words backing the core
	// 1024-bit bitmap (16 * 64 = 1024).
	CoreBitmapWords = 16

	// ExtensionBitmapWords is the per-entry width of each extension bitmap.
	ExtensionBitmapWords = 8

	// ExtensionEntryCount is the number of positive (and, mirrored,
	// negative) extension bitmap entries.
	ExtensionEntryCount = 14
)

// ErrNotInitialized names the condition of no initialized tick array start
// existing in the requested direction; the lookups in this package report
// that condition through their found/initialized result rather than by
// returning this error.
var ErrNotInitialized = errors.New("tickbitmap: no initialized tick array in range")

// Bitmap is the core 1024-bit tick-array presence map.
type Bitmap struct {
	TickSpacing uint16
	Words       [CoreBitmapWords]uint64
}

// NewBitmap constructs an empty bitmap for the given tick spacing.
func NewBitmap(tickSpacing uint16) *Bitmap {
	return &Bitmap{TickSpacing: tickSpacing}
}

// MaxTickInBitmap returns the core bitmap's bound for this spacing: 512
// array-widths (the teacher's MaxTickInTickarrayBitmap). The core bitmap
// holds tick-array starts in [-MaxTickInBitmap, MaxTickInBitmap).
func (b *Bitmap) MaxTickInBitmap() int32 {
	return int32(TickArraySize) * int32(b.TickSpacing) * 512
}

// bitOffset maps a tick-array start index to (word, bit) within Words.
func (b *Bitmap) bitOffset(startIndex int32) (int, int, error) {
	arrayWidth := int32(TickArraySize) * int32(b.TickSpacing)
	if startIndex%arrayWidth != 0 {
		return 0, 0, fmt.Errorf("tickbitmap: start index %d not aligned to array width %d", startIndex, arrayWidth)
	}
	offset := startIndex/arrayWidth + 512
	if offset < 0 || offset >= 1024 {
		return 0, 0, fmt.Errorf("tickbitmap: start index %d outside core bitmap", startIndex)
	}
	return int(offset / 64), int(offset % 64), nil
}

// Flip toggles the presence bit for the tick array starting at startIndex.
func (b *Bitmap) Flip(startIndex int32) error {
	word, bit, err := b.bitOffset(startIndex)
	if err != nil {
		return err
	}
	b.Words[word] ^= 1 << uint(bit)
	return nil
}

// IsInitialized reports whether a tick array exists at startIndex.
func (b *Bitmap) IsInitialized(startIndex int32) (bool, error) {
	word, bit, err := b.bitOffset(startIndex)
	if err != nil {
		return false, err
	}
	return b.Words[word]&(1<<uint(bit)) != 0, nil
}

// toBig packs Words into a single big-endian-ordered big.Int for bit-scan
// convenience, most-significant word first, mirroring the teacher's
// big.Int-based merge of bitmap words.
func (b *Bitmap) toBig() *big.Int {
	v := new(big.Int)
	for i := CoreBitmapWords - 1; i >= 0; i-- {
		v.Lsh(v, 64)
		v.Or(v, new(big.Int).SetUint64(b.Words[i]))
	}
	return v
}

// NextInitializedStart finds the next initialized tick-array start index
// at or beyond (when zeroForOne is false) or at or below (when true)
// startIndex, scanning within the core bitmap only. Reports found=false
// with a nil error if none exists in range.
func (b *Bitmap) NextInitializedStart(startIndex int32, zeroForOne bool) (int32, bool, error) {
	arrayWidth := int32(TickArraySize) * int32(b.TickSpacing)
	offset := startIndex/arrayWidth + 512
	if offset < 0 || offset >= 1024 {
		return 0, false, fmt.Errorf("tickbitmap: start index %d outside core bitmap", startIndex)
	}

	bits := b.toBig()
	if zeroForOne {
		for i := int(offset); i >= 0; i-- {
			if bits.Bit(i) == 1 {
				return (int32(i) - 512) * arrayWidth, true, nil
			}
		}
		return 0, false, nil
	}
	for i := int(offset); i < 1024; i++ {
		if bits.Bit(i) == 1 {
			return (int32(i) - 512) * arrayWidth, true, nil
		}
	}
	return 0, false, nil
}

// CheckCurrentTickArrayIsInitialized reports whether the tick array
// containing tickCurrent is initialized and returns its start index,
// mirroring the teacher's checkTickArrayIsInitialized.
func (b *Bitmap) CheckCurrentTickArrayIsInitialized(tickCurrent int32) (startIndex int32, initialized bool, err error) {
	arrayWidth := int32(TickArraySize) * int32(b.TickSpacing)
	start := floorDiv(tickCurrent, arrayWidth) * arrayWidth
	initialized, err = b.IsInitialized(start)
	if err != nil {
		return 0, false, err
	}
	return start, initialized, nil
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Extension holds the positive and negative tick-array bitmap segments
// that cover tick-array starts beyond the core Bitmap's +/-512-array-width
// window, the supplemental structure named in SPEC_FULL.md's "tick-array
// bitmap extension" section. Entries are indexed from tick zero, 64
// array-widths each, and only the first word of each entry is addressed,
// so the extension holds starts in [-896, 896) array-widths; starts
// beyond that are rejected with an error.
type Extension struct {
	TickSpacing      uint16
	PositiveBitmaps  [ExtensionEntryCount][ExtensionBitmapWords]uint64
	NegativeBitmaps  [ExtensionEntryCount][ExtensionBitmapWords]uint64
}

// NewExtension constructs an empty extension for the given tick spacing.
func NewExtension(tickSpacing uint16) *Extension {
	return &Extension{TickSpacing: tickSpacing}
}

func (e *Extension) entryWidth() int32 {
	return int32(TickArraySize) * int32(e.TickSpacing) * 64
}

// entryAndBit locates the extension entry and bit index for a tick-array
// start index lying outside the core bitmap's window.
func (e *Extension) entryAndBit(startIndex int32) (entry int, bit int, negative bool, err error) {
	arrayWidth := int32(TickArraySize) * int32(e.TickSpacing)
	if startIndex%arrayWidth != 0 {
		return 0, 0, false, fmt.Errorf("tickbitmap: start index %d not aligned to array width %d", startIndex, arrayWidth)
	}
	width := e.entryWidth()
	negative = startIndex < 0
	abs := startIndex
	if negative {
		abs = -startIndex - arrayWidth
	}
	entry = int(abs / width)
	if entry < 0 || entry >= ExtensionEntryCount {
		return 0, 0, false, fmt.Errorf("tickbitmap: start index %d outside extension range", startIndex)
	}
	bit = int((abs % width) / arrayWidth)
	return entry, bit, negative, nil
}

// Flip toggles the presence bit for a tick array start lying in the
// extension's range.
func (e *Extension) Flip(startIndex int32) error {
	entry, bit, negative, err := e.entryAndBit(startIndex)
	if err != nil {
		return err
	}
	word := bit / 64
	b := bit % 64
	if negative {
		e.NegativeBitmaps[entry][word] ^= 1 << uint(b)
	} else {
		e.PositiveBitmaps[entry][word] ^= 1 << uint(b)
	}
	return nil
}

// IsInitialized reports whether a tick array exists at startIndex within
// the extension's range.
func (e *Extension) IsInitialized(startIndex int32) (bool, error) {
	entry, bit, negative, err := e.entryAndBit(startIndex)
	if err != nil {
		return false, err
	}
	word := bit / 64
	b := bit % 64
	if negative {
		return e.NegativeBitmaps[entry][word]&(1<<uint(b)) != 0, nil
	}
	return e.PositiveBitmaps[entry][word]&(1<<uint(b)) != 0, nil
}

// SearchLowBitFromStart scans the extension's negative-then-positive
// segments downward from startIndex for the nearest initialized tick-array
// start, matching the teacher's SearchLowBitFromStart merge logic.
func (e *Extension) SearchLowBitFromStart(startIndex int32) (int32, bool, error) {
	arrayWidth := int32(TickArraySize) * int32(e.TickSpacing)
	width := e.entryWidth()
	for idx := startIndex; idx >= -(int32(ExtensionEntryCount) * width); idx -= arrayWidth {
		init, err := e.IsInitialized(idx)
		if err != nil {
			continue
		}
		if init {
			return idx, true, nil
		}
	}
	return 0, false, nil
}

// SearchHighBitFromStart scans the extension's positive segments upward
// from startIndex for the nearest initialized tick-array start, matching
// the teacher's SearchHighBitFromStart.
func (e *Extension) SearchHighBitFromStart(startIndex int32) (int32, bool, error) {
	arrayWidth := int32(TickArraySize) * int32(e.TickSpacing)
	width := e.entryWidth()
	for idx := startIndex; idx <= int32(ExtensionEntryCount)*width; idx += arrayWidth {
		init, err := e.IsInitialized(idx)
		if err != nil {
			continue
		}
		if init {
			return idx, true, nil
		}
	}
	return 0, false, nil
}
