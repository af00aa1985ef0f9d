package bitblock

import (
	"io"
	"math"
	"strconv"
	"strings"
)

// maxSize keeps every bit position addressable by an int.
const maxSize = math.MaxInt

// BitSet is a fixed-size array of bits. Sizes never change after
// construction.
type BitSet interface {
	// Get reports whether the bit at index is set. Negative indices count
	// from the end, so -1 is the last bit. Indices outside [-Len(), Len()-1]
	// return an *IndexError.
	Get(index int) (bool, error)
	// Set sets the bit at index to value, with the same index rules as Get.
	// On error the bitset is left unchanged.
	Set(index int, value bool) error
	// Contains reports whether bit index is set. Out of range positions
	// report false instead of failing.
	Contains(index uint) bool
	// Len returns the number of bits given at construction.
	Len() int
	// String lists the set positions in ascending order, like "[0, 3, 7]".
	String() string
	// Blocks returns a copy of the packed storage. Bit i lives in
	// Blocks()[i>>3] at position i&7, least significant bit first.
	Blocks() []byte
	// Elements returns the set of positions whose bit is set.
	Elements() map[int]struct{}
	// Indices returns the set positions in ascending order.
	Indices() []int
	// Count (number of set bits).
	// Also known as "popcount" or "population count".
	Count() int
	// ClearAll clears every bit.
	ClearAll() BitSet
	// Equal tests the equivalence of two BitSets.
	// False if they are of different sizes, otherwise true
	// only if all the same bits are set.
	Equal(c BitSet) bool
	// WriteTo writes the size followed by the blocks to a stream.
	WriteTo(stream io.Writer) (int64, error)
	// ReadFrom reads a BitSet written using WriteTo. The stream must hold a
	// bitset of the same size.
	ReadFrom(stream io.Reader) (int64, error)
}

// indicesOf scans blocks for set bits below size.
func indicesOf(blocks []byte, size int) []int {
	vals := []int{}
	for i := 0; i < size; i++ {
		if blocks[i>>3]&(1<<(i&7)) != 0 {
			vals = append(vals, i)
		}
	}
	return vals
}

func elementsOf(blocks []byte, size int) map[int]struct{} {
	elements := make(map[int]struct{})
	for _, i := range indicesOf(blocks, size) {
		elements[i] = struct{}{}
	}
	return elements
}

func render(indices []int) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for n, i := range indices {
		if n > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(i))
	}
	sb.WriteByte(']')
	return sb.String()
}

// paddingMask returns the bits of the last block that lie beyond size.
func paddingMask(size int) byte {
	used := size & 7
	if used == 0 {
		return 0
	}
	return ^byte(0) << used
}

func equalBitSets(a, b BitSet) bool {
	if b == nil || a.Len() != b.Len() {
		return false
	}
	return string(a.Blocks()) == string(b.Blocks())
}
