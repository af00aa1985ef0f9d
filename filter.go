package bitblock

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Filter is a Bloom filter over a BitSet. A key sets the bits at each of k
// murmur3 derived locations, modulo the bitset length m. Test reports true
// for every added key and, with some probability, for keys never added.
//
// A Filter is not safe for concurrent use unless its BitSet is.
type Filter struct {
	m uint
	k uint
	b BitSet
}

// NewFilter creates a Filter with k hashing functions over b. m is b.Len(),
// so b must hold at least one bit.
// We force k to be at least one.
func NewFilter(k uint, b BitSet) (*Filter, error) {
	if b == nil || b.Len() == 0 {
		return nil, fmt.Errorf("%w: filter needs a non-empty bitset", ErrInvalidArgument)
	}
	return &Filter{
		m: uint(b.Len()),
		k: max(1, k),
		b: b,
	}, nil
}

// NewFilterWithEstimates creates an in-memory Filter for about n items with
// an fp false positive rate.
func NewFilterWithEstimates(n uint, fp float64) (*Filter, error) {
	m, k := EstimateParameters(n, fp)
	b, err := New(m)
	if err != nil {
		return nil, err
	}
	return NewFilter(k, b)
}

// EstimateParameters estimates requirements for m and k.
// Based on https://bitbucket.org/ww/bloom/src/829aa19d01d9/bloom.go
// used with permission.
func EstimateParameters(n uint, p float64) (m uint, k uint) {
	m = uint(math.Ceil(-1 * float64(n) * math.Log(p) / math.Pow(math.Log(2), 2)))
	k = uint(math.Ceil(math.Log(2) * float64(m) / float64(n)))
	return
}

// EstimateFalsePositiveRate returns, for a Filter of m bits and k hash
// functions, an estimation of the false positive rate when storing n
// entries. This is an empirical, relatively slow test using integers as
// keys, useful to validate the implementation.
func EstimateFalsePositiveRate(m, k, n uint) (fpRate float64, err error) {
	rounds := uint32(100000)
	b, err := New(m)
	if err != nil {
		return 0, err
	}
	f, err := NewFilter(k, b)
	if err != nil {
		return 0, err
	}
	n1 := make([]byte, 4)
	for i := uint32(0); i < uint32(n); i++ {
		binary.BigEndian.PutUint32(n1, i)
		if err := f.Add(n1); err != nil {
			return 0, err
		}
	}
	fp := 0
	for i := uint32(0); i < rounds; i++ {
		binary.BigEndian.PutUint32(n1, i+uint32(n)+1)
		if f.Test(n1) {
			fp++
		}
	}
	return float64(fp) / float64(rounds), nil
}

func (f *Filter) location(h [4]uint64, i uint) uint {
	return uint(location(h, i) % uint64(f.m))
}

// Cap returns the capacity, _m_, of the filter.
func (f *Filter) Cap() uint {
	return f.m
}

// K returns the number of hash functions.
func (f *Filter) K() uint {
	return f.k
}

// BitSet returns the underlying bitset for this filter.
func (f *Filter) BitSet() BitSet {
	return f.b
}

// Add data to the filter.
func (f *Filter) Add(data []byte) error {
	h := baseHashes(data)
	for i := uint(0); i < f.k; i++ {
		if err := f.b.Set(int(f.location(h, i)), true); err != nil {
			return err
		}
	}
	return nil
}

func (f *Filter) AddString(data string) error {
	return f.Add([]byte(data))
}

// Test returns true if the data is in the filter, false otherwise.
// If true, the result might be a false positive. If false, the data
// is definitely not in the set.
func (f *Filter) Test(data []byte) bool {
	h := baseHashes(data)
	for i := uint(0); i < f.k; i++ {
		if !f.b.Contains(f.location(h, i)) {
			return false
		}
	}
	return true
}

func (f *Filter) TestString(data string) bool {
	return f.Test([]byte(data))
}

// TestLocations returns true if all locations are set in the filter.
func (f *Filter) TestLocations(locs []uint64) bool {
	for _, l := range locs {
		if !f.b.Contains(uint(l % uint64(f.m))) {
			return false
		}
	}
	return true
}

// TestAndAdd is the equivalent to calling Test(data) then Add(data).
// Returns the result of Test.
func (f *Filter) TestAndAdd(data []byte) (bool, error) {
	present := true
	h := baseHashes(data)
	for i := uint(0); i < f.k; i++ {
		l := f.location(h, i)
		if !f.b.Contains(l) {
			present = false
		}
		if err := f.b.Set(int(l), true); err != nil {
			return false, err
		}
	}
	return present, nil
}

// TestOrAdd is the equivalent to calling Test(data) then Add(data) only if
// it was not present. Returns the result of Test.
func (f *Filter) TestOrAdd(data []byte) (bool, error) {
	present := true
	h := baseHashes(data)
	for i := uint(0); i < f.k; i++ {
		l := f.location(h, i)
		if !f.b.Contains(l) {
			present = false
			if err := f.b.Set(int(l), true); err != nil {
				return false, err
			}
		}
	}
	return present, nil
}

// ClearAll clears all the data in the filter, removing all keys.
func (f *Filter) ClearAll() *Filter {
	f.b.ClearAll()
	return f
}

// ApproximatedSize approximates the number of items
// https://en.wikipedia.org/wiki/Bloom_filter#Approximating_the_number_of_items_in_a_Bloom_filter
func (f *Filter) ApproximatedSize() uint32 {
	x := float64(f.b.Count())
	m := float64(f.Cap())
	k := float64(f.K())
	size := -1 * m / k * math.Log(1-x/m) / math.Log(math.E)
	return uint32(math.Floor(size + 0.5)) // round
}

// WriteTo writes m, k and then the bitset to stream.
func (f *Filter) WriteTo(stream io.Writer) (int64, error) {
	err := binary.Write(stream, binary.BigEndian, uint64(f.m))
	if err != nil {
		return 0, err
	}
	err = binary.Write(stream, binary.BigEndian, uint64(f.k))
	if err != nil {
		return 0, err
	}
	numBytes, err := f.b.WriteTo(stream)
	return numBytes + int64(2*binary.Size(uint64(0))), err
}

// ReadFrom reads a filter written by WriteTo into f. The bitset in the
// stream must have the size of f's bitset.
func (f *Filter) ReadFrom(stream io.Reader) (int64, error) {
	var m, k uint64
	header := int64(2 * binary.Size(uint64(0)))
	err := binary.Read(stream, binary.BigEndian, &m)
	if err != nil {
		return 0, err
	}
	err = binary.Read(stream, binary.BigEndian, &k)
	if err != nil {
		return int64(binary.Size(m)), err
	}
	if m != uint64(f.m) {
		return header, fmt.Errorf("%w: expected m %d, found %d", ErrSizeMismatch, f.m, m)
	}
	if k == 0 {
		return header, fmt.Errorf("%w: k cannot be zero", ErrInvalidArgument)
	}
	numBytes, err := f.b.ReadFrom(stream)
	if err != nil {
		return numBytes + header, err
	}
	f.k = uint(k)
	return numBytes + header, nil
}

// Equal tests for the equality of two filters.
func (f *Filter) Equal(g *Filter) bool {
	return f.m == g.Cap() && f.k == g.K() && f.b.Equal(g.BitSet())
}
