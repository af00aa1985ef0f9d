package bitblock

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, size uint) *BlockStore {
	t.Helper()
	s, err := New(size)
	require.NoError(t, err)
	return s
}

// checkIndexes asserts that exactly the positions in inside are set.
func checkIndexes(t *testing.T, b BitSet, inside ...int) {
	t.Helper()
	req := require.New(t)
	want := make(map[int]struct{})
	for _, i := range inside {
		want[i] = struct{}{}
	}
	for i := 0; i < b.Len(); i++ {
		_, in := want[i]
		got, err := b.Get(i)
		req.NoError(err)
		req.Equal(in, got, "bit %d", i)
		req.Equal(in, b.Contains(uint(i)), "bit %d", i)
	}
	sorted := append([]int{}, inside...)
	sort.Ints(sorted)
	req.Equal(render(sorted), b.String())
	req.Equal(want, b.Elements())
	req.Equal(len(want), b.Count())
}

func TestNewZeroSize(t *testing.T) {
	_, err := New(0)
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.EqualError(t, err, "invalid argument: size cannot be zero")
}

func TestNewAllClear(t *testing.T) {
	for _, size := range []uint{1, 7, 8, 9, 64, 1000} {
		s := newStore(t, size)
		require.Equal(t, int(size), s.Len())
		require.Len(t, s.Blocks(), int((size-1)/8+1))
		checkIndexes(t, s)
	}
}

func TestGetSet(t *testing.T) {
	b := newStore(t, 4)
	require.Equal(t, 4, b.Len())

	checkIndexes(t, b)
	require.NoError(t, b.Set(0, true))
	checkIndexes(t, b, 0)
	require.NoError(t, b.Set(2, true))
	checkIndexes(t, b, 0, 2)
	require.NoError(t, b.Set(0, false))
	checkIndexes(t, b, 2)
	require.NoError(t, b.Set(-2, false))
	checkIndexes(t, b)
}

func TestInvalidIndex(t *testing.T) {
	b := newStore(t, 4)

	_, err := b.Get(5)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	require.EqualError(t, err, "index can be between 0 and 3, found 5")

	err = b.Set(5, true)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	require.EqualError(t, err, "index can be between 0 and 3, found 5")

	_, err = b.Get(4)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	var ie *IndexError
	_, err = b.Get(-5)
	require.True(t, errors.As(err, &ie))
	require.Equal(t, -5, ie.Index)
	require.Equal(t, 4, ie.Size)

	require.ErrorIs(t, b.Set(-5, true), ErrIndexOutOfRange)
	checkIndexes(t, b)
}

func TestContainsOutOfRange(t *testing.T) {
	b := newStore(t, 10)
	for i := 0; i < 10; i++ {
		require.NoError(t, b.Set(i, true))
	}
	require.False(t, b.Contains(10))
	require.False(t, b.Contains(1<<40))
	require.True(t, b.Contains(9))
}

func TestNoCrossBitInterference(t *testing.T) {
	const size = 20
	b := newStore(t, size)
	for i := 0; i < size; i += 3 {
		require.NoError(t, b.Set(i, true))
	}
	for i := 0; i < size; i++ {
		for _, v := range []bool{true, false} {
			before := b.Blocks()
			require.NoError(t, b.Set(i, v))
			got, err := b.Get(i)
			require.NoError(t, err)
			require.Equal(t, v, got)

			after := b.Blocks()
			for j := 0; j < size; j++ {
				if j == i {
					continue
				}
				require.Equal(t, before[j>>3]&(1<<(j&7)), after[j>>3]&(1<<(j&7)), "bit %d changed by Set(%d)", j, i)
			}
		}
	}
}

func TestSetIdempotent(t *testing.T) {
	a := newStore(t, 12)
	b := newStore(t, 12)
	require.NoError(t, a.Set(5, true))
	require.NoError(t, b.Set(5, true))
	require.NoError(t, b.Set(5, true))
	require.True(t, a.Equal(b))
	require.Equal(t, a.Blocks(), b.Blocks())
}

func TestNegativeIndexEquivalence(t *testing.T) {
	const size = 13
	for i := 0; i < size; i++ {
		a := newStore(t, size)
		b := newStore(t, size)
		require.NoError(t, a.Set(i, true))
		require.NoError(t, b.Set(i-size, true))
		require.Equal(t, a.Blocks(), b.Blocks())

		got, err := a.Get(i - size)
		require.NoError(t, err)
		require.True(t, got)
	}
}

func TestRenderExample(t *testing.T) {
	b := newStore(t, 10)
	require.Equal(t, "[]", b.String())
	for _, i := range []int{0, 3, 7} {
		require.NoError(t, b.Set(i, true))
	}
	require.Equal(t, "[0, 3, 7]", b.String())
	require.Equal(t, []int{0, 3, 7}, b.Indices())
	require.Equal(t, map[int]struct{}{0: {}, 3: {}, 7: {}}, b.Elements())
	require.Equal(t, []byte{137, 0}, b.Blocks())
}

func TestElementsRoundTrip(t *testing.T) {
	const size = 100
	want := []int{1, 2, 8, 15, 16, 63, 64, 99}
	b := newStore(t, size)
	for _, i := range want {
		require.NoError(t, b.Set(i, true))
	}
	require.Equal(t, want, b.Indices())
	require.Len(t, b.Elements(), len(want))
	for _, i := range want {
		require.Contains(t, b.Elements(), i)
	}
}

func TestBlocksIsSnapshot(t *testing.T) {
	b := newStore(t, 16)
	require.NoError(t, b.Set(1, true))
	blocks := b.Blocks()
	blocks[0] = 0xff
	blocks[1] = 0xff
	require.Equal(t, []byte{2, 0}, b.Blocks())
	checkIndexes(t, b, 1)
}

func TestClearAll(t *testing.T) {
	b := newStore(t, 30)
	require.NoError(t, b.Set(3, true))
	require.NoError(t, b.Set(29, true))
	b.ClearAll()
	checkIndexes(t, b)
	require.Equal(t, 30, b.Len())
}

func TestEqual(t *testing.T) {
	a := newStore(t, 10)
	b := newStore(t, 10)
	c := newStore(t, 11)
	require.True(t, a.Equal(a))
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(nil))
	require.NoError(t, b.Set(4, true))
	require.False(t, a.Equal(b))
}

func TestWriteToReadFrom(t *testing.T) {
	req := require.New(t)
	a := newStore(t, 21)
	req.NoError(a.Set(0, true))
	req.NoError(a.Set(20, true))

	var buf bytes.Buffer
	written, err := a.WriteTo(&buf)
	req.NoError(err)
	req.Equal(int64(buf.Len()), written)
	req.Equal(int64(8+3), written)

	b := newStore(t, 21)
	read, err := b.ReadFrom(&buf)
	req.NoError(err)
	req.Equal(written, read)
	req.True(a.Equal(b))
	checkIndexes(t, b, 0, 20)
}

func TestReadFromZeroValue(t *testing.T) {
	a := newStore(t, 9)
	require.NoError(t, a.Set(8, true))
	var buf bytes.Buffer
	_, err := a.WriteTo(&buf)
	require.NoError(t, err)

	var b BlockStore
	_, err = b.ReadFrom(&buf)
	require.NoError(t, err)
	require.Equal(t, 9, b.Len())
	checkIndexes(t, &b, 8)
}

func TestReadFromSizeMismatch(t *testing.T) {
	a := newStore(t, 9)
	var buf bytes.Buffer
	_, err := a.WriteTo(&buf)
	require.NoError(t, err)

	b := newStore(t, 16)
	require.NoError(t, b.Set(3, true))
	_, err = b.ReadFrom(&buf)
	require.ErrorIs(t, err, ErrSizeMismatch)
	require.Equal(t, 16, b.Len())
	checkIndexes(t, b, 3)
}

func TestReadFromInvalid(t *testing.T) {
	var b BlockStore

	// size 0
	_, err := b.ReadFrom(bytes.NewReader(make([]byte, 8)))
	require.ErrorIs(t, err, ErrInvalidArgument)

	// size 4 with a padding bit set
	_, err = b.ReadFrom(bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 0, 4, 0x10}))
	require.ErrorIs(t, err, ErrInvalidArgument)

	// truncated blocks
	_, err = b.ReadFrom(bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 0, 20, 0x10}))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, 0, b.Len())

	// header claiming a huge size with no blocks behind it
	huge := []byte{0x0f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	_, err = b.ReadFrom(bytes.NewReader(huge))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, 0, b.Len())

	// 2^48 bits with only a few blocks
	_, err = b.ReadFrom(bytes.NewReader([]byte{0, 0, 0x01, 0, 0, 0, 0, 0, 1, 2, 3}))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, 0, b.Len())
}

func TestUnmarshalBinaryInvalid(t *testing.T) {
	var b BlockStore
	require.ErrorIs(t, b.UnmarshalBinary([]byte{0, 0, 1}), ErrInvalidArgument)
	require.ErrorIs(t, b.UnmarshalBinary([]byte{0x7f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}), ErrInvalidArgument)
	require.ErrorIs(t, b.UnmarshalBinary([]byte{0, 0, 0, 0, 0, 0, 0, 9, 0, 0, 0}), ErrInvalidArgument)
	require.Equal(t, 0, b.Len())

	require.NoError(t, b.UnmarshalBinary([]byte{0, 0, 0, 0, 0, 0, 0, 9, 0, 1}))
	checkIndexes(t, &b, 8)
}

func TestJSON(t *testing.T) {
	a := newStore(t, 10)
	for _, i := range []int{0, 3, 7, 9} {
		require.NoError(t, a.Set(i, true))
	}
	data, err := json.Marshal(a)
	require.NoError(t, err)
	require.JSONEq(t, `{"size":10,"blocks":"iQI="}`, string(data))

	var b BlockStore
	require.NoError(t, json.Unmarshal(data, &b))
	require.True(t, a.Equal(&b))

	c := newStore(t, 11)
	require.ErrorIs(t, json.Unmarshal(data, c), ErrSizeMismatch)
	require.ErrorIs(t, json.Unmarshal([]byte(`{"size":10,"blocks":"iQ=="}`), &BlockStore{}), ErrInvalidArgument)
	require.ErrorIs(t, json.Unmarshal([]byte(`{"size":0,"blocks":""}`), &BlockStore{}), ErrInvalidArgument)
}

func TestEncodeDecodeGob(t *testing.T) {
	a := newStore(t, 33)
	require.NoError(t, a.Set(32, true))
	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(a))

	var b BlockStore
	require.NoError(t, gob.NewDecoder(&buf).Decode(&b))
	require.True(t, a.Equal(&b))
	checkIndexes(t, &b, 32)
}
