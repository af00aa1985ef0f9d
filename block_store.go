package bitblock

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math/bits"
)

// BlockStore is an in-memory BitSet packing eight bits per byte.
//
// A BlockStore is not safe for concurrent use.
type BlockStore struct {
	size   int
	blocks []byte
}

var _ BitSet = (*BlockStore)(nil)

// New creates a BlockStore of size bits, all clear. A zero size returns an
// error wrapping ErrInvalidArgument.
func New(size uint) (*BlockStore, error) {
	n, err := checkSize(size)
	if err != nil {
		return nil, err
	}
	return &BlockStore{
		size:   n,
		blocks: make([]byte, blocksFor(n)),
	}, nil
}

func (s *BlockStore) Get(index int) (bool, error) {
	pos, err := resolve(index, s.size)
	if err != nil {
		return false, err
	}
	return s.blocks[pos>>3]&(1<<(pos&7)) != 0, nil
}

func (s *BlockStore) Set(index int, value bool) error {
	pos, err := resolve(index, s.size)
	if err != nil {
		return err
	}
	mask := byte(1) << (pos & 7)
	if value {
		s.blocks[pos>>3] |= mask
	} else {
		s.blocks[pos>>3] &^= mask
	}
	return nil
}

func (s *BlockStore) Contains(index uint) bool {
	if index >= uint(s.size) {
		return false
	}
	return s.blocks[index>>3]&(1<<(index&7)) != 0
}

func (s *BlockStore) Len() int {
	return s.size
}

func (s *BlockStore) String() string {
	return render(s.Indices())
}

func (s *BlockStore) Blocks() []byte {
	return append([]byte(nil), s.blocks...)
}

func (s *BlockStore) Elements() map[int]struct{} {
	return elementsOf(s.blocks, s.size)
}

func (s *BlockStore) Indices() []int {
	return indicesOf(s.blocks, s.size)
}

func (s *BlockStore) Count() int {
	n := 0
	for _, b := range s.blocks {
		n += bits.OnesCount8(b)
	}
	return n
}

func (s *BlockStore) ClearAll() BitSet {
	for i := range s.blocks {
		s.blocks[i] = 0
	}
	return s
}

func (s *BlockStore) Equal(c BitSet) bool {
	return equalBitSets(s, c)
}

func (s *BlockStore) WriteTo(stream io.Writer) (int64, error) {
	return writeBits(stream, s.size, s.blocks)
}

// ReadFrom replaces the contents of s with a bitset written by WriteTo.
// A zero BlockStore takes the size found in the stream; otherwise the sizes
// must match.
func (s *BlockStore) ReadFrom(stream io.Reader) (int64, error) {
	size, blocks, n, err := readBits(stream, s.size)
	if err != nil {
		return n, err
	}
	s.size = size
	s.blocks = blocks
	return n, nil
}

func (s *BlockStore) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *BlockStore) UnmarshalBinary(data []byte) error {
	if len(data) < sizeHeaderLen {
		return fmt.Errorf("%w: %d bytes is shorter than the header", ErrInvalidArgument, len(data))
	}
	size := binary.BigEndian.Uint64(data)
	if size != 0 && size <= uint64(maxSize) && len(data)-sizeHeaderLen != blocksFor(int(size)) {
		return fmt.Errorf("%w: %d bytes of blocks for %d bits", ErrInvalidArgument, len(data)-sizeHeaderLen, size)
	}
	_, err := s.ReadFrom(bytes.NewReader(data))
	return err
}

// blockStoreJSON is an unexported type for marshaling/unmarshaling BlockStore.
type blockStoreJSON struct {
	Size   int    `json:"size"`
	Blocks []byte `json:"blocks"`
}

func (s *BlockStore) MarshalJSON() ([]byte, error) {
	return json.Marshal(blockStoreJSON{s.size, s.blocks})
}

func (s *BlockStore) UnmarshalJSON(data []byte) error {
	var j blockStoreJSON
	err := json.Unmarshal(data, &j)
	if err != nil {
		return err
	}
	if j.Size <= 0 {
		return fmt.Errorf("%w: size %d", ErrInvalidArgument, j.Size)
	}
	if s.size != 0 && j.Size != s.size {
		return fmt.Errorf("%w: expected %d bits, found %d", ErrSizeMismatch, s.size, j.Size)
	}
	if len(j.Blocks) != blocksFor(j.Size) {
		return fmt.Errorf("%w: %d blocks for %d bits", ErrInvalidArgument, len(j.Blocks), j.Size)
	}
	if err := checkPadding(j.Blocks, j.Size); err != nil {
		return err
	}
	s.size = j.Size
	s.blocks = j.Blocks
	return nil
}
