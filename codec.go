package bitblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const sizeHeaderLen = 8

// writeBits writes size as a big-endian uint64 followed by the blocks.
func writeBits(stream io.Writer, size int, blocks []byte) (int64, error) {
	err := binary.Write(stream, binary.BigEndian, uint64(size))
	if err != nil {
		return 0, err
	}
	n, err := stream.Write(blocks)
	return int64(n + sizeHeaderLen), err
}

// readBits reads a bitset written by writeBits. A want of zero accepts any
// size.
func readBits(stream io.Reader, want int) (int, []byte, int64, error) {
	var size uint64
	err := binary.Read(stream, binary.BigEndian, &size)
	if err != nil {
		return 0, nil, 0, err
	}
	if size == 0 || size > uint64(maxSize) {
		return 0, nil, sizeHeaderLen, fmt.Errorf("%w: stream holds size %d", ErrInvalidArgument, size)
	}
	if want != 0 && int(size) != want {
		return 0, nil, sizeHeaderLen, fmt.Errorf("%w: expected %d bits, found %d", ErrSizeMismatch, want, size)
	}
	// The header is untrusted; grow the buffer only as data arrives.
	nblocks := int64(blocksFor(int(size)))
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, stream, nblocks)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, nil, n + sizeHeaderLen, fmt.Errorf("reading %d blocks: %w", nblocks, err)
	}
	blocks := buf.Bytes()
	if err := checkPadding(blocks, int(size)); err != nil {
		return 0, nil, n + sizeHeaderLen, err
	}
	return int(size), blocks, n + sizeHeaderLen, nil
}

func checkPadding(blocks []byte, size int) error {
	if blocks[len(blocks)-1]&paddingMask(size) != 0 {
		return fmt.Errorf("%w: bits set beyond size %d", ErrInvalidArgument, size)
	}
	return nil
}
