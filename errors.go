package bitblock

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when a bitset cannot be built from the
	// given parameters, e.g. a zero size.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIndexOutOfRange is matched by every *IndexError.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrSizeMismatch is returned when serialized data describes a bitset of
	// another size than the receiver.
	ErrSizeMismatch = errors.New("size mismatch")
)

// IndexError reports an index outside of [-Size, Size-1].
type IndexError struct {
	Index int
	Size  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index can be between 0 and %d, found %d", e.Size-1, e.Index)
}

func (e *IndexError) Is(target error) bool { return target == ErrIndexOutOfRange }

// resolve maps an index onto a bit position. Negative indices count from the
// end; the wrapped position is checked again, so an index below -size is
// rejected too.
func resolve(index, size int) (int, error) {
	pos := index
	if pos < 0 {
		pos += size
	}
	if pos < 0 || pos >= size {
		return 0, &IndexError{Index: index, Size: size}
	}
	return pos, nil
}

// checkSize validates a constructor size and returns it as an int.
func checkSize(size uint) (int, error) {
	if size == 0 {
		return 0, fmt.Errorf("%w: size cannot be zero", ErrInvalidArgument)
	}
	if uint64(size) > uint64(maxSize) {
		return 0, fmt.Errorf("%w: size %d is too large", ErrInvalidArgument, size)
	}
	return int(size), nil
}

// blocksFor returns the number of bytes needed to hold size bits.
func blocksFor(size int) int {
	return ((size - 1) >> 3) + 1
}
