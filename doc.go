/*
Package bitblock provides fixed-size bit arrays.

A BitSet holds Len() bits, all clear at construction. Bits are addressed
from 0; negative indices count from the end, so Get(-1) reads the last bit.

	b, err := bitblock.New(10)
	if err != nil {
		return err
	}
	_ = b.Set(0, true)
	_ = b.Set(3, true)
	_ = b.Set(-3, true)     // bit 7
	fmt.Println(b)          // [0, 3, 7]
	fmt.Println(b.Blocks()) // [137 0]

Get and Set fail with an *IndexError, matching ErrIndexOutOfRange, for any
index outside [-Len(), Len()-1]. Contains never fails and reports false for
positions past the end.

Two backings are provided: BlockStore keeps the bits in memory, and
RedisBitSet keeps them in a Redis string with the same byte layout. Filter
builds a Bloom filter on top of either one, hashing keys with murmur3.
*/
package bitblock
