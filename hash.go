package bitblock

import "github.com/twmb/murmur3"

// baseHashes returns the four 64-bit hash values used to derive filter
// locations: a 128-bit murmur3 of data, and a second one seeded by the first.
func baseHashes(data []byte) [4]uint64 {
	h1, h2 := murmur3.Sum128(data)
	h3, h4 := murmur3.SeedSum128(h1, h2, data)
	return [4]uint64{h1, h2, h3, h4}
}

// location returns the ith hashed location using the four base hash values
func location(h [4]uint64, i uint) uint64 {
	ii := uint64(i)
	return h[ii%2] + ii*h[2+(((ii+(ii%2))%4)/2)]
}
