package bitblock

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/go-redis/redis/v9"
)

// RedisBitSet is a BitSet stored as a Redis string. Redis numbers bits from
// the most significant bit of each byte, so bit i is kept at offset
// (i&^7)|(7-i&7); the stored string is then byte-for-byte what Blocks returns.
//
// Single bit commands are atomic on the server. ReadFrom and ClearAll rewrite
// the whole value and race with concurrent writers.
type RedisBitSet struct {
	redisClient redis.UniversalClient
	bitsetKey   string
	expiration  time.Duration
	timeout     time.Duration
	size        int
}

var _ BitSet = (*RedisBitSet)(nil)

// NewRedisBitSet allocates a zeroed bitset of size bits in Redis.
func NewRedisBitSet(redisClient redis.UniversalClient, size uint, opts ...RedisOption) (*RedisBitSet, error) {
	n, err := checkSize(size)
	if err != nil {
		return nil, err
	}
	o := defaultRedisOptions()
	for _, opt := range opts {
		opt(&o)
	}
	r := &RedisBitSet{
		redisClient: redisClient,
		bitsetKey:   o.key,
		expiration:  o.expiration,
		timeout:     o.timeout,
		size:        n,
	}
	if err := r.store(make([]byte, blocksFor(n))); err != nil {
		return nil, err
	}
	log.Debugw("allocated redis bitset", "key", r.bitsetKey, "size", n)
	return r, nil
}

func (r *RedisBitSet) context() (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(context.Background(), r.timeout)
	}
	return context.WithCancel(context.Background())
}

func offset(pos int) int64 {
	return int64(pos&^7 | (7 - pos&7))
}

// Key returns the Redis key holding the bits.
func (r *RedisBitSet) Key() string {
	return r.bitsetKey
}

func (r *RedisBitSet) Get(index int) (bool, error) {
	pos, err := resolve(index, r.size)
	if err != nil {
		return false, err
	}
	return r.getBit(pos)
}

func (r *RedisBitSet) getBit(pos int) (bool, error) {
	ctx, cancel := r.context()
	defer cancel()
	v, err := r.redisClient.GetBit(ctx, r.bitsetKey, offset(pos)).Result()
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

func (r *RedisBitSet) Set(index int, value bool) error {
	pos, err := resolve(index, r.size)
	if err != nil {
		return err
	}
	bit := 0
	if value {
		bit = 1
	}
	ctx, cancel := r.context()
	defer cancel()
	return r.redisClient.SetBit(ctx, r.bitsetKey, offset(pos), bit).Err()
}

// Contains reports false for out of range positions and when Redis fails.
func (r *RedisBitSet) Contains(index uint) bool {
	if index >= uint(r.size) {
		return false
	}
	ok, err := r.getBit(int(index))
	if err != nil {
		log.Errorw("redis GETBIT failed", "key", r.bitsetKey, "index", index, "err", err)
		return false
	}
	return ok
}

func (r *RedisBitSet) Len() int {
	return r.size
}

func (r *RedisBitSet) String() string {
	return render(r.Indices())
}

// blocks fetches the value, sized to the bitset. A missing key, e.g. one
// that expired, reads as all clear.
func (r *RedisBitSet) blocks() ([]byte, error) {
	ctx, cancel := r.context()
	defer cancel()
	val, err := r.redisClient.Get(ctx, r.bitsetKey).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	out := make([]byte, blocksFor(r.size))
	copy(out, val)
	out[len(out)-1] &^= paddingMask(r.size)
	return out, nil
}

// Blocks returns all clear blocks when Redis fails.
func (r *RedisBitSet) Blocks() []byte {
	b, err := r.blocks()
	if err != nil {
		log.Errorw("redis GET failed", "key", r.bitsetKey, "err", err)
		return make([]byte, blocksFor(r.size))
	}
	return b
}

func (r *RedisBitSet) Elements() map[int]struct{} {
	return elementsOf(r.Blocks(), r.size)
}

func (r *RedisBitSet) Indices() []int {
	return indicesOf(r.Blocks(), r.size)
}

func (r *RedisBitSet) Count() int {
	ctx, cancel := r.context()
	defer cancel()
	n, err := r.redisClient.BitCount(ctx, r.bitsetKey, &redis.BitCount{
		Start: 0,
		End:   int64(blocksFor(r.size) - 1),
	}).Result()
	if err != nil {
		log.Errorw("redis BITCOUNT failed", "key", r.bitsetKey, "err", err)
		return 0
	}
	return int(n)
}

func (r *RedisBitSet) ClearAll() BitSet {
	if err := r.store(make([]byte, blocksFor(r.size))); err != nil {
		log.Errorw("redis SET failed", "key", r.bitsetKey, "err", err)
	}
	return r
}

func (r *RedisBitSet) store(blocks []byte) error {
	ctx, cancel := r.context()
	defer cancel()
	return r.redisClient.Set(ctx, r.bitsetKey, blocks, r.expiration).Err()
}

func (r *RedisBitSet) Equal(c BitSet) bool {
	return equalBitSets(r, c)
}

func (r *RedisBitSet) WriteTo(stream io.Writer) (int64, error) {
	b, err := r.blocks()
	if err != nil {
		return 0, err
	}
	return writeBits(stream, r.size, b)
}

func (r *RedisBitSet) ReadFrom(stream io.Reader) (int64, error) {
	_, blocks, n, err := readBits(stream, r.size)
	if err != nil {
		return n, err
	}
	return n, r.store(blocks)
}

// Delete removes the key from Redis. The RedisBitSet must not be used
// afterwards.
func (r *RedisBitSet) Delete() error {
	ctx, cancel := r.context()
	defer cancel()
	return r.redisClient.Del(ctx, r.bitsetKey).Err()
}
