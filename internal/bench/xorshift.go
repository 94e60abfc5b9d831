package bench

// defaultSeed replaces a zero seed, xorshift never leaves the all-zero state
const defaultSeed = 123456789

// Xorshift64 is the xorshift64* generator. It is deterministic for a given
// seed, which lets the baseline and the slab run replay the same traffic.
type Xorshift64 struct {
	state uint64
}

// NewXorshift64 returns a generator seeded with seed
func NewXorshift64(seed uint64) *Xorshift64 {
	x := &Xorshift64{}
	x.Reseed(seed)
	return x
}

// Next returns the next pseudo random number
func (x *Xorshift64) Next() uint64 {
	s := x.state
	s ^= s << 12
	s ^= s >> 25
	s ^= s << 27
	x.state = s
	return s * 2685821657736338717
}

// Reseed restarts the sequence from seed
func (x *Xorshift64) Reseed(seed uint64) {
	if seed == 0 {
		seed = defaultSeed
	}
	x.state = seed
}
