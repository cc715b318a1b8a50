package draw

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

type XorShift32 struct {
	state uint32
}

func NewXorShift32(seed uint32) *XorShift32 {
	if seed == 0 {
		seed = 0x12345678
	}
	return &XorShift32{state: seed}
}

func (x *XorShift32) Next() uint32 {
	s := x.state
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	x.state = s
	return s
}

func (x *XorShift32) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(x.Next() % uint32(n))
}

// Shuffle is an in-place Fisher-Yates pass.
func Shuffle[T any](vals []T, rng *XorShift32) {
	for i := len(vals) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		vals[i], vals[j] = vals[j], vals[i]
	}
}

func RandomSeed() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint32(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint32(b[:])
}
