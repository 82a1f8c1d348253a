package quiz

import (
	"math/rand/v2"
	"time"
)

// Clock returns the current time in milliseconds since the Unix epoch
type Clock interface {
	NowMillis() int64
}

// RandomSource yields uniform integers in [0, n)
type RandomSource interface {
	IntN(n int) int
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// FixedClock always reports the same instant
type FixedClock int64

func (c FixedClock) NowMillis() int64 { return int64(c) }

// SystemRandom draws from the runtime's shared generator, which is safe
// for concurrent use
type SystemRandom struct{}

func (SystemRandom) IntN(n int) int { return rand.IntN(n) }
