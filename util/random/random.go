package random

import (
	crypto_rand "crypto/rand"
	"math/big"
	"math/rand"
)

func NewSeed() int64 {
	const MaxUint = ^uint(0)
	const MaxInt = int(MaxUint >> 1)
	nBig, err := crypto_rand.Int(crypto_rand.Reader, big.NewInt(int64(MaxInt)))
	if err != nil {
		panic("cannot seed math/rand package with cryptographically secure random number generator")
	}

	return nBig.Int64()
}

// NewSource returns a generator for one session. A zero seed draws a fresh one.
func NewSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = NewSeed()
	}
	return rand.New(rand.NewSource(seed))
}
