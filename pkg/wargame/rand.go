package wargame

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

// oracleSeed is the base seed for dice simulations. When unset, every
// simulation draws a fresh time-based seed. Use SeedOracleRng for
// reproducible battles in tests and benchmarks.
var (
	oracleMu     sync.Mutex
	oracleSeed   uint64
	oracleSeeded bool
)

// SeedOracleRng sets a deterministic base seed for the dice oracle.
func SeedOracleRng(seed uint64) {
	oracleMu.Lock()
	defer oracleMu.Unlock()
	oracleSeed = seed
	oracleSeeded = true
}

// ResetOracleRng reverts to time-based seeding.
func ResetOracleRng() {
	oracleMu.Lock()
	defer oracleMu.Unlock()
	oracleSeed = 0
	oracleSeeded = false
}

// oracleRand returns a generator for one simulation. With a seeded base, the
// same salt always yields the same stream.
func oracleRand(salt uint64) *rand.Rand {
	oracleMu.Lock()
	seed, seeded := oracleSeed, oracleSeeded
	oracleMu.Unlock()
	if !seeded {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewSource(seed ^ salt))
}
