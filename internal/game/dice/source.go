package dice

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"sort"
)

// Algorithm names accepted by NewSource.
const (
	AlgorithmPCG     = "pcg"
	AlgorithmChaCha8 = "chacha8"
	AlgorithmCrypto  = "crypto"
)

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = AlgorithmPCG

type sourceFactory func(seed uint64) Source

var algorithms = map[string]sourceFactory{
	AlgorithmPCG: func(seed uint64) Source {
		return &randSource{r: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	},
	AlgorithmChaCha8: func(seed uint64) Source {
		var key [32]byte
		for i := 0; i < 4; i++ {
			binary.LittleEndian.PutUint64(key[i*8:], seed+uint64(i)*0x9e3779b97f4a7c15)
		}
		return &randSource{r: mrand.New(mrand.NewChaCha8(key))}
	},
	AlgorithmCrypto: func(uint64) Source { return NewCryptoSource() },
}

// Algorithms returns the registered algorithm names in lexical order.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewSource builds the named algorithm seeded with seed. The crypto algorithm
// ignores the seed and is not reproducible.
//
// Postcondition: Returns a non-nil Source, or ErrUnknownAlgorithm.
func NewSource(name string, seed uint64) (Source, error) {
	f, ok := algorithms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownAlgorithm, name, Algorithms())
	}
	return f(seed), nil
}

// NewSeed returns a high-entropy seed from crypto/rand, for sessions that do
// not pin one.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("dice: reading random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// randSource adapts a math/rand/v2 generator to Source.
type randSource struct {
	r *mrand.Rand
}

func (s *randSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	return s.r.IntN(n)
}

func (s *randSource) Float64() float64 { return s.r.Float64() }

// cryptoSource implements Source using crypto/rand.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics if crypto/rand fails.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// Float64 returns a uniformly distributed value in [0, 1) built from 53
// random bits.
func (c *cryptoSource) Float64() float64 {
	return float64(c.Intn(1<<53)) / (1 << 53)
}
