package serial

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/seehuhn/mt19937"
)

// Allocator hands out serials and random numbers for one generation run.
// It is safe for concurrent use, but callers that need reproducible output
// must serialise their calls (the scheduler does this per production step).
type Allocator struct {
	mu   sync.Mutex
	rng  *rand.Rand
	seed int64
}

// New creates an allocator seeded with seed. Two allocators created with the
// same seed produce identical sequences.
func New(seed int64) *Allocator {
	mt := mt19937.New()
	mt.Seed(seed)
	return &Allocator{
		rng:  rand.New(mt),
		seed: seed,
	}
}

// NewUnseeded creates an allocator seeded from the wall clock.
func NewUnseeded() *Allocator {
	return New(time.Now().UnixNano())
}

// Seed returns the seed the allocator was created with.
func (a *Allocator) Seed() int64 {
	return a.seed
}

// Allocate returns count serials for an instance identifier.
//
// Range policies return consecutive values and advance p.RangeFrom by count.
// Static policies return p.Value count times. count <= 0 yields nil.
func (a *Allocator) Allocate(p *Policy, count int) ([]string, error) {
	return a.allocate(p, count, false)
}

// AllocateClass is Allocate for class identifiers: a static policy yields
// its value once regardless of count.
func (a *Allocator) AllocateClass(p *Policy, count int) ([]string, error) {
	return a.allocate(p, count, true)
}

func (a *Allocator) allocate(p *Policy, count int, class bool) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	switch {
	case p.Type == TypeRange:
		from := *p.RangeFrom
		out := make([]string, count)
		for i := range out {
			out[i] = strconv.FormatInt(from+int64(i), 10)
		}
		*p.RangeFrom = from + int64(count)
		return out, nil

	case p.Type == TypeRandom:
		chars, _ := p.Alphabet.chars()
		minLen, maxLen := *p.MinLength, *p.MaxLength

		a.mu.Lock()
		defer a.mu.Unlock()

		out := make([]string, count)
		buf := make([]byte, maxLen)
		for i := range out {
			n := minLen + a.rng.Intn(maxLen-minLen+1)
			for j := 0; j < n; j++ {
				buf[j] = chars[a.rng.Intn(len(chars))]
			}
			out[i] = string(buf[:n])
		}
		return out, nil

	default:
		if p.Value == "" {
			return nil, fmt.Errorf("%w: static policy requires a serial value", ErrMissingParameter)
		}
		if class {
			return []string{p.Value}, nil
		}
		out := make([]string, count)
		for i := range out {
			out[i] = p.Value
		}
		return out, nil
	}
}

// Intn returns a uniform value in [0, n). It panics if n <= 0.
func (a *Allocator) Intn(n int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Intn(n)
}

// Int63n returns a uniform value in [0, n). It panics if n <= 0.
func (a *Allocator) Int63n(n int64) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Int63n(n)
}

// Read fills p with pseudo-random bytes from the seeded stream. It never
// fails; it lets the allocator act as the entropy source for UUIDs.
func (a *Allocator) Read(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := 0; i < len(p); i += 8 {
		v := a.rng.Uint64()
		for j := 0; j < 8 && i+j < len(p); j++ {
			p[i+j] = byte(v >> (8 * j))
		}
	}
	return len(p), nil
}
