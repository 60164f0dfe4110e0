package dice

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Stats counts provider draws for auditing. Total is the sum of every
// operation counter.
type Stats struct {
	Total    int64 `json:"total" yaml:"total"`
	Rolls    int64 `json:"rolls" yaml:"rolls"`
	Floats   int64 `json:"floats" yaml:"floats"`
	Weighted int64 `json:"weighted" yaml:"weighted"`
	Shuffles int64 `json:"shuffles" yaml:"shuffles"`
	Samples  int64 `json:"samples" yaml:"samples"`
	Exprs    int64 `json:"exprs" yaml:"exprs"`
}

// Provider is the single randomness entry point for the combat core.
//
// All draws are serialised behind a mutex so the algorithm may be swapped from
// another goroutine; the engine itself draws sequentially.
type Provider struct {
	mu        sync.Mutex
	src       Source
	algorithm string
	seed      uint64
	track     bool
	stats     Stats
	logger    *zap.Logger
}

// NewProvider wraps src. logger may be nil.
//
// Precondition: src must be non-nil.
func NewProvider(src Source, logger *zap.Logger) *Provider {
	if src == nil {
		panic("dice: NewProvider called with nil Source")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{src: src, algorithm: "custom", logger: logger}
}

// NewSeededProvider builds a Provider running the named algorithm.
//
// Postcondition: Returns a Provider or ErrUnknownAlgorithm.
func NewSeededProvider(algorithm string, seed uint64, logger *zap.Logger) (*Provider, error) {
	src, err := NewSource(algorithm, seed)
	if err != nil {
		return nil, err
	}
	p := NewProvider(src, logger)
	p.algorithm = algorithm
	p.seed = seed
	return p, nil
}

// SetAlgorithm swaps the underlying algorithm game-wide. Statistics are kept.
func (p *Provider) SetAlgorithm(name string, seed uint64) error {
	src, err := NewSource(name, seed)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.src = src
	p.algorithm = name
	p.seed = seed
	p.logger.Info("randomness algorithm changed",
		zap.String("algorithm", name),
		zap.Uint64("seed", seed),
	)
	return nil
}

// Algorithm returns the active algorithm name and its seed.
func (p *Provider) Algorithm() (string, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.algorithm, p.seed
}

// EnableStats turns draw counting on or off.
func (p *Provider) EnableStats(on bool) {
	p.mu.Lock()
	p.track = on
	p.mu.Unlock()
}

// Stats returns a copy of the draw counters.
func (p *Provider) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// ResetStats zeroes every counter.
func (p *Provider) ResetStats() {
	p.mu.Lock()
	p.stats = Stats{}
	p.mu.Unlock()
}

// count must be called with p.mu held.
func (p *Provider) count(c *int64) {
	if !p.track {
		return
	}
	*c++
	p.stats.Total++
}

// Roll returns an int in [min, max] inclusive.
//
// Postcondition: min <= result <= max, or ErrInvalidRange when min > max.
func (p *Provider) Roll(min, max int) (int, error) {
	if min > max {
		return 0, fmt.Errorf("%w: min %d > max %d", ErrInvalidRange, min, max)
	}
	// A negative span means max-min wrapped around.
	span := max - min
	if span < 0 || span == math.MaxInt {
		return 0, fmt.Errorf("%w: [%d, %d] is too wide", ErrInvalidRange, min, max)
	}
	p.mu.Lock()
	v := min + p.src.Intn(span+1)
	p.count(&p.stats.Rolls)
	p.mu.Unlock()
	p.logger.Debug("roll", zap.Int("min", min), zap.Int("max", max), zap.Int("result", v))
	return v, nil
}

// Percent draws one roll in [1, 100] and reports whether it is <= threshold.
// threshold is not clamped: values above 100 always succeed and values below
// 1 always fail.
func (p *Provider) Percent(threshold int) (int, bool) {
	v, _ := p.Roll(1, 100)
	return v, v <= threshold
}

// Float64 returns a uniform value in [0, 1).
func (p *Provider) Float64() float64 {
	p.mu.Lock()
	v := p.src.Float64()
	p.count(&p.stats.Floats)
	p.mu.Unlock()
	p.logger.Debug("float", zap.Float64("result", v))
	return v
}

// Chance reports true with probability prob. One draw is consumed even for
// degenerate probabilities so draw sequences do not depend on content values.
func (p *Provider) Chance(prob float64) bool {
	v := p.Float64()
	switch {
	case prob <= 0:
		return false
	case prob >= 1:
		return true
	}
	return v < prob
}

// WeightedIndex picks an index with probability proportional to its weight.
//
// Postcondition: Returns an index i with weights[i] > 0, or
// ErrInvalidDistribution for empty, negative, or all-zero weights.
func (p *Provider) WeightedIndex(weights []int) (int, error) {
	total := 0
	for i, w := range weights {
		if w < 0 {
			return 0, fmt.Errorf("%w: weight[%d] = %d is negative", ErrInvalidDistribution, i, w)
		}
		if w > math.MaxInt-total {
			return 0, fmt.Errorf("%w: weights overflow at index %d", ErrInvalidDistribution, i)
		}
		total += w
	}
	if total == 0 {
		return 0, fmt.Errorf("%w: %d weights sum to zero", ErrInvalidDistribution, len(weights))
	}
	p.mu.Lock()
	r := p.src.Intn(total)
	p.count(&p.stats.Weighted)
	p.mu.Unlock()

	idx := len(weights) - 1
	cumulative := 0
	for i, w := range weights {
		cumulative += w
		if r < cumulative {
			idx = i
			break
		}
	}
	p.logger.Debug("weighted pick", zap.Ints("weights", weights), zap.Int("index", idx))
	return idx, nil
}

// Shuffle permutes n elements with an unbiased Fisher-Yates pass.
//
// Precondition: n >= 0; swap must be non-nil.
func (p *Provider) Shuffle(n int, swap func(i, j int)) {
	if n < 0 {
		panic("dice: Shuffle called with n < 0")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := n - 1; i > 0; i-- {
		j := p.src.Intn(i + 1)
		swap(i, j)
	}
	p.count(&p.stats.Shuffles)
}

// Sample returns k distinct indices from [0, n) in selection order.
//
// Postcondition: len(result) == k, or ErrInvalidRange when k < 0, n < 0 or k > n.
func (p *Provider) Sample(n, k int) ([]int, error) {
	if n < 0 || k < 0 || k > n {
		return nil, fmt.Errorf("%w: cannot sample %d of %d", ErrInvalidRange, k, n)
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	p.mu.Lock()
	for i := 0; i < k; i++ {
		j := i + p.src.Intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	p.count(&p.stats.Samples)
	p.mu.Unlock()
	p.logger.Debug("sample", zap.Int("n", n), zap.Ints("picked", pool[:k]))
	return pool[:k], nil
}

// RollExpr parses and rolls a dice expression such as "2d6+3".
func (p *Provider) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return p.RollExpression(e), nil
}

// RollExpression rolls an already parsed expression. With KeepHighest set
// only that many of the highest dice are kept, largest first.
//
// Postcondition: Total() lies in [e.Min(), e.Max()].
func (p *Provider) RollExpression(e Expression) RollResult {
	faces := make([]int, e.Count)
	p.mu.Lock()
	for i := range faces {
		faces[i] = p.src.Intn(e.Sides) + 1
	}
	p.count(&p.stats.Exprs)
	p.mu.Unlock()

	if e.KeepHighest > 0 {
		slices.SortFunc(faces, func(a, b int) int { return b - a })
		faces = faces[:e.KeepHighest]
	}
	result := RollResult{Expression: e.Raw, Dice: faces, Modifier: e.Modifier}
	p.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}
