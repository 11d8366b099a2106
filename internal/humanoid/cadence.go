// Package humanoid paces synthetic typing so a page sees keystrokes arrive
// with human-like gaps.
package humanoid

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/vfs-autofill/internal/config"
)

// -- commonNgrams --
// Pairs and triples typed in one fluent motion get shorter gaps.
var commonNgrams = map[string]bool{
	"th": true, "he": true, "in": true, "er": true, "an": true, "re": true,
	"es": true, "on": true, "st": true, "nt": true,
	"the": true, "and": true, "ing": true, "ion": true, "tio": true,
	"19": true, "20": true, "00": true, "@g": true, ".co": true,
}

// Cadence produces inter-key pauses drawn from a normal distribution.
// It is safe for concurrent use.
type Cadence struct {
	mu     sync.Mutex
	rng    *rand.Rand
	mean   float64
	stdDev float64
	min    float64
	sleep  func(ctx context.Context, d time.Duration) error
}

// New returns a Cadence for cfg, or nil when pacing is disabled. A nil
// *Cadence is valid and never pauses.
func New(cfg config.HumanoidConfig) *Cadence {
	if !cfg.Enabled {
		return nil
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Cadence{
		rng:    rand.New(rand.NewSource(seed)),
		mean:   cfg.KeyHoldMeanMs,
		stdDev: cfg.KeyHoldStdDevMs,
		min:    cfg.KeyHoldMinMs,
		sleep:  sleepCtx,
	}
}

// Delay computes the pause before typing runes[index].
func (c *Cadence) Delay(runes []rune, index int) time.Duration {
	if c == nil {
		return 0
	}
	mean := c.mean
	minDelay := c.min
	ngramFactor := 1.0

	if index > 0 && index < len(runes) {
		if index >= 2 && commonNgrams[strings.ToLower(string(runes[index-2:index+1]))] {
			ngramFactor = 0.55
		}
		if ngramFactor == 1.0 && commonNgrams[strings.ToLower(string(runes[index-1:index+1]))] {
			ngramFactor = 0.7
		}
	}
	mean *= ngramFactor
	minDelay *= ngramFactor

	c.mu.Lock()
	randNorm := c.rng.NormFloat64()
	c.mu.Unlock()

	delay := math.Max(minDelay, randNorm*c.stdDev+mean)
	return time.Duration(delay * float64(time.Millisecond))
}

// Pause waits before typing runes[index]. It returns early with the
// context's error if ctx is done.
func (c *Cadence) Pause(ctx context.Context, runes []rune, index int) error {
	if c == nil {
		return ctx.Err()
	}
	return c.sleep(ctx, c.Delay(runes, index))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
