// Package retry provides polling strategies.
//
// A Strategy is pure configuration. Begin derives a Sequence from it, which
// lazily yields the wait before each attempt until either the attempt
// ceiling or the deadline (start + timeout) is reached.
//
//	seq := retry.Constant{MaxAttempts: 3, Interval: 2 * time.Second, Timeout: time.Minute}.Begin(time.Now)
//	for {
//	    wait, ok := seq.Next()
//	    if !ok {
//	        break // exhausted
//	    }
//	    time.Sleep(wait)
//	    // attempt
//	}
package retry

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Unbounded disables the attempt ceiling.
const Unbounded uint64 = math.MaxUint64

// NoTimeout disables the deadline.
const NoTimeout time.Duration = -1

// Strategy describes a polling policy.
type Strategy interface {
	// Begin starts a new sequence. The deadline is computed from now().
	Begin(now func() time.Time) Sequence
}

// Sequence yields wait durations. It is not safe for concurrent use.
type Sequence interface {
	// Next returns the wait before the next attempt, or false once the
	// sequence is exhausted.
	Next() (time.Duration, bool)
}

// Constant waits the same interval before every attempt.
type Constant struct {
	MaxAttempts uint64
	Interval    time.Duration
	// Timeout bounds the whole sequence. Zero yields no attempts;
	// NoTimeout disables the bound.
	Timeout time.Duration
}

func (c Constant) Begin(now func() time.Time) Sequence {
	return newBounded(c.MaxAttempts, c.Timeout, now, func(int) time.Duration {
		return c.Interval
	})
}

// Validate checks the interval invariant.
func (c Constant) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("constant strategy: interval must be positive, got %v", c.Interval)
	}
	return nil
}

// Exponential doubles (or multiplies) the wait after each attempt, capped at Max.
type Exponential struct {
	MaxAttempts uint64
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	Timeout     time.Duration
}

func (e Exponential) Begin(now func() time.Time) Sequence {
	return newBounded(e.MaxAttempts, e.Timeout, now, e.backoff)
}

func (e Exponential) backoff(attempt int) time.Duration {
	multiplier := e.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	delay := float64(e.Initial) * math.Pow(multiplier, float64(attempt))
	if e.Max > 0 && delay > float64(e.Max) {
		delay = float64(e.Max)
	}
	return time.Duration(delay)
}

func (e Exponential) Validate() error {
	if e.Initial <= 0 {
		return fmt.Errorf("exponential strategy: initial interval must be positive, got %v", e.Initial)
	}
	if e.Max > 0 && e.Max < e.Initial {
		return fmt.Errorf("exponential strategy: max interval %v below initial %v", e.Max, e.Initial)
	}
	return nil
}

// Jittered spreads the waits of Base by ±Fraction.
type Jittered struct {
	Base     Strategy
	Fraction float64
	// Rand returns values in [0, 1). Defaults to math/rand/v2.
	Rand func() float64
}

func (j Jittered) Begin(now func() time.Time) Sequence {
	r := j.Rand
	if r == nil {
		r = rand.Float64
	}
	return &jittered{base: j.Base.Begin(now), fraction: j.Fraction, rand: r}
}

func (j Jittered) Validate() error {
	if j.Base == nil {
		return errors.New("jittered strategy: base strategy is required")
	}
	if j.Fraction < 0 || j.Fraction >= 1 {
		return fmt.Errorf("jittered strategy: fraction must be in [0, 1), got %v", j.Fraction)
	}
	return Validate(j.Base)
}

// Validate checks s when it knows how to validate itself.
func Validate(s Strategy) error {
	if s == nil {
		return errors.New("strategy is nil")
	}
	if v, ok := s.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

type bounded struct {
	remaining   uint64
	deadline    time.Time
	hasDeadline bool
	now         func() time.Time
	attempt     int
	delay       func(attempt int) time.Duration
}

func newBounded(
	maxAttempts uint64,
	timeout time.Duration,
	now func() time.Time,
	delay func(int) time.Duration,
) *bounded {
	if now == nil {
		now = time.Now
	}
	s := &bounded{
		remaining: maxAttempts,
		now:       now,
		delay:     delay,
	}
	if timeout >= 0 {
		s.deadline = now().Add(timeout)
		s.hasDeadline = true
	}
	return s
}

func (s *bounded) Next() (time.Duration, bool) {
	if s.remaining == 0 {
		return 0, false
	}
	if s.hasDeadline && !s.now().Before(s.deadline) {
		return 0, false
	}
	s.remaining--
	d := s.delay(s.attempt)
	s.attempt++
	return d, true
}

type jittered struct {
	base     Sequence
	fraction float64
	rand     func() float64
}

func (s *jittered) Next() (time.Duration, bool) {
	d, ok := s.base.Next()
	if !ok {
		return 0, false
	}
	spread := float64(d) * s.fraction * (2*s.rand() - 1)
	d += time.Duration(spread)
	if d < 0 {
		d = 0
	}
	return d, true
}
