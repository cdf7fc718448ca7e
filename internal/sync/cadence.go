package sync

import (
	"fmt"
	"math"
	"time"

	"github.com/nhle/gh-notifier/internal/model"
)

const (
	// GrowthFactor is applied to the interval after each empty cycle.
	GrowthFactor = 1.2

	// ResetThreshold is the number of consecutive empty cycles tolerated
	// before the interval is forced back to the base. The reset happens
	// on empty cycle ResetThreshold+1.
	ResetThreshold = 10
)

// FailurePolicy decides what a failed fetch does to the cadence.
type FailurePolicy int

const (
	// FailureHold leaves the cadence untouched on failure, so network
	// blips do not push polling towards the ceiling.
	FailureHold FailurePolicy = iota

	// FailureCountsAsEmpty treats a failed fetch like an empty one.
	FailureCountsAsEmpty
)

// ParseFailurePolicy maps a config value to a FailurePolicy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", model.FailurePolicyHold:
		return FailureHold, nil
	case model.FailurePolicyCountAsEmpty:
		return FailureCountsAsEmpty, nil
	default:
		return FailureHold, fmt.Errorf("unknown failure policy %q", s)
	}
}

// Trigger names the event that produced a cadence change.
type Trigger string

const (
	TriggerResults      Trigger = "results"
	TriggerEmpty        Trigger = "empty"
	TriggerCheckinReset Trigger = "checkin_reset"
	TriggerFailure      Trigger = "failure"
)

// CadenceState is the backoff state. Base <= Current <= Max always holds.
type CadenceState struct {
	Current     time.Duration
	Base        time.Duration
	Max         time.Duration
	EmptyStreak int
}

// CadenceChange describes one transition of the cadence state.
type CadenceChange struct {
	From    time.Duration
	To      time.Duration
	Trigger Trigger
	Streak  int

	// Reset is set when the empty streak hit the check-in threshold.
	Reset bool
}

// Changed reports whether the interval moved.
func (c CadenceChange) Changed() bool {
	return c.From != c.To
}

// Cadence is the backoff state machine driving the poll interval. It is
// not safe for concurrent use; the poll loop owns it.
type Cadence struct {
	state CadenceState
}

// NewCadence starts a cadence at base. A max below base is raised to base.
func NewCadence(base, max time.Duration) *Cadence {
	if max < base {
		max = base
	}
	return &Cadence{state: CadenceState{
		Current: base,
		Base:    base,
		Max:     max,
	}}
}

// State returns a copy of the current state.
func (c *Cadence) State() CadenceState {
	return c.state
}

// Interval is how long to wait before the next cycle.
func (c *Cadence) Interval() time.Duration {
	return c.state.Current
}

// Yielded records a cycle that delivered results: polling returns to the
// base interval immediately.
func (c *Cadence) Yielded() CadenceChange {
	from := c.state.Current
	c.state.Current = c.state.Base
	c.state.EmptyStreak = 0
	return CadenceChange{From: from, To: c.state.Current, Trigger: TriggerResults}
}

// Empty records a cycle without results and backs off gradually. After
// more than ResetThreshold consecutive empty cycles the interval is forced
// back to the base as a periodic check-in.
func (c *Cadence) Empty() CadenceChange {
	from := c.state.Current

	next := time.Duration(math.Round(float64(c.state.Current) * GrowthFactor))
	if next > c.state.Max {
		next = c.state.Max
	}
	c.state.Current = next
	c.state.EmptyStreak++

	if c.state.EmptyStreak > ResetThreshold {
		c.state.Current = c.state.Base
		c.state.EmptyStreak = 0
		return CadenceChange{From: from, To: c.state.Current, Trigger: TriggerCheckinReset, Reset: true}
	}

	return CadenceChange{
		From:    from,
		To:      c.state.Current,
		Trigger: TriggerEmpty,
		Streak:  c.state.EmptyStreak,
	}
}

// Failed records a failed fetch according to policy. The trigger is
// always TriggerFailure; a check-in reset is reported through Reset.
func (c *Cadence) Failed(policy FailurePolicy) CadenceChange {
	if policy == FailureCountsAsEmpty {
		change := c.Empty()
		change.Trigger = TriggerFailure
		return change
	}
	return CadenceChange{
		From:    c.state.Current,
		To:      c.state.Current,
		Trigger: TriggerFailure,
		Streak:  c.state.EmptyStreak,
	}
}
