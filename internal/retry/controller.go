// Package retry decides when a scan needs another OCR attempt and on which
// image variant.
//
// One Controller drives one scan through
//
//	INITIAL -> OCR_RAN -> (NEEDS_RETRY -> OCR_RAN)* -> DONE
//
// Every recorded attempt consumes a distinct variant and the attempt count is
// capped, so DONE is always reached.
package retry

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"docverify/internal/domain"
)

// State is a controller state.
type State string

const (
	StateInitial    State = "INITIAL"
	StateOCRRan     State = "OCR_RAN"
	StateNeedsRetry State = "NEEDS_RETRY"
	StateDone       State = "DONE"
)

// Reason explains why the controller reached DONE.
type Reason string

const (
	ReasonSatisfied  Reason = "satisfied"
	ReasonAttemptCap Reason = "attempt_cap"
	ReasonExhausted  Reason = "exhausted"
	ReasonCanceled   Reason = "canceled"
)

// ErrInvalidTransition is returned when an attempt is recorded in a state that
// does not expect one.
var ErrInvalidTransition = errors.New("invalid retry transition")

// Policy configures retries. It is read-only once a scan starts.
type Policy struct {
	LowConfidenceThreshold       float64
	RetryLowConfidenceOnOriginal bool
	RetryMissingFields           bool
	TryRotations                 bool
	RotationAngles               []float64
	// MaxDeskewAngle is the tolerance in degrees within which rotation
	// variants add nothing over deskewing.
	MaxDeskewAngle float64
	MaxAttempts    int
}

// DefaultPolicy matches the service defaults.
func DefaultPolicy() Policy {
	return Policy{
		LowConfidenceThreshold:       0.55,
		RetryLowConfidenceOnOriginal: true,
		RetryMissingFields:           true,
		TryRotations:                 true,
		RotationAngles:               []float64{90, 180, 270},
		MaxDeskewAngle:               12,
		MaxAttempts:                  5,
	}
}

// Validate rejects policies that cannot run.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.LowConfidenceThreshold < 0 || p.LowConfidenceThreshold > 1 {
		return fmt.Errorf("low confidence threshold must be in [0,1], got %v", p.LowConfidenceThreshold)
	}
	if p.MaxDeskewAngle < 0 || p.MaxDeskewAngle >= 90 {
		return fmt.Errorf("max deskew angle must be in [0,90), got %v", p.MaxDeskewAngle)
	}
	for _, a := range p.RotationAngles {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return fmt.Errorf("rotation angle must be finite, got %v", a)
		}
	}
	return nil
}

// Controller is the per-scan retry state machine. It is not safe for
// concurrent use; a scan runs its attempts sequentially.
type Controller struct {
	policy   Policy
	state    State
	reason   Reason
	next     domain.Variant
	attempts []domain.ScanAttempt
	tried    []domain.Variant
	history  []State
	best     float64
}

// New creates a controller in INITIAL. An invalid MaxAttempts is raised to 1.
func New(policy Policy) *Controller {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Controller{
		policy:  policy,
		state:   StateInitial,
		next:    domain.Preprocessed,
		history: []State{StateInitial},
	}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Reason returns why the controller finished, or "" while running.
func (c *Controller) Reason() Reason { return c.reason }

// History returns every state visited, in order.
func (c *Controller) History() []State { return slices.Clone(c.history) }

// Attempts returns the recorded attempts in order.
func (c *Controller) Attempts() []domain.ScanAttempt { return slices.Clone(c.attempts) }

// BestConfidence is the highest aggregate confidence recorded so far.
func (c *Controller) BestConfidence() float64 { return c.best }

// Next returns the variant the next attempt should use, or false once the
// controller is done.
func (c *Controller) Next() (domain.Variant, bool) {
	if c.state != StateInitial && c.state != StateNeedsRetry {
		return domain.Variant{}, false
	}
	return c.next, true
}

// Record appends an attempt and decides whether another is needed. missing
// lists the required fields still unresolved after merging every attempt so
// far.
func (c *Controller) Record(attempt domain.ScanAttempt, missing []domain.FieldKind) (State, error) {
	if c.state != StateInitial && c.state != StateNeedsRetry {
		return c.state, fmt.Errorf("%w: record in %s", ErrInvalidTransition, c.state)
	}
	c.attempts = append(c.attempts, attempt)
	c.tried = append(c.tried, attempt.Variant)
	if !attempt.Failed() {
		c.best = max(c.best, attempt.Confidence)
	}
	c.transition(StateOCRRan)

	lowConf := c.policy.RetryLowConfidenceOnOriginal && c.best < c.policy.LowConfidenceThreshold
	missingRetry := c.policy.RetryMissingFields && len(missing) > 0
	failed := attempt.Failed()

	switch {
	case !lowConf && !missingRetry && !failed:
		c.finish(ReasonSatisfied)
	case len(c.attempts) >= c.policy.MaxAttempts:
		c.finish(ReasonAttemptCap)
	default:
		v, ok := c.pick(lowConf, missingRetry || failed)
		if !ok {
			c.finish(ReasonExhausted)
			break
		}
		c.next = v
		c.transition(StateNeedsRetry)
	}
	return c.state, nil
}

// Cancel stops the controller, for example when the caller's context ends.
func (c *Controller) Cancel() {
	if c.state != StateDone {
		c.finish(ReasonCanceled)
	}
}

// pick returns the first untried variant in preference order that one of the
// active retry conditions allows. Low confidence only justifies the original
// image; missing fields and failures also justify rotations.
func (c *Controller) pick(lowConf, needFields bool) (domain.Variant, bool) {
	for _, v := range c.Variants() {
		if slices.Contains(c.tried, v) {
			continue
		}
		switch v.Kind {
		case domain.VariantOriginal:
			if lowConf || needFields {
				return v, true
			}
		case domain.VariantRotated:
			if needFields && c.policy.TryRotations {
				return v, true
			}
		}
	}
	return domain.Variant{}, false
}

// Variants lists every variant in preference order: preprocessed, original,
// then each configured rotation that falls outside the deskew tolerance.
func (c *Controller) Variants() []domain.Variant {
	out := []domain.Variant{domain.Preprocessed, domain.Original}
	for _, a := range c.policy.RotationAngles {
		if angularDistance(a) <= c.policy.MaxDeskewAngle {
			continue
		}
		v := domain.Rotated(a)
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// angularDistance is the smallest rotation in degrees from angle to upright.
func angularDistance(angle float64) float64 {
	a := math.Mod(math.Abs(angle), 360)
	return min(a, 360-a)
}

func (c *Controller) transition(s State) {
	c.state = s
	c.history = append(c.history, s)
}

func (c *Controller) finish(r Reason) {
	c.reason = r
	c.transition(StateDone)
}
