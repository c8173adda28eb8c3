// ABOUTME: Decision engine choosing the next outreach step for a client
// ABOUTME: Pure priority rules over client state, the catalog and the current time
package cadence

import (
	"fmt"
	"math"
	"time"

	"github.com/harperreed/warmer/models"
)

// RenewalWindowDays is how far ahead of expiration the renewal override fires.
const RenewalWindowDays = 60

// IndexPolicy maps a client onto a step index within its active cadence.
type IndexPolicy func(c *models.Client) int

// LifetimeIndex uses the lifetime message count as the step index.
// Switching cadences does not reset it: a client that enters RenewalPush
// after two nurture messages resumes RenewalPush at index 2 on its next
// continue decision.
func LifetimeIndex(c *models.Client) int {
	if c.TotalMessagesCount < 0 {
		return 0
	}
	return c.TotalMessagesCount
}

// ExhaustionPolicy controls what happens once ReEngagement itself runs out of steps.
type ExhaustionPolicy int

const (
	// RestartReEngagement sends ReEngagement's first step again every time the
	// cadence is found exhausted. Nothing ever clears the cadence, so a client
	// that finishes ReEngagement loops on its first step indefinitely.
	RestartReEngagement ExhaustionPolicy = iota
	// HoldAfterReEngagement stops producing actions once ReEngagement is exhausted.
	HoldAfterReEngagement
)

// Engine evaluates the priority rules. It performs no I/O.
type Engine struct {
	catalog    *Catalog
	index      IndexPolicy
	exhaustion ExhaustionPolicy
}

// Option configures an Engine.
type Option func(*Engine)

// WithIndexPolicy replaces the step index policy.
func WithIndexPolicy(p IndexPolicy) Option {
	return func(e *Engine) {
		if p != nil {
			e.index = p
		}
	}
}

// WithExhaustionPolicy replaces the ReEngagement exhaustion policy.
func WithExhaustionPolicy(p ExhaustionPolicy) Option {
	return func(e *Engine) { e.exhaustion = p }
}

// NewEngine creates an engine over a validated catalog.
func NewEngine(catalog *Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:    catalog,
		index:      LifetimeIndex,
		exhaustion: RestartReEngagement,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the engine's catalog.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// Exhaustion returns the ReEngagement exhaustion policy.
func (e *Engine) Exhaustion() ExhaustionPolicy { return e.exhaustion }

// StepIndexFor returns the step index the client is at within its active cadence.
func (e *Engine) StepIndexFor(c *models.Client) int {
	return e.index(c)
}

// Decide returns the action due for the client at now, or nil when nothing is due.
func (e *Engine) Decide(c *models.Client, now time.Time) *models.Action {
	return e.evaluate(c, now, func(string) {})
}

// Trace returns the decision together with the analysis lines behind it.
func (e *Engine) Trace(c *models.Client, now time.Time) (*models.Action, []string) {
	var lines []string
	action := e.evaluate(c, now, func(line string) { lines = append(lines, line) })
	return action, lines
}

// InReEngagementLoop reports whether the client has exhausted ReEngagement and
// will be restarted on its first step under RestartReEngagement.
func (e *Engine) InReEngagementLoop(c *models.Client) bool {
	name, ok := ParseName(c.CadenceName())
	if !ok || name != ReEngagement {
		return false
	}
	return e.StepIndexFor(c) >= e.catalog.Len(ReEngagement)
}

// NextDelay returns the delay of the step following a successful send, for the
// cadence the client is in after the action is applied. The client passed in
// must already carry its incremented message count.
func (e *Engine) NextDelay(c *models.Client) (int, bool) {
	name, ok := ParseName(c.CadenceName())
	if !ok {
		name = StandardNurture
	}
	step, ok := e.catalog.Step(name, e.StepIndexFor(c))
	if !ok {
		return 0, false
	}
	return step.DelayDays, true
}

func (e *Engine) evaluate(c *models.Client, now time.Time, trace func(string)) *models.Action {
	trace(fmt.Sprintf("Status: %s", c.Status))
	trace(fmt.Sprintf("Current cadence: %s", orNone(c.CadenceName())))
	trace(fmt.Sprintf("Total messages sent: %d", c.TotalMessagesCount))

	// Renewal override preempts any in-progress cadence.
	if c.ExpirationDate != nil {
		daysUntil := wholeDays(now, *c.ExpirationDate)
		trace(fmt.Sprintf("Days until expiration: %d", daysUntil))
		if daysUntil > 0 && daysUntil <= RenewalWindowDays && c.CadenceName() != string(RenewalPush) {
			trace("TRIGGER: starting RenewalPush cadence")
			return e.start(RenewalPush, fmt.Sprintf("expiration in %d days", daysUntil))
		}
	}

	name, recognized := ParseName(c.CadenceName())
	if recognized {
		_, recognized = e.catalog.Steps(name)
	}

	if recognized {
		idx := e.StepIndexFor(c)
		trace(fmt.Sprintf("Current cadence has %d steps", e.catalog.Len(name)))
		trace(fmt.Sprintf("Looking for step index: %d", idx))

		step, ok := e.catalog.Step(name, idx)
		if !ok {
			trace(fmt.Sprintf("END: reached end of %s cadence", name))
			if name == ReEngagement && e.exhaustion == HoldAfterReEngagement {
				trace("HOLD: ReEngagement exhausted")
				return nil
			}
			trace("TRIGGER: starting ReEngagement cadence")
			return e.start(ReEngagement, fmt.Sprintf("completed %s, starting re-engagement", name))
		}

		trace(fmt.Sprintf("Next step found: %d day delay required", step.DelayDays))
		if c.LastContactDate == nil {
			trace("TRIGGER: no last contact date, sending next step")
			return &models.Action{
				Step:      step,
				StepIndex: idx,
				Cadence:   string(name),
				Reason:    fmt.Sprintf("continuing %s, no prior contact", name),
			}
		}

		elapsed := wholeDays(*c.LastContactDate, now)
		trace(fmt.Sprintf("Days since last contact: %d", elapsed))
		if elapsed >= step.DelayDays {
			trace(fmt.Sprintf("TRIGGER: continuing %s cadence", name))
			return &models.Action{
				Step:      step,
				StepIndex: idx,
				Cadence:   string(name),
				Reason:    fmt.Sprintf("continuing %s, step %d", name, idx+1),
			}
		}
		trace(fmt.Sprintf("WAIT: need %d more days", step.DelayDays-elapsed))
		return nil
	}

	if c.TotalMessagesCount <= 0 {
		trace("TRIGGER: new client, starting onboarding")
		return e.start(NewClientOnboarding, "new client onboarding")
	}
	trace("TRIGGER: starting StandardNurture cadence")
	return e.start(StandardNurture, "starting standard nurture")
}

func (e *Engine) start(name Name, reason string) *models.Action {
	step, _ := e.catalog.Step(name, 0)
	return &models.Action{
		Step:           step,
		StepIndex:      0,
		Cadence:        string(name),
		Reason:         reason,
		NewCadenceName: name.Ptr(),
	}
}

// wholeDays counts days from a to b, rounding partial days up.
func wholeDays(a, b time.Time) int {
	return int(math.Ceil(b.Sub(a).Hours() / 24))
}

func orNone(s string) string {
	if s == "" {
		return "NONE"
	}
	return s
}
