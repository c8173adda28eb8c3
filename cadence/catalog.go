// ABOUTME: Cadence catalog: named, ordered, immutable outreach step sequences
// ABOUTME: Provides the closed set of cadence names and the default step definitions
package cadence

import (
	"errors"
	"fmt"
	"sort"

	"github.com/harperreed/warmer/models"
)

// Name identifies a cadence. Only the constants below are valid.
type Name string

const (
	LeadEngagement      Name = "LeadEngagement"
	NewClientOnboarding Name = "NewClientOnboarding"
	RenewalPush         Name = "RenewalPush"
	StandardNurture     Name = "StandardNurture"
	ReEngagement        Name = "ReEngagement"
)

var knownNames = map[Name]struct{}{
	LeadEngagement:      {},
	NewClientOnboarding: {},
	RenewalPush:         {},
	StandardNurture:     {},
	ReEngagement:        {},
}

// requiredNames are the cadences the decision rules transition into.
var requiredNames = []Name{NewClientOnboarding, RenewalPush, StandardNurture, ReEngagement}

var ErrInvalidCatalog = errors.New("invalid cadence catalog")

// ParseName maps a stored cadence name onto the closed enumeration.
// Unknown or legacy names return false.
func ParseName(s string) (Name, bool) {
	n := Name(s)
	if _, ok := knownNames[n]; !ok {
		return "", false
	}
	return n, true
}

func (n Name) String() string { return string(n) }

// Ptr returns the name as a *string for record fields.
func (n Name) Ptr() *string {
	s := string(n)
	return &s
}

// Catalog maps cadence names to their steps. It is read-only once built.
type Catalog struct {
	cadences map[Name][]models.Step
}

// NewCatalog copies the given definitions and validates them.
func NewCatalog(defs map[Name][]models.Step) (*Catalog, error) {
	c := &Catalog{cadences: make(map[Name][]models.Step, len(defs))}
	for name, steps := range defs {
		if _, ok := knownNames[name]; !ok {
			return nil, fmt.Errorf("%w: unknown cadence %q", ErrInvalidCatalog, name)
		}
		c.cadences[name] = append([]models.Step(nil), steps...)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every cadence the decision rules depend on is present and well formed.
func (c *Catalog) Validate() error {
	for _, name := range requiredNames {
		if _, ok := c.cadences[name]; !ok {
			return fmt.Errorf("%w: missing cadence %s", ErrInvalidCatalog, name)
		}
	}
	for name, steps := range c.cadences {
		if len(steps) == 0 {
			return fmt.Errorf("%w: cadence %s has no steps", ErrInvalidCatalog, name)
		}
		for i, step := range steps {
			if step.DelayDays < 0 {
				return fmt.Errorf("%w: cadence %s step %d has negative delay", ErrInvalidCatalog, name, i)
			}
			if step.Intent == "" {
				return fmt.Errorf("%w: cadence %s step %d has empty intent", ErrInvalidCatalog, name, i)
			}
		}
	}
	return nil
}

// Steps returns a copy of the named cadence's steps.
func (c *Catalog) Steps(name Name) ([]models.Step, bool) {
	steps, ok := c.cadences[name]
	if !ok {
		return nil, false
	}
	return append([]models.Step(nil), steps...), true
}

// Step returns the step at idx, or false when the cadence is unknown or idx is out of range.
func (c *Catalog) Step(name Name, idx int) (models.Step, bool) {
	steps, ok := c.cadences[name]
	if !ok || idx < 0 || idx >= len(steps) {
		return models.Step{}, false
	}
	return steps[idx], true
}

// Len returns the number of steps in the named cadence.
func (c *Catalog) Len(name Name) int {
	return len(c.cadences[name])
}

// Has reports whether the raw name resolves to a cadence present in this catalog.
func (c *Catalog) Has(raw string) bool {
	name, ok := ParseName(raw)
	if !ok {
		return false
	}
	_, ok = c.cadences[name]
	return ok
}

// Names returns the catalog's cadence names in sorted order.
func (c *Catalog) Names() []Name {
	names := make([]Name, 0, len(c.cadences))
	for name := range c.cadences {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := NewCatalog(defaultDefinitions())
	if err != nil {
		panic(err)
	}
	return c
}

func defaultDefinitions() map[Name][]models.Step {
	return map[Name][]models.Step{
		LeadEngagement: {
			{DelayDays: 0, Intent: "Write a personalized introduction email. Thank the lead for their interest, reference how we can address a specific pain point in their industry, and invite them to share their current challenges. Do not make up any details you don't know."},
			{DelayDays: 3, Intent: "Write a follow-up email offering a short demo or discovery call. Highlight one key feature relevant to their business. Ask if they have any questions. Do not invent any case studies or results."},
			{DelayDays: 10, Intent: "Write a value-focused email sharing a relevant industry insight or trend without making up data. Position us as a helpful resource and offer more information if they're interested."},
			{DelayDays: 20, Intent: "Write a gentle check-in email. Ask if they're still exploring solutions and offer to answer any questions. Keep it friendly and helpful, not pushy."},
		},
		NewClientOnboarding: {
			{DelayDays: 1, Intent: "Write a warm welcome email. Thank them for choosing us, set expectations for the partnership, and ask if they have any immediate questions. Include a direct phone number they can reach you at."},
			{DelayDays: 7, Intent: "Write a check-in email asking how their first week has been. Offer to schedule a brief call to ensure everything is going smoothly and address any concerns."},
			{DelayDays: 30, Intent: "Write a 30-day check-in email. Ask for feedback on their experience so far, mention a success story from a similar client, and see if there are any additional ways you can help their business."},
		},
		RenewalPush: {
			{DelayDays: 0, Intent: "Your partnership with us is expiring in 60 days. Write a warm, non-salesy email checking in. Mention something positive from their LinkedIn profile and ask if there's anything they need to ensure a smooth continuation."},
			{DelayDays: 15, Intent: "Following up, your partnership expires in 45 days. Write a slightly more direct email highlighting one key benefit they've received. Offer to schedule a brief call to discuss their renewal options."},
			{DelayDays: 30, Intent: "Partnership expires in 30 days. Write an email with urgency but a helpful tone. Highlight 2-3 specific benefits they've received and include a clear renewal link."},
			{DelayDays: 45, Intent: "Final reminder, the partnership expires in 15 days. Write a concise, helpful email with a clear call to action to renew. Keep the tone helpful, not desperate."},
		},
		StandardNurture: {
			{DelayDays: 0, Intent: "Write a casual check-in email. Mention something interesting from their company's recent news or their LinkedIn profile. Do not try to sell anything. The goal is simply to build rapport and stay top-of-mind."},
			{DelayDays: 30, Intent: "Write another casual check-in. Find a different piece of news or a different post from their LinkedIn. Ask a question about it to encourage a reply. Share a relevant industry insight."},
			{DelayDays: 60, Intent: "Write a value-add email. Share a relevant article, tip, or resource that could help their business. No sales pitch, just genuine value."},
			{DelayDays: 90, Intent: "Write a friendly check-in asking how their business is doing. Mention a recent anonymized success story from another client in their industry."},
		},
		ReEngagement: {
			{DelayDays: 0, Intent: "Write a re-engagement email. Acknowledge it's been a while since you connected. Ask if their priorities have changed and if there's anything new you can help with."},
			{DelayDays: 30, Intent: "Write a final re-engagement attempt. Offer to remove them from communications if they're not interested, but leave the door open for future contact."},
		},
	}
}
