// ABOUTME: Tests for the cadence catalog and YAML loading
// ABOUTME: Validates name parsing, immutability and startup validation failures
package cadence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/warmer/models"
)

func TestParseName(t *testing.T) {
	for _, name := range []Name{LeadEngagement, NewClientOnboarding, RenewalPush, StandardNurture, ReEngagement} {
		parsed, ok := ParseName(string(name))
		assert.True(t, ok)
		assert.Equal(t, name, parsed)
	}

	_, ok := ParseName("Drip2019")
	assert.False(t, ok)
	_, ok = ParseName("")
	assert.False(t, ok)
}

func TestDefaultCatalogShape(t *testing.T) {
	c := Default()

	assert.Equal(t, 4, c.Len(LeadEngagement))
	assert.Equal(t, 3, c.Len(NewClientOnboarding))
	assert.Equal(t, 4, c.Len(RenewalPush))
	assert.Equal(t, 4, c.Len(StandardNurture))
	assert.Equal(t, 2, c.Len(ReEngagement))

	step, ok := c.Step(NewClientOnboarding, 1)
	require.True(t, ok)
	assert.Equal(t, 7, step.DelayDays)

	_, ok = c.Step(NewClientOnboarding, 3)
	assert.False(t, ok)
	_, ok = c.Step(NewClientOnboarding, -1)
	assert.False(t, ok)

	assert.True(t, c.Has("RenewalPush"))
	assert.False(t, c.Has("Unknown"))
	assert.Equal(t, []Name{LeadEngagement, NewClientOnboarding, ReEngagement, RenewalPush, StandardNurture}, c.Names())
}

func TestCatalogStepsAreCopies(t *testing.T) {
	c := Default()
	steps, ok := c.Steps(ReEngagement)
	require.True(t, ok)
	steps[0].Intent = "mutated"

	again, _ := c.Steps(ReEngagement)
	assert.NotEqual(t, "mutated", again[0].Intent)
}

func TestNewCatalogValidation(t *testing.T) {
	valid := func() map[Name][]models.Step {
		return map[Name][]models.Step{
			NewClientOnboarding: {{DelayDays: 1, Intent: "welcome"}},
			RenewalPush:         {{DelayDays: 0, Intent: "renew"}},
			StandardNurture:     {{DelayDays: 0, Intent: "nurture"}},
			ReEngagement:        {{DelayDays: 0, Intent: "re-engage"}},
		}
	}

	_, err := NewCatalog(valid())
	require.NoError(t, err)

	missing := valid()
	delete(missing, ReEngagement)
	_, err = NewCatalog(missing)
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	empty := valid()
	empty[StandardNurture] = nil
	_, err = NewCatalog(empty)
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	negative := valid()
	negative[RenewalPush] = []models.Step{{DelayDays: -1, Intent: "renew"}}
	_, err = NewCatalog(negative)
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	blank := valid()
	blank[RenewalPush] = []models.Step{{DelayDays: 0}}
	_, err = NewCatalog(blank)
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	unknown := valid()
	unknown[Name("Mystery")] = []models.Step{{Intent: "?"}}
	_, err = NewCatalog(unknown)
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}

const catalogYAML = `
cadences:
  NewClientOnboarding:
    - delay_days: 2
      intent: "Say hello."
  RenewalPush:
    - delay_days: 0
      intent: "Renewal is close."
    - delay_days: 10
      intent: "Renewal follow-up."
  StandardNurture:
    - delay_days: 0
      intent: "Check in."
  ReEngagement:
    - delay_days: 0
      intent: "Long time no see."
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadences.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0600))

	c, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len(RenewalPush))
	step, ok := c.Step(NewClientOnboarding, 0)
	require.True(t, ok)
	assert.Equal(t, models.Step{DelayDays: 2, Intent: "Say hello."}, step)
	assert.False(t, c.Has("LeadEngagement"))
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	_, err := Parse([]byte("cadences:\n  Mystery:\n    - delay_days: 0\n      intent: x\n"))
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	_, err = Parse([]byte("cadences:\n  RenewalPush:\n    - delay: 0\n"))
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	_, err = Parse([]byte("cadences:\n  RenewalPush:\n    - delay_days: 0\n      intent: x\n"))
	assert.ErrorIs(t, err, ErrInvalidCatalog, "required cadences are missing")

	_, err = LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
