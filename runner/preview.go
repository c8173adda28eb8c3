// ABOUTME: Dry-run planning for outreach runs
// ABOUTME: Reports what a run would do for each due client without side effects
package runner

import (
	"context"
	"time"

	"github.com/harperreed/warmer/cadence"
	"github.com/harperreed/warmer/models"
)

// DueLister lists a company's due clients.
type DueLister interface {
	DueClients(ctx context.Context, companyID int64, now time.Time) ([]models.Client, error)
}

// Decision is the planned outcome for one client.
type Decision struct {
	Client models.Client  `json:"client"`
	Action *models.Action `json:"action,omitempty"`
	Trace  []string       `json:"trace"`
	// Next is the projected next contact date if the action is delivered at the planning time.
	Next *time.Time `json:"next_contact_date,omitempty"`
}

// Preview evaluates every due client at now without claiming, generating or sending.
func Preview(ctx context.Context, store DueLister, engine *cadence.Engine, companyID int64, now time.Time, fallbackDays int) ([]Decision, error) {
	clients, err := store.DueClients(ctx, companyID, now)
	if err != nil {
		return nil, err
	}
	if fallbackDays < 1 {
		fallbackDays = 180
	}

	decisions := make([]Decision, 0, len(clients))
	for i := range clients {
		client := clients[i]
		action, trace := engine.Trace(&client, now)
		d := Decision{Client: client, Action: action, Trace: trace}
		if action != nil {
			next := Advance(engine, &client, action, now, fallbackDays).NextContactDate
			d.Next = &next
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}
