// Package scheduler drives the per-cycle pipeline that ties every other
// component together: Odds Client -> Event Resolver -> Market Resolver ->
// Pricing Engine -> Position Store -> Line Controller -> Exchange Client
// (spec §4.7). It owns the only background loops in the agent besides the
// Exchange Client's own auth-refresh timer.
package scheduler

import (
	"time"

	"github.com/svyatogor45/linekeeper/internal/controller"
	"github.com/svyatogor45/linekeeper/internal/pricing"
	"github.com/svyatogor45/linekeeper/internal/resolver"
)

// Config tunes the Scheduler's cycle cadence and safety margins.
type Config struct {
	// Period is T, the target spacing between cycle starts.
	Period time.Duration
	// StopMargin is how far before commence_time an event is dropped from
	// the active set.
	StopMargin time.Duration
	// CancelOnStopMargin, when true, cancels open wagers on a line whose
	// event just left the active set instead of leaving them to the
	// exchange's own lifecycle.
	CancelOnStopMargin bool
	// MaxConcurrentOutbound bounds how many PlaceWager/CancelWager calls run
	// at once within a single cycle.
	MaxConcurrentOutbound int
	// AuthRefreshInterval is how often the independent auth-refresh task
	// checks the exchange token's expiry.
	AuthRefreshInterval time.Duration
	// MinCycleSlack is the minimum gap enforced between the end of one
	// cycle and the start of the next, even when the cycle overran T.
	MinCycleSlack time.Duration
	// TournamentSport is passed to ExchangeClient.ListTournaments as its
	// sport filter. exchangeclient.Client does not apply that filter, so
	// with the real client every listed tournament is in scope.
	TournamentSport string

	Event      resolver.EventConfig
	Pricing    pricing.Config
	Controller controller.Config
}

// DefaultConfig returns the documented defaults (spec §4.7/§9).
func DefaultConfig() Config {
	return Config{
		Period:                60 * time.Second,
		StopMargin:            15 * time.Minute,
		CancelOnStopMargin:    false,
		MaxConcurrentOutbound: 10,
		AuthRefreshInterval:   30 * time.Second,
		MinCycleSlack:         5 * time.Second,
		TournamentSport:       "baseball",
		Event:                 resolver.DefaultEventConfig(),
		Pricing:               pricing.DefaultConfig(),
		Controller:            controller.DefaultConfig(),
	}
}
