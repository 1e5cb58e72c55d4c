// Package oddsclient fetches reference odds from the upstream aggregator
// and normalizes them into models.ReferenceEvent snapshots (spec §6,
// "reference odds feed").
package oddsclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/svyatogor45/linekeeper/internal/models"
	"github.com/svyatogor45/linekeeper/pkg/ratelimit"
	"github.com/svyatogor45/linekeeper/pkg/retry"
	"github.com/svyatogor45/linekeeper/pkg/utils"
)

// Config configures the Odds Client.
type Config struct {
	BaseURL             string
	APIKey              string
	Sport               string
	Bookmaker           string
	Markets             []models.MarketKind
	RequestTimeout      time.Duration
	MinRequestInterval  time.Duration // default 1s, spec §5
}

// DefaultConfig returns sane defaults for the reference feed client.
func DefaultConfig() Config {
	return Config{
		Sport:              "baseball",
		RequestTimeout:     30 * time.Second,
		MinRequestInterval: time.Second,
	}
}

// Client is the concrete HTTP adapter over the reference odds aggregator.
type Client struct {
	http    *resty.Client
	cfg     Config
	limiter *ratelimit.RateLimiter
}

// New builds a Client with a resty transport tuned like the reference
// engine's shared HTTP client (connection pooling, bounded timeouts), plus
// the mandated minimum inter-request interval.
func New(cfg Config) *Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetRetryCount(0) // retries are handled by pkg/retry so every attempt is logged uniformly

	rate := 1.0 / cfg.MinRequestInterval.Seconds()
	return &Client{
		http:    http,
		cfg:     cfg,
		limiter: ratelimit.NewRateLimiter(rate, 1),
	}
}

// rawEvent mirrors the aggregator's wire shape: an event with a list of
// bookmakers, each carrying markets of outcomes.
type rawEvent struct {
	ID           string    `json:"id"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	CommenceTime time.Time `json:"commence_time"`
	Bookmakers   []rawBookmaker `json:"bookmakers"`
}

type rawBookmaker struct {
	Key     string      `json:"key"`
	Markets []rawMarket `json:"markets"`
}

type rawMarket struct {
	Key      string       `json:"key"` // "h2h", "spreads", "totals"
	Outcomes []rawOutcome `json:"outcomes"`
}

type rawOutcome struct {
	Name  string   `json:"name"`
	Price int      `json:"price"`
	Point *float64 `json:"point,omitempty"`
}

var marketKeyToKind = map[string]models.MarketKind{
	"h2h":     models.MarketMoneyline,
	"spreads": models.MarketSpread,
	"totals":  models.MarketTotal,
}

// FetchSnapshot retrieves the current reference odds for the configured
// sport, returning one normalized ReferenceEvent per upstream event. Only
// the configured named bookmaker's markets are read.
func (c *Client) FetchSnapshot(ctx context.Context) ([]models.ReferenceEvent, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var raw []rawEvent
	op := func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("apiKey", c.cfg.APIKey).
			SetQueryParam("bookmakers", c.cfg.Bookmaker).
			SetQueryParam("oddsFormat", "american").
			SetResult(&raw).
			Get(fmt.Sprintf("/v4/sports/%s/odds", c.cfg.Sport))
		if err != nil {
			return retry.Temporary(err)
		}
		if resp.StatusCode() == 429 {
			return retry.Temporary(fmt.Errorf("rate limited by reference feed: %s", resp.Status()))
		}
		if resp.StatusCode() >= 500 {
			return retry.Temporary(fmt.Errorf("reference feed server error: %s", resp.Status()))
		}
		if resp.StatusCode() >= 400 {
			return retry.Permanent(fmt.Errorf("reference feed rejected request: %s", resp.Status()))
		}
		return nil
	}

	retryCfg := retry.NetworkConfig()
	retryCfg.RetryIf = retry.IsRetryable
	if err := retry.Do(ctx, op, retryCfg); err != nil {
		utils.L().Sugar().Warnw("reference feed fetch failed", "error", err)
		return nil, err
	}

	events := make([]models.ReferenceEvent, 0, len(raw))
	for _, re := range raw {
		ev := normalizeEvent(re, c.cfg.Bookmaker)
		warnIfImplausible(ev)
		events = append(events, ev)
	}
	return events, nil
}

// warnIfImplausible logs when a moneyline's odds don't look like American
// quotes or the two-outcome overround falls outside what a sharp book
// normally carries, which usually means the aggregator handed us stale or
// malformed data rather than a real mispricing.
func warnIfImplausible(ev models.ReferenceEvent) {
	if len(ev.Moneyline) < 2 {
		return
	}
	a, b := ev.Moneyline[0], ev.Moneyline[1]
	if err := utils.ValidateAmericanOdds(a.AmericanOdds); err != nil {
		utils.L().Sugar().Warnw("reference feed: implausible odds", "event_id", ev.EventID, "outcome", a.Name, "error", err)
	}
	if err := utils.ValidateAmericanOdds(b.AmericanOdds); err != nil {
		utils.L().Sugar().Warnw("reference feed: implausible odds", "event_id", ev.EventID, "outcome", b.Name, "error", err)
	}
	if or := utils.Overround(a.AmericanOdds, b.AmericanOdds); or < 0 || or > 0.15 {
		utils.L().Sugar().Warnw("reference feed: unusual overround", "event_id", ev.EventID, "overround", or)
	}
}

func normalizeEvent(re rawEvent, bookmaker string) models.ReferenceEvent {
	ev := models.ReferenceEvent{
		EventID:      re.ID,
		Home:         re.HomeTeam,
		Away:         re.AwayTeam,
		CommenceTime: re.CommenceTime,
	}
	for _, bm := range re.Bookmakers {
		if bm.Key != bookmaker {
			continue
		}
		for _, m := range bm.Markets {
			kind, ok := marketKeyToKind[m.Key]
			if !ok {
				continue
			}
			outcomes := make([]models.Outcome, 0, len(m.Outcomes))
			for _, o := range m.Outcomes {
				outcomes = append(outcomes, models.Outcome{Name: o.Name, AmericanOdds: o.Price, Point: o.Point})
			}
			switch kind {
			case models.MarketMoneyline:
				ev.Moneyline = outcomes
			case models.MarketSpread:
				ev.Spread = outcomes
			case models.MarketTotal:
				ev.Total = outcomes
			}
		}
	}
	return ev
}
