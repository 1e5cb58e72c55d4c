package exchangeclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/svyatogor45/linekeeper/internal/models"
	"github.com/svyatogor45/linekeeper/internal/resolver"
	"github.com/svyatogor45/linekeeper/pkg/retry"
	"github.com/svyatogor45/linekeeper/pkg/utils"
)

// Config configures the exchange client.
type Config struct {
	BaseURL        string
	AccessKey      string
	SecretKey      string
	Sandbox        bool
	RequestTimeout time.Duration
	DryRun         bool
}

// DefaultConfig returns sane transport defaults.
func DefaultConfig() Config {
	return Config{RequestTimeout: 15 * time.Second}
}

// Client is the concrete adapter over the betting exchange's partner API.
type Client struct {
	http *resty.Client
	cfg  Config
	auth *authState
}

// New builds a Client, ready to lazily authenticate on first call.
func New(cfg Config) *Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetRetryCount(0)
	return &Client{http: http, cfg: cfg, auth: &authState{}}
}

func retryNetwork() retry.Config {
	cfg := retry.NetworkConfig()
	cfg.RetryIf = retry.IsRetryable
	return cfg
}

func classify(resp *resty.Response, err error) error {
	if err != nil {
		return retry.Temporary(err)
	}
	if resp.StatusCode() == 429 {
		return retry.Temporary(fmt.Errorf("exchange rate limited: %s", resp.Status()))
	}
	if resp.StatusCode() >= 500 {
		return retry.Temporary(fmt.Errorf("exchange server error: %s", resp.Status()))
	}
	if resp.StatusCode() >= 400 {
		return retry.Permanent(fmt.Errorf("exchange rejected request: %s", resp.Status()))
	}
	return nil
}

// Tournament is a sport/category grouping of exchange events.
type Tournament struct {
	TournamentID int
	Name         string
	SportName    string
}

type tournamentsResponse struct {
	Data struct {
		Tournaments []struct {
			ID    int    `json:"id"`
			Name  string `json:"name"`
			Sport struct {
				Name string `json:"name"`
			} `json:"sport"`
		} `json:"tournaments"`
	} `json:"data"`
}

// ListTournaments returns every tournament the exchange lists. sportFilter
// is accepted but not applied: no filtering by sport happens here, so the
// result is the same whatever filter is passed.
func (c *Client) ListTournaments(ctx context.Context, sportFilter string) ([]Tournament, error) {
	var out tournamentsResponse
	op := func() error {
		req, err := c.authenticatedRequest(ctx)
		if err != nil {
			return retry.Permanent(err)
		}
		resp, err := req.SetResult(&out).Get("/partner/mm/get_tournaments")
		return classify(resp, err)
	}
	if err := retry.Do(ctx, op, retryNetwork()); err != nil {
		utils.L().Sugar().Warnw("list tournaments failed", "error", err)
		return nil, err
	}

	tournaments := make([]Tournament, 0, len(out.Data.Tournaments))
	for _, t := range out.Data.Tournaments {
		tournaments = append(tournaments, Tournament{TournamentID: t.ID, Name: t.Name, SportName: t.Sport.Name})
	}
	return tournaments, nil
}

type sportEventsResponse struct {
	Data struct {
		SportEvents []rawExchangeEvent `json:"sport_events"`
	} `json:"data"`
}

type rawExchangeEvent struct {
	EventID      int       `json:"event_id"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	Scheduled    time.Time `json:"scheduled"`
	Status       string    `json:"status"`
	Tournament   string    `json:"tournament_name"`
}

// ListEvents returns the not-yet-started events in a tournament.
func (c *Client) ListEvents(ctx context.Context, tournamentID int) ([]models.ExchangeEvent, error) {
	var out sportEventsResponse
	op := func() error {
		req, err := c.authenticatedRequest(ctx)
		if err != nil {
			return retry.Permanent(err)
		}
		resp, err := req.
			SetQueryParam("tournament_id", fmt.Sprintf("%d", tournamentID)).
			SetResult(&out).
			Get("/partner/mm/get_sport_events")
		return classify(resp, err)
	}
	if err := retry.Do(ctx, op, retryNetwork()); err != nil {
		utils.L().Sugar().Warnw("list events failed", "tournament_id", tournamentID, "error", err)
		return nil, err
	}

	events := make([]models.ExchangeEvent, 0, len(out.Data.SportEvents))
	for _, e := range out.Data.SportEvents {
		if e.Status != "" && e.Status != "not_started" {
			continue
		}
		events = append(events, models.ExchangeEvent{
			EventID:      e.EventID,
			Home:         e.HomeTeam,
			Away:         e.AwayTeam,
			CommenceTime: e.Scheduled,
			Tournament:   e.Tournament,
			Status:       e.Status,
		})
	}
	return events, nil
}

type marketsResponse struct {
	Data struct {
		Markets []struct {
			Category string `json:"category"`
			Type     string `json:"type"`
			Lines    []struct {
				LineID string   `json:"line_id"`
				Name   string   `json:"name"`
				Odds   *int     `json:"odds"`
				Point  *float64 `json:"point"`
			} `json:"lines"`
		} `json:"markets"`
	} `json:"data"`
}

// GetMarkets returns the raw exchange market tree for one event, ready to
// be handed to the market resolver.
func (c *Client) GetMarkets(ctx context.Context, eventID int) ([]resolver.ExchangeMarket, error) {
	var out marketsResponse
	op := func() error {
		req, err := c.authenticatedRequest(ctx)
		if err != nil {
			return retry.Permanent(err)
		}
		resp, err := req.
			SetQueryParam("event_id", fmt.Sprintf("%d", eventID)).
			SetResult(&out).
			Get("/partner/v2/mm/get_markets")
		return classify(resp, err)
	}
	if err := retry.Do(ctx, op, retryNetwork()); err != nil {
		utils.L().Sugar().Warnw("get markets failed", "event_id", eventID, "error", err)
		return nil, err
	}

	markets := make([]resolver.ExchangeMarket, 0, len(out.Data.Markets))
	for _, m := range out.Data.Markets {
		selections := make([]resolver.ExchangeSelection, 0, len(m.Lines))
		for _, l := range m.Lines {
			selections = append(selections, resolver.ExchangeSelection{
				LineID:        l.LineID,
				SelectionName: l.Name,
				Odds:          l.Odds,
				Point:         l.Point,
			})
		}
		markets = append(markets, resolver.ExchangeMarket{Category: m.Category, Type: m.Type, Selections: selections})
	}
	return markets, nil
}

// PlaceResult is what the exchange returned for a place_wager call.
type PlaceResult struct {
	WagerID    string
	ExternalID string
	DryRun     bool
}

type placeWagerResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// PlaceWager posts a new wager. In dry-run mode no network call is made and
// a synthetic wager id is returned, matching the reference engine's own
// dry-run short circuit.
func (c *Client) PlaceWager(ctx context.Context, lineID string, odds int, stake float64, externalID string) (PlaceResult, error) {
	if c.cfg.DryRun {
		return PlaceResult{WagerID: "dry_run_" + externalID, ExternalID: externalID, DryRun: true}, nil
	}

	var out placeWagerResponse
	op := func() error {
		req, err := c.authenticatedRequest(ctx)
		if err != nil {
			return retry.Permanent(err)
		}
		resp, err := req.
			SetBody(map[string]interface{}{
				"external_id": externalID,
				"line_id":     lineID,
				"odds":        odds,
				"stake":       stake,
			}).
			SetResult(&out).
			Post("/partner/mm/place_wager")
		return classify(resp, err)
	}
	if err := retry.Do(ctx, op, retryNetwork()); err != nil {
		utils.L().Sugar().Warnw("place wager failed", "line_id", lineID, "external_id", externalID, "error", err)
		return PlaceResult{}, err
	}

	wagerID := out.Data.ID
	if wagerID == "" {
		wagerID = externalID
	}
	return PlaceResult{WagerID: wagerID, ExternalID: externalID}, nil
}

// CancelWager cancels an open wager by its exchange-assigned id.
func (c *Client) CancelWager(ctx context.Context, wagerID string) error {
	if c.cfg.DryRun {
		return nil
	}

	op := func() error {
		req, err := c.authenticatedRequest(ctx)
		if err != nil {
			return retry.Permanent(err)
		}
		resp, err := req.
			SetBody(map[string]string{"wager_id": wagerID}).
			Post("/partner/mm/cancel_wager")
		return classify(resp, err)
	}
	if err := retry.Do(ctx, op, retryNetwork()); err != nil {
		utils.L().Sugar().Warnw("cancel wager failed", "wager_id", wagerID, "error", err)
		return err
	}
	return nil
}
