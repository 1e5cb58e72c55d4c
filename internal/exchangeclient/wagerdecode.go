package exchangeclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/svyatogor45/linekeeper/internal/models"
	"github.com/svyatogor45/linekeeper/pkg/retry"
	"github.com/svyatogor45/linekeeper/pkg/utils"
)

// WagerLookupResult is the explicit sum of what a single-wager lookup can
// come back as (spec §9 "explicit result sums" — a nil/ok pair hides which
// of these three very different situations happened).
type WagerLookupResult struct {
	kind        wagerLookupKind
	wager       models.WagerRecord
	retryAfter  time.Duration
	err         error
}

type wagerLookupKind int

const (
	lookupFound wagerLookupKind = iota
	lookupNotFound
	lookupRateLimited
	lookupTransient
)

// FoundResult builds a WagerLookupResult for a successful single-wager
// lookup. Exported so ExchangeClient test doubles outside this package can
// construct realistic return values for GetWager.
func FoundResult(w models.WagerRecord) WagerLookupResult {
	return WagerLookupResult{kind: lookupFound, wager: w}
}

// NotFoundResult builds the 404 case. See FoundResult.
func NotFoundResult() WagerLookupResult { return WagerLookupResult{kind: lookupNotFound} }

// RateLimitedResult builds the 429 case. See FoundResult.
func RateLimitedResult(retryAfter time.Duration) WagerLookupResult {
	return WagerLookupResult{kind: lookupRateLimited, retryAfter: retryAfter}
}

// TransientResult builds the network/5xx case. See FoundResult.
func TransientResult(err error) WagerLookupResult {
	return WagerLookupResult{kind: lookupTransient, err: err}
}

// Found reports whether the lookup returned a wager, and the wager itself.
func (r WagerLookupResult) Found() (models.WagerRecord, bool) {
	return r.wager, r.kind == lookupFound
}

// IsNotFound reports whether the exchange returned 404 for this wager.
// Per spec's open-question resolution, a 404 on an individually looked-up
// wager is treated as "matched in full and settled off the book" rather
// than an error, since the reference engine never deletes wager history.
func (r WagerLookupResult) IsNotFound() bool { return r.kind == lookupNotFound }

// IsRateLimited reports whether the exchange asked the caller to back off,
// and for how long.
func (r WagerLookupResult) IsRateLimited() (time.Duration, bool) {
	return r.retryAfter, r.kind == lookupRateLimited
}

// Err returns the underlying transient error, if any.
func (r WagerLookupResult) Err() error {
	if r.kind == lookupTransient {
		return r.err
	}
	return nil
}

type rawWager struct {
	ID             string    `json:"id"`
	ExternalID     string    `json:"external_id"`
	LineID         string    `json:"line_id"`
	Odds           int       `json:"odds"`
	Stake          float64   `json:"stake"`
	MatchedStake   float64   `json:"matched_stake"`
	Status         string    `json:"status"`
	MatchingStatus string    `json:"matching_status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func decodeWager(rw rawWager) models.WagerRecord {
	return models.WagerRecord{
		WagerID:        rw.ID,
		ExternalID:     rw.ExternalID,
		LineID:         rw.LineID,
		PostedOdds:     rw.Odds,
		Stake:          rw.Stake,
		MatchedStake:   rw.MatchedStake,
		UnmatchedStake: rw.Stake - rw.MatchedStake,
		Status:         models.WagerStatus(rw.Status),
		MatchingStatus: models.MatchingStatus(rw.MatchingStatus),
		CreatedAt:      rw.CreatedAt,
		UpdatedAt:      rw.UpdatedAt,
	}
}

// GetWager looks up a single wager by its exchange-assigned id, returning
// the explicit sum type rather than (record, error) — a plain 404 here is
// not a failure, and callers must not conflate it with a network error.
func (c *Client) GetWager(ctx context.Context, wagerID string) WagerLookupResult {
	var out struct {
		Data rawWager `json:"data"`
	}
	var statusCode int
	var retryAfterHeader string

	op := func() error {
		req, err := c.authenticatedRequest(ctx)
		if err != nil {
			return retry.Permanent(err)
		}
		resp, err := req.SetResult(&out).Get(fmt.Sprintf("/partner/mm/get_wager/%s", wagerID))
		if err != nil {
			return retry.Temporary(err)
		}
		statusCode = resp.StatusCode()
		retryAfterHeader = resp.Header().Get("Retry-After")
		if statusCode == 404 {
			return nil // не временная ошибка, решаем исход после Do
		}
		return classify(resp, err)
	}

	if err := retry.Do(ctx, op, retryNetwork()); err != nil {
		if statusCode == 429 {
			return RateLimitedResult(parseRetryAfter(retryAfterHeader))
		}
		utils.L().Sugar().Warnw("get wager failed", "wager_id", wagerID, "error", err)
		return TransientResult(err)
	}

	if statusCode == 404 {
		return NotFoundResult()
	}
	return FoundResult(decodeWager(out.Data))
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 5 * time.Second
}

type wagerHistoriesResponse struct {
	Data struct {
		Wagers     []rawWager `json:"wagers"`
		NextCursor string     `json:"next_cursor"`
	} `json:"data"`
}

// WagerHistories paginates through the exchange's wager history endpoint,
// filtered by updated-since, and returns every page's records flattened.
func (c *Client) WagerHistories(ctx context.Context, updatedAtFrom time.Time) ([]models.WagerRecord, error) {
	var all []models.WagerRecord
	cursor := ""

	for {
		var out wagerHistoriesResponse
		op := func() error {
			req, err := c.authenticatedRequest(ctx)
			if err != nil {
				return retry.Permanent(err)
			}
			r := req.
				SetQueryParam("updated_at_from", fmt.Sprintf("%d", updatedAtFrom.Unix())).
				SetQueryParam("limit", "1000").
				SetResult(&out)
			if cursor != "" {
				r = r.SetQueryParam("next_cursor", cursor)
			}
			resp, err := r.Get("/partner/v2/mm/get_wager_histories")
			return classify(resp, err)
		}
		if err := retry.Do(ctx, op, retryNetwork()); err != nil {
			utils.L().Sugar().Warnw("wager histories page failed", "error", err)
			return nil, err
		}

		for _, rw := range out.Data.Wagers {
			all = append(all, decodeWager(rw))
		}

		if out.Data.NextCursor == "" {
			break
		}
		cursor = out.Data.NextCursor
	}

	return all, nil
}
