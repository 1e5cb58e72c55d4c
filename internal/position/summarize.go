package position

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/svyatogor45/linekeeper/internal/models"
	"github.com/svyatogor45/linekeeper/pkg/utils"
)

// DefaultWindow is the lookback window used when querying wager histories
// for a refresh pass (spec §4.5: "default last 7 days").
const DefaultWindow = 7 * 24 * time.Hour

// stillOpen reports whether a wager's status still represents open
// matching potential, i.e. it should count toward total_unmatched.
func stillOpen(status models.WagerStatus) bool {
	switch status {
	case models.WagerOpen, models.WagerActive, models.WagerPartiallyMatched:
		return true
	default:
		return false
	}
}

// Summarize implements the Position Store's summarization rules (spec
// §4.5) over every WagerRecord already filtered to one line_id.
func Summarize(lineID string, records []models.WagerRecord, window time.Duration, now time.Time) models.LinePosition {
	lp := models.LinePosition{LineID: lineID}

	totalStake := decimal.Zero
	totalMatched := decimal.Zero
	totalUnmatchedOpen := decimal.Zero
	var lastFill time.Time
	hasOpen := false
	var fills []models.Fill

	cutoff := now.Add(-window)

	for _, r := range records {
		stake := decimal.NewFromFloat(r.Stake)
		matched := decimal.NewFromFloat(r.MatchedStake)

		totalStake = totalStake.Add(stake)
		totalMatched = totalMatched.Add(matched)

		if stillOpen(r.Status) {
			totalUnmatchedOpen = totalUnmatchedOpen.Add(stake.Sub(matched))
		}

		if r.MatchingStatus == models.MatchingUnmatched && (r.Status == models.WagerOpen || r.Status == models.WagerActive) {
			hasOpen = true
		}

		if r.MatchedStake > 0 {
			if r.UpdatedAt.After(lastFill) {
				lastFill = r.UpdatedAt
			}
			if r.UpdatedAt.After(cutoff) {
				fills = append(fills, models.Fill{
					WagerID:      r.WagerID,
					LineID:       lineID,
					MatchedStake: r.MatchedStake,
					UpdatedAt:    r.UpdatedAt,
				})
			}
		}
	}

	lp.TotalStake = toFloat(totalStake)
	lp.TotalMatched = toFloat(totalMatched)
	lp.TotalUnmatched = toFloat(totalUnmatchedOpen)
	lp.HasOpenWager = hasOpen
	if !lastFill.IsZero() {
		lp.LastFillTime = lastFill
	}
	lp.RecentFills = fills

	return lp
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return utils.RoundMoney(f)
}

// RecentFills filters a set of already-summarized positions down to fills
// observed within the given window of now, across multiple lines.
func RecentFills(positions map[string]models.LinePosition, window time.Duration, now time.Time) []models.Fill {
	cutoff := now.Add(-window)
	var out []models.Fill
	for _, lp := range positions {
		for _, f := range lp.RecentFills {
			if f.UpdatedAt.After(cutoff) {
				out = append(out, f)
			}
		}
	}
	return out
}
