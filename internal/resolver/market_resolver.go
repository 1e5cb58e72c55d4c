package resolver

import (
	"strings"

	"github.com/svyatogor45/linekeeper/internal/models"
)

// ExchangeSelection is one selection on an exchange market, as returned by
// the "get markets" operation (spec §6).
type ExchangeSelection struct {
	LineID        string
	SelectionName string
	Odds          *int
	Point         *float64
}

// ExchangeMarket groups selections under a category/type label.
type ExchangeMarket struct {
	Category string // e.g. "main game lines", "player props"
	Type     string // "moneyline", "spread", "total"
	Selections []ExchangeSelection
}

const mainGameLinesCategory = "main game lines"

// OutcomeMapping binds one reference outcome to an exchange line. Point is
// only populated for spread/total markets, per spec §9's "tagged variant"
// note — a moneyline mapping never carries one.
type OutcomeMapping struct {
	ReferenceOutcome models.Outcome
	LineID           string
	SelectionName    string
	Point            *float64
}

// MarketIssueKind distinguishes a hard matching failure from a merely
// unquoted-but-usable line (spec §4.3).
type MarketIssueKind string

const (
	IssueBlocking    MarketIssueKind = "blocking"
	IssueOpportunity MarketIssueKind = "opportunity"
)

// MarketIssue records why an outcome did not cleanly resolve.
type MarketIssue struct {
	Kind   MarketIssueKind
	Detail string
}

const pointTolerance = 0.1

// pointEpsilon absorbs float64 representation error, so that a difference
// of exactly 0.1 between decimal points (3.6 - 3.5 evaluates to
// 0.10000000000000009) still counts as within tolerance.
const pointEpsilon = 1e-9

func pointsEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	diff := *a - *b
	if diff < 0 {
		diff = -diff
	}
	return diff <= pointTolerance+pointEpsilon
}

// mainGameLines filters an exchange's market tree down to the category the
// agent is allowed to replicate on.
func mainGameLines(markets []ExchangeMarket) []ExchangeMarket {
	out := make([]ExchangeMarket, 0, len(markets))
	for _, m := range markets {
		if strings.EqualFold(m.Category, mainGameLinesCategory) {
			out = append(out, m)
		}
	}
	return out
}

func findMarketByType(markets []ExchangeMarket, kind models.MarketKind) *ExchangeMarket {
	for i := range markets {
		if models.MarketKind(strings.ToLower(markets[i].Type)) == kind {
			return &markets[i]
		}
	}
	return nil
}

// ResolveMoneyline matches the two reference moneyline outcomes against an
// exchange moneyline market's selections by normalized team name.
func ResolveMoneyline(outcomes []models.Outcome, markets []ExchangeMarket) ([]OutcomeMapping, []MarketIssue) {
	market := findMarketByType(mainGameLines(markets), models.MarketMoneyline)
	if market == nil {
		return nil, []MarketIssue{{IssueBlocking, "no moneyline market in main game lines"}}
	}
	return resolveByName(outcomes, market.Selections, false)
}

// ResolveSpread matches by team name and point equality within ±0.1.
func ResolveSpread(outcomes []models.Outcome, markets []ExchangeMarket) ([]OutcomeMapping, []MarketIssue) {
	market := findMarketByType(mainGameLines(markets), models.MarketSpread)
	if market == nil {
		return nil, []MarketIssue{{IssueBlocking, "no spread market in main game lines"}}
	}
	return resolveByName(outcomes, market.Selections, true)
}

// ResolveTotal matches by Over/Under label and point equality within ±0.1.
func ResolveTotal(outcomes []models.Outcome, markets []ExchangeMarket) ([]OutcomeMapping, []MarketIssue) {
	market := findMarketByType(mainGameLines(markets), models.MarketTotal)
	if market == nil {
		return nil, []MarketIssue{{IssueBlocking, "no total market in main game lines"}}
	}
	return resolveByName(outcomes, market.Selections, true)
}

func resolveByName(outcomes []models.Outcome, selections []ExchangeSelection, requirePoint bool) ([]OutcomeMapping, []MarketIssue) {
	var mappings []OutcomeMapping
	var issues []MarketIssue

	for _, o := range outcomes {
		var best *ExchangeSelection
		bestScore := 0.0
		for i := range selections {
			s := &selections[i]
			if requirePoint && !pointsEqual(o.Point, s.Point) {
				continue
			}
			score := teamScore(o.Name, s.SelectionName)
			if score > bestScore {
				bestScore = score
				best = s
			}
		}
		if best == nil || bestScore < 0.7 {
			issues = append(issues, MarketIssue{IssueBlocking, "no selection matched outcome " + o.Name})
			continue
		}

		mapping := OutcomeMapping{ReferenceOutcome: o, LineID: best.LineID, SelectionName: best.SelectionName}
		if requirePoint {
			mapping.Point = best.Point
		}
		if best.LineID == "" {
			issues = append(issues, MarketIssue{IssueBlocking, "matched selection has no line_id"})
			continue
		}
		if best.Odds == nil {
			issues = append(issues, MarketIssue{IssueOpportunity, "line usable but currently unquoted"})
		}
		mappings = append(mappings, mapping)
	}

	return mappings, issues
}

// Ready reports whether both outcomes of a two-outcome market resolved to a
// line_id (spec §4.3: "A market is ready when both outcomes resolve to a
// line_id").
func Ready(mappings []OutcomeMapping, issues []MarketIssue) bool {
	if len(mappings) != 2 {
		return false
	}
	for _, iss := range issues {
		if iss.Kind == IssueBlocking {
			return false
		}
	}
	return true
}
