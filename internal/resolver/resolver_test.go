package resolver

import (
	"testing"
	"time"

	"github.com/svyatogor45/linekeeper/internal/models"
)

func TestConfidence_ExactMatchAndProximTime(t *testing.T) {
	now := time.Now()
	ref := models.ReferenceEvent{EventID: "r1", Home: "New York Yankees", Away: "Boston Red Sox", CommenceTime: now}
	exch := models.ExchangeEvent{EventID: 1, Home: "New York Yankees", Away: "Boston Red Sox", CommenceTime: now.Add(2 * time.Minute)}

	cfg := DefaultEventConfig()
	score, _, ok := Confidence(ref, exch, cfg)
	if !ok {
		t.Fatalf("expected a valid score")
	}
	if score < cfg.ConfidenceThreshold {
		t.Errorf("exact team match with close start time should clear threshold, got %f", score)
	}
}

func TestConfidence_TimeOutsideTolerance(t *testing.T) {
	now := time.Now()
	ref := models.ReferenceEvent{EventID: "r1", Home: "Yankees", Away: "Red Sox", CommenceTime: now}
	exch := models.ExchangeEvent{EventID: 1, Home: "Yankees", Away: "Red Sox", CommenceTime: now.Add(30 * time.Minute)}

	cfg := DefaultEventConfig()
	_, _, ok := Confidence(ref, exch, cfg)
	if ok {
		t.Errorf("expected rejection beyond time tolerance")
	}
}

func TestFindMatch_ManualOverrideBypassesScoring(t *testing.T) {
	now := time.Now()
	ref := models.ReferenceEvent{EventID: "r1", Home: "Totally Different Name", Away: "Another Name", CommenceTime: now}
	candidates := []models.ExchangeEvent{{EventID: 42, Home: "Unrelated", Away: "Team", CommenceTime: now.Add(5 * time.Hour)}}

	cfg := DefaultEventConfig()
	cfg.ManualOverrides = map[string]int{"r1": 42}

	pairing, noMatch := FindMatch(ref, candidates, cfg, now)
	if noMatch != nil {
		t.Fatalf("manual override should never produce NoMatch, got %+v", noMatch)
	}
	if pairing.ExchangeEventID != 42 || pairing.Confidence != 1.0 || !pairing.Manual {
		t.Errorf("unexpected pairing: %+v", pairing)
	}
}

func TestFindMatch_BelowThresholdRejected(t *testing.T) {
	now := time.Now()
	ref := models.ReferenceEvent{EventID: "r1", Home: "Zzz Team One", Away: "Zzz Team Two", CommenceTime: now}
	candidates := []models.ExchangeEvent{{EventID: 1, Home: "Totally Unrelated A", Away: "Totally Unrelated B", CommenceTime: now}}

	cfg := DefaultEventConfig()
	_, noMatch := FindMatch(ref, candidates, cfg, now)
	if noMatch == nil {
		t.Fatalf("expected NoMatch for unrelated team names")
	}
}

func TestPointsEqual_Boundary(t *testing.T) {
	a := 3.5
	b1 := 3.6 // diff 0.1 exactly -> match
	b2 := 3.61 // diff 0.11 -> no match
	if !pointsEqual(&a, &b1) {
		t.Errorf("diff of exactly 0.1 should match")
	}
	if pointsEqual(&a, &b2) {
		t.Errorf("diff of 0.11 should not match")
	}
}

func TestResolveMoneyline_UnquotedLineIsOpportunityNotBlocking(t *testing.T) {
	outcomes := []models.Outcome{
		{Name: "Home Team", AmericanOdds: -120},
		{Name: "Away Team", AmericanOdds: 110},
	}
	markets := []ExchangeMarket{
		{
			Category: "main game lines",
			Type:     "moneyline",
			Selections: []ExchangeSelection{
				{LineID: "L1", SelectionName: "Home Team", Odds: intPtr(-118)},
				{LineID: "L2", SelectionName: "Away Team", Odds: nil},
			},
		},
	}

	mappings, issues := ResolveMoneyline(outcomes, markets)
	if !Ready(mappings, issues) {
		t.Fatalf("market should be ready even with one unquoted selection, issues=%+v", issues)
	}
	foundOpportunity := false
	for _, iss := range issues {
		if iss.Kind == IssueOpportunity {
			foundOpportunity = true
		}
	}
	if !foundOpportunity {
		t.Errorf("expected an opportunity issue for the unquoted line")
	}
}

func intPtr(v int) *int { return &v }
