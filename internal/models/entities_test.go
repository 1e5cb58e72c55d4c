package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestReferenceEvent_OutcomesByKind(t *testing.T) {
	pt := 1.5
	ev := ReferenceEvent{
		EventID: "evt-1",
		Moneyline: []Outcome{
			{Name: "Home", AmericanOdds: -120},
			{Name: "Away", AmericanOdds: 110},
		},
		Spread: []Outcome{
			{Name: "Home", AmericanOdds: -110, Point: &pt},
		},
	}

	if len(ev.Outcomes(MarketMoneyline)) != 2 {
		t.Fatalf("ожидали 2 исхода moneyline, получили %d", len(ev.Outcomes(MarketMoneyline)))
	}
	if len(ev.Outcomes(MarketSpread)) != 1 {
		t.Fatalf("ожидали 1 исход spread, получили %d", len(ev.Outcomes(MarketSpread)))
	}
	if ev.Outcomes(MarketTotal) != nil {
		t.Fatalf("total не задан, ожидали nil")
	}
}

func TestWagerRecord_JSONRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	w := WagerRecord{
		WagerID:        "w-1",
		ExternalID:     "ext-1",
		LineID:         "line-1",
		PostedOdds:     120,
		Stake:          100,
		MatchedStake:   40,
		UnmatchedStake: 60,
		Status:         WagerPartiallyMatched,
		MatchingStatus: MatchingPartial,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded WagerRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Status != w.Status || decoded.MatchedStake != w.MatchedStake {
		t.Errorf("round trip mismatch: got %+v", decoded)
	}
}

func TestLineState_PhaseConstants(t *testing.T) {
	phases := []Phase{PhaseIdle, PhaseActive, PhaseWaitingAfterFill, PhaseInvalidated}
	seen := map[Phase]bool{}
	for _, p := range phases {
		if seen[p] {
			t.Fatalf("дублирующая фаза %s", p)
		}
		seen[p] = true
	}
}

func TestPricingTarget_ZeroValue(t *testing.T) {
	var target PricingTarget
	if target.OddsToPost != 0 || target.TargetUnmatchedStake != 0 {
		t.Errorf("нулевое значение должно быть нулевым")
	}
}

func TestLinePosition_EmptyFills(t *testing.T) {
	lp := LinePosition{LineID: "line-1"}
	data, err := json.Marshal(lp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded LinePosition
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.HasOpenWager {
		t.Error("по умолчанию HasOpenWager должен быть false")
	}
}
