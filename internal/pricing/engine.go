// Package pricing implements the pure, deterministic math that turns a
// two-outcome reference market into a pair of exchange-side placement
// targets: hedge odds, commission adjustment, ladder snapping, and
// arbitrage-sized stakes. No function here performs I/O or blocks.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/svyatogor45/linekeeper/internal/models"
	"github.com/svyatogor45/linekeeper/pkg/utils"
)

// Config carries the tunable constants of the Pricing Engine. Defaults
// mirror the reference implementation's market-making strategy.
type Config struct {
	CommissionRate     float64 // default 0.03
	BasePlusStake      float64 // default 100
	PositionMultiplier float64 // default 5
	HardMaxPlus        float64 // default 500
	Ladder             Ladder
}

// DefaultConfig returns the documented defaults (spec §4.1/§6).
func DefaultConfig() Config {
	return Config{
		CommissionRate:     0.03,
		BasePlusStake:      100,
		PositionMultiplier: 5,
		HardMaxPlus:        500,
		Ladder:             DefaultLadder(),
	}
}

// SkipReason enumerates why a market was not priced this cycle.
type SkipReason string

const (
	SkipNone               SkipReason = ""
	SkipBothSameSign       SkipReason = "both_same_sign"
	SkipUnprofitable       SkipReason = "unprofitable"
	SkipMissingLineID      SkipReason = "missing_line_id"
	SkipFewerThanTwoOutcomes SkipReason = "fewer_than_two_outcomes"
)

// HedgeOdds returns the equal-and-opposite American odds the agent must
// post to offer the reference price to exchange users.
func HedgeOdds(referenceAmerican int) int {
	return -referenceAmerican
}

// EffectiveOdds applies the exchange's commission on net winnings.
func EffectiveOdds(american int, commissionRate float64) float64 {
	a := float64(american)
	if a > 0 {
		return a * (1 - commissionRate)
	}
	return a / (1 - commissionRate)
}

// Arbitrage is the outcome of sizing a two-sided market.
type Arbitrage struct {
	PlusStake         decimal.Decimal
	PlusWin           decimal.Decimal
	MinusStake        decimal.Decimal
	TotalInvestment   decimal.Decimal
	GuaranteedProfit  decimal.Decimal
	ProfitMarginPct   decimal.Decimal
	Profitable        bool
}

// ArbitrageSizing computes the stake pair that guarantees a profit margin
// given the post-commission effective odds of the plus and minus sides.
func ArbitrageSizing(effPlus, effMinus float64, basePlusStake float64) Arbitrage {
	plusStake := decimal.NewFromFloat(basePlusStake)
	hundred := decimal.NewFromInt(100)

	plusWin := plusStake.Mul(decimal.NewFromFloat(effPlus)).Div(hundred)
	absMinus := decimal.NewFromFloat(effMinus).Abs()
	minusStake := plusWin.Div(absMinus.Div(hundred))

	total := plusStake.Add(minusStake)
	profit := plusWin.Sub(total)

	var marginPct decimal.Decimal
	if !total.IsZero() {
		marginPct = profit.Div(total).Mul(hundred)
	}

	return Arbitrage{
		PlusStake:        plusStake,
		PlusWin:          plusWin,
		MinusStake:       minusStake,
		TotalInvestment:  total,
		GuaranteedProfit: profit,
		ProfitMarginPct:  marginPct,
		Profitable:       profit.IsPositive(),
	}
}

// PositionLimits derives max exposure and top-up increments per side.
type PositionLimits struct {
	MaxPlus      decimal.Decimal
	MaxMinus     decimal.Decimal
	IncrementPlus  decimal.Decimal
	IncrementMinus decimal.Decimal
}

// ComputePositionLimits implements spec §4.1's position_limits operation.
func ComputePositionLimits(arb Arbitrage, cfg Config) PositionLimits {
	capPlus := decimal.NewFromFloat(cfg.HardMaxPlus)
	byMultiplier := arb.PlusStake.Mul(decimal.NewFromFloat(cfg.PositionMultiplier))
	maxPlus := capPlus
	if byMultiplier.LessThan(capPlus) {
		maxPlus = byMultiplier
	}
	maxMinus := arb.MinusStake.Mul(decimal.NewFromFloat(cfg.PositionMultiplier))
	return PositionLimits{
		MaxPlus:        maxPlus,
		MaxMinus:       maxMinus,
		IncrementPlus:  arb.PlusStake,
		IncrementMinus: arb.MinusStake,
	}
}

// TwoSidedMarket holds the plus-side and minus-side reference outcomes of
// one two-outcome market.
type TwoSidedMarket struct {
	Plus  models.Outcome
	Minus models.Outcome
}

// Plan evaluates one two-outcome reference market and, if profitable,
// returns the plus/minus PricingTargets bound to the supplied line ids.
// It is the only place PricingTargets are minted (spec §4.4).
func Plan(outcomes []models.Outcome, plusLineID, minusLineID string, cfg Config) (plus, minus models.PricingTarget, reason SkipReason) {
	if len(outcomes) < 2 {
		return models.PricingTarget{}, models.PricingTarget{}, SkipFewerThanTwoOutcomes
	}
	if plusLineID == "" || minusLineID == "" {
		return models.PricingTarget{}, models.PricingTarget{}, SkipMissingLineID
	}

	a, b := outcomes[0], outcomes[1]
	hedgeA := HedgeOdds(a.AmericanOdds)
	hedgeB := HedgeOdds(b.AmericanOdds)

	effA := EffectiveOdds(hedgeA, cfg.CommissionRate)
	effB := EffectiveOdds(hedgeB, cfg.CommissionRate)

	var effPlus, effMinus float64
	var plusLine, minusLine string
	switch {
	case effA > 0 && effB < 0:
		effPlus, effMinus = effA, effB
		plusLine, minusLine = plusLineID, minusLineID
	case effB > 0 && effA < 0:
		effPlus, effMinus = effB, effA
		plusLine, minusLine = minusLineID, plusLineID
	default:
		return models.PricingTarget{}, models.PricingTarget{}, SkipBothSameSign
	}

	arb := ArbitrageSizing(effPlus, effMinus, cfg.BasePlusStake)
	if !arb.Profitable {
		return models.PricingTarget{}, models.PricingTarget{}, SkipUnprofitable
	}

	limits := ComputePositionLimits(arb, cfg)

	snappedPlus := cfg.Ladder.Snap(int(round(effPlus)))
	snappedMinus := cfg.Ladder.Snap(int(round(effMinus)))

	plus = models.PricingTarget{
		LineID:               plusLine,
		OddsToPost:           snappedPlus,
		TargetUnmatchedStake: toFloat(arb.PlusStake),
		Increment:            toFloat(limits.IncrementPlus),
		MaxPosition:          toFloat(limits.MaxPlus),
		Side:                 models.SidePlus,
	}
	minus = models.PricingTarget{
		LineID:               minusLine,
		OddsToPost:           snappedMinus,
		TargetUnmatchedStake: toFloat(arb.MinusStake),
		Increment:            toFloat(limits.IncrementMinus),
		MaxPosition:          toFloat(limits.MaxMinus),
		Side:                 models.SideMinus,
	}
	return plus, minus, SkipNone
}

func round(x float64) float64 {
	if x >= 0 {
		return float64(int(x + 0.5))
	}
	return float64(int(x - 0.5))
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return utils.RoundMoney(f)
}
