// Package models содержит сущности доменной модели line keeper: события
// источника котировок, события и линии биржи, ставки и их агрегаты.
package models

import "time"

// MarketKind различает типы рынков с двумя исходами, которые реплицирует агент.
type MarketKind string

const (
	MarketMoneyline MarketKind = "moneyline"
	MarketSpread    MarketKind = "spread"
	MarketTotal     MarketKind = "total"
)

// Side — сторона после учёта комиссии: Plus для положительных эффективных
// котировок, Minus для отрицательных.
type Side string

const (
	SidePlus  Side = "plus"
	SideMinus Side = "minus"
)

// Outcome — один исход рынка источника котировок с американской котировкой
// и, для spread/total, точкой (point).
type Outcome struct {
	Name        string   `json:"name"`
	AmericanOdds int     `json:"american_odds"`
	Point       *float64 `json:"point,omitempty"`
}

// ReferenceEvent — событие, полученное от источника котировок за один цикл.
// Неизменяемо в пределах цикла.
type ReferenceEvent struct {
	EventID      string    `json:"event_id"`
	Home         string    `json:"home"`
	Away         string    `json:"away"`
	CommenceTime time.Time `json:"commence_time"`
	Moneyline    []Outcome `json:"moneyline,omitempty"`
	Spread       []Outcome `json:"spread,omitempty"`
	Total        []Outcome `json:"total,omitempty"`
}

// Outcomes возвращает исходы указанного типа рынка, если они есть.
func (e ReferenceEvent) Outcomes(kind MarketKind) []Outcome {
	switch kind {
	case MarketMoneyline:
		return e.Moneyline
	case MarketSpread:
		return e.Spread
	case MarketTotal:
		return e.Total
	default:
		return nil
	}
}

// ExchangeEvent — событие, как его видит биржа.
type ExchangeEvent struct {
	EventID      int       `json:"event_id"`
	Home         string    `json:"home"`
	Away         string    `json:"away"`
	CommenceTime time.Time `json:"commence_time"`
	Tournament   string    `json:"tournament"`
	Status       string    `json:"status"`
}

// EventPairing — подтверждённое соответствие события источника и события биржи.
type EventPairing struct {
	ReferenceEventID string    `json:"reference_event_id"`
	ExchangeEventID  int       `json:"exchange_event_id"`
	Confidence       float64   `json:"confidence"`
	Reasons          []string  `json:"reasons"`
	Manual           bool      `json:"manual"`
	ResolvedAt       time.Time `json:"resolved_at"`
}

// LineRef — конкретная биржевая линия, на которую сопоставлен исход источника.
type LineRef struct {
	LineID        string     `json:"line_id"`
	SelectionName string     `json:"selection_name"`
	MarketKind    MarketKind `json:"market_kind"`
	Point         *float64   `json:"point,omitempty"`
	Side          Side       `json:"side"`
}

// PricingTarget — вычисленная цель размещения для одной линии на текущий цикл.
type PricingTarget struct {
	LineID              string  `json:"line_id"`
	OddsToPost          int     `json:"odds_to_post"`
	TargetUnmatchedStake float64 `json:"target_unmatched_stake"`
	Increment           float64 `json:"increment"`
	MaxPosition         float64 `json:"max_position"`
	Side                Side    `json:"side"`
}

// WagerStatus перечисляет статусы ставки на бирже.
type WagerStatus string

const (
	WagerOpen             WagerStatus = "open"
	WagerActive           WagerStatus = "active"
	WagerMatched          WagerStatus = "matched"
	WagerPartiallyMatched WagerStatus = "partially_matched"
	WagerCancelled        WagerStatus = "cancelled"
	WagerExpired          WagerStatus = "expired"
	WagerSettled          WagerStatus = "settled"
	WagerVoid             WagerStatus = "void"
)

// MatchingStatus отражает, что биржа сообщает о степени сведения ставки.
type MatchingStatus string

const (
	MatchingUnmatched MatchingStatus = "unmatched"
	MatchingPartial   MatchingStatus = "partially_matched"
	MatchingFull      MatchingStatus = "matched"
)

// WagerRecord — авторитетная копия ставки, полученная от Exchange Client.
// Никогда не модифицируется локально, только перечитывается с биржи.
type WagerRecord struct {
	WagerID        string         `json:"wager_id"`
	ExternalID     string         `json:"external_id"`
	LineID         string         `json:"line_id"`
	PostedOdds     int            `json:"posted_odds"`
	Stake          float64        `json:"stake"`
	MatchedStake   float64        `json:"matched_stake"`
	UnmatchedStake float64        `json:"unmatched_stake"`
	Status         WagerStatus    `json:"status"`
	MatchingStatus MatchingStatus `json:"matching_status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	// Inferred помечает записи, синтезированные из 404 на индивидуальном
	// lookup, а не полученные напрямую из истории ставок.
	Inferred bool `json:"inferred,omitempty"`
}

// Fill — наблюдаемое сведение ставки с положительным matched_stake.
type Fill struct {
	WagerID      string    `json:"wager_id"`
	LineID       string    `json:"line_id"`
	MatchedStake float64   `json:"matched_stake"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LinePosition — агрегат по линии, пересчитываемый каждый цикл из WagerRecord.
type LinePosition struct {
	LineID         string    `json:"line_id"`
	TotalStake     float64   `json:"total_stake"`
	TotalMatched   float64   `json:"total_matched"`
	TotalUnmatched float64   `json:"total_unmatched"`
	HasOpenWager   bool      `json:"has_open_wager"`
	LastFillTime   time.Time `json:"last_fill_time,omitempty"`
	RecentFills    []Fill    `json:"recent_fills,omitempty"`
}

// Phase перечисляет состояния Line Controller.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseActive           Phase = "active"
	PhaseWaitingAfterFill Phase = "waiting_after_fill"
	PhaseInvalidated      Phase = "invalidated"
)

// LineState — состояние, которым владеет Line Controller для одной линии.
type LineState struct {
	LineID           string    `json:"line_id"`
	Phase            Phase     `json:"phase"`
	CoolDownUntil    time.Time `json:"cool_down_until,omitempty"`
	LastPlacedOdds   int       `json:"last_placed_odds"`
	LastObservedMatch float64  `json:"last_observed_match"`
	LastPlacementAt  time.Time `json:"last_placement_at,omitempty"`
}
