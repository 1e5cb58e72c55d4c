package controller

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/svyatogor45/linekeeper/internal/models"
)

// Config tunes the Line Controller's safety guards (spec §4.6/§6).
type Config struct {
	CoolDown              time.Duration // W, default 300s
	SignificantMove       int           // Delta, default 5 American points
	DedupGuard            time.Duration // default 2 minutes
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		CoolDown:        300 * time.Second,
		SignificantMove: 5,
		DedupGuard:      2 * time.Minute,
	}
}

// ActionKind enumerates what the controller asked the Exchange Client to do.
type ActionKind string

const (
	ActionNone   ActionKind = "none"
	ActionPlace  ActionKind = "place"
	ActionCancel ActionKind = "cancel"
)

// Action is the single side effect the controller emits for a line in one
// evaluation. Fire-and-forget: the next cycle observes the outcome through
// the Position Store (spec §4.6 "Placement contract").
type Action struct {
	Kind       ActionKind
	LineID     string
	Odds       int
	Stake      float64
	ExternalID string
	Reason     string
}

// externalIDCounter is the process-wide monotonic counter backing
// external-id generation (spec I6, P6: "unique per placement attempt").
var externalIDCounter uint64

// NewExternalID mints a value guaranteed unique across the process
// lifetime: a monotonic counter combined with the line id and a timestamp,
// so even a retry after a crash-restart cannot collide with the counter
// alone.
func NewExternalID(lineID string, now time.Time) string {
	seq := atomic.AddUint64(&externalIDCounter, 1)
	return fmt.Sprintf("%s-%d-%d", lineID, now.UnixNano(), seq)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Evaluate applies the transition table of spec §4.6 to one line, given its
// current LineState, the latest LinePosition, and this cycle's
// PricingTarget (nil if the market was skipped this cycle). It returns the
// next LineState and at most one Action.
func Evaluate(state models.LineState, pos models.LinePosition, target *models.PricingTarget, now time.Time, cfg Config) (models.LineState, Action) {
	next := state
	next.LastObservedMatch = pos.TotalMatched

	// Fill detection: a positive delta on total_matched since the last
	// cycle counts as a new fill only in Active and WaitingAfterFill. In
	// Active it starts the cool-down clock, after the odds-move check;
	// WaitingAfterFill is already cooling down and does not restart it.
	fillDelta := pos.TotalMatched - state.LastObservedMatch
	newFill := fillDelta > 0 && (state.Phase == models.PhaseActive || state.Phase == models.PhaseWaitingAfterFill)

	switch state.Phase {
	case models.PhaseIdle, models.PhaseInvalidated:
		if target == nil {
			next.Phase = state.Phase
			return next, Action{Kind: ActionNone, Reason: "no pricing target"}
		}
		if dedupBlocked(state, now, cfg) {
			next.Phase = state.Phase
			return next, Action{Kind: ActionNone, Reason: "dedup guard active"}
		}
		if pos.TotalStake >= target.MaxPosition {
			next.Phase = state.Phase
			return next, Action{Kind: ActionNone, Reason: "position at cap"}
		}
		stake := min(target.TargetUnmatchedStake, target.MaxPosition-pos.TotalStake)
		if stake <= 0 {
			next.Phase = state.Phase
			return next, Action{Kind: ActionNone, Reason: "no capacity to place"}
		}
		extID := NewExternalID(target.LineID, now)
		next.Phase = models.PhaseActive
		next.LastPlacedOdds = target.OddsToPost
		next.LastPlacementAt = now
		next.CoolDownUntil = time.Time{}
		return next, Action{Kind: ActionPlace, LineID: target.LineID, Odds: target.OddsToPost, Stake: stake, ExternalID: extID, Reason: "initial placement"}

	case models.PhaseActive:
		if target != nil && abs(target.OddsToPost-state.LastPlacedOdds) >= cfg.SignificantMove {
			next.Phase = models.PhaseInvalidated
			next.CoolDownUntil = time.Time{}
			return next, Action{Kind: ActionCancel, LineID: pos.LineID, Reason: "odds moved beyond threshold"}
		}

		if newFill {
			next.Phase = models.PhaseWaitingAfterFill
			next.CoolDownUntil = now.Add(cfg.CoolDown)
			return next, Action{Kind: ActionNone, Reason: "fill observed, starting cool-down"}
		}

		if target == nil {
			next.Phase = models.PhaseActive
			return next, Action{Kind: ActionNone, Reason: "no pricing target this cycle"}
		}

		if alreadySatisfied(pos, *target) {
			next.Phase = models.PhaseActive
			return next, Action{Kind: ActionNone, Reason: "unmatched already at or above target"}
		}

		if pos.TotalUnmatched < target.TargetUnmatchedStake && !now.Before(state.CoolDownUntil) && pos.TotalStake < target.MaxPosition && !dedupBlocked(state, now, cfg) {
			gap := target.TargetUnmatchedStake - pos.TotalUnmatched
			room := target.MaxPosition - pos.TotalStake
			stake := min(target.Increment, min(room, gap))
			if stake > 0 {
				extID := NewExternalID(target.LineID, now)
				next.LastPlacementAt = now
				next.LastPlacedOdds = target.OddsToPost
				next.Phase = models.PhaseActive
				return next, Action{Kind: ActionPlace, LineID: target.LineID, Odds: target.OddsToPost, Stake: stake, ExternalID: extID, Reason: "top-up"}
			}
		}

		next.Phase = models.PhaseActive
		return next, Action{Kind: ActionNone, Reason: "no action needed"}

	case models.PhaseWaitingAfterFill:
		if target != nil && abs(target.OddsToPost-state.LastPlacedOdds) >= cfg.SignificantMove {
			next.Phase = models.PhaseInvalidated
			next.CoolDownUntil = time.Time{}
			return next, Action{Kind: ActionCancel, LineID: pos.LineID, Reason: "odds moved beyond threshold while waiting"}
		}
		if now.After(state.CoolDownUntil) || now.Equal(state.CoolDownUntil) {
			next.Phase = models.PhaseActive
			return next, Action{Kind: ActionNone, Reason: "cool-down elapsed"}
		}
		next.Phase = models.PhaseWaitingAfterFill
		return next, Action{Kind: ActionNone, Reason: "cool-down still active"}
	}

	next.Phase = models.PhaseIdle
	return next, Action{Kind: ActionNone, Reason: "unrecognized phase, resetting to idle"}
}

// dedupBlocked implements the "no placement within the last 2 minutes"
// safety guard (spec §4.6).
func dedupBlocked(state models.LineState, now time.Time, cfg Config) bool {
	if state.LastPlacementAt.IsZero() {
		return false
	}
	return now.Sub(state.LastPlacementAt) < cfg.DedupGuard
}

// alreadySatisfied implements "a line already has an open unmatched wager
// at the current target odds with unmatched >= target_unmatched".
func alreadySatisfied(pos models.LinePosition, target models.PricingTarget) bool {
	return pos.HasOpenWager && pos.TotalUnmatched >= target.TargetUnmatchedStake
}
