// Package controller implements the Line Controller: the per-line state
// machine that decides when to place, top up, wait, or invalidate and
// reprice a line's wagers (spec §4.6).
package controller

import "github.com/svyatogor45/linekeeper/internal/models"

// validTransitions documents the state graph; Evaluate never produces a
// transition outside this table. Kept as an explicit map, mirroring the
// reference engine's own state-machine validation, so a future reviewer
// can see the whole graph at a glance instead of inferring it from
// scattered conditionals.
var validTransitions = map[models.Phase][]models.Phase{
	models.PhaseIdle:             {models.PhaseIdle, models.PhaseActive},
	models.PhaseActive:           {models.PhaseActive, models.PhaseWaitingAfterFill, models.PhaseInvalidated},
	models.PhaseWaitingAfterFill: {models.PhaseActive, models.PhaseWaitingAfterFill, models.PhaseInvalidated},
	models.PhaseInvalidated:      {models.PhaseInvalidated, models.PhaseActive},
}

// CanTransition reports whether moving from one phase to another is a
// legal edge in the state graph.
func CanTransition(from, to models.Phase) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
