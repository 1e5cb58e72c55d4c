// Package resolver matches reference events to exchange events (spec §4.2)
// and, for a confirmed pairing, maps reference market outcomes to exchange
// line identifiers (spec §4.3). Every exported function here is pure: it
// takes already-fetched snapshots and returns a decision, never performing
// I/O itself.
package resolver

import (
	"sort"
	"strings"
	"time"

	"github.com/svyatogor45/linekeeper/internal/models"
)

// EventConfig tunes the Event Resolver's acceptance behavior.
type EventConfig struct {
	ConfidenceThreshold float64
	TimeToleranceMinutes float64
	// ManualOverrides maps a reference event id to the exchange event id it
	// must pair with, bypassing scoring entirely (confidence 1.0).
	ManualOverrides map[string]int
}

// DefaultEventConfig matches the confirmed defaults (spec §9 open question
// resolution: 0.7 threshold).
func DefaultEventConfig() EventConfig {
	return EventConfig{
		ConfidenceThreshold:  0.7,
		TimeToleranceMinutes: 15,
		ManualOverrides:      map[string]int{},
	}
}

// NoMatch explains why no candidate was accepted for a reference event.
type NoMatch struct {
	ReferenceEventID string
	Reason           string
	BestScore        float64
}

// normalize lowercases, strips punctuation, and collapses whitespace.
func normalize(s string) string {
	var b strings.Builder
	lastWasSpace := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasSpace = false
		case r == ' ', r == '\t', r == '\n':
			if !lastWasSpace {
				b.WriteRune(' ')
				lastWasSpace = true
			}
		default:
			// punctuation dropped
		}
	}
	return strings.TrimSpace(b.String())
}

// timeScore implements the piecewise time-proximity score from spec §4.2.
func timeScore(delta time.Duration, toleranceMinutes float64) (float64, bool) {
	abs := delta
	if abs < 0 {
		abs = -abs
	}
	minutes := abs.Minutes()
	switch {
	case minutes <= 5:
		return 1.0, true
	case minutes <= 10:
		return 0.9, true
	case minutes <= 15:
		return 0.7, true
	default:
		if minutes <= toleranceMinutes {
			return 0.7, true
		}
		return 0, false
	}
}

// teamScore scores how well two normalized names match using exact,
// substring, word-Jaccard, and character-level fallback tiers.
func teamScore(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 0.95
	}

	wa := strings.Fields(na)
	wb := strings.Fields(nb)
	jaccard := jaccardIndex(wa, wb)
	if jaccard > 0 {
		boosted := jaccard + 0.2
		if boosted > 0.95 {
			boosted = 0.95
		}
		return boosted
	}

	return charSimilarity(na, nb)
}

func jaccardIndex(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for w := range setA {
		if setB[w] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func toSet(words []string) map[string]bool {
	s := make(map[string]bool, len(words))
	for _, w := range words {
		s[w] = true
	}
	return s
}

// charSimilarity is a Ratcliff/Obershelp-style ratio: twice the size of the
// longest-common-substring recursion over the total length of both strings.
func charSimilarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	matches := matchingChars(a, b)
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}
	return 2.0 * float64(matches) / float64(total)
}

func matchingChars(a, b string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	aStart, bStart, length := longestCommonSubstring(a, b)
	if length == 0 {
		return 0
	}
	matches := length
	matches += matchingChars(a[:aStart], b[:bStart])
	matches += matchingChars(a[aStart+length:], b[bStart+length:])
	return matches
}

// longestCommonSubstring returns the start offsets in a and b of their
// longest common substring, and its length.
func longestCommonSubstring(a, b string) (aStart, bStart, length int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}
	best, bestI, bestJ := 0, 0, 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
				if dp[i][j] > best {
					best = dp[i][j]
					bestI, bestJ = i, j
				}
			}
		}
	}
	return bestI - best, bestJ - best, best
}

// Confidence computes the 0.4*time + 0.6*team confidence score for one
// reference/exchange event candidate, trying both home/away orientations
// and keeping the better one, per spec §4.2.
func Confidence(ref models.ReferenceEvent, exch models.ExchangeEvent, cfg EventConfig) (score float64, reasons []string, ok bool) {
	ts, withinTolerance := timeScore(ref.CommenceTime.Sub(exch.CommenceTime), cfg.TimeToleranceMinutes)
	if !withinTolerance {
		return 0, []string{"time delta exceeds tolerance"}, false
	}

	straight := teamScore(ref.Home, exch.Home) + teamScore(ref.Away, exch.Away)
	crossed := teamScore(ref.Home, exch.Away) + teamScore(ref.Away, exch.Home)

	var teamAvg float64
	var orientation string
	if straight >= crossed {
		teamAvg = straight / 2
		orientation = "home-home"
	} else {
		teamAvg = crossed / 2
		orientation = "home-away (crossed)"
	}

	score = 0.4*ts + 0.6*teamAvg
	reasons = []string{orientation}
	return score, reasons, true
}

// FindMatch evaluates every candidate exchange event for one reference
// event and returns the accepted pairing, or a NoMatch explaining the
// rejection.
func FindMatch(ref models.ReferenceEvent, candidates []models.ExchangeEvent, cfg EventConfig, now time.Time) (models.EventPairing, *NoMatch) {
	if exchangeID, ok := cfg.ManualOverrides[ref.EventID]; ok {
		return models.EventPairing{
			ReferenceEventID: ref.EventID,
			ExchangeEventID:  exchangeID,
			Confidence:       1.0,
			Reasons:          []string{"manual override"},
			Manual:           true,
			ResolvedAt:       now,
		}, nil
	}

	type scored struct {
		event   models.ExchangeEvent
		score   float64
		reasons []string
	}
	var potentials []scored
	for _, c := range candidates {
		score, reasons, ok := Confidence(ref, c, cfg)
		if !ok {
			continue
		}
		if score >= displayThreshold(cfg.ConfidenceThreshold) {
			potentials = append(potentials, scored{c, score, reasons})
		}
	}

	if len(potentials) == 0 {
		return models.EventPairing{}, &NoMatch{ReferenceEventID: ref.EventID, Reason: "no candidate above display threshold", BestScore: 0}
	}

	sort.Slice(potentials, func(i, j int) bool { return potentials[i].score > potentials[j].score })
	best := potentials[0]

	if best.score < cfg.ConfidenceThreshold {
		return models.EventPairing{}, &NoMatch{ReferenceEventID: ref.EventID, Reason: "best candidate below confidence threshold", BestScore: best.score}
	}

	return models.EventPairing{
		ReferenceEventID: ref.EventID,
		ExchangeEventID:  best.event.EventID,
		Confidence:       best.score,
		Reasons:          best.reasons,
		Manual:           false,
		ResolvedAt:       now,
	}, nil
}

// displayThreshold floors candidate consideration slightly below the
// acceptance threshold so near-miss candidates still surface in
// diagnostics even when rejected.
func displayThreshold(acceptance float64) float64 {
	t := acceptance - 0.3
	if t < 0 {
		return 0
	}
	return t
}
