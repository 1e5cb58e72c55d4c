package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/svyatogor45/linekeeper/internal/controller"
	"github.com/svyatogor45/linekeeper/internal/exchangeclient"
	"github.com/svyatogor45/linekeeper/internal/models"
	"github.com/svyatogor45/linekeeper/internal/position"
	"github.com/svyatogor45/linekeeper/internal/pricing"
	"github.com/svyatogor45/linekeeper/internal/resolver"
	"github.com/svyatogor45/linekeeper/internal/wsadmin"
	"github.com/svyatogor45/linekeeper/pkg/utils"
)

// OddsClient is the subset of exchangeclient's reference-feed counterpart
// the Scheduler needs. Kept as an interface so cycle logic can be tested
// against a fake instead of a live HTTP transport.
type OddsClient interface {
	FetchSnapshot(ctx context.Context) ([]models.ReferenceEvent, error)
}

// ExchangeClient is the subset of exchangeclient.Client the Scheduler
// drives every cycle.
type ExchangeClient interface {
	ListTournaments(ctx context.Context, sportFilter string) ([]exchangeclient.Tournament, error)
	ListEvents(ctx context.Context, tournamentID int) ([]models.ExchangeEvent, error)
	GetMarkets(ctx context.Context, eventID int) ([]resolver.ExchangeMarket, error)
	PlaceWager(ctx context.Context, lineID string, odds int, stake float64, externalID string) (exchangeclient.PlaceResult, error)
	CancelWager(ctx context.Context, wagerID string) error
	WagerHistories(ctx context.Context, updatedAtFrom time.Time) ([]models.WagerRecord, error)
	GetWager(ctx context.Context, wagerID string) exchangeclient.WagerLookupResult
	EnsureAuth(ctx context.Context) error
}

// Broadcaster is the live-push surface the Scheduler pushes through after
// every line evaluation and every completed cycle.
type Broadcaster interface {
	BroadcastLineUpdate(lineID string, state models.LineState, pos models.LinePosition)
	BroadcastCycleSummary(summary wsadmin.CycleSummary)
}

// Blacklist reports whether the operator has manually excluded a reference
// event from replication. Checked once per cycle, before the Event
// Resolver even runs, so an excluded event never occupies a pairing slot.
type Blacklist interface {
	IsExcluded(referenceEventID string) (bool, error)
}

// Notifier forwards scheduler-driven events into the admin notification
// log. Matches service.NotificationService's convenience constructors
// exactly, so that type satisfies this interface with no adapter.
type Notifier interface {
	PlacementNotification(lineID, message string, meta map[string]interface{}) error
	CancelNotification(lineID, message string, meta map[string]interface{}) error
	InvalidatedNotification(lineID, message string, meta map[string]interface{}) error
	ErrorNotification(lineID *string, message string, meta map[string]interface{}) error
}

// lineMapping is what the Market Resolver produced for one line this
// cycle: which reference event it belongs to, so a dropped event can tear
// down its lines even when the Pricing Engine skipped them.
type lineMapping struct {
	referenceEventID string
}

// Scheduler drives the cycle described in spec §4.7. It owns every piece
// of state that must survive across cycles: resolved pairings, per-line
// controller state, and manual overrides. The Position Store and Exchange
// Client remain the source of truth for anything authoritative; what the
// Scheduler keeps here is bookkeeping for the next cycle's comparisons.
type Scheduler struct {
	cfg Config

	odds     OddsClient
	exchange ExchangeClient
	store    *position.Store
	hub      Broadcaster

	blacklist Blacklist
	notifier  Notifier

	overrides *overrideStore

	mu          sync.RWMutex
	running     bool
	cycleNumber uint64
	pairings    map[string]models.EventPairing
	lineStates  map[string]models.LineState
	lineMeta    map[string]lineMapping
	lastSummary wsadmin.CycleSummary
	lastRef     []models.ReferenceEvent
	lastExch    []models.ExchangeEvent
	// openWagers tracks, per line, the last known record for every wager
	// still open as of the previous cycle's bulk page — the baseline
	// reconcileVanishedWagers diffs the new page against.
	openWagers map[string]map[string]models.WagerRecord
}

// New builds a Scheduler ready to run. hub may be nil, in which case line
// and cycle pushes are silently skipped (used by tests and by any admin
// build without a live console attached).
func New(cfg Config, odds OddsClient, exchange ExchangeClient, store *position.Store, hub Broadcaster) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		odds:       odds,
		exchange:   exchange,
		store:      store,
		hub:        hub,
		overrides:  newOverrideStore(),
		running:    true,
		pairings:   make(map[string]models.EventPairing),
		lineStates: make(map[string]models.LineState),
		lineMeta:   make(map[string]lineMapping),
		openWagers: make(map[string]map[string]models.WagerRecord),
	}
}

// SetBlacklist attaches the operator's excluded-events check. Optional;
// leaving it unset (nil) never excludes anything.
func (s *Scheduler) SetBlacklist(b Blacklist) {
	s.blacklist = b
}

// SetNotifier attaches the admin notification log. Optional; leaving it
// unset (nil) means placements, cancellations and errors are only logged,
// not recorded for the admin console.
func (s *Scheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

// AddOverride registers a manual reference/exchange event pairing, read
// fresh by the next cycle's Event Resolver pass.
func (s *Scheduler) AddOverride(referenceEventID string, exchangeEventID int) {
	s.overrides.Add(referenceEventID, exchangeEventID)
}

// RemoveOverride clears a manual pairing.
func (s *Scheduler) RemoveOverride(referenceEventID string) {
	s.overrides.Remove(referenceEventID)
}

// Start resumes cycle execution (a no-op if already running).
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

// Stop pauses cycle execution. The running cycle, if any, still completes;
// the next tick is skipped until Start is called again.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// IsRunning reports whether the Scheduler will execute its next tick.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Pairings returns a snapshot of the currently resolved event pairings.
func (s *Scheduler) Pairings() map[string]models.EventPairing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.EventPairing, len(s.pairings))
	for k, v := range s.pairings {
		out[k] = v
	}
	return out
}

// LineStates returns a snapshot of every line the controller currently
// owns.
func (s *Scheduler) LineStates() map[string]models.LineState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.LineState, len(s.lineStates))
	for k, v := range s.lineStates {
		out[k] = v
	}
	return out
}

// Positions delegates to the Position Store for per-line aggregates.
func (s *Scheduler) Positions() map[string]models.LinePosition {
	return s.store.Snapshot()
}

// Stats returns the most recently completed cycle's counters.
func (s *Scheduler) Stats() wsadmin.CycleSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSummary
}

// Run blocks, driving cycles every cfg.Period until ctx is cancelled. The
// Exchange Client's auth-refresh task runs on its own independent timer
// (spec §4.7 "Scheduling model") and is cancelled only after the cycle
// loop itself has returned, so a placement already queued to run never
// races against a revoked token.
func (s *Scheduler) Run(ctx context.Context) error {
	authCtx, authCancel := context.WithCancel(context.Background())
	authDone := make(chan struct{})
	go func() {
		defer close(authDone)
		s.authRefreshLoop(authCtx)
	}()

	s.cycleLoop(ctx)

	authCancel()
	<-authDone
	return ctx.Err()
}

func (s *Scheduler) authRefreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.AuthRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.exchange.EnsureAuth(ctx); err != nil {
				utils.L().Sugar().Warnw("auth refresh failed", "error", err)
			}
		}
	}
}

// cycleLoop runs runCycle back to back, guaranteeing cycles never overlap:
// if a cycle overran T, the next one starts immediately with at least
// MinCycleSlack of breathing room (spec §4.7 "Cancellation & timeouts").
func (s *Scheduler) cycleLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if !s.IsRunning() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.Period):
				continue
			}
		}

		start := time.Now()
		s.runCycle(ctx)
		elapsed := time.Since(start)

		wait := s.cfg.Period - elapsed
		if wait < s.cfg.MinCycleSlack {
			wait = s.cfg.MinCycleSlack
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// runCycle executes exactly one pass of the spec §4.7 pipeline. Individual
// line and market failures never abort the cycle; only a reference-feed or
// exchange-event-listing failure narrows what gets refreshed, falling back
// to the previous cycle's snapshot so already-resolved lines keep being
// reconciled.
func (s *Scheduler) runCycle(ctx context.Context) {
	now := time.Now()
	summary := wsadmin.CycleSummary{CycleNumber: s.nextCycleNumber(), StartedAt: now}

	refEvents := s.refreshReferenceSnapshot(ctx, &summary)
	exchEvents := s.refreshExchangeEvents(ctx, &summary)
	refEvents = s.filterExcluded(refEvents)

	overrides := s.overrides.Snapshot()
	eventCfg := s.cfg.Event
	eventCfg.ManualOverrides = overrides

	pairings, active, excluded := s.resolvePairings(refEvents, exchEvents, eventCfg, now)
	summary.EventsTracked = len(pairings)
	summary.EventsExcludedByStop = len(excluded)

	s.mu.Lock()
	s.pairings = pairings
	s.mu.Unlock()

	refByID := make(map[string]models.ReferenceEvent, len(refEvents))
	for _, r := range refEvents {
		refByID[r.EventID] = r
	}

	targets, newLineMeta := s.resolveActiveMarkets(ctx, active, refByID, &summary)

	recordsByLine := s.fetchWagerRecords(ctx, &summary)

	s.tearDownDroppedLines(ctx, newLineMeta, recordsByLine, &summary)

	s.mu.Lock()
	s.lineMeta = newLineMeta
	s.mu.Unlock()

	lineIDs := make([]string, 0, len(newLineMeta))
	for lineID := range newLineMeta {
		lineIDs = append(lineIDs, lineID)
	}
	summary.LinesActive = len(lineIDs)

	s.evaluateLines(ctx, lineIDs, targets, recordsByLine, now, &summary)

	summary.Duration = time.Since(now)
	s.mu.Lock()
	s.lastSummary = summary
	s.mu.Unlock()

	utils.L().Sugar().Debugw("cycle complete",
		"cycle_number", summary.CycleNumber,
		"duration", utils.FormatDuration(summary.Duration),
		"lines_active", summary.LinesActive,
		"placements_succeeded", summary.PlacementsSucceeded,
	)

	if s.hub != nil {
		s.hub.BroadcastCycleSummary(summary)
	}
}

func (s *Scheduler) nextCycleNumber() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycleNumber++
	return s.cycleNumber
}

func (s *Scheduler) refreshReferenceSnapshot(ctx context.Context, summary *wsadmin.CycleSummary) []models.ReferenceEvent {
	events, err := s.odds.FetchSnapshot(ctx)
	if err != nil {
		utils.L().Sugar().Warnw("reference snapshot refresh failed, reusing last snapshot", "error", err)
		summary.LastError = fmt.Sprintf("odds snapshot: %v", err)
		s.notifyError(nil, fmt.Sprintf("reference snapshot refresh failed: %v", err), nil)
		s.mu.RLock()
		cached := s.lastRef
		s.mu.RUnlock()
		return cached
	}

	s.mu.Lock()
	s.lastRef = events
	s.mu.Unlock()
	return events
}

func (s *Scheduler) refreshExchangeEvents(ctx context.Context, summary *wsadmin.CycleSummary) []models.ExchangeEvent {
	tournaments, err := s.exchange.ListTournaments(ctx, s.cfg.TournamentSport)
	if err != nil {
		utils.L().Sugar().Warnw("tournament list failed, reusing last exchange events", "error", err)
		summary.LastError = fmt.Sprintf("list tournaments: %v", err)
		s.notifyError(nil, fmt.Sprintf("exchange tournament list failed: %v", err), nil)
		s.mu.RLock()
		cached := s.lastExch
		s.mu.RUnlock()
		return cached
	}

	var all []models.ExchangeEvent
	for _, t := range tournaments {
		events, err := s.exchange.ListEvents(ctx, t.TournamentID)
		if err != nil {
			utils.L().Sugar().Warnw("event list failed for tournament", "tournament_id", t.TournamentID, "error", err)
			summary.LastError = fmt.Sprintf("list events: %v", err)
			continue
		}
		all = append(all, events...)
	}

	s.mu.Lock()
	s.lastExch = all
	s.mu.Unlock()
	return all
}

// filterExcluded drops every reference event the operator has manually
// blacklisted, before the Event Resolver gets a chance to pair it.
func (s *Scheduler) filterExcluded(refEvents []models.ReferenceEvent) []models.ReferenceEvent {
	if s.blacklist == nil || len(refEvents) == 0 {
		return refEvents
	}

	out := make([]models.ReferenceEvent, 0, len(refEvents))
	for _, ref := range refEvents {
		excluded, err := s.blacklist.IsExcluded(ref.EventID)
		if err != nil {
			utils.L().Sugar().Warnw("blacklist check failed, keeping event active", "event_id", ref.EventID, "error", err)
			out = append(out, ref)
			continue
		}
		if !excluded {
			out = append(out, ref)
		}
	}
	return out
}

// resolvePairings runs the Event Resolver over every cached reference
// event, partitioning accepted pairings into the active set and the
// stop-margin-excluded set.
func (s *Scheduler) resolvePairings(refEvents []models.ReferenceEvent, exchEvents []models.ExchangeEvent, cfg resolver.EventConfig, now time.Time) (pairings map[string]models.EventPairing, active, excluded []models.EventPairing) {
	exchByID := make(map[int]models.ExchangeEvent, len(exchEvents))
	for _, e := range exchEvents {
		exchByID[e.EventID] = e
	}

	pairings = make(map[string]models.EventPairing, len(refEvents))
	for _, ref := range refEvents {
		pairing, noMatch := resolver.FindMatch(ref, exchEvents, cfg, now)
		if noMatch != nil {
			continue
		}
		pairings[ref.EventID] = pairing

		exch, ok := exchByID[pairing.ExchangeEventID]
		if !ok || exch.CommenceTime.Sub(now) <= s.cfg.StopMargin {
			excluded = append(excluded, pairing)
			continue
		}
		active = append(active, pairing)
	}
	return pairings, active, excluded
}

type marketResolution struct {
	lineID           string
	target           *models.PricingTarget
	referenceEventID string
}

// resolveActiveMarkets fetches markets for every active pairing and runs
// the Market Resolver and Pricing Engine over each configured market kind,
// bounded by MaxConcurrentOutbound concurrent GetMarkets calls.
func (s *Scheduler) resolveActiveMarkets(ctx context.Context, active []models.EventPairing, refByID map[string]models.ReferenceEvent, summary *wsadmin.CycleSummary) (map[string]*models.PricingTarget, map[string]lineMapping) {
	targets := make(map[string]*models.PricingTarget)
	lineMeta := make(map[string]lineMapping)

	if len(active) == 0 {
		return targets, lineMeta
	}

	sem := make(chan struct{}, s.cfg.MaxConcurrentOutbound)
	var wg sync.WaitGroup
	var mu sync.Mutex
	resultsPerEvent := make(map[string][]marketResolution, len(active))

	for _, pairing := range active {
		ref, ok := refByID[pairing.ReferenceEventID]
		if !ok {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(pairing models.EventPairing, ref models.ReferenceEvent) {
			defer wg.Done()
			defer func() { <-sem }()

			markets, err := s.exchange.GetMarkets(ctx, pairing.ExchangeEventID)
			if err != nil {
				utils.L().Sugar().Warnw("get markets failed", "exchange_event_id", pairing.ExchangeEventID, "error", err)
				mu.Lock()
				summary.LastError = fmt.Sprintf("get markets %d: %v", pairing.ExchangeEventID, err)
				mu.Unlock()
				return
			}

			resolutions := s.resolveEventMarkets(ref, markets)

			mu.Lock()
			resultsPerEvent[ref.EventID] = resolutions
			mu.Unlock()
		}(pairing, ref)
	}
	wg.Wait()

	for refEventID, resolutions := range resultsPerEvent {
		for _, r := range resolutions {
			lineMeta[r.lineID] = lineMapping{referenceEventID: refEventID}
			if r.target != nil {
				targets[r.lineID] = r.target
			}
		}
	}
	return targets, lineMeta
}

// resolveEventMarkets maps every configured market kind for one reference
// event against the exchange's market tree and mints PricingTargets for
// whichever kinds resolve cleanly and price profitably.
func (s *Scheduler) resolveEventMarkets(ref models.ReferenceEvent, markets []resolver.ExchangeMarket) []marketResolution {
	var out []marketResolution

	kinds := []struct {
		kind    models.MarketKind
		resolve func([]models.Outcome, []resolver.ExchangeMarket) ([]resolver.OutcomeMapping, []resolver.MarketIssue)
	}{
		{models.MarketMoneyline, resolver.ResolveMoneyline},
		{models.MarketSpread, resolver.ResolveSpread},
		{models.MarketTotal, resolver.ResolveTotal},
	}

	for _, k := range kinds {
		outcomes := ref.Outcomes(k.kind)
		if len(outcomes) < 2 {
			continue
		}

		mappings, issues := k.resolve(outcomes, markets)
		if !resolver.Ready(mappings, issues) {
			for _, issue := range issues {
				if issue.Kind == resolver.IssueBlocking {
					utils.L().Sugar().Debugw("market resolution blocked", "event_id", ref.EventID, "kind", k.kind, "detail", issue.Detail)
				}
			}
			continue
		}

		plusMapping, minusMapping := mappings[0], mappings[1]
		if plusMapping.ReferenceOutcome.AmericanOdds > 0 {
			plusMapping, minusMapping = minusMapping, plusMapping
		}

		plus, minus, reason := pricing.Plan(
			[]models.Outcome{plusMapping.ReferenceOutcome, minusMapping.ReferenceOutcome},
			plusMapping.LineID, minusMapping.LineID,
			s.cfg.Pricing,
		)

		out = append(out, marketResolution{lineID: plusMapping.LineID, referenceEventID: ref.EventID})
		out = append(out, marketResolution{lineID: minusMapping.LineID, referenceEventID: ref.EventID})

		if reason != pricing.SkipNone {
			utils.L().Sugar().Debugw("pricing skipped market", "event_id", ref.EventID, "kind", k.kind, "reason", reason)
			continue
		}

		plusCopy, minusCopy := plus, minus
		for i := range out {
			if out[i].lineID == plusMapping.LineID {
				out[i].target = &plusCopy
			}
			if out[i].lineID == minusMapping.LineID {
				out[i].target = &minusCopy
			}
		}
	}

	return out
}

// fetchWagerRecords pulls every wager updated within the Position Store's
// lookback window and groups it by line_id, ready for Summarize.
func (s *Scheduler) fetchWagerRecords(ctx context.Context, summary *wsadmin.CycleSummary) map[string][]models.WagerRecord {
	records, err := s.exchange.WagerHistories(ctx, time.Now().Add(-position.DefaultWindow))
	if err != nil {
		utils.L().Sugar().Warnw("wager histories refresh failed", "error", err)
		summary.LastError = fmt.Sprintf("wager histories: %v", err)
		return nil
	}

	byLine := make(map[string][]models.WagerRecord)
	for _, r := range records {
		byLine[r.LineID] = append(byLine[r.LineID], r)
	}

	s.reconcileVanishedWagers(ctx, byLine)
	s.trackOpenWagers(byLine)

	return byLine
}

// reconcileVanishedWagers implements spec §8 scenario 6, "settled wager
// disappearance": the exchange can drop a wager from the bulk
// WagerHistories page once it settles, without it ever appearing matched
// there. For every wager this Scheduler still remembers as open from the
// previous cycle but that is absent from this cycle's page entirely, an
// individual GetWager lookup resolves the ambiguity. A 404 is treated as
// matched in full per wagerdecode.go's IsNotFound doc, and a synthesized,
// Inferred WagerRecord is folded into byLine so the Position Store's
// TotalMatched rises and the Line Controller's existing fill-detection
// path drives the line into WaitingAfterFill exactly as it would for an
// observed fill.
func (s *Scheduler) reconcileVanishedWagers(ctx context.Context, byLine map[string][]models.WagerRecord) {
	s.mu.RLock()
	prevOpen := s.openWagers
	s.mu.RUnlock()
	if len(prevOpen) == 0 {
		return
	}

	seen := make(map[string]bool)
	for _, recs := range byLine {
		for _, r := range recs {
			seen[r.WagerID] = true
		}
	}

	for lineID, wagers := range prevOpen {
		for wagerID, last := range wagers {
			if seen[wagerID] {
				continue
			}
			result := s.exchange.GetWager(ctx, wagerID)
			if !result.IsNotFound() {
				// Transient error, rate limit, or an unexpected still-found
				// result; leave it for next cycle rather than guess.
				continue
			}
			utils.L().Sugar().Infow("wager vanished from bulk page, inferring matched in full",
				"line_id", lineID, "wager_id", wagerID)
			byLine[lineID] = append(byLine[lineID], inferMatchedWager(last))
		}
	}
}

// inferMatchedWager synthesizes the terminal record for a wager that
// disappeared from the bulk page and came back 404 on individual lookup.
func inferMatchedWager(last models.WagerRecord) models.WagerRecord {
	last.MatchedStake = last.Stake
	last.UnmatchedStake = 0
	last.Status = models.WagerMatched
	last.MatchingStatus = models.MatchingFull
	last.UpdatedAt = time.Now()
	last.Inferred = true
	return last
}

// trackOpenWagers snapshots this cycle's still-open wagers per line, the
// baseline the next cycle's reconcileVanishedWagers diffs against.
func (s *Scheduler) trackOpenWagers(byLine map[string][]models.WagerRecord) {
	next := make(map[string]map[string]models.WagerRecord, len(byLine))
	for lineID, recs := range byLine {
		for _, r := range recs {
			switch r.Status {
			case models.WagerOpen, models.WagerActive, models.WagerPartiallyMatched:
				if next[lineID] == nil {
					next[lineID] = make(map[string]models.WagerRecord)
				}
				next[lineID][r.WagerID] = r
			}
		}
	}

	s.mu.Lock()
	s.openWagers = next
	s.mu.Unlock()
}

// tearDownDroppedLines cancels (if configured) and deletes every line that
// was tracked last cycle but is absent from this cycle's resolved line
// map, implementing the ownership rule in spec §4: "a LineState exists
// only while its line is present in the current resolved line map."
func (s *Scheduler) tearDownDroppedLines(ctx context.Context, currentMeta map[string]lineMapping, recordsByLine map[string][]models.WagerRecord, summary *wsadmin.CycleSummary) {
	s.mu.RLock()
	var dropped []string
	for lineID := range s.lineMeta {
		if _, ok := currentMeta[lineID]; !ok {
			dropped = append(dropped, lineID)
		}
	}
	s.mu.RUnlock()

	for _, lineID := range dropped {
		if s.cfg.CancelOnStopMargin {
			for _, wagerID := range openWagerIDs(recordsByLine[lineID]) {
				if err := s.exchange.CancelWager(ctx, wagerID); err != nil {
					utils.L().Sugar().Warnw("cancel on drop failed", "line_id", lineID, "wager_id", wagerID, "error", err)
					continue
				}
				summary.Cancellations++
				s.notifyCancel(lineID, "wager cancelled on stop margin", map[string]interface{}{"wager_id": wagerID})
			}
		}

		s.mu.Lock()
		delete(s.lineStates, lineID)
		s.mu.Unlock()
		s.store.Delete(lineID)
		s.notifyInvalidated(lineID, "line dropped from active set", nil)
	}
}

// evaluateLines runs the Line Controller over every currently-mapped line
// and dispatches the resulting actions, bounded by MaxConcurrentOutbound.
func (s *Scheduler) evaluateLines(ctx context.Context, lineIDs []string, targets map[string]*models.PricingTarget, recordsByLine map[string][]models.WagerRecord, now time.Time, summary *wsadmin.CycleSummary) {
	sem := make(chan struct{}, s.cfg.MaxConcurrentOutbound)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, lineID := range lineIDs {
		lineID := lineID
		pos := position.Summarize(lineID, recordsByLine[lineID], position.DefaultWindow, now)
		s.store.Put(lineID, pos)

		s.mu.RLock()
		state, ok := s.lineStates[lineID]
		s.mu.RUnlock()
		if !ok {
			state = models.LineState{LineID: lineID, Phase: models.PhaseIdle}
		}

		target := targets[lineID]
		nextState, action := controller.Evaluate(state, pos, target, now, s.cfg.Controller)

		s.mu.Lock()
		s.lineStates[lineID] = nextState
		s.mu.Unlock()

		if s.hub != nil {
			s.hub.BroadcastLineUpdate(lineID, nextState, pos)
		}

		if action.Kind == controller.ActionNone {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(lineID string, action controller.Action, recs []models.WagerRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			s.executeAction(ctx, lineID, action, recs, &mu, summary)
		}(lineID, action, recordsByLine[lineID])
	}

	wg.Wait()
}

func (s *Scheduler) executeAction(ctx context.Context, lineID string, action controller.Action, records []models.WagerRecord, mu *sync.Mutex, summary *wsadmin.CycleSummary) {
	switch action.Kind {
	case controller.ActionPlace:
		mu.Lock()
		summary.PlacementsAttempted++
		mu.Unlock()

		if _, err := s.exchange.PlaceWager(ctx, action.LineID, action.Odds, action.Stake, action.ExternalID); err != nil {
			utils.L().Sugar().Warnw("placement failed", "line_id", lineID, "external_id", action.ExternalID, "error", err)
			mu.Lock()
			summary.PlacementsFailed++
			summary.LastError = fmt.Sprintf("place wager %s: %v", lineID, err)
			mu.Unlock()
			s.notifyError(&lineID, fmt.Sprintf("placement failed: %v", err), nil)
			return
		}
		mu.Lock()
		summary.PlacementsSucceeded++
		mu.Unlock()
		s.notifyPlacement(lineID, fmt.Sprintf("placed %.2f @ %d", action.Stake, action.Odds), map[string]interface{}{
			"odds": action.Odds, "stake": action.Stake, "external_id": action.ExternalID,
		})

	case controller.ActionCancel:
		for _, wagerID := range openWagerIDs(records) {
			if err := s.exchange.CancelWager(ctx, wagerID); err != nil {
				utils.L().Sugar().Warnw("cancellation failed", "line_id", lineID, "wager_id", wagerID, "error", err)
				mu.Lock()
				summary.LastError = fmt.Sprintf("cancel wager %s: %v", lineID, err)
				mu.Unlock()
				s.notifyError(&lineID, fmt.Sprintf("cancellation failed: %v", err), nil)
				continue
			}
			mu.Lock()
			summary.Cancellations++
			mu.Unlock()
			s.notifyCancel(lineID, "wager cancelled", map[string]interface{}{"wager_id": wagerID})
		}
	}
}

func (s *Scheduler) notifyPlacement(lineID, message string, meta map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PlacementNotification(lineID, message, meta); err != nil {
		utils.L().Sugar().Warnw("placement notification failed", "line_id", lineID, "error", err)
	}
}

func (s *Scheduler) notifyCancel(lineID, message string, meta map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.CancelNotification(lineID, message, meta); err != nil {
		utils.L().Sugar().Warnw("cancel notification failed", "line_id", lineID, "error", err)
	}
}

func (s *Scheduler) notifyInvalidated(lineID, message string, meta map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.InvalidatedNotification(lineID, message, meta); err != nil {
		utils.L().Sugar().Warnw("invalidated notification failed", "line_id", lineID, "error", err)
	}
}

func (s *Scheduler) notifyError(lineID *string, message string, meta map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ErrorNotification(lineID, message, meta); err != nil {
		utils.L().Sugar().Warnw("error notification failed", "error", err)
	}
}

// openWagerIDs returns the exchange-assigned ids of every wager in records
// still open for matching, the set CancelWager must be called against.
func openWagerIDs(records []models.WagerRecord) []string {
	var ids []string
	for _, r := range records {
		switch r.Status {
		case models.WagerOpen, models.WagerActive, models.WagerPartiallyMatched:
			ids = append(ids, r.WagerID)
		}
	}
	return ids
}
