package wsadmin

import (
	"time"

	"github.com/svyatogor45/linekeeper/internal/models"
)

// MessageType names the kind of push frame an admin client receives.
type MessageType string

const (
	MessageTypeLineUpdate    MessageType = "lineUpdate"
	MessageTypeNotification  MessageType = "notification"
	MessageTypeCycleSummary  MessageType = "cycleSummary"
)

// BaseMessage is embedded by every outbound frame.
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// LineUpdateMessage reports a line's post-evaluation phase and position,
// the spec's equivalent of the reference engine's per-pair push.
type LineUpdateMessage struct {
	BaseMessage
	LineID string          `json:"line_id"`
	Data   *LineUpdateData `json:"data"`
}

// LineUpdateData carries the fields an admin console needs to render a
// line's current state without a follow-up request.
type LineUpdateData struct {
	Phase          models.Phase `json:"phase"`
	TotalStake     float64      `json:"total_stake"`
	TotalMatched   float64      `json:"total_matched"`
	TotalUnmatched float64      `json:"total_unmatched"`
	HasOpenWager   bool         `json:"has_open_wager"`
	LastPlacedOdds int          `json:"last_placed_odds"`
	CoolDownUntil  time.Time    `json:"cool_down_until,omitempty"`
}

// NewLineUpdateMessage builds a LineUpdateMessage from the controller's
// post-evaluation LineState and the line's current LinePosition.
func NewLineUpdateMessage(lineID string, state models.LineState, pos models.LinePosition) *LineUpdateMessage {
	return &LineUpdateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeLineUpdate, Timestamp: time.Now()},
		LineID:      lineID,
		Data: &LineUpdateData{
			Phase:          state.Phase,
			TotalStake:     pos.TotalStake,
			TotalMatched:   pos.TotalMatched,
			TotalUnmatched: pos.TotalUnmatched,
			HasOpenWager:   pos.HasOpenWager,
			LastPlacedOdds: state.LastPlacedOdds,
			CoolDownUntil:  state.CoolDownUntil,
		},
	}
}

// NotificationMessage wraps a models.Notification for push delivery.
type NotificationMessage struct {
	BaseMessage
	Data *NotificationData `json:"data"`
}

// NotificationData mirrors models.Notification's JSON shape; kept as its
// own type so adding push-only fields later doesn't touch the persisted
// model.
type NotificationData struct {
	ID        int                    `json:"id"`
	Type      string                 `json:"type"`
	Severity  string                 `json:"severity"`
	LineID    *string                `json:"line_id,omitempty"`
	Message   string                 `json:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewNotificationMessage builds a NotificationMessage from a persisted
// Notification.
func NewNotificationMessage(notif *models.Notification) *NotificationMessage {
	return &NotificationMessage{
		BaseMessage: BaseMessage{Type: MessageTypeNotification, Timestamp: time.Now()},
		Data: &NotificationData{
			ID:        notif.ID,
			Type:      notif.Type,
			Severity:  notif.Severity,
			LineID:    notif.LineID,
			Message:   notif.Message,
			Meta:      notif.Meta,
			Timestamp: notif.Timestamp,
		},
	}
}

// CycleSummary is the set of counters the Scheduler reports after each
// completed cycle (spec §7's "user-visible counters").
type CycleSummary struct {
	CycleNumber          uint64        `json:"cycle_number"`
	StartedAt            time.Time     `json:"started_at"`
	Duration             time.Duration `json:"duration_ms"`
	EventsTracked        int           `json:"events_tracked"`
	LinesActive          int           `json:"lines_active"`
	PlacementsAttempted  int           `json:"placements_attempted"`
	PlacementsSucceeded  int           `json:"placements_succeeded"`
	PlacementsFailed     int           `json:"placements_failed"`
	Cancellations        int           `json:"cancellations"`
	EventsExcludedByStop int           `json:"events_excluded_by_stop_margin"`
	LastError            string        `json:"last_error,omitempty"`
}

// CycleSummaryMessage wraps a CycleSummary for push delivery.
type CycleSummaryMessage struct {
	BaseMessage
	Data CycleSummary `json:"data"`
}

// NewCycleSummaryMessage builds a CycleSummaryMessage from the Scheduler's
// per-cycle counters.
func NewCycleSummaryMessage(summary CycleSummary) *CycleSummaryMessage {
	return &CycleSummaryMessage{
		BaseMessage: BaseMessage{Type: MessageTypeCycleSummary, Timestamp: time.Now()},
		Data:        summary,
	}
}
