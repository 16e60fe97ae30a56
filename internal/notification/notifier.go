package notification

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/cpi-insights/internal/models"
)

// MessageSender delivers a pre-formatted Markdown message to a chat.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// EventLogger records delivered digests as business events.
type EventLogger interface {
	LogBusinessEvent(eventType string, details map[string]interface{})
}

// AlertNotifier turns ranked alerts into a chat digest.
type AlertNotifier struct {
	sender MessageSender
	chatID int64
	limit  int
	logger *logrus.Logger
	events EventLogger
}

// NewAlertNotifier creates a notifier. limit <= 0 falls back to 10.
func NewAlertNotifier(sender MessageSender, chatID int64, limit int, logger *logrus.Logger) *AlertNotifier {
	if limit <= 0 {
		limit = 10
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &AlertNotifier{
		sender: sender,
		chatID: chatID,
		limit:  limit,
		logger: logger,
	}
}

// SetEventLogger attaches an event sink notified after each delivered digest.
func (n *AlertNotifier) SetEventLogger(events EventLogger) {
	n.events = events
}

// Enabled reports whether the notifier has somewhere to deliver to.
func (n *AlertNotifier) Enabled() bool {
	return n != nil && n.sender != nil && n.chatID != 0
}

// FormatDigest renders the first limit alerts. Alerts must already be ranked.
func FormatDigest(alerts []models.Alert, limit int) string {
	if len(alerts) == 0 {
		return "No CPI alerts."
	}

	top := alerts
	if limit > 0 && len(alerts) > limit {
		top = alerts[:limit]
	}

	var b strings.Builder
	b.WriteString("🚨 *CPI Alerts*\n\n")
	fmt.Fprintf(&b, "%d alerts across %d states:\n\n", len(alerts), distinctStates(alerts))

	for i, a := range top {
		icon := "🟡"
		if a.Severity == models.SeverityRed {
			icon = "🔴"
		}
		fmt.Fprintf(&b, "%s *%d. %s* (%s)\n", icon, i+1, escapeMarkdown(a.State), a.Type)
		fmt.Fprintf(&b, "%s\n\n", escapeMarkdown(a.Message))
	}

	if len(alerts) > len(top) {
		fmt.Fprintf(&b, "...and %d more alerts\n", len(alerts)-len(top))
	}

	return strings.TrimRight(b.String(), "\n")
}

// NotifyAlerts sends the digest for alerts. Nothing is sent for an empty list.
// It returns the number of alerts covered by the digest.
func (n *AlertNotifier) NotifyAlerts(ctx context.Context, alerts []models.Alert) (int, error) {
	if len(alerts) == 0 {
		return 0, nil
	}
	if !n.Enabled() {
		return 0, fmt.Errorf("alert notifier is not configured")
	}

	text := FormatDigest(alerts, n.limit)
	if err := n.sender.SendMessage(ctx, n.chatID, text); err != nil {
		n.logger.WithFields(logrus.Fields{
			"chat_id": n.chatID,
			"alerts":  len(alerts),
		}).WithError(err).Error("Failed to send alert digest")
		return 0, fmt.Errorf("failed to send alert digest: %w", err)
	}

	sent := min(len(alerts), n.limit)
	n.logger.WithFields(logrus.Fields{
		"chat_id": n.chatID,
		"alerts":  len(alerts),
		"listed":  sent,
	}).Info("Sent alert digest")
	if n.events != nil {
		n.events.LogBusinessEvent("alert_digest_sent", map[string]interface{}{
			"chat_id": n.chatID,
			"alerts":  len(alerts),
			"listed":  sent,
			"states":  distinctStates(alerts),
		})
	}
	return sent, nil
}

func distinctStates(alerts []models.Alert) int {
	seen := make(map[string]struct{}, len(alerts))
	for _, a := range alerts {
		seen[a.State] = struct{}{}
	}
	return len(seen)
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown guards free text for Telegram's legacy Markdown mode.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
