package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"gorm.io/gorm"

	"github.com/opspulse/opspulse/internal/database"
	"github.com/opspulse/opspulse/internal/observability"
	"github.com/opspulse/opspulse/internal/utils"
)

// attachmentTextLimit keeps long alert descriptions within what Slack
// renders without collapsing the attachment.
const attachmentTextLimit = 3000

// Notifier delivers pages for routed alerts. Implementations own their
// severity floor; the router calls them for every create, reopen, and
// escalation.
type Notifier interface {
	NotifyAlert(ctx context.Context, alert *database.Alert) error
}

// slackPoster is the slice of the Slack client the notifier uses
type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier pages a Slack channel via chat.postMessage. Settings are
// read through on every send so token and channel edits take effect without
// a restart.
type SlackNotifier struct {
	db        *gorm.DB
	metrics   *observability.Metrics
	newClient func(token string) slackPoster
}

// NewSlackNotifier builds a notifier reading its settings from the
// notification settings singleton. metrics may be nil.
func NewSlackNotifier(db *gorm.DB, metrics *observability.Metrics) *SlackNotifier {
	return &SlackNotifier{
		db:      db,
		metrics: metrics,
		newClient: func(token string) slackPoster {
			return slack.New(token)
		},
	}
}

// NotifyAlert implements the Notifier interface
func (n *SlackNotifier) NotifyAlert(ctx context.Context, alert *database.Alert) error {
	settings, err := database.GetOrCreateNotificationSettings(n.db)
	if err != nil {
		return fmt.Errorf("failed to load notification settings: %w", err)
	}
	if !settings.ShouldNotify(alert.Severity) {
		return nil
	}

	client := n.newClient(settings.BotToken)
	_, _, err = client.PostMessageContext(ctx, settings.Channel,
		slack.MsgOptionText(headline(alert), false),
		slack.MsgOptionAttachments(alertAttachment(alert)),
	)
	n.metrics.RecordNotification(err == nil)
	if err != nil {
		return fmt.Errorf("failed to post alert %s to slack: %w", alert.UUID, err)
	}
	return nil
}

func headline(alert *database.Alert) string {
	return fmt.Sprintf("%s [%s] %s",
		database.GetSeverityEmoji(alert.Severity),
		strings.ToUpper(string(alert.Severity)),
		alert.Title)
}

func alertAttachment(alert *database.Alert) slack.Attachment {
	fields := []slack.AttachmentField{
		{Title: "Source", Value: alert.Source, Short: true},
		{Title: "Status", Value: string(alert.Status), Short: true},
		{Title: "Occurrences", Value: fmt.Sprintf("%d", alert.Occurrences), Short: true},
	}
	if alert.Occurrences > 1 && !alert.CreatedAt.IsZero() {
		fields = append(fields, slack.AttachmentField{
			Title: "Firing for",
			Value: utils.FormatDuration(time.Since(alert.CreatedAt)),
			Short: true,
		})
	}
	if alert.AssignedTo != "" {
		fields = append(fields, slack.AttachmentField{Title: "Assigned to", Value: alert.AssignedTo, Short: true})
	}
	if len(alert.Tags) > 0 {
		fields = append(fields, slack.AttachmentField{Title: "Tags", Value: strings.Join(alert.Tags, ", "), Short: false})
	}

	return slack.Attachment{
		Color:  severityColor(alert.Severity),
		Text:   utils.TruncateText(alert.Description, attachmentTextLimit),
		Fields: fields,
		Footer: "OpsPulse",
	}
}

func severityColor(s database.AlertSeverity) string {
	switch s {
	case database.AlertSeverityCritical:
		return "#FF0000"
	case database.AlertSeverityWarning:
		return "#FFA500"
	case database.AlertSeverityInfo:
		return "#0000FF"
	default:
		return "#808080"
	}
}
