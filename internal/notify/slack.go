// Package notify mirrors critical alerts to Slack so operators who are
// away from the console still see them.
package notify

import (
	"fmt"
	"log"

	"github.com/slack-go/slack"

	"github.com/theftwatch/theftwatch/internal/alerts"
)

// messagePoster is the slice of the Slack client the notifier uses.
type messagePoster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts alert summaries to a configured channel. A notifier
// built without a token is disabled and drops everything silently.
type SlackNotifier struct {
	client  messagePoster
	channel string
	logger  *log.Logger
}

// NewSlackNotifier creates a notifier. Empty token or channel disables it.
func NewSlackNotifier(botToken, channel string, logger *log.Logger) *SlackNotifier {
	n := &SlackNotifier{channel: channel, logger: logger}
	if botToken != "" && channel != "" {
		n.client = slack.New(botToken)
	}
	return n
}

// Enabled reports whether the notifier will actually post.
func (n *SlackNotifier) Enabled() bool {
	return n.client != nil
}

// NotifyAlert posts one alert summary. Failures are logged and swallowed;
// a Slack outage must never affect alert handling.
func (n *SlackNotifier) NotifyAlert(a alerts.Alert) {
	if n.client == nil {
		return
	}
	_, _, err := n.client.PostMessage(
		n.channel,
		slack.MsgOptionText(FormatAlertMessage(a), false),
		slack.MsgOptionAttachments(slack.Attachment{
			Color: attachmentColor(a.Type),
			Text:  a.Message,
		}),
	)
	if err != nil {
		n.logger.Printf("Failed to post alert %s to Slack: %v", a.ID, err)
	}
}

// FormatAlertMessage builds the Slack message text for one alert.
func FormatAlertMessage(a alerts.Alert) string {
	message := fmt.Sprintf(`%s *Theft alert: %s*

:label: *Source:* %s
:bar_chart: *Confidence:* %.0f%%
:clock1: *Time:* %s`,
		severityEmoji(a.Type),
		a.Type,
		a.Source,
		a.Confidence*100,
		a.Timestamp.Format("2006-01-02 15:04:05"),
	)
	if a.CameraID != nil {
		message += fmt.Sprintf("\n:movie_camera: *Camera:* %d", *a.CameraID)
	}
	if a.ClipURL != "" {
		message += fmt.Sprintf("\n:film_frames: *Clip:* %s", a.ClipURL)
	}
	return message
}

func severityEmoji(t alerts.Type) string {
	switch t {
	case alerts.TypeCritical:
		return ":red_circle:"
	case alerts.TypeWarning:
		return ":large_yellow_circle:"
	default:
		return ":large_blue_circle:"
	}
}

func attachmentColor(t alerts.Type) string {
	switch t {
	case alerts.TypeCritical:
		return "#dc2626"
	case alerts.TypeWarning:
		return "#f59e0b"
	default:
		return "#3b82f6"
	}
}
