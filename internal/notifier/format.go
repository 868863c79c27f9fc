package notifier

import (
	"strings"

	"github.com/MrSnakeDoc/dropwatch/internal/domain"
)

// render writes the heading, a blank line, then one "label: value" line
// per field. mark wraps the heading and each label.
func render(msg domain.Message, mark string) string {
	var sb strings.Builder
	sb.WriteString(mark + msg.Heading + mark)
	sb.WriteString("\n")
	for _, f := range msg.Fields {
		sb.WriteString("\n")
		sb.WriteString(mark + f.Label + mark + ": " + f.Value)
	}
	return sb.String()
}

// RenderDiscord uses Discord markdown bold.
func RenderDiscord(msg domain.Message) string { return render(msg, "**") }

// RenderSlack uses Slack mrkdwn bold.
func RenderSlack(msg domain.Message) string { return render(msg, "*") }
