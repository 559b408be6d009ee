package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
)

// slackSectionLimit is the maximum text length of a section block.
const slackSectionLimit = 3000

// SlackNotifier posts digests to a Slack incoming webhook.
type SlackNotifier struct {
	WebhookURL string
	Client     *http.Client
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{WebhookURL: webhookURL, Client: newWebhookClient()}
}

func (s *SlackNotifier) Name() string { return "slack" }

// Notify posts message as plain text plus one mrkdwn section block.
func (s *SlackNotifier) Notify(ctx context.Context, message string) error {
	if s.WebhookURL == "" {
		return errors.New("slack webhook URL is not configured")
	}

	section := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, cutRunes(message, slackSectionLimit), false, false),
		nil, nil,
	)
	msg := &slack.WebhookMessage{
		Username: "minotaur",
		Text:     message,
		Blocks:   &slack.Blocks{BlockSet: []slack.Block{section}},
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.WebhookURL, clientOrDefault(s.Client), msg); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}
