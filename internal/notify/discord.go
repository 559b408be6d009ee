package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// discordMaxContent is Discord's per-message length limit.
const discordMaxContent = 2000

// DiscordNotifier posts digests to a Discord webhook, splitting long
// digests into several messages.
type DiscordNotifier struct {
	WebhookURL string
	Client     *http.Client
}

func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{WebhookURL: webhookURL, Client: newWebhookClient()}
}

func (n *DiscordNotifier) Name() string { return "discord" }

type discordPayload struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

func (n *DiscordNotifier) Notify(ctx context.Context, message string) error {
	if n.WebhookURL == "" {
		return errors.New("discord webhook URL is not configured")
	}
	for i, part := range splitMessage(message, discordMaxContent) {
		if err := n.post(ctx, part); err != nil {
			return fmt.Errorf("discord webhook (part %d): %w", i+1, err)
		}
	}
	return nil
}

func (n *DiscordNotifier) post(ctx context.Context, content string) error {
	body, err := json.Marshal(discordPayload{Username: "minotaur", Content: content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := clientOrDefault(n.Client).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// splitMessage breaks msg into parts of at most limit runes, preferring
// line boundaries.
func splitMessage(msg string, limit int) []string {
	var parts []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			parts = append(parts, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.SplitAfter(msg, "\n") {
		r := []rune(line)
		if curLen+len(r) <= limit {
			cur.WriteString(line)
			curLen += len(r)
			continue
		}
		flush()
		for len(r) > limit {
			parts = append(parts, string(r[:limit]))
			r = r[limit:]
		}
		cur.WriteString(string(r))
		curLen = len(r)
	}
	flush()
	return parts
}
