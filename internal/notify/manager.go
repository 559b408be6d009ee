// Package notify posts analysis digests to chat webhooks.
package notify

import (
	"context"
	"fmt"
	"strings"

	"minotaur/internal/model"
	"minotaur/internal/report"
	"minotaur/internal/telemetry"
)

// Notifier delivers a text message to one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, message string) error
}

// Config selects the webhooks and, per webhook, the lowest threat level that
// triggers a digest. Levels are parsed case-insensitively; empty or
// unrecognized levels mean HIGH.
type Config struct {
	SlackWebhookURL   string
	SlackMinLevel     string
	DiscordWebhookURL string
	DiscordMinLevel   string
}

// DefaultMinLevel applies when no valid level is configured.
const DefaultMinLevel = model.ThreatHigh

// ParseMinLevel normalizes a configured level, falling back to DefaultMinLevel.
func ParseMinLevel(s string) model.ThreatLevel {
	if l, ok := model.ParseThreatLevel(s); ok {
		return l
	}
	return DefaultMinLevel
}

type route struct {
	notifier Notifier
	minLevel model.ThreatLevel
}

// Manager fans a digest out to every configured notifier.
type Manager struct {
	routes []route
}

// NewManager builds notifiers for the webhooks present in cfg.
func NewManager(cfg Config) *Manager {
	m := &Manager{}
	if cfg.SlackWebhookURL != "" {
		m.add(NewSlackNotifier(cfg.SlackWebhookURL), cfg.SlackMinLevel)
	}
	if cfg.DiscordWebhookURL != "" {
		m.add(NewDiscordNotifier(cfg.DiscordWebhookURL), cfg.DiscordMinLevel)
	}
	return m
}

// NewManagerWith routes every given notifier at minLevel.
func NewManagerWith(minLevel model.ThreatLevel, notifiers ...Notifier) *Manager {
	m := &Manager{}
	for _, n := range notifiers {
		m.add(n, string(minLevel))
	}
	return m
}

func (m *Manager) add(n Notifier, level string) {
	m.routes = append(m.routes, route{notifier: n, minLevel: ParseMinLevel(level)})
}

// Enabled reports whether any notifier is configured.
func (m *Manager) Enabled() bool {
	return m != nil && len(m.routes) > 0
}

// NotifyReport posts a digest to each notifier whose level the analysis
// reaches. Delivery failures become issues; they never fail the analysis.
func (m *Manager) NotifyReport(ctx context.Context, a report.Analysis) []model.Issue {
	if !m.Enabled() {
		return nil
	}

	type digest struct {
		msg string
		ok  bool
	}
	digests := make(map[model.ThreatLevel]digest)

	var issues []model.Issue
	for _, r := range m.routes {
		d, seen := digests[r.minLevel]
		if !seen {
			d.msg, d.ok = Digest(a, r.minLevel)
			digests[r.minLevel] = d
		}
		if !d.ok {
			telemetry.LogDebug("No findings at notification level", "notifier", r.notifier.Name(), "min_level", r.minLevel)
			continue
		}
		if err := r.notifier.Notify(ctx, d.msg); err != nil {
			telemetry.LogWarn("Notification failed", "notifier", r.notifier.Name(), "error", err)
			issues = append(issues, model.Issue{Kind: model.IssueNotification, Scope: r.notifier.Name(), Message: err.Error()})
		}
	}
	return issues
}

const maxDigestEntries = 10

// Digest renders the findings at or above minLevel as a short message.
// minLevel is normalized like a configured level.
func Digest(a report.Analysis, minLevel model.ThreatLevel) (string, bool) {
	minLevel = ParseMinLevel(string(minLevel))
	entries := a.AtOrAbove(minLevel)
	if len(entries) == 0 {
		return "", false
	}

	var b strings.Builder
	name := a.GeneratedFor
	if name == "" {
		name = a.RepoURL
	}
	fmt.Fprintf(&b, "*minotaur*: %d finding(s) at %s or above in %s (%d real threats)\n", len(entries), minLevel, name, a.RealThreats)
	for i, e := range entries {
		if i == maxDigestEntries {
			fmt.Fprintf(&b, "... and %d more\n", len(entries)-maxDigestEntries)
			break
		}
		fmt.Fprintf(&b, "- [%s] %s@%s %s (%s, confidence %.2f)\n", e.ThreatLevel, e.Dependency, e.Version, e.VulnerabilityID, e.Verdict, e.Confidence)
	}
	if a.ID != "" {
		fmt.Fprintf(&b, "Report: %s\n", a.ID)
	}
	return strings.TrimRight(b.String(), "\n"), true
}
