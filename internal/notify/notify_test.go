package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"minotaur/internal/model"
	"minotaur/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analysis(verdict model.Verdict, conf float64) report.Analysis {
	f := model.NewCandidate(
		model.Dependency{Name: "lodash", Ecosystem: model.EcosystemNpm, ResolvedVersion: "4.17.15"},
		model.VulnerabilityRecord{ID: "GHSA-35jh-r3h4-6jhm", Severity: model.SeverityCritical},
		model.MatchResolved,
	).Finalize(model.Outcome{Verdict: verdict, Confidence: conf, Rationale: "r"}, 0.7)
	return report.Analysis{ID: "r-1", RepoURL: "https://github.com/acme/app", Report: report.Build([]model.Finding{f}, report.Meta{GeneratedFor: "acme/app"})}
}

func TestSlackNotifier_Notify(t *testing.T) {
	receivedMessage := ""
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var payload map[string]interface{}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		receivedMessage, _ = payload["text"].(string)
		assert.NotNil(t, payload["blocks"])
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := NewSlackNotifier(server.URL).Notify(context.Background(), "scan finished")
	require.NoError(t, err)
	assert.Equal(t, "scan finished", receivedMessage)
}

func TestSlackNotifier_Notify_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	assert.Error(t, NewSlackNotifier(server.URL).Notify(context.Background(), "test"))
}

func TestSlackNotifier_Notify_MissingURL(t *testing.T) {
	assert.ErrorContains(t, NewSlackNotifier("").Notify(context.Background(), "test"), "not configured")
}

func TestDiscordNotifier_Notify(t *testing.T) {
	var contents []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "minotaur", payload["username"])
		contents = append(contents, payload["content"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewDiscordNotifier(server.URL)
	require.NoError(t, n.Notify(context.Background(), strings.Repeat("x", 3000)))
	require.Len(t, contents, 2)
	assert.Equal(t, discordMaxContent, len([]rune(contents[0])))
	assert.Equal(t, 1000, len([]rune(contents[1])))
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, splitMessage("aaaa\nbbbb\ncccc", 10))
	assert.Equal(t, []string{"abcde", "fghij", "k"}, splitMessage("abcdefghijk", 5))
	assert.Empty(t, splitMessage("", 10))
}

func TestDiscordNotifier_Errors(t *testing.T) {
	assert.Error(t, NewDiscordNotifier("").Notify(context.Background(), "x"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()
	assert.ErrorContains(t, NewDiscordNotifier(server.URL).Notify(context.Background(), "x"), "400")
}

func TestDigest(t *testing.T) {
	msg, ok := Digest(analysis(model.VerdictExploitable, 0.9), model.ThreatHigh)
	require.True(t, ok)
	assert.Contains(t, msg, "acme/app")
	assert.Contains(t, msg, "[CRITICAL] lodash@4.17.15 GHSA-35jh-r3h4-6jhm")
	assert.Contains(t, msg, "Report: r-1")

	_, ok = Digest(analysis(model.VerdictNotExploitable, 0.9), model.ThreatHigh)
	assert.False(t, ok)
}

type recordingNotifier struct {
	name     string
	err      error
	messages []string
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Notify(_ context.Context, msg string) error {
	r.messages = append(r.messages, msg)
	return r.err
}

func TestManager_NotifyReport(t *testing.T) {
	ok := &recordingNotifier{name: "ok"}
	bad := &recordingNotifier{name: "bad", err: errors.New("webhook gone")}
	m := NewManagerWith(model.ThreatHigh, ok, bad)

	issues := m.NotifyReport(context.Background(), analysis(model.VerdictExploitable, 0.9))
	assert.Len(t, ok.messages, 1)
	require.Len(t, issues, 1)
	assert.Equal(t, model.IssueNotification, issues[0].Kind)
	assert.Equal(t, "bad", issues[0].Scope)

	issues = m.NotifyReport(context.Background(), analysis(model.VerdictNotExploitable, 0.9))
	assert.Empty(t, issues)
	assert.Len(t, ok.messages, 1, "below threshold sends nothing")
}

func TestNewManager(t *testing.T) {
	assert.False(t, NewManager(Config{}).Enabled())
	var nilManager *Manager
	assert.False(t, nilManager.Enabled())
	assert.Nil(t, nilManager.NotifyReport(context.Background(), report.Analysis{}))

	m := NewManager(Config{
		SlackWebhookURL:   "http://slack",
		DiscordWebhookURL: "http://discord",
		DiscordMinLevel:   "critical",
	})
	assert.True(t, m.Enabled())
	require.Len(t, m.routes, 2)
	assert.Equal(t, "slack", m.routes[0].notifier.Name())
	assert.Equal(t, model.ThreatHigh, m.routes[0].minLevel)
	assert.Equal(t, "discord", m.routes[1].notifier.Name())
	assert.Equal(t, model.ThreatCritical, m.routes[1].minLevel)
}

func TestParseMinLevel(t *testing.T) {
	assert.Equal(t, model.ThreatHigh, ParseMinLevel("high"))
	assert.Equal(t, model.ThreatInformational, ParseMinLevel("info"))
	assert.Equal(t, model.ThreatMedium, ParseMinLevel(" Medium "))
	assert.Equal(t, DefaultMinLevel, ParseMinLevel(""))
	assert.Equal(t, DefaultMinLevel, ParseMinLevel("severe"))
}

func TestDigest_LowercaseLevel(t *testing.T) {
	// NOT_EXPLOITABLE derives LOW, which stays below "high".
	_, ok := Digest(analysis(model.VerdictNotExploitable, 0.9), model.ThreatLevel("high"))
	assert.False(t, ok)

	msg, ok := Digest(analysis(model.VerdictExploitable, 0.9), model.ThreatLevel("high"))
	require.True(t, ok)
	assert.Contains(t, msg, "at HIGH or above")
}

func TestManager_PerNotifierLevels(t *testing.T) {
	strict := &recordingNotifier{name: "strict"}
	chatty := &recordingNotifier{name: "chatty"}
	m := NewManagerWith("critical", strict)
	m.add(chatty, "low")

	m.NotifyReport(context.Background(), analysis(model.VerdictNotExploitable, 0.9))
	assert.Empty(t, strict.messages)
	require.Len(t, chatty.messages, 1)
	assert.Contains(t, chatty.messages[0], "[LOW]")

	m.NotifyReport(context.Background(), analysis(model.VerdictExploitable, 0.9))
	assert.Len(t, strict.messages, 1)
	assert.Len(t, chatty.messages, 2)
}
