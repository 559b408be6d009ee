package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"minotaur/internal/config"
	"minotaur/internal/metrics"
	"minotaur/internal/model"
	"minotaur/internal/report"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type fakeAnalyzer struct {
	cfg     config.Config
	targets []string
	result  report.Analysis
	err     error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, target string) (report.Analysis, error) {
	f.targets = append(f.targets, target)
	return f.result, f.err
}

// useFakeAnalyzer swaps the engine for f for the duration of the test.
func useFakeAnalyzer(t *testing.T, f *fakeAnalyzer) {
	t.Helper()
	old := newAnalyzer
	newAnalyzer = func(cfg config.Config, _ *metrics.Metrics) (analyzer, error) {
		f.cfg = cfg
		return f, nil
	}
	t.Cleanup(func() { newAnalyzer = old })
}

func sampleAnalysis(id string, verdict model.Verdict) report.Analysis {
	f := model.NewCandidate(
		model.Dependency{Name: "lodash", Ecosystem: model.EcosystemNpm, ResolvedVersion: "4.17.15"},
		model.VulnerabilityRecord{ID: "GHSA-35jh-r3h4-6jhm", Summary: "Command Injection in lodash", Severity: model.SeverityHigh},
		model.MatchResolved,
	).Finalize(model.Outcome{Verdict: verdict, Confidence: 0.9, Rationale: "template() is reachable"}, 0.7)
	return report.Analysis{
		ID:        id,
		RepoURL:   "https://github.com/acme/app",
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Duration:  2.5,
		Report:    report.Build([]model.Finding{f}, report.Meta{GeneratedFor: "acme/app", DependenciesAnalyzed: 1}),
	}
}

// executeCommand runs root with args and returns its output and the exit
// code requested through exit.
func executeCommand(root *cobra.Command, args ...string) (output string, code int, err error) {
	resetFlags(root)
	oldExit := exit
	exit = func(c int) {
		if c != 0 {
			panic(fmt.Sprintf("exit-%d", c))
		}
	}
	defer func() { exit = oldExit }()

	b := new(bytes.Buffer)
	defer func() {
		if r := recover(); r != nil {
			s, ok := r.(string)
			if !ok || !strings.HasPrefix(s, "exit-") {
				panic(r)
			}
			fmt.Sscanf(s, "exit-%d", &code)
			output = b.String()
		}
	}()

	root.SetArgs(args)
	root.SetOut(b)
	root.SetErr(b)
	root.SetIn(bytes.NewBufferString(""))
	err = root.Execute()
	return b.String(), 0, err
}

// resetFlags resets all flags to their default values.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// mockEnv selects the mock provider so validation needs no API key.
func mockEnv(t *testing.T) {
	t.Setenv("MINOTAUR_LLM_PROVIDER", "mock")
	t.Setenv("MINOTAUR_STORE_DSN", t.TempDir()+"/reports.db")
}
