package doctor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/doeshing/agentguard/assets"
	"github.com/doeshing/agentguard/internal/application/decision"
	"github.com/doeshing/agentguard/internal/domain"
	"github.com/doeshing/agentguard/internal/infrastructure/history"
	"github.com/doeshing/agentguard/internal/infrastructure/pathclass"
	"github.com/doeshing/agentguard/internal/infrastructure/policy"
	"github.com/doeshing/agentguard/internal/infrastructure/shellparse"
)

type staticConfig struct {
	cfg domain.Config
	err error
}

func (s staticConfig) Load(context.Context) (domain.Config, error) { return s.cfg, s.err }

func engine() *decision.Engine {
	return &decision.Engine{Decomposer: shellparse.New(0, 0), Classifier: pathclass.New("/home/dev")}
}

func config(dir string) domain.Config {
	return domain.Config{
		ConfigFormatVersion: "1",
		Policy:              domain.PolicySettings{RulesFile: filepath.Join(dir, "rules.yaml")},
		History:             domain.HistorySettings{Enabled: true, Path: filepath.Join(dir, "decisions.jsonl")},
	}
}

func statuses(report domain.HealthReport) map[string]domain.HealthStatus {
	out := make(map[string]domain.HealthStatus)
	for _, check := range report.Checks {
		out[check.Name] = check.Status
	}
	return out
}

func TestRunHealthyDefaults(t *testing.T) {
	dir := t.TempDir()
	doc, err := policy.Parse(assets.DefaultRulesYAML, policy.EmbeddedSource)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	svc := &Service{
		ConfigProvider: staticConfig{cfg: config(dir)},
		Rules:          policy.NewStaticStore(doc),
		Decider:        engine(),
		Log:            history.NewFileStore(filepath.Join(dir, "decisions.jsonl")),
	}
	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed() {
		t.Fatalf("unexpected failure: %+v", report.Checks)
	}
	got := statuses(report)
	for _, name := range []string{"Config file", "Rule document", "Self-test", "Decision log"} {
		if got[name] != domain.HealthOK {
			t.Errorf("%s = %s, want ok", name, got[name])
		}
	}
}

func TestRunSelfTestFailsOnPermissiveRules(t *testing.T) {
	dir := t.TempDir()
	doc, err := policy.Parse([]byte("askCommandPatterns:\n  - sudo\n"), "permissive.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	svc := &Service{
		ConfigProvider: staticConfig{cfg: config(dir)},
		Rules:          policy.NewStaticStore(doc),
		Decider:        engine(),
	}
	report, _ := svc.Run(context.Background())
	if statuses(report)["Self-test"] != domain.HealthError {
		t.Fatalf("expected self-test failure: %+v", report.Checks)
	}
}

func TestRunReportsRuleLoadError(t *testing.T) {
	svc := &Service{
		ConfigProvider: staticConfig{cfg: config(t.TempDir())},
		RulesErr:       errors.New("blockedCommandPatterns[1] (line 3): bad regex"),
		Decider:        engine(),
	}
	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := statuses(report)
	if got["Rule document"] != domain.HealthError || !report.Failed() {
		t.Fatalf("expected rule document failure: %+v", report.Checks)
	}
	if got["Self-test"] != domain.HealthWarn {
		t.Fatalf("self-test should be skipped: %+v", report.Checks)
	}
}

func TestRunConfigError(t *testing.T) {
	svc := &Service{ConfigProvider: staticConfig{err: errors.New("boom")}}
	report, err := svc.Run(context.Background())
	if err == nil || !report.Failed() {
		t.Fatalf("expected config failure, got %v %+v", err, report)
	}
}
