package pathclass

import (
	"errors"
	"strings"
	"testing"

	"github.com/doeshing/agentguard/internal/domain"
	"github.com/doeshing/agentguard/internal/infrastructure/policy"
)

const testRules = `
zeroAccessPaths:
  - .env*
  - pattern: ~/.ssh
    kind: literal
  - pattern: '\.pem$'
    kind: regex
  - secrets/**
readOnlyPaths:
  - pattern: /etc
    kind: literal
  - pattern: '*.json'
    ask: true
noDeletePaths:
  - migrations/**
  - pattern: .git
    kind: literal
`

func mustDoc(t *testing.T) *domain.RuleDocument {
	t.Helper()
	doc, err := policy.Parse([]byte(testRules), "test", policy.WithHomeDir("/home/dev"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	return doc
}

func TestClassify(t *testing.T) {
	doc := mustDoc(t)
	c := New("/home/dev")

	tests := []struct {
		name    string
		path    string
		op      domain.ActionKind
		workDir string
		want    domain.Decision
		family  domain.RuleFamily
	}{
		{"dotenv", ".env", domain.ActionWriteOrEdit, "", domain.DecisionBlock, domain.FamilyZeroAccess},
		{"nested dotenv", "config/.env.local", domain.ActionWriteOrEdit, "", domain.DecisionBlock, domain.FamilyZeroAccess},
		{"dotenv variant", ".env.production", domain.ActionRead, "/repo", domain.DecisionBlock, domain.FamilyZeroAccess},
		{"similar name", "envfile.txt", domain.ActionWriteOrEdit, "", domain.DecisionAllow, ""},
		{"dot segments", "a/../.env", domain.ActionWriteOrEdit, "/repo", domain.DecisionBlock, domain.FamilyZeroAccess},
		{"directory prefix", "/etc/hosts", domain.ActionWriteOrEdit, "", domain.DecisionBlock, domain.FamilyReadOnly},
		{"not a prefix", "/etcetera/x", domain.ActionWriteOrEdit, "", domain.DecisionAllow, ""},
		{"read only allows reads", "/etc/hosts", domain.ActionRead, "", domain.DecisionAllow, ""},
		{"read only allows deletes", "/etc/hosts", domain.ActionDelete, "", domain.DecisionAllow, ""},
		{"no delete file", "migrations/0001_init.sql", domain.ActionDelete, "/repo", domain.DecisionBlock, domain.FamilyNoDelete},
		{"no delete dir itself", "migrations", domain.ActionDelete, "/repo", domain.DecisionBlock, domain.FamilyNoDelete},
		{"no delete allows writes", "migrations/0002.sql", domain.ActionWriteOrEdit, "/repo", domain.DecisionAllow, ""},
		{"no delete inside dir", "/repo/.git/objects/ab", domain.ActionDelete, "", domain.DecisionBlock, domain.FamilyNoDelete},
		{"home tilde", "~/.ssh/id_rsa", domain.ActionRead, "", domain.DecisionBlock, domain.FamilyZeroAccess},
		{"home variable", "$HOME/.ssh/config", domain.ActionWriteOrEdit, "", domain.DecisionBlock, domain.FamilyZeroAccess},
		{"home sibling", "/home/dev/.sshx", domain.ActionRead, "", domain.DecisionAllow, ""},
		{"regex", "/srv/tls/server.pem", domain.ActionRead, "", domain.DecisionBlock, domain.FamilyZeroAccess},
		{"ask downgrade", "config/app.json", domain.ActionWriteOrEdit, "/repo", domain.DecisionAsk, domain.FamilyReadOnly},
		{"most restrictive across families", "secrets/app.json", domain.ActionWriteOrEdit, "/repo", domain.DecisionBlock, domain.FamilyZeroAccess},
		{"execute has no path families", ".env", domain.ActionExecute, "", domain.DecisionAllow, ""},
		{"empty path", "  ", domain.ActionDelete, "/repo", domain.DecisionAllow, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(doc, tt.path, tt.op, tt.workDir)
			if got.Decision != tt.want {
				t.Fatalf("Classify(%q, %s) = %s (%s), want %s", tt.path, tt.op, got.Decision, got.Path, tt.want)
			}
			if tt.want == domain.DecisionAllow {
				if got.Protected || got.Rule != nil {
					t.Fatalf("allowed path reported protected: %+v", got)
				}
				return
			}
			if !got.Protected || got.Rule == nil || got.Rule.Family != tt.family {
				t.Fatalf("Classify(%q) matched %+v, want family %s", tt.path, got.Rule, tt.family)
			}
		})
	}
}

func TestCanonical(t *testing.T) {
	c := New("/home/dev")
	tests := []struct {
		path, workDir, want string
	}{
		{"a/../.env", "", ".env"},
		{"./src//main.go", "/repo", "/repo/src/main.go"},
		{"~", "", "/home/dev"},
		{"${HOME}/notes.txt", "", "/home/dev/notes.txt"},
		{`C:\Users\x\..\y`, "", "C:/Users/y"},
		{"/abs/path/", "/repo", "/abs/path"},
		{"rel", "~/work", "/home/dev/work/rel"},
	}
	for _, tt := range tests {
		if got := c.Canonical(tt.path, tt.workDir); got != tt.want {
			t.Errorf("Canonical(%q, %q) = %q, want %q", tt.path, tt.workDir, got, tt.want)
		}
	}
}

type failingMatcher struct{}

func (failingMatcher) Match(string) (bool, error) {
	return true, errors.New("budget exceeded")
}

func TestClassifyMatcherFailureCountsAsMatch(t *testing.T) {
	doc := domain.NewRuleDocument("stub", map[domain.RuleFamily][]domain.Rule{
		domain.FamilyZeroAccess: {{
			Family:  domain.FamilyZeroAccess,
			Pattern: "anything",
			Kind:    domain.MatchGlob,
			Matcher: failingMatcher{},
		}},
	})
	got := New("/home/dev").Classify(doc, "/tmp/x", domain.ActionRead, "")
	if got.Decision != domain.DecisionBlock || got.Err == nil {
		t.Fatalf("failing matcher must block with an error, got %+v", got)
	}
}

func TestClassifyDeepPaths(t *testing.T) {
	doc := mustDoc(t)
	c := New("/home/dev")

	deep := strings.Repeat("a/", 800) + "x.txt"
	got := c.Classify(doc, deep, domain.ActionRead, "/repo")
	if got.Decision != domain.DecisionBlock || !got.Protected || got.Err == nil {
		t.Fatalf("Classify(<801 segments>) = %+v, want block with an error", got)
	}
	if got.Rule != nil {
		t.Fatalf("depth block should not name a rule, got %+v", got.Rule)
	}

	if got := c.Classify(doc, deep, domain.ActionExecute, "/repo"); got.Protected {
		t.Fatalf("operation without path families reported protected: %+v", got)
	}

	nested := strings.Repeat("d/", 250) + "secrets/key"
	got = c.Classify(doc, nested, domain.ActionRead, "")
	if got.Decision != domain.DecisionBlock || got.Rule == nil || got.Rule.Pattern != "secrets/**" {
		t.Fatalf("Classify(<252 segments>/secrets/key) = %+v, want secrets/** block", got)
	}
}

func TestClassifyRegexSeesPathAsGiven(t *testing.T) {
	doc, err := policy.Parse([]byte("zeroAccessPaths:\n  - pattern: '^\\.env'\n    kind: regex\n"), "test")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	c := New("/home/dev")

	tests := []struct {
		path, workDir string
		want          domain.Decision
	}{
		{".env", "/repo", domain.DecisionBlock},
		{"./.env.local", "/repo", domain.DecisionBlock},
		{"sub/.env", "/repo", domain.DecisionAllow},
		{"/repo/.env", "", domain.DecisionAllow},
	}
	for _, tt := range tests {
		if got := c.Classify(doc, tt.path, domain.ActionRead, tt.workDir); got.Decision != tt.want {
			t.Errorf("Classify(%q, %q) = %s, want %s", tt.path, tt.workDir, got.Decision, tt.want)
		}
	}
}
