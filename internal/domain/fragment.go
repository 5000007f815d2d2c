package domain

// Origin records where a fragment came from inside a compound command.
// It only feeds explanation text; every fragment is evaluated the same way.
type Origin string

const (
	OriginCommand      Origin = "command"
	OriginSequence     Origin = "sequence"
	OriginAnd          Origin = "and-list"
	OriginOr           Origin = "or-list"
	OriginPipeline     Origin = "pipeline stage"
	OriginSubshell     Origin = "subshell"
	OriginSubstitution Origin = "substitution"
	OriginNestedShell  Origin = "nested shell"
	OriginWrapper      Origin = "wrapped command"
	OriginCommandLine  Origin = "command line"
	OriginUnparseable  Origin = "unparseable"
)

// RedirectOp classifies a redirection target.
type RedirectOp string

const (
	RedirectRead  RedirectOp = "read"
	RedirectWrite RedirectOp = "write"
)

// Redirect is one file redirection attached to a fragment.
type Redirect struct {
	Op     RedirectOp `json:"op"`
	Target string     `json:"target"`
}

// Fragment is one independently reachable command extracted from a
// command line.
type Fragment struct {
	// Text is the normalized form: static words unquoted, single spaces.
	Text string `json:"text"`
	// Raw is the fragment as written in the source.
	Raw    string `json:"raw,omitempty"`
	Origin Origin `json:"origin"`
	// Args holds the command words; dynamic words keep their source form.
	Args      []string   `json:"args,omitempty"`
	Redirects []Redirect `json:"redirects,omitempty"`
	Depth     int        `json:"depth"`
	// Suspicious marks structure the decomposer refused to analyze.
	Suspicious bool   `json:"suspicious,omitempty"`
	Note       string `json:"note,omitempty"`
}

// Subjects returns the distinct strings command rules are matched against.
func (f Fragment) Subjects() []string {
	if f.Raw == "" || f.Raw == f.Text {
		return []string{f.Text}
	}
	if f.Text == "" {
		return []string{f.Raw}
	}
	return []string{f.Text, f.Raw}
}
