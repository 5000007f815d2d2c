package domain

import "time"

// DecisionRecord is one audited verdict. Records are write-only from the
// engine's point of view: nothing reads them back to make a decision.
type DecisionRecord struct {
	Timestamp      time.Time  `json:"timestamp"`
	SessionID      string     `json:"session_id,omitempty"`
	ToolName       string     `json:"tool_name,omitempty"`
	Kind           ActionKind `json:"kind"`
	Subject        string     `json:"subject"`
	Decision       Decision   `json:"decision"`
	Rule           string     `json:"rule,omitempty"`
	Explanation    string     `json:"explanation,omitempty"`
	DurationMicros int64      `json:"duration_us"`
}

// NewDecisionRecord captures an event and its verdict.
func NewDecisionRecord(event ActionEvent, verdict Verdict, elapsed time.Duration) DecisionRecord {
	record := DecisionRecord{
		Timestamp:      time.Now().UTC(),
		SessionID:      event.SessionID,
		ToolName:       event.ToolName,
		Kind:           event.Kind,
		Subject:        event.RawText,
		Decision:       verdict.Decision,
		Explanation:    verdict.Explanation,
		DurationMicros: elapsed.Microseconds(),
	}
	if verdict.Rule != nil {
		record.Rule = string(verdict.Rule.Family) + ": " + verdict.Rule.Pattern
	}
	return record
}
