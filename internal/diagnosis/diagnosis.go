// Package diagnosis turns a bot's status history into severity-ranked issues
// with remediation guidance. Everything here is pure: no I/O, no clock.
package diagnosis

import (
	"time"

	"basegraph.app/meetrelay/internal/model"
)

type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

const (
	codeFatal     = "fatal"
	codeCallEnded = "call_ended"
)

type Issue struct {
	Severity       Severity  `json:"severity"`
	Code           string    `json:"code"`
	SubCode        *string   `json:"sub_code,omitempty"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Diagnosis struct {
	BotID           string   `json:"bot_id"`
	HasIssues       bool     `json:"has_issues"`
	Issues          []Issue  `json:"issues"`
	Recommendations []string `json:"recommendations"`
	InspectionURL   string   `json:"inspection_url"`
}

// Fatal returns the first fatal issue, if any.
func (d Diagnosis) Fatal() (Issue, bool) {
	for _, issue := range d.Issues {
		if issue.Severity == SeverityFatal {
			return issue, true
		}
	}
	return Issue{}, false
}

// Count returns how many issues have severity s.
func (d Diagnosis) Count(s Severity) int {
	n := 0
	for _, issue := range d.Issues {
		if issue.Severity == s {
			n++
		}
	}
	return n
}

// Summary counts issues per severity, for log lines and event payloads.
func (d Diagnosis) Summary() map[Severity]int {
	return map[Severity]int{
		SeverityFatal:   d.Count(SeverityFatal),
		SeverityWarning: d.Count(SeverityWarning),
		SeverityInfo:    d.Count(SeverityInfo),
	}
}

// Engine diagnoses bots for one provider region.
type Engine struct {
	region string
}

func NewEngine(region string) *Engine {
	return &Engine{region: region}
}

func (e *Engine) Region() string {
	return e.region
}

// Diagnose walks bot.StatusHistory in order and classifies each entry.
// Codes outside the fatal, call_ended and warning families are skipped.
func (e *Engine) Diagnose(bot model.Bot) Diagnosis {
	issues := make([]Issue, 0)
	for _, change := range bot.StatusHistory {
		if issue, ok := classify(change); ok {
			issues = append(issues, issue)
		}
	}

	return Diagnosis{
		BotID:           bot.ID,
		HasIssues:       len(issues) > 0,
		Issues:          issues,
		Recommendations: recommendations(issues),
		InspectionURL:   InspectionURL(e.region, bot.ID),
	}
}

func classify(change model.StatusChange) (Issue, bool) {
	subCode := ""
	if change.SubCode != nil {
		subCode = *change.SubCode
	}

	issue := Issue{
		Code:       change.Code,
		SubCode:    change.SubCode,
		OccurredAt: change.OccurredAt,
	}

	switch {
	case change.Code == codeFatal:
		reason := ParseFatalReason(subCode)
		issue.Severity = SeverityFatal
		issue.Recommendation = reason.Recommendation()
		issue.Message = messageOr(change.Message, reason.Description())
	case change.Code == codeCallEnded:
		reason := ParseCallEndReason(subCode)
		issue.Severity = SeverityInfo
		issue.Recommendation = reason.Explanation()
		issue.Message = messageOr(change.Message, reason.Explanation())
	default:
		warning, ok := ParseWarningCode(change.Code)
		if !ok {
			return Issue{}, false
		}
		issue.Severity = SeverityWarning
		issue.Recommendation = warning.Remediation()
		issue.Message = messageOr(change.Message, warning.Description())
	}
	return issue, true
}

func messageOr(msg *string, fallback string) string {
	if msg != nil && *msg != "" {
		return *msg
	}
	return fallback
}

// recommendations de-duplicates issue recommendations, keeping the order in
// which each first appeared.
func recommendations(issues []Issue) []string {
	seen := make(map[string]struct{}, len(issues))
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		if _, ok := seen[issue.Recommendation]; ok {
			continue
		}
		seen[issue.Recommendation] = struct{}{}
		out = append(out, issue.Recommendation)
	}
	return out
}
