// Package standup defines the records exchanged between the extraction,
// reconciliation and approval stages.
package standup

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Unidentified is the person name used when extraction could not tie a task to a teammate.
const Unidentified = "Unidentified"

// StatusDone is the tracker status counted by PercentDone.
const StatusDone = "Done"

// Record is one task extracted from a standup message or transcript.
type Record struct {
	Person string `json:"name"`
	Task   string `json:"task"`
	// Status is the status the person reported; empty when none was given.
	Status string `json:"status,omitempty"`
}

// ErrEmptyTask is returned by Validate for records without a task description.
var ErrEmptyTask = errors.New("record has no task description")

// Validate rejects records that cannot be reconciled.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Task) == "" {
		return ErrEmptyTask
	}
	return nil
}

// Identified reports whether the record names a known person.
func (r Record) Identified() bool {
	return IsIdentified(r.Person)
}

// IsIdentified reports whether name refers to a specific person.
func IsIdentified(name string) bool {
	n := strings.TrimSpace(name)
	return n != "" && !strings.EqualFold(n, Unidentified)
}

// Issue is a read-only snapshot of a tracker issue.
type Issue struct {
	ID            string
	Title         string
	Description   string
	Status        string
	AssigneeName  string
	AssigneeEmail string
	TeamID        string
	Priority      int
}

// Titles returns the titles of issues in order.
func Titles(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Title
	}
	return out
}

// Match is the result of reconciling one Record against the tracker.
type Match struct {
	Person string
	Task   string
	// CurrentStatus is the matched issue's status; nil when unmatched.
	CurrentStatus *string
	// ExpectedStatus is the reported status; nil when the record had none.
	ExpectedStatus *string
	// MatchedIssueTitle is nil when no issue matched.
	MatchedIssueTitle *string
}

// Matched reports whether an issue was matched.
func (m Match) Matched() bool {
	return m.MatchedIssueTitle != nil
}

// Kind distinguishes pending update flavours.
type Kind string

const (
	// KindUpdate asks to move an issue to a new status.
	KindUpdate Kind = "update"
	// KindUnmatched is a notice about a task with no tracker issue. Approving it never writes.
	KindUnmatched Kind = "unmatched"
)

// PendingUpdate backs a live approval request. It is keyed by the chat message
// timestamp and never modified after creation.
type PendingUpdate struct {
	UpdateID       string    `json:"update_id"`
	IssueTitle     string    `json:"title"`
	ExpectedStatus string    `json:"exp_status"`
	CurrentStatus  string    `json:"cur_status,omitempty"`
	Kind           Kind      `json:"kind"`
	Channel        string    `json:"channel"`
	Person         string    `json:"person,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NormalizeStatus trims and lower-cases a status for comparison.
func NormalizeStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SameStatus compares two statuses after normalization.
func SameStatus(a, b string) bool {
	return NormalizeStatus(a) == NormalizeStatus(b)
}

// TitleCase capitalizes each word of a status for display ("in progress" -> "In Progress").
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		lower := strings.ToLower(w)
		r, size := utf8.DecodeRuneInString(lower)
		words[i] = string(unicode.ToTitle(r)) + lower[size:]
	}
	return strings.Join(words, " ")
}

// PercentDone returns the share of issues in StatusDone, as a percentage.
func PercentDone(issues []Issue) float64 {
	if len(issues) == 0 {
		return 0
	}
	done := 0
	for _, is := range issues {
		if is.Status == StatusDone {
			done++
		}
	}
	return float64(done) / float64(len(issues)) * 100
}

// Ptr returns a pointer to s, or nil when s is blank.
func Ptr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// Deref returns *s, or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
