package reconcile

import "github.com/fyrsmithlabs/standupd/internal/standup"

// Decision says what to do with a Match.
type Decision int

const (
	// NoChange means nothing is posted.
	NoChange Decision = iota
	// Unmatched posts a notice that the task has no tracker issue.
	Unmatched
	// Update posts a status change proposal.
	Update
)

func (d Decision) String() string {
	switch d {
	case Unmatched:
		return "unmatched"
	case Update:
		return "update"
	default:
		return "no_change"
	}
}

// Decide applies the proposal policy to m. A task with no reported status
// never proposes a change to a matched issue.
func Decide(m standup.Match) Decision {
	if m.MatchedIssueTitle == nil {
		return Unmatched
	}
	if m.ExpectedStatus == nil {
		return NoChange
	}
	if m.CurrentStatus != nil && standup.SameStatus(*m.CurrentStatus, *m.ExpectedStatus) {
		return NoChange
	}
	return Update
}
