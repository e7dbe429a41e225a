// Package monitor renders a live terminal view of the approval queue and
// Linear progress.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fyrsmithlabs/standupd/internal/standup"
)

// PendingLister lists updates awaiting approval.
type PendingLister interface {
	List(ctx context.Context) (map[string]standup.PendingUpdate, error)
}

// IssueLister lists tracker issues.
type IssueLister interface {
	ListIssues(ctx context.Context) ([]standup.Issue, error)
}

// StatusCount is the number of issues in one workflow state.
type StatusCount struct {
	Status string
	Count  int
}

// Snapshot is one poll of the approval queue and the tracker.
type Snapshot struct {
	Pending   int
	Updates   int
	Unmatched int
	// Oldest is the age of the oldest pending record with a known creation time.
	Oldest time.Duration
	// HasOldest is false when no pending record has a creation time.
	HasOldest bool

	Issues      int
	Done        int
	PercentDone float64
	ByStatus    []StatusCount
	// TrackerErr is set when the tracker could not be read. The pending
	// fields are still valid.
	TrackerErr error
}

// Collector builds snapshots.
type Collector struct {
	store  PendingLister
	issues IssueLister
	now    func() time.Time
}

// NewCollector creates a Collector. issues may be nil.
func NewCollector(store PendingLister, issues IssueLister) *Collector {
	return &Collector{store: store, issues: issues, now: time.Now}
}

// Collect reads the pending store and the tracker. Only a store failure is
// returned as an error.
func (c *Collector) Collect(ctx context.Context) (Snapshot, error) {
	recs, err := c.store.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("listing pending updates: %w", err)
	}

	var s Snapshot
	now := c.now()
	for _, rec := range recs {
		s.Pending++
		switch rec.Kind {
		case standup.KindUnmatched:
			s.Unmatched++
		default:
			s.Updates++
		}
		if rec.CreatedAt.IsZero() {
			continue
		}
		if age := now.Sub(rec.CreatedAt); !s.HasOldest || age > s.Oldest {
			s.Oldest = age
			s.HasOldest = true
		}
	}

	if c.issues == nil {
		return s, nil
	}
	issues, err := c.issues.ListIssues(ctx)
	if err != nil {
		s.TrackerErr = err
		return s, nil
	}
	s.Issues = len(issues)
	s.PercentDone = standup.PercentDone(issues)
	counts := map[string]int{}
	for _, is := range issues {
		counts[is.Status]++
		if is.Status == standup.StatusDone {
			s.Done++
		}
	}
	for status, n := range counts {
		s.ByStatus = append(s.ByStatus, StatusCount{Status: status, Count: n})
	}
	sort.Slice(s.ByStatus, func(i, j int) bool {
		if s.ByStatus[i].Count != s.ByStatus[j].Count {
			return s.ByStatus[i].Count > s.ByStatus[j].Count
		}
		return s.ByStatus[i].Status < s.ByStatus[j].Status
	})
	return s, nil
}
